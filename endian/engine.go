// Package endian provides byte order utilities for scil stage headers and raw arrays.
//
// Every multi-byte field scil writes (stage headers, raw array payloads, the chain
// preamble) uses a single fixed byte order, little-endian, independent of the host.
// Compressed buffers are therefore portable between little- and big-endian machines.
//
// # Basic Usage
//
//	engine := endian.WireEngine()
//	buf = engine.AppendUint64(buf, math.Float64bits(minimum))
//
// IsNativeLittleEndian lets hot paths reinterpret memory directly when the host
// byte order already matches the wire order.
//
// # Thread Safety
//
// All functions in this package are safe for concurrent use. The returned
// EndianEngine instances are immutable and stateless.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary.
//
// binary.LittleEndian and binary.BigEndian both satisfy it.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// CheckEndianness uses a fixed integer value to determine the host's byte order.
func CheckEndianness() binary.ByteOrder {
	// 0x0100 is 256. On a little-endian host the low byte (0x00) comes first.
	var i uint16 = 0x0100

	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

var nativeLittle = CheckEndianness() == binary.LittleEndian

// IsNativeLittleEndian reports whether the host stores integers little-endian.
func IsNativeLittleEndian() bool {
	return nativeLittle
}

// IsNativeWireOrder reports whether host memory layout equals the wire byte order,
// which allows raw arrays to be copied without per-element conversion.
func IsNativeWireOrder() bool {
	return nativeLittle
}

// WireEngine returns the engine used for every field scil writes.
func WireEngine() EndianEngine {
	return binary.LittleEndian
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}
