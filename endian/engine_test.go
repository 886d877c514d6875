package endian

import (
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestCheckEndianness(t *testing.T) {
	require := require.New(t)

	result := CheckEndianness()

	var testValue uint16 = 0x0102
	testBytes := (*[2]byte)(unsafe.Pointer(&testValue))

	switch testBytes[0] {
	case 0x01:
		require.Equal(binary.BigEndian, result)
	case 0x02:
		require.Equal(binary.LittleEndian, result)
	default:
		require.Failf("Unexpected byte value", "got: %v", testBytes[0])
	}
}

func TestIsNativeLittleEndian(t *testing.T) {
	require.Equal(t, CheckEndianness() == binary.LittleEndian, IsNativeLittleEndian())
	require.Equal(t, IsNativeLittleEndian(), IsNativeWireOrder())
}

func TestWireEngineIsLittleEndian(t *testing.T) {
	engine := WireEngine()

	buf := engine.AppendUint32(nil, 0x01020304)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf)
	require.Equal(t, uint32(0x01020304), engine.Uint32(buf))
	require.Equal(t, GetLittleEndianEngine(), engine)
}

func TestBigEndianEngine(t *testing.T) {
	engine := GetBigEndianEngine()

	buf := engine.AppendUint16(nil, 0x0A0B)
	require.Equal(t, []byte{0x0A, 0x0B}, buf)

	b := make([]byte, 8)
	engine.PutUint64(b, 0x0102030405060708)
	require.Equal(t, byte(0x01), b[0])
	require.Equal(t, byte(0x08), b[7])
}
