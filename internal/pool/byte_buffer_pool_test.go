package pool

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBuffer_WriteAndReset(t *testing.T) {
	bb := NewByteBuffer(8)
	require.Equal(t, 0, bb.Len())
	require.Equal(t, 8, bb.Cap())

	bb.MustWrite([]byte{1, 2, 3})
	n, err := bb.Write([]byte{4, 5})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, bb.Bytes())

	bb.Reset()
	require.Equal(t, 0, bb.Len())
	require.GreaterOrEqual(t, bb.Cap(), 8)
}

func TestByteBuffer_Detach(t *testing.T) {
	bb := NewByteBuffer(4)
	bb.MustWrite([]byte("abc"))

	out := bb.Detach()
	bb.Reset()
	bb.MustWrite([]byte("xyz"))

	require.Equal(t, []byte("abc"), out)
}

func TestByteBuffer_Grow(t *testing.T) {
	t.Run("sufficient capacity is a no-op", func(t *testing.T) {
		bb := NewByteBuffer(100)
		bb.Grow(50)
		require.Equal(t, 100, bb.Cap())
	})

	t.Run("small buffer grows by default size", func(t *testing.T) {
		bb := NewByteBuffer(10)
		bb.MustWrite(make([]byte, 10))
		bb.Grow(1)
		require.Equal(t, 10+StreamBufferDefaultSize, bb.Cap())
	})

	t.Run("large request wins", func(t *testing.T) {
		bb := NewByteBuffer(0)
		bb.Grow(StreamBufferDefaultSize * 3)
		require.GreaterOrEqual(t, bb.Cap(), StreamBufferDefaultSize*3)
	})

	t.Run("large buffer grows by a quarter", func(t *testing.T) {
		size := 8 * StreamBufferDefaultSize
		bb := NewByteBuffer(size)
		bb.MustWrite(make([]byte, size))
		bb.Grow(1)
		require.Equal(t, size+size/4, bb.Cap())
	})

	t.Run("preserves data", func(t *testing.T) {
		bb := NewByteBuffer(2)
		bb.MustWrite([]byte{9, 8})
		bb.Grow(1000)
		require.Equal(t, []byte{9, 8}, bb.Bytes())
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("write failed") }

func TestByteBuffer_WriteTo(t *testing.T) {
	bb := NewByteBuffer(4)
	bb.MustWrite([]byte("data"))

	var out bytes.Buffer
	n, err := bb.WriteTo(&out)
	require.NoError(t, err)
	require.Equal(t, int64(4), n)
	require.Equal(t, "data", out.String())

	_, err = bb.WriteTo(failingWriter{})
	require.EqualError(t, err, "write failed")
}

func TestByteBufferPool(t *testing.T) {
	t.Run("put resets buffer", func(t *testing.T) {
		p := NewByteBufferPool(16, 0)
		bb := p.Get()
		bb.MustWrite([]byte("leftover"))
		p.Put(bb)

		again := p.Get()
		require.Equal(t, 0, again.Len())
	})

	t.Run("nil put is ignored", func(t *testing.T) {
		p := NewByteBufferPool(16, 0)
		require.NotPanics(t, func() { p.Put(nil) })
	})

	t.Run("oversized buffers are dropped", func(t *testing.T) {
		p := NewByteBufferPool(16, 32)
		bb := p.Get()
		bb.Grow(1024)
		bb.MustWrite([]byte("x"))
		p.Put(bb)
		require.Equal(t, 1, bb.Len(), "dropped buffer is not reset")
	})

	t.Run("default pools", func(t *testing.T) {
		s := GetStreamBuffer()
		require.GreaterOrEqual(t, s.Cap(), 0)
		PutStreamBuffer(s)
	})

	t.Run("concurrent use", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func(v byte) {
				defer wg.Done()
				for range 100 {
					bb := GetStreamBuffer()
					bb.MustWrite([]byte{v})
					if bb.Len() != 1 || bb.Bytes()[0] != v {
						t.Errorf("unexpected buffer contents")
					}
					PutStreamBuffer(bb)
				}
			}(byte(i))
		}
		wg.Wait()
	})
}
