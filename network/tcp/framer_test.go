package tcp

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/YiuTerran/go-director/network/datagram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildStream(t *testing.T, payloads [][]byte) []byte {
	p := NewDefaultParser()
	var stream []byte
	for _, payload := range payloads {
		b, err := p.Pack(payload)
		require.NoError(t, err)
		stream = append(stream, b...)
	}
	return stream
}

func feedAll(f *Framer, chunks [][]byte) ([][]byte, error) {
	var got [][]byte
	for _, c := range chunks {
		if err := f.Feed(c, func(payload []byte) error {
			got = append(got, payload)
			return nil
		}); err != nil {
			return got, err
		}
	}
	return got, nil
}

func TestFramerSplitInvariance(t *testing.T) {
	payloads := [][]byte{
		[]byte("a"),
		bytes.Repeat([]byte{7}, 300),
		[]byte("hello director"),
		bytes.Repeat([]byte{1}, 4096),
	}
	stream := buildStream(t, payloads)
	r := rand.New(rand.NewSource(1))

	tests := []struct {
		name   string
		chunks func() [][]byte
	}{
		{"whole", func() [][]byte { return [][]byte{stream} }},
		{"byte by byte", func() [][]byte {
			r := make([][]byte, 0, len(stream))
			for i := range stream {
				r = append(r, stream[i:i+1])
			}
			return r
		}},
		{"random", func() [][]byte {
			var res [][]byte
			for i := 0; i < len(stream); {
				n := 1 + r.Intn(700)
				if i+n > len(stream) {
					n = len(stream) - i
				}
				res = append(res, stream[i:i+n])
				i += n
			}
			return res
		}},
		{"split in header", func() [][]byte { return [][]byte{stream[:1], stream[1:]} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFramer(nil, 0)
			got, err := feedAll(f, tt.chunks())
			require.NoError(t, err)
			assert.Equal(t, payloads, got)
			assert.Equal(t, 0, f.Buffered())
		})
	}
}

func TestFramerPartial(t *testing.T) {
	stream := buildStream(t, [][]byte{[]byte("abc")})
	f := NewFramer(nil, 0)
	got, err := feedAll(f, [][]byte{stream[:4]})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 4, f.Buffered())

	got, err = feedAll(f, [][]byte{stream[4:]})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("abc")}, got)
}

func TestFramerPayloadIsCopied(t *testing.T) {
	stream := buildStream(t, [][]byte{[]byte("abc"), []byte("def")})
	f := NewFramer(nil, 0)
	got, err := feedAll(f, [][]byte{stream})
	require.NoError(t, err)
	stream[2] = 'x'
	assert.Equal(t, []byte("abc"), got[0])
}

func TestFramerOverflow(t *testing.T) {
	f := NewFramer(nil, 8)
	// 声明长度100，永远凑不齐
	err := f.Feed([]byte{100, 0, 1, 2, 3, 4, 5, 6, 7}, func([]byte) error { return nil })
	assert.ErrorIs(t, err, ErrBufferOverflow)
	assert.Equal(t, DefaultMaxBuffered, NewFramer(nil, 0).MaxBuffered())
}

func TestFramerZeroLength(t *testing.T) {
	f := NewFramer(nil, 0)
	err := f.Feed([]byte{0, 0}, func([]byte) error { return nil })
	assert.ErrorIs(t, err, ErrMsgTooShort)
}

func TestFramerStopsOnCallbackError(t *testing.T) {
	stream := buildStream(t, [][]byte{[]byte("a"), []byte("b")})
	f := NewFramer(nil, 0)
	stop := errors.New("stop")
	n := 0
	err := f.Feed(stream, func([]byte) error {
		n++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}

func TestParserPack(t *testing.T) {
	p := NewDefaultParser()
	b, err := p.Pack([]byte{1, 2}, []byte{3})
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 0, 1, 2, 3}, b)

	msg, err := p.Read(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, msg)

	_, err = p.Pack(make([]byte, datagram.MaxSize))
	assert.NoError(t, err)
	_, err = p.Pack(make([]byte, datagram.MaxSize), []byte{1})
	assert.ErrorIs(t, err, ErrMsgTooLong)
	assert.ErrorIs(t, err, datagram.ErrCapacityExceeded)

	big := NewBinaryParser(4, false)
	b, err = big.Pack([]byte{9})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1, 9}, b)
}
