package datagram

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	dg := New()
	dg.AddUint8(3).AddUint16(9000).AddUint32(0xdeadbeef).AddUint64(math.MaxUint64).AddChannel(42)
	require.NoError(t, dg.AddBlob([]byte{1, 2, 3}))
	require.NoError(t, dg.AddString("你好 director"))
	dg.AddData([]byte("tail"))

	it := NewIterator(dg.Bytes())
	u8, err := it.Uint8()
	require.NoError(t, err)
	assert.EqualValues(t, 3, u8)
	u16, err := it.Uint16()
	require.NoError(t, err)
	assert.EqualValues(t, 9000, u16)
	u32, err := it.Uint32()
	require.NoError(t, err)
	assert.EqualValues(t, 0xdeadbeef, u32)
	u64, err := it.Uint64()
	require.NoError(t, err)
	assert.EqualValues(t, uint64(math.MaxUint64), u64)
	ch, err := it.Channel()
	require.NoError(t, err)
	assert.EqualValues(t, 42, ch)
	blob, err := it.Blob()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, blob)
	s, err := it.String()
	require.NoError(t, err)
	assert.Equal(t, "你好 director", s)
	assert.Equal(t, []byte("tail"), it.Remaining())
	assert.Equal(t, 0, it.Left())
	assert.Equal(t, dg.Len(), it.Tell())
}

func TestLittleEndian(t *testing.T) {
	dg := New().AddUint16(0x0102).AddUint64(1)
	assert.Equal(t, "0201"+"0100000000000000", dg.Hex())
}

func TestUnderflow(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		read func(it *Iterator) error
		tell int
	}{
		{"uint8", nil, func(it *Iterator) error { _, err := it.Uint8(); return err }, 0},
		{"uint16", []byte{1}, func(it *Iterator) error { _, err := it.Uint16(); return err }, 0},
		{"uint64", []byte{1, 2, 3}, func(it *Iterator) error { _, err := it.Uint64(); return err }, 0},
		// 长度前缀已经读出，游标不会退回
		{"blob body", []byte{5, 0, 1}, func(it *Iterator) error { _, err := it.Blob(); return err }, 2},
		{"string prefix", []byte{5}, func(it *Iterator) error { _, err := it.String(); return err }, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := NewIterator(tt.data)
			err := tt.read(it)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnderflow))
			assert.True(t, IsDecodeError(err))
			assert.Equal(t, tt.tell, it.Tell())
		})
	}
}

func TestInvalidText(t *testing.T) {
	dg := New()
	require.NoError(t, dg.AddBlob([]byte{0xff, 0xfe}))
	it := NewIterator(dg.Bytes())
	_, err := it.String()
	assert.ErrorIs(t, err, ErrInvalidText)
	assert.True(t, IsDecodeError(err))
	assert.Equal(t, dg.Len(), it.Tell())
}

func TestCapacity(t *testing.T) {
	dg := FromBytes(make([]byte, MaxSize))
	assert.NoError(t, dg.Check())
	dg.AddUint8(0)
	assert.ErrorIs(t, dg.Check(), ErrCapacityExceeded)

	assert.NoError(t, New().AddString(strings.Repeat("a", MaxSize)))
	assert.ErrorIs(t, New().AddString(strings.Repeat("a", MaxSize+1)), ErrCapacityExceeded)
	assert.ErrorIs(t, New().AddBlob(make([]byte, MaxSize+1)), ErrCapacityExceeded)
}

func TestFromBytesCopies(t *testing.T) {
	src := []byte{1, 2}
	dg := FromBytes(src)
	src[0] = 9
	assert.Equal(t, []byte{1, 2}, dg.Bytes())
	assert.False(t, IsDecodeError(ErrCapacityExceeded))
}
