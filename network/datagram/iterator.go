package datagram

import (
	"encoding/binary"
	"unicode/utf8"
)

// Iterator 顺序读取datagram，游标只前进不后退
// 定长字段读取失败时游标不动，Blob和String的长度前缀读出后即使内容失败也不会退回
type Iterator struct {
	buf    []byte
	offset int
}

func NewIterator(b []byte) *Iterator {
	return &Iterator{buf: b}
}

// Tell 当前游标
func (it *Iterator) Tell() int {
	return it.offset
}

// Left 剩余未读字节数
func (it *Iterator) Left() int {
	return len(it.buf) - it.offset
}

func (it *Iterator) take(op string, n int) ([]byte, error) {
	if n > it.Left() {
		return nil, &DecodeError{Op: op, Offset: it.offset, Err: ErrUnderflow}
	}
	b := it.buf[it.offset : it.offset+n]
	it.offset += n
	return b, nil
}

func (it *Iterator) Uint8() (uint8, error) {
	b, err := it.take("uint8", 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (it *Iterator) Uint16() (uint16, error) {
	b, err := it.take("uint16", 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (it *Iterator) Uint32() (uint32, error) {
	b, err := it.take("uint32", 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (it *Iterator) Uint64() (uint64, error) {
	b, err := it.take("uint64", 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (it *Iterator) Channel() (Channel, error) {
	b, err := it.take("channel", ChannelSize)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Blob 读取带长度前缀的数据，返回的切片引用原buffer
func (it *Iterator) Blob() ([]byte, error) {
	n, err := it.Uint16()
	if err != nil {
		return nil, err
	}
	return it.take("blob", int(n))
}

func (it *Iterator) String() (string, error) {
	start := it.offset
	b, err := it.Blob()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", &DecodeError{Op: "string", Offset: start, Err: ErrInvalidText}
	}
	return string(b), nil
}

// Remaining 读取剩下所有数据
func (it *Iterator) Remaining() []byte {
	b := it.buf[it.offset:]
	it.offset = len(it.buf)
	return b
}
