package tcp

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/YiuTerran/go-director/network/datagram"
)

// IParser parser的接口，开放给外部自定义
//用于从tcp流数据中分离出整段信息
type IParser interface {
	// Read 从流中读取一条完整消息
	Read(r io.Reader) ([]byte, error)
	// Pack 把多段数据拼成一条带长度前缀的消息
	Pack(args ...[]byte) ([]byte, error)
}

// BinaryParser 一个默认的二进制解析器，可以拿来做服务端封装
//--------------
// | len | data |
// --------------
type BinaryParser struct {
	lenMsgLen    int
	minMsgLen    uint32
	maxMsgLen    uint32
	littleEndian bool
}

// NewDefaultParser 默认使用2位长度标识,小端序
func NewDefaultParser() *BinaryParser {
	return NewBinaryParser(2, true)
}

// NewBinaryParser lenMsgLen只能是1,2,4，其他值按2处理
func NewBinaryParser(lenMsgLen int, littleEndian bool) *BinaryParser {
	p := new(BinaryParser)
	p.littleEndian = littleEndian
	p.setMsgLen(lenMsgLen)
	return p
}

func (p *BinaryParser) setMsgLen(lenMsgLen int) {
	if lenMsgLen == 1 || lenMsgLen == 2 || lenMsgLen == 4 {
		p.lenMsgLen = lenMsgLen
	} else {
		p.lenMsgLen = 2
	}
	var max uint32
	switch p.lenMsgLen {
	case 1:
		max = math.MaxUint8
	case 2:
		max = math.MaxUint16
	case 4:
		max = math.MaxUint32
	}
	p.minMsgLen = 1
	p.maxMsgLen = max
}

// HeaderLen 长度前缀占用的字节数
func (p *BinaryParser) HeaderLen() int {
	return p.lenMsgLen
}

// MaxMsgLen 单条消息最大长度，不含前缀
func (p *BinaryParser) MaxMsgLen() int {
	return int(p.maxMsgLen)
}

func (p *BinaryParser) decodeLen(b []byte) uint32 {
	switch p.lenMsgLen {
	case 1:
		return uint32(b[0])
	case 2:
		if p.littleEndian {
			return uint32(binary.LittleEndian.Uint16(b))
		}
		return uint32(binary.BigEndian.Uint16(b))
	default:
		if p.littleEndian {
			return binary.LittleEndian.Uint32(b)
		}
		return binary.BigEndian.Uint32(b)
	}
}

func (p *BinaryParser) checkLen(msgLen uint32) error {
	if msgLen > p.maxMsgLen {
		return fmt.Errorf("%w: %d > %d", ErrMsgTooLong, msgLen, p.maxMsgLen)
	} else if msgLen < p.minMsgLen {
		return fmt.Errorf("%w: %d", ErrMsgTooShort, msgLen)
	}
	return nil
}

// Read 从连接中读取数据，goroutine safe
func (p *BinaryParser) Read(r io.Reader) ([]byte, error) {
	var b [4]byte
	bufMsgLen := b[:p.lenMsgLen]

	// read len
	if _, err := io.ReadFull(r, bufMsgLen); err != nil {
		return nil, err
	}
	msgLen := p.decodeLen(bufMsgLen)
	if err := p.checkLen(msgLen); err != nil {
		return nil, err
	}

	// data
	msgData := make([]byte, msgLen)
	if _, err := io.ReadFull(r, msgData); err != nil {
		return nil, err
	}
	return msgData, nil
}

// Pack 生成一条完整的消息，goroutine safe
func (p *BinaryParser) Pack(args ...[]byte) ([]byte, error) {
	// get len
	var total uint64
	for i := 0; i < len(args); i++ {
		total += uint64(len(args[i]))
	}
	if total > uint64(p.maxMsgLen) {
		return nil, fmt.Errorf("%w: %d > %d", ErrMsgTooLong, total, p.maxMsgLen)
	}
	msgLen := uint32(total)
	if err := p.checkLen(msgLen); err != nil {
		return nil, err
	}

	msg := make([]byte, uint32(p.lenMsgLen)+msgLen)

	// write len
	switch p.lenMsgLen {
	case 1:
		msg[0] = byte(msgLen)
	case 2:
		if p.littleEndian {
			binary.LittleEndian.PutUint16(msg, uint16(msgLen))
		} else {
			binary.BigEndian.PutUint16(msg, uint16(msgLen))
		}
	case 4:
		if p.littleEndian {
			binary.LittleEndian.PutUint32(msg, msgLen)
		} else {
			binary.BigEndian.PutUint32(msg, msgLen)
		}
	}

	// write data
	l := p.lenMsgLen
	for i := 0; i < len(args); i++ {
		copy(msg[l:], args[i])
		l += len(args[i])
	}
	return msg, nil
}

// DefaultMaxBuffered 默认parser下framer最多缓存一条最大的消息
const DefaultMaxBuffered = 2 + datagram.MaxSize
