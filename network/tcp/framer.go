package tcp

import (
	"fmt"
)

// Framer 从任意切分的字节流中取出完整消息
// 一次Feed可能产出0条、1条或多条消息，不完整的部分留在buffer里
type Framer struct {
	parser      *BinaryParser
	buf         []byte
	maxBuffered int
}

// NewFramer maxBuffered<=0时使用前缀长度+最大消息长度
func NewFramer(parser *BinaryParser, maxBuffered int) *Framer {
	if parser == nil {
		parser = NewDefaultParser()
	}
	if maxBuffered <= 0 {
		maxBuffered = parser.HeaderLen() + parser.MaxMsgLen()
	}
	return &Framer{parser: parser, maxBuffered: maxBuffered}
}

// Buffered 还没组成完整消息的字节数
func (f *Framer) Buffered() int {
	return len(f.buf)
}

func (f *Framer) MaxBuffered() int {
	return f.maxBuffered
}

// Feed 追加数据并对每条完整消息调用fn，fn返回错误时停止
// 传给fn的payload是独立的拷贝，可以被保留
func (f *Framer) Feed(b []byte, fn func(payload []byte) error) error {
	f.buf = append(f.buf, b...)
	hl := f.parser.HeaderLen()
	off := 0
	var err error
	for len(f.buf)-off >= hl {
		msgLen := f.parser.decodeLen(f.buf[off : off+hl])
		if err = f.parser.checkLen(msgLen); err != nil {
			break
		}
		end := off + hl + int(msgLen)
		if end > len(f.buf) {
			break
		}
		payload := make([]byte, msgLen)
		copy(payload, f.buf[off+hl:end])
		off = end
		if err = fn(payload); err != nil {
			break
		}
	}
	if off > 0 {
		n := copy(f.buf, f.buf[off:])
		f.buf = f.buf[:n]
	}
	if err != nil {
		return err
	}
	if len(f.buf) > f.maxBuffered {
		return fmt.Errorf("%w: %d buffered, max %d", ErrBufferOverflow, len(f.buf), f.maxBuffered)
	}
	return nil
}

// Reset 丢弃所有缓存
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}
