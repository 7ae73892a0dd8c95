package datagram

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
)

/**  路由协议的基础编码，所有整数都是小端
  *  @author tryao
  *  @date 2022/09/02 10:20
**/

const (
	// MaxSize 单个datagram上线的最大长度，受限于uint16的长度前缀
	MaxSize = math.MaxUint16
	// ChannelSize 一个channel id占用的字节数
	ChannelSize = 8
)

// Channel 通道id
type Channel = uint64

// Datagram 只能追加写入的buffer
type Datagram struct {
	buf []byte
}

func New() *Datagram {
	return &Datagram{buf: make([]byte, 0, 64)}
}

// FromBytes 用已有数据构造，会复制一份
func FromBytes(b []byte) *Datagram {
	buf := make([]byte, len(b), len(b)+64)
	copy(buf, b)
	return &Datagram{buf: buf}
}

func (dg *Datagram) AddUint8(v uint8) *Datagram {
	dg.buf = append(dg.buf, v)
	return dg
}

func (dg *Datagram) AddUint16(v uint16) *Datagram {
	dg.buf = binary.LittleEndian.AppendUint16(dg.buf, v)
	return dg
}

func (dg *Datagram) AddUint32(v uint32) *Datagram {
	dg.buf = binary.LittleEndian.AppendUint32(dg.buf, v)
	return dg
}

func (dg *Datagram) AddUint64(v uint64) *Datagram {
	dg.buf = binary.LittleEndian.AppendUint64(dg.buf, v)
	return dg
}

func (dg *Datagram) AddChannel(ch Channel) *Datagram {
	return dg.AddUint64(ch)
}

// AddData 追加原始数据，没有长度前缀
func (dg *Datagram) AddData(b []byte) *Datagram {
	dg.buf = append(dg.buf, b...)
	return dg
}

// AddBlob 追加带uint16长度前缀的数据
func (dg *Datagram) AddBlob(b []byte) error {
	if len(b) > MaxSize {
		return fmt.Errorf("blob of %d bytes: %w", len(b), ErrCapacityExceeded)
	}
	dg.AddUint16(uint16(len(b)))
	dg.buf = append(dg.buf, b...)
	return nil
}

// AddString 同AddBlob，内容是utf8文本
func (dg *Datagram) AddString(s string) error {
	if len(s) > MaxSize {
		return fmt.Errorf("string of %d bytes: %w", len(s), ErrCapacityExceeded)
	}
	dg.AddUint16(uint16(len(s)))
	dg.buf = append(dg.buf, s...)
	return nil
}

func (dg *Datagram) Len() int {
	return len(dg.buf)
}

// Bytes 返回内部buffer，调用方不应修改
func (dg *Datagram) Bytes() []byte {
	return dg.buf
}

// Check 是否能作为一条消息发送
func (dg *Datagram) Check() error {
	if len(dg.buf) > MaxSize {
		return fmt.Errorf("datagram of %d bytes: %w", len(dg.buf), ErrCapacityExceeded)
	}
	return nil
}

// Hex 调试用
func (dg *Datagram) Hex() string {
	return hex.EncodeToString(dg.buf)
}

func (dg *Datagram) String() string {
	return fmt.Sprintf("Datagram(%d)[%s]", len(dg.buf), dg.Hex())
}
