package director

import (
	"fmt"
	"math"

	"github.com/YiuTerran/go-director/network/datagram"
)

// Channel 路由id，1是控制通道
type Channel = datagram.Channel

const (
	ControlChannel Channel = 1

	// MaxDestinations 目标数量用一个字节表示
	MaxDestinations = math.MaxUint8
)

// Message 一条完整的路由消息
// [uint8 n][n*uint64 dest][uint64 sender][uint16 type][body]
type Message struct {
	Dests  []Channel
	Sender Channel
	Type   uint16
	Body   []byte

	raw []byte
}

// ParseMessage 解析payload，body引用payload的内存
func ParseMessage(payload []byte) (*Message, error) {
	it := datagram.NewIterator(payload)
	n, err := it.Uint8()
	if err != nil {
		return nil, err
	}
	msg := &Message{Dests: make([]Channel, 0, n), raw: payload}
	for i := 0; i < int(n); i++ {
		ch, err := it.Channel()
		if err != nil {
			return nil, err
		}
		msg.Dests = append(msg.Dests, ch)
	}
	if msg.Sender, err = it.Channel(); err != nil {
		return nil, err
	}
	if msg.Type, err = it.Uint16(); err != nil {
		return nil, err
	}
	msg.Body = it.Remaining()
	return msg, nil
}

// BuildMessage 编码一条消息，payload超过65535字节时返回datagram.ErrCapacityExceeded
func BuildMessage(dests []Channel, sender Channel, msgType uint16, body []byte) ([]byte, error) {
	if len(dests) > MaxDestinations {
		return nil, fmt.Errorf("%w: %d", ErrTooManyDestinations, len(dests))
	}
	dg := datagram.New()
	dg.AddUint8(uint8(len(dests)))
	for _, ch := range dests {
		dg.AddChannel(ch)
	}
	dg.AddChannel(sender).AddUint16(msgType).AddData(body)
	if err := dg.Check(); err != nil {
		return nil, err
	}
	return dg.Bytes(), nil
}

// IsControl 目标只有控制通道时才是控制消息
func (m *Message) IsControl() bool {
	if len(m.Dests) == 0 {
		return false
	}
	for _, ch := range m.Dests {
		if ch != ControlChannel {
			return false
		}
	}
	return true
}

// Raw 原始payload，转发时原样发出
func (m *Message) Raw() []byte {
	return m.raw
}

func (m *Message) String() string {
	return fmt.Sprintf("Message{dests:%v sender:%d type:%d body:%d bytes}", m.Dests, m.Sender, m.Type, len(m.Body))
}
