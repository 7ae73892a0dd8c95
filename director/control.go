package director

import (
	"strconv"

	"github.com/YiuTerran/go-director/network/datagram"
)

// 控制消息类型，数值和Astron保持一致
const (
	ControlSetChannel       uint16 = 9000
	ControlRemoveChannel    uint16 = 9001
	ControlAddPostRemove    uint16 = 9010
	ControlClearPostRemoves uint16 = 9011
	ControlSetConName       uint16 = 9012
	ControlSetConURL        uint16 = 9013
)

var controlNames = map[uint16]string{
	ControlSetChannel:       "set_channel",
	ControlRemoveChannel:    "remove_channel",
	ControlAddPostRemove:    "add_post_remove",
	ControlClearPostRemoves: "clear_post_removes",
	ControlSetConName:       "set_con_name",
	ControlSetConURL:        "set_con_url",
}

// ControlName 控制类型的可读名字
func ControlName(code uint16) string {
	if name, ok := controlNames[code]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(code)) + ")"
}

// handleControl 只修改发送方自己的状态
// 先解码再加写锁，解码失败不会留下修改了一半的状态
func (d *Director) handleControl(s *Session, msg *Message) error {
	it := datagram.NewIterator(msg.Body)
	switch msg.Type {
	case ControlSetChannel, ControlRemoveChannel:
		ch, err := it.Channel()
		if err != nil {
			return err
		}
		d.mu.Lock()
		if msg.Type == ControlSetChannel {
			s.channels.AddItem(ch)
		} else {
			s.channels.RemoveItem(ch)
		}
		d.mu.Unlock()
		s.logger.Debug("%s %d", ControlName(msg.Type), ch)
	case ControlAddPostRemove:
		blob, err := it.Blob()
		if err != nil {
			return err
		}
		// blob引用了读缓冲，需要复制
		stored := make([]byte, len(blob))
		copy(stored, blob)
		d.mu.Lock()
		s.postRemoves = append(s.postRemoves, stored)
		d.mu.Unlock()
		s.logger.Debug("add post remove of %d bytes", len(stored))
	case ControlClearPostRemoves:
		d.mu.Lock()
		s.postRemoves = nil
		d.mu.Unlock()
	case ControlSetConName, ControlSetConURL:
		str, err := it.String()
		if err != nil {
			return err
		}
		d.mu.Lock()
		if msg.Type == ControlSetConName {
			s.name = str
		} else {
			s.url = str
		}
		d.mu.Unlock()
		s.logger.Debug("%s %q", ControlName(msg.Type), str)
	default:
		d.metrics.controlCode("unknown")
		return &UnknownControlCodeError{Code: msg.Type}
	}
	d.metrics.controlCode(controlNames[msg.Type])
	return nil
}

// BuildControl 生成发往控制通道的完整payload
func BuildControl(code uint16, sender Channel, fill func(dg *datagram.Datagram) error) ([]byte, error) {
	dg := datagram.New()
	if fill != nil {
		if err := fill(dg); err != nil {
			return nil, err
		}
	}
	return BuildMessage([]Channel{ControlChannel}, sender, code, dg.Bytes())
}
