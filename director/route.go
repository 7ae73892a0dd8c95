package director

import (
	"errors"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/base/structs/set"
	"github.com/YiuTerran/go-director/network/tcp"
)

// route 扇出后调用Handler
func (d *Director) route(msg *Message, origin *Session) {
	d.fanout(msg, origin)
	if d.handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.PanicStack(d.logger, "handler panic", r)
		}
	}()
	d.handler.OnMessage(msg.Dests, msg.Sender, msg.Type, msg.Body)
}

// fanout 在读锁内完成，每个连接最多收到一份，origin自己不会收到
func (d *Director) fanout(msg *Message, origin *Session) {
	if len(msg.Dests) == 0 {
		return
	}
	dests := set.NewSet(msg.Dests...)
	delivered := 0

	d.mu.RLock()
	d.sessions.ForEach(func(s *Session) {
		if s == origin || !s.channels.Intersects(dests) {
			return
		}
		// 写队列满的连接会被销毁，不影响其他连接
		if err := s.conn.WriteMsg(msg.raw); err != nil {
			switch {
			case errors.Is(err, tcp.ErrWriteQueueFull):
				d.metrics.dropped("queue_full")
			case errors.Is(err, tcp.ErrConnClosed):
				d.metrics.dropped("closed")
			default:
				d.metrics.dropped("error")
			}
			s.logger.Warn("fail to deliver %v: %v", msg, err)
			return
		}
		delivered++
	})
	d.mu.RUnlock()

	d.metrics.delivered(delivered)
}
