package director

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/base/structs/set"
	"github.com/YiuTerran/go-director/network"
	"github.com/YiuTerran/go-director/network/datagram"
	"github.com/YiuTerran/go-director/network/tcp"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

const readBufferSize = 4096

// Session 一个agent的连接
// channels, name, url, postRemoves 都由Director的锁保护
type Session struct {
	id       string
	director *Director
	conn     network.Conn
	framer   *tcp.Framer
	created  time.Time
	logger   log.Logger
	received atomic.Uint64

	channels    *set.Set[Channel]
	name        string
	url         string
	postRemoves [][]byte
}

// SessionInfo 连接的快照，用于展示
type SessionInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	RemoteAddr  string    `json:"remoteAddr"`
	Channels    []Channel `json:"channels"`
	PostRemoves int       `json:"postRemoves"`
	Received    uint64    `json:"received"`
	Created     time.Time `json:"created"`
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Run 读循环，返回即断开
func (s *Session) Run() {
	defer func() {
		if r := recover(); r != nil {
			log.PanicStack(s.logger, "session panic", r)
		}
	}()
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			s.director.metrics.received(n)
			if ferr := s.framer.Feed(buf[:n], s.handlePayload); ferr != nil {
				if datagram.IsDecodeError(ferr) {
					s.director.metrics.message("malformed")
				} else {
					s.director.metrics.message("invalid")
				}
				s.logger.Warn("disconnect: %v", ferr)
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				s.logger.Debug("connection closed")
			} else {
				s.logger.Info("read error: %v", err)
			}
			return
		}
	}
}

// OnClose 先从路由表移除，再重放post remove，最后才会释放socket
func (s *Session) OnClose() {
	s.director.removeSession(s)
}

func (s *Session) handlePayload(payload []byte) error {
	s.received.Inc()
	msg, err := ParseMessage(payload)
	if err != nil {
		return err
	}
	if !msg.IsControl() {
		s.director.metrics.message("route")
		s.director.route(msg, s)
		return nil
	}
	s.director.metrics.message("control")
	err = s.director.handleControl(s, msg)
	var uc *UnknownControlCodeError
	if errors.As(err, &uc) {
		s.logger.Warn("ignore control message: %v", err)
		return nil
	}
	return err
}

func (s *Session) info() SessionInfo {
	return SessionInfo{
		ID:          s.id,
		Name:        s.name,
		URL:         s.url,
		RemoteAddr:  addrString(s.conn.RemoteAddr()),
		Channels:    s.channels.ToArray(),
		PostRemoves: len(s.postRemoves),
		Received:    s.received.Load(),
		Created:     s.created,
	}
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}

func newSessionID() string {
	return uuid.NewString()
}

var _ network.Session = (*Session)(nil)
