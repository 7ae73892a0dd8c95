package director

import (
	"sort"
	"sync"
	"time"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/base/structs/set"
	"github.com/YiuTerran/go-director/network"
	"github.com/YiuTerran/go-director/network/tcp"
)

/**  消息路由中心，agent订阅channel，director按channel扇出
  *  @author tryao
  *  @date 2022/09/05 16:40
**/

// Director 所有连接共享一把读写锁
// 控制消息和连接的增删拿写锁，路由拿读锁
type Director struct {
	mu       sync.RWMutex
	sessions *set.Set[*Session]
	closed   bool
	wg       sync.WaitGroup

	handler     Handler
	publishHook bool
	logger      log.Logger
	metrics     *Metrics
	parser      *tcp.BinaryParser
	maxBuffered int
}

type Option func(*Director)

// WithHandler 非控制消息扇出之后交给h处理
func WithHandler(h Handler) Option {
	return func(d *Director) {
		d.handler = h
	}
}

// WithPublishHook Publish是否回调Handler，默认回调
// Handler里会再调用Publish的应用可以关掉，避免循环
func WithPublishHook(enabled bool) Option {
	return func(d *Director) {
		d.publishHook = enabled
	}
}

func WithLogger(l log.Logger) Option {
	return func(d *Director) {
		d.logger = l
	}
}

// WithMetrics m为nil时不统计
func WithMetrics(m *Metrics) Option {
	return func(d *Director) {
		d.metrics = m
	}
}

// WithMaxBuffered 每个连接接收缓冲的上限
func WithMaxBuffered(n int) Option {
	return func(d *Director) {
		d.maxBuffered = n
	}
}

func New(opts ...Option) *Director {
	d := &Director{
		sessions:    set.NewSet[*Session](),
		publishHook: true,
		logger:      log.Nop(),
		parser:      tcp.NewDefaultParser(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = log.Nop()
	}
	return d
}

// NewSession 作为tcp/ws服务端的NewSessionFunc
func (d *Director) NewSession(conn network.Conn) network.Session {
	s := &Session{
		id:       newSessionID(),
		director: d,
		conn:     conn,
		framer:   tcp.NewFramer(d.parser, d.maxBuffered),
		created:  time.Now(),
		channels: set.NewSet[Channel](),
	}
	s.logger = d.logger.With(log.Fields{"session": s.id[:8], "addr": addrString(conn.RemoteAddr())})

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		conn.Destroy()
		return closedSession{}
	}
	d.sessions.AddItem(s)
	d.wg.Add(1)
	d.mu.Unlock()

	d.metrics.sessionOpened()
	s.logger.Info("agent connected")
	return s
}

func (d *Director) removeSession(s *Session) {
	d.mu.Lock()
	if !d.sessions.Contains(s) {
		d.mu.Unlock()
		return
	}
	d.sessions.RemoveItem(s)
	postRemoves := s.postRemoves
	s.postRemoves = nil
	d.mu.Unlock()

	d.metrics.sessionClosed()
	for _, raw := range postRemoves {
		msg, err := ParseMessage(raw)
		if err != nil {
			s.logger.Warn("drop malformed post remove: %v", err)
			continue
		}
		if msg.IsControl() {
			s.logger.Warn("drop post remove addressed to control channel, type %d", msg.Type)
			continue
		}
		d.metrics.replayed()
		d.route(msg, s)
	}
	s.logger.Info("agent disconnected, %d post removes replayed", len(postRemoves))
	d.wg.Done()
}

// Publish 由应用主动发出的消息，和连接发来的消息一样扇出后回调Handler
func (d *Director) Publish(dests []Channel, sender Channel, msgType uint16, body []byte) error {
	raw, err := BuildMessage(dests, sender, msgType, body)
	if err != nil {
		return err
	}
	msg, err := ParseMessage(raw)
	if err != nil {
		return err
	}
	d.metrics.message("publish")
	if !d.publishHook {
		d.fanout(msg, nil)
		return nil
	}
	d.route(msg, nil)
	return nil
}

// Len 当前连接数
func (d *Director) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sessions.Size()
}

// Sessions 所有连接的快照，按建立时间排序
func (d *Director) Sessions() []SessionInfo {
	d.mu.RLock()
	r := make([]SessionInfo, 0, d.sessions.Size())
	d.sessions.ForEach(func(s *Session) {
		r = append(r, s.info())
	})
	d.mu.RUnlock()
	sort.Slice(r, func(i, j int) bool {
		if r[i].Created.Equal(r[j].Created) {
			return r[i].ID < r[j].ID
		}
		return r[i].Created.Before(r[j].Created)
	})
	return r
}

// Session 按id查找
func (d *Director) Session(id string) (SessionInfo, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var (
		info  SessionInfo
		found bool
	)
	d.sessions.ForEach(func(s *Session) {
		if s.id == id {
			info, found = s.info(), true
		}
	})
	return info, found
}

// Kick 断开指定连接，会正常执行post remove
func (d *Director) Kick(id string) bool {
	d.mu.RLock()
	var target *Session
	d.sessions.ForEach(func(s *Session) {
		if s.id == id {
			target = s
		}
	})
	d.mu.RUnlock()
	if target == nil {
		return false
	}
	target.logger.Info("kicked")
	target.conn.Destroy()
	return true
}

// Name 作为module.Module使用时的名字
func (d *Director) Name() string {
	return "director"
}

func (d *Director) OnInit() error {
	return nil
}

func (d *Director) Run(closeSig chan struct{}) {
	<-closeSig
}

// OnDestroy 放在所有gate之前加载，最后销毁
func (d *Director) OnDestroy() {
	d.Close()
}

// Close 断开所有连接并等待它们的清理完成，之后的新连接会被直接拒绝
func (d *Director) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	sessions := d.sessions.ToArray()
	d.mu.Unlock()

	for _, s := range sessions {
		s.conn.Close()
	}
	d.wg.Wait()
	d.logger.Info("director closed, %d sessions released", len(sessions))
}

// closedSession Director关闭后接入的连接
type closedSession struct{}

func (closedSession) Run()     {}
func (closedSession) OnClose() {}
