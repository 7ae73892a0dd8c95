package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/base/structs/set"
	"github.com/YiuTerran/go-director/director"
	"github.com/YiuTerran/go-director/network"
	"github.com/YiuTerran/go-director/network/datagram"
	"github.com/YiuTerran/go-director/network/tcp"
)

/**  连接director的客户端，断线重连后自动恢复订阅和post remove
  *  @author tryao
  *  @date 2022/09/08 10:12
**/

var ErrNotConnected = errors.New("agent not connected")

// Handler 收到路由过来的消息
type Handler func(msg *director.Message)

// Agent 所有方法goroutine safe
type Agent struct {
	client  *tcp.Client
	handler Handler
	logger  log.Logger

	mu          sync.Mutex
	conn        *tcp.Conn
	readyCh     chan struct{}
	channels    *set.Set[director.Channel]
	postRemoves [][]byte
	name        string
	url         string
}

type Option func(*Agent, *[]tcp.Option)

func WithHandler(h Handler) Option {
	return func(a *Agent, _ *[]tcp.Option) {
		a.handler = h
	}
}

func WithLogger(l log.Logger) Option {
	return func(a *Agent, opts *[]tcp.Option) {
		a.logger = l
		*opts = append(*opts, tcp.Logger(l))
	}
}

// WithName 连接后自动设置的名字
func WithName(name string) Option {
	return func(a *Agent, _ *[]tcp.Option) {
		a.name = name
	}
}

func WithURL(url string) Option {
	return func(a *Agent, _ *[]tcp.Option) {
		a.url = url
	}
}

// WithReconnectInterval 断线重连的间隔
func WithReconnectInterval(d time.Duration) Option {
	return func(_ *Agent, opts *[]tcp.Option) {
		*opts = append(*opts, tcp.ConnectInterval(d))
	}
}

func WithPendingWriteNum(n int) Option {
	return func(_ *Agent, opts *[]tcp.Option) {
		*opts = append(*opts, tcp.PendingWriteNum(n))
	}
}

func New(addr string, opts ...Option) *Agent {
	a := &Agent{
		logger:   log.Nop(),
		readyCh:  make(chan struct{}),
		channels: set.NewSet[director.Channel](),
	}
	var clientOpts []tcp.Option
	for _, opt := range opts {
		opt(a, &clientOpts)
	}
	a.client = tcp.NewClient(addr, func(conn *tcp.Conn) network.Session {
		return &session{agent: a, conn: conn}
	}, clientOpts...)
	return a
}

// Start 在后台连接，不等待连接成功
func (a *Agent) Start() error {
	return a.client.Start()
}

// Close 断开并停止重连
func (a *Agent) Close() {
	a.client.Close()
}

// WaitReady 等待连接建立并且状态已经同步
func (a *Agent) WaitReady(ctx context.Context) error {
	for {
		a.mu.Lock()
		if a.conn != nil {
			a.mu.Unlock()
			return nil
		}
		ch := a.readyCh
		a.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (a *Agent) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn != nil
}

// Channels 当前订阅的channel
func (a *Agent) Channels() []director.Channel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.channels.ToArray()
}

// SetChannel 订阅，未连接时只记录，连接后自动发送
func (a *Agent) SetChannel(ch director.Channel) error {
	return a.update(director.ControlSetChannel, func(dg *datagram.Datagram) error {
		dg.AddChannel(ch)
		return nil
	}, func() {
		a.channels.AddItem(ch)
	})
}

func (a *Agent) RemoveChannel(ch director.Channel) error {
	return a.update(director.ControlRemoveChannel, func(dg *datagram.Datagram) error {
		dg.AddChannel(ch)
		return nil
	}, func() {
		a.channels.RemoveItem(ch)
	})
}

// AddPostRemove 断开时由director代为发出的消息
func (a *Agent) AddPostRemove(dests []director.Channel, sender director.Channel, msgType uint16, body []byte) error {
	raw, err := director.BuildMessage(dests, sender, msgType, body)
	if err != nil {
		return err
	}
	return a.update(director.ControlAddPostRemove, func(dg *datagram.Datagram) error {
		return dg.AddBlob(raw)
	}, func() {
		a.postRemoves = append(a.postRemoves, raw)
	})
}

func (a *Agent) ClearPostRemoves() error {
	return a.update(director.ControlClearPostRemoves, nil, func() {
		a.postRemoves = nil
	})
}

func (a *Agent) SetName(name string) error {
	return a.update(director.ControlSetConName, func(dg *datagram.Datagram) error {
		return dg.AddString(name)
	}, func() {
		a.name = name
	})
}

func (a *Agent) SetURL(url string) error {
	return a.update(director.ControlSetConURL, func(dg *datagram.Datagram) error {
		return dg.AddString(url)
	}, func() {
		a.url = url
	})
}

// Send 发布消息，未连接时返回ErrNotConnected
func (a *Agent) Send(dests []director.Channel, sender director.Channel, msgType uint16, body []byte) error {
	raw, err := director.BuildMessage(dests, sender, msgType, body)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return ErrNotConnected
	}
	return a.conn.WriteMsg(raw)
}

// update 先编码，成功后修改本地状态，已连接时同步发出
func (a *Agent) update(code uint16, fill func(dg *datagram.Datagram) error, apply func()) error {
	raw, err := director.BuildControl(code, 0, fill)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	apply()
	if a.conn == nil {
		return nil
	}
	return a.conn.WriteMsg(raw)
}

// snapshot 重连后需要重新发送的控制消息，调用方持有锁
func (a *Agent) snapshot() ([][]byte, error) {
	var msgs [][]byte
	add := func(code uint16, fill func(dg *datagram.Datagram) error) error {
		raw, err := director.BuildControl(code, 0, fill)
		if err != nil {
			return err
		}
		msgs = append(msgs, raw)
		return nil
	}
	if a.name != "" {
		if err := add(director.ControlSetConName, func(dg *datagram.Datagram) error {
			return dg.AddString(a.name)
		}); err != nil {
			return nil, err
		}
	}
	if a.url != "" {
		if err := add(director.ControlSetConURL, func(dg *datagram.Datagram) error {
			return dg.AddString(a.url)
		}); err != nil {
			return nil, err
		}
	}
	for _, ch := range a.channels.ToArray() {
		ch := ch
		if err := add(director.ControlSetChannel, func(dg *datagram.Datagram) error {
			dg.AddChannel(ch)
			return nil
		}); err != nil {
			return nil, err
		}
	}
	for _, raw := range a.postRemoves {
		raw := raw
		if err := add(director.ControlAddPostRemove, func(dg *datagram.Datagram) error {
			return dg.AddBlob(raw)
		}); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}

func (a *Agent) attach(conn *tcp.Conn) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	msgs, err := a.snapshot()
	if err != nil {
		return err
	}
	for _, raw := range msgs {
		if err := conn.WriteMsg(raw); err != nil {
			return err
		}
	}
	a.conn = conn
	close(a.readyCh)
	return nil
}

func (a *Agent) detach(conn *tcp.Conn) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != conn {
		return
	}
	a.conn = nil
	a.readyCh = make(chan struct{})
}

type session struct {
	agent *Agent
	conn  *tcp.Conn
}

func (s *session) Run() {
	a := s.agent
	if err := a.attach(s.conn); err != nil {
		a.logger.Error("fail to restore state on %v: %v", s.conn.RemoteAddr(), err)
		return
	}
	a.logger.Info("connected to director %v", s.conn.RemoteAddr())
	for {
		payload, err := s.conn.ReadMsg()
		if err != nil {
			a.logger.Info("disconnected from director: %v", err)
			return
		}
		msg, err := director.ParseMessage(payload)
		if err != nil {
			a.logger.Warn("drop malformed message: %v", err)
			continue
		}
		if a.handler != nil {
			a.handler(msg)
		}
	}
}

func (s *session) OnClose() {
	s.agent.detach(s.conn)
}
