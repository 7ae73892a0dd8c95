package gate

import (
	"errors"
	"net"
	"time"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/network"
	"github.com/YiuTerran/go-director/network/tcp"
	"github.com/YiuTerran/go-director/network/ws"
)

/**
  *  @author tryao
  *  @date 2022/03/22 14:27
**/

// WsGate websocket的服务端封装，用来实现Module
type WsGate struct {
	Addr            string
	MaxConnNum      int
	PendingWriteNum int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	HTTPTimeout     time.Duration
	CertFile        string
	KeyFile         string
	BinaryParser    tcp.IParser
	NewSessionFunc  func(network.Conn) network.Session
	Logger          log.Logger

	server *ws.Server
}

func (gate *WsGate) Name() string {
	return "ws-gate"
}

func (gate *WsGate) OnInit() error {
	if gate.Addr == "" {
		return errors.New("websocket server addr not set")
	}
	if gate.NewSessionFunc == nil {
		return errors.New("NewSessionFunc must not be nil")
	}
	if gate.Logger == nil {
		gate.Logger = log.Nop()
	}
	gate.server = &ws.Server{
		Addr:            gate.Addr,
		MaxConnNum:      gate.MaxConnNum,
		PendingWriteNum: gate.PendingWriteNum,
		ReadTimeout:     gate.ReadTimeout,
		WriteTimeout:    gate.WriteTimeout,
		HTTPTimeout:     gate.HTTPTimeout,
		CertFile:        gate.CertFile,
		KeyFile:         gate.KeyFile,
		Parser:          gate.BinaryParser,
		Logger:          gate.Logger,
		NewSessionFunc: func(conn *ws.Conn) network.Session {
			return gate.NewSessionFunc(conn)
		},
	}
	if err := gate.server.Start(); err != nil {
		return err
	}
	gate.Logger.Info("websocket gate listening on %v", gate.server.ListenAddr())
	return nil
}

// ListenAddr OnInit之后才有效
func (gate *WsGate) ListenAddr() net.Addr {
	return gate.server.ListenAddr()
}

func (gate *WsGate) Run(closeSig chan struct{}) {
	<-closeSig
}

func (gate *WsGate) OnDestroy() {
	if gate.server != nil {
		gate.server.Close()
	}
}
