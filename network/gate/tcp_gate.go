package gate

import (
	"errors"
	"net"
	"time"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/network"
	"github.com/YiuTerran/go-director/network/tcp"
)

// TcpGate 一个封装后的TCP服务，实现module.Module
type TcpGate struct {
	//监听地址
	Addr string
	//最大连接数
	MaxConnNum int
	//每个连接的写队列长度
	PendingWriteNum int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	//二进制分包
	BinaryParser tcp.IParser
	//每个连接创建一个session
	NewSessionFunc func(network.Conn) network.Session
	Logger         log.Logger

	server *tcp.Server
}

func (gate *TcpGate) Name() string {
	return "tcp-gate"
}

func (gate *TcpGate) OnInit() error {
	if gate.Addr == "" {
		return errors.New("tcp server addr not set")
	}
	if gate.NewSessionFunc == nil {
		return errors.New("NewSessionFunc must not be nil")
	}
	if gate.Logger == nil {
		gate.Logger = log.Nop()
	}
	gate.server = &tcp.Server{
		Addr:            gate.Addr,
		MaxConnNum:      gate.MaxConnNum,
		PendingWriteNum: gate.PendingWriteNum,
		ReadTimeout:     gate.ReadTimeout,
		WriteTimeout:    gate.WriteTimeout,
		Parser:          gate.BinaryParser,
		Logger:          gate.Logger,
		NewSessionFunc: func(conn *tcp.Conn) network.Session {
			return gate.NewSessionFunc(conn)
		},
	}
	if err := gate.server.Start(); err != nil {
		return err
	}
	gate.Logger.Info("tcp gate listening on %v", gate.server.ListenAddr())
	return nil
}

// ListenAddr OnInit之后才有效
func (gate *TcpGate) ListenAddr() net.Addr {
	return gate.server.ListenAddr()
}

func (gate *TcpGate) Run(closeSig chan struct{}) {
	<-closeSig
}

func (gate *TcpGate) OnDestroy() {
	if gate.server != nil {
		gate.server.Close()
	}
}
