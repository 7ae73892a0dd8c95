package tcp

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/base/structs/set"
	"github.com/YiuTerran/go-director/network"
	"go.uber.org/atomic"
)

// Client 断线自动重连的客户端
type Client struct {
	sync.Mutex
	Addr            string
	ConnNum         int
	ConnectInterval time.Duration
	DialTimeout     time.Duration
	AutoReconnect   bool
	PendingWriteNum int
	NewAgentFunc    func(*Conn) network.Session
	Parser          IParser
	Logger          log.Logger

	cons      *set.Set[net.Conn]
	wg        sync.WaitGroup
	closeFlag atomic.Bool
}

type Option func(*Client)

func NewClient(addr string, newAgentFunc func(*Conn) network.Session, options ...Option) *Client {
	c := &Client{
		Addr:            addr,
		ConnNum:         1,
		ConnectInterval: 3 * time.Second,
		DialTimeout:     5 * time.Second,
		AutoReconnect:   true,
		Parser:          NewDefaultParser(),
		NewAgentFunc:    newAgentFunc,
		Logger:          log.Nop(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func ConnNum(num int) Option {
	return func(client *Client) {
		client.ConnNum = num
	}
}

func ConnectInterval(dr time.Duration) Option {
	return func(client *Client) {
		client.ConnectInterval = dr
	}
}

func AutoReconnect(enable bool) Option {
	return func(client *Client) {
		client.AutoReconnect = enable
	}
}

func PendingWriteNum(num int) Option {
	return func(client *Client) {
		client.PendingWriteNum = num
	}
}

func Parser(p IParser) Option {
	return func(client *Client) {
		client.Parser = p
	}
}

func Logger(l log.Logger) Option {
	return func(client *Client) {
		client.Logger = l
	}
}

func (client *Client) Start() error {
	if err := client.init(); err != nil {
		return err
	}

	for i := 0; i < client.ConnNum; i++ {
		client.wg.Add(1)
		go client.connect()
	}
	return nil
}

func (client *Client) init() error {
	client.Lock()
	defer client.Unlock()

	if client.Logger == nil {
		client.Logger = log.Nop()
	}
	if client.ConnNum <= 0 {
		client.ConnNum = 1
		client.Logger.Debug("invalid ConnNum, reset to %v", client.ConnNum)
	}
	if client.ConnectInterval <= 0 {
		client.ConnectInterval = 3 * time.Second
		client.Logger.Debug("invalid ConnectInterval, reset to %v", client.ConnectInterval)
	}
	if client.NewAgentFunc == nil {
		return errors.New("NewAgentFunc must not be nil")
	}
	if client.cons != nil {
		return errors.New("client is running")
	}

	client.cons = set.NewSet[net.Conn]()
	client.closeFlag.Store(false)

	if client.Parser == nil {
		// msg parser
		client.Parser = NewDefaultParser()
	}
	return nil
}

func (client *Client) dial() net.Conn {
	for {
		conn, err := net.DialTimeout("tcp", client.Addr, client.DialTimeout)
		if err == nil || client.closeFlag.Load() {
			return conn
		}

		client.Logger.Warn("connect to %v error: %v", client.Addr, err)
		time.Sleep(client.ConnectInterval)
	}
}

func (client *Client) connect() {
	defer client.wg.Done()

reconnect:
	conn := client.dial()
	if conn == nil {
		return
	}

	client.Lock()
	if client.closeFlag.Load() {
		client.Unlock()
		_ = conn.Close()
		return
	}
	client.cons.AddItem(conn)
	client.Unlock()

	tcpConn := newConn(conn, client.Parser, connOptions{
		pendingWriteNum: client.PendingWriteNum,
		logger:          client.Logger,
	})
	agent := client.NewAgentFunc(tcpConn)
	agent.Run()

	// cleanup
	agent.OnClose()
	tcpConn.Close()
	client.Lock()
	if client.cons != nil {
		client.cons.RemoveItem(conn)
	}
	client.Unlock()

	if client.AutoReconnect && !client.closeFlag.Load() {
		time.Sleep(client.ConnectInterval)
		if !client.closeFlag.Load() {
			goto reconnect
		}
	}
}

// Close 关闭所有连接并等待重连协程退出
func (client *Client) Close() {
	client.Lock()
	client.closeFlag.Store(true)
	if client.cons != nil {
		client.cons.ForEach(func(conn net.Conn) {
			_ = conn.Close()
		})
		client.cons = nil
	}
	client.Unlock()

	client.wg.Wait()
}
