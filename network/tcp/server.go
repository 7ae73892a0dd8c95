package tcp

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/base/structs/set"
	"github.com/YiuTerran/go-director/base/structs/wg"
	"github.com/YiuTerran/go-director/network"
)

type Server struct {
	Addr            string
	MaxConnNum      int
	PendingWriteNum int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	NewSessionFunc  func(*Conn) network.Session
	Logger          log.Logger

	ln        net.Listener
	cons      *set.Set[net.Conn]
	mutexCons sync.Mutex
	wgLn      sync.WaitGroup
	wgCons    *wg.WaitGroup
	listen    func(network, address string) (net.Listener, error)

	// msg parser
	Parser IParser
}

// Start 监听成功后在后台accept
func (server *Server) Start() error {
	if err := server.init(); err != nil {
		return err
	}
	server.wgLn.Add(1)
	go server.run()
	return nil
}

func (server *Server) init() error {
	if server.NewSessionFunc == nil {
		return errors.New("NewSessionFunc must not be nil")
	}
	if server.Logger == nil {
		server.Logger = log.Nop()
	}
	if server.listen == nil {
		server.listen = net.Listen
	}
	ln, err := server.listen("tcp", server.Addr)
	if err != nil {
		return err
	}

	server.ln = ln
	server.cons = set.NewSet[net.Conn]()
	server.wgCons = wg.NewWaitGroup(server.Logger, "tcp server "+ln.Addr().String())

	// msg parser
	if server.Parser == nil {
		server.Parser = NewDefaultParser()
	}
	return nil
}

// ListenAddr 实际监听的地址，Addr使用0端口时有用
func (server *Server) ListenAddr() net.Addr {
	return server.ln.Addr()
}

func (server *Server) run() {
	defer server.wgLn.Done()

	var tempDelay time.Duration
	for {
		conn, err := server.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// EMFILE之类的错误过一会儿就能恢复，不能让accept循环退出
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if max := 1 * time.Second; tempDelay > max {
				tempDelay = max
			}
			server.Logger.Error("accept error: %v; retrying in %v", err, tempDelay)
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0

		server.mutexCons.Lock()
		if server.cons == nil {
			server.mutexCons.Unlock()
			_ = conn.Close()
			return
		}
		if server.MaxConnNum > 0 && server.cons.Size() >= server.MaxConnNum {
			server.mutexCons.Unlock()
			_ = conn.Close()
			server.Logger.Warn("too many tcp connections, reject %v", conn.RemoteAddr())
			continue
		}
		server.cons.AddItem(conn)
		server.mutexCons.Unlock()

		server.wgCons.Add(1)

		tcpConn := newConn(conn, server.Parser, connOptions{
			pendingWriteNum: server.PendingWriteNum,
			readTimeout:     server.ReadTimeout,
			writeTimeout:    server.WriteTimeout,
			logger:          server.Logger,
		})
		session := server.NewSessionFunc(tcpConn)
		go func() {
			session.Run()

			// cleanup，OnClose时连接还能写，之后才释放
			session.OnClose()
			tcpConn.Close()
			server.mutexCons.Lock()
			if server.cons != nil {
				server.cons.RemoveItem(conn)
			}
			server.mutexCons.Unlock()

			server.wgCons.Done()
		}()
	}
}

// Close 停止accept并关闭所有连接，等待所有session结束
func (server *Server) Close() {
	if server.ln == nil {
		return
	}
	_ = server.ln.Close()
	server.wgLn.Wait()

	server.mutexCons.Lock()
	if server.cons != nil {
		server.cons.ForEach(func(conn net.Conn) {
			_ = conn.Close()
		})
		server.cons = nil
	}
	server.mutexCons.Unlock()
	server.wgCons.Wait()
}
