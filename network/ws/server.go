package ws

import (
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/base/structs/set"
	"github.com/YiuTerran/go-director/network"
	"github.com/YiuTerran/go-director/network/tcp"
	"github.com/gorilla/websocket"
)

/**
  *  @author tryao
  *  @date 2022/03/22 11:32
**/

// Server 是websocket服务端
type Server struct {
	Addr            string
	MaxConnNum      int
	PendingWriteNum int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	// HTTPTimeout 握手以及读请求头的超时，默认10s
	HTTPTimeout time.Duration
	// CertFile, KeyFile 都设置时使用wss
	CertFile       string
	KeyFile        string
	NewSessionFunc func(*Conn) network.Session
	Parser         tcp.IParser
	Logger         log.Logger

	ln         net.Listener
	httpServer *http.Server
	handler    *handlerDTO
}

type handlerDTO struct {
	server     *Server
	upgrader   websocket.Upgrader
	conns      *set.Set[*websocket.Conn]
	mutexConns sync.Mutex
	wg         sync.WaitGroup
}

func getRealIP(req *http.Request) net.Addr {
	ip := req.Header.Get("X-FORWARDED-FOR")
	if ip == "" {
		ip = req.Header.Get("X-REAL-IP")
	}
	if ip != "" {
		ip = strings.Split(ip, ",")[0]
	} else {
		ip, _, _ = net.SplitHostPort(req.RemoteAddr)
	}
	q := net.ParseIP(strings.TrimSpace(ip))
	addr := &net.IPAddr{IP: q}
	return addr
}

func (handler *handlerDTO) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	server := handler.server
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	conn, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		server.Logger.Debug("upgrade error: %v", err)
		return
	}

	handler.wg.Add(1)
	defer handler.wg.Done()

	handler.mutexConns.Lock()
	if handler.conns == nil {
		handler.mutexConns.Unlock()
		_ = conn.Close()
		return
	}
	if server.MaxConnNum > 0 && handler.conns.Size() >= server.MaxConnNum {
		handler.mutexConns.Unlock()
		_ = conn.Close()
		server.Logger.Warn("too many websocket connections, reject %v", r.RemoteAddr)
		return
	}
	handler.conns.AddItem(conn)
	handler.mutexConns.Unlock()

	wsConn := newWSConn(conn, server.Parser, server.PendingWriteNum,
		server.ReadTimeout, server.WriteTimeout, server.Logger)
	wsConn.remoteOriginIP = getRealIP(r)
	session := server.NewSessionFunc(wsConn)
	session.Run()

	// cleanup
	session.OnClose()
	wsConn.Close()
	handler.mutexConns.Lock()
	if handler.conns != nil {
		handler.conns.RemoveItem(conn)
	}
	handler.mutexConns.Unlock()
}

// Start 监听成功后在后台处理请求
func (server *Server) Start() error {
	if server.NewSessionFunc == nil {
		return errors.New("NewSessionFunc must not be nil")
	}
	if server.Logger == nil {
		server.Logger = log.Nop()
	}
	if server.HTTPTimeout <= 0 {
		server.HTTPTimeout = 10 * time.Second
	}
	if server.Parser == nil {
		server.Parser = tcp.NewDefaultParser()
	}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}

	if (server.CertFile == "") != (server.KeyFile == "") {
		_ = ln.Close()
		return errors.New("cert file and key file must be set together")
	}
	if server.CertFile != "" {
		config := &tls.Config{}
		config.NextProtos = []string{"http/1.1"}

		config.Certificates = make([]tls.Certificate, 1)
		config.Certificates[0], err = tls.LoadX509KeyPair(server.CertFile, server.KeyFile)
		if err != nil {
			_ = ln.Close()
			return err
		}

		ln = tls.NewListener(ln, config)
	}

	server.ln = ln
	server.handler = &handlerDTO{
		server: server,
		conns:  set.NewSet[*websocket.Conn](),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: server.HTTPTimeout,
			CheckOrigin:      func(_ *http.Request) bool { return true },
		},
	}

	server.httpServer = &http.Server{
		Handler:           server.handler,
		ReadHeaderTimeout: server.HTTPTimeout,
		MaxHeaderBytes:    4096,
	}

	go func() {
		if err := server.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Logger.Error("websocket server stopped: %v", err)
		}
	}()
	return nil
}

// ListenAddr 实际监听的地址
func (server *Server) ListenAddr() net.Addr {
	return server.ln.Addr()
}

func (server *Server) Close() {
	if server.ln == nil {
		return
	}
	_ = server.ln.Close()

	server.handler.mutexConns.Lock()
	if server.handler.conns != nil {
		server.handler.conns.ForEach(func(conn *websocket.Conn) {
			_ = conn.Close()
		})
		server.handler.conns = nil
	}
	server.handler.mutexConns.Unlock()

	server.handler.wg.Wait()
}
