package ws

/**
  *  @author tryao
  *  @date 2022/03/22 11:33
**/
import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/network/tcp"
	"github.com/gorilla/websocket"
)

const (
	defaultPendingWriteNum = 100
)

// Conn websocket连接，消息格式和tcp一样带长度前缀，一个ws帧里可以有多条消息
type Conn struct {
	sync.Mutex
	conn           *websocket.Conn
	writeChan      chan []byte
	closeFlag      bool
	parser         tcp.IParser
	reader         io.Reader
	readTimeout    time.Duration
	remoteOriginIP net.Addr
	logger         log.Logger
}

func newWSConn(conn *websocket.Conn, parser tcp.IParser, pendingWriteNum int,
	readTimeout, writeTimeout time.Duration, logger log.Logger) *Conn {
	if pendingWriteNum <= 0 {
		pendingWriteNum = defaultPendingWriteNum
	}
	wsConn := &Conn{
		conn:        conn,
		writeChan:   make(chan []byte, pendingWriteNum),
		parser:      parser,
		readTimeout: readTimeout,
		logger:      logger,
	}
	go func() {
		for b := range wsConn.writeChan {
			if b == nil {
				break
			}
			if writeTimeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
				wsConn.logger.Debug("fail to write ws message to %v:%v", wsConn.RemoteAddr(), err)
				break
			}
		}

		_ = conn.Close()
		wsConn.Lock()
		wsConn.closeFlag = true
		wsConn.Unlock()
	}()

	return wsConn
}

func (wsConn *Conn) doDestroy() {
	if tc, ok := wsConn.conn.UnderlyingConn().(*net.TCPConn); ok {
		_ = tc.SetLinger(0)
	}
	_ = wsConn.conn.Close()

	if !wsConn.closeFlag {
		close(wsConn.writeChan)
		wsConn.closeFlag = true
	}
}

func (wsConn *Conn) Destroy() {
	wsConn.Lock()
	defer wsConn.Unlock()

	wsConn.doDestroy()
}

func (wsConn *Conn) Close() {
	wsConn.Lock()
	defer wsConn.Unlock()
	if wsConn.closeFlag {
		return
	}

	select {
	case wsConn.writeChan <- nil:
		wsConn.closeFlag = true
	default:
		wsConn.doDestroy()
	}
}

func (wsConn *Conn) LocalAddr() net.Addr {
	return wsConn.conn.LocalAddr()
}

func (wsConn *Conn) RemoteAddr() net.Addr {
	if wsConn.remoteOriginIP != nil {
		return wsConn.remoteOriginIP
	}
	return wsConn.conn.RemoteAddr()
}

// Read 把连续的ws帧当作字节流读取，goroutine not safe
func (wsConn *Conn) Read(b []byte) (int, error) {
	for {
		if wsConn.reader == nil {
			if wsConn.readTimeout > 0 {
				_ = wsConn.conn.SetReadDeadline(time.Now().Add(wsConn.readTimeout))
			}
			_, r, err := wsConn.conn.NextReader()
			if err != nil {
				return 0, err
			}
			wsConn.reader = r
		}
		n, err := wsConn.reader.Read(b)
		if err == io.EOF {
			wsConn.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// ReadMsg goroutine not safe
func (wsConn *Conn) ReadMsg() ([]byte, error) {
	return wsConn.parser.Read(wsConn)
}

// WriteMsg args must not be modified by the others goroutines
func (wsConn *Conn) WriteMsg(args ...[]byte) error {
	msg, err := wsConn.parser.Pack(args...)
	if err != nil {
		return err
	}

	wsConn.Lock()
	defer wsConn.Unlock()
	if wsConn.closeFlag {
		return tcp.ErrConnClosed
	}
	select {
	case wsConn.writeChan <- msg:
		return nil
	default:
		wsConn.logger.Warn("write queue of %v is full, destroy it", wsConn.RemoteAddr())
		wsConn.doDestroy()
		return tcp.ErrWriteQueueFull
	}
}
