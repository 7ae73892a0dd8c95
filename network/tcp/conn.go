package tcp

import (
	"net"
	"sync"
	"time"

	"github.com/YiuTerran/go-director/base/log"
)

const defaultPendingWriteNum = 100

// Conn 带写队列的tcp连接，写队列满时直接销毁连接
type Conn struct {
	sync.Mutex
	conn         net.Conn
	writeChan    chan []byte
	closeFlag    bool
	parser       IParser
	readTimeout  time.Duration
	writeTimeout time.Duration
	logger       log.Logger
}

type connOptions struct {
	pendingWriteNum int
	readTimeout     time.Duration
	writeTimeout    time.Duration
	logger          log.Logger
}

func newConn(conn net.Conn, parser IParser, opt connOptions) *Conn {
	if opt.pendingWriteNum <= 0 {
		opt.pendingWriteNum = defaultPendingWriteNum
	}
	if opt.logger == nil {
		opt.logger = log.Nop()
	}
	tcpConn := &Conn{
		conn:         conn,
		writeChan:    make(chan []byte, opt.pendingWriteNum),
		parser:       parser,
		readTimeout:  opt.readTimeout,
		writeTimeout: opt.writeTimeout,
		logger:       opt.logger,
	}

	go func() {
		for b := range tcpConn.writeChan {
			if b == nil {
				break
			}
			if tcpConn.writeTimeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(tcpConn.writeTimeout))
			}
			// net.Conn.Write 会一直写到全部完成或者出错
			_, err := conn.Write(b)
			if err != nil {
				tcpConn.logger.Debug("fail to write to %v:%v", conn.RemoteAddr(), err)
				break
			}
		}

		_ = conn.Close()
		tcpConn.Lock()
		tcpConn.closeFlag = true
		tcpConn.Unlock()
	}()

	return tcpConn
}

// NewConn 包装一个已经建立的连接，一般用于测试或者自定义的listener
func NewConn(conn net.Conn, parser IParser, pendingWriteNum int, logger log.Logger) *Conn {
	if parser == nil {
		parser = NewDefaultParser()
	}
	return newConn(conn, parser, connOptions{pendingWriteNum: pendingWriteNum, logger: logger})
}

func (c *Conn) doDestroy() {
	if tc, ok := c.conn.(*net.TCPConn); ok {
		_ = tc.SetLinger(0)
	}
	_ = c.conn.Close()

	if !c.closeFlag {
		close(c.writeChan)
		c.closeFlag = true
	}
}

// Destroy 丢弃没发完的数据，立即关闭
func (c *Conn) Destroy() {
	c.Lock()
	defer c.Unlock()

	c.doDestroy()
}

// Close 等队列里的数据写完再关闭
func (c *Conn) Close() {
	c.Lock()
	defer c.Unlock()
	if c.closeFlag {
		return
	}

	select {
	case c.writeChan <- nil:
		c.closeFlag = true
	default:
		c.doDestroy()
	}
}

// Write b must not be modified by the others goroutines
// 不会阻塞，队列满了会销毁连接并返回ErrWriteQueueFull
func (c *Conn) Write(b []byte) error {
	c.Lock()
	defer c.Unlock()
	if c.closeFlag {
		return ErrConnClosed
	}
	if b == nil {
		return nil
	}

	select {
	case c.writeChan <- b:
		return nil
	default:
		c.logger.Warn("write queue of %v is full, destroy it", c.conn.RemoteAddr())
		c.doDestroy()
		return ErrWriteQueueFull
	}
}

func (c *Conn) Read(b []byte) (int, error) {
	if c.readTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	return c.conn.Read(b)
}

func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Conn) ReadMsg() ([]byte, error) {
	return c.parser.Read(c)
}

// WriteMsg 多段数据作为一条消息写入
func (c *Conn) WriteMsg(args ...[]byte) error {
	b, err := c.parser.Pack(args...)
	if err != nil {
		return err
	}
	return c.Write(b)
}
