package network

import (
	"net"
)

// Session 每个连接在独立的协程里处理消息
type Session interface {
	// Run 阻塞通信循环，返回即表示连接结束
	Run()
	// OnClose 关闭连接回调，在底层连接释放之前调用
	OnClose()
}

// Conn 对于网络连接的抽象
type Conn interface {
	// Read 读取原始字节流
	Read(b []byte) (int, error)
	// ReadMsg 读取一条完整消息
	ReadMsg() ([]byte, error)
	// WriteMsg 非阻塞写入，多段数据合成一条消息
	WriteMsg(args ...[]byte) error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	// Close 写完队列中的数据后关闭
	Close()
	// Destroy 立即关闭
	Destroy()
}
