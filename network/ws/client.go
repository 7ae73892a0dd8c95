package ws

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/network/tcp"
	"github.com/gorilla/websocket"
)

// Dialer 建立单条websocket连接，不负责重连
type Dialer struct {
	HandshakeTimeout time.Duration
	// TLSClientConfig wss时使用，nil为默认配置
	TLSClientConfig *tls.Config
	PendingWriteNum  int
	Parser           tcp.IParser
	Logger           log.Logger
}

func (d *Dialer) DialContext(ctx context.Context, url string) (*Conn, error) {
	if d.HandshakeTimeout <= 0 {
		d.HandshakeTimeout = 10 * time.Second
	}
	if d.Parser == nil {
		d.Parser = tcp.NewDefaultParser()
	}
	if d.Logger == nil {
		d.Logger = log.Nop()
	}
	dialer := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout, TLSClientConfig: d.TLSClientConfig}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return newWSConn(conn, d.Parser, d.PendingWriteNum, 0, 0, d.Logger), nil
}
