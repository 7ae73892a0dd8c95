package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/director"
	"github.com/YiuTerran/go-director/module"
	"github.com/YiuTerran/go-director/network"
	"github.com/YiuTerran/go-director/network/gate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDirector(t *testing.T) {
	d := director.New()
	g := &gate.TcpGate{
		Addr:           "127.0.0.1:0",
		NewSessionFunc: func(conn network.Conn) network.Session { return d.NewSession(conn) },
	}
	started := &startedMod{ch: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, []module.Module{d, g, started}, log.Nop(), nil)
	}()

	select {
	case <-started.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("modules not started")
	}
	conn, err := net.Dial("tcp", g.ListenAddr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return d.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, 0, d.Len())
}

// startedMod 前面的模块都初始化完成后通知
type startedMod struct {
	ch chan struct{}
}

func (m *startedMod) Name() string { return "started" }

func (m *startedMod) OnInit() error {
	close(m.ch)
	return nil
}

func (m *startedMod) OnDestroy() {}

func (m *startedMod) Run(closeSig chan struct{}) { <-closeSig }
