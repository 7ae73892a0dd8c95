package admin

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/base/structs/errs"
	"github.com/YiuTerran/go-director/director"
	"github.com/YiuTerran/go-director/network/datagram"
	"github.com/YiuTerran/go-director/network/tcp"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type levelRecorder struct {
	level log.Level
}

func (l *levelRecorder) ChangeLogLevel(level log.Level) {
	l.level = level
}

// connectPipe 用net.Pipe接入一个agent，返回agent一侧的连接
func connectPipe(t *testing.T, d *director.Director) net.Conn {
	server, client := net.Pipe()
	s := d.NewSession(tcp.NewConn(server, nil, 16, nil))
	go func() {
		s.Run()
		s.OnClose()
	}()
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func sendName(t *testing.T, conn net.Conn, name string) {
	payload, err := director.BuildControl(director.ControlSetConName, 0, func(dg *datagram.Datagram) error {
		return dg.AddString(name)
	})
	require.NoError(t, err)
	packed, err := tcp.NewDefaultParser().Pack(payload)
	require.NoError(t, err)
	_, err = conn.Write(packed)
	require.NoError(t, err)
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestConnections(t *testing.T) {
	reg := prometheus.NewRegistry()
	d := director.New(director.WithMetrics(director.NewMetrics(reg)))
	router := InitRouter(d, log.Nop(), reg, nil)

	conn := connectPipe(t, d)
	sendName(t, conn, "state-server")
	require.Eventually(t, func() bool {
		infos := d.Sessions()
		return len(infos) == 1 && infos[0].Name == "state-server"
	}, 2*time.Second, 10*time.Millisecond)

	w := do(router, http.MethodGet, "/connections", "")
	require.Equal(t, http.StatusOK, w.Code)
	var infos []director.SessionInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "state-server", infos[0].Name)

	w = do(router, http.MethodGet, "/connections/"+infos[0].ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"connections":1`)

	w = do(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "director_session_connections 1")

	w = do(router, http.MethodDelete, "/connections/"+infos[0].ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	require.Eventually(t, func() bool { return d.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	w = do(router, http.MethodGet, "/connections/"+infos[0].ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(router, http.MethodDelete, "/connections/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChangeLogLevel(t *testing.T) {
	d := director.New()
	levels := &levelRecorder{}
	router := InitRouter(d, log.Nop(), nil, levels)

	w := do(router, http.MethodPut, "/log/level", `{"level":"warn"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, log.LevelWarn, levels.level)

	w = do(router, http.MethodPut, "/log/level", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	router = InitRouter(d, log.Nop(), nil, nil)
	w = do(router, http.MethodPut, "/log/level", `{"level":"warn"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestServerModule(t *testing.T) {
	s := &Server{Addr: "127.0.0.1:0", Director: director.New()}
	require.NoError(t, s.OnInit())
	defer s.OnDestroy()
	resp, err := http.Get("http://" + s.ListenAddr().String() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerTracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	s := &Server{Addr: "127.0.0.1:0", Director: director.New(), Tracer: tp}
	require.NoError(t, s.OnInit())
	defer s.OnDestroy()
	resp, err := http.Get("http://" + s.ListenAddr().String() + "/connections")
	require.NoError(t, err)
	resp.Body.Close()

	// span在handler返回后才结束
	require.Eventually(t, func() bool {
		return len(sr.Ended()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "/connections", sr.Ended()[0].Name())
}

func TestRecoveryHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AccessLogHandler(log.Nop()), RecoveryHandler(log.Nop()))
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})
	router.GET("/gone", func(c *gin.Context) {
		panic(fmt.Errorf("write: %w", syscall.EPIPE))
	})

	w := do(router, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var e errs.Error
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, errs.UnknownError, e.Status)

	w = do(router, http.MethodGet, "/gone", "")
	assert.Empty(t, w.Body.String())
}
