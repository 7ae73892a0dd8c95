package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/YiuTerran/go-director/apm"
	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/director"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Server 管理接口，实现module.Module
type Server struct {
	Addr     string
	Director *director.Director
	Gatherer prometheus.Gatherer
	Levels   LevelSwitcher
	Logger   log.Logger
	// Tracer 不为nil时给每个请求加上trace
	Tracer trace.TracerProvider

	ln         net.Listener
	httpServer *http.Server
}

func (s *Server) Name() string {
	return "admin"
}

func (s *Server) OnInit() error {
	if s.Director == nil {
		return errors.New("admin server needs a director")
	}
	if s.Logger == nil {
		s.Logger = log.Nop()
	}
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	var extra []gin.HandlerFunc
	if s.Tracer != nil {
		extra = append(extra, apm.GinTracer(s.Name(), s.Tracer))
	}
	router := InitRouter(s.Director, s.Logger, s.Gatherer, s.Levels, extra...)
	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("admin server stopped: %v", err)
		}
	}()
	s.Logger.Info("admin listening on %v", ln.Addr())
	return nil
}

// ListenAddr OnInit之后才有效
func (s *Server) ListenAddr() net.Addr {
	return s.ln.Addr()
}

func (s *Server) Run(closeSig chan struct{}) {
	<-closeSig
}

func (s *Server) OnDestroy() {
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Logger.Warn("admin shutdown: %v", err)
	}
}
