package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/YiuTerran/go-director/admin"
	"github.com/YiuTerran/go-director/apm"
	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/config"
	"github.com/YiuTerran/go-director/director"
	"github.com/YiuTerran/go-director/module"
	"github.com/YiuTerran/go-director/module/server"
	"github.com/YiuTerran/go-director/network"
	"github.com/YiuTerran/go-director/network/gate"
	"github.com/prometheus/client_golang/prometheus"
)

// version 编译时通过-ldflags "-X main.version=..."注入
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, config.ErrHelp) {
			fmt.Fprintln(os.Stderr, "Usage: director [flags]")
			config.NewFlagSet("director").PrintDefaults()
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	conf, sv, err := config.Load("director", args)
	if err != nil {
		return err
	}
	logger, err := conf.BuildLogger()
	if err != nil {
		return err
	}
	defer logger.Close()
	sv.Watch(logger.With(log.Fields{}.WithPrefix("config")), func(c *config.Config) {
		logger.ChangeLogLevel(log.ParseLevel(c.Log.Level))
		logger.Info("log level changed to %s", c.Log.Level)
	})

	metrics := director.NewMetrics(prometheus.DefaultRegisterer)
	d := director.New(
		director.WithLogger(logger.With(log.Fields{}.WithPrefix("director"))),
		director.WithMetrics(metrics),
		director.WithMaxBuffered(conf.Director.MaxBuffered),
		director.WithHandler(director.HandlerFunc(func(dests []director.Channel, sender director.Channel, msgType uint16, body []byte) {
			logger.Debug("routed type %d from %d to %v, %d bytes", msgType, sender, dests, len(body))
		})),
	)
	newSession := func(conn network.Conn) network.Session {
		return d.NewSession(conn)
	}

	// director最先加载，最后销毁
	mods := []module.Module{d}
	if conf.Director.Listen != "" {
		mods = append(mods, &gate.TcpGate{
			Addr:            conf.Director.Listen,
			MaxConnNum:      conf.Director.MaxConn,
			PendingWriteNum: conf.Director.PendingWrite,
			ReadTimeout:     conf.Director.ReadTimeout,
			WriteTimeout:    conf.Director.WriteTimeout,
			NewSessionFunc:  newSession,
			Logger:          logger.With(log.Fields{}.WithPrefix("tcp")),
		})
	}
	if conf.Director.WsListen != "" {
		mods = append(mods, &gate.WsGate{
			Addr:            conf.Director.WsListen,
			MaxConnNum:      conf.Director.MaxConn,
			PendingWriteNum: conf.Director.PendingWrite,
			ReadTimeout:     conf.Director.ReadTimeout,
			WriteTimeout:    conf.Director.WriteTimeout,
			HTTPTimeout:     conf.Director.WsHTTPTimeout,
			CertFile:        conf.Director.WsCertFile,
			KeyFile:         conf.Director.WsKeyFile,
			NewSessionFunc:  newSession,
			Logger:          logger.With(log.Fields{}.WithPrefix("ws")),
		})
	}
	if conf.Admin.Listen != "" {
		adminServer := &admin.Server{
			Addr:     conf.Admin.Listen,
			Director: d,
			Gatherer: prometheus.DefaultGatherer,
			Levels:   logger,
			Logger:   logger.With(log.Fields{}.WithPrefix("admin")),
		}
		if conf.Apm.Enable {
			tp, err := apm.InitProvider(conf.TraceParam("director", version), logger)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(ctx)
			}()
			adminServer.Tracer = tp
		}
		mods = append(mods, adminServer)
	}
	return server.StaticRun(mods, logger, nil)
}
