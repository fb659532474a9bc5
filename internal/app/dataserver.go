package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/dashsync/internal/config"
	"github.com/MrSnakeDoc/dashsync/internal/docstore"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dashsync/internal/httpserver/routes"
	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/redis"
	"github.com/MrSnakeDoc/dashsync/internal/utils"
	"github.com/MrSnakeDoc/dashsync/internal/version"
)

// DataServer is the self-hosted sync target: one JSON document over HTTP.
type DataServer struct {
	cfg    *config.DataServerConfig
	logger logger.Logger
	server *httpserver.Server
	docs   docstore.Store
}

func NewDataServer() *DataServer {
	cfg := config.LoadDataServer()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	docs, err := docstore.Open(cfg.DocumentDSN, redis.Dialer(cfg.Redis.ConnectOptions(), loggerClient), loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open document store: %v", err)
		os.Exit(1)
	}

	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		CORSOrigins:    cfg.CORSOrigins,
		Documents:      docs,
		PostBurst:      cfg.PostBurst,
		PostRefillPerM: cfg.PostRefillPerMin,
	}

	server := httpserver.New(httpserver.Options{Addr: cfg.ListenPort}, routes.DataServer, loggerClient, d)

	return &DataServer{cfg: cfg, logger: loggerClient, server: server, docs: docs}
}

func (s *DataServer) Run() error {
	s.logger.Infof("🚀 Starting dashsync data server v%s on %s", version.Version, s.cfg.ListenPort)
	s.logger.Infof("dataserver %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if file, ok := s.docs.(*docstore.File); ok {
		s.logger.Info("data file", logger.String("path", file.Path()))
		if s.cfg.Watch {
			go func() {
				if err := file.Watch(ctx); err != nil {
					s.logger.Warn("data file watch stopped", logger.Error(err))
				}
			}()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.server.Stop(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to stop server: %w", err))
	}
	stop()
	utils.MustClose(s.logger, "document store", s.docs)

	if runErr != nil {
		return runErr
	}
	s.logger.Info("✅ data server stopped cleanly")
	return nil
}
