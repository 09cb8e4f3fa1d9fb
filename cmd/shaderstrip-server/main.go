// Package main runs the shaderstrip service.
//
// Host build drivers open a session per build, stream compiler invocations
// and finish the build to collect its report, over REST or, when enabled,
// gRPC. The service is the composition root for both strip APIs, the report
// sinks and the observability server.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/sigtrap/shaderstrip/internal/assets"
	"github.com/sigtrap/shaderstrip/internal/config"
	"github.com/sigtrap/shaderstrip/internal/database"
	"github.com/sigtrap/shaderstrip/internal/logger"
	"github.com/sigtrap/shaderstrip/internal/observability"
	"github.com/sigtrap/shaderstrip/internal/ruleengine"
	"github.com/sigtrap/shaderstrip/internal/sinks"
	"github.com/sigtrap/shaderstrip/internal/stripapi"
	"github.com/sigtrap/shaderstrip/internal/striprpc"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// -------------------------------------------------------------------------
	// 1. Configuration
	// -------------------------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(&cfg.App)
	slog.SetDefault(log)
	cfg.LogConfig(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	// -------------------------------------------------------------------------
	// 2. Rule chain definitions
	// -------------------------------------------------------------------------
	var resolver assets.Resolver
	if cfg.Strip.CatalogFile != "" {
		catalog, err := assets.LoadCatalog(cfg.Strip.CatalogFile)
		if err != nil {
			return err
		}
		log.Info("loaded shader catalog", slog.Int("shaders", catalog.Len()))
		resolver = catalog
	}

	def, err := ruleengine.LoadDefinitions(cfg.Strip.ChainFile)
	if err != nil {
		return err
	}
	buildOpts := ruleengine.BuildOptions{
		ProjectDir: cfg.Strip.ProjectDir,
		Resolver:   resolver,
		Logger:     log,
	}

	// Compile once up front so a bad chain file stops the server at boot
	// rather than failing every session.
	if _, err := ruleengine.Build(def, buildOpts); err != nil {
		return err
	}

	// -------------------------------------------------------------------------
	// 3. Infrastructure
	// -------------------------------------------------------------------------
	set, err := sinks.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer set.Close()

	if set.Pool != nil {
		go database.RunPoolMonitor(ctx, set.Pool, cfg.Observability.MonitorInterval)
	}

	sessions, err := stripapi.NewSessionCache(cfg.Strip.SessionCapacity, cfg.Strip.SessionTTL)
	if err != nil {
		return fmt.Errorf("failed to create session cache: %w", err)
	}
	defer sessions.Close()
	go sessions.RunMetricsCollector(ctx, cfg.Observability.MonitorInterval)

	obsServer := observability.NewServer(log, &cfg.Observability, set.Checkers...)
	obsServer.Start()

	// -------------------------------------------------------------------------
	// 4. Strip API
	// -------------------------------------------------------------------------
	skipAuth := cfg.Server.APIKeyHash == ""
	if skipAuth {
		log.Warn("API key authentication disabled, no key hash configured")
	}

	api := stripapi.NewAPIWithConfig(stripapi.Deps{
		Definitions:  def,
		Build:        buildOpts,
		Sessions:     sessions,
		Sinks:        set.Sinks,
		Reports:      set.Reports,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Logger:       log,
	}, cfg.Server.APIKeyHash, skipAuth)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.Router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}
	if cfg.Server.TLSEnabled {
		srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	errChan := make(chan error, 2)
	go func() {
		log.Info("strip API listening", slog.String("addr", srv.Addr), slog.Bool("tls", cfg.Server.TLSEnabled))

		var err error
		if cfg.Server.TLSEnabled {
			err = srv.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("strip API failed: %w", err)
		}
	}()

	// -------------------------------------------------------------------------
	// 5. Strip RPC (optional, same sessions and sinks)
	// -------------------------------------------------------------------------
	var grpcServer *grpc.Server
	if cfg.RPC.Enabled {
		// Bind first so a taken port fails the boot, not a background goroutine.
		lis, err := net.Listen("tcp", cfg.RPC.Addr())
		if err != nil {
			return fmt.Errorf("failed to bind rpc port %s: %w", cfg.RPC.Port, err)
		}

		grpcServer, err = striprpc.NewGRPCServer(log, &cfg.RPC, &cfg.Server)
		if err != nil {
			lis.Close()
			return err
		}
		striprpc.NewService(striprpc.Deps{
			Definitions: def,
			Build:       buildOpts,
			Sessions:    sessions,
			Sinks:       set.Sinks,
			Logger:      log,
		}).Register(grpcServer)

		go func() {
			log.Info("strip RPC listening", slog.String("addr", lis.Addr().String()), slog.Bool("tls", cfg.Server.TLSEnabled))
			if err := grpcServer.Serve(lis); err != nil {
				errChan <- fmt.Errorf("strip RPC failed: %w", err)
			}
		}()
	}

	// -------------------------------------------------------------------------
	// 6. Graceful shutdown
	// -------------------------------------------------------------------------
	var serveErr error
	select {
	case serveErr = <-errChan:
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("strip API shutdown failed", slog.String("error", err.Error()))
	}
	if grpcServer != nil {
		stopGRPC(shutdownCtx, grpcServer)
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("observability server shutdown failed", slog.String("error", err.Error()))
	}

	if serveErr != nil {
		return serveErr
	}
	log.Info("service exited successfully")
	return nil
}

// stopGRPC drains pending calls, forcing the stop once ctx expires.
// GracefulStop takes no deadline of its own.
func stopGRPC(ctx context.Context, s *grpc.Server) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.Stop()
		<-done
	}
}
