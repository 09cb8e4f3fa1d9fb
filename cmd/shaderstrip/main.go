// Package main runs one build's shader stripping as a batch job.
//
// It reads a manifest of compiler invocations, runs each through the rule
// chain, writes the surviving variants and hands the report to the sinks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sigtrap/shaderstrip/internal/assets"
	"github.com/sigtrap/shaderstrip/internal/config"
	"github.com/sigtrap/shaderstrip/internal/logger"
	"github.com/sigtrap/shaderstrip/internal/observability"
	"github.com/sigtrap/shaderstrip/internal/report"
	"github.com/sigtrap/shaderstrip/internal/ruleengine"
	"github.com/sigtrap/shaderstrip/internal/session"
	"github.com/sigtrap/shaderstrip/internal/sinks"
)

func main() {
	if err := run(); err != nil {
		slog.Error("shader stripping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(&cfg.App)
	slog.SetDefault(log)
	cfg.LogConfig(log)

	if cfg.Strip.ManifestFile == "" {
		return fmt.Errorf("a manifest file is required (SHADERSTRIP_STRIP_MANIFEST_FILE)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	// -------------------------------------------------------------------------
	// 1. Rule chain
	// -------------------------------------------------------------------------
	resolver, err := loadResolver(cfg.Strip.CatalogFile, log)
	if err != nil {
		return err
	}

	def, err := ruleengine.LoadDefinitions(cfg.Strip.ChainFile)
	if err != nil {
		return err
	}

	chain, err := ruleengine.Build(def, ruleengine.BuildOptions{
		ProjectDir: cfg.Strip.ProjectDir,
		Resolver:   resolver,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	// -------------------------------------------------------------------------
	// 2. Sinks
	// -------------------------------------------------------------------------
	set, err := sinks.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer set.Close()

	// -------------------------------------------------------------------------
	// 3. Strip
	// -------------------------------------------------------------------------
	manifest, err := session.LoadManifest(cfg.Strip.ManifestFile)
	if err != nil {
		return err
	}

	s, err := session.Begin(ctx, chain, session.Options{
		ID:       cfg.Strip.BuildID,
		Logger:   log,
		Resolver: resolver,
	})
	if err != nil {
		return err
	}

	if err := s.StripAll(manifest); err != nil {
		s.Abandon()
		return err
	}

	if err := writeOutput(manifest, cfg.Strip.OutputFile); err != nil {
		s.Abandon()
		return err
	}

	rep, err := s.Finish()
	if err != nil {
		return err
	}

	// -------------------------------------------------------------------------
	// 4. Report
	// -------------------------------------------------------------------------
	if len(set.Sinks) == 0 {
		_, _ = rep.WriteTo(os.Stderr)
	}
	deliverErr := report.Deliver(ctx, log, rep, set.Sinks...)

	if cfg.Strip.MetricsFile != "" {
		if err := observability.WriteTextfile(cfg.Strip.MetricsFile); err != nil {
			log.Error("failed to export metrics", slog.String("error", err.Error()))
		}
	}

	if deliverErr != nil {
		return fmt.Errorf("report delivery failed: %w", deliverErr)
	}
	return nil
}

// loadResolver returns nil when no catalog is configured; keep-list rules
// then fail to build with a message naming the missing catalog.
func loadResolver(path string, log *slog.Logger) (assets.Resolver, error) {
	if path == "" {
		return nil, nil
	}
	catalog, err := assets.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	log.Info("loaded shader catalog", slog.String("file", path), slog.Int("shaders", catalog.Len()))
	return catalog, nil
}

func writeOutput(m *session.Manifest, path string) error {
	if path == "" {
		return m.Encode(os.Stdout)
	}
	return m.WriteFile(path)
}
