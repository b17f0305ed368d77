// main is the entry point of the Laval console.
// It initializes the configuration, logger, manager channel and audit log, then either
// runs a single terminal lookup or serves the lookup page.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/laval/internal/config"
	"github.com/woozymasta/laval/internal/console"
	"github.com/woozymasta/laval/internal/fake"
	"github.com/woozymasta/laval/internal/logger"
	"github.com/woozymasta/laval/internal/maintenance"
	"github.com/woozymasta/laval/internal/query"
	"github.com/woozymasta/laval/internal/rpc"
	"github.com/woozymasta/laval/internal/server"
	"github.com/woozymasta/laval/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Parse()

	closeLog := logger.Setup(cfg.Logger)
	defer closeLog()

	// Audit database
	var store *storage.Repository
	if cfg.Storage.Path != "" {
		var err error
		store, err = storage.New(cfg.Storage.Path)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.Storage.Path).Msg("Failed to initialize audit database")
			return 1
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing audit database")
			}
		}()
	}

	var pruner maintenance.Pruner
	if store != nil {
		pruner = store
	}
	if done, err := maintenance.Run(cfg, pruner); done {
		if err != nil {
			log.Error().Err(err).Msg("Maintenance failed")
			return 1
		}
		return 0
	}

	// In-memory manager for development
	if cfg.Manager.FakeListen != "" {
		manager := fake.NewManager()
		manager.GenerateNodes(cfg.Manager.FakeNodes)
		fakeServer := fake.Serve(cfg.Manager.FakeListen, manager)
		defer func() { _ = fakeServer.Close() }()
		cfg.Manager.URL = fakeURL(cfg.Manager.FakeListen)
	}

	// Manager channel, shared by every query client
	channel, err := rpc.New(cfg.Manager)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create manager channel")
		return 1
	}
	log.Info().Str("manager", channel.BaseURL()).Msg("Manager channel ready")

	var audit server.Audit
	if store != nil {
		audit = store
	}

	if cfg.Query.Name != "" {
		opts := []query.Option{query.WithNotifier(query.LogNotifier{})}
		if audit != nil {
			opts = append(opts, query.WithRecorder(audit))
		}
		client := query.New(channel, opts...)
		return console.Run(context.Background(), client, cfg.Query.Name, cfg.Query.Output, os.Stdout)
	}

	return serve(cfg, channel, audit)
}

func serve(cfg *config.Config, channel *rpc.Channel, audit server.Audit) int {
	log.Info().Msg("Starting laval console...")

	srv := server.New(channel, audit, cfg)
	srv.Start()

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Manager.Timeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	code := 0
	select {
	case <-quit:
	case err := <-errCh:
		log.Error().Err(err).Msg("Server failed")
		code = 1
	}

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Manager.Timeout+5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	srv.Stop()

	log.Info().Msg("Server exited")
	return code
}

// fakeURL turns a listen address into a base URL reachable from this process.
func fakeURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}

	return "http://" + net.JoinHostPort(host, port)
}
