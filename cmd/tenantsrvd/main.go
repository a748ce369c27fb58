package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskhive/taskhive/internal/tenantsrv/config"
	"github.com/taskhive/taskhive/internal/tenantsrv/db"
	"github.com/taskhive/taskhive/internal/tenantsrv/registry"
	"github.com/taskhive/taskhive/internal/tenantsrv/server"
	"github.com/taskhive/taskhive/internal/tenantsrv/tenantcommon"

	"github.com/rs/zerolog/log"
)

func init() {
	tenantcommon.InitLogger()
}

type cmdoptions struct {
	configFile string
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog := log.With().Str("state", "init").Logger()

	opt := parseFlags()

	slog.Info().Str("config_file", opt.configFile).Msg("loading config file")
	if err := config.LoadConfig(opt.configFile); err != nil {
		return fmt.Errorf("loading config file: %w", err)
	}
	if config.Config().ServerPort == "" {
		return fmt.Errorf("server port not defined")
	}

	if err := db.Init(); err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Shutdown()

	cfg := config.Config()
	reg := registry.New(registry.NewPostgresDialer(registry.PostgresDialerConfig{
		DSN:          cfg.DSN(),
		MaxConns:     cfg.Registry.MaxConnsPerSchema,
		MaxIdleConns: cfg.Registry.MaxIdleConnsPerSchema,
	}), registry.Options{
		DialTimeout: cfg.Registry.GetDialTimeoutOrDefault(),
	})
	defer reg.DrainAll()

	serverErrors, shutdownServer, err := createTenantServer(ctx, reg)
	if err != nil {
		return fmt.Errorf("creating tenant server: %w", err)
	}

	// Channel to listen for an interrupt or terminate signal from the OS.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		slog.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		shutdownServer()
	}

	slog.Info().Msg("server stopped")
	return nil
}

func createTenantServer(ctx context.Context, reg *registry.Registry) (chan error, func(), error) {
	slog := log.With().Str("state", "init").Logger()
	s, err := server.CreateNewServer(reg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating server: %w", err)
	}
	s.MountHandlers()

	srv := &http.Server{
		Addr:              ":" + config.Config().ServerPort,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)

	// Start the service listening for requests.
	go func() {
		slog.Info().Str("port", config.Config().ServerPort).Msg("server started")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := func() {
		// Give outstanding requests 5 seconds to complete and initiate the shutdown.
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error().Err(err).Msg("could not stop server gracefully")
			if err := srv.Close(); err != nil {
				slog.Error().Err(err).Msg("could not stop server")
			}
		}
	}

	return serverErrors, shutdown, nil
}

const DefaultConfigFile = "/etc/taskhive/tenantsrv.conf"

func parseFlags() cmdoptions {
	var opt cmdoptions
	flag.StringVar(&opt.configFile, "config", DefaultConfigFile, "Path to the config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
	}
	flag.Parse()
	return opt
}
