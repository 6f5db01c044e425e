package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-system/internal/config"
	"parking-system/internal/logging"
	"parking-system/internal/parking"
	"parking-system/internal/server"
	"parking-system/internal/storage/memory"
	"parking-system/internal/storage/postgres"
	"parking-system/internal/storage/sqlite"
)

var (
	mode = flag.String("mode", "", "Mode to run: cli, server, or both (overrides PARKING_MODE)")
	port = flag.String("port", "", "Port for HTTP server (overrides APP_PORT)")
)

type parkingStore interface {
	parking.SpotStore
	parking.TicketStore
	parking.CustomerHistory
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryProvider := parking.NewNoopTelemetryProvider()
	if cfg.TelemetryEnabled {
		telemetryProvider, err = parking.NewTelemetryProvider(ctx, parking.TelemetryConfig{
			ServiceName:  cfg.OTelServiceName,
			OTLPEndpoint: cfg.OTelEndpoint,
		})
		if err != nil {
			log.Fatalf("Failed to initialize telemetry: %v", err)
		}
	}

	// The console owns stdout in cli and both modes.
	var logOut io.Writer = os.Stdout
	if cfg.Mode != config.ModeServer {
		logOut = os.Stderr
	}
	logging.InitWithWriter(logOut, cfg.OTelServiceName, cfg.Env)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logging.Error(ctx, "failed to open store", "store", cfg.Store, "error", err.Error())
		shutdownTelemetry(telemetryProvider)
		os.Exit(1)
	}
	defer closeStore()

	var notifier parking.Notifier = parking.LogNotifier{}
	if cfg.Mode != config.ModeServer {
		notifier = parking.NewConsoleNotifier(os.Stdout)
	}

	fares := parking.NewFarePolicy()
	sessions, err := parking.NewInstrumentedSessionService(
		parking.NewSessionService(store, store, store, fares, parking.WithNotifier(notifier)),
		telemetryProvider,
	)
	if err != nil {
		logging.Error(ctx, "failed to instrument session service", "error", err.Error())
		shutdownTelemetry(telemetryProvider)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logging.Info(ctx, "parking system starting", "mode", cfg.Mode, "store", cfg.Store,
		"car_spots", cfg.CarSpots, "bike_spots", cfg.BikeSpots)

	app := &application{
		cfg:       cfg,
		sessions:  sessions,
		fares:     fares,
		telemetry: telemetryProvider,
	}

	switch cfg.Mode {
	case config.ModeCLI:
		app.runCLI(ctx, cancel, sigChan)
	case config.ModeServer:
		app.runServer(ctx, cancel, sigChan)
	case config.ModeBoth:
		app.runBoth(ctx, cancel, sigChan)
	}

	shutdownTelemetry(telemetryProvider)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyOverrides(*mode, *port); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (parkingStore, func(), error) {
	spots, err := parking.NewLayout(cfg.CarSpots, cfg.BikeSpots)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Store {
	case config.StoreSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := store.SeedSpots(ctx, spots); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseTries)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := postgres.SeedSpots(ctx, pool, spots); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewStore(pool), pool.Close, nil

	default:
		return memory.NewStore(spots), func() {}, nil
	}
}

type application struct {
	cfg       *config.Config
	sessions  parking.SessionManager
	fares     *parking.FarePolicy
	telemetry *parking.TelemetryProvider
}

func (a *application) newShell() *parking.Shell {
	return parking.NewShell(a.sessions, parking.NewConsoleReader(os.Stdin), os.Stdout, a.telemetry)
}

func (a *application) newServer() *server.Server {
	return server.NewServer(a.cfg.Port, server.NewHandler(a.sessions, a.fares, a.cfg.OTelServiceName))
}

func (a *application) shutdownServer(srv *server.Server) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "server shutdown error", "error", err.Error())
	}
}

func (a *application) runCLI(ctx context.Context, cancel context.CancelFunc, sigChan chan os.Signal) {
	go func() {
		<-sigChan
		logging.Info(ctx, "shutting down")
		cancel()
	}()

	a.newShell().Run(ctx)
}

func (a *application) runServer(ctx context.Context, cancel context.CancelFunc, sigChan chan os.Signal) {
	srv := a.newServer()

	go func() {
		<-sigChan
		logging.Info(ctx, "received shutdown signal")
		a.shutdownServer(srv)
		cancel()
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error(ctx, "server error", "error", err.Error())
	}
}

func (a *application) runBoth(ctx context.Context, cancel context.CancelFunc, sigChan chan os.Signal) {
	srv := a.newServer()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan struct{}, 1)
	go func() {
		a.newShell().Run(ctx)
		cliDone <- struct{}{}
	}()

	go func() {
		<-sigChan
		logging.Info(ctx, "received shutdown signal")
		cancel()
	}()

	select {
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(ctx, "server error", "error", err.Error())
		}
	case <-cliDone:
		logging.Info(ctx, "CLI exited")
	case <-ctx.Done():
		logging.Info(ctx, "context cancelled")
	}

	a.shutdownServer(srv)
}

func shutdownTelemetry(telemetryProvider *parking.TelemetryProvider) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := telemetryProvider.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down telemetry: %v", err)
	}
}
