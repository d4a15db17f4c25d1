package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/workfloworchestrator/nsi-aura/internal/config"
	"github.com/workfloworchestrator/nsi-aura/internal/db"
	"github.com/workfloworchestrator/nsi-aura/internal/dispatcher"
	"github.com/workfloworchestrator/nsi-aura/internal/httpapi"
	"github.com/workfloworchestrator/nsi-aura/internal/nsi"
	"github.com/workfloworchestrator/nsi-aura/internal/reservation"
	"github.com/workfloworchestrator/nsi-aura/internal/reslog"
	"github.com/workfloworchestrator/nsi-aura/internal/scheduler"
	"github.com/workfloworchestrator/nsi-aura/internal/topology"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	hub := reslog.NewHub()
	level := parseLevel(cfg.LogLevel)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	log := slog.New(reslog.Tee(jsonHandler, reslog.NewHandler(hub)))

	tlsCfg, err := nsi.TLSConfig(cfg.Certificate, cfg.PrivateKey, cfg.CACerts, cfg.VerifyReqs)
	if err != nil {
		log.Error("failed to build tls configuration", "error", err)
		os.Exit(1)
	}

	conn, err := db.Open(cfg.DatabaseURI, cfg.SQLLogging)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	store := db.New(conn)

	client := nsi.NewClient(cfg.NSIProviderURL, cfg.NSIProviderID, cfg.NSAHost, cfg.CallbackURL(), tlsCfg)
	ddsClient := nsi.NewDDSClient(tlsCfg)

	disp := dispatcher.NewDispatcher(store, client, log, cfg.JobConcurrency)
	reservations := reservation.New(store, disp, log)

	pipeline := topology.NewPipeline(ddsClient, cfg.NSIDDSURL, store)
	poller := scheduler.NewTopologyPoller(pipeline, log, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	disp.Start(ctx)
	go poller.Run(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := httpapi.NewServer(addr, httpapi.Deps{
		Reservations:  reservations,
		Store:         store,
		Hub:           hub,
		ProviderNSAID: cfg.NSIProviderID,
		Log:           log,
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting ultimate requester agent", "addr", addr)
		serverErr <- server.StartTLS(cfg.Certificate, cfg.PrivateKey)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error("http server exited", "error", err)
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
		if err := server.Shutdown(); err != nil {
			log.Error("error during http shutdown", "error", err)
		}
	}

	cancel()
	disp.Wait()
	log.Info("terminated")
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return level
}
