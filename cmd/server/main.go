package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Attendance/internal/adapters/broker"
	router "github.com/dkeye/Attendance/internal/adapters/http"
	"github.com/dkeye/Attendance/internal/adapters/live"
	"github.com/dkeye/Attendance/internal/app"
	"github.com/dkeye/Attendance/internal/config"
	"github.com/dkeye/Attendance/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	members := cfg.Roster
	if cfg.RosterFile != "" {
		if members, err = core.LoadRosterFile(cfg.RosterFile); err != nil {
			log.Fatal().Err(err).Msg("failed to load roster")
		}
	}
	roster, err := core.NewRoster(members)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid roster")
	}
	if roster.Size() == 0 {
		log.Warn().Msg("roster is empty, every card will be rejected")
	}

	session := app.NewSession(roster, app.SessionOptions{
		QuorumThreshold: cfg.QuorumThreshold,
		RecentLimit:     cfg.RecentLimit,
	})
	status := app.NewStatusTracker()

	hub := live.NewHub(session.Snapshot, status.Status, live.Options{
		PingPeriod: cfg.PingPeriod,
		ReadLimit:  cfg.ReadLimit,
	})
	session.Subscribe(hub.PublishSnapshot)
	status.Subscribe(hub.PublishStatus)

	client := broker.New(cfg.Broker, status)
	dispatcher := &app.Dispatcher{Session: session, Acks: client}
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx, client.Events())
	}()
	if err := client.Connect(ctx); err != nil {
		log.Error().Err(err).Str("url", cfg.Broker.URL).Msg("broker connect failed")
	}

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Session: session,
		Status:  status,
		Hub:     hub,
		Limiter: app.NewScanLimiter(cfg.CheckInLimit, cfg.CheckInWindow),
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Int("roster", roster.Size()).Msg("Attendance server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	client.Close()
	<-dispatcherDone
	log.Info().Msg("Server exited gracefully")
}
