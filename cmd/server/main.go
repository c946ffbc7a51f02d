package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Telemed/internal/adapters/http"
	signalws "github.com/dkeye/Telemed/internal/adapters/signal"
	"github.com/dkeye/Telemed/internal/app"
	"github.com/dkeye/Telemed/internal/config"
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
	} else {
		log.Warn().Err(err).Str("level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}

	admission, err := app.NewAdmissionPolicy(cfg.Admission)
	if err != nil {
		log.Fatal().Err(err).Msg("admission policy")
	}
	backpressure, err := app.NewBackpressurePolicy(cfg.Backpressure)
	if err != nil {
		log.Fatal().Err(err).Msg("backpressure policy")
	}
	hub := app.NewHub(app.NewRegistry(), admission, backpressure)

	var limiter *signalws.ConnectRateLimiter
	if cfg.ConnectLimit > 0 {
		limiter = signalws.NewConnectRateLimiter(cfg.ConnectLimit, cfg.ConnectInterval)
		go limiter.Run(ctx)
	}
	ctrl := signalws.NewSignalWSController(hub, signalws.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,

		AllowedOrigins: cfg.AllowedOrigins,
	}, limiter)

	r := router.SetupRouter(cfg, ctrl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Telemed signaling server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		err := srv.Shutdown(shutdownCtx)
		// Hijacked sockets are not tracked by http.Server.
		ctrl.Shutdown()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
	}
	log.Info().Msg("Server exited gracefully")
}
