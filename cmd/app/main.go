package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"match_go/internal/app"
	"match_go/internal/book"
	"match_go/internal/domain"
	"match_go/internal/engine"
	"match_go/internal/event"
	"match_go/internal/gateway"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Build the core: book -> engine -> sequencer
	ob := book.NewOrderBook()
	eng := engine.NewMatchingEngine(ob)

	var srv *gateway.Server
	seq := engine.NewSequencer(cfg.Engine.InboxSize, eng, bootstrap.Journal, func(res *domain.MatchResult, top book.TopOfBook) {
		srv.OnResult(res, top)
	})

	// 5. Rebuild book state from the journal
	if err := seq.ReplayJournal(); err != nil {
		slog.Error("Journal replay failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 6. Gateway in front of the sequencer inbox
	nextSeq := seq.NextSeq() - 1
	srv = gateway.NewServer(seq.Inbox(), &nextSeq, bootstrap.Journal, cfg.Gateway.AuthToken, cfg.Gateway.CORSOrigin)

	event.Warmup()

	// Start Sequencer in its own goroutine (The Hotpath Loop)
	go seq.Run(ctx)
	slog.InfoContext(ctx, "Sequencer (Hotpath) started", slog.String("symbol", cfg.Engine.Symbol))

	httpSrv := &http.Server{
		Addr:        cfg.Gateway.ListenAddr,
		Handler:     srv.Routes(),
		ReadTimeout: time.Duration(cfg.Gateway.ReadTimeoutSec) * time.Second,
	}

	go func() {
		slog.Info("Gateway listening", slog.String("addr", cfg.Gateway.ListenAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Gateway failed", slog.Any("error", err))
			stop()
		}
	}()

	slog.InfoContext(ctx, "Match engine fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Gateway shutdown failed", slog.Any("error", err))
	}

	slog.Info("Shutting down gracefully...")
}
