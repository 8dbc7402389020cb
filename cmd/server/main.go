package main

import (
	"context"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/vncsmyrnk/tally/internal/adapters/handler/http"
	"github.com/vncsmyrnk/tally/internal/bootstrap"
	"github.com/vncsmyrnk/tally/internal/config"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load("tally-server", os.Args[1:])
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := bootstrap.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.EnsureInstantiated(ctx, cfg.AdminAddress); err != nil {
		logger.Error("failed to instantiate contract", "error", err)
		os.Exit(1)
	}

	handler := http.NewHandler(
		http.NewContractHandler(app.Contract),
		http.NewPollHandler(app.Contract),
		http.NewVoteHandler(app.Contract),
	)
	server := &stdhttp.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
