package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/RichardoC/chatd/internal/api"
	"github.com/RichardoC/chatd/internal/config"
	"github.com/RichardoC/chatd/internal/db"
	"github.com/RichardoC/chatd/internal/llm"
	"go.uber.org/zap"
)

func runServe(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	database, err := db.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to initialize database",
			zap.Error(err),
			zap.String("driver", cfg.Database.Driver))
		return err
	}
	defer database.Close()

	llmService, err := newGateway(cfg.LLM)
	if err != nil {
		logger.Error("failed to initialize LLM service", zap.Error(err))
		return err
	}

	handler := api.NewHandler(database, llmService, cfg.LLM.Model, logger)
	router := api.NewRouter(handler, logger, api.RouterOptions{
		BasePath:       cfg.Http.BasePath,
		MaxRequestSize: cfg.Http.MaxRequestSize,
	})

	server := &http.Server{
		Addr:    cfg.Http.Addr(),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("address", server.Addr),
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.Model))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Http.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during server shutdown", zap.Error(err))
		return err
	}
	logger.Info("Server shutdown complete")
	return nil
}

func newGateway(cfg config.LLM) (*llm.Service, error) {
	return llm.New(llm.Options{
		Provider: cfg.Provider,
		BaseURL:  cfg.BaseURL,
		Token:    cfg.Token,
		Model:    cfg.Model,
		Timeout:  cfg.Timeout,
	})
}
