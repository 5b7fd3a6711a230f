package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/josh-kwaku/backoffice/internal/config"
	"github.com/josh-kwaku/backoffice/internal/handler"
	"github.com/josh-kwaku/backoffice/internal/logging"
	"github.com/josh-kwaku/backoffice/internal/middleware"
)

func main() {
	cfg, err := config.LoadProxy()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("backoffice-proxy", cfg.LogLevel, cfg.AppEnv)

	proxy := handler.NewProxyHandler(cfg.ProviderBaseURL, cfg.ProviderTimeout)
	routes := handler.ProxyRoutes(proxy, cfg.CORSAllowedOrigins)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           middleware.Tracing(middleware.Logging(logger)(middleware.Recovery(routes))),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.ProviderTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("proxy started", "addr", addr, "upstream", cfg.ProviderBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down proxy")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("proxy forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("proxy stopped")
}
