package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kiranalabs/kirana/internal/completion"
	"github.com/kiranalabs/kirana/internal/config"
	"github.com/kiranalabs/kirana/internal/conversation"
	"github.com/kiranalabs/kirana/internal/httpapi"
	"github.com/kiranalabs/kirana/internal/observability"
	"github.com/kiranalabs/kirana/internal/relay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := conversation.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("conversation store init failed: %v", err)
	}
	defer store.Close()

	client, err := completion.NewClient(ctx, completion.Config{
		Provider: cfg.CompletionProvider,
		APIKey:   cfg.GeminiAPIKey,
		Model:    cfg.GeminiModel,
		Timeout:  cfg.CompletionTimeout,
	})
	if err != nil {
		log.Fatalf("completion client init failed: %v", err)
	}
	log.Printf("completion provider: %s", client.Name())
	if !client.Configured() {
		log.Printf("GEMINI_API_KEY is not set; chat requests will be rejected until it is configured")
	}

	chatRelay := relay.New(store, client, metrics, cfg.HistoryMaxTurns)

	api := httpapi.New(cfg, chatRelay, store, client.Name(), metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
