package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/taqrir/reportbot/internal/bot"
	"github.com/taqrir/reportbot/internal/config"
	"github.com/taqrir/reportbot/internal/handler"
	"github.com/taqrir/reportbot/internal/model/report"
	"github.com/taqrir/reportbot/internal/render"
	"github.com/taqrir/reportbot/internal/service/ai"
	"github.com/taqrir/reportbot/internal/service/assembler"
	"github.com/taqrir/reportbot/internal/service/dialogue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	schema := report.DefaultSchema()
	store := dialogue.NewStore(dialogue.NewEngine(schema), cfg.Session.IdleTimeout)
	store.StartJanitor(ctx)

	// Enrichment is optional: without Ark credentials the raw description
	// answer becomes the document body.
	var gen assembler.Generator
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without enrichment - check the Ark model environment variables")
		} else {
			gen = aiService
			log.Println("AI enrichment enabled")
		}
	} else {
		log.Println("Ark credentials not configured, report bodies use the raw description")
	}

	channel, err := bot.NewTelegramChannel(cfg.Telegram.Token)
	if err != nil {
		log.Fatalf("failed to connect to telegram: %v", err)
	}

	b := bot.New(channel, store, assembler.New(schema, gen), render.NewPDF(cfg.Report.FontPath))

	if cfg.Telegram.WebhookURL != "" {
		if err := channel.RegisterWebhook(cfg.Telegram.WebhookURL); err != nil {
			log.Fatalf("failed to register webhook: %v", err)
		}
		router := handler.NewRouter(ctx, b)
		startServer(ctx, cfg.Server, router)
		return
	}

	channel.Poll(ctx, b)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("report bot webhook server listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
