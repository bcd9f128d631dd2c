// cmd/assistant-server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bellavista-assistant/internal/chat"
	"bellavista-assistant/internal/common/config"
	"bellavista-assistant/internal/common/logger"
	"bellavista-assistant/internal/llm"
	"bellavista-assistant/internal/menu"
	"bellavista-assistant/internal/pos"
	"bellavista-assistant/internal/prompt"
	"bellavista-assistant/internal/server"
	"bellavista-assistant/internal/session"
	"bellavista-assistant/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Missing credentials are fatal; the engine must not come up
		// half-configured.
		bootstrapLog := logger.New("info", "console")
		bootstrapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting ordering assistant...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	catalog, err := menu.Load()
	if err != nil {
		zapLog.Fatal("menu catalog load failed", zap.Error(err))
	}
	zapLog.Info("Menu catalog loaded", zap.Strings("categories", catalog.CategoryNames()))

	model := llm.NewClient(&llm.Config{
		BaseURL:     cfg.Gemini.BaseURL,
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Gemini.Model,
		Temperature: cfg.Chat.Temperature,
		MaxTokens:   cfg.Gemini.MaxTokens,
		Timeout:     time.Duration(cfg.Gemini.Timeout) * time.Millisecond,
	}, log)

	posClient := pos.NewClient(&pos.Config{
		AppID:       cfg.Clover.AppID,
		AppSecret:   cfg.Clover.AppSecret,
		BaseURL:     cfg.Clover.BaseURL,
		OAuthURL:    cfg.Clover.OAuthURL,
		TokenURL:    cfg.Clover.TokenURL,
		RedirectURL: cfg.Clover.RedirectURL,
		Timeout:     time.Duration(cfg.Clover.Timeout) * time.Millisecond,
	}, log)

	synth := voice.NewSynthesizer(&voice.Config{
		BaseURL:    cfg.Gemini.BaseURL,
		APIKey:     cfg.Gemini.APIKey,
		Model:      cfg.Gemini.TTSModel,
		VoiceName:  cfg.Gemini.VoiceName,
		SampleRate: cfg.Voice.SampleRate,
		Channels:   cfg.Voice.Channels,
		Timeout:    time.Duration(cfg.Gemini.Timeout) * time.Millisecond,
	}, log)

	sessions := session.NewStore()
	composer := prompt.NewComposer(cfg.Chat.MaxHistoryPairs, posClient)
	engine := chat.NewEngine(catalog, sessions, composer, model, posClient, cfg.Chat.DefaultSessionID, log)

	srv := server.New(engine, posClient, synth, log)
	router, err := srv.Router(cfg.Server.RateLimit)
	if err != nil {
		zapLog.Fatal("router setup failed", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining connections...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("shutdown error", zap.Error(err))
	}

	zapLog.Info("Ordering assistant stopped",
		zap.Int("liveSessions", sessions.Len()),
	)
}
