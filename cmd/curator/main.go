package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"

	"HaikuCurator/internal/ai"
	"HaikuCurator/internal/config"
	"HaikuCurator/internal/museum"
	"HaikuCurator/internal/server"
	"HaikuCurator/internal/service/curator"
	"HaikuCurator/internal/storage"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	sugar.Infow("Starting app",
		"DebugMode", cfg.DebugMode,
		"BindAddr", cfg.BindAddr,
		"DataPath", cfg.DataPath,
	)

	store, err := storage.New(cfg.DataPath, sugar)
	if err != nil {
		sugar.Fatalw("failed to open storage", "error", err)
	}

	// Генератор хайку: реальный клиент OpenAI (ключ из ENV, напр. OPENAI_API_KEY)
	// либо заглушка для локальной отладки без сети.
	var captions ai.Client
	if cfg.UseStubAI {
		captions = ai.NewStubClient()
	} else {
		oClient := openai.NewClient()
		captions = ai.NewHaikuClient(&oClient, cfg.OpenAIModel, cfg.HaikuPrompt, cfg.ReflectionPrompt, sugar)
	}

	provider := museum.New(&http.Client{Timeout: 60 * time.Second}, museum.Config{
		SearchURL:   cfg.MuseumSearchURL,
		ImageURL:    cfg.MuseumImageURL,
		ImageSize:   cfg.MuseumImageSize,
		MaxAttempts: cfg.MuseumMaxAttempts,
	}, sugar)

	cu := curator.New(cfg, provider, captions, store, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.BindAddr, cu, sugar)
	if err := srv.Start(ctx); err != nil {
		sugar.Fatalw("failed to start server", "error", err)
	}

	<-ctx.Done()
	if err := srv.Stop(context.WithoutCancel(ctx)); err != nil {
		sugar.Errorw("shutdown error", "error", err)
	}
	sugar.Infow("Stopped")
}
