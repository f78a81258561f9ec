package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/CaseMark/multi-language-processor/internal/config"
	"github.com/CaseMark/multi-language-processor/internal/document"
	"github.com/CaseMark/multi-language-processor/internal/httpapi"
	"github.com/CaseMark/multi-language-processor/internal/jobs"
	"github.com/CaseMark/multi-language-processor/internal/llm"
	"github.com/CaseMark/multi-language-processor/internal/ocr"
	"github.com/CaseMark/multi-language-processor/internal/persistence"
	"github.com/CaseMark/multi-language-processor/internal/service"
	"github.com/CaseMark/multi-language-processor/internal/vault"
	"github.com/CaseMark/multi-language-processor/pkg/log"
)

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func main() {
	_ = godotenv.Load()

	opts := make([]config.Option, 0, 1)
	if saved, err := config.LoadRuntimeSettingsFile(config.RuntimeSettingsFilePath()); err == nil {
		opts = append(opts, config.WithRuntimeSettings(saved))
	}
	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.System.LogLevel))

	store, err := persistence.NewSQLiteStore(cfg.System.DBPath())
	if err != nil {
		log.Fatal("Failed to open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	corpus := document.NewCorpus()
	pairs, err := store.LoadDocuments(ctx)
	if err != nil {
		log.Fatal("Failed to load documents: %v", err)
	}
	for _, pair := range pairs {
		corpus.Add(pair)
	}
	log.Info("Loaded %d documents from store", corpus.Len())

	llmClient, err := llm.NewClient(&llm.Config{
		APIKey:      cfg.LLM.APIKey,
		APIURL:      cfg.LLM.APIURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		SiteURL:     cfg.LLM.SiteURL,
		AppName:     cfg.LLM.AppName,
	})
	if err != nil {
		log.Fatal("Failed to create LLM client: %v", err)
	}
	ocrClient, err := ocr.NewClient(ocr.Config{
		APIURL:       cfg.OCR.APIURL,
		APIKey:       cfg.OCR.APIKey,
		PollInterval: time.Duration(cfg.OCR.PollInterval) * time.Second,
		PollTimeout:  time.Duration(cfg.OCR.PollTimeout) * time.Second,
	})
	if err != nil {
		log.Fatal("Failed to create OCR client: %v", err)
	}
	vaultClient, err := vault.NewClient(vault.Config{
		APIURL: cfg.Vault.APIURL,
		APIKey: cfg.Vault.APIKey,
		Bucket: cfg.Vault.Bucket,
	})
	if err != nil {
		log.Fatal("Failed to create vault client: %v", err)
	}

	settingsStore, err := config.NewRuntimeSettingsStore(config.RuntimeSettingsFilePath(), cfg.RuntimeSettings())
	if err != nil {
		log.Fatal("Failed to initialize settings store: %v", err)
	}
	targetLang := func() string {
		settings, _ := settingsStore.GetRuntimeSettings()
		return settings.TargetLanguage
	}

	queue := jobs.NewQueue(cfg.Pipeline.Concurrency, store)
	processor := service.NewProcessor(
		corpus, store, ocrClient, vaultClient, llmClient,
		cfg.Pipeline.TargetLanguage.String(),
		cfg.Pipeline.BatchSize,
		cfg.Pipeline.Concurrency,
		cfg.Pipeline.GlossaryDir,
	)
	queue.Start(processor.Execute)
	defer queue.Stop()

	cronInstance := cron.New()
	sweeper := service.NewSweeper(
		cfg.Pipeline.SweepCron, cronInstance, vaultClient, corpus, queue,
		cfg.Server.UploadDir, targetLang,
	)

	intake := service.NewIntake(cfg.Server.UploadDir, vaultClient, queue, targetLang)

	applier := func(next config.RuntimeSettings) error {
		client, err := llm.NewClient(&llm.Config{
			APIKey:      next.LLMAPIKey,
			APIURL:      next.LLMAPIURL,
			Model:       next.LLMModel,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
			SiteURL:     cfg.LLM.SiteURL,
			AppName:     cfg.LLM.AppName,
		})
		if err != nil {
			return err
		}
		processor.ApplyRuntimeSettings(client, next.TargetLanguage)
		if next.SweepCron != cfg.Pipeline.SweepCron {
			log.Warn("sweep_cron change takes effect on next restart")
		}
		return nil
	}

	server := httpapi.NewServer(corpus, queue, intake,
		httpapi.WithUI(cfg.Server.UIStaticDir, cfg.Server.UIStaticDir != ""),
		httpapi.WithRuntimeSettingsStore(settingsStore),
		httpapi.WithRuntimeSettingsApplier(applier),
		httpapi.WithSweeper(sweeper),
		httpapi.WithDocumentStore(store),
		httpapi.WithVault(vaultClient),
		httpapi.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
	)

	if err := runWithComponents(ctx, cfg, sweeper, cronInstance, server); err != nil {
		log.Fatal("Server exited: %v", err)
	}
}

func runWithComponents(
	ctx context.Context,
	cfg *config.Config,
	sched scheduler,
	cronEngine cronEngine,
	httpSrv httpServer,
) error {
	if err := sched.Schedule(ctx); err != nil {
		return err
	}
	cronEngine.Start()
	defer cronEngine.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
