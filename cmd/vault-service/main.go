package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/cedula"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/config"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/database"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/kafka"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/logger"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/deid"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/dlp"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/llm"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/pipeline"
)

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		logger.Log.WithError(err).Fatal("failed to load env file")
	}
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		logger.Log.WithError(err).Fatal("invalid configuration")
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("invalid PII catalog")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, audit, closeStore, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to open mapping store")
	}
	defer closeStore()

	service := deid.NewService(catalog, backend, deid.Settings{
		Mode:         cfg.VaultMode,
		TokenSalt:    cfg.VaultTokenSalt,
		SuffixLength: cfg.VaultTokenSuffix,
		MaxAttempts:  cfg.VaultTokenAttempts,
		StoreTimeout: cfg.VaultStoreTimeout,
	})
	if audit != nil {
		service.WithAudit(audit)
	}

	generator := llm.New(llm.Config{
		APIKey:            cfg.LLMAPIKey,
		BaseURL:           cfg.LLMBaseURL,
		Model:             cfg.LLMModelName,
		Timeout:           cfg.LLMTimeout,
		OAuthTokenURL:     cfg.LLMOAuthTokenURL,
		OAuthClientID:     cfg.LLMOAuthClientID,
		OAuthClientSecret: cfg.LLMOAuthClientSecret,
	})
	if generator.Offline() {
		logger.Log.Warn("no LLM credentials configured, /api/v1/prompt echoes prompts")
	}

	app := &App{
		service:   service,
		generator: generator,
		policy:    cedula.Policy{Min: cfg.CedulaMin, Max: cfg.CedulaMax},
		cfg:       cfg,
		started:   time.Now(),
	}

	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaOutputTopic)
		defer producer.Close()
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaInputTopic, cfg.KafkaGroupID)
		defer consumer.Close()

		processor := pipeline.NewProcessor(service, producer)
		go func() {
			if err := consumer.Consume(ctx, processor.Process); err != nil && ctx.Err() == nil {
				logger.Log.WithError(err).Error("consumer stopped")
			}
		}()
		logger.Log.WithFields(map[string]interface{}{
			"input":  cfg.KafkaInputTopic,
			"output": cfg.KafkaOutputTopic,
		}).Info("Kafka pipeline enabled")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      app.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":  cfg.ServerHost,
			"port":  cfg.ServerPort,
			"mode":  cfg.VaultMode,
			"store": cfg.VaultStore,
		}).Info("Privacy Vault started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Privacy Vault...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Privacy Vault stopped")
}

func loadCatalog(cfg *config.Config) (*dlp.Catalog, error) {
	catCfg, err := dlp.LoadCatalog(cfg.VaultCatalogPath)
	if err != nil {
		return nil, err
	}
	catCfg = catCfg.WithIDBounds(cfg.VaultIDMinDigits, cfg.VaultIDMaxDigits).WithExclusions(cfg.VaultExclusions)
	return dlp.NewCatalog(catCfg)
}

// openBackend connects the configured mapping store. The audit sink is only
// available with postgres.
func openBackend(ctx context.Context, cfg *config.Config) (deid.Backend, deid.AuditSink, func(), error) {
	switch cfg.VaultStore {
	case config.StorePostgres:
		db, err := database.OpenPostgres(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		repo := deid.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			database.ClosePostgres(db)
			return nil, nil, nil, fmt.Errorf("migrate token vault: %w", err)
		}
		audit := deid.NewAuditRepository(db)
		if err := audit.AutoMigrate(); err != nil {
			database.ClosePostgres(db)
			return nil, nil, nil, fmt.Errorf("migrate audit log: %w", err)
		}
		return repo, audit, func() { database.ClosePostgres(db) }, nil
	case config.StoreRedis:
		client, err := database.OpenRedis(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		return deid.NewRedisBackend(client), nil, func() { client.Close() }, nil
	default:
		logger.Log.Warn("using in-memory mapping store, tokens are lost on restart")
		return deid.NewMemoryBackend(), nil, func() {}, nil
	}
}
