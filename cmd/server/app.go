package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"alcyxob/fitness-coach/internal/config"
	"alcyxob/fitness-coach/internal/llm"
	"alcyxob/fitness-coach/internal/logging"
	"alcyxob/fitness-coach/internal/metrics"
	"alcyxob/fitness-coach/internal/prompt"
	"alcyxob/fitness-coach/internal/repository"
	"alcyxob/fitness-coach/internal/repository/memory"
	"alcyxob/fitness-coach/internal/repository/mongo"
	"alcyxob/fitness-coach/internal/repository/redis"
	"alcyxob/fitness-coach/internal/service"
	"alcyxob/fitness-coach/internal/storage"
	"alcyxob/fitness-coach/internal/validator"
)

// app holds the wired components shared by the serve and generate commands.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	client    *llm.Client
	generator service.GeneratorService
	closers   []func(context.Context) error
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("could not build logger: %w", err)
	}
	logger.Info("Configuration loaded",
		zap.String("sessionStore", cfg.Session.Store),
		zap.String("model", cfg.LLM.Model),
		zap.Bool("apiKeySet", cfg.LLM.APIKey != ""))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	client := llm.NewClient(llm.Config{
		BaseURL:            cfg.LLM.BaseURL,
		APIKey:             cfg.LLM.APIKey,
		Model:              cfg.LLM.Model,
		ExtractionModel:    cfg.Transcription.ExtractionModel,
		TranscriptionModel: cfg.Transcription.Model,
		MaxTokens:          cfg.LLM.MaxTokens,
		Temperature:        cfg.LLM.Temperature,
		Timeout:            cfg.LLM.Timeout,
		MaxRetries:         cfg.LLM.MaxRetries,
		StructuredOutput:   cfg.LLM.StructuredOutput,
	}, &llm.ResponseSchema{
		Name:        "workout_plan",
		Description: "A personalised workout plan",
		Schema:      validator.PlanSchema(),
	}, logger.Named("llm"), m)

	builder, err := prompt.NewBuilder()
	if err != nil {
		return nil, fmt.Errorf("could not load prompt templates: %w", err)
	}
	generator := service.NewGeneratorService(builder, client, service.GeneratorOptions{
		MaxAttempts: cfg.Generation.MaxAttempts,
		MaxTokens:   cfg.Generation.MaxTokens,
	}, logger.Named("generator"), m)

	return &app{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		metrics:   m,
		client:    client,
		generator: generator,
	}, nil
}

// sessionRepository builds the configured session store and registers its cleanup.
func (a *app) sessionRepository(ctx context.Context) (repository.SessionRepository, error) {
	cfg := a.cfg
	switch cfg.Session.Store {
	case config.StoreRedis:
		a.logger.Info("Connecting to Redis...", zap.String("addr", cfg.Redis.Addr))
		client, err := redis.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("could not connect to Redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		return redis.NewSessionRepository(client, cfg.Session.TTL), nil

	case config.StoreMongo:
		a.logger.Info("Connecting to MongoDB...")
		dbClient, err := mongo.ConnectDB(cfg.Database.URI)
		if err != nil {
			return nil, fmt.Errorf("could not connect to MongoDB: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return mongo.DisconnectDB(dbClient) })
		appDB := dbClient.Database(cfg.Database.Name)
		go a.ensureIndexes(appDB)
		return mongo.NewMongoSessionRepository(appDB), nil
	}

	a.logger.Info("Using in-memory session store",
		zap.Int("maxEntries", cfg.Session.MaxEntries),
		zap.Duration("ttl", cfg.Session.TTL))
	return memory.NewSessionRepository(cfg.Session.MaxEntries, cfg.Session.TTL), nil
}

func (a *app) ensureIndexes(db *mongodriver.Database) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := mongo.EnsureSessionIndexes(ctx, db, a.cfg.Session.TTL); err != nil {
		a.logger.Error("Failed to create session indexes", zap.Error(err))
		return
	}
	a.logger.Info("Index creation process completed.")
}

// audioArchive returns nil when no bucket is configured.
func (a *app) audioArchive(ctx context.Context) (storage.AudioArchive, error) {
	if a.cfg.S3.BucketName == "" {
		a.logger.Info("Audio archive disabled (no bucket configured)")
		return nil, nil
	}
	a.logger.Info("Initializing audio archive...", zap.String("bucket", a.cfg.S3.BucketName))
	archive, err := storage.NewS3Archive(ctx, a.cfg.S3, a.logger.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
	}
	return archive, nil
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Error("Failed to release resource", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
