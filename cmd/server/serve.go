package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alcyxob/fitness-coach/internal/api"
	"alcyxob/fitness-coach/internal/service"
)

func serve(ctx context.Context, configPath string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer func() {
		ctxClose, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.close(ctxClose)
	}()
	cfg, logger := a.cfg, a.logger
	logger.Info("Starting Fitness Coach Server...")

	if ctx == nil {
		ctx = context.Background()
	}
	sessions, err := a.sessionRepository(ctx)
	if err != nil {
		return err
	}
	archive, err := a.audioArchive(ctx)
	if err != nil {
		return err
	}

	logger.Info("Initializing services...")
	conversation := service.NewConversationService(sessions, a.generator, logger.Named("conversation"), a.metrics)
	transcription := service.NewTranscriptionService(a.client, a.client, archive, service.TranscriptionOptions{
		ExtractionMaxTokens: cfg.Transcription.MaxTokens,
		ArchivePrefix:       cfg.S3.Prefix,
		PresignExpiry:       cfg.S3.PresignExpiry,
	}, logger.Named("transcription"))
	tokens := service.NewTokenService(cfg.Session.TokenSecret, cfg.Session.TokenTTL)
	if !tokens.Enabled() {
		logger.Warn("Session tokens disabled; any client may address any session id")
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default() // Includes Logger and Recovery middleware

	logger.Info("Setting up API routes...")
	api.SetupRoutes(router, api.Dependencies{
		Conversation:   conversation,
		Generator:      a.generator,
		Transcription:  transcription,
		Tokens:         tokens,
		Gatherer:       a.registry,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Transcription.MaxUploadBytes,
		Logger:         logger.Named("api"),
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("Server starting", zap.String("address", cfg.Server.Address))

	// --- Graceful Shutdown ---
	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err, ok := <-serveErr:
		if ok {
			logger.Error("ListenAndServe error", zap.Error(err))
			return err
		}
	}
	logger.Info("Shutting down server...")

	// The server has 5 seconds to finish the requests it is currently handling
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exiting.")
	return nil
}
