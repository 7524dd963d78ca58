package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/Zahidur-Rahman/Dev-Guardian/internal"
	"github.com/Zahidur-Rahman/Dev-Guardian/internal/githubapp"
	"github.com/Zahidur-Rahman/Dev-Guardian/internal/queue"
	"github.com/Zahidur-Rahman/Dev-Guardian/internal/review"
	"github.com/Zahidur-Rahman/Dev-Guardian/internal/web/routes"
	"github.com/Zahidur-Rahman/Dev-Guardian/internal/worker"
)

func initializeOpenAIClient(openAIToken string, logger *zap.Logger) *openai.Client {
	client := openai.NewClient(option.WithAPIKey(openAIToken))

	logger.Info("OpenAI client initialized")

	return client
}

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()
	logger.Info("starting worker")

	config, err := internal.LoadConfiguration()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if err := config.ValidateWorker(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	appAuth, err := githubapp.NewAppAuth(config.GithubAppID, config.GithubPrivateKeyPath)
	if err != nil {
		logger.Fatal("failed to load GitHub App credentials", zap.Error(err))
	}

	retryPolicy := config.RetryPolicy()
	openAIClient := initializeOpenAIClient(config.OpenAIToken, logger)
	provider := review.NewOpenAIProvider(openAIClient, config.OpenAIModel)

	// One installation-scoped client per job: the cached token stays owned
	// by that job's processing chain.
	factory := func(installationID int64) worker.GitHub {
		tokens := githubapp.NewTokenProvider(appAuth, installationID, retryPolicy)
		return githubapp.NewClient(tokens, retryPolicy)
	}
	processor := worker.NewProcessor(factory, provider, config.DiffCharLimit, logger)

	queueClient, err := queue.DialWithRetry(config.QueueConfig(), config.ReconnectPolicy(), logger)
	if err != nil {
		logger.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer queueClient.Close()

	health := echo.New()
	health.HideBanner = true
	health.HidePort = true
	routes.CreateWorkerRoutes(health, queueClient)
	go func() {
		addr := fmt.Sprintf("0.0.0.0:%d", config.HealthPort)
		logger.Info("health server listening", zap.String("addr", addr))
		if err := health.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server stopped", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := worker.NewConsumer(queueClient, config.ReconnectPolicy(), processor.Process, logger)
	logger.Info("waiting for messages", zap.String("queue", config.QueueName))
	err = consumer.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = health.Shutdown(shutdownCtx)

	if err != nil {
		logger.Fatal("consumer terminated", zap.Error(err))
	}
	logger.Info("worker stopped")
}
