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
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/Zahidur-Rahman/Dev-Guardian/internal"
	"github.com/Zahidur-Rahman/Dev-Guardian/internal/queue"
	"github.com/Zahidur-Rahman/Dev-Guardian/internal/web"
	"github.com/Zahidur-Rahman/Dev-Guardian/internal/web/routes"
	"github.com/Zahidur-Rahman/Dev-Guardian/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()
	logger.Info("starting gateway")

	config, err := internal.LoadConfiguration()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if err := config.ValidateGateway(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	queueClient, err := queue.Dial(config.QueueConfig(), logger)
	if err != nil {
		logger.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	logger.Info("connected to RabbitMQ", zap.String("queue", config.QueueName))

	verifier := webhook.Verifier{
		Secret:    config.WebhookSecret,
		Algorithm: config.SignatureAlgorithm,
	}
	if verifier.Open() {
		logger.Warn("GITHUB_WEBHOOK_SECRET not set, webhook signature verification is disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(web.CreateAppContext(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Skipper:                    middleware.DefaultSkipper,
		ErrorMessage:               "request timeout",
		OnTimeoutRouteErrorHandler: func(err error, c echo.Context) {},
		Timeout:                    15 * time.Second,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogRemoteIP:  true,
		LogMethod:    true,
		LogRequestID: true,
		LogLatency:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.String("remoteip", v.RemoteIP),
				zap.String("requestid", v.RequestID),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	routes.CreateGatewayRoutes(e, queueClient, verifier)

	go func() {
		addr := fmt.Sprintf("0.0.0.0:%d", config.GatewayPort)
		logger.Info("gateway listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down gateway")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queueClient.Close()
	logger.Info("RabbitMQ connection closed")
}
