package routes

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/Zahidur-Rahman/Dev-Guardian/internal/domain"
	"github.com/Zahidur-Rahman/Dev-Guardian/internal/webhook"
)

// JobQueue is the slice of the queue client the HTTP layer needs.
type JobQueue interface {
	Publish(ctx context.Context, job *domain.JobMessage) error
	Connected() bool
}

func CreateGatewayRoutes(e *echo.Echo, jobQueue JobQueue, verifier webhook.Verifier) {
	controller := &WebhookController{Queue: jobQueue, Verifier: verifier}

	e.POST("/webhook", controller.HandleWebhook)
	e.GET("/health", healthHandler("gateway"))
	e.GET("/ready", readyHandler(jobQueue))
}

// CreateWorkerRoutes wires the worker's side-channel health server.
func CreateWorkerRoutes(e *echo.Echo, jobQueue JobQueue) {
	e.GET("/health", healthHandler("worker"))
	e.GET("/ready", readyHandler(jobQueue))
}
