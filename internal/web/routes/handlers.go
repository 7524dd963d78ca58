package routes

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Zahidur-Rahman/Dev-Guardian/internal/web"
	"github.com/Zahidur-Rahman/Dev-Guardian/internal/webhook"
)

const eventTypeHeader = "X-GitHub-Event"

type WebhookController struct {
	Queue    JobQueue
	Verifier webhook.Verifier
}

// HandleWebhook validates an inbound GitHub event and, when actionable,
// enqueues a review job. The raw payload is never trusted before the
// signature check and never retained past job construction.
func (controller *WebhookController) HandleWebhook(e echo.Context) error {
	cc := e.(*web.AppContext)

	body, err := io.ReadAll(e.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	signature := e.Request().Header.Get(controller.Verifier.HeaderName())
	if err := controller.Verifier.Verify(body, signature); err != nil {
		cc.AppLogger.Warn("webhook signature rejected", zap.Error(err))
		return echo.NewHTTPError(http.StatusForbidden, "Signature mismatch.")
	}

	eventType := e.Request().Header.Get(eventTypeHeader)
	job, err := webhook.BuildJob(eventType, body)
	if err != nil {
		cc.AppLogger.Warn("malformed webhook payload",
			zap.String("event", eventType),
			zap.Error(err),
		)
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed payload.")
	}
	if job == nil {
		cc.AppLogger.Debug("event ignored", zap.String("event", eventType))
		return e.JSON(http.StatusOK, map[string]string{"status": "Event ignored"})
	}

	if err := controller.Queue.Publish(e.Request().Context(), job); err != nil {
		cc.AppLogger.Error("failed to publish job", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to connect to message queue.")
	}

	cc.AppLogger.Info("job queued",
		zap.Int("pr_number", job.PRNumber),
		zap.String("repo", job.Repository.FullName),
	)
	return e.JSON(http.StatusOK, map[string]string{"status": "Job queued successfully"})
}

func healthHandler(service string) echo.HandlerFunc {
	return func(e echo.Context) error {
		return e.JSON(http.StatusOK, map[string]string{"status": "healthy", "service": service})
	}
}

func readyHandler(jobQueue JobQueue) echo.HandlerFunc {
	return func(e echo.Context) error {
		if !jobQueue.Connected() {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "RabbitMQ not connected")
		}
		return e.JSON(http.StatusOK, map[string]string{"status": "ready", "rabbitmq": "connected"})
	}
}
