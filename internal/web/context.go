package web

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AppContext carries the application logger into every request handler.
type AppContext struct {
	echo.Context
	AppLogger *zap.Logger
}

// CreateAppContext wraps each request context in an AppContext.
func CreateAppContext(
	logger *zap.Logger,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, logger}
			return next(cc)
		}
	}
}
