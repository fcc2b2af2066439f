package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"streammap-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const errorLogSize = 50

// ErrorHandler is the global error handler. Returns the standard error format.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}
	return response.Error(c, message, code, nil)
}

// NewErrorHandler wraps ErrorHandler and records server errors in the health error log.
func NewErrorHandler(rdb *redis.Client) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var e *fiber.Error
		if !errors.As(err, &e) || e.Code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("trace_id", GetTraceID(c)).Str("method", c.Method()).
				Str("path", c.Path()).Msg("unhandled error")
			if rdb != nil {
				entry, _ := json.Marshal(map[string]interface{}{
					"time":     time.Now(),
					"trace_id": GetTraceID(c),
					"method":   c.Method(),
					"path":     c.OriginalURL(),
					"message":  err.Error(),
				})
				ctx := context.Background()
				_ = rdb.LPush(ctx, KeyErrorLog, entry).Err()
				_ = rdb.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1).Err()
			}
		}
		return ErrorHandler(c, err)
	}
}
