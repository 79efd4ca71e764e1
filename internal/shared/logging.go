package shared

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const deliveryIDKey contextKey = "delivery_id"

// WithDeliveryID adds a hook delivery ID to the context
func WithDeliveryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, deliveryIDKey, id)
}

// GetDeliveryID retrieves the delivery ID from context, or generates a new one if not present
func GetDeliveryID(ctx context.Context) string {
	if id, ok := ctx.Value(deliveryIDKey).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// SessionLogger returns a logger annotated with the session and delivery IDs so
// every line produced while handling one hook event can be correlated.
func SessionLogger(ctx context.Context, logger *zap.Logger, sessionID string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.With(
		zap.String("session_id", sessionID),
		zap.String("delivery_id", GetDeliveryID(ctx)),
	)
}

// NewLogger builds the process logger. Level is one of debug/info/warn/error;
// an empty level means info.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}

	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
