package logging

import (
	"go.uber.org/zap"
)

// NewLogger builds the production structured logger used across the service.
func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	return cfg.Build()
}

// WithOperation enriches the logger with operation and scan identifiers.
func WithOperation(logger *zap.Logger, operation, scanID string) *zap.Logger {
	fields := []zap.Field{zap.String("operation", operation)}
	if scanID != "" {
		fields = append(fields, zap.String("scan_id", scanID))
	}
	return logger.With(fields...)
}
