package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const (
	// ContextKeyUserID carries the authenticated user id through contexts.
	ContextKeyUserID contextKey = "user_id"
	// ContextKeyChannelID carries the chat channel id through contexts.
	ContextKeyChannelID contextKey = "channel_id"
	// ContextKeyStreamID carries the live stream id through contexts.
	ContextKeyStreamID contextKey = "stream_id"
)

// ContextLogger provides context-aware logging
type ContextLogger struct {
	logger *zap.Logger
}

// NewContextLogger creates a new context logger
func NewContextLogger(logger *zap.Logger) *ContextLogger {
	return &ContextLogger{logger: logger}
}

// WithContext adds known context fields to the logger
func (cl *ContextLogger) WithContext(ctx context.Context) *zap.Logger {
	fields := []zapcore.Field{}

	if userID, ok := ctx.Value(ContextKeyUserID).(string); ok && userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}
	if channelID, ok := ctx.Value(ContextKeyChannelID).(string); ok && channelID != "" {
		fields = append(fields, zap.String("channel_id", channelID))
	}
	if streamID, ok := ctx.Value(ContextKeyStreamID).(string); ok && streamID != "" {
		fields = append(fields, zap.String("stream_id", streamID))
	}

	if len(fields) == 0 {
		return cl.logger
	}
	return cl.logger.With(fields...)
}

// WithFields adds custom fields to logger
func (cl *ContextLogger) WithFields(fields ...zapcore.Field) *zap.Logger {
	return cl.logger.With(fields...)
}

// WithError adds error to logger
func (cl *ContextLogger) WithError(err error) *zap.Logger {
	return cl.logger.With(zap.Error(err))
}
