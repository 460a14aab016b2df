package audit

import (
	"context"
	"log/slog"
	"time"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

type requestIDKey struct{}

// WithRequestID stamps the request id audit entries are correlated by
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func (al *Logger) LogAction(ctx context.Context, userID, action, resource, resourceID, status, details string) {
	requestID := ""
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		requestID = reqID
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogLogin(ctx context.Context, userID, status string) {
	al.LogAction(ctx, userID, "login", "session", "", status, "")
}

func (al *Logger) LogRegistration(ctx context.Context, userID, status string) {
	al.LogAction(ctx, userID, "register", "user", userID, status, "")
}

func (al *Logger) LogMutation(ctx context.Context, userID, action, resource, resourceID, status string) {
	al.LogAction(ctx, userID, action, resource, resourceID, status, "")
}

func (al *Logger) LogDenied(ctx context.Context, userID, reason string) {
	al.LogAction(ctx, userID, "access_denied", "api", "", "denied", reason)
}
