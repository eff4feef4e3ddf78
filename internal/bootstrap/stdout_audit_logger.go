package bootstrap

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AuditLog is one entry handed to an AuditLogger.
type AuditLog struct {
	Action  string
	Message string
	Meta    map[string]any
}

// AuditLogger receives server lifecycle entries from StartHTTPServer.
type AuditLogger interface {
	Log(ctx context.Context, entry AuditLog)
}

type StdoutAuditLogger struct{}

func NewStdoutAuditLogger() *StdoutAuditLogger {
	return &StdoutAuditLogger{}
}

func (l *StdoutAuditLogger) Log(ctx context.Context, entry AuditLog) {
	zap.L().Named("audit").Info("audit event",
		zap.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
		zap.String("action", entry.Action),
		zap.String("message", entry.Message),
		zap.Any("meta", entry.Meta),
	)
}
