// Package observability provides tracing, domain metrics and repository logging.
package observability

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.Default())
}

// SetLogger replaces the logger used by RepoLogger. The HTTP layer installs
// its context-aware logger here at startup.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger.Store(l)
	}
}

// RepoLogger logs repository writes and failures for one table.
type RepoLogger struct {
	table string
}

// NewRepoLogger creates a RepoLogger for table.
func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{table: table}
}

// LogWrite records a successful mutation.
func (l *RepoLogger) LogWrite(ctx context.Context, operation string, attrs ...any) {
	args := append([]any{
		slog.String("table", l.table),
		slog.String("operation", operation),
	}, attrs...)
	logger.Load().DebugContext(ctx, "repository write", args...)
}

// LogError records a failed repository call.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string, attrs ...any) {
	args := append([]any{
		slog.String("table", l.table),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	}, attrs...)
	logger.Load().ErrorContext(ctx, "repository error", args...)
}
