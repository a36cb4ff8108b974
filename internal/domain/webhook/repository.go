package webhook

import "context"

// LogRepository is the append-only webhook audit log
type LogRepository interface {
	Append(ctx context.Context, entry *LogEntry) error
}
