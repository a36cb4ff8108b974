package scheduler

import "context"

// Job represents a unit of work that can be executed by the worker pool.
type Job interface {
	// Execute runs the job. Implementations must honor ctx cancellation.
	Execute(ctx context.Context) error

	// FamilyID identifies whose data the job touches, for logs and spans.
	FamilyID() int64

	Description() string
}
