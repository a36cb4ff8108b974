package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const defaultJobTimeout = 10 * time.Minute

var (
	jobTracer          = otel.Tracer("ledgerly/scheduler")
	jobMeter           = otel.Meter("ledgerly/scheduler")
	jobDuration, _     = jobMeter.Float64Histogram("scheduler.job.duration", metric.WithDescription("Job execution duration in seconds"), metric.WithUnit("s"))
	jobTotal, _        = jobMeter.Int64Counter("scheduler.job.total", metric.WithDescription("Total jobs executed by status"))
	jobQueueDropped, _ = jobMeter.Int64Counter("scheduler.job.queue_dropped", metric.WithDescription("Jobs dropped due to full queue"))
)

var (
	ErrQueueFull  = errors.New("job queue full")
	ErrPoolClosed = errors.New("worker pool is shut down")
)

// WorkerPool runs jobs on a fixed number of goroutines fed by a bounded queue.
type WorkerPool struct {
	workerCount int
	jobDelay    time.Duration
	jobTimeout  time.Duration
	jobs        chan Job
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool creates a new worker pool.
// jobDelay spaces consecutive jobs on one worker; jobTimeout bounds each Execute.
func NewWorkerPool(workerCount int, jobDelay, jobTimeout time.Duration, queueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	if workerCount < 1 {
		workerCount = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = defaultJobTimeout
	}

	return &WorkerPool{
		workerCount: workerCount,
		jobDelay:    jobDelay,
		jobTimeout:  jobTimeout,
		jobs:        make(chan Job, queueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	log.Printf("Starting worker pool with %d workers", wp.workerCount)

	for i := 1; i <= wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return

		case job, ok := <-wp.jobs:
			if !ok {
				return
			}

			wp.processJob(id, job)

			if wp.jobDelay > 0 {
				select {
				case <-time.After(wp.jobDelay):
				case <-wp.ctx.Done():
					log.Printf("Worker %d shutting down during delay", id)
					return
				}
			}
		}
	}
}

// processJob executes a single job with error handling, logging, and telemetry.
func (wp *WorkerPool) processJob(workerID int, job Job) {
	log.Printf("Worker %d: Processing %s", workerID, job.Description())

	ctx, cancel := context.WithTimeout(wp.ctx, wp.jobTimeout)
	defer cancel()

	ctx, span := jobTracer.Start(ctx, "job.execute",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("job.description", job.Description()),
			attribute.Int64("job.family_id", job.FamilyID()),
		),
	)
	defer span.End()

	start := time.Now()

	if err := job.Execute(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		jobDuration.Record(ctx, time.Since(start).Seconds())
		log.Printf("Worker %d: Error processing %s: %v", workerID, job.Description(), err)
		return
	}

	jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "success")))
	jobDuration.Record(ctx, time.Since(start).Seconds())
	log.Printf("Worker %d: Successfully completed %s", workerID, job.Description())
}

// Submit enqueues a job without blocking.
// Returns ErrQueueFull when the queue is full (the job is dropped) and ErrPoolClosed after shutdown.
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}

	select {
	case wp.jobs <- job:
		return nil
	default:
		jobQueueDropped.Add(context.Background(), 1)
		return fmt.Errorf("%w: dropping job for family %d", ErrQueueFull, job.FamilyID())
	}
}

// SubmitBatch enqueues jobs, logging the ones that could not be queued.
func (wp *WorkerPool) SubmitBatch(jobs []Job) int {
	submitted := 0
	for _, job := range jobs {
		if err := wp.Submit(job); err != nil {
			log.Printf("Failed to submit job for family %d: %v", job.FamilyID(), err)
			continue
		}
		submitted++
	}
	log.Printf("Submitted %d/%d jobs to worker pool", submitted, len(jobs))
	return submitted
}

func (wp *WorkerPool) close() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if !wp.closed {
		wp.closed = true
		close(wp.jobs)
	}
}

// ShutdownWithTimeout stops accepting jobs and lets workers drain the queue.
// If they don't finish within timeout, in-flight jobs are cancelled.
func (wp *WorkerPool) ShutdownWithTimeout(timeout time.Duration) {
	log.Printf("Worker pool: Initiating graceful shutdown with %v timeout", timeout)

	wp.close()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Worker pool: All workers finished gracefully")
	case <-time.After(timeout):
		log.Println("Worker pool: Timeout reached, forcing shutdown")
	}
	wp.cancel()

	log.Println("Worker pool: Shutdown complete")
}
