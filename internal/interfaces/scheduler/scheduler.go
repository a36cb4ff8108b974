package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// ScheduleTime is a time of day at which a sync run starts.
type ScheduleTime struct {
	Hour   int
	Minute int
}

// String returns the time in HH:MM format.
func (st ScheduleTime) String() string {
	return fmt.Sprintf("%02d:%02d", st.Hour, st.Minute)
}

// ParseScheduleTime parses a time string in HH:MM format.
func ParseScheduleTime(s string) (ScheduleTime, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return ScheduleTime{}, fmt.Errorf("invalid time format (expected HH:MM): %w", err)
	}

	if hour < 0 || hour > 23 {
		return ScheduleTime{}, fmt.Errorf("invalid hour: %d (must be 0-23)", hour)
	}
	if minute < 0 || minute > 59 {
		return ScheduleTime{}, fmt.Errorf("invalid minute: %d (must be 0-59)", minute)
	}

	return ScheduleTime{Hour: hour, Minute: minute}, nil
}

// JobProvider lists the jobs for one scheduled run.
type JobProvider func(context.Context) ([]Job, error)

// Config holds configuration for the scheduler.
type Config struct {
	ScheduleTimes []string
	WorkerCount   int
	JobDelay      time.Duration
	JobTimeout    time.Duration
	QueueSize     int
	RunOnStartup  bool
	JobProvider   JobProvider
}

// Scheduler submits a batch of jobs to its worker pool at fixed times of day.
type Scheduler struct {
	workerPool    *WorkerPool
	scheduleTimes []ScheduleTime
	runOnStartup  bool
	jobProvider   JobProvider

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastRun string
}

// NewScheduler creates a new scheduler with the given configuration.
func NewScheduler(config Config) (*Scheduler, error) {
	scheduleTimes := make([]ScheduleTime, 0, len(config.ScheduleTimes))
	for _, timeStr := range config.ScheduleTimes {
		st, err := ParseScheduleTime(timeStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse schedule time %q: %w", timeStr, err)
		}
		scheduleTimes = append(scheduleTimes, st)
	}

	if len(scheduleTimes) == 0 {
		return nil, fmt.Errorf("at least one schedule time is required")
	}
	if config.JobProvider == nil {
		return nil, fmt.Errorf("a job provider is required")
	}

	sort.Slice(scheduleTimes, func(i, j int) bool {
		a, b := scheduleTimes[i], scheduleTimes[j]
		return a.Hour*60+a.Minute < b.Hour*60+b.Minute
	})

	ctx, cancel := context.WithCancel(context.Background())

	log.Printf("Scheduler initialized with %d schedule times: %v", len(scheduleTimes), config.ScheduleTimes)
	log.Printf("Worker pool: %d workers, %v delay between jobs", config.WorkerCount, config.JobDelay)

	return &Scheduler{
		workerPool:    NewWorkerPool(config.WorkerCount, config.JobDelay, config.JobTimeout, config.QueueSize),
		scheduleTimes: scheduleTimes,
		runOnStartup:  config.RunOnStartup,
		jobProvider:   config.JobProvider,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Start launches the scheduler and worker pool.
func (s *Scheduler) Start() {
	s.workerPool.Start()

	if s.runOnStartup {
		log.Println("Scheduler: Running initial job batch on startup")
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runJobs()
		}()
	}

	s.wg.Add(1)
	go s.scheduleLoop()

	log.Printf("Scheduler started, next run at %s", s.NextScheduledTime(time.Now()).Format(time.RFC3339))
}

func (s *Scheduler) scheduleLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case now := <-ticker.C:
			if s.shouldRun(now) {
				log.Printf("Scheduler: Triggered at %s", now.Format("15:04"))
				s.runJobs()
			}
		}
	}
}

// shouldRun reports whether now matches a schedule time not yet run this minute.
func (s *Scheduler) shouldRun(now time.Time) bool {
	key := now.Format("2006-01-02 15:04")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastRun == key {
		return false
	}

	for _, st := range s.scheduleTimes {
		if now.Hour() == st.Hour && now.Minute() == st.Minute {
			s.lastRun = key
			return true
		}
	}

	return false
}

// runJobs asks the provider for jobs and submits them to the worker pool.
func (s *Scheduler) runJobs() int {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	jobs, err := s.jobProvider(ctx)
	if err != nil {
		log.Printf("Scheduler: Failed to fetch jobs: %v", err)
		return 0
	}

	if len(jobs) == 0 {
		log.Println("Scheduler: No families to sync")
		return 0
	}

	log.Printf("Scheduler: Submitting %d jobs to worker pool", len(jobs))
	return s.workerPool.SubmitBatch(jobs)
}

// Shutdown gracefully stops the scheduler and worker pool.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	log.Println("Scheduler: Initiating graceful shutdown...")

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		log.Println("Scheduler: Timeout waiting for scheduler loop to stop")
	}

	s.workerPool.ShutdownWithTimeout(timeout)

	log.Println("Scheduler: Shutdown complete")
}

// NextScheduledTime returns the first schedule time strictly after now.
func (s *Scheduler) NextScheduledTime(now time.Time) time.Time {
	for _, st := range s.scheduleTimes {
		scheduled := time.Date(now.Year(), now.Month(), now.Day(), st.Hour, st.Minute, 0, 0, now.Location())
		if scheduled.After(now) {
			return scheduled
		}
	}

	st := s.scheduleTimes[0]
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), st.Hour, st.Minute, 0, 0, now.Location())
}
