package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noJobs(ctx context.Context) ([]Job, error) { return nil, nil }

func TestParseScheduleTime(t *testing.T) {
	tests := []struct {
		input   string
		want    ScheduleTime
		wantErr bool
	}{
		{"05:00", ScheduleTime{Hour: 5}, false},
		{"23:59", ScheduleTime{Hour: 23, Minute: 59}, false},
		{"0:07", ScheduleTime{Minute: 7}, false},
		{"24:00", ScheduleTime{}, true},
		{"12:60", ScheduleTime{}, true},
		{"noon", ScheduleTime{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseScheduleTime(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScheduleTime_String(t *testing.T) {
	assert.Equal(t, "05:07", ScheduleTime{Hour: 5, Minute: 7}.String())
}

func TestNewScheduler_Validation(t *testing.T) {
	_, err := NewScheduler(Config{JobProvider: noJobs})
	assert.Error(t, err, "no schedule times")

	_, err = NewScheduler(Config{ScheduleTimes: []string{"25:00"}, JobProvider: noJobs})
	assert.Error(t, err)

	_, err = NewScheduler(Config{ScheduleTimes: []string{"05:00"}})
	assert.Error(t, err, "no job provider")
}

func TestScheduler_ShouldRunOncePerMinute(t *testing.T) {
	s, err := NewScheduler(Config{ScheduleTimes: []string{"14:00"}, WorkerCount: 1, QueueSize: 1, JobProvider: noJobs})
	require.NoError(t, err)

	at := time.Date(2026, 10, 17, 14, 0, 5, 0, time.UTC)
	assert.True(t, s.shouldRun(at))
	assert.False(t, s.shouldRun(at.Add(30*time.Second)), "same minute")
	assert.False(t, s.shouldRun(at.Add(time.Minute)), "not scheduled")
	assert.True(t, s.shouldRun(at.AddDate(0, 0, 1)), "next day")
}

func TestScheduler_NextScheduledTime(t *testing.T) {
	s, err := NewScheduler(Config{ScheduleTimes: []string{"20:00", "05:00", "14:00"}, WorkerCount: 1, QueueSize: 1, JobProvider: noJobs})
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before first", time.Date(2026, 10, 17, 4, 0, 0, 0, time.UTC), time.Date(2026, 10, 17, 5, 0, 0, 0, time.UTC)},
		{"between", time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC), time.Date(2026, 10, 17, 14, 0, 0, 0, time.UTC)},
		{"exactly on a slot", time.Date(2026, 10, 17, 14, 0, 0, 0, time.UTC), time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)},
		{"after last", time.Date(2026, 10, 17, 21, 0, 0, 0, time.UTC), time.Date(2026, 10, 18, 5, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.NextScheduledTime(tt.now))
		})
	}
}

func TestScheduler_RunJobsSubmitsProviderJobs(t *testing.T) {
	ran := make(chan int64, 2)
	provider := func(ctx context.Context) ([]Job, error) {
		return []Job{
			&funcJob{familyID: 1, run: func(ctx context.Context) error { ran <- 1; return nil }},
			&funcJob{familyID: 2, run: func(ctx context.Context) error { ran <- 2; return nil }},
		}, nil
	}
	s, err := NewScheduler(Config{ScheduleTimes: []string{"05:00"}, WorkerCount: 2, QueueSize: 4, JobProvider: provider})
	require.NoError(t, err)

	s.workerPool.Start()
	assert.Equal(t, 2, s.runJobs())

	got := map[int64]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-ran:
			got[id] = true
		case <-time.After(time.Second):
			t.Fatal("job did not run")
		}
	}
	assert.Equal(t, map[int64]bool{1: true, 2: true}, got)

	s.Shutdown(time.Second)
}
