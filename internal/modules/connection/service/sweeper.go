package service

import (
	"context"
	"log"
	"sync"
	"time"

	"anoa.com/peerlink/internal/metrics"
	"anoa.com/peerlink/pkg/cache"
)

const sweepLockKey = "lock:connection-sweep"

// SweepJob runs SweepExpired on a schedule. At most one sweep runs at a time,
// per process through mu and across instances through a redis lease.
type SweepJob struct {
	service  ConnectionService
	locker   cache.Locker
	schedule string
	timeout  time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

func NewSweepJob(service ConnectionService, locker cache.Locker, schedule string) *SweepJob {
	return &SweepJob{
		service:  service,
		locker:   locker,
		schedule: schedule,
		timeout:  5 * time.Minute,
		now:      time.Now,
	}
}

func (j *SweepJob) Name() string {
	return "connection-sweep"
}

func (j *SweepJob) Schedule() string {
	return j.schedule
}

func (j *SweepJob) Run(ctx context.Context) error {
	if !j.mu.TryLock() {
		log.Printf("⏭️ [%s] Previous run still in progress, skipping", j.Name())
		metrics.SweepRuns.WithLabelValues("skipped").Inc()
		return nil
	}
	defer j.mu.Unlock()

	release, ok, err := j.locker.Acquire(ctx, sweepLockKey, j.timeout)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("failed").Inc()
		return err
	}
	if !ok {
		log.Printf("⏭️ [%s] Another instance holds the lock, skipping", j.Name())
		metrics.SweepRuns.WithLabelValues("skipped").Inc()
		return nil
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if _, err := j.service.SweepExpired(ctx, j.now()); err != nil {
		metrics.SweepRuns.WithLabelValues("failed").Inc()
		return err
	}
	metrics.SweepRuns.WithLabelValues("ok").Inc()
	return nil
}
