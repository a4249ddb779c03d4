package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Job is a unit of periodic background work.
type Job interface {
	Name() string
	// Schedule is a standard 5-field cron expression. Empty means on-demand only.
	Schedule() string
	Run(ctx context.Context) error
}

type Scheduler struct {
	cron   *cron.Cron
	jobs   []Job
	ctx    context.Context
	cancel context.CancelFunc
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) Register(job Job) error {
	if schedule := job.Schedule(); schedule != "" {
		if _, err := s.cron.AddFunc(schedule, func() { s.execute(s.ctx, job) }); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.Name(), err)
		}
		log.Printf("📅 [%s] Scheduled with cron: %s", job.Name(), schedule)
	} else {
		log.Printf("📝 [%s] Registered as on-demand job", job.Name())
	}

	s.jobs = append(s.jobs, job)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("🚀 Scheduler started with %d jobs", len(s.jobs))
}

// Stop cancels running jobs and waits for them until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()

	select {
	case <-done.Done():
		log.Println("🛑 Scheduler stopped")
	case <-ctx.Done():
		log.Println("⚠️ Scheduler stop timed out with jobs still running")
	}
}

func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			log.Printf("🎯 [%s] Running on-demand execution...", name)
			return job.Run(ctx)
		}
	}
	return fmt.Errorf("job %q not registered", name)
}

func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}

func (s *Scheduler) execute(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [%s] Job panicked: %v", job.Name(), r)
		}
	}()

	log.Printf("🤖 [%s] Starting scheduled job...", job.Name())
	if err := job.Run(ctx); err != nil {
		log.Printf("❌ [%s] Job failed: %v", job.Name(), err)
		return
	}
	log.Printf("✅ [%s] Job completed", job.Name())
}
