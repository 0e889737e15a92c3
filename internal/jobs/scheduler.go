package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Purger removes expired flow records
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler manages background jobs
type Scheduler struct {
	cron     *cron.Cron
	purger   Purger
	schedule string
	timeout  time.Duration
	now      func() time.Time
}

// NewScheduler creates a job scheduler purging through p on schedule
func NewScheduler(p Purger, schedule string) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		purger:   p,
		schedule: schedule,
		timeout:  30 * time.Second,
		now:      time.Now,
	}
}

// Start registers the jobs and starts the scheduler
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.cleanupExpired); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.schedule, err)
	}

	// Run cleanup immediately on start
	go s.cleanupExpired()

	s.cron.Start()
	log.Printf("Job scheduler started (cleanup: %s)", s.schedule)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("Job scheduler stopped")
}

// cleanupExpired removes flow sessions and hand-off tickets past their expiry
func (s *Scheduler) cleanupExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	purged, err := s.purger.PurgeExpired(ctx, s.now())
	if err != nil {
		log.Printf("Failed to clean up expired flow records: %v", err)
		return
	}
	if purged > 0 {
		log.Printf("Cleaned up %d expired flow records", purged)
	}
}
