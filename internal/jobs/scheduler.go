package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler runs background jobs.
type Scheduler struct {
	cron     *cron.Cron
	auditor  *RatingAuditor
	schedule string
}

func NewScheduler(auditor *RatingAuditor, schedule string) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		auditor:  auditor,
		schedule: schedule,
	}
}

// Start registers the jobs and starts the cron loop. Jobs stop receiving new
// work once ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if ctx.Err() != nil {
			return
		}
		log.Debug("[CRON] rating audit")
		report, err := s.auditor.Run(ctx)
		if err != nil {
			log.WithError(err).Error("[CRON] rating audit failed")
			return
		}
		log.WithFields(log.Fields{
			"posts":    len(report.Posts),
			"users":    len(report.Users),
			"repaired": report.Repaired,
		}).Info("[CRON] rating audit finished")
	})
	if err != nil {
		return fmt.Errorf("invalid rating audit schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	log.WithField("schedule", s.schedule).Info("job scheduler started")
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("job scheduler stopped")
}
