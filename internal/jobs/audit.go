// Package jobs runs background maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/emilythestrangee/qa-forum/backend/internal/ledger"
	"github.com/emilythestrangee/qa-forum/backend/internal/metrics"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

// Runner executes fn as one retried unit of work.
type Runner interface {
	Run(ctx context.Context, op string, fields log.Fields, fn func(tx ledger.Tx) error) error
}

// Report summarises one audit run.
type Report struct {
	Posts    []ledger.PostDrift
	Users    []ledger.UserDrift
	Repaired int
}

// RatingAuditor recomputes ratings from vote rows and reports, or repairs,
// rows whose stored rating disagrees.
type RatingAuditor struct {
	source ledger.DriftSource
	runner Runner
	repair bool
}

func NewRatingAuditor(source ledger.DriftSource, runner Runner, repair bool) *RatingAuditor {
	return &RatingAuditor{source: source, runner: runner, repair: repair}
}

func (a *RatingAuditor) Run(ctx context.Context) (Report, error) {
	var report Report

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		posts, err := a.source.PostRatingDrift(gctx)
		report.Posts = posts
		return err
	})
	g.Go(func() error {
		users, err := a.source.UserRatingDrift(gctx)
		report.Users = users
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("rating audit: %w", err)
	}

	for _, d := range report.Posts {
		metrics.RatingDrift.WithLabelValues(string(d.Target.Kind)).Inc()
		log.WithFields(log.Fields{
			"target":   d.Target.Kind,
			"targetId": d.Target.ID,
			"stored":   d.Stored,
			"computed": d.Computed,
		}).Warn("post rating drift")
	}
	for _, d := range report.Users {
		metrics.RatingDrift.WithLabelValues("user").Inc()
		log.WithFields(log.Fields{
			"userId":   d.UserID,
			"stored":   d.Stored,
			"computed": d.Computed,
		}).Warn("user rating drift")
	}

	if !a.repair {
		return report, nil
	}

	for _, d := range report.Posts {
		if err := a.repairPost(ctx, d.Target); err != nil {
			return report, err
		}
		report.Repaired++
	}
	for _, d := range report.Users {
		if err := a.repairUser(ctx, d.UserID); err != nil {
			return report, err
		}
		report.Repaired++
	}
	return report, nil
}

// repairPost recomputes inside the unit so a vote committed after the audit
// query is not undone.
func (a *RatingAuditor) repairPost(ctx context.Context, target models.VoteTarget) error {
	fields := log.Fields{"target": target.Kind, "targetId": target.ID}
	return a.runner.Run(ctx, "repair_rating", fields, func(tx ledger.Tx) error {
		if _, err := tx.LockPost(ctx, target); err != nil {
			return err
		}
		sum, err := tx.VoteSum(ctx, target)
		if err != nil {
			return err
		}
		return tx.SetPostRating(ctx, target, sum)
	})
}

func (a *RatingAuditor) repairUser(ctx context.Context, userID int) error {
	return a.runner.Run(ctx, "repair_rating", log.Fields{"userId": userID}, func(tx ledger.Tx) error {
		if err := tx.LockUser(ctx, userID); err != nil {
			return err
		}
		sum, err := tx.ReceivedVoteSum(ctx, userID)
		if err != nil {
			return err
		}
		return tx.SetUserRating(ctx, userID, sum)
	})
}
