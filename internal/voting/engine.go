// Package voting applies a user's vote intent to a question or an answer and
// keeps the post rating and the author's rating in step with the vote rows.
package voting

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/ledger"
	"github.com/emilythestrangee/qa-forum/backend/internal/metrics"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

const (
	ActionAdded   = "added vote"
	ActionChanged = "changed vote"
	ActionRemoved = "removed vote"
)

// Runner executes fn as one retried unit of work.
type Runner interface {
	Run(ctx context.Context, op string, fields log.Fields, fn func(tx ledger.Tx) error) error
}

type Result struct {
	Action    string `json:"action"`
	NewRating int    `json:"newRating"`
}

type Engine struct {
	runner Runner
	now    func() time.Time
}

func NewEngine(runner Runner) *Engine {
	return &Engine{runner: runner, now: func() time.Time { return time.Now().UTC() }}
}

// CastVote adds, flips or removes the caller's vote on the post identified by
// exactly one of questionID and answerID.
func (e *Engine) CastVote(ctx context.Context, userID int, questionID, answerID *int, voteType models.VoteType) (Result, error) {
	target, err := models.NewVoteTarget(questionID, answerID)
	if err != nil {
		return Result{}, err
	}
	if !voteType.Valid() {
		return Result{}, apperr.InvalidArgument("invalid vote type: %d", int(voteType))
	}

	fields := log.Fields{
		"userId":   userID,
		"target":   target.Kind,
		"targetId": target.ID,
		"voteType": voteType.String(),
	}

	var res Result
	err = e.runner.Run(ctx, "cast_vote", fields, func(tx ledger.Tx) error {
		r, err := e.apply(ctx, tx, userID, target, voteType)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	metrics.VoteActions.WithLabelValues(res.Action).Inc()
	return res, nil
}

// apply holds no state between attempts. Everything it decides on is read
// through tx after the post row is locked.
func (e *Engine) apply(ctx context.Context, tx ledger.Tx, userID int, target models.VoteTarget, voteType models.VoteType) (Result, error) {
	authorID, err := tx.LockPost(ctx, target)
	if err != nil {
		return Result{}, err
	}

	existing, err := tx.FindVote(ctx, userID, target)
	if err != nil {
		return Result{}, err
	}

	var (
		action string
		delta  int
	)
	switch {
	case existing == nil:
		if authorID == userID {
			return Result{}, apperr.Forbidden("cannot vote on own post")
		}
		questionID, answerID := target.IDs()
		vote := &models.Vote{
			UserID:     userID,
			QuestionID: questionID,
			AnswerID:   answerID,
			VoteType:   voteType,
			VotedAt:    e.now(),
		}
		if err := tx.InsertVote(ctx, vote); err != nil {
			return Result{}, err
		}
		action, delta = ActionAdded, voteType.Weight()

	case existing.VoteType == voteType:
		if err := tx.DeleteVote(ctx, existing.ID); err != nil {
			return Result{}, err
		}
		action, delta = ActionRemoved, -existing.VoteType.Weight()

	default:
		if err := tx.UpdateVote(ctx, existing.ID, voteType, e.now()); err != nil {
			return Result{}, err
		}
		action, delta = ActionChanged, voteType.Weight()-existing.VoteType.Weight()
	}

	if existing != nil && authorID == userID {
		log.WithFields(log.Fields{
			"userId":   userID,
			"target":   target.Kind,
			"targetId": target.ID,
			"voteId":   existing.ID,
		}).Warn("author modified an existing vote on own post")
	}

	var rating int
	if delta != 0 {
		if rating, err = tx.AddPostRating(ctx, target, delta); err != nil {
			return Result{}, err
		}
		if err := tx.AddUserRating(ctx, authorID, delta); err != nil {
			return Result{}, err
		}
	} else if rating, err = tx.PostRating(ctx, target); err != nil {
		return Result{}, err
	}

	return Result{Action: action, NewRating: rating}, nil
}

// RetractAnswer deletes an answer with its votes and takes their combined
// weight back out of the answer author's rating.
func (e *Engine) RetractAnswer(ctx context.Context, answerID int) error {
	target := models.AnswerTarget(answerID)
	return e.runner.Run(ctx, "retract_answer", log.Fields{"answerId": answerID}, func(tx ledger.Tx) error {
		authorID, err := tx.LockPost(ctx, target)
		if err != nil {
			return err
		}
		rating, err := tx.PostRating(ctx, target)
		if err != nil {
			return err
		}
		if rating != 0 {
			if err := tx.AddUserRating(ctx, authorID, -rating); err != nil {
				return err
			}
		}
		return tx.DeleteAnswer(ctx, answerID)
	})
}
