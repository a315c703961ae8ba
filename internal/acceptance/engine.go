// Package acceptance lets a question's author mark one answer as accepted.
package acceptance

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/ledger"
	"github.com/emilythestrangee/qa-forum/backend/internal/metrics"
)

const (
	ActionAccepted   = "accepted"
	ActionUnaccepted = "unaccepted"
)

type Runner interface {
	Run(ctx context.Context, op string, fields log.Fields, fn func(tx ledger.Tx) error) error
}

type Result struct {
	Action string `json:"action"`
	// AcceptedAnswerID is nil after an unaccept.
	AcceptedAnswerID *int `json:"acceptedAnswerId"`
	QuestionID       int  `json:"questionId"`
}

type Engine struct {
	runner Runner
}

func NewEngine(runner Runner) *Engine {
	return &Engine{runner: runner}
}

// AcceptAnswer toggles acceptance of answerID. Accepting clears every other
// accepted answer of the same question in the same unit of work.
func (e *Engine) AcceptAnswer(ctx context.Context, callerID, answerID int) (Result, error) {
	fields := log.Fields{"userId": callerID, "answerId": answerID}

	var res Result
	err := e.runner.Run(ctx, "accept_answer", fields, func(tx ledger.Tx) error {
		r, err := toggle(ctx, tx, callerID, answerID)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	metrics.AcceptActions.WithLabelValues(res.Action).Inc()
	return res, nil
}

func toggle(ctx context.Context, tx ledger.Tx, callerID, answerID int) (Result, error) {
	state, err := tx.LoadAnswerForAcceptance(ctx, answerID)
	if err != nil {
		return Result{}, err
	}
	if state.QuestionAuthorID != callerID {
		return Result{}, apperr.Forbidden("only the question author can accept an answer")
	}

	if state.IsAccepted {
		if err := tx.SetAccepted(ctx, []int{answerID}, false); err != nil {
			return Result{}, err
		}
		return Result{Action: ActionUnaccepted, QuestionID: state.QuestionID}, nil
	}

	accepted, err := tx.AcceptedAnswers(ctx, state.QuestionID)
	if err != nil {
		return Result{}, err
	}
	others := make([]int, 0, len(accepted))
	for _, id := range accepted {
		if id != answerID {
			others = append(others, id)
		}
	}
	if len(others) > 1 {
		log.WithFields(log.Fields{
			"questionId": state.QuestionID,
			"accepted":   others,
		}).Warn("question had more than one accepted answer")
	}
	if len(others) > 0 {
		if err := tx.SetAccepted(ctx, others, false); err != nil {
			return Result{}, err
		}
	}
	if err := tx.SetAccepted(ctx, []int{answerID}, true); err != nil {
		return Result{}, err
	}

	id := answerID
	return Result{Action: ActionAccepted, AcceptedAnswerID: &id, QuestionID: state.QuestionID}, nil
}
