// Package ledger declares the storage contract the vote and acceptance
// engines run against. Every method of Tx executes inside one atomic unit of
// work; implementations must roll the whole unit back when the callback passed
// to Transactor.InTx returns an error. Reads issued after a Lock* call must
// observe every unit that committed while holding the same lock.
package ledger

import (
	"context"
	"time"

	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

// AnswerState is what the acceptance engine needs to know about an answer.
type AnswerState struct {
	AnswerID         int
	QuestionID       int
	IsAccepted       bool
	QuestionAuthorID int
}

type Tx interface {
	// LockPost locks the post row until the unit ends and returns its author.
	LockPost(ctx context.Context, target models.VoteTarget) (authorID int, err error)
	// FindVote returns nil without error when the user has no vote on target.
	FindVote(ctx context.Context, userID int, target models.VoteTarget) (*models.Vote, error)
	InsertVote(ctx context.Context, vote *models.Vote) error
	UpdateVote(ctx context.Context, voteID int, voteType models.VoteType, votedAt time.Time) error
	DeleteVote(ctx context.Context, voteID int) error
	// AddPostRating applies rating = rating + delta and returns the new value.
	AddPostRating(ctx context.Context, target models.VoteTarget, delta int) (int, error)
	AddUserRating(ctx context.Context, userID int, delta int) error
	PostRating(ctx context.Context, target models.VoteTarget) (int, error)

	// LoadAnswerForAcceptance locks the parent question row until the unit
	// ends, then reads the answer state.
	LoadAnswerForAcceptance(ctx context.Context, answerID int) (AnswerState, error)
	AcceptedAnswers(ctx context.Context, questionID int) ([]int, error)
	SetAccepted(ctx context.Context, answerIDs []int, accepted bool) error

	// DeleteAnswer removes the answer together with its votes and comments.
	DeleteAnswer(ctx context.Context, answerID int) error

	// VoteSum and ReceivedVoteSum recompute ratings from vote rows. They
	// exist for the rating audit; the engines never call them.
	VoteSum(ctx context.Context, target models.VoteTarget) (int, error)
	ReceivedVoteSum(ctx context.Context, userID int) (int, error)
	SetPostRating(ctx context.Context, target models.VoteTarget, rating int) error
	// LockUser locks the user row until the unit ends.
	LockUser(ctx context.Context, userID int) error
	SetUserRating(ctx context.Context, userID int, rating int) error
}

// Transactor runs fn in a single attempt of one atomic unit of work.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// PostDrift is a post whose stored rating differs from the sum of its votes.
type PostDrift struct {
	Target   models.VoteTarget
	Stored   int
	Computed int
}

// UserDrift is a user whose stored rating differs from the sum of the votes
// received on authored posts.
type UserDrift struct {
	UserID   int
	Stored   int
	Computed int
}

// DriftSource recomputes derived ratings from vote rows.
type DriftSource interface {
	PostRatingDrift(ctx context.Context) ([]PostDrift, error)
	UserRatingDrift(ctx context.Context) ([]UserDrift, error)
}
