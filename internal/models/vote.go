package models

import (
	"strings"
	"time"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
)

type VoteType int

const (
	VoteUp   VoteType = 1
	VoteDown VoteType = -1
)

// ParseVoteType accepts "Up"/"Down" in any letter case.
func ParseVoteType(s string) (VoteType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return VoteUp, nil
	case "down":
		return VoteDown, nil
	default:
		return 0, apperr.InvalidArgument("invalid vote type: %q", s)
	}
}

func (t VoteType) Valid() bool {
	return t == VoteUp || t == VoteDown
}

// Weight is the contribution of one vote of this type to a rating.
func (t VoteType) Weight() int {
	return int(t)
}

func (t VoteType) String() string {
	switch t {
	case VoteUp:
		return "Up"
	case VoteDown:
		return "Down"
	default:
		return "Invalid"
	}
}

type PostKind string

const (
	PostQuestion PostKind = "question"
	PostAnswer   PostKind = "answer"
)

// VoteTarget points at exactly one votable post.
type VoteTarget struct {
	Kind PostKind
	ID   int
}

// NewVoteTarget builds a target from the two optional ids a request carries.
// Exactly one of them must be set.
func NewVoteTarget(questionID, answerID *int) (VoteTarget, error) {
	switch {
	case questionID != nil && answerID != nil:
		return VoteTarget{}, apperr.InvalidArgument("vote target must be a question or an answer, not both")
	case questionID != nil:
		return VoteTarget{Kind: PostQuestion, ID: *questionID}, nil
	case answerID != nil:
		return VoteTarget{Kind: PostAnswer, ID: *answerID}, nil
	default:
		return VoteTarget{}, apperr.InvalidArgument("vote target requires a question id or an answer id")
	}
}

func QuestionTarget(id int) VoteTarget { return VoteTarget{Kind: PostQuestion, ID: id} }

func AnswerTarget(id int) VoteTarget { return VoteTarget{Kind: PostAnswer, ID: id} }

// IDs returns the target as the nullable column pair stored on a vote row.
func (t VoteTarget) IDs() (questionID, answerID *int) {
	id := t.ID
	if t.Kind == PostQuestion {
		return &id, nil
	}
	return nil, &id
}

// Vote tracks one user's active vote on one post.
type Vote struct {
	ID         int       `gorm:"primaryKey" json:"id"`
	UserID     int       `gorm:"not null" json:"user_id"`
	QuestionID *int      `json:"question_id,omitempty"`
	AnswerID   *int      `json:"answer_id,omitempty"`
	VoteType   VoteType  `gorm:"not null" json:"vote_type"`
	VotedAt    time.Time `gorm:"not null" json:"voted_at"`
}

// Target reports which post the vote points at. ok is false when the row
// breaks the question-xor-answer rule.
func (v Vote) Target() (VoteTarget, bool) {
	t, err := NewVoteTarget(v.QuestionID, v.AnswerID)
	return t, err == nil
}

type VoteRequest struct {
	VoteType string `json:"voteType" binding:"required"`
}
