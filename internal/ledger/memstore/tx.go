package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/ledger"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

type tx struct {
	st *state
}

func (t *tx) LockPost(ctx context.Context, target models.VoteTarget) (int, error) {
	switch target.Kind {
	case models.PostQuestion:
		q, ok := t.st.questions[target.ID]
		if !ok {
			return 0, apperr.NotFound("question %d not found", target.ID)
		}
		return q.authorID, nil
	case models.PostAnswer:
		a, ok := t.st.answers[target.ID]
		if !ok {
			return 0, apperr.NotFound("answer %d not found", target.ID)
		}
		return a.authorID, nil
	}
	return 0, apperr.InvalidArgument("unknown post kind %q", target.Kind)
}

func (t *tx) FindVote(ctx context.Context, userID int, target models.VoteTarget) (*models.Vote, error) {
	for _, v := range t.st.votes {
		if v.UserID != userID {
			continue
		}
		if vt, ok := v.Target(); ok && vt == target {
			found := v
			return &found, nil
		}
	}
	return nil, nil
}

func (t *tx) InsertVote(ctx context.Context, vote *models.Vote) error {
	target, ok := vote.Target()
	if !ok {
		return apperr.InvalidArgument("vote must target exactly one post")
	}
	if existing, _ := t.FindVote(ctx, vote.UserID, target); existing != nil {
		return ErrUniqueViolation
	}
	vote.ID = t.st.id()
	t.st.votes[vote.ID] = *vote
	return nil
}

func (t *tx) UpdateVote(ctx context.Context, voteID int, voteType models.VoteType, votedAt time.Time) error {
	v, ok := t.st.votes[voteID]
	if !ok {
		return apperr.NotFound("vote %d not found", voteID)
	}
	v.VoteType = voteType
	v.VotedAt = votedAt
	t.st.votes[voteID] = v
	return nil
}

func (t *tx) DeleteVote(ctx context.Context, voteID int) error {
	if _, ok := t.st.votes[voteID]; !ok {
		return apperr.NotFound("vote %d not found", voteID)
	}
	delete(t.st.votes, voteID)
	return nil
}

func (t *tx) AddPostRating(ctx context.Context, target models.VoteTarget, delta int) (int, error) {
	current, err := t.PostRating(ctx, target)
	if err != nil {
		return 0, err
	}
	if err := t.SetPostRating(ctx, target, current+delta); err != nil {
		return 0, err
	}
	return current + delta, nil
}

func (t *tx) AddUserRating(ctx context.Context, userID int, delta int) error {
	r, ok := t.st.users[userID]
	if !ok {
		return apperr.NotFound("user %d not found", userID)
	}
	t.st.users[userID] = r + delta
	return nil
}

func (t *tx) PostRating(ctx context.Context, target models.VoteTarget) (int, error) {
	switch target.Kind {
	case models.PostQuestion:
		q, ok := t.st.questions[target.ID]
		if !ok {
			return 0, apperr.NotFound("question %d not found", target.ID)
		}
		return q.rating, nil
	case models.PostAnswer:
		a, ok := t.st.answers[target.ID]
		if !ok {
			return 0, apperr.NotFound("answer %d not found", target.ID)
		}
		return a.rating, nil
	}
	return 0, apperr.InvalidArgument("unknown post kind %q", target.Kind)
}

func (t *tx) SetPostRating(ctx context.Context, target models.VoteTarget, rating int) error {
	switch target.Kind {
	case models.PostQuestion:
		q, ok := t.st.questions[target.ID]
		if !ok {
			return apperr.NotFound("question %d not found", target.ID)
		}
		q.rating = rating
		t.st.questions[target.ID] = q
		return nil
	case models.PostAnswer:
		a, ok := t.st.answers[target.ID]
		if !ok {
			return apperr.NotFound("answer %d not found", target.ID)
		}
		a.rating = rating
		t.st.answers[target.ID] = a
		return nil
	}
	return apperr.InvalidArgument("unknown post kind %q", target.Kind)
}

func (t *tx) LockUser(ctx context.Context, userID int) error {
	if _, ok := t.st.users[userID]; !ok {
		return apperr.NotFound("user %d not found", userID)
	}
	return nil
}

func (t *tx) SetUserRating(ctx context.Context, userID int, rating int) error {
	if _, ok := t.st.users[userID]; !ok {
		return apperr.NotFound("user %d not found", userID)
	}
	t.st.users[userID] = rating
	return nil
}

func (t *tx) LoadAnswerForAcceptance(ctx context.Context, answerID int) (ledger.AnswerState, error) {
	a, ok := t.st.answers[answerID]
	if !ok {
		return ledger.AnswerState{}, apperr.NotFound("answer %d not found", answerID)
	}
	q, ok := t.st.questions[a.questionID]
	if !ok {
		return ledger.AnswerState{}, apperr.NotFound("question %d not found", a.questionID)
	}
	return ledger.AnswerState{
		AnswerID:         answerID,
		QuestionID:       a.questionID,
		IsAccepted:       a.accepted,
		QuestionAuthorID: q.authorID,
	}, nil
}

func (t *tx) AcceptedAnswers(ctx context.Context, questionID int) ([]int, error) {
	var ids []int
	for id, a := range t.st.answers {
		if a.questionID == questionID && a.accepted {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (t *tx) SetAccepted(ctx context.Context, answerIDs []int, accepted bool) error {
	for _, id := range answerIDs {
		a, ok := t.st.answers[id]
		if !ok {
			return apperr.NotFound("answer %d not found", id)
		}
		a.accepted = accepted
		t.st.answers[id] = a
	}
	return nil
}

func (t *tx) DeleteAnswer(ctx context.Context, answerID int) error {
	if _, ok := t.st.answers[answerID]; !ok {
		return apperr.NotFound("answer %d not found", answerID)
	}
	for id, v := range t.st.votes {
		if v.AnswerID != nil && *v.AnswerID == answerID {
			delete(t.st.votes, id)
		}
	}
	delete(t.st.answers, answerID)
	return nil
}

func (t *tx) VoteSum(ctx context.Context, target models.VoteTarget) (int, error) {
	sum := 0
	for _, v := range t.st.votes {
		if vt, ok := v.Target(); ok && vt == target {
			sum += v.VoteType.Weight()
		}
	}
	return sum, nil
}

func (t *tx) ReceivedVoteSum(ctx context.Context, userID int) (int, error) {
	if _, ok := t.st.users[userID]; !ok {
		return 0, apperr.NotFound("user %d not found", userID)
	}
	sum := 0
	for _, v := range t.st.votes {
		target, ok := v.Target()
		if !ok {
			continue
		}
		if author, err := t.LockPost(ctx, target); err == nil && author == userID {
			sum += v.VoteType.Weight()
		}
	}
	return sum, nil
}
