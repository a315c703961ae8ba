// Package memstore is an in-process ledger. Each unit of work runs on a
// private copy of the state that replaces the shared state only on commit, and
// units are serialised, which gives the same guarantees the engines get from
// row locks in PostgreSQL. Commit failures can be injected to exercise the
// retry path.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/ledger"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

// ErrUniqueViolation is returned for a second vote by the same user on the
// same post, shaped like the PostgreSQL error for the same case.
var ErrUniqueViolation = &pgconn.PgError{
	Severity:       "ERROR",
	Code:           "23505",
	Message:        "duplicate key value violates unique constraint",
	ConstraintName: "idx_votes_user_target",
}

type question struct {
	authorID int
	rating   int
}

type answer struct {
	authorID   int
	questionID int
	rating     int
	accepted   bool
}

type awardKey struct {
	userID int
	code   string
}

type state struct {
	users     map[int]int
	questions map[int]question
	answers   map[int]answer
	votes     map[int]models.Vote
	catalog   map[string]models.Achievement
	awarded   map[awardKey]time.Time
	nextID    int
}

func (s *state) clone() *state {
	c := &state{
		users:     make(map[int]int, len(s.users)),
		questions: make(map[int]question, len(s.questions)),
		answers:   make(map[int]answer, len(s.answers)),
		votes:     make(map[int]models.Vote, len(s.votes)),
		catalog:   s.catalog,
		awarded:   make(map[awardKey]time.Time, len(s.awarded)),
		nextID:    s.nextID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.questions {
		c.questions[k] = v
	}
	for k, v := range s.answers {
		c.answers[k] = v
	}
	for k, v := range s.votes {
		c.votes[k] = v
	}
	for k, v := range s.awarded {
		c.awarded[k] = v
	}
	return c
}

func (s *state) id() int {
	s.nextID++
	return s.nextID
}

type Store struct {
	mu       sync.Mutex
	st       *state
	failures []error
	attempts int
}

func New() *Store {
	catalog := map[string]models.Achievement{}
	for i, code := range []string{models.AchievementRegistration, models.AchievementFirstQuestion, models.AchievementFirstAnswer} {
		catalog[code] = models.Achievement{ID: i + 1, Code: code, Name: code}
	}
	return &Store{st: &state{
		users:     map[int]int{},
		questions: map[int]question{},
		answers:   map[int]answer{},
		votes:     map[int]models.Vote{},
		catalog:   catalog,
		awarded:   map[awardKey]time.Time{},
	}}
}

// InTx runs fn on a private copy of the state and publishes it on success.
func (s *Store) InTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	work := s.st.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return err
	}
	s.st = work
	return nil
}

// FailCommits makes the next len(errs) units fail at commit time with the
// given errors, after their bodies have run.
func (s *Store) FailCommits(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}

// Attempts counts every unit started, committed or not.
func (s *Store) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *Store) AddUser() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.st.id()
	s.st.users[id] = 0
	return id
}

func (s *Store) AddQuestion(authorID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.st.id()
	s.st.questions[id] = question{authorID: authorID}
	return id
}

func (s *Store) AddAnswer(questionID, authorID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.st.id()
	s.st.answers[id] = answer{authorID: authorID, questionID: questionID}
	return id
}

// ForceAccepted sets the flag directly, bypassing the acceptance engine. It
// exists to build anomalous states in tests.
func (s *Store) ForceAccepted(answerID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.st.answers[answerID]
	a.accepted = true
	s.st.answers[answerID] = a
}

// CorruptPostRating overwrites a stored rating without touching votes.
func (s *Store) CorruptPostRating(target models.VoteTarget, rating int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = (&tx{st: s.st}).SetPostRating(context.Background(), target, rating)
}

func (s *Store) Rating(target models.VoteTarget) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, _ := (&tx{st: s.st}).PostRating(context.Background(), target)
	return r
}

func (s *Store) UserRating(userID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.users[userID]
}

// VotesOn returns the vote rows pointing at target, ordered by id.
func (s *Store) VotesOn(target models.VoteTarget) []models.Vote {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Vote
	for _, v := range s.st.votes {
		if t, ok := v.Target(); ok && t == target {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Accepted(questionID int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, _ := (&tx{st: s.st}).AcceptedAnswers(context.Background(), questionID)
	return ids
}

func (s *Store) PostRatingDrift(ctx context.Context) ([]ledger.PostDrift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sums := map[models.VoteTarget]int{}
	for _, v := range s.st.votes {
		if t, ok := v.Target(); ok {
			sums[t] += v.VoteType.Weight()
		}
	}
	var out []ledger.PostDrift
	for id, q := range s.st.questions {
		t := models.QuestionTarget(id)
		if q.rating != sums[t] {
			out = append(out, ledger.PostDrift{Target: t, Stored: q.rating, Computed: sums[t]})
		}
	}
	for id, a := range s.st.answers {
		t := models.AnswerTarget(id)
		if a.rating != sums[t] {
			out = append(out, ledger.PostDrift{Target: t, Stored: a.rating, Computed: sums[t]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target.ID < out[j].Target.ID })
	return out, nil
}

func (s *Store) UserRatingDrift(ctx context.Context) ([]ledger.UserDrift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sums := map[int]int{}
	for _, v := range s.st.votes {
		t, ok := v.Target()
		if !ok {
			continue
		}
		if t.Kind == models.PostQuestion {
			sums[s.st.questions[t.ID].authorID] += v.VoteType.Weight()
		} else {
			sums[s.st.answers[t.ID].authorID] += v.VoteType.Weight()
		}
	}
	var out []ledger.UserDrift
	for id, rating := range s.st.users {
		if rating != sums[id] {
			out = append(out, ledger.UserDrift{UserID: id, Stored: rating, Computed: sums[id]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Award records code for userID once. The boolean is false when the user
// already had it.
func (s *Store) Award(ctx context.Context, userID int, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.users[userID]; !ok {
		return false, apperr.NotFound("user %d not found", userID)
	}
	if _, ok := s.st.catalog[code]; !ok {
		return false, apperr.NotFound("achievement %q not found", code)
	}
	key := awardKey{userID: userID, code: code}
	if _, ok := s.st.awarded[key]; ok {
		return false, nil
	}
	s.st.awarded[key] = time.Now().UTC()
	return true, nil
}

func (s *Store) List(ctx context.Context, userID int) ([]models.UserAchievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.UserAchievement
	for key, at := range s.st.awarded {
		if key.userID != userID {
			continue
		}
		a := s.st.catalog[key.code]
		out = append(out, models.UserAchievement{UserID: userID, AchievementID: a.ID, Achievement: a, AwardedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AwardedAt.After(out[j].AwardedAt) })
	return out, nil
}

var _ ledger.Transactor = (*Store)(nil)
var _ ledger.DriftSource = (*Store)(nil)

// HasAnswer reports whether the answer row still exists.
func (s *Store) HasAnswer(answerID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.st.answers[answerID]
	return ok
}
