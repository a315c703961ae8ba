package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/ledger"
	"github.com/emilythestrangee/qa-forum/backend/internal/ledger/memstore"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

func fastOptions(attempts int) Options {
	return Options{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func serializationFailure() error {
	return &pgconn.PgError{Code: "40001", Message: "could not serialize access due to read/write dependencies among transactions"}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization", serializationFailure(), true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"connection class", &pgconn.PgError{Code: "08006"}, true},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"wrapped serialization", fmt.Errorf("update rating: %w", serializationFailure()), true},
		{"bad conn", driver.ErrBadConn, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"typed transient", apperr.Transient(errors.New("x")), true},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "idx_answers_one_accepted"}, false},
		{"not found", apperr.NotFound("nope"), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestRunRetriesTransientFailures(t *testing.T) {
	store := memstore.New()
	author := store.AddUser()
	q := store.AddQuestion(author)
	store.FailCommits(serializationFailure(), serializationFailure())

	c := New(store, fastOptions(5))
	calls := 0
	err := c.Run(context.Background(), "test", nil, func(tx ledger.Tx) error {
		calls++
		_, err := tx.AddPostRating(context.Background(), models.QuestionTarget(q), 1)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, store.Rating(models.QuestionTarget(q)), "only the committed attempt is visible")
}

func TestRunExhaustsBudget(t *testing.T) {
	store := memstore.New()
	store.FailCommits(serializationFailure(), serializationFailure(), serializationFailure())

	c := New(store, fastOptions(3))
	err := c.Run(context.Background(), "test", nil, func(tx ledger.Tx) error { return nil })

	assert.ErrorIs(t, err, apperr.ErrTransient)
	assert.Equal(t, 3, store.Attempts())

	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr), "cause is kept for logs")
	assert.Equal(t, "storage is temporarily unavailable, retry the request", apperr.PublicMessage(err))
}

func TestRunPassesTypedErrorsThrough(t *testing.T) {
	store := memstore.New()
	c := New(store, fastOptions(5))

	err := c.Run(context.Background(), "test", nil, func(tx ledger.Tx) error {
		return apperr.Forbidden("cannot vote on own post")
	})

	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, 1, store.Attempts())
}

func TestRunHidesUnknownErrors(t *testing.T) {
	store := memstore.New()
	c := New(store, fastOptions(5))

	err := c.Run(context.Background(), "test", nil, func(tx ledger.Tx) error {
		return errors.New(`pq: relation "votes" does not exist`)
	})

	assert.ErrorIs(t, err, apperr.ErrUnknown)
	assert.Equal(t, "internal server error", apperr.PublicMessage(err))
	assert.NotContains(t, apperr.PublicMessage(err), "votes")
	assert.Equal(t, 1, store.Attempts())
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	store := memstore.New()
	c := New(store, fastOptions(5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx, "test", nil, func(tx ledger.Tx) error { return nil })

	assert.ErrorIs(t, err, apperr.ErrTransient)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Attempts())
}

func TestRunRejectsConstraintViolationsWithoutRetry(t *testing.T) {
	store := memstore.New()
	c := New(store, fastOptions(5))

	err := c.Run(context.Background(), "test", nil, func(tx ledger.Tx) error {
		return fmt.Errorf("set is_accepted=true: %w", &pgconn.PgError{
			Code:           "23505",
			Message:        "duplicate key value violates unique constraint",
			ConstraintName: "idx_answers_one_accepted",
		})
	})

	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.NotErrorIs(t, err, apperr.ErrTransient)
	assert.Equal(t, 1, store.Attempts())
	assert.Equal(t, http.StatusConflict, apperr.HTTPStatus(err))
	assert.NotContains(t, apperr.PublicMessage(err), "idx_answers_one_accepted")
}

func TestRunKeepsTypedErrorsWhenContextEnds(t *testing.T) {
	store := memstore.New()
	c := New(store, fastOptions(5))
	ctx, cancel := context.WithCancel(context.Background())

	err := c.Run(ctx, "test", nil, func(tx ledger.Tx) error {
		cancel()
		return apperr.NotFound("answer %d not found", 7)
	})

	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NotErrorIs(t, err, apperr.ErrTransient)
	assert.Equal(t, 1, store.Attempts())
}

func TestNewAppliesDefaults(t *testing.T) {
	c := New(memstore.New(), Options{})
	assert.Equal(t, DefaultMaxAttempts, c.opts.MaxAttempts)
	assert.Equal(t, DefaultInitialBackoff, c.opts.InitialBackoff)
	assert.Equal(t, DefaultMaxBackoff, c.opts.MaxBackoff)
}
