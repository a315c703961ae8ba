package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/qa-forum/backend/internal/ledger"
	"github.com/emilythestrangee/qa-forum/backend/internal/ledger/memstore"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/retry"
	"github.com/emilythestrangee/qa-forum/backend/internal/voting"
)

func setup(t *testing.T) (*memstore.Store, *retry.Coordinator, int, int) {
	t.Helper()
	store := memstore.New()
	coord := retry.New(store, retry.Options{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond})
	author := store.AddUser()
	q := store.AddQuestion(author)

	engine := voting.NewEngine(coord)
	for i := 0; i < 3; i++ {
		_, err := engine.CastVote(context.Background(), store.AddUser(), &q, nil, models.VoteUp)
		require.NoError(t, err)
	}
	return store, coord, author, q
}

func TestAuditReportsWithoutRepair(t *testing.T) {
	store, coord, _, q := setup(t)
	target := models.QuestionTarget(q)
	store.CorruptPostRating(target, 10)

	report, err := NewRatingAuditor(store, coord, false).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []ledger.PostDrift{{Target: target, Stored: 10, Computed: 3}}, report.Posts)
	assert.Empty(t, report.Users)
	assert.Zero(t, report.Repaired)
	assert.Equal(t, 10, store.Rating(target))
}

func TestAuditRepairsDrift(t *testing.T) {
	store, coord, author, q := setup(t)
	target := models.QuestionTarget(q)
	store.CorruptPostRating(target, -4)
	require.NoError(t, store.InTx(context.Background(), func(tx ledger.Tx) error {
		return tx.SetUserRating(context.Background(), author, 99)
	}))

	report, err := NewRatingAuditor(store, coord, true).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Repaired)

	assert.Equal(t, 3, store.Rating(target))
	assert.Equal(t, 3, store.UserRating(author))

	report, err = NewRatingAuditor(store, coord, true).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Posts)
	assert.Empty(t, report.Users)
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	store := memstore.New()
	s := NewScheduler(NewRatingAuditor(store, retry.New(store, retry.Options{}), false), "not a schedule")
	assert.Error(t, s.Start(context.Background()))
}
