package database

import (
	"context"
	"fmt"

	"github.com/emilythestrangee/qa-forum/backend/internal/ledger"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

const postDriftQuery = `
SELECT 'question' AS kind, q.id, q.rating AS stored, COALESCE(SUM(v.vote_type), 0) AS computed
FROM questions q
LEFT JOIN votes v ON v.question_id = q.id
GROUP BY q.id
HAVING q.rating <> COALESCE(SUM(v.vote_type), 0)
UNION ALL
SELECT 'answer' AS kind, a.id, a.rating AS stored, COALESCE(SUM(v.vote_type), 0) AS computed
FROM answers a
LEFT JOIN votes v ON v.answer_id = a.id
GROUP BY a.id
HAVING a.rating <> COALESCE(SUM(v.vote_type), 0)
ORDER BY id`

const userDriftQuery = `
WITH received AS (
	SELECT q.author_id AS user_id, v.vote_type FROM votes v JOIN questions q ON q.id = v.question_id
	UNION ALL
	SELECT a.author_id AS user_id, v.vote_type FROM votes v JOIN answers a ON a.id = v.answer_id
)
SELECT u.id AS user_id, u.rating AS stored, COALESCE(SUM(r.vote_type), 0) AS computed
FROM users u
LEFT JOIN received r ON r.user_id = u.id
GROUP BY u.id
HAVING u.rating <> COALESCE(SUM(r.vote_type), 0)
ORDER BY u.id`

// PostRatingDrift lists posts whose stored rating differs from the sum of
// their votes. It reads without locks.
func (l *Ledger) PostRatingDrift(ctx context.Context) ([]ledger.PostDrift, error) {
	var rows []struct {
		Kind     string
		ID       int
		Stored   int
		Computed int
	}
	if err := l.db.WithContext(ctx).Raw(postDriftQuery).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("compute post rating drift: %w", err)
	}

	out := make([]ledger.PostDrift, 0, len(rows))
	for _, r := range rows {
		out = append(out, ledger.PostDrift{
			Target:   models.VoteTarget{Kind: models.PostKind(r.Kind), ID: r.ID},
			Stored:   r.Stored,
			Computed: r.Computed,
		})
	}
	return out, nil
}

// UserRatingDrift lists users whose stored rating differs from the votes
// received on their questions and answers.
func (l *Ledger) UserRatingDrift(ctx context.Context) ([]ledger.UserDrift, error) {
	var out []ledger.UserDrift
	if err := l.db.WithContext(ctx).Raw(userDriftQuery).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("compute user rating drift: %w", err)
	}
	return out, nil
}

var _ ledger.DriftSource = (*Ledger)(nil)
