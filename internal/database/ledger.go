package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/ledger"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

// Ledger runs units of work in READ COMMITTED PostgreSQL transactions. Every
// unit locks the row it mutates before reading anything that depends on it:
// the post for votes, the parent question for acceptance, the user for rating
// repair. Each later statement takes a fresh snapshot, so it sees whatever the
// previous lock holder committed.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// InTx commits when fn returns nil and rolls back otherwise. A cancelled ctx
// aborts the transaction.
func (l *Ledger) InTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

type gormTx struct {
	db *gorm.DB
}

var lockForUpdate = clause.Locking{Strength: "UPDATE"}

var returningRating = clause.Returning{Columns: []clause.Column{{Name: "rating"}}}

// postRow returns an addressable model for target and a pointer to its rating.
func postRow(target models.VoteTarget) (any, *int) {
	if target.Kind == models.PostQuestion {
		q := &models.Question{ID: target.ID}
		return q, &q.Rating
	}
	a := &models.Answer{ID: target.ID}
	return a, &a.Rating
}

func postTable(target models.VoteTarget) string {
	if target.Kind == models.PostQuestion {
		return "questions"
	}
	return "answers"
}

func voteColumn(target models.VoteTarget) string {
	if target.Kind == models.PostQuestion {
		return "question_id"
	}
	return "answer_id"
}

func postNotFound(target models.VoteTarget) error {
	return apperr.NotFound("%s %d not found", target.Kind, target.ID)
}

func (t *gormTx) LockPost(ctx context.Context, target models.VoteTarget) (int, error) {
	var authorID int
	res := t.db.WithContext(ctx).
		Table(postTable(target)).
		Clauses(lockForUpdate).
		Select("author_id").
		Where("id = ?", target.ID).
		Scan(&authorID)
	if res.Error != nil {
		return 0, fmt.Errorf("lock %s %d: %w", target.Kind, target.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, postNotFound(target)
	}
	return authorID, nil
}

func (t *gormTx) FindVote(ctx context.Context, userID int, target models.VoteTarget) (*models.Vote, error) {
	var vote models.Vote
	err := t.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where(voteColumn(target)+" = ?", target.ID).
		Take(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find vote: %w", err)
	}
	return &vote, nil
}

func (t *gormTx) InsertVote(ctx context.Context, vote *models.Vote) error {
	if err := t.db.WithContext(ctx).Create(vote).Error; err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

func (t *gormTx) UpdateVote(ctx context.Context, voteID int, voteType models.VoteType, votedAt time.Time) error {
	res := t.db.WithContext(ctx).
		Model(&models.Vote{}).
		Where("id = ?", voteID).
		Updates(map[string]any{"vote_type": int(voteType), "voted_at": votedAt})
	if res.Error != nil {
		return fmt.Errorf("update vote %d: %w", voteID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("vote %d not found", voteID)
	}
	return nil
}

func (t *gormTx) DeleteVote(ctx context.Context, voteID int) error {
	res := t.db.WithContext(ctx).Delete(&models.Vote{}, voteID)
	if res.Error != nil {
		return fmt.Errorf("delete vote %d: %w", voteID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("vote %d not found", voteID)
	}
	return nil
}

func (t *gormTx) AddPostRating(ctx context.Context, target models.VoteTarget, delta int) (int, error) {
	row, rating := postRow(target)
	res := t.db.WithContext(ctx).
		Model(row).
		Clauses(returningRating).
		UpdateColumn("rating", gorm.Expr("rating + ?", delta))
	if res.Error != nil {
		return 0, fmt.Errorf("update %s %d rating: %w", target.Kind, target.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, postNotFound(target)
	}
	return *rating, nil
}

func (t *gormTx) AddUserRating(ctx context.Context, userID int, delta int) error {
	res := t.db.WithContext(ctx).
		Model(&models.User{ID: userID}).
		UpdateColumn("rating", gorm.Expr("rating + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("update user %d rating: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user %d not found", userID)
	}
	return nil
}

func (t *gormTx) PostRating(ctx context.Context, target models.VoteTarget) (int, error) {
	var rating int
	res := t.db.WithContext(ctx).
		Table(postTable(target)).
		Select("rating").
		Where("id = ?", target.ID).
		Scan(&rating)
	if res.Error != nil {
		return 0, fmt.Errorf("read %s %d rating: %w", target.Kind, target.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, postNotFound(target)
	}
	return rating, nil
}

func (t *gormTx) LoadAnswerForAcceptance(ctx context.Context, answerID int) (ledger.AnswerState, error) {
	db := t.db.WithContext(ctx)

	var questionID int
	res := db.Table("answers").Select("question_id").Where("id = ?", answerID).Scan(&questionID)
	if res.Error != nil {
		return ledger.AnswerState{}, fmt.Errorf("load answer %d: %w", answerID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.AnswerState{}, apperr.NotFound("answer %d not found", answerID)
	}

	var authorID int
	res = db.Table("questions").
		Clauses(lockForUpdate).
		Select("author_id").
		Where("id = ?", questionID).
		Scan(&authorID)
	if res.Error != nil {
		return ledger.AnswerState{}, fmt.Errorf("lock question %d: %w", questionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.AnswerState{}, apperr.NotFound("answer %d not found", answerID)
	}

	// Read after the lock: every is_accepted writer holds it first.
	var state ledger.AnswerState
	res = db.Table("answers").
		Select("id AS answer_id, question_id, is_accepted").
		Where("id = ?", answerID).
		Scan(&state)
	if res.Error != nil {
		return ledger.AnswerState{}, fmt.Errorf("load answer %d: %w", answerID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.AnswerState{}, apperr.NotFound("answer %d not found", answerID)
	}
	state.QuestionAuthorID = authorID
	return state, nil
}

func (t *gormTx) AcceptedAnswers(ctx context.Context, questionID int) ([]int, error) {
	var ids []int
	err := t.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("question_id = ? AND is_accepted", questionID).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list accepted answers of question %d: %w", questionID, err)
	}
	return ids, nil
}

func (t *gormTx) SetAccepted(ctx context.Context, answerIDs []int, accepted bool) error {
	if len(answerIDs) == 0 {
		return nil
	}
	res := t.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("id IN ?", answerIDs).
		UpdateColumn("is_accepted", accepted)
	if res.Error != nil {
		return fmt.Errorf("set is_accepted=%t: %w", accepted, res.Error)
	}
	if res.RowsAffected != int64(len(answerIDs)) {
		return apperr.NotFound("answer not found")
	}
	return nil
}

func (t *gormTx) DeleteAnswer(ctx context.Context, answerID int) error {
	db := t.db.WithContext(ctx)
	if err := db.Where("answer_id = ?", answerID).Delete(&models.Vote{}).Error; err != nil {
		return fmt.Errorf("delete votes of answer %d: %w", answerID, err)
	}
	if err := db.Where("answer_id = ?", answerID).Delete(&models.Comment{}).Error; err != nil {
		return fmt.Errorf("delete comments of answer %d: %w", answerID, err)
	}
	res := db.Delete(&models.Answer{}, answerID)
	if res.Error != nil {
		return fmt.Errorf("delete answer %d: %w", answerID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("answer %d not found", answerID)
	}
	return nil
}

func (t *gormTx) SetPostRating(ctx context.Context, target models.VoteTarget, rating int) error {
	row, _ := postRow(target)
	res := t.db.WithContext(ctx).Model(row).UpdateColumn("rating", rating)
	if res.Error != nil {
		return fmt.Errorf("set %s %d rating: %w", target.Kind, target.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return postNotFound(target)
	}
	return nil
}

func (t *gormTx) LockUser(ctx context.Context, userID int) error {
	var id int
	res := t.db.WithContext(ctx).
		Table("users").
		Clauses(lockForUpdate).
		Select("id").
		Where("id = ?", userID).
		Scan(&id)
	if res.Error != nil {
		return fmt.Errorf("lock user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user %d not found", userID)
	}
	return nil
}

func (t *gormTx) SetUserRating(ctx context.Context, userID int, rating int) error {
	res := t.db.WithContext(ctx).Model(&models.User{ID: userID}).UpdateColumn("rating", rating)
	if res.Error != nil {
		return fmt.Errorf("set user %d rating: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user %d not found", userID)
	}
	return nil
}

var _ ledger.Transactor = (*Ledger)(nil)

func (t *gormTx) VoteSum(ctx context.Context, target models.VoteTarget) (int, error) {
	var sum int
	err := t.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select("COALESCE(SUM(vote_type), 0)").
		Where(voteColumn(target)+" = ?", target.ID).
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("sum votes of %s %d: %w", target.Kind, target.ID, err)
	}
	return sum, nil
}

const receivedVoteSumQuery = `
SELECT COALESCE(SUM(v.vote_type), 0)
FROM votes v
LEFT JOIN questions q ON q.id = v.question_id
LEFT JOIN answers a ON a.id = v.answer_id
WHERE q.author_id = ? OR a.author_id = ?`

func (t *gormTx) ReceivedVoteSum(ctx context.Context, userID int) (int, error) {
	var sum int
	if err := t.db.WithContext(ctx).Raw(receivedVoteSumQuery, userID, userID).Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("sum votes received by user %d: %w", userID, err)
	}
	return sum, nil
}
