package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

type AchievementStore struct {
	db *gorm.DB
}

func NewAchievementStore(db *gorm.DB) *AchievementStore {
	return &AchievementStore{db: db}
}

// Award inserts the user achievement unless it already exists. The boolean
// reports whether a row was inserted.
func (s *AchievementStore) Award(ctx context.Context, userID int, code string) (bool, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Select("id").Take(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, apperr.NotFound("user %d not found", userID)
	}
	if err != nil {
		return false, fmt.Errorf("load user %d: %w", userID, err)
	}

	var achievement models.Achievement
	err = db.Where("code = ?", code).Take(&achievement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, apperr.NotFound("achievement %q not found", code)
	}
	if err != nil {
		return false, fmt.Errorf("load achievement %q: %w", code, err)
	}

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
		DoNothing: true,
	}).Create(&models.UserAchievement{
		UserID:        userID,
		AchievementID: achievement.ID,
		AwardedAt:     time.Now().UTC(),
	})
	if res.Error != nil {
		return false, fmt.Errorf("insert user achievement: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// List returns the user's achievements, newest first.
func (s *AchievementStore) List(ctx context.Context, userID int) ([]models.UserAchievement, error) {
	var list []models.UserAchievement
	err := s.db.WithContext(ctx).
		Preload("Achievement").
		Where("user_id = ?", userID).
		Order("awarded_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return list, nil
}
