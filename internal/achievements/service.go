// Package achievements grants catalog achievements to users. Granting is
// idempotent.
package achievements

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/metrics"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

type Store interface {
	// Award reports false when the user already holds the achievement.
	Award(ctx context.Context, userID int, code string) (bool, error)
	List(ctx context.Context, userID int) ([]models.UserAchievement, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Award grants code to userID. An unknown user or code is logged and
// otherwise ignored.
func (s *Service) Award(ctx context.Context, userID int, code string) error {
	logger := log.WithFields(log.Fields{"userId": userID, "code": code})

	created, err := s.store.Award(ctx, userID, code)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		logger.WithError(err).Warn("achievement not awarded")
		return nil
	case err != nil:
		return fmt.Errorf("award achievement %s to user %d: %w", code, userID, err)
	}

	if created {
		metrics.AchievementsAwarded.WithLabelValues(code).Inc()
		logger.Info("achievement awarded")
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID int) ([]models.UserAchievement, error) {
	list, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements for user %d: %w", userID, err)
	}
	return list, nil
}
