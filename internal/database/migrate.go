package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

// constraints are the integrity rules AutoMigrate cannot express. Every
// statement is safe to run again.
var constraints = []string{
	`DO $$ BEGIN
		ALTER TABLE votes ADD CONSTRAINT chk_votes_one_target CHECK ((question_id IS NULL) <> (answer_id IS NULL));
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
	`DO $$ BEGIN
		ALTER TABLE votes ADD CONSTRAINT chk_votes_type CHECK (vote_type IN (-1, 1));
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
	`DO $$ BEGIN
		ALTER TABLE comments ADD CONSTRAINT chk_comments_one_target CHECK ((question_id IS NULL) <> (answer_id IS NULL));
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
	`DO $$ BEGIN
		ALTER TABLE votes ADD CONSTRAINT fk_votes_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE;
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
	`DO $$ BEGIN
		ALTER TABLE votes ADD CONSTRAINT fk_votes_question FOREIGN KEY (question_id) REFERENCES questions (id) ON DELETE CASCADE;
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
	`DO $$ BEGIN
		ALTER TABLE votes ADD CONSTRAINT fk_votes_answer FOREIGN KEY (answer_id) REFERENCES answers (id) ON DELETE CASCADE;
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
	`DO $$ BEGIN
		ALTER TABLE comments ADD CONSTRAINT fk_comments_question FOREIGN KEY (question_id) REFERENCES questions (id) ON DELETE CASCADE;
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
	`DO $$ BEGIN
		ALTER TABLE comments ADD CONSTRAINT fk_comments_answer FOREIGN KEY (answer_id) REFERENCES answers (id) ON DELETE CASCADE;
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_user_question ON votes (user_id, question_id) WHERE question_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_user_answer ON votes (user_id, answer_id) WHERE answer_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_votes_question ON votes (question_id)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_answer ON votes (answer_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_answers_one_accepted ON answers (question_id) WHERE is_accepted`,
}

var catalog = []models.Achievement{
	{Code: models.AchievementRegistration, Name: "Welcome", Description: "Joined the forum", IconName: "hand-wave"},
	{Code: models.AchievementFirstQuestion, Name: "Curious", Description: "Asked a first question", IconName: "help-circle"},
	{Code: models.AchievementFirstAnswer, Name: "Helper", Description: "Posted a first answer", IconName: "message-circle"},
}

// Migrate creates or updates the schema, adds the constraints and seeds the
// achievement catalog.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Tag{},
		&models.Question{},
		&models.Answer{},
		&models.Comment{},
		&models.Vote{},
		&models.Achievement{},
		&models.UserAchievement{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	for _, stmt := range constraints {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to apply constraint: %w", err)
		}
	}

	seed := make([]models.Achievement, len(catalog))
	copy(seed, catalog)
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&seed).Error
	if err != nil {
		return fmt.Errorf("failed to seed achievements: %w", err)
	}
	return nil
}
