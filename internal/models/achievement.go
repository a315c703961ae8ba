package models

import "time"

// Achievement codes known to the catalog seed.
const (
	AchievementRegistration  = "REGISTRATION"
	AchievementFirstQuestion = "FIRST_QUESTION"
	AchievementFirstAnswer   = "FIRST_ANSWER"
)

type Achievement struct {
	ID          int    `gorm:"primaryKey" json:"id"`
	Code        string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name        string `gorm:"type:varchar(100);not null" json:"name"`
	Description string `gorm:"type:varchar(255);not null" json:"description"`
	IconName    string `gorm:"type:varchar(50);not null" json:"icon_name"`
}

type UserAchievement struct {
	ID            int         `gorm:"primaryKey" json:"id"`
	UserID        int         `gorm:"not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	AchievementID int         `gorm:"not null;uniqueIndex:idx_user_achievement" json:"achievement_id"`
	Achievement   Achievement `gorm:"foreignKey:AchievementID" json:"achievement"`
	AwardedAt     time.Time   `gorm:"not null" json:"awarded_at"`
}
