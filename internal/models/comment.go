package models

import "time"

type Comment struct {
	ID         int       `gorm:"primaryKey" json:"id"`
	Text       string    `gorm:"type:varchar(500);not null" json:"text"`
	UserID     int       `gorm:"not null;index" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	QuestionID *int      `gorm:"index" json:"question_id,omitempty"`
	AnswerID   *int      `gorm:"index" json:"answer_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateCommentRequest struct {
	Text string `json:"text" binding:"required,max=500"`
}
