package models

import "time"

type Question struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	AuthorID  int       `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:RESTRICT" json:"author"`
	Rating    int       `gorm:"not null;default:0" json:"rating"`
	Tags      []Tag     `gorm:"many2many:question_tags" json:"tags"`
	Answers   []Answer  `gorm:"foreignKey:QuestionID" json:"answers,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Answer struct {
	ID         int       `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	AuthorID   int       `gorm:"not null;index" json:"author_id"`
	Author     User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:RESTRICT" json:"author"`
	QuestionID int       `gorm:"not null;index" json:"question_id"`
	Question   *Question `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"-"`
	IsAccepted bool      `gorm:"not null;default:false" json:"is_accepted"`
	Rating     int       `gorm:"not null;default:0" json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
}

type Tag struct {
	ID        int        `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"uniqueIndex;not null" json:"name"`
	Questions []Question `gorm:"many2many:question_tags" json:"-"`
}

type CreateQuestionRequest struct {
	Title   string   `json:"title" binding:"required,max=300"`
	Content string   `json:"content" binding:"required"`
	Tags    []string `json:"tags"`
}

type CreateAnswerRequest struct {
	Content string `json:"content" binding:"required,min=10"`
}
