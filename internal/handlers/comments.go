package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qa-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

type CommentHandler struct {
	db *gorm.DB
}

func NewCommentHandler(db *gorm.DB) *CommentHandler {
	return &CommentHandler{db: db}
}

func (h *CommentHandler) GetQuestionComments(c *gin.Context) {
	h.list(c, "question_id")
}

func (h *CommentHandler) GetAnswerComments(c *gin.Context) {
	h.list(c, "answer_id")
}

func (h *CommentHandler) list(c *gin.Context, column string) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	comments := []models.Comment{}
	err := h.db.Where(column+" = ?", id).
		Preload("User").
		Order("created_at asc").
		Find(&comments).Error
	if err != nil {
		internalError(c, "Failed to fetch comments", err)
		return
	}

	c.JSON(http.StatusOK, comments)
}

func (h *CommentHandler) CreateQuestionComment(c *gin.Context) {
	h.create(c, models.PostQuestion)
}

func (h *CommentHandler) CreateAnswerComment(c *gin.Context) {
	h.create(c, models.PostAnswer)
}

func (h *CommentHandler) create(c *gin.Context, kind models.PostKind) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target := models.VoteTarget{Kind: kind, ID: id}
	var exists int64
	var err error
	if kind == models.PostQuestion {
		err = h.db.Model(&models.Question{}).Where("id = ?", id).Count(&exists).Error
	} else {
		err = h.db.Model(&models.Answer{}).Where("id = ?", id).Count(&exists).Error
	}
	if err != nil {
		internalError(c, "Failed to create comment", err)
		return
	}
	if exists == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	questionID, answerID := target.IDs()
	comment := models.Comment{
		Text:       input.Text,
		UserID:     userID,
		QuestionID: questionID,
		AnswerID:   answerID,
	}
	if err := h.db.Omit("User").Create(&comment).Error; err != nil {
		internalError(c, "Failed to create comment", err)
		return
	}

	reload(c, h.db, &comment, comment.ID, "User")
	c.JSON(http.StatusCreated, comment)
}

// UpdateComment edits the text of the caller's own comment.
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var comment models.Comment
	err := h.db.Take(&comment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	if err != nil {
		internalError(c, "Failed to update comment", err)
		return
	}

	if comment.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own comments"})
		return
	}

	if err := h.db.Model(&comment).Update("text", strings.TrimSpace(input.Text)).Error; err != nil {
		internalError(c, "Failed to update comment", err)
		return
	}

	reload(c, h.db, &comment, comment.ID, "User")
	c.JSON(http.StatusOK, comment)
}

// DeleteComment removes a comment. Only its author or a moderator may.
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var comment models.Comment
	err := h.db.Take(&comment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	if err != nil {
		internalError(c, "Failed to delete comment", err)
		return
	}

	if comment.UserID != userID && !middleware.Role(c).CanModerate() {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own comments"})
		return
	}

	if err := h.db.Delete(&comment).Error; err != nil {
		internalError(c, "Failed to delete comment", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
