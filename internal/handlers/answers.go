package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

type AnswerHandler struct {
	db       *gorm.DB
	voter    Voter
	acceptor Acceptor
	awards   Awarder
}

func NewAnswerHandler(db *gorm.DB, voter Voter, acceptor Acceptor, awards Awarder) *AnswerHandler {
	return &AnswerHandler{db: db, voter: voter, acceptor: acceptor, awards: awards}
}

// CreateAnswer posts an answer to the question in the path.
func (h *AnswerHandler) CreateAnswer(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	questionID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input models.CreateAnswerRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var question models.Question
	err := h.db.Select("id").Take(&question, questionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}
	if err != nil {
		internalError(c, "Failed to create answer", err)
		return
	}

	answer := models.Answer{
		Content:    input.Content,
		AuthorID:   userID,
		QuestionID: questionID,
	}
	if err := h.db.Omit("Author", "Question").Create(&answer).Error; err != nil {
		internalError(c, "Failed to create answer", err)
		return
	}

	var count int64
	if err := h.db.Model(&models.Answer{}).Where("author_id = ?", userID).Count(&count).Error; err == nil && count == 1 {
		award(c, h.awards, userID, models.AchievementFirstAnswer)
	}

	reload(c, h.db, &answer, answer.ID, "Author")
	c.JSON(http.StatusCreated, answer)
}

// AcceptAnswer toggles acceptance of the answer in the path.
func (h *AnswerHandler) AcceptAnswer(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	answerID, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.acceptor.AcceptAnswer(c.Request.Context(), userID, answerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteAnswer removes an answer and its votes. Moderators only.
func (h *AnswerHandler) DeleteAnswer(c *gin.Context) {
	answerID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.voter.RetractAnswer(c.Request.Context(), answerID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Answer deleted successfully"})
}
