package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// GetUserProfile returns a user's profile with rating and activity counts.
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var user models.User
	err := h.db.Take(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		internalError(c, "Failed to fetch user", err)
		return
	}

	var questionCount, answerCount, acceptedCount int64
	h.db.Model(&models.Question{}).Where("author_id = ?", id).Count(&questionCount)
	h.db.Model(&models.Answer{}).Where("author_id = ?", id).Count(&answerCount)
	h.db.Model(&models.Answer{}).Where("author_id = ? AND is_accepted", id).Count(&acceptedCount)

	c.JSON(http.StatusOK, gin.H{
		"user":           user,
		"rating":         user.Rating,
		"question_count": questionCount,
		"answer_count":   answerCount,
		"accepted_count": acceptedCount,
	})
}

// UpdateMe changes the caller's display name or picture. Rating and role
// are not editable here.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(input.Name); name != "" {
		updates["name"] = name
	}
	if input.PictureURL != "" {
		updates["picture_url"] = input.PictureURL
	}

	var user models.User
	if err := h.db.Take(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		internalError(c, "Failed to update profile", err)
		return
	}
	if len(updates) > 0 {
		if err := h.db.Model(&user).Updates(updates).Error; err != nil {
			internalError(c, "Failed to update profile", err)
			return
		}
	}

	c.JSON(http.StatusOK, user)
}
