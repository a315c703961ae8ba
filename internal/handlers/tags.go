package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

type TagHandler struct {
	db *gorm.DB
}

func NewTagHandler(db *gorm.DB) *TagHandler {
	return &TagHandler{db: db}
}

type tagWithCount struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	QuestionCount int    `json:"question_count"`
}

// GetTags lists tags by popularity.
func (h *TagHandler) GetTags(c *gin.Context) {
	tags := []tagWithCount{}
	err := h.db.Table("tags").
		Select("tags.id, tags.name, COUNT(question_tags.question_id) AS question_count").
		Joins("LEFT JOIN question_tags ON question_tags.tag_id = tags.id").
		Group("tags.id, tags.name").
		Order("question_count desc, tags.name asc").
		Scan(&tags).Error
	if err != nil {
		internalError(c, "Failed to fetch tags", err)
		return
	}

	c.JSON(http.StatusOK, tags)
}

// SuggestTags returns up to ten tag names starting with ?query=.
func (h *TagHandler) SuggestTags(c *gin.Context) {
	prefix := strings.ToLower(strings.TrimSpace(c.Query("query")))
	prefix = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(prefix)

	names := []string{}
	err := h.db.Model(&models.Tag{}).
		Where("name LIKE ?", prefix+"%").
		Order("name asc").
		Limit(10).
		Pluck("name", &names).Error
	if err != nil {
		internalError(c, "Failed to fetch tags", err)
		return
	}

	c.JSON(http.StatusOK, names)
}

// DeleteTag removes a tag from every question and deletes it. Moderators only.
func (h *TagHandler) DeleteTag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var tag models.Tag
	err := h.db.Take(&tag, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}
	if err != nil {
		internalError(c, "Failed to delete tag", err)
		return
	}

	if err := h.db.Select("Questions").Delete(&tag).Error; err != nil {
		internalError(c, "Failed to delete tag", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tag deleted successfully"})
}
