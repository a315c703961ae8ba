package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type AchievementHandler struct {
	awards Awarder
}

func NewAchievementHandler(awards Awarder) *AchievementHandler {
	return &AchievementHandler{awards: awards}
}

func (h *AchievementHandler) GetUserAchievements(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	h.respond(c, id)
}

func (h *AchievementHandler) GetMyAchievements(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	h.respond(c, userID)
}

func (h *AchievementHandler) respond(c *gin.Context, userID int) {
	list, err := h.awards.List(c.Request.Context(), userID)
	if err != nil {
		internalError(c, "Failed to fetch achievements", err)
		return
	}
	if list == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, list)
}
