package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

type VoteHandler struct {
	voter Voter
}

func NewVoteHandler(voter Voter) *VoteHandler {
	return &VoteHandler{voter: voter}
}

func (h *VoteHandler) VoteQuestion(c *gin.Context) {
	h.vote(c, models.PostQuestion)
}

func (h *VoteHandler) VoteAnswer(c *gin.Context) {
	h.vote(c, models.PostAnswer)
}

func (h *VoteHandler) vote(c *gin.Context, kind models.PostKind) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input models.VoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	voteType, err := models.ParseVoteType(input.VoteType)
	if err != nil {
		respondError(c, err)
		return
	}

	var questionID, answerID *int
	if kind == models.PostQuestion {
		questionID = &id
	} else {
		answerID = &id
	}

	res, err := h.voter.CastVote(c.Request.Context(), userID, questionID, answerID, voteType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
