package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qa-forum/backend/internal/acceptance"
	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/voting"
)

// Voter is the vote engine as seen by the HTTP layer.
type Voter interface {
	CastVote(ctx context.Context, userID int, questionID, answerID *int, voteType models.VoteType) (voting.Result, error)
	RetractAnswer(ctx context.Context, answerID int) error
}

type Acceptor interface {
	AcceptAnswer(ctx context.Context, callerID, answerID int) (acceptance.Result, error)
}

type Awarder interface {
	Award(ctx context.Context, userID int, code string) error
	List(ctx context.Context, userID int) ([]models.UserAchievement, error)
}

// Deps are the collaborators shared by the handlers.
type Deps struct {
	DB           *gorm.DB
	Voter        Voter
	Acceptor     Acceptor
	Achievements Awarder
	Tokens       *middleware.TokenIssuer
}

// Handler combines all handler types
type Handler struct {
	Auth        *AuthHandler
	Question    *QuestionHandler
	Answer      *AnswerHandler
	Vote        *VoteHandler
	Comment     *CommentHandler
	Tag         *TagHandler
	User        *UserHandler
	Achievement *AchievementHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(deps Deps) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(deps.DB, deps.Tokens, deps.Achievements),
		Question:    NewQuestionHandler(deps.DB, deps.Achievements),
		Answer:      NewAnswerHandler(deps.DB, deps.Voter, deps.Acceptor, deps.Achievements),
		Vote:        NewVoteHandler(deps.Voter),
		Comment:     NewCommentHandler(deps.DB),
		Tag:         NewTagHandler(deps.DB),
		User:        NewUserHandler(deps.DB),
		Achievement: NewAchievementHandler(deps.Achievements),
	}
}

// respondError writes the status and public message for err. Details of
// unexpected errors stay in the logs.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}

// internalError logs err with the request path and answers with a 500.
func internalError(c *gin.Context, msg string, err error) {
	log.WithError(err).WithField("path", c.Request.URL.Path).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// reload refreshes a row that was just written, with its associations. The
// write is already committed, so a failed reload is logged and the row is
// answered as written.
func reload(c *gin.Context, db *gorm.DB, row any, id int, preloads ...string) {
	q := db.WithContext(c.Request.Context())
	for _, p := range preloads {
		q = q.Preload(p)
	}
	if err := q.Take(row, id).Error; err != nil {
		log.WithError(err).WithFields(log.Fields{
			"path": c.Request.URL.Path,
			"id":   id,
		}).Warn("failed to reload written row")
	}
}

func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func currentUser(c *gin.Context) (int, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	return id, true
}

// award grants an achievement without failing the request.
func award(c *gin.Context, awards Awarder, userID int, code string) {
	if awards == nil {
		return
	}
	if err := awards.Award(c.Request.Context(), userID, code); err != nil {
		log.WithError(err).WithFields(log.Fields{"userId": userID, "code": code}).Error("failed to award achievement")
	}
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, offset = 20, 0
	if v, err := strconv.Atoi(c.Query("pageSize")); err == nil && v > 0 {
		limit = min(v, 100)
	}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 1 {
		offset = (v - 1) * limit
	}
	return limit, offset
}
