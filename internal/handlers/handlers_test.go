package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/qa-forum/backend/internal/acceptance"
	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/voting"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type castCall struct {
	userID     int
	questionID *int
	answerID   *int
	voteType   models.VoteType
}

type fakeVoter struct {
	calls     []castCall
	result    voting.Result
	err       error
	retracted []int
}

func (f *fakeVoter) CastVote(_ context.Context, userID int, questionID, answerID *int, voteType models.VoteType) (voting.Result, error) {
	f.calls = append(f.calls, castCall{userID, questionID, answerID, voteType})
	return f.result, f.err
}

func (f *fakeVoter) RetractAnswer(_ context.Context, answerID int) error {
	f.retracted = append(f.retracted, answerID)
	return f.err
}

type fakeAcceptor struct {
	result acceptance.Result
	err    error
}

func (f *fakeAcceptor) AcceptAnswer(context.Context, int, int) (acceptance.Result, error) {
	return f.result, f.err
}

type fakeAwarder struct {
	list []models.UserAchievement
}

func (f *fakeAwarder) Award(context.Context, int, string) error { return nil }
func (f *fakeAwarder) List(context.Context, int) ([]models.UserAchievement, error) {
	return f.list, nil
}

var issuer = middleware.NewTokenIssuer("handler-test", time.Hour)

func newTestRouter(t *testing.T, deps Deps) *gin.Engine {
	t.Helper()
	h := NewHandler(deps)
	auth := middleware.AuthMiddleware(issuer)

	router := gin.New()
	router.POST("/api/questions/:id/vote", auth, h.Vote.VoteQuestion)
	router.POST("/api/answers/:id/vote", auth, h.Vote.VoteAnswer)
	router.POST("/api/answers/:id/accept", auth, h.Answer.AcceptAnswer)
	router.DELETE("/api/answers/:id", auth, middleware.RequireModerator(), h.Answer.DeleteAnswer)
	router.GET("/api/users/:id/achievements", h.Achievement.GetUserAchievements)
	router.GET("/api/users/me/achievements", auth, h.Achievement.GetMyAchievements)
	router.PUT("/api/me", auth, h.User.UpdateMe)
	router.PUT("/api/comments/:id", auth, h.Comment.UpdateComment)
	return router
}

func tokenFor(t *testing.T, id int, role models.Role) string {
	t.Helper()
	token, err := issuer.Issue(models.User{ID: id, Role: role})
	require.NoError(t, err)
	return token
}

func performRequest(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestVoteQuestion(t *testing.T) {
	voter := &fakeVoter{result: voting.Result{Action: voting.ActionAdded, NewRating: 1}}
	router := newTestRouter(t, Deps{Voter: voter})

	w := performRequest(router, http.MethodPost, "/api/questions/5/vote", tokenFor(t, 2, models.RoleUser), gin.H{"voteType": "up"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"action":"added vote","newRating":1}`, w.Body.String())
	require.Len(t, voter.calls, 1)
	call := voter.calls[0]
	assert.Equal(t, 2, call.userID)
	require.NotNil(t, call.questionID)
	assert.Equal(t, 5, *call.questionID)
	assert.Nil(t, call.answerID)
	assert.Equal(t, models.VoteUp, call.voteType)
}

func TestVoteAnswerTargetsAnswer(t *testing.T) {
	voter := &fakeVoter{result: voting.Result{Action: voting.ActionChanged, NewRating: -1}}
	router := newTestRouter(t, Deps{Voter: voter})

	w := performRequest(router, http.MethodPost, "/api/answers/9/vote", tokenFor(t, 2, models.RoleUser), gin.H{"voteType": "Down"})

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, voter.calls, 1)
	assert.Nil(t, voter.calls[0].questionID)
	assert.Equal(t, 9, *voter.calls[0].answerID)
	assert.Equal(t, models.VoteDown, voter.calls[0].voteType)
}

func TestVoteRejectsBadInput(t *testing.T) {
	voter := &fakeVoter{}
	router := newTestRouter(t, Deps{Voter: voter})
	token := tokenFor(t, 2, models.RoleUser)

	assert.Equal(t, http.StatusBadRequest, performRequest(router, http.MethodPost, "/api/questions/5/vote", token, gin.H{"voteType": "sideways"}).Code)
	assert.Equal(t, http.StatusBadRequest, performRequest(router, http.MethodPost, "/api/questions/5/vote", token, gin.H{}).Code)
	assert.Equal(t, http.StatusBadRequest, performRequest(router, http.MethodPost, "/api/questions/abc/vote", token, gin.H{"voteType": "Up"}).Code)
	assert.Equal(t, http.StatusUnauthorized, performRequest(router, http.MethodPost, "/api/questions/5/vote", "", gin.H{"voteType": "Up"}).Code)
	assert.Empty(t, voter.calls)
}

func TestEngineErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"not found", apperr.NotFound("question 5 not found"), http.StatusNotFound, `{"error":"question 5 not found"}`},
		{"forbidden", apperr.Forbidden("cannot vote on own post"), http.StatusForbidden, `{"error":"cannot vote on own post"}`},
		{"transient", apperr.Transient(errors.New("40001")), http.StatusServiceUnavailable, `{"error":"storage is temporarily unavailable, retry the request"}`},
		{"unknown", apperr.Unknown(errors.New(`pq: relation "votes" does not exist`)), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, Deps{Voter: &fakeVoter{err: tt.err}})
			w := performRequest(router, http.MethodPost, "/api/questions/5/vote", tokenFor(t, 2, models.RoleUser), gin.H{"voteType": "Up"})
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestAcceptAnswer(t *testing.T) {
	accepted := 9
	router := newTestRouter(t, Deps{Acceptor: &fakeAcceptor{result: acceptance.Result{
		Action:           acceptance.ActionAccepted,
		AcceptedAnswerID: &accepted,
		QuestionID:       3,
	}}})

	w := performRequest(router, http.MethodPost, "/api/answers/9/accept", tokenFor(t, 1, models.RoleUser), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"action":"accepted","acceptedAnswerId":9,"questionId":3}`, w.Body.String())

	router = newTestRouter(t, Deps{Acceptor: &fakeAcceptor{result: acceptance.Result{Action: acceptance.ActionUnaccepted, QuestionID: 3}}})
	w = performRequest(router, http.MethodPost, "/api/answers/9/accept", tokenFor(t, 1, models.RoleUser), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"action":"unaccepted","acceptedAnswerId":null,"questionId":3}`, w.Body.String())

	router = newTestRouter(t, Deps{Acceptor: &fakeAcceptor{err: apperr.Forbidden("only the question author can accept an answer")}})
	w = performRequest(router, http.MethodPost, "/api/answers/9/accept", tokenFor(t, 2, models.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteAnswerRequiresModerator(t *testing.T) {
	voter := &fakeVoter{}
	router := newTestRouter(t, Deps{Voter: voter})

	w := performRequest(router, http.MethodDelete, "/api/answers/4", tokenFor(t, 2, models.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, voter.retracted)

	w = performRequest(router, http.MethodDelete, "/api/answers/4", tokenFor(t, 3, models.RoleModerator), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{4}, voter.retracted)
}

func TestAchievements(t *testing.T) {
	awarded := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	awards := &fakeAwarder{list: []models.UserAchievement{{
		ID:            1,
		UserID:        2,
		AchievementID: 1,
		Achievement:   models.Achievement{ID: 1, Code: models.AchievementRegistration, Name: "Welcome"},
		AwardedAt:     awarded,
	}}}
	router := newTestRouter(t, Deps{Achievements: awards})

	w := performRequest(router, http.MethodGet, "/api/users/2/achievements", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got []models.UserAchievement
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, models.AchievementRegistration, got[0].Achievement.Code)

	router = newTestRouter(t, Deps{Achievements: &fakeAwarder{}})
	w = performRequest(router, http.MethodGet, "/api/users/me/achievements", tokenFor(t, 2, models.RoleUser), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestEditsValidateBeforeStorage(t *testing.T) {
	router := newTestRouter(t, Deps{})
	token := tokenFor(t, 2, models.RoleUser)

	w := performRequest(router, http.MethodPut, "/api/me", token, gin.H{"picture_url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = performRequest(router, http.MethodPut, "/api/me", "", gin.H{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(router, http.MethodPut, "/api/comments/0", token, gin.H{"text": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = performRequest(router, http.MethodPut, "/api/comments/3", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"go", "postgres"}, normalizeTags([]string{" Go", "postgres", "GO", ""}))
}
