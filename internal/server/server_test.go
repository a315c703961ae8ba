package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/qa-forum/backend/internal/acceptance"
	"github.com/emilythestrangee/qa-forum/backend/internal/achievements"
	"github.com/emilythestrangee/qa-forum/backend/internal/config"
	"github.com/emilythestrangee/qa-forum/backend/internal/handlers"
	"github.com/emilythestrangee/qa-forum/backend/internal/ledger/memstore"
	"github.com/emilythestrangee/qa-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/retry"
	"github.com/emilythestrangee/qa-forum/backend/internal/voting"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticHealth map[string]string

func (h staticHealth) Health() map[string]string { return h }

// newTestServer wires the real engines over the in-memory ledger.
func newTestServer(t *testing.T, health staticHealth) (*gin.Engine, *memstore.Store, *middleware.TokenIssuer) {
	t.Helper()
	store := memstore.New()
	coord := retry.New(store, retry.Options{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond})
	tokens := middleware.NewTokenIssuer("server-test", time.Hour)
	h := handlers.NewHandler(handlers.Deps{
		Voter:        voting.NewEngine(coord),
		Acceptor:     acceptance.NewEngine(coord),
		Achievements: achievements.NewService(store),
		Tokens:       tokens,
	})
	cfg := &config.Config{Port: "0", CORSAllowedOrigins: "*"}
	return New(cfg, health, h, tokens, nil).RegisterRoutes(), store, tokens
}

func do(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	router, _, _ := newTestServer(t, staticHealth{"status": "up"})
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", "", "").Code)

	w := do(router, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	router, _, _ = newTestServer(t, staticHealth{"status": "down"})
	assert.Equal(t, http.StatusServiceUnavailable, do(router, http.MethodGet, "/health", "", "").Code)
}

func TestVoteAndAcceptOverHTTP(t *testing.T) {
	router, store, tokens := newTestServer(t, staticHealth{"status": "up"})
	asker := store.AddUser()
	voter := store.AddUser()
	q := store.AddQuestion(asker)
	a := store.AddAnswer(q, voter)

	token := func(id int) string {
		s, err := tokens.Issue(models.User{ID: id, Role: models.RoleUser})
		require.NoError(t, err)
		return s
	}
	w := do(router, http.MethodPost, fmt.Sprintf("/api/questions/%d/vote", q), token(asker), `{"voteType":"Up"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(router, http.MethodPost, fmt.Sprintf("/api/questions/%d/vote", q), token(voter), `{"voteType":"Up"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"action":"added vote","newRating":1}`, w.Body.String())

	w = do(router, http.MethodPost, fmt.Sprintf("/api/answers/%d/accept", a), token(voter), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(router, http.MethodPost, fmt.Sprintf("/api/answers/%d/accept", a), token(asker), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"action":"accepted","acceptedAnswerId":%d,"questionId":%d}`, a, q), w.Body.String())

	w = do(router, http.MethodPost, "/api/answers/999/vote", token(voter), `{"voteType":"Down"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodDelete, fmt.Sprintf("/api/answers/%d", a), token(asker), "")
	assert.Equal(t, http.StatusForbidden, w.Code, "moderator route")
}

func TestUnknownRoute(t *testing.T) {
	router, _, _ := newTestServer(t, staticHealth{"status": "up"})
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/nope", "", "").Code)
}
