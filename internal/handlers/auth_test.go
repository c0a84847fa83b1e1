package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"TodoApp/internal/auth"
	"TodoApp/internal/dto"
	"TodoApp/internal/repo"
	"TodoApp/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthEngine(t *testing.T) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sessions := auth.NewStore(rdb, time.Hour)
	users := service.NewUserService(repo.NewMemoryUserRepo()).WithHashCost(bcrypt.MinCost)
	h := NewAuthHandler(sessions, users, false)

	r := gin.New()
	r.Use(auth.LoadSession(sessions))
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)
	r.GET("/auth/me", h.Me)
	return r, mr
}

func post(r *gin.Engine, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", auth.SessionCookieName)
	return nil
}

func me(r *gin.Engine, c *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	if c != nil {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_RegisterLoginLogout(t *testing.T) {
	r, mr := newAuthEngine(t)

	w := post(r, "/auth/register", `{"username":"alice","email":"alice@example.com","password":"secret"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := decode[dto.UserResponse](t, w)
	assert.Equal(t, "alice", user.Username)
	c := sessionCookie(t, w)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, 3600, c.MaxAge)

	w = me(r, c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user, decode[dto.UserResponse](t, w))

	w = post(r, "/auth/register", `{"username":"alice","password":"other"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = post(r, "/auth/login", `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(r, "/auth/login", `{"username":"alice","password":"secret"}`)
	require.Equal(t, http.StatusOK, w.Code)
	login := sessionCookie(t, w)
	assert.NotEqual(t, c.Value, login.Value)

	w = post(r, "/auth/logout", "", login)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, mr.Exists("session:"+login.Value))
	assert.Equal(t, http.StatusUnauthorized, me(r, login).Code)
	assert.Equal(t, http.StatusOK, me(r, c).Code, "other sessions survive")
}

func TestAuthHandler_BadInput(t *testing.T) {
	r, _ := newAuthEngine(t)

	assert.Equal(t, http.StatusBadRequest, post(r, "/auth/register", `{"username":"bob"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/auth/register", `{"username":"bob","email":"nope","password":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/auth/login", `not json`).Code)
	assert.Equal(t, http.StatusUnauthorized, me(r, nil).Code)
}
