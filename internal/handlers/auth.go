package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"TodoApp/internal/auth"
	dom "TodoApp/internal/domain"
	"TodoApp/internal/dto"
	"TodoApp/internal/service"

	"github.com/gin-gonic/gin"
)

// Sessions is what the auth handler needs from the session store.
type Sessions interface {
	Create(ctx context.Context, id dom.Identity) (string, error)
	Delete(ctx context.Context, sid string) error
	TTL() time.Duration
}

// AuthHandler handles login, register and logout.
type AuthHandler struct {
	sessions Sessions
	userSvc  *service.UserService
	secure   bool
}

// NewAuthHandler returns a new AuthHandler. secure marks the session cookie HTTPS-only.
func NewAuthHandler(sessions Sessions, userSvc *service.UserService, secure bool) *AuthHandler {
	return &AuthHandler{sessions: sessions, userSvc: userSvc, secure: secure}
}

// Login godoc
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "Credentials"
// @Success      200   {object}  dto.UserResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.userSvc.ValidateCredentials(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid username or password", Kind: string(dom.KindUnauthenticated)})
			return
		}
		writeError(c, err)
		return
	}
	if !h.startSession(c, user.Identity()) {
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user.Identity()))
}

// Register godoc
// @Summary      Register
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterRequest  true  "Credentials"
// @Success      201   {object}  dto.UserResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.userSvc.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "username and password required", Kind: string(dom.KindValidation)})
			return
		}
		if errors.Is(err, service.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, dto.ErrorResponse{Error: "username already taken"})
			return
		}
		writeError(c, err)
		return
	}
	if !h.startSession(c, user.Identity()) {
		return
	}
	c.JSON(http.StatusCreated, dto.NewUserResponse(user.Identity()))
}

// Logout godoc
// @Summary      Logout
// @Tags         auth
// @Success      204
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, err := c.Cookie(auth.SessionCookieName)
	if err == nil && sessionID != "" {
		_ = h.sessions.Delete(c.Request.Context(), sessionID)
	}
	c.SetCookie(auth.SessionCookieName, "", -1, "/", "", h.secure, true)
	c.Status(http.StatusNoContent)
}

// Me godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     CookieAuth
// @Success      200  {object}  dto.UserResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := auth.IdentityFromContext(c.Request.Context())
	if !ok {
		writeError(c, dom.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(id))
}

func (h *AuthHandler) startSession(c *gin.Context, id dom.Identity) bool {
	sessionID, err := h.sessions.Create(c.Request.Context(), id)
	if err != nil {
		writeError(c, dom.NewStoreError("create session", err))
		return false
	}
	c.SetCookie(auth.SessionCookieName, sessionID, int(h.sessions.TTL().Seconds()), "/", "", h.secure, true)
	return true
}
