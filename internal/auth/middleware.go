package auth

import (
	"context"
	"net/http"

	dom "TodoApp/internal/domain"

	"github.com/gin-gonic/gin"
)

// SessionCookieName is the cookie carrying the session ID.
const SessionCookieName = "session_id"

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the caller identity.
func WithIdentity(ctx context.Context, id dom.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity set by LoadSession or WithIdentity.
func IdentityFromContext(ctx context.Context) (dom.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(dom.Identity)
	if !ok || id.ID == "" {
		return dom.Identity{}, false
	}
	return id, true
}

// ContextAuthenticator identifies the caller from the request context.
type ContextAuthenticator struct{}

func (ContextAuthenticator) Identify(ctx context.Context) (dom.Identity, bool) {
	return IdentityFromContext(ctx)
}

// SessionGetter resolves a session ID to an identity.
type SessionGetter interface {
	Get(ctx context.Context, sid string) (dom.Identity, bool, error)
}

// LoadSession resolves the session cookie and, if it is valid, puts the
// identity on the request context. Requests without a session pass through
// unauthenticated; the domain operations reject them. A failing session
// store aborts with 503.
func LoadSession(sessions SessionGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(SessionCookieName)
		if err != nil || sid == "" {
			c.Next()
			return
		}
		id, ok, err := sessions.Get(c.Request.Context(), sid)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable", "kind": dom.KindStoreUnavailable})
			return
		}
		if ok {
			c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		}
		c.Next()
	}
}
