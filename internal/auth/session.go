package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const (
	// SessionName is the cookie holding the signed session.
	SessionName = "chamcong_session"

	sessionEmailKey = "user_email"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	Email string
}

type identityContextKey struct{}

// NewSessionStore returns a cookie store signed with secret.
func NewSessionStore(secret string, maxAge time.Duration, secure bool) sessions.Store {
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

// Sessions installs the session middleware on a router.
func Sessions(store sessions.Store) gin.HandlerFunc {
	return sessions.Sessions(SessionName, store)
}

// StartSession records email as the signed-in user. The caller saves the
// session before writing the response.
func StartSession(c *gin.Context, email string) {
	sessions.Default(c).Set(sessionEmailKey, email)
}

// EndSession forgets the signed-in user. The caller saves the session.
func EndSession(c *gin.Context) {
	sessions.Default(c).Delete(sessionEmailKey)
}

// CurrentIdentity reads the signed-in user from the session.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	email, ok := sessions.Default(c).Get(sessionEmailKey).(string)
	if !ok || email == "" {
		return Identity{}, false
	}
	return Identity{Email: email}, true
}

// RequireIdentity aborts with onMissing when nobody is signed in. Otherwise
// it attaches the Identity to the request context.
func RequireIdentity(onMissing gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			onMissing(c)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// FromContext returns the Identity set by RequireIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
