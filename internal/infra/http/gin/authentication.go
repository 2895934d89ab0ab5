package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"

	domainauth "stayscape/internal/domain/auth"
	domainuser "stayscape/internal/domain/user"
)

const principalContextKey = "stayscape.principal"

type principal struct {
	User  *domainuser.User
	Token string
}

type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*domainuser.User, error)
}

// AuthMiddleware attaches the session user when a valid bearer token is
// present. Anonymous requests pass through; the command and query buses
// reject actor messages without an actor.
type AuthMiddleware struct {
	Resolver TokenResolver
	Logger   *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Resolver == nil {
		c.Next()
		return
	}
	user, err := m.Resolver.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrSessionNotFound) && !errors.Is(err, domainauth.ErrSessionExpired) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	setPrincipal(c, principal{User: user, Token: token})
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok && p.User != nil
}

// actorID is empty for anonymous requests.
func actorID(c *gin.Context) string {
	p, ok := currentPrincipal(c)
	if !ok {
		return ""
	}
	return string(p.User.ID)
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
