package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/tramdoc/tramdoc/internal/auth"
	"github.com/tramdoc/tramdoc/pkg/errors"
	"github.com/tramdoc/tramdoc/pkg/response"
)

const (
	CtxClaimsKey   = "authClaims"
	CtxIdentityKey = "authIdentity"
)

// AccessValidator validates bearer access tokens.
type AccessValidator interface {
	ValidateAccess(token string) (*iauth.Claims, error)
}

// Auth enforces bearer access-token authentication and stores the caller's identity.
func Auth(tokens AccessValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := tokens.ValidateAccess(strings.TrimSpace(authz[7:]))
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		identity, err := iauth.IdentityFromClaims(claims)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxIdentityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(c *gin.Context) (iauth.Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return iauth.Identity{}, false
	}
	identity, ok := v.(iauth.Identity)
	return identity, ok && identity.Valid()
}
