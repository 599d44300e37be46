package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tramdoc/tramdoc/internal/auth"
	"github.com/tramdoc/tramdoc/internal/middleware"
	"github.com/tramdoc/tramdoc/pkg/errors"
	"github.com/tramdoc/tramdoc/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// requireIdentity returns the authenticated caller or writes a 401.
func requireIdentity(c *gin.Context) (auth.Identity, bool) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return auth.Identity{}, false
	}
	return identity, true
}
