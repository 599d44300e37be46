package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tramdoc/tramdoc/pkg/errors"
	"github.com/tramdoc/tramdoc/pkg/response"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// Health returns a status payload useful for readiness checks. When a database pinger is
// supplied a failing ping turns the response into a 503.
func Health(pingDB Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pingDB != nil {
			ctx, cancel := context.WithTimeout(requestContext(c), 2*time.Second)
			defer cancel()
			if err := pingDB(ctx); err != nil {
				response.Error(c, errors.New("SERVICE_UNAVAILABLE", "database unavailable", http.StatusServiceUnavailable).WithInternal(err))
				return
			}
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
