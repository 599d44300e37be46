package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tramdoc/tramdoc/internal/models"
	"github.com/tramdoc/tramdoc/pkg/response"
)

// ProviderLister reports which external login providers are configured.
type ProviderLister interface {
	Providers() []models.AuthProvider
}

type AuthProviderHandler struct {
	registry ProviderLister
}

func NewAuthProviderHandler(registry ProviderLister) *AuthProviderHandler {
	return &AuthProviderHandler{registry: registry}
}

type providerPayload struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	LoginURL string `json:"login_url"`
}

// GET /api/v1/auth/providers (public)
func (h *AuthProviderHandler) ListPublic(c *gin.Context) {
	payload := make([]providerPayload, 0, 2)
	if h.registry != nil {
		for _, provider := range h.registry.Providers() {
			slug := strings.ToLower(string(provider))
			payload = append(payload, providerPayload{
				Type:     slug,
				Name:     provider.DisplayName(),
				LoginURL: "/api/v1/auth/" + slug,
			})
		}
	}
	response.Success(c, http.StatusOK, payload)
}
