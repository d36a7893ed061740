package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/azamatb/parcelhub/internal/domain"
	"github.com/azamatb/parcelhub/internal/metrics"
	"github.com/azamatb/parcelhub/internal/oauth"
	"github.com/azamatb/parcelhub/internal/queue"
)

// OAuthLogin redirects the browser to the provider's authorization URL. The
// route only exists for enabled providers, so a disabled provider is a plain
// 404, indistinguishable from an unknown route.
func (h *Handler) OAuthLogin(p *oauth.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := h.State.New()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "state gen"})
			return
		}
		c.Redirect(http.StatusFound, p.AuthCodeURL(state))
	}
}

// OAuthCallback godoc
// @Summary OAuth callback: exchange code, resolve user, issue tokens
// @Tags oauth
// @Produce json
// @Param code query string true "authorization code"
// @Param state query string true "signed state"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /callback/{provider} [get]
func (h *Handler) OAuthCallback(p *oauth.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.State.Verify(c.Query("state")) {
			metrics.OAuthLogins.WithLabelValues(p.Name, "bad_state").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid state"})
			return
		}
		code := c.Query("code")
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
			return
		}

		profile, err := p.ExchangeAndFetch(c.Request.Context(), code)
		if err != nil {
			metrics.OAuthLogins.WithLabelValues(p.Name, "exchange_failed").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid response from " + p.Name})
			return
		}

		u, created, err := oauth.ResolveUser(c.Request.Context(), h.Store, profile)
		if err != nil {
			metrics.OAuthLogins.WithLabelValues(p.Name, "resolve_failed").Inc()
			var ve *domain.ValidationError
			switch {
			case errors.As(err, &ve):
				c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
			case errors.Is(err, domain.ErrUnauthorized):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid response from " + p.Name})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "resolve failed"})
			}
			return
		}

		tok, ok := h.issueTokens(c, u)
		if !ok {
			return
		}
		metrics.OAuthLogins.WithLabelValues(p.Name, "ok").Inc()

		reqID := c.GetString(requestIDKey)
		if created {
			go h.Events.Publish(context.Background(), queue.KeyUserRegistered,
				queue.UserRegistered{UserID: u.ID, Email: u.Email, Name: u.Name, Provider: p.Name}, reqID)
		} else {
			go h.Events.Publish(context.Background(), queue.KeyUserLoggedIn,
				queue.UserLoggedIn{UserID: u.ID, Email: u.Email}, reqID)
		}

		c.JSON(http.StatusOK, gin.H{"access_token": tok, "token_type": "bearer"})
	}
}
