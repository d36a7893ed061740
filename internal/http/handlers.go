package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/azamatb/parcelhub/internal/config"
	"github.com/azamatb/parcelhub/internal/domain"
	"github.com/azamatb/parcelhub/internal/oauth"
	"github.com/azamatb/parcelhub/internal/queue"
	"github.com/azamatb/parcelhub/internal/repo"
	"github.com/azamatb/parcelhub/internal/security"
)

const refreshCookie = "refresh_token"

// DataStore is everything the handlers need from persistence. *repo.Store
// satisfies it; tests swap in an in-memory fake.
type DataStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)

	SaveRefresh(ctx context.Context, userID primitive.ObjectID, plain string, ttl time.Duration) error
	FindValidRefresh(ctx context.Context, plain string) (*repo.RefreshToken, error)
	RevokeRefresh(ctx context.Context, plain string) error

	CreatePickup(ctx context.Context, p *domain.Pickup) error
	FindPickup(ctx context.Context, pickupID string) (*domain.Pickup, error)
	ListPickups(ctx context.Context, page, perPage int) ([]domain.Pickup, int64, error)
	CancelPickup(ctx context.Context, pickupID string) (*domain.Pickup, error)

	Ping(ctx context.Context) error
}

type Handler struct {
	Store           DataStore
	JWTSecret       string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	Redis           *repo.Redis
	RateLimitPerMin int
	Events          queue.Publisher
	Scheduler       *queue.Scheduler
	Providers       []*oauth.Provider
	State           *oauth.StateSigner
	PasswordAuth    bool
}

func NewHandler(store DataStore, cfg config.Config, rds *repo.Redis, pub queue.Publisher,
	sched *queue.Scheduler, providers []*oauth.Provider) *Handler {
	return &Handler{
		Store:           store,
		JWTSecret:       cfg.JWTSecret,
		AccessTTL:       time.Duration(cfg.AccessTTLMinutes) * time.Minute,
		RefreshTTL:      time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
		Redis:           rds,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Events:          pub,
		Scheduler:       sched,
		Providers:       providers,
		State:           oauth.NewStateSigner(cfg.OAuthStateSecret),
		PasswordAuth:    cfg.EnablePasswordAuth,
	}
}

// issueTokens mints an access token and stores a fresh refresh token, set as
// an HTTP-only cookie.
func (h *Handler) issueTokens(c *gin.Context, u *domain.User) (string, bool) {
	tok, err := security.MakeAccess(h.JWTSecret, u.ID.Hex(), u.Email, u.Username, h.AccessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return "", false
	}
	ref, err := security.NewRefreshToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh gen"})
		return "", false
	}
	if err := h.Store.SaveRefresh(c.Request.Context(), u.ID, ref, h.RefreshTTL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh save"})
		return "", false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookie, ref, int(h.RefreshTTL.Seconds()), "/", "", true, true)
	return tok, true
}

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register godoc
// @Summary Register user with a password
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body registerReq true "register"
// @Success 201
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var in registerReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !strings.Contains(email, "@") || len(in.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email or weak password"})
		return
	}
	username, err := oauth.DeriveUsername(email)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hash, err := security.HashPassword(in.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = username
	}
	u := &domain.User{Email: email, Username: username, Name: name, PasswordHash: hash}
	if err := h.Store.CreateUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	reqID := c.GetString(requestIDKey)
	go h.Events.Publish(context.Background(), queue.KeyUserRegistered,
		queue.UserRegistered{UserID: u.ID, Email: u.Email, Name: u.Name}, reqID)

	c.Status(http.StatusCreated)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginReq true "login"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	u, err := h.Store.FindUserByEmail(c.Request.Context(), email)
	// CheckPassword refuses passwordless (OAuth-created) accounts outright.
	if err != nil || u == nil || !security.CheckPassword(u.PasswordHash, in.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	tok, ok := h.issueTokens(c, u)
	if !ok {
		return
	}

	reqID := c.GetString(requestIDKey)
	go h.Events.Publish(context.Background(), queue.KeyUserLoggedIn,
		queue.UserLoggedIn{UserID: u.ID, Email: u.Email}, reqID)

	c.JSON(http.StatusOK, gin.H{"access_token": tok, "token_type": "bearer"})
}

// Refresh godoc
// @Summary Exchange the refresh cookie for a new access token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	plain, err := c.Cookie(refreshCookie)
	if err != nil || plain == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing refresh token"})
		return
	}
	rt, err := h.Store.FindValidRefresh(c.Request.Context(), plain)
	if err != nil || rt == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh"})
		return
	}
	u, err := h.Store.FindUserByID(c.Request.Context(), rt.UserID)
	if err != nil || u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	tok, err := security.MakeAccess(h.JWTSecret, u.ID.Hex(), u.Email, u.Username, h.AccessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": tok, "token_type": "bearer"})
}

// Logout godoc
// @Summary Revoke the refresh token and clear the cookie
// @Tags auth
// @Success 204
// @Router /api/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	plain, err := c.Cookie(refreshCookie)
	if err == nil && plain != "" {
		if err := h.Store.RevokeRefresh(c.Request.Context(), plain); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "revoke failed"})
			return
		}
	}
	c.SetCookie(refreshCookie, "", -1, "/", "", true, true)
	c.Status(http.StatusNoContent)
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	au, _ := c.Get(authUserKey)
	userCtx := au.(AuthUser)

	u, err := h.Store.FindUserByEmail(c.Request.Context(), userCtx.Email)
	if err != nil || u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id": u.ID, "email": u.Email, "username": u.Username,
		"name": u.Name, "created_at": u.CreatedAt,
	})
}

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
