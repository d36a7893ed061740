package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/azamatb/parcelhub/internal/config"
	"github.com/azamatb/parcelhub/internal/domain"
	"github.com/azamatb/parcelhub/internal/oauth"
	"github.com/azamatb/parcelhub/internal/queue"
	"github.com/azamatb/parcelhub/internal/repo"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore is an in-memory DataStore for handler tests.
type fakeStore struct {
	mu            sync.Mutex
	users         []*domain.User
	tokens        map[string]*repo.RefreshToken
	pickups       []*domain.Pickup
	pingErr       error
	createUserErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tokens: map[string]*repo.RefreshToken{}}
}

func (s *fakeStore) CreateUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createUserErr != nil {
		return s.createUserErr
	}
	for _, ex := range s.users {
		if ex.Email == u.Email || ex.Username == u.Username {
			return fmt.Errorf("%w: duplicate user", domain.ErrConflict)
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	cp := *u
	s.users = append(s.users, &cp)
	return nil
}

func (s *fakeStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) SaveRefresh(ctx context.Context, userID primitive.ObjectID, plain string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[plain] = &repo.RefreshToken{
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl).UTC(),
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *fakeStore) FindValidRefresh(ctx context.Context, plain string) (*repo.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.tokens[plain]
	if !ok || rt.Revoked || rt.ExpiresAt.Before(time.Now().UTC()) {
		return nil, nil
	}
	cp := *rt
	return &cp, nil
}

func (s *fakeStore) RevokeRefresh(ctx context.Context, plain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rt, ok := s.tokens[plain]; ok {
		rt.Revoked = true
	}
	return nil
}

func (s *fakeStore) CreatePickup(ctx context.Context, p *domain.Pickup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.CreatedAt = time.Now().UTC()
	if p.LabelIDs == nil {
		p.LabelIDs = []string{}
	}
	cp := *p
	s.pickups = append(s.pickups, &cp)
	return nil
}

func (s *fakeStore) FindPickup(ctx context.Context, pickupID string) (*domain.Pickup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pickups {
		if p.PickupID == pickupID && !p.IsDeleted {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListPickups(ctx context.Context, page, perPage int) ([]domain.Pickup, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []domain.Pickup
	// newest first, matching the created_at desc sort
	for i := len(s.pickups) - 1; i >= 0; i-- {
		if !s.pickups[i].IsDeleted {
			active = append(active, *s.pickups[i])
		}
	}
	total := int64(len(active))
	start := (page - 1) * perPage
	if start >= len(active) {
		return nil, total, nil
	}
	end := start + perPage
	if end > len(active) {
		end = len(active)
	}
	return active[start:end], total, nil
}

func (s *fakeStore) CancelPickup(ctx context.Context, pickupID string) (*domain.Pickup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pickups {
		if p.PickupID == pickupID && !p.IsDeleted {
			now := time.Now().UTC()
			p.IsDeleted = true
			p.DeletedAt = &now
			p.CancelledAt = &now
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Ping(ctx context.Context) error { return s.pingErr }

func seedOAuthUser(t *testing.T, store *fakeStore, email string) {
	t.Helper()
	username, err := oauth.DeriveUsername(email)
	if err != nil {
		t.Fatal(err)
	}
	u := &domain.User{Email: email, Username: username, Name: username}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
}

// recPub records delayed publishes so tests can assert on scheduling.
type recPub struct {
	mu     sync.Mutex
	keys   []string
	delays []time.Duration
	nextID int
}

func (p *recPub) Publish(ctx context.Context, key string, event any, reqID string) error {
	return nil
}

func (p *recPub) PublishDelayed(ctx context.Context, key string, event any, delay time.Duration) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.delays = append(p.delays, delay)
	p.nextID++
	return fmt.Sprintf("job-%d", p.nextID), nil
}

func (p *recPub) Close() error { return nil }

func testConfig() config.Config {
	return config.Config{
		BackendHost:        "http://localhost:8080",
		JWTSecret:          "test-secret",
		AccessTTLMinutes:   15,
		RefreshTTLDays:     14,
		OAuthStateSecret:   "state-secret",
		EnablePasswordAuth: true,
	}
}

func newTestRouter(t *testing.T, cfg config.Config, store *fakeStore, pub *recPub) *gin.Engine {
	t.Helper()
	providers, err := oauth.BuildProviders(cfg)
	if err != nil {
		t.Fatal(err)
	}
	h := NewHandler(store, cfg, nil, queue.NewNoop(), queue.NewScheduler(pub), providers)
	return NewRouter(h)
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, mod func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if mod != nil {
		mod(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func refreshCookieFrom(w *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == refreshCookie {
			return ck
		}
	}
	return nil
}
