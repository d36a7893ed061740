package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/azamatb/parcelhub/internal/domain"
)

// UserStore is the persistence surface the resolver needs.
type UserStore interface {
	// FindUserByEmail returns (nil, nil) when no user exists.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// CreateUser returns domain.ErrConflict when a unique index rejects the
	// insert.
	CreateUser(ctx context.Context, u *domain.User) error
}

// usernameRetries bounds how many suffixed usernames the resolver tries when
// the derived one is taken by another account.
const usernameRetries = 3

// ResolveUser finds or creates the local user for a verified provider
// profile. An existing record wins as-is: no merging, no field refresh.
// New records are created with no password hash. Two unique indexes can
// reject the insert: a lost race on the email index means a concurrent
// callback won, so the winner's record is re-read and returned; a collision
// on the username index (same local part under a different domain) keeps the
// new user and retries with a suffixed username.
func ResolveUser(ctx context.Context, store UserStore, p *Profile) (*domain.User, bool, error) {
	if p == nil || p.Email == "" || !strings.Contains(p.Email, "@") {
		return nil, false, fmt.Errorf("%w: oauth profile has no usable email", domain.ErrUnauthorized)
	}
	email := strings.ToLower(strings.TrimSpace(p.Email))

	u, err := store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if u != nil {
		return u, false, nil
	}

	username, err := DeriveUsername(email)
	if err != nil {
		return nil, false, err
	}
	name := strings.TrimSpace(p.DisplayName)
	if name == "" {
		name = username
	}
	nu := &domain.User{
		Name:            name,
		Username:        username,
		Email:           email,
		ProfileImageURL: p.AvatarURL,
		CreatedAt:       time.Now().UTC(),
	}
	for attempt := 0; ; attempt++ {
		err := store.CreateUser(ctx, nu)
		if err == nil {
			return nu, true, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, false, err
		}
		winner, ferr := store.FindUserByEmail(ctx, email)
		if ferr != nil {
			return nil, false, ferr
		}
		if winner != nil {
			return winner, false, nil
		}
		// The email is free, so the username index rejected the insert:
		// another account already owns this local part.
		if attempt == usernameRetries {
			return nil, false, err
		}
		suffixed, serr := suffixUsername(username)
		if serr != nil {
			return nil, false, serr
		}
		nu.Username = suffixed
	}
}
