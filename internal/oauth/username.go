package oauth

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/azamatb/parcelhub/internal/domain"
)

var usernameRe = regexp.MustCompile(`^[a-z0-9._+-]+$`)

// DeriveUsername maps an email address to its canonical username: the local
// part (before the first @) lower-cased. A local part containing characters
// outside [a-z0-9._+-] is a reported validation failure, never silently
// stripped.
func DeriveUsername(email string) (string, error) {
	local := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local = email[:i]
	}
	local = strings.ToLower(local)
	if !usernameRe.MatchString(local) {
		return "", &domain.ValidationError{
			Field:   "username",
			Message: "email local part contains unsupported characters",
		}
	}
	return local, nil
}

// suffixUsername appends a short random suffix so two accounts sharing a
// local part (jane@gmail.com, jane@yahoo.com) can both hold a username. The
// result still matches usernameRe.
func suffixUsername(base string) (string, error) {
	b := make([]byte, 2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base + "-" + hex.EncodeToString(b), nil
}
