package oauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/azamatb/parcelhub/internal/security"
)

// StateSigner produces HMAC-signed state values for CSRF protection of the
// authorization redirect. State is nonce + "." + base64url(HMAC(nonce)).
type StateSigner struct {
	key []byte
}

func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{key: []byte(secret)}
}

func (s *StateSigner) New() (string, error) {
	raw, err := security.NewID()
	if err != nil {
		return "", err
	}
	return raw + "." + s.sign(raw), nil
}

func (s *StateSigner) Verify(got string) bool {
	i := strings.IndexByte(got, '.')
	if i < 0 {
		return false
	}
	raw, sig := got[:i], got[i+1:]
	want, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(raw))
	return hmac.Equal(mac.Sum(nil), want)
}

func (s *StateSigner) sign(raw string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
