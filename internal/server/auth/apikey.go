package auth

import (
	"context"
	"strings"

	"github.com/akyaiy/rdata-node/internal/server/session"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyVerifier accepts tokens of the form "<keyID>.<secret>" where the
// secret matches the bcrypt hash stored for keyID.
type APIKeyVerifier struct {
	hashes map[string][]byte
}

func NewAPIKeyVerifier(hashes map[string]string) *APIKeyVerifier {
	v := &APIKeyVerifier{hashes: make(map[string][]byte, len(hashes))}
	for id, h := range hashes {
		v.hashes[id] = []byte(h)
	}
	return v
}

func (v *APIKeyVerifier) Name() string { return "apikey" }

func (v *APIKeyVerifier) Verify(_ context.Context, token string) (*session.Identity, error) {
	keyID, secret, ok := strings.Cut(token, ".")
	if !ok || keyID == "" || secret == "" {
		return nil, ErrNotApplicable
	}
	hash, ok := v.hashes[keyID]
	if !ok {
		return nil, ErrNotApplicable
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(secret)); err != nil {
		return nil, ErrInvalidToken
	}
	return &session.Identity{Subject: "apikey:" + keyID, Verifier: v.Name()}, nil
}

// HashSecret returns the bcrypt hash to put in auth.api_keys.
func HashSecret(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(h), err
}
