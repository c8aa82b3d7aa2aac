package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/akyaiy/rdata-node/internal/server/session"
	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier accepts ID tokens issued to clientID by an OpenID provider.
type OIDCVerifier struct {
	issuer   string
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier runs provider discovery against issuer.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to query provider %q: %w", issuer, err)
	}
	return &OIDCVerifier{
		issuer:   issuer,
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// NewOIDCVerifierWithKeys verifies against a fixed key set, without discovery.
func NewOIDCVerifierWithKeys(issuer, clientID string, keys oidc.KeySet) *OIDCVerifier {
	return &OIDCVerifier{
		issuer:   issuer,
		verifier: oidc.NewVerifier(issuer, keys, &oidc.Config{ClientID: clientID}),
	}
}

func (v *OIDCVerifier) Name() string { return "oidc" }

func (v *OIDCVerifier) Verify(ctx context.Context, token string) (*session.Identity, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrNotApplicable
	}
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &session.Identity{
		Subject:   fmt.Sprintf("%s:%s", v.issuer, idToken.Subject),
		Verifier:  v.Name(),
		ExpiresAt: idToken.Expiry,
	}, nil
}
