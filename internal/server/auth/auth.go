// Package auth verifies the access tokens presented in the authentication
// handshake.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/akyaiy/rdata-node/internal/engine/config"
	"github.com/akyaiy/rdata-node/internal/server/session"
	"github.com/mitchellh/mapstructure"
)

var (
	ErrMissingToken = errors.New("accessToken is required")
	// ErrNotApplicable means the verifier does not handle this kind of token.
	ErrNotApplicable = errors.New("token not applicable to verifier")
	ErrInvalidToken  = errors.New("invalid token")
	ErrNoVerifiers   = errors.New("no verifiers configured")
)

type Verifier interface {
	Name() string
	Verify(ctx context.Context, token string) (*session.Identity, error)
}

type handshakeParams struct {
	AccessToken string `mapstructure:"accessToken"`
}

// TokenFromParams extracts accessToken from the handshake params.
func TokenFromParams(params any) (string, error) {
	var p handshakeParams
	if err := mapstructure.Decode(params, &p); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingToken, err)
	}
	if p.AccessToken == "" {
		return "", ErrMissingToken
	}
	return p.AccessToken, nil
}

// Chain tries each verifier in order; the first success wins.
type Chain []Verifier

func (c Chain) Name() string { return "chain" }

func (c Chain) Verify(ctx context.Context, token string) (*session.Identity, error) {
	if len(c) == 0 {
		return nil, ErrNoVerifiers
	}
	var errs []error
	for _, v := range c {
		identity, err := v.Verify(ctx, token)
		if err == nil {
			if identity.Verifier == "" {
				identity.Verifier = v.Name()
			}
			return identity, nil
		}
		if !errors.Is(err, ErrNotApplicable) {
			errs = append(errs, fmt.Errorf("%s: %w", v.Name(), err))
		}
	}
	if len(errs) == 0 {
		return nil, ErrInvalidToken
	}
	return nil, errors.Join(errs...)
}

// FromConfig builds the verifier chain for the configured credentials:
// API keys first, then JWT, then OIDC.
func FromConfig(ctx context.Context, o *config.Auth) (Chain, error) {
	var chain Chain
	if o.APIKeys != nil && len(*o.APIKeys) > 0 {
		chain = append(chain, NewAPIKeyVerifier(*o.APIKeys))
	}
	if o.JWTSecret != nil && *o.JWTSecret != "" {
		var issuer string
		if o.JWTIssuer != nil {
			issuer = *o.JWTIssuer
		}
		chain = append(chain, NewJWTVerifier([]byte(*o.JWTSecret), issuer))
	}
	if o.OIDC != nil && o.OIDC.Issuer != nil && *o.OIDC.Issuer != "" {
		var clientID string
		if o.OIDC.ClientID != nil {
			clientID = *o.OIDC.ClientID
		}
		v, err := NewOIDCVerifier(ctx, *o.OIDC.Issuer, clientID)
		if err != nil {
			return nil, err
		}
		chain = append(chain, v)
	}
	return chain, nil
}
