package authz

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrUnknownIdentity   = errors.New("unknown identity")
)

// IdentityProvider turns a caller credential into a stable subject id.
type IdentityProvider interface {
	Subject(ctx context.Context, credential string) (string, error)
}

// JWTConfig configures a JWTIdentityProvider. Exactly one of SecretKey
// (HS256) or PublicKey (RS256, PEM encoded) must be set.
type JWTConfig struct {
	SecretKey string
	PublicKey string
	Issuer    string
	Audience  string
}

// JWTIdentityProvider validates bearer tokens and returns their sub claim.
type JWTIdentityProvider struct {
	parser    *jwt.Parser
	secretKey []byte
	publicKey *rsa.PublicKey
}

func NewJWTIdentityProvider(cfg JWTConfig) (*JWTIdentityProvider, error) {
	p := &JWTIdentityProvider{}

	var method string
	switch {
	case cfg.PublicKey != "" && cfg.SecretKey != "":
		return nil, errors.New("set either a secret key or a public key, not both")
	case cfg.PublicKey != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
		p.publicKey = key
		method = jwt.SigningMethodRS256.Alg()
	case cfg.SecretKey != "":
		p.secretKey = []byte(cfg.SecretKey)
		method = jwt.SigningMethodHS256.Alg()
	default:
		return nil, errors.New("a secret key or a public key is required")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{method}), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	p.parser = jwt.NewParser(opts...)
	return p, nil
}

// Subject validates credential, with or without a "Bearer " prefix.
func (p *JWTIdentityProvider) Subject(ctx context.Context, credential string) (string, error) {
	token := strings.TrimSpace(strings.TrimPrefix(credential, "Bearer "))
	if token == "" {
		return "", ErrMissingCredential
	}

	var claims jwt.RegisteredClaims
	_, err := p.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if p.publicKey != nil {
			return p.publicKey, nil
		}
		return p.secretKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidCredential)
	}
	return claims.Subject, nil
}

// StaticIdentityProvider maps credentials to subjects from a fixed table.
type StaticIdentityProvider map[string]string

func (s StaticIdentityProvider) Subject(ctx context.Context, credential string) (string, error) {
	if credential == "" {
		return "", ErrMissingCredential
	}
	sub, ok := s[credential]
	if !ok {
		return "", ErrUnknownIdentity
	}
	return sub, nil
}
