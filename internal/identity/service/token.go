package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ironbark-dev/ironbark/internal/identity/domain"
	"github.com/ironbark-dev/ironbark/pkg/slogx"
)

// DefaultAccessTokenTTL is used when the config does not override it.
const DefaultAccessTokenTTL = 15 * time.Minute

// TokenService mints and verifies the HMAC-signed access tokens the HTTP
// layer uses to reconstruct the acting principal. Claims pass through
// CustomizeClaims before signing.
type TokenService struct {
	Auth   *AuthService
	Secret []byte
	Issuer string
	TTL    time.Duration

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// IssueToken authenticates the user and mints a signed JWT. Returns the
// compact token and its expiry.
func (s *TokenService) IssueToken(ctx context.Context, username, password string) (string, time.Time, error) {
	log := slogx.FromContext(ctx)

	principal, err := s.Auth.Authenticate(ctx, username, password)
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	expiresAt := now.Add(s.ttl())

	issuance := &IssuanceContext{
		Principal: &principal,
		Claims: map[string]any{
			"sub": principal.Username,
			"iss": s.Issuer,
			"iat": now.Unix(),
			"exp": expiresAt.Unix(),
		},
	}
	CustomizeClaims(issuance)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(issuance.Claims))
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		log.Error("failed to sign access token", "error", err)
		return "", time.Time{}, err
	}

	log.Info("access token issued", "username", principal.Username)
	return signed, expiresAt, nil
}

// VerifyToken parses and validates a compact token and rebuilds the acting
// principal from its claims.
func (s *TokenService) VerifyToken(ctx context.Context, raw string) (domain.Principal, error) {
	parsed, err := jwt.Parse(raw,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return s.Secret, nil
		},
		jwt.WithIssuer(s.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return domain.Principal{}, ErrInvalidCredentials
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Principal{}, ErrInvalidCredentials
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Principal{}, ErrInvalidCredentials
	}

	return domain.Principal{
		Username:    sub,
		Authorities: authoritiesFromClaims(claims),
	}, nil
}

func (s *TokenService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultAccessTokenTTL
}

func authoritiesFromClaims(claims jwt.MapClaims) []string {
	raw, ok := claims[AuthoritiesClaim]
	if !ok {
		return nil
	}

	switch vals := raw.(type) {
	case []string:
		return vals
	case []any: // JSON round-trip decodes arrays as []any
		out := make([]string, 0, len(vals))
		for _, v := range vals {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
