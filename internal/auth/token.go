// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultTokenTTL is the session lifetime used when none is configured.
const DefaultTokenTTL = 24 * time.Hour

// supportedAlgorithms lists the HMAC algorithms a TokenService can sign with.
var supportedAlgorithms = map[string]jwt.SigningMethod{
	jwt.SigningMethodHS256.Alg(): jwt.SigningMethodHS256,
	jwt.SigningMethodHS384.Alg(): jwt.SigningMethodHS384,
	jwt.SigningMethodHS512.Alg(): jwt.SigningMethodHS512,
}

// TokenConfig holds the signing parameters for session tokens.
type TokenConfig struct {
	Secret    string
	Algorithm string
	TTL       time.Duration
}

// Validate reports the first unusable setting.
func (c TokenConfig) Validate() error {
	if c.Secret == "" {
		return oops.Code("AUTH_CONFIG_INVALID").
			With("field", "secret").
			Wrapf(ErrConfiguration, "signing secret is required")
	}
	if c.Algorithm == "" {
		return oops.Code("AUTH_CONFIG_INVALID").
			With("field", "algorithm").
			Wrapf(ErrConfiguration, "signing algorithm is required")
	}
	if _, ok := supportedAlgorithms[c.Algorithm]; !ok {
		return oops.Code("AUTH_CONFIG_INVALID").
			With("field", "algorithm").
			With("algorithm", c.Algorithm).
			Wrapf(ErrConfiguration, "unsupported signing algorithm")
	}
	if c.TTL <= 0 {
		return oops.Code("AUTH_CONFIG_INVALID").
			With("field", "ttl").
			With("ttl", c.TTL.String()).
			Wrapf(ErrConfiguration, "token lifetime must be positive")
	}
	return nil
}

// TokenIssuer creates session tokens.
type TokenIssuer interface {
	// Issue returns a signed token for subject with the default lifetime.
	Issue(subject string) (string, error)
}

// TokenValidator checks session tokens.
type TokenValidator interface {
	// Validate returns the token subject if the token is authentic and unexpired.
	Validate(token string) (string, error)
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// TokenService issues and validates signed JWT session tokens.
// Tokens carry sub (email), iat, exp and a unique jti. Nothing is stored server-side.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenService validates cfg and returns a ready TokenService.
// It is meant to be called once at startup so a bad configuration stops the process.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &TokenService{
		secret: []byte(cfg.Secret),
		method: supportedAlgorithms[cfg.Algorithm],
		ttl:    cfg.TTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	return s, nil
}

// TTL returns the default token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue returns a signed token for subject that expires after the configured TTL.
func (s *TokenService) Issue(subject string) (string, error) {
	return s.IssueWithTTL(subject, s.ttl)
}

// IssueWithTTL returns a signed token for subject that expires after ttl.
// A zero ttl yields a token that is already expired.
func (s *TokenService) IssueWithTTL(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", oops.Code("TOKEN_SUBJECT_MISSING").Wrap(ErrSubjectMissing)
	}
	if ttl < 0 {
		return "", oops.Code("TOKEN_TTL_INVALID").
			With("ttl", ttl.String()).
			Errorf("token lifetime cannot be negative")
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        ulid.Make().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Validate verifies the signature and expiry of token and returns its subject.
//
// Failures wrap exactly one of ErrTokenMalformed, ErrTokenInvalid,
// ErrTokenExpired or ErrSubjectMissing. The signature is checked before
// the expiry, so a forged token never reports as merely expired.
func (s *TokenService) Validate(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", s.classify(token, err)
	}

	if claims.Subject == "" {
		return "", oops.Code("TOKEN_SUBJECT_MISSING").Wrap(ErrSubjectMissing)
	}
	return claims.Subject, nil
}

func (s *TokenService) classify(token string, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		// A readable header and payload with an undecodable signature is a
		// tampered token rather than garbage. The signature is dropped before
		// the unverified parse because that parse decodes it too.
		if parts := strings.Split(token, "."); len(parts) == 3 {
			unsigned := parts[0] + "." + parts[1] + "."
			if _, _, unverifiedErr := s.parser.ParseUnverified(unsigned, &jwt.RegisteredClaims{}); unverifiedErr == nil {
				return oops.Code("TOKEN_INVALID").With("cause", err.Error()).Wrap(ErrTokenInvalid)
			}
		}
		return oops.Code("TOKEN_MALFORMED").With("cause", err.Error()).Wrap(ErrTokenMalformed)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return oops.Code("TOKEN_INVALID").With("cause", err.Error()).Wrap(ErrTokenInvalid)
	case errors.Is(err, jwt.ErrTokenExpired):
		return oops.Code("TOKEN_EXPIRED").Wrap(ErrTokenExpired)
	default:
		// Missing exp, not-yet-valid and other claim failures.
		return oops.Code("TOKEN_INVALID").With("cause", err.Error()).Wrap(ErrTokenInvalid)
	}
}
