package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/apperr"
	"github.com/oklog/ulid/v2"
)

var (
	ErrInvalidToken     = apperr.Unauthenticated("INVALID_TOKEN", "token signature or format is invalid")
	ErrTokenExpired     = apperr.Unauthenticated("TOKEN_EXPIRED", "token has expired")
	ErrAudienceMismatch = apperr.Unauthenticated("AUDIENCE_MISMATCH", "token audience does not match")
)

type TokenType string

const (
	TokenTypeActivation TokenType = "activation"
	TokenTypeAPI        TokenType = "api"
)

// TokenConfig is built once at startup and never mutated.
type TokenConfig struct {
	Algorithm          string
	Secret             []byte
	Issuer             string
	Audience           string
	ActivationLifetime time.Duration
	APILifetime        time.Duration
}

type Claims struct {
	Type TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// AccountID parses the subject claim.
func (c *Claims) AccountID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// IssuedToken is a signed token together with the payload it carries.
type IssuedToken struct {
	Token     string
	Claims    *Claims
	ExpiresAt time.Time
	Lifetime  time.Duration
}

type JWTService struct {
	cfg    TokenConfig
	method jwt.SigningMethod
	now    func() time.Time
}

type Option func(*JWTService)

// WithClock replaces the wall clock, used to freeze time in tests.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) {
		s.now = now
	}
}

func NewJWTService(cfg TokenConfig, opts ...Option) (*JWTService, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if cfg.ActivationLifetime <= 0 {
		cfg.ActivationLifetime = time.Hour
	}
	if cfg.APILifetime <= 0 {
		cfg.APILifetime = 14 * 24 * time.Hour
	}

	s := &JWTService{cfg: cfg, method: method, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DefaultLifetime returns the configured lifetime for a token type.
func (s *JWTService) DefaultLifetime(typ TokenType) time.Duration {
	if typ == TokenTypeActivation {
		return s.cfg.ActivationLifetime
	}
	return s.cfg.APILifetime
}

// Audience returns the configured audience, empty when none is set.
func (s *JWTService) Audience() string {
	return s.cfg.Audience
}

// Now returns the service clock's current time.
func (s *JWTService) Now() time.Time {
	return s.now()
}

// Issue signs a token for subjectID. A non-positive lifetime falls back to the
// api lifetime; an empty audience falls back to the configured one.
func (s *JWTService) Issue(subjectID uuid.UUID, typ TokenType, lifetime time.Duration, audience string) (*IssuedToken, error) {
	if lifetime <= 0 {
		lifetime = s.cfg.APILifetime
	}
	if audience == "" {
		audience = s.cfg.Audience
	}

	now := s.now().Truncate(time.Second)
	expiresAt := now.Add(lifetime)

	claims := &Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
			Issuer:    s.cfg.Issuer,
			Subject:   subjectID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	return &IssuedToken{
		Token:     signed,
		Claims:    claims,
		ExpiresAt: expiresAt,
		Lifetime:  lifetime,
	}, nil
}

// Verify checks signature, expiry and audience. An empty expectedAudience
// falls back to the configured audience; when both are empty the audience is
// not checked.
func (s *JWTService) Verify(tokenString, expectedAudience string) (*Claims, error) {
	if expectedAudience == "" {
		expectedAudience = s.cfg.Audience
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if expectedAudience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(expectedAudience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.cfg.Secret, nil
	}, parserOpts...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrInvalidToken
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, ErrAudienceMismatch
		case errors.Is(err, jwt.ErrTokenRequiredClaimMissing) && expectedAudience != "" && missingAudience(token):
			return nil, ErrAudienceMismatch
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type == "" {
		return nil, ErrInvalidToken
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func missingAudience(token *jwt.Token) bool {
	if token == nil {
		return false
	}
	claims, ok := token.Claims.(*Claims)
	return ok && len(claims.Audience) == 0
}

// HumanReadableLifetime renders a lifetime for display, e.g. "2 weeks".
func HumanReadableLifetime(d time.Duration) string {
	base := time.Unix(0, 0)
	return strings.TrimSpace(humanize.RelTime(base, base.Add(d), "", ""))
}
