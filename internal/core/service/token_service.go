package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/conversia/admin-platform/internal/core/ports"
	"github.com/conversia/admin-platform/internal/metrics"
)

const defaultTokenTTL = 30 * time.Minute

// Claims is the signed payload of an access token.
type Claims struct {
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	SessionID string   `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// TokenData is what a verified token says about its bearer.
type TokenData struct {
	SubjectID string
	Email     string
	Roles     []string
	TokenID   string
	SessionID string
	ExpiresAt time.Time
}

// IssuedToken is a freshly signed token and its lifetime.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
	ExpiresIn int // seconds
}

// TokenService signs and verifies access tokens. Verification consults the
// denylist so revoked tokens stop working before their natural expiry.
type TokenService struct {
	secret   []byte
	method   jwt.SigningMethod
	ttl      time.Duration
	denylist ports.TokenDenylist
	log      zerolog.Logger
	now      func() time.Time
}

// NewTokenService builds a TokenService. algorithm must be an HMAC method
// (HS256, HS384, HS512); anything else falls back to HS256. denylist may be nil.
func NewTokenService(secret, algorithm string, ttl time.Duration, denylist ports.TokenDenylist, log zerolog.Logger) *TokenService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		method = jwt.SigningMethodHS256
	}
	return &TokenService{
		secret:   []byte(secret),
		method:   method,
		ttl:      ttl,
		denylist: denylist,
		log:      log,
		now:      time.Now,
	}
}

// TTL is the default token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for subjectID. A non-positive ttl uses the default.
func (s *TokenService) Issue(subjectID, email string, roles []string, ttl time.Duration) (IssuedToken, error) {
	return s.issue("", subjectID, email, roles, ttl)
}

// IssueForSession signs a default-lifetime token carrying sessionID in the
// sid claim.
func (s *TokenService) IssueForSession(sessionID, subjectID, email string, roles []string) (IssuedToken, error) {
	return s.issue(sessionID, subjectID, email, roles, 0)
}

func (s *TokenService) issue(sessionID, subjectID, email string, roles []string, ttl time.Duration) (IssuedToken, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now().UTC()
	exp := now.Add(ttl)
	id := ulid.Make().String()

	if roles == nil {
		roles = []string{}
	}
	claims := Claims{
		Email:     email,
		Roles:     roles,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{
		Token:     signed,
		ID:        id,
		ExpiresAt: exp,
		ExpiresIn: int(ttl / time.Second),
	}, nil
}

// Verify decodes token. It reports false for malformed, badly signed,
// wrongly signed (algorithm), expired, or revoked tokens. A denylist lookup
// failure also yields false.
func (s *TokenService) Verify(ctx context.Context, token string) (*TokenData, bool) {
	if token == "" {
		metrics.TokenVerificationsTotal.WithLabelValues("malformed").Inc()
		return nil, false
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		metrics.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
		return nil, false
	}

	if s.denylist != nil && claims.ID != "" {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("jti", claims.ID).Msg("denylist lookup failed, rejecting token")
			metrics.TokenVerificationsTotal.WithLabelValues("denylist_error").Inc()
			return nil, false
		}
		if revoked {
			metrics.TokenVerificationsTotal.WithLabelValues("revoked").Inc()
			return nil, false
		}
	}

	metrics.TokenVerificationsTotal.WithLabelValues("valid").Inc()
	data := &TokenData{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		Roles:     claims.Roles,
		TokenID:   claims.ID,
		SessionID: claims.SessionID,
	}
	if claims.ExpiresAt != nil {
		data.ExpiresAt = claims.ExpiresAt.Time
	}
	return data, true
}

// Revoke denylists tokenID until expiresAt. Already expired tokens need no
// entry.
func (s *TokenService) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.denylist == nil || tokenID == "" {
		return nil
	}
	remaining := expiresAt.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	return s.denylist.Revoke(ctx, tokenID, remaining)
}
