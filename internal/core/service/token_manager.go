package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/caseperl/caseperl-api/internal/core/domain"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	defaultAccessTTL  = 5 * time.Minute
	defaultRefreshTTL = 24 * time.Hour
)

var errWrongTokenType = errors.New("unexpected token type")

// TokenConfig controls token lifetimes and signing.
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// tokenClaims is the payload of both access and refresh tokens.
type tokenClaims struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 access and refresh tokens.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewTokenManager(cfg TokenConfig) *TokenManager {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	return &TokenManager{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}
}

// issuedToken is a signed token together with the claims it carries.
type issuedToken struct {
	raw    string
	claims *tokenClaims
}

// Session issues a fresh access/refresh pair for user.
func (m *TokenManager) Session(user *domain.User) (*domain.Session, error) {
	access, err := m.issueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, err := m.issueRefresh(user)
	if err != nil {
		return nil, err
	}
	return &domain.Session{
		AccessToken:      access.raw,
		AccessExpiresAt:  access.claims.ExpiresAt.Time,
		RefreshToken:     refresh.raw,
		RefreshExpiresAt: refresh.claims.ExpiresAt.Time,
	}, nil
}

func (m *TokenManager) issueAccess(user *domain.User) (issuedToken, error) {
	return m.issue(user, tokenTypeAccess, m.accessTTL)
}

func (m *TokenManager) issueRefresh(user *domain.User) (issuedToken, error) {
	return m.issue(user, tokenTypeRefresh, m.refreshTTL)
}

func (m *TokenManager) issue(user *domain.User, tokenType string, ttl time.Duration) (issuedToken, error) {
	now := m.now()
	claims := &tokenClaims{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        m.newJTI(now),
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return issuedToken{}, fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return issuedToken{raw: signed, claims: claims}, nil
}

func (m *TokenManager) newJTI(at time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), m.entropy).String()
}

// ParseAccessToken verifies an access token and returns the identity it
// was issued for.
func (m *TokenManager) ParseAccessToken(raw string) (*domain.Identity, error) {
	claims, err := m.parse(raw, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	return &domain.Identity{ID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil
}

func (m *TokenManager) parseRefresh(raw string) (*tokenClaims, error) {
	return m.parse(raw, tokenTypeRefresh)
}

func (m *TokenManager) parse(raw, wantType string) (*tokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &tokenClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	if claims.TokenType != wantType {
		return nil, errWrongTokenType
	}
	return claims, nil
}

// remaining returns how long claims stay valid, never less than a second.
func (m *TokenManager) remaining(claims *tokenClaims) time.Duration {
	if claims.ExpiresAt == nil {
		return m.refreshTTL
	}
	ttl := claims.ExpiresAt.Sub(m.now())
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}
