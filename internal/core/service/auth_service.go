package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/caseperl/caseperl-api/internal/core/domain"
	"github.com/caseperl/caseperl-api/internal/core/ports"
)

// dummyHash is compared against when a username is unknown so that a
// missing user costs the same bcrypt work as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("caseperl-dummy-password"), bcrypt.DefaultCost)

// AuthOptions tunes session issuance.
type AuthOptions struct {
	// RotateRefresh revokes the presented refresh token on every refresh
	// and returns a new one alongside the access token.
	RotateRefresh bool
}

// AuthService implements registration, login and the session lifecycle.
type AuthService struct {
	repo    ports.UserRepository
	revoked ports.TokenRevocationStore
	tokens  *TokenManager
	opts    AuthOptions
	logger  zerolog.Logger
	now     func() time.Time
}

func NewAuthService(
	repo ports.UserRepository,
	revoked ports.TokenRevocationStore,
	tokens *TokenManager,
	opts AuthOptions,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		repo:    repo,
		revoked: revoked,
		tokens:  tokens,
		opts:    opts,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(username) > domain.MaxUsernameLength {
		return nil, fmt.Errorf("%w: username must be at most %d characters", domain.ErrInvalidInput, domain.MaxUsernameLength)
	}

	role := in.Role
	if role == "" {
		role = domain.RoleAgent
	}
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("%w: role must be one of: %s %s", domain.ErrInvalidInput, domain.RoleAgent, domain.RoleAdmin)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	created, err := s.repo.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", created.ID).Str("role", created.Role).Msg("user registered")
	return created, nil
}

// Authenticate never tells the caller which part of the credentials was
// wrong.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) IssueSession(_ context.Context, user *domain.User) (*domain.Session, error) {
	return s.tokens.Session(user)
}

func (s *AuthService) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		return nil, domain.ErrTokenInvalidOrExpired
	}

	claims, err := s.tokens.parseRefresh(refreshToken)
	if err != nil {
		s.logger.Debug().Err(err).Msg("refresh token rejected")
		return nil, domain.ErrTokenInvalidOrExpired
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, domain.ErrTokenInvalidOrExpired
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTokenInvalidOrExpired
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrTokenInvalidOrExpired
	}

	access, err := s.tokens.issueAccess(user)
	if err != nil {
		return nil, err
	}
	session := &domain.Session{
		AccessToken:     access.raw,
		AccessExpiresAt: access.claims.ExpiresAt.Time,
	}

	if s.opts.RotateRefresh {
		ok, err := s.revoked.Revoke(ctx, claims.ID, s.tokens.remaining(claims))
		if err != nil {
			return nil, fmt.Errorf("revoke rotated token: %w", err)
		}
		if !ok {
			// lost a race with a concurrent refresh or logout
			return nil, domain.ErrTokenInvalidOrExpired
		}
		refresh, err := s.tokens.issueRefresh(user)
		if err != nil {
			return nil, err
		}
		session.RefreshToken = refresh.raw
		session.RefreshExpiresAt = refresh.claims.ExpiresAt.Time
	}

	return session, nil
}

// RevokeSession blacklists a refresh token. An empty token is a no-op.
func (s *AuthService) RevokeSession(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	claims, err := s.tokens.parseRefresh(refreshToken)
	if err != nil {
		return domain.ErrInvalidToken
	}

	ok, err := s.revoked.Revoke(ctx, claims.ID, s.tokens.remaining(claims))
	if err != nil {
		s.logger.Warn().Err(err).Str("jti", claims.ID).Msg("failed to revoke refresh token")
		return domain.ErrInvalidToken
	}
	if !ok {
		return domain.ErrInvalidToken
	}

	s.logger.Info().Int64("user_id", claims.UserID).Str("jti", claims.ID).Msg("refresh token revoked")
	return nil
}

func (s *AuthService) CurrentIdentity(ctx context.Context, accessToken string) (*domain.Identity, error) {
	if accessToken == "" {
		return nil, domain.ErrUnauthenticated
	}

	id, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}

	user, err := s.repo.FindByID(ctx, id.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUnauthenticated
	}
	return user.Identity(), nil
}

func (s *AuthService) SetActive(ctx context.Context, userID int64, active bool) (*domain.User, error) {
	if err := s.repo.SetActive(ctx, userID, active, s.now()); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("user_id", userID).Bool("active", active).Msg("user active flag changed")
	return user, nil
}

// DeleteUser removes the user together with every case they own.
func (s *AuthService) DeleteUser(ctx context.Context, userID int64) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Warn().Int64("user_id", userID).Msg("user deleted with all owned cases")
	return nil
}
