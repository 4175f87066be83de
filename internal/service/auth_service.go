package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tubegate/internal/ids"
	"tubegate/internal/metrics"
	"tubegate/internal/models"
	"tubegate/internal/repository"
	"tubegate/internal/security"
)

type AuthService struct {
	users     UserStore
	blacklist repository.Blacklist
	tokens    *security.TokenService
	hasher    *security.PasswordHasher
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthService(
	users UserStore,
	blacklist repository.Blacklist,
	tokens *security.TokenService,
	hasher *security.PasswordHasher,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		blacklist: blacklist,
		tokens:    tokens,
		hasher:    hasher,
		log:       log,
		now:       time.Now,
	}
}

type AuthResult struct {
	User         models.User
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (AuthResult, error) {
	input, err := input.normalize()
	if err != nil {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return AuthResult{}, err
	}
	email := models.NormalizeEmail(input.Email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		metrics.SignupsTotal.WithLabelValues("conflict").Inc()
		return AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, fmt.Errorf("lookup email: %w", err)
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Name:         input.Name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			metrics.SignupsTotal.WithLabelValues("conflict").Inc()
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, err
	}

	result, err := s.issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	metrics.SignupsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("user registered")
	return result, nil
}

// Login costs one bcrypt comparison whether or not the email exists.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return AuthResult{}, invalid("credentials", "Email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
			return AuthResult{}, fmt.Errorf("lookup email: %w", err)
		}
		s.hasher.VerifyDummy(password)
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		s.log.Warn().Str("email", models.NormalizeEmail(email)).Msg("login attempt for unknown email")
		return AuthResult{}, ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		s.log.Warn().Str("user_id", user.ID).Msg("login failed: wrong password")
		return AuthResult{}, ErrInvalidCredentials
	}

	result, err := s.issue(user)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return AuthResult{}, err
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return result, nil
}

// Refresh mints a new access token. The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if refreshToken == "" {
		return AuthResult{}, invalid("refresh_token", "Refresh token is required")
	}

	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return AuthResult{}, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrUserGone
		}
		return AuthResult{}, err
	}

	access, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	s.log.Info().Str("user_id", user.ID).Msg("access token refreshed")
	return AuthResult{
		User:        user,
		AccessToken: access,
		ExpiresIn:   s.expiresIn(),
	}, nil
}

// Logout revokes the access token until its own expiry. Calling it twice
// with the same token is harmless.
func (s *AuthService) Logout(ctx context.Context, user models.User, accessToken string, expiresAt time.Time) error {
	if err := s.blacklist.Add(ctx, accessToken, expiresAt); err != nil {
		return err
	}
	s.log.Info().Str("user_id", user.ID).Msg("user logged out")
	return nil
}

// Authenticate resolves a bearer token to its user. The blacklist is
// consulted before the signature so revoked tokens report as invalidated.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (models.User, *security.SessionClaims, error) {
	revoked, err := s.blacklist.Contains(ctx, accessToken)
	if err != nil {
		return models.User{}, nil, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return models.User{}, nil, ErrTokenInvalidated
	}
	return s.Resolve(ctx, accessToken)
}

// Resolve verifies an access token and loads its user without looking at the
// blacklist. Only logout uses it directly.
func (s *AuthService) Resolve(ctx context.Context, accessToken string) (models.User, *security.SessionClaims, error) {
	claims, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		return models.User{}, nil, ErrInvalidAccessToken
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, nil, ErrUserGone
		}
		return models.User{}, nil, err
	}
	return user, claims, nil
}

func (s *AuthService) issue(user models.User) (AuthResult, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.expiresIn(),
	}, nil
}

func (s *AuthService) expiresIn() int {
	return int(s.tokens.AccessTTL() / time.Second)
}
