package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
	"github.com/feedbackflow/feedback-system/internal/core/ports"
	"github.com/feedbackflow/feedback-system/internal/pkg/ids"
)

const minPasswordLength = 8

// emailValidator applies the same address rule as the HTTP request schema.
var emailValidator = validator.New()

// tokenClaims is the JWT payload. Subject carries the user id.
type tokenClaims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AuthService implements registration, login/logout and principal resolution.
type AuthService struct {
	repo      ports.UserRepository
	blocklist ports.TokenBlocklist
	jwtSecret []byte
	tokenTTL  time.Duration
	timeout   time.Duration
	logger    zerolog.Logger
}

// AuthServiceConfig bundles the collaborators of AuthService.
type AuthServiceConfig struct {
	Repo      ports.UserRepository
	Blocklist ports.TokenBlocklist // optional; logout is a no-op without it
	JWTSecret string
	TokenTTL  time.Duration
	Timeout   time.Duration
	Logger    zerolog.Logger
}

func NewAuthService(cfg AuthServiceConfig) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthService{
		repo:      cfg.Repo,
		blocklist: cfg.Blocklist,
		jwtSecret: []byte(cfg.JWTSecret),
		tokenTTL:  ttl,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
	}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if err := emailValidator.Var(email, "required,email"); err != nil {
		return nil, domain.Invalid("email must be a valid address")
	}
	if len(in.Password) < minPasswordLength {
		return nil, domain.Invalid("password must be at least %d characters", minPasswordLength)
	}
	role := domain.Role(strings.ToLower(strings.TrimSpace(in.Role)))
	if !role.Valid() {
		return nil, domain.Invalid("role must be one of: manager employee")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           ids.New(),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("user registered")
	return user, nil
}

// Login verifies the credentials and issues a signed token. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := bounded(ctx, s.timeout, func(ctx context.Context) (*domain.User, error) {
		return s.repo.FindByEmail(ctx, email)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user logged in")
	return &ports.LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// ResolvePrincipal validates the token, rejects revoked ones and confirms the
// user still exists. The directory's current role wins over the token's.
func (s *AuthService) ResolvePrincipal(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing token", domain.ErrUnauthenticated)
	}
	claims, err := s.parseToken(token)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthenticated)
	}

	if s.blocklist != nil && claims.ID != "" {
		revoked, err := bounded(ctx, s.timeout, func(ctx context.Context) (bool, error) {
			return s.blocklist.IsRevoked(ctx, claims.ID)
		})
		if err != nil {
			return domain.Principal{}, fmt.Errorf("resolve principal: %w", err)
		}
		if revoked {
			return domain.Principal{}, fmt.Errorf("%w: token revoked", domain.ErrUnauthenticated)
		}
	}

	user, err := bounded(ctx, s.timeout, func(ctx context.Context) (*domain.User, error) {
		return s.repo.GetUserByID(ctx, claims.Subject)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Principal{}, fmt.Errorf("%w: unknown user", domain.ErrUnauthenticated)
		}
		return domain.Principal{}, fmt.Errorf("resolve principal: %w", err)
	}

	return domain.Principal{UserID: user.ID, Role: user.Role}, nil
}

// Logout revokes the token until it would have expired. Invalid or already
// expired tokens need no revocation.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s.blocklist == nil || token == "" {
		return nil
	}
	claims, err := s.parseToken(token)
	if err != nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	_, err = bounded(ctx, s.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.blocklist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
	})
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.logger.Info().Str("user_id", claims.Subject).Msg("user logged out")
	return nil
}

func (s *AuthService) Me(ctx context.Context, p domain.Principal) (*domain.User, error) {
	if !p.Valid() {
		return nil, domain.ErrUnauthenticated
	}
	return bounded(ctx, s.timeout, func(ctx context.Context) (*domain.User, error) {
		return s.repo.GetUserByID(ctx, p.UserID)
	})
}

func (s *AuthService) generateToken(user *domain.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	claims := tokenClaims{
		Role:  string(user.Role),
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ids.New(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *AuthService) parseToken(token string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing subject")
	}
	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
