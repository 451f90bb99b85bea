package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultMinPasswordLength applies when the service is built with a
// non-positive minimum.
const DefaultMinPasswordLength = 8

// RegisterInput is what a new account needs.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Session is a freshly issued access token.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *User
}

// Service handles registration, login and token revocation.
type Service struct {
	users     UserStore
	tokens    *TokenManager
	blacklist Blacklist
	logger    *zap.Logger
	minPass   int
	hashCost  int
	now       func() time.Time
}

func NewService(users UserStore, tokens *TokenManager, blacklist Blacklist, minPasswordLength int, logger *zap.Logger) *Service {
	if minPasswordLength <= 0 {
		minPasswordLength = DefaultMinPasswordLength
	}
	if blacklist == nil {
		blacklist = NewMemoryBlacklist()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:     users,
		tokens:    tokens,
		blacklist: blacklist,
		logger:    logger,
		minPass:   minPasswordLength,
		hashCost:  bcrypt.DefaultCost,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// Register creates an active, unverified account with a bcrypt hashed password.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(in.Password) < s.minPass {
		return nil, fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, s.minPass)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	u := &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", u.ID.String()))
	return u, nil
}

// Login accepts either the username or the email as identifier.
func (s *Service) Login(ctx context.Context, identifier, password string) (*Session, error) {
	u, err := s.lookup(ctx, strings.TrimSpace(identifier))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	token, expiresAt, err := s.tokens.Generate(u)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: token, ExpiresAt: expiresAt, User: u}, nil
}

func (s *Service) lookup(ctx context.Context, identifier string) (*User, error) {
	if strings.Contains(identifier, "@") {
		return s.users.GetUserByEmail(ctx, identifier)
	}
	return s.users.GetUserByUsername(ctx, identifier)
}

// Authenticate validates a bearer token and returns its claims. Revoked
// tokens are rejected.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Logout revokes the token until its natural expiry.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	ttl := time.Until(claims.ExpiresAt.Time)
	return s.blacklist.Revoke(ctx, claims.ID, ttl)
}

// Me returns the account behind an authenticated user id.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.users.GetUserByID(ctx, userID)
}
