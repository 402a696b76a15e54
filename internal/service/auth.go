package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/taskboard/taskboard/internal/auth"
	"github.com/taskboard/taskboard/internal/metrics"
	"github.com/taskboard/taskboard/internal/model"
	"github.com/taskboard/taskboard/internal/repository"
)

// AuthService handles registration, login and identity lookup.
type AuthService struct {
	users   UserStore
	hasher  *auth.PasswordHasher
	tokens  *auth.TokenManager
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, hasher *auth.PasswordHasher, tokens *auth.TokenManager, recorder metrics.Recorder, logger *slog.Logger) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		metrics: recorder,
		logger:  logger,
	}
}

// RegisterInput defines input for creating an account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// LoginInput defines input for exchanging credentials for a token.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is a user together with a freshly issued session token.
type AuthResult struct {
	User  *model.User
	Token *auth.IssuedToken
}

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	errs := fieldErrors{}
	email := validateEmail(errs, input.Email)
	validatePassword(errs, input.Password)
	name := validateName(errs, input.Name)
	if err := errs.err(); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        email,
		Name:         name,
		PasswordHash: digest,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.IncRegistration()
	return &AuthResult{User: user, Token: token}, nil
}

// lookupLogin finds the account for email. An address no account could
// have been registered with is reported as unknown without a store query.
func (s *AuthService) lookupLogin(ctx context.Context, email string) (*model.User, error) {
	if !isStorableText(email, false) {
		return nil, repository.ErrUserNotFound
	}
	return s.users.GetUserByEmail(ctx, email)
}

// Login verifies credentials and issues a token. An unknown email and a
// wrong password both yield ErrInvalidCredentials after a full hash
// verification.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	errs := fieldErrors{}
	email := model.NormalizeEmail(input.Email)
	if email == "" {
		errs.add("email", "is required")
	}
	if input.Password == "" {
		errs.add("password", "is required")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	user, err := s.lookupLogin(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.VerifyDummy(input.Password)
			s.metrics.IncLogin(metrics.LoginFailure)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		s.metrics.IncLogin(metrics.LoginFailure)
		return nil, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user, input.Password)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	return &AuthResult{User: user, Token: token}, nil
}

// Me returns the account behind a verified token. A token whose user no
// longer exists is treated as unauthorized.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// upgradeHash re-hashes a password stored with legacy or weaker
// parameters. Failures are logged; the login itself still succeeds.
func (s *AuthService) upgradeHash(ctx context.Context, user *model.User, password string) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn("password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.users.UpdateUserPasswordHash(ctx, user.ID, digest); err != nil {
		s.logger.Warn("password rehash store failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = digest
	s.logger.Info("password hash upgraded", "user_id", user.ID)
}
