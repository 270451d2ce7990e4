package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"leavelite/internal/apperror"
)

const minPasswordLength = 8

type Service struct {
	Store          StoreAPI
	Secret         string
	TokenTTL       time.Duration
	DefaultBalance int
	Logger         *zap.Logger
}

func NewService(store StoreAPI, secret string, tokenTTL time.Duration, defaultBalance int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Store:          store,
		Secret:         secret,
		TokenTTL:       tokenTTL,
		DefaultBalance: defaultBalance,
		Logger:         logger.Named("auth.service"),
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with the default leave balance. Only an admin caller may choose the role.
func (s *Service) Register(ctx context.Context, caller *Identity, input RegisterInput) (User, error) {
	name := strings.TrimSpace(input.Name)
	email := NormalizeEmail(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return User{}, apperror.Validation("name, email and password are required")
	}
	if len(input.Password) < minPasswordLength {
		return User{}, apperror.Validation("password must be at least 8 characters")
	}

	role := RoleEmployee
	if input.Role != "" && input.Role != RoleEmployee {
		if caller == nil || !caller.IsAdmin() {
			return User{}, apperror.Authorization("only administrators may assign roles")
		}
		if !ValidRole(input.Role) {
			return User{}, apperror.Validation("invalid role")
		}
		role = input.Role
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return User{}, apperror.Dependency(err, "failed to hash password")
	}

	user, err := s.Store.CreateUser(ctx, User{
		Name:           name,
		Email:          email,
		PasswordHash:   hash,
		Role:           role,
		AvailableLeave: s.DefaultBalance,
	})
	if errors.Is(err, ErrEmailTaken) {
		return User{}, apperror.Conflict("email already registered")
	}
	if err != nil {
		return User{}, apperror.Dependency(err, "failed to create user")
	}
	s.Logger.Info("user registered", zap.String("userId", user.ID), zap.String("role", user.Role))
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.Store.UserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return LoginResult{}, apperror.Authentication("invalid credentials")
	}
	if err != nil {
		return LoginResult{}, apperror.Dependency(err, "failed to load user")
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return LoginResult{}, apperror.Authentication("invalid credentials")
	}

	token, err := GenerateToken(s.Secret, Claims{UserID: user.ID, Role: user.Role}, s.TokenTTL)
	if err != nil {
		return LoginResult{}, apperror.Dependency(err, "failed to issue token")
	}
	return LoginResult{Token: token, ExpiresAt: time.Now().Add(s.TokenTTL), User: user}, nil
}

// Authenticate resolves a bearer token into the caller identity.
func (s *Service) Authenticate(token string) (Identity, error) {
	if strings.TrimSpace(token) == "" {
		return Identity{}, apperror.Authentication("authentication required")
	}
	claims, err := ParseToken(s.Secret, token)
	if err != nil {
		return Identity{}, apperror.Wrap(err, apperror.KindAuthentication, "invalid token")
	}
	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	user, err := s.Store.UserByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return Profile{}, apperror.NotFound("user not found")
	}
	if err != nil {
		return Profile{}, apperror.Dependency(err, "failed to load user")
	}
	pending, err := s.Store.PendingRequestCount(ctx, userID)
	if err != nil {
		return Profile{}, apperror.Dependency(err, "failed to count pending requests")
	}
	return Profile{User: user, PendingRequests: pending}, nil
}

// EnsureAdmin creates the bootstrap administrator if no user owns the email yet.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (User, bool, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return User{}, false, apperror.Validation("admin email and password are required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, false, err
	}
	user, created, err := s.Store.EnsureUser(ctx, User{
		Name:           strings.TrimSpace(name),
		Email:          email,
		PasswordHash:   hash,
		Role:           RoleAdmin,
		AvailableLeave: s.DefaultBalance,
	})
	if err != nil {
		return User{}, false, err
	}
	if created {
		s.Logger.Info("admin user seeded", zap.String("userId", user.ID))
	}
	return user, created, nil
}
