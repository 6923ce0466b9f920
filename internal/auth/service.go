package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/myfruitshop/myfruitshop/internal/shared"
)

// dummyHash keeps the unknown-email path as slow as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("myfruitshop-dummy-password"), bcrypt.DefaultCost)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return User{}, err
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return User{}, shared.ErrInvalidCredentials
	}
	if err := s.repo.TouchLogin(ctx, user.ID, s.now().UTC()); err != nil {
		s.logger.Warn("record login time", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	return user, nil
}

// ActiveUser loads a signed-in user, rejecting disabled accounts.
func (s *Service) ActiveUser(ctx context.Context, id int64) (User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !user.IsActive {
		return User{}, shared.ErrNotFound
	}
	return user, nil
}

// HashPassword returns the bcrypt hash stored for a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
