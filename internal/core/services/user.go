package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Team-Zemo/omninet-core-sub000/internal/core/contracts"
	"github.com/Team-Zemo/omninet-core-sub000/internal/core/domain"
)

// UserService is the narrow surface over the external identity
// collaborator: OTP issuance/verification and user resolution.
type UserService struct {
	log      *slog.Logger
	repo     domain.UserRepository
	verifier contracts.Verifier
}

func NewUserService(log *slog.Logger, repo domain.UserRepository, verifier contracts.Verifier) *UserService {
	return &UserService{
		log:      log,
		repo:     repo,
		verifier: verifier,
	}
}

// RequestOTP initiates the registration/login process
func (s *UserService) RequestOTP(ctx context.Context, email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	return s.verifier.SendOTP(ctx, email)
}

// VerifyOTP checks the code and handles the user lifecycle
func (s *UserService) VerifyOTP(ctx context.Context, email, code string) (*domain.User, error) {
	isValid, err := s.verifier.VerifyOTP(ctx, email, code)
	if err != nil {
		s.log.ErrorContext(ctx, "user - verify otp error", "error", err)
		return nil, fmt.Errorf("verification service error: %w", err)
	}
	if !isValid {
		s.log.ErrorContext(ctx, "user - invalid or expired OTP", "email", email)
		return nil, errors.New("invalid or expired OTP")
	}
	// UpsertUser uses ON CONFLICT, so it handles existing users
	user, err := s.repo.UpsertUser(ctx, email)
	if err != nil {
		s.log.ErrorContext(ctx, "user - create user error", "email", email, "error", err)
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return user, nil
}

// ResolveUser returns the identity for id or domain.ErrUserNotFound.
func (s *UserService) ResolveUser(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// DeleteAccount removes the identity; contacts, messages and call sessions
// referencing it go with it (ON DELETE CASCADE).
func (s *UserService) DeleteAccount(ctx context.Context, id string) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		s.log.ErrorContext(ctx, "user - delete account failed", "user_id", id, "error", err)
		return err
	}
	s.log.InfoContext(ctx, "user - account deleted", "user_id", id)
	return nil
}
