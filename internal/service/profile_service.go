package service

import (
	"context"
	"errors"
	"strings"

	"github.com/buddy0323/IA-TEK-streamlit/internal/repository"
	"github.com/buddy0323/IA-TEK-streamlit/internal/session"
	"github.com/mudler/xlog"
	"golang.org/x/crypto/bcrypt"
)

type UpdateEmailRequest struct {
	Email string `json:"email" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// SessionUpdater rewrites a stored session in place.
type SessionUpdater interface {
	UpdateSession(ctx context.Context, token string, fn func(*session.Session)) error
}

// ProfileService lets a signed-in user edit their own account.
type ProfileService interface {
	GetProfile(ctx context.Context, actor Actor) (*UserResponse, error)
	UpdateEmail(ctx context.Context, actor Actor, token string, req UpdateEmailRequest) (*UserResponse, error)
	ChangePassword(ctx context.Context, actor Actor, req ChangePasswordRequest) error
}

type profileService struct {
	users    repository.UserRepository
	config   ConfigService
	sessions SessionUpdater
}

func NewProfileService(users repository.UserRepository, config ConfigService, sessions SessionUpdater) ProfileService {
	return &profileService{users: users, config: config, sessions: sessions}
}

func (s *profileService) GetProfile(ctx context.Context, actor Actor) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("user")
		}
		return nil, err
	}
	res := mapToUserResponse(user)
	return &res, nil
}

func (s *profileService) UpdateEmail(ctx context.Context, actor Actor, token string, req UpdateEmailRequest) (*UserResponse, error) {
	email := strings.TrimSpace(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("user")
		}
		return nil, err
	}
	if !strings.EqualFold(user.Email, email) {
		if other, err := s.users.GetByEmail(ctx, email); err == nil && other.ID != user.ID {
			return nil, invalid("email", "email %q is already in use", email)
		} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	user.Email = email
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid("email", "email %q is already in use", email)
		}
		return nil, err
	}

	if token != "" {
		if err := s.sessions.UpdateSession(ctx, token, func(sess *session.Session) { sess.Email = email }); err != nil {
			xlog.Warn("Failed to refresh session email", "username", user.Username, "error", err)
		}
	}
	xlog.Info("Profile email updated", "username", user.Username)
	res := mapToUserResponse(user)
	return &res, nil
}

func (s *profileService) ChangePassword(ctx context.Context, actor Actor, req ChangePasswordRequest) error {
	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return invalid("password", "complete all password fields")
	}
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("user")
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)) != nil {
		return invalid("current_password", "current password is incorrect")
	}
	if req.NewPassword != req.ConfirmPassword {
		return invalid("confirm_password", "new passwords do not match")
	}
	if err := s.config.PasswordPolicy(ctx).Validate("new_password", req.NewPassword); err != nil {
		return err
	}
	hashed, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	xlog.Info("Profile password changed", "username", user.Username)
	return nil
}
