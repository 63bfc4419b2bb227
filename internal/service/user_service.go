package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/repository"
	"github.com/google/uuid"
	"github.com/mudler/xlog"
	"golang.org/x/crypto/bcrypt"
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// DTOs for Request validation
type CreateUserRequest struct {
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	RoleID          string `json:"role_id" binding:"required"`
	Description     string `json:"description"`
	Status          string `json:"status"`
}

// UpdateUserRequest changes only the fields that are set.
type UpdateUserRequest struct {
	Email           *string `json:"email"`
	RoleID          *string `json:"role_id"`
	Status          *string `json:"status"`
	Description     *string `json:"description"`
	Password        *string `json:"password"`
	ConfirmPassword *string `json:"confirm_password"`
}

// DTO for returning User without exposing the password hash
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	RoleID      uuid.UUID `json:"role_id"`
	RoleName    string    `json:"role_name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	IsProtected bool      `json:"is_protected"`
	CreatedAt   string    `json:"created_at"`
	LastAccess  string    `json:"last_access,omitempty"`
}

// UserService defines the business rules of the user registry
type UserService interface {
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	GetUser(ctx context.Context, id string) (*UserResponse, error)
	CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error)
	UpdateUser(ctx context.Context, actor Actor, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, actor Actor, id string) error
	// AssignableRoles lists the roles actor may grant.
	AssignableRoles(ctx context.Context, actor Actor) ([]RoleResponse, error)
}

type userService struct {
	users  repository.UserRepository
	roles  repository.RoleRepository
	config ConfigService
	tx     repository.TransactionManager
}

// NewUserService returns a new instance of UserService
func NewUserService(users repository.UserRepository, roles repository.RoleRepository, config ConfigService, tx repository.TransactionManager) UserService {
	return &userService{users: users, roles: roles, config: config, tx: tx}
}

func mapToUserResponse(user *model.User) UserResponse {
	res := UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		RoleID:      user.RoleID,
		Description: user.Description,
		Status:      user.Status,
		IsProtected: user.IsSuperadmin(),
		CreatedAt:   user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if user.Role != nil {
		res.RoleName = user.Role.Name
	}
	if user.LastAccess != nil {
		res.LastAccess = user.LastAccess.Format("2006-01-02T15:04:05Z07:00")
	}
	return res
}

func validateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return invalid("email", "invalid email format")
	}
	return nil
}

func validateStatus(status string) error {
	if status != model.StatusActive && status != model.StatusInactive {
		return invalid("status", "status must be %q or %q", model.StatusActive, model.StatusInactive)
	}
	return nil
}

func parseID(field, id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, invalid(field, "invalid id")
	}
	return parsed, nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	users, total, err := s.users.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	res := make([]UserResponse, 0, len(users))
	for i := range users {
		res = append(res, mapToUserResponse(&users[i]))
	}
	return res, total, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	userID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("user")
		}
		return nil, err
	}
	res := mapToUserResponse(user)
	return &res, nil
}

// resolveRole loads the role and enforces that only a superadministrador grants the super role.
func (s *userService) resolveRole(ctx context.Context, actor Actor, roleID string) (*model.Role, error) {
	id, err := parseID("role_id", roleID)
	if err != nil {
		return nil, err
	}
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("role_id", "role does not exist")
		}
		return nil, err
	}
	if role.IsSuper() && !actor.IsSuper() {
		return nil, forbidden("only a %s can assign the %s role", model.SuperRoleName, model.SuperRoleName)
	}
	return role, nil
}

func (s *userService) checkNewPassword(ctx context.Context, password, confirm string) error {
	if password != confirm {
		return invalid("confirm_password", "passwords do not match")
	}
	return s.config.PasswordPolicy(ctx).Validate("password", password)
}

func (s *userService) CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" {
		return nil, invalid("username", "username is required")
	}
	if len(username) > 80 {
		return nil, invalid("username", "username must be at most 80 characters")
	}
	if strings.EqualFold(username, model.SuperadminUsername) {
		return nil, invalid("username", "username %s is reserved", model.SuperadminUsername)
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := s.checkNewPassword(ctx, req.Password, req.ConfirmPassword); err != nil {
		return nil, err
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = model.StatusActive
	}
	if err := validateStatus(status); err != nil {
		return nil, err
	}
	role, err := s.resolveRole(ctx, actor, req.RoleID)
	if err != nil {
		return nil, err
	}
	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:    username,
		Email:       email,
		Password:    hashed,
		RoleID:      role.ID,
		Description: strings.TrimSpace(req.Description),
		Status:      status,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.users.GetByUsername(txCtx, username); err == nil {
			return invalid("username", "username %q already exists", username)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if _, err := s.users.GetByEmail(txCtx, email); err == nil {
			return invalid("email", "email %q is already registered", email)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := s.users.Create(txCtx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return invalid("username", "username or email already exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	user.Role = role
	xlog.Info("User created", "username", user.Username, "role", role.Name, "by", actor.Username)
	res := mapToUserResponse(user)
	return &res, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor Actor, id string, req UpdateUserRequest) (*UserResponse, error) {
	userID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}

	var updated *model.User
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.GetByID(txCtx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("user")
			}
			return err
		}

		if req.RoleID != nil {
			role, err := s.resolveRole(txCtx, actor, *req.RoleID)
			if err != nil {
				return err
			}
			if role.ID != user.RoleID {
				if user.IsSuperadmin() {
					return forbidden("the role of the %s user cannot be changed", model.SuperadminUsername)
				}
				user.RoleID = role.ID
				user.Role = role
			}
		}

		if req.Status != nil {
			status := strings.TrimSpace(*req.Status)
			if err := validateStatus(status); err != nil {
				return err
			}
			if status == model.StatusInactive && user.Status != model.StatusInactive {
				if user.IsSuperadmin() {
					return forbidden("the %s user cannot be deactivated", model.SuperadminUsername)
				}
				if user.ID == actor.UserID {
					return forbidden("you cannot deactivate your own account")
				}
			}
			user.Status = status
		}

		if req.Email != nil {
			email := strings.TrimSpace(*req.Email)
			if err := validateEmail(email); err != nil {
				return err
			}
			if !strings.EqualFold(email, user.Email) {
				if other, err := s.users.GetByEmail(txCtx, email); err == nil && other.ID != user.ID {
					return invalid("email", "email %q is already registered", email)
				} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
					return err
				}
			}
			user.Email = email
		}

		if req.Description != nil {
			user.Description = strings.TrimSpace(*req.Description)
		}

		if req.Password != nil && *req.Password != "" {
			if user.IsSuperadmin() && !actor.IsSuper() {
				return forbidden("only a %s can change the %s password", model.SuperRoleName, model.SuperadminUsername)
			}
			confirm := ""
			if req.ConfirmPassword != nil {
				confirm = *req.ConfirmPassword
			}
			if err := s.checkNewPassword(txCtx, *req.Password, confirm); err != nil {
				return err
			}
			hashed, err := hashPassword(*req.Password)
			if err != nil {
				return err
			}
			user.Password = hashed
		}

		if err := s.users.Update(txCtx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return invalid("email", "email is already registered")
			}
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated.Role == nil {
		if role, err := s.roles.GetByID(ctx, updated.RoleID); err == nil {
			updated.Role = role
		}
	}
	xlog.Info("User updated", "username", updated.Username, "by", actor.Username)
	res := mapToUserResponse(updated)
	return &res, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor Actor, id string) error {
	userID, err := parseID("id", id)
	if err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.GetByID(txCtx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("user")
			}
			return err
		}
		if user.IsSuperadmin() {
			return forbidden("the %s user cannot be deleted", model.SuperadminUsername)
		}
		if user.ID == actor.UserID {
			return forbidden("you cannot delete your own account")
		}
		if err := s.users.Delete(txCtx, user.ID); err != nil {
			return err
		}
		xlog.Info("User deleted", "username", user.Username, "by", actor.Username)
		return nil
	})
}

func (s *userService) AssignableRoles(ctx context.Context, actor Actor) ([]RoleResponse, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	res := make([]RoleResponse, 0, len(roles))
	for i := range roles {
		if roles[i].IsSuper() && !actor.IsSuper() {
			continue
		}
		res = append(res, toRoleResponse(&roles[i], 0))
	}
	return res, nil
}
