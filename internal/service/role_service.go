package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/buddy0323/IA-TEK-streamlit/internal/access"
	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/repository"
	"github.com/mudler/xlog"
)

// --- DTOs ---

// RoleRequest creates or edits a role. A nil Permissions on create means the default set.
type RoleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type RoleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
	UserCount   int64    `json:"user_count"`
	IsSuper     bool     `json:"is_super"`
	CreatedAt   string   `json:"created_at"`
}

type PermissionResponse struct {
	Name       string `json:"name"`
	Restricted bool   `json:"restricted"`
	Assignable bool   `json:"assignable"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id string) (*RoleResponse, error)
	CreateRole(ctx context.Context, actor Actor, req RoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, actor Actor, id string, req RoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, actor Actor, id string) error
	ListPermissions(actor Actor) []PermissionResponse
}

type roleService struct {
	roles repository.RoleRepository
	users repository.UserRepository
	tx    repository.TransactionManager
}

func NewRoleService(roles repository.RoleRepository, users repository.UserRepository, tx repository.TransactionManager) RoleService {
	return &roleService{roles: roles, users: users, tx: tx}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}
	counts, err := s.roles.UserCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count role users: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for i := range roles {
		res = append(res, toRoleResponse(&roles[i], counts[roles[i].ID]))
	}
	return res, nil
}

func (s *roleService) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	role, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.users.CountByRole(ctx, role.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count role users: %w", err)
	}
	resp := toRoleResponse(role, count)
	return &resp, nil
}

func (s *roleService) load(ctx context.Context, id string) (*model.Role, error) {
	roleID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("role")
		}
		return nil, err
	}
	return role, nil
}

func requireSuper(actor Actor) error {
	if !actor.IsSuper() {
		return forbidden("only a %s can manage roles", model.SuperRoleName)
	}
	return nil
}

// checkPermissions validates a requested list and returns it as a set.
func checkPermissions(actor Actor, perms []string) (access.PermissionSet, error) {
	set := access.NewPermissionSet(perms...)
	if len(set) == 0 {
		return nil, invalid("permissions", "select at least one permission")
	}
	for _, p := range set.Sorted() {
		if !access.IsKnownPermission(p) {
			return nil, invalid("permissions", "unknown permission %q", p)
		}
		if access.IsRestrictedPermission(p) && !actor.IsSuper() {
			return nil, forbidden("only a %s can grant %q", model.SuperRoleName, p)
		}
	}
	return set, nil
}

func (s *roleService) CreateRole(ctx context.Context, actor Actor, req RoleRequest) (*RoleResponse, error) {
	if err := requireSuper(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "role name is required")
	}
	if len(name) > 50 {
		return nil, invalid("name", "role name must be at most 50 characters")
	}
	if model.IsSuperRole(name) {
		return nil, invalid("name", "the name %q is reserved", model.SuperRoleName)
	}

	perms := req.Permissions
	if perms == nil {
		perms = access.DefaultRolePermissions
	}
	set, err := checkPermissions(actor, perms)
	if err != nil {
		return nil, err
	}

	role := &model.Role{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Permissions: set.String(),
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.roles.GetByName(txCtx, name); err == nil {
			return invalid("name", "a role named %q already exists", name)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := s.roles.Create(txCtx, role); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return invalid("name", "a role named %q already exists", name)
			}
			return fmt.Errorf("failed to create role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	xlog.Info("Role created", "role", role.Name, "permissions", role.Permissions, "by", actor.Username)
	resp := toRoleResponse(role, 0)
	return &resp, nil
}

func (s *roleService) UpdateRole(ctx context.Context, actor Actor, id string, req RoleRequest) (*RoleResponse, error) {
	if err := requireSuper(actor); err != nil {
		return nil, err
	}

	var role *model.Role
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		role, err = s.load(txCtx, id)
		if err != nil {
			return err
		}

		if role.IsSuper() {
			// Name is fixed and every permission is always held.
			role.Permissions = access.NewPermissionSet(access.AllPermissions...).String()
		} else {
			name := strings.TrimSpace(req.Name)
			if name != "" && name != role.Name {
				if model.IsSuperRole(name) {
					return invalid("name", "the name %q is reserved", model.SuperRoleName)
				}
				if other, err := s.roles.GetByName(txCtx, name); err == nil && other.ID != role.ID {
					return invalid("name", "a role named %q already exists", name)
				} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
					return err
				}
				role.Name = name
			}
			set, err := checkPermissions(actor, req.Permissions)
			if err != nil {
				return err
			}
			role.Permissions = set.String()
		}
		role.Description = strings.TrimSpace(req.Description)

		if err := s.roles.Update(txCtx, role); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return invalid("name", "a role named %q already exists", role.Name)
			}
			return fmt.Errorf("failed to update role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	xlog.Info("Role updated", "role", role.Name, "permissions", role.Permissions, "by", actor.Username)
	return s.GetRole(ctx, role.ID.String())
}

func (s *roleService) DeleteRole(ctx context.Context, actor Actor, id string) error {
	if err := requireSuper(actor); err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.load(txCtx, id)
		if err != nil {
			return err
		}
		if role.IsSuper() {
			return forbidden("the %s role cannot be deleted", model.SuperRoleName)
		}
		count, err := s.users.CountByRole(txCtx, role.ID)
		if err != nil {
			return fmt.Errorf("failed to count role users: %w", err)
		}
		if count > 0 {
			return conflict("role is assigned to %d user(s)", count)
		}
		if err := s.roles.Delete(txCtx, role.ID); err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}
		xlog.Info("Role deleted", "role", role.Name, "by", actor.Username)
		return nil
	})
}

func (s *roleService) ListPermissions(actor Actor) []PermissionResponse {
	res := make([]PermissionResponse, 0, len(access.AllPermissions))
	for _, p := range access.AllPermissions {
		restricted := access.IsRestrictedPermission(p)
		res = append(res, PermissionResponse{
			Name:       p,
			Restricted: restricted,
			Assignable: !restricted || actor.IsSuper(),
		})
	}
	return res
}

// --- Helpers ---

func toRoleResponse(r *model.Role, userCount int64) RoleResponse {
	perms := access.ParsePermissions(r.Permissions).Sorted()
	if r.IsSuper() {
		perms = append([]string(nil), access.AllPermissions...)
	}
	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		Permissions: perms,
		UserCount:   userCount,
		IsSuper:     r.IsSuper(),
		CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
