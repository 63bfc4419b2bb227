package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/buddy0323/IA-TEK-streamlit/internal/access"
	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/repository"
	"github.com/buddy0323/IA-TEK-streamlit/internal/session"
	"github.com/google/uuid"
	"github.com/mudler/xlog"
	"golang.org/x/crypto/bcrypt"
)

// Compared against when the username is unknown so every failure costs one bcrypt check.
var dummyPasswordHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RestoreRequest struct {
	Token string `json:"token" form:"session" binding:"required"`
}

// SessionInfo is the client view of a session.
type SessionInfo struct {
	UserID       string        `json:"user_id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	RoleName     string        `json:"role_name"`
	Permissions  []string      `json:"permissions"`
	Pages        []access.Page `json:"pages"`
	LastActivity string        `json:"last_activity"`
}

type LoginResult struct {
	Token        string      `json:"token"`
	RestoreToken string      `json:"restore_token"`
	Session      SessionInfo `json:"session"`
}

type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (*LoginResult, error)
	// CheckAuthentication validates token and refreshes its activity timestamp.
	// An idle session past the configured timeout is deleted and ErrSessionExpired returned.
	CheckAuthentication(ctx context.Context, token string) (*session.Session, error)
	Logout(ctx context.Context, token string) error
	Restore(ctx context.Context, restoreToken string) (*LoginResult, error)
	// UpdateSession applies fn to a stored session and saves it.
	UpdateSession(ctx context.Context, token string, fn func(*session.Session)) error
}

type authService struct {
	users    repository.UserRepository
	sessions session.Store
	signer   *session.TokenSigner
	config   ConfigService
	clock    Clock
}

func NewAuthService(users repository.UserRepository, sessions session.Store, signer *session.TokenSigner, config ConfigService, clock Clock) AuthService {
	return &authService{users: users, sessions: sessions, signer: signer, config: config, clock: clock}
}

// PermissionsForRole derives the permission list of a role. The super role always holds the full catalogue.
func PermissionsForRole(role *model.Role) []string {
	if role == nil {
		return []string{}
	}
	if role.IsSuper() {
		return append([]string(nil), access.AllPermissions...)
	}
	return access.ParsePermissions(role.Permissions).Sorted()
}

func (s *authService) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			xlog.Error("Authentication lookup failed", "username", username, "error", err)
		}
		_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		xlog.Info("Authentication failed", "username", username, "reason", "password")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		xlog.Info("Authentication failed", "username", username, "reason", "inactive")
		return nil, ErrInvalidCredentials
	}
	if user.Role == nil {
		xlog.Error("User has no role", "username", username)
		return nil, ErrInvalidCredentials
	}

	now := s.clock.now()
	if err := s.users.UpdateLastAccess(ctx, user.ID, now); err != nil {
		xlog.Warn("Failed to record last access", "username", username, "error", err)
	}

	res, err := s.openSession(ctx, user)
	if err != nil {
		xlog.Error("Failed to open session", "username", username, "error", err)
		return nil, ErrInvalidCredentials
	}
	xlog.Info("User signed in", "username", user.Username, "role", user.Role.Name)
	return res, nil
}

func (s *authService) openSession(ctx context.Context, user *model.User) (*LoginResult, error) {
	now := s.clock.now()
	sess := &session.Session{
		Token:        session.NewToken(),
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		RoleName:     user.Role.Name,
		Permissions:  PermissionsForRole(user.Role),
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	restore, err := s.signer.Issue(sess)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: sess.Token, RestoreToken: restore, Session: ToSessionInfo(sess)}, nil
}

func (s *authService) CheckAuthentication(ctx context.Context, token string) (*session.Session, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	now := s.clock.now()
	timeout := s.config.SessionTimeout(ctx)
	if sess.IdleFor(now) > timeout {
		if err := s.sessions.Delete(ctx, token); err != nil {
			xlog.Warn("Failed to clear expired session", "username", sess.Username, "error", err)
		}
		xlog.Info("Session expired", "username", sess.Username, "idle", sess.IdleFor(now).String())
		return nil, ErrSessionExpired
	}

	sess.LastActivity = now
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return sess, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

func (s *authService) Restore(ctx context.Context, restoreToken string) (*LoginResult, error) {
	claims, err := s.signer.Parse(restoreToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || !user.IsActive() || user.Role == nil {
		return nil, ErrInvalidCredentials
	}
	res, err := s.openSession(ctx, user)
	if err != nil {
		xlog.Error("Failed to restore session", "username", user.Username, "error", err)
		return nil, ErrInvalidCredentials
	}
	xlog.Info("Session restored", "username", user.Username)
	return res, nil
}

func (s *authService) UpdateSession(ctx context.Context, token string, fn func(*session.Session)) error {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return err
	}
	fn(sess)
	return s.sessions.Save(ctx, sess)
}

func ToSessionInfo(sess *session.Session) SessionInfo {
	return SessionInfo{
		UserID:       sess.UserID.String(),
		Username:     sess.Username,
		Email:        sess.Email,
		RoleName:     sess.RoleName,
		Permissions:  sess.Permissions,
		Pages:        access.AccessiblePages(sess.PermissionSet()),
		LastActivity: sess.LastActivity.Format("2006-01-02T15:04:05Z07:00"),
	}
}
