// Package session keeps authenticated dashboard sessions on the server side,
// keyed by an opaque token handed to the client.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/buddy0323/IA-TEK-streamlit/internal/access"
)

var ErrNotFound = errors.New("session not found")

// Session is the per-login state carried between requests.
type Session struct {
	Token        string    `json:"token"`
	UserID       uuid.UUID `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	RoleName     string    `json:"role_name"`
	Permissions  []string  `json:"permissions"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

func (s *Session) PermissionSet() access.PermissionSet {
	return access.NewPermissionSet(s.Permissions...)
}

func (s *Session) HasPermission(perm string) bool {
	for _, p := range s.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// IdleFor reports how long the session has gone without activity at now.
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}

// Store persists sessions. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, token string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, token string) error
}

// NewToken returns a fresh opaque session token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
