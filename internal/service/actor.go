package service

import (
	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/session"
	"github.com/google/uuid"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID   uuid.UUID
	Username string
	RoleName string
}

func ActorFromSession(s *session.Session) Actor {
	return Actor{UserID: s.UserID, Username: s.Username, RoleName: s.RoleName}
}

// IsSuper reports whether the caller holds the superadministrador role.
func (a Actor) IsSuper() bool {
	return model.IsSuperRole(a.RoleName)
}
