package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"

	"github.com/buddy0323/IA-TEK-streamlit/internal/middleware"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	"github.com/buddy0323/IA-TEK-streamlit/internal/session"
	"github.com/buddy0323/IA-TEK-streamlit/pkg/response"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

// stubAuth serves fixed sessions keyed by token and a canned login result.
type stubAuth struct {
	sessions  map[string]*session.Session
	login     *service.LoginResult
	loginErr  error
	loggedOut []string
}

func (s *stubAuth) Authenticate(context.Context, string, string) (*service.LoginResult, error) {
	return s.login, s.loginErr
}

func (s *stubAuth) CheckAuthentication(_ context.Context, token string) (*session.Session, error) {
	sess, ok := s.sessions[token]
	if !ok {
		return nil, service.ErrUnauthenticated
	}
	return sess, nil
}

func (s *stubAuth) Logout(_ context.Context, token string) error {
	s.loggedOut = append(s.loggedOut, token)
	return nil
}

func (s *stubAuth) Restore(context.Context, string) (*service.LoginResult, error) {
	return s.login, s.loginErr
}

func (s *stubAuth) UpdateSession(context.Context, string, func(*session.Session)) error {
	return nil
}

type stubChat struct {
	agents []service.ChatAgent
	reply  *service.ChatResponse
	err    error
	actors []service.Actor
}

func (s *stubChat) ListChatAgents(context.Context) ([]service.ChatAgent, error) {
	return s.agents, s.err
}

func (s *stubChat) SendMessage(_ context.Context, actor service.Actor, _ string, _ service.ChatRequest) (*service.ChatResponse, error) {
	s.actors = append(s.actors, actor)
	return s.reply, s.err
}

type stubUsers struct {
	users []service.UserResponse
	total int64
	pages []int
}

func (s *stubUsers) ListUsers(_ context.Context, page, limit int) ([]service.UserResponse, int64, error) {
	s.pages = append(s.pages, page, limit)
	return s.users, s.total, nil
}

func (s *stubUsers) GetUser(context.Context, string) (*service.UserResponse, error) {
	return nil, service.ErrNotFound
}

func (s *stubUsers) CreateUser(context.Context, service.Actor, service.CreateUserRequest) (*service.UserResponse, error) {
	return nil, service.ErrForbidden
}

func (s *stubUsers) UpdateUser(context.Context, service.Actor, string, service.UpdateUserRequest) (*service.UserResponse, error) {
	return nil, service.ErrConflict
}

func (s *stubUsers) DeleteUser(context.Context, service.Actor, string) error {
	return nil
}

func (s *stubUsers) AssignableRoles(context.Context, service.Actor) ([]service.RoleResponse, error) {
	return nil, nil
}

// newRouter mounts an authenticated /api group the way the server does.
func newRouter(auth *stubAuth) (*gin.Engine, *gin.RouterGroup, *gin.RouterGroup) {
	r := gin.New()
	public := r.Group("/api")
	authed := public.Group("", middleware.RequireSession(auth, false))
	return r, public, authed
}

func do(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(rec *httptest.ResponseRecorder) response.Response {
	var body response.Response
	Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
	return body
}
