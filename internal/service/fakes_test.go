package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/buddy0323/IA-TEK-streamlit/internal/access"
	"github.com/buddy0323/IA-TEK-streamlit/internal/events"
	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/n8n"
	"github.com/buddy0323/IA-TEK-streamlit/internal/repository"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// store backs every fake repository so cross-table behaviour (preloads, cascades, counts) holds.
type store struct {
	mu      sync.Mutex
	users   map[uuid.UUID]model.User
	roles   map[uuid.UUID]model.Role
	agents  map[uuid.UUID]model.Agent
	options map[model.OptionKind][]model.AgentOption
	queries []model.Query
	configs map[string]model.Configuration
}

func newStore() *store {
	return &store{
		users:   map[uuid.UUID]model.User{},
		roles:   map[uuid.UUID]model.Role{},
		agents:  map[uuid.UUID]model.Agent{},
		options: map[model.OptionKind][]model.AgentOption{},
		configs: map[string]model.Configuration{},
	}
}

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- users ---

type fakeUsers struct{ s *store }

func (f fakeUsers) withRole(u model.User) *model.User {
	if r, ok := f.s.roles[u.RoleID]; ok {
		u.Role = &r
	}
	return &u
}

func (f fakeUsers) Create(_ context.Context, user *model.User) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	cp := *user
	cp.Role = nil
	f.s.users[user.ID] = cp
	return nil
}

func (f fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return f.withRole(u), nil
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if strings.EqualFold(u.Email, email) {
			return f.withRole(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if strings.EqualFold(u.Username, username) {
			return f.withRole(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakeUsers) List(_ context.Context, page, limit int) ([]model.User, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]model.User, 0, len(f.s.users))
	for _, u := range f.s.users {
		out = append(out, *f.withRole(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	total := int64(len(out))
	if limit > 0 {
		start := (page - 1) * limit
		if start < 0 {
			start = 0
		}
		if start > len(out) {
			start = len(out)
		}
		end := start + limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (f fakeUsers) Update(_ context.Context, user *model.User) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *user
	cp.Role = nil
	f.s.users[user.ID] = cp
	return nil
}

func (f fakeUsers) UpdateLastAccess(_ context.Context, id uuid.UUID, at time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastAccess = &at
	f.s.users[id] = u
	return nil
}

func (f fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.s.users, id)
	return nil
}

func (f fakeUsers) CountByRole(_ context.Context, roleID uuid.UUID) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for _, u := range f.s.users {
		if u.RoleID == roleID {
			n++
		}
	}
	return n, nil
}

// --- roles ---

type fakeRoles struct{ s *store }

func (f fakeRoles) Create(_ context.Context, role *model.Role) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.roles {
		if strings.EqualFold(r.Name, role.Name) {
			return repository.ErrDuplicate
		}
	}
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	role.CreatedAt = time.Now()
	f.s.roles[role.ID] = *role
	return nil
}

func (f fakeRoles) GetByID(_ context.Context, id uuid.UUID) (*model.Role, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (f fakeRoles) GetByName(_ context.Context, name string) (*model.Role, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.roles {
		if strings.EqualFold(r.Name, name) {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakeRoles) List(_ context.Context) ([]model.Role, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]model.Role, 0, len(f.s.roles))
	for _, r := range f.s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f fakeRoles) Update(_ context.Context, role *model.Role) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.roles[role.ID] = *role
	return nil
}

func (f fakeRoles) Delete(_ context.Context, id uuid.UUID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.roles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.s.roles, id)
	return nil
}

func (f fakeRoles) UserCounts(_ context.Context) (map[uuid.UUID]int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := map[uuid.UUID]int64{}
	for _, u := range f.s.users {
		out[u.RoleID]++
	}
	return out, nil
}

// --- agents ---

type fakeAgents struct{ s *store }

func (f fakeAgents) Create(_ context.Context, agent *model.Agent) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, a := range f.s.agents {
		if a.Name == agent.Name {
			return repository.ErrDuplicate
		}
	}
	if agent.ID == uuid.Nil {
		agent.ID = uuid.New()
	}
	agent.CreatedAt = time.Now()
	agent.UpdatedAt = agent.CreatedAt
	f.s.agents[agent.ID] = *agent
	return nil
}

func (f fakeAgents) GetByID(_ context.Context, id uuid.UUID) (*model.Agent, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.agents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (f fakeAgents) GetByName(_ context.Context, name string) (*model.Agent, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, a := range f.s.agents {
		if a.Name == name {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakeAgents) list(active bool) []model.Agent {
	out := make([]model.Agent, 0, len(f.s.agents))
	for _, a := range f.s.agents {
		if active && a.Status != model.StatusActive {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f fakeAgents) List(_ context.Context) ([]model.Agent, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.list(false), nil
}

func (f fakeAgents) ListActive(_ context.Context) ([]model.Agent, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.list(true), nil
}

func (f fakeAgents) Update(_ context.Context, agent *model.Agent) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	prev, ok := f.s.agents[agent.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cp := *agent
	cp.Name = prev.Name
	cp.UpdatedAt = time.Now()
	f.s.agents[agent.ID] = cp
	return nil
}

func (f fakeAgents) Delete(_ context.Context, id uuid.UUID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.agents[id]; !ok {
		return repository.ErrNotFound
	}
	kept := f.s.queries[:0]
	for _, q := range f.s.queries {
		if q.AgentID != id {
			kept = append(kept, q)
		}
	}
	f.s.queries = kept
	delete(f.s.agents, id)
	return nil
}

// --- options ---

type fakeOptions struct{ s *store }

func (f fakeOptions) List(_ context.Context, kind model.OptionKind) ([]model.AgentOption, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return append([]model.AgentOption(nil), f.s.options[kind]...), nil
}

func (f fakeOptions) Names(_ context.Context, kind model.OptionKind) ([]string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []string
	for _, o := range f.s.options[kind] {
		out = append(out, o.Name)
	}
	sort.Strings(out)
	return out, nil
}

func (f fakeOptions) Create(_ context.Context, kind model.OptionKind, opt *model.AgentOption) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, o := range f.s.options[kind] {
		if o.Name == opt.Name {
			return repository.ErrDuplicate
		}
	}
	if opt.ID == uuid.Nil {
		opt.ID = uuid.New()
	}
	f.s.options[kind] = append(f.s.options[kind], *opt)
	return nil
}

func (f fakeOptions) Delete(_ context.Context, kind model.OptionKind, id uuid.UUID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	opts := f.s.options[kind]
	for i, o := range opts {
		if o.ID == id {
			f.s.options[kind] = append(opts[:i], opts[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// --- queries and statistics ---

type fakeQueries struct{ s *store }

func (f fakeQueries) Create(_ context.Context, q *model.Query) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	f.s.queries = append(f.s.queries, *q)
	return nil
}

func (f fakeQueries) GetByID(_ context.Context, id uuid.UUID) (*model.Query, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, q := range f.s.queries {
		if q.ID == id {
			if a, ok := f.s.agents[q.AgentID]; ok {
				q.Agent = &a
			}
			return &q, nil
		}
	}
	return nil, repository.ErrNotFound
}

func matches(q model.Query, fl repository.QueryFilter) bool {
	if fl.AgentID != nil && q.AgentID != *fl.AgentID {
		return false
	}
	if !fl.From.IsZero() && q.CreatedAt.Before(fl.From) {
		return false
	}
	if !fl.To.IsZero() && !q.CreatedAt.Before(fl.To) {
		return false
	}
	if fl.Success != nil && q.Success != *fl.Success {
		return false
	}
	if fl.OnlyTimed && q.ResponseTimeMS <= 0 {
		return false
	}
	return true
}

func (f fakeQueries) Search(_ context.Context, fl repository.QueryFilter) ([]model.Query, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []model.Query
	for _, q := range f.s.queries {
		if matches(q, fl) {
			if a, ok := f.s.agents[q.AgentID]; ok {
				q.Agent = &a
			}
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if fl.Offset > 0 && fl.Offset < len(out) {
		out = out[fl.Offset:]
	}
	if fl.Limit > 0 && len(out) > fl.Limit {
		out = out[:fl.Limit]
	}
	return out, total, nil
}

type fakeStats struct{ s *store }

func (f fakeStats) AgentCounts(_ context.Context) (model.AgentCounts, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var c model.AgentCounts
	for _, a := range f.s.agents {
		c.Total++
		if a.Status == model.StatusActive {
			c.Active++
		}
	}
	return c, nil
}

func (f fakeStats) QueryCounts(_ context.Context, from, to time.Time) (model.QuerySuccessCounts, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var c model.QuerySuccessCounts
	for _, q := range f.s.queries {
		if matches(q, repository.QueryFilter{From: from, To: to}) {
			c.Total++
			if q.Success {
				c.Successful++
			}
		}
	}
	return c, nil
}

// --- configuration ---

type fakeConfigs struct{ s *store }

func (f fakeConfigs) Get(_ context.Context, key string) (*model.Configuration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.configs[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (f fakeConfigs) ListByCategory(_ context.Context, category string) ([]model.Configuration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []model.Configuration
	for _, c := range f.s.configs {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f fakeConfigs) Upsert(_ context.Context, cfg *model.Configuration) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	prev, ok := f.s.configs[cfg.Key]
	if !ok {
		f.s.configs[cfg.Key] = *cfg
		return nil
	}
	prev.Value = cfg.Value
	if cfg.Category != "" {
		prev.Category = cfg.Category
	}
	if cfg.Description != "" {
		prev.Description = cfg.Description
	}
	f.s.configs[cfg.Key] = prev
	return nil
}

// --- relay and events ---

type relayCall struct {
	URL       string
	Creds     n8n.Credentials
	SessionID string
	Message   string
}

type fakeRelay struct {
	result n8n.Result
	delay  func()
	calls  []relayCall
}

func (f *fakeRelay) Chat(_ context.Context, url string, creds n8n.Credentials, sessionID, message string) n8n.Result {
	f.calls = append(f.calls, relayCall{URL: url, Creds: creds, SessionID: sessionID, Message: message})
	if f.delay != nil {
		f.delay()
	}
	return f.result
}

func (f *fakeRelay) Train(_ context.Context, url string, creds n8n.Credentials, agentID, method string, files []n8n.File) n8n.Result {
	f.calls = append(f.calls, relayCall{URL: url, Creds: creds, Message: method})
	return f.result
}

type recordingPublisher struct{ events []events.QueryLogged }

func (p *recordingPublisher) PublishQueryLogged(_ context.Context, ev events.QueryLogged) {
	p.events = append(p.events, ev)
}

// --- clock ---

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// --- fixtures ---

func (s *store) addRole(name string, perms ...string) model.Role {
	r := model.Role{ID: uuid.New(), Name: name, Permissions: access.NewPermissionSet(perms...).String(), CreatedAt: time.Now()}
	s.roles[r.ID] = r
	return r
}

func (s *store) addUser(username, password string, role model.Role, status string) model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u := model.User{
		ID:       uuid.New(),
		Username: username,
		Email:    strings.ToLower(username) + "@example.com",
		Password: string(hash),
		RoleID:   role.ID,
		Status:   status,
	}
	s.users[u.ID] = u
	return u
}

func (s *store) addOptions(kind model.OptionKind, names ...string) {
	for _, n := range names {
		s.options[kind] = append(s.options[kind], model.AgentOption{ID: uuid.New(), Name: n})
	}
}

func (s *store) addAgent(name, status, chatURL string) model.Agent {
	a := model.Agent{ID: uuid.New(), Name: name, ModelName: "gpt-4o", Status: status, ChatURL: chatURL}
	s.agents[a.ID] = a
	return a
}

func (s *store) addQuery(agentID uuid.UUID, at time.Time, success bool, ms int, text string) {
	s.queries = append(s.queries, model.Query{
		ID: uuid.New(), AgentID: agentID, QueryText: text, ResponseText: "ok",
		Success: success, ResponseTimeMS: ms, CreatedAt: at,
	})
}

func (s *store) setConfig(key, value, category string) {
	s.configs[key] = model.Configuration{ID: uuid.New(), Key: key, Value: value, Category: category}
}

func superActor(u model.User) service.Actor {
	return service.Actor{UserID: u.ID, Username: u.Username, RoleName: model.SuperRoleName}
}

func actorFor(u model.User, role model.Role) service.Actor {
	return service.Actor{UserID: u.ID, Username: u.Username, RoleName: role.Name}
}
