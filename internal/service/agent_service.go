package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/repository"
	"github.com/mudler/xlog"
)

// AgentRequest carries the editable agent fields. Name is ignored on update.
type AgentRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	ModelName     string   `json:"model_name"`
	Skills        []string `json:"skills"`
	Goals         []string `json:"goals"`
	Personalities []string `json:"personalities"`
	Status        string   `json:"status"`
	ChatURL       string   `json:"n8n_chat_url"`
	DetailsURL    string   `json:"n8n_details_url"`
}

type AgentResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	ModelName     string   `json:"model_name"`
	Skills        []string `json:"skills"`
	Goals         []string `json:"goals"`
	Personalities []string `json:"personalities"`
	Status        string   `json:"status"`
	ChatURL       string   `json:"n8n_chat_url"`
	DetailsURL    string   `json:"n8n_details_url"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

// AgentEditView is an agent plus its stored selections reduced to options that still exist.
type AgentEditView struct {
	AgentResponse
	ModelNameValid     bool     `json:"model_name_valid"`
	SkillsValid        []string `json:"skills_valid"`
	GoalsValid         []string `json:"goals_valid"`
	PersonalitiesValid []string `json:"personalities_valid"`
}

type AgentService interface {
	ListAgents(ctx context.Context) ([]AgentResponse, error)
	GetAgent(ctx context.Context, id string) (*AgentEditView, error)
	CreateAgent(ctx context.Context, req AgentRequest) (*AgentResponse, error)
	UpdateAgent(ctx context.Context, id string, req AgentRequest) (*AgentResponse, error)
	// DeleteAgent removes the agent and every query logged against it.
	DeleteAgent(ctx context.Context, id string) error
}

type agentService struct {
	agents  repository.AgentRepository
	options repository.OptionRepository
	tx      repository.TransactionManager
}

func NewAgentService(agents repository.AgentRepository, options repository.OptionRepository, tx repository.TransactionManager) AgentService {
	return &agentService{agents: agents, options: options, tx: tx}
}

func (s *agentService) ListAgents(ctx context.Context) ([]AgentResponse, error) {
	agents, err := s.agents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	res := make([]AgentResponse, 0, len(agents))
	for i := range agents {
		res = append(res, toAgentResponse(&agents[i]))
	}
	return res, nil
}

func (s *agentService) load(ctx context.Context, id string) (*model.Agent, error) {
	agentID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("agent")
		}
		return nil, err
	}
	return agent, nil
}

func (s *agentService) GetAgent(ctx context.Context, id string) (*AgentEditView, error) {
	agent, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	sets, err := s.optionSets(ctx)
	if err != nil {
		return nil, err
	}
	res := toAgentResponse(agent)
	_, modelValid := sets[model.OptionLanguageModel][agent.ModelName]
	return &AgentEditView{
		AgentResponse:      res,
		ModelNameValid:     modelValid,
		SkillsValid:        keepKnown(res.Skills, sets[model.OptionSkill]),
		GoalsValid:         keepKnown(res.Goals, sets[model.OptionGoal]),
		PersonalitiesValid: keepKnown(res.Personalities, sets[model.OptionPersonality]),
	}, nil
}

func (s *agentService) CreateAgent(ctx context.Context, req AgentRequest) (*AgentResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "agent name is required")
	}
	if len(name) > 100 {
		return nil, invalid("name", "agent name must be at most 100 characters")
	}
	agent := &model.Agent{Name: name}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.agents.GetByName(txCtx, name); err == nil {
			return invalid("name", "an agent named %q already exists", name)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := s.apply(txCtx, agent, req); err != nil {
			return err
		}
		if err := s.agents.Create(txCtx, agent); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return invalid("name", "an agent named %q already exists", name)
			}
			return fmt.Errorf("failed to create agent: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	xlog.Info("Agent created", "agent", agent.Name, "model", agent.ModelName)
	res := toAgentResponse(agent)
	return &res, nil
}

func (s *agentService) UpdateAgent(ctx context.Context, id string, req AgentRequest) (*AgentResponse, error) {
	var agent *model.Agent
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		agent, err = s.load(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.apply(txCtx, agent, req); err != nil {
			return err
		}
		if err := s.agents.Update(txCtx, agent); err != nil {
			return fmt.Errorf("failed to update agent: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	xlog.Info("Agent updated", "agent", agent.Name)
	res := toAgentResponse(agent)
	return &res, nil
}

func (s *agentService) DeleteAgent(ctx context.Context, id string) error {
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		agent, err := s.load(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.agents.Delete(txCtx, agent.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("agent")
			}
			return fmt.Errorf("failed to delete agent: %w", err)
		}
		xlog.Info("Agent deleted", "agent", agent.Name)
		return nil
	})
}

// apply validates req against the option tables and copies it onto agent.
func (s *agentService) apply(ctx context.Context, agent *model.Agent, req AgentRequest) error {
	sets, err := s.optionSets(ctx)
	if err != nil {
		return err
	}

	modelName := strings.TrimSpace(req.ModelName)
	if modelName == "" {
		return invalid("model_name", "a language model is required")
	}
	if _, ok := sets[model.OptionLanguageModel][modelName]; !ok {
		return invalid("model_name", "unknown language model %q", modelName)
	}

	skills, err := checkSelection("skills", req.Skills, sets[model.OptionSkill])
	if err != nil {
		return err
	}
	goals, err := checkSelection("goals", req.Goals, sets[model.OptionGoal])
	if err != nil {
		return err
	}
	personalities, err := checkSelection("personalities", req.Personalities, sets[model.OptionPersonality])
	if err != nil {
		return err
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = model.StatusActive
	}
	if err := validateStatus(status); err != nil {
		return err
	}
	chatURL, err := checkURL("n8n_chat_url", req.ChatURL)
	if err != nil {
		return err
	}
	detailsURL, err := checkURL("n8n_details_url", req.DetailsURL)
	if err != nil {
		return err
	}

	agent.Description = strings.TrimSpace(req.Description)
	agent.ModelName = modelName
	agent.Skills = encodeNames(skills)
	agent.Goals = encodeNames(goals)
	agent.Personalities = encodeNames(personalities)
	agent.Status = status
	agent.ChatURL = chatURL
	agent.DetailsURL = detailsURL
	return nil
}

func (s *agentService) optionSets(ctx context.Context) (map[model.OptionKind]map[string]struct{}, error) {
	sets := make(map[model.OptionKind]map[string]struct{}, len(model.OptionKinds))
	for _, kind := range model.OptionKinds {
		names, err := s.options.Names(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s options: %w", kind, err)
		}
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		sets[kind] = set
	}
	return sets, nil
}

func checkSelection(field string, names []string, known map[string]struct{}) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			return nil, invalid(field, "%q selected more than once", n)
		}
		if _, ok := known[n]; !ok {
			return nil, invalid(field, "unknown option %q", n)
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}

func checkURL(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", invalid(field, "must be an absolute http(s) URL")
	}
	if len(raw) > 512 {
		return "", invalid(field, "must be at most 512 characters")
	}
	return raw, nil
}

func keepKnown(names []string, known map[string]struct{}) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := known[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// encodeNames stores a selection as a JSON array, NULL when empty.
func encodeNames(names []string) *string {
	if len(names) == 0 {
		return nil
	}
	b, _ := json.Marshal(names)
	s := string(b)
	return &s
}

func decodeNames(raw *string) []string {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return []string{}
	}
	var names []string
	if err := json.Unmarshal([]byte(*raw), &names); err != nil {
		xlog.Warn("Malformed agent selection list", "value", *raw, "error", err)
		return []string{}
	}
	return names
}

func toAgentResponse(a *model.Agent) AgentResponse {
	return AgentResponse{
		ID:            a.ID.String(),
		Name:          a.Name,
		Description:   a.Description,
		ModelName:     a.ModelName,
		Skills:        decodeNames(a.Skills),
		Goals:         decodeNames(a.Goals),
		Personalities: decodeNames(a.Personalities),
		Status:        a.Status,
		ChatURL:       a.ChatURL,
		DetailsURL:    a.DetailsURL,
		CreatedAt:     a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:     a.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
