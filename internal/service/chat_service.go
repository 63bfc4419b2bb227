package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/buddy0323/IA-TEK-streamlit/internal/events"
	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/n8n"
	"github.com/buddy0323/IA-TEK-streamlit/internal/repository"
	"github.com/google/uuid"
	"github.com/mudler/xlog"
)

// AgentRelay is the outbound transport to the workflow engine.
type AgentRelay interface {
	Chat(ctx context.Context, chatURL string, creds n8n.Credentials, sessionID, message string) n8n.Result
	Train(ctx context.Context, detailsURL string, creds n8n.Credentials, agentID, method string, files []n8n.File) n8n.Result
}

const maxChatMessageRunes = 8000

type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

type ChatResponse struct {
	SessionID      string `json:"session_id"`
	Reply          string `json:"reply"`
	Success        bool   `json:"success"`
	ResponseTimeMS int    `json:"response_time_ms"`
	QueryID        string `json:"query_id,omitempty"`
}

type ChatAgent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ModelName   string `json:"model_name"`
}

type ChatService interface {
	// ListChatAgents returns active agents that can be chatted with.
	ListChatAgents(ctx context.Context) ([]ChatAgent, error)
	// SendMessage relays one message. Relay failures are reported in the response, not as errors.
	SendMessage(ctx context.Context, actor Actor, agentID string, req ChatRequest) (*ChatResponse, error)
}

type chatService struct {
	agents    repository.AgentRepository
	queries   repository.QueryRepository
	config    ConfigService
	relay     AgentRelay
	publisher events.Publisher
	clock     Clock
}

func NewChatService(agents repository.AgentRepository, queries repository.QueryRepository, config ConfigService, relay AgentRelay, publisher events.Publisher, clock Clock) ChatService {
	if publisher == nil {
		publisher = events.Noop()
	}
	return &chatService{agents: agents, queries: queries, config: config, relay: relay, publisher: publisher, clock: clock}
}

// relayCredentials reads the engine's Basic-auth pair from the api category.
func relayCredentials(ctx context.Context, config ConfigService) n8n.Credentials {
	return n8n.Credentials{
		Username: config.Get(ctx, "n8n_username", model.CategoryAPI, ""),
		Password: config.Get(ctx, "n8n_password", model.CategoryAPI, ""),
	}
}

func (s *chatService) ListChatAgents(ctx context.Context) ([]ChatAgent, error) {
	agents, err := s.agents.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	out := make([]ChatAgent, 0, len(agents))
	for _, a := range agents {
		if strings.TrimSpace(a.ChatURL) == "" {
			continue
		}
		out = append(out, ChatAgent{ID: a.ID.String(), Name: a.Name, Description: a.Description, ModelName: a.ModelName})
	}
	return out, nil
}

func (s *chatService) SendMessage(ctx context.Context, actor Actor, agentID string, req ChatRequest) (*ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, invalid("message", "message is required")
	}
	if utf8.RuneCountInString(message) > maxChatMessageRunes {
		return nil, invalid("message", "message must be at most %d characters", maxChatMessageRunes)
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.New().String()
	} else if len(sessionID) > 36 {
		return nil, invalid("session_id", "session id must be at most 36 characters")
	}

	id, err := parseID("agent_id", agentID)
	if err != nil {
		return nil, err
	}
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("agent")
		}
		return nil, err
	}
	if agent.Status != model.StatusActive {
		return nil, invalid("agent_id", "agent %q is not active", agent.Name)
	}

	started := s.clock.now()
	result := s.relay.Chat(ctx, agent.ChatURL, relayCredentials(ctx, s.config), sessionID, message)
	elapsed := int(s.clock.now().Sub(started).Milliseconds())
	if elapsed < 0 {
		elapsed = 0
	}

	q := &model.Query{
		AgentID:        agent.ID,
		SessionID:      sessionID,
		QueryText:      message,
		ResponseText:   result.Text,
		ResponseTimeMS: elapsed,
		Success:        result.Success,
	}
	if !result.Success && result.Error != "" {
		errMsg := result.Error
		q.ErrorMessage = &errMsg
	}

	res := &ChatResponse{SessionID: sessionID, Reply: result.Text, Success: result.Success, ResponseTimeMS: elapsed}
	if err := s.queries.Create(ctx, q); err != nil {
		// The user still sees the reply when logging fails.
		xlog.Error("Failed to log query", "agent", agent.Name, "session", sessionID, "error", err)
		return res, nil
	}
	res.QueryID = q.ID.String()

	xlog.Info("Chat relayed", "agent", agent.Name, "by", actor.Username, "success", result.Success, "ms", elapsed)
	s.publisher.PublishQueryLogged(ctx, events.QueryLogged{
		Type:           events.TypeQueryLogged,
		QueryID:        q.ID.String(),
		AgentID:        agent.ID.String(),
		AgentName:      agent.Name,
		SessionID:      sessionID,
		Success:        result.Success,
		ResponseTimeMS: elapsed,
		ErrorMessage:   result.Error,
		CreatedAt:      q.CreatedAt,
	})
	return res, nil
}
