package service

import (
	"context"
	"errors"
	"strings"

	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/n8n"
	"github.com/buddy0323/IA-TEK-streamlit/internal/repository"
	"github.com/mudler/xlog"
)

const maxTrainingFiles = 20

type TrainingResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
}

type TrainingService interface {
	Train(ctx context.Context, actor Actor, agentID, method string, files []n8n.File) (*TrainingResult, error)
}

type trainingService struct {
	agents repository.AgentRepository
	config ConfigService
	relay  AgentRelay
}

func NewTrainingService(agents repository.AgentRepository, config ConfigService, relay AgentRelay) TrainingService {
	return &trainingService{agents: agents, config: config, relay: relay}
}

func (s *trainingService) Train(ctx context.Context, actor Actor, agentID, method string, files []n8n.File) (*TrainingResult, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, invalid("processing_method", "processing method is required")
	}
	if len(files) == 0 {
		return nil, invalid("files", "upload at least one file")
	}
	if len(files) > maxTrainingFiles {
		return nil, invalid("files", "at most %d files per request", maxTrainingFiles)
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

	result := s.relay.Train(ctx, agent.DetailsURL, relayCredentials(ctx, s.config), agent.ID.String(), method, files)
	xlog.Info("Training relayed", "agent", agent.Name, "by", actor.Username, "files", len(files), "success", result.Success)
	return &TrainingResult{Success: result.Success, Message: result.Text, StatusCode: result.StatusCode}, nil
}
