package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/repository"
	"github.com/mudler/xlog"
)

type OptionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// OptionService manages the lookup tables agents choose from.
type OptionService interface {
	ListOptions(ctx context.Context, kind string) ([]model.AgentOption, error)
	CreateOption(ctx context.Context, kind string, req OptionRequest) (*model.AgentOption, error)
	DeleteOption(ctx context.Context, kind, id string) error
}

type optionService struct {
	options repository.OptionRepository
}

func NewOptionService(options repository.OptionRepository) OptionService {
	return &optionService{options: options}
}

func parseKind(kind string) (model.OptionKind, error) {
	k := model.OptionKind(strings.ToLower(strings.TrimSpace(kind)))
	if !k.Valid() {
		return "", notFound("option kind " + kind)
	}
	return k, nil
}

func (s *optionService) ListOptions(ctx context.Context, kind string) ([]model.AgentOption, error) {
	k, err := parseKind(kind)
	if err != nil {
		return nil, err
	}
	opts, err := s.options.List(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", k, err)
	}
	return opts, nil
}

func (s *optionService) CreateOption(ctx context.Context, kind string, req OptionRequest) (*model.AgentOption, error) {
	k, err := parseKind(kind)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "name is required")
	}
	if len(name) > 255 {
		return nil, invalid("name", "name must be at most 255 characters")
	}

	names, err := s.options.Names(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", k, err)
	}
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return nil, invalid("name", "%q already exists", name)
		}
	}

	opt := &model.AgentOption{Name: name, Description: strings.TrimSpace(req.Description)}
	if err := s.options.Create(ctx, k, opt); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid("name", "%q already exists", name)
		}
		return nil, fmt.Errorf("failed to create option: %w", err)
	}
	xlog.Info("Agent option added", "kind", string(k), "name", name)
	return opt, nil
}

func (s *optionService) DeleteOption(ctx context.Context, kind, id string) error {
	k, err := parseKind(kind)
	if err != nil {
		return err
	}
	optID, err := parseID("id", id)
	if err != nil {
		return err
	}
	if err := s.options.Delete(ctx, k, optID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("option")
		}
		return fmt.Errorf("failed to delete option: %w", err)
	}
	xlog.Info("Agent option removed", "kind", string(k), "id", optID.String())
	return nil
}
