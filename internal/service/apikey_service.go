package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/mudler/xlog"
	"github.com/sashabaranov/go-openai"
)

const (
	ProviderAgentOps  = "agentops"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// ModelLister performs a live credential check against a provider.
type ModelLister func(ctx context.Context, apiKey string) (int, error)

// OpenAIModelLister lists models with go-openai and returns how many were visible to the key.
func OpenAIModelLister(baseURL string) ModelLister {
	return func(ctx context.Context, apiKey string) (int, error) {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
		list, err := openai.NewClientWithConfig(cfg).ListModels(ctx)
		if err != nil {
			return 0, err
		}
		return len(list.Models), nil
	}
}

type APIKeyCheckRequest struct {
	Provider string `json:"provider" binding:"required"`
	// APIKey may be empty or the mask to check the stored value.
	APIKey string `json:"api_key"`
	Live   bool   `json:"live"`
}

type APIKeyCheck struct {
	Provider string `json:"provider"`
	Valid    bool   `json:"valid"`
	Live     bool   `json:"live"`
	Message  string `json:"message"`
}

type APIKeyService interface {
	CheckKey(ctx context.Context, req APIKeyCheckRequest) (*APIKeyCheck, error)
}

type apiKeyService struct {
	config ConfigService
	openai ModelLister
}

func NewAPIKeyService(config ConfigService, openaiLister ModelLister) APIKeyService {
	return &apiKeyService{config: config, openai: openaiLister}
}

var providerKeys = map[string]string{
	ProviderAgentOps:  "agentops_api_key",
	ProviderAnthropic: "anthropic_api_key",
	ProviderOpenAI:    "openai_api_key",
}

var providerLabels = map[string]string{
	ProviderAgentOps:  "AgentOps",
	ProviderAnthropic: "Anthropic",
	ProviderOpenAI:    "OpenAI",
}

// keyFormatOK applies the per-provider shape checks.
func keyFormatOK(provider, key string) bool {
	switch provider {
	case ProviderAgentOps:
		return len(key) > 20
	case ProviderAnthropic:
		return strings.HasPrefix(key, "sk-ant-") && len(key) > 40
	case ProviderOpenAI:
		return strings.HasPrefix(key, "sk-") && len(key) > 40
	}
	return false
}

func (s *apiKeyService) CheckKey(ctx context.Context, req APIKeyCheckRequest) (*APIKeyCheck, error) {
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	configKey, ok := providerKeys[provider]
	if !ok {
		return nil, invalid("provider", "unknown provider %q", req.Provider)
	}
	label := providerLabels[provider]

	key := strings.TrimSpace(req.APIKey)
	if key == "" || key == SecretMask {
		key = s.config.Get(ctx, configKey, model.CategoryAPI, "")
	}
	res := &APIKeyCheck{Provider: provider}
	if key == "" {
		res.Message = label + ": API key required."
		return res, nil
	}
	if !keyFormatOK(provider, key) {
		res.Message = label + ": invalid key format."
		return res, nil
	}
	res.Valid = true
	res.Message = label + ": format OK."

	if req.Live && provider == ProviderOpenAI && s.openai != nil {
		res.Live = true
		n, err := s.openai(ctx, key)
		if err != nil {
			xlog.Warn("Live OpenAI key check failed", "error", err)
			res.Valid = false
			res.Message = label + ": key rejected by provider."
			return res, nil
		}
		res.Message = fmt.Sprintf("%s: key accepted, %d models visible.", label, n)
	}
	return res, nil
}
