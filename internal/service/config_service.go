package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/repository"
	"github.com/mudler/xlog"

	_ "time/tzdata"
)

const (
	// SecretMask replaces stored secrets on read; writing it back leaves the secret unchanged.
	SecretMask = "********"

	defaultSessionTimeoutMinutes = 60
	minSessionTimeoutMinutes     = 5
	maxSessionTimeoutMinutes     = 720
	// MaxSessionIdle bounds how long any session store must retain an idle session.
	MaxSessionIdle = maxSessionTimeoutMinutes * time.Minute

	defaultTimezone = "America/Bogota"
)

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ConfigKey describes one known setting.
type ConfigKey struct {
	Key         string `json:"key"`
	Default     string `json:"default"`
	Description string `json:"description"`
	Secret      bool   `json:"secret"`
	validate    func(string) error
}

var configCatalogue = map[string][]ConfigKey{
	model.CategoryGeneral: {
		{Key: "dashboard_name", Default: "IA-AMCO", Description: "Nombre del dashboard", validate: minLen(3)},
		{Key: "language", Default: "es", Description: "Idioma de la interfaz"},
		{Key: "timezone", Default: defaultTimezone, Description: "Zona horaria", validate: validTimezone},
		{Key: "logo_url", Default: "", Description: "URL del logo", validate: optionalHTTPURL},
	},
	model.CategoryAPI: {
		{Key: "n8n_username", Description: "Usuario N8N"},
		{Key: "n8n_password", Description: "Contraseña N8N", Secret: true},
		{Key: "agentops_api_key", Description: "API Key AgentOps", Secret: true},
		{Key: "anthropic_api_key", Description: "API Key Anthropic", Secret: true},
		{Key: "openai_api_key", Description: "API Key OpenAI", Secret: true},
	},
	model.CategoryAppearance: {
		{Key: "color_navbar_bg", Default: "#478C3C", validate: hexColor},
		{Key: "color_navbar_text", Default: "#FFFFFF", validate: hexColor},
		{Key: "color_button_primary_bg", Default: "#478C3C", validate: hexColor},
		{Key: "color_button_primary_text", Default: "#FFFFFF", validate: hexColor},
		{Key: "color_button_primary_hover_bg", Default: "#3B7031", validate: hexColor},
		{Key: "color_sidebar_bg", Default: "#F0F2F6", validate: hexColor},
		{Key: "color_sidebar_text", Default: "#1E1E1E", validate: hexColor},
		{Key: "color_base_bg", Default: "#FFFFFF", validate: hexColor},
		{Key: "color_base_text", Default: "#1E1E1E", validate: hexColor},
		{Key: "color_widget_border", Default: "#CCCCCC", validate: hexColor},
		{Key: "color_table_header", Default: "#F0F2F6", validate: hexColor},
		{Key: "color_link", Default: "#0068C9", validate: hexColor},
	},
	model.CategorySecurity: {
		{Key: "password_min_length", Default: "8", Description: "Longitud mínima de contraseña", validate: intRange(minPasswordLengthFloor, 128)},
		{Key: "password_require_special", Default: "true", Description: "Requerir caracteres especiales", validate: boolean},
		{Key: "password_require_numbers", Default: "true", Description: "Requerir números", validate: boolean},
		{Key: "password_require_uppercase", Default: "true", Description: "Requerir mayúsculas", validate: boolean},
		{Key: "session_timeout", Default: strconv.Itoa(defaultSessionTimeoutMinutes), Description: "Tiempo de sesión (minutos)", validate: intRange(minSessionTimeoutMinutes, maxSessionTimeoutMinutes)},
	},
}

// ConfigService is the application-wide key/value settings store.
type ConfigService interface {
	// Get returns the stored value for key in category, or def when absent or unreadable.
	Get(ctx context.Context, key, category, def string) string
	GetInt(ctx context.Context, key, category string, def int) int
	GetBool(ctx context.Context, key, category string, def bool) bool
	// GetCategory merges stored values over the category defaults. Secrets are masked when mask is set.
	GetCategory(ctx context.Context, category string, mask bool) (map[string]string, error)
	Save(ctx context.Context, key, value, category, description string) error
	// SaveCategory validates and upserts a batch, returning the resulting masked view.
	SaveCategory(ctx context.Context, category string, values map[string]string) (map[string]string, error)
	Categories() map[string][]ConfigKey

	PasswordPolicy(ctx context.Context) PasswordPolicy
	SessionTimeout(ctx context.Context) time.Duration
	Location(ctx context.Context) *time.Location
}

type configService struct {
	repo repository.ConfigRepository
	tx   repository.TransactionManager
}

func NewConfigService(repo repository.ConfigRepository, tx repository.TransactionManager) ConfigService {
	return &configService{repo: repo, tx: tx}
}

func (s *configService) Get(ctx context.Context, key, category, def string) string {
	cfg, err := s.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			xlog.Error("Failed to read configuration", "key", key, "category", category, "error", err)
		}
		return def
	}
	if category != "" && cfg.Category != category {
		return def
	}
	return cfg.Value
}

func (s *configService) GetInt(ctx context.Context, key, category string, def int) int {
	v := strings.TrimSpace(s.Get(ctx, key, category, ""))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *configService) GetBool(ctx context.Context, key, category string, def bool) bool {
	v := strings.TrimSpace(s.Get(ctx, key, category, ""))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return def
}

func (s *configService) Categories() map[string][]ConfigKey {
	return configCatalogue
}

func (s *configService) GetCategory(ctx context.Context, category string, mask bool) (map[string]string, error) {
	keys, ok := configCatalogue[category]
	if !ok {
		return nil, notFound("configuration category " + category)
	}
	stored, err := s.repo.ListByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list configuration: %w", err)
	}

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k.Key] = k.Default
	}
	for _, cfg := range stored {
		out[cfg.Key] = cfg.Value
	}
	if mask {
		for _, k := range keys {
			if k.Secret && out[k.Key] != "" {
				out[k.Key] = SecretMask
			}
		}
	}
	return out, nil
}

func (s *configService) Save(ctx context.Context, key, value, category, description string) error {
	if strings.TrimSpace(key) == "" {
		return invalid("key", "key is required")
	}
	if err := s.repo.Upsert(ctx, &model.Configuration{
		Key:         key,
		Value:       value,
		Category:    category,
		Description: description,
	}); err != nil {
		return fmt.Errorf("failed to save configuration '%s': %w", key, err)
	}
	return nil
}

func (s *configService) SaveCategory(ctx context.Context, category string, values map[string]string) (map[string]string, error) {
	keys, ok := configCatalogue[category]
	if !ok {
		return nil, notFound("configuration category " + category)
	}
	known := make(map[string]ConfigKey, len(keys))
	for _, k := range keys {
		known[k.Key] = k
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		k, ok := known[name]
		if !ok {
			return nil, invalid(name, "unknown setting for category %s", category)
		}
		v := strings.TrimSpace(values[name])
		if k.Secret && v == SecretMask {
			continue
		}
		if k.validate != nil {
			if err := k.validate(v); err != nil {
				return nil, invalid(name, "%s", err.Error())
			}
		}
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		for _, name := range names {
			k := known[name]
			v := strings.TrimSpace(values[name])
			if k.Secret && v == SecretMask {
				continue
			}
			if err := s.Save(txCtx, name, v, category, k.Description); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	xlog.Info("Configuration saved", "category", category, "keys", len(names))
	return s.GetCategory(ctx, category, true)
}

func (s *configService) PasswordPolicy(ctx context.Context) PasswordPolicy {
	def := DefaultPasswordPolicy()
	minLen := s.GetInt(ctx, "password_min_length", model.CategorySecurity, def.MinLength)
	if minLen < minPasswordLengthFloor {
		minLen = minPasswordLengthFloor
	}
	return PasswordPolicy{
		MinLength:        minLen,
		RequireSpecial:   s.GetBool(ctx, "password_require_special", model.CategorySecurity, def.RequireSpecial),
		RequireNumbers:   s.GetBool(ctx, "password_require_numbers", model.CategorySecurity, def.RequireNumbers),
		RequireUppercase: s.GetBool(ctx, "password_require_uppercase", model.CategorySecurity, def.RequireUppercase),
	}
}

// SessionTimeout is the idle limit, clamped to the accepted range.
func (s *configService) SessionTimeout(ctx context.Context) time.Duration {
	minutes := s.GetInt(ctx, "session_timeout", model.CategorySecurity, defaultSessionTimeoutMinutes)
	if minutes < minSessionTimeoutMinutes {
		minutes = minSessionTimeoutMinutes
	}
	if minutes > maxSessionTimeoutMinutes {
		minutes = maxSessionTimeoutMinutes
	}
	return time.Duration(minutes) * time.Minute
}

func (s *configService) Location(ctx context.Context) *time.Location {
	name := s.Get(ctx, "timezone", model.CategoryGeneral, defaultTimezone)
	loc, err := time.LoadLocation(name)
	if err != nil {
		xlog.Warn("Invalid configured timezone, using default", "timezone", name)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	return loc
}

func minLen(n int) func(string) error {
	return func(v string) error {
		if utf8.RuneCountInString(v) < n {
			return fmt.Errorf("must be at least %d characters long", n)
		}
		return nil
	}
}

func validTimezone(v string) error {
	if _, err := time.LoadLocation(v); err != nil || v == "" {
		return fmt.Errorf("unknown timezone %q", v)
	}
	return nil
}

func optionalHTTPURL(v string) error {
	if v == "" || strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		return nil
	}
	return errors.New("must start with http:// or https://")
}

func hexColor(v string) error {
	if !hexColorRe.MatchString(v) {
		return errors.New("must be a #RRGGBB color")
	}
	return nil
}

func boolean(v string) error {
	if _, err := strconv.ParseBool(v); err != nil {
		return errors.New("must be true or false")
	}
	return nil
}

func intRange(lo, hi int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < lo || n > hi {
			return fmt.Errorf("must be a whole number between %d and %d", lo, hi)
		}
		return nil
	}
}
