package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/repository"
	"github.com/google/uuid"
)

const (
	HistoryLimit   = 150
	historyDays    = 7
	historyPreview = 80
)

type HistoryRequest struct {
	AgentID string `form:"agent_id"`
	From    string `form:"from"`
	To      string `form:"to"`
	// Success is "true", "false" or empty for both.
	Success string `form:"success"`
}

type HistoryEntry struct {
	ID             string `json:"id"`
	CreatedAt      string `json:"created_at"`
	AgentID        string `json:"agent_id"`
	AgentName      string `json:"agent_name"`
	SessionID      string `json:"session_id"`
	Query          string `json:"query"`
	Response       string `json:"response"`
	Success        bool   `json:"success"`
	ResponseTimeMS int    `json:"response_time_ms"`
}

type HistoryPage struct {
	From    string         `json:"from"`
	To      string         `json:"to"`
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Entries []HistoryEntry `json:"entries"`
}

type HistoryService interface {
	// ListHistory returns the newest matching queries with previews of their text.
	ListHistory(ctx context.Context, req HistoryRequest) (*HistoryPage, error)
	GetQuery(ctx context.Context, id string) (*model.Query, error)
}

type historyService struct {
	queries repository.QueryRepository
	config  ConfigService
	clock   Clock
}

func NewHistoryService(queries repository.QueryRepository, config ConfigService, clock Clock) HistoryService {
	return &historyService{queries: queries, config: config, clock: clock}
}

func (s *historyService) ListHistory(ctx context.Context, req HistoryRequest) (*HistoryPage, error) {
	loc := s.config.Location(ctx)
	start, end, err := dateWindow(req.From, req.To, historyDays, s.clock.now(), loc)
	if err != nil {
		return nil, err
	}
	filter := repository.QueryFilter{From: start, To: end, Limit: HistoryLimit}

	if req.AgentID != "" {
		id, err := uuid.Parse(req.AgentID)
		if err != nil {
			return nil, invalid("agent_id", "invalid id")
		}
		filter.AgentID = &id
	}
	switch strings.ToLower(strings.TrimSpace(req.Success)) {
	case "":
	case "true", "1":
		v := true
		filter.Success = &v
	case "false", "0":
		v := false
		filter.Success = &v
	default:
		return nil, invalid("success", "must be true or false")
	}

	rows, total, err := s.queries.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	page := &HistoryPage{
		From:    start.Format(dateLayout),
		To:      end.AddDate(0, 0, -1).Format(dateLayout),
		Total:   total,
		Limit:   HistoryLimit,
		Entries: make([]HistoryEntry, 0, len(rows)),
	}
	for _, r := range rows {
		entry := HistoryEntry{
			ID:             r.ID.String(),
			CreatedAt:      r.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
			AgentID:        r.AgentID.String(),
			SessionID:      r.SessionID,
			Query:          preview(r.QueryText, ""),
			Response:       preview(r.ResponseText, "N/A"),
			Success:        r.Success,
			ResponseTimeMS: r.ResponseTimeMS,
		}
		if r.Agent != nil {
			entry.AgentName = r.Agent.Name
		}
		page.Entries = append(page.Entries, entry)
	}
	return page, nil
}

func (s *historyService) GetQuery(ctx context.Context, id string) (*model.Query, error) {
	queryID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	q, err := s.queries.GetByID(ctx, queryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("query")
		}
		return nil, err
	}
	return q, nil
}

func preview(text, empty string) string {
	if text == "" {
		return empty
	}
	r := []rune(text)
	if len(r) <= historyPreview {
		return text
	}
	return string(r[:historyPreview]) + "..."
}
