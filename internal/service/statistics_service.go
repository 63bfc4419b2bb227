package service

import (
	"context"
	"fmt"
	"time"

	"github.com/buddy0323/IA-TEK-streamlit/internal/repository"
	"github.com/google/uuid"
)

const (
	// AnalysisRowLimit bounds the rows loaded for one analysis window.
	AnalysisRowLimit = 20000
	analysisWindow   = 30
	overviewDays     = 7
	topTermsReturned = 20
)

type Overview struct {
	TotalAgents  int64        `json:"total_agents"`
	ActiveAgents int64        `json:"active_agents"`
	QueriesToday int64        `json:"queries_today"`
	TotalQueries int64        `json:"total_queries"`
	SuccessRate  *float64     `json:"success_rate"`
	LastDays     []DailyPoint `json:"last_days"`
}

type AnalysisRequest struct {
	AgentID string `form:"agent_id"`
	From    string `form:"from"`
	To      string `form:"to"`
}

type QueryAnalysis struct {
	From          string            `json:"from"`
	To            string            `json:"to"`
	AgentID       string            `json:"agent_id,omitempty"`
	TotalQueries  int               `json:"total_queries"`
	Truncated     bool              `json:"truncated"`
	SuccessRate   *float64          `json:"success_rate"`
	Daily         []DailyPoint      `json:"daily"`
	ResponseTimes ResponseTimeStats `json:"response_times"`
	TopTerms      []TermCount       `json:"top_terms"`
}

type StatisticsService interface {
	GetOverview(ctx context.Context) (*Overview, error)
	AnalyzeQueries(ctx context.Context, req AnalysisRequest) (*QueryAnalysis, error)
}

type statisticsService struct {
	stats   repository.StatisticsRepository
	queries repository.QueryRepository
	config  ConfigService
	clock   Clock
}

func NewStatisticsService(stats repository.StatisticsRepository, queries repository.QueryRepository, config ConfigService, clock Clock) StatisticsService {
	return &statisticsService{stats: stats, queries: queries, config: config, clock: clock}
}

// GetOverview aggregates the registry counters and recent query activity.
func (s *statisticsService) GetOverview(ctx context.Context) (*Overview, error) {
	loc := s.config.Location(ctx)
	now := s.clock.now()
	today := startOfDay(now, loc)
	tomorrow := today.AddDate(0, 0, 1)

	agents, err := s.stats.AgentCounts(ctx)
	if err != nil {
		return nil, err
	}
	todayCounts, err := s.stats.QueryCounts(ctx, today, tomorrow)
	if err != nil {
		return nil, err
	}
	all, err := s.stats.QueryCounts(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	from := today.AddDate(0, 0, -(overviewDays - 1))
	rows, _, err := s.queries.Search(ctx, repository.QueryFilter{From: from, To: tomorrow, Limit: AnalysisRowLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to load recent queries: %w", err)
	}

	return &Overview{
		TotalAgents:  agents.Total,
		ActiveAgents: agents.Active,
		QueriesToday: todayCounts.Total,
		TotalQueries: all.Total,
		SuccessRate:  SuccessRate(all.Successful, all.Total),
		LastDays:     DailySeries(rows, from, tomorrow, loc),
	}, nil
}

func (s *statisticsService) AnalyzeQueries(ctx context.Context, req AnalysisRequest) (*QueryAnalysis, error) {
	loc := s.config.Location(ctx)
	start, end, err := dateWindow(req.From, req.To, analysisWindow, s.clock.now(), loc)
	if err != nil {
		return nil, err
	}

	filter := repository.QueryFilter{From: start, To: end, OnlyTimed: true, Limit: AnalysisRowLimit}
	res := &QueryAnalysis{
		From: start.Format(dateLayout),
		To:   end.AddDate(0, 0, -1).Format(dateLayout),
	}
	if req.AgentID != "" {
		id, err := uuid.Parse(req.AgentID)
		if err != nil {
			return nil, invalid("agent_id", "invalid id")
		}
		filter.AgentID = &id
		res.AgentID = id.String()
	}

	rows, total, err := s.queries.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load queries: %w", err)
	}

	var ok int64
	texts := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Success {
			ok++
		}
		texts = append(texts, r.QueryText)
	}

	res.TotalQueries = len(rows)
	res.Truncated = total > int64(len(rows))
	res.SuccessRate = SuccessRate(ok, int64(len(rows)))
	res.Daily = DailySeries(rows, start, end, loc)
	res.ResponseTimes = ResponseTimes(rows)
	res.TopTerms = TermFrequency(texts, topTermsReturned)
	return res, nil
}
