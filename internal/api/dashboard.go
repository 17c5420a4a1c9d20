package api

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/strainguard/injury-risk-backend/internal/risk"
)

// factorReplayLimit bounds how many stored inputs the factors endpoint replays
// through the risk model per request.
const factorReplayLimit = 500

// ─── GET /api/dashboard/summary ───────────────────────────────────────────────

type summaryResponse struct {
	TotalAssessments int            `json:"total_assessments"`
	AverageScore     float64        `json:"average_score"`
	LevelCounts      map[string]int `json:"level_counts"`
	CoachedCount     int            `json:"coached_count"`
	CoachModeCounts  map[string]int `json:"coach_mode_counts"`
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.reader.GetSummary(r.Context())
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("dashboard summary: %w", err))
		return
	}

	respond(w, http.StatusOK, summaryResponse{
		TotalAssessments: sum.TotalAssessments,
		AverageScore:     sum.AverageScore,
		LevelCounts:      sum.LevelCounts,
		CoachedCount:     sum.CoachedCount,
		CoachModeCounts:  sum.CoachModeCounts,
	})
}

// ─── GET /api/dashboard/trends?days=N ─────────────────────────────────────────

type trendPointResponse struct {
	Day          string  `json:"day"`
	Count        int     `json:"count"`
	AverageScore float64 `json:"average_score"`
}

func (s *Server) handleDashboardTrends(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 365 {
			respondErr(w, http.StatusBadRequest, "days must be an integer between 1 and 365")
			return
		}
		days = parsed
	}

	points, err := s.reader.GetTrends(r.Context(), days)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("dashboard trends: %w", err))
		return
	}

	out := make([]trendPointResponse, len(points))
	for i, p := range points {
		out[i] = trendPointResponse{
			Day:          p.Day.UTC().Format("2006-01-02"),
			Count:        p.Count,
			AverageScore: p.AverageScore,
		}
	}

	respond(w, http.StatusOK, map[string]any{"days": days, "points": out})
}

// ─── GET /api/dashboard/factors ───────────────────────────────────────────────

type factorCountResponse struct {
	Factor string `json:"factor"`
	Count  int    `json:"count"`
}

// handleDashboardFactors replays recent stored inputs through the risk model
// and counts how often each top factor appears. Replaying (rather than reading
// the stored snapshots) means the counts always reflect the current model.
func (s *Server) handleDashboardFactors(w http.ResponseWriter, r *http.Request) {
	inputs, err := s.reader.RecentInputs(r.Context(), factorReplayLimit)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("dashboard factors: %w", err))
		return
	}

	counts := make(map[string]int)
	for _, in := range inputs {
		result := risk.Score(in)
		for _, f := range result.TopFactors {
			if f == risk.SentinelNoFactors {
				continue
			}
			counts[f]++
		}
	}

	out := make([]factorCountResponse, 0, len(counts))
	for factor, n := range counts {
		out = append(out, factorCountResponse{Factor: factor, Count: n})
	}

	// Sort descending by count; break ties by factor text for determinism.
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Factor < out[b].Factor
	})

	respond(w, http.StatusOK, map[string]any{
		"sampled": len(inputs),
		"factors": out,
	})
}
