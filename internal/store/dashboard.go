package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/strainguard/injury-risk-backend/internal/risk"
)

// ─── OUTPUT TYPES ────────────────────────────────────────────────────────────

// Summary is the dashboard headline block: totals, average score, and the
// level / coach-mode distributions.
type Summary struct {
	TotalAssessments int
	AverageScore     float64
	LevelCounts      map[string]int
	CoachModeCounts  map[string]int
	CoachedCount     int
}

// TrendPoint is one day bucket of assessment activity.
type TrendPoint struct {
	Day          time.Time
	Count        int
	AverageScore float64
}

// ─── METHODS ─────────────────────────────────────────────────────────────────

// GetSummary computes the dashboard aggregates with three scans.
func (s *Store) GetSummary(ctx context.Context) (Summary, error) {
	sum := Summary{
		LevelCounts:     make(map[string]int),
		CoachModeCounts: make(map[string]int),
	}

	var avg sql.NullFloat64
	err := s.pool.QueryRowContext(ctx,
		`SELECT count(*), avg(risk_score) FROM assessments`,
	).Scan(&sum.TotalAssessments, &avg)
	if err != nil {
		return Summary{}, fmt.Errorf("GetSummary: totals: %w", err)
	}
	sum.AverageScore = avg.Float64

	rows, err := s.pool.QueryContext(ctx,
		`SELECT risk_level, count(*) FROM assessments GROUP BY risk_level`,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("GetSummary: level counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return Summary{}, fmt.Errorf("GetSummary: scan level count: %w", err)
		}
		sum.LevelCounts[level] = n
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("GetSummary: level counts: %w", err)
	}

	modeRows, err := s.pool.QueryContext(ctx,
		`SELECT coach_mode, count(*) FROM assessments WHERE coach_mode IS NOT NULL GROUP BY coach_mode`,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("GetSummary: mode counts: %w", err)
	}
	defer modeRows.Close()
	for modeRows.Next() {
		var mode string
		var n int
		if err := modeRows.Scan(&mode, &n); err != nil {
			return Summary{}, fmt.Errorf("GetSummary: scan mode count: %w", err)
		}
		sum.CoachModeCounts[mode] = n
		sum.CoachedCount += n
	}
	if err := modeRows.Err(); err != nil {
		return Summary{}, fmt.Errorf("GetSummary: mode counts: %w", err)
	}

	return sum, nil
}

// GetTrends returns day-bucketed counts and average scores for the last
// `days` days, oldest first. Days with no assessments are absent from the
// result — the dashboard fills gaps client-side.
func (s *Store) GetTrends(ctx context.Context, days int) ([]TrendPoint, error) {
	const q = `
		SELECT date_trunc('day', created_at) AS day, count(*), avg(risk_score)
		FROM assessments
		WHERE created_at >= now() - make_interval(days => $1)
		GROUP BY day
		ORDER BY day`

	rows, err := s.pool.QueryContext(ctx, q, days)
	if err != nil {
		return nil, fmt.Errorf("GetTrends: %w", err)
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Day, &p.Count, &p.AverageScore); err != nil {
			return nil, fmt.Errorf("GetTrends: scan: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// RecentInputs loads the most recent stored inputs, newest first, for factor
// replay through the risk model. The caller bounds the scan with limit.
func (s *Store) RecentInputs(ctx context.Context, limit int) ([]risk.Input, error) {
	const q = `
		SELECT input_json
		FROM assessments
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.pool.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentInputs: %w", err)
	}
	defer rows.Close()

	var inputs []risk.Input
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("RecentInputs: scan: %w", err)
		}
		var in risk.Input
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("RecentInputs: unmarshal input: %w", err)
		}
		inputs = append(inputs, in)
	}
	return inputs, rows.Err()
}
