package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/strainguard/injury-risk-backend/internal/coach"
	"github.com/strainguard/injury-risk-backend/internal/risk"
)

// ─── MODELS ──────────────────────────────────────────────────────────────────

// Assessment is one stored scoring event, optionally enriched with the coach
// result from a later coaching request.
type Assessment struct {
	ID              uuid.UUID
	CreatedAt       time.Time
	Input           risk.Input
	RiskScore       int
	RiskLevel       risk.Level
	TopFactors      []string
	Recommendations []string
	Breakdown       map[string]int

	// Coach fields are zero-valued until a coaching request attaches them.
	CoachMode  string
	CoachModel string
	CoachPlan  *coach.Plan
	CoachedAt  sql.NullTime
}

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// CreateAssessmentParams is everything written when a scoring request is
// recorded. The ID is generated by the caller so the HTTP response can carry
// it before the write lands.
type CreateAssessmentParams struct {
	ID     uuid.UUID
	Input  risk.Input
	Result risk.Result
}

// AttachCoachPlanParams groups the coach fields written together after a
// coaching request. The assessment is addressed by its explicit ID — never by
// recency — so concurrent scoring and coaching requests cannot cross-attach.
type AttachCoachPlanParams struct {
	AssessmentID uuid.UUID
	Mode         coach.Mode
	Model        string
	Plan         coach.Plan
}

// ─── METHODS ─────────────────────────────────────────────────────────────────

// CreateAssessment inserts one scored assessment.
func (s *Store) CreateAssessment(ctx context.Context, p CreateAssessmentParams) error {
	inputJSON, err := json.Marshal(p.Input)
	if err != nil {
		return fmt.Errorf("CreateAssessment: marshal input: %w", err)
	}
	factorsJSON, err := json.Marshal(p.Result.TopFactors)
	if err != nil {
		return fmt.Errorf("CreateAssessment: marshal factors: %w", err)
	}
	recsJSON, err := json.Marshal(p.Result.Recommendations)
	if err != nil {
		return fmt.Errorf("CreateAssessment: marshal recommendations: %w", err)
	}
	breakdownJSON, err := json.Marshal(p.Result.Breakdown)
	if err != nil {
		return fmt.Errorf("CreateAssessment: marshal breakdown: %w", err)
	}

	const q = `
		INSERT INTO assessments
			(id, input_json, risk_score, risk_level, top_factors, recommendations, breakdown_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := s.pool.ExecContext(ctx, q,
		p.ID, inputJSON, p.Result.Score, string(p.Result.Level),
		factorsJSON, recsJSON, breakdownJSON,
	); err != nil {
		return fmt.Errorf("CreateAssessment: insert: %w", err)
	}
	return nil
}

// AttachCoachPlan writes the coach mode, model identifier, and serialised plan
// onto an existing assessment. Returns ErrNotFound if no row has the given ID
// — including when the insert from the paired scoring request has not landed
// yet, in which case the recorder retries.
func (s *Store) AttachCoachPlan(ctx context.Context, p AttachCoachPlanParams) error {
	planJSON, err := json.Marshal(p.Plan)
	if err != nil {
		return fmt.Errorf("AttachCoachPlan: marshal plan: %w", err)
	}

	const q = `
		UPDATE assessments
		SET coach_mode = $2, coach_model = $3, coach_plan_json = $4, coached_at = now()
		WHERE id = $1`

	res, err := s.pool.ExecContext(ctx, q,
		p.AssessmentID, string(p.Mode), p.Model,
		pqtype.NullRawMessage{RawMessage: planJSON, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("AttachCoachPlan: update: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("AttachCoachPlan: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("AttachCoachPlan: assessment %s: %w", p.AssessmentID, ErrNotFound)
	}
	return nil
}

// GetAssessment loads one assessment by ID. Returns ErrNotFound for an
// unknown ID.
func (s *Store) GetAssessment(ctx context.Context, id uuid.UUID) (Assessment, error) {
	const q = `
		SELECT id, created_at, input_json, risk_score, risk_level,
		       top_factors, recommendations, breakdown_json,
		       coach_mode, coach_model, coach_plan_json, coached_at
		FROM assessments
		WHERE id = $1`

	var (
		a             Assessment
		level         string
		inputJSON     []byte
		factorsJSON   []byte
		recsJSON      []byte
		breakdownJSON []byte
		coachMode     sql.NullString
		coachModel    sql.NullString
		planJSON      pqtype.NullRawMessage
	)

	err := s.pool.QueryRowContext(ctx, q, id).Scan(
		&a.ID, &a.CreatedAt, &inputJSON, &a.RiskScore, &level,
		&factorsJSON, &recsJSON, &breakdownJSON,
		&coachMode, &coachModel, &planJSON, &a.CoachedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Assessment{}, fmt.Errorf("GetAssessment: %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Assessment{}, fmt.Errorf("GetAssessment: %w", err)
	}

	a.RiskLevel = risk.Level(level)
	if err := json.Unmarshal(inputJSON, &a.Input); err != nil {
		return Assessment{}, fmt.Errorf("GetAssessment: unmarshal input: %w", err)
	}
	if err := json.Unmarshal(factorsJSON, &a.TopFactors); err != nil {
		return Assessment{}, fmt.Errorf("GetAssessment: unmarshal factors: %w", err)
	}
	if err := json.Unmarshal(recsJSON, &a.Recommendations); err != nil {
		return Assessment{}, fmt.Errorf("GetAssessment: unmarshal recommendations: %w", err)
	}
	if err := json.Unmarshal(breakdownJSON, &a.Breakdown); err != nil {
		return Assessment{}, fmt.Errorf("GetAssessment: unmarshal breakdown: %w", err)
	}

	a.CoachMode = coachMode.String
	a.CoachModel = coachModel.String
	if planJSON.Valid {
		var plan coach.Plan
		if err := json.Unmarshal(planJSON.RawMessage, &plan); err != nil {
			return Assessment{}, fmt.Errorf("GetAssessment: unmarshal coach plan: %w", err)
		}
		a.CoachPlan = &plan
	}

	return a, nil
}
