package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/strainguard/injury-risk-backend/internal/coach"
	"github.com/strainguard/injury-risk-backend/internal/risk"
	"github.com/strainguard/injury-risk-backend/internal/store"
)

// ─── POST /api/assess ─────────────────────────────────────────────────────────

type assessResponse struct {
	AssessmentID    string         `json:"assessment_id"`
	RiskScore       int            `json:"risk_score"`
	RiskLevel       risk.Level     `json:"risk_level"`
	TopFactors      []string       `json:"top_factors"`
	Recommendations []string       `json:"recommendations"`
	ScoreBreakdown  map[string]int `json:"score_breakdown"`
}

// handleAssess validates the submitted inputs, scores them, and records the
// assessment. The returned assessment_id is what a subsequent coaching request
// must carry — coach results attach by explicit ID, never by recency.
//
// The response does not wait on the database write: the recorder persists it
// off the request path, and an enqueue failure is logged, not surfaced.
func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var in risk.Input
	if !decode(w, r, &in) {
		return
	}

	// Validation happens here, before the model — Score assumes a
	// pre-validated input.
	if err := in.Validate(); err != nil {
		respondErr(w, http.StatusBadRequest, err.Error())
		return
	}

	result := risk.Score(in)
	id := uuid.New()

	err := s.recorder.RecordAssessment(r.Context(), store.CreateAssessmentParams{
		ID:     id,
		Input:  in,
		Result: result,
	})
	s.logAndIgnoreRecordErr(r, err, "assess")

	respond(w, http.StatusOK, assessResponse{
		AssessmentID:    id.String(),
		RiskScore:       result.Score,
		RiskLevel:       result.Level,
		TopFactors:      result.TopFactors,
		Recommendations: result.Recommendations,
		ScoreBreakdown:  result.Breakdown,
	})
}

// ─── POST /api/coach ──────────────────────────────────────────────────────────

type coachRequest struct {
	AssessmentID string `json:"assessment_id"`
	risk.Input
}

type coachResponse struct {
	AssessmentID string     `json:"assessment_id"`
	RiskScore    int        `json:"risk_score"`
	RiskLevel    risk.Level `json:"risk_level"`
	CoachMode    coach.Mode `json:"coach_mode"`
	CoachModel   string     `json:"coach_model,omitempty"`
	Plan         coach.Plan `json:"plan"`
}

// handleCoach runs the full coaching pipeline for the submitted inputs and
// attaches the plan to the assessment identified by assessment_id. The caller
// always receives a usable plan; coach_mode discloses whether the model or
// the deterministic fallback produced it.
func (s *Server) handleCoach(w http.ResponseWriter, r *http.Request) {
	var req coachRequest
	if !decode(w, r, &req) {
		return
	}

	assessmentID, err := uuid.Parse(req.AssessmentID)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid assessment_id")
		return
	}

	if err := req.Input.Validate(); err != nil {
		respondErr(w, http.StatusBadRequest, err.Error())
		return
	}

	result, plan, mode := s.coach.Plan(r.Context(), req.Input)

	model := ""
	if mode == coach.ModeModel {
		model = s.cfg.CoachModel
	}

	recordErr := s.recorder.RecordCoachPlan(r.Context(), store.AttachCoachPlanParams{
		AssessmentID: assessmentID,
		Mode:         mode,
		Model:        model,
		Plan:         plan,
	})
	s.logAndIgnoreRecordErr(r, recordErr, "coach")

	respond(w, http.StatusOK, coachResponse{
		AssessmentID: assessmentID.String(),
		RiskScore:    result.Score,
		RiskLevel:    result.Level,
		CoachMode:    mode,
		CoachModel:   model,
		Plan:         plan,
	})
}

// ─── GET /api/assessments/:assessmentID ───────────────────────────────────────

type assessmentResponse struct {
	AssessmentID    string         `json:"assessment_id"`
	CreatedAt       string         `json:"created_at"`
	Input           risk.Input     `json:"input"`
	RiskScore       int            `json:"risk_score"`
	RiskLevel       risk.Level     `json:"risk_level"`
	TopFactors      []string       `json:"top_factors"`
	Recommendations []string       `json:"recommendations"`
	ScoreBreakdown  map[string]int `json:"score_breakdown"`
	CoachMode       string         `json:"coach_mode,omitempty"`
	CoachModel      string         `json:"coach_model,omitempty"`
	CoachPlan       *coach.Plan    `json:"coach_plan,omitempty"`
	CoachedAt       string         `json:"coached_at,omitempty"`
}

// handleGetAssessment serves one stored assessment, including the coach plan
// when one has been attached.
func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "assessmentID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid assessment_id")
		return
	}

	a, err := s.reader.GetAssessment(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondErr(w, http.StatusNotFound, "assessment not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get assessment: %w", err))
		return
	}

	resp := assessmentResponse{
		AssessmentID:    a.ID.String(),
		CreatedAt:       a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Input:           a.Input,
		RiskScore:       a.RiskScore,
		RiskLevel:       a.RiskLevel,
		TopFactors:      a.TopFactors,
		Recommendations: a.Recommendations,
		ScoreBreakdown:  a.Breakdown,
		CoachMode:       a.CoachMode,
		CoachModel:      a.CoachModel,
		CoachPlan:       a.CoachPlan,
	}
	if a.CoachedAt.Valid {
		resp.CoachedAt = a.CoachedAt.Time.UTC().Format("2006-01-02T15:04:05Z")
	}

	respond(w, http.StatusOK, resp)
}
