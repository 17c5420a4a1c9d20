// Package coach generates the 7-day coaching plan that accompanies a risk
// result. The primary path is a language-model adapter; a deterministic
// fallback generator substitutes whenever the model is unavailable or returns
// an invalid structure.
package coach

import (
	"context"
	"errors"
	"fmt"

	"github.com/strainguard/injury-risk-backend/internal/risk"
)

// Mode records which producer built the final plan.
type Mode string

const (
	ModeModel    Mode = "model"
	ModeFallback Mode = "fallback"
)

// WeekPlan is the three-bucket 7-day plan. Each bucket is an ordered list of
// action strings.
type WeekPlan struct {
	Keep   []string `json:"keep"`
	Reduce []string `json:"reduce"`
	Add    []string `json:"add"`
}

// Plan is the structured coaching plan returned to the athlete. Exactly one
// of two producers builds it (the model adapter or the fallback generator);
// consumers must record which via Mode.
type Plan struct {
	Summary    string   `json:"summary"`
	TopDrivers []string `json:"top_drivers"`
	WeekPlan   WeekPlan `json:"week_plan"`
	RedFlags   []string `json:"red_flags"`
}

// Validate is the strict structural check applied to model-produced plans
// before they are accepted. The fallback generator always satisfies it.
func (p Plan) Validate() error {
	var errs []error

	if p.Summary == "" {
		errs = append(errs, errors.New("plan: summary is empty"))
	}
	if len(p.WeekPlan.Keep) == 0 {
		errs = append(errs, errors.New("plan: keep bucket is empty"))
	}
	if len(p.WeekPlan.Reduce) == 0 {
		errs = append(errs, errors.New("plan: reduce bucket is empty"))
	}
	if len(p.WeekPlan.Add) == 0 {
		errs = append(errs, errors.New("plan: add bucket is empty"))
	}
	if len(p.RedFlags) == 0 {
		errs = append(errs, errors.New("plan: red flags are empty"))
	}
	if len(p.TopDrivers) > 3 {
		errs = append(errs, fmt.Errorf("plan: %d top drivers, max 3", len(p.TopDrivers)))
	}

	return errors.Join(errs...)
}

// Generator is the interface the orchestrator uses to attempt the
// language-model path. The concrete implementation lives in ollama.go.
// Tests inject a stub that returns canned plans or errors.
type Generator interface {
	// Generate builds a plan candidate from the input and risk result.
	// A non-nil error means the attempt failed (transport error, bad status,
	// unparseable body, missing required keys) and the caller should
	// substitute the fallback plan. Implementations must be safe to call
	// concurrently and must never panic outward.
	Generate(ctx context.Context, in risk.Input, res risk.Result) (Plan, error)
}
