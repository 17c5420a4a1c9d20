package coach

import (
	"context"
	"log/slog"

	"github.com/strainguard/injury-risk-backend/internal/risk"
)

// Coach orchestrates plan generation: it tries the model generator once and
// substitutes the deterministic fallback on any failure. It holds no mutable
// state and is safe for concurrent use.
type Coach struct {
	gen    Generator
	logger *slog.Logger
}

// New constructs a Coach. gen may be nil, in which case every plan comes from
// the fallback generator — useful when no model endpoint is configured.
func New(gen Generator, logger *slog.Logger) *Coach {
	return &Coach{gen: gen, logger: logger}
}

// Plan scores the input and produces a coaching plan, reporting which path
// built it. It never returns an error: the model path gets exactly one
// attempt, and any failure — call error or a candidate that fails strict
// validation — degrades to the fallback plan.
func (c *Coach) Plan(ctx context.Context, in risk.Input) (risk.Result, Plan, Mode) {
	res := risk.Score(in)

	if c.gen != nil {
		plan, err := c.gen.Generate(ctx, in, res)
		if err == nil {
			err = plan.Validate()
		}
		if err == nil {
			return res, plan, ModeModel
		}
		c.logger.Warn("coach: model plan rejected, using fallback",
			"error", err,
			"risk_score", res.Score,
			"risk_level", res.Level,
		)
	}

	return res, Fallback(in, res), ModeFallback
}
