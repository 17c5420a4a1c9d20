package coach

import (
	"fmt"
	"strings"

	"github.com/strainguard/injury-risk-backend/internal/risk"
)

// tierParams are the level-dependent knobs of the fallback plan.
type tierParams struct {
	volumeCut string // percentage range, rendered into the reduce bucket
	targetRPE string // RPE range, rendered into the reduce bucket
	restNote  string // first entry of the add bucket
}

// tierTable maps each risk level to its fixed plan parameters.
var tierTable = map[risk.Level]tierParams{
	risk.LevelHigh: {
		volumeCut: "40–50%",
		targetRPE: "5–6",
		restNote:  "Add 2 extra rest days this week.",
	},
	risk.LevelModerate: {
		volumeCut: "20–30%",
		targetRPE: "6–7",
		restNote:  "Add 1 extra rest day this week.",
	},
	risk.LevelLow: {
		volumeCut: "0–10%",
		targetRPE: "7–8",
		restNote:  "Keep your current rest-day schedule.",
	},
}

// genericRedFlags are always present, in this order, after any pain prepend.
var genericRedFlags = []string{
	"Sharp or stabbing pain during movement.",
	"Pain that worsens during or after every session.",
	"Numbness, tingling, or loss of strength.",
	"Swelling or visible deformity.",
	"Pain that persists at rest or disturbs sleep.",
}

// Fallback builds the deterministic coaching plan for (in, res). It is pure:
// identical arguments always produce an identical plan. Used whenever the
// model path fails, and always safe to serve directly.
func Fallback(in risk.Input, res risk.Result) Plan {
	tier := tierTable[res.Level]

	keep := []string{
		"Keep a thorough 10–15 minute warm-up before every session.",
		"Keep technique work at light loads to maintain movement quality.",
	}

	reduce := []string{
		fmt.Sprintf("Reduce weekly training volume by %s.", tier.volumeCut),
		fmt.Sprintf("Cap session intensity at RPE %s.", tier.targetRPE),
		"Reduce or pause any movement that reproduces pain.",
	}
	if in.TrainingDaysPerWeek >= 5 {
		reduce = append(reduce, "Drop one training day this week to create recovery room.")
	}

	sleepLine := "Maintain your 7–9 hour sleep routine to support recovery."
	if in.SleepHours < 7 {
		sleepLine = "Add 30–60 minutes of sleep per night, targeting 7–9 hours."
	}

	// The sleep line sits at index 1, between the rest note and mobility work.
	add := []string{
		tier.restNote,
		sleepLine,
		"Add 10 minutes of easy mobility work on rest days.",
	}

	redFlags := genericRedFlags
	if in.PainScore >= 7 {
		redFlags = append(
			[]string{"Pain is very high (7+) — stop aggravating training and consult a licensed clinician."},
			genericRedFlags...,
		)
	}

	drivers := res.TopFactors
	if len(drivers) > 3 {
		drivers = drivers[:3]
	}

	return Plan{
		Summary: fmt.Sprintf(
			"Overall injury risk is %s (score %d/100). This 7-day plan trims load where it matters while you monitor symptoms.",
			strings.ToUpper(string(res.Level)), res.Score,
		),
		TopDrivers: drivers,
		WeekPlan: WeekPlan{
			Keep:   keep,
			Reduce: reduce,
			Add:    add,
		},
		RedFlags: redFlags,
	}
}
