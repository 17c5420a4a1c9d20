package risk

import (
	"fmt"
	"strings"
)

// ─── CONSTANTS ────────────────────────────────────────────────────────────────

// Level band boundaries. Both are inclusive on the lower side: a score of
// exactly 35 is moderate and exactly 70 is high.
const (
	highThreshold     = 70
	moderateThreshold = 35
)

// Breakdown category names, in evaluation order. The order determines the
// factor list order and therefore which factors make the top three.
const (
	CategoryPain       = "pain"
	CategoryVolume     = "volume"
	CategoryIntensity  = "intensity"
	CategorySleep      = "sleep"
	CategoryRest       = "rest"
	CategoryExperience = "experience"
)

// SentinelNoFactors is the single top-factor entry returned when no scoring
// category fired.
const SentinelNoFactors = "No major risk factors detected from provided inputs."

// ─── RESULT ───────────────────────────────────────────────────────────────────

// Result is the fully computed output for one assessment. Field types are
// plain Go types so the store and API can use it without conversion.
type Result struct {
	Score           int            `json:"risk_score"`
	Level           Level          `json:"risk_level"`
	TopFactors      []string       `json:"top_factors"`
	Recommendations []string       `json:"recommendations"`
	Breakdown       map[string]int `json:"score_breakdown"`
}

// LevelForScore classifies a clamped score into its risk band.
func LevelForScore(score int) Level {
	switch {
	case score >= highThreshold:
		return LevelHigh
	case score >= moderateThreshold:
		return LevelModerate
	default:
		return LevelLow
	}
}

// clamp constrains a score to [0, 100]. The lower bound can never fire with
// the current bands (all contributions are non-negative) but the upper bound
// is load-bearing: the categories can sum to 113.
func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Score computes the risk result for a validated Input. It is deterministic,
// total, and has no side effects: every validated input produces a result.
//
// Six categories are evaluated in fixed order — pain, volume, intensity,
// sleep, rest, experience. Pain uses mutually exclusive bands (highest
// qualifying band only); each other category contributes independently. The
// breakdown always carries all six keys, zero-valued where a category did not
// fire, and its entries sum to the pre-clamp score.
func Score(in Input) Result {
	score := 0
	var factors []string

	breakdown := map[string]int{
		CategoryPain:       0,
		CategoryVolume:     0,
		CategoryIntensity:  0,
		CategorySleep:      0,
		CategoryRest:       0,
		CategoryExperience: 0,
	}

	add := func(category string, points int, factor string) {
		score += points
		breakdown[category] += points
		factors = append(factors, factor)
	}

	// Pain is the strongest signal.
	switch {
	case in.PainScore >= 7:
		add(CategoryPain, 45, "High pain score reported (7+).")
	case in.PainScore >= 4:
		add(CategoryPain, 25, "Moderate pain score reported (4–6).")
	case in.PainScore >= 1:
		add(CategoryPain, 10, "Mild pain score reported (1–3).")
	}

	// Volume.
	switch {
	case in.WeeklySets >= 120:
		add(CategoryVolume, 20, "Very high weekly training volume (sets).")
	case in.WeeklySets >= 80:
		add(CategoryVolume, 12, "High weekly training volume (sets).")
	}

	// Intensity.
	switch {
	case in.RPE >= 9:
		add(CategoryIntensity, 18, "Very high intensity (RPE 9-10).")
	case in.RPE >= 7:
		add(CategoryIntensity, 10, "High intensity (RPE 7-8).")
	}

	// Sleep.
	switch {
	case in.SleepHours < 6:
		add(CategorySleep, 12, "Low sleep duration (<6 hours).")
	case in.SleepHours < 7:
		add(CategorySleep, 6, "Below-optimal sleep duration (6–7 hours).")
	}

	// Rest relative to training frequency.
	if in.RestDaysPerWeek <= 1 && in.TrainingDaysPerWeek >= 5 {
		add(CategoryRest, 10, "Low rest relative to training frequency.")
	}

	// Experience adjustment.
	if in.ExperienceLevel == ExperienceBeginner && in.RPE >= 8 {
		add(CategoryExperience, 8, "High intensity for beginner level.")
	}

	score = clamp(score)

	top := factors
	if len(top) > 3 {
		top = top[:3]
	}
	if len(top) == 0 {
		top = []string{SentinelNoFactors}
	}

	return Result{
		Score:           score,
		Level:           LevelForScore(score),
		TopFactors:      top,
		Recommendations: recommendations(in),
		Breakdown:       breakdown,
	}
}

// recommendations builds the advice list. Each entry is gated by its own
// condition and appended in fixed order; the gates mirror the scoring bands
// but are deliberately not identical to them (e.g. the intensity gate is
// RPE >= 8, not >= 7).
func recommendations(in Input) []string {
	var recs []string

	if in.PainScore >= 7 {
		recs = append(recs, "Stop aggravating movements and consider consulting a medical professional if pain persists.")
	}
	if in.PainLocation != LocationNone && in.PainScore >= 4 {
		location := strings.ReplaceAll(string(in.PainLocation), "_", " ")
		recs = append(recs, fmt.Sprintf("Modify training to reduce load on the %s and prioritize technique.", location))
	}
	if in.WeeklySets >= 80 {
		recs = append(recs, "Reduce weekly volume by 10–25% for 1–2 weeks (deload) and reassess symptoms.")
	}
	if in.RPE >= 8 {
		recs = append(recs, "Lower intensity for the next 3–7 days (aim RPE 6–7) and avoid grinding reps.")
	}
	if in.SleepHours < 7 {
		recs = append(recs, "Aim for 7–9 hours of sleep to improve recovery and reduce injury risk.")
	}
	if in.RestDaysPerWeek <= 1 && in.TrainingDaysPerWeek >= 5 {
		recs = append(recs, "Add 1 additional rest day per week to improve recovery capacity.")
	}

	if len(recs) == 0 {
		recs = append(recs, "Maintain current plan; continue gradual progression and monitor any discomfort.")
	}

	return recs
}
