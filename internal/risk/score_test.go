package risk_test

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/strainguard/injury-risk-backend/internal/risk"
)

// baseline returns an input with every field at its minimum-risk value.
// Tests mutate single fields from here.
func baseline() risk.Input {
	return risk.Input{
		TrainingDaysPerWeek: 3,
		SessionMinutes:      60,
		RPE:                 5,
		WeeklySets:          20,
		RestDaysPerWeek:     3,
		SleepHours:          8,
		PainScore:           0,
		PainLocation:        risk.LocationNone,
		ExperienceLevel:     risk.ExperienceIntermediate,
	}
}

func sumBreakdown(b map[string]int) int {
	total := 0
	for _, v := range b {
		total += v
	}
	return total
}

// ─── Scenarios ────────────────────────────────────────────────────────────────

func TestScore_HighPainOnly(t *testing.T) {
	in := risk.Input{
		TrainingDaysPerWeek: 4,
		SessionMinutes:      60,
		RPE:                 5,
		WeeklySets:          50,
		RestDaysPerWeek:     3,
		SleepHours:          8,
		PainScore:           8,
		PainLocation:        risk.LocationKnee,
		ExperienceLevel:     risk.ExperienceAdvanced,
	}

	res := risk.Score(in)

	if res.Score != 45 {
		t.Errorf("score: got %d, want 45", res.Score)
	}
	if res.Level != risk.LevelModerate {
		t.Errorf("level: got %s, want moderate", res.Level)
	}
	if res.Breakdown[risk.CategoryPain] != 45 {
		t.Errorf("pain contribution: got %d, want 45", res.Breakdown[risk.CategoryPain])
	}
	for _, cat := range []string{risk.CategoryVolume, risk.CategoryIntensity, risk.CategorySleep, risk.CategoryRest, risk.CategoryExperience} {
		if res.Breakdown[cat] != 0 {
			t.Errorf("%s contribution: got %d, want 0", cat, res.Breakdown[cat])
		}
	}
	if want := []string{"High pain score reported (7+)."}; !reflect.DeepEqual(res.TopFactors, want) {
		t.Errorf("top factors: got %v, want %v", res.TopFactors, want)
	}

	joined := strings.Join(res.Recommendations, " | ")
	if !strings.Contains(joined, "consulting a medical professional") {
		t.Errorf("expected clinician recommendation, got: %s", joined)
	}
	if !strings.Contains(joined, "reduce load on the knee") {
		t.Errorf("expected knee load recommendation, got: %s", joined)
	}
}

func TestScore_MinimumRisk(t *testing.T) {
	res := risk.Score(baseline())

	if res.Score != 0 {
		t.Errorf("score: got %d, want 0", res.Score)
	}
	if res.Level != risk.LevelLow {
		t.Errorf("level: got %s, want low", res.Level)
	}
	if want := []string{risk.SentinelNoFactors}; !reflect.DeepEqual(res.TopFactors, want) {
		t.Errorf("top factors: got %v, want %v", res.TopFactors, want)
	}
	want := []string{"Maintain current plan; continue gradual progression and monitor any discomfort."}
	if !reflect.DeepEqual(res.Recommendations, want) {
		t.Errorf("recommendations: got %v, want %v", res.Recommendations, want)
	}
	if got := sumBreakdown(res.Breakdown); got != 0 {
		t.Errorf("breakdown sum: got %d, want 0", got)
	}
}

func TestScore_SixtyEightStaysModerate(t *testing.T) {
	// Every non-pain category fires: 20+18+12+10+8 = 68, just under the high
	// band at 70.
	in := risk.Input{
		TrainingDaysPerWeek: 6,
		SessionMinutes:      90,
		RPE:                 9,
		WeeklySets:          130,
		RestDaysPerWeek:     1,
		SleepHours:          5,
		PainScore:           0,
		PainLocation:        risk.LocationNone,
		ExperienceLevel:     risk.ExperienceBeginner,
	}

	res := risk.Score(in)

	if res.Score != 68 {
		t.Errorf("score: got %d, want 68", res.Score)
	}
	if res.Level != risk.LevelModerate {
		t.Errorf("level: got %s, want moderate (68 < 70)", res.Level)
	}
	if got := sumBreakdown(res.Breakdown); got != 68 {
		t.Errorf("breakdown sum: got %d, want 68", got)
	}
}

func TestScore_ClampsAtOneHundred(t *testing.T) {
	// All six categories at maximum sum to 113; the reported score saturates
	// at 100 while the breakdown keeps the raw contributions, so the
	// breakdown sum exceeds the score only in this clamped case.
	in := risk.Input{
		TrainingDaysPerWeek: 6,
		SessionMinutes:      120,
		RPE:                 9,
		WeeklySets:          130,
		RestDaysPerWeek:     1,
		SleepHours:          5,
		PainScore:           8,
		PainLocation:        risk.LocationLowerBack,
		ExperienceLevel:     risk.ExperienceBeginner,
	}

	res := risk.Score(in)

	if res.Score != 100 {
		t.Errorf("score: got %d, want 100 (clamped from 113)", res.Score)
	}
	if res.Level != risk.LevelHigh {
		t.Errorf("level: got %s, want high", res.Level)
	}
	if got := sumBreakdown(res.Breakdown); got != 113 {
		t.Errorf("breakdown sum: got %d, want 113 (pre-clamp)", got)
	}
}

// ─── Level bands ──────────────────────────────────────────────────────────────

func TestLevelForScore_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  risk.Level
	}{
		{0, risk.LevelLow},
		{34, risk.LevelLow},
		{35, risk.LevelModerate}, // lower bound inclusive
		{69, risk.LevelModerate},
		{70, risk.LevelHigh}, // lower bound inclusive
		{100, risk.LevelHigh},
	}
	for _, tt := range tests {
		if got := risk.LevelForScore(tt.score); got != tt.want {
			t.Errorf("LevelForScore(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestScore_BoundaryInputs(t *testing.T) {
	// 25 (moderate pain) + 10 (RPE 7) = 35 → exactly moderate.
	atModerate := baseline()
	atModerate.PainScore = 4
	atModerate.RPE = 7
	if res := risk.Score(atModerate); res.Score != 35 || res.Level != risk.LevelModerate {
		t.Errorf("got score=%d level=%s, want 35/moderate", res.Score, res.Level)
	}

	// 10 + 20 + 18 + 12 + 10 = 70 → exactly high.
	atHigh := baseline()
	atHigh.PainScore = 1
	atHigh.WeeklySets = 120
	atHigh.RPE = 9
	atHigh.SleepHours = 5
	atHigh.RestDaysPerWeek = 1
	atHigh.TrainingDaysPerWeek = 5
	if res := risk.Score(atHigh); res.Score != 70 || res.Level != risk.LevelHigh {
		t.Errorf("got score=%d level=%s, want 70/high", res.Score, res.Level)
	}
}

// ─── Factors ──────────────────────────────────────────────────────────────────

func TestScore_FactorsFollowEvaluationOrderAndTruncateToThree(t *testing.T) {
	// Four categories fire: pain, volume, intensity, sleep. Top factors keep
	// the first three in evaluation order.
	in := baseline()
	in.PainScore = 5
	in.WeeklySets = 85
	in.RPE = 7
	in.SleepHours = 6.5

	res := risk.Score(in)

	want := []string{
		"Moderate pain score reported (4–6).",
		"High weekly training volume (sets).",
		"High intensity (RPE 7-8).",
	}
	if !reflect.DeepEqual(res.TopFactors, want) {
		t.Errorf("top factors: got %v, want %v", res.TopFactors, want)
	}
	if got := sumBreakdown(res.Breakdown); got != res.Score {
		t.Errorf("breakdown sum %d != score %d", got, res.Score)
	}
}

func TestScore_PainBandsAreMutuallyExclusive(t *testing.T) {
	tests := []struct {
		painScore int
		want      int
	}{
		{0, 0},
		{1, 10},
		{3, 10},
		{4, 25},
		{6, 25},
		{7, 45},
		{10, 45},
	}
	for _, tt := range tests {
		in := baseline()
		in.PainScore = tt.painScore
		res := risk.Score(in)
		if res.Breakdown[risk.CategoryPain] != tt.want {
			t.Errorf("pain_score=%d: contribution %d, want %d", tt.painScore, res.Breakdown[risk.CategoryPain], tt.want)
		}
	}
}

// ─── Recommendations ──────────────────────────────────────────────────────────

func TestScore_RecommendationsNeverEmpty(t *testing.T) {
	inputs := []risk.Input{
		baseline(),
		{TrainingDaysPerWeek: 7, SessionMinutes: 300, RPE: 10, WeeklySets: 300, RestDaysPerWeek: 0, SleepHours: 0, PainScore: 10, PainLocation: risk.LocationOther, ExperienceLevel: risk.ExperienceBeginner},
	}
	for _, in := range inputs {
		if res := risk.Score(in); len(res.Recommendations) == 0 {
			t.Errorf("input %+v: recommendations empty", in)
		}
	}
}

func TestScore_RecommendationGatesDifferFromScoringBands(t *testing.T) {
	// RPE 7 fires the intensity factor but not the intensity recommendation
	// (its gate is RPE >= 8).
	in := baseline()
	in.RPE = 7
	res := risk.Score(in)
	if res.Breakdown[risk.CategoryIntensity] != 10 {
		t.Fatalf("intensity contribution: got %d, want 10", res.Breakdown[risk.CategoryIntensity])
	}
	for _, rec := range res.Recommendations {
		if strings.Contains(rec, "Lower intensity") {
			t.Errorf("RPE 7 should not trigger the intensity recommendation, got: %s", rec)
		}
	}

	in.RPE = 8
	res = risk.Score(in)
	joined := strings.Join(res.Recommendations, " | ")
	if !strings.Contains(joined, "Lower intensity") {
		t.Errorf("RPE 8 should trigger the intensity recommendation, got: %s", joined)
	}
}

func TestScore_PainLocationRenderedWithSpaces(t *testing.T) {
	in := baseline()
	in.PainScore = 4
	in.PainLocation = risk.LocationLowerBack

	res := risk.Score(in)

	joined := strings.Join(res.Recommendations, " | ")
	if !strings.Contains(joined, "reduce load on the lower back") {
		t.Errorf("expected lower_back rendered as %q, got: %s", "lower back", joined)
	}
}

func TestScore_NoLocationRecommendationWithoutModeratePain(t *testing.T) {
	in := baseline()
	in.PainScore = 3 // mild — below the location gate at 4
	in.PainLocation = risk.LocationShoulder

	res := risk.Score(in)
	for _, rec := range res.Recommendations {
		if strings.Contains(rec, "shoulder") {
			t.Errorf("mild pain should not trigger the location recommendation, got: %s", rec)
		}
	}
}

// ─── Determinism and serialization ───────────────────────────────────────────

func TestScore_Deterministic(t *testing.T) {
	in := baseline()
	in.PainScore = 6
	in.WeeklySets = 100
	in.SleepHours = 6.5

	first := risk.Score(in)
	second := risk.Score(in)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Score is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestInput_JSONRoundTrip(t *testing.T) {
	in := risk.Input{
		TrainingDaysPerWeek: 5,
		SessionMinutes:      75,
		RPE:                 8,
		WeeklySets:          96,
		RestDaysPerWeek:     2,
		SleepHours:          6.5,
		PainScore:           4,
		PainLocation:        risk.LocationLowerBack,
		ExperienceLevel:     risk.ExperienceBeginner,
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back risk.Input
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if back != in {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", back, in)
	}
}

// ─── Validation ───────────────────────────────────────────────────────────────

func TestInput_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*risk.Input)
		valid  bool
	}{
		{"baseline valid", func(in *risk.Input) {}, true},
		{"all maxima valid", func(in *risk.Input) {
			in.TrainingDaysPerWeek = 7
			in.SessionMinutes = 300
			in.RPE = 10
			in.WeeklySets = 300
			in.RestDaysPerWeek = 7
			in.SleepHours = 16
			in.PainScore = 10
		}, true},
		{"training days too high", func(in *risk.Input) { in.TrainingDaysPerWeek = 8 }, false},
		{"training days negative", func(in *risk.Input) { in.TrainingDaysPerWeek = -1 }, false},
		{"session minutes too high", func(in *risk.Input) { in.SessionMinutes = 301 }, false},
		{"rpe zero", func(in *risk.Input) { in.RPE = 0 }, false},
		{"rpe too high", func(in *risk.Input) { in.RPE = 11 }, false},
		{"weekly sets too high", func(in *risk.Input) { in.WeeklySets = 301 }, false},
		{"rest days too high", func(in *risk.Input) { in.RestDaysPerWeek = 8 }, false},
		{"sleep hours negative", func(in *risk.Input) { in.SleepHours = -0.5 }, false},
		{"sleep hours too high", func(in *risk.Input) { in.SleepHours = 16.5 }, false},
		{"pain score too high", func(in *risk.Input) { in.PainScore = 11 }, false},
		{"unknown pain location", func(in *risk.Input) { in.PainLocation = "hip" }, false},
		{"empty pain location", func(in *risk.Input) { in.PainLocation = "" }, false},
		{"unknown experience level", func(in *risk.Input) { in.ExperienceLevel = "expert" }, false},
		{"empty experience level", func(in *risk.Input) { in.ExperienceLevel = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseline()
			tt.mutate(&in)
			err := in.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid, got: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestInput_ValidateReportsAllViolations(t *testing.T) {
	in := risk.Input{RPE: 0, SleepHours: -1, PainLocation: "nowhere", ExperienceLevel: "novice"}
	err := in.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, field := range []string{"rpe", "sleep_hours", "pain_location", "experience_level"} {
		if !strings.Contains(msg, field) {
			t.Errorf("expected %s violation in error, got: %s", field, msg)
		}
	}
}
