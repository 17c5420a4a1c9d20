// Package risk implements the injury risk scoring model. It is intentionally
// dependency-free: it imports nothing from internal/ and can be tested without
// a database or network.
package risk

import (
	"errors"
	"fmt"
)

// ─── ENUMS ────────────────────────────────────────────────────────────────────

// PainLocation is the self-reported site of pain. String values match the
// wire format and the assessments JSONB column, so no conversion is needed.
type PainLocation string

const (
	LocationNone      PainLocation = "none"
	LocationShoulder  PainLocation = "shoulder"
	LocationWrist     PainLocation = "wrist"
	LocationElbow     PainLocation = "elbow"
	LocationKnee      PainLocation = "knee"
	LocationLowerBack PainLocation = "lower_back"
	LocationOther     PainLocation = "other"
)

// ExperienceLevel is the athlete's self-reported training experience.
type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceAdvanced     ExperienceLevel = "advanced"
)

// Level is the three-band classification of a risk score.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
)

// ─── INPUT ────────────────────────────────────────────────────────────────────

// Input is one athlete's self-reported training and recovery snapshot.
// Score assumes a pre-validated Input; callers must run Validate first.
type Input struct {
	TrainingDaysPerWeek int             `json:"training_days_per_week"`
	SessionMinutes      int             `json:"session_minutes"`
	RPE                 int             `json:"rpe"`
	WeeklySets          int             `json:"weekly_sets"`
	RestDaysPerWeek     int             `json:"rest_days_per_week"`
	SleepHours          float64         `json:"sleep_hours"`
	PainScore           int             `json:"pain_score"`
	PainLocation        PainLocation    `json:"pain_location"`
	ExperienceLevel     ExperienceLevel `json:"experience_level"`
}

// Validate checks every field against its allowed range. All violations are
// reported at once via errors.Join so the caller can surface a complete list.
func (in Input) Validate() error {
	var errs []error

	checkInt := func(name string, v, lo, hi int) {
		if v < lo || v > hi {
			errs = append(errs, fmt.Errorf("%s must be between %d and %d, got %d", name, lo, hi, v))
		}
	}

	checkInt("training_days_per_week", in.TrainingDaysPerWeek, 0, 7)
	checkInt("session_minutes", in.SessionMinutes, 0, 300)
	checkInt("rpe", in.RPE, 1, 10)
	checkInt("weekly_sets", in.WeeklySets, 0, 300)
	checkInt("rest_days_per_week", in.RestDaysPerWeek, 0, 7)
	checkInt("pain_score", in.PainScore, 0, 10)

	if in.SleepHours < 0 || in.SleepHours > 16 {
		errs = append(errs, fmt.Errorf("sleep_hours must be between 0 and 16, got %g", in.SleepHours))
	}

	switch in.PainLocation {
	case LocationNone, LocationShoulder, LocationWrist, LocationElbow,
		LocationKnee, LocationLowerBack, LocationOther:
	default:
		errs = append(errs, fmt.Errorf("pain_location %q is not a recognised location", in.PainLocation))
	}

	switch in.ExperienceLevel {
	case ExperienceBeginner, ExperienceIntermediate, ExperienceAdvanced:
	default:
		errs = append(errs, fmt.Errorf("experience_level %q is not a recognised level", in.ExperienceLevel))
	}

	return errors.Join(errs...)
}
