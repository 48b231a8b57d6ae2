// Package plan generates a workout plan that fits a recovery assessment and the user's preferences.
package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/myrjola/recoverfit/internal/llm"
)

type FocusArea string

const (
	FocusFullBody  FocusArea = "Full Body"
	FocusUpperBody FocusArea = "Upper Body"
	FocusLowerBody FocusArea = "Lower Body"
	FocusCore      FocusArea = "Core"
)

// FocusAreas lists the selectable focus areas in display order.
func FocusAreas() []FocusArea {
	return []FocusArea{FocusFullBody, FocusUpperBody, FocusLowerBody, FocusCore}
}

type Equipment string

const (
	EquipmentBodyweight      Equipment = "Bodyweight"
	EquipmentDumbbells       Equipment = "Dumbbells"
	EquipmentBarbell         Equipment = "Barbell"
	EquipmentCables          Equipment = "Cables"
	EquipmentMachine         Equipment = "Machine"
	EquipmentKettlebells     Equipment = "Kettlebells"
	EquipmentResistanceBands Equipment = "Resistance Bands"
)

// AllEquipment lists the selectable equipment tags in display order.
func AllEquipment() []Equipment {
	return []Equipment{
		EquipmentBodyweight, EquipmentDumbbells, EquipmentBarbell, EquipmentCables,
		EquipmentMachine, EquipmentKettlebells, EquipmentResistanceBands,
	}
}

const DefaultDurationMinutes = 45

// Preferences are the user chosen generation parameters.
type Preferences struct {
	FocusArea       FocusArea   `json:"focusArea"`
	DurationMinutes int         `json:"duration"`
	Equipment       []Equipment `json:"equipment"`
}

// WithDefaults fills in the Full Body focus, 45 minutes and bodyweight plus dumbbells for unset fields.
func (p Preferences) WithDefaults() Preferences {
	if p.FocusArea == "" {
		p.FocusArea = FocusFullBody
	}
	if p.DurationMinutes <= 0 {
		p.DurationMinutes = DefaultDurationMinutes
	}
	if len(p.Equipment) == 0 {
		p.Equipment = []Equipment{EquipmentBodyweight, EquipmentDumbbells}
	}
	return p
}

// Reps is a rep count or range such as "8-10". It decodes from a JSON string or number.
type Reps string

func (r *Reps) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode reps: %w", err)
		}
		*r = Reps(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode reps: %w", err)
	}
	*r = Reps(n.String())
	return nil
}

// wholeNumber decodes 3, 3.0, "3" and "45 minutes" alike. A string without a leading number decodes as zero.
type wholeNumber int

func (n *wholeNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode number: %w", err)
		}
		s = strings.TrimSpace(s)
		end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
		if end == -1 {
			end = len(s)
		}
		v, err := strconv.Atoi(s[:end])
		if err != nil {
			*n = 0
			return nil //nolint:nilerr // prose instead of a number counts as missing.
		}
		*n = wholeNumber(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode number: %w", err)
	}
	*n = wholeNumber(math.Round(f))
	return nil
}

// Prescription is one planned exercise before it is expanded into trackable sets.
type Prescription struct {
	Name       string `json:"name"`
	TargetSets int    `json:"sets"`
	TargetReps Reps   `json:"reps"`
	Notes      string `json:"notes,omitempty"`
}

func (p *Prescription) UnmarshalJSON(data []byte) error {
	type prescription Prescription
	var aux struct {
		prescription
		TargetSets wholeNumber `json:"sets"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode prescription: %w", err)
	}
	*p = Prescription(aux.prescription)
	p.TargetSets = int(aux.TargetSets)
	return nil
}

// wellFormed reports whether p names an exercise and asks for at least one set.
func (p Prescription) wellFormed() bool {
	return strings.TrimSpace(p.Name) != "" && p.TargetSets > 0
}

type WorkoutPlan struct {
	Name            string         `json:"name"`
	Type            string         `json:"type"`
	DurationMinutes int            `json:"duration"`
	Exercises       []Prescription `json:"exercises"`
	Reasoning       string         `json:"reasoning"`
}

func (w *WorkoutPlan) UnmarshalJSON(data []byte) error {
	type workoutPlan WorkoutPlan
	var aux struct {
		workoutPlan
		DurationMinutes wholeNumber `json:"duration"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode plan: %w", err)
	}
	*w = WorkoutPlan(aux.workoutPlan)
	w.DurationMinutes = int(aux.DurationMinutes)
	return nil
}

// Budget brackets the number of exercises a plan may contain.
type Budget struct {
	Min int
	Max int
}

const (
	minutesPerExercise    = 8
	minutesPerMinExercise = 12
	minExerciseFloor      = 3
)

// BudgetFor derives the exercise count budget from the session duration. Max is roughly eight minutes per
// exercise. Min is at least three, clamped down to Max for short sessions. Both are at least one.
func BudgetFor(durationMinutes int) Budget {
	b := Budget{
		Min: max(minExerciseFloor, durationMinutes/minutesPerMinExercise),
		Max: durationMinutes / minutesPerExercise,
	}
	if b.Min > b.Max {
		b.Min = b.Max
	}
	if b.Max < 1 {
		b.Min, b.Max = 1, 1
	}
	return b
}

func (b Budget) String() string {
	if b.Min == b.Max {
		return strconv.Itoa(b.Min)
	}
	return fmt.Sprintf("%d-%d", b.Min, b.Max)
}

// Result is the outcome of [Generator.Generate]. Failure is empty unless Plan is the fallback.
type Result struct {
	Plan    WorkoutPlan
	Budget  Budget
	Failure llm.FailureKind
	Err     error
}

func (r Result) IsFallback() bool {
	return r.Failure != llm.FailureNone
}
