package workout

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/myrjola/recoverfit/internal/plan"
)

const (
	defaultTargetReps  = 10
	warmupRestSeconds  = 60
	workingRestSeconds = 90
	warmupMinSets      = 3
)

//nolint:gochecknoglobals // immutable after init.
var (
	firstInteger = regexp.MustCompile(`\d+`)

	// exerciseNamespace scopes the name based exercise IDs.
	exerciseNamespace = uuid.MustParse("9b0e6a52-3c1d-4f0a-8f53-7d2f0c6e4a11")
)

type keywordRule struct {
	keywords []string
	value    string
}

// First matching rule wins.
//
//nolint:gochecknoglobals // lookup tables.
var (
	muscleGroupRules = []keywordRule{
		{keywords: []string{"bench", "chest", "press"}, value: "Chest"},
		{keywords: []string{"squat", "leg"}, value: "Legs"},
		{keywords: []string{"deadlift", "back", "row"}, value: "Back"},
		{keywords: []string{"shoulder", "overhead", "lateral"}, value: "Shoulders"},
		{keywords: []string{"bicep", "curl"}, value: "Biceps"},
		{keywords: []string{"tricep", "pushdown"}, value: "Triceps"},
		{keywords: []string{"core", "plank", "crunch"}, value: "Core"},
	}
	equipmentRules = []keywordRule{
		{keywords: []string{"dumbbell"}, value: "Dumbbells"},
		{keywords: []string{"barbell"}, value: "Barbell"},
		{keywords: []string{"cable"}, value: "Cables"},
		{keywords: []string{"machine"}, value: "Machine"},
		{keywords: []string{"bodyweight", "push-up", "pull-up"}, value: "Bodyweight"},
	}
)

func matchRule(name string, rules []keywordRule, fallback string) string {
	lower := strings.ToLower(name)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.value
			}
		}
	}
	return fallback
}

// InferMuscleGroup guesses the primary muscle group from the exercise name.
func InferMuscleGroup(name string) string {
	return matchRule(name, muscleGroupRules, "Full Body")
}

// InferEquipment guesses the equipment from the exercise name.
func InferEquipment(name string) string {
	return matchRule(name, equipmentRules, "Free Weights")
}

// ParseTargetReps takes the first integer of a rep prescription such as "8-10" and defaults to 10.
func ParseTargetReps(reps plan.Reps) int {
	match := firstInteger.FindString(string(reps))
	if match == "" {
		return defaultTargetReps
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		// Too many digits to fit an int.
		return defaultTargetReps
	}
	return n
}

// ExerciseID derives a stable ID from the plan name, the position in the plan and the exercise name.
func ExerciseID(planName string, position int, exerciseName string) string {
	return uuid.NewSHA1(exerciseNamespace, fmt.Appendf(nil, "%s\x00%d\x00%s", planName, position, exerciseName)).String()
}

// Materialize expands the prescriptions of p into trackable exercises and sets. It is deterministic.
func Materialize(p plan.WorkoutPlan) []Exercise {
	exercises := make([]Exercise, 0, len(p.Exercises))
	for i, prescription := range p.Exercises {
		id := ExerciseID(p.Name, i, prescription.Name)
		exercises = append(exercises, Exercise{
			ID:          id,
			Name:        prescription.Name,
			MuscleGroup: InferMuscleGroup(prescription.Name),
			Equipment:   InferEquipment(prescription.Name),
			Notes:       prescription.Notes,
			Sets:        materializeSets(id, prescription.TargetSets, ParseTargetReps(prescription.TargetReps)),
		})
	}
	return exercises
}

// materializeSets numbers sets from 1. The first set is a warmup when there are more than two sets. The warmup
// rests 60s, the last set 0s and the rest 90s.
func materializeSets(exerciseID string, count int, targetReps int) []Set {
	sets := make([]Set, 0, max(count, 0))
	for n := 1; n <= count; n++ {
		set := Set{
			ID:            setID(exerciseID, n),
			SetNumber:     n,
			Type:          SetTypeNormal,
			TargetReps:    targetReps,
			WeightKg:      nil,
			CompletedReps: nil,
			Completed:     false,
			RestSeconds:   workingRestSeconds,
		}
		switch {
		case n == 1 && count >= warmupMinSets:
			set.Type = SetTypeWarmup
			set.RestSeconds = warmupRestSeconds
		case n == count:
			set.RestSeconds = 0
		}
		sets = append(sets, set)
	}
	return sets
}

func setID(exerciseID string, setNumber int) string {
	return fmt.Sprintf("%s/%d", exerciseID, setNumber)
}
