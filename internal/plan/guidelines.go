package plan

import (
	"github.com/myrjola/recoverfit/internal/recovery"
)

const (
	lowScoreThreshold  = 60
	highScoreThreshold = 80
)

// Guidelines is the set, rep and rest guidance for one intensity tier.
type Guidelines struct {
	SetRange string
	RepRange string
	RestTime string
	Notes    string
}

// GuidelinesFor picks the light row when the score is below 60 or the intensity is light, the high row when the
// score is at least 80 or the intensity is high, and the moderate row otherwise.
func GuidelinesFor(a recovery.Assessment) Guidelines {
	switch {
	case a.Score < lowScoreThreshold || a.TrainingIntensity == recovery.IntensityLight:
		return Guidelines{
			SetRange: "2-3",
			RepRange: "12-15",
			RestTime: "60-90 seconds",
			Notes:    "Focus on form and recovery. Avoid going to failure.",
		}
	case a.Score >= highScoreThreshold || a.TrainingIntensity == recovery.IntensityHigh:
		return Guidelines{
			SetRange: "4-5",
			RepRange: "6-8",
			RestTime: "2-3 minutes for compounds",
			Notes:    "Push hard with good intensity. Can approach failure on last set.",
		}
	default:
		return Guidelines{
			SetRange: "3-4",
			RepRange: "8-12",
			RestTime: "90-120 seconds",
			Notes:    "Moderate intensity. Leave 1-2 reps in reserve.",
		}
	}
}

func recoveryAdjustment(score int) string {
	switch {
	case score < lowScoreThreshold:
		return "- LOW RECOVERY: Choose easier variations, reduce volume, avoid high-intensity techniques"
	case score >= highScoreThreshold:
		return "- HIGH RECOVERY: Can include advanced techniques like drop sets or supersets on last exercise"
	default:
		return "- MODERATE RECOVERY: Standard progressive overload, focus on consistent execution"
	}
}

func selectionRules(focus FocusArea) []string {
	var rules []string
	if focus == FocusUpperBody || focus == FocusFullBody {
		rules = append(rules,
			"- Include at least 1 horizontal push (bench/pushup) and 1 vertical push (overhead press)",
			"- Include 1 pulling movement for balance")
	}
	if focus == FocusLowerBody || focus == FocusFullBody {
		rules = append(rules,
			"- Include 1 squat or hinge pattern",
			"- Include posterior chain work")
	}
	if focus == FocusCore {
		rules = append(rules,
			"- Include anti-extension and anti-rotation work",
			"- Pair loaded carries or holds with dynamic trunk movements")
	}
	return rules
}
