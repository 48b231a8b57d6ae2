package plan

import (
	_ "embed"
	"strings"
	"text/template"
	"time"

	"github.com/myrjola/recoverfit/internal/recovery"
)

const systemPrompt = "You are an expert strength and conditioning coach. You create varied, personalized workout plans " +
	"based on recovery metrics. You ALWAYS respond with ONLY valid JSON, no markdown or explanations. Each workout " +
	"you create is unique and specifically tailored to the user's recovery status."

//go:embed prompt.tmpl
var promptSource string

//nolint:gochecknoglobals // parsed once at startup.
var promptTemplate = template.Must(template.New("plan").Parse(promptSource))

type promptData struct {
	Assessment     recovery.Assessment
	Prefs          Preferences
	Budget         Budget
	Guidelines     Guidelines
	Equipment      string
	Adjustment     string
	SelectionRules []string
	Timestamp      int64
	Nonce          string
}

// Prompt is the user message asking for a plan. now and nonce only vary the text so the backend does not return
// a cached plan.
func Prompt(a recovery.Assessment, prefs Preferences, now time.Time, nonce string) string {
	prefs = prefs.WithDefaults()
	equipment := make([]string, len(prefs.Equipment))
	for i, e := range prefs.Equipment {
		equipment[i] = string(e)
	}
	data := promptData{
		Assessment:     a,
		Prefs:          prefs,
		Budget:         BudgetFor(prefs.DurationMinutes),
		Guidelines:     GuidelinesFor(a),
		Equipment:      strings.Join(equipment, ", "),
		Adjustment:     recoveryAdjustment(a.Score),
		SelectionRules: selectionRules(prefs.FocusArea),
		Timestamp:      now.UnixMilli(),
		Nonce:          nonce,
	}
	var sb strings.Builder
	// The template only reads fields of promptData so Execute cannot fail after Must succeeded.
	if err := promptTemplate.Execute(&sb, data); err != nil {
		panic(err)
	}
	return sb.String()
}
