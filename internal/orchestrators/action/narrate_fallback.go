package action

import (
	"strings"
	"text/template"

	"github.com/fableforge/rules-api/internal/clients/narrator"
)

// fallbackTemplate renders the mechanical facts as plain prose when the
// narrator is unreachable. No state change rides on this text; the
// mechanics it describes were resolved and persisted before the narrator
// was ever called.
var fallbackTemplate = template.Must(template.New("fallback").Parse(strings.TrimSpace(`
{{- range .Outcomes -}}
{{- if .IsFumble -}}
{{.Attacker}} fumbles the attack and misses {{.Defender}}.
{{else if .IsHit -}}
{{.Attacker}} strikes {{.Defender}} for {{.Damage}} damage{{if .IsCritical}} with a critical hit{{end}}{{if .TargetDead}}, and {{.Defender}} falls{{end}}.
{{else -}}
{{.Attacker}} attacks {{.Defender}} and misses.
{{end -}}
{{- end -}}
{{- if .EncounterVictory}}The last of your enemies is down. The fight is over.
{{end -}}
{{- if .EncounterDefeat}}Your wounds overcome you and the world goes dark.
{{end -}}
{{- if gt .ClaimedGold 0}}You gather {{.ClaimedGold}} gold.
{{end -}}
{{- range .ClaimedItems}}You take the {{.}}.
{{end -}}
`)))

const fallbackQuiet = "The moment passes without incident."

// fallbackNarration turns resolved mechanics into serviceable prose
func fallbackNarration(facts *narrator.Request) string {
	var sb strings.Builder
	if err := fallbackTemplate.Execute(&sb, facts); err != nil {
		return fallbackQuiet
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return fallbackQuiet
	}
	return text
}
