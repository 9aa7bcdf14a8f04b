package advisor

import (
	"fmt"
	"strings"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"
)

const briefingPhilosophy = `You are a market sentiment analyst. Your role is to interpret the threshold signals the engine has already computed, NOT to invent new ones.

Rules:
- Reference the specific indicators and values in the data below.
- Never fabricate data. If an indicator is missing, say so.
- A "top" signal means euphoria/overheating; a "bottom" signal means fear/capitulation.
- Treat stale readings with explicit caution and say how old they are.
- When most indicators are neutral, say so plainly instead of forcing a narrative.
- Keep the briefing short: a few sentences on the overall picture, then one line per non-neutral indicator.
- This is informational, not financial advice; do not append disclaimers.`

func BuildSystemPrompt(signalContext string) string {
	var sb strings.Builder
	sb.WriteString(briefingPhilosophy)
	sb.WriteString("\n\n--- CURRENT SIGNALS (as of ")
	sb.WriteString(time.Now().UTC().Format(time.RFC822))
	sb.WriteString(") ---\n")
	sb.WriteString(signalContext)
	return sb.String()
}

func FormatSignalContext(signals []domain.Signal) string {
	if len(signals) == 0 {
		return "No indicator data currently available."
	}

	var sb strings.Builder
	for _, s := range signals {
		sb.WriteString(fmt.Sprintf("  %s = %.2f %s [%s] as of %s",
			s.Title, s.Value, s.Unit,
			strings.ToUpper(string(s.Class)),
			s.AsOf.Format("2006-01-02")))
		if s.Stale {
			sb.WriteString(" (STALE)")
		}
		if s.Percentile != nil {
			sb.WriteString(fmt.Sprintf(" pct=%.2f", *s.Percentile))
		}
		if s.Detail != "" {
			sb.WriteString(" " + s.Detail)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
