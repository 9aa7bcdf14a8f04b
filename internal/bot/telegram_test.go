package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"
)

func TestFormatSignalsMarkers(t *testing.T) {
	signals := []domain.Signal{
		{Title: "CNN Fear & Greed", Value: 82, Unit: "0-100", Class: domain.SignalTop,
			AsOf: time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)},
		{Title: "VIX", Value: 45, Unit: "index", Class: domain.SignalBottom,
			AsOf: time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)},
		{Title: "S&P 500 RSI", Value: 55, Unit: "0-100", Class: domain.SignalNeutral,
			AsOf: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Stale: true},
	}

	out := formatSignals(signals)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "🔴") {
		t.Fatalf("top signal must carry the red marker: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "🟢") {
		t.Fatalf("bottom signal must carry the green marker: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "•") {
		t.Fatalf("neutral signal must carry the bullet marker: %q", lines[2])
	}
	if !strings.Contains(lines[2], "[stale]") {
		t.Fatalf("stale signal must be flagged: %q", lines[2])
	}
}

func TestFormatSignalsEmpty(t *testing.T) {
	out := formatSignals(nil)
	if !strings.Contains(out, "/fetch") {
		t.Fatalf("empty signal set should point at /fetch, got %q", out)
	}
}

func TestIndicatorIDsCoversCatalog(t *testing.T) {
	ids := indicatorIDs()
	if len(ids) != len(domain.Indicators()) {
		t.Fatalf("expected %d ids, got %d", len(domain.Indicators()), len(ids))
	}
	found := false
	for _, id := range ids {
		if id == string(domain.IndicatorVIX) {
			found = true
		}
	}
	if !found {
		t.Fatal("expected vix in the id list")
	}
}
