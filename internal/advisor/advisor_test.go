package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"

	"github.com/openai/openai-go"
	"go.opentelemetry.io/otel/trace"
)

type fakeLLM struct {
	reply      string
	err        error
	lastParams openai.ChatCompletionNewParams
	noChoices  bool
}

func (f *fakeLLM) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	if f.noChoices {
		return &openai.ChatCompletion{}, nil
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.reply}},
		},
	}, nil
}

type fakeSignals struct {
	signals []domain.Signal
	err     error
}

func (f *fakeSignals) ListSignals(ctx context.Context, now time.Time) ([]domain.Signal, error) {
	return f.signals, f.err
}

func testTracer() trace.Tracer { return trace.NewNoopTracerProvider().Tracer("test") }

func TestBriefingUsesSignalContext(t *testing.T) {
	llm := &fakeLLM{reply: "Complacency everywhere."}
	signals := &fakeSignals{signals: []domain.Signal{{
		IndicatorID: domain.IndicatorVIX,
		Title:       "VIX",
		Class:       domain.SignalTop,
		Value:       11.2,
		Unit:        "index",
		AsOf:        time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC),
	}}}
	svc := NewService(testTracer(), llm, signals, "gpt-4o-mini")

	out, err := svc.Briefing(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Complacency everywhere." {
		t.Fatalf("unexpected briefing: %q", out)
	}
	if llm.lastParams.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model: %q", llm.lastParams.Model)
	}
	if len(llm.lastParams.Messages) != 2 {
		t.Fatalf("expected system + user message, got %d", len(llm.lastParams.Messages))
	}
}

func TestBriefingDisabledWithoutLLM(t *testing.T) {
	svc := NewService(testTracer(), nil, &fakeSignals{}, "gpt-4o-mini")
	if svc.Enabled() {
		t.Fatal("service without LLM must report disabled")
	}
	if _, err := svc.Briefing(context.Background()); err == nil {
		t.Fatal("expected error without LLM")
	}
}

func TestBriefingPropagatesSignalError(t *testing.T) {
	svc := NewService(testTracer(), &fakeLLM{reply: "x"}, &fakeSignals{err: errors.New("store down")}, "m")
	if _, err := svc.Briefing(context.Background()); err == nil {
		t.Fatal("expected error when signal context fails")
	}
}

func TestBriefingRejectsEmptyCompletion(t *testing.T) {
	svc := NewService(testTracer(), &fakeLLM{noChoices: true}, &fakeSignals{}, "m")
	_, err := svc.Briefing(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Fatalf("expected no-choices error, got %v", err)
	}
}

func TestFormatSignalContext(t *testing.T) {
	pct := 0.95
	signals := []domain.Signal{
		{Title: "S&P 500 P/E", Value: 31.4, Unit: "x", Class: domain.SignalTop,
			AsOf: time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC), Percentile: &pct},
		{Title: "VIX", Value: 19.4, Unit: "index", Class: domain.SignalNeutral,
			AsOf: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Stale: true},
	}

	out := FormatSignalContext(signals)
	if !strings.Contains(out, "S&P 500 P/E = 31.40 x [TOP] as of 2026-03-18") {
		t.Fatalf("missing top line in context:\n%s", out)
	}
	if !strings.Contains(out, "pct=0.95") {
		t.Fatalf("missing percentile in context:\n%s", out)
	}
	if !strings.Contains(out, "(STALE)") {
		t.Fatalf("missing stale marker in context:\n%s", out)
	}
}

func TestFormatSignalContextEmpty(t *testing.T) {
	if out := FormatSignalContext(nil); out != "No indicator data currently available." {
		t.Fatalf("unexpected empty-context message: %q", out)
	}
}

func TestBuildSystemPromptEmbedsContext(t *testing.T) {
	prompt := BuildSystemPrompt("  VIX = 19.40 index [NEUTRAL]\n")
	if !strings.Contains(prompt, "market sentiment analyst") {
		t.Fatal("expected analyst philosophy in prompt")
	}
	if !strings.Contains(prompt, "VIX = 19.40 index [NEUTRAL]") {
		t.Fatal("expected signal context embedded in prompt")
	}
}
