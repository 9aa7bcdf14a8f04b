package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// SignalQuerier provides the evaluated signal set for the briefing context.
type SignalQuerier interface {
	ListSignals(ctx context.Context, now time.Time) ([]domain.Signal, error)
}

// Service turns the current signal set into a written market briefing.
// It interprets signals the engine already produced; it never generates
// its own classifications.
type Service struct {
	tracer  trace.Tracer
	llm     LLMClient
	signals SignalQuerier
	model   string
}

func NewService(tracer trace.Tracer, llm LLMClient, signals SignalQuerier, model string) *Service {
	return &Service{tracer: tracer, llm: llm, signals: signals, model: model}
}

// Enabled reports whether an LLM backend is configured.
func (s *Service) Enabled() bool { return s.llm != nil }

// Briefing produces a short narrative summary of the current signal set.
func (s *Service) Briefing(ctx context.Context) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.briefing")
	defer span.End()

	if s.llm == nil {
		return "", fmt.Errorf("advisor disabled: no LLM configured")
	}

	signals, err := s.signals.ListSignals(ctx, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("gather signal context: %w", err)
	}

	systemPrompt := BuildSystemPrompt(FormatSignalContext(signals))
	reply, err := s.callLLM(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage("Write today's market sentiment briefing."),
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("advisor unavailable: %w", err)
	}
	return reply, nil
}

func (s *Service) callLLM(
	ctx context.Context,
	messages []openai.ChatCompletionMessageParamUnion,
) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.llm-call")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", s.model),
		attribute.Int("llm.message_count", len(messages)),
	)

	completion, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model:    s.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}

	reply := completion.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("llm.reply_length", len(reply)))
	return reply, nil
}

// openaiClient wraps the official SDK's chat completions service.
type openaiClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey string) LLMClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &openaiClient{client: client}
}

func (c *openaiClient) CreateChatCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
