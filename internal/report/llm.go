package report

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joelkehle/salesops-pie/internal/pie"
)

const systemPrompt = "You are the senior estimator at a web services agency. You evaluate " +
	"project intake submissions for scope, budget fit, timeline risk, and content readiness, " +
	"and you respond with strict JSON only."

// Caller is the seam to the external reasoning service.
type Caller interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// GenerateRequest carries the estimator prompt plus the prior model turn when
// the caller is continuing an earlier thread.
type GenerateRequest struct {
	Prompt           string
	PriorModelOutput string
}

// GenerateResponse is the raw model text plus the provider's message id,
// stored as the report's opaque continuation handle.
type GenerateResponse struct {
	ResponseID string
	Text       string
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicCaller struct {
	messages AnthropicMessager
	model    anthropic.Model
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

// NewAnthropicCallerFromEnv builds the production caller. A missing API key
// is a fatal configuration error, never retried.
func NewAnthropicCallerFromEnv(model string) (*AnthropicCaller, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, pie.NewConfigError("ANTHROPIC_API_KEY not configured")
	}
	return &AnthropicCaller{messages: newAnthropicClient(apiKey), model: anthropic.Model(model)}, nil
}

func (a *AnthropicCaller) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	messages := []anthropic.MessageParam{}
	if strings.TrimSpace(req.PriorModelOutput) != "" {
		messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(req.PriorModelOutput)))
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)))

	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   4096,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    messages,
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return GenerateResponse{}, err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return GenerateResponse{ResponseID: resp.ID, Text: sb.String()}, nil
}

// isTimeout reports whether the transport error was a deadline, so the
// surfaced generation failure can say so instead of echoing SDK internals.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
