package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/username/zeninvest/backend/src/models"
)

var (
	// ErrCritiqueNotConfigured means no API credential was supplied. The
	// caller should invite the user to configure one; the journal itself
	// keeps working.
	ErrCritiqueNotConfigured = errors.New("critique service is not configured")
	// ErrCritiqueUnauthorized means a credential was supplied but the
	// service rejected it.
	ErrCritiqueUnauthorized = errors.New("critique service rejected the credential")
)

// CritiqueUnavailableText is persisted in place of a critique when the
// mentor could not be reached. Journaling must never be blocked by an
// unavailable assistant.
const CritiqueUnavailableText = "The path of practice is sometimes clouded (the mentor could not be reached). Hold to your plan and keep reviewing."

// critiqueSilenceText covers the rare case of an empty completion.
const critiqueSilenceText = "The mentor is deep in meditation and has no words today."

// CritiqueService produces a short coaching critique of a closed plan.
type CritiqueService interface {
	Review(ctx context.Context, plan models.Plan, analysisDate string) (string, error)
}

// chatCompleter is the slice of the OpenAI client the service needs;
// narrowed for testability.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type critiqueServiceImpl struct {
	client chatCompleter
	model  string
}

// NewCritiqueService builds the chat-completion backed critique service.
// An empty API key yields a service that reports ErrCritiqueNotConfigured
// on every call instead of failing at startup.
func NewCritiqueService(apiKey, model string) CritiqueService {
	if apiKey == "" {
		return &critiqueServiceImpl{client: nil, model: model}
	}
	return &critiqueServiceImpl{client: openai.NewClient(apiKey), model: model}
}

// Review asks the mentor for a short critique of the closed plan. The
// returned error is one of the sentinels above or a transient failure the
// caller should degrade to placeholder text.
func (s *critiqueServiceImpl) Review(ctx context.Context, plan models.Plan, analysisDate string) (string, error) {
	if s.client == nil {
		return "", ErrCritiqueNotConfigured
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildCritiquePrompt(plan, analysisDate)},
		},
	})
	if err != nil {
		return "", classifyCritiqueError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return critiqueSilenceText, nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classifyCritiqueError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403 {
			return fmt.Errorf("%w: %v", ErrCritiqueUnauthorized, err)
		}
	}
	return fmt.Errorf("critique request failed: %w", err)
}

func buildCritiquePrompt(plan models.Plan, analysisDate string) string {
	direction := "buy (long)"
	if plan.Side == models.SideShort {
		direction = "sell (short)"
	}

	var b strings.Builder
	b.WriteString("You are a seasoned investment mentor known as the \"Zen Trading Mentor\".\n")
	fmt.Fprintf(&b, "It is %s. Based on the trade record below, offer a thoughtful, honest and short review (around 150 words):\n\n", analysisDate)
	fmt.Fprintf(&b, "Instrument: %s\n", plan.Symbol)
	fmt.Fprintf(&b, "Direction: %s\n", direction)
	fmt.Fprintf(&b, "Entry price: %g\n", plan.EntryPrice)
	fmt.Fprintf(&b, "Stop-loss: %g\n", plan.StopLoss)
	fmt.Fprintf(&b, "Target price: %g\n", plan.TargetPrice)
	if plan.ExitPrice != nil {
		fmt.Fprintf(&b, "Exit price: %g\n", *plan.ExitPrice)
	}
	fmt.Fprintf(&b, "Realized P&L: %g\n", plan.RealizedPL())
	fmt.Fprintf(&b, "Entry rationale: %s\n", plan.Rationale)
	fmt.Fprintf(&b, "State of mind at entry: %s\n", plan.PsychologicalState)
	fmt.Fprintf(&b, "Trader's own reflection: %s\n\n", plan.ReflectionNotes)
	b.WriteString("Review the trade along three dimensions: discipline (was the stop/target plan executed), ")
	b.WriteString("mindset, and one concrete improvement. Keep the tone calm and wise, like a zen master.")
	return b.String()
}
