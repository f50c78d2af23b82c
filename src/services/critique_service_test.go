package services

import (
	"context"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/zeninvest/backend/src/models"
)

type fakeCompleter struct {
	resp    openai.ChatCompletionResponse
	err     error
	gotReq  openai.ChatCompletionRequest
	invoked bool
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.invoked = true
	f.gotReq = req
	return f.resp, f.err
}

func closedTestPlan() models.Plan {
	exit := 130.0
	pl := 30.0
	return models.Plan{
		ID:                 "p1",
		Symbol:             "NVDA",
		Side:               models.SideLong,
		EntryPrice:         100,
		StopLoss:           90,
		TargetPrice:        130,
		PsychologicalState: "Calm",
		Rationale:          "breakout above resistance",
		Status:             models.StatusClosed,
		ExitPrice:          &exit,
		ProfitAndLoss:      &pl,
		ReflectionNotes:    "executed exactly as planned",
	}
}

func completionWith(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: text}},
		},
	}
}

func TestReviewNotConfigured(t *testing.T) {
	svc := NewCritiqueService("", "gpt-4o-mini")

	_, err := svc.Review(context.Background(), closedTestPlan(), "January 2, 2026")
	require.ErrorIs(t, err, ErrCritiqueNotConfigured)
}

func TestReviewSuccess(t *testing.T) {
	fake := &fakeCompleter{resp: completionWith("  A calm and disciplined trade.  ")}
	svc := &critiqueServiceImpl{client: fake, model: "gpt-4o-mini"}

	text, err := svc.Review(context.Background(), closedTestPlan(), "January 2, 2026")
	require.NoError(t, err)
	assert.Equal(t, "A calm and disciplined trade.", text)
	assert.Equal(t, "gpt-4o-mini", fake.gotReq.Model)
	require.Len(t, fake.gotReq.Messages, 1)
}

func TestReviewPromptCarriesPlanFields(t *testing.T) {
	fake := &fakeCompleter{resp: completionWith("ok")}
	svc := &critiqueServiceImpl{client: fake, model: "gpt-4o-mini"}

	_, err := svc.Review(context.Background(), closedTestPlan(), "January 2, 2026")
	require.NoError(t, err)

	prompt := fake.gotReq.Messages[0].Content
	assert.Contains(t, prompt, "NVDA")
	assert.Contains(t, prompt, "buy (long)")
	assert.Contains(t, prompt, "Entry price: 100")
	assert.Contains(t, prompt, "Exit price: 130")
	assert.Contains(t, prompt, "Realized P&L: 30")
	assert.Contains(t, prompt, "executed exactly as planned")
	assert.Contains(t, prompt, "January 2, 2026")
}

func TestReviewEmptyCompletion(t *testing.T) {
	fake := &fakeCompleter{resp: openai.ChatCompletionResponse{}}
	svc := &critiqueServiceImpl{client: fake, model: "gpt-4o-mini"}

	text, err := svc.Review(context.Background(), closedTestPlan(), "January 2, 2026")
	require.NoError(t, err)
	assert.Equal(t, critiqueSilenceText, text)
}

func TestReviewErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantAuth bool
	}{
		{"credential rejected", &openai.APIError{HTTPStatusCode: 401}, true},
		{"credential forbidden", &openai.APIError{HTTPStatusCode: 403}, true},
		{"rate limited", &openai.APIError{HTTPStatusCode: 429}, false},
		{"server error", &openai.APIError{HTTPStatusCode: 500}, false},
		{"plain network error", assert.AnError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCompleter{err: tt.err}
			svc := &critiqueServiceImpl{client: fake, model: "gpt-4o-mini"}

			_, err := svc.Review(context.Background(), closedTestPlan(), "January 2, 2026")
			require.Error(t, err)
			if tt.wantAuth {
				assert.ErrorIs(t, err, ErrCritiqueUnauthorized)
			} else {
				assert.NotErrorIs(t, err, ErrCritiqueUnauthorized)
				assert.NotErrorIs(t, err, ErrCritiqueNotConfigured)
			}
		})
	}
}
