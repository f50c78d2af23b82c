package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/zeninvest/backend/src/logger"
	"github.com/username/zeninvest/backend/src/models"
	"github.com/username/zeninvest/backend/src/security/validation"
	"github.com/username/zeninvest/backend/src/storage"
)

func init() {
	logger.InitLogger("error")
}

// memKV is an in-memory KVStore for tests.
type memKV struct {
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Get(key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

func (m *memKV) Delete(key string) error {
	delete(m.data, key)
	return nil
}

// stubCritique returns a canned critique or error.
type stubCritique struct {
	text  string
	err   error
	calls int
	block bool // wait for ctx cancellation instead of answering
}

func (s *stubCritique) Review(ctx context.Context, plan models.Plan, analysisDate string) (string, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, s.err
}

func newTestJournal(critique CritiqueService) (*JournalService, *storage.PlanStore) {
	store := storage.NewPlanStore(newMemKV())
	reportCache := cache.New(time.Minute, time.Minute)
	return NewJournalService(store, critique, reportCache, 50*time.Millisecond), store
}

func validInput() CreatePlanInput {
	return CreatePlanInput{
		Symbol:             "nvda",
		Side:               models.SideLong,
		Strategy:           "Trend following",
		EntryPrice:         100,
		StopLoss:           90,
		TargetPrice:        130,
		PositionSize:       "10 shares",
		PsychologicalState: "Calm",
		Rationale:          "breakout above resistance",
	}
}

func TestCreatePlan(t *testing.T) {
	svc, store := newTestJournal(&stubCritique{text: "well done"})

	plan, err := svc.CreatePlan("u1", validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, "NVDA", plan.Symbol, "symbol is upper-cased")
	assert.Equal(t, models.StatusPlanned, plan.Status)
	assert.NotZero(t, plan.CreatedAt)

	stored, err := store.Load("u1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, plan.ID, stored[0].ID)
}

func TestCreatePlanSanitizesFreeText(t *testing.T) {
	svc, _ := newTestJournal(&stubCritique{})

	input := validInput()
	input.Rationale = `<script>alert("x")</script>looks oversold`
	plan, err := svc.CreatePlan("u1", input)
	require.NoError(t, err)
	assert.Equal(t, "looks oversold", plan.Rationale)
}

func TestCreatePlanValidation(t *testing.T) {
	svc, _ := newTestJournal(&stubCritique{})

	tests := []struct {
		name   string
		mutate func(*CreatePlanInput)
	}{
		{"missing symbol", func(in *CreatePlanInput) { in.Symbol = "" }},
		{"bad side", func(in *CreatePlanInput) { in.Side = "BUY" }},
		{"zero entry", func(in *CreatePlanInput) { in.EntryPrice = 0 }},
		{"missing rationale", func(in *CreatePlanInput) { in.Rationale = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)
			_, err := svc.CreatePlan("u1", input)
			require.ErrorIs(t, err, validation.ErrValidationFailed)
		})
	}
}

func TestClosePlanAttachesCritique(t *testing.T) {
	critique := &stubCritique{text: "A disciplined exit. Keep honoring your stops."}
	svc, store := newTestJournal(critique)

	plan, err := svc.CreatePlan("u1", validInput())
	require.NoError(t, err)

	result, err := svc.ClosePlan(context.Background(), "u1", plan.ID, 130, "executed exactly as planned")
	require.NoError(t, err)

	assert.Equal(t, CritiqueAttached, result.CritiqueStatus)
	assert.Equal(t, critique.text, result.Plan.Critique)
	assert.Equal(t, 30.0, result.Plan.RealizedPL())
	assert.True(t, result.Plan.IsClosed())
	assert.Equal(t, 1, critique.calls)

	stored, _, err := store.Get("u1", plan.ID)
	require.NoError(t, err)
	assert.Equal(t, critique.text, stored.Critique)
}

func TestClosePlanSurvivesCritiqueFailure(t *testing.T) {
	svc, store := newTestJournal(&stubCritique{err: errors.New("network down")})

	plan, err := svc.CreatePlan("u1", validInput())
	require.NoError(t, err)

	result, err := svc.ClosePlan(context.Background(), "u1", plan.ID, 85, "stopped out, lesson learned")
	require.NoError(t, err, "an unavailable mentor must never block the close")

	assert.Equal(t, CritiqueUnavailable, result.CritiqueStatus)
	assert.Equal(t, CritiqueUnavailableText, result.Plan.Critique)
	assert.True(t, result.Plan.IsClosed())
	assert.Equal(t, -15.0, result.Plan.RealizedPL())

	stored, _, err := store.Get("u1", plan.ID)
	require.NoError(t, err)
	assert.Equal(t, CritiqueUnavailableText, stored.Critique, "placeholder is persisted")
}

func TestClosePlanCritiqueNotConfigured(t *testing.T) {
	svc, store := newTestJournal(&stubCritique{err: ErrCritiqueNotConfigured})

	plan, err := svc.CreatePlan("u1", validInput())
	require.NoError(t, err)

	result, err := svc.ClosePlan(context.Background(), "u1", plan.ID, 130, "good trade overall")
	require.NoError(t, err)

	assert.Equal(t, CritiqueNotConfigured, result.CritiqueStatus)
	assert.Empty(t, result.Plan.Critique, "no placeholder for a configuration problem")
	assert.True(t, result.Plan.IsClosed())

	stored, _, err := store.Get("u1", plan.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsClosed())
	assert.Empty(t, stored.Critique)
}

func TestClosePlanCritiqueTimeout(t *testing.T) {
	svc, store := newTestJournal(&stubCritique{block: true})

	plan, err := svc.CreatePlan("u1", validInput())
	require.NoError(t, err)

	start := time.Now()
	result, err := svc.ClosePlan(context.Background(), "u1", plan.ID, 130, "mentor was slow today")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second, "the close must not hang on the mentor")

	assert.Equal(t, CritiqueUnavailable, result.CritiqueStatus)
	stored, _, err := store.Get("u1", plan.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsClosed())
	assert.Equal(t, CritiqueUnavailableText, stored.Critique)
}

func TestClosePlanTwiceRejected(t *testing.T) {
	svc, _ := newTestJournal(&stubCritique{text: "fine"})

	plan, err := svc.CreatePlan("u1", validInput())
	require.NoError(t, err)

	_, err = svc.ClosePlan(context.Background(), "u1", plan.ID, 130, "first close attempt")
	require.NoError(t, err)

	_, err = svc.ClosePlan(context.Background(), "u1", plan.ID, 140, "second close attempt")
	require.ErrorIs(t, err, models.ErrPlanAlreadyClosed)
}

func TestClosePlanValidation(t *testing.T) {
	critique := &stubCritique{text: "fine"}
	svc, store := newTestJournal(critique)

	plan, err := svc.CreatePlan("u1", validInput())
	require.NoError(t, err)

	_, err = svc.ClosePlan(context.Background(), "u1", plan.ID, 0, "valid notes here")
	require.ErrorIs(t, err, validation.ErrValidationFailed, "exit price is required")

	_, err = svc.ClosePlan(context.Background(), "u1", plan.ID, 130, "shrt")
	require.ErrorIs(t, err, validation.ErrValidationFailed, "reflection must be at least 5 characters")

	// Nothing was attempted: the plan is still open and the mentor was
	// never called.
	stored, _, err := store.Get("u1", plan.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsClosed())
	assert.Zero(t, critique.calls)
}

func TestClosePlanNotFound(t *testing.T) {
	svc, _ := newTestJournal(&stubCritique{})
	_, err := svc.ClosePlan(context.Background(), "u1", "missing", 130, "valid notes here")
	require.ErrorIs(t, err, ErrPlanNotFound)
}

func TestDeletePlan(t *testing.T) {
	svc, store := newTestJournal(&stubCritique{})

	p1, err := svc.CreatePlan("u1", validInput())
	require.NoError(t, err)
	p2, err := svc.CreatePlan("u1", validInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeletePlan("u1", p1.ID))

	plans, err := store.Load("u1")
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, p2.ID, plans[0].ID)

	require.ErrorIs(t, svc.DeletePlan("u1", p1.ID), ErrPlanNotFound)
}

func TestDashboardReflectsMutations(t *testing.T) {
	svc, _ := newTestJournal(&stubCritique{text: "ok"})

	d, err := svc.GetDashboard("u1")
	require.NoError(t, err)
	assert.Equal(t, 0, d.Summary.TotalClosed)
	require.Len(t, d.EquityCurve, 1, "empty journal still has the zero point")

	plan, err := svc.CreatePlan("u1", validInput())
	require.NoError(t, err)
	_, err = svc.ClosePlan(context.Background(), "u1", plan.ID, 130, "took profit at target")
	require.NoError(t, err)

	// The cached dashboard must have been invalidated by the mutations.
	d, err = svc.GetDashboard("u1")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Summary.TotalClosed)
	assert.Equal(t, 1, d.Summary.Wins)
	assert.InDelta(t, 1.0, d.Summary.WinRate, 1e-9)
	assert.InDelta(t, 30.0, d.Summary.TotalRealized, 1e-9)
	require.Len(t, d.EquityCurve, 2)
	assert.InDelta(t, 30.0, d.EquityCurve[1].Equity, 1e-9)
}
