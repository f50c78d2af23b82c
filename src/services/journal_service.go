package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/zeninvest/backend/src/logger"
	"github.com/username/zeninvest/backend/src/metrics"
	"github.com/username/zeninvest/backend/src/models"
	"github.com/username/zeninvest/backend/src/security/validation"
	"github.com/username/zeninvest/backend/src/storage"
)

const (
	DefaultCacheExpiration = 5 * time.Minute
	CacheCleanupInterval   = 10 * time.Minute
)

var ErrPlanNotFound = errors.New("plan not found")

// CritiqueStatus tells the caller how the best-effort critique attempt
// ended. The plan itself is closed and persisted in every case.
type CritiqueStatus string

const (
	CritiqueAttached      CritiqueStatus = "attached"
	CritiqueNotConfigured CritiqueStatus = "not_configured"
	CritiqueUnauthorized  CritiqueStatus = "unauthorized"
	CritiqueUnavailable   CritiqueStatus = "unavailable"
)

// CreatePlanInput carries the planning attributes collected by the
// creation form.
type CreatePlanInput struct {
	Symbol             string      `json:"symbol"`
	Side               models.Side `json:"side"`
	Strategy           string      `json:"strategy"`
	EntryPrice         float64     `json:"entryPrice"`
	StopLoss           float64     `json:"stopLoss"`
	TargetPrice        float64     `json:"targetPrice"`
	PositionSize       string      `json:"positionSize"`
	PsychologicalState string      `json:"psychologicalState"`
	Rationale          string      `json:"rationale"`
}

// CloseResult is the outcome of a close-out action.
type CloseResult struct {
	Plan           models.Plan    `json:"plan"`
	CritiqueStatus CritiqueStatus `json:"critiqueStatus"`
}

// Dashboard bundles the aggregates the dashboard screen renders.
type Dashboard struct {
	Summary     metrics.Summary       `json:"summary"`
	EquityCurve []metrics.EquityPoint `json:"equityCurve"`
}

// JournalService owns the plan lifecycle: create, close (with the
// best-effort critique enrichment), delete, and the derived dashboard
// aggregates.
type JournalService struct {
	store           *storage.PlanStore
	critique        CritiqueService
	reportCache     *cache.Cache
	critiqueTimeout time.Duration
}

func NewJournalService(store *storage.PlanStore, critique CritiqueService, reportCache *cache.Cache, critiqueTimeout time.Duration) *JournalService {
	return &JournalService{
		store:           store,
		critique:        critique,
		reportCache:     reportCache,
		critiqueTimeout: critiqueTimeout,
	}
}

// CreatePlan validates and sanitizes the planning attributes, assigns a
// fresh id, and persists the plan in PLANNED state.
func (s *JournalService) CreatePlan(userID string, input CreatePlanInput) (models.Plan, error) {
	plan := models.Plan{
		ID:                 uuid.New().String(),
		Symbol:             strings.ToUpper(strings.TrimSpace(validation.SanitizeText(input.Symbol))),
		Side:               input.Side,
		Strategy:           validation.SanitizeText(input.Strategy),
		EntryPrice:         input.EntryPrice,
		StopLoss:           input.StopLoss,
		TargetPrice:        input.TargetPrice,
		PositionSize:       validation.SanitizeText(input.PositionSize),
		PsychologicalState: validation.SanitizeText(input.PsychologicalState),
		Rationale:          validation.SanitizeText(input.Rationale),
		CreatedAt:          time.Now().UnixMilli(),
		Status:             models.StatusPlanned,
	}

	if err := plan.Validate(); err != nil {
		return models.Plan{}, fmt.Errorf("%w: %v", validation.ErrValidationFailed, err)
	}
	if err := validation.ValidateStringMaxLength(plan.Symbol, validation.MaxSymbolLength, "symbol"); err != nil {
		return models.Plan{}, err
	}
	if err := validation.ValidateStringMaxLength(plan.Strategy, validation.MaxLabelLength, "strategy"); err != nil {
		return models.Plan{}, err
	}
	if err := validation.ValidateStringMaxLength(plan.Rationale, validation.MaxFreeTextLength, "rationale"); err != nil {
		return models.Plan{}, err
	}

	if err := s.store.Create(userID, plan); err != nil {
		return models.Plan{}, err
	}
	s.invalidateDashboard(userID)
	return plan, nil
}

// ListPlans returns the user's collection, newest first.
func (s *JournalService) ListPlans(userID string) ([]models.Plan, error) {
	return s.store.Load(userID)
}

// GetPlan returns a single plan for the history detail view.
func (s *JournalService) GetPlan(userID, planID string) (models.Plan, error) {
	plan, ok, err := s.store.Get(userID, planID)
	if err != nil {
		return models.Plan{}, err
	}
	if !ok {
		return models.Plan{}, ErrPlanNotFound
	}
	return plan, nil
}

// ClosePlan commits the PLANNED -> CLOSED transition and then attempts the
// coaching critique as a best-effort follow-up. The closed record is
// persisted before the external call is made, so an unavailable mentor can
// never block or lose a journaling action.
func (s *JournalService) ClosePlan(ctx context.Context, userID, planID string, exitPrice float64, reflectionNotes string) (CloseResult, error) {
	if err := validation.ValidatePositivePrice(exitPrice, "exit price"); err != nil {
		return CloseResult{}, err
	}
	notes := validation.SanitizeText(reflectionNotes)
	if err := validation.ValidateReflectionNotes(notes); err != nil {
		return CloseResult{}, err
	}

	existing, ok, err := s.store.Get(userID, planID)
	if err != nil {
		return CloseResult{}, err
	}
	if !ok {
		return CloseResult{}, ErrPlanNotFound
	}
	if existing.IsClosed() {
		return CloseResult{}, models.ErrPlanAlreadyClosed
	}

	// Commit the core state transition first.
	if err := s.store.Update(userID, planID, func(p *models.Plan) error {
		return p.Close(exitPrice, notes)
	}); err != nil {
		return CloseResult{}, err
	}
	s.invalidateDashboard(userID)

	closed, err := s.GetPlan(userID, planID)
	if err != nil {
		return CloseResult{}, err
	}

	status := s.attachCritique(ctx, userID, &closed)
	return CloseResult{Plan: closed, CritiqueStatus: status}, nil
}

// attachCritique asks the mentor for a review of the already-persisted
// closed plan and merges the outcome back into the record. Configuration
// problems leave the plan without a critique; transient failures persist
// the reassurance placeholder instead.
func (s *JournalService) attachCritique(ctx context.Context, userID string, plan *models.Plan) CritiqueStatus {
	ctx, cancel := context.WithTimeout(ctx, s.critiqueTimeout)
	defer cancel()

	analysisDate := time.Now().Format("January 2, 2006")
	text, err := s.critique.Review(ctx, *plan, analysisDate)

	var status CritiqueStatus
	switch {
	case err == nil:
		status = CritiqueAttached
	case errors.Is(err, ErrCritiqueNotConfigured):
		logger.L.Info("Critique skipped: no credential configured", "userID", userID, "planID", plan.ID)
		return CritiqueNotConfigured
	case errors.Is(err, ErrCritiqueUnauthorized):
		logger.L.Warn("Critique skipped: credential rejected", "userID", userID, "planID", plan.ID, "error", err)
		return CritiqueUnauthorized
	default:
		logger.L.Warn("Critique unavailable, attaching placeholder", "userID", userID, "planID", plan.ID, "error", err)
		text = CritiqueUnavailableText
		status = CritiqueUnavailable
	}

	if updateErr := s.store.Update(userID, plan.ID, func(p *models.Plan) error {
		p.Critique = text
		return nil
	}); updateErr != nil {
		logger.L.Error("Failed to persist critique text", "userID", userID, "planID", plan.ID, "error", updateErr)
		return status
	}
	plan.Critique = text
	return status
}

// DeletePlan removes the plan from the user's collection. The confirmation
// guard lives at the API boundary; by the time this runs the action is
// final (no tombstone, no undo).
func (s *JournalService) DeletePlan(userID, planID string) error {
	_, ok, err := s.store.Get(userID, planID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPlanNotFound
	}
	if err := s.store.Delete(userID, planID); err != nil {
		return err
	}
	s.invalidateDashboard(userID)
	return nil
}

// GetDashboard computes (or serves from cache) the aggregate stats and
// equity curve for the user's journal.
func (s *JournalService) GetDashboard(userID string) (Dashboard, error) {
	cacheKey := "dashboard_" + userID
	if cached, found := s.reportCache.Get(cacheKey); found {
		if d, ok := cached.(Dashboard); ok {
			return d, nil
		}
	}

	plans, err := s.store.Load(userID)
	if err != nil {
		return Dashboard{}, err
	}

	var closed []models.Plan
	for _, p := range plans {
		if p.IsClosed() {
			closed = append(closed, p)
		}
	}

	d := Dashboard{
		Summary:     metrics.Summarize(plans),
		EquityCurve: metrics.EquityCurve(closed),
	}
	s.reportCache.Set(cacheKey, d, cache.DefaultExpiration)
	return d, nil
}

func (s *JournalService) invalidateDashboard(userID string) {
	s.reportCache.Delete("dashboard_" + userID)
}
