package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/zeninvest/backend/src/logger"
	"github.com/username/zeninvest/backend/src/metrics"
	"github.com/username/zeninvest/backend/src/models"
	"github.com/username/zeninvest/backend/src/security/validation"
	"github.com/username/zeninvest/backend/src/services"
)

type PlanHandler struct {
	journal *services.JournalService
}

func NewPlanHandler(journal *services.JournalService) *PlanHandler {
	return &PlanHandler{journal: journal}
}

// riskRewardView is the wire shape of a risk/reward computation. The ratio
// is a formatted string so the undefined case can render as "∞", exactly
// like the creation form shows it.
type riskRewardView struct {
	Ratio     string `json:"ratio"`
	RewardPct string `json:"rewardPct"`
	RiskPct   string `json:"riskPct"`
	Valid     bool   `json:"valid"`
}

func renderRiskReward(rr metrics.RiskReward) riskRewardView {
	ratio := "∞"
	if rr.Defined {
		ratio = strconv.FormatFloat(rr.Ratio, 'f', 2, 64)
	}
	return riskRewardView{
		Ratio:     ratio,
		RewardPct: strconv.FormatFloat(rr.RewardPct, 'f', 2, 64),
		RiskPct:   strconv.FormatFloat(rr.RiskPct, 'f', 2, 64),
		Valid:     rr.Defined && rr.Ratio > 0,
	}
}

type planView struct {
	models.Plan
	RiskReward riskRewardView `json:"riskReward"`
}

func renderPlan(p models.Plan) planView {
	return planView{Plan: p, RiskReward: renderRiskReward(metrics.PlanRiskReward(&p))}
}

// writeServiceError maps service-layer errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, validation.ErrValidationFailed):
		sendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrPlanNotFound):
		sendJSONError(w, "Plan not found", http.StatusNotFound)
	case errors.Is(err, models.ErrPlanAlreadyClosed):
		sendJSONError(w, "Plan is already closed", http.StatusConflict)
	default:
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *PlanHandler) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	plans, err := h.journal.ListPlans(userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list plans", "error", err)
		sendJSONError(w, "Failed to retrieve plans", http.StatusInternalServerError)
		return
	}

	views := make([]planView, 0, len(plans))
	for _, p := range plans {
		views = append(views, renderPlan(p))
	}
	sendJSON(w, views, http.StatusOK)
}

func (h *PlanHandler) HandleCreatePlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var input services.CreatePlanInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	plan, err := h.journal.CreatePlan(userID, input)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to create plan", "symbol", input.Symbol, "error", err)
		writeServiceError(w, err)
		return
	}

	logger.InfoFromContext(r.Context(), "Plan created", "planID", plan.ID, "symbol", plan.Symbol)
	sendJSON(w, renderPlan(plan), http.StatusCreated)
}

func (h *PlanHandler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	plan, err := h.journal.GetPlan(userID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sendJSON(w, renderPlan(plan), http.StatusOK)
}

type closeRequest struct {
	ExitPrice       float64 `json:"exitPrice"`
	ReflectionNotes string  `json:"reflectionNotes"`
}

func (h *PlanHandler) HandleClosePlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	planID := chi.URLParam(r, "id")

	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.journal.ClosePlan(r.Context(), userID, planID, req.ExitPrice, req.ReflectionNotes)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to close plan", "planID", planID, "error", err)
		writeServiceError(w, err)
		return
	}

	logger.InfoFromContext(r.Context(), "Plan closed",
		"planID", planID, "profitAndLoss", result.Plan.RealizedPL(), "critiqueStatus", result.CritiqueStatus)

	resp := struct {
		Plan           planView                `json:"plan"`
		CritiqueStatus services.CritiqueStatus `json:"critiqueStatus"`
		Hint           string                  `json:"hint,omitempty"`
	}{
		Plan:           renderPlan(result.Plan),
		CritiqueStatus: result.CritiqueStatus,
	}
	switch result.CritiqueStatus {
	case services.CritiqueNotConfigured:
		resp.Hint = "Set OPENAI_API_KEY to receive a mentor critique on closed trades."
	case services.CritiqueUnauthorized:
		resp.Hint = "The configured API credential was rejected. Check OPENAI_API_KEY."
	}
	sendJSON(w, resp, http.StatusOK)
}

// HandleDeletePlan removes a plan permanently. Deletion is destructive and
// irreversible, so the client must pass confirm=true explicitly.
func (h *PlanHandler) HandleDeletePlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	if r.URL.Query().Get("confirm") != "true" {
		sendJSONError(w, "Deletion requires explicit confirmation (confirm=true)", http.StatusBadRequest)
		return
	}

	planID := chi.URLParam(r, "id")
	if err := h.journal.DeletePlan(userID, planID); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to delete plan", "planID", planID, "error", err)
		writeServiceError(w, err)
		return
	}

	logger.InfoFromContext(r.Context(), "Plan deleted", "planID", planID)
	sendJSON(w, map[string]string{"message": "Plan deleted"}, http.StatusOK)
}

// HandlePreviewRiskReward serves the live risk/reward figures the creation
// form shows while the user is still typing prices.
func (h *PlanHandler) HandlePreviewRiskReward(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	side := models.Side(q.Get("side"))
	if side != models.SideLong && side != models.SideShort {
		sendJSONError(w, "side must be LONG or SHORT", http.StatusBadRequest)
		return
	}

	entry, errEntry := strconv.ParseFloat(q.Get("entry"), 64)
	stop, errStop := strconv.ParseFloat(q.Get("stop"), 64)
	target, errTarget := strconv.ParseFloat(q.Get("target"), 64)
	if errEntry != nil || errStop != nil || errTarget != nil {
		sendJSONError(w, "entry, stop and target must be numbers", http.StatusBadRequest)
		return
	}

	sendJSON(w, renderRiskReward(metrics.ComputeRiskReward(side, entry, stop, target)), http.StatusOK)
}

func (h *PlanHandler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	dashboard, err := h.journal.GetDashboard(userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to compute dashboard", "error", err)
		sendJSONError(w, "Failed to compute dashboard", http.StatusInternalServerError)
		return
	}
	sendJSON(w, dashboard, http.StatusOK)
}
