// Package metrics computes the derived, view-only aggregates of the journal:
// risk/reward ratios, win rate, and the cumulative equity curve. Everything
// here is a pure function over plan records; nothing is persisted.
package metrics

import (
	"math"
	"sort"

	"github.com/username/zeninvest/backend/src/models"
)

// RiskReward describes the planned risk profile of a trade. When the
// computed risk is not strictly positive the ratio is undefined (the UI
// renders it as "∞"); callers must check Defined before using Ratio.
type RiskReward struct {
	Ratio     float64
	Defined   bool
	RewardPct float64 // reward as a percentage of the entry price
	RiskPct   float64 // risk as a percentage of the entry price
}

// EquityPoint is one step of the cumulative equity curve.
type EquityPoint struct {
	PlanID    string  `json:"planId,omitempty"`
	Symbol    string  `json:"symbol,omitempty"`
	CreatedAt int64   `json:"createdAt"`
	Equity    float64 `json:"equity"`
}

// Summary aggregates the closed-plan outcomes for the dashboard.
type Summary struct {
	TotalClosed   int     `json:"totalClosed"`
	Wins          int     `json:"wins"`
	WinRate       float64 `json:"winRate"`
	TotalRealized float64 `json:"totalRealized"`
}

// ComputeRiskReward derives reward and risk from the entry, stop and target
// prices. For a LONG plan reward = target - entry and risk = entry - stop;
// for SHORT the signs flip. It never divides by zero: a non-positive risk
// yields the undefined sentinel instead.
func ComputeRiskReward(side models.Side, entry, stop, target float64) RiskReward {
	var reward, risk float64
	if side == models.SideShort {
		reward = entry - target
		risk = stop - entry
	} else {
		reward = target - entry
		risk = entry - stop
	}

	rr := RiskReward{}
	if entry != 0 {
		rr.RewardPct = reward / entry * 100
		rr.RiskPct = risk / entry * 100
	}
	if risk > 0 {
		rr.Ratio = reward / risk
		rr.Defined = true
	}
	return rr
}

// PlanRiskReward is ComputeRiskReward applied to a plan's own prices.
func PlanRiskReward(p *models.Plan) RiskReward {
	return ComputeRiskReward(p.Side, p.EntryPrice, p.StopLoss, p.TargetPrice)
}

// EquityCurve builds the cumulative realized P&L series from an unordered
// set of closed plans. Plans are sorted by creation time ascending (stable
// for equal timestamps), a synthetic zero starting point is prepended, and
// each point carries the running total rounded to 2 decimal places. The
// result has N+1 points for N closed plans and is deterministic for a given
// input multiset.
func EquityCurve(closed []models.Plan) []EquityPoint {
	ordered := make([]models.Plan, len(closed))
	copy(ordered, closed)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt < ordered[j].CreatedAt
	})

	curve := make([]EquityPoint, 0, len(ordered)+1)
	curve = append(curve, EquityPoint{Equity: 0})

	running := 0.0
	for _, p := range ordered {
		running += p.RealizedPL()
		curve = append(curve, EquityPoint{
			PlanID:    p.ID,
			Symbol:    p.Symbol,
			CreatedAt: p.CreatedAt,
			Equity:    round2(running),
		})
	}
	return curve
}

// WinRate is wins / closed, where a win is a strictly positive P&L. A plan
// that broke exactly even counts in the denominator but not as a win. An
// empty input yields 0, not NaN.
func WinRate(closed []models.Plan) float64 {
	if len(closed) == 0 {
		return 0
	}
	wins := 0
	for _, p := range closed {
		if p.RealizedPL() > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(closed))
}

// Summarize computes the dashboard aggregates over the full collection.
// Open plans contribute zero to the realized total.
func Summarize(plans []models.Plan) Summary {
	var closed []models.Plan
	total := 0.0
	for _, p := range plans {
		total += p.RealizedPL()
		if p.IsClosed() {
			closed = append(closed, p)
		}
	}

	s := Summary{
		TotalClosed:   len(closed),
		WinRate:       WinRate(closed),
		TotalRealized: round2(total),
	}
	for _, p := range closed {
		if p.RealizedPL() > 0 {
			s.Wins++
		}
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
