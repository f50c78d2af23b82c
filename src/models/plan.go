package models

import (
	"errors"
	"fmt"
)

// Side is the direction of a trade: LONG benefits from the price rising,
// SHORT from the price falling.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Status is the lifecycle state of a plan. An earlier revision of the data
// model declared an EXECUTED state that nothing ever assigned; it is not
// represented here.
type Status string

const (
	StatusPlanned Status = "PLANNED"
	StatusClosed  Status = "CLOSED"
)

var (
	ErrPlanAlreadyClosed = errors.New("plan is already closed")
	ErrInvalidSide       = errors.New("side must be LONG or SHORT")
)

// PresetStrategies are the strategy labels offered by the creation form.
// A free-text label is equally valid.
var PresetStrategies = []string{
	"Trend following",
	"Value investing",
	"Oversold rebound",
	"Swing trading",
	"Arbitrage",
}

// PresetPsychologicalStates are the entry-mood labels offered by the
// creation form. A free-text label is equally valid.
var PresetPsychologicalStates = []string{
	"Calm",
	"Excited",
	"Anxious",
	"Fearful",
}

// Plan is a single journaled trade idea, from creation through optional
// close-out. Planning attributes are immutable after creation; the close-out
// fields are set exactly once, when the plan transitions to CLOSED.
type Plan struct {
	ID                 string  `json:"id"`
	Symbol             string  `json:"symbol"`
	Side               Side    `json:"side"`
	Strategy           string  `json:"strategy"`
	EntryPrice         float64 `json:"entryPrice"`
	StopLoss           float64 `json:"stopLoss"`
	TargetPrice        float64 `json:"targetPrice"`
	PositionSize       string  `json:"positionSize"`
	PsychologicalState string  `json:"psychologicalState"`
	Rationale          string  `json:"rationale"`
	CreatedAt          int64   `json:"createdAt"` // unix milliseconds
	Status             Status  `json:"status"`

	// Close-out fields, absent until the plan is CLOSED. Pointers so that a
	// realized P&L of exactly zero still serializes on a closed plan.
	// Critique stays empty when the coaching collaborator was never reached.
	ExitPrice       *float64 `json:"exitPrice,omitempty"`
	ProfitAndLoss   *float64 `json:"profitAndLoss,omitempty"`
	ReflectionNotes string   `json:"reflectionNotes,omitempty"`
	Critique        string   `json:"critique,omitempty"`
}

// IsClosed reports whether the plan has completed its lifecycle.
func (p *Plan) IsClosed() bool {
	return p.Status == StatusClosed
}

// RealizedPL is the plan's contribution to total realized profit and loss.
// Plans that are not yet closed contribute zero.
func (p *Plan) RealizedPL() float64 {
	if p.ProfitAndLoss == nil {
		return 0
	}
	return *p.ProfitAndLoss
}

// Close transitions the plan PLANNED -> CLOSED, computing the realized
// profit and loss from the exit price. A second close attempt is rejected:
// once CLOSED, planning attributes and close-out fields never change.
func (p *Plan) Close(exitPrice float64, reflectionNotes string) error {
	if p.IsClosed() {
		return ErrPlanAlreadyClosed
	}
	direction := 1.0
	if p.Side == SideShort {
		direction = -1.0
	}
	pl := (exitPrice - p.EntryPrice) * direction
	p.ExitPrice = &exitPrice
	p.ProfitAndLoss = &pl
	p.ReflectionNotes = reflectionNotes
	p.Status = StatusClosed
	return nil
}

// Validate checks the planning attributes of a freshly created plan.
func (p *Plan) Validate() error {
	if p.Symbol == "" {
		return errors.New("symbol is required")
	}
	if p.Side != SideLong && p.Side != SideShort {
		return fmt.Errorf("%w: got %q", ErrInvalidSide, p.Side)
	}
	if p.EntryPrice <= 0 {
		return errors.New("entry price must be positive")
	}
	if p.StopLoss <= 0 {
		return errors.New("stop-loss price must be positive")
	}
	if p.TargetPrice <= 0 {
		return errors.New("target price must be positive")
	}
	if p.Rationale == "" {
		return errors.New("rationale is required")
	}
	return nil
}
