package domain

import "time"

// Opportunity is the result of simulating one path against one snapshot.
// Immutable once created; ProfitPct is net of all three legs' fees.
type Opportunity struct {
	Path            Path
	InputAmount     float64
	ProjectedOutput float64
	ProfitPct       float64 // percent: 0.5 means +0.5%
	Timestamp       time.Time
}

// NewOpportunity derives the profit metrics from an input/output amount pair.
func NewOpportunity(p Path, input, output float64, at time.Time) Opportunity {
	return Opportunity{
		Path:            p,
		InputAmount:     input,
		ProjectedOutput: output,
		ProfitPct:       (output - input) / input * 100,
		Timestamp:       at,
	}
}

// ProfitAmount returns the projected absolute gain in base currency units.
func (o Opportunity) ProfitAmount() float64 {
	return o.ProjectedOutput - o.InputAmount
}
