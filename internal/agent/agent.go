// Package agent defines the narrow boundary to the external decision engine.
// The pipeline produces normalized state vectors; anything that turns them
// into position actions implements Agent and is injected at construction.
package agent

import "fmt"

// Action is a position directive produced from one state vector.
// Values are in the agent's own scale; the caller interprets them.
type Action struct {
	RangeWidth        float64 `json:"range_width"`
	CenterOffset      float64 `json:"center_offset"`
	LiquidityFraction float64 `json:"liquidity_fraction"`
}

// Agent maps a state vector to an action.
type Agent interface {
	Predict(state []float64) (Action, error)
}

// Static always returns the same action regardless of input. Useful as a
// placeholder when no learned policy is wired in, and in tests.
type Static struct {
	Action Action
	Dim    int // expected state dimension; 0 disables the check
}

func (s *Static) Predict(state []float64) (Action, error) {
	if s.Dim > 0 && len(state) != s.Dim {
		return Action{}, fmt.Errorf("static agent: state has %d features, want %d", len(state), s.Dim)
	}
	return s.Action, nil
}
