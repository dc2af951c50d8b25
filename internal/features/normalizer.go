package features

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultClipRange bounds normalized values on both normalization paths.
const DefaultClipRange = 10.0

// Normalizer maps raw state vectors to bounded inputs. It supports two
// modes: fixed-range normalization against the schema, and running
// mean/std normalization via Welford's online algorithm. Running
// statistics survive restarts through Save/Load.
type Normalizer struct {
	schema    *Schema
	clipRange float64

	mean  []float64
	vari  []float64 // variance accumulator, seeded at 1 per slot
	count int
}

// NewNormalizer returns a normalizer bound to the schema with fresh
// running statistics. clipRange <= 0 selects DefaultClipRange.
func NewNormalizer(schema *Schema, clipRange float64) (*Normalizer, error) {
	if schema == nil {
		schema = DefaultSchema()
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("new normalizer: %w", err)
	}
	if clipRange <= 0 {
		clipRange = DefaultClipRange
	}

	n := &Normalizer{
		schema:    schema,
		clipRange: clipRange,
		mean:      make([]float64, schema.Dim()),
		vari:      make([]float64, schema.Dim()),
	}
	for i := range n.vari {
		n.vari[i] = 1
	}
	return n, nil
}

// Count returns the number of observations folded into the running stats.
func (n *Normalizer) Count() int {
	return n.count
}

// NormalizeByRange maps each slot into [-1, 1] using the schema's fixed
// ranges: Low maps to -1 and High to +1. Values outside the range scale
// linearly and are clipped at the clip range. A degenerate range
// (Low == High) yields 0 for that slot.
func (n *Normalizer) NormalizeByRange(state []float64) ([]float64, error) {
	if len(state) != n.schema.Dim() {
		return nil, fmt.Errorf("normalize by range: state has %d features, schema wants %d", len(state), n.schema.Dim())
	}

	out := make([]float64, len(state))
	for i, slot := range n.schema.Slots() {
		if slot.High > slot.Low {
			out[i] = 2.0*(state[i]-slot.Low)/(slot.High-slot.Low) - 1.0
		}
		out[i] = clip(out[i], n.clipRange)
	}
	return out, nil
}

// Update folds one observation into the running statistics.
func (n *Normalizer) Update(state []float64) error {
	if len(state) != n.schema.Dim() {
		return fmt.Errorf("normalizer update: state has %d features, schema wants %d", len(state), n.schema.Dim())
	}

	n.count++
	for i, x := range state {
		delta := x - n.mean[i]
		n.mean[i] += delta / float64(n.count)
		delta2 := x - n.mean[i]
		n.vari[i] += delta * delta2
	}
	return nil
}

// NormalizeRunning standardizes the state against the running mean and
// sample standard deviation, clipped at the clip range. With fewer than
// two observations the state is returned unchanged.
func (n *Normalizer) NormalizeRunning(state []float64) ([]float64, error) {
	if len(state) != n.schema.Dim() {
		return nil, fmt.Errorf("normalize running: state has %d features, schema wants %d", len(state), n.schema.Dim())
	}

	if n.count < 2 {
		out := make([]float64, len(state))
		copy(out, state)
		return out, nil
	}

	out := make([]float64, len(state))
	for i, x := range state {
		std := math.Sqrt(n.vari[i]/float64(n.count-1) + 1e-8)
		out[i] = clip((x-n.mean[i])/std, n.clipRange)
	}
	return out, nil
}

// normalizerState is the on-disk representation of the running statistics.
type normalizerState struct {
	StateDim  int       `json:"state_dim"`
	ClipRange float64   `json:"clip_range"`
	Mean      []float64 `json:"mean"`
	Var       []float64 `json:"var"`
	Count     int       `json:"count"`
}

// Save persists the running statistics as JSON, writing through a temp
// file so a crash never leaves a truncated state file.
func (n *Normalizer) Save(path string) error {
	data, err := json.Marshal(normalizerState{
		StateDim:  n.schema.Dim(),
		ClipRange: n.clipRange,
		Mean:      n.mean,
		Var:       n.vari,
		Count:     n.count,
	})
	if err != nil {
		return fmt.Errorf("save normalizer: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save normalizer: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("save normalizer: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("save normalizer: %w", err)
	}
	return nil
}

// Load replaces the running statistics with ones persisted by Save.
// A dimension mismatch against the schema is rejected.
func (n *Normalizer) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load normalizer: %w", err)
	}

	var st normalizerState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("load normalizer: %w", err)
	}
	if st.StateDim != n.schema.Dim() {
		return fmt.Errorf("load normalizer: state dim %d does not match schema dim %d", st.StateDim, n.schema.Dim())
	}
	if len(st.Mean) != st.StateDim || len(st.Var) != st.StateDim {
		return fmt.Errorf("load normalizer: malformed statistics vectors")
	}

	n.clipRange = st.ClipRange
	n.mean = st.Mean
	n.vari = st.Var
	n.count = st.Count
	return nil
}

func clip(v, bound float64) float64 {
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}
