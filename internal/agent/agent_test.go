package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticPredict(t *testing.T) {
	policy := &Static{
		Action: Action{RangeWidth: 0.1, CenterOffset: -0.05, LiquidityFraction: 0.5},
		Dim:    3,
	}

	action, err := policy.Predict([]float64{0.1, 0.2, 0.3})
	require.NoError(t, err)
	assert.Equal(t, policy.Action, action)

	_, err = policy.Predict([]float64{0.1})
	require.Error(t, err)

	// Without a declared dimension any length is accepted.
	unchecked := &Static{}
	_, err = unchecked.Predict([]float64{1})
	require.NoError(t, err)
}
