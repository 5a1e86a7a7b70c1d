package binomial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-lattice/internal/pricing"
)

func TestBuildFactorsAndShape(t *testing.T) {
	params := Params{Spot: 50, Strike: 50, Rate: 0.10, Volatility: 0.40, Maturity: 0.4167}
	tree, err := Build(params, 4)
	require.NoError(t, err)

	require.Len(t, tree.Layers, 5)
	require.InDelta(t, 0.4167/4, tree.DeltaT, 1e-15)
	require.InDelta(t, math.Exp(0.40*math.Sqrt(tree.DeltaT)), tree.Up, 1e-15)
	require.InDelta(t, 1.0, tree.Up*tree.Down, 1e-15)
	require.InDelta(t, 1.0, tree.P+tree.Q, 1e-15)
	require.InDelta(t, (tree.Growth-tree.Down)/(tree.Up-tree.Down), tree.P, 1e-15)

	for i, layer := range tree.Layers {
		require.Len(t, layer, i+1)
		for j, n := range layer {
			want := params.Spot * math.Pow(tree.Up, float64(j)) * math.Pow(tree.Down, float64(i-j))
			require.InEpsilon(t, want, n.Stock, 1e-12, "node [%d][%d]", i, j)
			require.Zero(t, n.Value)
		}
	}

	// recombination puts the central node of even layers back on S0
	require.Equal(t, params.Spot, tree.Layers[2][1].Stock)
	require.Equal(t, params.Spot, tree.Layers[4][2].Stock)
}

func TestBuildLayersShareBackingArray(t *testing.T) {
	tree, err := Build(Params{Spot: 1, Strike: 1, Rate: 0, Volatility: 0.2, Maturity: 1}, 3)
	require.NoError(t, err)

	for i := range tree.Layers {
		require.Equal(t, i+1, cap(tree.Layers[i]), "layer %d must not grow into its neighbour", i)
	}
}

func TestBuildRejectsInvalidParameters(t *testing.T) {
	base := Params{Spot: 50, Strike: 50, Rate: 0.10, Volatility: 0.40, Maturity: 0.4167}

	tests := []struct {
		name   string
		mutate func(p *Params)
		steps  int
	}{
		{name: "zero volatility", mutate: func(p *Params) { p.Volatility = 0 }, steps: 10},
		{name: "negative volatility", mutate: func(p *Params) { p.Volatility = -0.2 }, steps: 10},
		{name: "zero maturity", mutate: func(p *Params) { p.Maturity = 0 }, steps: 10},
		{name: "zero spot", mutate: func(p *Params) { p.Spot = 0 }, steps: 10},
		{name: "zero steps", mutate: func(p *Params) {}, steps: 0},
		{name: "probability above one", mutate: func(p *Params) { p.Rate, p.Volatility = 5, 0.01 }, steps: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := base
			tc.mutate(&params)

			tree, err := Build(params, tc.steps)
			require.ErrorIs(t, err, pricing.ErrInvalidParameter)
			require.Nil(t, tree)
		})
	}
}
