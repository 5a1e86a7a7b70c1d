package smile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-lattice/internal/cme"
	"github.com/contactkeval/option-lattice/internal/data"
	"github.com/contactkeval/option-lattice/internal/pricing"
)

var (
	valuation = time.Date(2016, 9, 1, 0, 0, 0, 0, time.UTC)
	expiry    = time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC)
	month     = cme.Month{Year: 2017, Month: time.April}
)

func syntheticConfig() data.SyntheticConfig {
	return data.SyntheticConfig{
		Forward:   50,
		Rate:      0.02,
		ATMVol:    0.35,
		Skew:      -0.2,
		Curvature: 0.5,
		Strikes:   []float64{60, 40, 42.5, 45, 47.5, 50, 52.5, 55, 57.5},
		Valuation: valuation,
		Expiry:    expiry,
	}
}

func syntheticChain(t *testing.T) *data.Chain {
	t.Helper()
	c, err := data.NewSyntheticProvider(syntheticConfig()).GetChain("CL", month)
	require.NoError(t, err)
	return c
}

func TestBuildRecoversSmile(t *testing.T) {
	cfg := syntheticConfig()
	curve, err := Build(context.Background(), syntheticChain(t), Options{
		Valuation: valuation,
		Rate:      cfg.Rate,
		Workers:   3,
	})
	require.NoError(t, err)

	require.Equal(t, "CL", curve.Code)
	require.InDelta(t, data.YearFraction(valuation, expiry), curve.Maturity, 1e-15)
	require.Len(t, curve.Points, len(cfg.Strikes))
	require.Len(t, curve.Valid(), len(cfg.Strikes))

	for i, p := range curve.Points {
		if i > 0 {
			require.Less(t, curve.Points[i-1].Strike, p.Strike)
		}
		require.NoError(t, p.Err)
		require.InDelta(t, cfg.Vol(p.Strike), p.Vol, 1e-3, "strike %g", p.Strike)
		require.Greater(t, p.Vega, 0.0)
		require.InDelta(t, pricing.Black76Vega(cfg.Forward, p.Strike, cfg.Rate, curve.Maturity, p.Vol), p.Vega, 1e-12)
	}
}

func TestBuildRecordsNonConvergentStrikes(t *testing.T) {
	chain := &data.Chain{
		Code:    "CL",
		Month:   month,
		Forward: 50,
		Expiry:  expiry,
		Calls: []data.Quote{
			{Strike: 55, Price: 60}, // above the discounted forward
			{Strike: 50, Price: 4},
		},
	}
	curve, err := Build(context.Background(), chain, Options{Valuation: valuation, Rate: 0.1})
	require.NoError(t, err)

	require.Len(t, curve.Points, 2)
	require.NoError(t, curve.Points[0].Err)
	require.ErrorIs(t, curve.Points[1].Err, pricing.ErrNonConvergent)
	require.Zero(t, curve.Points[1].Vol)
	require.Zero(t, curve.Points[1].Vega)
	require.Greater(t, curve.Points[0].Vega, 0.0)

	valid := curve.Valid()
	require.Len(t, valid, 1)
	require.Equal(t, 50.0, valid[0].Strike)
}

func TestBuildOverrides(t *testing.T) {
	chain := syntheticChain(t)
	chain.Expiry = time.Time{}

	_, err := Build(context.Background(), chain, Options{Valuation: valuation})
	require.ErrorIs(t, err, pricing.ErrInvalidParameter)

	curve, err := Build(context.Background(), chain, Options{Maturity: 0.25, Forward: 51})
	require.NoError(t, err)
	require.Equal(t, 0.25, curve.Maturity)
	require.Equal(t, 51.0, curve.Forward)

	_, err = Build(context.Background(), &data.Chain{Expiry: expiry}, Options{Valuation: valuation})
	require.ErrorIs(t, err, pricing.ErrInvalidParameter)
}

func TestBuildCustomSolver(t *testing.T) {
	solver := pricing.DefaultBisection
	solver.Hi = 0.1
	curve, err := Build(context.Background(), syntheticChain(t), Options{Valuation: valuation, Rate: 0.02, Solver: &solver})
	require.NoError(t, err)
	require.Empty(t, curve.Valid())
}

func TestBuildProgress(t *testing.T) {
	var calls []int
	total := 0
	_, err := Build(context.Background(), syntheticChain(t), Options{
		Valuation: valuation,
		Workers:   4,
		Progress: func(done, n int) {
			calls = append(calls, done)
			total = n
		},
	})
	require.NoError(t, err)

	require.Equal(t, 9, total)
	require.Len(t, calls, 9)
	for i, done := range calls {
		require.Equal(t, i+1, done)
	}
}

func TestBuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, syntheticChain(t), Options{Valuation: valuation})
	require.ErrorIs(t, err, context.Canceled)
}
