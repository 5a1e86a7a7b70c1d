// Package smile builds implied volatility curves from option chains.
package smile

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/contactkeval/option-lattice/internal/cme"
	"github.com/contactkeval/option-lattice/internal/data"
	"github.com/contactkeval/option-lattice/internal/logger"
	"github.com/contactkeval/option-lattice/internal/pricing"
)

// Options controls Build. Zero fields take the chain's values or defaults.
type Options struct {
	Valuation time.Time
	Maturity  float64 // years; overrides Expiry - Valuation when > 0
	Forward   float64 // overrides the chain forward when > 0
	Rate      float64
	Workers   int                // defaults to GOMAXPROCS
	Solver    *pricing.Bisection // defaults to pricing.DefaultBisection

	// Progress is called after each strike with the number solved so far.
	// Calls are serialized.
	Progress func(done, total int)
}

// Point is the implied volatility of one call quote and the Black-76 vega
// at that volatility. Err is set, and Vol and Vega are zero, when the
// solver failed for this strike.
type Point struct {
	Strike float64 `json:"strike"`
	Price  float64 `json:"price"`
	Vol    float64 `json:"vol"`
	Vega   float64 `json:"vega"`
	Err    error   `json:"-"`
}

// Curve is a strike-ordered implied volatility curve.
type Curve struct {
	Code     string    `json:"code"`
	Month    cme.Month `json:"month"`
	Forward  float64   `json:"forward"`
	Maturity float64   `json:"maturity"`
	Rate     float64   `json:"rate"`
	Points   []Point   `json:"points"`
}

// Valid returns the points the solver converged on.
func (c *Curve) Valid() []Point {
	out := make([]Point, 0, len(c.Points))
	for _, p := range c.Points {
		if p.Err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Build solves the implied volatility of every call in chain. Per-strike
// solver failures are recorded on the point; Build itself fails only on
// unusable inputs or when ctx is done.
func Build(ctx context.Context, chain *data.Chain, opts Options) (*Curve, error) {
	forward := chain.Forward
	if opts.Forward > 0 {
		forward = opts.Forward
	}
	maturity := opts.Maturity
	if maturity <= 0 {
		if chain.Expiry.IsZero() || opts.Valuation.IsZero() {
			return nil, fmt.Errorf("%w: %s %s: maturity needs an expiry and a valuation date",
				pricing.ErrInvalidParameter, chain.Code, chain.Month)
		}
		maturity = data.YearFraction(opts.Valuation, chain.Expiry)
	}
	if forward <= 0 || maturity <= 0 {
		return nil, fmt.Errorf("%w: forward %g, maturity %g", pricing.ErrInvalidParameter, forward, maturity)
	}

	solver := pricing.DefaultBisection
	if opts.Solver != nil {
		solver = *opts.Solver
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	curve := &Curve{
		Code:     chain.Code,
		Month:    chain.Month,
		Forward:  forward,
		Maturity: maturity,
		Rate:     opts.Rate,
		Points:   make([]Point, len(chain.Calls)),
	}
	for i, q := range chain.Calls {
		curve.Points[i] = Point{Strike: q.Strike, Price: q.Price}
	}
	sort.SliceStable(curve.Points, func(i, j int) bool { return curve.Points[i].Strike < curve.Points[j].Strike })

	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range curve.Points {
		pt := &curve.Points[i]
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pt.Vol, pt.Err = solver.ImpliedVol(pt.Price, forward, pt.Strike, opts.Rate, maturity)
			if pt.Err == nil {
				pt.Vega = pricing.Black76Vega(forward, pt.Strike, opts.Rate, maturity, pt.Vol)
			} else {
				pt.Vol = 0
				logger.Debugf("smile %s %s K=%g: %v", chain.Code, chain.Month, pt.Strike, pt.Err)
			}

			if opts.Progress != nil {
				mu.Lock()
				done++
				opts.Progress(done, len(curve.Points))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Infof("smile %s %s: %d of %d strikes solved", chain.Code, chain.Month, len(curve.Valid()), len(curve.Points))
	return curve, nil
}
