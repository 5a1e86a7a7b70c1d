package pricing

import (
	"fmt"
	"math"

	"github.com/contactkeval/option-lattice/internal/logger"
)

// Bisection configures the implied volatility root search.
type Bisection struct {
	Lo        float64 // lower volatility bound
	Hi        float64 // upper volatility bound
	Tolerance float64 // absolute price error accepted at the midpoint
	MaxIter   int     // midpoint evaluations before giving up
}

// DefaultBisection searches 0% to 300% annualized volatility.
// The bracket is an assumption, not a guarantee; see ImpliedVol.
var DefaultBisection = Bisection{
	Lo:        0,
	Hi:        3,
	Tolerance: 1e-4,
	MaxIter:   100,
}

// ImpliedVol recovers the Black-76 volatility that reproduces observedPrice
// for a call on forward with the given strike, rate and maturity (years).
//
// It fails with ErrNonConvergent when observedPrice lies outside the range
// Black76Call spans over the default bracket, instead of searching forever.
func ImpliedVol(observedPrice, forward, strike, r, maturity float64) (float64, error) {
	return DefaultBisection.ImpliedVol(observedPrice, forward, strike, r, maturity)
}

// ImpliedVol runs the bisection with the receiver's bracket and limits.
func (bs Bisection) ImpliedVol(observedPrice, forward, strike, r, maturity float64) (float64, error) {
	if err := bs.validate(); err != nil {
		return 0, err
	}
	switch {
	case forward <= 0:
		return 0, fmt.Errorf("%w: forward must be positive, got %v", ErrInvalidParameter, forward)
	case strike <= 0:
		return 0, fmt.Errorf("%w: strike must be positive, got %v", ErrInvalidParameter, strike)
	case maturity <= 0:
		return 0, fmt.Errorf("%w: maturity must be positive, got %v", ErrInvalidParameter, maturity)
	case observedPrice < 0 || math.IsNaN(observedPrice):
		return 0, fmt.Errorf("%w: observed price must be non-negative, got %v", ErrInvalidParameter, observedPrice)
	}

	f := func(sigma float64) float64 {
		return observedPrice - Black76Call(forward, strike, r, maturity, sigma)
	}

	a, b := bs.Lo, bs.Hi
	fa, fb := f(a), f(b)
	if math.Abs(fa) <= bs.Tolerance {
		return a, nil
	}
	if math.Abs(fb) <= bs.Tolerance {
		return b, nil
	}
	if fa*fb > 0 {
		logger.Debugf("implied vol bracket [%g, %g] misses price %g (f(lo)=%g f(hi)=%g)", a, b, observedPrice, fa, fb)
		return 0, fmt.Errorf("%w: price %v outside Black-76 range over sigma in [%v, %v]",
			ErrNonConvergent, observedPrice, a, b)
	}

	for i := 0; i < bs.MaxIter; i++ {
		c := (a + b) / 2
		fc := f(c)
		logger.Tracef("bisection iter=%d a=%.8f b=%.8f c=%.8f f(c)=%.3e", i, a, b, c, fc)

		if math.Abs(fc) <= bs.Tolerance {
			return c, nil
		}
		if fa*fc > 0 {
			a, fa = c, fc
		} else {
			b = c
		}
	}

	return 0, fmt.Errorf("%w: no price within %v after %d iterations", ErrNonConvergent, bs.Tolerance, bs.MaxIter)
}

func (bs Bisection) validate() error {
	switch {
	case bs.Lo < 0 || bs.Hi <= bs.Lo:
		return fmt.Errorf("%w: bracket [%v, %v]", ErrInvalidParameter, bs.Lo, bs.Hi)
	case bs.Tolerance <= 0:
		return fmt.Errorf("%w: tolerance %v", ErrInvalidParameter, bs.Tolerance)
	case bs.MaxIter < 1:
		return fmt.Errorf("%w: max iterations %d", ErrInvalidParameter, bs.MaxIter)
	}
	return nil
}
