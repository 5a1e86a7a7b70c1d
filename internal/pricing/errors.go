package pricing

import "errors"

var (
	// ErrInvalidParameter reports inputs that cannot describe a valid option or
	// lattice: non-positive volatility, maturity, step count, spot or strike.
	// It is detected before any work is done and is never worth retrying.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNonConvergent reports that the implied volatility search could not
	// reach the price tolerance, either because the bracket does not contain
	// a root or because the iteration cap was hit.
	ErrNonConvergent = errors.New("implied volatility did not converge")
)
