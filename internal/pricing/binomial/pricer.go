package binomial

import "github.com/contactkeval/option-lattice/internal/logger"

// DefaultDumpLimit is the largest step count whose lattice is handed to a
// Sink. Bigger trees are unreadable when printed.
const DefaultDumpLimit = 9

// Pricer composes Build, ApplyPayoff and Rollback. The zero value is ready
// to use and has no sink. A Pricer holds no per-call state, so one value
// may be shared by concurrent callers as long as its Sink tolerates that.
type Pricer struct {
	sink      Sink
	dumpLimit int
}

// Option configures a Pricer.
type Option func(*Pricer)

// WithSink attaches a diagnostic sink that receives the finished lattice.
func WithSink(s Sink) Option {
	return func(p *Pricer) { p.sink = s }
}

// WithDumpLimit overrides DefaultDumpLimit. n < 0 disables the limit.
func WithDumpLimit(n int) Option {
	return func(p *Pricer) { p.dumpLimit = n }
}

// NewPricer returns a Pricer with DefaultDumpLimit and the given options.
func NewPricer(opts ...Option) *Pricer {
	p := &Pricer{dumpLimit: DefaultDumpLimit}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Price returns the time-0 value of the variant kind on an N-step lattice.
// It fails with pricing.ErrInvalidParameter before allocating anything when
// volatility, maturity, spot or strike is non-positive or steps < 1.
func (p *Pricer) Price(params Params, kind Kind, steps int) (float64, error) {
	payoff, err := kind.Payoff(params.Strike)
	if err != nil {
		return 0, err
	}
	logger.Debugf("binomial %s S0=%g K=%g r=%g sigma=%g T=%g steps=%d",
		kind, params.Spot, params.Strike, params.Rate, params.Volatility, params.Maturity, steps)

	return p.PriceFunc(params, payoff, steps)
}

// PriceFunc is Price with a caller-supplied terminal payoff. params.Strike
// is ignored unless the payoff closes over it.
func (p *Pricer) PriceFunc(params Params, payoff Payoff, steps int) (float64, error) {
	tree, err := Build(params, steps)
	if err != nil {
		return 0, err
	}

	tree.ApplyPayoff(payoff)
	tree.Rollback()

	if p != nil && p.sink != nil && (p.dumpLimit < 0 || steps <= p.dumpLimit) {
		p.sink.LatticeBuilt(tree)
	}
	return tree.Root(), nil
}

// Price prices with a Pricer that has no sink.
func Price(params Params, kind Kind, steps int) (float64, error) {
	var p *Pricer
	return p.Price(params, kind, steps)
}
