package data

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/contactkeval/option-lattice/internal/cme"
	"github.com/contactkeval/option-lattice/internal/pricing"
)

// SyntheticConfig describes a generated market: Black-76 prices on a
// quadratic smile in log-moneyness,
//
//	vol(K) = ATMVol + Skew*m + Curvature*m*m,  m = ln(K/Forward)
//
// with optional multiplicative Gaussian noise on each price.
type SyntheticConfig struct {
	Forward   float64   `json:"forward"`
	Rate      float64   `json:"rate"`
	ATMVol    float64   `json:"atmVol"`
	Skew      float64   `json:"skew"`
	Curvature float64   `json:"curvature"`
	Strikes   []float64 `json:"strikes"`
	Valuation time.Time `json:"valuation"`
	Expiry    time.Time `json:"expiry"`
	Noise     float64   `json:"noise"`
	Seed      int64     `json:"seed"`
}

// Vol is the smile volatility at strike.
func (c SyntheticConfig) Vol(strike float64) float64 {
	m := math.Log(strike / c.Forward)
	return c.ATMVol + c.Skew*m + c.Curvature*m*m
}

// synthDataProvider implements Data Provider generating synthetic data.
type synthDataProvider struct {
	cfg       SyntheticConfig
	secondary Provider
}

func NewSyntheticProvider(cfg SyntheticConfig) Provider { return &synthDataProvider{cfg: cfg} }

func (synthDataProv *synthDataProvider) Secondary() Provider {
	return synthDataProv.secondary
}

// GetChain returns the same chain for any code and month. Each call reseeds
// the noise source, so repeated calls agree.
func (synthDataProv *synthDataProvider) GetChain(code string, month cme.Month) (*Chain, error) {
	cfg := synthDataProv.cfg
	t := YearFraction(cfg.Valuation, cfg.Expiry)
	if cfg.Forward <= 0 || t <= 0 {
		return nil, fmt.Errorf("%w: synthetic forward %g, maturity %g", pricing.ErrInvalidParameter, cfg.Forward, t)
	}

	noise := distuv.Normal{Mu: 0, Sigma: cfg.Noise, Src: rand.NewSource(uint64(cfg.Seed))}
	c := &Chain{Code: code, Month: month, Forward: cfg.Forward, Expiry: cfg.Expiry}
	for _, k := range cfg.Strikes {
		sigma := cfg.Vol(k)
		if k <= 0 || sigma <= 0 {
			return nil, fmt.Errorf("%w: synthetic strike %g has vol %g", pricing.ErrInvalidParameter, k, sigma)
		}
		call := pricing.Black76Call(cfg.Forward, k, cfg.Rate, t, sigma)
		put := pricing.Black76Put(cfg.Forward, k, cfg.Rate, t, sigma)
		if cfg.Noise > 0 {
			call *= 1 + noise.Rand()
			put *= 1 + noise.Rand()
		}
		c.Calls = append(c.Calls, Quote{Strike: k, Price: math.Max(call, 0)})
		c.Puts = append(c.Puts, Quote{Strike: k, Price: math.Max(put, 0)})
	}
	sortQuotes(c.Calls)
	sortQuotes(c.Puts)
	return c, nil
}
