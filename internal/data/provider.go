package data

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/contactkeval/option-lattice/internal/cme"
)

// ErrNoChain is returned when a provider has no chain for the requested
// code and month.
var ErrNoChain = errors.New("no option chain")

// Provider supplies option chains
type Provider interface {
	Secondary() Provider
	GetChain(code string, month cme.Month) (*Chain, error)
}

// Quote is one settled option price.
type Quote struct {
	Strike float64 `json:"strike"`
	Price  float64 `json:"price"`
}

// Chain is the settled options of one futures contract month, with the
// futures settlement as forward. Calls and Puts are sorted by strike.
type Chain struct {
	Code    string    `json:"code"`
	Month   cme.Month `json:"month"`
	Forward float64   `json:"forward"`
	Expiry  time.Time `json:"expiry"`
	Calls   []Quote   `json:"calls"`
	Puts    []Quote   `json:"puts"`
}

// Strikes returns the call strikes in ascending order.
func (c *Chain) Strikes() []float64 {
	out := make([]float64, len(c.Calls))
	for i, q := range c.Calls {
		out[i] = q.Strike
	}
	return out
}

// ChainFromFile assembles the code/month chain out of an extracted SPAN file.
// A missing futures settlement is ErrNoChain; a missing options expiration
// leaves Expiry zero.
func ChainFromFile(f *cme.File, code string, month cme.Month) (*Chain, error) {
	fut, ok := f.FuturesSettlement(code, month)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s has no futures settlement", ErrNoChain, code, month)
	}

	c := &Chain{Code: code, Month: month, Forward: fut.InexactFloat64()}
	c.Expiry, _ = f.Expiry(code, month, cme.Option)
	c.Calls = quotes(f.Options(code, month, cme.Call))
	c.Puts = quotes(f.Options(code, month, cme.Put))
	return c, nil
}

func quotes(settlements []cme.Settlement) []Quote {
	out := make([]Quote, 0, len(settlements))
	for _, s := range settlements {
		out = append(out, Quote{Strike: s.Strike.InexactFloat64(), Price: s.Price.InexactFloat64()})
	}
	sortQuotes(out)
	return out
}

func sortQuotes(q []Quote) {
	sort.SliceStable(q, func(i, j int) bool { return q[i].Strike < q[j].Strike })
}

// YearFraction is the ACT/365 year fraction between from and to.
func YearFraction(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24 / 365
}

// Closest finds the closest value to target in the ascending slice numList.
func Closest(numList []float64, target float64) (float64, error) {
	n := len(numList)
	if n == 0 {
		return 0, errors.New("closest of empty list")
	}

	i := sort.Search(n, func(i int) bool {
		return numList[i] >= target
	})

	if i == 0 {
		return numList[0], nil
	}
	if i == n {
		return numList[n-1], nil
	}

	before, after := numList[i-1], numList[i]
	if math.Abs(before-target) < math.Abs(after-target) {
		return before, nil
	}
	return after, nil
}
