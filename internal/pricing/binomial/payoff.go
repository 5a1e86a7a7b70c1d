package binomial

import (
	"fmt"
	"math"
	"strings"

	"github.com/contactkeval/option-lattice/internal/pricing"
)

// Kind selects the terminal payoff of a European-style option.
type Kind int

const (
	EuropeanCall Kind = iota
	EuropeanPut
	DigitalCall // cash-or-nothing, pays 1
	DigitalPut  // cash-or-nothing, pays 1
)

// Kinds lists every supported variant in declaration order.
var Kinds = []Kind{EuropeanCall, EuropeanPut, DigitalCall, DigitalPut}

var kindNames = map[Kind]string{
	EuropeanCall: "european_call",
	EuropeanPut:  "european_put",
	DigitalCall:  "digital_call",
	DigitalPut:   "digital_put",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the String form case-insensitively, with '-' or '_'
// separators, plus the short aliases "call" and "put".
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch norm {
	case "call":
		return EuropeanCall, nil
	case "put":
		return EuropeanPut, nil
	}
	for k, name := range kindNames {
		if name == norm {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown option kind %q", pricing.ErrInvalidParameter, s)
}

// MarshalText lets Kind travel as its name in JSON.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("%w: unknown option kind %d", pricing.ErrInvalidParameter, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Payoff maps a terminal stock price to the option value at expiry.
type Payoff func(stock float64) float64

// Payoff returns the terminal rule of k for the given strike.
func (k Kind) Payoff(strike float64) (Payoff, error) {
	if strike <= 0 || math.IsNaN(strike) {
		return nil, fmt.Errorf("%w: %s requires a positive strike, got %v", pricing.ErrInvalidParameter, k, strike)
	}

	switch k {
	case EuropeanCall:
		return func(s float64) float64 { return math.Max(s-strike, 0) }, nil
	case EuropeanPut:
		return func(s float64) float64 { return math.Max(strike-s, 0) }, nil
	case DigitalCall:
		return func(s float64) float64 {
			if s >= strike {
				return 1
			}
			return 0
		}, nil
	case DigitalPut:
		return func(s float64) float64 {
			if s <= strike {
				return 1
			}
			return 0
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown option kind %d", pricing.ErrInvalidParameter, int(k))
}
