// Package binomial prices European and digital options on a recombining
// Cox-Ross-Rubinstein lattice.
//
// A pricing call builds a fresh Tree, writes terminal payoffs into the last
// layer, rolls discounted expectations back to the root and reads the root
// value. Only the terminal payoff depends on the option variant.
package binomial

import (
	"fmt"
	"math"

	"github.com/contactkeval/option-lattice/internal/logger"
	"github.com/contactkeval/option-lattice/internal/pricing"
)

// Params describes the option and its market. Values are copied into every
// pricing call and never mutated.
type Params struct {
	Spot       float64 `json:"spot"`       // S0
	Strike     float64 `json:"strike"`     // K
	Rate       float64 `json:"rate"`       // continuously compounded risk-free rate
	Volatility float64 `json:"volatility"` // annualized sigma
	Maturity   float64 `json:"maturity"`   // T in years
}

// Node is one lattice point. Stock is fixed when the tree is built; Value is
// written once, by the payoff at the terminal layer or by Rollback elsewhere.
type Node struct {
	Stock float64
	Value float64
}

// Tree is a triangular lattice of Steps+1 layers where layer i holds i+1
// nodes and index j counts up-moves.
type Tree struct {
	Steps  int
	Rate   float64
	DeltaT float64
	Up     float64 // u = e^{sigma·sqrt(dt)}
	Down   float64 // d = 1/u
	Growth float64 // a = e^{r·dt}
	P      float64 // risk-neutral up probability
	Q      float64 // 1 - P
	Layers [][]Node
}

// Build derives the CRR factors for params over steps intervals and fills
// every node's stock price. Option values are left at zero.
func Build(params Params, steps int) (*Tree, error) {
	if err := validate(params, steps); err != nil {
		return nil, err
	}

	dt := params.Maturity / float64(steps)
	u := math.Exp(params.Volatility * math.Sqrt(dt))
	d := 1 / u
	a := math.Exp(params.Rate * dt)
	p := (a - d) / (u - d)

	if p < 0 || p > 1 || math.IsNaN(p) {
		return nil, fmt.Errorf("%w: risk-neutral probability %v outside [0,1] (rate %v too large for volatility %v over dt %v)",
			pricing.ErrInvalidParameter, p, params.Rate, params.Volatility, dt)
	}

	logger.Tracef("lattice steps=%d dt=%.6g u=%.8f d=%.8f a=%.8f p=%.8f", steps, dt, u, d, a, p)

	t := &Tree{
		Steps:  steps,
		Rate:   params.Rate,
		DeltaT: dt,
		Up:     u,
		Down:   d,
		Growth: a,
		P:      p,
		Q:      1 - p,
		Layers: allocate(steps),
	}

	// S0·u^j·d^(i-j) == S0·u^(2j-i) since d = 1/u. A single power keeps the
	// central node of an even layer exactly at S0.
	for i, layer := range t.Layers {
		for j := range layer {
			layer[j].Stock = params.Spot * math.Pow(u, float64(2*j-i))
		}
	}
	return t, nil
}

// allocate carves all layers out of one backing array of
// (n+1)(n+2)/2 nodes.
func allocate(n int) [][]Node {
	nodes := make([]Node, (n+1)*(n+2)/2)
	layers := make([][]Node, n+1)
	off := 0
	for i := range layers {
		layers[i] = nodes[off : off+i+1 : off+i+1]
		off += i + 1
	}
	return layers
}

// Terminal returns layer Steps.
func (t *Tree) Terminal() []Node {
	return t.Layers[t.Steps]
}

// Root returns the time-0 option value.
func (t *Tree) Root() float64 {
	return t.Layers[0][0].Value
}

func validate(params Params, steps int) error {
	switch {
	case steps < 1:
		return fmt.Errorf("%w: step count must be at least 1, got %d", pricing.ErrInvalidParameter, steps)
	case params.Volatility <= 0 || math.IsNaN(params.Volatility):
		return fmt.Errorf("%w: volatility must be positive, got %v", pricing.ErrInvalidParameter, params.Volatility)
	case params.Maturity <= 0 || math.IsNaN(params.Maturity):
		return fmt.Errorf("%w: maturity must be positive, got %v", pricing.ErrInvalidParameter, params.Maturity)
	case params.Spot <= 0 || math.IsNaN(params.Spot):
		return fmt.Errorf("%w: spot must be positive, got %v", pricing.ErrInvalidParameter, params.Spot)
	}
	return nil
}
