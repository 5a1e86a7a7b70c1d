package binomial

import "math"

// ApplyPayoff writes payoff(stock) into every terminal node.
func (t *Tree) ApplyPayoff(payoff Payoff) {
	terminal := t.Terminal()
	for j := range terminal {
		terminal[j].Value = payoff(terminal[j].Stock)
	}
}

// Rollback fills layers Steps-1 .. 0 with the discounted risk-neutral
// expectation of the two successors:
//
//	V[i][j] = e^{-r·dt} · (p·V[i+1][j+1] + q·V[i+1][j])
//
// There is no early-exercise check.
func (t *Tree) Rollback() {
	disc := math.Exp(-t.Rate * t.DeltaT)

	for i := t.Steps - 1; i >= 0; i-- {
		cur, next := t.Layers[i], t.Layers[i+1]
		for j := range cur {
			cur[j].Value = disc * (t.P*next[j+1].Value + t.Q*next[j].Value)
		}
	}
}
