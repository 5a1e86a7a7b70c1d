// Package pricing holds closed-form option pricers and the implied
// volatility solver built on top of them.
package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// BlackScholesPrice calculates the price of a European option using the Black-Scholes model.
//
// Parameters:
//   - isCall: true for call option, false for put option
//   - S: spot price of the underlying asset
//   - K: strike price of the option
//   - T: time to expiry in years
//   - r: risk-free interest rate (annual, continuously compounded)
//   - sigma: volatility of the underlying asset (annual, as a decimal)
//
// Returns:
//
//	The theoretical price of the option. If time to expiry or volatility is zero or negative,
//	returns the intrinsic value of the option.
func BlackScholesPrice(
	isCall bool,
	S float64, // spot
	K float64, // strike
	T float64, // time to expiry in years
	r float64, // risk-free rate
	sigma float64, // volatility
) float64 {

	if T <= 0 || sigma <= 0 {
		if isCall {
			return math.Max(0, S-K)
		}
		return math.Max(0, K-S)
	}

	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * math.Sqrt(T))
	d2 := d1 - sigma*math.Sqrt(T)

	if isCall {
		return S*NormCDF(d1) - K*math.Exp(-r*T)*NormCDF(d2)
	}
	return K*math.Exp(-r*T)*NormCDF(-d2) - S*NormCDF(-d1)
}

// BSMCall is the spot-based Black-Scholes-Merton European call price.
// Argument order follows the market convention (S0, K, r, T, sigma).
func BSMCall(s0, k, r, t, sigma float64) float64 {
	return BlackScholesPrice(true, s0, k, t, r, sigma)
}

// Black76Call prices a European call on a forward or futures price f.
//
// With sigma or t non-positive the option has no time value left and the
// discounted intrinsic value e^{-rt}·max(f-k, 0) is returned. The implied
// volatility search relies on this at the sigma = 0 end of its bracket.
func Black76Call(f, k, r, t, sigma float64) float64 {
	df := math.Exp(-r * t)
	if t <= 0 || sigma <= 0 {
		return df * math.Max(f-k, 0)
	}

	d1, d2 := black76D(f, k, t, sigma)
	return df * (f*NormCDF(d1) - k*NormCDF(d2))
}

// Black76Put prices a European put on a forward, via put-call parity
// P = C - e^{-rt}(f - k).
func Black76Put(f, k, r, t, sigma float64) float64 {
	return Black76Call(f, k, r, t, sigma) - math.Exp(-r*t)*(f-k)
}

// Black76Vega is dC/dsigma for the Black-76 call (and put).
// Returns 0 if t or sigma is non-positive.
func Black76Vega(f, k, r, t, sigma float64) float64 {
	if t <= 0 || sigma <= 0 {
		return 0
	}
	d1, _ := black76D(f, k, t, sigma)
	return math.Exp(-r*t) * f * normPDF(d1) * math.Sqrt(t)
}

func black76D(f, k, t, sigma float64) (d1, d2 float64) {
	volSqrtT := sigma * math.Sqrt(t)
	d1 = (math.Log(f/k) + 0.5*sigma*sigma*t) / volSqrtT
	return d1, d1 - volSqrtT
}

// NormCDF computes the cumulative distribution function of the standard normal
// distribution as 0.5 + 0.5·erf(x/√2).
func NormCDF(x float64) float64 {
	return 0.5 + 0.5*math.Erf(x/math.Sqrt2)
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}
