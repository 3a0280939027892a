package solver

import (
	"math"

	"github.com/shopspring/decimal"
)

// epsilon is the numerical floor applied before ln to avoid -Inf on a
// zero (or negative, from upstream bad data) iterate or target component.
var epsilon = decimal.New(1, -10) // 1e-10, matching SPEC_FULL §4.9.

// FrankWolfeResult is the outcome of a projection run.
type FrankWolfeResult struct {
	Mu         []decimal.Decimal
	Gap        decimal.Decimal
	Iterations int
	Converged  bool
}

// ProjectKL runs the Frank-Wolfe conditional-gradient loop projecting
// theta onto the marginal polytope described by constraints (the linear
// encoding of the cluster's Relations, SPEC_FULL §4.8 step 3) under the
// KL/Bregman divergence. It is the direct implementation of §4.9's
// algorithm: gradient computation, linear-oracle call, duality-gap
// termination, open-loop step size 2/(k+2).
//
// All vector arithmetic stays in decimal.Decimal; only the ln evaluation
// itself drops to float64, converting back immediately, per the numerical
// policy in SPEC_FULL §4.9.
func ProjectKL(theta []decimal.Decimal, constraints []Constraint, bounds []VariableBounds, s Solver, maxIterations int, tolerance decimal.Decimal) FrankWolfeResult {
	n := len(theta)
	mu := make([]decimal.Decimal, n)
	copy(mu, theta)

	if maxIterations <= 0 {
		maxIterations = 50
	}

	for k := 0; k < maxIterations; k++ {
		grad := klGradient(mu, theta)

		vertex, err := s.SolveLP(LpProblem{
			ObjectiveCoeffs: grad,
			Constraints:     constraints,
			VariableBounds:  bounds,
		})
		if err != nil || vertex.Status != Optimal {
			return FrankWolfeResult{Mu: mu, Gap: bregmanDivergence(mu, theta), Iterations: k, Converged: false}
		}

		gap := dualityGap(grad, mu, vertex.Values)
		if gap.Abs().LessThan(tolerance) {
			return FrankWolfeResult{Mu: mu, Gap: bregmanDivergence(mu, theta), Iterations: k, Converged: true}
		}

		gamma := stepSize(k)
		mu = updateIterate(mu, vertex.Values, gamma)
	}

	return FrankWolfeResult{Mu: mu, Gap: bregmanDivergence(mu, theta), Iterations: maxIterations, Converged: false}
}

// klGradient computes grad_i = ln(mu_i / theta_i) + 1, clamping both
// operands to max(epsilon, x) before the division and log.
func klGradient(mu, theta []decimal.Decimal) []decimal.Decimal {
	grad := make([]decimal.Decimal, len(mu))
	for i := range mu {
		num := clamp(mu[i])
		den := clamp(theta[i])
		ratio := num.Div(den)
		grad[i] = lnDecimal(ratio).Add(decimal.NewFromInt(1))
	}
	return grad
}

// bregmanDivergence computes D(mu || theta) = Σ mu_i ln(mu_i/theta_i) - mu_i + theta_i,
// the KL divergence appropriate to the LMSR-compatible conjugate. This is
// the value reported to callers as "gap" once the loop terminates,
// approximating the extractable arbitrage profit (§4.9).
func bregmanDivergence(mu, theta []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for i := range mu {
		m := clamp(mu[i])
		t := clamp(theta[i])
		term := m.Mul(lnDecimal(m.Div(t))).Sub(m).Add(t)
		total = total.Add(term)
	}
	return total
}

// dualityGap computes <grad, mu - s>.
func dualityGap(grad, mu, s []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for i := range grad {
		total = total.Add(grad[i].Mul(mu[i].Sub(s[i])))
	}
	return total
}

// stepSize is the open-loop Frank-Wolfe schedule gamma_k = 2/(k+2).
func stepSize(k int) decimal.Decimal {
	return decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(k) + 2))
}

// updateIterate computes mu <- (1-gamma)*mu + gamma*s.
func updateIterate(mu, s []decimal.Decimal, gamma decimal.Decimal) []decimal.Decimal {
	one := decimal.NewFromInt(1)
	out := make([]decimal.Decimal, len(mu))
	for i := range mu {
		out[i] = one.Sub(gamma).Mul(mu[i]).Add(gamma.Mul(s[i]))
	}
	return out
}

// clamp enforces max(epsilon, x) so a zero or negative upstream value
// never reaches ln.
func clamp(x decimal.Decimal) decimal.Decimal {
	if x.LessThan(epsilon) {
		return epsilon
	}
	return x
}

// lnDecimal evaluates natural log by converting to float64 and back
// immediately, the one permitted float64 excursion in the numerical
// policy. A non-finite result (should not occur after clamp, but upstream
// data can still be pathological) collapses to zero so the caller's loop
// terminates instead of propagating NaN.
func lnDecimal(x decimal.Decimal) decimal.Decimal {
	f, _ := x.Float64()
	v := math.Log(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
