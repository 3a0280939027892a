package solver

import "github.com/shopspring/decimal"

// BranchAndBoundSolver implements Solver by enumerating the vertices of
// small binary polytopes directly, pruning branches that already violate
// a constraint. It is exact for the cluster-constraint families SPEC_FULL
// §4.8 step 3 describes (MutuallyExclusive, ExactlyOne, Implies): those
// constraint matrices are totally unimodular, so the LP relaxation's
// optimum coincides with an integer vertex, and SolveLP reuses the same
// enumeration as SolveILP rather than running a separate simplex.
type BranchAndBoundSolver struct {
	// MaxVars guards against being handed a cluster larger than the
	// configured cap; Frank-Wolfe treats a refusal as Infeasible.
	MaxVars int
}

// NewBranchAndBoundSolver builds a solver that refuses problems with more
// than maxVars variables — 2^maxVars vertices are enumerated per call, so
// this bound keeps the oracle calls sub-millisecond at the cluster sizes
// §4.8 step 1 caps membership to.
func NewBranchAndBoundSolver(maxVars int) *BranchAndBoundSolver {
	if maxVars <= 0 {
		maxVars = 20
	}
	return &BranchAndBoundSolver{MaxVars: maxVars}
}

// SolveLP solves the LP relaxation by the same binary enumeration as
// SolveILP (see type doc for why that is exact here).
func (s *BranchAndBoundSolver) SolveLP(p LpProblem) (LpSolution, error) {
	return s.solve(IlpProblem{LpProblem: p, IntegerVars: allIndices(len(p.ObjectiveCoeffs))})
}

// SolveILP enumerates every binary assignment of the integer variables,
// keeping the best feasible objective value.
func (s *BranchAndBoundSolver) SolveILP(p IlpProblem) (LpSolution, error) {
	return s.solve(p)
}

func (s *BranchAndBoundSolver) solve(p IlpProblem) (LpSolution, error) {
	n := len(p.ObjectiveCoeffs)
	if n == 0 {
		return LpSolution{Status: Infeasible}, nil
	}
	if n > s.MaxVars {
		return LpSolution{Status: Infeasible}, nil
	}

	var best LpSolution
	found := false

	x := make([]decimal.Decimal, n)
	var explore func(i int)
	explore = func(i int) {
		if i == n {
			for _, c := range p.Constraints {
				if !c.Satisfied(x) {
					return
				}
			}
			obj := decimal.Zero
			for j := 0; j < n; j++ {
				obj = obj.Add(p.ObjectiveCoeffs[j].Mul(x[j]))
			}
			if !found || obj.LessThan(best.Objective) {
				values := make([]decimal.Decimal, n)
				copy(values, x)
				best = LpSolution{Values: values, Objective: obj, Status: Optimal}
				found = true
			}
			return
		}
		for _, v := range candidateValues(p, i) {
			x[i] = v
			explore(i + 1)
		}
	}
	explore(0)

	if !found {
		return LpSolution{Status: Infeasible}, nil
	}
	return best, nil
}

// candidateValues returns the values variable i may take: {0,1} unless
// VariableBounds narrows it further.
func candidateValues(p IlpProblem, i int) []decimal.Decimal {
	lower, upper := decimal.Zero, decimal.NewFromInt(1)
	if i < len(p.VariableBounds) {
		lower = p.VariableBounds[i].Lower
		upper = p.VariableBounds[i].Upper
	}
	var out []decimal.Decimal
	if lower.LessThanOrEqual(decimal.Zero) && upper.GreaterThanOrEqual(decimal.Zero) {
		out = append(out, decimal.Zero)
	}
	if lower.LessThanOrEqual(decimal.NewFromInt(1)) && upper.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		out = append(out, decimal.NewFromInt(1))
	}
	if len(out) == 0 {
		out = append(out, lower)
	}
	return out
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
