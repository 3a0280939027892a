// Package solver implements the narrow LP/ILP interface SPEC_FULL §4.10
// describes, plus the Frank-Wolfe projection of §4.9 that calls it as a
// linear oracle. No example repo in the retrieval pack ships an
// LP/ILP/optimization library (grepped every go.mod under _examples/ for
// gonum, simplex, glpk, highs, or-tools: zero hits) so this package is
// implemented directly on the standard library, justified in DESIGN.md.
// The marginal polytopes Frank-Wolfe projects onto are cluster-size-capped
// (config bounds cluster membership), so exhaustive/pruned search over the
// binary vertex set is both correct and fast at the sizes this system
// handles — no external solver is warranted.
package solver

import "github.com/shopspring/decimal"

// Sense is a constraint's comparison operator.
type Sense int

const (
	LE Sense = iota
	EQ
	GE
)

// Constraint is one linear constraint: Σ coeffs[i]*x[i] <sense> rhs.
type Constraint struct {
	Coeffs []decimal.Decimal
	Sense  Sense
	RHS    decimal.Decimal
}

// Satisfied reports whether the given assignment satisfies this
// constraint.
func (c Constraint) Satisfied(x []decimal.Decimal) bool {
	sum := decimal.Zero
	for i, coeff := range c.Coeffs {
		sum = sum.Add(coeff.Mul(x[i]))
	}
	switch c.Sense {
	case LE:
		return sum.LessThanOrEqual(c.RHS)
	case GE:
		return sum.GreaterThanOrEqual(c.RHS)
	default:
		return sum.Equal(c.RHS)
	}
}

// VariableBounds is a per-variable [Lower, Upper] box constraint.
type VariableBounds struct {
	Lower decimal.Decimal
	Upper decimal.Decimal
}

// LpProblem is a linear program: minimize ObjectiveCoeffs . x subject to
// Constraints and VariableBounds.
type LpProblem struct {
	ObjectiveCoeffs []decimal.Decimal
	Constraints     []Constraint
	VariableBounds  []VariableBounds
}

// IlpProblem is an LpProblem with a subset of variables restricted to
// integer (here always binary 0/1, since the marginal polytope's
// indicator variables are binary) values.
type IlpProblem struct {
	LpProblem
	IntegerVars []int
}

// Status is the solver's verdict.
type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
	Error
)

// LpSolution is the result of a solve call.
type LpSolution struct {
	Values    []decimal.Decimal
	Objective decimal.Decimal
	Status    Status
}

// Solver is the narrow capability Frank-Wolfe's linear oracle calls into.
type Solver interface {
	SolveLP(problem LpProblem) (LpSolution, error)
	SolveILP(problem IlpProblem) (LpSolution, error)
}
