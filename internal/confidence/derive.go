package confidence

import (
	"fmt"
	"sort"
	"strings"
)

// Combinator is the closed set of named combination rules a derivation may
// use. Formulas are trees over this enumeration, not free-form strings, so
// an unknown rule is unrepresentable rather than a runtime surprise.
type Combinator string

const (
	CombinatorMeet            Combinator = "meet"
	CombinatorJoin            Combinator = "join"
	CombinatorJoinIndependent Combinator = "independent_or"
	CombinatorProduct         Combinator = "product"
	CombinatorSequence        Combinator = "sequence"
	CombinatorParallel        Combinator = "parallel"
)

// minArity maps each combinator to the fewest arguments it accepts.
var minArity = map[Combinator]int{
	CombinatorMeet:            2,
	CombinatorJoin:            2,
	CombinatorJoinIndependent: 2,
	CombinatorProduct:         2,
	CombinatorSequence:        1,
	CombinatorParallel:        1,
}

// Expr is a node in a derivation formula: either a Ref to a named input or
// an Apply of a combinator to sub-expressions.
type Expr interface {
	render() string
	isExpr()
}

// Ref names an input supplied to Derive.
type Ref struct {
	Name string
}

func (r Ref) render() string { return r.Name }
func (Ref) isExpr()          {}

// Apply applies a combinator to one or more sub-expressions.
type Apply struct {
	Op   Combinator
	Args []Expr
}

func (a Apply) render() string {
	parts := make([]string, len(a.Args))
	for i, arg := range a.Args {
		parts[i] = arg.render()
	}
	return fmt.Sprintf("%s(%s)", a.Op, strings.Join(parts, ", "))
}
func (Apply) isExpr() {}

// Derive evaluates a formula over named inputs and returns a derived Value
// carrying the rendered formula, the referenced input names, a computed
// calibration status and the package-private proof token.
//
// It fails with ErrUnknownInput when the formula references a name absent
// from inputs, and with ErrMalformedFormula when a combinator's arity is
// wrong; in both cases no partial result is returned. If absence
// propagates through the formula (e.g. a meet over an Absent input) the
// result is an explicit Absent value, never a guessed number.
func Derive(formula Expr, inputs map[string]Value) (Value, error) {
	if formula == nil {
		return Value{}, &DerivationError{Formula: "", Err: fmt.Errorf("%w: empty formula", ErrMalformedFormula)}
	}
	rendered := formula.render()

	refs := make(map[string]bool)
	combined, err := eval(formula, inputs, refs)
	if err != nil {
		return Value{}, &DerivationError{Formula: rendered, Err: err}
	}

	if combined.IsAbsent() {
		return Absent(fmt.Sprintf("derivation %s composed an absent input", rendered)), nil
	}

	point, ok := combined.Point()
	if !ok {
		return Absent(fmt.Sprintf("derivation %s produced no point estimate", rendered)), nil
	}

	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	referenced := make([]Value, 0, len(names))
	for _, name := range names {
		referenced = append(referenced, inputs[name])
	}

	status := statusFor(classOf(formula), referenced...)
	// A nested arithmetic step (product inside a meet, say) may have
	// degraded calibration below what the outermost combinator implies.
	if combined.Kind() == KindDerived {
		status = worse(status, combined.CalibrationStatus())
	}

	return newDerived(point, rendered, names, status, true)
}

// classOf picks the calibration class of the outermost combinator; a bare
// reference is an order statistic (identity).
func classOf(e Expr) opClass {
	a, ok := e.(Apply)
	if !ok {
		return opOrderStatistic
	}
	switch a.Op {
	case CombinatorProduct, CombinatorJoinIndependent:
		return opArithmetic
	default:
		return opOrderStatistic
	}
}

func eval(e Expr, inputs map[string]Value, refs map[string]bool) (Value, error) {
	switch n := e.(type) {
	case Ref:
		v, ok := inputs[n.Name]
		if !ok {
			return Value{}, fmt.Errorf("%w: %q", ErrUnknownInput, n.Name)
		}
		refs[n.Name] = true
		return v, nil
	case Apply:
		min, known := minArity[n.Op]
		if !known {
			return Value{}, fmt.Errorf("%w: unknown combinator %q", ErrMalformedFormula, n.Op)
		}
		if len(n.Args) < min {
			return Value{}, fmt.Errorf("%w: %s needs at least %d arguments, got %d", ErrMalformedFormula, n.Op, min, len(n.Args))
		}
		args := make([]Value, len(n.Args))
		for i, sub := range n.Args {
			v, err := eval(sub, inputs, refs)
			if err != nil {
				return Value{}, err
			}
			args[i] = v
		}
		return apply(n.Op, args)
	default:
		return Value{}, fmt.Errorf("%w: unrecognized expression node %T", ErrMalformedFormula, e)
	}
}

func apply(op Combinator, args []Value) (Value, error) {
	switch op {
	case CombinatorMeet, CombinatorSequence:
		return MeetAll(args...), nil
	case CombinatorJoin, CombinatorParallel:
		return JoinAll(args...), nil
	case CombinatorProduct:
		out := args[0]
		var err error
		for _, v := range args[1:] {
			out, err = Product(out, v)
			if err != nil {
				return Value{}, err
			}
		}
		return out, nil
	case CombinatorJoinIndependent:
		out := args[0]
		var err error
		for _, v := range args[1:] {
			out, err = JoinIndependent(out, v)
			if err != nil {
				return Value{}, err
			}
		}
		return out, nil
	default:
		return Value{}, fmt.Errorf("%w: unknown combinator %q", ErrMalformedFormula, op)
	}
}
