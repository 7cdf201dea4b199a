package confidence

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange means a numeric field fell outside [0, 1].
	ErrOutOfRange = errors.New("value outside [0, 1]")
	// ErrInvertedBounds means an interval's low exceeded its high.
	ErrInvertedBounds = errors.New("interval low exceeds high")
	// ErrBadBasis means an unrecognized bounded-estimate basis.
	ErrBadBasis = errors.New("unrecognized basis")
	// ErrBadSampleSize means a negative measured sample size.
	ErrBadSampleSize = errors.New("negative sample size")

	// ErrUnknownInput means a formula referenced a name not present in the
	// supplied inputs.
	ErrUnknownInput = errors.New("unknown input reference")
	// ErrMalformedFormula means a combinator was applied with the wrong
	// number of arguments or an empty expression.
	ErrMalformedFormula = errors.New("malformed formula")
)

// ConstructionError reports an invariant violation at value creation. It is
// fatal to the single construction call; the value is never clamped or
// defaulted.
type ConstructionError struct {
	Kind Kind
	Err  error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construct %s confidence value: %v", e.Kind, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

func constructionError(kind Kind, err error) *ConstructionError {
	return &ConstructionError{Kind: kind, Err: err}
}

// DerivationError reports a rejected derivation. No partial or guessed
// result accompanies it.
type DerivationError struct {
	Formula string
	Err     error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("derive %s: %v", e.Formula, e.Err)
}

func (e *DerivationError) Unwrap() error { return e.Err }
