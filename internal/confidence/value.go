// Package confidence implements the typed confidence value and its algebra.
//
// A Value is a closed sum over five variants (deterministic, derived,
// measured, bounded, absent). Fields are unexported and every variant is
// reachable only through a validating constructor, so an in-range Value can
// never be built with out-of-range numbers or inverted bounds. Derived
// values additionally carry a proof token that only Derive can mint.
package confidence

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Kind string

const (
	KindDeterministic Kind = "deterministic"
	KindDerived       Kind = "derived"
	KindMeasured      Kind = "measured"
	KindBounded       Kind = "bounded"
	KindAbsent        Kind = "absent"
)

// CalibrationStatus records what derivation did to the calibration of a
// value. It is always explicit on derived values, never implied.
type CalibrationStatus string

const (
	CalibrationPreserved           CalibrationStatus = "preserved"
	CalibrationDegraded            CalibrationStatus = "degraded"
	CalibrationUnknown             CalibrationStatus = "unknown"
	CalibrationDerivedFromMeasured CalibrationStatus = "derived_from_measured"
)

func ValidCalibrationStatus(s string) bool {
	switch CalibrationStatus(s) {
	case CalibrationPreserved, CalibrationDegraded, CalibrationUnknown, CalibrationDerivedFromMeasured:
		return true
	}
	return false
}

// Basis states where a bounded estimate comes from.
type Basis string

const (
	BasisTheoretical    Basis = "theoretical"
	BasisLiterature     Basis = "literature"
	BasisFormalAnalysis Basis = "formal_analysis"
	BasisEstimated      Basis = "estimated"
)

func ValidBasis(b string) bool {
	switch Basis(b) {
	case BasisTheoretical, BasisLiterature, BasisFormalAnalysis, BasisEstimated:
		return true
	}
	return false
}

// proofToken is the unforgeable construction marker for derived values.
// It has no exported constructor and does not survive serialization, so a
// proven Value can only originate from Derive within this package.
type proofToken struct{ minted bool }

// Value is one confidence value. The zero Value is Absent with no reason.
type Value struct {
	kind Kind

	truth  bool   // deterministic
	reason string // deterministic, absent

	point   float64  // derived, measured
	formula string   // derived
	inputs  []string // derived
	calib   CalibrationStatus
	proof   proofToken

	datasetID  string // measured
	sampleSize int
	accuracy   float64
	ciLo, ciHi float64

	low, high float64 // bounded
	basis     Basis
}

// Deterministic returns a logically certain value (1.0 or 0.0) tagged with
// the reason for the certainty. It cannot fail.
func Deterministic(truth bool, reason string) Value {
	return Value{kind: KindDeterministic, truth: truth, reason: reason}
}

// Absent returns the explicit "unknown" value. It is the bottom of the
// lattice and is never coerced to a number.
func Absent(reason string) Value {
	return Value{kind: KindAbsent, reason: reason}
}

// NewMeasured returns an empirically observed rate together with its
// dataset, sample size, measurement accuracy and 95% interval.
func NewMeasured(rate float64, datasetID string, sampleSize int, accuracy, ciLo, ciHi float64) (Value, error) {
	if err := checkUnit("rate", rate); err != nil {
		return Value{}, constructionError(KindMeasured, err)
	}
	if err := checkUnit("accuracy", accuracy); err != nil {
		return Value{}, constructionError(KindMeasured, err)
	}
	if err := checkUnit("ci_low", ciLo); err != nil {
		return Value{}, constructionError(KindMeasured, err)
	}
	if err := checkUnit("ci_high", ciHi); err != nil {
		return Value{}, constructionError(KindMeasured, err)
	}
	if ciLo > ciHi {
		return Value{}, constructionError(KindMeasured, fmt.Errorf("%w: ci [%g, %g]", ErrInvertedBounds, ciLo, ciHi))
	}
	if sampleSize < 0 {
		return Value{}, constructionError(KindMeasured, fmt.Errorf("%w: sample size %d", ErrBadSampleSize, sampleSize))
	}
	return Value{
		kind:       KindMeasured,
		point:      rate,
		datasetID:  datasetID,
		sampleSize: sampleSize,
		accuracy:   accuracy,
		ciLo:       ciLo,
		ciHi:       ciHi,
	}, nil
}

// NewBounded returns an interval estimate. low <= high is enforced here,
// at construction, not by a later assertion.
func NewBounded(low, high float64, basis Basis) (Value, error) {
	if err := checkUnit("low", low); err != nil {
		return Value{}, constructionError(KindBounded, err)
	}
	if err := checkUnit("high", high); err != nil {
		return Value{}, constructionError(KindBounded, err)
	}
	if low > high {
		return Value{}, constructionError(KindBounded, fmt.Errorf("%w: [%g, %g]", ErrInvertedBounds, low, high))
	}
	if !ValidBasis(string(basis)) {
		return Value{}, constructionError(KindBounded, fmt.Errorf("%w: %q", ErrBadBasis, basis))
	}
	return Value{kind: KindBounded, low: low, high: high, basis: basis}, nil
}

// newDerived is the only path to a derived Value. The algebra's combinators
// and the Derive builder call it; nothing outside the package can.
func newDerived(point float64, formula string, inputs []string, calib CalibrationStatus, proven bool) (Value, error) {
	if err := checkUnit("value", point); err != nil {
		return Value{}, constructionError(KindDerived, err)
	}
	if !ValidCalibrationStatus(string(calib)) {
		return Value{}, constructionError(KindDerived, fmt.Errorf("calibration status %q is not recognized", calib))
	}
	ins := make([]string, len(inputs))
	copy(ins, inputs)
	return Value{
		kind:    KindDerived,
		point:   point,
		formula: formula,
		inputs:  ins,
		calib:   calib,
		proof:   proofToken{minted: proven},
	}, nil
}

func checkUnit(field string, v float64) error {
	if v != v { // NaN
		return fmt.Errorf("%w: %s is NaN", ErrOutOfRange, field)
	}
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: %s = %g", ErrOutOfRange, field, v)
	}
	return nil
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsAbsent() bool { return v.kind == KindAbsent || v.kind == "" }

// Truth reports the deterministic truth value; ok is false for any other
// variant.
func (v Value) Truth() (truth, ok bool) {
	return v.truth, v.kind == KindDeterministic
}

func (v Value) Reason() string { return v.reason }

// Point returns the single-number reading of the value. Absent has no
// point; Bounded reports its pessimistic lower bound.
func (v Value) Point() (float64, bool) {
	switch v.kind {
	case KindDeterministic:
		if v.truth {
			return 1, true
		}
		return 0, true
	case KindDerived, KindMeasured:
		return v.point, true
	case KindBounded:
		return v.low, true
	default:
		return 0, false
	}
}

// Bounds returns the interval [low, high] the value occupies. Every
// non-absent variant has one; point variants collapse to a single point.
func (v Value) Bounds() (low, high float64, ok bool) {
	switch v.kind {
	case KindDeterministic:
		if v.truth {
			return 1, 1, true
		}
		return 0, 0, true
	case KindDerived, KindMeasured:
		return v.point, v.point, true
	case KindBounded:
		return v.low, v.high, true
	default:
		return 0, 0, false
	}
}

func (v Value) CalibrationStatus() CalibrationStatus {
	if v.kind == KindMeasured {
		return CalibrationPreserved
	}
	return v.calib
}

func (v Value) Formula() string { return v.formula }

func (v Value) Inputs() []string {
	out := make([]string, len(v.inputs))
	copy(out, v.inputs)
	return out
}

// Proven reports whether this derived value was produced by Derive. It is
// false for every other variant, and false for derived values decoded from
// JSON: the proof token is deliberately not serializable.
func (v Value) Proven() bool { return v.proof.minted }

func (v Value) DatasetID() string { return v.datasetID }
func (v Value) SampleSize() int   { return v.sampleSize }
func (v Value) Accuracy() float64 { return v.accuracy }

func (v Value) CI95() (low, high float64) { return v.ciLo, v.ciHi }

func (v Value) Basis() Basis { return v.basis }

// Equal reports structural equality, ignoring the proof token.
func (v Value) Equal(o Value) bool { return v.key() == o.key() }

// key is a canonical encoding used for equality and as the final tie-break
// in Compare, so that Compare(a,b)==0 implies Equal(a,b).
func (v Value) key() string {
	var b strings.Builder
	b.WriteString(string(v.normKind()))
	b.WriteByte('|')
	switch v.normKind() {
	case KindDeterministic:
		b.WriteString(strconv.FormatBool(v.truth))
		b.WriteByte('|')
		b.WriteString(v.reason)
	case KindAbsent:
		b.WriteString(v.reason)
	case KindDerived:
		b.WriteString(strconv.FormatFloat(v.point, 'g', -1, 64))
		b.WriteByte('|')
		b.WriteString(v.formula)
		b.WriteByte('|')
		b.WriteString(strings.Join(v.inputs, ","))
		b.WriteByte('|')
		b.WriteString(string(v.calib))
	case KindMeasured:
		fmt.Fprintf(&b, "%g|%s|%d|%g|%g|%g", v.point, v.datasetID, v.sampleSize, v.accuracy, v.ciLo, v.ciHi)
	case KindBounded:
		fmt.Fprintf(&b, "%g|%g|%s", v.low, v.high, v.basis)
	}
	return b.String()
}

func (v Value) normKind() Kind {
	if v.kind == "" {
		return KindAbsent
	}
	return v.kind
}

func (v Value) String() string {
	switch v.normKind() {
	case KindDeterministic:
		return fmt.Sprintf("Deterministic(%t, %q)", v.truth, v.reason)
	case KindDerived:
		return fmt.Sprintf("Derived(%.4f, %s)", v.point, v.formula)
	case KindMeasured:
		return fmt.Sprintf("Measured(%.4f, %s, n=%d)", v.point, v.datasetID, v.sampleSize)
	case KindBounded:
		return fmt.Sprintf("Bounded[%.4f, %.4f](%s)", v.low, v.high, v.basis)
	default:
		return fmt.Sprintf("Absent(%q)", v.reason)
	}
}

// valueJSON is the {type, ...fields} wire form of a Value.
type valueJSON struct {
	Type       Kind              `json:"type"`
	Truth      *bool             `json:"truth,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Value      *float64          `json:"value,omitempty"`
	Formula    string            `json:"formula,omitempty"`
	Inputs     []string          `json:"inputs,omitempty"`
	Calib      CalibrationStatus `json:"calibration_status,omitempty"`
	DatasetID  string            `json:"dataset_id,omitempty"`
	SampleSize *int              `json:"sample_size,omitempty"`
	Accuracy   *float64          `json:"accuracy,omitempty"`
	CILow      *float64          `json:"ci_95_low,omitempty"`
	CIHigh     *float64          `json:"ci_95_high,omitempty"`
	Low        *float64          `json:"low,omitempty"`
	High       *float64          `json:"high,omitempty"`
	Basis      Basis             `json:"basis,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	j := valueJSON{Type: v.normKind(), Reason: v.reason}
	switch j.Type {
	case KindDeterministic:
		t := v.truth
		j.Truth = &t
	case KindDerived:
		p := v.point
		j.Value = &p
		j.Formula = v.formula
		j.Inputs = v.Inputs()
		j.Calib = v.calib
	case KindMeasured:
		p, n, a, lo, hi := v.point, v.sampleSize, v.accuracy, v.ciLo, v.ciHi
		j.Value = &p
		j.DatasetID = v.datasetID
		j.SampleSize = &n
		j.Accuracy = &a
		j.CILow = &lo
		j.CIHigh = &hi
	case KindBounded:
		lo, hi := v.low, v.high
		j.Low = &lo
		j.High = &hi
		j.Basis = v.basis
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes the tagged union through the same validating
// constructors as direct construction. A decoded derived value is not
// proven.
func (v *Value) UnmarshalJSON(data []byte) error {
	var j valueJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	switch j.Type {
	case KindDeterministic:
		if j.Truth == nil {
			return constructionError(KindDeterministic, fmt.Errorf("missing truth field"))
		}
		*v = Deterministic(*j.Truth, j.Reason)
	case KindAbsent:
		*v = Absent(j.Reason)
	case KindMeasured:
		if j.Value == nil || j.SampleSize == nil {
			return constructionError(KindMeasured, fmt.Errorf("missing value or sample_size"))
		}
		var acc, lo, hi float64
		if j.Accuracy != nil {
			acc = *j.Accuracy
		}
		if j.CILow != nil {
			lo = *j.CILow
		}
		if j.CIHigh != nil {
			hi = *j.CIHigh
		}
		m, err := NewMeasured(*j.Value, j.DatasetID, *j.SampleSize, acc, lo, hi)
		if err != nil {
			return err
		}
		*v = m
	case KindBounded:
		if j.Low == nil || j.High == nil {
			return constructionError(KindBounded, fmt.Errorf("missing low or high"))
		}
		b, err := NewBounded(*j.Low, *j.High, j.Basis)
		if err != nil {
			return err
		}
		*v = b
	case KindDerived:
		if j.Value == nil {
			return constructionError(KindDerived, fmt.Errorf("missing value"))
		}
		if j.Calib == "" {
			return constructionError(KindDerived, fmt.Errorf("calibration_status is required on derived values"))
		}
		d, err := newDerived(*j.Value, j.Formula, j.Inputs, j.Calib, false)
		if err != nil {
			return err
		}
		*v = d
	default:
		return fmt.Errorf("unknown confidence value type %q", j.Type)
	}
	return nil
}
