package confidence

// The (Meet, Join) pair forms a bounded semilattice over a total order:
// Meet returns the smaller argument, Join the larger, so associativity,
// commutativity, idempotence and absorption hold by construction. The
// order is pessimistic: lower bound first, then upper bound, then a fixed
// kind rank, then a canonical encoding so the order is total.

// Top is the greatest element, logical certainty.
func Top() Value { return Deterministic(true, "") }

// Bottom is the least element, explicit absence.
func Bottom() Value { return Absent("") }

var kindOrder = map[Kind]int{
	KindAbsent:        0,
	KindBounded:       1,
	KindDerived:       2,
	KindMeasured:      3,
	KindDeterministic: 4,
}

// Compare orders a against b: -1, 0 or +1. Absent sorts below every
// non-absent value; equal intervals are broken by kind rank and finally by
// canonical encoding, so Compare(a, b) == 0 implies a.Equal(b).
func Compare(a, b Value) int {
	aLo, aHi, aOK := a.Bounds()
	bLo, bHi, bOK := b.Bounds()
	switch {
	case !aOK && !bOK:
		return compareStrings(a.key(), b.key())
	case !aOK:
		return -1
	case !bOK:
		return 1
	}
	if aLo != bLo {
		return sign(aLo - bLo)
	}
	if aHi != bHi {
		return sign(aHi - bHi)
	}
	if d := kindOrder[a.normKind()] - kindOrder[b.normKind()]; d != 0 {
		return sign(float64(d))
	}
	// Two deterministic-true values differ only by reason; the untagged
	// Top() must sit above every tagged certainty, so reasons order
	// reversed here (empty string greatest).
	if a.normKind() == KindDeterministic {
		return compareStrings(b.reason, a.reason)
	}
	return compareStrings(a.key(), b.key())
}

func sign(f float64) int {
	switch {
	case f < 0:
		return -1
	case f > 0:
		return 1
	default:
		return 0
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Meet is conservative AND: the smaller of the two values. Absent is
// absorbing, because Absent is the bottom of the order; use
// MeetSkippingAbsent to opt out of that.
func Meet(a, b Value) Value {
	if Compare(a, b) <= 0 {
		return a
	}
	return b
}

// Join is optimistic OR: the larger of the two values. It is not the
// independent-probability OR; callers wanting 1-(1-a)(1-b) must use
// JoinIndependent explicitly, the two are not interchangeable.
func Join(a, b Value) Value {
	if Compare(a, b) >= 0 {
		return a
	}
	return b
}

// MeetAll folds Meet over vs. The empty meet is Top.
func MeetAll(vs ...Value) Value {
	out := Top()
	for _, v := range vs {
		out = Meet(out, v)
	}
	return out
}

// JoinAll folds Join over vs. The empty join is Bottom.
func JoinAll(vs ...Value) Value {
	out := Bottom()
	for _, v := range vs {
		out = Join(out, v)
	}
	return out
}

// MeetSkippingAbsent is the documented opt-in that treats Absent inputs as
// neutral instead of absorbing. If every input is absent the result is
// still Absent: skipping never invents a number.
func MeetSkippingAbsent(vs ...Value) Value {
	kept := make([]Value, 0, len(vs))
	for _, v := range vs {
		if !v.IsAbsent() {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return Absent("all inputs absent")
	}
	return MeetAll(kept...)
}

// JoinIndependent combines two values under an independence assumption:
// 1-(1-a)(1-b) over the values' intervals. Absent propagates, never
// coerced to a number.
func JoinIndependent(a, b Value) (Value, error) {
	if a.IsAbsent() {
		return Absent("independent-or with absent input: " + a.reason), nil
	}
	if b.IsAbsent() {
		return Absent("independent-or with absent input: " + b.reason), nil
	}
	aLo, aHi, _ := a.Bounds()
	bLo, bHi, _ := b.Bounds()
	lo := 1 - (1-aLo)*(1-bLo)
	hi := 1 - (1-aHi)*(1-bHi)
	return arithmeticResult("independent_or", lo, hi, statusFor(opArithmetic, a, b))
}

// Product is independent AND: the product of the two values' intervals.
// The result's calibration is degraded unless both inputs are Measured;
// multiplying calibrated rates does not keep them calibrated.
func Product(a, b Value) (Value, error) {
	if a.IsAbsent() {
		return Absent("product with absent input: " + a.reason), nil
	}
	if b.IsAbsent() {
		return Absent("product with absent input: " + b.reason), nil
	}
	aLo, aHi, _ := a.Bounds()
	bLo, bHi, _ := b.Bounds()
	return arithmeticResult("product", aLo*bLo, aHi*bHi, statusFor(opArithmetic, a, b))
}

// Complement inverts a value: the discount an active defeater of the given
// strength applies. Deterministic values negate; everything else maps its
// interval to [1-high, 1-low].
func Complement(v Value) Value {
	switch v.normKind() {
	case KindAbsent:
		return v
	case KindDeterministic:
		return Deterministic(!v.truth, v.reason)
	default:
		lo, hi, _ := v.Bounds()
		out, err := arithmeticResult("complement", 1-hi, 1-lo, statusFor(opOrderStatistic, v))
		if err != nil {
			// Inputs were in range, so 1-hi and 1-lo are too.
			return Absent("complement construction failed")
		}
		return out
	}
}

// arithmeticResult wraps a computed interval as a Value: a derived point
// when the interval collapses, a formal-analysis bound otherwise.
func arithmeticResult(op string, lo, hi float64, calib CalibrationStatus) (Value, error) {
	lo = clampUnit(lo)
	hi = clampUnit(hi)
	if lo == hi {
		return newDerived(lo, op, nil, calib, false)
	}
	return NewBounded(lo, hi, BasisFormalAnalysis)
}

// clampUnit squashes float rounding dust at the interval edges. Values
// produced here are products and complements of in-range numbers, so any
// excursion beyond [0,1] is representation error, not a semantic one.
func clampUnit(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

type opClass int

const (
	// opOrderStatistic selects one of its inputs (meet, join, n-ary
	// sequence/parallel): a calibrated input stays calibrated.
	opOrderStatistic opClass = iota
	// opArithmetic computes a new number (product, independent-or,
	// complement): calibration does not survive unless every input is a
	// direct measurement.
	opArithmetic
)

// statusFor is the documented calibration-status table. It only ever
// degrades; no combination upgrades a status.
func statusFor(class opClass, inputs ...Value) CalibrationStatus {
	allMeasured := true
	worst := CalibrationPreserved
	for _, in := range inputs {
		if in.Kind() != KindMeasured {
			allMeasured = false
		}
		switch in.Kind() {
		case KindMeasured, KindDeterministic:
			// exact or directly measured: no downgrade
		case KindBounded:
			worst = worse(worst, CalibrationUnknown)
		case KindDerived:
			worst = worse(worst, in.CalibrationStatus())
		default:
			worst = worse(worst, CalibrationUnknown)
		}
	}
	if allMeasured && len(inputs) > 0 {
		return CalibrationDerivedFromMeasured
	}
	if class == opArithmetic {
		return worse(worst, CalibrationDegraded)
	}
	return worst
}

var statusSeverity = map[CalibrationStatus]int{
	CalibrationPreserved:           0,
	CalibrationDerivedFromMeasured: 1,
	CalibrationDegraded:            2,
	CalibrationUnknown:             3,
}

func worse(a, b CalibrationStatus) CalibrationStatus {
	if statusSeverity[b] > statusSeverity[a] {
		return b
	}
	return a
}
