package confidence

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDeterministicBounds(t *testing.T) {
	v := Deterministic(true, "type checker proved it")
	if lo, hi, ok := v.Bounds(); !ok || lo != 1 || hi != 1 {
		t.Errorf("Deterministic(true) bounds = [%f, %f], want [1, 1]", lo, hi)
	}
	v = Deterministic(false, "counterexample found")
	if p, ok := v.Point(); !ok || p != 0 {
		t.Errorf("Deterministic(false) point = %f, want 0", p)
	}
	if v.Reason() != "counterexample found" {
		t.Errorf("reason = %q", v.Reason())
	}
}

func TestNewBoundedRejectsInvertedBounds(t *testing.T) {
	_, err := NewBounded(0.8, 0.3, BasisTheoretical)
	if !errors.Is(err, ErrInvertedBounds) {
		t.Fatalf("expected ErrInvertedBounds, got %v", err)
	}
	var ce *ConstructionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConstructionError, got %T", err)
	}
	if ce.Kind != KindBounded {
		t.Errorf("ConstructionError kind = %s, want bounded", ce.Kind)
	}
}

func TestNewBoundedRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name      string
		low, high float64
	}{
		{"negative low", -0.1, 0.5},
		{"high above one", 0.5, 1.2},
		{"both out", -1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBounded(tt.low, tt.high, BasisEstimated); !errors.Is(err, ErrOutOfRange) {
				t.Errorf("NewBounded(%g, %g) error = %v, want ErrOutOfRange", tt.low, tt.high, err)
			}
		})
	}
}

func TestNewBoundedRejectsBadBasis(t *testing.T) {
	if _, err := NewBounded(0.2, 0.4, Basis("vibes")); !errors.Is(err, ErrBadBasis) {
		t.Fatalf("expected ErrBadBasis, got %v", err)
	}
}

func TestNewMeasuredValidation(t *testing.T) {
	if _, err := NewMeasured(1.5, "ds-1", 100, 0.9, 0.8, 0.95); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("rate 1.5: got %v, want ErrOutOfRange", err)
	}
	if _, err := NewMeasured(0.8, "ds-1", -3, 0.9, 0.7, 0.9); !errors.Is(err, ErrBadSampleSize) {
		t.Errorf("negative sample size: got %v, want ErrBadSampleSize", err)
	}
	if _, err := NewMeasured(0.8, "ds-1", 100, 0.9, 0.9, 0.7); !errors.Is(err, ErrInvertedBounds) {
		t.Errorf("inverted ci: got %v, want ErrInvertedBounds", err)
	}

	m, err := NewMeasured(0.8, "ds-1", 100, 0.92, 0.71, 0.87)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.DatasetID() != "ds-1" || m.SampleSize() != 100 {
		t.Errorf("measured fields lost: %s", m)
	}
	if m.CalibrationStatus() != CalibrationPreserved {
		t.Errorf("measured calibration = %s, want preserved", m.CalibrationStatus())
	}
}

func TestAbsentHasNoPoint(t *testing.T) {
	a := Absent("no evidence retrieved")
	if _, ok := a.Point(); ok {
		t.Fatal("Absent must not yield a point estimate")
	}
	if !a.IsAbsent() {
		t.Fatal("IsAbsent() = false")
	}
}

func TestZeroValueIsAbsent(t *testing.T) {
	var v Value
	if !v.IsAbsent() {
		t.Fatal("zero Value should behave as Absent")
	}
	if _, ok := v.Point(); ok {
		t.Fatal("zero Value must not yield a point")
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	measured, _ := NewMeasured(0.8, "eval-set-3", 250, 0.97, 0.74, 0.85)
	bounded, _ := NewBounded(0.3, 0.6, BasisLiterature)
	derived, err := Derive(Apply{Op: CombinatorMeet, Args: []Expr{Ref{"a"}, Ref{"b"}}}, map[string]Value{
		"a": measured,
		"b": Deterministic(true, "static analysis"),
	})
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	tests := []struct {
		name string
		v    Value
	}{
		{"deterministic", Deterministic(false, "refuted")},
		{"absent", Absent("not yet analyzed")},
		{"measured", measured},
		{"bounded", bounded},
		{"derived", derived},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.v)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var back Value
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unmarshal %s: %v", data, err)
			}
			if !tt.v.Equal(back) {
				t.Errorf("round trip changed value: %s -> %s", tt.v, back)
			}
		})
	}
}

func TestDecodedDerivedIsNotProven(t *testing.T) {
	derived, err := Derive(Apply{Op: CombinatorSequence, Args: []Expr{Ref{"x"}}}, map[string]Value{
		"x": Deterministic(true, "axiom"),
	})
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !derived.Proven() {
		t.Fatal("builder output must be proven")
	}

	data, _ := json.Marshal(derived)
	var back Value
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Proven() {
		t.Fatal("proof token must not survive serialization")
	}
}

func TestUnmarshalRejectsInvalidWireValues(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"out of range measured", `{"type":"measured","value":1.7,"sample_size":10}`},
		{"inverted bounded", `{"type":"bounded","low":0.9,"high":0.2,"basis":"theoretical"}`},
		{"unknown type", `{"type":"vibes"}`},
		{"derived without calibration", `{"type":"derived","value":0.5,"formula":"meet(a, b)"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			if err := json.Unmarshal([]byte(tt.data), &v); err == nil {
				t.Errorf("expected decode of %s to fail", tt.data)
			}
		})
	}
}
