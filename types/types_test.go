package types

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestNaNAndIsFinite(t *testing.T) {
	if v := NaN[Real](); !math.IsNaN(v) {
		t.Fatalf("NaN[Real]() = %v, want NaN", v)
	}
	v3 := NaN[Vector3]()
	for i, c := range v3 {
		if !math.IsNaN(c) {
			t.Fatalf("NaN[Vector3]()[%d] = %v, want NaN", i, c)
		}
	}
	if IsFinite(v3) {
		t.Fatalf("IsFinite(NaN vector) = true, want false")
	}
	if !IsFinite(Vector2{1, 2}) {
		t.Fatalf("IsFinite(Vector2{1,2}) = false, want true")
	}
	if IsFinite(Vector2{1, math.Inf(1)}) {
		t.Fatalf("IsFinite with +Inf = true, want false")
	}
}

func TestFromComponents(t *testing.T) {
	v, err := FromComponents[Vector4]([]Real{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("FromComponents: %v", err)
	}
	if v != (Vector4{1, 2, 3, 4}) {
		t.Fatalf("FromComponents = %v, want [1 2 3 4]", v)
	}
	if _, err := FromComponents[Vector2]([]Real{1}); err == nil {
		t.Fatalf("expected error for short component slice")
	}
	r, err := FromComponents[Real]([]Real{7})
	if err != nil || r != 7 {
		t.Fatalf("FromComponents[Real] = %v, %v, want 7, nil", r, err)
	}
}

func TestR3RoundTrip(t *testing.T) {
	v := Vector3{1, -2, 3}
	if got := FromR3(r3.Scale(2, v.R3())); got != (Vector3{2, -4, 6}) {
		t.Fatalf("FromR3(2*v) = %v, want [2 -4 6]", got)
	}
}

func TestNewMatrix(t *testing.T) {
	m, err := NewMatrix([][]Real{{1, 2}, {3, 4}, {5, 6}})
	if err != nil {
		t.Fatalf("NewMatrix: %v", err)
	}
	if r, c := m.Dims(); r != 3 || c != 2 {
		t.Fatalf("Dims = %dx%d, want 3x2", r, c)
	}
	if got := m.At(2, 1); got != 6 {
		t.Fatalf("At(2,1) = %v, want 6", got)
	}
	rows := MatrixRows(m)
	if len(rows) != 3 || rows[1][0] != 3 {
		t.Fatalf("MatrixRows = %v", rows)
	}
	if _, err := NewMatrix([][]Real{{1, 2}, {3}}); err == nil {
		t.Fatalf("expected ragged matrix error")
	}
	if MatrixRows(nil) != nil {
		t.Fatalf("MatrixRows(nil) should be nil")
	}
}
