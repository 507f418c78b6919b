// Package types defines the value types carried by configuration entries and
// state fields.
package types

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Scalar types.
type (
	Boolean = bool
	Integer = int64
	Real    = float64
	String  = string
)

// Fixed size vectors of Reals.
type (
	Vector2 [2]Real
	Vector3 [3]Real
	Vector4 [4]Real
)

// Matrix is a dense matrix of Reals. A nil Matrix is the zero value.
type Matrix = *mat.Dense

// Vector is the constraint satisfied by every fixed size vector type.
type Vector interface {
	Vector2 | Vector3 | Vector4
}

// Numeric is the constraint satisfied by Real and every vector type.
type Numeric interface {
	Real | Vector2 | Vector3 | Vector4
}

// NaN returns a value of T with every component set to NaN.
func NaN[T Numeric]() T {
	var out T
	switch p := any(&out).(type) {
	case *Real:
		*p = math.NaN()
	case *Vector2:
		for i := range p {
			p[i] = math.NaN()
		}
	case *Vector3:
		for i := range p {
			p[i] = math.NaN()
		}
	case *Vector4:
		for i := range p {
			p[i] = math.NaN()
		}
	}
	return out
}

// Components returns the components of v as a new slice.
func Components[T Numeric](v T) []Real {
	switch x := any(v).(type) {
	case Real:
		return []Real{x}
	case Vector2:
		return x[:]
	case Vector3:
		return x[:]
	case Vector4:
		return x[:]
	}
	return nil
}

// FromComponents builds a T from exactly len(T) components.
func FromComponents[T Numeric](c []Real) (T, error) {
	var out T
	dst := Components(out)
	if len(c) != len(dst) {
		return out, fmt.Errorf("types: %T needs %d components, got %d", out, len(dst), len(c))
	}
	switch p := any(&out).(type) {
	case *Real:
		*p = c[0]
	case *Vector2:
		copy(p[:], c)
	case *Vector3:
		copy(p[:], c)
	case *Vector4:
		copy(p[:], c)
	}
	return out, nil
}

// R3 converts v to a gonum r3 vector.
func (v Vector3) R3() r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// FromR3 converts a gonum r3 vector to a Vector3.
func FromR3(v r3.Vec) Vector3 { return Vector3{v.X, v.Y, v.Z} }

// IsFinite reports whether every component of v is finite.
func IsFinite[T Numeric](v T) bool {
	for _, c := range Components(v) {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// NewMatrix builds a Matrix from rows of equal length.
func NewMatrix(rows [][]Real) (Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("types: matrix must have at least one row and column")
	}
	cols := len(rows[0])
	data := make([]Real, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("types: matrix row %d has %d columns, want %d", i, len(r), cols)
		}
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// MatrixRows returns the rows of m. A nil matrix has no rows.
func MatrixRows(m Matrix) [][]Real {
	if m == nil {
		return nil
	}
	r, c := m.Dims()
	out := make([][]Real, r)
	for i := range out {
		out[i] = make([]Real, c)
		mat.Row(out[i], i, m)
	}
	return out
}
