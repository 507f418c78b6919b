package truth

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/psim/types"
)

// EarthRate is the sidereal rotation rate of the Earth in rad/s.
const EarthRate = 7.2921150e-5

// Quaternions are stored as Vector4 with the scalar last.

func toQuat(q types.Vector4) quat.Number {
	return quat.Number{Real: q[3], Imag: q[0], Jmag: q[1], Kmag: q[2]}
}

func fromQuat(q quat.Number) types.Vector4 {
	return types.Vector4{q.Imag, q.Jmag, q.Kmag, q.Real}
}

// conj returns the inverse of a unit quaternion.
func conj(q types.Vector4) types.Vector4 {
	return fromQuat(quat.Conj(toQuat(q)))
}

// rotateFrame expresses v, given in frame A, in frame B where q is q_B_A.
func rotateFrame(q types.Vector4, v types.Vector3) types.Vector3 {
	n := toQuat(q)
	p := quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}
	r := quat.Mul(quat.Mul(n, p), quat.Conj(n))
	return types.Vector3{r.Imag, r.Jmag, r.Kmag}
}

// frameRotationZ returns q_B_A for a frame B rotated by angle about A's z
// axis.
func frameRotationZ(angle float64) types.Vector4 {
	s, c := math.Sincos(-angle / 2)
	return types.Vector4{0, 0, s, c}
}

func cross(a, b types.Vector3) types.Vector3 {
	return types.FromR3(r3.Cross(a.R3(), b.R3()))
}
