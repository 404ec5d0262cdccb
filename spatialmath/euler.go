// Package spatialmath defines the rotation conventions shared by the body pose and the
// kinematics solver.
//
// The body frame is X forward, Y up and Z lateral (left positive). Roll turns about X, pitch
// about Z and yaw about Y. A body-to-world rotation applies roll first, then pitch, then yaw:
//
//	R = Ry(yaw) * Rz(pitch) * Rx(roll)
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/spotmicro/locomotion/utils"
)

// EulerAngles are three angles (in radians) used to represent the rotation of the body.
type EulerAngles struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// NewEulerAngles creates an empty EulerAngles struct.
func NewEulerAngles() *EulerAngles {
	return &EulerAngles{}
}

// NewEulerAnglesDegrees builds EulerAngles from angles given in degrees.
func NewEulerAnglesDegrees(roll, pitch, yaw float64) *EulerAngles {
	return &EulerAngles{
		Roll:  utils.DegToRad(roll),
		Pitch: utils.DegToRad(pitch),
		Yaw:   utils.DegToRad(yaw),
	}
}

// Degrees returns roll, pitch and yaw in degrees.
func (ea *EulerAngles) Degrees() (roll, pitch, yaw float64) {
	return utils.RadToDeg(ea.Roll), utils.RadToDeg(ea.Pitch), utils.RadToDeg(ea.Yaw)
}

// RotationMatrix returns the body-to-world rotation.
func (ea *EulerAngles) RotationMatrix() *RotationMatrix {
	sr, cr := math.Sincos(ea.Roll)
	sp, cp := math.Sincos(ea.Pitch)
	sy, cy := math.Sincos(ea.Yaw)

	// Ry(yaw) * Rz(pitch) * Rx(roll), expanded.
	return &RotationMatrix{mat: [9]float64{
		cy * cp, -cy*sp*cr + sy*sr, cy*sp*sr + sy*cr,
		sp, cp * cr, -cp * sr,
		-sy * cp, sy*sp*cr + cy*sr, -sy*sp*sr + cy*cr,
	}}
}

// Quaternion returns the same rotation as a unit quaternion.
func (ea *EulerAngles) Quaternion() quat.Number {
	qx := axisQuat(ea.Roll, 1, 0, 0)
	qz := axisQuat(ea.Pitch, 0, 0, 1)
	qy := axisQuat(ea.Yaw, 0, 1, 0)
	return quat.Mul(qy, quat.Mul(qz, qx))
}

// Rotate applies the rotation to v.
func (ea *EulerAngles) Rotate(v r3.Vector) r3.Vector {
	return ea.RotationMatrix().Mul(v)
}

// Unrotate applies the inverse rotation to v.
func (ea *EulerAngles) Unrotate(v r3.Vector) r3.Vector {
	return ea.RotationMatrix().Transpose().Mul(v)
}

func (ea *EulerAngles) String() string {
	r, p, y := ea.Degrees()
	return fmt.Sprintf("roll: %.2f pitch: %.2f yaw: %.2f", r, p, y)
}

func axisQuat(theta, x, y, z float64) quat.Number {
	s, c := math.Sincos(theta / 2)
	return quat.Number{Real: c, Imag: x * s, Jmag: y * s, Kmag: z * s}
}

// QuaternionAlmostEqual is an equality test for two quaternions. A quaternion and its negation
// describe the same rotation, so both signs are accepted.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	same := utils.Float64AlmostEqual(a.Real, b.Real, tol) &&
		utils.Float64AlmostEqual(a.Imag, b.Imag, tol) &&
		utils.Float64AlmostEqual(a.Jmag, b.Jmag, tol) &&
		utils.Float64AlmostEqual(a.Kmag, b.Kmag, tol)
	if same {
		return true
	}
	return utils.Float64AlmostEqual(a.Real, -b.Real, tol) &&
		utils.Float64AlmostEqual(a.Imag, -b.Imag, tol) &&
		utils.Float64AlmostEqual(a.Jmag, -b.Jmag, tol) &&
		utils.Float64AlmostEqual(a.Kmag, -b.Kmag, tol)
}

// RotateByQuaternion rotates v by the unit quaternion q.
func RotateByQuaternion(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	out := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: out.Imag, Y: out.Jmag, Z: out.Kmag}
}
