package rig

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a translation / rotation / scale triple. Composition follows
// the child-times-parent convention: a.Mul(b) applies a first, then b.
type Transform struct {
	Translation mgl64.Vec3 `json:"translation" yaml:"translation"`
	Rotation    mgl64.Quat `json:"rotation" yaml:"rotation"`
	Scale       mgl64.Vec3 `json:"scale" yaml:"scale"`
}

const (
	// equalTolerance is the per-component tolerance for identity checks.
	equalTolerance = 1e-6
	// writeTolerance is the per-component tolerance below which a write
	// to a clean cell is skipped.
	writeTolerance = 1e-9
)

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// Translate returns a pure translation.
func Translate(x, y, z float64) Transform {
	t := Identity()
	t.Translation = mgl64.Vec3{x, y, z}
	return t
}

// Rotate returns a pure rotation of angle radians around axis.
func Rotate(angle float64, axis mgl64.Vec3) Transform {
	t := Identity()
	t.Rotation = mgl64.QuatRotate(angle, axis.Normalize())
	return t
}

// UniformScale returns a pure uniform scale.
func UniformScale(s float64) Transform {
	t := Identity()
	t.Scale = mgl64.Vec3{s, s, s}
	return t
}

// NewTransform builds a transform from its parts. The rotation is normalized.
func NewTransform(translation mgl64.Vec3, rotation mgl64.Quat, scale mgl64.Vec3) Transform {
	return Transform{Translation: translation, Rotation: rotation.Normalize(), Scale: scale}
}

// Mul composes t with parent: the result maps a point through t, then parent.
//
//	R = Rp * Rt
//	S = St * Sp
//	T = Rp(Sp * Tt) + Tp
func (t Transform) Mul(parent Transform) Transform {
	return Transform{
		Translation: parent.Rotation.Rotate(mulVec(parent.Scale, t.Translation)).Add(parent.Translation),
		Rotation:    parent.Rotation.Mul(t.Rotation),
		Scale:       mulVec(t.Scale, parent.Scale),
	}
}

// Inverse returns the transform undoing t. Exact for uniform scale.
// Zero scale components invert to zero.
func (t Transform) Inverse() Transform {
	invRot := t.Rotation.Inverse()
	invScale := safeReciprocal(t.Scale)
	return Transform{
		Translation: invRot.Rotate(mulVec(invScale, t.Translation.Mul(-1))),
		Rotation:    invRot,
		Scale:       invScale,
	}
}

// RelativeTo returns the transform x such that x.Mul(parent) == t. This is
// how a Local cell is derived from its Global counterpart.
func (t Transform) RelativeTo(parent Transform) Transform {
	invRot := parent.Rotation.Inverse()
	invScale := safeReciprocal(parent.Scale)
	return Transform{
		Translation: mulVec(invRot.Rotate(t.Translation.Sub(parent.Translation)), invScale),
		Rotation:    invRot.Mul(t.Rotation),
		Scale:       mulVec(t.Scale, invScale),
	}
}

// TransformPoint maps a point through t.
func (t Transform) TransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(mulVec(t.Scale, p)).Add(t.Translation)
}

// NormalizeRotation returns t with a unit rotation quaternion.
func (t Transform) NormalizeRotation() Transform {
	t.Rotation = t.Rotation.Normalize()
	return t
}

// Equal reports whether every component of t and o differs by at most tol.
// Rotations q and -q are the same orientation and compare equal.
func (t Transform) Equal(o Transform, tol float64) bool {
	return vecNear(t.Translation, o.Translation, tol) &&
		vecNear(t.Scale, o.Scale, tol) &&
		quatNear(t.Rotation, o.Rotation, tol)
}

func vecNear(a, b mgl64.Vec3, tol float64) bool {
	return math.Abs(a[0]-b[0]) <= tol && math.Abs(a[1]-b[1]) <= tol && math.Abs(a[2]-b[2]) <= tol
}

func quatNear(a, b mgl64.Quat, tol float64) bool {
	if math.Abs(a.W-b.W) <= tol && vecNear(a.V, b.V, tol) {
		return true
	}
	return math.Abs(a.W+b.W) <= tol && vecNear(a.V, b.V.Mul(-1), tol)
}

// IsIdentity reports whether t is the identity within equalTolerance.
func (t Transform) IsIdentity() bool {
	return t.Equal(Identity(), equalTolerance)
}

// hasZeroScale reports whether any scale axis is nearly zero.
func (t Transform) hasZeroScale() bool {
	return nearlyZero(t.Scale[0]) || nearlyZero(t.Scale[1]) || nearlyZero(t.Scale[2])
}

func mulVec(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func safeReciprocal(v mgl64.Vec3) mgl64.Vec3 {
	var r mgl64.Vec3
	for i := range v {
		if !nearlyZero(v[i]) {
			r[i] = 1 / v[i]
		}
	}
	return r
}

func nearlyZero(x float64) bool {
	return x > -smallNumber && x < smallNumber
}
