package geometry

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transform places a local frame in its mother frame: a point p in local
// coordinates sits at Rotation.Rotate(p) + Translation in the mother.
type Transform struct {
	Translation r3.Vec
	Rotation    r3.Rotation
}

// Identity returns the transform that leaves points unchanged.
func Identity() Transform {
	return Transform{Rotation: r3.NewRotation(0, r3.Vec{Z: 1})}
}

// Translate returns an unrotated transform.
func Translate(v r3.Vec) Transform {
	t := Identity()
	t.Translation = v
	return t
}

// RotateZ returns a transform rotated by angle (radians) about z, then translated.
func RotateZ(angle float64, v r3.Vec) Transform {
	return Transform{Translation: v, Rotation: r3.NewRotation(angle, r3.Vec{Z: 1})}
}

// ToGlobal maps a local point into the mother frame.
func (t Transform) ToGlobal(p r3.Vec) r3.Vec {
	return r3.Add(t.rotation().Rotate(p), t.Translation)
}

// ToLocal maps a mother-frame point into the local frame.
func (t Transform) ToLocal(p r3.Vec) r3.Vec {
	inv := r3.Rotation(quat.Conj(quat.Number(t.rotation())))
	return inv.Rotate(r3.Sub(p, t.Translation))
}

// Compose returns the transform of a child frame placed by child inside t.
func (t Transform) Compose(child Transform) Transform {
	rot := r3.Rotation(quat.Mul(quat.Number(t.rotation()), quat.Number(child.rotation())))
	return Transform{
		Translation: t.ToGlobal(child.Translation),
		Rotation:    rot,
	}
}

// rotation treats the zero value as the identity so literal Transforms
// with only a translation behave.
func (t Transform) rotation() r3.Rotation {
	if t.Rotation == (r3.Rotation{}) {
		return r3.NewRotation(0, r3.Vec{Z: 1})
	}
	return t.Rotation
}
