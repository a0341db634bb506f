// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "github.com/chewxy/math32"

// Vec3 is a 3-component float vector, the model-space analogue of
// server/world/vec2f.go's Vec2f, extended to three dimensions and backed
// by math32 throughout.
type Vec3 struct {
	X, Y, Z float32
}

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Mul(s float32) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

func (a Vec3) Dot(b Vec3) float32 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func (a Vec3) Length() float32 {
	return math32.Sqrt(a.Dot(a))
}

func (a Vec3) Normalized() Vec3 {
	l := a.Length()
	if l == 0 {
		return a
	}
	return a.Mul(1 / l)
}

func (a Vec3) Min(b Vec3) Vec3 {
	return Vec3{min32(a.X, b.X), min32(a.Y, b.Y), min32(a.Z, b.Z)}
}

func (a Vec3) Max(b Vec3) Vec3 {
	return Vec3{max32(a.X, b.X), max32(a.Y, b.Y), max32(a.Z, b.Z)}
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Quat is a unit quaternion (x, y, z, w).
type Quat struct {
	X, Y, Z, W float32
}

// IdentityQuat is the no-rotation quaternion.
var IdentityQuat = Quat{W: 1}

func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

func (q Quat) Conjugate() Quat {
	return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// RotateVec3 rotates v by the unit quaternion q.
func (q Quat) RotateVec3(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	s := q.W
	t := u.Cross(v).Mul(2)
	return v.Add(t.Mul(s)).Add(u.Cross(t))
}

// Mat4x3 is a 4x3 affine transform: a 3x3 basis (columns X, Y, Z) plus a
// translation.
type Mat4x3 struct {
	X, Y, Z Vec3 // basis columns (rotation * scale)
	W       Vec3 // translation
}

// IdentityMat4x3 is the no-op transform.
var IdentityMat4x3 = Mat4x3{X: Vec3{X: 1}, Y: Vec3{Y: 1}, Z: Vec3{Z: 1}}

// TransformPoint applies m to a position (includes translation).
func (m Mat4x3) TransformPoint(v Vec3) Vec3 {
	return m.X.Mul(v.X).Add(m.Y.Mul(v.Y)).Add(m.Z.Mul(v.Z)).Add(m.W)
}

// TransformDirection applies m's linear part only (no translation), used
// for normals/tangents/bitangents.
func (m Mat4x3) TransformDirection(v Vec3) Vec3 {
	return m.X.Mul(v.X).Add(m.Y.Mul(v.Y)).Add(m.Z.Mul(v.Z))
}

// Mul composes a*b such that (a.Mul(b)).TransformPoint(v) == a.TransformPoint(b.TransformPoint(v)).
func (a Mat4x3) Mul(b Mat4x3) Mat4x3 {
	return Mat4x3{
		X: a.TransformDirection(b.X),
		Y: a.TransformDirection(b.Y),
		Z: a.TransformDirection(b.Z),
		W: a.TransformPoint(b.W),
	}
}

// determinant3 returns the determinant of the 3x3 linear part.
func (m Mat4x3) determinant3() float32 {
	return m.X.X*(m.Y.Y*m.Z.Z-m.Y.Z*m.Z.Y) -
		m.Y.X*(m.X.Y*m.Z.Z-m.X.Z*m.Z.Y) +
		m.Z.X*(m.X.Y*m.Y.Z-m.X.Z*m.Y.Y)
}

// Inverse returns m's inverse, used to reverse pretransformed vertex
// positions back into local space. It returns ok=false for a singular
// (non-invertible) transform.
func (m Mat4x3) Inverse() (Mat4x3, bool) {
	det := m.determinant3()
	if det == 0 {
		return Mat4x3{}, false
	}
	invDet := 1 / det

	cx := Vec3{
		X: (m.Y.Y*m.Z.Z - m.Y.Z*m.Z.Y) * invDet,
		Y: (m.X.Z*m.Z.Y - m.X.Y*m.Z.Z) * invDet,
		Z: (m.X.Y*m.Y.Z - m.X.Z*m.Y.Y) * invDet,
	}
	cy := Vec3{
		X: (m.Y.Z*m.Z.X - m.Y.X*m.Z.Z) * invDet,
		Y: (m.X.X*m.Z.Z - m.X.Z*m.Z.X) * invDet,
		Z: (m.X.Z*m.Y.X - m.X.X*m.Y.Z) * invDet,
	}
	cz := Vec3{
		X: (m.Y.X*m.Z.Y - m.Y.Y*m.Z.X) * invDet,
		Y: (m.X.Y*m.Z.X - m.X.X*m.Z.Y) * invDet,
		Z: (m.X.X*m.Y.Y - m.X.Y*m.Y.X) * invDet,
	}
	inv := Mat4x3{X: cx, Y: cy, Z: cz}
	inv.W = inv.TransformDirection(m.W).Mul(-1)
	return inv, true
}

// Decompose splits m into scale, rotation quaternion, and translation for
// the mesh writer's node serialization.
func (m Mat4x3) Decompose() (scale Vec3, rot Quat, translation Vec3) {
	scale = Vec3{X: m.X.Length(), Y: m.Y.Length(), Z: m.Z.Length()}
	translation = m.W

	norm := func(v Vec3, s float32) Vec3 {
		if s == 0 {
			return v
		}
		return v.Mul(1 / s)
	}
	bx, by, bz := norm(m.X, scale.X), norm(m.Y, scale.Y), norm(m.Z, scale.Z)

	// Negative determinant => a reflection baked into scale; flip one axis
	// into rotation so the quaternion stays a pure rotation.
	det := bx.Dot(by.Cross(bz))
	if det < 0 {
		bx = bx.Mul(-1)
		scale.X = -scale.X
	}

	trace := bx.X + by.Y + bz.Z
	switch {
	case trace > 0:
		s := math32.Sqrt(trace+1) * 2
		rot = Quat{
			W: s / 4,
			X: (by.Z - bz.Y) / s,
			Y: (bz.X - bx.Z) / s,
			Z: (bx.Y - by.X) / s,
		}
	case bx.X > by.Y && bx.X > bz.Z:
		s := math32.Sqrt(1+bx.X-by.Y-bz.Z) * 2
		rot = Quat{
			W: (by.Z - bz.Y) / s,
			X: s / 4,
			Y: (by.X + bx.Y) / s,
			Z: (bz.X + bx.Z) / s,
		}
	case by.Y > bz.Z:
		s := math32.Sqrt(1+by.Y-bx.X-bz.Z) * 2
		rot = Quat{
			W: (bz.X - bx.Z) / s,
			X: (by.X + bx.Y) / s,
			Y: s / 4,
			Z: (bz.Y + by.Z) / s,
		}
	default:
		s := math32.Sqrt(1+bz.Z-bx.X-by.Y) * 2
		rot = Quat{
			W: (bx.Y - by.X) / s,
			X: (bz.X + bx.Z) / s,
			Y: (bz.Y + by.Z) / s,
			Z: s / 4,
		}
	}
	return
}

// AABB is an axis-aligned bounding box in 3D.
type AABB struct {
	Min, Max Vec3
}

// EmptyAABB returns an AABB that Union-s correctly from nothing.
func EmptyAABB() AABB {
	const inf = math32.MaxFloat32
	return AABB{Min: Vec3{inf, inf, inf}, Max: Vec3{-inf, -inf, -inf}}
}

func (a AABB) Union(b AABB) AABB {
	return AABB{Min: a.Min.Min(b.Min), Max: a.Max.Max(b.Max)}
}

func (a AABB) UnionPoint(p Vec3) AABB {
	return AABB{Min: a.Min.Min(p), Max: a.Max.Max(p)}
}

// Contains reports whether a fully contains b.
func (a AABB) Contains(b AABB) bool {
	return a.Min.X <= b.Min.X && a.Min.Y <= b.Min.Y && a.Min.Z <= b.Min.Z &&
		a.Max.X >= b.Max.X && a.Max.Y >= b.Max.Y && a.Max.Z >= b.Max.Z
}

// Transformed returns the AABB of m applied to every corner of a.
func (a AABB) Transformed(m Mat4x3) AABB {
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		corner := Vec3{
			X: pick(i&1 != 0, a.Min.X, a.Max.X),
			Y: pick(i&2 != 0, a.Min.Y, a.Max.Y),
			Z: pick(i&4 != 0, a.Min.Z, a.Max.Z),
		}
		out = out.UnionPoint(m.TransformPoint(corner))
	}
	return out
}

func pick(cond bool, a, b float32) float32 {
	if cond {
		return b
	}
	return a
}
