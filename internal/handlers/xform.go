// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import "github.com/ucfb-tools/unmunge/internal/model"

// mat3 is a column-major 3x3 rotation/basis matrix as it appears inline
// in XFRM records, decoded with chunk.ReadTrivial.
type mat3 struct {
	X, Y, Z model.Vec3
}

// basisToMat4x3 combines a 3x3 basis and a position into an affine
// transform, used by skeleton/primitive handlers whose XFRM records carry
// rotation and position separately rather than as one packed quaternion.
func basisToMat4x3(basis mat3, position model.Vec3) model.Mat4x3 {
	return model.Mat4x3{X: basis.X, Y: basis.Y, Z: basis.Z, W: position}
}

// quatPositionToMat4x3 builds a unit-scale transform from a rotation
// quaternion and a position, used wherever a record stores rotation
// pre-converted to a quaternion rather than a 3x3 basis.
func quatPositionToMat4x3(q model.Quat, position model.Vec3) model.Mat4x3 {
	return model.Mat4x3{
		X: q.RotateVec3(model.Vec3{X: 1}),
		Y: q.RotateVec3(model.Vec3{Y: 1}),
		Z: q.RotateVec3(model.Vec3{Z: 1}),
		W: position,
	}
}
