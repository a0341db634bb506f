// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"math"

	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
	"github.com/ucfb-tools/unmunge/internal/model"
)

var tagCOLL = mustTag("COLL")

// clothCollisionInfo is the 64-byte per-node record cloth_'s COLL child
// carries; only Kind and Size are kept, matching handle_cloth.cpp (the
// rotation/position there are read but never stored on the result).
type clothCollisionInfo struct {
	Kind     model.CollisionPrimitiveKind
	_        [3]byte
	Size     model.Vec3
	Rotation mat3
	Position model.Vec3
}

// Cloth handles cloth_ chunks: INFO names the owning model, NAME/PRNT/
// XFRM place the cloth node, DATA carries the simulation mesh, and COLL
// lists the collision primitives the cloth reacts to.
func Cloth(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	modelName, err := readStringChild(r, tagINFO)
	if err != nil {
		return err
	}
	clothName, err := readStringChild(r, tagNAME)
	if err != nil {
		return err
	}
	parent, err := readStringChild(r, tagPRNT)
	if err != nil {
		return err
	}
	xfrmChild, err := r.ReadChildStrict(tagXFRM, false)
	if err != nil {
		return err
	}
	frame, err := chunk.ReadTrivial[boneXframe](xfrmChild, false)
	if err != nil {
		return err
	}

	dataChild, err := r.ReadChildStrict(tagDATA, false)
	if err != nil {
		return err
	}
	cloth, err := readClothData(dataChild)
	if err != nil {
		return err
	}

	collChild, err := r.ReadChildStrict(tagCOLL, false)
	if err != nil {
		return err
	}
	collision, err := readClothCollision(collChild)
	if err != nil {
		return err
	}
	cloth.Collision = collision

	env := FromContext(ctx)
	env.Builder.Integrate(model.Model{
		Name: modelName,
		Cloths: []model.NamedClothGeometry{{
			Name:      clothName,
			Parent:    parent,
			Transform: basisToMat4x3(frame.Matrix, frame.Position),
			Cloth:     cloth,
		}},
	})
	return nil
}

func readClothData(data *chunk.Reader) (model.ClothGeometry, error) {
	var cloth model.ClothGeometry

	textureName, err := data.ReadString(false)
	if err != nil {
		return cloth, err
	}
	cloth.TextureName = string(textureName)

	vertexCount, err := chunk.ReadTrivial[uint32](data, false)
	if err != nil {
		return cloth, err
	}
	cloth.Positions, err = chunk.ReadArray[model.Vec3](data, int(vertexCount), false)
	if err != nil {
		return cloth, err
	}
	texcoords, err := chunk.ReadArray[model.Vec2](data, int(vertexCount), false)
	if err != nil {
		return cloth, err
	}
	for i, uv := range texcoords {
		texcoords[i] = flipTextureV(uv)
	}
	cloth.Texcoords = texcoords

	fixedPointCount, err := chunk.ReadTrivial[uint32](data, false)
	if err != nil {
		return cloth, err
	}
	// The source generates a sequential 0..count range here instead of
	// reading stored indices; preserved as-is (see DESIGN.md).
	cloth.FixedPointIndices = make([]uint16, fixedPointCount)
	for i := range cloth.FixedPointIndices {
		cloth.FixedPointIndices[i] = uint16(i)
	}

	fixedWeightCount, err := chunk.ReadTrivial[uint32](data, false)
	if err != nil {
		return cloth, err
	}
	cloth.FixedWeightNames = make([]string, fixedWeightCount)
	for i := range cloth.FixedWeightNames {
		s, err := data.ReadString(false)
		if err != nil {
			return cloth, err
		}
		cloth.FixedWeightNames[i] = string(s)
	}

	indexCount, err := chunk.ReadTrivial[uint32](data, false)
	if err != nil {
		return cloth, err
	}
	triples, err := chunk.ReadArray[[3]uint32](data, int(indexCount), false)
	if err != nil {
		return cloth, err
	}
	cloth.Indices = make([]uint16, 0, len(triples)*3)
	for _, t := range triples {
		cloth.Indices = append(cloth.Indices, uint16(t[0]), uint16(t[1]), uint16(t[2]))
	}

	cloth.StretchConstraints, err = readClothConstraints(data)
	if err != nil {
		return cloth, err
	}
	cloth.BendConstraints, err = readClothConstraints(data)
	if err != nil {
		return cloth, err
	}
	cloth.CrossConstraints, err = readClothConstraints(data)
	if err != nil {
		return cloth, err
	}

	return cloth, nil
}

func readClothConstraints(data *chunk.Reader) ([]model.ClothConstraint, error) {
	count, err := chunk.ReadTrivial[uint32](data, false)
	if err != nil {
		return nil, err
	}
	pairs, err := chunk.ReadArray[[2]uint32](data, int(count), false)
	if err != nil {
		return nil, err
	}
	out := make([]model.ClothConstraint, len(pairs))
	for i, p := range pairs {
		out[i] = model.ClothConstraint{A: uint16(p[0]), B: uint16(p[1])}
	}
	return out, nil
}

func readClothCollision(coll *chunk.Reader) ([]model.CollisionPrimitive, error) {
	count, err := chunk.ReadTrivial[uint32](coll, false)
	if err != nil {
		return nil, err
	}
	out := make([]model.CollisionPrimitive, count)
	for i := range out {
		if _, err := coll.ReadString(false); err != nil { // parent name, not modeled
			return nil, err
		}
		info, err := chunk.ReadTrivial[clothCollisionInfo](coll, false)
		if err != nil {
			return nil, err
		}
		out[i] = model.CollisionPrimitive{Kind: info.Kind, Size: info.Size}
	}
	return out, nil
}

// flipTextureV mirrors the V texcoord, wrapping it into [0, 1] first,
// the same way cloth meshes compensate for an upside-down UV convention
// elsewhere in the original art pipeline.
func flipTextureV(uv model.Vec2) model.Vec2 {
	v := uv.Y
	if v > 1 {
		v = float32(math.Mod(float64(v), 1))
	}
	return model.Vec2{X: uv.X, Y: 1 - v}
}
