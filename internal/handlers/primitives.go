// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"fmt"

	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
	"github.com/ucfb-tools/unmunge/internal/model"
)

// primitiveData is prim_'s 16-byte DATA record: a shape-kind ordinal
// (cast directly to model.CollisionPrimitiveKind on the assumption its
// ordinals line up with the source's Primitive_type) plus a size vector
// whose axes mean different things per kind (see model.CollisionPrimitive).
type primitiveData struct {
	Kind model.CollisionPrimitiveKind
	_    [3]byte // Kind is stored 4-byte wide upstream; pad to match.
	Size model.Vec3
}

// Primitives handles prim_ chunks: an inline model-name string (not
// wrapped in its own tag, unlike every other handler's leading NAME
// child), followed by a run of per-primitive records, each a NAME
// marker, optional MASK flags, a PRNT attachment name, an XFRM
// transform, and a DATA shape descriptor.
func Primitives(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	rawName, err := r.ReadString(true)
	if err != nil {
		return err
	}
	name := string(rawName)

	var primitives []model.NamedCollisionPrimitive
	for i := 0; r.HasMore(); i++ {
		prim, err := readPrimitiveRecord(r, name, i)
		if err != nil {
			return err
		}
		primitives = append(primitives, prim)
	}

	env := FromContext(ctx)
	env.Builder.Integrate(model.Model{Name: name, CollisionPrimitives: primitives})
	return nil
}

func readPrimitiveRecord(r *chunk.Reader, modelName string, index int) (model.NamedCollisionPrimitive, error) {
	if _, err := r.ReadChildStrict(tagNAME, false); err != nil {
		return model.NamedCollisionPrimitive{}, err
	}

	if mask, ok, err := r.ReadChildOpt(tagMASK, false); err != nil {
		return model.NamedCollisionPrimitive{}, err
	} else if ok {
		if _, err := chunk.ReadTrivial[uint32](mask, false); err != nil {
			return model.NamedCollisionPrimitive{}, err
		}
	}

	prntChild, err := r.ReadChildStrict(tagPRNT, false)
	if err != nil {
		return model.NamedCollisionPrimitive{}, err
	}
	parent, err := prntChild.ReadString(false)
	if err != nil {
		return model.NamedCollisionPrimitive{}, err
	}

	xfrmChild, err := r.ReadChildStrict(tagXFRM, false)
	if err != nil {
		return model.NamedCollisionPrimitive{}, err
	}
	frame, err := chunk.ReadTrivial[boneXframe](xfrmChild, false)
	if err != nil {
		return model.NamedCollisionPrimitive{}, err
	}

	dataChild, err := r.ReadChildStrict(tagDATA, false)
	if err != nil {
		return model.NamedCollisionPrimitive{}, err
	}
	data, err := chunk.ReadTrivial[primitiveData](dataChild, false)
	if err != nil {
		return model.NamedCollisionPrimitive{}, err
	}

	return model.NamedCollisionPrimitive{
		Name:      fmt.Sprintf("%s_prim%d", modelName, index),
		Parent:    string(parent),
		Transform: basisToMat4x3(frame.Matrix, frame.Position),
		Primitive: model.CollisionPrimitive{Kind: data.Kind, Size: data.Size},
	}, nil
}
