// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
	"github.com/ucfb-tools/unmunge/internal/model"
)

// boneXframe is the 48-byte rotation-basis-plus-position record XFRM
// carries one per bone, read back to back with no per-record padding.
type boneXframe struct {
	Matrix   mat3
	Position model.Vec3
}

// Skeleton handles skel_ chunks: INFO gives the owning model's name and
// bone count, then NAME/PRNT give parallel arrays of bone and parent
// names, and XFRM gives one transform record per bone in the same order.
func Skeleton(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	info, err := r.ReadChildStrict(tagINFO, false)
	if err != nil {
		return err
	}
	name, err := info.ReadString(false)
	if err != nil {
		return err
	}
	boneCount, err := chunk.ReadTrivial[uint16](info, false)
	if err != nil {
		return err
	}

	names, err := readNames(r, tagNAME, int(boneCount))
	if err != nil {
		return err
	}
	parents, err := readNames(r, tagPRNT, int(boneCount))
	if err != nil {
		return err
	}

	xfrm, err := r.ReadChildStrict(tagXFRM, false)
	if err != nil {
		return err
	}
	frames, err := chunk.ReadArray[boneXframe](xfrm, int(boneCount), true)
	if err != nil {
		return err
	}

	bones := make([]model.Bone, boneCount)
	for i := range bones {
		bones[i] = model.Bone{
			Name:      string(names[i]),
			Parent:    string(parents[i]),
			Transform: basisToMat4x3(frames[i].Matrix, frames[i].Position),
		}
	}

	env := FromContext(ctx)
	env.Builder.Integrate(model.Model{Name: string(name), Bones: bones})
	return nil
}

// readNames reads count back-to-back unaligned strings out of the next
// child tagged tag, the shared shape skel_'s NAME and PRNT children use.
func readNames(r *chunk.Reader, tag chunk.Tag, count int) ([][]byte, error) {
	child, err := r.ReadChildStrict(tag, false)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, count)
	for i := range out {
		s, err := child.ReadString(false)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
