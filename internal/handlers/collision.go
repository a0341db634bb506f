// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
	"github.com/ucfb-tools/unmunge/internal/model"
)

// collisionInfo is the 40-byte INFO record a coll_ chunk carries: vertex,
// node, and leaf counts plus an unused/unexamined bounding-box summary.
type collisionInfo struct {
	VertexCount uint32
	NodeCount   uint32
	LeafCount   uint32
	Unknown     uint32
	BBox        [6]float32
}

// Collision handles coll_ chunks: a vertex pool (POSI) and a BSP-style
// TREE of LEAF nodes, each a short triangle-strip index run. model.
// CollisionMesh keeps one flat index buffer rather than the original's
// per-leaf strip list, so leaf index runs are concatenated in file order;
// strip boundaries aren't preserved, only the triangle data they encode.
func Collision(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	name, err := readStringChild(r, tagNAME)
	if err != nil {
		return err
	}

	if _, ok, err := r.ReadChildOpt(tagMASK, false); err != nil {
		return err
	} else if ok {
		// Collision flags are consumed but not modeled; every coll_ mesh
		// participates in collision the same way once loaded.
	}

	if _, err := r.ReadChildStrict(tagNODE, false); err != nil {
		return err
	}

	infoChild, err := r.ReadChildStrict(tagINFO, false)
	if err != nil {
		return err
	}
	info, err := chunk.ReadTrivial[collisionInfo](infoChild, false)
	if err != nil {
		return err
	}

	posiChild, err := r.ReadChildStrict(tagPOSI, false)
	if err != nil {
		return err
	}
	vertices, err := chunk.ReadArray[model.Vec3](posiChild, int(info.VertexCount), false)
	if err != nil {
		return err
	}

	treeChild, err := r.ReadChildStrict(tagTREE, false)
	if err != nil {
		return err
	}
	indices, err := readCollisionTree(treeChild)
	if err != nil {
		return err
	}

	mesh := model.CollisionMesh{
		Name:     name,
		Vertices: vertices,
		Indices:  indices,
	}
	env := FromContext(ctx)
	env.Builder.Integrate(model.Model{Name: name, CollisionMeshes: []model.CollisionMesh{mesh}})
	return nil
}

// readCollisionTree walks TREE's LEAF children, each an 8-bit index count,
// 6 bytes of padding, and an index-count-long uint16 strip, concatenating
// every leaf's indices in file order.
func readCollisionTree(tree *chunk.Reader) ([]uint16, error) {
	var indices []uint16
	for tree.HasMore() {
		child, err := tree.ReadChild(false)
		if err != nil {
			return nil, err
		}
		if child.Tag() != tagLEAF {
			continue
		}
		count, err := chunk.ReadTrivial[uint8](child, false)
		if err != nil {
			return nil, err
		}
		if err := child.Consume(6, true); err != nil {
			return nil, err
		}
		strip, err := chunk.ReadArray[uint16](child, int(count), true)
		if err != nil {
			return nil, err
		}
		indices = append(indices, strip...)
	}
	return indices, nil
}
