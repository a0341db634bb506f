// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package meshfmt

import (
	"fmt"

	"github.com/ucfb-tools/unmunge/internal/model"
)

// preOrder walks scene rooted at its sole parentless node and returns the
// nodes in pre-order (parent always before its children) along with a map
// from each node's original index to its position in the returned slice.
// It fails if there is no parentless node, more than one, or if any node
// is unreachable from the root (a cycle or a dangling reference that
// ValidateParents would also catch).
func preOrder(scene *model.Scene) ([]model.Node, []int, error) {
	if err := scene.ValidateParents(); err != nil {
		return nil, nil, err
	}

	childrenOf := make(map[string][]int)
	rootIndex := -1
	for i, n := range scene.Nodes {
		if n.Parent == "" {
			if rootIndex >= 0 {
				return nil, nil, fmt.Errorf("meshfmt: multiple root nodes (%q and %q)", scene.Nodes[rootIndex].Name, n.Name)
			}
			rootIndex = i
			continue
		}
		childrenOf[n.Parent] = append(childrenOf[n.Parent], i)
	}
	if rootIndex < 0 {
		return nil, nil, fmt.Errorf("meshfmt: scene %q has no root node", scene.Name)
	}

	oldToNew := make([]int, len(scene.Nodes))
	for i := range oldToNew {
		oldToNew[i] = -1
	}
	ordered := make([]model.Node, 0, len(scene.Nodes))

	var visit func(index int)
	visit = func(index int) {
		oldToNew[index] = len(ordered)
		ordered = append(ordered, scene.Nodes[index])
		for _, child := range childrenOf[scene.Nodes[index].Name] {
			visit(child)
		}
	}
	visit(rootIndex)

	if len(ordered) != len(scene.Nodes) {
		return nil, nil, fmt.Errorf("meshfmt: scene %q has %d node(s) unreachable from root %q",
			scene.Name, len(scene.Nodes)-len(ordered), scene.Nodes[rootIndex].Name)
	}
	return ordered, oldToNew, nil
}

// remapBoneMap translates a geometry's bone-map entries (node indices from
// the pre-sort scene) into indices into the post-sort node order. Entries
// equal to boneMapUnused pass through unchanged.
func remapBoneMap(bones model.BoneMap, oldToNew []int) model.BoneMap {
	if bones == nil {
		return nil
	}
	out := make(model.BoneMap, len(bones))
	for i, idx := range bones {
		if idx < 0 || int(idx) >= len(oldToNew) {
			out[i] = boneMapUnused
			continue
		}
		out[i] = int32(oldToNew[idx])
	}
	return out
}

const boneMapUnused int32 = -1
