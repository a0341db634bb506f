// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// buildScene converts one accumulated modelEntry into a Scene: bones
// become null nodes, parts become geometry nodes, collision data becomes
// collision_mesh/collision_primitive nodes, and cloth fragments become
// cloth nodes. Materials are deduplicated across every part into a single
// table. discard drops LOD>0 parts and/or collision data before any of
// that happens.
func buildScene(e *modelEntry, discard DiscardFlags) (*Scene, error) {
	parts := e.parts
	if discard.LOD {
		filtered := parts[:0:0]
		for _, p := range parts {
			if p.Lod == Lod0 {
				filtered = append(filtered, p)
			}
		}
		parts = filtered
	}

	rawMaterials := make([]Material, len(parts))
	for i, p := range parts {
		rawMaterials[i] = p.Material
	}
	materials, indexOf := DeduplicateMaterials(rawMaterials)

	scene := &Scene{Name: e.name, Materials: materials}

	for _, b := range e.bones {
		scene.Nodes = append(scene.Nodes, Node{
			Name:      b.Name,
			Parent:    b.Parent,
			Transform: b.Transform,
			Type:      NodeNull,
		})
	}

	for i, p := range parts {
		geom := p.Geometry
		scene.Nodes = append(scene.Nodes, Node{
			Name:          p.Name,
			Parent:        p.Parent,
			Transform:     p.Transform,
			Type:          NodeGeometry,
			Geometry:      &geom,
			MaterialIndex: indexOf(rawMaterials[i]),
			Lod:           p.Lod,
		})
	}

	for _, c := range e.cloths {
		cloth := c.Cloth
		scene.Nodes = append(scene.Nodes, Node{
			Name:          c.Name,
			Parent:        c.Parent,
			Transform:     c.Transform,
			Type:          NodeCloth,
			ClothGeometry: &cloth,
		})
	}

	root := findOrCreateRoot(scene, e.name)

	if !discard.Collision {
		for _, cm := range e.collisionMeshes {
			mesh := cm
			scene.Nodes = append(scene.Nodes, Node{
				Name:          cm.Name,
				Parent:        root,
				Type:          NodeCollisionMesh,
				CollisionMesh: &mesh,
			})
		}
		for _, cp := range e.collisionPrimitives {
			prim := cp.Primitive
			vis := GenerateCollisionVisualization(prim)
			parent := cp.Parent
			if parent == "" {
				parent = root
			}
			scene.Nodes = append(scene.Nodes, Node{
				Name:      cp.Name,
				Parent:    parent,
				Transform: cp.Transform,
				Type:      NodeCollisionPrimitive,
				Collision: &prim,
				Geometry:  &vis,
			})
		}
	}

	resolveDanglingParents(scene, root)

	scene.RecomputeAABBs()
	scene.ReversePretransforms()
	scene.RecomputeAABBs()

	return scene, nil
}

// findOrCreateRoot returns the name of scene's sole parentless node,
// synthesizing an implicit one named fallbackName if none exists.
func findOrCreateRoot(scene *Scene, fallbackName string) string {
	for _, n := range scene.Nodes {
		if n.Parent == "" {
			return n.Name
		}
	}
	scene.Nodes = append([]Node{{
		Name:      fallbackName,
		Transform: IdentityMat4x3,
		Type:      NodeNull,
	}}, scene.Nodes...)
	return fallbackName
}

// resolveDanglingParents reparents any node whose declared parent does not
// resolve within the scene onto root, rather than failing the whole model
// over one bad reference.
func resolveDanglingParents(scene *Scene, root string) {
	for i := range scene.Nodes {
		n := &scene.Nodes[i]
		if n.Name == root || n.Parent == "" {
			continue
		}
		if scene.NodeByName(n.Parent) < 0 {
			n.Parent = root
		}
	}
}
