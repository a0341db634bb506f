// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model implements the in-memory scene graph, the primitive-
// topology converters, and the thread-safe Builder that integrates
// partial model fragments arriving from many chunk handlers into
// per-model scenes.
package model

// Lod is a geometry node's level of detail: numerically smaller means
// higher detail.
type Lod uint8

const (
	Lod0 Lod = iota
	Lod1
	Lod2
	Lod3
	LodLowRes
)

func (l Lod) String() string {
	switch l {
	case Lod0:
		return "lod0"
	case Lod1:
		return "lod1"
	case Lod2:
		return "lod2"
	case Lod3:
		return "lod3"
	case LodLowRes:
		return "lowres"
	default:
		return "invalid"
	}
}

// NodeType enumerates the closed set of scene node kinds.
type NodeType uint8

const (
	NodeNull NodeType = iota
	NodeGeometry
	NodeCloth
	NodeCollisionMesh
	NodeCollisionPrimitive
)

// CollisionPrimitiveKind is the declared shape of a collision-primitive
// node, used both for physics and for the procedurally generated
// visualisation mesh.
type CollisionPrimitiveKind uint8

const (
	CollisionSphere CollisionPrimitiveKind = iota
	CollisionCube
	CollisionCylinder
)

// CollisionPrimitive is a primitive collision shape attached to a node.
type CollisionPrimitive struct {
	Kind CollisionPrimitiveKind
	Size Vec3 // radius in X for sphere/cylinder height in Y; half-extents for cube
}

// CollisionMesh is arbitrary collision geometry (as opposed to a
// primitive shape).
type CollisionMesh struct {
	Name     string
	Vertices []Vec3
	Indices  []uint16
}

// BoneMap maps a geometry's local bone-slot indices to node indices once
// the owning scene's nodes are finalized.
type BoneMap []int32

// VertexBlock holds parallel, lazily-allocated per-vertex attribute
// arrays. Each slice is non-nil iff the source chunk declared that
// attribute.
type VertexBlock struct {
	Positions  []Vec3
	Normals    []Vec3
	Tangents   []Vec3
	Bitangents []Vec3
	Colors     []uint32 // packed RGBA
	Texcoords  []Vec2

	BoneIndices [][3]uint8
	BoneWeights [][3]float32

	Pretransformed bool
	StaticLighting bool
	SoftSkinned    bool
}

// Count returns the vertex count, inferred from whichever attribute array
// is populated (Positions if present, else the first non-nil one).
func (v *VertexBlock) Count() int {
	if v.Positions != nil {
		return len(v.Positions)
	}
	if v.Normals != nil {
		return len(v.Normals)
	}
	if v.Texcoords != nil {
		return len(v.Texcoords)
	}
	return 0
}

// Vec2 is a 2-component float vector (texcoords only need two).
type Vec2 struct {
	X, Y float32
}

// Geometry is a node's renderable mesh data.
type Geometry struct {
	Topology Topology
	Indices  []uint16
	Vertices VertexBlock
	BoneMap  BoneMap // nil if not skinned
}

// ClothGeometry is a cloth simulation mesh.
type ClothGeometry struct {
	TextureName string
	Positions   []Vec3
	Texcoords   []Vec2
	Indices     []uint16

	FixedPointIndices []uint16
	FixedWeightNames  []string

	StretchConstraints []ClothConstraint
	CrossConstraints   []ClothConstraint
	BendConstraints    []ClothConstraint

	Collision []CollisionPrimitive
}

// ClothConstraint is one spring/constraint edge between two cloth
// vertices.
type ClothConstraint struct {
	A, B uint16
}

// RenderType enumerates the material shading modes.
type RenderType uint8

const (
	RenderNormal RenderType = iota
	RenderScrolling
	RenderSpecular
	RenderEnvMap
	RenderBump
)

// MaterialFlags is the bit-flag set on a Material.
type MaterialFlags uint16

const (
	MaterialHardEdged MaterialFlags = 1 << iota
	MaterialTransparent
	MaterialDoubleSided
	MaterialGlow
	MaterialAdditive
	MaterialSpecular
)

// Material is a scene-wide material, deduplicated by structural equality
// into the Scene's Materials table.
type Material struct {
	Name string

	Diffuse         [3]float32
	Specular        [3]float32
	SpecularExponent float32

	Textures [4]string

	Flags      MaterialFlags
	RenderType RenderType
	Params     [2]int8
}

// DefaultMaterial is the grey fallback the dedup table's slot 0 always
// holds.
var DefaultMaterial = Material{
	Name:    "default",
	Diffuse: [3]float32{0.5, 0.5, 0.5},
}

// Node is one entry in a Scene's graph.
type Node struct {
	Name      string
	Parent    string // empty for root
	Transform Mat4x3
	Type      NodeType

	Geometry      *Geometry
	ClothGeometry *ClothGeometry
	Collision     *CollisionPrimitive
	CollisionMesh *CollisionMesh

	MaterialIndex int
	Lod           Lod
	AABB          AABB
}

// Scene is the in-memory scene graph a single model decodes into.
type Scene struct {
	Name      string
	Framerate float32

	Nodes     []Node
	Materials []Material
	AABB      AABB
}

// NodeByName returns the index of the node with the given name, or -1.
func (s *Scene) NodeByName(name string) int {
	for i := range s.Nodes {
		if s.Nodes[i].Name == name {
			return i
		}
	}
	return -1
}

// ValidateParents checks the invariant that every node's parent resolves
// within the scene or is empty.
func (s *Scene) ValidateParents() error {
	for _, n := range s.Nodes {
		if n.Parent == "" {
			continue
		}
		if s.NodeByName(n.Parent) < 0 {
			return &UnresolvedParentError{Node: n.Name, Parent: n.Parent}
		}
	}
	return nil
}

// UnresolvedParentError is returned when a node names a parent that does
// not exist in the scene.
type UnresolvedParentError struct {
	Node, Parent string
}

func (e *UnresolvedParentError) Error() string {
	return "model: node " + e.Node + " references nonexistent parent " + e.Parent
}

// WorldTransform walks n's parent chain within s and returns the
// accumulated local-to-world transform by walking the parent chain.
func (s *Scene) WorldTransform(nodeIndex int) Mat4x3 {
	m := IdentityMat4x3
	for nodeIndex >= 0 {
		n := &s.Nodes[nodeIndex]
		m = n.Transform.Mul(m)
		if n.Parent == "" {
			break
		}
		nodeIndex = s.NodeByName(n.Parent)
	}
	return m
}

// RecomputeAABBs walks every geometry/cloth node, accumulates local and
// world-space extents, and updates node.AABB (local) and scene.AABB
// (world).
func (s *Scene) RecomputeAABBs() {
	s.AABB = EmptyAABB()
	for i := range s.Nodes {
		n := &s.Nodes[i]
		local := EmptyAABB()
		switch {
		case n.Geometry != nil:
			for _, p := range n.Geometry.Vertices.Positions {
				local = local.UnionPoint(p)
			}
		case n.ClothGeometry != nil:
			for _, p := range n.ClothGeometry.Positions {
				local = local.UnionPoint(p)
			}
		default:
			continue
		}
		n.AABB = local
		world := s.WorldTransform(i)
		s.AABB = s.AABB.Union(local.Transformed(world))
	}
}

// ReversePretransforms finds every geometry node whose vertices are
// pretransformed (already in world space), applies the inverse of that
// node's accumulated world transform to positions and the inverse
// rotation to normals/tangents/bitangents, and clears the flag.
func (s *Scene) ReversePretransforms() {
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if n.Geometry == nil || !n.Geometry.Vertices.Pretransformed {
			continue
		}
		world := s.WorldTransform(i)
		inv, ok := world.Inverse()
		if !ok {
			// Singular transform: nothing sane to reverse into; clear
			// the flag anyway so downstream writers don't re-attempt it.
			n.Geometry.Vertices.Pretransformed = false
			continue
		}
		vb := &n.Geometry.Vertices
		for j := range vb.Positions {
			vb.Positions[j] = inv.TransformPoint(vb.Positions[j])
		}
		for j := range vb.Normals {
			vb.Normals[j] = inv.TransformDirection(vb.Normals[j]).Normalized()
		}
		for j := range vb.Tangents {
			vb.Tangents[j] = inv.TransformDirection(vb.Tangents[j]).Normalized()
		}
		for j := range vb.Bitangents {
			vb.Bitangents[j] = inv.TransformDirection(vb.Bitangents[j]).Normalized()
		}
		vb.Pretransformed = false
	}
}
