// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "github.com/chewxy/math32"

// GenerateCollisionVisualization builds a small triangle-list mesh that
// represents a collision primitive's shape, used so a collision_primitive
// node still carries renderable geometry for tools that don't understand
// the Collision field directly.
func GenerateCollisionVisualization(p CollisionPrimitive) Geometry {
	switch p.Kind {
	case CollisionCube:
		return cubeGeometry(p.Size)
	case CollisionCylinder:
		return cylinderGeometry(p.Size, 12)
	default:
		return sphereGeometry(p.Size.X, 8, 6)
	}
}

func cubeGeometry(halfExtents Vec3) Geometry {
	x, y, z := halfExtents.X, halfExtents.Y, halfExtents.Z
	corners := [8]Vec3{
		{-x, -y, -z}, {x, -y, -z}, {x, y, -z}, {-x, y, -z},
		{-x, -y, z}, {x, -y, z}, {x, y, z}, {-x, y, z},
	}
	faces := [6][4]uint16{
		{0, 1, 2, 3}, // -z
		{5, 4, 7, 6}, // +z
		{4, 0, 3, 7}, // -x
		{1, 5, 6, 2}, // +x
		{4, 5, 1, 0}, // -y
		{3, 2, 6, 7}, // +y
	}

	var vb VertexBlock
	var indices []uint16
	for _, f := range faces {
		base := uint16(len(vb.Positions))
		for _, ci := range f {
			vb.Positions = append(vb.Positions, corners[ci])
		}
		indices = append(indices,
			base+0, base+1, base+2,
			base+0, base+2, base+3,
		)
	}
	return Geometry{Topology: TriangleList, Indices: indices, Vertices: vb}
}

func sphereGeometry(radius float32, segments, rings int) Geometry {
	var vb VertexBlock
	var indices []uint16

	for ring := 0; ring <= rings; ring++ {
		theta := float32(ring) * math32.Pi / float32(rings)
		sinT, cosT := math32.Sin(theta), math32.Cos(theta)
		for seg := 0; seg <= segments; seg++ {
			phi := float32(seg) * 2 * math32.Pi / float32(segments)
			sinP, cosP := math32.Sin(phi), math32.Cos(phi)
			vb.Positions = append(vb.Positions, Vec3{
				X: radius * sinT * cosP,
				Y: radius * cosT,
				Z: radius * sinT * sinP,
			})
		}
	}

	stride := segments + 1
	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			a := uint16(ring*stride + seg)
			b := uint16(ring*stride + seg + 1)
			c := uint16((ring+1)*stride + seg)
			d := uint16((ring+1)*stride + seg + 1)
			if a != b && b != c {
				indices = append(indices, a, b, c)
			}
			if b != d && d != c {
				indices = append(indices, b, d, c)
			}
		}
	}
	return Geometry{Topology: TriangleList, Indices: indices, Vertices: vb}
}

func cylinderGeometry(size Vec3, segments int) Geometry {
	radius, halfHeight := size.X, size.Y
	var vb VertexBlock
	var indices []uint16

	topCenter := uint16(len(vb.Positions))
	vb.Positions = append(vb.Positions, Vec3{Y: halfHeight})
	bottomCenter := uint16(len(vb.Positions))
	vb.Positions = append(vb.Positions, Vec3{Y: -halfHeight})

	ringStart := uint16(len(vb.Positions))
	for seg := 0; seg < segments; seg++ {
		phi := float32(seg) * 2 * math32.Pi / float32(segments)
		x, z := radius*math32.Cos(phi), radius*math32.Sin(phi)
		vb.Positions = append(vb.Positions, Vec3{X: x, Y: halfHeight, Z: z})
		vb.Positions = append(vb.Positions, Vec3{X: x, Y: -halfHeight, Z: z})
	}

	for seg := 0; seg < segments; seg++ {
		next := (seg + 1) % segments
		topA := ringStart + uint16(seg*2)
		botA := ringStart + uint16(seg*2+1)
		topB := ringStart + uint16(next*2)
		botB := ringStart + uint16(next*2+1)

		indices = append(indices, topCenter, topA, topB)
		indices = append(indices, bottomCenter, botB, botA)
		indices = append(indices, topA, botA, topB)
		indices = append(indices, botA, botB, topB)
	}
	return Geometry{Topology: TriangleList, Indices: indices, Vertices: vb}
}
