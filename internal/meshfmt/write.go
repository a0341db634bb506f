// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package meshfmt

import (
	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/model"
)

// Options controls which parts of a scene WriteScene emits. Each field
// mirrors one of the writer's own command-line switches; see
// optionfile.go for how they're recorded alongside the mesh itself.
type Options struct {
	SoftSkin       bool
	VertexLighting bool
	AttachLight    bool
	NoCollision    bool
	Keep           []string // null node names to keep even if otherwise prunable
	KeepMaterial   []string // material names to keep even if unreferenced
}

type transformRecord struct {
	ScaleX, ScaleY, ScaleZ       float32
	QuatX, QuatY, QuatZ, QuatW   float32
	TransX, TransY, TransZ       float32
}

type bboxRecord struct {
	MinX, MinY, MinZ float32
	MaxX, MaxY, MaxZ float32
}

// WriteScene serializes scene into the legacy chunked mesh container
// format and returns the finished bytes.
func WriteScene(scene *model.Scene, opts Options) ([]byte, error) {
	nodes, oldToNew, err := preOrder(scene)
	if err != nil {
		return nil, err
	}

	w := chunk.NewWriter()
	root := w.OpenRoot(mustTag("HEDR"))

	sinf := root.OpenChild(tagSINF)
	sinf.WriteString(scene.Name, true)
	if err := chunk.Write(sinf, scene.Framerate); err != nil {
		return nil, err
	}
	if err := chunk.Write(sinf, bboxRecord{
		MinX: scene.AABB.Min.X, MinY: scene.AABB.Min.Y, MinZ: scene.AABB.Min.Z,
		MaxX: scene.AABB.Max.X, MaxY: scene.AABB.Max.Y, MaxZ: scene.AABB.Max.Z,
	}); err != nil {
		return nil, err
	}
	if err := sinf.Close(false); err != nil {
		return nil, err
	}

	if err := writeMaterials(root, scene.Materials); err != nil {
		return nil, err
	}

	for i, n := range nodes {
		if n.Type == model.NodeCollisionMesh || n.Type == model.NodeCollisionPrimitive {
			if opts.NoCollision {
				continue
			}
		}
		if err := writeNode(root, n, i, oldToNew, opts); err != nil {
			return nil, err
		}
	}

	if err := root.Close(true); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func writeMaterials(parent *chunk.ChildWriter, materials []model.Material) error {
	matl := parent.OpenChild(tagMATL)
	if err := chunk.Write(matl, uint32(len(materials))); err != nil {
		return err
	}
	for _, m := range materials {
		matd := matl.OpenChild(tagMATD)
		matd.WriteString(m.Name, true)
		type materialRecord struct {
			DiffuseR, DiffuseG, DiffuseB    float32
			SpecularR, SpecularG, SpecularB float32
			SpecularExponent                float32
			Flags                           uint16
			RenderType                      uint8
			Param0, Param1                  int8
		}
		if err := chunk.Write(matd, materialRecord{
			DiffuseR: m.Diffuse[0], DiffuseG: m.Diffuse[1], DiffuseB: m.Diffuse[2],
			SpecularR: m.Specular[0], SpecularG: m.Specular[1], SpecularB: m.Specular[2],
			SpecularExponent: m.SpecularExponent,
			Flags:            uint16(m.Flags),
			RenderType:       uint8(m.RenderType),
			Param0:           m.Params[0], Param1: m.Params[1],
		}); err != nil {
			return err
		}
		for _, tex := range m.Textures {
			matd.WriteString(tex, true)
		}
		if err := matd.Close(false); err != nil {
			return err
		}
	}
	return matl.Close(false)
}

func writeNode(parent *chunk.ChildWriter, n model.Node, newIndex int, oldToNew []int, opts Options) error {
	modl := parent.OpenChild(tagMODL)

	mtyp := modl.OpenChild(tagMTYP)
	if err := chunk.Write(mtyp, uint8(n.Type)); err != nil {
		return err
	}
	if err := mtyp.Close(false); err != nil {
		return err
	}

	mndx := modl.OpenChild(tagMNDX)
	if err := chunk.Write(mndx, uint32(newIndex)); err != nil {
		return err
	}
	if err := mndx.Close(false); err != nil {
		return err
	}

	name := modl.OpenChild(tagNAME)
	name.WriteString(n.Name, true)
	if err := name.Close(false); err != nil {
		return err
	}

	if n.Parent != "" {
		prnt := modl.OpenChild(tagPRNT)
		prnt.WriteString(n.Parent, true)
		if err := prnt.Close(false); err != nil {
			return err
		}
	}

	flags := modl.OpenChild(tagFLGS)
	var bits uint16
	if n.Lod != model.Lod0 || n.Type != model.NodeGeometry {
		bits |= 1 // hidden
	}
	if err := chunk.Write(flags, bits); err != nil {
		return err
	}
	if err := flags.Close(false); err != nil {
		return err
	}

	scale, rot, translation := n.Transform.Decompose()
	tran := modl.OpenChild(tagTRAN)
	if err := chunk.Write(tran, transformRecord{
		ScaleX: scale.X, ScaleY: scale.Y, ScaleZ: scale.Z,
		QuatX: rot.X, QuatY: rot.Y, QuatZ: rot.Z, QuatW: rot.W,
		TransX: translation.X, TransY: translation.Y, TransZ: translation.Z,
	}); err != nil {
		return err
	}
	if err := tran.Close(false); err != nil {
		return err
	}

	switch {
	case n.Geometry != nil:
		if err := writeGeometry(modl, n, oldToNew); err != nil {
			return err
		}
		if n.Geometry.BoneMap != nil {
			swci := modl.OpenChild(tagSWCI)
			if err := chunk.Write(swci, uint8(1)); err != nil {
				return err
			}
			if err := swci.Close(false); err != nil {
				return err
			}
		}
	case n.ClothGeometry != nil:
		if err := writeCloth(modl, n.ClothGeometry); err != nil {
			return err
		}
	case n.Collision != nil:
		if err := writeCollisionPrimitive(modl, *n.Collision); err != nil {
			return err
		}
	case n.CollisionMesh != nil:
		if err := writeCollisionMesh(modl, *n.CollisionMesh); err != nil {
			return err
		}
	}

	return modl.Close(false)
}

func writeGeometry(parent *chunk.ChildWriter, n model.Node, oldToNew []int) error {
	geom := parent.OpenChild(tagGEOM)

	bbox := geom.OpenChild(tagBBOX)
	if err := chunk.Write(bbox, bboxRecord{
		MinX: n.AABB.Min.X, MinY: n.AABB.Min.Y, MinZ: n.AABB.Min.Z,
		MaxX: n.AABB.Max.X, MaxY: n.AABB.Max.Y, MaxZ: n.AABB.Max.Z,
	}); err != nil {
		return err
	}
	if err := bbox.Close(false); err != nil {
		return err
	}

	seg := geom.OpenChild(tagSEGM)
	mati := seg.OpenChild(tagMATI)
	if err := chunk.Write(mati, uint32(n.MaterialIndex)); err != nil {
		return err
	}
	if err := mati.Close(false); err != nil {
		return err
	}

	vb := n.Geometry.Vertices
	if err := writeVec3List(seg, tagPOSL, vb.Positions); err != nil {
		return err
	}
	if vb.BoneWeights != nil {
		if err := writeWeights(seg, vb.BoneWeights, vb.BoneIndices); err != nil {
			return err
		}
	}
	if err := writeVec3List(seg, tagNRML, vb.Normals); err != nil {
		return err
	}
	if err := writeColorList(seg, tagCLRL, vb.Colors); err != nil {
		return err
	}
	if err := writeVec2List(seg, tagUV0L, vb.Texcoords); err != nil {
		return err
	}

	faceList, err := model.ConvertTopology(n.Geometry.Indices, n.Geometry.Topology, model.TriangleList)
	if err != nil {
		return err
	}
	if err := writeIndexList(seg, tagNDXL, faceList); err != nil {
		return err
	}
	// NDXT duplicates NDXL under the tag name readers that key off "NDXT"
	// rather than position expect; both carry the same triangle-list
	// indices, so no second conversion is needed.
	if err := writeIndexList(seg, tagNDXT, faceList); err != nil {
		return err
	}
	stripList, err := model.ConvertTopology(faceList, model.TriangleList, model.TriangleStripPS2)
	if err != nil {
		return err
	}
	if err := writeIndexList(seg, tagSTRP, stripList); err != nil {
		return err
	}

	if err := seg.Close(false); err != nil {
		return err
	}

	if n.Geometry.BoneMap != nil {
		remapped := remapBoneMap(n.Geometry.BoneMap, oldToNew)
		envl := geom.OpenChild(tagENVL)
		if err := chunk.Write(envl, uint32(len(remapped))); err != nil {
			return err
		}
		for _, idx := range remapped {
			if err := chunk.Write(envl, idx); err != nil {
				return err
			}
		}
		if err := envl.Close(false); err != nil {
			return err
		}
	}

	return geom.Close(false)
}

func writeVec3List(parent *chunk.ChildWriter, tag chunk.Tag, values []model.Vec3) error {
	if values == nil {
		return nil
	}
	c := parent.OpenChild(tag)
	if err := chunk.Write(c, uint32(len(values))); err != nil {
		return err
	}
	for _, v := range values {
		if err := chunk.Write(c, struct{ X, Y, Z float32 }{v.X, v.Y, v.Z}); err != nil {
			return err
		}
	}
	return c.Close(false)
}

func writeVec2List(parent *chunk.ChildWriter, tag chunk.Tag, values []model.Vec2) error {
	if values == nil {
		return nil
	}
	c := parent.OpenChild(tag)
	if err := chunk.Write(c, uint32(len(values))); err != nil {
		return err
	}
	for _, v := range values {
		if err := chunk.Write(c, struct{ X, Y float32 }{v.X, v.Y}); err != nil {
			return err
		}
	}
	return c.Close(false)
}

func writeColorList(parent *chunk.ChildWriter, tag chunk.Tag, values []uint32) error {
	if values == nil {
		return nil
	}
	c := parent.OpenChild(tag)
	if err := chunk.Write(c, uint32(len(values))); err != nil {
		return err
	}
	for _, v := range values {
		if err := chunk.Write(c, v); err != nil {
			return err
		}
	}
	return c.Close(false)
}

func writeIndexList(parent *chunk.ChildWriter, tag chunk.Tag, values []uint16) error {
	if values == nil {
		return nil
	}
	c := parent.OpenChild(tag)
	if err := chunk.Write(c, uint32(len(values))); err != nil {
		return err
	}
	for _, v := range values {
		if err := chunk.Write(c, v); err != nil {
			return err
		}
	}
	return c.Close(false)
}

func writeWeights(parent *chunk.ChildWriter, weights [][3]float32, indices [][3]uint8) error {
	c := parent.OpenChild(tagWGHT)
	if err := chunk.Write(c, uint32(len(weights))); err != nil {
		return err
	}
	for i, w := range weights {
		var idx [3]uint8
		if i < len(indices) {
			idx = indices[i]
		}
		if err := chunk.Write(c, struct {
			W0, W1, W2    float32
			I0, I1, I2    uint8
		}{w[0], w[1], w[2], idx[0], idx[1], idx[2]}); err != nil {
			return err
		}
	}
	return c.Close(false)
}

func writeCloth(parent *chunk.ChildWriter, cloth *model.ClothGeometry) error {
	clth := parent.OpenChild(tagCLTH)

	ctex := clth.OpenChild(tagCTEX)
	ctex.WriteString(cloth.TextureName, true)
	if err := ctex.Close(false); err != nil {
		return err
	}
	if err := writeVec3List(clth, tagCPOS, cloth.Positions); err != nil {
		return err
	}
	if err := writeVec2List(clth, tagCUV0, cloth.Texcoords); err != nil {
		return err
	}
	if err := writeIndexList(clth, tagCIDX, cloth.Indices); err != nil {
		return err
	}
	if err := writeIndexList(clth, tagCFIX, cloth.FixedPointIndices); err != nil {
		return err
	}
	if err := writeConstraints(clth, tagCSTR, cloth.StretchConstraints); err != nil {
		return err
	}
	if err := writeConstraints(clth, tagCCRS, cloth.CrossConstraints); err != nil {
		return err
	}
	if err := writeConstraints(clth, tagCBND, cloth.BendConstraints); err != nil {
		return err
	}

	return clth.Close(false)
}

func writeConstraints(parent *chunk.ChildWriter, tag chunk.Tag, constraints []model.ClothConstraint) error {
	if constraints == nil {
		return nil
	}
	c := parent.OpenChild(tag)
	if err := chunk.Write(c, uint32(len(constraints))); err != nil {
		return err
	}
	for _, con := range constraints {
		if err := chunk.Write(c, con); err != nil {
			return err
		}
	}
	return c.Close(false)
}

func writeCollisionPrimitive(parent *chunk.ChildWriter, p model.CollisionPrimitive) error {
	coll := parent.OpenChild(tagCOLL)
	if err := chunk.Write(coll, struct {
		Kind       uint8
		X, Y, Z    float32
	}{uint8(p.Kind), p.Size.X, p.Size.Y, p.Size.Z}); err != nil {
		return err
	}
	return coll.Close(false)
}

func writeCollisionMesh(parent *chunk.ChildWriter, m model.CollisionMesh) error {
	colm := parent.OpenChild(tagCOLM)
	if err := writeVec3List(colm, tagCPOS, m.Vertices); err != nil {
		return err
	}
	if err := writeIndexList(colm, tagCIDX, m.Indices); err != nil {
		return err
	}
	return colm.Close(false)
}
