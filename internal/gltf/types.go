// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gltf writes a model.Scene out as a single-buffer binary glTF
// 2.0 (.glb) file: one mesh per geometry node, one glTF material per
// scene material, a node hierarchy mirroring the scene graph, and no
// skin/joint data (skinning is an explicit non-goal of this writer).
package gltf

// document is the top-level glTF 2.0 JSON structure. Field order follows
// the glTF 2.0 schema's own top-to-bottom listing; omitempty everywhere a
// glTF asset legitimately has none of that thing.
type document struct {
	Asset       assetInfo    `json:"asset"`
	Scene       int          `json:"scene"`
	Scenes      []sceneDoc   `json:"scenes"`
	Nodes       []nodeDoc    `json:"nodes,omitempty"`
	Meshes      []meshDoc    `json:"meshes,omitempty"`
	Materials   []materialDoc `json:"materials,omitempty"`
	Accessors   []accessorDoc `json:"accessors,omitempty"`
	BufferViews []bufferViewDoc `json:"bufferViews,omitempty"`
	Buffers     []bufferDoc  `json:"buffers"`
}

type assetInfo struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

type sceneDoc struct {
	Nodes []int `json:"nodes,omitempty"`
}

type nodeDoc struct {
	Name        string    `json:"name,omitempty"`
	Children    []int     `json:"children,omitempty"`
	Translation []float32 `json:"translation,omitempty"`
	Rotation    []float32 `json:"rotation,omitempty"`
	Scale       []float32 `json:"scale,omitempty"`
	Mesh        *int      `json:"mesh,omitempty"`
}

type meshDoc struct {
	Name       string          `json:"name,omitempty"`
	Primitives []primitiveDoc  `json:"primitives"`
}

type primitiveDoc struct {
	Attributes map[string]int `json:"attributes"`
	Indices    int            `json:"indices"`
	Material   int            `json:"material"`
	Mode       int            `json:"mode"`
}

// Primitive render modes this writer ever emits.
const modeTriangles = 4

type materialDoc struct {
	Name                 string   `json:"name,omitempty"`
	PbrMetallicRoughness *pbrDoc  `json:"pbrMetallicRoughness,omitempty"`
	DoubleSided          bool     `json:"doubleSided,omitempty"`
	AlphaMode            string   `json:"alphaMode,omitempty"`
}

type pbrDoc struct {
	BaseColorFactor []float32 `json:"baseColorFactor,omitempty"`
	MetallicFactor  float32   `json:"metallicFactor"`
	RoughnessFactor float32   `json:"roughnessFactor"`
}

type accessorDoc struct {
	BufferView    int       `json:"bufferView"`
	ByteOffset    int       `json:"byteOffset,omitempty"`
	ComponentType int       `json:"componentType"`
	Normalized    bool      `json:"normalized,omitempty"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Max           []float32 `json:"max,omitempty"`
	Min           []float32 `json:"min,omitempty"`
}

// Accessor component types this writer uses.
const (
	componentFloat         = 5126
	componentUnsignedShort = 5123
	componentUnsignedByte  = 5121
)

type bufferViewDoc struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	Target     int `json:"target,omitempty"`
}

// Buffer view targets.
const (
	targetArrayBuffer        = 34962
	targetElementArrayBuffer = 34963
)

type bufferDoc struct {
	ByteLength int `json:"byteLength"`
}
