// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "sync"

// Bone is a skeleton joint contributed by a skel chunk.
type Bone struct {
	Name      string
	Parent    string
	Transform Mat4x3
}

// Part is a renderable mesh fragment contributed by a modl/prim chunk.
type Part struct {
	Name      string
	Parent    string
	Transform Mat4x3
	Material  Material
	Geometry  Geometry
	Lod       Lod
}

// NamedCollisionPrimitive is a collision primitive contributed by a coll
// chunk, with the node name/parent it should attach under.
type NamedCollisionPrimitive struct {
	Name      string
	Parent    string
	Transform Mat4x3
	Primitive CollisionPrimitive
}

// NamedClothGeometry is a cloth fragment with the node name/parent it
// should attach under.
type NamedClothGeometry struct {
	Name      string
	Parent    string
	Transform Mat4x3
	Cloth     ClothGeometry
}

// Model is one handler's contribution to a named model, as produced by a
// single chunk handler before integration.
type Model struct {
	Name                string
	Bones               []Bone
	Parts               []Part
	CollisionMeshes      []CollisionMesh
	CollisionPrimitives []NamedCollisionPrimitive
	Cloths              []NamedClothGeometry
}

// modelEntry is the accumulated state for one model name.
type modelEntry struct {
	name                string
	bones               []Bone
	parts               []Part
	collisionMeshes      []CollisionMesh
	collisionPrimitives []NamedCollisionPrimitive
	cloths              []NamedClothGeometry
}

// Builder is the thread-safe integrator for partial model fragments: a
// single mutator method (Integrate) merging fragments by model name under
// one mutex, and a reader method (SaveAll) that converts each accumulated
// model to a Scene and hands it to a caller-supplied emit function.
//
// A single sync.Mutex guards a map[string]*modelEntry, the same coarse
// mutex-over-a-name-keyed-map shape server/world/sector/World uses for
// its entityIDs index.
type Builder struct {
	mu      sync.Mutex
	entries map[string]*modelEntry
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{entries: make(map[string]*modelEntry)}
}

// Integrate merges m into the existing entry for m.Name, or inserts a new
// one. Safe to call concurrently from many dispatcher handler goroutines.
func (b *Builder) Integrate(m Model) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[m.Name]
	if !ok {
		e = &modelEntry{name: m.Name}
		b.entries[m.Name] = e
	}
	e.bones = append(e.bones, m.Bones...)
	e.parts = append(e.parts, m.Parts...)
	e.collisionMeshes = append(e.collisionMeshes, m.CollisionMeshes...)
	e.collisionPrimitives = append(e.collisionPrimitives, m.CollisionPrimitives...)
	e.cloths = append(e.cloths, m.Cloths...)
}

// DiscardFlags selects which fragments SaveAll drops before scene
// conversion, driven by the -modeldiscard CLI option.
type DiscardFlags struct {
	LOD        bool // drop non-LOD0 parts
	Collision  bool // drop collision meshes/primitives
}

// SaveFailure records one model's emit failure without aborting the
// others.
type SaveFailure struct {
	Model string
	Err   error
}

func (f SaveFailure) Error() string {
	return "model " + f.Model + ": " + f.Err.Error()
}

// Names returns every integrated model name, sorted, for deterministic
// iteration order in SaveAll and in tests.
func (b *Builder) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.entries))
	for name := range b.entries {
		names = append(names, name)
	}
	sortStrings(names)
	return names
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// SaveAll converts each integrated model to a Scene (applying discard per
// DiscardFlags) and invokes emit on it. A failure from emit, or from scene
// construction, is recorded and does not stop the remaining models from
// being attempted.
func (b *Builder) SaveAll(discard DiscardFlags, emit func(*Scene) error) []SaveFailure {
	b.mu.Lock()
	entries := make([]*modelEntry, 0, len(b.entries))
	for _, name := range sortedKeys(b.entries) {
		entries = append(entries, b.entries[name])
	}
	b.mu.Unlock()

	var failures []SaveFailure
	for _, e := range entries {
		scene, err := buildScene(e, discard)
		if err != nil {
			failures = append(failures, SaveFailure{Model: e.name, Err: err})
			continue
		}
		if err := emit(scene); err != nil {
			failures = append(failures, SaveFailure{Model: e.name, Err: err})
		}
	}
	return failures
}

func sortedKeys(m map[string]*modelEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortStrings(keys)
	return keys
}
