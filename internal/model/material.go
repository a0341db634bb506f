// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "github.com/ucfb-tools/unmunge/internal/platform"

// renderTypeTable maps a wire-format render-type ordinal to the RenderType
// enum for one game-version dialect. The source relies on SWBF's and
// SWBFII's Render_type enums sharing an underlying integer representation
// and casts between them; this is an explicit per-version table instead
// (see DESIGN.md).
type renderTypeTable []RenderType

// renderTypesByVersion is the explicit decision for Open Question 2: each
// game version gets its own ordinal->RenderType mapping rather than a
// shared numeric cast. The orderings below follow the wire layouts
// documented in original_source/src/model_types.hpp.
var renderTypesByVersion = map[platform.GameVersion]renderTypeTable{
	platform.SWBF: {
		0: RenderNormal,
		1: RenderScrolling,
		2: RenderEnvMap,
		3: RenderBump,
		4: RenderSpecular,
	},
	platform.SWBFII: {
		0: RenderNormal,
		1: RenderScrolling,
		2: RenderSpecular,
		3: RenderEnvMap,
		4: RenderBump,
	},
}

// ErrUnknownRenderType is returned when the wire ordinal has no mapping
// for the given game version.
type ErrUnknownRenderType struct {
	Version platform.GameVersion
	Ordinal uint8
}

func (e *ErrUnknownRenderType) Error() string {
	return "model: unknown render type ordinal for " + e.Version.String()
}

// ParseRenderType resolves a wire-format render-type ordinal to a
// RenderType using the per-version table (never a numeric cast).
func ParseRenderType(version platform.GameVersion, ordinal uint8) (RenderType, error) {
	table, ok := renderTypesByVersion[version]
	if !ok || int(ordinal) >= len(table) {
		return RenderNormal, &ErrUnknownRenderType{Version: version, Ordinal: ordinal}
	}
	return table[ordinal], nil
}

// DeduplicateMaterials builds a structural-equality dedup table with
// DefaultMaterial at slot 0 and returns the table plus a function mapping
// each input material to its table slot.
func DeduplicateMaterials(materials []Material) (table []Material, indexOf func(Material) int) {
	table = []Material{DefaultMaterial}
	seen := map[Material]int{DefaultMaterial: 0}

	for _, m := range materials {
		if _, ok := seen[m]; !ok {
			seen[m] = len(table)
			table = append(table, m)
		}
	}
	indexOf = func(m Material) int {
		if idx, ok := seen[m]; ok {
			return idx
		}
		return 0
	}
	return table, indexOf
}
