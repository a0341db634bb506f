// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// lodSuffixes maps a part-name suffix to the Lod it declares. Order
// matters: longer suffixes must be tried before their prefixes (e.g.
// "_LOD1" before a hypothetical "_LOD").
var lodSuffixes = []struct {
	suffix string
	lod    Lod
}{
	{"_lowrez", LodLowRes},
	{"_lowres", LodLowRes},
	{"_LOD0", Lod0},
	{"_LOD1", Lod1},
	{"_LOD2", Lod2},
	// The source maps a third "_LOD3" suffix to Lod::two, which reads like
	// a typo (LOD2 already exists). Preserved as-is, not "fixed" (see
	// DESIGN.md), so behavior matches every mod archive that was built
	// against the original tool.
	{"_LOD3", Lod2},
}

// ParseModelName splits a raw part name into its base name and declared
// Lod, defaulting to Lod0 when no recognized suffix is present.
func ParseModelName(raw string) (base string, lod Lod) {
	for _, s := range lodSuffixes {
		if strings.HasSuffix(raw, s.suffix) {
			return strings.TrimSuffix(raw, s.suffix), s.lod
		}
	}
	return raw, Lod0
}
