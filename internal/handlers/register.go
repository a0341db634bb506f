// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
	"github.com/ucfb-tools/unmunge/internal/platform"
)

// configClass is one row of the config registration table below: a tag
// plus the extension/directory pair handle_config.cpp's call site
// hardcodes for it.
type configClass struct {
	tag, extension, dir string
}

var configEntries = []configClass{
	{"fx__", ".fx", "effects"},
	{"sky_", ".sky", "world"},
	{"prp_", ".prp", "world"},
	{"bnd_", ".bnd", "world"},
	{"lght", ".light", "world"},
	{"port", ".pvs", "world"},
	{"path", ".pth", "world"},
	{"comb", ".combo", "combos"},
	{"sanm", ".sanm", "config"},
	{"hud_", ".hud", "config"},
	{"load", ".cfg", "config"},
}

// objectClasses maps the four ODF class-chunk tags to the bracketed
// class name handle_object.cpp's call site hardcodes per tag.
var objectClasses = map[string]string{
	"entc": "GameObjectClass",
	"expc": "ExplosionClass",
	"ordc": "OrdnanceClass",
	"wpnc": "WeaponClass",
}

// BuildTable assembles the shared dispatch.Table every chunk in a run is
// resolved against, mirroring chunk_processors' initializer list in
// chunk_processor.cpp entry for entry. It also installs itself as the
// table lvl_child.go's LvlChild (and any other recursing handler) reads
// back through Table(), so callers only need to invoke this once.
func BuildTable() *dispatch.Table {
	t := dispatch.NewTable()

	t.Register(mustTag("ucfb"), platform.PC, platform.SWBFII, Ucfb)
	t.Register(mustTag("lvl_"), platform.PC, platform.SWBFII, LvlChild)

	for tag, className := range objectClasses {
		t.Register(mustTag(tag), platform.PC, platform.SWBFII, ObjectHandler(className))
	}

	for _, e := range configEntries {
		extension, dir := e.extension, e.dir
		handler := func(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
			return Config(ctx, r, group, extension, dir, false)
		}
		t.Register(mustTag(e.tag), platform.PC, platform.SWBFII, handler)
	}

	// tex_ decodes for real on pc; the source registers ps2/xbox with an
	// explicit nullptr processor, which process_chunk treats as "dump it
	// raw" rather than "no entry" — registering them against Unknown here
	// reproduces that instead of letting Lookup's platform-match fallback
	// hand ps2/xbox input to the pc decoder.
	t.Register(mustTag("tex_"), platform.PC, platform.SWBFII, Texture)
	t.Register(mustTag("tex_"), platform.PS2, platform.SWBFII, Unknown)
	t.Register(mustTag("tex_"), platform.Xbox, platform.SWBFII, Unknown)

	t.Register(mustTag("wrld"), platform.PC, platform.SWBFII, World)
	t.Register(mustTag("plan"), platform.PC, platform.SWBFII, Planning)
	t.Register(mustTag("plan"), platform.PC, platform.SWBF, Planning)
	t.Register(mustTag("PATH"), platform.PC, platform.SWBF, PathSplines)
	t.Register(mustTag("tern"), platform.PC, platform.SWBFII, Terrain)

	t.Register(mustTag("skel"), platform.PC, platform.SWBFII, Skeleton)
	t.Register(mustTag("modl"), platform.PC, platform.SWBFII, Model)
	t.Register(mustTag("coll"), platform.PC, platform.SWBFII, Collision)
	t.Register(mustTag("prim"), platform.PC, platform.SWBFII, Primitives)

	// clot/scr_/shdr/font/zaab: handle_cloth.cpp/handle_script.cpp/
	// handle_misc.cpp are never reached through chunk_processors in the
	// source itself (no Key_value_pair registers them there), but every
	// one of them is a complete, spec-named handler, so this port gives
	// them real tags on the engine's own truncate-to-four/pad-with-
	// underscore convention (tex_, fx__, sky_, hud_, ...) instead of
	// leaving finished code unreachable.
	t.Register(mustTag("clot"), platform.PC, platform.SWBFII, Cloth)
	t.Register(mustTag("scr_"), platform.PC, platform.SWBFII, Script)
	t.Register(mustTag("shdr"), platform.PC, platform.SWBFII, Shader)
	t.Register(mustTag("font"), platform.PC, platform.SWBFII, Font)
	t.Register(mustTag("zaab"), platform.PC, platform.SWBFII, Zaabin)

	t.Register(mustTag("Locl"), platform.PC, platform.SWBFII, Localization)

	t.Register(mustTag("gmod"), platform.PC, platform.SWBFII, Ignored)
	t.Register(mustTag("plnp"), platform.PC, platform.SWBFII, Ignored)

	t.SetUnknownHandler(Unknown)

	SetTable(t)
	return t
}
