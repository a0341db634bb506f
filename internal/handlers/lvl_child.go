// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
)

// LvlChild handles a nested lvl_ container: after its 8-byte
// name-hash/remaining-size header, its body is just another chunk tree.
// handle_lvl_child.cpp gives each nested level its own Models_builder and
// saves it immediately; this dispatcher shares one Builder for the whole
// run instead (see internal/dispatch's Context.Env), so here it only
// needs to recurse the table over the level's children into the same
// group, not stand up a second builder/save pass.
func LvlChild(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	if err := r.Consume(8, false); err != nil {
		return err
	}
	return dispatch.DispatchChildren(Table(), ctx, r, group)
}

// Ucfb handles the root container chunk (and any ucfb chunk nested
// deeper than the root, e.g. one archive embedded inside another):
// unlike LvlChild it carries no name-hash/remaining-size header of its
// own, so it recurses over its children directly.
func Ucfb(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	return dispatch.DispatchChildren(Table(), ctx, r, group)
}

// tableRef is set by register.go once the full dispatch.Table is built, so
// LvlChild (and anything else recursing into the same tag set) doesn't
// need its own copy threaded through Env.
var tableRef *dispatch.Table

// Table returns the shared dispatch.Table handlers recurse into for
// nested containers (lvl_, world sectors). SetTable must be called once
// during registration before any chunk is dispatched.
func Table() *dispatch.Table { return tableRef }

// SetTable installs the table LvlChild and other recursing handlers use.
func SetTable(t *dispatch.Table) { tableRef = t }
