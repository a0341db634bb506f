// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
)

// Shader, Font, and Zaabin are the simple name-then-dump handler family
// handle_misc.cpp groups together: peek a leading name/type child, then
// save the whole chunk verbatim under it with a family-specific
// extension. Zaabin additionally emits an empty ".anims" stub file, the
// same placeholder handle_misc.cpp writes alongside a raw zaabin dump.

func Shader(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	rtyp, err := readStringChild(r, tagRTYP)
	if err != nil {
		return err
	}
	r.ResetHead()
	return saveUnknown(ctx, r, rtyp, ".shader")
}

func Font(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	name, err := readNameThenReset(r)
	if err != nil {
		return err
	}
	return saveUnknown(ctx, r, name, ".font")
}

func Zaabin(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	name, err := readNameThenReset(r)
	if err != nil {
		return err
	}
	if err := saveUnknown(ctx, r, name, ".zaabin"); err != nil {
		return err
	}
	env := FromContext(ctx)
	return env.Files.SaveFile("munged/"+name+".anims", []byte("ucft\n{\n}"))
}
