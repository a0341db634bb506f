// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
	"github.com/ucfb-tools/unmunge/internal/lua4"
)

var luaHeaderMagic = [4]byte{0x1B, 'L', 'u', 'a'}

// Script handles scr_ chunks: it always saves the raw chunk verbatim
// under the declared name (handle_unknown.cpp's fallback dump, per
// handle_script.cpp), and additionally attempts Lua-4 disassembly of any
// BODY child whose leading 4 bytes are the "\x1BLua" bytecode signature,
// saving the disassembly text alongside when it succeeds.
func Script(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	env := FromContext(ctx)

	name, err := readStringChild(r, tagNAME)
	if err != nil {
		return err
	}

	for r.HasMore() {
		child, err := r.ReadChild(false)
		if err != nil {
			return err
		}
		if child.Tag() != tagBODY {
			continue
		}
		if text, ok := tryDisassemble(child); ok {
			if err := env.Files.SaveFile("munged/"+name+".lua.txt", []byte(text)); err != nil {
				return err
			}
		}
	}

	r.ResetHead()
	return saveUnknown(ctx, r, name, ".script")
}

func tryDisassemble(body *chunk.Reader) (string, bool) {
	header, err := body.ReadArrayBorrow(4)
	if err != nil || [4]byte(header) != luaHeaderMagic {
		return "", false
	}
	bytecode, err := body.ReadArrayBorrow(body.Remaining())
	if err != nil {
		return "", false
	}
	text, err := lua4.Disassemble(bytecode)
	if err != nil {
		return "", false
	}
	return text, true
}
