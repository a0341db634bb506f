// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lua4 is the disassembly seam for compiled Lua 4.0 bytecode (the
// dialect this engine's script chunks embed). Disassemble decodes no
// opcodes: it returns ErrUnsupportedBytecode for every input. The package
// never interprets or executes the bytecode.
package lua4

import "errors"

// ErrUnsupportedBytecode is returned by Disassemble for every input,
// whatever its header.
var ErrUnsupportedBytecode = errors.New("lua4: unrecognized or unsupported bytecode header")

// Disassemble renders bytecode as a textual opcode listing. This is a
// documented stub: full Lua 4.0 opcode decoding is out of core scope for
// this tool, which only needs a named seam script.go can call.
func Disassemble(bytecode []byte) (string, error) {
	if len(bytecode) < 4 {
		return "", ErrUnsupportedBytecode
	}
	return "", ErrUnsupportedBytecode
}
