// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import "github.com/ucfb-tools/unmunge/internal/chunk"

// dumpRaw wraps r's tag, declared size, and raw payload bytes back into a
// miniature single-chunk container under a synthetic "ucfb" root, the
// same self-describing wrapper handle_unknown.cpp writes for any chunk it
// has no specific handler for.
func dumpRaw(r *chunk.Reader) ([]byte, error) {
	r.ResetHead()
	body, err := r.ReadArrayBorrow(r.Size())
	if err != nil {
		return nil, err
	}

	w := chunk.NewWriter()
	root := w.OpenRoot(chunk.TagUCFB)
	tagBytes := r.Tag().Bytes()
	root.WriteBytes(tagBytes[:])
	if err := chunk.Write(root, uint32(r.Size())); err != nil {
		return nil, err
	}
	root.WriteBytes(body)
	if err := root.Close(true); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
