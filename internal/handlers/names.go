// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import "github.com/ucfb-tools/unmunge/internal/chunk"

// readNameThenReset reads r's leading NAME child for its string value,
// then rewinds r to the start, the pattern handle_script.cpp /
// handle_shader / handle_font / handle_zaabin all share: peek the name,
// then hand the whole untouched chunk to the raw-dump path.
func readNameThenReset(r *chunk.Reader) (string, error) {
	name, err := readStringChild(r, tagNAME)
	if err != nil {
		return "", err
	}
	r.ResetHead()
	return name, nil
}

// readStringChild reads a NUL-terminated string out of the next child
// tagged tag.
func readStringChild(r *chunk.Reader, tag chunk.Tag) (string, error) {
	child, err := r.ReadChildStrict(tag, false)
	if err != nil {
		return "", err
	}
	s, err := child.ReadString(false)
	if err != nil {
		return "", err
	}
	return string(s), nil
}
