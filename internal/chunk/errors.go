// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chunk implements the zero-copy bounds-checked reader and the
// deferred-size writer for the tagged, length-prefixed chunk tree that
// every other package in this module builds on.
package chunk

import "errors"

var (
	// ErrEndOfChunk is returned when a read would advance past the
	// chunk's declared payload size.
	ErrEndOfChunk = errors.New("chunk: read past end of chunk")
	// ErrTagMismatch is returned by a strict child read when the next
	// child's tag does not match what was expected. The head is restored.
	ErrTagMismatch = errors.New("chunk: tag mismatch")
	// ErrTooSmall is returned by Open when the input is too small to
	// hold even a chunk header.
	ErrTooSmall = errors.New("chunk: input smaller than a chunk header")
	// ErrDeclaredSizeOverrun is returned by Open when the root chunk's
	// declared payload size exceeds the bytes actually available. A child
	// read reports the same condition as ErrEndOfChunk.
	ErrDeclaredSizeOverrun = errors.New("chunk: declared size exceeds available bytes")
	// ErrTooLarge is returned by the writer when an open frame's
	// cumulative size would exceed the 31-bit size field.
	ErrTooLarge = errors.New("chunk: payload exceeds maximum chunk size")
	// ErrMissingNUL is returned when a string read runs off the end of
	// the chunk without finding a NUL terminator.
	ErrMissingNUL = errors.New("chunk: string missing NUL terminator within chunk")
)
