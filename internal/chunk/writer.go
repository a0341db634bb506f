// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package chunk

import (
	"bytes"
	"encoding/binary"
)

const maxChunkSize = 1<<31 - 1

// Writer is an append-only byte sink with a stack of open chunk frames.
// Opening a chunk writes its tag and a 4-byte placeholder size and pushes
// a frame; closing the frame back-patches the size and pads to the next
// 4-byte boundary. Every open has a matching close, modeled as a
// *ChildWriter value whose Close pops its own frame, mirroring the
// source's mandatory RAII write-scope.
type Writer struct {
	buf    bytes.Buffer
	frames []frame
}

type frame struct {
	sizeOffset int
	bodyStart  int
}

// NewWriter returns an empty Writer with no open frames.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the bytes written so far. Only meaningful once every
// opened frame has been closed.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// OpenRoot opens the outermost chunk. It is equivalent to OpenChild but
// named for readability at call sites that build a whole tree from a
// single root tag.
func (w *Writer) OpenRoot(tag Tag) *ChildWriter {
	return w.OpenChild(tag)
}

// OpenChild writes tag + a 4-byte size placeholder, pushes a frame, and
// returns a ChildWriter scoped to it. The caller must call Close (or Pad
// then Close) exactly once.
func (w *Writer) OpenChild(tag Tag) *ChildWriter {
	b := tag.Bytes()
	w.buf.Write(b[:])
	sizeOffset := w.buf.Len()
	var placeholder [4]byte
	w.buf.Write(placeholder[:])
	w.frames = append(w.frames, frame{sizeOffset: sizeOffset, bodyStart: w.buf.Len()})
	return &ChildWriter{w: w, depth: len(w.frames)}
}

// ChildWriter scopes writes to the most recently opened chunk frame. Its
// zero value is not usable; obtain one from Writer.OpenChild/OpenRoot.
type ChildWriter struct {
	w      *Writer
	depth  int
	closed bool
}

func (c *ChildWriter) checkOpen() {
	if c.closed {
		panic("chunk: write to a ChildWriter after Close")
	}
}

// Write appends a fixed-size value T using little-endian field-by-field
// encoding (the writer-side mirror of ReadTrivial).
func Write[T any](c *ChildWriter, v T) error {
	c.checkOpen()
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return err
	}
	c.w.buf.Write(buf.Bytes())
	return nil
}

// WriteBytes appends raw bytes verbatim.
func (c *ChildWriter) WriteBytes(b []byte) {
	c.checkOpen()
	c.w.buf.Write(b)
}

// WriteString appends s followed by a NUL terminator, aligned to 4 bytes
// unless unaligned is requested.
func (c *ChildWriter) WriteString(s string, unaligned bool) {
	c.checkOpen()
	c.w.buf.WriteString(s)
	c.w.buf.WriteByte(0)
	if !unaligned {
		c.alignSelf()
	}
}

// WriteStringUnaligned appends s followed by a NUL terminator with no
// trailing alignment padding.
func (c *ChildWriter) WriteStringUnaligned(s string) {
	c.WriteString(s, true)
}

// Pad appends n zero bytes.
func (c *ChildWriter) Pad(n int) {
	c.checkOpen()
	if n <= 0 {
		return
	}
	c.w.buf.Write(make([]byte, n))
}

// alignSelf pads the current frame's body (not the whole buffer, but
// since the buffer only ever grows at the tail while this frame is open
// these coincide) to a 4-byte boundary relative to the frame's start.
func (c *ChildWriter) alignSelf() {
	f := c.w.frames[c.depth-1]
	bodyLen := c.w.buf.Len() - f.bodyStart
	if pad := padding(bodyLen); pad > 0 {
		c.w.buf.Write(make([]byte, pad))
	}
}

// OpenChild opens a nested chunk inside this one.
func (c *ChildWriter) OpenChild(tag Tag) *ChildWriter {
	c.checkOpen()
	return c.w.OpenChild(tag)
}

// Close pops this frame, back-patches its size field, and pads to the
// next 4-byte boundary unless unaligned is true. Closing the same
// ChildWriter twice panics: callers own exactly one Close per Open.
func (c *ChildWriter) Close(unaligned bool) error {
	if c.closed {
		panic("chunk: double Close of a ChildWriter")
	}
	c.closed = true

	f := c.w.frames[len(c.w.frames)-1]
	c.w.frames = c.w.frames[:len(c.w.frames)-1]

	bodyLen := c.w.buf.Len() - f.bodyStart
	if bodyLen > maxChunkSize {
		return ErrTooLarge
	}

	out := c.w.buf.Bytes()
	binary.LittleEndian.PutUint32(out[f.sizeOffset:f.sizeOffset+4], uint32(bodyLen))

	if !unaligned {
		if pad := padding(bodyLen); pad > 0 {
			c.w.buf.Write(make([]byte, pad))
		}
	}
	return nil
}
