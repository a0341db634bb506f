// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"strconv"
	"sync/atomic"

	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
)

var chunkCounter int64

// nextUniqueChunkName names a chunk with no declared NAME child, mirroring
// handle_unknown.cpp's atomic chunk_# counter.
func nextUniqueChunkName() string {
	n := atomic.AddInt64(&chunkCounter, 1)
	return "chunk_" + strconv.FormatInt(n, 10)
}

// Unknown is the dispatch table's catch-all fallback: any tag with no
// registered handler gets saved verbatim as a ".munged" file.
func Unknown(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	return saveUnknown(ctx, r, "", ".munged")
}

// saveUnknown writes r's raw bytes (re-wrapped per dumpRaw) under name
// (or a generated one) with the given extension.
func saveUnknown(ctx *dispatch.Context, r *chunk.Reader, name, extension string) error {
	env := FromContext(ctx)
	raw, err := dumpRaw(r)
	if err != nil {
		return err
	}
	if name == "" {
		name = nextUniqueChunkName()
	}
	return env.Files.SaveFile("munged/"+name+extension, raw)
}
