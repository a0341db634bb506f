// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package handlers implements one chunk handler per tag family, each
// grounded file-for-file on a matching handle_*.cpp: decode a chunk's
// children with internal/chunk, feed renderable fragments into
// internal/model.Builder, and emit everything else (text, raw dumps,
// textures) through the shared collaborators in Env.
package handlers

import (
	"log"

	"github.com/ucfb-tools/unmunge/internal/dispatch"
	"github.com/ucfb-tools/unmunge/internal/filesaver"
	"github.com/ucfb-tools/unmunge/internal/hashdict"
	"github.com/ucfb-tools/unmunge/internal/imagefmt"
	"github.com/ucfb-tools/unmunge/internal/model"
)

// Env bundles every collaborator a handler may need. It travels inside
// dispatch.Context.Env rather than by embedding, since dispatch.Handler's
// signature is fixed; FromContext recovers it with one type assertion per
// handler entry point instead of scattering assertions through the tree.
type Env struct {
	Builder     *model.Builder
	Files       filesaver.Filesystem
	Logger      *log.Logger
	ImageFormat imagefmt.ImageFormat
}

// FromContext recovers the Env bundle a dispatch.Context carries. It
// panics on a nil/mistyped Env, the same contract ReadTrivial's "not a
// fixed-size POD layout" error communicates for a handler author's
// mistake rather than a malformed input file.
func FromContext(ctx *dispatch.Context) *Env {
	env, ok := ctx.Env.(*Env)
	if !ok || env == nil {
		panic("handlers: dispatch.Context.Env is not a *handlers.Env")
	}
	return env
}

// lookupHashed resolves a possibly-hashed name through the hash-name
// dictionary, falling back to its hex form when unknown, the same
// "lookup or hex" fallback server/world/entity_data_loader.go's entity
// lookups use for an unrecognized hash.
func lookupHashed(hash uint32) string {
	return hashdict.LookupOrHex(hash)
}
