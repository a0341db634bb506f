// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch implements the (tag, platform, version) -> handler
// lookup table and the parallel fan-out over a chunk tree with per-task
// failure isolation.
package dispatch

import (
	"fmt"
	"sync"

	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/platform"
)

// Handler processes one chunk. It owns r exclusively for the duration of
// the call; it may spawn further work into group for grandchildren.
type Handler func(ctx *Context, r *chunk.Reader, group *Group) error

type registration struct {
	platform platform.Platform
	version  platform.GameVersion
	handler  Handler
}

// Table is the tag -> handler multimap, with the unknown-tag fallback
// used when no registration exists at all.
type Table struct {
	byTag   map[chunk.Tag][]registration
	unknown Handler
}

// NewTable returns an empty Table. Register the unknown-tag fallback with
// SetUnknownHandler before use; Dispatch falls back to a no-op otherwise.
func NewTable() *Table {
	return &Table{byTag: make(map[chunk.Tag][]registration)}
}

// Register adds a handler for tag at the given platform/version. Use
// platform.AnyPlatform / platform.AnyGameVersion as wildcards.
func (t *Table) Register(tag chunk.Tag, p platform.Platform, v platform.GameVersion, h Handler) {
	t.byTag[tag] = append(t.byTag[tag], registration{platform: p, version: v, handler: h})
}

// SetUnknownHandler installs the raw-dump fallback invoked when a tag has
// no registration at all.
func (t *Table) SetUnknownHandler(h Handler) {
	t.unknown = h
}

// Lookup resolves a handler for (tag, p, v) using five-step precedence:
//  1. exact (p, v) match
//  2. same p, any v
//  3. any p, same v
//  4. first entry for tag
//  5. unknown fallback
func (t *Table) Lookup(tag chunk.Tag, p platform.Platform, v platform.GameVersion) Handler {
	regs := t.byTag[tag]
	if len(regs) == 0 {
		return t.unknown
	}

	for _, r := range regs {
		if r.platform == p && r.version == v {
			return r.handler
		}
	}
	for _, r := range regs {
		if r.platform == p && r.version == platform.AnyGameVersion {
			return r.handler
		}
	}
	for _, r := range regs {
		if r.platform == platform.AnyPlatform && r.version == v {
			return r.handler
		}
	}
	return regs[0].handler
}

// FailureRecord captures one task's failure: the chunk's tag, declared
// size, and the error. The dispatcher task recovers, logs tag+size+
// message, and continues with siblings.
type FailureRecord struct {
	Tag  chunk.Tag
	Size int
	Err  error
}

func (f FailureRecord) String() string {
	return fmt.Sprintf("chunk %s (size %d): %v", f.Tag, f.Size, f.Err)
}

// Group is a tree-shaped unit of parallel work: a shared WaitGroup plus a
// mutex-guarded slice of failures, generalizing the two-channel fan-in
// pattern server/physics.go uses for boat/sculpt outputs into an
// arbitrary-depth task tree.
type Group struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	failures []FailureRecord
}

// NewGroup returns an empty Group.
func NewGroup() *Group {
	return &Group{}
}

// Spawn runs fn on its own goroutine, tracked by the group's WaitGroup. A
// panic inside fn is recovered and converted to a FailureRecord instead of
// crashing the process, generalizing server/hub.go's single top-level
// recover to per-task.
func (g *Group) Spawn(tag chunk.Tag, size int, fn func() error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				g.recordFailure(FailureRecord{Tag: tag, Size: size, Err: fmt.Errorf("panic: %v", r)})
			}
		}()
		if err := fn(); err != nil {
			g.recordFailure(FailureRecord{Tag: tag, Size: size, Err: err})
		}
	}()
}

func (g *Group) recordFailure(f FailureRecord) {
	g.mu.Lock()
	g.failures = append(g.failures, f)
	g.mu.Unlock()
}

// Wait blocks until every task spawned into g (transitively, since
// handlers may spawn further tasks into the same group) has completed,
// then returns all recorded failures.
func (g *Group) Wait() []FailureRecord {
	g.wg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]FailureRecord, len(g.failures))
	copy(out, g.failures)
	return out
}

// Context carries the shared, concurrency-safe services every handler
// needs: platform/version of the input, plus an opaque bundle of
// collaborators (models builder, file sink, hash dictionary, logger)
// threaded through by the caller. Handler is a fixed function type, so
// the collaborator bundle travels as Env rather than by struct embedding;
// internal/handlers defines the concrete Env type and a typed accessor.
type Context struct {
	Platform    platform.Platform
	GameVersion platform.GameVersion
	Env         interface{}
}

// DispatchChildren walks every direct child chunk of r, resolves a
// handler via t.Lookup, and spawns one task per child into group. It does
// not wait; the caller calls group.Wait() once after the whole tree has
// been walked, draining it with a single top-level wait.
func DispatchChildren(t *Table, ctx *Context, r *chunk.Reader, group *Group) error {
	for r.HasMore() {
		child, err := r.ReadChild(false)
		if err != nil {
			return err
		}
		tag, size := child.Tag(), child.Size()
		handler := t.Lookup(tag, ctx.Platform, ctx.GameVersion)
		if handler == nil {
			continue
		}
		group.Spawn(tag, size, func() error {
			return handler(ctx, child, group)
		})
	}
	return nil
}
