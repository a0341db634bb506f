// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/platform"
)

func buildTreeWithOneUnknownChild(t *testing.T) []byte {
	t.Helper()
	w := chunk.NewWriter()
	root := w.OpenRoot(chunk.TagUCFB)
	xxx1 := root.OpenChild(chunk.TagFromBytes([4]byte{'x', 'x', 'x', '1'}))
	xxx1.WriteBytes([]byte{1, 2, 3, 4})
	if err := xxx1.Close(false); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := root.Close(false); err != nil {
		t.Fatalf("close root: %v", err)
	}
	return w.Bytes()
}

// TestUnknownFallbackInvokedOnce is testable property 6:
// a synthetic tag with no handler invokes the unknown handler exactly
// once per occurrence.
func TestUnknownFallbackInvokedOnce(t *testing.T) {
	raw := buildTreeWithOneUnknownChild(t)
	r, err := chunk.Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var calls int32
	table := NewTable()
	table.SetUnknownHandler(func(ctx *Context, child *chunk.Reader, group *Group) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	ctx := &Context{Platform: platform.PC, GameVersion: platform.SWBFII}
	group := NewGroup()
	if err := DispatchChildren(table, ctx, r, group); err != nil {
		t.Fatalf("DispatchChildren: %v", err)
	}
	if failures := group.Wait(); len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if calls != 1 {
		t.Errorf("unknown handler called %d times, want 1", calls)
	}
}

// TestPrecedence is testable property 7: with handlers registered for
// (pc, swbf_ii) and (ps2, swbf_ii), xbox picks the first registration for
// the tag and ps2 picks its own.
func TestPrecedence(t *testing.T) {
	tag := chunk.TagMODL
	table := NewTable()

	pcCalled := false
	ps2Called := false

	table.Register(tag, platform.PC, platform.SWBFII, func(ctx *Context, r *chunk.Reader, g *Group) error {
		pcCalled = true
		return nil
	})
	table.Register(tag, platform.PS2, platform.SWBFII, func(ctx *Context, r *chunk.Reader, g *Group) error {
		ps2Called = true
		return nil
	})

	h := table.Lookup(tag, platform.Xbox, platform.SWBFII)
	if h == nil {
		t.Fatal("no handler resolved for xbox")
	}
	pcCalled, ps2Called = false, false
	if err := h(nil, nil, nil); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !pcCalled || ps2Called {
		t.Errorf("xbox lookup should fall back to the first (pc) registration: pcCalled=%v ps2Called=%v", pcCalled, ps2Called)
	}

	h = table.Lookup(tag, platform.PS2, platform.SWBFII)
	pcCalled, ps2Called = false, false
	if err := h(nil, nil, nil); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if pcCalled || !ps2Called {
		t.Errorf("ps2 lookup should pick its own exact registration: pcCalled=%v ps2Called=%v", pcCalled, ps2Called)
	}
}

func TestGroupRecoversPanicAsFailure(t *testing.T) {
	group := NewGroup()
	group.Spawn(chunk.TagMODL, 4, func() error {
		panic("boom")
	})
	failures := group.Wait()
	if len(failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(failures))
	}
	if failures[0].Tag != chunk.TagMODL {
		t.Errorf("tag = %v", failures[0].Tag)
	}
}

func TestGroupContinuesAfterFailure(t *testing.T) {
	group := NewGroup()
	group.Spawn(chunk.TagMODL, 1, func() error { return errors.New("a") })
	group.Spawn(chunk.TagSKEL, 2, func() error { return errors.New("b") })
	group.Spawn(chunk.TagCOLL, 3, func() error { return nil })
	failures := group.Wait()
	if len(failures) != 2 {
		t.Fatalf("failures = %d, want 2", len(failures))
	}
}
