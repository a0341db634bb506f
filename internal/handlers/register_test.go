// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"reflect"
	"testing"

	"github.com/ucfb-tools/unmunge/internal/platform"
)

// TestBuildTableResolvesExpectedHandlers spot-checks a representative
// slice of chunk_processor.cpp's table: the root/nested container tags,
// one class chunk, one config chunk, and the version-sensitive plan/PATH
// entries.
func TestBuildTableResolvesExpectedHandlers(t *testing.T) {
	table := BuildTable()

	tests := []struct {
		name    string
		tag     string
		plat    platform.Platform
		version platform.GameVersion
	}{
		{"ucfb root", "ucfb", platform.PC, platform.SWBFII},
		{"lvl_ nested level", "lvl_", platform.PC, platform.SWBFII},
		{"entc object class", "entc", platform.PC, platform.SWBFII},
		{"fx__ config", "fx__", platform.PC, platform.SWBFII},
		{"tern terrain", "tern", platform.PC, platform.SWBFII},
		{"wrld world", "wrld", platform.PC, platform.SWBFII},
		{"Locl localization", "Locl", platform.PC, platform.SWBFII},
		{"PATH swbf1 splines", "PATH", platform.PC, platform.SWBF},
		{"plan swbf1 planning", "plan", platform.PC, platform.SWBF},
		{"plan swbf2 planning", "plan", platform.PC, platform.SWBFII},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := table.Lookup(mustTag(tt.tag), tt.plat, tt.version)
			if h == nil {
				t.Fatalf("no handler resolved for tag %q", tt.tag)
			}
		})
	}
}

// TestBuildTableTexPs2XboxFallToUnknown is the Go equivalent of the
// source's explicit nullptr registrations for tex_ on ps2/xbox: those
// platforms must not resolve to the real pc Texture decoder through
// Lookup's platform-match fallback.
func TestBuildTableTexPs2XboxFallToUnknown(t *testing.T) {
	table := BuildTable()
	tag := mustTag("tex_")

	pc := table.Lookup(tag, platform.PC, platform.SWBFII)
	ps2 := table.Lookup(tag, platform.PS2, platform.SWBFII)
	xbox := table.Lookup(tag, platform.Xbox, platform.SWBFII)

	if pc == nil || ps2 == nil || xbox == nil {
		t.Fatal("expected a handler for every platform")
	}

	pcPtr := reflect.ValueOf(pc).Pointer()
	if reflect.ValueOf(ps2).Pointer() == pcPtr {
		t.Error("ps2 tex_ resolved to the same handler as pc; want the raw-dump fallback")
	}
	if reflect.ValueOf(xbox).Pointer() == pcPtr {
		t.Error("xbox tex_ resolved to the same handler as pc; want the raw-dump fallback")
	}
	if reflect.ValueOf(ps2).Pointer() != reflect.ValueOf(Unknown).Pointer() {
		t.Error("ps2 tex_ did not resolve to Unknown")
	}
}

// TestBuildTableIgnoredTagsProduceNoError confirms gmod/plnp resolve to
// a handler that succeeds without touching ctx/r/group, matching
// ignore_chunk's no-op semantics.
func TestBuildTableIgnoredTagsProduceNoError(t *testing.T) {
	table := BuildTable()
	for _, tag := range []string{"gmod", "plnp"} {
		h := table.Lookup(mustTag(tag), platform.PC, platform.SWBFII)
		if h == nil {
			t.Fatalf("no handler resolved for tag %q", tag)
		}
		if err := h(nil, nil, nil); err != nil {
			t.Errorf("tag %q: unexpected error %v", tag, err)
		}
	}
}
