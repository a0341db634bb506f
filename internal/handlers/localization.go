// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"strings"
	"unicode/utf16"

	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
	"github.com/ucfb-tools/unmunge/internal/textsafety"
)

// Localization handles Locl chunks. The source fans this out into two
// tbb::task_group tasks — one dumping the chunk's raw bytes under a
// ".loc" extension via handle_unknown, one parsing BODY's UTF-16
// key/value sections into a plain-text ".txt" — so this port spawns the
// same two tasks through dispatch.Group.
func Localization(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	name, err := readStringChild(r, tagNAME)
	if err != nil {
		return err
	}

	group.Spawn(r.Tag(), r.Size(), func() error {
		return saveUnknown(ctx, r, name, ".loc")
	})

	body, err := r.ReadChildStrict(tagBODY, false)
	if err != nil {
		return err
	}
	return dumpLocalization(ctx, name, body)
}

func dumpLocalization(ctx *dispatch.Context, name string, body *chunk.Reader) error {
	env := FromContext(ctx)

	var sb strings.Builder
	sb.Grow(16384)

	for body.HasMore() {
		hash, err := chunk.ReadTrivial[uint32](body, true)
		if err != nil {
			return err
		}
		if hash == 0 {
			break
		}
		sectionSize, err := chunk.ReadTrivial[uint16](body, true)
		if err != nil {
			return err
		}
		if sectionSize < 6 {
			return chunk.ErrEndOfChunk
		}
		units, err := chunk.ReadArray[uint16](body, int(sectionSize-6)/2, true)
		if err != nil {
			return err
		}

		text := decodeLocalizationText(units)
		text, censored := textsafety.Scrub(text)
		if censored && env.Logger != nil {
			env.Logger.Printf("localization %s: censored key %s", name, lookupHashed(hash))
		}

		sb.WriteString(lookupHashed(hash))
		sb.WriteString(`="`)
		sb.WriteString(escapeLocalizationText(text))
		sb.WriteString("\"\n")
	}

	return env.Files.SaveFile("localization/"+name+".txt", []byte(sb.String()))
}

// decodeLocalizationText turns raw UTF-16LE code units into a UTF-8
// string. The source hand-rolls this conversion bit-by-bit; Go's
// unicode/utf16 decoder does the same job (unpaired surrogates become
// the replacement character, matching the source's add_invalid_char
// fallback), except it never special-cases 0xFFFE/0xFFFF the way the
// source silently drops those two code points, so this port filters
// them out first to match.
func decodeLocalizationText(units []uint16) string {
	filtered := units[:0:0]
	for _, u := range units {
		if u == 0xFFFE || u == 0xFFFF {
			continue
		}
		filtered = append(filtered, u)
	}
	return string(utf16.Decode(filtered))
}

// escapeLocalizationText doubles every backslash and escapes every
// double quote, the same find/insert loop dump_localization runs twice
// over the string before wrapping it in quotes.
func escapeLocalizationText(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r == '\\' || r == '"' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
