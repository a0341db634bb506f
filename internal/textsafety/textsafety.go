// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package textsafety applies a moderation pass to free text extracted
// from localization chunks before it's written to disk. The localization
// handler calls it on every section unconditionally; no option turns it
// off, and object, world and script text is not passed through it. It
// uses the same moderation.Scan/Censor call shape
// server/inbound.go and server/chat_history.go use for chat messages,
// retargeted at extracted asset text instead of live player input.
package textsafety

import "github.com/finnbear/moderation"

// Scrub censors s if it scans as inappropriate, reporting whether any
// censoring occurred. Unlike the live-chat path this never rejects or
// drops text outright — a munged asset's text ships regardless — it only
// redacts flagged spans so a generated artifact doesn't surface them
// verbatim.
func Scrub(s string) (clean string, censored bool) {
	result := moderation.Scan(s)
	if !result.Is(moderation.Inappropriate) {
		return s, false
	}
	clean, _ = moderation.Censor(s, moderation.Inappropriate)
	return clean, true
}
