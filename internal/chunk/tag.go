// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package chunk

import "fmt"

// Tag is a chunk's 4-byte type discriminator, stored as the little-endian
// packing of its four ASCII bytes.
type Tag uint32

// TagFromBytes packs four raw bytes (in file order) into a Tag.
func TagFromBytes(b [4]byte) Tag {
	return Tag(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}

// Bytes unpacks the Tag back into its four raw file-order bytes.
func (t Tag) Bytes() [4]byte {
	return [4]byte{byte(t), byte(t >> 8), byte(t >> 16), byte(t >> 24)}
}

// printable reports whether b is in [0-9A-Za-z_], the explode "looks like
// an ASCII tag" alphabet.
func printable(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '_'
}

// Printable reports whether every byte of the tag is in the explode
// alphabet, i.e. the tag could be rendered as ASCII in a filename.
func (t Tag) Printable() bool {
	b := t.Bytes()
	for _, c := range b {
		if !printable(c) {
			return false
		}
	}
	return true
}

// String renders the tag as its ASCII form when printable, else as a
// little-endian hex-escaped "aa-bb-cc-dd" form.
func (t Tag) String() string {
	if t.Printable() {
		b := t.Bytes()
		return string(b[:])
	}
	b := t.Bytes()
	return fmt.Sprintf("%02x-%02x-%02x-%02x", b[0], b[1], b[2], b[3])
}

// Well-known tags. Non-exhaustive.
var (
	TagUCFB = mustTag("ucfb") // root container
	TagLVL  = mustTag("lvl_") // child container wrapper (hash + remaining-size header)
	TagTEX  = mustTag("tex_")
	TagMODL = mustTag("modl")
	TagSKEL = mustTag("skel")
	TagCOLL = mustTag("coll")
	TagPRIM = mustTag("prim")
	TagWRLD = mustTag("wrld")
	TagTERN = mustTag("tern")
	TagPLAN = mustTag("plan")
	TagPATH = mustTag("PATH")
	TagLocl = mustTag("Locl")
	TagSCR  = mustTag("scr_")
	TagFX   = mustTag("fx__")
	TagENTC = mustTag("entc")
	TagEXPC = mustTag("expc")
	TagORDC = mustTag("ordc")
	TagWPNC = mustTag("wpnc")
	TagGMOD = mustTag("gmod") // ignored
	TagPLNP = mustTag("plnp") // ignored
)

func mustTag(s string) Tag {
	if len(s) != 4 {
		panic("chunk: tag literal must be 4 bytes: " + s)
	}
	return TagFromBytes([4]byte{s[0], s[1], s[2], s[3]})
}
