// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import "github.com/ucfb-tools/unmunge/internal/chunk"

func mustTag(s string) chunk.Tag {
	if len(s) != 4 {
		panic("handlers: tag literal must be 4 bytes: " + s)
	}
	return chunk.TagFromBytes([4]byte{s[0], s[1], s[2], s[3]})
}

var (
	tagNAME = mustTag("NAME")
	tagINFO = mustTag("INFO")
	tagPRNT = mustTag("PRNT")
	tagXFRM = mustTag("XFRM")
	tagMASK = mustTag("MASK")
	tagNODE = mustTag("NODE")
	tagTREE = mustTag("TREE")
	tagLEAF = mustTag("LEAF")
	tagPOSI = mustTag("POSI")
	tagDATA = mustTag("DATA")
	tagBODY = mustTag("BODY")
	tagRTYP = mustTag("RTYP")

	tagSEGM = mustTag("segm")
	tagVRTX = mustTag("VRTX")
	tagMTRL = mustTag("MTRL")
	tagMNAM = mustTag("MNAM")
	tagTNAM = mustTag("TNAM")
	tagIBUF = mustTag("IBUF")
	tagVBUF = mustTag("VBUF")
	tagBNAM = mustTag("BNAM")
	tagBMAP = mustTag("BMAP")
	tagSTRP = mustTag("STRP")
	tagNORM = mustTag("NORM")
	tagTEX0 = mustTag("TEX0")
	tagCOL0 = mustTag("COL0")
	tagBONE = mustTag("BONE")
)
