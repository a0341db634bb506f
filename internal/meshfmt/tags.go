// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package meshfmt writes a model.Scene out as the legacy chunked mesh
// container (the msh/model format, not a munged archive): one MODL node
// per scene node, a shared MATL material table, and a sidecar option
// file recording the writer's own scene-interpretation choices.
package meshfmt

import "github.com/ucfb-tools/unmunge/internal/chunk"

func mustTag(s string) chunk.Tag {
	if len(s) != 4 {
		panic("meshfmt: tag literal must be 4 bytes: " + s)
	}
	return chunk.TagFromBytes([4]byte{s[0], s[1], s[2], s[3]})
}

var (
	tagSINF = mustTag("sinf") // scene info: name, framerate, bounding box
	tagMATL = mustTag("matl") // material table
	tagMATD = mustTag("matd") // one material entry
	tagMTYP = mustTag("mtyp")
	tagMNDX = mustTag("mndx")
	tagNAME = mustTag("NAME")
	tagPRNT = mustTag("PRNT")
	tagFLGS = mustTag("FLGS")
	tagTRAN = mustTag("TRAN")
	tagMODL = mustTag("MODL")
	tagGEOM = mustTag("GEOM")
	tagBBOX = mustTag("BBOX")
	tagSEGM = mustTag("SEGM")
	tagMATI = mustTag("MATI")
	tagPOSL = mustTag("POSL")
	tagWGHT = mustTag("WGHT")
	tagNRML = mustTag("NRML")
	tagCLRL = mustTag("CLRL")
	tagUV0L = mustTag("UV0L")
	tagNDXL = mustTag("NDXL")
	tagNDXT = mustTag("NDXT")
	tagSTRP = mustTag("STRP")
	tagENVL = mustTag("ENVL")
	tagSWCI = mustTag("SWCI")
	tagCLTH = mustTag("CLTH")
	tagCTEX = mustTag("CTEX")
	tagCPOS = mustTag("CPOS")
	tagCUV0 = mustTag("CUV0")
	tagCIDX = mustTag("CIDX")
	tagCFIX = mustTag("CFIX")
	tagCSTR = mustTag("CSTR")
	tagCCRS = mustTag("CCRS")
	tagCBND = mustTag("CBND")
	tagCOLL = mustTag("COLL")
	tagCOLM = mustTag("COLM")
)
