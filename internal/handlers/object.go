// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"strings"

	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
)

var tagBASE = mustTag("BASE")

// geometryNameHash is the FNV hash of "GeometryName" itself, the
// well-known property key ODF object dumps also copy from the
// Properties block into the class header's GeometryName entry.
const geometryNameHash uint32 = 0x47c86b4a

// classLabels are the built-in object class names handle_object.cpp
// recognizes; any BASE value outside this set is treated as a class
// parent reference rather than a label.
var classLabels = map[string]bool{
	"animatedbuilding": true, "animatedprop": true, "armedbuilding": true,
	"armedbuildingdynamic": true, "beacon": true, "beam": true,
	"binoculars": true, "bolt": true, "building": true, "bullet": true,
	"cannon": true, "catapult": true, "cloudcluster": true,
	"commandarmedanimatedbuilding": true, "commandhover": true,
	"commandpost": true, "commandwalker": true, "destruct": true,
	"destructablebuilding": true, "detonator": true, "disguise": true,
	"dispenser": true, "droid": true, "dusteffect": true,
	"emitterordnance": true, "explosion": true, "fatray": true,
	"flyer": true, "godray": true, "grapplinghook": true,
	"grapplinghookweapon": true, "grasspatch": true, "grenade": true,
	"haywire": true, "hologram": true, "hover": true, "launcher": true,
	"leafpatch": true, "Light": true, "melee": true, "mine": true,
	"missile": true, "powerupitem": true, "prop": true, "remote": true,
	"repair": true, "rumbleeffect": true, "shell": true, "shield": true,
	"soldier": true, "SoundAmbienceStatic": true, "SoundAmbienceStreaming": true,
	"sticky": true, "towcable": true, "towcableweapon": true, "trap": true,
	"vehiclepad": true, "vehiclespawn": true, "walker": true,
	"walkerdroid": true, "water": true, "weapon": true,
}

type objectProperty struct {
	Hash  uint32
	Value string
}

// ObjectHandler builds a dispatch.Handler for one of the four ODF class
// chunk families (entc/expc/ordc/wpnc), each sharing handle_object's
// BASE/TYPE/PROP decoding and differing only in the bracketed class
// name the source hardcodes per call site.
func ObjectHandler(className string) dispatch.Handler {
	return func(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
		return Object(ctx, r, group, className)
	}
}

// Object renders entc/expc/ordc/wpnc chunks as .odf text: a class
// header naming the object's base class (as ClassLabel if it's one of
// the built-in engine classes, ClassParent otherwise), an optional
// GeometryName copied from the property list into the class header, and
// every PROP entry (GeometryName included) under [Properties].
func Object(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group, className string) error {
	env := FromContext(ctx)

	var sb strings.Builder
	sb.Grow(1024)
	writeBracketed(&sb, className)

	base, err := readStringChild(r, tagBASE)
	if err != nil {
		return err
	}
	key := "ClassParent"
	if classLabels[base] {
		key = "ClassLabel"
	}
	writeObjectProperty(&sb, key, base)

	odfName, err := readStringChild(r, tagTYPE)
	if err != nil {
		return err
	}

	properties, err := readObjectProperties(r)
	if err != nil {
		return err
	}

	for _, p := range properties {
		if p.Hash == geometryNameHash {
			writeObjectProperty(&sb, "GeometryName", p.Value+".msh")
			break
		}
	}

	sb.WriteByte('\n')
	writeBracketed(&sb, "Properties")
	for _, p := range properties {
		writeObjectProperty(&sb, lookupHashed(p.Hash), p.Value)
	}

	return env.Files.SaveFile("odf/"+odfName+".odf", []byte(sb.String()))
}

func readObjectProperties(r *chunk.Reader) ([]objectProperty, error) {
	var properties []objectProperty
	for r.HasMore() {
		prop, err := r.ReadChildStrict(tagPROP, false)
		if err != nil {
			return nil, err
		}
		hash, err := chunk.ReadTrivial[uint32](prop, false)
		if err != nil {
			return nil, err
		}
		value, err := prop.ReadString(false)
		if err != nil {
			return nil, err
		}
		properties = append(properties, objectProperty{Hash: hash, Value: string(value)})
	}
	return properties, nil
}

func writeBracketed(sb *strings.Builder, what string) {
	sb.WriteByte('[')
	sb.WriteString(what)
	sb.WriteString("]\n\n")
}

func writeObjectProperty(sb *strings.Builder, key, value string) {
	sb.WriteString(key)
	sb.WriteString(" = \"")
	sb.WriteString(value)
	sb.WriteString("\"\n")
}
