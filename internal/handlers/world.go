// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
	"github.com/ucfb-tools/unmunge/internal/hashdict"
	"github.com/ucfb-tools/unmunge/internal/model"
)

var (
	tagSNAM = mustTag("SNAM")
	tagTYPE = mustTag("TYPE")
	tagSIZE = mustTag("SIZE")
	tagFLAG = mustTag("FLAG")
	tagPROP = mustTag("PROP")
	tagREGN = mustTag("regn")
	tagINST = mustTag("inst")
	tagBARR = mustTag("BARR")
	tagHINT = mustTag("Hint")
	tagANIM = mustTag("anim")
	tagANMG = mustTag("anmg")
	tagANMH = mustTag("anmh")
	tagROTK = mustTag("ROTK")
	tagPOSK = mustTag("POSK")
	tagNOHI = mustTag("NOHI")
)

var (
	teamPropertyHash  = hashdict.FNV32("Team")
	layerPropertyHash = hashdict.FNV32("Layer")
)

// worldTransform is the 48-byte rotation-basis-plus-position layout every
// placed-object record (region/barrier/hint/instance) carries inline.
type worldTransform struct {
	RotationX, RotationY, RotationZ, Position model.Vec3
}

// animationKey is one ROTK/POSK sample: a time, a 3-component value, an
// interpolation type, and six spline tangent floats.
type animationKey struct {
	Time       float32
	Data       [3]float32
	Type       uint8
	SplineData [6]float32
}

// worldHeader is the fixed .wld preamble every instance/layer file opens
// with: a placeholder camera and an empty world-extents block, the same
// boilerplate handle_world.cpp emits verbatim ahead of its object list.
const worldHeader = `Version(3);
SaveType(0);

Camera("camera")
{
	Rotation(1.000, 0.000, 0.000, 0.000);
	Position(0.000, 0.000, 0.000);
	FieldOfView(55.400);
	NearPlane(1.000);
	FarPlane(5000.000);
	ZoomFactor(1.000);
	Bookmark(0.000, 0.000, 0.000,  1.000, 0.000, 0.000, 0.000);
	Bookmark(0.000, 0.000, 0.000,  1.000, 0.000, 0.000, 0.000);
	Bookmark(0.000, 0.000, 0.000,  1.000, 0.000, 0.000, 0.000);
	Bookmark(0.000, 0.000, 0.000,  1.000, 0.000, 0.000, 0.000);
	Bookmark(0.000, 0.000, 0.000,  1.000, 0.000, 0.000, 0.000);
	Bookmark(0.000, 0.000, 0.000,  1.000, 0.000, 0.000, 0.000);
	Bookmark(0.000, 0.000, 0.000,  1.000, 0.000, 0.000, 0.000);
	Bookmark(0.000, 0.000, 0.000,  1.000, 0.000, 0.000, 0.000);
	Bookmark(0.000, 0.000, 0.000,  1.000, 0.000, 0.000, 0.000);
	Bookmark(0.000, 0.000, 0.000,  1.000, 0.000, 0.000, 0.000);
}

ControllerManager("StandardCtrlMgr");

WorldExtents()
{
	Min(0.000000, 0.000000, 0.000000);
	Max(0.000000, 0.000000, 0.000000);
}
`

// World handles wrld chunks: it owns the chunk reader just long enough to
// read NAME/TNAM/SNAM and bucket every region/instance/barrier/hint/
// animation child by tag, then spawns one task per bucket into group so
// the five text outputs (.rgn/.wld or .lyr/.bar/.hnt/.anm) are produced
// concurrently, the same split handle_world.cpp's tbb::task_group does.
func World(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	env := FromContext(ctx)

	name, err := readStringChild(r, tagNAME)
	if err != nil {
		return err
	}

	var terrainName, skyName string
	if child, ok, err := r.ReadChildOpt(tagTNAM, false); err != nil {
		return err
	} else if ok {
		s, err := child.ReadString(false)
		if err != nil {
			return err
		}
		terrainName = string(s)
	}
	if child, ok, err := r.ReadChildOpt(tagSNAM, false); err != nil {
		return err
	} else if ok {
		s, err := child.ReadString(false)
		if err != nil {
			return err
		}
		skyName = string(s)
	}

	var regions, instances, barriers, hints, animations []*chunk.Reader
	for r.HasMore() {
		child, err := r.ReadChild(false)
		if err != nil {
			return err
		}
		switch child.Tag() {
		case tagREGN:
			regions = append(regions, child)
		case tagINST:
			instances = append(instances, child)
		case tagBARR:
			barriers = append(barriers, child)
		case tagHINT:
			hints = append(hints, child)
		case tagANIM, tagANMG, tagANMH:
			animations = append(animations, child)
		}
	}

	group.Spawn(r.Tag(), r.Size(), func() error {
		return processRegions(env, regions, name)
	})
	group.Spawn(r.Tag(), r.Size(), func() error {
		return processInstances(env, instances, name, terrainName, skyName)
	})
	group.Spawn(r.Tag(), r.Size(), func() error {
		return processBarriers(env, barriers, name)
	})
	group.Spawn(r.Tag(), r.Size(), func() error {
		return processHints(env, hints, name)
	})
	if len(animations) > 0 {
		group.Spawn(r.Tag(), r.Size(), func() error {
			return processAnimations(env, animations, name)
		})
	}

	return nil
}

func processRegions(env *Env, regions []*chunk.Reader, name string) error {
	var sb strings.Builder
	sb.WriteString("Version(1);\n")
	writeKeyValueInt(&sb, false, "RegionCount", int64(len(regions)))
	sb.WriteByte('\n')

	for _, region := range regions {
		if err := writeRegion(&sb, region); err != nil {
			return err
		}
	}

	return env.Files.SaveFile("world/"+name+".rgn", []byte(sb.String()))
}

func processInstances(env *Env, instances []*chunk.Reader, name, terrainName, skyName string) error {
	var sb strings.Builder
	sb.WriteString(worldHeader)
	sb.WriteByte('\n')

	if terrainName != "" {
		writeKeyValueString(&sb, false, true, "TerrainName", terrainName+".ter")
	}
	if skyName != "" {
		writeKeyValueString(&sb, false, true, "SkyName", skyName+".sky")
	}
	writeKeyValueString(&sb, false, true, "LightName", name+".lgt")
	sb.WriteByte('\n')

	for _, instance := range instances {
		if err := writeInstance(&sb, instance); err != nil {
			return err
		}
	}

	extension := ".wld"
	if terrainName == "" || skyName == "" {
		extension = ".lyr"
	}
	return env.Files.SaveFile("world/"+name+extension, []byte(sb.String()))
}

func processBarriers(env *Env, barriers []*chunk.Reader, name string) error {
	var sb strings.Builder
	writeKeyValueInt(&sb, false, "BarrierCount", int64(len(barriers)))
	sb.WriteByte('\n')

	for _, barrier := range barriers {
		if err := writeBarrier(&sb, barrier); err != nil {
			return err
		}
	}

	return env.Files.SaveFile("world/"+name+".bar", []byte(sb.String()))
}

func processHints(env *Env, hints []*chunk.Reader, name string) error {
	var sb strings.Builder
	for _, hint := range hints {
		if err := writeHint(&sb, hint); err != nil {
			return err
		}
	}
	return env.Files.SaveFile("world/"+name+".hnt", []byte(sb.String()))
}

func processAnimations(env *Env, entries []*chunk.Reader, name string) error {
	var sb strings.Builder
	for _, entry := range entries {
		var err error
		switch entry.Tag() {
		case tagANIM:
			err = writeAnimation(&sb, entry)
		case tagANMG:
			err = writeAnimationGroup(&sb, entry)
		case tagANMH:
			err = writeAnimationHierarchy(&sb, entry)
		}
		if err != nil {
			return err
		}
	}
	return env.Files.SaveFile("world/"+name+".anm", []byte(sb.String()))
}

func writeRegion(sb *strings.Builder, region *chunk.Reader) error {
	info, err := region.ReadChildStrict(tagINFO, false)
	if err != nil {
		return err
	}
	typeChild, err := info.ReadChildStrict(tagTYPE, false)
	if err != nil {
		return err
	}
	typ, err := typeChild.ReadString(false)
	if err != nil {
		return err
	}
	nameChild, err := info.ReadChildStrict(tagNAME, false)
	if err != nil {
		return err
	}
	name, err := nameChild.ReadString(false)
	if err != nil {
		return err
	}
	xfrmChild, err := info.ReadChildStrict(tagXFRM, false)
	if err != nil {
		return err
	}
	transform, err := chunk.ReadTrivial[worldTransform](xfrmChild, false)
	if err != nil {
		return err
	}
	sizeChild, err := info.ReadChildStrict(tagSIZE, false)
	if err != nil {
		return err
	}
	size, err := chunk.ReadTrivial[model.Vec3](sizeChild, false)
	if err != nil {
		return err
	}

	regionType, err := convertRegionType(string(typ))
	if err != nil {
		return err
	}

	sb.WriteString(`Region("`)
	sb.Write(name)
	sb.WriteString(`", `)
	sb.WriteByte(regionType)
	sb.WriteString(")\n{\n")

	rotation, position := convertTransform(transform)
	writeKeyValueVec3(sb, true, "Position", position)
	writeKeyValueQuat(sb, true, "Rotation", rotation)
	writeKeyValueVec3(sb, true, "Size", size)

	for region.HasMore() {
		prop, err := region.ReadChildStrict(tagPROP, false)
		if err != nil {
			return err
		}
		if err := writeProperty(sb, prop, valueBasedQuoting); err != nil {
			return err
		}
	}

	sb.WriteString("}\n\n")
	return nil
}

func writeBarrier(sb *strings.Builder, barrier *chunk.Reader) error {
	info, err := barrier.ReadChildStrict(tagINFO, false)
	if err != nil {
		return err
	}
	nameChild, err := info.ReadChildStrict(tagNAME, false)
	if err != nil {
		return err
	}
	name, err := nameChild.ReadString(false)
	if err != nil {
		return err
	}
	xfrmChild, err := info.ReadChildStrict(tagXFRM, false)
	if err != nil {
		return err
	}
	transform, err := chunk.ReadTrivial[worldTransform](xfrmChild, false)
	if err != nil {
		return err
	}
	sizeChild, err := info.ReadChildStrict(tagSIZE, false)
	if err != nil {
		return err
	}
	size, err := chunk.ReadTrivial[model.Vec3](sizeChild, false)
	if err != nil {
		return err
	}
	flagChild, err := info.ReadChildStrict(tagFLAG, false)
	if err != nil {
		return err
	}
	flags, err := chunk.ReadTrivial[uint32](flagChild, false)
	if err != nil {
		return err
	}

	sb.WriteString(`Barrier("`)
	sb.Write(name)
	sb.WriteString("\")\n{\n")

	for _, corner := range getBarrierCorners(transform, size) {
		writeKeyValueVec3(sb, true, "Corner", corner)
	}
	writeKeyValueInt(sb, true, "Flag", int64(flags))
	sb.WriteString("}\n\n")
	return nil
}

func writeHint(sb *strings.Builder, hint *chunk.Reader) error {
	info, err := hint.ReadChildStrict(tagINFO, false)
	if err != nil {
		return err
	}
	typeChild, err := info.ReadChildStrict(tagTYPE, false)
	if err != nil {
		return err
	}
	typ, err := typeChild.ReadString(false)
	if err != nil {
		return err
	}
	nameChild, err := info.ReadChildStrict(tagNAME, false)
	if err != nil {
		return err
	}
	name, err := nameChild.ReadString(false)
	if err != nil {
		return err
	}
	xfrmChild, err := info.ReadChildStrict(tagXFRM, false)
	if err != nil {
		return err
	}
	transform, err := chunk.ReadTrivial[worldTransform](xfrmChild, false)
	if err != nil {
		return err
	}

	sb.WriteString(`Hint("`)
	sb.Write(name)
	sb.WriteString(`", "`)
	sb.Write(typ)
	sb.WriteString("\")\n{\n")

	rotation, position := convertTransform(transform)
	writeKeyValueVec3(sb, true, "Position", position)
	writeKeyValueQuat(sb, true, "Rotation", rotation)

	for hint.HasMore() {
		prop, err := hint.ReadChildStrict(tagPROP, false)
		if err != nil {
			return err
		}
		if err := writeProperty(sb, prop, valueBasedQuoting); err != nil {
			return err
		}
	}

	sb.WriteString("}\n\n")
	return nil
}

func writeInstance(sb *strings.Builder, instance *chunk.Reader) error {
	info, err := instance.ReadChildStrict(tagINFO, false)
	if err != nil {
		return err
	}
	typeChild, err := info.ReadChildStrict(tagTYPE, false)
	if err != nil {
		return err
	}
	typ, err := typeChild.ReadString(false)
	if err != nil {
		return err
	}
	nameChild, err := info.ReadChildStrict(tagNAME, false)
	if err != nil {
		return err
	}
	name, err := nameChild.ReadString(false)
	if err != nil {
		return err
	}
	xfrmChild, err := info.ReadChildStrict(tagXFRM, false)
	if err != nil {
		return err
	}
	transform, err := chunk.ReadTrivial[worldTransform](xfrmChild, false)
	if err != nil {
		return err
	}

	sb.WriteString(`Object("`)
	sb.Write(name)
	sb.WriteString(`", "`)
	sb.Write(typ)
	sb.WriteString("\", 1)\n{\n")

	rotation, position := convertTransform(transform)
	writeKeyValueQuat(sb, true, "ChildRotation", rotation)
	writeKeyValueVec3(sb, true, "ChildPosition", position)

	for instance.HasMore() {
		prop, err := instance.ReadChildStrict(tagPROP, false)
		if err != nil {
			return err
		}
		if err := writeProperty(sb, prop, hashBasedQuoting); err != nil {
			return err
		}
	}

	sb.WriteString("}\n\n")
	return nil
}

func convertRegionType(t string) (byte, error) {
	switch t {
	case "box":
		return '0', nil
	case "sphere":
		return '1', nil
	case "cylinder":
		return '2', nil
	}
	return 0, fmt.Errorf("handlers: unknown region type %q", t)
}

// convertTransform turns a basis-plus-position record into the
// quaternion-plus-position form .wld/.rgn/.hnt files store. It preserves
// the source's rotation_x/rotation_x/rotation_z basis (rotation_y is
// never consulted) and its subsequent sign-flip-and-swap, both kept
// as-is rather than "corrected" (see DESIGN.md).
func convertTransform(t worldTransform) (model.Quat, model.Vec3) {
	position := t.Position
	position.Z *= -1

	basis := mat3{X: t.RotationX, Y: t.RotationX, Z: t.RotationZ}
	rotation := basisToQuat(basis)

	rotation.X = -rotation.X
	rotation.Z = -rotation.Z
	rotation.X, rotation.Z = rotation.Z, rotation.X
	rotation.Y, rotation.W = rotation.W, rotation.Y

	return rotation, position
}

func basisToQuat(basis mat3) model.Quat {
	_, rot, _ := model.Mat4x3{X: basis.X, Y: basis.Y, Z: basis.Z}.Decompose()
	return rot
}

func getBarrierCorners(t worldTransform, size model.Vec3) [4]model.Vec3 {
	corners := [4]model.Vec3{
		{X: size.X, Y: 0, Z: size.Z},
		{X: -size.X, Y: 0, Z: size.Z},
		{X: -size.X, Y: 0, Z: -size.Z},
		{X: size.X, Y: 0, Z: -size.Z},
	}
	rotation := mat3{X: t.RotationX, Y: t.RotationX, Z: t.RotationZ}

	for i, c := range corners {
		rotated := model.Vec3{X: rotation.X.Dot(c), Y: rotation.Y.Dot(c), Z: rotation.Z.Dot(c)}
		rotated.Z = -rotated.Z
		corners[i] = rotated.Add(t.Position)
	}
	return corners
}

// stringIsNumeric matches string_helpers.hpp's character-class check
// exactly, including its vacuously-true result on an empty string.
func stringIsNumeric(s string) bool {
	for _, c := range s {
		digit := c >= '0' && c <= '9'
		control := c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-'
		if !digit && !control {
			return false
		}
	}
	return true
}

// valueBasedQuoting is the default PROP quoting rule: quote unless the
// value reads as a number.
func valueBasedQuoting(hash uint32, value string) bool {
	return !stringIsNumeric(value)
}

// hashBasedQuoting is read_instance's quoting rule: every property value
// is quoted except Team/Layer, regardless of whether it looks numeric.
func hashBasedQuoting(hash uint32, value string) bool {
	return hash != teamPropertyHash && hash != layerPropertyHash
}

func writeProperty(sb *strings.Builder, prop *chunk.Reader, quoted func(hash uint32, value string) bool) error {
	hash, err := chunk.ReadTrivial[uint32](prop, false)
	if err != nil {
		return err
	}
	value, err := prop.ReadString(false)
	if err != nil {
		return err
	}
	writeKeyValueString(sb, true, quoted(hash, string(value)), lookupHashed(hash), string(value))
	return nil
}

func writeAnimation(sb *strings.Builder, animation *chunk.Reader) error {
	info, err := animation.ReadChildStrict(tagINFO, false)
	if err != nil {
		return err
	}
	name, err := info.ReadString(false)
	if err != nil {
		return err
	}
	length, err := chunk.ReadTrivial[float32](info, false)
	if err != nil {
		return err
	}
	loop, err := chunk.ReadTrivial[uint8](info, false)
	if err != nil {
		return err
	}
	localTranslation, err := chunk.ReadTrivial[uint8](info, false)
	if err != nil {
		return err
	}

	fmt.Fprintf(sb, "Animation(\"%s\", %s, %d, %d)\n{\n", name, formatFloat(length), loop, localTranslation)

	for animation.HasMore() {
		key, err := animation.ReadChild(false)
		if err != nil {
			return err
		}
		k, err := readAnimationKey(key)
		if err != nil {
			return err
		}

		switch key.Tag() {
		case tagROTK:
			for i := range k.Data {
				k.Data[i] = degrees(k.Data[i])
			}
			for i := range k.SplineData {
				k.SplineData[i] = degrees(k.SplineData[i])
			}
			writeAnimationKeyLine(sb, "AddRotationKey", k)
		case tagPOSK:
			writeAnimationKeyLine(sb, "AddPositionKey", k)
		}
	}

	sb.WriteString("}\n\n")
	return nil
}

func readAnimationKey(key *chunk.Reader) (animationKey, error) {
	var k animationKey
	var err error
	if k.Time, err = chunk.ReadTrivial[float32](key, false); err != nil {
		return k, err
	}
	if k.Data, err = chunk.ReadTrivial[[3]float32](key, false); err != nil {
		return k, err
	}
	if k.Type, err = chunk.ReadTrivial[uint8](key, false); err != nil {
		return k, err
	}
	if k.SplineData, err = chunk.ReadTrivial[[6]float32](key, false); err != nil {
		return k, err
	}
	return k, nil
}

func writeAnimationKeyLine(sb *strings.Builder, key string, k animationKey) {
	parts := make([]string, 0, 10)
	parts = append(parts, formatFloat(k.Time), formatFloat(k.Data[0]), formatFloat(k.Data[1]), formatFloat(k.Data[2]))
	parts = append(parts, strconv.FormatInt(int64(int16(k.Type)), 10))
	for _, v := range k.SplineData {
		parts = append(parts, formatFloat(v))
	}
	sb.WriteByte('\t')
	sb.WriteString(key)
	sb.WriteByte('(')
	sb.WriteString(strings.Join(parts, ", "))
	sb.WriteString(");\n")
}

func writeAnimationGroup(sb *strings.Builder, group *chunk.Reader) error {
	info, err := group.ReadChildStrict(tagINFO, false)
	if err != nil {
		return err
	}
	name, err := info.ReadString(false)
	if err != nil {
		return err
	}
	defaultOn, err := chunk.ReadTrivial[uint8](info, false)
	if err != nil {
		return err
	}
	stopWhenControlled, err := chunk.ReadTrivial[uint8](info, false)
	if err != nil {
		return err
	}

	fmt.Fprintf(sb, "AnimationGroup(\"%s\", %d, %d)\n{\n", name, defaultOn, stopWhenControlled)

	for group.HasMore() {
		child, err := group.ReadChild(false)
		if err != nil {
			return err
		}
		switch child.Tag() {
		case tagANIM:
			animationName, err := child.ReadString(false)
			if err != nil {
				return err
			}
			objectName, err := child.ReadString(false)
			if err != nil {
				return err
			}
			fmt.Fprintf(sb, "\tAnimation(\"%s\", \"%s\");\n", animationName, objectName)
		case tagNOHI:
			sb.WriteString("\tDisableHierarchies();\n")
		}
	}

	sb.WriteString("}\n\n")
	return nil
}

func writeAnimationHierarchy(sb *strings.Builder, hierarchy *chunk.Reader) error {
	info, err := hierarchy.ReadChildStrict(tagINFO, false)
	if err != nil {
		return err
	}
	count, err := chunk.ReadTrivial[uint8](info, false)
	if err != nil {
		return err
	}
	names := make([]string, count)
	for i := range names {
		s, err := info.ReadString(false)
		if err != nil {
			return err
		}
		names[i] = string(s)
	}
	if len(names) == 0 {
		return fmt.Errorf("handlers: animation hierarchy with no names")
	}

	fmt.Fprintf(sb, "Hierarchy(\"%s\")\n{\n", names[0])
	for _, n := range names[1:] {
		fmt.Fprintf(sb, "\tObj(\"%s\");\n", n)
	}
	sb.WriteString("}\n\n")
	return nil
}

func writeKeyValueString(sb *strings.Builder, indent, quoted bool, key, value string) {
	if indent {
		sb.WriteByte('\t')
	}
	sb.WriteString(key)
	sb.WriteByte('(')
	if quoted {
		sb.WriteByte('"')
		sb.WriteString(value)
		sb.WriteByte('"')
	} else {
		sb.WriteString(value)
	}
	sb.WriteString(");\n")
}

func writeKeyValueInt(sb *strings.Builder, indent bool, key string, value int64) {
	if indent {
		sb.WriteByte('\t')
	}
	sb.WriteString(key)
	sb.WriteByte('(')
	sb.WriteString(strconv.FormatInt(value, 10))
	sb.WriteString(");\n")
}

func writeKeyValueQuat(sb *strings.Builder, indent bool, key string, q model.Quat) {
	if indent {
		sb.WriteByte('\t')
	}
	sb.WriteString(key)
	sb.WriteByte('(')
	sb.WriteString(formatFloat(q.W))
	sb.WriteString(", ")
	sb.WriteString(formatFloat(q.X))
	sb.WriteString(", ")
	sb.WriteString(formatFloat(q.Y))
	sb.WriteString(", ")
	sb.WriteString(formatFloat(q.Z))
	sb.WriteString(");\n")
}

func writeKeyValueVec3(sb *strings.Builder, indent bool, key string, v model.Vec3) {
	if indent {
		sb.WriteByte('\t')
	}
	sb.WriteString(key)
	sb.WriteByte('(')
	sb.WriteString(formatFloat(v.X))
	sb.WriteString(", ")
	sb.WriteString(formatFloat(v.Y))
	sb.WriteString(", ")
	sb.WriteString(formatFloat(v.Z))
	sb.WriteString(");\n")
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', 6, 32)
}

func degrees(radians float32) float32 {
	const piOver180 = 57.29577951308232
	return radians * piOver180
}
