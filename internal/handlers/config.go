// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"math"
	"strconv"
	"strings"

	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
	"github.com/ucfb-tools/unmunge/internal/hashdict"
)

var tagSCOP = mustTag("SCOP")

// configNumericFieldHash lists the handful of property names whose
// value is conventionally a hashed string rather than plain text when
// strings_are_hashed is set, the same fixed set is_hash_data checks
// against in the source.
var configNumericFieldHash = map[uint32]bool{}

func init() {
	for _, name := range []string{
		"GrassPatch", "File", "Sound", "CollisionSound", "Path", "BorderOdf",
		"LeafPatch", "Name", "Movie", "Inherit", "Segment", "Font", "Subtitle",
		"BUS", "Stream", "SoundStream", "Sample", "Group", "Class",
		"FootstepLeftWalk", "FootstepRightWalk", "FootstepLeftRun",
		"FootstepRightRun", "FootstepLeftStop", "FootstepRightStop", "Jump",
		"Land", "Roll", "Squat", "BodyFall", "I3DL2ReverbPreset",
	} {
		configNumericFieldHash[hashdict.FNV32(name)] = true
	}
}

// ConfigHandler builds a dispatch.Handler for one of the ODF-like
// scoped config chunk families (fx__, sky_, prp_, bnd_, lght, port,
// path, comb, sanm, hud_, load): each shares handle_config's DATA/SCOP
// recursive descent and differs only in the extension and output
// directory it saves under. register.go's BuildTable builds the same
// closure inline for each tag rather than calling this, mirroring the source's per-tag call sites that all forward into the
// single handle_config with different file_type/dir arguments.
func ConfigHandler(extension, dir string) dispatch.Handler {
	return func(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
		return Config(ctx, r, group, extension, dir, false)
	}
}

// Config reads a NAME-hash child for the file's name, then renders
// every DATA/SCOP child at the root into ODF-style text. stringsAreHashed
// additionally recognizes hash-valued string fields (is_hash_data);
// every registered config tag in this port passes false for it, the
// same default handle_config's declaration uses, but the capability is
// kept since the source's is_hash_data is a real, reachable branch, not
// dead code.
func Config(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group, extension, dir string, stringsAreHashed bool) error {
	env := FromContext(ctx)

	nameChild, err := r.ReadChildStrict(tagNAME, false)
	if err != nil {
		return err
	}
	nameHash, err := chunk.ReadTrivial[uint32](nameChild, false)
	if err != nil {
		return err
	}
	name := lookupHashed(nameHash)

	buffer, err := readRootScope(r, stringsAreHashed)
	if err != nil {
		return err
	}
	if buffer == "" {
		return nil
	}
	return env.Files.SaveFile(dir+"/"+name+extension, []byte(buffer))
}

func readRootScope(config *chunk.Reader, stringsAreHashed bool) (string, error) {
	var sb strings.Builder
	sb.Grow(16384)

	for config.HasMore() {
		child, err := config.ReadChild(false)
		if err != nil {
			return "", err
		}
		switch child.Tag() {
		case tagDATA:
			line, err := readData(child, 0, stringsAreHashed)
			if err != nil {
				return "", err
			}
			sb.WriteString(line)
		case tagSCOP:
			removeLastSemicolon(&sb)
			scope, err := readScope(child, 1, stringsAreHashed)
			if err != nil {
				return "", err
			}
			sb.WriteString(scope)
		}
	}
	return sb.String(), nil
}

func readScope(scope *chunk.Reader, indent int, stringsAreHashed bool) (string, error) {
	var sb strings.Builder
	sb.Grow(4096)

	sb.WriteString(strings.Repeat("\t", indent-1))
	sb.WriteString("{\n")

	for scope.HasMore() {
		child, err := scope.ReadChild(false)
		if err != nil {
			return "", err
		}
		switch child.Tag() {
		case tagDATA:
			line, err := readData(child, indent, stringsAreHashed)
			if err != nil {
				return "", err
			}
			sb.WriteString(line)
		case tagSCOP:
			removeLastSemicolon(&sb)
			nested, err := readScope(child, indent+1, stringsAreHashed)
			if err != nil {
				return "", err
			}
			sb.WriteString(nested)
		}
	}

	sb.WriteString(strings.Repeat("\t", indent-1))
	sb.WriteString("}\n\n")
	return sb.String(), nil
}

// removeLastSemicolon undoes the trailing ";\n" the previous DATA line
// left behind when it's immediately followed by a nested scope, the
// same one-character surgery remove_last_semicolen performs.
func removeLastSemicolon(sb *strings.Builder) {
	s := sb.String()
	if strings.HasSuffix(s, ";\n") {
		sb.Reset()
		sb.WriteString(s[:len(s)-2])
		sb.WriteString("\n")
	}
}

// readData classifies a DATA chunk by its byte layout exactly the way
// is_string_data/is_hash_data/is_hybrid_data/is_float_data do — probing
// each shape against a reset copy in turn, since there's no explicit
// discriminator tag — and renders it as one line at the given
// indentation.
func readData(data *chunk.Reader, indent int, stringsAreHashed bool) (string, error) {
	isString, err := isStringData(data)
	if err != nil {
		return "", err
	}
	data.ResetHead()
	if isString {
		return readStringData(data, indent)
	}

	if stringsAreHashed {
		isHash, err := isHashData(data)
		if err != nil {
			return "", err
		}
		data.ResetHead()
		if isHash {
			return readHashData(data, indent)
		}
	}

	isHybrid, err := isHybridData(data)
	if err != nil {
		return "", err
	}
	data.ResetHead()
	if isHybrid {
		return readHybridData(data, indent)
	}

	isFloat, err := isFloatData(data)
	if err != nil {
		return "", err
	}
	data.ResetHead()
	if isFloat {
		return readFloatData(data, indent)
	}

	return readTagData(data, indent)
}

func isStringData(data *chunk.Reader) (bool, error) {
	if err := data.Consume(4, true); err != nil {
		return false, err
	}
	elementCount, err := chunk.ReadTrivial[uint8](data, true)
	if err != nil {
		return false, err
	}
	if elementCount == 0 {
		return false, nil
	}
	strSizesSize, err := chunk.ReadTrivial[uint32](data, true)
	if err != nil {
		return false, err
	}
	if strSizesSize/4 != uint32(elementCount) {
		return false, nil
	}
	strSizes, err := chunk.ReadArray[uint32](data, int(elementCount), true)
	if err != nil {
		return false, err
	}
	strArraySize := strSizes[elementCount-1]
	return data.Size() == 9+int(strSizesSize)+int(strArraySize), nil
}

func isHashData(data *chunk.Reader) (bool, error) {
	dataHash, err := chunk.ReadTrivial[uint32](data, false)
	if err != nil {
		return false, err
	}
	elementCount, err := chunk.ReadTrivial[uint8](data, true)
	if err != nil {
		return false, err
	}
	if elementCount == 0 {
		return false, nil
	}
	return configNumericFieldHash[dataHash], nil
}

func isHybridData(data *chunk.Reader) (bool, error) {
	if err := data.Consume(4, true); err != nil {
		return false, err
	}
	elementCount, err := chunk.ReadTrivial[uint8](data, true)
	if err != nil {
		return false, err
	}
	if elementCount != 2 {
		return false, nil
	}
	return data.Size() != (int(elementCount)*4 + 9), nil
}

func isFloatData(data *chunk.Reader) (bool, error) {
	if err := data.Consume(4, true); err != nil {
		return false, err
	}
	elementCount, err := chunk.ReadTrivial[uint8](data, true)
	if err != nil {
		return false, err
	}
	return elementCount > 0 && data.Size() == (int(elementCount)*4+9), nil
}

func readStringData(data *chunk.Reader, indent int) (string, error) {
	hash, err := chunk.ReadTrivial[uint32](data, false)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(strings.Repeat("\t", indent))
	sb.WriteString(lookupHashed(hash))
	sb.WriteByte('(')

	elementCount, err := chunk.ReadTrivial[uint8](data, true)
	if err != nil {
		return "", err
	}
	if _, err := chunk.ReadTrivial[uint32](data, true); err != nil { // str_sizes_size
		return "", err
	}
	if _, err := chunk.ReadArray[uint32](data, int(elementCount), true); err != nil { // str_sizes, unused
		return "", err
	}

	for data.HasMore() {
		s, err := data.ReadString(true)
		if err != nil {
			return "", err
		}
		sb.WriteByte('"')
		sb.Write(s)
		sb.WriteString("\", ")
	}

	return trimTrailingComma(sb.String()) + ");\n", nil
}

func readHashData(data *chunk.Reader, indent int) (string, error) {
	hash, err := chunk.ReadTrivial[uint32](data, false)
	if err != nil {
		return "", err
	}
	elementCount, err := chunk.ReadTrivial[uint8](data, true)
	if err != nil {
		return "", err
	}
	valueHash, err := chunk.ReadTrivial[uint32](data, true)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat("\t", indent))
	sb.WriteString(lookupHashed(hash))
	sb.WriteString("(\"")
	sb.WriteString(lookupHashed(valueHash))
	sb.WriteString("\", ")

	for i := 1; i < int(elementCount); i++ {
		v, err := chunk.ReadTrivial[float32](data, true)
		if err != nil {
			return "", err
		}
		sb.WriteString(castNumberValue(v))
		sb.WriteString(", ")
	}

	return trimTrailingComma(sb.String()) + ");\n", nil
}

func readHybridData(data *chunk.Reader, indent int) (string, error) {
	hash, err := chunk.ReadTrivial[uint32](data, false)
	if err != nil {
		return "", err
	}
	if _, err := chunk.ReadTrivial[uint8](data, true); err != nil { // element_count, unused
		return "", err
	}
	if _, err := chunk.ReadTrivial[uint32](data, true); err != nil { // string_index, unused
		return "", err
	}
	value, err := chunk.ReadTrivial[float32](data, true)
	if err != nil {
		return "", err
	}
	if _, err := chunk.ReadTrivial[uint32](data, true); err != nil { // string_size, unused
		return "", err
	}
	s, err := data.ReadString(true)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat("\t", indent))
	sb.WriteString(lookupHashed(hash))
	sb.WriteString("(\"")
	sb.Write(s)
	sb.WriteString("\", ")
	sb.WriteString(castNumberValue(value))
	sb.WriteString(");\n")
	return sb.String(), nil
}

func readFloatData(data *chunk.Reader, indent int) (string, error) {
	hash, err := chunk.ReadTrivial[uint32](data, false)
	if err != nil {
		return "", err
	}
	elementCount, err := chunk.ReadTrivial[uint8](data, true)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat("\t", indent))
	sb.WriteString(lookupHashed(hash))
	sb.WriteByte('(')

	for i := 0; i < int(elementCount); i++ {
		v, err := chunk.ReadTrivial[float32](data, true)
		if err != nil {
			return "", err
		}
		sb.WriteString(castNumberValue(v))
		sb.WriteString(", ")
	}

	return trimTrailingComma(sb.String()) + ");\n", nil
}

func readTagData(data *chunk.Reader, indent int) (string, error) {
	hash, err := chunk.ReadTrivial[uint32](data, false)
	if err != nil {
		return "", err
	}
	return strings.Repeat("\t", indent) + lookupHashed(hash) + "();\n", nil
}

func trimTrailingComma(s string) string {
	return strings.TrimSuffix(s, ", ")
}

// castNumberValue mirrors cast_number_value: a value within 1e-5 of a
// whole number prints as a plain integer, otherwise as a 6-decimal
// float, matching std::to_string's default float precision.
func castNumberValue(v float32) string {
	fraction := math.Remainder(float64(v), 1.0)
	if math.Abs(fraction) < 0.00001 {
		return strconv.FormatInt(int64(v), 10)
	}
	return formatFloat(v)
}
