// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package vertex

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/ucfb-tools/unmunge/internal/model"
	"github.com/ucfb-tools/unmunge/internal/platform"
)

func buildBuffer(t *testing.T, flags Flags, count int, body func(buf *bytes.Buffer)) []byte {
	t.Helper()
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(flags))
	binary.Write(&buf, binary.LittleEndian, uint32(count))
	body(&buf)
	return buf.Bytes()
}

func TestDecodePositionOnly(t *testing.T) {
	buf := buildBuffer(t, FlagPosition, 2, func(b *bytes.Buffer) {
		binary.Write(b, binary.LittleEndian, int16(-32768))
		binary.Write(b, binary.LittleEndian, int16(0))
		binary.Write(b, binary.LittleEndian, int16(32767))
		binary.Write(b, binary.LittleEndian, int16(32767))
		binary.Write(b, binary.LittleEndian, int16(32767))
		binary.Write(b, binary.LittleEndian, int16(32767))
	})

	box := model.AABB{Min: model.Vec3{X: -1, Y: -1, Z: -1}, Max: model.Vec3{X: 1, Y: 1, Z: 1}}
	vb, err := Decode([][]byte{buf}, box, platform.PC)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(vb.Positions) != 2 {
		t.Fatalf("len(Positions) = %d, want 2", len(vb.Positions))
	}
	if vb.Positions[0].X < -1.001 || vb.Positions[0].X > -0.999 {
		t.Errorf("Positions[0].X = %v, want ~-1", vb.Positions[0].X)
	}
	if vb.Positions[1].X < 0.999 {
		t.Errorf("Positions[1].X = %v, want ~1", vb.Positions[1].X)
	}
}

func TestDecodeCompressedWeightsSumToOne(t *testing.T) {
	buf := buildBuffer(t, FlagBoneWeights|FlagBoneWeightsCompressed, 1, func(b *bytes.Buffer) {
		b.WriteByte(128) // byte0: discarded on PC
		b.WriteByte(64)  // byte1: y ~ 0.25
		b.WriteByte(0)   // byte2: x = 0
		b.WriteByte(0)   // byte3: discarded on PC
	})

	vb, err := Decode([][]byte{buf}, model.AABB{}, platform.PC)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	w := vb.BoneWeights[0]
	sum := w[0] + w[1] + w[2]
	if sum < 0.99 || sum > 1.01 {
		t.Errorf("weight sum = %v, want ~1", sum)
	}
}

func TestDecodeUnknownFlagsFails(t *testing.T) {
	buf := buildBuffer(t, Flags(1<<30), 0, func(b *bytes.Buffer) {})
	_, err := Decode([][]byte{buf}, model.AABB{}, platform.PC)
	if _, ok := err.(*ErrUnknownVbufFlags); !ok {
		t.Fatalf("err = %v (%T), want *ErrUnknownVbufFlags", err, err)
	}
}

func TestSelectBufferPrefersUncompressedMostAttributed(t *testing.T) {
	compressed := buildBuffer(t, FlagPosition|FlagNormal|FlagNormalCompressed, 0, func(b *bytes.Buffer) {})
	uncompressedFew := buildBuffer(t, FlagPosition, 0, func(b *bytes.Buffer) {})
	uncompressedMore := buildBuffer(t, FlagPosition|FlagNormal|FlagTexcoord, 0, func(b *bytes.Buffer) {})

	got, err := SelectBuffer([][]byte{compressed, uncompressedFew, uncompressedMore})
	if err != nil {
		t.Fatalf("SelectBuffer: %v", err)
	}
	flags, _, _, _ := parseHeader(got)
	if flags != FlagPosition|FlagNormal|FlagTexcoord {
		t.Errorf("selected wrong buffer: flags = %v, want the uncompressed most-attributed one", flags)
	}
}

func TestSelectBufferFallsBackWhenAllCompressed(t *testing.T) {
	a := buildBuffer(t, FlagPosition|FlagNormalCompressed, 0, func(b *bytes.Buffer) {})
	b2 := buildBuffer(t, FlagPosition|FlagNormal|FlagNormalCompressed, 0, func(b *bytes.Buffer) {})

	got, err := SelectBuffer([][]byte{a, b2})
	if err != nil {
		t.Fatalf("SelectBuffer: %v", err)
	}
	flags, _, _, _ := parseHeader(got)
	if flags.attributeCount() < 2 {
		t.Errorf("expected the more-attributed compressed buffer, got flags=%v", flags)
	}
}
