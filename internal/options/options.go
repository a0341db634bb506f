// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package options parses the command-line surface, the same flat
// flag.StringVar/flag.IntVar/flag.Parse style server/main.go and
// server_main/main.go use rather than any third-party CLI framework.
package options

import (
	"flag"
	"fmt"

	"github.com/ucfb-tools/unmunge/internal/imagefmt"
	"github.com/ucfb-tools/unmunge/internal/meshfmt"
	"github.com/ucfb-tools/unmunge/internal/model"
	"github.com/ucfb-tools/unmunge/internal/platform"
)

// Mode is the top-level pipeline selected by -mode.
type Mode uint8

const (
	ModeExtract Mode = iota
	ModeExplode
	ModeAssemble
)

// ModelFormat is the output format selected by -modelfmt.
type ModelFormat uint8

const (
	ModelFormatMesh ModelFormat = iota
	ModelFormatGltf
)

// Options is every flag this tool reads, already parsed and validated.
type Options struct {
	Mode Mode

	Input  string
	Output string

	Version    platform.GameVersion
	OutVersion platform.GameVersion
	Platform   platform.Platform

	ModelFormat ModelFormat
	Discard     model.DiscardFlags

	ImageFormat imagefmt.ImageFormat

	SoftSkin       bool
	VertexLighting bool
	AttachLight    bool
	NoCollision    bool
	Keep           stringList
	KeepMaterial   stringList

	S3Bucket   string
	DynamoTable string
	ProgressPort int
}

// stringList accumulates repeated -keep/-keepmaterial flag occurrences,
// the same shape server_main/main.go would add if it ever needed a
// repeatable string flag (it doesn't today — every flag there is
// single-valued, so this is the one flag.Value implementation with no
// directly matching line to imitate).
type stringList []string

func (s *stringList) String() string { return fmt.Sprint([]string(*s)) }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Parse parses args (normally os.Args[1:]) into Options.
func Parse(args []string) (Options, error) {
	fs := flag.NewFlagSet("unmunge", flag.ContinueOnError)

	mode := fs.String("mode", "extract", "extract|explode|assemble")
	input := fs.String("input", "", "input file or directory")
	output := fs.String("output", ".", "output directory")
	version := fs.String("version", "swbf_ii", "swbf_ii|swbf")
	outVersion := fs.String("outversion", "swbf_ii", "swbf_ii|swbf")
	plat := fs.String("platform", "pc", "pc|ps2|xbox")
	modelFmt := fs.String("modelfmt", "msh", "msh|glTF")
	modelDiscard := fs.String("modeldiscard", "none", "none|lod|collision|lod_collision")
	imgFmt := fs.String("imgfmt", "tga", "tga|png|dds")
	softSkin := fs.Bool("softskin", false, "export soft-skinned bone weights")
	vertexLighting := fs.Bool("vertexlighting", false, "export static vertex-lit color")
	attachLight := fs.Bool("attachlight", false, "attach a light node to lit models")
	noCollision := fs.Bool("nocollision", false, "drop collision meshes/primitives")
	s3Bucket := fs.String("s3-bucket", "", "optional S3 bucket for output upload")
	dynamoTable := fs.String("dynamo-table", "", "optional DynamoDB table for a run ledger")
	progressPort := fs.Int("progress-port", 0, "optional live-progress websocket port (0 disables)")

	var opts Options
	fs.Var(&opts.Keep, "keep", "null node name to keep even if otherwise prunable (repeatable)")
	fs.Var(&opts.KeepMaterial, "keepmaterial", "material name to keep even if unreferenced (repeatable)")

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}

	switch *mode {
	case "extract":
		opts.Mode = ModeExtract
	case "explode":
		opts.Mode = ModeExplode
	case "assemble":
		opts.Mode = ModeAssemble
	default:
		return Options{}, fmt.Errorf("options: invalid -mode %q", *mode)
	}

	var err error
	if opts.Version, err = platform.ParseGameVersion(*version); err != nil {
		return Options{}, err
	}
	if opts.OutVersion, err = platform.ParseGameVersion(*outVersion); err != nil {
		return Options{}, err
	}
	if opts.Platform, err = platform.ParsePlatform(*plat); err != nil {
		return Options{}, err
	}

	switch *modelFmt {
	case "msh":
		opts.ModelFormat = ModelFormatMesh
	case "glTF", "gltf":
		opts.ModelFormat = ModelFormatGltf
	default:
		return Options{}, fmt.Errorf("options: invalid -modelfmt %q", *modelFmt)
	}

	switch *modelDiscard {
	case "none":
	case "lod":
		opts.Discard.LOD = true
	case "collision":
		opts.Discard.Collision = true
	case "lod_collision":
		opts.Discard.LOD = true
		opts.Discard.Collision = true
	default:
		return Options{}, fmt.Errorf("options: invalid -modeldiscard %q", *modelDiscard)
	}

	switch *imgFmt {
	case "tga":
		opts.ImageFormat = imagefmt.FormatTGA
	case "png":
		opts.ImageFormat = imagefmt.FormatPNG
	case "dds":
		opts.ImageFormat = imagefmt.FormatDDS
	default:
		return Options{}, fmt.Errorf("options: invalid -imgfmt %q", *imgFmt)
	}

	opts.Input = *input
	opts.Output = *output
	opts.SoftSkin = *softSkin
	opts.VertexLighting = *vertexLighting
	opts.AttachLight = *attachLight
	opts.NoCollision = *noCollision
	opts.S3Bucket = *s3Bucket
	opts.DynamoTable = *dynamoTable
	opts.ProgressPort = *progressPort

	return opts, nil
}

// MeshOptions projects the flags meshfmt.WriteScene needs out of Options.
func (o Options) MeshOptions() meshfmt.Options {
	return meshfmt.Options{
		SoftSkin:       o.SoftSkin,
		VertexLighting: o.VertexLighting,
		AttachLight:    o.AttachLight,
		NoCollision:    o.NoCollision,
		Keep:           []string(o.Keep),
		KeepMaterial:   []string(o.KeepMaterial),
	}
}
