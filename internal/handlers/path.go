// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
	"github.com/ucfb-tools/unmunge/internal/model"
)

var (
	tagPathEntry = mustTag("path")
	tagPNTS      = mustTag("PNTS")
)

type pathInfo struct {
	NodeCount      uint16
	Unknown0       uint16
	Unknown1       uint16
}

// pathNode is a PNTS record: a position plus a rotation stored as a
// plain vec4, not a quaternion-tagged type — flipPathNode's zwxy swizzle
// is how the source turns it into one.
type pathNode struct {
	Position model.Vec3
	Rotation [4]float32
}

type pathSpline struct {
	Name  string
	Nodes []pathNode
}

var pathCount int64 = -1

// PathSplines handles PATH chunks (present only in the first game's
// dialect; SWBF2 paths live inside wrld/inst chunks and go through
// World instead). Every nested "path" entry embeds its own name as an
// ordinary NAME child and its node count as an ordinary INFO child, so
// this port reads both the normal chunk.Reader way rather than the
// source's raw Path_entry/Path_info struct casts.
func PathSplines(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	env := FromContext(ctx)

	var splines []pathSpline
	for r.HasMore() {
		child, err := r.ReadChild(false)
		if err != nil {
			return err
		}
		if child.Tag() != tagPathEntry {
			continue
		}
		spline, err := readPathEntry(child)
		if err != nil {
			return err
		}
		splines = append(splines, spline)
	}

	n := atomic.AddInt64(&pathCount, 1)
	name := strconv.FormatInt(n, 10) + ".pth"
	return env.Files.SaveFile("world/"+name, []byte(writePaths(splines)))
}

func readPathEntry(entry *chunk.Reader) (pathSpline, error) {
	name, err := readStringChild(entry, tagNAME)
	if err != nil {
		return pathSpline{}, err
	}

	infoChild, err := entry.ReadChildStrict(tagINFO, false)
	if err != nil {
		return pathSpline{}, err
	}
	info, err := chunk.ReadTrivial[pathInfo](infoChild, false)
	if err != nil {
		return pathSpline{}, err
	}

	var nodes []pathNode
	for entry.HasMore() {
		child, err := entry.ReadChild(false)
		if err != nil {
			return pathSpline{}, err
		}
		if child.Tag() != tagPNTS {
			continue
		}
		raw, err := chunk.ReadArray[pathNode](child, int(info.NodeCount), false)
		if err != nil {
			return pathSpline{}, err
		}
		for _, n := range raw {
			nodes = append(nodes, flipPathNode(n))
		}
	}

	return pathSpline{Name: name, Nodes: nodes}, nil
}

// flipPathNode mirrors the left/right-handed axis conversion every
// other position/rotation path in this port applies: negate Z, then
// swizzle the raw vec4 into zwxy order and negate the new Y, the same
// sequence flip_path_node performs with glm's .zwxy() accessor.
func flipPathNode(n pathNode) pathNode {
	n.Position.Z *= -1
	x, y, z, w := n.Rotation[0], n.Rotation[1], n.Rotation[2], n.Rotation[3]
	n.Rotation = [4]float32{z, -w, x, y}
	return n
}

// writePaths renders every spline in ZeroEditor's .pth text format.
// write_path never closes the Nodes{} or Path{} blocks it opens — the
// source itself is missing both closing braces — preserved here rather
// than silently repaired, same as this port's other literal-bug
// preservations.
func writePaths(splines []pathSpline) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Version(10);\nPathCount(%d);\n\n", len(splines))
	for _, spline := range splines {
		writePathBlock(&sb, spline)
	}
	return sb.String()
}

const pathCommon = "\tData(0);\n" +
	"\tPathType(0);\n" +
	"\tPathSpeedType(0);\n" +
	"\tPathTime(0.000000);\n" +
	"\tOffsetPath(0);\n" +
	"\tSplineType(\"Hermite\");\n" +
	"\n" +
	"\tProperties(0)\n" +
	"\t{\n" +
	"\t}\n\n"

func writePathBlock(sb *strings.Builder, spline pathSpline) {
	fmt.Fprintf(sb, "Path(\"%s\")\n{\n", spline.Name)
	sb.WriteString(pathCommon)
	fmt.Fprintf(sb, "\tNodes(%d)\n\t{\n", len(spline.Nodes))
	for _, node := range spline.Nodes {
		writePathNodeBlock(sb, node)
	}
}

const pathNodeTail = "\t\t\tKnot(0.000000);\n" +
	"\t\t\tData(0);\n" +
	"\t\t\tTime(1.000000);\n" +
	"\t\t\tPauseTime(0.000000);\n" +
	"\n" +
	"\t\t\tProperties(0)\n" +
	"\t\t\t{\n" +
	"\t\t\t}\n" +
	"\t\t}\n\n"

func writePathNodeBlock(sb *strings.Builder, node pathNode) {
	sb.WriteString("\t\tNode()\n\t\t{\n")
	fmt.Fprintf(sb, "\t\t\tPosition(%s, %s, %s);\n",
		formatFloat(node.Position.X), formatFloat(node.Position.Y), formatFloat(node.Position.Z))
	fmt.Fprintf(sb, "\t\t\tRotation(%s, %s, %s, %s);\n",
		formatFloat(node.Rotation[0]), formatFloat(node.Rotation[1]),
		formatFloat(node.Rotation[2]), formatFloat(node.Rotation[3]))
	sb.WriteString(pathNodeTail)
}
