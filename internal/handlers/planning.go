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
	"github.com/ucfb-tools/unmunge/internal/platform"
)

var tagARCS = mustTag("ARCS")

// planCount numbers every planning chunk this process decodes, across
// every file and every goroutine, the same way handle_planning.cpp's
// function-local `static std::atomic_int plan_count` does: planning
// chunks carry no name of their own, so the output files are
// "ai_paths_0.pln", "ai_paths_1.pln", and so on in encounter order.
var planCount int64 = -1

func nextPlanName() string {
	n := atomic.AddInt64(&planCount, 1)
	return "ai_paths_" + strconv.FormatInt(n, 10)
}

type planHub struct {
	Name          string
	X, Y, Z       float32
	Radius        float32
}

type planConnection struct {
	Name                         string
	Start, End                   int
	FilterFlags                  uint32
	OneWay, Jump, JetJump        bool
}

// planningHub is SWBFII's 45-byte Hub record. Its trailing weight_info
// is a per-hub-pair byte matrix sized by the hub's own weight_counts
// entries times the file's total hub count, present only to be skipped:
// nothing downstream needs pathfinding weights.
type planningHub struct {
	Name         [16]byte
	X, Y, Z      float32
	Radius       float32
	Unknown1     [8]byte
	WeightCounts [5]uint8
}

type planningArc struct {
	Name        [16]byte
	Start       uint8
	End         uint8
	FilterFlags uint32
	TypeFlags   uint32
}

const (
	arcTypeOneWay  = 1
	arcTypeJump    = 2
	arcTypeJetJump = 4
)

// swbf1NodeInfo is SWBF1's 40-byte per-hub record; SWBF1 has no weights
// matrix, only a version-specific branch-info trailer it never reads
// back (see readSWBF1Hubs).
type swbf1NodeInfo struct {
	Name     [16]byte
	X, Y, Z  float32
	Radius   float32
	Unknown1 [8]byte
}

// Planning handles plan chunks for both game versions the source
// splits into handle_planning (SWBFII) and handle_planning_swbf1: the
// NODE/ARCS record shapes and the INFO header differ, but the loop
// structure and the text emitter are the same idiom, so this port keeps
// one handler and branches once on ctx.GameVersion.
func Planning(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	env := FromContext(ctx)

	var hubs []planHub
	var connections []planConnection
	var err error

	if ctx.GameVersion == platform.SWBF {
		hubs, connections, err = readSWBF1Planning(r)
	} else {
		hubs, connections, err = readSWBFIIPlanning(r)
	}
	if err != nil {
		return err
	}

	return env.Files.SaveFile("world/"+nextPlanName()+".pln", []byte(writePlanning(hubs, connections)))
}

// readSWBFIIPlanning reads INFO's hub/arc counts, then walks the
// chunk's remaining children sequentially (not through ReadChild's
// normal one-tag-at-a-time loop, since NODE's own child size spans a
// run of variable-length Hub records rather than nested chunks) exactly
// as handle_planning.cpp's manual head-walk does.
func readSWBFIIPlanning(r *chunk.Reader) ([]planHub, []planConnection, error) {
	info, err := r.ReadChildStrict(tagINFO, false)
	if err != nil {
		return nil, nil, err
	}
	hubCount, err := chunk.ReadTrivial[uint16](info, false)
	if err != nil {
		return nil, nil, err
	}
	arcCount, err := chunk.ReadTrivial[uint16](info, false)
	if err != nil {
		return nil, nil, err
	}

	var hubs []planHub
	var connections []planConnection

	for r.HasMore() {
		child, err := r.ReadChild(false)
		if err != nil {
			return nil, nil, err
		}
		switch child.Tag() {
		case tagNODE:
			hubs, err = readSWBFIINode(child, int(hubCount))
			if err != nil {
				return nil, nil, err
			}
		case tagARCS:
			connections, err = readSWBFIIArcs(child, int(arcCount))
			if err != nil {
				return nil, nil, err
			}
		}
	}
	return hubs, connections, nil
}

// readSWBFIINode walks NODE's packed Hub records. Each hub's trailing
// weight_info is hubCount*sum(weight_counts) bytes; it is always
// consumed, never interpreted, the same as the source's read_hub.
func readSWBFIINode(node *chunk.Reader, hubCount int) ([]planHub, error) {
	var hubs []planHub
	for node.HasMore() {
		raw, err := chunk.ReadTrivial[planningHub](node, false)
		if err != nil {
			return nil, err
		}
		weightCount := 0
		for _, c := range raw.WeightCounts {
			weightCount += int(c)
		}
		if n := weightCount * hubCount; n > 0 {
			if err := node.Consume(n, true); err != nil {
				return nil, err
			}
		}
		hubs = append(hubs, planHub{
			Name:   cstring(raw.Name[:]),
			X:      raw.X,
			Y:      raw.Y,
			Z:      -raw.Z,
			Radius: raw.Radius,
		})
	}
	return hubs, nil
}

func readSWBFIIArcs(arcs *chunk.Reader, arcCount int) ([]planConnection, error) {
	entries, err := chunk.ReadArray[planningArc](arcs, arcCount, false)
	if err != nil {
		return nil, err
	}
	connections := make([]planConnection, arcCount)
	for i, a := range entries {
		connections[i] = planConnection{
			Name:         cstring(a.Name[:]),
			Start:        int(a.Start),
			End:          int(a.End),
			FilterFlags:  a.FilterFlags,
			OneWay:       a.TypeFlags&arcTypeOneWay != 0,
			Jump:         a.TypeFlags&arcTypeJump != 0,
			JetJump:      a.TypeFlags&arcTypeJetJump != 0,
		}
	}
	return connections, nil
}

// readSWBF1Planning reads SWBF1's simpler INFO/NODE/ARCS shape: fixed
// per-record sizes throughout, no variable weight matrix, and no
// one-way/jump/jet-jump connection flags.
func readSWBF1Planning(r *chunk.Reader) ([]planHub, []planConnection, error) {
	info, err := r.ReadChildStrict(tagINFO, false)
	if err != nil {
		return nil, nil, err
	}
	hubCount, err := chunk.ReadTrivial[uint16](info, false)
	if err != nil {
		return nil, nil, err
	}
	arcCount, err := chunk.ReadTrivial[uint16](info, false)
	if err != nil {
		return nil, nil, err
	}
	branchCount, err := chunk.ReadTrivial[uint16](info, false)
	if err != nil {
		return nil, nil, err
	}

	node, err := r.ReadChildStrict(tagNODE, false)
	if err != nil {
		return nil, nil, err
	}
	hubs, err := readSWBF1Node(node, int(hubCount), int(branchCount))
	if err != nil {
		return nil, nil, err
	}

	arcs, err := r.ReadChildStrict(tagARCS, false)
	if err != nil {
		return nil, nil, err
	}
	connections, err := readSWBF1Arcs(arcs, int(arcCount))
	if err != nil {
		return nil, nil, err
	}

	return hubs, connections, nil
}

// readSWBF1Node reproduces read_next_node's branch_info skip: every
// record is followed by branchCount*hubCount*4 bytes this port has no
// use for, same as SWBFII's weight matrix.
func readSWBF1Node(node *chunk.Reader, hubCount, branchCount int) ([]planHub, error) {
	var hubs []planHub
	for node.HasMore() {
		raw, err := chunk.ReadTrivial[swbf1NodeInfo](node, true)
		if err != nil {
			return nil, err
		}
		if n := branchCount * hubCount * 4; n > 0 {
			if err := node.Consume(n, true); err != nil {
				return nil, err
			}
		}
		hubs = append(hubs, planHub{
			Name:   cstring(raw.Name[:]),
			X:      raw.X,
			Y:      raw.Y,
			Z:      -raw.Z,
			Radius: raw.Radius,
		})
	}
	return hubs, nil
}

func readSWBF1Arcs(arcs *chunk.Reader, arcCount int) ([]planConnection, error) {
	connections := make([]planConnection, 0, arcCount)
	for i := 0; i < arcCount; i++ {
		name, err := arcs.ReadArrayBorrow(16)
		if err != nil {
			return nil, err
		}
		start, err := chunk.ReadTrivial[uint8](arcs, true)
		if err != nil {
			return nil, err
		}
		end, err := chunk.ReadTrivial[uint8](arcs, true)
		if err != nil {
			return nil, err
		}
		filterFlags, err := chunk.ReadTrivial[uint32](arcs, true)
		if err != nil {
			return nil, err
		}
		connections = append(connections, planConnection{
			Name:        cstring(name),
			Start:       int(start),
			End:         int(end),
			FilterFlags: filterFlags,
		})
	}
	return connections, nil
}

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// writePlanning renders hubs and connections as ZeroEditor's .pln text
// format. A connection whose start or end index doesn't name a real hub
// discards the whole buffer and writes a failure marker instead of a
// partial file, the same all-or-nothing recovery write_planning's
// try/catch performs around its two write loops. Unlike the source,
// which guards with "start > hubs.size()" and then indexes hubs[start]
// — allowing an off-by-one index equal to hubs.size() through the guard
// only to read out of bounds — this port guards with ">=" so a
// malformed file degrades to the failure marker instead of crashing the
// whole run.
func writePlanning(hubs []planHub, connections []planConnection) string {
	var sb strings.Builder
	ok := func() bool {
		for _, h := range hubs {
			writeHubBlock(&sb, h)
		}
		for _, c := range connections {
			if c.Start >= len(hubs) || c.End >= len(hubs) {
				return false
			}
			writeConnectionBlock(&sb, c, hubs)
		}
		return true
	}()
	if !ok {
		return "// Failed reading planning info //"
	}
	return sb.String()
}

func writeHubBlock(sb *strings.Builder, h planHub) {
	fmt.Fprintf(sb, "Hub(\"%s\")\n{\n", h.Name)
	fmt.Fprintf(sb, "\tPos(%s, %s, %s);\n", formatFloat(h.X), formatFloat(h.Y), formatFloat(h.Z))
	fmt.Fprintf(sb, "\tRadius(%s);\n}\n\n", formatFloat(h.Radius))
}

func writeConnectionBlock(sb *strings.Builder, c planConnection, hubs []planHub) {
	fmt.Fprintf(sb, "Connection(\"%s\")\n{\n", c.Name)
	fmt.Fprintf(sb, "\tStart(\"%s\");\n", hubs[c.Start].Name)
	fmt.Fprintf(sb, "\tEnd(\"%s\");\n", hubs[c.End].Name)
	fmt.Fprintf(sb, "\tFlags(%d);\n", c.FilterFlags)
	if c.OneWay {
		sb.WriteString("\tOneWay();\n")
	}
	if c.Jump {
		sb.WriteString("\tJump();\n")
	}
	if c.JetJump {
		sb.WriteString("\tJetJump();\n")
	}
	sb.WriteString("}\n\n")
}
