// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package terraingen provides a perlin-noise terrain.Source used only to
// gap-fill a truncated heightmap patch, never to invent data for a
// well-formed chunk. Its single-octave noise is deliberately simpler than
// a live game's multi-octave biome generator (server/terrain/noise),
// since it only needs to paper over a few missing pixels plausibly, not
// author an entire playable landscape.
package terraingen

import "github.com/aquilax/go-perlin"

const frequency = 0.01

// Source fills missing heightmap pixels with single-octave perlin noise
// centered on a mid-range height, so a gap reads as plausible terrain
// rather than a visible hole.
type Source struct {
	noise *perlin.Perlin
}

// New returns a Source seeded deterministically from seed, so the same
// input always gap-fills the same way.
func New(seed int64) *Source {
	return &Source{noise: perlin.NewPerlin(2, 2.0, 1, seed)}
}

// Generate implements terrain.Source.
func (s *Source) Generate(x, y, width, height int) []byte {
	buf := make([]byte, width*height)
	for j := 0; j < height; j++ {
		for i := 0; i < width; i++ {
			n := s.noise.Noise2D(float64(x+i)*frequency, float64(y+j)*frequency)
			h := 128 + n*64
			buf[i+j*width] = clampToByte(h)
		}
	}
	return buf
}

func clampToByte(f float64) byte {
	if f < 0 {
		return 0
	}
	if f > 255 {
		return 255
	}
	return byte(f)
}
