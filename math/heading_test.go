// math/heading_test.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"testing"
)

func TestNormalizeHeading(t *testing.T) {
	tests := []struct {
		h        float32
		expected float32
	}{
		{0, 360},
		{360, 360},
		{720, 360},
		{-10, 350},
		{-370, 350},
		{90, 90},
		{450, 90},
	}
	for _, tc := range tests {
		if got := NormalizeHeading(tc.h); got != tc.expected {
			t.Errorf("NormalizeHeading(%v) = %v, expected %v", tc.h, got, tc.expected)
		}
	}
}

func TestHeadingDifference(t *testing.T) {
	tests := []struct {
		a, b     float32
		expected float32
	}{
		{90, 90, 0},
		{0, 90, 90},
		{350, 10, 20},
		{180, 0, 180},
		{10, 350, 20},
	}
	for _, tc := range tests {
		if got := HeadingDifference(tc.a, tc.b); got != tc.expected {
			t.Errorf("HeadingDifference(%v, %v) = %v, expected %v", tc.a, tc.b, got, tc.expected)
		}
	}
}

func TestHeadingSignedTurn(t *testing.T) {
	tests := []struct {
		name     string
		cur      float32
		target   float32
		expected float32
	}{
		{"no turn", 90, 90, 0},
		{"right 90", 90, 180, 90},
		{"left 90", 180, 90, -90},
		{"right across north", 350, 10, 20},
		{"left across north", 10, 350, -20},
	}
	for _, tc := range tests {
		if got := HeadingSignedTurn(tc.cur, tc.target); got != tc.expected {
			t.Errorf("%s: HeadingSignedTurn(%v, %v) = %v, expected %v",
				tc.name, tc.cur, tc.target, got, tc.expected)
		}
	}
}

func TestIsHeadingBetween(t *testing.T) {
	tests := []struct {
		name     string
		h        float32
		h1       float32
		h2       float32
		expected bool
	}{
		{"middle of range", 45, 0, 90, true},
		{"at start", 0, 0, 90, true},
		{"at end", 90, 0, 90, true},
		{"before range", 350, 0, 90, false},
		{"after range", 100, 0, 90, false},

		{"wraparound middle", 10, 350, 20, true},
		{"wraparound at 0", 0, 350, 20, true},
		{"wraparound start", 350, 350, 20, true},
		{"wraparound end", 20, 350, 20, true},
		{"wraparound outside", 100, 350, 20, false},
		{"wraparound outside 2", 200, 350, 20, false},

		{"same start and end", 45, 45, 45, true},

		// Hold entry sectors. Left-turn hold, inbound 041, outbound 221:
		// teardrop sector runs 221 to 291.
		{"teardrop start", 221, 221, 291, true},
		{"teardrop middle", 261.5, 221, 291, true},
		{"teardrop end", 291, 221, 291, true},
		{"outside teardrop", 300, 221, 291, false},
	}
	for _, tc := range tests {
		if got := IsHeadingBetween(tc.h, tc.h1, tc.h2); got != tc.expected {
			t.Errorf("%s: IsHeadingBetween(%v, %v, %v) = %v, expected %v",
				tc.name, tc.h, tc.h1, tc.h2, got, tc.expected)
		}
	}
}

func TestHeading2f(t *testing.T) {
	tests := []struct {
		name     string
		from     Point2NM
		to       Point2NM
		expected float32
	}{
		{"due north", Point2NM{0, 0}, Point2NM{0, 5}, 360},
		{"due east", Point2NM{0, 0}, Point2NM{5, 0}, 90},
		{"due south", Point2NM{0, 0}, Point2NM{0, -5}, 180},
		{"due west", Point2NM{0, 0}, Point2NM{-5, 0}, 270},
		{"northeast", Point2NM{1, 1}, Point2NM{2, 2}, 45},
	}
	for _, tc := range tests {
		if got := Heading2f(tc.from, tc.to); Abs(got-tc.expected) > 0.001 {
			t.Errorf("%s: Heading2f(%v, %v) = %v, expected %v",
				tc.name, tc.from, tc.to, got, tc.expected)
		}
	}
}

func TestHeadingVectorRoundTrip(t *testing.T) {
	for _, h := range []float32{1, 45, 90, 179, 270, 359.5} {
		v := HeadingVector(h)
		if got := VectorHeading(v); Abs(got-h) > 0.001 {
			t.Errorf("heading %v -> vector %v -> heading %v", h, v, got)
		}
	}
}
