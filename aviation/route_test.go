// aviation/route_test.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"testing"

	"tracon/math"
)

func TestAltitudeRestrictionTargetAltitude(t *testing.T) {
	tests := []struct {
		name     string
		r        AltitudeRestriction
		alt      float32
		expected float32
	}{
		{"no restriction", AltitudeRestriction{}, 7000, 7000},
		{"at", AltitudeRestriction{Range: [2]float32{5000, 5000}}, 7000, 5000},
		{"at or above, below it", AltitudeRestriction{Range: [2]float32{5000, 0}}, 4000, 5000},
		{"at or above, above it", AltitudeRestriction{Range: [2]float32{5000, 0}}, 9000, 9000},
		{"at or below, above it", AltitudeRestriction{Range: [2]float32{0, 5000}}, 9000, 5000},
		{"in band", AltitudeRestriction{Range: [2]float32{4000, 6000}}, 5000, 5000},
		{"below band", AltitudeRestriction{Range: [2]float32{4000, 6000}}, 3000, 4000},
	}
	for _, tc := range tests {
		if got := tc.r.TargetAltitude(tc.alt); got != tc.expected {
			t.Errorf("%s: TargetAltitude(%v) = %v, expected %v", tc.name, tc.alt, got, tc.expected)
		}
	}
}

func TestAltitudeRestrictionClampRange(t *testing.T) {
	tests := []struct {
		name     string
		r        AltitudeRestriction
		in       [2]float32
		expected [2]float32
		ok       bool
	}{
		{"no restriction", AltitudeRestriction{}, [2]float32{3000, 5000}, [2]float32{3000, 5000}, true},
		{"raise bottom", AltitudeRestriction{Range: [2]float32{4000, 0}},
			[2]float32{3000, 5000}, [2]float32{4000, 5000}, true},
		{"lower top", AltitudeRestriction{Range: [2]float32{0, 4000}},
			[2]float32{3000, 5000}, [2]float32{3000, 4000}, true},
		{"disjoint above", AltitudeRestriction{Range: [2]float32{6000, 0}},
			[2]float32{3000, 5000}, [2]float32{6000, 6000}, false},
		{"disjoint below", AltitudeRestriction{Range: [2]float32{0, 2000}},
			[2]float32{3000, 5000}, [2]float32{2000, 2000}, false},
	}
	for _, tc := range tests {
		got, ok := tc.r.ClampRange(tc.in)
		if got != tc.expected || ok != tc.ok {
			t.Errorf("%s: ClampRange(%v) = %v, %v, expected %v, %v",
				tc.name, tc.in, got, ok, tc.expected, tc.ok)
		}
	}
}

func TestHoldEntry(t *testing.T) {
	// Right-turn hold, inbound course 360: outbound course is 180.
	// Parallel sector 180-290, teardrop 110-180, direct elsewhere.
	right := Hold{Fix: "ALPHA", InboundCourse: 360, TurnDirection: TurnRight}
	// Left-turn hold, inbound course 041: outbound 221.
	// Parallel sector 111-221, teardrop 221-291.
	left := Hold{Fix: "BRAVO", InboundCourse: 41, TurnDirection: TurnLeft}

	tests := []struct {
		name         string
		hold         Hold
		headingToFix float32
		expected     HoldEntry
	}{
		{"right direct head-on", right, 360, HoldEntryDirect},
		{"right direct from side", right, 45, HoldEntryDirect},
		{"right parallel", right, 235, HoldEntryParallel},
		{"right parallel edge", right, 180, HoldEntryParallel},
		{"right teardrop", right, 150, HoldEntryTeardrop},
		{"left direct", left, 41, HoldEntryDirect},
		{"left parallel", left, 160, HoldEntryParallel},
		{"left teardrop", left, 261, HoldEntryTeardrop},
	}
	for _, tc := range tests {
		if got := tc.hold.Entry(tc.headingToFix); got != tc.expected {
			t.Errorf("%s: Entry(%v) = %v, expected %v", tc.name, tc.headingToFix, got, tc.expected)
		}
	}
}

func TestHoldSpeed(t *testing.T) {
	h := Hold{Fix: "ALPHA", InboundCourse: 90}
	if got := h.Speed(4000); got != 200 {
		t.Errorf("low altitude hold speed: got %v", got)
	}
	if got := h.Speed(10000); got != 230 {
		t.Errorf("mid altitude hold speed: got %v", got)
	}
	if got := h.Speed(16000); got != 265 {
		t.Errorf("high altitude hold speed: got %v", got)
	}
	h.HoldingSpeed = 210
	if got := h.Speed(16000); got != 210 {
		t.Errorf("published hold speed: got %v", got)
	}
}

func TestGlideslopeAltitude(t *testing.T) {
	ap := Approach{
		Id:              "I26",
		Runway:          "26",
		Threshold:       math.Point2NM{0, 0},
		LocalizerCourse: 260,
		GlideslopeAngle: 3,
	}

	if got := ap.GlideslopeAltitude(0); got != 0 {
		t.Errorf("at threshold: got %v", got)
	}
	// Rule of thumb: a 3 degree glideslope is about 318 ft/nm.
	if got := ap.GlideslopeAltitude(10); math.Abs(got-3184) > 10 {
		t.Errorf("10nm out: got %v, expected about 3184", got)
	}
	if got := ap.GlideslopeAltitude(-1); got != 0 {
		t.Errorf("past threshold: got %v", got)
	}
}

func TestIASTASRoundTrip(t *testing.T) {
	for _, alt := range []float32{0, 5000, 15000, 35000} {
		tas := IASToTAS(250, alt)
		if alt == 0 && math.Abs(tas-250) > 0.1 {
			t.Errorf("sea level TAS should equal IAS, got %v", tas)
		}
		if tas < 250 {
			t.Errorf("alt %v: TAS %v less than IAS", alt, tas)
		}
		if ias := TASToIAS(tas, alt); math.Abs(ias-250) > 0.01 {
			t.Errorf("alt %v: round trip gave %v", alt, ias)
		}
	}
}
