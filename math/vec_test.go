// math/vec_test.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"testing"
)

func TestSignedPointLineDistance(t *testing.T) {
	p0, p1 := Point2NM{0, 0}, Point2NM{0, 10} // line up the y axis

	dl := SignedPointLineDistance(Point2NM{-3, 5}, p0, p1)
	dr := SignedPointLineDistance(Point2NM{3, 5}, p0, p1)
	if Abs(dl) != 3 || Abs(dr) != 3 {
		t.Errorf("expected distance 3 both sides, got %v and %v", dl, dr)
	}
	if Sign(dl) == Sign(dr) {
		t.Errorf("expected opposite signs across the line, got %v and %v", dl, dr)
	}
	if d := SignedPointLineDistance(Point2NM{0, 25}, p0, p1); d != 0 {
		t.Errorf("point on the line: expected 0, got %v", d)
	}
}

func TestClosestPointOnSegment(t *testing.T) {
	p0, p1 := Point2NM{0, 0}, Point2NM{10, 0}
	tests := []struct {
		name     string
		p        Point2NM
		expected Point2NM
	}{
		{"above middle", Point2NM{5, 3}, Point2NM{5, 0}},
		{"beyond end", Point2NM{15, 2}, Point2NM{10, 0}},
		{"before start", Point2NM{-4, -1}, Point2NM{0, 0}},
		{"on segment", Point2NM{7, 0}, Point2NM{7, 0}},
	}
	for _, tc := range tests {
		if got := ClosestPointOnSegment(tc.p, p0, p1); got != tc.expected {
			t.Errorf("%s: got %v, expected %v", tc.name, got, tc.expected)
		}
	}

	// Degenerate segment
	if got := ClosestPointOnSegment(Point2NM{1, 1}, Point2NM{2, 2}, Point2NM{2, 2}); got != (Point2NM{2, 2}) {
		t.Errorf("degenerate segment: got %v", got)
	}
}

func TestPointSegmentDistance(t *testing.T) {
	p0, p1 := Point2NM{0, 0}, Point2NM{10, 0}
	if d := PointSegmentDistance(Point2NM{5, 4}, p0, p1); d != 4 {
		t.Errorf("got %v, expected 4", d)
	}
	if d := PointSegmentDistance(Point2NM{13, 4}, p0, p1); d != 5 {
		t.Errorf("past the end: got %v, expected 5", d)
	}
}
