// math/heading.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

// Headings are compass degrees: 0/360 is north, increasing clockwise.

// Heading2f returns the compass heading from one point to another.
func Heading2f(from Point2NM, to Point2NM) float32 {
	v := Sub2f(to, from)
	return NormalizeHeading(Degrees(Atan2(v[0], v[1])))
}

// HeadingVector returns a unit vector pointing along the given heading.
func HeadingVector(hdg float32) Point2NM {
	s, c := SinCos(Radians(hdg))
	return Point2NM{s, c}
}

// VectorHeading returns the compass heading a vector points along.
func VectorHeading(v Point2NM) float32 {
	return NormalizeHeading(Degrees(Atan2(v[0], v[1])))
}

// NormalizeHeading maps a heading to (0, 360].
func NormalizeHeading(h float32) float32 {
	h = Mod(h, 360)
	if h <= 0 {
		h += 360
	}
	return h
}

func OppositeHeading(h float32) float32 {
	return NormalizeHeading(h + 180)
}

// HeadingDifference returns the absolute difference between two headings,
// always in [0, 180].
func HeadingDifference(a float32, b float32) float32 {
	d := Abs(Mod(a, 360) - Mod(b, 360))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// HeadingSignedTurn returns the shortest turn from cur to target, negative
// for a left turn and positive for a right turn.
func HeadingSignedTurn(cur, target float32) float32 {
	d := NormalizeHeading(target) - NormalizeHeading(cur)
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return d
}

// IsHeadingBetween reports whether h lies in the sector swept clockwise from
// h1 to h2, inclusive at both ends.
func IsHeadingBetween(h, h1, h2 float32) bool {
	h, h1, h2 = Mod(h, 360), Mod(h1, 360), Mod(h2, 360)
	if h1 <= h2 {
		return h1 <= h && h <= h2
	}
	return h >= h1 || h <= h2
}
