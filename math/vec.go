// math/vec.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

// Point2NM is a position in nautical miles east and north of the scenario
// origin. The same representation serves as a 2D vector where convenient.
type Point2NM [2]float32

func Add2f(a Point2NM, b Point2NM) Point2NM {
	return Point2NM{a[0] + b[0], a[1] + b[1]}
}

func Sub2f(a Point2NM, b Point2NM) Point2NM {
	return Point2NM{a[0] - b[0], a[1] - b[1]}
}

func Scale2f(a Point2NM, s float32) Point2NM {
	return Point2NM{s * a[0], s * a[1]}
}

func Dot(a Point2NM, b Point2NM) float32 {
	return a[0]*b[0] + a[1]*b[1]
}

func Length2f(v Point2NM) float32 {
	return Sqrt(v[0]*v[0] + v[1]*v[1])
}

func Distance2f(a Point2NM, b Point2NM) float32 {
	return Length2f(Sub2f(a, b))
}

func Normalize2f(v Point2NM) Point2NM {
	l := Length2f(v)
	if l == 0 {
		return Point2NM{}
	}
	return Scale2f(v, 1/l)
}

func Lerp2f(x float32, a Point2NM, b Point2NM) Point2NM {
	return Point2NM{(1-x)*a[0] + x*b[0], (1-x)*a[1] + x*b[1]}
}

func Mid2f(a Point2NM, b Point2NM) Point2NM {
	return Lerp2f(0.5, a, b)
}

// SignedPointLineDistance returns the signed distance from p to the infinite
// line through p0 and p1; the sign flips as p crosses the line.
func SignedPointLineDistance(p, p0, p1 Point2NM) float32 {
	dx := p1[0] - p0[0]
	dy := p1[1] - p0[1]
	sq := dx*dx + dy*dy
	if sq == 0 {
		return Distance2f(p, p0)
	}
	return (dx*(p0[1]-p[1]) - dy*(p0[0]-p[0])) / Sqrt(sq)
}

// PointSegmentDistance returns the distance from p to the line segment p0-p1.
func PointSegmentDistance(p, p0, p1 Point2NM) float32 {
	return Distance2f(p, ClosestPointOnSegment(p, p0, p1))
}

// ClosestPointOnSegment returns the point on segment p0-p1 nearest to p.
func ClosestPointOnSegment(p, p0, p1 Point2NM) Point2NM {
	v := Sub2f(p1, p0)
	sq := Dot(v, v)
	if sq == 0 {
		return p0
	}
	t := Clamp(Dot(Sub2f(p, p0), v)/sq, 0, 1)
	return Add2f(p0, Scale2f(v, t))
}
