// aviation/route.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"

	"tracon/math"
)

///////////////////////////////////////////////////////////////////////////
// AltitudeRestriction

type AltitudeRestriction struct {
	// We treat 0 as "unset", which works naturally for the bottom but
	// requires occasional care at the top.
	Range [2]float32 `yaml:"range,flow"`
}

// TargetAltitude returns the altitude to aim for given the restriction: alt
// itself if it satisfies the restriction, otherwise the closest altitude
// that does.
func (a AltitudeRestriction) TargetAltitude(alt float32) float32 {
	if a.Range[1] != 0 {
		return math.Clamp(alt, a.Range[0], a.Range[1])
	} else {
		return max(alt, a.Range[0])
	}
}

// ClampRange limits a range of altitudes to satisfy the altitude
// restriction; the returned Boolean indicates whether the ranges
// overlapped.
func (a AltitudeRestriction) ClampRange(r [2]float32) (c [2]float32, ok bool) {
	// r: I could be at any of these altitudes and be fine for a future restriction
	// a: working backwards, we have this additional restriction, how does it limit r?
	// c: result
	ok = true
	c = r

	if a.Range[0] != 0 { // at or above
		ok = r[1] == 0 || r[1] >= a.Range[0]
		c[0] = max(a.Range[0], r[0])
		if r[1] != 0 {
			c[1] = max(a.Range[0], r[1])
		}
	}

	if a.Range[1] != 0 { // at or below
		ok = ok && c[0] <= a.Range[1]
		c[0] = min(c[0], a.Range[1])
		c[1] = min(c[1], a.Range[1])
	}

	return
}

func (a AltitudeRestriction) Summary() string {
	if a.Range[0] != 0 {
		if a.Range[1] == a.Range[0] {
			return fmt.Sprintf("at %.0f", a.Range[0])
		} else if a.Range[1] != 0 {
			return fmt.Sprintf("between %.0f and %.0f", a.Range[0], a.Range[1])
		} else {
			return fmt.Sprintf("at or above %.0f", a.Range[0])
		}
	} else if a.Range[1] != 0 {
		return fmt.Sprintf("at or below %.0f", a.Range[1])
	} else {
		return ""
	}
}

///////////////////////////////////////////////////////////////////////////
// Holds

type TurnDirection int

const (
	TurnClosest TurnDirection = iota // default: turn the shortest direction
	TurnLeft
	TurnRight
)

func (t TurnDirection) String() string {
	return []string{"closest", "left", "right"}[int(t)]
}

func (t *TurnDirection) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch s {
	case "", "closest":
		*t = TurnClosest
	case "left":
		*t = TurnLeft
	case "right":
		*t = TurnRight
	default:
		return fmt.Errorf("%q: invalid turn direction", s)
	}
	return nil
}

// Hold describes a holding pattern anchored at a fix.
type Hold struct {
	Fix           string        `yaml:"fix"`           // fix identifier where the hold is located
	InboundCourse float32       `yaml:"inboundCourse"` // inbound course to the fix
	TurnDirection TurnDirection `yaml:"turnDirection"` // direction of the hold's turns
	LegLengthNM   float32       `yaml:"legLength"`     // distance-based leg length, 0 if time-based
	LegMinutes    float32       `yaml:"legMinutes"`    // time-based leg duration, 0 for standard timing
	HoldingSpeed  int           `yaml:"holdingSpeed"`  // speed limit in hold, 0 if not specified
}

func (h Hold) DisplayName() string {
	n := fmt.Sprintf("%s (%s", h.Fix, h.TurnDirection)
	if h.LegLengthNM != 0 {
		n += fmt.Sprintf(", %.1f nm", h.LegLengthNM)
	} else if h.LegMinutes != 0 {
		n += fmt.Sprintf(", %.1f min", h.LegMinutes)
	}
	return n + ")"
}

// Speed returns the holding speed in knots for the given altitude.
// If the hold has a published holding speed, that is returned.
// Otherwise, standard holding speeds are applied based on altitude:
// 6000 ft: 200 knots, 14000 ft: 230 knots, >14000 ft: 265 knots.
func (h Hold) Speed(alt float32) float32 {
	if h.HoldingSpeed > 0 {
		return float32(h.HoldingSpeed)
	} else if alt <= 6000 {
		return 200
	} else if alt <= 14000 {
		return 230
	} else {
		return 265
	}
}

type HoldEntry int

const (
	HoldEntryDirect HoldEntry = iota
	HoldEntryParallel
	HoldEntryTeardrop
)

func (e HoldEntry) String() string {
	return []string{"Direct", "Parallel", "Teardrop"}[int(e)]
}

// Entry classifies the hold entry for an aircraft approaching the fix on
// the given heading.
func (h Hold) Entry(headingToFix float32) HoldEntry {
	outboundCourse := math.OppositeHeading(h.InboundCourse)

	// Dividing line is 70 from outbound on the holding side. This creates
	// three sectors measured from the outbound course:
	// - Parallel: 110 on holding side from outbound
	// - Teardrop: 70 on non-holding side from outbound
	// - Direct: remaining 180
	if h.TurnDirection == TurnRight {
		// Right turns: holding side is clockwise from outbound
		// Parallel sector: outbound to outbound+110
		// Teardrop sector: outbound-70 to outbound
		if math.IsHeadingBetween(headingToFix, outboundCourse, outboundCourse+110) {
			return HoldEntryParallel
		} else if math.IsHeadingBetween(headingToFix, outboundCourse-70, outboundCourse) {
			return HoldEntryTeardrop
		} else {
			return HoldEntryDirect
		}
	} else {
		// Left turns: holding side is counter-clockwise from outbound
		// Parallel sector: outbound-110 to outbound
		// Teardrop sector: outbound to outbound+70
		if math.IsHeadingBetween(headingToFix, outboundCourse-110, outboundCourse) {
			return HoldEntryParallel
		} else if math.IsHeadingBetween(headingToFix, outboundCourse, outboundCourse+70) {
			return HoldEntryTeardrop
		} else {
			return HoldEntryDirect
		}
	}
}
