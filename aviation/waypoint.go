// aviation/waypoint.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"strings"

	"tracon/math"
)

// FixDB maps fix/navaid names to their locations. Fixes are shared
// reference data; waypoints refer to them by name and never own them.
type FixDB map[string]math.Point2NM

func (db FixDB) Lookup(fix string) (math.Point2NM, bool) {
	p, ok := db[strings.ToUpper(fix)]
	return p, ok
}

// Waypoint is one element of a route: a fix to fly to, optionally with
// crossing restrictions, an outbound heading, or a charted hold.
type Waypoint struct {
	Fix                 string               `yaml:"fix"`
	Location            math.Point2NM        `yaml:"-"` // resolved from the fix database at load time
	AltitudeRestriction *AltitudeRestriction `yaml:"altitude,omitempty"`
	Speed               int                  `yaml:"speed,omitempty"`   // crossing speed restriction, knots
	Heading             int                  `yaml:"heading,omitempty"` // outbound heading after the fix, 0 for none
	FlyOver             bool                 `yaml:"flyover,omitempty"` // overfly rather than turn early
	Hold                *Hold                `yaml:"hold,omitempty"`    // charted hold at this fix
	FAF                 bool                 `yaml:"faf,omitempty"`     // final approach fix
	OnApproach          bool                 `yaml:"onApproach,omitempty"`
}

func (wp Waypoint) String() string {
	s := wp.Fix
	if wp.AltitudeRestriction != nil {
		s += fmt.Sprintf("/a%s", wp.AltitudeRestriction.Summary())
	}
	if wp.Speed != 0 {
		s += fmt.Sprintf("/s%d", wp.Speed)
	}
	return s
}

// LegKind identifies how a route leg is flown. The set is closed; code
// that dispatches on it handles every case.
type LegKind int

const (
	LegDirect LegKind = iota
	LegHold
	LegApproach
)

func (k LegKind) String() string {
	return []string{"direct", "hold", "approach"}[int(k)]
}

// Kind returns how the leg ending at this waypoint is flown.
func (wp Waypoint) Kind() LegKind {
	if wp.Hold != nil {
		return LegHold
	}
	if wp.OnApproach || wp.FAF {
		return LegApproach
	}
	return LegDirect
}
