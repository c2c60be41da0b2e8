// nav/alt.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	av "tracon/aviation"
	"tracon/log"
	"tracon/math"
)

// MaximumRate is the indication to use the aircraft's best climb or
// descent rate rather than a specified one.
const MaximumRate = 100000

// How much the baseline climb or descent rate is adjusted per update when
// transitioning between rates.
const rateMaxDeltaPercent = 0.075

// Altitude difference below which the climb or descent rate starts to
// fade toward zero for a smooth level off.
const rateFadeAltDifference = 500

// TargetAltitude returns the altitude the aircraft is currently trying to
// reach in feet and the climb or descent rate to use in feet per minute.
func (nav *Nav) TargetAltitude(lg *log.Logger) (alt, rate float32) {
	// Stay on the glideslope if we're on the localizer with the
	// glideslope captured.
	if nav.onGlideslope() {
		ap := nav.Approach.Assigned
		dist := math.Distance2f(nav.FlightState.Position, ap.Threshold)
		return ap.GlideslopeAltitude(dist), MaximumRate
	}

	if nav.Altitude.Assigned != nil {
		return *nav.Altitude.Assigned, nav.altitudeRate()
	}

	// Waypoint altitude restrictions, current or carried-over.
	if c, ok := nav.getWaypointAltitudeConstraint(); ok && !nav.InterceptedButNotCleared() {
		return c.Altitude, c.Rate
	}

	if nav.Altitude.Restriction != nil {
		alt := nav.Altitude.Restriction.TargetAltitude(nav.FlightState.Altitude)
		return alt, nav.altitudeRate()
	}

	if nav.Altitude.Cleared != nil {
		return *nav.Altitude.Cleared, nav.altitudeRate()
	}

	return nav.FinalAltitude, nav.altitudeRate()
}

func (nav *Nav) onGlideslope() bool {
	if !nav.Approach.Cleared || nav.Approach.InterceptState != OnApproachCourse {
		return false
	}
	ap := nav.Approach.Assigned
	if ap == nil {
		return false
	}
	dist := math.Distance2f(nav.FlightState.Position, ap.Threshold)
	gs := ap.GlideslopeAltitude(dist)
	// Capture from below; don't dive to join it.
	return nav.FlightState.Altitude >= gs-100
}

func (nav *Nav) altitudeRate() float32 {
	if nav.Altitude.Expedite {
		return MaximumRate
	}
	return 0 // unspecified; use the aircraft's standard rates
}

type WaypointCrossingConstraint struct {
	Altitude float32
	Rate     float32 // feet per minute
	Fix      string
}

// getWaypointAltitudeConstraint returns the altitude and rate to target
// so that upcoming waypoint crossing restrictions are all met. It walks
// the route, narrowing the feasible range of altitudes at each restricted
// waypoint, working from the aircraft's current altitude.
func (nav *Nav) getWaypointAltitudeConstraint() (WaypointCrossingConstraint, bool) {
	if _, ok := nav.AssignedHeading(); ok {
		// Controller heading overrides the route and its restrictions.
		return WaypointCrossingConstraint{}, false
	}

	getRestriction := func(i int) *av.AltitudeRestriction {
		wp := nav.Waypoints[i]
		if nfa, ok := nav.FixAssignments[wp.Fix]; ok && nfa.Arrive.Altitude != nil {
			return nfa.Arrive.Altitude
		}
		return wp.AltitudeRestriction
	}

	// Find the last waypoint with an altitude restriction.
	lastWp := -1
	for i := len(nav.Waypoints) - 1; i >= 0; i-- {
		if getRestriction(i) != nil {
			lastWp = i
			break
		}
	}
	if lastWp == -1 {
		return WaypointCrossingConstraint{}, false
	}

	// Figure out the range of altitudes that would be legal at the final
	// restricted waypoint, then walk backwards through the route,
	// clamping the range by each restriction in turn.
	alt := getRestriction(lastWp).Range
	fix := nav.Waypoints[lastWp].Fix
	distance := float32(0)
	for i := lastWp - 1; i >= 0; i-- {
		distance += math.Distance2f(nav.Waypoints[i].Location, nav.Waypoints[i+1].Location)
		if r := getRestriction(i); r != nil {
			var ok bool
			alt, ok = r.ClampRange(alt)
			if !ok {
				// Inconsistent restrictions; fly the nearer one.
				alt = r.Range
			}
			fix = nav.Waypoints[i].Fix
			distance = 0
		}
	}
	distance += math.Distance2f(nav.FlightState.Position, nav.Waypoints[0].Location)

	// Prefer the highest feasible altitude when climbing and the lowest
	// when descending; if the current altitude is inside the range there
	// is nothing to do.
	target := av.AltitudeRestriction{Range: alt}.TargetAltitude(nav.FlightState.Altitude)
	if target == nav.FlightState.Altitude {
		return WaypointCrossingConstraint{}, false
	}

	// Rate to exactly meet the constraint at the fix.
	eta := distance / nav.FlightState.GS * 60 // minutes
	rate := float32(MaximumRate)
	if eta > 0.1 {
		rate = math.Abs(target-nav.FlightState.Altitude) / eta
	}

	return WaypointCrossingConstraint{Altitude: target, Rate: rate, Fix: fix}, true
}

func (nav *Nav) updateAltitude(lg *log.Logger) {
	targetAltitude, targetRate := nav.TargetAltitude(lg)

	fs := &nav.FlightState
	fs.PrevAltitude = fs.Altitude

	if targetAltitude == fs.Altitude {
		// Ramp the rate back to zero rather than stopping instantly.
		fs.AltitudeRate *= 0.75
		if math.Abs(fs.AltitudeRate) < 10 {
			fs.AltitudeRate = 0
		}
		return
	}

	// Initial climb performance near the surface is reduced.
	getRate := func() float32 {
		if targetAltitude > fs.Altitude {
			r := nav.Perf.Rate.Climb
			if fs.Altitude-nav.FlightState.DepartureElevation < 1000 {
				r *= 0.8
			}
			// Climb rate tails off with altitude.
			r *= av.DensityRatioAtAltitude(fs.Altitude)
			if nav.Altitude.Expedite {
				r = min(2*r, nav.Perf.Rate.Climb)
			}
			return r
		}
		r := nav.Perf.Rate.Descent
		if nav.Altitude.Expedite {
			r *= 2
		}
		return r
	}

	maxRate := getRate()
	if targetRate != 0 && targetRate != MaximumRate {
		maxRate = min(maxRate, targetRate)
	}

	// Fade the rate as we approach the target altitude to level off
	// smoothly.
	if d := math.Abs(targetAltitude - fs.Altitude); d < rateFadeAltDifference {
		maxRate *= max(0.25, d/rateFadeAltDifference)
	}

	signedRate := maxRate
	if targetAltitude < fs.Altitude {
		signedRate = -maxRate
	}

	// Don't jump straight to the new rate; move toward it.
	delta := signedRate - fs.AltitudeRate
	maxDelta := rateMaxDeltaPercent * maxRate
	fs.AltitudeRate += math.Clamp(delta, -maxDelta, maxDelta)

	dAlt := fs.AltitudeRate / 60 // feet in one second
	if math.Abs(targetAltitude-fs.Altitude) <= math.Abs(dAlt) {
		fs.Altitude = targetAltitude
		if math.Abs(fs.AltitudeRate) < 300 {
			fs.AltitudeRate = 0
		}
	} else {
		fs.Altitude += dAlt
	}
}
