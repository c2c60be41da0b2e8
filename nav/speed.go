// nav/speed.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	av "tracon/aviation"
	"tracon/log"
	"tracon/math"
)

// TargetSpeed returns the indicated airspeed the aircraft is currently
// trying to fly in knots and the acceleration or deceleration rate to use
// in knots per second; a rate of zero means the aircraft's standard rate.
func (nav *Nav) TargetSpeed(lg *log.Logger) (ias, rate float32) {
	fd, onFinal := nav.distanceToThreshold()

	// Slow to the landing speed in the last few miles regardless of
	// assignments.
	if onFinal && fd < nav.Params.FinalApproachNM {
		// Expected speed at the threshold is the landing speed; lerp from
		// the current speed starting 0.5nm in.
		approachIAS := math.Lerp(math.Clamp((fd-0.5)/(nav.Params.FinalApproachNM-0.5), 0, 1),
			nav.Perf.ApproachSpeed(), nav.FlightState.IAS)
		if approachIAS < nav.FlightState.IAS {
			return approachIAS, MaximumRate
		}
	}

	if nav.Speed.Assigned != nil {
		return nav.capSpeed(*nav.Speed.Assigned), MaximumRate
	}

	// Slow to the holding speed a few minutes from the holding fix.
	if hold, eta, ok := nav.upcomingHold(); ok && eta < 180 {
		return nav.capSpeed(hold.Speed(nav.FlightState.Altitude)), MaximumRate
	}

	// Upcoming waypoint speed restriction that we need to start slowing
	// for now?
	if wp, speed, eta := nav.upcomingSpeedRestriction(); wp != nil && nav.FlightState.IAS > speed {
		// Start slowing down when we have to in order to cross at the
		// restricted speed.
		decel := nav.Perf.Rate.Decelerate / 2 // knots per second
		if eta < (nav.FlightState.IAS-speed)/decel {
			return nav.capSpeed(speed), MaximumRate
		}
	}

	// Carried restriction from a passed waypoint.
	if nav.Speed.Restriction != nil {
		return nav.capSpeed(*nav.Speed.Restriction), MaximumRate
	}

	// 250kt at or below 10,000'
	if nav.FlightState.Altitude <= 10000 {
		return nav.capSpeed(250), MaximumRate
	}

	// Cruise speed, blending in from 250 as the aircraft climbs.
	targetTAS := math.Lerp(math.Clamp((nav.FlightState.Altitude-10000)/20000, 0, 1),
		250, nav.Perf.Speed.CruiseTAS)
	return nav.capSpeed(av.TASToIAS(targetTAS, nav.FlightState.Altitude)), 0
}

func (nav *Nav) capSpeed(ias float32) float32 {
	ias = math.Clamp(ias, nav.Perf.Speed.Min, min(nav.Perf.Speed.MaxTAS, MaxIAS))
	if nav.FlightState.Altitude <= 10000 {
		ias = min(ias, 250)
	}
	return ias
}

// distanceToThreshold returns the distance to the assigned approach's
// runway threshold in nm and whether the aircraft is established on the
// approach.
func (nav *Nav) distanceToThreshold() (float32, bool) {
	if !nav.Approach.Cleared || nav.Approach.InterceptState != OnApproachCourse {
		return 0, false
	}
	ap := nav.Approach.Assigned
	if ap == nil {
		return 0, false
	}
	return math.Distance2f(nav.FlightState.Position, ap.Threshold), true
}

// upcomingHold returns the hold the aircraft is flying or will reach by
// following its route, with the eta to the holding fix in seconds.
func (nav *Nav) upcomingHold() (av.Hold, float32, bool) {
	if fh := nav.Heading.Hold; fh != nil {
		dist := math.Distance2f(nav.FlightState.Position, nav.holdFix(fh))
		return fh.Hold, dist / nav.FlightState.GS * 3600, true
	}
	if _, ok := nav.AssignedHeading(); ok {
		return av.Hold{}, 0, false
	}

	var distance float32
	for i, wp := range nav.Waypoints {
		if i == 0 {
			distance = math.Distance2f(nav.FlightState.Position, wp.Location)
		} else {
			distance += math.Distance2f(nav.Waypoints[i-1].Location, wp.Location)
		}
		if nfa, ok := nav.FixAssignments[wp.Fix]; ok && nfa.Hold != nil {
			return *nfa.Hold, distance / nav.FlightState.GS * 3600, true
		}
		if wp.Hold != nil {
			return *wp.Hold, distance / nav.FlightState.GS * 3600, true
		}
	}
	return av.Hold{}, 0, false
}

func (nav *Nav) upcomingSpeedRestriction() (*av.Waypoint, float32, float32) {
	if _, ok := nav.AssignedHeading(); ok {
		return nil, 0, 0
	}

	var distance float32
	for i, wp := range nav.Waypoints {
		if i == 0 {
			distance = math.Distance2f(nav.FlightState.Position, wp.Location)
		} else {
			distance += math.Distance2f(nav.Waypoints[i-1].Location, wp.Location)
		}

		speed := float32(wp.Speed)
		if nfa, ok := nav.FixAssignments[wp.Fix]; ok && nfa.Arrive.Speed != nil {
			speed = *nfa.Arrive.Speed
		}
		if speed > 0 {
			eta := distance / nav.FlightState.GS * 3600 // seconds
			return &nav.Waypoints[i], speed, eta
		}
	}
	return nil, 0, 0
}

func (nav *Nav) updateAirspeed(wind Wind, lg *log.Logger) {
	targetSpeed, targetRate := nav.TargetSpeed(lg)

	setSpeed := func(next float32) {
		if nav.Altitude.Assigned != nil &&
			nav.FlightState.Altitude > 10000 && *nav.Altitude.Assigned <= 10000 &&
			next > 250 && next > nav.FlightState.IAS {
			// Don't accelerate above 250 when we're about to descend
			// through 10,000' and will just have to slow again.
			return
		}
		nav.FlightState.IAS = next
	}

	// Perf rates are quoted in knots per 2 seconds.
	if targetSpeed < nav.FlightState.IAS {
		decel := nav.Perf.Rate.Decelerate / 2
		if targetRate != 0 && targetRate != MaximumRate {
			decel = min(decel, targetRate)
		}
		setSpeed(max(targetSpeed, nav.FlightState.IAS-decel))
	} else if targetSpeed > nav.FlightState.IAS {
		accel := nav.Perf.Rate.Accelerate / 2
		// Reduced acceleration while climbing; the engines are busy.
		if nav.FlightState.AltitudeRate > 500 {
			accel *= 0.6
		}
		if targetRate != 0 && targetRate != MaximumRate {
			accel = min(accel, targetRate)
		}
		setSpeed(min(targetSpeed, nav.FlightState.IAS+accel))
	}
}
