// nav/approach.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"time"

	"tracon/log"
	"tracon/math"
)

// approachHeading handles the states of intercepting and then tracking
// the localizer of the assigned approach.
func (nav *Nav) approachHeading(wind Wind, simTime time.Time, lg *log.Logger) (heading float32, turn TurnMethod, rate float32) {
	// Baseline
	heading, turn, rate = nav.FlightState.Heading, TurnClosest, StandardTurnRate

	ap := nav.Approach.Assigned
	if ap == nil {
		return
	}

	switch nav.Approach.InterceptState {
	case InitialHeading:
		// On a heading toward the localizer course. Is it time to start
		// the turn to join it?
		if nav.Heading.Assigned != nil {
			heading = *nav.Heading.Assigned
			if nav.Heading.Turn != nil {
				turn = *nav.Heading.Turn
			}
		}

		hdg := ap.LocalizerCourse
		acFix := math.HeadingDifference(hdg, nav.FlightState.Heading)
		if acFix > nav.Params.InterceptMaxAngle {
			// The assigned heading diverges too much from the localizer
			// course; fly through it rather than capturing.
			return
		}

		if nav.shouldTurnToIntercept(ap.Threshold, hdg, TurnClosest, wind, simTime, lg) {
			lg.Debug("turning to join the localizer")
			nav.Approach.InterceptState = TurningToJoin
			nav.Heading = NavHeading{}
			// The aircraft is on its own from here; controller-assigned
			// speed is maintained but lateral guidance is the localizer.
		}
		return

	case TurningToJoin:
		// Turn to the localizer course; once established, start tracking.
		if nav.OnExtendedCenterline(nav.Params.InterceptTolerance) &&
			math.Abs(math.HeadingDifference(ap.LocalizerCourse, nav.FlightState.Heading)) < 10 {
			lg.Debug("established on the localizer course")
			nav.Approach.InterceptState = OnApproachCourse
		}
		// Steer with the cross-track correction so any residual offset
		// from the intercept turn converges onto the course.
		heading = nav.localizerHeading(wind)
		return

	case OnApproachCourse:
		// Track the localizer: fly the course corrected for cross-track
		// error and wind.
		return nav.localizerHeading(wind), TurnClosest, StandardTurnRate
	}

	return
}

// localizerHeading returns the heading to fly to track the extended
// centerline of the assigned approach, correcting toward it if the
// aircraft has drifted off.
func (nav *Nav) localizerHeading(wind Wind) float32 {
	ap := nav.Approach.Assigned
	cl := ap.Line()

	// Signed cross-track distance; positive on one side, negative on the
	// other.
	xtk := math.SignedPointLineDistance(nav.FlightState.Position, cl[0], cl[1])

	hdg := ap.LocalizerCourse

	// Steer back toward the centerline proportionally to the deviation,
	// up to 30 degrees. xtk is negative left of course, so the correction
	// turns toward the line.
	hdg += math.Clamp(-xtk*60, -30, 30)

	// Crab into the wind.
	hdg -= wind.Deflection(math.Scale2f(math.HeadingVector(hdg), nav.TAS()))

	return math.NormalizeHeading(hdg)
}
