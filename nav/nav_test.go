// nav/nav_test.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"testing"
	"time"

	av "tracon/aviation"
	"tracon/log"
	"tracon/math"
)

func testPerf() av.AircraftPerformance {
	var p av.AircraftPerformance
	p.Name = "test narrowbody"
	p.ICAO = "B738"
	p.Ceiling = 41000
	p.Rate.Climb = 2500
	p.Rate.Descent = 2000
	p.Rate.Accelerate = 6
	p.Rate.Decelerate = 5
	p.Speed.Min = 130
	p.Speed.Landing = 140
	p.Speed.CruiseTAS = 450
	p.Speed.MaxTAS = 530
	p.Turn.MaxBankAngle = 25
	p.Turn.MaxBankRate = 3
	return p
}

func makeTestNav(t *testing.T, wps []av.Waypoint, fixes av.FixDB, pos math.Point2NM, alt, ias float32) *Nav {
	t.Helper()
	nav, err := MakeNav(testPerf(), DefaultParams(), wps, fixes, pos, alt, ias, alt, 1)
	if err != nil {
		t.Fatalf("MakeNav: %v", err)
	}
	return nav
}

func fp(v float32) *float32 { return &v }

var testStart = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// run steps the nav for n seconds and returns the final sim time.
func run(nav *Nav, start time.Time, n int, each func(tick int)) time.Time {
	lg := log.NewDiscard()
	tm := start
	for i := 0; i < n; i++ {
		tm = tm.Add(time.Second)
		nav.Update(Wind{}, tm, lg)
		if each != nil {
			each(i)
		}
	}
	return tm
}

func TestTurnConvergence(t *testing.T) {
	nav := makeTestNav(t, nil, nil, math.Point2NM{0, 0}, 10000, 250)
	nav.Altitude.Assigned = fp(10000)
	nav.Heading.Assigned = fp(240)

	prev := nav.FlightState.Heading
	run(nav, testStart, 120, func(tick int) {
		delta := math.Abs(math.HeadingDifference(prev, nav.FlightState.Heading))
		if delta > StandardTurnRate+0.01 {
			t.Errorf("tick %d: turned %.2f degrees in one second", tick, delta)
		}
		prev = nav.FlightState.Heading
	})

	if nav.FlightState.Heading != 240 {
		t.Errorf("did not converge to assigned heading: at %.1f", nav.FlightState.Heading)
	}

	// Steady state: heading must not drift once reached.
	run(nav, testStart.Add(2*time.Minute), 30, func(tick int) {
		if nav.FlightState.Heading != 240 {
			t.Errorf("tick %d: heading drifted to %.1f", tick, nav.FlightState.Heading)
		}
		if nav.FlightState.BankAngle != 0 {
			t.Errorf("tick %d: bank angle %.1f in steady state", tick, nav.FlightState.BankAngle)
		}
	})
}

func TestAltitudeCaptureNoOvershoot(t *testing.T) {
	for _, tc := range []struct {
		name     string
		from, to float32
	}{
		{"descent", 10000, 5000},
		{"climb", 5000, 9000},
	} {
		t.Run(tc.name, func(t *testing.T) {
			nav := makeTestNav(t, nil, nil, math.Point2NM{0, 0}, tc.from, 250)
			nav.Altitude.Assigned = fp(tc.to)

			maxRate := max(nav.Perf.Rate.Climb, nav.Perf.Rate.Descent) / 60
			run(nav, testStart, 600, func(tick int) {
				d := math.Abs(nav.FlightState.Altitude - nav.FlightState.PrevAltitude)
				if d > maxRate+1 {
					t.Errorf("tick %d: altitude changed %.0f ft in one second", tick, d)
				}
				if tc.to < tc.from && nav.FlightState.Altitude < tc.to-1 {
					t.Errorf("tick %d: descended through assigned altitude to %.0f", tick, nav.FlightState.Altitude)
				}
				if tc.to > tc.from && nav.FlightState.Altitude > tc.to+1 {
					t.Errorf("tick %d: climbed through assigned altitude to %.0f", tick, nav.FlightState.Altitude)
				}
			})

			if nav.FlightState.Altitude != tc.to {
				t.Errorf("did not reach assigned altitude: at %.0f", nav.FlightState.Altitude)
			}
			if nav.FlightState.AltitudeRate != 0 {
				t.Errorf("altitude rate %.0f after level off", nav.FlightState.AltitudeRate)
			}
		})
	}
}

func TestSpeedCapBelow10k(t *testing.T) {
	nav := makeTestNav(t, nil, nil, math.Point2NM{0, 0}, 8000, 250)
	nav.Altitude.Assigned = fp(8000)
	if _, err := nav.AssignSpeed(280, log.NewDiscard()); err != nil {
		t.Fatalf("AssignSpeed: %v", err)
	}

	run(nav, testStart, 60, func(tick int) {
		if nav.FlightState.IAS > 250 {
			t.Errorf("tick %d: %.0f knots below 10,000", tick, nav.FlightState.IAS)
		}
	})
}

func TestSpeedReduction(t *testing.T) {
	nav := makeTestNav(t, nil, nil, math.Point2NM{0, 0}, 8000, 250)
	nav.Altitude.Assigned = fp(8000)
	if _, err := nav.AssignSpeed(200, log.NewDiscard()); err != nil {
		t.Fatalf("AssignSpeed: %v", err)
	}

	prev := nav.FlightState.IAS
	run(nav, testStart, 60, func(tick int) {
		if d := prev - nav.FlightState.IAS; d > nav.Perf.Rate.Decelerate/2+0.01 {
			t.Errorf("tick %d: decelerated %.1f knots in one second", tick, d)
		}
		prev = nav.FlightState.IAS
	})

	if nav.FlightState.IAS != 200 {
		t.Errorf("did not reach assigned speed: at %.0f", nav.FlightState.IAS)
	}
}

func TestDeferredHeadingDelay(t *testing.T) {
	nav := makeTestNav(t, nil, nil, math.Point2NM{0, 0}, 10000, 250)
	nav.Altitude.Assigned = fp(10000)

	if _, err := nav.AssignHeading(90, TurnClosest, testStart); err != nil {
		t.Fatalf("AssignHeading: %v", err)
	}

	// The assignment is visible immediately even though the pilot hasn't
	// started the turn.
	if hdg, ok := nav.AssignedHeading(); !ok || hdg != 90 {
		t.Errorf("AssignedHeading returned %.0f, %v", hdg, ok)
	}
	if nav.Heading.Assigned != nil {
		t.Error("heading active before the response delay elapsed")
	}

	lg := log.NewDiscard()
	// Minimum delay is the route-to-heading minimum.
	nav.Update(Wind{}, testStart.Add(time.Second), lg)
	if nav.Heading.Assigned != nil {
		t.Error("pilot turned within one second of the instruction")
	}

	// Maximum delay for an initial heading is the route max.
	maxDelay := time.Duration(DefaultParams().DelayRouteMax+1) * time.Second
	nav.Update(Wind{}, testStart.Add(maxDelay), lg)
	if nav.Heading.Assigned == nil || *nav.Heading.Assigned != 90 {
		t.Error("heading not active after the maximum response delay")
	}
	if nav.DeferredNavHeading != nil {
		t.Error("deferred heading still present after taking effect")
	}
}

func TestHoldLifecycle(t *testing.T) {
	fixes := av.FixDB{"ALPHA": {0, 20}}
	wps := []av.Waypoint{{
		Fix:      "ALPHA",
		Location: math.Point2NM{0, 20},
		Hold: &av.Hold{
			Fix:           "ALPHA",
			InboundCourse: 360,
			TurnDirection: av.TurnRight,
		},
	}}
	nav := makeTestNav(t, wps, fixes, math.Point2NM{0, 10}, 7000, 250)
	nav.Altitude.Assigned = fp(7000)

	// Fly to the fix and enter the hold.
	tm := testStart
	for i := 0; i < 600 && nav.Heading.Hold == nil; i++ {
		tm = tm.Add(time.Second)
		nav.Update(Wind{}, tm, log.NewDiscard())
	}
	if nav.Heading.Hold == nil {
		t.Fatal("never entered the hold")
	}
	if nav.Heading.Hold.Entry != av.HoldEntryDirect {
		t.Errorf("expected direct entry, got %s", nav.Heading.Hold.Entry)
	}

	// Fly a while in the hold; the aircraft must stay in the vicinity of
	// the fix.
	fix := fixes["ALPHA"]
	for i := 0; i < 600; i++ {
		tm = tm.Add(time.Second)
		nav.Update(Wind{}, tm, log.NewDiscard())
		if d := math.Distance2f(nav.FlightState.Position, fix); d > 15 {
			t.Fatalf("tick %d: %.1f nm from the holding fix", i, d)
		}
	}
	if nav.Heading.Hold == nil {
		t.Fatal("left the hold without being told to")
	}

	// Cancel; the aircraft exits inbound at the fix and resumes the
	// route, which ends at the fix.
	if _, err := nav.CancelHold(tm); err != nil {
		t.Fatalf("CancelHold: %v", err)
	}
	for i := 0; i < 900 && nav.Heading.Hold != nil; i++ {
		tm = tm.Add(time.Second)
		nav.Update(Wind{}, tm, log.NewDiscard())
	}
	if nav.Heading.Hold != nil {
		t.Fatal("never exited the hold after it was cancelled")
	}
}

// Within a few minutes of a charted hold the aircraft slows to the
// holding speed on its own.
func TestHoldSpeedReduction(t *testing.T) {
	fixes := av.FixDB{"ALPHA": {0, 10}}
	wps := []av.Waypoint{{
		Fix:      "ALPHA",
		Location: math.Point2NM{0, 10},
		Hold: &av.Hold{
			Fix:           "ALPHA",
			InboundCourse: 360,
			TurnDirection: av.TurnRight,
		},
	}}
	nav := makeTestNav(t, wps, fixes, math.Point2NM{0, 0}, 7000, 250)
	nav.Altitude.Assigned = fp(7000)

	// Ten miles out is inside the slowdown window; the standard holding
	// speed at 7000 feet is 230 knots.
	tm := testStart
	for i := 0; i < 120 && nav.FlightState.IAS > 230; i++ {
		tm = tm.Add(time.Second)
		nav.Update(Wind{}, tm, log.NewDiscard())
	}
	if nav.FlightState.IAS != 230 {
		t.Fatalf("did not slow for the hold: at %.0f knots", nav.FlightState.IAS)
	}
	if nav.Heading.Hold != nil {
		t.Fatal("reached the hold before the slowdown finished")
	}

	// The reduced speed sticks once established in the hold.
	for i := 0; i < 600 && nav.Heading.Hold == nil; i++ {
		tm = tm.Add(time.Second)
		nav.Update(Wind{}, tm, log.NewDiscard())
	}
	if nav.Heading.Hold == nil {
		t.Fatal("never entered the hold")
	}
	run(nav, tm, 60, func(tick int) {
		if nav.FlightState.IAS > 230 {
			t.Errorf("tick %d: %.0f knots in the hold", tick, nav.FlightState.IAS)
		}
	})
}

func TestLocalizerCapture(t *testing.T) {
	ap := &av.Approach{
		Id:              "I26",
		Runway:          "26",
		Threshold:       math.Point2NM{0, 0},
		LocalizerCourse: 360,
		GlideslopeAngle: 3,
	}
	if err := ap.Validate(); err != nil {
		t.Fatalf("approach: %v", err)
	}

	nav := makeTestNav(t, nil, nil, math.Point2NM{-5, -15}, 3000, 210)
	nav.Altitude.Assigned = fp(3000)
	nav.Heading.Assigned = fp(45)

	lg := log.NewDiscard()
	if _, err := nav.ExpectApproach("I26", ap, lg); err != nil {
		t.Fatalf("ExpectApproach: %v", err)
	}
	if _, err := nav.ClearedApproach("I26", testStart, lg); err != nil {
		t.Fatalf("ClearedApproach: %v", err)
	}
	if nav.Approach.InterceptState != InitialHeading {
		t.Fatal("not flying the vector after approach clearance")
	}

	tm := testStart
	for i := 0; i < 600 && nav.Approach.InterceptState != OnApproachCourse; i++ {
		tm = tm.Add(time.Second)
		nav.Update(Wind{}, tm, lg)
	}
	if nav.Approach.InterceptState != OnApproachCourse {
		t.Fatal("never became established on the localizer")
	}

	// Once established, the aircraft must stay on the centerline: its
	// position matches the localizer point at its distance from the
	// threshold.
	cl := ap.Line()
	for i := 0; i < 120; i++ {
		tm = tm.Add(time.Second)
		nav.Update(Wind{}, tm, lg)
		if d := math.Abs(math.SignedPointLineDistance(nav.FlightState.Position, cl[0], cl[1])); d > 0.3 {
			t.Errorf("tick %d: %.2f nm off the localizer centerline", i, d)
		}
		dist := math.Distance2f(nav.FlightState.Position, ap.Threshold)
		if d := math.Distance2f(nav.FlightState.Position, ap.ExtendedCenterlinePoint(dist)); d > 0.3 {
			t.Errorf("tick %d: %.2f nm from the centerline point %.1f nm out", i, d, dist)
		}
	}
}

func TestExpectApproachValidation(t *testing.T) {
	nav := makeTestNav(t, nil, nil, math.Point2NM{0, 0}, 3000, 210)
	lg := log.NewDiscard()

	if _, err := nav.ExpectApproach("I26", nil, lg); err != ErrUnknownApproach {
		t.Errorf("nil approach: %v, expected ErrUnknownApproach", err)
	}
	ap := &av.Approach{Id: "I26", Runway: "26", Threshold: math.Point2NM{0, 0}}
	if _, err := nav.ExpectApproach("I26", ap, lg); err != ErrInvalidApproach {
		t.Errorf("approach without a localizer course: %v, expected ErrInvalidApproach", err)
	}
	if nav.Approach.Assigned != nil {
		t.Error("rejected approach was assigned")
	}
}

func TestClearedToLandRequiresCapture(t *testing.T) {
	ap := &av.Approach{
		Id:              "I26",
		Runway:          "26",
		Threshold:       math.Point2NM{0, 0},
		LocalizerCourse: 360,
		GlideslopeAngle: 3,
	}

	nav := makeTestNav(t, nil, nil, math.Point2NM{-5, -15}, 3000, 210)
	lg := log.NewDiscard()

	if _, err := nav.ClearedToLand(lg); err != ErrNotClearedForApproach {
		t.Errorf("expected ErrNotClearedForApproach, got %v", err)
	}

	nav.Heading.Assigned = fp(45)
	if _, err := nav.ExpectApproach("I26", ap, lg); err != nil {
		t.Fatalf("ExpectApproach: %v", err)
	}
	if _, err := nav.ClearedApproach("I26", testStart, lg); err != nil {
		t.Fatalf("ClearedApproach: %v", err)
	}

	if _, err := nav.ClearedToLand(lg); err != ErrNotIntercepted {
		t.Errorf("expected ErrNotIntercepted before capture, got %v", err)
	}
	if nav.Approach.ClearedToLand {
		t.Error("landing clearance recorded despite the rejection")
	}
}

func TestDirectFix(t *testing.T) {
	fixes := av.FixDB{"ALPHA": {0, 20}, "BRAVO": {10, 30}, "FARAWAY": {500, 500}}
	wps := []av.Waypoint{
		{Fix: "ALPHA", Location: math.Point2NM{0, 20}},
		{Fix: "BRAVO", Location: math.Point2NM{10, 30}},
	}
	nav := makeTestNav(t, wps, fixes, math.Point2NM{0, 0}, 10000, 250)

	if _, err := nav.DirectFix("BRAVO", testStart); err != nil {
		t.Fatalf("DirectFix: %v", err)
	}
	if wps := nav.AssignedWaypoints(); len(wps) != 1 || wps[0].Fix != "BRAVO" {
		t.Errorf("unexpected route after direct: %v", wps)
	}

	if _, err := nav.DirectFix("NOWHERE", testStart); err != ErrInvalidFix {
		t.Errorf("expected ErrInvalidFix, got %v", err)
	}
	if _, err := nav.DirectFix("FARAWAY", testStart); err != ErrFixIsTooFarAway {
		t.Errorf("expected ErrFixIsTooFarAway, got %v", err)
	}
}

// Resuming own navigation in a hold exits immediately toward the route
// rather than completing the current holding circuit.
func TestResumeFromHold(t *testing.T) {
	fixes := av.FixDB{"ALPHA": {0, 20}, "BRAVO": {0, 40}}
	wps := []av.Waypoint{
		{
			Fix:      "ALPHA",
			Location: math.Point2NM{0, 20},
			Hold: &av.Hold{
				Fix:           "ALPHA",
				InboundCourse: 360,
				TurnDirection: av.TurnRight,
			},
		},
		{Fix: "BRAVO", Location: math.Point2NM{0, 40}},
	}
	nav := makeTestNav(t, wps, fixes, math.Point2NM{0, 10}, 7000, 250)
	nav.Altitude.Assigned = fp(7000)

	tm := testStart
	for i := 0; i < 600 && nav.Heading.Hold == nil; i++ {
		tm = tm.Add(time.Second)
		nav.Update(Wind{}, tm, log.NewDiscard())
	}
	if nav.Heading.Hold == nil {
		t.Fatal("never entered the hold")
	}

	// Fly partway around so the resume happens mid-circuit.
	tm = run(nav, tm, 120, nil)

	if _, err := nav.ResumeOwnNavigation(tm); err != nil {
		t.Fatalf("ResumeOwnNavigation: %v", err)
	}
	if nav.Heading.Hold != nil {
		t.Fatal("still holding after resume")
	}

	// The aircraft flies the rest of the route: through the holding fix
	// and on to the next one.
	passedAlpha := false
	for i := 0; i < 900; i++ {
		tm = tm.Add(time.Second)
		nav.Update(Wind{}, tm, log.NewDiscard())
		if wps := nav.AssignedWaypoints(); len(wps) == 1 && wps[0].Fix == "BRAVO" {
			passedAlpha = true
			break
		}
	}
	if !passedAlpha {
		t.Fatal("never sequenced past the holding fix after resume")
	}
}

// With every target already reached, further ticks change nothing but
// position along track.
func TestSteadyState(t *testing.T) {
	nav := makeTestNav(t, nil, nil, math.Point2NM{0, 0}, 10000, 250)
	nav.Altitude.Assigned = fp(10000)
	nav.Heading.Assigned = fp(90)
	nav.Speed.Assigned = fp(250)

	// Settle onto the targets first.
	tm := run(nav, testStart, 120, nil)

	hdg, alt, ias := nav.FlightState.Heading, nav.FlightState.Altitude, nav.FlightState.IAS
	run(nav, tm, 60, func(tick int) {
		fs := nav.FlightState
		if fs.Heading != hdg || fs.Altitude != alt || fs.IAS != ias {
			t.Fatalf("tick %d: state drifted: hdg %.2f alt %.0f ias %.1f", tick,
				fs.Heading, fs.Altitude, fs.IAS)
		}
		if fs.BankAngle != 0 || fs.AltitudeRate != 0 {
			t.Fatalf("tick %d: residual rates: bank %.2f rate %.0f", tick,
				fs.BankAngle, fs.AltitudeRate)
		}
	})
}
