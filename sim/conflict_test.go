// sim/conflict_test.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"testing"

	"tracon/log"
	"tracon/math"
)

func testDetector() *ConflictDetector {
	config := ConflictConfig{}
	config.SetDefaults()
	return NewConflictDetector(config, log.NewDiscard())
}

func sample(callsign string, x, y, alt float32) aircraftSample {
	return aircraftSample{callsign: callsign, position: math.Point2NM{x, y}, altitude: alt}
}

func TestConflictRaiseAndClear(t *testing.T) {
	cd := testDetector()

	// 10 nm apart: no conflict.
	delta := cd.Scan(1, []aircraftSample{sample("A", 0, 0, 5000), sample("B", 10, 0, 5000)}, nil)
	if len(delta.Raised) != 0 {
		t.Fatalf("conflict raised at 10 nm separation")
	}

	// 3 nm apart at the same altitude: raised.
	delta = cd.Scan(2, []aircraftSample{sample("A", 0, 0, 5000), sample("B", 3, 0, 5000)}, nil)
	if len(delta.Raised) != 1 {
		t.Fatalf("got %d raised, expected 1", len(delta.Raised))
	}
	c := delta.Raised[0]
	if c.Pair != MakeConflictPair("A", "B") {
		t.Errorf("pair %v", c.Pair)
	}
	if c.StartTick != 2 || c.LateralNM != 3 {
		t.Errorf("raised conflict %+v", c)
	}

	// 3 nm apart but 2000 ft vertical: both minima must be violated, so
	// this clears (2000 >= 1000 * hysteresis).
	delta = cd.Scan(3, []aircraftSample{sample("A", 0, 0, 5000), sample("B", 3, 0, 7000)}, nil)
	if len(delta.Cleared) != 1 {
		t.Fatalf("got %d cleared, expected 1", len(delta.Cleared))
	}
	if delta.Cleared[0].EndTick != 3 {
		t.Errorf("cleared conflict %+v", delta.Cleared[0])
	}
	if len(cd.Active()) != 0 {
		t.Errorf("active set not empty after clear")
	}
	if recs := cd.Records(); len(recs) != 1 || recs[0].State != ConflictCleared {
		t.Errorf("records after clear: %+v", recs)
	}
}

// A momentary excursion just past the raw minimum but inside the
// hysteresis margin keeps the conflict active instead of flapping.
func TestConflictHysteresis(t *testing.T) {
	cd := testDetector()

	scan := func(tick int64, lateral float32) ConflictDelta {
		return cd.Scan(tick, []aircraftSample{
			sample("A", 0, 0, 5000), sample("B", lateral, 0, 5000)}, nil)
	}

	if delta := scan(1, 3); len(delta.Raised) != 1 {
		t.Fatal("conflict not raised")
	}

	// 5.1 nm: past the 5 nm minimum but short of 5 * 1.05 = 5.25.
	delta := scan(2, 5.1)
	if len(delta.Cleared) != 0 {
		t.Fatalf("conflict cleared inside the hysteresis margin")
	}
	if len(delta.Sustained) != 1 || delta.Sustained[0].State != ConflictSustained {
		t.Fatalf("conflict not sustained: %+v", delta)
	}

	// Back inside and out again: still the same conflict, no second raise.
	if delta := scan(3, 4); len(delta.Raised) != 0 {
		t.Fatalf("re-raised an active conflict")
	}
	if delta := scan(4, 5.3); len(delta.Cleared) != 1 {
		t.Fatalf("conflict not cleared beyond the hysteresis margin")
	}

	recs := cd.Records()
	if len(recs) != 1 {
		t.Fatalf("got %d records, expected 1 for the whole episode", len(recs))
	}
	if recs[0].StartTick != 1 || recs[0].EndTick != 4 {
		t.Errorf("record ticks [%d, %d], expected [1, 4]", recs[0].StartTick, recs[0].EndTick)
	}
	if recs[0].MinLateralNM != 3 {
		t.Errorf("minimum lateral %v, expected 3", recs[0].MinLateralNM)
	}
}

// Grid binning must not miss pairs that straddle a cell boundary.
func TestConflictBroadPhaseAdjacentCells(t *testing.T) {
	cd := testDetector()

	// Just either side of the x=5 cell boundary, 0.2 nm apart.
	delta := cd.Scan(1, []aircraftSample{
		sample("A", 4.9, 0, 5000), sample("B", 5.1, 0, 5000)}, nil)
	if len(delta.Raised) != 1 {
		t.Fatalf("conflict across cell boundary not detected")
	}

	// Negative coordinates bin correctly too.
	delta = cd.Scan(2, []aircraftSample{
		sample("C", -0.1, -0.1, 8000), sample("D", 0.1, 0.1, 8000)}, nil)
	if len(delta.Raised) != 1 {
		t.Fatalf("conflict across the origin not detected")
	}
}

// When one aircraft of an active pair stops reporting, the conflict
// cannot be evaluated: the pair is reported unknown and the record
// closes.
func TestConflictVanishedAircraft(t *testing.T) {
	cd := testDetector()

	if delta := cd.Scan(1, []aircraftSample{
		sample("A", 0, 0, 5000), sample("B", 2, 0, 5000)}, nil); len(delta.Raised) != 1 {
		t.Fatal("conflict not raised")
	}

	delta := cd.Scan(2, []aircraftSample{sample("A", 0, 0, 5000)}, nil)
	found := false
	for _, pair := range delta.Unknown {
		if pair == MakeConflictPair("A", "B") {
			found = true
		}
	}
	if !found {
		t.Errorf("vanished pair not reported unknown: %+v", delta.Unknown)
	}
	if len(cd.Active()) != 0 {
		t.Errorf("conflict with vanished aircraft still active")
	}
}

func TestConflictUnresolvedPairs(t *testing.T) {
	cd := testDetector()

	delta := cd.Scan(1, []aircraftSample{
		sample("A", 0, 0, 5000), sample("B", 50, 50, 5000)}, []string{"X", "Y"})

	want := map[ConflictPair]bool{
		MakeConflictPair("X", "A"): true,
		MakeConflictPair("X", "B"): true,
		MakeConflictPair("Y", "A"): true,
		MakeConflictPair("Y", "B"): true,
		{"X", "Y"}:                 true,
	}
	if len(delta.Unknown) != len(want) {
		t.Fatalf("got %d unknown pairs, expected %d: %v", len(delta.Unknown), len(want), delta.Unknown)
	}
	for _, pair := range delta.Unknown {
		if !want[pair] {
			t.Errorf("unexpected unknown pair %v", pair)
		}
	}
}

func TestConflictCadence(t *testing.T) {
	config := ConflictConfig{CadenceTicks: 3}
	config.SetDefaults()
	cd := NewConflictDetector(config, log.NewDiscard())

	samples := []aircraftSample{sample("A", 0, 0, 5000), sample("B", 2, 0, 5000)}
	if delta := cd.Scan(1, samples, nil); len(delta.Raised) != 0 {
		t.Errorf("scan ran off cadence")
	}
	if delta := cd.Scan(3, samples, nil); len(delta.Raised) != 1 {
		t.Errorf("scan did not run on cadence")
	}
}

func TestMakeConflictPairCanonical(t *testing.T) {
	if MakeConflictPair("B", "A") != MakeConflictPair("A", "B") {
		t.Error("pair ordering not canonical")
	}
	if p := MakeConflictPair("A", "B"); p[0] != "A" || p[1] != "B" {
		t.Errorf("pair not sorted: %v", p)
	}
}
