// sim/scenario.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"os"
	"strings"

	av "tracon/aviation"
	"tracon/math"
	"tracon/nav"

	"gopkg.in/yaml.v3"
)

// Scenario is the parsed reference data the simulation runs against:
// fixes, approaches, aircraft performance, and the initial traffic. The
// engine consumes it already parsed and never goes back to the file.
type Scenario struct {
	Name string `yaml:"name"`
	Seed int64  `yaml:"seed"`

	Wind      nav.Wind       `yaml:"wind"`
	NavParams nav.Params     `yaml:"nav"`
	Conflict  ConflictConfig `yaml:"conflict"`

	Fixes         map[string][2]float32             `yaml:"fixes"`
	Approaches    map[string]*av.Approach           `yaml:"approaches"`
	AircraftTypes map[string]av.AircraftPerformance `yaml:"aircraftTypes"`

	Aircraft []AircraftSpec `yaml:"aircraft"`

	// Built from Fixes during validation.
	FixDB av.FixDB `yaml:"-"`
}

// AircraftSpec is the initial state of one aircraft in the scenario.
type AircraftSpec struct {
	Callsign string        `yaml:"callsign"`
	Type     string        `yaml:"type"`
	Position math.Point2NM `yaml:"position,flow"`
	Altitude float32       `yaml:"altitude"`
	IAS      float32       `yaml:"ias"`

	// FinalAltitude is where the aircraft wants to end up absent any
	// instructions; zero means hold the initial altitude.
	FinalAltitude float32 `yaml:"finalAltitude"`

	Route []av.Waypoint `yaml:"route"`
}

func LoadScenario(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(b)
}

func ParseScenario(b []byte) (*Scenario, error) {
	sc := &Scenario{NavParams: nav.DefaultParams()}
	if err := yaml.Unmarshal(b, sc); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Scenario) validate() error {
	if len(sc.Aircraft) == 0 {
		return ErrNoScenarioAircraft
	}
	if sc.Seed == 0 {
		sc.Seed = 1
	}
	sc.Conflict.SetDefaults()

	sc.FixDB = make(av.FixDB)
	for name, p := range sc.Fixes {
		sc.FixDB[strings.ToUpper(name)] = math.Point2NM(p)
	}

	for id, ap := range sc.Approaches {
		if ap == nil {
			return fmt.Errorf("%s: empty approach", id)
		}
		if ap.Id == "" {
			ap.Id = id
		}
		if err := ap.Validate(); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
	}

	for name, perf := range sc.AircraftTypes {
		if err := perf.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		sc.AircraftTypes[name] = perf
	}

	seen := make(map[string]bool)
	for i, spec := range sc.Aircraft {
		if spec.Callsign == "" {
			return fmt.Errorf("aircraft %d: missing callsign", i)
		}
		if seen[spec.Callsign] {
			return fmt.Errorf("%s: %w", spec.Callsign, ErrDuplicateCallsign)
		}
		seen[spec.Callsign] = true
		if spec.IAS == 0 {
			return fmt.Errorf("%s: missing initial airspeed", spec.Callsign)
		}
	}

	return nil
}

// resolveRoute fills in waypoint locations from the fix database. An
// unresolvable fix is reference data missing from the scenario; the
// caller freezes the aircraft rather than flying it to a bogus location.
func (sc *Scenario) resolveRoute(route []av.Waypoint) ([]av.Waypoint, error) {
	wps := make([]av.Waypoint, len(route))
	copy(wps, route)
	for i := range wps {
		loc, ok := sc.FixDB.Lookup(wps[i].Fix)
		if !ok {
			return nil, fmt.Errorf("%s: %w", wps[i].Fix, nav.ErrInvalidFix)
		}
		wps[i].Location = loc

		if h := wps[i].Hold; h != nil {
			if h.Fix == "" {
				h.Fix = wps[i].Fix
			}
			if _, ok := sc.FixDB.Lookup(h.Fix); !ok {
				return nil, fmt.Errorf("%s: %w", h.Fix, nav.ErrInvalidFix)
			}
		}
	}
	return wps, nil
}
