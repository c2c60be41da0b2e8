// sim/conflict.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"
	"slices"
	"strings"

	"tracon/log"
	"tracon/math"
)

// ConflictConfig holds the separation minima and detector tuning. The
// minima default to the standard terminal values; they are configuration,
// not constants, since facilities differ.
type ConflictConfig struct {
	LateralSeparationNM  float32 `yaml:"lateralSeparation"`
	VerticalSeparationFt float32 `yaml:"verticalSeparation"`

	// Hysteresis scales the minima for clearing an existing conflict; an
	// aircraft pair must regain separation beyond minimum*Hysteresis
	// before the conflict clears.
	Hysteresis float32 `yaml:"hysteresis"`

	// CadenceTicks > 1 runs the scan at a reduced rate.
	CadenceTicks int64 `yaml:"cadenceTicks"`
}

func (c *ConflictConfig) SetDefaults() {
	if c.LateralSeparationNM == 0 {
		c.LateralSeparationNM = 5
	}
	if c.VerticalSeparationFt == 0 {
		c.VerticalSeparationFt = 1000
	}
	if c.Hysteresis == 0 {
		c.Hysteresis = 1.05
	}
	if c.CadenceTicks == 0 {
		c.CadenceTicks = 1
	}
}

type ConflictState int

const (
	ConflictRaised ConflictState = iota
	ConflictSustained
	ConflictCleared
)

func (s ConflictState) String() string {
	return [...]string{"raised", "sustained", "cleared"}[s]
}

// ConflictPair is the canonical key for an aircraft pair; the callsigns
// are kept sorted so that the A-B and B-A pairings are the same record.
type ConflictPair [2]string

func MakeConflictPair(a, b string) ConflictPair {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return ConflictPair{a, b}
}

// Conflict tracks one separation violation between a pair of aircraft
// from the tick it is raised until it clears.
type Conflict struct {
	Pair  ConflictPair
	State ConflictState

	StartTick int64
	EndTick   int64 // set when cleared

	// Minimum observed separation over the conflict's lifetime.
	MinLateralNM  float32
	MinVerticalFt float32

	// Most recent separation.
	LateralNM  float32
	VerticalFt float32
}

func (c Conflict) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("pair", c.Pair[0]+"/"+c.Pair[1]),
		slog.String("state", c.State.String()),
		slog.Float64("lateral_nm", float64(c.LateralNM)),
		slog.Float64("vertical_ft", float64(c.VerticalFt)))
}

// ConflictDelta is the per-scan report: conflicts newly raised this scan,
// ongoing ones, ones that cleared, and pairs the detector could not
// resolve. Unknown pairs are not "no conflict"; consumers that care must
// treat them separately.
type ConflictDelta struct {
	Raised    []Conflict
	Sustained []Conflict
	Cleared   []Conflict
	Unknown   []ConflictPair
}

// aircraftSample is the physical state the detector reads; it never
// touches the aircraft themselves.
type aircraftSample struct {
	callsign string
	position math.Point2NM
	altitude float32
}

// ConflictDetector owns the active conflict set and the record of
// completed conflicts.
type ConflictDetector struct {
	config ConflictConfig
	lg     *log.Logger

	active  map[ConflictPair]*Conflict
	records []Conflict
}

func NewConflictDetector(config ConflictConfig, lg *log.Logger) *ConflictDetector {
	config.SetDefaults()
	return &ConflictDetector{
		config: config,
		lg:     lg,
		active: make(map[ConflictPair]*Conflict),
	}
}

// Scan evaluates all aircraft pairs for the tick. Aircraft that are
// listed in unresolved have no usable physical state this tick; their
// pairings are reported as unknown rather than being silently treated as
// separated.
func (cd *ConflictDetector) Scan(tick int64, samples []aircraftSample, unresolved []string) ConflictDelta {
	var delta ConflictDelta

	if tick%cd.config.CadenceTicks != 0 {
		return delta
	}

	for _, u := range unresolved {
		for _, s := range samples {
			delta.Unknown = append(delta.Unknown, MakeConflictPair(u, s.callsign))
		}
		for _, v := range unresolved {
			if u < v {
				delta.Unknown = append(delta.Unknown, ConflictPair{u, v})
			}
		}
	}

	// Broad phase: bin aircraft into grid cells the size of the lateral
	// separation minimum; only pairs in the same or adjacent cells can
	// possibly be in conflict.
	type cell [2]int32
	grid := make(map[cell][]int)
	key := func(p math.Point2NM) cell {
		return cell{int32(math.Floor(p[0] / cd.config.LateralSeparationNM)),
			int32(math.Floor(p[1] / cd.config.LateralSeparationNM))}
	}
	for i, s := range samples {
		k := key(s.position)
		grid[k] = append(grid[k], i)
	}

	// The active set uses the inflated minima so that a pair that is in
	// hysteresis range keeps being evaluated even if its cells drift
	// apart; inflate the neighborhood by one cell to cover that.
	checked := make(map[ConflictPair]bool)
	inConflictNow := func(a, b aircraftSample) (lateral, vertical float32, conflict bool) {
		lateral = math.Distance2f(a.position, b.position)
		vertical = math.Abs(a.altitude - b.altitude)
		conflict = lateral < cd.config.LateralSeparationNM && vertical < cd.config.VerticalSeparationFt
		return
	}

	for k, indices := range grid {
		for dx := int32(-1); dx <= 1; dx++ {
			for dy := int32(-1); dy <= 1; dy++ {
				neighbor := grid[cell{k[0] + dx, k[1] + dy}]
				for _, i := range indices {
					for _, j := range neighbor {
						if samples[i].callsign >= samples[j].callsign {
							continue
						}
						pair := MakeConflictPair(samples[i].callsign, samples[j].callsign)
						if checked[pair] {
							continue
						}
						checked[pair] = true

						lateral, vertical, conflict := inConflictNow(samples[i], samples[j])
						if c, ok := cd.active[pair]; ok {
							cd.updateActive(c, tick, lateral, vertical, &delta)
						} else if conflict {
							c := &Conflict{
								Pair:          pair,
								State:         ConflictRaised,
								StartTick:     tick,
								MinLateralNM:  lateral,
								MinVerticalFt: vertical,
								LateralNM:     lateral,
								VerticalFt:    vertical,
							}
							cd.active[pair] = c
							delta.Raised = append(delta.Raised, *c)
							cd.lg.Info("conflict raised", slog.Any("conflict", c))
						}
					}
				}
			}
		}
	}

	// Active pairs can drift out of adjacent cells while still inside
	// the hysteresis band; evaluate any that the broad phase skipped.
	for pair, c := range cd.active {
		if checked[pair] {
			continue
		}
		var pi, pj *aircraftSample
		for i := range samples {
			if samples[i].callsign == pair[0] {
				pi = &samples[i]
			} else if samples[i].callsign == pair[1] {
				pj = &samples[i]
			}
		}
		if pi == nil || pj == nil {
			// One of the pair is gone; the conflict cannot be evaluated
			// any longer.
			delta.Unknown = append(delta.Unknown, pair)
			c.State = ConflictCleared
			c.EndTick = tick
			cd.records = append(cd.records, *c)
			delete(cd.active, pair)
			continue
		}
		lateral, vertical, _ := inConflictNow(*pi, *pj)
		cd.updateActive(c, tick, lateral, vertical, &delta)
	}

	// Map iteration order must not leak into the reported order.
	byPair := func(a, b Conflict) int { return strings.Compare(a.Pair[0]+a.Pair[1], b.Pair[0]+b.Pair[1]) }
	slices.SortFunc(delta.Raised, byPair)
	slices.SortFunc(delta.Sustained, byPair)
	slices.SortFunc(delta.Cleared, byPair)
	slices.SortFunc(delta.Unknown, func(a, b ConflictPair) int {
		return strings.Compare(a[0]+a[1], b[0]+b[1])
	})

	return delta
}

// updateActive advances the lifecycle of an existing conflict given the
// pair's current separation.
func (cd *ConflictDetector) updateActive(c *Conflict, tick int64, lateral, vertical float32, delta *ConflictDelta) {
	c.LateralNM = lateral
	c.VerticalFt = vertical
	c.MinLateralNM = min(c.MinLateralNM, lateral)
	c.MinVerticalFt = min(c.MinVerticalFt, vertical)

	// Clearing needs separation beyond the inflated minima; a momentary
	// excursion just past the minimum keeps the conflict sustained.
	cleared := lateral >= cd.config.LateralSeparationNM*cd.config.Hysteresis ||
		vertical >= cd.config.VerticalSeparationFt*cd.config.Hysteresis

	if cleared {
		c.State = ConflictCleared
		c.EndTick = tick
		delta.Cleared = append(delta.Cleared, *c)
		cd.records = append(cd.records, *c)
		delete(cd.active, c.Pair)
		cd.lg.Info("conflict cleared", slog.Any("conflict", c))
	} else {
		c.State = ConflictSustained
		delta.Sustained = append(delta.Sustained, *c)
	}
}

// Active returns a copy of the currently active conflicts, ordered by
// pair.
func (cd *ConflictDetector) Active() []Conflict {
	var active []Conflict
	for _, c := range cd.active {
		active = append(active, *c)
	}
	slices.SortFunc(active, func(a, b Conflict) int {
		return strings.Compare(a.Pair[0]+a.Pair[1], b.Pair[0]+b.Pair[1])
	})
	return active
}

// Records returns the completed conflict records, oldest first.
func (cd *ConflictDetector) Records() []Conflict {
	recs := append([]Conflict(nil), cd.records...)
	slices.SortFunc(recs, func(a, b Conflict) int {
		if a.StartTick != b.StartTick {
			return int(a.StartTick - b.StartTick)
		}
		return strings.Compare(a.Pair[0]+a.Pair[1], b.Pair[0]+b.Pair[1])
	})
	return recs
}
