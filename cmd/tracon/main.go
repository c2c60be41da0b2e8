// cmd/tracon/main.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// tracon runs a scenario through the simulation engine in batch: it
// steps the scenario a fixed number of ticks (or until all traffic is
// down), optionally recording a replay, and reports the conflicts that
// occurred.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"tracon/log"
	"tracon/sim"
)

var (
	scenarioFilename = flag.String("scenario", "", "filename of YAML file with the scenario definition")
	ticks            = flag.Int("ticks", 3600, "number of simulation ticks to run")
	replayFilename   = flag.String("replay", "", "record a replay to this file")
	realtime         = flag.Bool("realtime", false, "pace the simulation against the wall clock")
	simRate          = flag.Float64("rate", 1, "simulation rate multiplier for -realtime")
	logLevel         = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir           = flag.String("logdir", "", "log file directory")
)

func main() {
	flag.Parse()
	lg := log.New(*logLevel, *logDir)

	if *scenarioFilename == "" {
		fmt.Fprintln(os.Stderr, "tracon: -scenario is required")
		flag.Usage()
		os.Exit(1)
	}

	sc, err := sim.LoadScenario(*scenarioFilename)
	if err != nil {
		lg.Errorf("%s: %v", *scenarioFilename, err)
		os.Exit(1)
	}

	s, err := sim.NewSim(sc, lg)
	if err != nil {
		lg.Errorf("%s: %v", sc.Name, err)
		os.Exit(1)
	}
	sub := s.Events()

	if *replayFilename != "" {
		f, err := os.Create(*replayFilename)
		if err != nil {
			lg.Errorf("%s: %v", *replayFilename, err)
			os.Exit(1)
		}
		rec, err := sim.NewReplayRecorder(f)
		if err != nil {
			lg.Errorf("%s: %v", *replayFilename, err)
			os.Exit(1)
		}
		s.SetRecorder(rec)
		defer func() {
			if err := rec.Close(); err != nil {
				lg.Errorf("%s: %v", *replayFilename, err)
			}
			f.Close()
		}()
	}

	s.SimRate = float32(*simRate)
	run(s, sub)

	for _, c := range s.ActiveConflicts() {
		fmt.Printf("conflict %s/%s: began tick %d, still active, min %.2f nm / %.0f ft\n",
			c.Pair[0], c.Pair[1], c.StartTick, c.MinLateralNM, c.MinVerticalFt)
	}
	for _, c := range s.ConflictRecords() {
		fmt.Printf("conflict %s/%s: ticks %d-%d, min %.2f nm / %.0f ft\n",
			c.Pair[0], c.Pair[1], c.StartTick, c.EndTick, c.MinLateralNM, c.MinVerticalFt)
	}
}

func run(s *sim.Sim, sub *sim.EventsSubscription) {
	report := func() {
		for _, ev := range sub.Get() {
			fmt.Printf("tick %5d: %s\n", s.Tick, ev.String())
		}
	}

	if *realtime {
		for int(s.Tick) < *ticks && !s.AllLanded() {
			s.Update()
			report()
			time.Sleep(100 * time.Millisecond)
		}
		return
	}

	for i := 0; i < *ticks; i++ {
		s.Step()
		report()
		if s.AllLanded() {
			break
		}
	}
}
