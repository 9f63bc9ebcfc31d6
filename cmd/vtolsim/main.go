// cmd/vtolsim/main.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// vtolsim flies the autopilot through the built-in scenarios and reports
// what happened.
//
// Usage:
//
//	go run ./cmd/vtolsim -scenario patrol
//	go run ./cmd/vtolsim -scenario all -steps 2000 -record /tmp/runs
//	go run -tags pilotlog ./cmd/vtolsim -scenario bypass -pilotlog path,terrain
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mmp/vtolai/config"
	"github.com/mmp/vtolai/log"
	"github.com/mmp/vtolai/metrics"
	"github.com/mmp/vtolai/pilot"
	"github.com/mmp/vtolai/sim"

	"github.com/goforj/godump"
	"github.com/shirou/gopsutil/cpu"
	"golang.org/x/sync/errgroup"
)

var (
	configFile   = flag.String("config", "", "autopilot configuration file (YAML, TOML, or JSON)")
	scenarioName = flag.String("scenario", "patrol", "scenario to run, or \"all\"")
	listFlag     = flag.Bool("list", false, "list the available scenarios and exit")
	steps        = flag.Int("steps", 0, "number of ticks to run (0 uses the scenario's default)")
	dt           = flag.Float64("dt", sim.DefaultDt, "simulation timestep in seconds")
	seed         = flag.Int64("seed", 1, "random seed")
	logLevel     = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir       = flag.String("logdir", "", "log file directory")
	recordDir    = flag.String("record", "", "directory to write flight recordings to")
	recordEvery  = flag.Int64("recordinterval", 50, "ticks between recorded frames")
	dumpFlag     = flag.Bool("dump", false, "dump the configuration and final vehicle states")
	quiet        = flag.Bool("quiet", false, "don't print events as they happen")
	pilotLog     = flag.String("pilotlog", "", "per-tick pilot log categories (requires -tags pilotlog)")
	pilotLogID   = flag.String("pilotlogid", "", "limit the per-tick pilot log to one vehicle")
)

func main() {
	flag.Parse()

	usage := func() {
		fmt.Fprintf(os.Stderr, "usage: vtolsim [flags]\nwhere [flags] may be:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if flag.NArg() > 0 {
		usage()
	}

	if *listFlag {
		for _, sc := range sim.Scenarios() {
			fmt.Printf("%-12s %s\n", sc.Name, sc.Description)
		}
		return
	}

	if _, ok := log.ParseLevel(*logLevel); !ok {
		fmt.Fprintf(os.Stderr, "%s: unknown log level\n", *logLevel)
		usage()
	}
	lg := log.New(*logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	pilot.InitPilotLog(*pilotLog != "", *pilotLog, *pilotLogID)

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", *configFile, err)
		os.Exit(1)
	}
	lg.Info("configuration loaded", slog.Any("config", cfg))
	if *dumpFlag {
		godump.Dump(cfg)
	}

	var run []sim.Scenario
	if strings.EqualFold(*scenarioName, "all") {
		run = sim.Scenarios()
	} else {
		sc, err := sim.LookupScenario(*scenarioName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		run = []sim.Scenario{sc}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start, startTime := metrics.Take(), time.Now()
	cpu.Percent(0, false) // starts the usage interval

	var mu sync.Mutex // serializes output from the runs
	eg, ctx := errgroup.WithContext(ctx)
	for _, sc := range run {
		eg.Go(func() error {
			defer lg.CatchAndReportCrash()
			return runScenario(ctx, sc, *cfg, lg, &mu)
		})
	}
	if err := eg.Wait(); err != nil {
		lg.Error("run failed", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	attrs := []any{slog.Any("counters", metrics.Take().Sub(start)), slog.Duration("elapsed", time.Since(startTime))}
	if usage, err := cpu.Percent(0, false); err == nil && len(usage) > 0 {
		attrs = append(attrs, slog.Float64("cpu_percent", usage[0]))
	}
	lg.Info("metrics", attrs...)
}

func runScenario(ctx context.Context, sc sim.Scenario, cfg config.Autopilot, lg *log.Logger, mu *sync.Mutex) error {
	s, err := sc.Build(cfg, *dt, *seed, lg)
	if err != nil {
		return err
	}
	if *recordDir != "" {
		s.Recorder = sim.NewRecorder(*recordEvery)
	}

	sub := s.Events.Subscribe()
	defer sub.Unsubscribe()

	n := *steps
	if n <= 0 {
		n = sc.Steps
	}

	// Run in chunks so that events are reported as they happen.
	const chunk = 500
	for done := 0; done < n; done += chunk {
		if err := s.Run(ctx, min(chunk, n-done)); err != nil {
			return fmt.Errorf("%s: %w", sc.Name, err)
		}
		if events := sub.Get(); !*quiet && len(events) > 0 {
			mu.Lock()
			for _, ev := range events {
				fmt.Printf("%-10s %s\n", sc.Name, ev.String())
			}
			mu.Unlock()
		}
	}

	mu.Lock()
	defer mu.Unlock()

	fmt.Printf("%s: %d ticks (%.1fs)\n", sc.Name, s.Tick, float64(s.Tick)*s.Dt)
	for _, id := range sc.Vehicles {
		e := s.Entity(id)
		st := &e.Body.State
		hits, misses := e.Pilot.PathfinderStats()
		fmt.Printf("  %-8s %-14s %-32q pos (%.0f, %.0f) agl %.0f m speed %.1f m/s path cache %d/%d\n", id,
			e.Pilot.Decision().Mode, e.Pilot.Status(), st.Position.X, st.Position.Y, st.RadarAltitude,
			st.Speed(), hits, hits+misses)
		if *dumpFlag {
			godump.Dump(e.Pilot.TakeSnapshot())
		}
	}

	if s.Recorder != nil {
		path := filepath.Join(*recordDir, sc.Name+".rec")
		if err := s.Recorder.Save(path); err != nil {
			return fmt.Errorf("%s: %w", sc.Name, err)
		}
		fmt.Printf("  recording: %s (%d frames)\n", path, len(s.Recorder.Frames))
	}
	return nil
}
