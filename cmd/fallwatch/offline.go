package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"fallwatch/internal/motion"
	"fallwatch/internal/replay"
	"fallwatch/internal/source"
)

// offlineStart anchors offline runs so printed offsets are log time.
var offlineStart = time.Unix(0, 0).UTC()

type noWait struct{}

func (noWait) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func runPipeline(samples []motion.Sample, minInterval time.Duration) ([]motion.Event, motion.PipelineStats) {
	var events []motion.Event
	p := motion.NewPipeline(motion.SinkFunc(func(ev motion.Event) {
		events = append(events, ev)
	}), motion.Options{MinInterval: minInterval})
	for _, s := range samples {
		p.Feed(s)
	}
	return events, p.Stats()
}

func simulate(w io.Writer, name string, interval, minInterval time.Duration) error {
	sc, err := source.LoadScenario(name)
	if err != nil {
		return err
	}
	samples := sc.Render(offlineStart, interval)
	events, stats := runPipeline(samples, minInterval)
	fmt.Fprintf(w, "scenario: %s duration=%s interval=%s\n", sc.Name(), sc.Duration(), interval)
	printEvents(w, events, stats)
	return nil
}

func replayOffline(ctx context.Context, w io.Writer, path string, minInterval time.Duration) error {
	recs, err := replay.Open(path)
	if err != nil {
		return err
	}
	var samples []motion.Sample
	err = replay.Play(ctx, recs, 1, false, noWait{}, func(off time.Duration, r replay.Record) error {
		samples = append(samples, motion.Sample{Kind: r.Kind, Vector: r.Vector, Time: offlineStart.Add(off)})
		return nil
	})
	if err != nil {
		return err
	}
	events, stats := runPipeline(samples, minInterval)
	fmt.Fprintf(w, "log: %s samples=%d\n", path, len(samples))
	printEvents(w, events, stats)
	return nil
}

func printEvents(w io.Writer, events []motion.Event, stats motion.PipelineStats) {
	counts := map[string]int{}
	for _, ev := range events {
		counts[ev.Type.String()]++
		mark := ""
		if ev.Type.Emergency() {
			mark = "  EMERGENCY"
		}
		kind := ev.Kind
		if kind == "" {
			kind = "-"
		}
		fmt.Fprintf(w, "%10s  %-17s %-15s %.2f%s\n", ev.At.Sub(offlineStart), ev.Type, kind, ev.Confidence, mark)
	}

	names := make([]string, 0, len(counts))
	for k := range counts {
		names = append(names, k)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "accepted=%d dropped=%d events=%d\n", stats.Accepted, stats.Dropped, len(events))
	for _, k := range names {
		fmt.Fprintf(w, "  %s: %d\n", k, counts[k])
	}
}
