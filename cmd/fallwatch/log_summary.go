package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"fallwatch/internal/motion"
	"fallwatch/internal/replay"
)

type logSummary struct {
	Segments    int
	Accel       int
	Gyro        int
	MaxDuration time.Duration
	PeakAccel   float64
	PeakGyro    float64
}

func summarizeSampleLog(records []replay.Record) logSummary {
	var s logSummary
	segments := 0
	hasData := false
	for _, r := range records {
		if r.Start {
			segments++
			continue
		}
		hasData = true
		if r.At > s.MaxDuration {
			s.MaxDuration = r.At
		}
		m := r.Vector.Magnitude()
		switch r.Kind {
		case motion.Acceleration:
			s.Accel++
			s.PeakAccel = max(s.PeakAccel, m)
		case motion.AngularVelocity:
			s.Gyro++
			s.PeakGyro = max(s.PeakGyro, m)
		}
	}
	if segments == 0 && hasData {
		segments = 1
	}
	s.Segments = segments
	return s
}

func printLogSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	recs, err := replay.Open(path)
	if err != nil {
		return err
	}
	s := summarizeSampleLog(recs)

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "accel_samples: %d\n", s.Accel)
	fmt.Fprintf(w, "gyro_samples: %d\n", s.Gyro)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)
	fmt.Fprintf(w, "peak_accel_ms2: %.2f\n", s.PeakAccel)
	fmt.Fprintf(w, "peak_gyro_rads: %.2f\n", s.PeakGyro)
	return nil
}
