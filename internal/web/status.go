package web

import (
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"fallwatch/internal/monitor"
)

type Status struct {
	startUnixNano int64
	source        atomic.Value // string
	device        atomic.Value // string
	build         BuildInfo
}

type BuildInfo struct {
	GoVersion string `json:"go_version"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
}

func NewStatus() *Status {
	s := &Status{build: readBuildInfo()}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.source.Store("")
	s.device.Store("")
	return s
}

func (s *Status) SetStatic(source, device string) {
	if source != "" {
		s.source.Store(source)
	}
	if device != "" {
		s.device.Store(device)
	}
}

type StatusSnapshot struct {
	Service   string           `json:"service"`
	NowUTC    string           `json:"now_utc"`
	UptimeSec int64            `json:"uptime_sec"`
	Source    string           `json:"source"`
	Device    string           `json:"device,omitempty"`
	Build     BuildInfo        `json:"build"`
	Monitor   monitor.Snapshot `json:"monitor"`
}

func (s *Status) Snapshot(nowUTC time.Time, mon monitor.Snapshot) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	return StatusSnapshot{
		Service:   "fallwatch",
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),
		Source:    s.source.Load().(string),
		Device:    s.device.Load().(string),
		Build:     s.build,
		Monitor:   mon,
	}
}

func readBuildInfo() BuildInfo {
	out := BuildInfo{GoVersion: runtime.Version()}
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return out
	}
	out.Version = bi.Main.Version
	for _, kv := range bi.Settings {
		switch kv.Key {
		case "vcs.revision":
			out.Commit = kv.Value
		case "vcs.modified":
			out.Dirty = kv.Value == "true"
		}
	}
	return out
}
