package sim

import (
	"path/filepath"
	"testing"
	"time"

	"fallwatch/internal/motion"
)

func runBuiltin(t *testing.T, name string) map[motion.EventType]int {
	t.Helper()
	script, err := Builtin(name)
	if err != nil {
		t.Fatalf("Builtin(%q): %v", name, err)
	}
	scn, err := NewScenario(script)
	if err != nil {
		t.Fatalf("NewScenario: %v", err)
	}
	counts := map[motion.EventType]int{}
	p := motion.NewPipeline(motion.SinkFunc(func(ev motion.Event) { counts[ev.Type]++ }), motion.Options{})
	for _, s := range scn.Render(time.Unix(0, 0), 50*time.Millisecond) {
		p.Feed(s)
	}
	return counts
}

func TestBuiltinFallTriggersOneFall(t *testing.T) {
	counts := runBuiltin(t, "fall")
	if counts[motion.EventFall] != 1 {
		t.Fatalf("fall events=%d want 1 (%v)", counts[motion.EventFall], counts)
	}
	if counts[motion.EventShake] != 0 {
		t.Fatalf("shake events=%d want 0", counts[motion.EventShake])
	}
}

func TestBuiltinShakeTriggersShake(t *testing.T) {
	counts := runBuiltin(t, "shake")
	if counts[motion.EventShake] < 1 {
		t.Fatalf("shake events=%d want >= 1 (%v)", counts[motion.EventShake], counts)
	}
	if counts[motion.EventFall] != 0 {
		t.Fatalf("fall events=%d want 0", counts[motion.EventFall])
	}
}

func TestBuiltinIdleIsQuiet(t *testing.T) {
	counts := runBuiltin(t, "idle")
	for _, typ := range []motion.EventType{motion.EventFall, motion.EventShake, motion.EventScoredFall} {
		if counts[typ] != 0 {
			t.Fatalf("%s events=%d want 0", typ, counts[typ])
		}
	}
}

func TestBuiltinUnknown(t *testing.T) {
	if _, err := Builtin("parachute"); err == nil {
		t.Fatalf("expected error")
	}
	names := BuiltinNames()
	if len(names) != 3 || names[0] != "fall" {
		t.Fatalf("names=%v", names)
	}
}

func TestExampleScenarioFile(t *testing.T) {
	script, err := LoadScenarioScript(filepath.Join("..", "..", "configs", "scenarios", "stairs-fall.yaml"))
	if err != nil {
		t.Fatalf("LoadScenarioScript: %v", err)
	}
	scn, err := NewScenario(script)
	if err != nil {
		t.Fatalf("NewScenario: %v", err)
	}
	if scn.Name() != "stairs-fall" || scn.Duration() != 6*time.Second {
		t.Fatalf("name=%q duration=%s", scn.Name(), scn.Duration())
	}
	falls := 0
	p := motion.NewPipeline(motion.SinkFunc(func(ev motion.Event) {
		if ev.Type == motion.EventFall {
			falls++
		}
	}), motion.Options{})
	for _, s := range scn.Render(time.Unix(0, 0), 50*time.Millisecond) {
		p.Feed(s)
	}
	if falls != 1 {
		t.Fatalf("falls=%d want 1", falls)
	}
}
