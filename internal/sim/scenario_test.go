package sim

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fallwatch/internal/motion"
)

func TestScenario_ParseAndInterpolate(t *testing.T) {
	yaml := []byte(`
version: 1
name: ramp
# duration derived from last keyframe
accel:
  keyframes:
    - t: 0s
      z: 0
    - t: 10s
      x: 10
      z: 20
gyro:
  keyframes:
    - {t: 0s, y: 1, step: true}
    - {t: 4s, y: 3}
`)

	script, err := ParseScenarioScriptYAML(yaml)
	if err != nil {
		t.Fatalf("ParseScenarioScriptYAML: %v", err)
	}
	scn, err := NewScenario(script)
	if err != nil {
		t.Fatalf("NewScenario: %v", err)
	}
	if scn.Duration() != 10*time.Second {
		t.Fatalf("duration: got %s want %s", scn.Duration(), 10*time.Second)
	}
	if scn.Name() != "ramp" {
		t.Fatalf("name=%q", scn.Name())
	}

	st := scn.StateAt(5*time.Second, false)
	if st.Accel != (motion.Vector3{X: 5, Z: 10}) {
		t.Fatalf("accel interpolation: got %+v", st.Accel)
	}
	if st.Gyro.Y != 3 {
		t.Fatalf("gyro after last keyframe: got %v want 3", st.Gyro.Y)
	}
	if got := scn.StateAt(2*time.Second, false).Gyro.Y; got != 1 {
		t.Fatalf("step keyframe should hold: got %v want 1", got)
	}
}

func TestScenario_ClampAndLoop(t *testing.T) {
	scn, err := NewScenario(ScenarioScript{
		Duration: 2 * time.Second,
		Accel: Track{Keyframes: []Keyframe{
			{T: 0, Z: 0},
			{T: 2 * time.Second, Z: 20},
		}},
	})
	if err != nil {
		t.Fatalf("NewScenario: %v", err)
	}
	if got := scn.StateAt(5*time.Second, false).Accel.Z; got != 20 {
		t.Fatalf("clamped z=%v want 20", got)
	}
	if got := scn.StateAt(3*time.Second, true).Accel.Z; got != 10 {
		t.Fatalf("looped z=%v want 10", got)
	}
	if got := scn.StateAt(-time.Second, false).Accel.Z; got != 0 {
		t.Fatalf("negative elapsed z=%v want 0", got)
	}
}

func TestScenario_Validation(t *testing.T) {
	cases := []struct {
		name   string
		script ScenarioScript
		want   string
	}{
		{name: "version", script: ScenarioScript{Version: 2}, want: "unsupported scenario version 2"},
		{name: "accel required", script: ScenarioScript{}, want: "accel.keyframes is required"},
		{
			name:   "unsorted",
			script: ScenarioScript{Accel: Track{Keyframes: []Keyframe{{T: time.Second}, {T: 0}}}},
			want:   "accel.keyframes must be sorted by t (index 1)",
		},
		{
			name:   "negative gyro",
			script: ScenarioScript{Accel: Track{Keyframes: []Keyframe{{T: time.Second}}}, Gyro: Track{Keyframes: []Keyframe{{T: -time.Second}}}},
			want:   "gyro.keyframes[0].t must be >= 0",
		},
		{
			name:   "no duration",
			script: ScenarioScript{Accel: Track{Keyframes: []Keyframe{{T: 0}}}},
			want:   "duration is required (or derivable from keyframes)",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewScenario(tc.script)
			if err == nil || err.Error() != tc.want {
				t.Fatalf("err=%v want %q", err, tc.want)
			}
		})
	}
}

func TestScenario_Render(t *testing.T) {
	scn, err := NewScenario(ScenarioScript{
		Duration: 100 * time.Millisecond,
		Accel:    Track{Keyframes: []Keyframe{{Z: 9.81, Step: true}}},
	})
	if err != nil {
		t.Fatalf("NewScenario: %v", err)
	}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := scn.Render(start, 50*time.Millisecond)
	if len(samples) != 6 {
		t.Fatalf("got %d samples want 6", len(samples))
	}
	last := samples[len(samples)-1]
	if last.Kind != motion.AngularVelocity || !last.Time.Equal(start.Add(125*time.Millisecond)) {
		t.Fatalf("unexpected last sample %+v", last)
	}
	for i := 0; i+1 < len(samples); i++ {
		if !samples[i+1].Time.After(samples[i].Time) {
			t.Fatalf("sample %d at %s not after %s", i+1, samples[i+1].Time, samples[i].Time)
		}
	}
	if samples[0].Vector.Z != 9.81 {
		t.Fatalf("accel z=%v want 9.81", samples[0].Vector.Z)
	}
	if scn.Render(start, 0) != nil {
		t.Fatalf("zero interval should render nothing")
	}
}

func TestLoadScenarioScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	if err := os.WriteFile(path, []byte("accel:\n  keyframes:\n    - {t: 1s, z: 9.81}\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	script, err := LoadScenarioScript(path)
	if err != nil {
		t.Fatalf("LoadScenarioScript: %v", err)
	}
	if len(script.Accel.Keyframes) != 1 || script.Accel.Keyframes[0].T != time.Second {
		t.Fatalf("unexpected script %+v", script)
	}

	if _, err := ParseScenarioScriptYAML([]byte("accel: [")); err == nil || !strings.HasPrefix(err.Error(), "sim:") {
		t.Fatalf("err=%v want sim-prefixed parse error", err)
	}
}
