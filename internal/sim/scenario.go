package sim

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"fallwatch/internal/motion"
)

// ScenarioScript is a deterministic, script-driven motion description.
//
// Time is expressed as Go duration strings (e.g. "0s", "250ms", "10s").
// If Duration is zero, it is derived from the latest keyframe time.
//
// YAML schema (v1):
//
//	version: 1
//	name: stairs-fall
//	duration: 6s
//	accel:
//	  keyframes:
//	    - {t: 0s, z: 9.81, step: true}
//	    - {t: 2s, z: 0.3, step: true}
//	    - {t: 3.8s, x: 20, z: 70, step: true}
//	    - {t: 3.9s, z: 9.81}
//	gyro:
//	  keyframes:
//	    - {t: 2s, y: 3}
//
// Values are m/s² for accel and rad/s for gyro. A keyframe with step: true
// holds its value until the next keyframe; otherwise values are linearly
// interpolated. An absent gyro track reads as zero.
type ScenarioScript struct {
	Version  int           `yaml:"version"`
	Name     string        `yaml:"name"`
	Duration time.Duration `yaml:"duration"`
	Accel    Track         `yaml:"accel"`
	Gyro     Track         `yaml:"gyro"`
}

type Track struct {
	Keyframes []Keyframe `yaml:"keyframes"`
}

type Keyframe struct {
	T    time.Duration `yaml:"t"`
	X    float64       `yaml:"x"`
	Y    float64       `yaml:"y"`
	Z    float64       `yaml:"z"`
	Step bool          `yaml:"step"`
}

func (k Keyframe) vector() motion.Vector3 { return motion.Vector3{X: k.X, Y: k.Y, Z: k.Z} }

// Scenario is the validated, runtime representation.
type Scenario struct {
	script   ScenarioScript
	duration time.Duration
}

// LoadScenarioScript reads and unmarshals a YAML scenario script from path.
func LoadScenarioScript(path string) (ScenarioScript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ScenarioScript{}, err
	}
	return ParseScenarioScriptYAML(b)
}

func ParseScenarioScriptYAML(b []byte) (ScenarioScript, error) {
	var s ScenarioScript
	if err := yaml.Unmarshal(b, &s); err != nil {
		return ScenarioScript{}, fmt.Errorf("sim: %w", err)
	}
	return s, nil
}

// NewScenario validates script and returns a runtime Scenario.
func NewScenario(script ScenarioScript) (*Scenario, error) {
	if script.Version == 0 {
		script.Version = 1
	}
	if script.Version != 1 {
		return nil, fmt.Errorf("unsupported scenario version %d", script.Version)
	}
	if len(script.Accel.Keyframes) == 0 {
		return nil, fmt.Errorf("accel.keyframes is required")
	}
	if err := validateTrack("accel", script.Accel.Keyframes); err != nil {
		return nil, err
	}
	if err := validateTrack("gyro", script.Gyro.Keyframes); err != nil {
		return nil, err
	}

	dur := script.Duration
	if dur <= 0 {
		dur = maxKeyframeTime(script)
	}
	if dur <= 0 {
		return nil, fmt.Errorf("duration is required (or derivable from keyframes)")
	}
	return &Scenario{script: script, duration: dur}, nil
}

func (s *Scenario) Name() string {
	if s == nil {
		return ""
	}
	return s.script.Name
}

// Duration returns the effective scenario duration.
func (s *Scenario) Duration() time.Duration {
	if s == nil {
		return 0
	}
	return s.duration
}

type State struct {
	Accel motion.Vector3
	Gyro  motion.Vector3
}

// StateAt computes the sensor readings at elapsed.
//
// If loop is true, elapsed wraps around Duration(). Otherwise elapsed is
// clamped to [0, Duration()].
func (s *Scenario) StateAt(elapsed time.Duration, loop bool) State {
	if s == nil {
		return State{}
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if loop {
		elapsed = elapsed % s.duration
	} else if elapsed > s.duration {
		elapsed = s.duration
	}
	return State{
		Accel: sampleTrack(s.script.Accel.Keyframes, elapsed),
		Gyro:  sampleTrack(s.script.Gyro.Keyframes, elapsed),
	}
}

// Render produces an accel sample every interval over [0, Duration],
// timestamped from start, each followed by a gyro sample half an interval
// later. The last gyro sample may fall past Duration.
func (s *Scenario) Render(start time.Time, interval time.Duration) []motion.Sample {
	if s == nil || interval <= 0 {
		return nil
	}
	half := interval / 2
	n := int(s.duration/interval) + 1
	out := make([]motion.Sample, 0, 2*n)
	for e := time.Duration(0); e <= s.duration; e += interval {
		out = append(out,
			motion.Sample{Kind: motion.Acceleration, Time: start.Add(e), Vector: s.StateAt(e, false).Accel},
			motion.Sample{Kind: motion.AngularVelocity, Time: start.Add(e + half), Vector: s.StateAt(e+half, false).Gyro},
		)
	}
	return out
}

func validateTrack(name string, kfs []Keyframe) error {
	for i := range kfs {
		if kfs[i].T < 0 {
			return fmt.Errorf("%s.keyframes[%d].t must be >= 0", name, i)
		}
		if i > 0 && kfs[i].T < kfs[i-1].T {
			return fmt.Errorf("%s.keyframes must be sorted by t (index %d)", name, i)
		}
	}
	return nil
}

func maxKeyframeTime(s ScenarioScript) time.Duration {
	max := time.Duration(0)
	for _, tr := range []Track{s.Accel, s.Gyro} {
		for _, kf := range tr.Keyframes {
			if kf.T > max {
				max = kf.T
			}
		}
	}
	return max
}

func sampleTrack(kfs []Keyframe, t time.Duration) motion.Vector3 {
	if len(kfs) == 0 {
		return motion.Vector3{}
	}
	k0, k1, alpha := selectSegment(kfs, t)
	if k0.Step {
		return k0.vector()
	}
	return motion.Vector3{
		X: lerp(k0.X, k1.X, alpha),
		Y: lerp(k0.Y, k1.Y, alpha),
		Z: lerp(k0.Z, k1.Z, alpha),
	}
}

func selectSegment(kfs []Keyframe, t time.Duration) (Keyframe, Keyframe, float64) {
	if len(kfs) == 1 {
		return kfs[0], kfs[0], 0
	}
	idx := sort.Search(len(kfs), func(i int) bool { return kfs[i].T > t })
	if idx <= 0 {
		return kfs[0], kfs[0], 0
	}
	if idx >= len(kfs) {
		last := kfs[len(kfs)-1]
		return last, last, 0
	}
	k0 := kfs[idx-1]
	k1 := kfs[idx]
	dt := k1.T - k0.T
	if dt <= 0 {
		return k1, k1, 0
	}
	alpha := float64(t-k0.T) / float64(dt)
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return k0, k1, alpha
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
