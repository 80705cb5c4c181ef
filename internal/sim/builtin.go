package sim

import (
	"fmt"
	"sort"
	"time"
)

const standardGravity = 9.81

var builtins = map[string]func() ScenarioScript{
	"idle":  idleScript,
	"fall":  fallScript,
	"shake": shakeScript,
}

// Builtin returns a named built-in script.
func Builtin(name string) (ScenarioScript, error) {
	mk, ok := builtins[name]
	if !ok {
		return ScenarioScript{}, fmt.Errorf("sim: unknown built-in scenario %q (have %v)", name, BuiltinNames())
	}
	return mk(), nil
}

func BuiltinNames() []string {
	out := make([]string, 0, len(builtins))
	for k := range builtins {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func idleScript() ScenarioScript {
	return ScenarioScript{
		Version:  1,
		Name:     "idle",
		Duration: 5 * time.Second,
		Accel:    Track{Keyframes: []Keyframe{{Z: standardGravity, Step: true}}},
		Gyro:     Track{Keyframes: []Keyframe{{X: 0.02, Step: true}}},
	}
}

// fallScript rests for 2s, drops for 1.8s, hits the floor and lies still.
// The filtered free-fall onset lags the drop by about eleven accepted accel
// samples, so the drop is long enough for the impact window at 50ms and
// 100ms accel cadence alike.
func fallScript() ScenarioScript {
	return ScenarioScript{
		Version:  1,
		Name:     "fall",
		Duration: 6 * time.Second,
		Accel: Track{Keyframes: []Keyframe{
			{T: 0, Z: standardGravity, Step: true},
			{T: 2 * time.Second, Z: 0.3, Step: true},
			{T: 3800 * time.Millisecond, X: 20, Z: 70, Step: true},
			{T: 3900 * time.Millisecond, X: standardGravity, Step: true},
		}},
		Gyro: Track{Keyframes: []Keyframe{
			{T: 0, Step: true},
			{T: 2 * time.Second, Y: 3, Step: true},
			{T: 3900 * time.Millisecond, Step: true},
		}},
	}
}

// shakeScript swings ±50 m/s² along x every 100ms for 1.6s.
func shakeScript() ScenarioScript {
	kfs := []Keyframe{{T: 0, Z: standardGravity, Step: true}}
	gyr := []Keyframe{{T: 0, Step: true}}
	start := time.Second
	for i := 0; i < 16; i++ {
		x := 50.0
		if i%2 == 1 {
			x = -50
		}
		at := start + time.Duration(i)*100*time.Millisecond
		kfs = append(kfs, Keyframe{T: at, X: x, Z: standardGravity, Step: true})
		gyr = append(gyr, Keyframe{T: at, Z: 8 * x / 50, Step: true})
	}
	end := start + 1600*time.Millisecond
	kfs = append(kfs, Keyframe{T: end, Z: standardGravity, Step: true})
	gyr = append(gyr, Keyframe{T: end, Step: true})
	return ScenarioScript{
		Version:  1,
		Name:     "shake",
		Duration: 4 * time.Second,
		Accel:    Track{Keyframes: kfs},
		Gyro:     Track{Keyframes: gyr},
	}
}
