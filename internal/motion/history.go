package motion

// HistorySize is the number of magnitudes kept per signal.
const HistorySize = 20

// MotionHistoryBuffer keeps the most recent raw magnitudes of each signal.
type MotionHistoryBuffer struct {
	acc *Ring[float64]
	gyr *Ring[float64]

	// scratch slices reused between aggregate calls
	accBuf []float64
	gyrBuf []float64
}

func NewMotionHistoryBuffer(size int) *MotionHistoryBuffer {
	if size <= 0 {
		size = HistorySize
	}
	return &MotionHistoryBuffer{
		acc:    NewRing[float64](size),
		gyr:    NewRing[float64](size),
		accBuf: make([]float64, 0, size),
		gyrBuf: make([]float64, 0, size),
	}
}

// Push records the magnitude of s in the ring for its kind.
func (b *MotionHistoryBuffer) Push(s Sample) {
	switch s.Kind {
	case Acceleration:
		b.acc.Push(s.Vector.Magnitude())
	case AngularVelocity:
		b.gyr.Push(s.Vector.Magnitude())
	}
}

// Full reports whether both rings have reached capacity.
func (b *MotionHistoryBuffer) Full() bool {
	return b.acc.Full() && b.gyr.Full()
}

// Acceleration returns the acceleration magnitudes, oldest first. The slice
// is only valid until the next call.
func (b *MotionHistoryBuffer) Acceleration() []float64 {
	b.accBuf = b.acc.AppendTo(b.accBuf[:0])
	return b.accBuf
}

func (b *MotionHistoryBuffer) AngularVelocity() []float64 {
	b.gyrBuf = b.gyr.AppendTo(b.gyrBuf[:0])
	return b.gyrBuf
}

func (b *MotionHistoryBuffer) Len() (acc, gyr int) {
	return b.acc.Len(), b.gyr.Len()
}

func (b *MotionHistoryBuffer) Reset() {
	b.acc.Reset()
	b.gyr.Reset()
}
