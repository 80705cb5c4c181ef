package replay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"fallwatch/internal/motion"
)

// Log format: line-oriented text.
//
// - Blank lines and lines starting with '#' are ignored.
// - "START" resets the origin; the next record is relative to 0 again.
// - Data lines are <t_ns>,<kind>,<x>,<y>,<z> where t_ns is nanoseconds
//   since START, kind is accel or gyro, and x/y/z are SI units.

type Record struct {
	At     time.Duration
	Start  bool
	Kind   motion.SampleKind
	Vector motion.Vector3
}

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Open reads a whole log file.
func Open(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}

func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	recs := make([]Record, 0, 1024)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			recs = append(recs, Record{Start: true})
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("replay: line %d: %w", lineNo, err)
		}
		recs = append(recs, rec)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

func parseLine(line string) (Record, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 5 {
		return Record{}, fmt.Errorf("want 5 fields, got %d: %q", len(fields), line)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	tsNs, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid timestamp %q: %w", fields[0], err)
	}
	if tsNs < 0 {
		return Record{}, fmt.Errorf("invalid timestamp (negative): %d", tsNs)
	}
	kind, ok := motion.ParseSampleKind(fields[1])
	if !ok {
		return Record{}, fmt.Errorf("invalid kind %q", fields[1])
	}
	var xyz [3]float64
	for i := range xyz {
		v, err := strconv.ParseFloat(fields[2+i], 64)
		if err != nil {
			return Record{}, fmt.Errorf("invalid component %q: %w", fields[2+i], err)
		}
		xyz[i] = v
	}
	return Record{
		At:     time.Duration(tsNs),
		Kind:   kind,
		Vector: motion.Vector3{X: xyz[0], Y: xyz[1], Z: xyz[2]},
	}, nil
}

// Writer appends samples to a log. The first sample written is the origin.
type Writer struct {
	f       io.Closer
	w       *bufio.Writer
	start   time.Time
	started bool
	closed  bool
}

func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	ww, err := newWriter(f, f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return ww, nil
}

func newWriter(w io.Writer, c io.Closer) (*Writer, error) {
	bw := bufio.NewWriterSize(w, 64*1024)
	if _, err := bw.WriteString("START\n"); err != nil {
		return nil, err
	}
	return &Writer{f: c, w: bw}, nil
}

func (ww *Writer) WriteSample(s motion.Sample) error {
	if ww.closed {
		return errors.New("replay: writer is closed")
	}
	if !ww.started {
		ww.start = s.Time
		ww.started = true
	}
	d := s.Time.Sub(ww.start)
	if d < 0 {
		d = 0
	}
	_, err := fmt.Fprintf(ww.w, "%d,%s,%s,%s,%s\n",
		d.Nanoseconds(), s.Kind,
		formatFloat(s.Vector.X), formatFloat(s.Vector.Y), formatFloat(s.Vector.Z))
	return err
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func (ww *Writer) Flush() error {
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		if ww.f != nil {
			_ = ww.f.Close()
		}
		return err
	}
	if ww.f == nil {
		return nil
	}
	return ww.f.Close()
}

// SegmentGap is the log clock advance inserted at a START marker or a loop
// restart.
const SegmentGap = 100 * time.Millisecond

type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Play replays records with their relative timing and calls cb with each
// data record and its offset on a continuous log clock. The offset keeps
// increasing across START markers and loops, so callers can rebuild
// monotonic sample timestamps from it.
//
// speed: 1.0 = real time, 2.0 = half the waits.
func Play(ctx context.Context, records []Record, speed float64, loop bool, sleeper Sleeper, cb func(offset time.Duration, r Record) error) error {
	if speed <= 0 {
		return fmt.Errorf("replay: speed must be > 0")
	}
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	if cb == nil {
		return errors.New("replay: callback is nil")
	}
	if !hasData(records) {
		return errors.New("replay: no records")
	}

	var offset time.Duration
	first := true
	for {
		var lastAt time.Duration
		haveLast := false

		for _, r := range records {
			if r.Start {
				haveLast = false
				continue
			}
			if haveLast {
				gap := r.At - lastAt
				if gap < 0 {
					gap = 0
				}
				offset += gap
				if wait := time.Duration(float64(gap) / speed); wait > 0 {
					if err := sleeper.Sleep(ctx, wait); err != nil {
						return err
					}
				}
			} else if !first {
				offset += SegmentGap
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := cb(offset, r); err != nil {
				return err
			}
			lastAt = r.At
			haveLast = true
			first = false
		}

		if !loop {
			return nil
		}
	}
}

func hasData(records []Record) bool {
	for _, r := range records {
		if !r.Start {
			return true
		}
	}
	return false
}
