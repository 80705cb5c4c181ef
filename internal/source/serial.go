package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"fallwatch/internal/config"
	"fallwatch/internal/motion"
)

const (
	serialReconnectDelay = time.Second
	serialMaxLineBytes   = 4096
)

// wireSample is one NDJSON line from a serial sensor bridge:
//
//	{"kind":"accel","x":0.1,"y":0.2,"z":9.8,"t_ms":1714564800123}
//
// t_ms is optional; lines without it are stamped on arrival.
type wireSample struct {
	Kind string   `json:"kind"`
	X    float64  `json:"x"`
	Y    float64  `json:"y"`
	Z    float64  `json:"z"`
	TMs  *float64 `json:"t_ms,omitempty"`
}

// Serial reads NDJSON samples from a serial port and reconnects on errors.
type Serial struct {
	cfg  config.SerialConfig
	open func(device string, baud int) (io.ReadCloser, error)

	reconnectDelay time.Duration
}

func NewSerial(cfg config.SerialConfig) *Serial {
	return &Serial{cfg: cfg, open: openSerialPort, reconnectDelay: serialReconnectDelay}
}

func openSerialPort(device string, baud int) (io.ReadCloser, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(device, mode)
}

func (s *Serial) Name() string { return "serial:" + s.cfg.Device }

func (s *Serial) Run(ctx context.Context, emit func(motion.Sample)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		port, err := s.open(s.cfg.Device, s.cfg.Baud)
		if err != nil {
			Logf("source: serial open %s: %v", s.cfg.Device, err)
		} else {
			err = s.readPort(ctx, port, emit)
			_ = port.Close()
			if errors.Is(err, io.EOF) {
				Logf("source: serial %s closed, reconnecting", s.cfg.Device)
			} else if err != nil && ctx.Err() == nil {
				Logf("source: serial %s: %v", s.cfg.Device, err)
			}
		}
		if !sleepCtx(ctx, s.reconnectDelay) {
			return ctx.Err()
		}
	}
}

func (s *Serial) readPort(ctx context.Context, port io.ReadCloser, emit func(motion.Sample)) error {
	// Closing the port is the only way to unblock a pending read.
	stop := context.AfterFunc(ctx, func() { _ = port.Close() })
	defer stop()

	sc := bufio.NewScanner(port)
	sc.Buffer(make([]byte, 0, 512), serialMaxLineBytes)
	bad := 0
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		smp, err := parseWireSample(line)
		if err != nil {
			bad++
			if bad == 1 || bad%100 == 0 {
				Logf("source: serial %s: skipping line (%d bad so far): %v", s.cfg.Device, bad, err)
			}
			continue
		}
		emit(smp)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

func parseWireSample(line []byte) (motion.Sample, error) {
	var w wireSample
	if err := json.Unmarshal(line, &w); err != nil {
		return motion.Sample{}, err
	}
	kind, ok := motion.ParseSampleKind(w.Kind)
	if !ok {
		return motion.Sample{}, fmt.Errorf("unknown kind %q", w.Kind)
	}
	at := now()
	if w.TMs != nil {
		at = time.UnixMilli(int64(*w.TMs))
	}
	return motion.Sample{Kind: kind, Time: at, Vector: motion.Vector3{X: w.X, Y: w.Y, Z: w.Z}}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
