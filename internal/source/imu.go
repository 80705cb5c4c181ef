package source

import (
	"context"
	"fmt"
	"io"
	"time"

	"fallwatch/internal/config"
	"fallwatch/internal/i2c"
	"fallwatch/internal/motion"
	"fallwatch/internal/sensors/icm20948"
)

// maxReadErrors consecutive failed reads end the run.
const maxReadErrors = 25

type imuReader interface {
	Read() (icm20948.Reading, error)
}

// IMU polls an ICM-20948 over I2C. Polls alternate between emitting the
// accel and the gyro half of each reading, so the two streams never share a
// timestamp.
type IMU struct {
	cfg  config.IMUConfig
	open func() (imuReader, io.Closer, error)
}

func NewIMU(cfg config.IMUConfig) *IMU {
	s := &IMU{cfg: cfg}
	s.open = s.openDevice
	return s
}

func (s *IMU) Name() string {
	return fmt.Sprintf("imu:%s@0x%02x", i2c.BusPath(s.cfg.I2CBus), s.cfg.Addr)
}

func (s *IMU) openDevice() (imuReader, io.Closer, error) {
	bus, err := i2c.Open(i2c.BusPath(s.cfg.I2CBus))
	if err != nil {
		return nil, nil, fmt.Errorf("source: open i2c: %w", err)
	}
	addr := s.cfg.Addr
	if addr == 0 {
		addr = icm20948.DefaultAddress()
	}
	dev, err := icm20948.New(bus.Dev(addr), icm20948.Options{})
	if err != nil {
		_ = bus.Close()
		return nil, nil, fmt.Errorf("source: init icm20948: %w", err)
	}
	return dev, bus, nil
}

func (s *IMU) Run(ctx context.Context, emit func(motion.Sample)) error {
	dev, closer, err := s.open()
	if err != nil {
		return err
	}
	defer closer.Close()

	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	gyroNext := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		r, err := dev.Read()
		if err != nil {
			failures++
			if failures == 1 {
				Logf("source: imu read failed: %v", err)
			}
			if failures >= maxReadErrors {
				return fmt.Errorf("source: imu: %d consecutive read errors: %w", failures, err)
			}
			continue
		}
		failures = 0
		pair := r.Samples()
		if gyroNext {
			emit(pair[1])
		} else {
			emit(pair[0])
		}
		gyroNext = !gyroNext
	}
}
