package icm20948

import (
	"fmt"
	"math"
	"time"

	"fallwatch/internal/i2c"
	"fallwatch/internal/motion"
)

var (
	sleep = time.Sleep
	now   = time.Now
)

// Standard gravity, used to convert g to m/s².
const gravityMS2 = 9.80665

const (
	addrDefault = 0x68

	regWhoAmI  = 0x00
	whoAmIVal  = 0xEA
	regBankSel = 0x7F

	// Bank 0.
	regPwrMgmt1   = 0x06
	bitReset      = 0x80
	clkAutoSelect = 0x01
	regIntEnable  = 0x10
	regAccelXoutH = 0x2D // accel then gyro, 12 bytes

	// Bank 2.
	bank2           = 2
	regGyroSmplrt   = 0x00
	regGyroConfig1  = 0x01
	regAccelSmplrt2 = 0x11
	regAccelConfig  = 0x14

	baseRateHz = 1125
)

// Full-scale selections. Free fall and impact detection needs headroom well
// past 4g, so the defaults are the widest ranges.
var (
	accelRanges = map[int]byte{2: 0x00, 4: 0x02, 8: 0x04, 16: 0x06}
	gyroRanges  = map[int]byte{250: 0x00, 500: 0x02, 1000: 0x04, 2000: 0x06}
)

type Options struct {
	AccelRangeG  int // 2, 4, 8 or 16; default 16
	GyroRangeDPS int // 250, 500, 1000 or 2000; default 2000
	RateHz       int // output data rate; default 100
}

func (o *Options) withDefaults() error {
	if o.AccelRangeG == 0 {
		o.AccelRangeG = 16
	}
	if o.GyroRangeDPS == 0 {
		o.GyroRangeDPS = 2000
	}
	if o.RateHz == 0 {
		o.RateHz = 100
	}
	if _, ok := accelRanges[o.AccelRangeG]; !ok {
		return fmt.Errorf("icm20948: unsupported accel range %dg", o.AccelRangeG)
	}
	if _, ok := gyroRanges[o.GyroRangeDPS]; !ok {
		return fmt.Errorf("icm20948: unsupported gyro range %ddps", o.GyroRangeDPS)
	}
	if o.RateHz < 5 || o.RateHz > baseRateHz {
		return fmt.Errorf("icm20948: rate %dHz out of range", o.RateHz)
	}
	return nil
}

// Reading is one burst read of both sensors in SI units.
type Reading struct {
	Time  time.Time
	Accel motion.Vector3 // m/s²
	Gyro  motion.Vector3 // rad/s
}

// Samples splits r into an acceleration and an angular velocity sample
// sharing the same timestamp.
func (r Reading) Samples() [2]motion.Sample {
	return [2]motion.Sample{
		{Kind: motion.Acceleration, Time: r.Time, Vector: r.Accel},
		{Kind: motion.AngularVelocity, Time: r.Time, Vector: r.Gyro},
	}
}

type Device struct {
	dev regIO

	curBank byte
	opts    Options

	// counts to SI
	scaleAccel float64
	scaleGyro  float64
}

type regIO interface {
	ReadRegU8(reg byte) (byte, error)
	ReadReg(reg byte, dst []byte) error
	WriteReg(reg, value byte) error
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev, opts Options) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("icm20948: dev is nil")
	}
	return newWithIO(dev, opts)
}

func newWithIO(dev regIO, opts Options) (*Device, error) {
	if err := opts.withDefaults(); err != nil {
		return nil, err
	}
	d := &Device{dev: dev, curBank: 0xFF, opts: opts}

	who, err := d.dev.ReadRegU8(regWhoAmI)
	if err != nil {
		return nil, fmt.Errorf("icm20948: whoami read failed: %w", err)
	}
	if who != whoAmIVal {
		return nil, fmt.Errorf("icm20948: whoami=0x%02X want 0x%02X", who, whoAmIVal)
	}
	if err := d.configure(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) configure() error {
	if err := d.setBank(0); err != nil {
		return err
	}
	_ = d.dev.WriteReg(regIntEnable, 0x00)

	if err := d.dev.WriteReg(regPwrMgmt1, bitReset); err != nil {
		return fmt.Errorf("icm20948: reset failed: %w", err)
	}
	sleep(100 * time.Millisecond)
	// The reset returns the bank select to 0.
	d.curBank = 0

	if err := d.dev.WriteReg(regPwrMgmt1, clkAutoSelect); err != nil {
		return fmt.Errorf("icm20948: wake failed: %w", err)
	}
	sleep(10 * time.Millisecond)

	if err := d.setBank(bank2); err != nil {
		return err
	}
	div := byte(baseRateHz/d.opts.RateHz - 1)
	if err := d.dev.WriteReg(regGyroSmplrt, div); err != nil {
		return fmt.Errorf("icm20948: gyro rate failed: %w", err)
	}
	if err := d.dev.WriteReg(regAccelSmplrt2, div); err != nil {
		return fmt.Errorf("icm20948: accel rate failed: %w", err)
	}
	if err := d.dev.WriteReg(regGyroConfig1, gyroRanges[d.opts.GyroRangeDPS]); err != nil {
		return fmt.Errorf("icm20948: gyro config failed: %w", err)
	}
	if err := d.dev.WriteReg(regAccelConfig, accelRanges[d.opts.AccelRangeG]); err != nil {
		return fmt.Errorf("icm20948: accel config failed: %w", err)
	}
	if err := d.setBank(0); err != nil {
		return err
	}

	d.scaleAccel = float64(d.opts.AccelRangeG) / 32768.0 * gravityMS2
	d.scaleGyro = float64(d.opts.GyroRangeDPS) / 32768.0 * math.Pi / 180.0
	return nil
}

func (d *Device) setBank(bank byte) error {
	if d.curBank == bank {
		return nil
	}
	if err := d.dev.WriteReg(regBankSel, bank<<4); err != nil {
		return fmt.Errorf("icm20948: set bank %d failed: %w", bank, err)
	}
	d.curBank = bank
	return nil
}

func (d *Device) Read() (Reading, error) {
	if d == nil {
		return Reading{}, fmt.Errorf("icm20948: device is nil")
	}
	if err := d.setBank(0); err != nil {
		return Reading{}, err
	}

	var buf [12]byte
	if err := d.dev.ReadReg(regAccelXoutH, buf[:]); err != nil {
		return Reading{}, fmt.Errorf("icm20948: read sensors failed: %w", err)
	}
	axis := func(i int) float64 { return float64(int16(uint16(buf[i])<<8 | uint16(buf[i+1]))) }

	return Reading{
		Time:  now(),
		Accel: motion.Vector3{X: axis(0) * d.scaleAccel, Y: axis(2) * d.scaleAccel, Z: axis(4) * d.scaleAccel},
		Gyro:  motion.Vector3{X: axis(6) * d.scaleGyro, Y: axis(8) * d.scaleGyro, Z: axis(10) * d.scaleGyro},
	}, nil
}
