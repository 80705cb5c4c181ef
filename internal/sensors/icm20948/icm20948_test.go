package icm20948

import (
	"errors"
	"math"
	"testing"
	"time"

	"fallwatch/internal/motion"
)

type fakeI2C struct {
	regs   map[byte][]byte
	writes []writeOp

	readErrFor map[byte]error
}

type writeOp struct {
	reg byte
	val byte
}

func (f *fakeI2C) ReadRegU8(reg byte) (byte, error) {
	if err := f.readErrFor[reg]; err != nil {
		return 0, err
	}
	b := f.regs[reg]
	if len(b) < 1 {
		return 0, errors.New("no reg")
	}
	return b[0], nil
}

func (f *fakeI2C) ReadReg(reg byte, dst []byte) error {
	if err := f.readErrFor[reg]; err != nil {
		return err
	}
	b := f.regs[reg]
	if len(b) < len(dst) {
		return errors.New("short reg")
	}
	copy(dst, b[:len(dst)])
	return nil
}

func (f *fakeI2C) WriteReg(reg, value byte) error {
	f.writes = append(f.writes, writeOp{reg: reg, val: value})
	return nil
}

func (f *fakeI2C) wrote(reg, val byte) bool {
	for _, w := range f.writes {
		if w.reg == reg && w.val == val {
			return true
		}
	}
	return false
}

func stubClock(t *testing.T) time.Time {
	t.Helper()
	oldSleep, oldNow := sleep, now
	fixed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	sleep = func(time.Duration) {}
	now = func() time.Time { return fixed }
	t.Cleanup(func() { sleep, now = oldSleep, oldNow })
	return fixed
}

func TestNew_WhoAmIMismatch(t *testing.T) {
	stubClock(t)
	f := &fakeI2C{regs: map[byte][]byte{regWhoAmI: {0x00}}}
	if _, err := newWithIO(f, Options{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNew_WhoAmIReadError(t *testing.T) {
	stubClock(t)
	f := &fakeI2C{readErrFor: map[byte]error{regWhoAmI: errors.New("nack")}}
	if _, err := newWithIO(f, Options{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNew_RejectsUnsupportedRange(t *testing.T) {
	stubClock(t)
	f := &fakeI2C{regs: map[byte][]byte{regWhoAmI: {whoAmIVal}}}
	if _, err := newWithIO(f, Options{AccelRangeG: 3}); err == nil {
		t.Fatalf("expected error for 3g range")
	}
	if _, err := newWithIO(f, Options{RateHz: 2000}); err == nil {
		t.Fatalf("expected error for 2000Hz")
	}
}

func TestNew_WritesExpectedInitRegisters(t *testing.T) {
	stubClock(t)
	f := &fakeI2C{regs: map[byte][]byte{regWhoAmI: {whoAmIVal}}}
	if _, err := newWithIO(f, Options{}); err != nil {
		t.Fatalf("newWithIO: %v", err)
	}

	if !f.wrote(regPwrMgmt1, bitReset) {
		t.Fatalf("expected reset write to PWR_MGMT_1")
	}
	if !f.wrote(regPwrMgmt1, clkAutoSelect) {
		t.Fatalf("expected wake write to PWR_MGMT_1")
	}
	if !f.wrote(regBankSel, bank2<<4) {
		t.Fatalf("expected bank2 select write")
	}
	if !f.wrote(regAccelConfig, 0x06) {
		t.Fatalf("expected 16g accel full scale")
	}
	if !f.wrote(regGyroConfig1, 0x06) {
		t.Fatalf("expected 2000dps gyro full scale")
	}
	if !f.wrote(regGyroSmplrt, byte(1125/100-1)) {
		t.Fatalf("expected 100Hz sample rate divider")
	}
	if last := f.writes[len(f.writes)-1]; last.reg != regBankSel || last.val != 0 {
		t.Fatalf("last write=%+v want bank 0 select", last)
	}
}

func TestRead_ScalesToSI(t *testing.T) {
	fixed := stubClock(t)

	// 16384 counts is half scale: 8g at 16g, 1000dps at 2000dps.
	f := &fakeI2C{regs: map[byte][]byte{regWhoAmI: {whoAmIVal}}}
	f.regs[regAccelXoutH] = []byte{
		0x40, 0x00, // ax
		0x00, 0x00, // ay
		0xC0, 0x00, // az = -16384
		0x40, 0x00, // gx
		0x00, 0x00, // gy
		0xC0, 0x00, // gz = -16384
	}

	d, err := newWithIO(f, Options{})
	if err != nil {
		t.Fatalf("newWithIO: %v", err)
	}
	r, err := d.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	wantAcc := 8 * gravityMS2
	wantGyr := 1000 * math.Pi / 180
	if math.Abs(r.Accel.X-wantAcc) > 1e-9 || math.Abs(r.Accel.Z+wantAcc) > 1e-9 {
		t.Fatalf("accel=%+v want x=%v z=%v", r.Accel, wantAcc, -wantAcc)
	}
	if math.Abs(r.Gyro.X-wantGyr) > 1e-9 || math.Abs(r.Gyro.Z+wantGyr) > 1e-9 {
		t.Fatalf("gyro=%+v want x=%v z=%v", r.Gyro, wantGyr, -wantGyr)
	}
	if !r.Time.Equal(fixed) {
		t.Fatalf("time=%v want %v", r.Time, fixed)
	}

	s := r.Samples()
	if s[0].Kind != motion.Acceleration || s[1].Kind != motion.AngularVelocity {
		t.Fatalf("sample kinds=%v,%v", s[0].Kind, s[1].Kind)
	}
	if s[0].Vector != r.Accel || s[1].Vector != r.Gyro {
		t.Fatalf("sample vectors do not match reading")
	}
}

func TestRead_Error(t *testing.T) {
	stubClock(t)
	f := &fakeI2C{regs: map[byte][]byte{regWhoAmI: {whoAmIVal}}}
	d, err := newWithIO(f, Options{})
	if err != nil {
		t.Fatalf("newWithIO: %v", err)
	}
	f.readErrFor = map[byte]error{regAccelXoutH: errors.New("bus fault")}
	if _, err := d.Read(); err == nil {
		t.Fatalf("expected read error")
	}
}
