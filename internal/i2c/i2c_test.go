package i2c

import (
	"bytes"
	"strings"
	"testing"
)

type fakeTransport struct {
	lastAddr uint16
	lastW    []byte
	reply    []byte
	calls    int
}

func (f *fakeTransport) transfer(addr uint16, w, r []byte) error {
	f.calls++
	f.lastAddr = addr
	f.lastW = append([]byte(nil), w...)
	copy(r, f.reply)
	return nil
}

func TestDevTx_InvalidAddr(t *testing.T) {
	for _, addr := range []uint16{0, 0x80} {
		d := &Dev{t: &fakeTransport{}, addr: addr}
		err := d.Write([]byte{0x00})
		if err == nil || !strings.Contains(err.Error(), "invalid addr") {
			t.Fatalf("addr=0x%X err=%v want invalid addr", addr, err)
		}
	}
}

func TestDevTx_EmptyIsNoop(t *testing.T) {
	ft := &fakeTransport{}
	d := &Dev{t: ft, addr: 0x68}
	if err := d.WriteRead(nil, nil); err != nil {
		t.Fatalf("err=%v", err)
	}
	if ft.calls != 0 {
		t.Fatalf("calls=%d want 0", ft.calls)
	}
}

func TestDevTx_NilDevice(t *testing.T) {
	var d *Dev
	if err := d.WriteReg(0x06, 0x01); err == nil {
		t.Fatalf("expected error for nil device")
	}
}

func TestDevReadRegU8(t *testing.T) {
	ft := &fakeTransport{reply: []byte{0xEA}}
	d := &Dev{t: ft, addr: 0x68}
	v, err := d.ReadRegU8(0x00)
	if err != nil {
		t.Fatalf("ReadRegU8: %v", err)
	}
	if v != 0xEA {
		t.Fatalf("v=0x%02X want 0xEA", v)
	}
	if ft.lastAddr != 0x68 || !bytes.Equal(ft.lastW, []byte{0x00}) {
		t.Fatalf("addr=0x%X w=%v", ft.lastAddr, ft.lastW)
	}
}

func TestDevWriteReg(t *testing.T) {
	ft := &fakeTransport{}
	d := &Dev{t: ft, addr: 0x69}
	if err := d.WriteReg(0x7F, 0x20); err != nil {
		t.Fatalf("WriteReg: %v", err)
	}
	if !bytes.Equal(ft.lastW, []byte{0x7F, 0x20}) {
		t.Fatalf("w=%v want [0x7F 0x20]", ft.lastW)
	}
}

func TestBusPath(t *testing.T) {
	if got := BusPath(1); got != "/dev/i2c-1" {
		t.Fatalf("BusPath(1)=%q", got)
	}
}
