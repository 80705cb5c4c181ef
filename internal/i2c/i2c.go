package i2c

import "fmt"

// BusPath returns the character device for bus n, e.g. /dev/i2c-1.
func BusPath(n int) string { return fmt.Sprintf("/dev/i2c-%d", n) }

// transport performs one combined write then read transfer (repeated start)
// to a 7-bit address. Either side may be empty.
type transport interface {
	transfer(addr uint16, w, r []byte) error
}

// Dev is a device at a 7-bit address on an opened bus.
type Dev struct {
	t    transport
	addr uint16
}

func (d *Dev) Addr() uint16 {
	if d == nil {
		return 0
	}
	return d.addr
}

func (d *Dev) Write(p []byte) error { return d.tx(p, nil) }

func (d *Dev) Read(p []byte) error { return d.tx(nil, p) }

func (d *Dev) WriteRead(w, r []byte) error { return d.tx(w, r) }

// ReadReg reads len(dst) bytes starting at reg.
func (d *Dev) ReadReg(reg byte, dst []byte) error {
	return d.WriteRead([]byte{reg}, dst)
}

func (d *Dev) ReadRegU8(reg byte) (byte, error) {
	var b [1]byte
	if err := d.ReadReg(reg, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Dev) WriteReg(reg, value byte) error {
	return d.Write([]byte{reg, value})
}

func (d *Dev) tx(w, r []byte) error {
	if d == nil || d.t == nil {
		return fmt.Errorf("i2c: device is nil")
	}
	if d.addr == 0 || d.addr > 0x7F {
		return fmt.Errorf("i2c: invalid addr 0x%X", d.addr)
	}
	if len(w) == 0 && len(r) == 0 {
		return nil
	}
	return d.t.transfer(d.addr, w, r)
}
