//go:build !linux

package alert

import (
	"fmt"
	"time"
)

func OpenGPIOLine(chip string, pin int, pulse time.Duration) (*GPIOLine, error) {
	return nil, fmt.Errorf("alert: gpio unsupported on this platform")
}
