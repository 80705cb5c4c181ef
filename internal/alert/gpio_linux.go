//go:build linux

package alert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

type gpiodLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodLine) SetValue(v int) error { return g.line.SetValue(v) }

func (g *gpiodLine) Close() error {
	err := g.line.Close()
	_ = g.chip.Close()
	return err
}

// OpenGPIOLine requests BCM GPIO pin as an output, trying chip first and then
// every other /dev/gpiochip*.
func OpenGPIOLine(chip string, pin int, pulse time.Duration) (*GPIOLine, error) {
	if pin < 0 {
		return nil, fmt.Errorf("alert: invalid gpio pin %d", pin)
	}
	lineName := fmt.Sprintf("GPIO%d", pin)

	candidates := []string{chip}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		if name := e.Name(); strings.HasPrefix(name, "gpiochip") && name != chip {
			candidates = append(candidates, filepath.Join("/dev", name))
		}
	}

	for _, path := range candidates {
		c, err := gpiocdev.NewChip(path)
		if err != nil {
			continue
		}
		offset, err := c.FindLine(lineName)
		if err != nil {
			_ = c.Close()
			continue
		}
		l, err := c.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("fallwatch-alert"))
		if err != nil {
			_ = c.Close()
			continue
		}
		return newGPIOLine(&gpiodLine{chip: c, line: l}, pulse), nil
	}
	return nil, fmt.Errorf("alert: gpio line %q not found (or busy)", lineName)
}
