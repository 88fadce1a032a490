// Package tinker implements the remotely-invokable pin functions.
//
// Each function takes a symbolic pin ("D7", "A0", "B3", "C4", "TX", "RX"),
// optionally followed by a value, and returns the measured value, 1 on a
// successful write, or a negative code specific to the function and the
// failure.
package tinker

import (
	"github.com/golang/glog"

	"github.com/robotalks/cloudtest/pkg/hal"
	"github.com/robotalks/cloudtest/pkg/x/cstr"
)

// Pin numbers of bank 0 and the serial pins.
const (
	PinD0 hal.Pin = 0
	PinA0 hal.Pin = 10
	PinRX hal.Pin = 18
	PinTX hal.Pin = 19
	PinB0 hal.Pin = 24
	PinC0 hal.Pin = 30
)

// Function names as registered with the cloud.
const (
	DigitalReadName  = "digitalread"
	DigitalWriteName = "digitalwrite"
	AnalogReadName   = "analogread"
	AnalogWriteName  = "analogwrite"
)

// Registrar accepts named functions.
type Registrar interface {
	Function(name string, fn func(string) int) error
}

// Functions binds the pin functions to a board.
type Functions struct {
	GPIO hal.GPIO
	// Cellular enables the B and C banks.
	Cellular bool
}

// New creates Functions.
func New(gpio hal.GPIO, cellular bool) *Functions {
	return &Functions{GPIO: gpio, Cellular: cellular}
}

// Register registers all four functions.
func (f *Functions) Register(r Registrar) error {
	for _, fn := range []struct {
		name string
		fn   func(string) int
	}{
		{DigitalReadName, f.DigitalRead},
		{DigitalWriteName, f.DigitalWrite},
		{AnalogReadName, f.AnalogRead},
		{AnalogWriteName, f.AnalogWrite},
	} {
		if err := r.Function(fn.name, fn.fn); err != nil {
			return err
		}
	}
	return nil
}

// pinDigit returns the bank index encoded by the second character, or -1.
func pinDigit(arg string) int {
	n := int(cstr.CharAt(arg, 1)) - '0'
	if n < 0 || n > 7 {
		return -1
	}
	return n
}

func bank(arg string) byte {
	return cstr.CharAt(arg, 0)
}

// DigitalRead reads the level of a pin configured as pulled-down input.
//
//	-1 pin digit outside 0..7
//	-2 unknown bank
//	-3 B bank digit above 5
//	-4 C bank digit above 5
func (f *Functions) DigitalRead(pin string) int {
	n := pinDigit(pin)
	if n < 0 {
		return -1
	}
	var p hal.Pin
	switch bank(pin) {
	case 'D':
		p = PinD0 + hal.Pin(n)
	case 'A':
		p = PinA0 + hal.Pin(n)
	case 'B':
		if !f.Cellular {
			return -2
		}
		if n > 5 {
			return -3
		}
		p = PinB0 + hal.Pin(n)
	case 'C':
		if !f.Cellular {
			return -2
		}
		if n > 5 {
			return -4
		}
		p = PinC0 + hal.Pin(n)
	default:
		return -2
	}
	if err := f.GPIO.SetMode(p, hal.ModeInputPullDown); err != nil {
		glog.Errorf("digitalread %q: %v", pin, err)
		return -2
	}
	val, err := f.GPIO.DigitalRead(p)
	if err != nil {
		glog.Errorf("digitalread %q: %v", pin, err)
		return -2
	}
	return val
}

// DigitalWrite drives a pin "HIGH" or "LOW", e.g. "D7 HIGH".
//
//	-1 pin digit outside 0..7
//	-2 level is neither HIGH nor LOW
//	-3 unknown bank
//	-4 B bank digit above 5
//	-5 C bank digit above 5
func (f *Functions) DigitalWrite(command string) int {
	n := pinDigit(command)
	if n < 0 {
		return -1
	}
	var level int
	switch {
	case cstr.Substring(command, 3, 7) == "HIGH":
		level = hal.High
	case cstr.Substring(command, 3, 6) == "LOW":
		level = hal.Low
	default:
		return -2
	}
	var p hal.Pin
	switch bank(command) {
	case 'D':
		p = PinD0 + hal.Pin(n)
	case 'A':
		p = PinA0 + hal.Pin(n)
	case 'B':
		if !f.Cellular {
			return -3
		}
		if n > 5 {
			return -4
		}
		p = PinB0 + hal.Pin(n)
	case 'C':
		if !f.Cellular {
			return -3
		}
		if n > 5 {
			return -5
		}
		p = PinC0 + hal.Pin(n)
	default:
		return -3
	}
	if err := f.output(p, func() error { return f.GPIO.DigitalWrite(p, level) }); err != nil {
		glog.Errorf("digitalwrite %q: %v", command, err)
		return -3
	}
	return 1
}

// AnalogRead samples an analog capable pin, returning 0..4095.
//
//	-1 pin digit outside 0..7
//	-2 unknown bank
//	-3 pin without ADC (D bank, B bank outside 2..5)
func (f *Functions) AnalogRead(pin string) int {
	n := pinDigit(pin)
	if n < 0 {
		return -1
	}
	var p hal.Pin
	switch bank(pin) {
	case 'D':
		return -3
	case 'A':
		p = PinA0 + hal.Pin(n)
	case 'B':
		if !f.Cellular {
			return -2
		}
		if n < 2 || n > 5 {
			return -3
		}
		p = PinB0 + hal.Pin(n)
	default:
		return -2
	}
	val, err := f.GPIO.AnalogRead(p)
	if err != nil {
		glog.Errorf("analogread %q: %v", pin, err)
		return -2
	}
	return val
}

// AnalogWrite sets the PWM value of a pin, e.g. "D3 128" or "TX 200".
//
//	-1 pin digit outside 0..7
//	-2 unknown bank
//	-3 B bank digit above 3
//	-4 C bank digit outside 4..5
func (f *Functions) AnalogWrite(command string) int {
	value := cstr.Atoi(cstr.Substring(command, 3, len(command)))
	var p hal.Pin
	switch cstr.Substring(command, 0, 2) {
	case "TX":
		p = PinTX
	case "RX":
		p = PinRX
	default:
		n := pinDigit(command)
		if n < 0 {
			return -1
		}
		switch bank(command) {
		case 'D':
			p = PinD0 + hal.Pin(n)
		case 'A':
			p = PinA0 + hal.Pin(n)
		case 'B':
			if !f.Cellular {
				return -2
			}
			if n > 3 {
				return -3
			}
			p = PinB0 + hal.Pin(n)
		case 'C':
			if !f.Cellular {
				return -2
			}
			if n < 4 || n > 5 {
				return -4
			}
			p = PinC0 + hal.Pin(n)
		default:
			return -2
		}
	}
	if err := f.output(p, func() error { return f.GPIO.AnalogWrite(p, value) }); err != nil {
		glog.Errorf("analogwrite %q: %v", command, err)
		return -2
	}
	return 1
}

func (f *Functions) output(p hal.Pin, write func() error) error {
	if err := f.GPIO.SetMode(p, hal.ModeOutput); err != nil {
		return err
	}
	return write()
}
