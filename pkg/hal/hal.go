// Package hal abstracts the pin hardware used by the firmware.
package hal

import (
	"errors"
	"fmt"
)

// Pin identifies a hardware pin number.
type Pin uint8

// Mode is the electrical configuration of a pin.
type Mode uint8

// Pin modes
const (
	ModeUnset Mode = iota
	ModeInput
	ModeInputPullUp
	ModeInputPullDown
	ModeOutput
	ModeAnalogInput
)

var modeNames = [...]string{
	ModeUnset:         "unset",
	ModeInput:         "input",
	ModeInputPullUp:   "input_pullup",
	ModeInputPullDown: "input_pulldown",
	ModeOutput:        "output",
	ModeAnalogInput:   "analog_input",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Digital levels
const (
	Low  = 0
	High = 1
)

// ADCMax is the largest value returned by an analog read (12-bit).
const ADCMax = 4095

// GPIO is the pin interface the firmware drives.
type GPIO interface {
	// SetMode configures the pin.
	SetMode(pin Pin, mode Mode) error
	// DigitalRead returns Low or High.
	DigitalRead(pin Pin) (int, error)
	// DigitalWrite drives the pin Low or High.
	DigitalWrite(pin Pin, level int) error
	// AnalogRead samples the pin, 0..ADCMax.
	AnalogRead(pin Pin) (int, error)
	// AnalogWrite sets PWM duty (or DAC output) on the pin.
	AnalogWrite(pin Pin, value int) error
}

var (
	// ErrInvalidPin indicates the pin doesn't exist on the board.
	ErrInvalidPin = errors.New("invalid pin")
)

// PinError wraps an error with the pin it happened on.
type PinError struct {
	Pin Pin
	Op  string
	Err error
}

// Error implements error.
func (e *PinError) Error() string {
	return fmt.Sprintf("%s pin %d: %v", e.Op, e.Pin, e.Err)
}

// Unwrap returns the cause.
func (e *PinError) Unwrap() error { return e.Err }
