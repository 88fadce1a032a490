package hal

import "sync"

// SimPinCount is the number of pins on the simulated board.
const SimPinCount = 36

// SimBoard is an in-memory board. Inputs are driven externally with
// Drive and SetAnalog; outputs can be inspected with Level and Duty.
type SimBoard struct {
	lock sync.Mutex
	pins [SimPinCount]simPin
}

type simPin struct {
	mode   Mode
	driven bool
	ext    int
	level  int
	analog int
	duty   int
	pwm    bool
}

// NewSimBoard creates a SimBoard with every pin unset.
func NewSimBoard() *SimBoard {
	return &SimBoard{}
}

func (b *SimBoard) pin(p Pin, op string) (*simPin, error) {
	if int(p) >= SimPinCount {
		return nil, &PinError{Pin: p, Op: op, Err: ErrInvalidPin}
	}
	return &b.pins[p], nil
}

// SetMode implements GPIO.
func (b *SimBoard) SetMode(p Pin, mode Mode) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	sp, err := b.pin(p, "mode")
	if err != nil {
		return err
	}
	sp.mode = mode
	if mode != ModeOutput {
		sp.pwm = false
	}
	return nil
}

// DigitalRead implements GPIO.
func (b *SimBoard) DigitalRead(p Pin) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	sp, err := b.pin(p, "digital read")
	if err != nil {
		return 0, err
	}
	switch {
	case sp.mode == ModeOutput:
		return sp.level, nil
	case sp.driven:
		return sp.ext, nil
	case sp.mode == ModeInputPullUp:
		return High, nil
	}
	return Low, nil
}

// DigitalWrite implements GPIO.
func (b *SimBoard) DigitalWrite(p Pin, level int) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	sp, err := b.pin(p, "digital write")
	if err != nil {
		return err
	}
	if level != Low {
		level = High
	}
	sp.level, sp.pwm = level, false
	return nil
}

// AnalogRead implements GPIO.
func (b *SimBoard) AnalogRead(p Pin) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	sp, err := b.pin(p, "analog read")
	if err != nil {
		return 0, err
	}
	sp.mode = ModeAnalogInput
	return sp.analog, nil
}

// AnalogWrite implements GPIO.
func (b *SimBoard) AnalogWrite(p Pin, value int) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	sp, err := b.pin(p, "analog write")
	if err != nil {
		return err
	}
	sp.duty, sp.pwm = value, true
	return nil
}

// Drive applies an external digital level to the pin.
func (b *SimBoard) Drive(p Pin, level int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if level != Low {
		level = High
	}
	if sp, err := b.pin(p, "drive"); err == nil {
		sp.driven, sp.ext = true, level
	}
}

// Release removes the external drive from the pin.
func (b *SimBoard) Release(p Pin) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if sp, err := b.pin(p, "release"); err == nil {
		sp.driven = false
	}
}

// SetAnalog sets the voltage seen by the ADC, clamped to 0..ADCMax.
func (b *SimBoard) SetAnalog(p Pin, value int) {
	switch {
	case value < 0:
		value = 0
	case value > ADCMax:
		value = ADCMax
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if sp, err := b.pin(p, "set analog"); err == nil {
		sp.analog = value
	}
}

// Mode returns the configured mode of the pin.
func (b *SimBoard) Mode(p Pin) Mode {
	b.lock.Lock()
	defer b.lock.Unlock()
	if sp, err := b.pin(p, "mode"); err == nil {
		return sp.mode
	}
	return ModeUnset
}

// Level returns the last digital level written to the pin.
func (b *SimBoard) Level(p Pin) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	if sp, err := b.pin(p, "level"); err == nil {
		return sp.level
	}
	return Low
}

// Duty returns the PWM value and whether PWM is active on the pin.
func (b *SimBoard) Duty(p Pin) (int, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if sp, err := b.pin(p, "duty"); err == nil {
		return sp.duty, sp.pwm
	}
	return 0, false
}
