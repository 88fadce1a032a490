package hal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimBoardDigital(t *testing.T) {
	b := NewSimBoard()
	require.NoError(t, b.SetMode(3, ModeInputPullDown))
	val, err := b.DigitalRead(3)
	require.NoError(t, err)
	assert.Equal(t, Low, val)

	b.Drive(3, High)
	val, _ = b.DigitalRead(3)
	assert.Equal(t, High, val)
	b.Drive(3, 5)
	val, _ = b.DigitalRead(3)
	assert.Equal(t, High, val)
	b.Release(3)
	require.NoError(t, b.SetMode(3, ModeInputPullUp))
	val, _ = b.DigitalRead(3)
	assert.Equal(t, High, val)

	require.NoError(t, b.SetMode(7, ModeOutput))
	require.NoError(t, b.DigitalWrite(7, 5))
	assert.Equal(t, High, b.Level(7))
	val, _ = b.DigitalRead(7)
	assert.Equal(t, High, val)
	assert.Equal(t, ModeOutput, b.Mode(7))
}

func TestSimBoardAnalog(t *testing.T) {
	b := NewSimBoard()
	b.SetAnalog(10, ADCMax+100)
	val, err := b.AnalogRead(10)
	require.NoError(t, err)
	assert.Equal(t, ADCMax, val)
	assert.Equal(t, ModeAnalogInput, b.Mode(10))

	require.NoError(t, b.SetMode(24, ModeOutput))
	require.NoError(t, b.AnalogWrite(24, 128))
	duty, pwm := b.Duty(24)
	assert.True(t, pwm)
	assert.Equal(t, 128, duty)
	require.NoError(t, b.DigitalWrite(24, Low))
	_, pwm = b.Duty(24)
	assert.False(t, pwm)
}

func TestSimBoardInvalidPin(t *testing.T) {
	b := NewSimBoard()
	_, err := b.DigitalRead(SimPinCount)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPin))
	var pinErr *PinError
	require.True(t, errors.As(err, &pinErr))
	assert.Equal(t, Pin(SimPinCount), pinErr.Pin)
}
