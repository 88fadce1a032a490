package port

import (
	"fmt"

	"github.com/tarm/serial"
)

// SerialPort wraps a tarm/serial port.
type SerialPort struct {
	*serial.Port
	Name string
}

// OpenSerial opens a serial device. Reads block until data arrives.
func OpenSerial(name string, baud int) (*SerialPort, error) {
	p, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %v", name, err)
	}
	return &SerialPort{Port: p, Name: name}, nil
}
