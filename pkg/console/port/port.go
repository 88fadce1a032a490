// Package port opens the byte stream the device console talks over:
// the process stdio, a serial line or a websocket endpoint.
package port

import (
	"flag"
	"io"
	"log"
	"os"
)

// Port is a console transport.
type Port interface {
	io.ReadWriteCloser
}

// Config selects and configures the port.
type Config struct {
	// Serial is the serial device, e.g. /dev/ttyUSB0.
	Serial string
	// Baud is the serial baud rate.
	Baud int
	// WebSocket is the listen address of the websocket console.
	WebSocket string
}

var defaultConfig = Config{
	Baud: 9600,
}

func init() {
	if val := os.Getenv("CLOUDTEST_SERIAL"); val != "" {
		defaultConfig.Serial = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Serial, "serial", defaultConfig.Serial, "Serial device for the console, stdio if empty.")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Serial baud rate.")
	flag.StringVar(&defaultConfig.WebSocket, "ws", defaultConfig.WebSocket, "Serve the console over websocket at this address.")
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Open opens the configured port. WebSocket takes precedence over Serial.
func (c *Config) Open() (Port, error) {
	switch {
	case c.WebSocket != "":
		p, err := ListenWebSocket(c.WebSocket)
		if err != nil {
			return nil, err
		}
		return p, nil
	case c.Serial != "":
		p, err := OpenSerial(c.Serial, c.Baud)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return Stdio(), nil
}

// MustOpen opens the port or exit.
func (c *Config) MustOpen() Port {
	p, err := c.Open()
	if err != nil {
		log.Fatalln(err)
	}
	return p
}
