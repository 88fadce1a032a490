// Package device configures the environment the firmware runs in: the
// cloud session, the link probed for cellular connectivity, and the
// board behind the pin functions.
package device

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robotalks/cloudtest/pkg/cloud/mqtt"
	"github.com/robotalks/cloudtest/pkg/env"
	"github.com/robotalks/cloudtest/pkg/hal"
	"github.com/robotalks/cloudtest/pkg/link"
)

// Platforms
const (
	PlatformElectron = "electron"
	PlatformPhoton   = "photon"
)

// Config provides options to setup the device env.
type Config struct {
	// MQTTBrokerURL specifies the broker and topic prefix of the cloud.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// DeviceID identifies the device in the cloud.
	DeviceID string
	// Platform is the emulated platform, electron has a cellular modem.
	Platform string
	// LinkInterface is the host interface standing for the cellular link,
	// any non-loopback interface if empty.
	LinkInterface string
	// KeepAlive of the cloud connection until changed by the console.
	KeepAlive time.Duration
	// AutoConnect connects to the cloud during setup.
	AutoConnect bool
	// HelpDelay is the time after boot the help is printed.
	HelpDelay time.Duration
}

var defaultConfig = Config{
	MQTTBrokerURL: "mqtt://localhost:1883/cloudtest/",
	Platform:      PlatformElectron,
	KeepAlive:     mqtt.DefaultKeepAlive,
	AutoConnect:   true,
	HelpDelay:     8 * time.Second,
}

func init() {
	if val := os.Getenv("CLOUDTEST_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("CLOUDTEST_DEVICE_ID"); val != "" {
		defaultConfig.DeviceID = val
	}
	if val := os.Getenv("CLOUDTEST_PLATFORM"); val != "" {
		defaultConfig.Platform = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID, derived from machine ID if empty")
	flag.StringVar(&defaultConfig.Platform, "platform", defaultConfig.Platform, "Platform: electron or photon")
	flag.StringVar(&defaultConfig.LinkInterface, "link-iface", defaultConfig.LinkInterface, "Network interface reported as the cellular link")
	flag.DurationVar(&defaultConfig.KeepAlive, "keepalive", defaultConfig.KeepAlive, "Initial cloud keep-alive")
	flag.BoolVar(&defaultConfig.AutoConnect, "auto-connect", defaultConfig.AutoConnect, "Connect to the cloud on startup")
	flag.DurationVar(&defaultConfig.HelpDelay, "help-delay", defaultConfig.HelpDelay, "Print help this long after boot")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Cellular reports whether the platform has a cellular modem.
func (c *Config) Cellular() bool {
	return c.Platform == PlatformElectron
}

// Env is the device environment.
type Env struct {
	Config  *Config
	Session *mqtt.Session
	// Cellular is nil on platforms without a cellular modem.
	Cellular link.Link
	GPIO     hal.GPIO
}

// NewEnv creates Env from config. The board is simulated.
func (c *Config) NewEnv() (*Env, error) {
	switch c.Platform {
	case PlatformElectron, PlatformPhoton:
	default:
		return nil, fmt.Errorf("unknown platform %q", c.Platform)
	}
	deviceID := c.DeviceID
	if deviceID == "" {
		deviceID = env.MachineID()
	}
	session, err := mqtt.NewSession(c.MQTTBrokerURL, deviceID)
	if err != nil {
		return nil, fmt.Errorf("create cloud session error: %v", err)
	}
	if c.KeepAlive > 0 {
		if err := session.SetKeepAlive(c.KeepAlive); err != nil {
			return nil, err
		}
	}
	e := &Env{Config: c, Session: session, GPIO: hal.NewSimBoard()}
	if c.Cellular() {
		e.Cellular = &link.NetInterface{Name: c.LinkInterface}
	}
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}
