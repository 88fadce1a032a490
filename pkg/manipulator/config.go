package manipulator

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config locates the device service. Values are layered: command line
// flags over environment variables over the config file over defaults.
type Config struct {
	DSAddr string `yaml:"DS_ADDR"`
	DSPort int    `yaml:"DS_PORT"`
	// Listen is the local address devices send to, ":DS_PORT" if empty.
	Listen string `yaml:"LISTEN"`
}

// DefaultConfigFile is read when present, -config overrides it.
const DefaultConfigFile = "config.json"

var (
	defaultConfig = Config{
		DSAddr: "34.201.112.170",
		DSPort: 5684,
	}

	flagConfig Config
	flagFile   = DefaultConfigFile
	flagSet    = map[string]bool{}
)

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&flagFile, "config", flagFile, "Config file (YAML or JSON).")
	flag.StringVar(&flagConfig.DSAddr, "ds-addr", defaultConfig.DSAddr, "Device service address.")
	flag.IntVar(&flagConfig.DSPort, "ds-port", defaultConfig.DSPort, "Device service UDP port.")
	flag.StringVar(&flagConfig.Listen, "listen", defaultConfig.Listen, "Local listen address, :DS_PORT if empty.")
}

// NewConfig resolves the config from flags, environment and file.
// It must be called after flag.Parse.
func NewConfig() (*Config, error) {
	flag.Visit(func(f *flag.Flag) { flagSet[f.Name] = true })
	return LoadConfig(flagFile, flagSet["config"], os.Getenv, func(c *Config) {
		if flagSet["ds-addr"] {
			c.DSAddr = flagConfig.DSAddr
		}
		if flagSet["ds-port"] {
			c.DSPort = flagConfig.DSPort
		}
		if flagSet["listen"] {
			c.Listen = flagConfig.Listen
		}
	})
}

// MustNewConfig resolves the config or exit.
func MustNewConfig() *Config {
	conf, err := NewConfig()
	if err != nil {
		log.Fatalln(err)
	}
	return conf
}

// LoadConfig layers defaults, the file, environment from getenv and
// finally overrides. A missing file is an error only when required.
func LoadConfig(file string, required bool, getenv func(string) string, overrides func(*Config)) (*Config, error) {
	conf := defaultConfig
	if file != "" {
		data, err := os.ReadFile(file)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &conf); err != nil {
				return nil, fmt.Errorf("parse %s: %v", file, err)
			}
		case !os.IsNotExist(err) || required:
			return nil, err
		}
	}
	if val := getenv("DS_ADDR"); val != "" {
		conf.DSAddr = val
	}
	if val := getenv("DS_PORT"); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid DS_PORT %q: %v", val, err)
		}
		conf.DSPort = port
	}
	if overrides != nil {
		overrides(&conf)
	}
	if conf.DSPort <= 0 || conf.DSPort > 65535 {
		return nil, fmt.Errorf("invalid device service port %d", conf.DSPort)
	}
	return &conf, nil
}

// ListenAddr is the address the proxy binds.
func (c *Config) ListenAddr() string {
	if c.Listen != "" {
		return c.Listen
	}
	return ":" + strconv.Itoa(c.DSPort)
}

// UpstreamAddr resolves the device service address.
func (c *Config) UpstreamAddr() (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", net.JoinHostPort(c.DSAddr, strconv.Itoa(c.DSPort)))
}

// NewProxy creates the proxy.
func (c *Config) NewProxy(modes *Modes) (*Proxy, error) {
	upstream, err := c.UpstreamAddr()
	if err != nil {
		return nil, err
	}
	return NewProxy(c.ListenAddr(), upstream, modes)
}
