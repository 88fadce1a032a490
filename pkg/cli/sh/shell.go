// Package sh implements cloudctl, the interactive control plane shell
// which lists devices, calls their functions and watches their events.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/cloudtest/pkg/cloud/mqtt"
	"github.com/robotalks/cloudtest/pkg/cloud/msgs"
)

// Config provides options of the shell.
type Config struct {
	// MQTTBrokerURL specifies the broker and topic prefix of the cloud.
	MQTTBrokerURL string
	// Device is selected on start.
	Device string
	// DiscoverTime is how long retained statuses are collected.
	DiscoverTime time.Duration
}

var defaultConfig = Config{
	MQTTBrokerURL: "mqtt://localhost:1883/cloudtest/",
	DiscoverTime:  500 * time.Millisecond,
}

func init() {
	if val := os.Getenv("CLOUDTEST_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("CLOUDTEST_DEVICE_ID"); val != "" {
		defaultConfig.Device = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL.")
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Device to use.")
	flag.DurationVar(&defaultConfig.DiscoverTime, "discover-time", defaultConfig.DiscoverTime, "Time to collect device statuses.")
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Cloud is what the shell needs from the control plane.
type Cloud interface {
	Devices(ctx context.Context) []mqtt.DeviceStatus
	Call(ctx context.Context, device, function, arg string) (int, error)
	Watch(device string, handler func(device string, evt *msgs.Event)) *mqtt.Subscription
}

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *Config
	Cloud  Cloud

	lock    sync.Mutex
	device  string
	watcher *mqtt.Subscription
}

const (
	shellKey         = "$shell"
	unselectedPrompt = "[none] > "
	callTimeout      = time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&DevicesCmd,
		&UseCmd,
		&CallCmd,
		&WatchCmd,
		&UnwatchCmd,
	}
)

// New creates a new shell.
func New(conf *Config, cloud Cloud) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
		Cloud:  cloud,
	}
	s.Shell.Set(shellKey, s)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	s.Use(conf.Device)
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Device returns the selected device.
func (s *Shell) Device() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.device
}

// Use selects a device, stopping any watch on the previous one.
func (s *Shell) Use(device string) {
	s.Unwatch()
	s.lock.Lock()
	s.device = device
	s.lock.Unlock()
	if s.Shell == nil {
		return
	}
	if device == "" {
		s.Shell.SetPrompt(unselectedPrompt)
	} else {
		s.Shell.SetPrompt(device + " > ")
	}
}

// Devices discovers devices.
func (s *Shell) Devices() []mqtt.DeviceStatus {
	ctx, cancel := context.WithTimeout(context.Background(), s.Config.DiscoverTime)
	defer cancel()
	return s.Cloud.Devices(ctx)
}

// Call calls a function on the selected device.
func (s *Shell) Call(function, arg string) (int, error) {
	device := s.Device()
	if device == "" {
		return 0, fmt.Errorf("no device selected")
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return s.Cloud.Call(ctx, device, function, arg)
}

// Watch prints events of the selected device through printf.
func (s *Shell) Watch(printf func(format string, args ...interface{})) error {
	device := s.Device()
	if device == "" {
		return fmt.Errorf("no device selected")
	}
	s.Unwatch()
	sub := s.Cloud.Watch(device, func(id string, evt *msgs.Event) {
		printf("%s\n", s.FormatEvent(id, evt))
	})
	s.lock.Lock()
	s.watcher = sub
	s.lock.Unlock()
	return nil
}

// Unwatch stops watching.
func (s *Shell) Unwatch() {
	s.lock.Lock()
	sub := s.watcher
	s.watcher = nil
	s.lock.Unlock()
	if sub != nil {
		sub.Close()
	}
}

// FormatEvent prints an event into friendly string for display.
func (s *Shell) FormatEvent(device string, evt *msgs.Event) string {
	if s.OutputJSON {
		out, err := json.Marshal(map[string]interface{}{
			"device":       device,
			"name":         evt.Name,
			"data":         evt.Data,
			"ttl":          evt.Ttl,
			"private":      evt.Private,
			"published_at": evt.Time().Format(time.RFC3339Nano),
		})
		if err != nil {
			return err.Error()
		}
		return string(out)
	}
	scope := "public"
	if evt.Private {
		scope = "private"
	}
	return fmt.Sprintf("%s %s [%s] %s %q", evt.Time().Format(time.RFC3339), device, scope, evt.Name, evt.Data)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// DevicesCmd lists devices.
	DevicesCmd = ishell.Cmd{
		Name:    "devices",
		Aliases: []string{"list", "l"},
		Help:    "list devices with their online status",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			devices := s.Devices()
			if s.OutputJSON {
				out, err := json.Marshal(devices)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(devices) == 0 {
				c.Println("No devices found")
				return
			}
			for _, dev := range devices {
				state := "offline"
				if dev.Online {
					state = "online"
				}
				c.Printf("%s %s\n", dev.ID, state)
			}
		},
	}

	// UseCmd selects a device.
	UseCmd = ishell.Cmd{
		Name:    "use",
		Aliases: []string{"u"},
		Help:    "DEVICE-ID",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("device id expected"))
				return
			}
			ShellFrom(c).Use(c.Args[0])
		},
	}

	// CallCmd calls a function.
	CallCmd = ishell.Cmd{
		Name:    "call",
		Aliases: []string{"c"},
		Help:    "FUNCTION [ARG...], e.g. call digitalwrite D7 HIGH",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("function expected"))
				return
			}
			s := ShellFrom(c)
			function, arg := c.Args[0], strings.Join(c.Args[1:], " ")
			result, err := s.Call(function, arg)
			if err == context.DeadlineExceeded {
				err = fmt.Errorf("Call timeout")
			}
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				out, err := json.Marshal(map[string]interface{}{
					"function": function,
					"arg":      arg,
					"result":   result,
				})
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			c.Println(result)
		},
	}

	// WatchCmd prints events of the selected device.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "print events of the selected device",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if err := s.Watch(c.Printf); err != nil {
				c.Err(err)
				return
			}
			if !s.Interactive {
				// evaluation mode keeps printing until interrupted.
				<-(chan struct{})(nil)
			}
		},
	}

	// UnwatchCmd stops printing events.
	UnwatchCmd = ishell.Cmd{
		Name: "unwatch",
		Help: "stop printing events",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Unwatch()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf := NewConfig()
	client, err := mqtt.NewClient(conf.MQTTBrokerURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err := client.Connect(); err != nil {
		log.Fatalf("connect %s failed: %v", conf.MQTTBrokerURL, err)
	}
	defer client.Close()
	New(conf, client).Run(flag.Args()...)
}
