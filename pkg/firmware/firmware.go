// Package firmware assembles the cloud test firmware: setup registers
// the pin functions and optionally connects, then the loop drives the
// console, remote calls and the connectivity monitor.
package firmware

import (
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cloudtest/pkg/cloud"
	"github.com/robotalks/cloudtest/pkg/console"
	fx "github.com/robotalks/cloudtest/pkg/framework"
	"github.com/robotalks/cloudtest/pkg/hal"
	"github.com/robotalks/cloudtest/pkg/link"
	"github.com/robotalks/cloudtest/pkg/tinker"
)

// Options configures the Firmware.
type Options struct {
	// Port carries the console.
	Port io.ReadWriter
	// Session is the cloud session. If it implements LoopAdder, it's
	// added to the loop as well.
	Session cloud.Session
	// Cellular is nil on platforms without cellular.
	Cellular    link.Link
	GPIO        hal.GPIO
	AutoConnect bool
	HelpDelay   time.Duration
}

// Firmware is the assembled application.
type Firmware struct {
	Options   Options
	Functions *cloud.Functions
	Tinker    *tinker.Functions
	Console   *console.Controller
	Monitor   *link.Monitor

	setupDone bool
}

// New creates the Firmware and registers the pin functions.
func New(opts Options) (*Firmware, error) {
	f := &Firmware{
		Options:   opts,
		Functions: cloud.NewFunctions(),
		Tinker:    tinker.New(opts.GPIO, opts.Cellular != nil),
	}
	if err := f.Tinker.Register(f.Functions); err != nil {
		return nil, err
	}
	f.Console = console.NewController(opts.Port, console.New(opts.Port, opts.Session))
	if opts.HelpDelay > 0 {
		f.Console.HelpDelay = opts.HelpDelay
	}
	f.Monitor = link.NewMonitor(opts.Port, opts.Cellular, link.Func(opts.Session.Connected))
	return f, nil
}

// AddToLoop implements LoopAdder.
func (f *Firmware) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvTop, fx.ControlFunc(f.setup))
	if adder, ok := f.Options.Session.(fx.LoopAdder); ok {
		l.Add(adder)
	}
	l.Add(f.Console, f.Functions, f.Monitor)
}

func (f *Firmware) setup(fx.ControlContext) error {
	if f.setupDone {
		return nil
	}
	f.setupDone = true
	glog.Infof("functions: %v", f.Functions.Names())
	if f.Options.AutoConnect {
		return f.Options.Session.Connect()
	}
	return nil
}
