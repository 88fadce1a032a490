package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"

	fx "github.com/robotalks/cloudtest/pkg/framework"
	"github.com/robotalks/cloudtest/pkg/manipulator"
)

func init() {
	manipulator.SetupFlags()
	flag.Set("logtostderr", "true")
}

func main() {
	flag.Parse()

	conf := manipulator.MustNewConfig()
	log.Printf("using device service address %s", conf.DSAddr)
	proxy, err := conf.NewProxy(manipulator.NewModes())
	if err != nil {
		log.Fatalln(err)
	}
	cmds := &manipulator.Commands{Proxy: proxy, Modes: proxy.Modes}
	shell := cmds.NewShell()

	runner := fx.NewRunner().HandleSignals()
	ctx, cancel := context.WithCancel(runner.Context)
	runner.GoWith(ctx, fx.NamedRun("proxy", proxy))
	runner.GoWith(ctx, fx.NamedRun("shell", fx.RunFunc(func(ctx context.Context) error {
		defer cancel()
		return fx.RunWithContextCancel(ctx, shell.Close, func() error {
			shell.Run()
			return nil
		})
	})))
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
