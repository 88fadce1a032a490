package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/robotalks/cloudtest/pkg/console/port"
	env "github.com/robotalks/cloudtest/pkg/env/device"
	"github.com/robotalks/cloudtest/pkg/firmware"
	fx "github.com/robotalks/cloudtest/pkg/framework"
)

func init() {
	env.SetupFlags()
	port.SetupFlags()
	flag.Set("logtostderr", "true")
}

func main() {
	flag.Parse()

	env := env.NewConfig().MustNewEnv()
	p := port.NewConfig().MustOpen()
	defer p.Close()

	fw, err := firmware.New(firmware.Options{
		Port:        p,
		Session:     env.Session,
		Cellular:    env.Cellular,
		GPIO:        env.GPIO,
		AutoConnect: env.Config.AutoConnect,
		HelpDelay:   env.Config.HelpDelay,
	})
	if err != nil {
		log.Fatalln(err)
	}

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedRun("loop", fx.NewLoop().Add(fw)))
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
