package main

import (
	"flag"

	"github.com/robotalks/cloudtest/pkg/cli/sh"
)

//go-build: CGO_ENABLED=0

func init() {
	sh.SetupFlags()
	flag.Set("logtostderr", "true")
}

func main() {
	sh.Main()
}
