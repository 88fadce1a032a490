package manipulator

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/cloudtest/pkg/x/cstr"
)

// Prompt of the manipulator shell.
const Prompt = "$ "

// Commands implements the shell commands, each returns the line to print.
type Commands struct {
	Proxy *Proxy
	Modes *Modes
}

// Data handles "data [on|off]", toggles without argument.
func (c *Commands) Data(args []string) string {
	if c.Modes.SetData(firstArg(args)) {
		return "data on"
	}
	return "data off"
}

// Disconnect handles "disconnect".
func (c *Commands) Disconnect([]string) string {
	if n := c.Proxy.Disconnect(); n > 0 {
		return fmt.Sprintf("disconnecting %d connections", n)
	}
	return "disconnect - no connections"
}

// Latency handles "latency [ms]", 0 without argument.
func (c *Commands) Latency(args []string) string {
	return fmt.Sprintf("latency %d ms", c.Modes.SetLatency(cstr.Atoi(firstArg(args))))
}

// Loss handles "loss [pct]", 0 without argument.
func (c *Commands) Loss(args []string) string {
	return fmt.Sprintf("loss %d%%", c.Modes.SetLoss(cstr.Atoi(firstArg(args))))
}

func firstArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// NewShell creates the interactive shell.
func (c *Commands) NewShell() *ishell.Shell {
	sh := ishell.New()
	sh.SetPrompt(Prompt)
	for _, cmd := range []struct {
		name, help string
		fn         func([]string) string
	}{
		{"data", "[on|off] - Turns data transmissions, both upload and download. Omit to toggle.", c.Data},
		{"disconnect", "- Disconnect cloud connections.", c.Disconnect},
		{"latency", "[ms] - Simulate a high-latency network like satellite.", c.Latency},
		{"loss", "[pct] - Randomly lose pct percent of packets (0 <= pct <= 100).", c.Loss},
	} {
		fn := cmd.fn
		sh.AddCmd(&ishell.Cmd{
			Name: cmd.name,
			Help: cmd.help,
			Func: func(ctx *ishell.Context) {
				ctx.Println(fn(ctx.Args))
			},
		})
	}
	return sh
}
