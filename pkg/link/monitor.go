package link

import (
	"fmt"
	"io"

	fx "github.com/robotalks/cloudtest/pkg/framework"
)

// Monitor compares the cellular link and the cloud connection with the
// last observed state every iteration and prints transitions. Both start
// as disconnected, so an already-ready link is reported at the first
// iteration.
type Monitor struct {
	Out      io.Writer
	Cellular Link
	Cloud    Link

	wasCellularConnected bool
	wasCloudConnected    bool
}

// NewMonitor creates a Monitor. cellular may be nil on platforms
// without a cellular modem.
func NewMonitor(out io.Writer, cellular, cloud Link) *Monitor {
	return &Monitor{Out: out, Cellular: cellular, Cloud: cloud}
}

// AddToLoop implements LoopAdder.
func (m *Monitor) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvOutput, m)
}

// Control implements Controller.
func (m *Monitor) Control(fx.ControlContext) error {
	if m.Cellular != nil {
		if ready := m.Cellular.Ready(); ready != m.wasCellularConnected {
			m.wasCellularConnected = ready
			m.println("cellular", ready)
		}
	}
	if m.Cloud != nil {
		if connected := m.Cloud.Ready(); connected != m.wasCloudConnected {
			m.wasCloudConnected = connected
			m.println("cloud", connected)
		}
	}
	return nil
}

func (m *Monitor) println(what string, connected bool) {
	state := "disconnected"
	if connected {
		state = "connected"
	}
	fmt.Fprintf(m.Out, "%s %s\r\n", what, state)
}
