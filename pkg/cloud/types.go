// Package cloud defines the device side view of the cloud connection:
// a Session for connectivity and events, and Functions which executes
// remote function calls inside the firmware loop.
package cloud

import (
	"errors"
	"fmt"
	"time"

	fx "github.com/robotalks/cloudtest/pkg/framework"
)

// Scope is the visibility of a published event.
type Scope int

// Scopes
const (
	Public Scope = iota
	Private
)

func (s Scope) String() string {
	if s == Private {
		return "private"
	}
	return "public"
}

// DefaultEventTTL is the ttl attached to published events.
const DefaultEventTTL = 60 * time.Second

// Session is the connection to the cloud. Calls are fire-and-forget,
// completion is only observable through Connected.
type Session interface {
	// Connect starts connecting in background.
	Connect() error
	// Disconnect closes the connection.
	Disconnect() error
	// Connected reports whether the session is currently connected.
	Connected() bool
	// SetKeepAlive sets the keep-alive interval.
	SetKeepAlive(time.Duration) error
	// Publish sends an event.
	Publish(name, data string, scope Scope) error
}

var (
	// ErrNotConnected indicates the session is not connected.
	ErrNotConnected = errors.New("not connected")
)

// Call is a pending remote function invocation.
type Call interface {
	// Function is the name of the invoked function.
	Function() string
	// Arg is the string argument.
	Arg() string
	// Done replies the return value.
	Done(result int) error
	// Fail replies an error.
	Fail(err error) error
}

// CallMsg wraps a Call as a loop Message.
type CallMsg struct {
	Call Call
}

// NewMessage implements Message.
func (m *CallMsg) NewMessage() fx.Message { return &CallMsg{} }

// ErrUnknownFunction is replied when the function isn't registered.
type ErrUnknownFunction struct {
	Name string
}

// Error implements error.
func (e *ErrUnknownFunction) Error() string {
	return fmt.Sprintf("unknown function: %q", e.Name)
}
