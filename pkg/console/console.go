// Package console implements the serial command console of the device:
// a line reader echoing typed characters and a processor mapping short
// commands onto cloud session calls.
package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cloudtest/pkg/cloud"
	"github.com/robotalks/cloudtest/pkg/x/cstr"
)

const (
	// LineBufferSize is the capacity of the line buffer.
	LineBufferSize = 128
	// MaxTokens is the number of tokens a command line is split into.
	MaxTokens = 10
	// MinKeepAlive is the lower bound of the keep command, in seconds.
	MinKeepAlive = 15

	// TestEventName is published by the pub command.
	TestEventName = "cloudTest"
	// SessionEndEventName is published by the ses command.
	SessionEndEventName = "spark/device/session/end"
)

var helpLines = []string{
	"Enter command followed by Return. Commands are case-sensitive.",
	"con - connect to the Particle cloud",
	"dis - disconnect from the Particle cloud",
	"keep [value] - set the keepAlive value",
	"pub - publish a test event",
	"ses - end session (publish spark/device/session/end)",
}

// Console owns the line buffer and executes completed lines.
// It's not safe for concurrent use, the loop goroutine drives it.
type Console struct {
	Out     io.Writer
	Session cloud.Session

	buf            [LineBufferSize]byte
	off            int
	lastChar       byte
	testEventCount int
}

// New creates a Console writing to out.
func New(out io.Writer, session cloud.Session) *Console {
	return &Console{Out: out, Session: session}
}

// Printf writes a formatted line terminated by CRLF.
func (c *Console) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format+"\r\n", args...)
}

// PrintHelp prints the command summary.
func (c *Console) PrintHelp() {
	for _, line := range helpLines {
		c.Printf("%s", line)
	}
}

// Write feeds received bytes into the line reader. It implements
// io.Writer so a port can be copied straight into it.
func (c *Console) Write(p []byte) (int, error) {
	for _, b := range p {
		c.feed(b)
	}
	return len(p), nil
}

func (c *Console) feed(b byte) {
	defer func() { c.lastChar = b }()
	if c.off >= LineBufferSize {
		c.Printf("line too long, ignoring")
		c.off = 0
	}
	if b == '\r' || b == '\n' {
		if c.off > 0 {
			line := string(c.buf[:c.off])
			c.off = 0
			c.Printf("")
			c.ProcessCommand(line)
		} else if c.lastChar != '\r' {
			c.PrintHelp()
		}
		return
	}
	c.Out.Write([]byte{b})
	c.buf[c.off] = b
	c.off++
}

// Pending returns the partially typed line.
func (c *Console) Pending() string {
	return string(c.buf[:c.off])
}

// Tokenize splits a line on spaces into exactly MaxTokens tokens.
// Runs of spaces collapse, words past MaxTokens are dropped and missing
// tokens are empty.
func Tokenize(line string) []string {
	tokens := make([]string, MaxTokens)
	n := 0
	for _, word := range strings.Split(line, " ") {
		if word == "" {
			continue
		}
		if n >= MaxTokens {
			break
		}
		tokens[n] = word
		n++
	}
	return tokens
}

// ProcessCommand executes a single line.
func (c *Console) ProcessCommand(line string) {
	tokens := Tokenize(line)
	switch tokens[0] {
	case "con":
		c.Printf("* con command - connecting to cloud")
		c.check("connect", c.Session.Connect())
	case "dis":
		c.Printf("* dis command - disconnecting from cloud")
		c.check("disconnect", c.Session.Disconnect())
	case "keep":
		value := cstr.Atoi(tokens[1])
		if value < MinKeepAlive {
			value = MinKeepAlive
		}
		c.Printf("* keep [value] - set the keepAlive value to %d", value)
		c.check("keep-alive", c.Session.SetKeepAlive(time.Duration(value)*time.Second))
	case "pub":
		c.Printf("* pub command - publish event")
		data := fmt.Sprintf("testEventCount=%d", c.testEventCount)
		c.testEventCount++
		c.check("publish", c.Session.Publish(TestEventName, data, cloud.Private))
	case "ses":
		c.Printf("* ses - end session (publish %s)", SessionEndEventName)
		c.check("publish", c.Session.Publish(SessionEndEventName, "", cloud.Private))
	default:
		c.PrintHelp()
	}
}

// TestEventCount is the number of pub commands executed.
func (c *Console) TestEventCount() int {
	return c.testEventCount
}

func (c *Console) check(what string, err error) {
	if err != nil {
		glog.V(1).Infof("%s: %v", what, err)
	}
}
