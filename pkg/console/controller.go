package console

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/cloudtest/pkg/framework"
)

// DefaultHelpDelay is the time after boot the help banner is printed.
const DefaultHelpDelay = 8 * time.Second

// InputMsg carries bytes received from the console port.
type InputMsg struct {
	Data []byte
}

// NewMessage implements Message.
func (m *InputMsg) NewMessage() fx.Message { return &InputMsg{} }

// Controller attaches a Console to the loop: a background reader posts
// received bytes, the loop feeds them into the line reader and prints
// the help banner once HelpDelay has elapsed.
type Controller struct {
	*Console
	In        io.Reader
	HelpDelay time.Duration

	bannerShown bool
}

// NewController creates a Controller reading from port and echoing to it.
func NewController(port io.ReadWriter, c *Console) *Controller {
	if c.Out == nil {
		c.Out = port
	}
	return &Controller{Console: c, In: port, HelpDelay: DefaultHelpDelay}
}

// AddToLoop implements LoopAdder.
func (c *Controller) AddToLoop(l *fx.Loop) {
	l.AddRunnable(fx.NamedRun("console-reader", fx.RunFunc(c.readInput)))
	l.AddController(fx.PrLvInput, fx.ControlFunc(c.processInput))
	l.AddController(fx.PrLvPostProc, fx.ControlFunc(c.helpBanner))
}

func (c *Controller) readInput(ctx context.Context) error {
	loopCtl := fx.LoopCtlFrom(ctx)
	dataCh := make(chan []byte)
	errCh := make(chan error, 1)
	go func() {
		buf := make([]byte, LineBufferSize)
		for {
			n, err := c.In.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				select {
				case dataCh <- data:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				errCh <- err
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			if closer, ok := c.In.(io.Closer); ok {
				closer.Close()
			}
			return ctx.Err()
		case data := <-dataCh:
			loopCtl.PostMessage(&InputMsg{Data: data})
			loopCtl.TriggerNext()
		case err := <-errCh:
			if err == io.EOF {
				glog.Info("console input closed")
				return nil
			}
			return err
		}
	}
}

func (c *Controller) processInput(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		if msg, ok := mctx.CurrentMessage().(*InputMsg); ok {
			mctx.MessageTaken()
			c.Console.Write(msg.Data)
		}
	}))
	return nil
}

func (c *Controller) helpBanner(cc fx.ControlContext) error {
	if !c.bannerShown && cc.Uptime() >= c.HelpDelay {
		c.bannerShown = true
		c.PrintHelp()
	}
	return nil
}
