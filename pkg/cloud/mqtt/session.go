// Package mqtt implements the cloud session over an MQTT broker.
package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cloudtest/pkg/cloud"
	"github.com/robotalks/cloudtest/pkg/cloud/msgs"
	fx "github.com/robotalks/cloudtest/pkg/framework"
)

// DefaultKeepAlive is the keep-alive used until SetKeepAlive is called.
const DefaultKeepAlive = 23 * time.Minute

// Session implements cloud.Session.
type Session struct {
	Queue  *Queue
	Topics Topics
	// Now is used to timestamp events, time.Now if nil.
	Now func() time.Time

	keepAlive time.Duration
	loopCtl   fx.LoopControl
	lock      sync.Mutex
}

// NewSession creates a Session for the device.
func NewSession(brokerURL, deviceID string) (*Session, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id required")
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID("cloudtest:" + deviceID)
	}
	opts.SetKeepAlive(DefaultKeepAlive)
	s := &Session{
		Queue:     NewQueue(opts, topicPrefix),
		Topics:    DeviceTopics(deviceID),
		keepAlive: DefaultKeepAlive,
	}
	s.Queue.SetWill(s.Topics.Status(), []byte(StatusOffline))
	s.Queue.OnConnect = func(q *Queue) {
		q.PubWith(s.Topics.Status(), []byte(StatusOnline), 1, true)
	}
	return s, nil
}

// Connect implements cloud.Session.
func (s *Session) Connect() error {
	token := s.Queue.Connect()
	go func() {
		if token.Wait(); token.Error() != nil {
			glog.Warningf("connect failed: %v", token.Error())
		}
	}()
	return nil
}

// Disconnect implements cloud.Session.
func (s *Session) Disconnect() error {
	if s.Queue.Connected() {
		token := s.Queue.PubWith(s.Topics.Status(), []byte(StatusOffline), 1, true)
		token.WaitTimeout(time.Second)
	}
	s.Queue.Disconnect(250)
	return nil
}

// Connected implements cloud.Session.
func (s *Session) Connected() bool {
	return s.Queue.Connected()
}

// SetKeepAlive implements cloud.Session. The broker negotiates keep-alive
// when connecting, so the value applies from the next connection.
func (s *Session) SetKeepAlive(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("invalid keep-alive %v", d)
	}
	s.lock.Lock()
	s.keepAlive = d
	s.lock.Unlock()
	s.Queue.SetKeepAlive(d)
	if s.Queue.Connected() {
		glog.Infof("keep-alive %v applies from next connection", d)
	}
	return nil
}

// KeepAlive returns the configured keep-alive.
func (s *Session) KeepAlive() time.Duration {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.keepAlive
}

// Publish implements cloud.Session.
func (s *Session) Publish(name, data string, scope cloud.Scope) error {
	if !s.Queue.Connected() {
		return cloud.ErrNotConnected
	}
	payload, err := msgs.Encode(s.newEvent(name, data, scope))
	if err != nil {
		return err
	}
	s.Queue.PubWith(s.Topics.Event(name), payload, 1, false)
	return nil
}

func (s *Session) newEvent(name, data string, scope cloud.Scope) *msgs.Event {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return &msgs.Event{
		Name:        name,
		Data:        data,
		Ttl:         int32(cloud.DefaultEventTTL / time.Second),
		Private:     scope == cloud.Private,
		PublishedAt: now().UnixNano() / int64(time.Millisecond),
	}
}

// AddToLoop implements LoopAdder.
func (s *Session) AddToLoop(l *fx.Loop) {
	l.AddRunnable(fx.NamedRun("cloud-session", s))
}

// Run implements Runnable. It receives function calls and hands them
// to the loop until ctx is done, then disconnects.
func (s *Session) Run(ctx context.Context) error {
	s.lock.Lock()
	s.loopCtl = fx.LoopCtlFrom(ctx)
	s.lock.Unlock()
	sub := s.Queue.Sub(s.Topics.Functions(), s.handleCall)
	<-ctx.Done()
	sub.Close()
	return s.Disconnect()
}

func (s *Session) handleCall(topic string, payload []byte) {
	_, kind, name := ParseTopic(topic)
	if kind != TopicFunction {
		return
	}
	req, err := msgs.DecodeFunctionCall(payload)
	if err != nil {
		glog.Warningf("bad function call on %q: %v", topic, err)
		return
	}
	s.lock.Lock()
	loopCtl := s.loopCtl
	s.lock.Unlock()
	if loopCtl == nil {
		glog.Warningf("call %s dropped, loop not running", name)
		return
	}
	loopCtl.PostMessage(&cloud.CallMsg{Call: &call{session: s, name: name, req: req}})
	loopCtl.TriggerNext()
}

type call struct {
	session *Session
	name    string
	req     *msgs.FunctionCall
}

func (c *call) Function() string { return c.name }
func (c *call) Arg() string      { return c.req.Arg }

func (c *call) Done(result int) error {
	return c.reply(&msgs.FunctionResult{RequestId: c.req.RequestId, Name: c.name, ReturnValue: int32(result)})
}

func (c *call) Fail(err error) error {
	return c.reply(&msgs.FunctionResult{RequestId: c.req.RequestId, Name: c.name, Error: err.Error()})
}

func (c *call) reply(res *msgs.FunctionResult) error {
	payload, err := msgs.Encode(res)
	if err != nil {
		return err
	}
	c.session.Queue.PubWith(c.session.Topics.Result(), payload, 1, false)
	return nil
}
