package mqtt

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/robotalks/cloudtest/pkg/cloud/msgs"
)

// DefaultCallExpiration is how long a call waits for its result.
const DefaultCallExpiration = 1 * time.Second

// ErrCallFailed is wrapped by CallResult.Err when the device replies an error.
var ErrCallFailed = errors.New("call failed")

// DeviceStatus is the retained status of a device.
type DeviceStatus struct {
	ID     string `json:"id"`
	Online bool   `json:"online"`
}

// CallResult is the outcome of a function call.
type CallResult struct {
	Result *msgs.FunctionResult
	Err    error
}

// CallFuture delivers exactly one CallResult.
type CallFuture interface {
	ResultChan() <-chan CallResult
}

// Client is the control plane side of the cloud: it discovers devices,
// calls their functions and watches their events.
type Client struct {
	Queue      *Queue
	Expiration time.Duration

	lock       sync.Mutex
	futures    map[string]*callFuture
	resultSubs map[string]*Subscription
}

// NewClient creates a Client, Connect must be called before use.
func NewClient(brokerURL string) (*Client, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID("cloudctl:" + uuid.New().String())
	}
	return &Client{
		Queue:      NewQueue(opts, topicPrefix),
		Expiration: DefaultCallExpiration,
		futures:    make(map[string]*callFuture),
		resultSubs: make(map[string]*Subscription),
	}, nil
}

// Connect connects to the broker and waits for completion.
func (c *Client) Connect() error {
	token := c.Queue.Connect()
	token.Wait()
	return token.Error()
}

// Close implements io.Closer.
func (c *Client) Close() error {
	c.lock.Lock()
	subs := c.resultSubs
	c.resultSubs = make(map[string]*Subscription)
	c.lock.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
	return c.Queue.Close()
}

// Devices collects retained statuses until ctx is done.
func (c *Client) Devices(ctx context.Context) []DeviceStatus {
	var lock sync.Mutex
	statuses := make(map[string]bool)
	sub := c.Queue.Sub(AllStatus, func(topic string, payload []byte) {
		device, kind, _ := ParseTopic(topic)
		if kind != TopicStatus {
			return
		}
		lock.Lock()
		statuses[device] = string(payload) == StatusOnline
		lock.Unlock()
	})
	<-ctx.Done()
	sub.Close()

	lock.Lock()
	defer lock.Unlock()
	devices := make([]DeviceStatus, 0, len(statuses))
	for id, online := range statuses {
		devices = append(devices, DeviceStatus{ID: id, Online: online})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}

// DoCall sends a function call. The future fails with
// context.DeadlineExceeded if no result arrives within Expiration.
func (c *Client) DoCall(device, function, arg string) CallFuture {
	req := &msgs.FunctionCall{RequestId: uuid.New().String(), Name: function, Arg: arg}
	f := &callFuture{result: make(chan CallResult, 1)}
	payload, err := msgs.Encode(req)
	if err != nil {
		f.deliver(CallResult{Err: err})
		return f
	}

	topics := DeviceTopics(device)
	c.lock.Lock()
	if _, ok := c.resultSubs[device]; !ok {
		c.resultSubs[device] = c.Queue.Sub(topics.Result(), c.handleResult)
	}
	c.lock.Unlock()
	c.track(req.RequestId, f)

	token := c.Queue.PubWith(topics.Function(function), payload, 1, false)
	go func() {
		if token.Wait(); token.Error() != nil && c.takeFuture(req.RequestId) != nil {
			f.timer.Stop()
			f.deliver(CallResult{Err: token.Error()})
		}
	}()
	return f
}

// Call sends a function call and waits for the return value.
func (c *Client) Call(ctx context.Context, device, function, arg string) (int, error) {
	select {
	case res := <-c.DoCall(device, function, arg).ResultChan():
		if res.Err != nil {
			return 0, res.Err
		}
		return int(res.Result.ReturnValue), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Watch subscribes to events of a device, all devices if device is "+".
func (c *Client) Watch(device string, handler func(device string, evt *msgs.Event)) *Subscription {
	return c.Queue.Sub(DeviceTopics(device).Events(), func(topic string, payload []byte) {
		id, kind, _ := ParseTopic(topic)
		if kind != TopicEvent {
			return
		}
		evt, err := msgs.DecodeEvent(payload)
		if err != nil {
			glog.Warningf("bad event on %q: %v", topic, err)
			return
		}
		handler(id, evt)
	})
}

func (c *Client) handleResult(topic string, payload []byte) {
	res, err := msgs.DecodeFunctionResult(payload)
	if err != nil {
		glog.Warningf("bad result on %q: %v", topic, err)
		return
	}
	f := c.takeFuture(res.RequestId)
	if f == nil {
		glog.V(1).Infof("result %s for unknown request", res.RequestId)
		return
	}
	if f.timer != nil {
		f.timer.Stop()
	}
	result := CallResult{Result: res}
	if res.Error != "" {
		result.Err = &CallError{Function: res.Name, Message: res.Error}
	}
	f.deliver(result)
}

// track registers f and arms its expiration.
func (c *Client) track(requestID string, f *callFuture) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.futures[requestID] = f
	f.timer = time.AfterFunc(c.Expiration, func() {
		if c.takeFuture(requestID) != nil {
			f.deliver(CallResult{Err: context.DeadlineExceeded})
		}
	})
}

func (c *Client) takeFuture(requestID string) *callFuture {
	c.lock.Lock()
	defer c.lock.Unlock()
	f := c.futures[requestID]
	delete(c.futures, requestID)
	return f
}

// CallError is the error replied by the device.
type CallError struct {
	Function string
	Message  string
}

func (e *CallError) Error() string {
	return e.Function + ": " + e.Message
}

// Unwrap makes errors.Is(err, ErrCallFailed) hold.
func (e *CallError) Unwrap() error { return ErrCallFailed }

type callFuture struct {
	timer  *time.Timer
	result chan CallResult
}

func (f *callFuture) ResultChan() <-chan CallResult {
	return f.result
}

// deliver is called by the single owner which removed f from the map.
func (f *callFuture) deliver(res CallResult) {
	f.result <- res
	close(f.result)
}
