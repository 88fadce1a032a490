package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/cloudtest/pkg/cloud"
	"github.com/robotalks/cloudtest/pkg/cloud/msgs"
	fx "github.com/robotalks/cloudtest/pkg/framework"
)

func TestParseTopic(t *testing.T) {
	testCases := []struct {
		topic  string
		device string
		kind   TopicKind
		name   string
	}{
		{"dev1/status", "dev1", TopicStatus, ""},
		{"dev1/r", "dev1", TopicResult, ""},
		{"dev1/e/cloudTest", "dev1", TopicEvent, "cloudTest"},
		{"dev1/e/spark/device/session/end", "dev1", TopicEvent, "spark/device/session/end"},
		{"dev1/f/digitalread", "dev1", TopicFunction, "digitalread"},
		{"dev1/f/a/b", "dev1", TopicUnknown, ""},
		{"dev1", "", TopicUnknown, ""},
		{"/status", "", TopicUnknown, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.topic, func(t *testing.T) {
			device, kind, name := ParseTopic(tc.topic)
			assert.Equal(t, tc.device, device)
			assert.Equal(t, tc.kind, kind)
			assert.Equal(t, tc.name, name)
		})
	}
}

func TestDeviceTopics(t *testing.T) {
	topics := DeviceTopics("abc")
	assert.Equal(t, "abc/status", topics.Status())
	assert.Equal(t, "abc/e/cloudTest", topics.Event("cloudTest"))
	assert.Equal(t, "abc/f/+", topics.Functions())
	assert.Equal(t, "abc/r", topics.Result())
	assert.True(t, MatchTopic(topics.Function("analogread"), topics.Functions()))
	assert.True(t, MatchTopic(topics.Status(), AllStatus))
}

func TestSessionOffline(t *testing.T) {
	s, err := NewSession("mqtt://localhost:1883/cloudtest/", "dev1")
	require.NoError(t, err)
	require.False(t, s.Connected())
	require.Equal(t, cloud.ErrNotConnected, s.Publish("cloudTest", "testEventCount=0", cloud.Private))

	require.Equal(t, DefaultKeepAlive, s.KeepAlive())
	require.NoError(t, s.SetKeepAlive(15*time.Second))
	require.Equal(t, 15*time.Second, s.KeepAlive())
	require.Error(t, s.SetKeepAlive(0))

	_, err = NewSession("mqtt://localhost:1883", "")
	require.Error(t, err)
}

func TestSessionEvent(t *testing.T) {
	s, err := NewSession("mqtt://localhost:1883", "dev1")
	require.NoError(t, err)
	at := time.Unix(1500000000, 0)
	s.Now = func() time.Time { return at }
	evt := s.newEvent("spark/device/session/end", "", cloud.Private)
	assert.True(t, evt.Private)
	assert.EqualValues(t, 60, evt.Ttl)
	assert.True(t, at.Equal(evt.Time()))
}

func TestSessionHandleCall(t *testing.T) {
	s, err := NewSession("mqtt://localhost:1883", "dev1")
	require.NoError(t, err)
	loop := fx.NewLoop()
	var calls []cloud.Call
	loop.AddController(fx.PrLvControl, fx.ControlFunc(func(cc fx.ControlContext) error {
		cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
			if msg, ok := mctx.CurrentMessage().(*cloud.CallMsg); ok {
				mctx.MessageTaken()
				calls = append(calls, msg.Call)
			}
		}))
		return nil
	}))

	payload, err := msgs.Encode(&msgs.FunctionCall{RequestId: "r1", Name: "digitalread", Arg: "D7"})
	require.NoError(t, err)

	// dropped before the loop runs.
	s.handleCall("dev1/f/digitalread", payload)
	loop.Iterate(context.Background())
	require.Empty(t, calls)

	s.loopCtl = loop
	s.handleCall("dev1/f/digitalread", payload)
	s.handleCall("dev1/f/analogread", []byte{0xff, 0xff})
	s.handleCall("dev1/r", payload)
	loop.Iterate(context.Background())
	require.Len(t, calls, 1)
	assert.Equal(t, "digitalread", calls[0].Function())
	assert.Equal(t, "D7", calls[0].Arg())
	// replying without a client must not fail.
	assert.NoError(t, calls[0].Done(1))
}
