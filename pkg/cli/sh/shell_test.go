package sh

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/cloudtest/pkg/cloud/mqtt"
	"github.com/robotalks/cloudtest/pkg/cloud/msgs"
)

type fakeCloud struct {
	devices  []mqtt.DeviceStatus
	results  map[string]int
	calls    []string
	watching []string
	handler  func(string, *msgs.Event)
}

func (c *fakeCloud) Devices(ctx context.Context) []mqtt.DeviceStatus {
	<-ctx.Done()
	return c.devices
}

func (c *fakeCloud) Call(ctx context.Context, device, function, arg string) (int, error) {
	c.calls = append(c.calls, device+":"+function+"("+arg+")")
	if result, ok := c.results[function]; ok {
		return result, nil
	}
	<-ctx.Done()
	return 0, ctx.Err()
}

func (c *fakeCloud) Watch(device string, handler func(string, *msgs.Event)) *mqtt.Subscription {
	c.watching = append(c.watching, device)
	c.handler = handler
	return nil
}

func newTestShell(cloud *fakeCloud) *Shell {
	conf := NewConfig()
	conf.DiscoverTime = time.Millisecond
	return &Shell{Config: conf, Cloud: cloud}
}

func TestShellCall(t *testing.T) {
	cloud := &fakeCloud{results: map[string]int{"digitalread": 1}}
	s := newTestShell(cloud)

	_, err := s.Call("digitalread", "D7")
	require.Error(t, err)
	require.Empty(t, cloud.calls)

	s.Use("dev1")
	result, err := s.Call("digitalread", "D7")
	require.NoError(t, err)
	assert.Equal(t, 1, result)
	assert.Equal(t, []string{"dev1:digitalread(D7)"}, cloud.calls)

	_, err = s.Call("analogread", "A0")
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestShellDevices(t *testing.T) {
	cloud := &fakeCloud{devices: []mqtt.DeviceStatus{{ID: "a", Online: true}, {ID: "b"}}}
	s := newTestShell(cloud)
	assert.Equal(t, cloud.devices, s.Devices())
}

func TestShellWatch(t *testing.T) {
	cloud := &fakeCloud{}
	s := newTestShell(cloud)
	require.Error(t, s.Watch(nil))

	s.Use("dev1")
	var lines []string
	require.NoError(t, s.Watch(func(format string, args ...interface{}) {
		lines = append(lines, args[0].(string))
	}))
	require.Equal(t, []string{"dev1"}, cloud.watching)
	at := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	cloud.handler("dev1", &msgs.Event{
		Name:        "cloudTest",
		Data:        "testEventCount=3",
		Private:     true,
		PublishedAt: at.UnixNano() / int64(time.Millisecond),
	})
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `dev1 [private] cloudTest "testEventCount=3"`)
}

func TestFormatEventJSON(t *testing.T) {
	s := newTestShell(&fakeCloud{})
	s.OutputJSON = true
	out := s.FormatEvent("dev1", &msgs.Event{Name: "spark/device/session/end", Private: true, Ttl: 60})
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "dev1", decoded["device"])
	assert.Equal(t, "spark/device/session/end", decoded["name"])
	assert.Equal(t, true, decoded["private"])
	assert.EqualValues(t, 60, decoded["ttl"])
}
