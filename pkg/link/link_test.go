package link

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/cloudtest/pkg/framework"
)

func TestMonitorTransitions(t *testing.T) {
	var out bytes.Buffer
	cellular, cloud := NewStatic(false), NewStatic(false)
	loop := fx.NewLoop().Add(NewMonitor(&out, cellular, cloud))
	ctx := context.Background()

	loop.Iterate(ctx)
	require.Empty(t, out.String())

	cellular.Set(true)
	loop.Iterate(ctx)
	require.Equal(t, "cellular connected\r\n", out.String())

	out.Reset()
	cloud.Set(true)
	loop.Iterate(ctx)
	loop.Iterate(ctx)
	require.Equal(t, "cloud connected\r\n", out.String())

	out.Reset()
	cellular.Set(false)
	cloud.Set(false)
	loop.Iterate(ctx)
	require.Equal(t, "cellular disconnected\r\ncloud disconnected\r\n", out.String())
}

func TestMonitorWithoutCellular(t *testing.T) {
	var out bytes.Buffer
	m := NewMonitor(&out, nil, Func(func() bool { return true }))
	require.NoError(t, m.Control(nil))
	require.Equal(t, "cloud connected\r\n", out.String())
}

func TestNetInterface(t *testing.T) {
	ifaces := []net.Interface{
		{Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
		{Name: "wwan0", Flags: 0},
		{Name: "eth0", Flags: net.FlagUp},
	}
	addrs := map[string][]net.Addr{
		"lo":    {&net.IPNet{IP: net.IPv4(127, 0, 0, 1)}},
		"wwan0": {&net.IPNet{IP: net.IPv4(10, 0, 0, 2)}},
	}
	newLink := func(name string) *NetInterface {
		return &NetInterface{
			Name:       name,
			Interfaces: func() ([]net.Interface, error) { return ifaces, nil },
			Addrs:      func(iface net.Interface) ([]net.Addr, error) { return addrs[iface.Name], nil },
		}
	}

	assert.True(t, newLink("lo").Ready())
	assert.False(t, newLink("wwan0").Ready())
	assert.False(t, newLink("eth0").Ready())
	assert.False(t, newLink("").Ready())
	assert.False(t, newLink("ppp0").Ready())

	ifaces[1].Flags = net.FlagUp
	assert.True(t, newLink("wwan0").Ready())
	assert.True(t, newLink("").Ready())

	failing := &NetInterface{Interfaces: func() ([]net.Interface, error) { return nil, errors.New("boom") }}
	assert.False(t, failing.Ready())
}
