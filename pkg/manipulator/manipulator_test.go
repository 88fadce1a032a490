package manipulator

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModes(t *testing.T) {
	m := NewModes()
	assert.True(t, m.Data())
	assert.False(t, m.SetData(""))
	assert.True(t, m.SetData(""))
	assert.False(t, m.SetData("off"))
	assert.False(t, m.SetData("off"))
	assert.True(t, m.SetData("on"))

	assert.Equal(t, 250, m.SetLatency(250))
	assert.Equal(t, 250*time.Millisecond, m.Latency())
	assert.Equal(t, 0, m.SetLatency(-1))

	assert.Equal(t, 100, m.SetLoss(150))
	assert.Equal(t, 0, m.SetLoss(-3))
	assert.Equal(t, 30, m.SetLoss(30))

	m.Rand = func() float64 { return 0.29 }
	assert.False(t, m.Pass())
	m.Rand = func() float64 { return 0.30 }
	assert.True(t, m.Pass())
	m.SetData("off")
	assert.False(t, m.Pass())
}

func TestCommands(t *testing.T) {
	p, err := NewProxy("127.0.0.1:0", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9}, nil)
	require.NoError(t, err)
	defer p.conn.Close()
	c := &Commands{Proxy: p, Modes: p.Modes}

	assert.Equal(t, "data off", c.Data(nil))
	assert.Equal(t, "data on", c.Data([]string{"on"}))
	assert.Equal(t, "latency 500 ms", c.Latency([]string{"500"}))
	assert.Equal(t, "latency 0 ms", c.Latency(nil))
	assert.Equal(t, "loss 100%", c.Loss([]string{"250"}))
	assert.Equal(t, "loss 0%", c.Loss(nil))
	assert.Equal(t, "disconnect - no connections", c.Disconnect(nil))

	_, err = p.device(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000})
	require.NoError(t, err)
	_, err = p.device(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40001})
	require.NoError(t, err)
	assert.Equal(t, "disconnecting 2 connections", c.Disconnect(nil))
	assert.Zero(t, p.Devices())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	noEnv := func(string) string { return "" }

	conf, err := LoadConfig(filepath.Join(dir, "missing.json"), false, noEnv, nil)
	require.NoError(t, err)
	assert.Equal(t, "34.201.112.170", conf.DSAddr)
	assert.Equal(t, 5684, conf.DSPort)
	assert.Equal(t, ":5684", conf.ListenAddr())

	_, err = LoadConfig(filepath.Join(dir, "missing.json"), true, noEnv, nil)
	require.Error(t, err)

	jsonFile := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(jsonFile, []byte(`{"DS_ADDR": "10.0.0.1", "DS_PORT": 6000}`), 0644))
	conf, err = LoadConfig(jsonFile, true, noEnv, nil)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", conf.DSAddr)
	assert.Equal(t, 6000, conf.DSPort)

	yamlFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte("DS_ADDR: 10.0.0.2\nLISTEN: 127.0.0.1:7000\n"), 0644))
	env := map[string]string{"DS_PORT": "7001"}
	conf, err = LoadConfig(yamlFile, true, func(key string) string { return env[key] }, nil)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", conf.DSAddr)
	assert.Equal(t, 7001, conf.DSPort)
	assert.Equal(t, "127.0.0.1:7000", conf.ListenAddr())

	env["DS_ADDR"] = "10.0.0.3"
	conf, err = LoadConfig(yamlFile, true, func(key string) string { return env[key] }, func(c *Config) {
		c.DSAddr = "10.0.0.4"
	})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.4", conf.DSAddr)

	env["DS_PORT"] = "x"
	_, err = LoadConfig("", false, func(key string) string { return env[key] }, nil)
	require.Error(t, err)
}

type syncBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return strings.Split(strings.TrimSpace(b.buf.String()), "\n")
}

func startEcho(t *testing.T) *net.UDPConn {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	go func() {
		buf := make([]byte, 1024)
		for {
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			conn.WriteToUDP(append([]byte("re:"), buf[:n]...), addr)
		}
	}()
	return conn
}

func startProxy(t *testing.T, upstream *net.UDPAddr) (*Proxy, *syncBuffer, *net.UDPConn, func()) {
	p, err := NewProxy("127.0.0.1:0", upstream, nil)
	require.NoError(t, err)
	trace := &syncBuffer{}
	p.Trace = trace
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	client, err := net.DialUDP("udp", nil, p.Addr())
	require.NoError(t, err)
	return p, trace, client, func() {
		client.Close()
		cancel()
		<-done
	}
}

func receive(t *testing.T, conn *net.UDPConn, timeout time.Duration) (string, error) {
	buf := make([]byte, 1024)
	conn.SetReadDeadline(time.Now().Add(timeout))
	n, err := conn.Read(buf)
	return string(buf[:n]), err
}

func TestProxyRelay(t *testing.T) {
	echo := startEcho(t)
	defer echo.Close()
	p, trace, client, stop := startProxy(t, echo.LocalAddr().(*net.UDPAddr))
	defer stop()

	_, err := client.Write([]byte("hello"))
	require.NoError(t, err)
	reply, err := receive(t, client, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "re:hello", reply)
	assert.Equal(t, 1, p.Devices())
	lines := trace.Lines()
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "new device 127.0.0.1:"))
	assert.Equal(t, []string{"> 5", "< 8"}, lines[1:])
}

func TestProxyLatency(t *testing.T) {
	echo := startEcho(t)
	defer echo.Close()
	p, trace, client, stop := startProxy(t, echo.LocalAddr().(*net.UDPAddr))
	defer stop()

	p.Modes.SetLatency(20)
	start := time.Now()
	_, err := client.Write([]byte("slow"))
	require.NoError(t, err)
	reply, err := receive(t, client, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "re:slow", reply)
	assert.True(t, time.Since(start) >= 40*time.Millisecond)
	assert.Equal(t, []string{"> 4 queued", "> 4", "< 7 queued", "< 7"}, trace.Lines()[1:])
}

func TestProxyDataOff(t *testing.T) {
	echo := startEcho(t)
	defer echo.Close()
	p, trace, client, stop := startProxy(t, echo.LocalAddr().(*net.UDPAddr))
	defer stop()

	p.Modes.SetData("off")
	_, err := client.Write([]byte("lost"))
	require.NoError(t, err)
	_, err = receive(t, client, 100*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, "> 4 discarded", trace.Lines()[1])
}
