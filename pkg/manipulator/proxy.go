package manipulator

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/cloudtest/pkg/framework"
)

// MaxPacketSize bounds a single datagram.
const MaxPacketSize = 65536

// Proxy relays datagrams between devices and the device service. Every
// device address gets its own upstream socket so replies can be routed
// back.
type Proxy struct {
	Upstream *net.UDPAddr
	Modes    *Modes
	// Trace receives one line per packet, os.Stdout if nil.
	Trace io.Writer

	conn      *net.UDPConn
	lock      sync.Mutex
	devices   map[string]*device
	traceLock sync.Mutex
}

type device struct {
	addr *net.UDPAddr
	conn *net.UDPConn
}

// NewProxy listens on listenAddr and relays to upstream.
func NewProxy(listenAddr string, upstream *net.UDPAddr, modes *Modes) (*Proxy, error) {
	laddr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}
	if modes == nil {
		modes = NewModes()
	}
	return &Proxy{
		Upstream: upstream,
		Modes:    modes,
		conn:     conn,
		devices:  make(map[string]*device),
	}, nil
}

// Addr is the local address devices send to.
func (p *Proxy) Addr() *net.UDPAddr {
	return p.conn.LocalAddr().(*net.UDPAddr)
}

// Run implements Runnable.
func (p *Proxy) Run(ctx context.Context) error {
	glog.Infof("server listening %s, device service %s", p.Addr(), p.Upstream)
	err := fx.RunWithContextCloser(ctx, p.conn, p.serve)
	p.Disconnect()
	return err
}

func (p *Proxy) serve() error {
	buf := make([]byte, MaxPacketSize)
	for {
		n, addr, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		dev, err := p.device(addr)
		if err != nil {
			glog.Errorf("device %s: %v", addr, err)
			continue
		}
		msg := make([]byte, n)
		copy(msg, buf[:n])
		p.forward(">", msg, func() {
			if _, err := dev.conn.Write(msg); err != nil {
				glog.V(1).Infof("to cloud %s: %v", addr, err)
			}
		})
	}
}

func (p *Proxy) device(addr *net.UDPAddr) (*device, error) {
	key := addr.String()
	p.lock.Lock()
	defer p.lock.Unlock()
	if dev := p.devices[key]; dev != nil {
		return dev, nil
	}
	conn, err := net.DialUDP("udp", nil, p.Upstream)
	if err != nil {
		return nil, err
	}
	dev := &device{addr: addr, conn: conn}
	p.devices[key] = dev
	p.tracef("new device %s", key)
	go p.downstream(dev)
	return dev, nil
}

func (p *Proxy) downstream(dev *device) {
	buf := make([]byte, MaxPacketSize)
	for {
		n, err := dev.conn.Read(buf)
		if err != nil {
			glog.V(1).Infof("device %s socket closed: %v", dev.addr, err)
			return
		}
		msg := make([]byte, n)
		copy(msg, buf[:n])
		p.forward("<", msg, func() {
			if _, err := p.conn.WriteToUDP(msg, dev.addr); err != nil {
				glog.V(1).Infof("to device %s: %v", dev.addr, err)
			}
		})
	}
}

func (p *Proxy) forward(dir string, msg []byte, send func()) {
	if !p.Modes.Pass() {
		p.tracef("%s %d discarded", dir, len(msg))
		return
	}
	latency := p.Modes.Latency()
	if latency <= 0 {
		p.tracef("%s %d", dir, len(msg))
		send()
		return
	}
	p.tracef("%s %d queued", dir, len(msg))
	time.AfterFunc(latency, func() {
		p.tracef("%s %d", dir, len(msg))
		send()
	})
}

// Disconnect closes all device sockets and returns the number closed.
// Devices get new sockets when they send again.
func (p *Proxy) Disconnect() int {
	p.lock.Lock()
	devices := p.devices
	p.devices = make(map[string]*device)
	p.lock.Unlock()
	for _, dev := range devices {
		dev.conn.Close()
	}
	return len(devices)
}

// Devices returns the number of known devices.
func (p *Proxy) Devices() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.devices)
}

func (p *Proxy) tracef(format string, args ...interface{}) {
	w := p.Trace
	if w == nil {
		w = os.Stdout
	}
	p.traceLock.Lock()
	fmt.Fprintf(w, format+"\n", args...)
	p.traceLock.Unlock()
}
