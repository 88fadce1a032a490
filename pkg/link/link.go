// Package link reports the state of the device's network links and
// prints connectivity transitions on the console.
package link

import (
	"net"
	"sync/atomic"

	"github.com/golang/glog"
)

// Link is a network link which can be queried for readiness.
type Link interface {
	Ready() bool
}

// Func is the func form of Link.
type Func func() bool

// Ready implements Link.
func (f Func) Ready() bool { return f() }

// NetInterface is a Link backed by host network interfaces. The link is
// ready when the interface is up and has an address. With an empty Name,
// any non-loopback interface counts.
type NetInterface struct {
	Name string
	// Interfaces lists host interfaces, net.Interfaces if nil.
	Interfaces func() ([]net.Interface, error)
	// Addrs lists addresses of an interface, iface.Addrs if nil.
	Addrs func(net.Interface) ([]net.Addr, error)
}

// Ready implements Link.
func (n *NetInterface) Ready() bool {
	list := net.Interfaces
	if n.Interfaces != nil {
		list = n.Interfaces
	}
	ifaces, err := list()
	if err != nil {
		glog.V(1).Infof("list interfaces: %v", err)
		return false
	}
	for _, iface := range ifaces {
		if n.Name != "" && iface.Name != n.Name {
			continue
		}
		if n.Name == "" && iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if n.hasAddr(iface) {
			return true
		}
	}
	return false
}

func (n *NetInterface) hasAddr(iface net.Interface) bool {
	var addrs []net.Addr
	var err error
	if n.Addrs != nil {
		addrs, err = n.Addrs(iface)
	} else {
		addrs, err = iface.Addrs()
	}
	if err != nil {
		glog.V(1).Infof("addresses of %s: %v", iface.Name, err)
		return false
	}
	return len(addrs) > 0
}

// Static is a Link whose state is set explicitly.
type Static struct {
	ready int32
}

// NewStatic creates a Static link.
func NewStatic(ready bool) *Static {
	s := &Static{}
	s.Set(ready)
	return s
}

// Set changes the state.
func (s *Static) Set(ready bool) {
	var v int32
	if ready {
		v = 1
	}
	atomic.StoreInt32(&s.ready, v)
}

// Ready implements Link.
func (s *Static) Ready() bool {
	return atomic.LoadInt32(&s.ready) != 0
}
