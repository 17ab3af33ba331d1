// Package env abstracts the host facilities the page controller reads
// ambiently: the connectivity signal and timers.
package env

import (
	"net"
	"time"
)

// Timer is a scheduled callback that can be stopped before it fires.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer, false if it already fired or was stopped.
	Stop() bool
}

// Environment is injected into every component that needs the host.
type Environment interface {
	// Online reports the host connectivity signal at the moment of the call.
	Online() bool
	// AfterFunc runs f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// System is the Environment of the running process.
type System struct {
	// Interfaces lists network interfaces; defaults to net.Interfaces.
	Interfaces func() ([]net.Interface, error)
}

// NewSystem returns the process Environment.
func NewSystem() *System {
	return &System{Interfaces: net.Interfaces}
}

// Online reports whether any non-loopback interface is up and has an
// address. An error listing interfaces counts as online so that the caller
// falls through to its generic failure path.
func (s *System) Online() bool {
	list := s.Interfaces
	if list == nil {
		list = net.Interfaces
	}
	ifaces, err := list()
	if err != nil {
		return true
	}
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := ifc.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		return true
	}
	return false
}

// AfterFunc wraps time.AfterFunc.
func (s *System) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
