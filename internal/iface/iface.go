// Package iface is an in-memory stand-in for a hardware interface manager:
// it keeps just enough state — which interfaces exist, which multicast
// groups are joined on each, and link-state subscribers — for the MLDP
// engine and its tests to exercise the real contract.IfaceManager
// interface without a hardware driver underneath.
package iface

import (
	"net"
	"sync"

	"netstack/internal/contract"
	"netstack/internal/nerr"
)

func errIfaceNotFound(ifNbr int) error { return nerr.InvalidArg }

type ifaceState struct {
	valid      bool
	linkLocal  net.IP
	mcastGrps  map[string]int // group string -> refcount
	subscribers []contract.LinkStateHandler
}

// Manager is an in-memory contract.IfaceManager.
type Manager struct {
	mu    sync.Mutex
	ifces map[int]*ifaceState
}

func New() *Manager {
	return &Manager{ifces: make(map[int]*ifaceState)}
}

// AddIface registers a fake interface with the given link-local address.
func (m *Manager) AddIface(ifNbr int, linkLocal net.IP) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ifces[ifNbr] = &ifaceState{
		valid:     true,
		linkLocal: linkLocal,
		mcastGrps: make(map[string]int),
	}
}

func (m *Manager) IsValid(ifNbr int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.ifces[ifNbr]
	return ok && s.valid
}

func (m *Manager) AddrMulticastAdd(ifNbr int, group net.IP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.ifces[ifNbr]
	if !ok {
		return errIfaceNotFound(ifNbr)
	}
	s.mcastGrps[group.String()]++
	return nil
}

func (m *Manager) AddrMulticastRemove(ifNbr int, group net.IP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.ifces[ifNbr]
	if !ok {
		return errIfaceNotFound(ifNbr)
	}
	key := group.String()
	if s.mcastGrps[key] > 0 {
		s.mcastGrps[key]--
		if s.mcastGrps[key] == 0 {
			delete(s.mcastGrps, key)
		}
	}
	return nil
}

func (m *Manager) LinkLocalAddr(ifNbr int) (net.IP, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.ifces[ifNbr]
	if !ok {
		return nil, false
	}
	return s.linkLocal, true
}

func (m *Manager) LinkStateSubscribe(ifNbr int, h contract.LinkStateHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.ifces[ifNbr]
	if !ok {
		return errIfaceNotFound(ifNbr)
	}
	s.subscribers = append(s.subscribers, h)
	return nil
}

func (m *Manager) LinkStateUnsubscribe(ifNbr int, h contract.LinkStateHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.ifces[ifNbr]
	if !ok {
		return errIfaceNotFound(ifNbr)
	}
	// Handlers aren't comparable in general; the fake only needs to drop
	// the most recently added one, which is all the MLDP engine ever
	// subscribes per interface.
	if len(s.subscribers) > 0 {
		s.subscribers = s.subscribers[:len(s.subscribers)-1]
	}
	return nil
}

// NotifyLinkState fires every subscriber on ifNbr with state, for tests
// that exercise the MLDP engine's link-down/link-up reaction.
func (m *Manager) NotifyLinkState(ifNbr int, state contract.LinkState) {
	m.mu.Lock()
	s, ok := m.ifces[ifNbr]
	var subs []contract.LinkStateHandler
	if ok {
		subs = append(subs, s.subscribers...)
	}
	m.mu.Unlock()
	for _, h := range subs {
		h(ifNbr, state)
	}
}

// McastGroups returns the set of multicast groups currently joined on
// ifNbr, for test assertions.
func (m *Manager) McastGroups(ifNbr int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.ifces[ifNbr]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(s.mcastGrps))
	for g := range s.mcastGrps {
		out = append(out, g)
	}
	return out
}

var _ contract.IfaceManager = (*Manager)(nil)
