package ipv6util

import (
	"net"
	"testing"
)

func TestIsAddrMcast(t *testing.T) {
	h := New()
	if !h.IsAddrMcast(net.ParseIP("ff02::1")) {
		t.Fatal("ff02::1 should be multicast")
	}
	if h.IsAddrMcast(net.ParseIP("fe80::1")) {
		t.Fatal("fe80::1 should not be multicast")
	}
}

func TestIsAddrMcastAllNodes(t *testing.T) {
	h := New()
	if !h.IsAddrMcastAllNodes(net.ParseIP("ff02::1")) {
		t.Fatal("ff02::1 should be all-nodes")
	}
	if !h.IsAddrMcastAllNodes(net.ParseIP("ff01::1")) {
		t.Fatal("ff01::1 should be all-nodes")
	}
	if h.IsAddrMcastAllNodes(net.ParseIP("ff02::2")) {
		t.Fatal("ff02::2 (all-routers) should not be all-nodes")
	}
	if h.IsAddrMcastAllNodes(net.ParseIP("ff05::1:3")) {
		t.Fatal("ff05::1:3 should not be all-nodes")
	}
}

func TestIsAddrLinkLocal(t *testing.T) {
	h := New()
	if !h.IsAddrLinkLocal(net.ParseIP("fe80::1")) {
		t.Fatal("fe80::1 should be link-local")
	}
	if h.IsAddrLinkLocal(net.ParseIP("2001:db8::1")) {
		t.Fatal("2001:db8::1 should not be link-local")
	}
}

func TestGetAddrScope(t *testing.T) {
	h := New()
	if got := h.GetAddrScope(net.ParseIP("ff02::1")); got != 0x02 {
		t.Errorf("scope = %d, want 2", got)
	}
	if got := h.GetAddrScope(net.ParseIP("ff05::1:3")); got != 0x05 {
		t.Errorf("scope = %d, want 5", got)
	}
	if got := h.GetAddrScope(net.ParseIP("2001:db8::1")); got != -1 {
		t.Errorf("scope of unicast = %d, want -1", got)
	}
}

func TestGetAddrMatchingLen(t *testing.T) {
	h := New()
	a := net.ParseIP("2001:db8::1")
	b := net.ParseIP("2001:db8::2")
	if got := h.GetAddrMatchingLen(a, b); got < 64 {
		t.Errorf("matching len = %d, want >= 64", got)
	}
	c := net.ParseIP("fe80::1")
	if got := h.GetAddrMatchingLen(a, c); got >= 16 {
		t.Errorf("matching len = %d, want < 16", got)
	}
}
