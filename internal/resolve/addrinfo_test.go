package resolve

import (
	"context"
	"net"
	"testing"
)

// TestGetAddrInfoPassiveUnspecifiedFamily verifies AI_PASSIVE with an
// unspecified family and the "http" service produces IPv6 in6addr_any
// first, then IPv4 INADDR_ANY, both on port 80 with TCP as the protocol.
func TestGetAddrInfoPassiveUnspecifiedFamily(t *testing.T) {
	r := NewResolver(16, nil)
	head, code := r.GetAddrInfo(context.Background(), "", "http", Hints{
		Family: AFUnspec,
		Flags:  AIPassive,
	})
	if code != 0 {
		t.Fatalf("GetAddrInfo: %v", code.Error())
	}
	defer r.Free(head)

	if head == nil || head.Next == nil || head.Next.Next != nil {
		t.Fatalf("expected exactly two records")
	}

	first, second := head, head.Next
	if first.Family != AFInet6 {
		t.Errorf("first record family = %d, want AFInet6", first.Family)
	}
	if !first.Addr.Equal(net.IPv6unspecified) {
		t.Errorf("first record addr = %v, want in6addr_any", first.Addr)
	}
	if second.Family != AFInet {
		t.Errorf("second record family = %d, want AFInet", second.Family)
	}
	if !second.Addr.Equal(net.IPv4(0, 0, 0, 0)) {
		t.Errorf("second record addr = %v, want INADDR_ANY", second.Addr)
	}
	for _, ai := range []*AddrInfo{first, second} {
		if ai.Port != 80 {
			t.Errorf("port = %d, want 80", ai.Port)
		}
		if ai.Protocol != ProtoTCP {
			t.Errorf("protocol = %v, want ProtoTCP", ai.Protocol)
		}
	}
}

// TestGetAddrInfoRejectsEmptyNodeAndService verifies neither node nor
// service being given is EAI_NONAME, matching net_bsd.c's first check.
func TestGetAddrInfoRejectsEmptyNodeAndService(t *testing.T) {
	r := NewResolver(16, nil)
	_, code := r.GetAddrInfo(context.Background(), "", "", Hints{})
	if code != EAINoName {
		t.Fatalf("code = %v, want EAINoName", code)
	}
}

// TestGetAddrInfoLiteralIPv4 verifies a dotted-quad node short-circuits DNS
// entirely and returns a single record.
func TestGetAddrInfoLiteralIPv4(t *testing.T) {
	r := NewResolver(16, nil)
	head, code := r.GetAddrInfo(context.Background(), "93.184.216.34", "80", Hints{})
	if code != 0 {
		t.Fatalf("GetAddrInfo: %v", code.Error())
	}
	defer r.Free(head)
	if head.Next != nil {
		t.Fatal("expected a single record for a literal IP")
	}
	if head.Family != AFInet || !head.Addr.Equal(net.ParseIP("93.184.216.34")) {
		t.Errorf("unexpected record: %+v", head)
	}
}

// TestGetAddrInfoBadFlagsRejected verifies an unrecognized ai_flags bit is
// EAI_BADFLAGS rather than being silently ignored.
func TestGetAddrInfoBadFlagsRejected(t *testing.T) {
	r := NewResolver(16, nil)
	_, code := r.GetAddrInfo(context.Background(), "localhost", "", Hints{Flags: 1 << 30})
	if code != EAIBadFlags {
		t.Fatalf("code = %v, want EAIBadFlags", code)
	}
}

// TestAddrInfoPoolBounded verifies the pool refuses to allocate past its
// configured ceiling until nodes are freed.
func TestAddrInfoPoolBounded(t *testing.T) {
	p := newAddrInfoPool(2)
	a, ok := p.get()
	if !ok {
		t.Fatal("expected first get to succeed")
	}
	_, ok = p.get()
	if !ok {
		t.Fatal("expected second get to succeed")
	}
	_, ok = p.get()
	if ok {
		t.Fatal("expected third get to fail at capacity 2")
	}
	p.freeChain(a)
	_, ok = p.get()
	if !ok {
		t.Fatal("expected get to succeed after freeing a node")
	}
}

// TestGetNameInfoNumericHost verifies NINumericHost bypasses any reverse
// lookup collaborator entirely.
func TestGetNameInfoNumericHost(t *testing.T) {
	r := NewResolver(16, nil)
	host, service, code := r.GetNameInfo(context.Background(), net.ParseIP("127.0.0.1"), 80, SockStream, NINumericHost|NINumericServ)
	if code != 0 {
		t.Fatalf("GetNameInfo: %v", code.Error())
	}
	if host != "127.0.0.1" {
		t.Errorf("host = %q, want 127.0.0.1", host)
	}
	if service != "80" {
		t.Errorf("service = %q, want 80", service)
	}
}

// TestGetNameInfoServiceName verifies a well-known port maps back to its
// service name when NINumericServ isn't set.
func TestGetNameInfoServiceName(t *testing.T) {
	r := NewResolver(16, nil)
	_, service, code := r.GetNameInfo(context.Background(), net.ParseIP("127.0.0.1"), 443, SockStream, NINumericHost)
	if code != 0 {
		t.Fatalf("GetNameInfo: %v", code.Error())
	}
	if service != "https" {
		t.Errorf("service = %q, want https", service)
	}
}
