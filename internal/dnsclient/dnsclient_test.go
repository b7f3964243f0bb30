package dnsclient

import (
	"context"
	"net"
	"testing"
	"time"

	"netstack/internal/contract"
)

// TestCacheKeyDistinguishesFamily verifies IPv4-only and IPv6-only lookups
// of the same name don't collide in the cache.
func TestCacheKeyDistinguishesFamily(t *testing.T) {
	k4 := cacheKey("example.com", contract.DNSFlagIPv4Only)
	k6 := cacheKey("example.com", contract.DNSFlagIPv6Only)
	if k4 == k6 {
		t.Fatalf("expected distinct cache keys, got %q for both", k4)
	}
}

// TestLookupNetworkPicksFamily verifies the family flags map to the
// net.Resolver network strings LookupIP expects.
func TestLookupNetworkPicksFamily(t *testing.T) {
	cases := []struct {
		flags contract.DNSFlags
		want  string
	}{
		{contract.DNSFlagIPv4Only, "ip4"},
		{contract.DNSFlagIPv6Only, "ip6"},
		{0, "ip"},
	}
	for _, c := range cases {
		if got := lookupNetwork(c.flags); got != c.want {
			t.Errorf("lookupNetwork(%v) = %q, want %q", c.flags, got, c.want)
		}
	}
}

// TestMaybeEvictCapsItemCount verifies the cache never grows past maxItems.
func TestMaybeEvictCapsItemCount(t *testing.T) {
	c := New(2, time.Minute)
	for i := 0; i < 5; i++ {
		c.maybeEvict()
		c.cache.SetDefault(cacheKey(string(rune('a'+i)), 0), fwdResult{})
	}
	if n := c.cache.ItemCount(); n > 2 {
		t.Errorf("cache grew to %d items, want <= 2", n)
	}
}

// TestGetHostRejectsEmptyName verifies GetHost validates its arguments
// before touching the resolver or cache.
func TestGetHostRejectsEmptyName(t *testing.T) {
	c := New(16, time.Minute)
	addrTbl := make([]net.IP, 4)
	_, _, result, err := c.GetHost(context.Background(), "", 0, addrTbl)
	if err == nil || result != contract.DNSFailed {
		t.Fatalf("expected DNSFailed with an error for an empty name, got result=%v err=%v", result, err)
	}
}
