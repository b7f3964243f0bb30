// Package dnsclient implements contract.DNSClient over the stdlib
// net.Resolver (the real external DNS resolver at the process boundary)
// with answers cached in github.com/patrickmn/go-cache, giving the resolve
// package's getaddrinfo/getnameinfo a bounded-memory, TTL-expiring cache
// hit path instead of a round trip per lookup.
package dnsclient

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"netstack/internal/contract"
	"netstack/internal/flog"
)

// Client implements contract.DNSClient.
type Client struct {
	resolver *net.Resolver
	cache    *gocache.Cache
	limiter  *rate.Limiter

	mu       sync.Mutex
	maxItems int
}

// New builds a Client whose cache holds at most maxItems entries, each
// expiring after ttl, swept every 2*ttl. Cache misses that actually reach
// the resolver are rate-limited to maxItems lookups/sec (burst maxItems/4,
// floor 1), so a flood of distinct names can't turn into a flood of
// upstream queries.
func New(maxItems int, ttl time.Duration) *Client {
	burst := maxItems / 4
	if burst < 1 {
		burst = 1
	}
	return &Client{
		resolver: net.DefaultResolver,
		cache:    gocache.New(ttl, 2*ttl),
		limiter:  rate.NewLimiter(rate.Limit(maxItems), burst),
		maxItems: maxItems,
	}
}

var _ contract.DNSClient = (*Client)(nil)

type fwdResult struct {
	addrs []net.IP
	canon string
}

// GetHost resolves name into up to len(addrTbl) addresses. DNSFlagIPv4Only
// and DNSFlagIPv6Only narrow the lookup; DNSFlagForceResolution bypasses the
// cache; DNSFlagCanon requests the canonical name alongside the addresses.
func (c *Client) GetHost(ctx context.Context, name string, flags contract.DNSFlags, addrTbl []net.IP) (int, string, contract.DNSResult, error) {
	if name == "" || len(addrTbl) == 0 {
		return 0, "", contract.DNSFailed, fmt.Errorf("dnsclient: invalid argument")
	}

	key := cacheKey(name, flags)
	if flags&contract.DNSFlagForceResolution == 0 {
		if v, ok := c.cache.Get(key); ok {
			res := v.(fwdResult)
			n := copy(addrTbl, res.addrs)
			return n, res.canon, contract.DNSResolved, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, "", contract.DNSFailed, err
	}

	ips, err := c.resolver.LookupIP(ctx, lookupNetwork(flags), name)
	if err != nil {
		flog.Errorf("dnsclient: lookup %s: %v", name, err)
		return 0, "", contract.DNSFailed, err
	}

	canon := ""
	if flags&contract.DNSFlagCanon != 0 {
		cname, err := c.resolver.LookupCNAME(ctx, name)
		if err == nil {
			canon = cname
		}
	}

	c.maybeEvict()
	c.cache.SetDefault(key, fwdResult{addrs: ips, canon: canon})

	n := copy(addrTbl, ips)
	return n, canon, contract.DNSResolved, nil
}

// Reverse performs a reverse (PTR) lookup of ip.
func (c *Client) Reverse(ctx context.Context, ip net.IP) (string, contract.DNSResult, error) {
	key := "ptr:" + ip.String()
	if v, ok := c.cache.Get(key); ok {
		return v.(string), contract.DNSResolved, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", contract.DNSFailed, err
	}

	names, err := c.resolver.LookupAddr(ctx, ip.String())
	if err != nil || len(names) == 0 {
		if err == nil {
			err = fmt.Errorf("dnsclient: no PTR record for %s", ip)
		}
		flog.Errorf("dnsclient: reverse %s: %v", ip, err)
		return "", contract.DNSFailed, err
	}

	c.maybeEvict()
	c.cache.SetDefault(key, names[0])
	return names[0], contract.DNSResolved, nil
}

// maybeEvict drops an arbitrary entry once the cache is at capacity.
// go-cache has no built-in size bound or LRU policy, so this only
// approximates "bounded memory": it caps item count, not recency.
func (c *Client) maybeEvict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxItems <= 0 || c.cache.ItemCount() < c.maxItems {
		return
	}
	for k := range c.cache.Items() {
		c.cache.Delete(k)
		break
	}
}

func cacheKey(name string, flags contract.DNSFlags) string {
	return fmt.Sprintf("%s|%d", name, flags&(contract.DNSFlagIPv4Only|contract.DNSFlagIPv6Only))
}

func lookupNetwork(flags contract.DNSFlags) string {
	switch {
	case flags&contract.DNSFlagIPv4Only != 0:
		return "ip4"
	case flags&contract.DNSFlagIPv6Only != 0:
		return "ip6"
	default:
		return "ip"
	}
}
