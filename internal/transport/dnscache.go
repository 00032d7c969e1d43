package transport

import (
	"context"
	"errors"
	"net"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// dnsRefresh is how long a lookup result, successful or not, is reused.
const dnsRefresh = 5 * time.Minute

// resolver is the subset of *net.Resolver used by the cache.
type resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// hostRecord is one cached lookup.
type hostRecord struct {
	addrs     []string
	err       error
	lastQuery time.Time
}

// dnsCache wraps a dial function with cached host resolution. Hosts are
// resolved once per refresh window and dialed by IP afterwards. Failed
// lookups are cached too, so a dead host fails fast until the window ends.
type dnsCache struct {
	resolver resolver
	dial     dialFunc
	cache    *lru.Cache[string, hostRecord]
	now      func() time.Time
}

func newDNSCache(r resolver, dial dialFunc, maxEntries int) (*dnsCache, error) {
	cache, err := lru.New[string, hostRecord](maxEntries)
	if err != nil {
		return nil, err
	}
	return &dnsCache{
		resolver: r,
		dial:     dial,
		cache:    cache,
		now:      time.Now,
	}, nil
}

// DialContext resolves the host of addr through the cache and dials the
// resolved addresses in order until one connects.
func (c *dnsCache) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	if net.ParseIP(host) != nil {
		return c.dial(ctx, network, addr)
	}

	record, err := c.lookup(ctx, host)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, ip := range record.addrs {
		conn, err := c.dial(ctx, network, net.JoinHostPort(ip, port))
		if err == nil {
			return conn, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}

// lookup returns the cached record of host, refreshing it when missing or
// older than dnsRefresh. Lookups interrupted by ctx are not cached.
func (c *dnsCache) lookup(ctx context.Context, host string) (hostRecord, error) {
	key := host
	if record, ok := c.cache.Get(key); ok && c.now().Sub(record.lastQuery) <= dnsRefresh {
		return record, record.err
	}

	addrs, err := c.resolver.LookupHost(ctx, host)
	if err != nil && ctx.Err() != nil {
		return hostRecord{}, err
	}
	if err == nil && len(addrs) == 0 {
		err = &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	record := hostRecord{addrs: addrs, err: err, lastQuery: c.now()}
	c.cache.Add(key, record)
	return record, err
}
