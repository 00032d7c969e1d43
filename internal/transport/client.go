package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout bounds a whole request including redirects.
	DefaultTimeout = 60 * time.Second
	// DefaultDNSCacheSize is the number of hosts kept in the DNS cache.
	DefaultDNSCacheSize = 256
	// DefaultMaxIdleConnsPerHost keeps enough idle connections for the
	// default number of simultaneous requests.
	DefaultMaxIdleConnsPerHost = 20

	// maxRedirects is the redirect limit of clients that follow redirects.
	maxRedirects = 10

	// checkProxyTimeout is the timeout of the proxy handshake check.
	checkProxyTimeout = 2 * time.Second
)

// Options configures NewClient.
type Options struct {
	// Timeout is the http.Client timeout. Zero means no client timeout;
	// crawlers still apply their own per-request deadlines.
	Timeout time.Duration

	// ProxyAddress is a SOCKS5 proxy in "host:port" format. Empty means
	// direct connections.
	ProxyAddress string

	// DNSCacheSize is the number of cached hosts for direct connections.
	// Zero or less disables the cache.
	DNSCacheSize int

	// MaxIdleConnsPerHost is passed to http.Transport.
	MaxIdleConnsPerHost int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Timeout:             DefaultTimeout,
		DNSCacheSize:        DefaultDNSCacheSize,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
	}
}

// dialFunc is the DialContext signature of http.Transport.
type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// NewClient creates an HTTP client that follows up to ten redirects.
//
// With a proxy address, every connection goes through SOCKS5 and name
// resolution happens on the proxy. Without one, connections are dialed
// directly and host lookups are cached.
//
// The proxy itself is not contacted here. Call CheckProxy to verify it.
func NewClient(opts Options) (*http.Client, error) {
	dial, err := newDialer(opts)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		DialContext:           dial,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

func newDialer(opts Options) (dialFunc, error) {
	base := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	if opts.ProxyAddress != "" {
		if !isValidProxyAddress(opts.ProxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		// Proxies used for crawling are expected to accept connections
		// without authentication.
		dialer, err := proxy.SOCKS5("tcp", opts.ProxyAddress, nil, base)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		return contextDial(dialer), nil
	}

	if opts.DNSCacheSize <= 0 {
		return base.DialContext, nil
	}
	cache, err := newDNSCache(net.DefaultResolver, base.DialContext, opts.DNSCacheSize)
	if err != nil {
		return nil, err
	}
	return cache.DialContext, nil
}

// contextDial adapts a proxy.Dialer to DialContext. Dialers that cannot
// take a context are run in a goroutine; a cancelled context returns
// early while the dial attempt finishes in the background.
func contextDial(dialer proxy.Dialer) dialFunc {
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := dialer.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()
		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			go func() {
				if result := <-resultCh; result.conn != nil {
					result.conn.Close()
				}
			}()
			return nil, ctx.Err()
		}
	}
}

// isValidProxyAddress checks if the address is in valid "host:port" format
// with a non-empty host and a port between 1 and 65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" || port == "" {
		return false
	}
	for _, c := range port {
		if c < '0' || c > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// SOCKS5 protocol constants used by CheckProxy.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthNoAccept = 0xFF
)

// CheckProxy verifies that address accepts SOCKS5 connections without
// authentication by performing the method negotiation of the protocol.
//
// The check works as follows:
//  1. Open a TCP connection to the proxy
//  2. Offer the "no authentication" method
//  3. Expect a SOCKS5 reply selecting that method
func CheckProxy(ctx context.Context, address string) error {
	if !isValidProxyAddress(address) {
		return ErrInvalidProxyAddress
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrProxyTimeout
		}
		return fmt.Errorf("%w: %w", ErrProxyCannotConnect, err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyCannotConnect, err)
	}

	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyCannotConnect, err)
	}

	reply := make([]byte, 2)
	if _, err := io.ReadFull(conn, reply); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ErrProxyTimeout
		}
		return ErrProxyNotSOCKS5
	}
	if reply[0] != socks5Version || reply[1] == socks5AuthNoAccept || reply[1] != socks5AuthNone {
		return ErrProxyNotSOCKS5
	}
	return nil
}
