package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the SOCKS5 handshake done by CheckConnection.
const checkProxyTimeout = 2 * time.Second

// maxRedirects is the redirect limit of every client.
const maxRedirects = 10

const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthNoAccept = 0xFF
)

// Credentials are injected into requests to one host.
type Credentials struct {
	// Host is matched case-insensitively against the request host name.
	Host string

	// Cookie is a raw cookie string, e.g. "session=abc123".
	Cookie string

	// Headers are set on every matching request.
	Headers map[string]string
}

// Client creates HTTP clients that share one dialing strategy.
type Client struct {
	// proxyAddress is the SOCKS5 proxy in "host:port" form; empty dials
	// directly.
	proxyAddress string

	dialer  proxy.Dialer
	timeout time.Duration
	creds   []Credentials
}

// Option configures a Client.
type Option func(*Client)

// WithProxy routes all connections through the SOCKS5 proxy at address.
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithTimeout sets the overall timeout of the HTTP clients. Zero means no
// client-level timeout; the crawler bounds each request itself.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithCredentials adds per-host cookie and header injection.
func WithCredentials(creds ...Credentials) Option {
	return func(c *Client) {
		c.creds = append(c.creds, creds...)
	}
}

// New creates a Client. A proxy address, if set, is validated but not
// contacted; call CheckConnection for that.
func New(opts ...Option) (*Client, error) {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}

	if c.proxyAddress == "" {
		c.dialer = &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
		return c, nil
	}

	if !isValidProxyAddress(c.proxyAddress) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, c.proxyAddress)
	}
	dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	c.dialer = dialer
	return c, nil
}

// isValidProxyAddress checks for a non-empty host and a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// ProxyAddress returns the configured proxy address, or "" for direct.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// CheckConnection verifies that the proxy speaks SOCKS5 and accepts
// unauthenticated clients. A direct Client always reports OK.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	if c.proxyAddress == "" {
		return ProxyStatusOK
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// Greeting: version, one method, "no authentication".
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}
	if resp[0] != socks5Version || resp[1] == socks5AuthNoAccept || resp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

// HTTPClient returns a new HTTP client using the Client's dialer.
// Compression is negotiated by the caller, redirects are capped, and a
// cookie jar keeps session cookies across the run.
func (c *Client) HTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext:         c.dialContext,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true,
	}
	if c.proxyAddress == "" {
		transport.Proxy = http.ProxyFromEnvironment
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	var rt http.RoundTripper = transport
	if len(c.creds) > 0 {
		rt = &headerInjectingTransport{base: transport, creds: c.creds}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// dialContext uses the dialer's context support when it has one.
func (c *Client) dialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}
	return c.dialer.Dial(network, address)
}

// headerInjectingTransport adds the cookie and headers of the matching
// Credentials to each request.
type headerInjectingTransport struct {
	base  http.RoundTripper
	creds []Credentials
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cred, ok := t.match(req.URL.Hostname())
	if !ok {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	if cred.Cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+cred.Cookie)
		} else {
			clone.Header.Set("Cookie", cred.Cookie)
		}
	}
	for key, value := range cred.Headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}

func (t *headerInjectingTransport) match(host string) (Credentials, bool) {
	for _, c := range t.creds {
		if c.Host == "" || strings.EqualFold(c.Host, host) {
			return c, true
		}
	}
	return Credentials{}, false
}
