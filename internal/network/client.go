package network

import (
	"fmt"
	"math"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	fhttpcookiejar "github.com/bogdanfinn/fhttp/cookiejar"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:68.0) Gecko/20100101 Firefox/68.0"
	DefaultAcceptLanguage = "en-US,en;q=0.5"
	DefaultTimeout        = 10 * time.Second
)

// Doer sends a single request. *Client implements it.
type Doer interface {
	Do(req *fhttp.Request) (*fhttp.Response, error)
}

type Options struct {
	Timeout        time.Duration
	UserAgent      string
	AcceptLanguage string
	Logger         zerolog.Logger
}

// Client owns one transport per proxy, all built up front, so concurrent
// requests never reconfigure a shared transport.
type Client struct {
	direct  Doer
	routes  map[string]Doer
	rotator *Rotator
	headers map[string]string
	logger  zerolog.Logger
}

func NewClient(rotator *Rotator, opts Options) (*Client, error) {
	jar, err := fhttpcookiejar.New(&fhttpcookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	client := &Client{
		rotator: rotator,
		headers: map[string]string{
			"User-Agent":      firstNonEmpty(opts.UserAgent, DefaultUserAgent),
			"Accept-Language": firstNonEmpty(opts.AcceptLanguage, DefaultAcceptLanguage),
			"Connection":      "keep-alive",
		},
		logger: opts.Logger,
	}

	if rotator == nil || rotator.Len() == 0 {
		client.direct, err = newTransport(jar, opts.Timeout, "")
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	client.routes = make(map[string]Doer, rotator.Len())
	for _, proxy := range rotator.Proxies() {
		transport, err := newTransport(jar, opts.Timeout, proxy.String())
		if err != nil {
			return nil, fmt.Errorf("proxy %s: %w", proxy.Redacted(), err)
		}
		client.routes[proxy.String()] = transport
	}
	return client, nil
}

func newTransport(jar fhttp.CookieJar, timeout time.Duration, proxy string) (tls_client.HttpClient, error) {
	options := []tls_client.HttpClientOption{
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithTimeoutSeconds(timeoutSeconds(timeout)),
		tls_client.WithCookieJar(jar),
	}
	if proxy != "" {
		options = append(options, tls_client.WithProxyUrl(proxy))
	}
	return tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
}

// Do applies the identifying header set, sends the request through the next
// usable proxy when rotation is on and reports the status against that proxy.
func (c *Client) Do(req *fhttp.Request) (*fhttp.Response, error) {
	for key, value := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	if c.routes == nil {
		return c.direct.Do(req)
	}

	proxy, err := c.rotator.Next()
	if err != nil {
		return nil, err
	}
	transport, ok := c.routes[proxy.String()]
	if !ok {
		return nil, fmt.Errorf("%w: no transport for %s", ErrNoProxies, proxy.Redacted())
	}

	resp, err := transport.Do(req)
	if err != nil {
		return nil, err
	}
	if c.rotator.Report(proxy, resp.StatusCode) {
		c.logger.Warn().Str("proxy", proxy.Redacted()).Int("status", resp.StatusCode).Msg("proxy banned")
	}
	return resp, nil
}

func timeoutSeconds(timeout time.Duration) int {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return int(math.Max(1, math.Ceil(timeout.Seconds())))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
