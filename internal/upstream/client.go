// Package upstream implements the authenticated transport to the shop's
// product and cart APIs.
package upstream

import (
	"log/slog"
	"sync"
	"sync/atomic"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	"github.com/kellervogt/restocker/internal/headers"
)

var (
	proxyList      []string
	proxyListMutex sync.Mutex
	proxyCounter   uint32
)

// ProxiedClient is a tls-client bound to the proxy it was created with, so a
// blocked proxy can be removed from the rotation.
type ProxiedClient struct {
	tls_client.HttpClient
	ProxyURL string
}

// SetProxyList replaces the proxy rotation. An empty list means direct
// connections.
func SetProxyList(proxies []string) {
	proxyListMutex.Lock()
	defer proxyListMutex.Unlock()
	proxyList = proxies
}

// RemoveProxy drops one proxy from the rotation and returns how many remain.
func RemoveProxy(proxyURL string) int {
	proxyListMutex.Lock()
	defer proxyListMutex.Unlock()

	if proxyURL != "" {
		for i, p := range proxyList {
			if p == proxyURL {
				proxyList = append(proxyList[:i], proxyList[i+1:]...)
				break
			}
		}
	}
	return len(proxyList)
}

// NewHTTPClient builds a browser-profile TLS client with a 30s timeout,
// taking the next proxy from the rotation if one is configured. Compressed
// response bodies (gzip/deflate/br/zstd) are decoded transparently.
func NewHTTPClient() (*ProxiedClient, error) {
	jar := tls_client.NewCookieJar()
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(30),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithNotFollowRedirects(),
		tls_client.WithCookieJar(jar),
	}

	var proxyURL string
	proxyListMutex.Lock()
	if len(proxyList) > 0 {
		idx := atomic.AddUint32(&proxyCounter, 1)
		proxyURL = proxyList[int(idx-1)%len(proxyList)]
		options = append(options, tls_client.WithProxyUrl(proxyURL))
	}
	proxyListMutex.Unlock()

	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, err
	}

	return &ProxiedClient{HttpClient: client, ProxyURL: proxyURL}, nil
}

// Options configures a shop API client.
type Options struct {
	BaseURL string
	StoreID string
	Locale  string
	Creds   *Credentials
	Logger  *slog.Logger
}

// Client issues product fetches and cart reservations against the shop API.
type Client struct {
	http    *ProxiedClient
	httpMu  sync.Mutex
	baseURL string
	storeID string
	locale  string
	creds   *Credentials
	log     *slog.Logger
}

func New(opts Options) (*Client, error) {
	httpClient, err := NewHTTPClient()
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		http:    httpClient,
		baseURL: opts.BaseURL,
		storeID: opts.StoreID,
		locale:  opts.Locale,
		creds:   opts.Creds,
		log:     log,
	}, nil
}

// rotateClient swaps in a fresh client (and next proxy) after the current
// proxy misbehaves. The cached header profiles are discarded too: a block
// may key on the fingerprint rather than the address.
func (c *Client) rotateClient() {
	remaining := RemoveProxy(c.http.ProxyURL)
	c.log.Warn("rotating upstream client", "dropped_proxy", c.http.ProxyURL, "proxies_left", remaining)

	headers.ResetProfilePool()
	fresh, err := NewHTTPClient()
	if err != nil {
		c.log.Error("building replacement client failed", "error", err)
		return
	}
	c.httpMu.Lock()
	c.http = fresh
	c.httpMu.Unlock()
}

func (c *Client) httpClient() *ProxiedClient {
	c.httpMu.Lock()
	defer c.httpMu.Unlock()
	return c.http
}
