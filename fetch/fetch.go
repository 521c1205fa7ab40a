// Package fetch retrieves the transport bytes of a page without rendering
// it, for comparison against a rendered capture.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/use-agent/pagesnap/models"
)

// DefaultFileName is the snapshot name used for raw fetches.
const DefaultFileName = "raw.html"

// maxBody caps how much of a response body is read.
const maxBody = 10 << 20

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// chromeH1Spec is a Chrome ClientHello with ALPN pinned to http/1.1, since
// http.Transport cannot speak h2 over a utls connection. It is nil when the
// spec cannot be built; connections then use the Go ClientHello.
var chromeH1Spec *tls.ClientHelloSpec

func init() {
	spec, err := buildChromeH1Spec()
	if err != nil {
		slog.Warn("fetch: chrome TLS fingerprint unavailable, using the Go ClientHello", "error", err)
		return
	}
	chromeH1Spec = spec
}

func buildChromeH1Spec() (*tls.ClientHelloSpec, error) {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return nil, err
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	return &spec, nil
}

// Response is a fetched, un-rendered document.
type Response struct {
	Body       string
	StatusCode int
	FinalURL   string
	Title      string
}

// Client fetches documents with a browser-like TLS fingerprint and headers.
type Client struct {
	http *http.Client
}

// NewClient creates a Client. proxy may be an http or https proxy URL;
// anything else is ignored.
func NewClient(proxy string) *Client {
	transport := &http.Transport{
		DialTLSContext:    dialTLSChrome,
		ForceAttemptHTTP2: false,
	}
	if proxy != "" {
		if proxyURL, err := url.Parse(proxy); err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &Client{
		http: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
	}
}

// Fetch performs a single GET of targetURL. Transport failures and error
// statuses are reported as NAVIGATION_FAILED, an expired ctx deadline as
// NAVIGATION_TIMEOUT.
func (c *Client) Fetch(ctx context.Context, targetURL string, headers map[string]string) (*Response, error) {
	if strings.TrimSpace(targetURL) == "" {
		return nil, models.NewCaptureError(models.ErrCodeInvalidInput, "target address is required", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, models.NewCaptureError(models.ErrCodeNavigation, "invalid target address", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, models.NewCaptureError(models.ErrCodeNavigationTimeout, "fetch timed out", err)
		}
		return nil, models.NewCaptureError(models.ErrCodeNavigation, "fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, models.NewCaptureError(
			models.ErrCodeNavigation,
			fmt.Sprintf("target responded with HTTP %d", resp.StatusCode),
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, models.NewCaptureError(models.ErrCodeExtraction, "failed to read response body", err)
	}

	return &Response{
		Body:       string(body),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		Title:      extractTitle(string(body)),
	}, nil
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	tlsConn, err := newUClient(conn, &tls.Config{ServerName: host}, chromeH1Spec)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// newUClient wraps conn with the given ClientHello spec. A nil spec falls
// back to the Go ClientHello offering only http/1.1.
func newUClient(conn net.Conn, cfg *tls.Config, spec *tls.ClientHelloSpec) (*tls.UConn, error) {
	if spec == nil {
		cfg.NextProtos = []string{"http/1.1"}
		return tls.UClient(conn, cfg, tls.HelloGolang), nil
	}
	u := tls.UClient(conn, cfg, tls.HelloCustom)
	if err := u.ApplyPreset(spec); err != nil {
		return nil, fmt.Errorf("fetch: apply tls spec: %w", err)
	}
	return u, nil
}
