// Package edgeproxy forwards API requests to a backend origin and answers
// them with permissive CORS headers.
package edgeproxy

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/render"
	"xhstoolbox/pkg/logger"
)

// DefaultPathPrefix is the path prefix forwarded when Config leaves it empty
const DefaultPathPrefix = "/api"

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, PUT, DELETE, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type, Authorization",
}

// Hop-by-hop headers are meaningful for a single connection only.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Config configures a Proxy
type Config struct {
	// BackendOrigin is the absolute http(s) origin requests are forwarded to
	BackendOrigin string
	PathPrefix    string
	// Client performs the forwarded request. Redirects are handed back to
	// the caller unchanged when nil.
	Client *http.Client
}

// Proxy forwards prefixed requests to a fixed backend origin and attaches
// CORS headers to every answer it produces.
type Proxy struct {
	origin *url.URL
	prefix string
	client *http.Client
	logger logger.Logger
}

// ErrorBody is the JSON body written when the backend cannot be reached
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// New creates a Proxy for cfg
func New(cfg Config, log logger.Logger) (*Proxy, error) {
	origin, err := url.Parse(strings.TrimRight(cfg.BackendOrigin, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend origin: %w", err)
	}
	if origin.Scheme != "http" && origin.Scheme != "https" {
		return nil, fmt.Errorf("backend origin %q must use http or https", cfg.BackendOrigin)
	}
	if origin.Host == "" {
		return nil, fmt.Errorf("backend origin %q has no host", cfg.BackendOrigin)
	}

	prefix := cfg.PathPrefix
	if prefix == "" {
		prefix = DefaultPathPrefix
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	return &Proxy{
		origin: origin,
		prefix: prefix,
		client: client,
		logger: logger.OrGlobal(log).WithField("component", "edgeproxy"),
	}, nil
}

// Matches reports whether path is handled by the proxy
func (p *Proxy) Matches(path string) bool {
	return strings.HasPrefix(path, p.prefix)
}

// Middleware forwards matching requests and hands everything else to next
// untouched.
func (p *Proxy) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.Matches(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		p.handle(w, r)
	})
}

// ServeHTTP forwards matching requests and answers 404 for the rest
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.Middleware(http.NotFoundHandler()).ServeHTTP(w, r)
}

func (p *Proxy) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		setCORS(w.Header())
		w.WriteHeader(http.StatusNoContent)
		return
	}

	start := time.Now()
	target := p.targetURL(r.URL)

	resp, err := p.forward(r, target)
	if err != nil {
		logger.LogRequest(p.logger.WithError(err), r.Method, target, 0, time.Since(start))
		p.writeError(w, r, err)
		return
	}
	defer resp.Body.Close()

	header := w.Header()
	copyHeaders(header, resp.Header)
	setCORS(header)
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		// Status is already on the wire, only the log can tell.
		p.logger.WithError(err).WarnWithFields("Copying backend body failed", map[string]interface{}{
			"url": target,
		})
	}
	logger.LogRequest(p.logger, r.Method, target, resp.StatusCode, time.Since(start))
}

func (p *Proxy) targetURL(in *url.URL) string {
	return p.origin.String() + in.RequestURI()
}

func (p *Proxy) forward(r *http.Request, target string) (*http.Response, error) {
	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = r.Body
	}

	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		return nil, err
	}
	copyHeaders(outReq.Header, r.Header)
	outReq.Host = p.origin.Host
	if body != nil {
		outReq.ContentLength = r.ContentLength
	}

	return p.client.Do(outReq)
}

func (p *Proxy) writeError(w http.ResponseWriter, r *http.Request, err error) {
	setCORS(w.Header())
	render.Status(r, http.StatusBadGateway)
	render.JSON(w, r, ErrorBody{
		Error:   "Backend request failed",
		Message: err.Error(),
	})
}

func setCORS(h http.Header) {
	for k, v := range corsHeaders {
		h.Set(k, v)
	}
}

func copyHeaders(dst, src http.Header) {
	for k, vv := range src {
		if isHopHeader(k) {
			continue
		}
		dst.Del(k)
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

func isHopHeader(name string) bool {
	for _, h := range hopHeaders {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	return false
}
