// Package gitlab talks to the GitLab REST v4 and GraphQL APIs and maps
// issues onto tasks. *Client implements hierarchy.Transport.
package gitlab

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/ganttree/pkg/debug"
	"github.com/vanderheijden86/ganttree/pkg/version"
)

const (
	// DefaultInstance is used when no instance URL is configured.
	DefaultInstance = "https://gitlab.com"

	defaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is kept in APIError.
	maxErrorBody = 512
)

// Client is a GitLab API client authenticated with a personal access token.
// It is safe for concurrent use.
type Client struct {
	instance   string
	restBase   string
	graphqlURL string
	token      string
	userAgent  string
	http       *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the personal access token sent as PRIVATE-TOKEN.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New returns a client for the GitLab instance at instance, e.g.
// "https://gitlab.example.com". An empty instance means gitlab.com.
func New(instance string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(instance) == "" {
		instance = DefaultInstance
	}
	instance = strings.TrimRight(strings.TrimSpace(instance), "/")
	u, err := url.Parse(instance)
	if err != nil {
		return nil, fmt.Errorf("invalid gitlab instance %q: %w", instance, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("invalid gitlab instance %q: need an http(s) URL", instance)
	}

	c := &Client{
		instance:   instance,
		restBase:   instance + "/api/v4/",
		graphqlURL: instance + "/api/graphql",
		userAgent:  "ganttree/" + version.Version,
		http:       &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Instance returns the instance URL without a trailing slash.
func (c *Client) Instance() string {
	return c.instance
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("PRIVATE-TOKEN", c.token)
	}
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out. The response headers
// are returned for pagination.
func (c *Client) do(req *http.Request, out any) (http.Header, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gitlab: %s %s: %w", req.Method, redact(req.URL), err)
	}
	defer resp.Body.Close()
	debug.Log("gitlab: %s %s -> %d (%v)", req.Method, redact(req.URL), resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.Header, &APIError{
			Method:     req.Method,
			URL:        redact(req.URL),
			StatusCode: resp.StatusCode,
			Message:    apiMessage(msg),
		}
	}
	if out == nil {
		return resp.Header, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.Header, fmt.Errorf("gitlab: decoding %s response: %w", redact(req.URL), err)
	}
	return resp.Header, nil
}

// apiMessage extracts GitLab's {"message": ...} or {"error": ...} body, or
// returns the raw text.
func apiMessage(body []byte) string {
	var parsed struct {
		Message any    `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Message != nil:
			return fmt.Sprint(parsed.Message)
		case parsed.Error != "":
			return parsed.Error
		}
	}
	return strings.TrimSpace(string(body))
}

// redact drops the query string, which may carry a private token.
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}
