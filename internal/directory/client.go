// internal/directory/client.go
//
// Read-only client for the host's organization directory. The panel uses
// two calls per mount (organization list and current organization); the
// remaining calls serve the CLI and the fixture provisioner.

package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const defaultUserAgent = "orgpanel"

// Organization is a host organization as the host reports it.
type Organization struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Option is an organization shaped for rendering: Label is the name, Value the id.
type Option struct {
	Label string
	Value int64
}

// User is the subset of the host's current-user record the panel needs.
type User struct {
	ID      int64  `json:"id"`
	Login   string `json:"login"`
	OrgID   int64  `json:"orgId"`
	OrgName string `json:"orgName"`
}

// membership mirrors one record of GET api/user/orgs.
type membership struct {
	OrgID int64  `json:"orgId"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// RequestError wraps a failed call against the host.
type RequestError struct {
	Method string
	Path   string
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("directory: %s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("directory: %s %s: unexpected status %d", e.Method, e.Path, e.Status)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Client talks to the host's session-authenticated HTTP API.
type Client struct {
	base      *url.URL
	http      *http.Client
	user      string
	password  string
	token     string
	userAgent string
}

// ClientOption customizes Client construction.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client (timeouts, cookie jar, transport).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithCookieJar keeps session cookies between requests, including the
// page loads used for switching.
func WithCookieJar(jar http.CookieJar) ClientOption {
	return func(c *Client) {
		if jar == nil {
			return
		}
		hc := *c.http
		hc.Jar = jar
		c.http = &hc
	}
}

// WithBasicAuth authenticates every request with user/password.
func WithBasicAuth(user, password string) ClientOption {
	return func(c *Client) {
		c.user = strings.TrimSpace(user)
		c.password = password
	}
}

// WithToken authenticates every request with a bearer token. It wins over basic auth.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// New builds a client for the host rooted at baseURL.
func New(baseURL string, opts ...ClientOption) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, fmt.Errorf("directory: base url is required")
	}
	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("directory: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("directory: base url %q must be absolute", trimmed)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	c := &Client{
		base:      base,
		http:      http.DefaultClient,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// BaseURL returns the host root the client resolves paths against.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// ListOrganizations returns the caller's organizations in host order.
func (c *Client) ListOrganizations(ctx context.Context) ([]Option, error) {
	var records []membership
	if err := c.Do(ctx, http.MethodGet, "api/user/orgs", nil, &records); err != nil {
		return nil, err
	}
	options := make([]Option, 0, len(records))
	for _, record := range records {
		options = append(options, Option{Label: record.Name, Value: record.OrgID})
	}
	return options, nil
}

// GetCurrentOrganization returns the id of the caller's active organization.
func (c *Client) GetCurrentOrganization(ctx context.Context) (int64, error) {
	user, err := c.CurrentUser(ctx)
	if err != nil {
		return 0, err
	}
	return user.OrgID, nil
}

// CurrentUser returns the signed-in user and their active organization.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	if err := c.Do(ctx, http.MethodGet, "api/user", nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// ListAllOrganizations returns every organization on the host (admin view).
func (c *Client) ListAllOrganizations(ctx context.Context) ([]Organization, error) {
	var orgs []Organization
	if err := c.Do(ctx, http.MethodGet, "api/orgs", nil, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// HostVersion reads the host build version from the frontend settings document.
func (c *Client) HostVersion(ctx context.Context) (string, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, "api/frontend/settings", nil, &raw); err != nil {
		return "", err
	}
	version := gjson.GetBytes(raw, "buildInfo.version")
	if !version.Exists() || version.Type != gjson.String {
		return "", &RequestError{
			Method: http.MethodGet,
			Path:   "api/frontend/settings",
			Err:    fmt.Errorf("buildInfo.version missing"),
		}
	}
	return version.String(), nil
}

// LoadPage performs a full load of an absolute page URL on the host with the
// client's credentials. The body is discarded.
func (c *Client) LoadPage(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &RequestError{Method: http.MethodGet, Path: target, Err: err}
	}
	req.Header.Set("Accept", "text/html")
	resp, err := c.send(req)
	if err != nil {
		return &RequestError{Method: http.MethodGet, Path: target, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return &RequestError{Method: http.MethodGet, Path: target, Status: resp.StatusCode}
	}
	return nil
}

// Do sends a JSON request to a path relative to the host root and decodes the
// response into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	target, err := c.resolve(path)
	if err != nil {
		return &RequestError{Method: method, Path: path, Err: err}
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &RequestError{Method: method, Path: path, Err: fmt.Errorf("encode body: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &RequestError{Method: method, Path: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.send(req)
	if err != nil {
		return &RequestError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &RequestError{Method: method, Path: path, Status: resp.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{Method: method, Path: path, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", err
	}
	return c.base.ResolveReference(ref).String(), nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.user != "":
		req.SetBasicAuth(c.user, c.password)
	}
	return c.http.Do(req)
}
