// Package apiclient is the single dispatch point for calls to the surf log API.
//
// Every call goes through Client.do, which attaches the bearer credential, unwraps
// the {status, data, message} envelope and turns authorization failures into a
// forced logout.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxResponseBytes = 8 << 20

// Credentials is the authentication context the client reads on every call.
type Credentials interface {
	Token() string
	// Expire clears the stored credential if it is still token and reports whether
	// this call cleared it.
	Expire(token string) bool
}

// Navigator sends the user to the login entry point.
type Navigator interface {
	ToLogin(reason string)
}

// NavigatorFunc adapts a func to Navigator.
type NavigatorFunc func(reason string)

func (f NavigatorFunc) ToLogin(reason string) { f(reason) }

type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	Credentials Credentials
	Navigator   Navigator
	Logger      *zap.Logger
	UserAgent   string
}

type Client struct {
	base      *url.URL
	http      *http.Client
	creds     Credentials
	nav       Navigator
	log       *zap.Logger
	userAgent string
}

func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, errors.New("apiclient: base url is empty")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("apiclient: unsupported base url scheme %q", base.Scheme)
	}
	base.Path = strings.TrimRight(base.Path, "/")

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = "surflog-cli"
	}
	return &Client{
		base:      base,
		http:      hc,
		creds:     opts.Credentials,
		nav:       opts.Navigator,
		log:       log,
		userAgent: ua,
	}, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.base.String() }

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// public requests never carry a credential and a 401 is an ordinary failure
	// (wrong password on login, for example).
	public bool
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// do performs req and decodes the envelope's data into out (when non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	token := ""
	if !req.public {
		if c.creds != nil {
			token = strings.TrimSpace(c.creds.Token())
		}
		if token == "" {
			return &Error{Kind: KindUnauthorized, Message: "You are not logged in.", Err: ErrNotAuthenticated}
		}
	}

	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(req.path, "/")
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("apiclient: encode %s %s: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(b)
	}

	hr, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("apiclient: build %s %s: %w", req.method, req.path, err)
	}
	reqID := uuid.NewString()
	hr.Header.Set("Accept", "application/json")
	hr.Header.Set("User-Agent", c.userAgent)
	hr.Header.Set("X-Request-ID", reqID)
	if body != nil {
		hr.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		hr.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(hr)
	if err != nil {
		c.log.Debug("api request failed",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.String("request_id", reqID),
			zap.Error(err))
		return &Error{Kind: KindNetwork, Message: "network error: " + req.method + " " + req.path, RequestID: reqID, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Kind: KindNetwork, Status: resp.StatusCode, Message: "network error: " + req.method + " " + req.path, RequestID: reqID, Err: err}
	}
	c.log.Debug("api request",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
		zap.String("request_id", reqID))

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode == http.StatusUnauthorized && !req.public {
		c.expire(token)
		return &Error{Kind: KindUnauthorized, Status: resp.StatusCode, Message: "Your session expired. Please log in again.", RequestID: reqID, Err: ErrSessionExpired}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := ""
		if decodeErr == nil {
			msg = strings.TrimSpace(env.Message)
		}
		if msg == "" {
			msg = fmt.Sprintf("API Error: %d", resp.StatusCode)
		}
		return &Error{Kind: KindAPI, Status: resp.StatusCode, Message: msg, RequestID: reqID}
	}
	if decodeErr != nil {
		return &Error{Kind: KindDecode, Status: resp.StatusCode, Message: "invalid response from " + req.path, RequestID: reqID, Err: decodeErr}
	}
	if strings.EqualFold(env.Status, "error") {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = fmt.Sprintf("API Error: %d", resp.StatusCode)
		}
		return &Error{Kind: KindAPI, Status: resp.StatusCode, Message: msg, RequestID: reqID}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Kind: KindDecode, Status: resp.StatusCode, Message: "invalid response from " + req.path, RequestID: reqID, Err: err}
	}
	return nil
}

// expire clears token and navigates to login, once per credential.
func (c *Client) expire(token string) {
	if c.creds == nil || !c.creds.Expire(token) {
		return
	}
	c.log.Info("credential rejected; logging out")
	if c.nav != nil {
		c.nav.ToLogin("session expired")
	}
}

// Get fetches path and decodes data into out. Exposed for commands that need an
// endpoint without a typed wrapper.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query}, out)
}
