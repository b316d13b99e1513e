package gqlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultURL is the production GraphQL endpoint.
const DefaultURL = "https://internal.slippi.gg/graphql"

const maxResponseBytes = 1 << 20

// Options configures a Client.
type Options struct {
	URL        string
	Timeout    time.Duration
	UserAgent  string
	IPv4Only   bool
	HTTPClient *http.Client
}

// Client posts GraphQL operations to the remote service.
type Client struct {
	url        string
	userAgent  string
	httpClient *http.Client
}

// New creates a client. A nil HTTPClient gets a dedicated transport that
// optionally dials IPv4 only.
func New(opts Options) (*Client, error) {
	endpoint := strings.TrimSpace(opts.URL)
	if endpoint == "" {
		endpoint = DefaultURL
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid graphql url %q", endpoint)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout, Transport: newTransport(timeout, opts.IPv4Only)}
	}
	return &Client{url: endpoint, userAgent: opts.UserAgent, httpClient: httpClient}, nil
}

func newTransport(timeout time.Duration, ipv4Only bool) *http.Transport {
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		if ipv4Only && strings.HasPrefix(network, "tcp") {
			network = "tcp4"
		}
		return dialer.DialContext(ctx, network, addr)
	}
	return transport
}

// Execute posts query with variables and returns data.<field>, or the whole
// data object when field is empty.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any, field string) (gjson.Result, error) {
	body := map[string]any{"query": query}
	if variables != nil {
		body["variables"] = variables
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return gjson.Result{}, &Error{Kind: KindDecode, Field: field, Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(encoded))
	if err != nil {
		return gjson.Result{}, &Error{Kind: KindNetwork, Field: field, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, &Error{Kind: KindNetwork, Field: field, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gjson.Result{}, &Error{Kind: KindNetwork, Field: field, Message: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gjson.Result{}, &Error{Kind: KindStatus, Field: field, StatusCode: resp.StatusCode, Message: snippet(raw)}
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, &Error{Kind: KindDecode, Field: field, Message: snippet(raw)}
	}

	doc := gjson.ParseBytes(raw)
	if errs := doc.Get("errors"); errs.IsArray() && len(errs.Array()) > 0 {
		return gjson.Result{}, &Error{Kind: KindServer, Field: field, Message: errs.Raw}
	}
	data := doc.Get("data")
	if !data.Exists() || data.Type == gjson.Null {
		return gjson.Result{}, &Error{Kind: KindMissingData, Field: field, Message: "no 'data' field in the GraphQL response"}
	}
	if field == "" {
		return data, nil
	}
	value := data.Get(gjson.Escape(field))
	if !value.Exists() {
		return gjson.Result{}, &Error{Kind: KindMissingField, Field: field, Message: fmt.Sprintf("data.%s absent", field)}
	}
	return value, nil
}

func snippet(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if len(text) > 256 {
		text = text[:256] + "..."
	}
	return text
}
