package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	apiBasePath = "/api/4"

	// maxResponseBytes bounds how much of a controller response we read.
	// Zone and program dumps are a few hundred KB at most on real units.
	maxResponseBytes = 8 << 20

	// errorBodyLimit bounds the response excerpt embedded in APIError.
	errorBodyLimit = 512
)

// ClientConfig carries the connection settings for one controller.
type ClientConfig struct {
	Host           string
	Port           int
	Password       string
	VerifyTLS      bool
	TimeoutSeconds int

	// BaseURL overrides the https://host:port base when set. Used by tests
	// to point the client at a local server.
	BaseURL string
}

// Client talks to the RainMachine REST API over HTTPS. All authenticated
// calls pass the access token as a query parameter, which is how the
// controller firmware expects it.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	baseURL    string
	token      string
	apiVersion string
}

// NewClient builds a client from the given configuration. No network traffic
// happens until a method is called.
func NewClient(cfg ClientConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	transport := &http.Transport{}
	if !cfg.VerifyTLS {
		// RainMachine units ship with self-signed certificates. Skipping
		// verification is an explicit opt-in, never a silent fallback.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s:%d", cfg.Host, cfg.Port)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return &Client{
		cfg:     cfg,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Host returns the configured controller host.
func (c *Client) Host() string {
	return c.cfg.Host
}

// APIVersion returns the apiVersion reported by the controller, if Version
// has been called.
func (c *Client) APIVersion() string {
	return c.apiVersion
}

// Authenticated reports whether a login token is held.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// Version fetches /apiVer. This endpoint requires no authentication and
// doubles as a reachability check before login.
func (c *Client) Version(ctx context.Context) (map[string]json.RawMessage, error) {
	body, err := c.get(ctx, "/apiVer", false)
	if err != nil {
		return nil, err
	}

	doc, err := decodeObject("/apiVer", body)
	if err != nil {
		return nil, err
	}

	if raw, ok := doc["apiVersion"]; ok {
		var v string
		if err := json.Unmarshal(raw, &v); err == nil {
			c.apiVersion = v
		}
	}
	return doc, nil
}

// Authenticate logs in with the configured password and stores the access
// token for subsequent calls.
func (c *Client) Authenticate(ctx context.Context) error {
	payload := map[string]interface{}{
		"pwd":      c.cfg.Password,
		"remember": true,
	}

	body, err := c.post(ctx, "/auth/login", payload, false)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			return &AuthError{Reason: "controller rejected the password", Err: err}
		}
		return &AuthError{Reason: "login request failed", Err: err}
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return &AuthError{Reason: "cannot parse login response", Err: err}
	}
	if resp.AccessToken == "" {
		return &AuthError{Reason: "login response carried no access token"}
	}

	c.token = resp.AccessToken
	return nil
}

// ProvisionName fetches /provision/name, typically {"name": "..."}.
func (c *Client) ProvisionName(ctx context.Context) (map[string]json.RawMessage, error) {
	return c.getObject(ctx, "/provision/name")
}

// ProvisionCloud fetches the cloud settings object.
func (c *Client) ProvisionCloud(ctx context.Context) (map[string]json.RawMessage, error) {
	return c.getObject(ctx, "/provision/cloud")
}

// ZoneProperties fetches the full zone property dump.
func (c *Client) ZoneProperties(ctx context.Context) (map[string]json.RawMessage, error) {
	return c.getObject(ctx, "/zone/properties")
}

// Programs fetches all watering programs.
func (c *Client) Programs(ctx context.Context) (map[string]json.RawMessage, error) {
	return c.getObject(ctx, "/program")
}

// SetProvisionName writes the controller name back.
func (c *Client) SetProvisionName(ctx context.Context, name string) error {
	return c.write(ctx, "/provision/name", map[string]interface{}{"netName": name})
}

// SetProvisionCloud writes the cloud settings back.
func (c *Client) SetProvisionCloud(ctx context.Context, cloud json.RawMessage) error {
	return c.write(ctx, "/provision/cloud", cloud)
}

// SetZoneProperties writes the properties of a single zone.
func (c *Client) SetZoneProperties(ctx context.Context, uid int64, properties json.RawMessage) error {
	return c.write(ctx, fmt.Sprintf("/zone/%d/properties", uid), properties)
}

// SetProgram writes a single watering program.
func (c *Client) SetProgram(ctx context.Context, uid int64, program json.RawMessage) error {
	return c.write(ctx, fmt.Sprintf("/program/%d", uid), program)
}

// write posts a payload and validates the device response envelope. The
// firmware acknowledges writes with HTTP 200 even when it rejects them, so
// the HTTP status alone is not enough.
func (c *Client) write(ctx context.Context, path string, payload interface{}) error {
	body, err := c.post(ctx, path, payload, true)
	if err != nil {
		return err
	}
	return checkDeviceStatus(path, body)
}

// checkDeviceStatus returns a DeviceError when the response carries a
// non-zero statusCode. Responses without the envelope pass through.
func checkDeviceStatus(path string, body []byte) error {
	var envelope struct {
		StatusCode *int   `json:"statusCode"`
		Message    string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	if envelope.StatusCode != nil && *envelope.StatusCode != 0 {
		return &DeviceError{
			Endpoint:   path,
			StatusCode: *envelope.StatusCode,
			Message:    envelope.Message,
		}
	}
	return nil
}

func (c *Client) getObject(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	body, err := c.get(ctx, path, true)
	if err != nil {
		return nil, err
	}
	return decodeObject(path, body)
}

func (c *Client) get(ctx context.Context, path string, authenticated bool) ([]byte, error) {
	endpoint, err := c.endpointURL(path, authenticated)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", path, err)
	}

	return c.do(req, path)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, authenticated bool) ([]byte, error) {
	endpoint, err := c.endpointURL(path, authenticated)
	if err != nil {
		return nil, err
	}

	var bodyBytes []byte
	switch v := payload.(type) {
	case json.RawMessage:
		bodyBytes = v
	default:
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request for %s: %w", path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, path)
}

func (c *Client) endpointURL(path string, authenticated bool) (string, error) {
	if authenticated && c.token == "" {
		return "", ErrNotAuthenticated
	}

	endpoint := c.baseURL + apiBasePath + path
	if authenticated {
		query := url.Values{}
		query.Set("access_token", c.token)
		endpoint += "?" + query.Encode()
	}
	return endpoint, nil
}

func (c *Client) do(req *http.Request, path string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := strings.TrimSpace(string(body))
		if len(excerpt) > errorBodyLimit {
			excerpt = excerpt[:errorBodyLimit]
		}
		return nil, &APIError{
			Endpoint: path,
			Status:   resp.StatusCode,
			Body:     excerpt,
		}
	}

	return body, nil
}

func decodeObject(path string, body []byte) (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("unexpected response from %s: %w", path, err)
	}
	return doc, nil
}
