package bridge

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nerrad567/huelogic/internal/infrastructure/config"
)

// maxResponseSize bounds how much of a bridge response is read (8MB).
// A full resource dump from a large installation stays well under this.
const maxResponseSize = 8 << 20

// Transport is the bridge access surface the rest of the system depends
// on. Tests inject fakes; production code uses Client.
type Transport interface {
	// GetResource fetches a single resource by type and id.
	GetResource(ctx context.Context, rtype, id string) (map[string]any, error)

	// PutResource updates a resource. A nil error means the bridge
	// confirmed the update; ErrUnconfirmed means the HTTP call
	// succeeded but confirmation was missing or malformed.
	PutResource(ctx context.Context, rtype, id string, payload map[string]any) error

	// ListResources fetches every resource of the given type.
	ListResources(ctx context.Context, rtype string) ([]map[string]any, error)
}

// Client speaks the bridge's v2 REST surface over HTTPS.
//
// Authentication is a static application key sent on every request;
// there is no session state. Safe for concurrent use.
type Client struct {
	baseURL string
	appKey  string
	http    *http.Client
}

// Compile-time check that Client satisfies Transport.
var _ Transport = (*Client)(nil)

// NewClient creates a bridge client from configuration.
//
// Hue-class bridges present self-signed certificates, so certificate
// verification is skipped when cfg.InsecureTLS is set (the default).
func NewClient(cfg config.BridgeConfig) *Client {
	transport := &http.Transport{}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // Bridge certificates are self-signed
		}
	}

	return &Client{
		baseURL: fmt.Sprintf("https://%s/clip/v2/resource", cfg.Host),
		appKey:  cfg.ApplicationKey,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout(),
		},
	}
}

// GetResource fetches a single resource by type and id.
func (c *Client) GetResource(ctx context.Context, rtype, id string) (map[string]any, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%s/%s", c.baseURL, rtype, id), nil)
	if err != nil {
		return nil, err
	}

	// The bridge wraps single resources in a one-element data array.
	if len(body.Data) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, rtype, id)
	}
	return body.Data[0], nil
}

// PutResource updates a resource and verifies the bridge's confirmation.
func (c *Client) PutResource(ctx context.Context, rtype, id string, payload map[string]any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload for %s/%s: %w", rtype, id, err)
	}

	body, err := c.do(ctx, http.MethodPut, fmt.Sprintf("%s/%s/%s", c.baseURL, rtype, id), encoded)
	if err != nil {
		return err
	}

	// A confirmed write echoes a reference to the updated resource.
	// Anything else means the outcome is unknown.
	if len(body.Data) == 0 {
		return fmt.Errorf("%w: %s/%s", ErrUnconfirmed, rtype, id)
	}
	if rid, _ := body.Data[0]["rid"].(string); rid != "" && rid != id {
		return fmt.Errorf("%w: %s/%s (bridge confirmed %s)", ErrUnconfirmed, rtype, id, rid)
	}
	return nil
}

// ListResources fetches every resource of the given type.
func (c *Client) ListResources(ctx context.Context, rtype string) ([]map[string]any, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, rtype), nil)
	if err != nil {
		return nil, err
	}
	return body.Data, nil
}

// responseBody is the envelope every v2 endpoint responds with.
type responseBody struct {
	Data   []map[string]any `json:"data"`
	Errors []struct {
		Description string `json:"description"`
	} `json:"errors"`
}

// do executes a request and decodes the response envelope.
func (c *Client) do(ctx context.Context, method, url string, payload []byte) (*responseBody, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("hue-application-key", c.appKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge request %s %s: %w", method, url, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort cleanup

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading bridge response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}

	var body responseBody
	if err := json.Unmarshal(raw, &body); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{Status: resp.StatusCode}
		}
		return nil, fmt.Errorf("decoding bridge response: %w", err)
	}

	if resp.StatusCode >= 400 || len(body.Errors) > 0 {
		apiErr := &APIError{Status: resp.StatusCode}
		for _, e := range body.Errors {
			apiErr.Descriptions = append(apiErr.Descriptions, e.Description)
		}
		return nil, apiErr
	}

	return &body, nil
}
