// Package ipfsclient implements storageadapter.IPFSClient against an IPFS
// HTTP API or a Pinata-compatible pinning service. Per spec.md §6, when
// PINATA_API_KEY/PINATA_SECRET_KEY are both set they supersede IPFS_ENDPOINT;
// Config.PinataKey/PinataSecret being empty falls back to a bare IPFS node.
package ipfsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/util/resiliency"
)

// Config carries the env-var-sourced settings an IPFS-family client needs.
type Config struct {
	Endpoint     string // IPFS_ENDPOINT, used when Pinata credentials are absent
	PinataKey    string // PINATA_API_KEY
	PinataSecret string // PINATA_SECRET_KEY
}

const pinataBaseURL = "https://api.pinata.cloud"

// Client is a storageadapter.IPFSClient backed either by Pinata's pinning
// API or a bare IPFS node's HTTP API, reached through
// resiliency.EnhancedClient's retry and circuit breaker wrapping.
type Client struct {
	cfg    Config
	http   *resiliency.EnhancedClient
	pinata bool
}

// New derives a client from cfg.
func New(cfg Config) (*Client, error) {
	pinata := cfg.PinataKey != "" && cfg.PinataSecret != ""
	if !pinata && cfg.Endpoint == "" {
		return nil, traceerr.Validation("either IPFS_ENDPOINT or both PINATA_API_KEY/PINATA_SECRET_KEY are required")
	}
	return &Client{cfg: cfg, http: resiliency.NewEnhancedClient(), pinata: pinata}, nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.pinata {
		req.Header.Set("pinata_api_key", c.cfg.PinataKey)
		req.Header.Set("pinata_secret_api_key", c.cfg.PinataSecret)
	}
}

// Add uploads data and returns its content identifier.
func (c *Client) Add(ctx context.Context, data []byte) (string, error) {
	if c.pinata {
		return c.pinataAdd(ctx, data)
	}
	return c.nodeAdd(ctx, data)
}

func (c *Client) pinataAdd(ctx context.Context, data []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "blob")
	if err != nil {
		return "", traceerr.Write(err, "build pinata upload body")
	}
	if _, err := part.Write(data); err != nil {
		return "", traceerr.Write(err, "write pinata upload body")
	}
	if err := w.Close(); err != nil {
		return "", traceerr.Write(err, "close pinata upload body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pinataBaseURL+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return "", traceerr.Connection(err, "build pinata upload request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", traceerr.Connection(err, "pin file to ipfs")
	}
	defer resp.Body.Close()

	var out struct {
		IpfsHash string `json:"IpfsHash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", traceerr.Read(err, "decode pinata upload response")
	}
	if out.IpfsHash == "" {
		return "", traceerr.Write(fmt.Errorf("empty IpfsHash"), "pin file to ipfs")
	}
	return out.IpfsHash, nil
}

func (c *Client) nodeAdd(ctx context.Context, data []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "blob")
	if err != nil {
		return "", traceerr.Write(err, "build ipfs node upload body")
	}
	if _, err := part.Write(data); err != nil {
		return "", traceerr.Write(err, "write ipfs node upload body")
	}
	if err := w.Close(); err != nil {
		return "", traceerr.Write(err, "close ipfs node upload body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/api/v0/add", &body)
	if err != nil {
		return "", traceerr.Connection(err, "build ipfs node add request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", traceerr.Connection(err, "add to ipfs node")
	}
	defer resp.Body.Close()

	var out struct {
		Hash string `json:"Hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", traceerr.Read(err, "decode ipfs node add response")
	}
	return out.Hash, nil
}

// Get retrieves the bytes behind cid.
func (c *Client) Get(ctx context.Context, cid string) ([]byte, error) {
	gatewayURL := c.cfg.Endpoint
	if c.pinata {
		gatewayURL = "https://gateway.pinata.cloud"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/ipfs/%s", gatewayURL, cid), nil)
	if err != nil {
		return nil, traceerr.Connection(err, "build ipfs get request for %s", cid)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, traceerr.Connection(err, "get %s from ipfs", cid)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, traceerr.Read(err, "read ipfs response body for %s", cid)
	}
	return data, nil
}

// Pin requests the pinning service keep cid available.
func (c *Client) Pin(ctx context.Context, cid string) error {
	if !c.pinata {
		// A bare node that added the content already holds it; nothing
		// further to request.
		return nil
	}
	body, err := json.Marshal(map[string]string{"hashToPin": cid})
	if err != nil {
		return traceerr.Write(err, "encode pin request for %s", cid)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pinataBaseURL+"/pinning/pinByHash", bytes.NewReader(body))
	if err != nil {
		return traceerr.Connection(err, "build pin request for %s", cid)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return traceerr.Connection(err, "pin %s", cid)
	}
	defer resp.Body.Close()
	return nil
}

// Healthy reports whether the backing service is currently reachable.
func (c *Client) Healthy(ctx context.Context) bool {
	base := c.cfg.Endpoint
	path := "/api/v0/version"
	if c.pinata {
		base = pinataBaseURL
		path = "/data/testAuthentication"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return false
	}
	c.setAuth(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 300
}
