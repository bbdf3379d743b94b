package storageadapter

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/defarm/tracectl/pkg/canonicalize"
)

// GCSPinClient is a content-addressed IPFSClient backed by a GCS bucket.
// It is not a real IPFS node: Add's returned cid is a BLAKE3 content hash
// rather than a multihash, which is sufficient for it to serve as a
// secondary pin target behind PinFallbackClient.
type GCSPinClient struct {
	client *storage.Client
	bucket string
	prefix string
}

// GCSPinConfig configures a GCSPinClient.
type GCSPinConfig struct {
	Bucket string
	Prefix string
}

// NewGCSPinClient builds a client using application default credentials.
func NewGCSPinClient(ctx context.Context, cfg GCSPinConfig) (*GCSPinClient, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storageadapter: create gcs client: %w", err)
	}
	return &GCSPinClient{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (c *GCSPinClient) objectPath(cid string) string {
	return c.prefix + cid + ".blob"
}

func (c *GCSPinClient) Add(ctx context.Context, data []byte) (string, error) {
	cid := canonicalize.ContentHash(data)
	obj := c.client.Bucket(c.bucket).Object(c.objectPath(cid))

	w := obj.NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storageadapter: gcs pin write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storageadapter: gcs pin close failed: %w", err)
	}
	return cid, nil
}

func (c *GCSPinClient) Get(ctx context.Context, cid string) ([]byte, error) {
	obj := c.client.Bucket(c.bucket).Object(c.objectPath(cid))
	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("storageadapter: gcs pin get failed for %s: %w", cid, err)
	}
	defer func() { _ = reader.Close() }()
	return io.ReadAll(reader)
}

func (c *GCSPinClient) Pin(ctx context.Context, cid string) error {
	_, err := c.client.Bucket(c.bucket).Object(c.objectPath(cid)).Attrs(ctx)
	if err != nil {
		return fmt.Errorf("storageadapter: gcs pin check failed for %s: %w", cid, err)
	}
	return nil
}

func (c *GCSPinClient) Healthy(ctx context.Context) bool {
	_, err := c.client.Bucket(c.bucket).Attrs(ctx)
	return err == nil
}

var _ IPFSClient = (*GCSPinClient)(nil)

// PinFallbackClient wraps a primary IPFSClient with a secondary (normally
// a GCSPinClient): Add mirrors every successful primary upload into the
// secondary best-effort, so a later primary outage can still serve reads;
// Get and Pin fall through to the secondary when the primary errors.
type PinFallbackClient struct {
	primary   IPFSClient
	secondary IPFSClient
	log       *slog.Logger
}

// NewPinFallbackClient returns a PinFallbackClient over primary/secondary.
func NewPinFallbackClient(primary, secondary IPFSClient, log *slog.Logger) *PinFallbackClient {
	if log == nil {
		log = slog.Default()
	}
	return &PinFallbackClient{primary: primary, secondary: secondary, log: log}
}

func (p *PinFallbackClient) Add(ctx context.Context, data []byte) (string, error) {
	cid, err := p.primary.Add(ctx, data)
	if err != nil {
		p.log.Warn("storageadapter: primary pin add failed, falling back", "error", err)
		return p.secondary.Add(ctx, data)
	}
	if _, ferr := p.secondary.Add(ctx, data); ferr != nil {
		p.log.Warn("storageadapter: secondary pin mirror failed", "cid", cid, "error", ferr)
	}
	return cid, nil
}

func (p *PinFallbackClient) Get(ctx context.Context, cid string) ([]byte, error) {
	data, err := p.primary.Get(ctx, cid)
	if err == nil {
		return data, nil
	}
	p.log.Warn("storageadapter: primary pin get failed, falling back", "cid", cid, "error", err)
	return p.secondary.Get(ctx, cid)
}

func (p *PinFallbackClient) Pin(ctx context.Context, cid string) error {
	if err := p.primary.Pin(ctx, cid); err != nil {
		return p.secondary.Pin(ctx, cid)
	}
	return nil
}

func (p *PinFallbackClient) Healthy(ctx context.Context) bool {
	return p.primary.Healthy(ctx) || p.secondary.Healthy(ctx)
}

var _ IPFSClient = (*PinFallbackClient)(nil)
