package nsi

import (
	"context"
	"crypto/tls"
)

// DDSClient performs plain mutual-TLS GETs against a Discovery Service
// endpoint. It shares transport's TLS config and 30s timeout with Client;
// GETs are not retried and do not pass through the rate limiter, DDS
// polling being paced only by the scheduler's once-a-minute cadence.
type DDSClient struct {
	t *transport
}

// NewDDSClient constructs a DDSClient using tlsCfg; the URL is passed per Get.
func NewDDSClient(tlsCfg *tls.Config) *DDSClient {
	return &DDSClient{t: newTransport(tlsCfg, 5)}
}

// Get retrieves the raw body at url.
func (c *DDSClient) Get(ctx context.Context, url string) ([]byte, error) {
	return c.t.get(ctx, url)
}
