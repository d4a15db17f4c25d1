package nsi

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/ratelimit"
)

// TLSConfig loads the client certificate/private key pair and, if
// provided, an overriding CA trust store (file or directory), for mutual
// TLS to the NSI aggregator and the DDS.
func TLSConfig(certPath, keyPath, caPath string, verify bool) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("nsi: load client certificate/key: %w", err)
	}

	cfg := &tls.Config{
		Certificates:       []tls.Certificate{cert},
		InsecureSkipVerify: !verify,
	}

	if caPath != "" {
		pool, err := loadCAPool(caPath)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

func loadCAPool(path string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("nsi: stat CA_CERTIFICATES %q: %w", path, err)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("nsi: read CA_CERTIFICATES dir %q: %w", path, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
	} else {
		files = []string{path}
	}

	for _, f := range files {
		pem, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("nsi: read CA certificate %q: %w", f, err)
		}
		pool.AppendCertsFromPEM(pem)
	}
	return pool, nil
}

// transport is the shared round tripper for outbound NSI and DDS calls:
// mutual TLS and a 30s timeout for both. NSI POSTs additionally get 3
// connect retries with ~0.1s*0.5^n backoff and a rate limiter so a burst
// of dispatched jobs cannot overwhelm the aggregator
// (ratelimit.New(5, ratelimit.WithoutSlack)); DDS GETs get neither.
type transport struct {
	client  *http.Client
	limiter ratelimit.Limiter
}

func newTransport(tlsCfg *tls.Config, ratePerSecond int) *transport {
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}
	return &transport{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: tlsCfg,
			},
		},
		limiter: ratelimit.New(ratePerSecond, ratelimit.WithoutSlack),
	}
}

// post sends body as a text/xml SOAP request to url, retrying connect
// failures up to 3 times with exponential backoff (factor 0.5, baseline
// ~0.1s). No retries are performed on a well-formed but unsuccessful SOAP
// reply: only connection-establishment failures are retried.
func (t *transport) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	t.limiter.Take()

	const maxRetries = 3
	backoff := 100 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &ErrTransport{Op: "post", Err: ctx.Err()}
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * 0.5)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, &ErrTransport{Op: "post", Err: err}
		}
		req.Header.Set("Content-Type", "text/xml")

		resp, err := t.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &ErrTransport{Op: "post", Err: err}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &ErrTransport{Op: "post", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
		}
		if ct := resp.Header.Get("Content-Type"); !isValidSOAPContentType(ct) {
			return nil, &ErrTransport{Op: "post", Err: fmt.Errorf("unexpected content-type %q", ct)}
		}

		return data, nil
	}

	return nil, &ErrTransport{Op: "post", Err: lastErr}
}

// get performs a plain mutual-TLS GET, used for the DDS index fetch.
func (t *transport) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ErrTransport{Op: "get", Err: err}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &ErrTransport{Op: "get", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ErrTransport{Op: "get", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	return io.ReadAll(resp.Body)
}
