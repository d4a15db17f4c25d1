package topology

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/workfloworchestrator/nsi-aura/internal/nsi"
)

// MIME types the DDS index tags each document with.
const (
	DiscoveryMimeType = "vnd.ogf.nsi.nsa.v1+xml"
	TopologyMimeType  = "vnd.ogf.nsi.topology.v2+xml"
)

// Documents indexes DDS documents by MIME type then by document id, with
// content already base64-decoded and gzip-decompressed.
type Documents map[string]map[string][]byte

// FetchDocuments retrieves the DDS index and decodes every document it
// references. A document that fails to decode is skipped; the index fetch
// or parse itself failing is fatal for this poll.
func FetchDocuments(ctx context.Context, client *nsi.DDSClient, ddsURL string) (Documents, error) {
	raw, err := client.Get(ctx, ddsURL)
	if err != nil {
		return nil, fmt.Errorf("topology: fetch DDS index: %w", err)
	}

	flat, err := nsi.Flatten(raw)
	if err != nil {
		return nil, fmt.Errorf("topology: parse DDS index: %w", err)
	}

	docsElem := nsi.Unwrap(flat)
	docs := Documents{DiscoveryMimeType: {}, TopologyMimeType: {}}
	for _, d := range asList(docsElem["document"]) {
		typ := asString(d["type"])
		id := asString(d["id"])
		content, err := unzip(asString(d["content"]))
		if err != nil {
			continue
		}
		if docs[typ] == nil {
			docs[typ] = map[string][]byte{}
		}
		docs[typ][id] = content
	}
	return docs, nil
}

// unzip reverses the DDS content encoding: base64, then a gzip-wrapped
// deflate stream (the reference implementation's "16+MAX_WBITS" window,
// which is exactly what compress/gzip expects).
func unzip(b64 string) ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("topology: base64 decode document: %w", err)
	}
	r, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("topology: gunzip document: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}
