package topology

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"testing"
)

func gzipBase64(t *testing.T, plain string) string {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(plain)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestUnzipRoundTrip(t *testing.T) {
	want := "<nml:Topology/>"
	encoded := gzipBase64(t, want)

	got, err := unzip(encoded)
	if err != nil {
		t.Fatalf("unzip: %v", err)
	}
	if string(got) != want {
		t.Errorf("unzip() = %q, want %q", got, want)
	}
}

func TestUnzipRejectsMalformedBase64(t *testing.T) {
	if _, err := unzip("not-valid-base64!!"); err == nil {
		t.Fatal("expected an error for malformed base64")
	}
}
