package config

import (
	"os"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	vars := map[string]string{
		"NSI_AURA_HOST":        "0.0.0.0",
		"NSI_AURA_PORT":        "8443",
		"NSI_AURA_CERTIFICATE": "/etc/uRA/cert.pem",
		"NSI_AURA_PRIVATE_KEY": "/etc/uRA/key.pem",
		"DATABASE_URI":         "sqlite:///var/lib/uRA/ura.sqlite",
		"STATIC_DIRECTORY":     "/etc/uRA/static",
		"NSA_SCHEME":           "https",
		"NSA_HOST":             "ura.example.org",
		"NSA_PORT":             "443",
		"NSI_PROVIDER_URL":     "https://aggregator.example.org/nsi/v2",
		"NSI_PROVIDER_ID":      "urn:ogf:network:aggregator.example.org:2024:nsa",
		"NSI_DDS_URL":          "https://dds.example.org/dds",
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
	_ = os.Unsetenv("NSI_JOB_CONCURRENCY")
}

func TestLoadSucceedsWithRequiredVars(t *testing.T) {
	setRequiredEnv(t)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if c.JobConcurrency != 10 {
		t.Fatalf("expected default concurrency 10, got %d", c.JobConcurrency)
	}
	if !c.VerifyReqs {
		t.Fatal("expected VERIFY_REQUESTS to default true")
	}
	want := "https://ura.example.org:443/api/nsi/callback/"
	if got := c.CallbackURL(); got != want {
		t.Fatalf("CallbackURL() = %q, want %q", got, want)
	}
}

func TestLoadFailsOnMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NSI_AURA_HOST", "")
	os.Unsetenv("NSI_AURA_HOST")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing NSI_AURA_HOST")
	}
}

func TestLoadRejectsUnsupportedDatabaseScheme(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URI", "mysql://localhost/ura")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported DATABASE_URI scheme")
	}
}

func TestLoadRejectsUnknownVariable(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NSI_AURA_BOGUS_FIELD", "x")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unrecognized environment variable")
	}
}
