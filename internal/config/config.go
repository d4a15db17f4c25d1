// Package config loads the core's environment-variable configuration
// once at startup, rejecting unknown or malformed values. There is no
// env-var configuration library anywhere in the retrieved example pack,
// so this loader is a small hand-rolled, table-driven reader (one parse
// closure per recognized variable, no reflection) over a fixed struct — the one ambient piece of this module built directly on the
// standard library rather than a third-party dependency (see DESIGN.md).
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config is every recognized environment variable, loaded once at
// process start.
type Config struct {
	Host string
	Port int

	Certificate string
	PrivateKey  string
	CACerts     string
	VerifyReqs  bool

	DatabaseURI string

	StaticDirectory string

	NSAScheme     string
	NSAHost       string
	NSAPort       int
	NSAPathPrefix string

	NSIProviderURL string
	NSIProviderID  string
	NSIDDSURL      string

	SQLLogging bool
	LogLevel   string

	JobConcurrency int
}

// field describes one recognized environment variable and how to parse it.
type field struct {
	name     string
	required bool
	assign   func(c *Config, raw string) error
}

func boolField(name string, required bool, dflt bool, dst *bool) field {
	return field{name: name, required: required, assign: func(_ *Config, raw string) error {
		if raw == "" {
			*dst = dflt
			return nil
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid bool %q: %w", name, raw, err)
		}
		*dst = b
		return nil
	}}
}

func intField(name string, required bool, dst *int) field {
	return field{name: name, required: required, assign: func(_ *Config, raw string) error {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid int %q: %w", name, raw, err)
		}
		*dst = n
		return nil
	}}
}

func strField(name string, required bool, dst *string) field {
	return field{name: name, required: required, assign: func(_ *Config, raw string) error {
		*dst = raw
		return nil
	}}
}

// knownPrefixes are the environment-variable prefixes this core owns.
// Any variable with the NSI_/NSA_/CA_/DATABASE_/STATIC_/SQL_/LOG_/VERIFY_
// prefix that is NOT one of the recognized fields in Load is rejected at
// startup.
var knownPrefixes = []string{"NSI_", "NSA_", "CA_", "DATABASE_", "STATIC_", "SQL_", "LOG_", "VERIFY_"}

// Load reads os.Environ() into a Config, failing fast on any missing
// required variable, malformed value, unsupported DATABASE_URI scheme, or
// any environment variable carrying one of knownPrefixes that isn't
// recognized.
func Load() (*Config, error) {
	c := &Config{JobConcurrency: 10}

	fields := []field{
		strField("NSI_AURA_HOST", true, &c.Host),
		intField("NSI_AURA_PORT", true, &c.Port),
		strField("NSI_AURA_CERTIFICATE", true, &c.Certificate),
		strField("NSI_AURA_PRIVATE_KEY", true, &c.PrivateKey),
		strField("CA_CERTIFICATES", false, &c.CACerts),
		boolField("VERIFY_REQUESTS", false, true, &c.VerifyReqs),
		strField("DATABASE_URI", true, &c.DatabaseURI),
		strField("STATIC_DIRECTORY", true, &c.StaticDirectory),
		strField("NSA_SCHEME", true, &c.NSAScheme),
		strField("NSA_HOST", true, &c.NSAHost),
		intField("NSA_PORT", true, &c.NSAPort),
		strField("NSA_PATH_PREFIX", false, &c.NSAPathPrefix),
		strField("NSI_PROVIDER_URL", true, &c.NSIProviderURL),
		strField("NSI_PROVIDER_ID", true, &c.NSIProviderID),
		strField("NSI_DDS_URL", true, &c.NSIDDSURL),
		boolField("SQL_LOGGING", false, false, &c.SQLLogging),
		strField("LOG_LEVEL", false, &c.LogLevel),
	}

	recognized := make(map[string]bool, len(fields))
	for _, f := range fields {
		recognized[f.name] = true
	}
	recognized["NSI_JOB_CONCURRENCY"] = true

	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if !hasKnownPrefix(name) || recognized[name] {
			continue
		}
		return nil, fmt.Errorf("config: unrecognized environment variable %q", name)
	}

	for _, f := range fields {
		raw, present := os.LookupEnv(f.name)
		if !present {
			if f.required {
				return nil, fmt.Errorf("config: missing required environment variable %s", f.name)
			}
			raw = ""
		}
		if err := f.assign(c, raw); err != nil {
			return nil, err
		}
	}

	if raw := os.Getenv("NSI_JOB_CONCURRENCY"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("NSI_JOB_CONCURRENCY: invalid int %q: %w", raw, err)
		}
		c.JobConcurrency = n
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func hasKnownPrefix(name string) bool {
	for _, p := range knownPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func (c *Config) validate() error {
	u, err := url.Parse(c.DatabaseURI)
	if err != nil {
		return fmt.Errorf("DATABASE_URI: %w", err)
	}
	switch u.Scheme {
	case "sqlite", "postgresql":
	default:
		return fmt.Errorf("DATABASE_URI: unsupported scheme %q, want sqlite:// or postgresql://", u.Scheme)
	}

	if _, err := url.Parse(c.NSIProviderURL); err != nil {
		return fmt.Errorf("NSI_PROVIDER_URL: %w", err)
	}
	if _, err := url.Parse(c.NSIDDSURL); err != nil {
		return fmt.Errorf("NSI_DDS_URL: %w", err)
	}
	return nil
}

// CallbackURL is the externally reachable REPLY-TO-URL built from the
// NSA_SCHEME/HOST/PORT/PATH_PREFIX components.
func (c *Config) CallbackURL() string {
	host := c.NSAHost
	if c.NSAPort != 0 {
		host = fmt.Sprintf("%s:%d", c.NSAHost, c.NSAPort)
	}
	return fmt.Sprintf("%s://%s%s/api/nsi/callback/", c.NSAScheme, host, c.NSAPathPrefix)
}
