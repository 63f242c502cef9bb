package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/viewdiff/internal/config"
)

// Config holds the surface server configuration.
type Config struct {
	// Address is the address to listen on (e.g., ":7420").
	// Default: "localhost:7420".
	Address string

	// ReadTimeout bounds reading a request, body included.
	// Default: 10 seconds.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing a single stream frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 5 seconds.
	ShutdownTimeout time.Duration

	// PingInterval is the time between control pings on a stream. A stream
	// that sends nothing for two intervals is closed.
	// Default: 15 seconds.
	PingInterval time.Duration

	// MaxTreeBytes limits the size of an uploaded tree document.
	// Default: 4MB.
	MaxTreeBytes int64

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin is called to validate the stream request origin.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// Registerer receives the HTTP and stream metrics. Nil disables them.
	Registerer prometheus.Registerer

	// MetricsNamespace prefixes the HTTP and stream metrics.
	// Default: "viewdiff".
	MetricsNamespace string

	// Storage resolves s3:// tree references given with ?source=.
	Storage config.S3Config

	// SourceDir roots file references given with ?source=. Empty rejects
	// file references.
	SourceDir string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:         "localhost:7420",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		PingInterval:    15 * time.Second,
		MaxTreeBytes:    4 << 20,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     SameOriginCheck,
	}
}

// ConfigFrom builds a Config from a loaded viewdiff.json.
func ConfigFrom(c *config.Config) *Config {
	cfg := DefaultConfig()
	cfg.Address = c.Address()
	if d := c.ReadTimeout(); d > 0 {
		cfg.ReadTimeout = d
	}
	if d := c.ShutdownTimeout(); d > 0 {
		cfg.ShutdownTimeout = d
	}
	if c.Server.MaxTreeBytes > 0 {
		cfg.MaxTreeBytes = c.Server.MaxTreeBytes
	}
	cfg.Storage = c.Storage.S3
	cfg.MetricsNamespace = c.Metrics.Namespace
	return cfg
}

// SameOriginCheck accepts requests without an Origin header and requests
// whose Origin host matches the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return r.Host != "" && u.Host == r.Host
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// WithAddress sets the listen address and returns the config for chaining.
func (c *Config) WithAddress(addr string) *Config {
	c.Address = addr
	return c
}
