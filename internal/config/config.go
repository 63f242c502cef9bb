package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vango-dev/viewdiff/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "viewdiff.json"

	// DefaultPort is the default server port.
	DefaultPort = 7420

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultMode is the default diff mode.
	DefaultMode = "classic"

	// DefaultSubscriberBuffer is the number of transactions a stream
	// subscriber may fall behind before it is dropped.
	DefaultSubscriberBuffer = 64

	// DefaultNamespace prefixes every metric name.
	DefaultNamespace = "viewdiff"
)

// Config represents the complete viewdiff.json configuration.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `json:"server,omitempty"`

	// Differ contains diff algorithm configuration.
	Differ DifferConfig `json:"differ,omitempty"`

	// Mounting contains surface coordinator configuration.
	Mounting MountingConfig `json:"mounting,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Logging contains log output configuration.
	Logging LoggingConfig `json:"logging,omitempty"`

	// Storage contains tree document storage configuration.
	Storage StorageConfig `json:"storage,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// ReadTimeout bounds reading a request (e.g., "10s").
	ReadTimeout string `json:"readTimeout,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "5s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`

	// MaxTreeBytes limits the size of a posted tree document.
	MaxTreeBytes int64 `json:"maxTreeBytes,omitempty"`
}

// DifferConfig contains diff algorithm settings.
type DifferConfig struct {
	// Mode is "classic" or "optimized".
	Mode string `json:"mode,omitempty"`

	// Assertions enables contract checks that panic on malformed trees.
	Assertions bool `json:"assertions,omitempty"`
}

// MountingConfig contains surface coordinator settings.
type MountingConfig struct {
	// ValidateWithStubs replays every transaction on a stub view tree and
	// rejects commits that do not converge.
	ValidateWithStubs bool `json:"validateWithStubs,omitempty"`

	// SubscriberBuffer is the channel size of each stream subscriber.
	SubscriberBuffer int `json:"subscriberBuffer,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes /metrics and records coordinator metrics.
	Enabled bool `json:"enabled,omitempty"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// StorageConfig contains tree document storage settings.
type StorageConfig struct {
	// S3 configures s3:// references.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config contains S3 client settings. Credentials are read from the
// standard AWS environment variables.
type S3Config struct {
	// Region is the AWS region.
	Region string `json:"region,omitempty"`

	// Endpoint overrides the service endpoint (e.g., a MinIO URL).
	Endpoint string `json:"endpoint,omitempty"`

	// Bucket is the default bucket for stored trees.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is prepended to every key in the default bucket.
	Prefix string `json:"prefix,omitempty"`

	// UsePathStyle addresses buckets by path instead of subdomain.
	UsePathStyle bool `json:"usePathStyle,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     "10s",
			ShutdownTimeout: "5s",
			MaxTreeBytes:    4 << 20,
		},
		Differ: DifferConfig{
			Mode: DefaultMode,
		},
		Mounting: MountingConfig{
			SubscriberBuffer: DefaultSubscriberBuffer,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Storage: StorageConfig{
			S3: S3Config{
				Region: "us-east-1",
			},
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for viewdiff.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E103").
				WithDetail("No " + ConfigFileName + " found at " + path).
				WithSuggestion("Run 'viewdiff serve' without --config to use the defaults")
		}
		return nil, errors.New("E100").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E100").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that the file is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E102").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E102").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	// Server
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "10s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "5s"
	}
	if c.Server.MaxTreeBytes == 0 {
		c.Server.MaxTreeBytes = 4 << 20
	}

	// Differ
	if c.Differ.Mode == "" {
		c.Differ.Mode = DefaultMode
	}

	// Mounting
	if c.Mounting.SubscriberBuffer == 0 {
		c.Mounting.SubscriberBuffer = DefaultSubscriberBuffer
	}

	// Metrics
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}

	// Logging
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E104").
			WithDetail("server.port must be between 0 and 65535")
	}
	switch c.Differ.Mode {
	case "classic", "optimized":
	default:
		return errors.New("E101").
			WithDetail("differ.mode is " + strconv.Quote(c.Differ.Mode))
	}
	if c.Mounting.SubscriberBuffer < 0 {
		return errors.New("E104").
			WithDetail("mounting.subscriberBuffer must not be negative")
	}
	for name, d := range map[string]string{
		"server.readTimeout":     c.Server.ReadTimeout,
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return errors.New("E104").
				WithDetail(name + " is not a duration").
				Wrap(err)
		}
	}
	return nil
}

// Address returns the address string for the server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// ReadTimeout returns the parsed server read timeout.
func (c *Config) ReadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ReadTimeout)
	return d
}

// ShutdownTimeout returns the parsed graceful shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ShutdownTimeout)
	return d
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// LoadOrDefault loads path, or the working directory's viewdiff.json when
// path is empty. A missing default file yields New().
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	if !Exists(".") {
		return New(), nil
	}
	return Load(".")
}
