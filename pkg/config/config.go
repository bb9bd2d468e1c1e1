package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultEndpoint is a local solo node REST address.
	DefaultEndpoint = "http://127.0.0.1:8669"
	// DefaultPollInterval is used by waiters when nothing else is configured.
	DefaultPollInterval = time.Second
	// DefaultRetryCount is the number of transient poll failures tolerated.
	DefaultRetryCount = 3

	// EndpointEnv overrides Client.Endpoint.
	EndpointEnv = "THOR_ENDPOINT"
	// LogLevelEnv overrides Logger.LogLevel.
	LogLevelEnv = "THOR_LOG_LEVEL"
)

// Version is the version of the thor-go tools, overridden at build time
// with -ldflags "-X".
var Version = "0.1.0-dev"

// Config is the top level configuration structure of thor-go tools.
type Config struct {
	Client     Client       `yaml:"Client"`
	Proxy      Proxy        `yaml:"Proxy"`
	Prometheus BasicService `yaml:"Prometheus"`
	Logger     Logger       `yaml:"Logger"`
}

// Client describes node connection parameters.
type Client struct {
	Endpoint        string        `yaml:"Endpoint"`
	DialTimeout     time.Duration `yaml:"DialTimeout"`
	RequestTimeout  time.Duration `yaml:"RequestTimeout"`
	MaxConnsPerHost int           `yaml:"MaxConnsPerHost"`
	PollInterval    time.Duration `yaml:"PollInterval"`
	RetryCount      int           `yaml:"RetryCount"`
}

// Proxy is an Ethereum JSON-RPC proxy service configuration.
type Proxy struct {
	BasicService `yaml:",inline"`
	// EnableCORSWorkaround adds permissive CORS headers to responses.
	EnableCORSWorkaround bool `yaml:"EnableCORSWorkaround"`
	// MaxRequestBodyBytes limits request size, 5 MiB if not set.
	MaxRequestBodyBytes int `yaml:"MaxRequestBodyBytes"`
	// Accounts are returned by eth_accounts.
	Accounts []string `yaml:"Accounts"`
}

// Logger contains node logger configuration.
type Logger struct {
	LogEncoding  string `yaml:"LogEncoding"`
	LogLevel     string `yaml:"LogLevel"`
	LogPath      string `yaml:"LogPath"`
	LogTimestamp *bool  `yaml:"LogTimestamp,omitempty"`
}

// Default returns configuration filled with default values.
func Default() Config {
	return Config{
		Client: Client{
			Endpoint:     DefaultEndpoint,
			PollInterval: DefaultPollInterval,
			RetryCount:   DefaultRetryCount,
		},
		Logger: Logger{
			LogLevel: "info",
		},
	}
}

// Load attempts to load the config from the given path. Values missing
// from the file keep their defaults, environment (and .env file found next
// to the config or in the working directory) overrides are applied after
// that.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}
	cfg, err := LoadBytes(data)
	if err != nil {
		return Config{}, err
	}
	err = loadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env")
	if err != nil {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// LoadDefault returns the default configuration with .env file from the
// working directory and environment overrides applied.
func LoadDefault() (Config, error) {
	cfg := Default()
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// LoadBytes unmarshals config from YAML data on top of the defaults. No
// environment overrides are applied.
func LoadBytes(data []byte) (Config, error) {
	cfg := Default()
	err := yaml.Unmarshal(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	return cfg, nil
}

// Validate checks Config for internal consistency.
func (c Config) Validate() error {
	if c.Client.Endpoint == "" {
		return errors.New("empty Client.Endpoint")
	}
	if c.Client.RetryCount < 0 {
		return fmt.Errorf("negative Client.RetryCount: %d", c.Client.RetryCount)
	}
	if c.Client.PollInterval < 0 {
		return fmt.Errorf("negative Client.PollInterval: %s", c.Client.PollInterval)
	}
	if c.Proxy.Enabled && len(c.Proxy.GetAddresses()) == 0 {
		return errors.New("no addresses configured for enabled Proxy")
	}
	return nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EndpointEnv); ok && v != "" {
		c.Client.Endpoint = v
	}
	if v, ok := os.LookupEnv(LogLevelEnv); ok && v != "" {
		c.Logger.LogLevel = v
	}
}

// loadDotEnv loads the first existing file of the given ones, variables
// already present in the environment are not overwritten.
func loadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		return godotenv.Load(f)
	}
	return nil
}
