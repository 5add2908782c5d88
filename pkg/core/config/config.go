package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	General   GeneralConfig   `toml:"general" yaml:"general"`
	Naming    NamingConfig    `toml:"naming" yaml:"naming"`
	Transport TransportConfig `toml:"transport" yaml:"transport"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	Name      string `toml:"name" yaml:"name"`
	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`
}

// NamingConfig holds the name service client settings
type NamingConfig struct {
	// Address of the NameService endpoint (host:port)
	Address string `toml:"address" yaml:"address"`
	// Context under which control tasks are bound
	TaskContext string `toml:"task_context" yaml:"task_context"`
	// Bindings pulled per iterator round trip
	PageSize int `toml:"page_size" yaml:"page_size"`
	// Bindings requested with the initial list call
	InitialBatch int      `toml:"initial_batch" yaml:"initial_batch"`
	CallTimeout  Duration `toml:"call_timeout" yaml:"call_timeout"`
	DialTimeout  Duration `toml:"dial_timeout" yaml:"dial_timeout"`
}

// TransportConfig holds gRPC transport settings
type TransportConfig struct {
	MaxRecvMsgSize    int      `toml:"max_recv_msg_size" yaml:"max_recv_msg_size"`
	MaxSendMsgSize    int      `toml:"max_send_msg_size" yaml:"max_send_msg_size"`
	KeepaliveInterval Duration `toml:"keepalive_interval" yaml:"keepalive_interval"`
	KeepaliveTimeout  Duration `toml:"keepalive_timeout" yaml:"keepalive_timeout"`
}

// Duration wraps time.Duration for TOML and YAML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML parses a duration scalar
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, got %v", value.Tag)
	}
	return d.UnmarshalText([]byte(value.Value))
}

// Default returns a configuration with all defaults applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a TOML or YAML file. The format is chosen by
// file extension; anything other than .yaml/.yml is parsed as TOML.
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration from the TASKDIR_CONFIG environment
// variable or the default locations. Without any file, defaults plus
// environment overrides are returned.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("TASKDIR_CONFIG")
	if path == "" {
		// Try default locations
		defaultPaths := []string{
			"./configs/taskdir.toml",
			"./taskdir.toml",
			"./taskdir.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/taskdir/config.toml"),
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		cfg := Default()
		cfg.applyEnv()
		return cfg, cfg.Validate()
	}

	return Load(path)
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// General
	if c.General.Name == "" {
		c.General.Name = "taskdir"
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "text"
	}

	// Naming
	if c.Naming.TaskContext == "" {
		c.Naming.TaskContext = "ControlTasks"
	}
	if c.Naming.PageSize == 0 {
		c.Naming.PageSize = 10
	}
	if c.Naming.CallTimeout.Duration == 0 {
		c.Naming.CallTimeout.Duration = 5 * time.Second
	}
	if c.Naming.DialTimeout.Duration == 0 {
		c.Naming.DialTimeout.Duration = 5 * time.Second
	}

	// Transport
	if c.Transport.MaxRecvMsgSize == 0 {
		c.Transport.MaxRecvMsgSize = 4 * 1024 * 1024 // 4MB
	}
	if c.Transport.MaxSendMsgSize == 0 {
		c.Transport.MaxSendMsgSize = 4 * 1024 * 1024 // 4MB
	}
	if c.Transport.KeepaliveInterval.Duration == 0 {
		c.Transport.KeepaliveInterval.Duration = 30 * time.Second
	}
	if c.Transport.KeepaliveTimeout.Duration == 0 {
		c.Transport.KeepaliveTimeout.Duration = 10 * time.Second
	}
}

// applyEnv applies environment overrides
func (c *Config) applyEnv() {
	if addr := os.Getenv("TASKDIR_NAMESERVICE"); addr != "" && c.Naming.Address == "" {
		c.Naming.Address = addr
	}
	if level := os.Getenv("TASKDIR_LOG_LEVEL"); level != "" {
		c.General.LogLevel = level
	}
	if size := os.Getenv("TASKDIR_PAGE_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil {
			c.Naming.PageSize = n
		}
	}
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Naming.PageSize < 1 {
		return fmt.Errorf("naming.page_size must be positive, got %d", c.Naming.PageSize)
	}
	if c.Naming.InitialBatch < 0 {
		return fmt.Errorf("naming.initial_batch must not be negative, got %d", c.Naming.InitialBatch)
	}
	if strings.Contains(c.Naming.TaskContext, "/") {
		return fmt.Errorf("naming.task_context must be a single name component: %q", c.Naming.TaskContext)
	}
	return nil
}
