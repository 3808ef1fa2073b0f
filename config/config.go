package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "DOCSCAN"

// The global, read-only config variable.
var (
	cfg  *Config
	once sync.Once
)

// LoadConfig reads the config file, parses it, and initializes the global cfg variable.
// It ensures that the configuration is set only once.
func LoadConfig(configFile string) (*Config, error) {
	var err error
	once.Do(func() {
		var configuration *Config
		configuration, err = New(configFile)
		if err != nil {
			return
		}
		cfg = configuration
	})

	if err != nil {
		return nil, err
	}

	if cfg == nil {
		return nil, errors.New("configuration was not set")
	}

	return cfg, nil
}

// New builds a configuration from defaults, the optional YAML file and the environment.
// An empty configFile means environment and defaults only.
func New(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("aws.access_key_id", envPrefix+"_AWS_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("aws.secret_access_key", envPrefix+"_AWS_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY")
	_ = v.BindEnv("aws.region", envPrefix+"_AWS_REGION", "AWS_REGION_NAME", "AWS_REGION")

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var configuration Config
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := configuration.validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// LoadEnvFile copies the variables of a dotenv file into the process environment.
// Variables already set to a non-empty value in the environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading env file: %w", err)
	}

	// viper lowercases keys; environment variable names are conventionally upper case.
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if current, exists := os.LookupEnv(name); exists && current != "" {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("error setting %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_address", "127.0.0.1:8501")
	v.SetDefault("shutdown_timeout", 10*time.Second)

	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("aws.region", "")

	v.SetDefault("model.id", "anthropic.claude-3-5-sonnet-20240620-v1:0")
	v.SetDefault("model.anthropic_version", "bedrock-2023-05-31")
	v.SetDefault("model.max_tokens", 8000)
	v.SetDefault("model.timeout", 2*time.Minute)

	v.SetDefault("prompt.examples_docx", "examples_from_word.docx")
	v.SetDefault("prompt.examples_dir", "")

	v.SetDefault("logo.url", "https://www.drupal.org/files/styles/grid-4-2x/public/bar-ilan-university-logo.png?itok=BtP0hVC5")
	v.SetDefault("logo.caption", "בר אילן - סורק תמונות")
	v.SetDefault("logo.timeout", 10*time.Second)
	v.SetDefault("logo.max_bytes", 5<<20)

	v.SetDefault("upload.max_bytes", 200<<20)
	v.SetDefault("image.max_dimension", 8000)
	v.SetDefault("image.max_pixels", 64_000_000)

	v.SetDefault("limits.queue_timeout", 75*time.Second)
	v.SetDefault("limits.default_size", 10)
	v.SetDefault("limits.pools", []map[string]any{
		{"name": "analyze", "size": 4},
		{"name": "extract", "size": 2},
	})
}

func (c *Config) validate() error {
	if c.ListenAddress == "" {
		return errors.New("listen_address is required")
	}
	if c.Model.ID == "" {
		return errors.New("model.id is required")
	}
	if c.AWS.Region == "" {
		return errors.New("aws.region is required (set AWS_REGION_NAME)")
	}
	if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
		return errors.New("aws.access_key_id and aws.secret_access_key must be set together")
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("model.max_tokens must be positive, got %d", c.Model.MaxTokens)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Image.MaxDimension <= 0 {
		return fmt.Errorf("image.max_dimension must be positive, got %d", c.Image.MaxDimension)
	}
	if c.Image.MaxPixels <= 0 {
		return fmt.Errorf("image.max_pixels must be positive, got %d", c.Image.MaxPixels)
	}
	if c.Model.Timeout < 0 {
		return fmt.Errorf("model.timeout must not be negative, got %s", c.Model.Timeout)
	}
	if c.Logo.Timeout < 0 {
		return fmt.Errorf("logo.timeout must not be negative, got %s", c.Logo.Timeout)
	}
	if c.Limits.QueueTimeout <= 0 {
		return fmt.Errorf("limits.queue_timeout must be positive, got %s", c.Limits.QueueTimeout)
	}
	if c.Limits.DefaultSize <= 0 {
		return fmt.Errorf("limits.default_size must be positive, got %d", c.Limits.DefaultSize)
	}
	// Pool sizes are not validated here; the manager replaces invalid sizes with a default.
	return nil
}
