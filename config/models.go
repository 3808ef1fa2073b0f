package config

import "time"

// PoolConfigEntry represents the configuration for a single concurrency pool.
type PoolConfigEntry struct {
	Name string `mapstructure:"name"`
	Size int    `mapstructure:"size"`
}

// AWSConfig holds the Bedrock credentials. Empty keys fall back to the default AWS credential chain.
type AWSConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Region          string `mapstructure:"region"`
}

// ModelConfig describes the hosted model invoked for image analysis.
type ModelConfig struct {
	ID               string        `mapstructure:"id"`
	AnthropicVersion string        `mapstructure:"anthropic_version"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type PromptConfig struct {
	ExamplesDocx string `mapstructure:"examples_docx"`
	ExamplesDir  string `mapstructure:"examples_dir"`
}

type LogoConfig struct {
	URL      string        `mapstructure:"url"`
	Caption  string        `mapstructure:"caption"`
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxBytes int64         `mapstructure:"max_bytes"`
}

type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

type ImageConfig struct {
	// MaxDimension is the largest width or height sent to the model; bigger uploads are downscaled.
	MaxDimension int   `mapstructure:"max_dimension"`
	// MaxPixels bounds width*height of an upload before any pixels are decoded.
	MaxPixels    int64 `mapstructure:"max_pixels"`
}

type LimitsConfig struct {
	QueueTimeout time.Duration     `mapstructure:"queue_timeout"`
	DefaultSize  int               `mapstructure:"default_size"`
	Pools        []PoolConfigEntry `mapstructure:"pools"`
}

// Config holds the application configuration.
type Config struct {
	ListenAddress   string        `mapstructure:"listen_address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AWS             AWSConfig     `mapstructure:"aws"`
	Model           ModelConfig   `mapstructure:"model"`
	Prompt          PromptConfig  `mapstructure:"prompt"`
	Logo            LogoConfig    `mapstructure:"logo"`
	Upload          UploadConfig  `mapstructure:"upload"`
	Image           ImageConfig   `mapstructure:"image"`
	Limits          LimitsConfig  `mapstructure:"limits"`
}
