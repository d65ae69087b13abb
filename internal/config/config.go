// 包 config 负责加载与校验应用配置（settings.yaml），
// 对外提供结构体 Config 及默认值/合法性校验。
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 为全部可配置项；零值字段由 Validate 填充默认值。
type Config struct {
	BaseURL        string      `yaml:"BASE_URL"`
	Username       string      `yaml:"USERNAME"`
	TimeoutSeconds int         `yaml:"TIMEOUT_SECONDS"`
	Retry          Retry       `yaml:"RETRY"`
	Concurrency    Concurrency `yaml:"CONCURRENCY"`
	// ProbeVerifyTLS 为 false 时页数探测请求不校验证书。
	ProbeVerifyTLS bool     `yaml:"PROBE_VERIFY_TLS"`
	Proxy          Proxy    `yaml:"PROXY"`
	UserAgent      string   `yaml:"USER_AGENT"`
	Output         Output   `yaml:"OUTPUT"`
	Database       Database `yaml:"DATABASE"`
	LogLevel       string   `yaml:"LOG_LEVEL"`
	LogFormat      string   `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale      string   `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor       string   `yaml:"LOG_COLOR"`  // auto|always|never
}

type Retry struct {
	Attempts int `yaml:"attempts"`
	BaseMS   int `yaml:"base_ms"`
}

// Concurrency 中 pages/details 为 0 表示不限，parse 为 0 表示 GOMAXPROCS。
type Concurrency struct {
	Pages   int `yaml:"pages"`
	Details int `yaml:"details"`
	Parse   int `yaml:"parse"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

type Output struct {
	Format string `yaml:"format"` // json|csv|xlsx|table
	Path   string `yaml:"path"`
}

type Database struct {
	Enable bool   `yaml:"enable"`
	DSN    string `yaml:"dsn"` // ./diary.db
}

var formats = map[string]bool{"json": true, "csv": true, "xlsx": true, "table": true}

// Default 返回填充好默认值的配置（无配置文件时使用）。
func Default() *Config {
	c := &Config{}
	_ = c.Validate()
	return c
}

// Load 从文件读取 YAML 并反序列化为 Config，同时进行基础校验与默认值填充。
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadOrDefault 与 Load 相同，但文件不存在时返回 Default()。
func LoadOrDefault(path string) (*Config, error) {
	c, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return c, err
}

// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
func (c *Config) Validate() error {
	if c.TimeoutSeconds < 0 {
		return errors.New("TIMEOUT_SECONDS must be >= 0")
	}
	if c.Retry.Attempts < 0 || c.Retry.BaseMS < 0 {
		return errors.New("RETRY.attempts and RETRY.base_ms must be >= 0")
	}
	if c.Concurrency.Pages < 0 || c.Concurrency.Details < 0 || c.Concurrency.Parse < 0 {
		return errors.New("CONCURRENCY values must be >= 0")
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = "https://letterboxd.com"
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("BASE_URL must be http(s): %s", c.BaseURL)
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 10
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = 5
	}
	if c.Retry.BaseMS == 0 {
		c.Retry.BaseMS = 1000
	}
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = "json"
	}
	if !formats[c.Output.Format] {
		return fmt.Errorf("unsupported output format: %s", c.Output.Format)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./diary.db"
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}

// Timeout 为单次请求超时。
func (c *Config) Timeout() time.Duration { return time.Duration(c.TimeoutSeconds) * time.Second }

// BaseDelay 为退避基数。
func (c *Config) BaseDelay() time.Duration { return time.Duration(c.Retry.BaseMS) * time.Millisecond }
