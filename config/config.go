// Package config 程序配置
// 配置优先级：环境变量 > 配置文件 > 默认值。
// 对无效的上传参数采取宽松策略，回退到默认值并记录告警。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// 默认值
const (
	DefaultBaseURL        = "https://api.weixin.qq.com"
	DefaultTimeout        = 30 * time.Second
	DefaultBatchSize      = 10
	DefaultInterval       = time.Second
	DefaultMaxRetries     = 3
	DefaultMaxConcurrency = 5
)

// API 微信接口凭证与地址
type API struct {
	AppID     string        `mapstructure:"appid"`
	AppSecret string        `mapstructure:"appsecret"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Upload 批量上传参数
type Upload struct {
	// BatchSize 单批商品数量上限
	BatchSize int `mapstructure:"batch_size"`
	// Interval 串行模式的请求间隔
	Interval time.Duration `mapstructure:"request_interval"`
	// MaxRetries 单个请求的重试次数上限
	MaxRetries int `mapstructure:"max_retries"`
	// MaxConcurrency 并发模式的并发上限
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// Output 结果与报告的输出路径
type Output struct {
	ResultsFile string `mapstructure:"results_file"`
	ReportFile  string `mapstructure:"report_file"`
}

// Config 程序配置
type Config struct {
	API    API    `mapstructure:"api"`
	Upload Upload `mapstructure:"upload"`
	Output Output `mapstructure:"output"`
}

// ValidationError 配置校验失败
type ValidationError struct {
	Field  string
	Reason string
}

// Error 实现 error 接口
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

// Load 加载配置
// path 为空时在当前目录查找 config.yaml，找不到时只用默认值和环境变量。
// 显式指定的配置文件不存在或无法解析会返回错误。
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.normalize(logger)
	return &cfg, nil
}

// Validate 校验必填项
// 凭证缺失在任何批次开始前报错。
func (c *Config) Validate() error {
	if c.API.AppID == "" {
		return &ValidationError{Field: "api.appid", Reason: "is required"}
	}
	if c.API.AppSecret == "" {
		return &ValidationError{Field: "api.appsecret", Reason: "is required"}
	}
	return nil
}

// normalize 把越界的上传参数回退为默认值
func (c *Config) normalize(logger *slog.Logger) {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = DefaultTimeout
	}

	if c.Upload.BatchSize <= 0 {
		logger.Warn("invalid upload.batch_size, falling back to default",
			slog.Int("value", c.Upload.BatchSize),
			slog.Int("default", DefaultBatchSize),
		)
		c.Upload.BatchSize = DefaultBatchSize
	}
	if c.Upload.Interval < 0 {
		logger.Warn("invalid upload.request_interval, falling back to default",
			slog.Duration("value", c.Upload.Interval),
			slog.Duration("default", DefaultInterval),
		)
		c.Upload.Interval = DefaultInterval
	}
	if c.Upload.Interval == 0 {
		c.Upload.Interval = DefaultInterval
	}
	if c.Upload.MaxRetries < 0 {
		logger.Warn("invalid upload.max_retries, falling back to default",
			slog.Int("value", c.Upload.MaxRetries),
			slog.Int("default", DefaultMaxRetries),
		)
		c.Upload.MaxRetries = DefaultMaxRetries
	}
	if c.Upload.MaxConcurrency <= 0 {
		logger.Warn("invalid upload.max_concurrency, falling back to default",
			slog.Int("value", c.Upload.MaxConcurrency),
			slog.Int("default", DefaultMaxConcurrency),
		)
		c.Upload.MaxConcurrency = DefaultMaxConcurrency
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.timeout", DefaultTimeout)
	v.SetDefault("upload.batch_size", DefaultBatchSize)
	v.SetDefault("upload.request_interval", DefaultInterval)
	v.SetDefault("upload.max_retries", DefaultMaxRetries)
	v.SetDefault("upload.max_concurrency", DefaultMaxConcurrency)
}

func bindEnv(v *viper.Viper) {
	// 历史上两种写法的环境变量都有人用
	_ = v.BindEnv("api.appid", "WECHAT_APPID", "WECHAT_APP_ID")
	_ = v.BindEnv("api.appsecret", "WECHAT_APPSECRET", "WECHAT_APP_SECRET")
	_ = v.BindEnv("api.base_url", "WECHAT_API_BASE_URL")
}
