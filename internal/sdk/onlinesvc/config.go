package onlinesvc

import (
	"net/http"
	"time"

	zlog "github.com/lk2023060901/coplay-garden-go/pkg/log"
)

const (
	// 默认网络超时与重试参数。
	defaultTimeout     = 10 * time.Second
	defaultMaxAttempts = 3

	// 默认服务端 API 基地址。
	defaultBaseURL = "https://api.coplay-online.example.com"

	// token 过期前的提前刷新窗口。
	tokenRefreshSkew = 30 * time.Second
)

// Config 描述在线服务客户端的基础配置。
//
// 说明：
//   - ProductID/DeploymentID 标识当前产品及其部署环境，所有请求都会携带；
//   - ClientID/ClientSecret 为服务端凭证，用于换取访问 token；
//   - Timeout/MaxAttempts 控制底层 HTTP 请求的超时与重试（次数含首次调用）；
//   - Logger 仅用于本地封装层的日志记录。
type Config struct {
	ProductID    string
	DeploymentID string

	ClientID     string
	ClientSecret string

	BaseURL string

	Timeout     time.Duration
	MaxAttempts int

	// HTTPClient 允许调用方注入自定义 HTTP 客户端（通常用于测试）。
	HTTPClient *http.Client

	// Logger 允许调用方注入自定义日志实例；为空时使用全局日志。
	Logger *zlog.MLogger
}

// Option 为 Config 的可选配置项。
type Option func(*Config)

// WithBaseURL 设置服务端 API 的基础地址。
func WithBaseURL(baseURL string) Option {
	return func(c *Config) {
		if baseURL != "" {
			c.BaseURL = baseURL
		}
	}
}

// WithTimeout 设置单次 HTTP 请求的超时时间。
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithMaxRetries 设置可重试错误的最大重试次数（不含首次调用）。
func WithMaxRetries(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MaxAttempts = n + 1
		}
	}
}

// WithHTTPClient 注入自定义 HTTP 客户端。
func WithHTTPClient(httpCli *http.Client) Option {
	return func(c *Config) {
		if httpCli != nil {
			c.HTTPClient = httpCli
		}
	}
}

// WithLogger 注入具名日志实例。
func WithLogger(l *zlog.MLogger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

func (c *Config) fillDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
}
