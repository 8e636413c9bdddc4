package onlinesvc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/coplay-garden-go/internal/json"
	zlog "github.com/lk2023060901/coplay-garden-go/pkg/log"
)

// Client 为在线服务的 HTTP 客户端，同时实现 SessionsAPI 与 LobbiesAPI。
//
// 设计目标：
//   - 所有接口统一走 postJSON，集中处理鉴权、重试与业务错误码；
//   - 访问 token 由客户端内部缓存并在过期前自动刷新；
//   - 超时、重试次数等集中由 Config 管理。
type Client struct {
	cfg    Config
	logger *zlog.MLogger
	http   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var (
	_ SessionsAPI = (*Client)(nil)
	_ LobbiesAPI  = (*Client)(nil)
)

// NewClient 创建一个在线服务客户端。
//
// 调用方至少需要提供 ProductID/DeploymentID 与 ClientID/ClientSecret，
// 其余字段可留空使用默认值。
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.ProductID == "" || cfg.DeploymentID == "" {
		return nil, fmt.Errorf("onlinesvc: ProductID and DeploymentID must not be empty")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("onlinesvc: ClientID and ClientSecret must not be empty")
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.fillDefaults()

	logger := cfg.Logger
	if logger == nil {
		logger = &zlog.MLogger{Logger: zlog.L()}
	}

	httpCli := cfg.HTTPClient
	if httpCli == nil {
		httpCli = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		http:   httpCli,
	}, nil
}

// getAccessToken 返回当前可用的访问 token，必要时向服务端换取新 token。
//
// 对应接口：
//
//	POST /v1/oauth/token
//
// token 在过期前 tokenRefreshSkew 内视为已失效，提前刷新。
func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenRefreshSkew)) {
		return c.accessToken, nil
	}

	reqBody := map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
		"deployment_id": c.cfg.DeploymentID,
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"` // 秒
	}
	if err := c.doPostJSON(ctx, "/v1/oauth/token", "", reqBody, &resp); err != nil {
		return "", fmt.Errorf("onlinesvc: fetch access token failed: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("onlinesvc: empty access token returned")
	}

	c.accessToken = resp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

// postJSON 调用服务端 POST JSON 接口，自动附带访问 token。
func (c *Client) postJSON(ctx context.Context, path string, reqBody, respBody any) error {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return err
	}
	return c.doPostJSON(ctx, path, token, reqBody, respBody)
}

// doPostJSON 为底层请求实现，带有简单的重试能力。
//
// 约定：
//   - path 为不包含域名的路径，例如 "/v1/sessions/create"；
//   - reqBody 将被编码为 JSON 并作为请求体发送；
//   - respBody 为可选的响应体解码目标，为 nil 时忽略响应解码；
//   - 响应统一为 {"err_code":0,"err_msg":"","data":{...}} 结构。
//
// 重试策略：
//   - 网络错误或 5xx 响应：按 Config.MaxAttempts 次数进行有限重试，并采用简单退避；
//   - 200 响应但 err_code != 0：视为业务错误，直接返回 *Error，不做重试；
//   - 非 200 且非 5xx：直接返回错误，不做重试。
func (c *Client) doPostJSON(ctx context.Context, path, token string, reqBody, respBody any) error {
	if path == "" || path[0] != '/' {
		return fmt.Errorf("onlinesvc: path must start with '/'")
	}

	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("onlinesvc: parse base url failed: %w", err)
	}
	u, err := base.Parse(path)
	if err != nil {
		return fmt.Errorf("onlinesvc: build url failed: %w", err)
	}

	var payload []byte
	if reqBody != nil {
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("onlinesvc: marshal request failed: %w", err)
		}
	}

	attempts := c.cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	var lastErr error

	for i := 0; i < attempts; i++ {
		if i > 0 {
			backoff := time.Duration(i*i) * 100 * time.Millisecond
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("onlinesvc: build request failed: %w", err)
		}
		if len(payload) > 0 {
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
		}
		req.Header.Set("X-Product-Id", c.cfg.ProductID)
		req.Header.Set("X-Deployment-Id", c.cfg.DeploymentID)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		res, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("onlinesvc: http request failed: %w", err)
			continue
		}

		body, readErr := io.ReadAll(res.Body)
		_ = res.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("onlinesvc: read response failed: %w", readErr)
			continue
		}

		// 5xx 视为可重试错误。
		if res.StatusCode >= http.StatusInternalServerError && res.StatusCode <= http.StatusNetworkAuthenticationRequired {
			lastErr = fmt.Errorf("onlinesvc: server error status=%d body=%s", res.StatusCode, string(body))
			continue
		}
		// 非 200 且非 5xx，直接返回。
		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("onlinesvc: unexpected status=%d body=%s", res.StatusCode, string(body))
		}

		var envelope struct {
			ErrCode int             `json:"err_code"`
			ErrMsg  string          `json:"err_msg"`
			Data    json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return fmt.Errorf("onlinesvc: unmarshal response envelope failed: %w", err)
		}
		if envelope.ErrCode != 0 {
			return &Error{
				Code:    envelope.ErrCode,
				Message: envelope.ErrMsg,
				RawBody: body,
			}
		}

		if respBody != nil && len(envelope.Data) > 0 {
			if err := json.Unmarshal(envelope.Data, respBody); err != nil {
				return fmt.Errorf("onlinesvc: unmarshal response data failed: %w", err)
			}
		}

		return nil
	}

	c.logger.Warn("onlinesvc request exhausted retries",
		zap.String("path", path),
		zap.Int("attempts", attempts),
		zap.Error(lastErr))

	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("onlinesvc: request failed after %d attempts", attempts)
}
