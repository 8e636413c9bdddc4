package onlinesvc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/coplay-garden-go/internal/json"
	zlog "github.com/lk2023060901/coplay-garden-go/pkg/log"
)

const (
	headerSignature = "X-Online-Signature"
	headerTimestamp = "X-Online-Timestamp"
	headerNonce     = "X-Online-Nonce"
)

// NotificationKind 为推送通知的类别。
type NotificationKind string

const (
	// NotifyLobbyUpdated 表示大厅设置或属性发生变更。
	NotifyLobbyUpdated NotificationKind = "lobby_updated"
	// NotifyMemberUpdated 表示某成员的成员级属性发生变更。
	NotifyMemberUpdated NotificationKind = "member_updated"
	// NotifyMemberStatus 表示某成员的状态发生变更（加入、离开、断线、被踢、晋升、关闭）。
	NotifyMemberStatus NotificationKind = "member_status"
	// NotifyInviteReceived 表示本地玩家收到一条邀请。
	NotifyInviteReceived NotificationKind = "invite_received"
	// NotifyInviteAccepted 表示本地玩家在平台层接受了一条邀请。
	NotifyInviteAccepted NotificationKind = "invite_accepted"
	// NotifyJoinRequested 表示本地玩家在平台层请求加入某个会话（如通过好友 presence）。
	NotifyJoinRequested NotificationKind = "join_requested"
)

// Notification 表示服务端推送的一条通知。
//
// 不同类别只会填充与之相关的字段。
type Notification struct {
	Kind NotificationKind `json:"kind"`

	LobbyID   LobbyID       `json:"lobby_id,omitempty"`
	SessionID SessionID     `json:"session_id,omitempty"`
	TargetID  ProductUserID `json:"target_id,omitempty"`
	Status    MemberStatus  `json:"status,omitempty"`

	InviteID InviteID      `json:"invite_id,omitempty"`
	FromID   ProductUserID `json:"from_id,omitempty"`
	ToID     ProductUserID `json:"to_id,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// NotificationHandler 处理一条已验签的推送通知。
type NotificationHandler interface {
	HandleNotification(ctx context.Context, n *Notification) error
}

// NotificationHandlerFunc 为 NotificationHandler 的函数适配器。
type NotificationHandlerFunc func(ctx context.Context, n *Notification) error

func (f NotificationHandlerFunc) HandleNotification(ctx context.Context, n *Notification) error {
	return f(ctx, n)
}

// WebhookConfig 描述推送通知入口的验签配置。
type WebhookConfig struct {
	// SigningSecret 为验签使用的密钥，需与服务端配置保持一致。
	SigningSecret string

	// MaxClockSkew 为允许的时间偏移量，用于防止重放攻击。
	MaxClockSkew time.Duration
}

// WebhookVerifier 负责验证推送请求的签名并解析通知。
type WebhookVerifier struct {
	cfg    WebhookConfig
	logger *zlog.MLogger
}

// NewWebhookVerifier 创建一个新的推送验签器。
func NewWebhookVerifier(cfg WebhookConfig, logger *zlog.MLogger) *WebhookVerifier {
	if cfg.MaxClockSkew <= 0 {
		cfg.MaxClockSkew = 5 * time.Minute
	}
	if logger == nil {
		logger = &zlog.MLogger{Logger: zlog.L()}
	}
	return &WebhookVerifier{
		cfg:    cfg,
		logger: logger,
	}
}

// VerifyAndParse 验证推送请求的签名并解析通知。
//
// 签名算法为 HMAC-SHA256(timestamp + ":" + nonce + ":" + body)，
// 结果以十六进制字符串比较。
func (v *WebhookVerifier) VerifyAndParse(headers map[string]string, body []byte) (*Notification, error) {
	if v.cfg.SigningSecret == "" {
		return nil, fmt.Errorf("onlinesvc: webhook signing secret is empty")
	}

	sig := headers[headerSignature]
	timestampStr := headers[headerTimestamp]
	nonce := headers[headerNonce]

	if sig == "" || timestampStr == "" {
		return nil, fmt.Errorf("onlinesvc: missing signature or timestamp header")
	}

	ts, err := parseUnixTimestamp(timestampStr)
	if err != nil {
		return nil, fmt.Errorf("onlinesvc: invalid timestamp header: %w", err)
	}

	now := time.Now()
	if now.Sub(ts) > v.cfg.MaxClockSkew || ts.Sub(now) > v.cfg.MaxClockSkew {
		return nil, fmt.Errorf("onlinesvc: webhook timestamp out of allowed skew")
	}

	expectedSig := computeHMAC(v.cfg.SigningSecret, timestampStr+":"+nonce+":"+string(body))
	if !hmacEqual(expectedSig, sig) {
		return nil, fmt.Errorf("onlinesvc: invalid webhook signature")
	}

	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("onlinesvc: unmarshal notification failed: %w", err)
	}
	if n.Kind == "" {
		return nil, fmt.Errorf("onlinesvc: notification kind is empty")
	}
	n.Raw = body

	return &n, nil
}

// WebhookHandler 是一个 http.Handler 适配器，便于在 net/http 中直接挂载推送入口。
type WebhookHandler struct {
	Verifier *WebhookVerifier
	Handler  NotificationHandler
}

// ServeHTTP 实现 http.Handler。
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Verifier == nil || h.Handler == nil {
		http.Error(w, "webhook handler not configured", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}
	_ = r.Body.Close()

	headers := make(map[string]string, len(r.Header))
	for k, vals := range r.Header {
		if len(vals) == 0 {
			continue
		}
		// 使用首个值即可。
		headers[k] = vals[0]
	}

	n, err := h.Verifier.VerifyAndParse(headers, body)
	if err != nil {
		h.Verifier.logger.Warn("onlinesvc webhook verify failed", zap.Error(err))
		http.Error(w, "signature verification failed", http.StatusForbidden)
		return
	}

	if err := h.Handler.HandleNotification(ctx, n); err != nil {
		h.Verifier.logger.Error("onlinesvc webhook handle failed",
			zap.String("kind", string(n.Kind)), zap.Error(err))
		http.Error(w, "handler error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func parseUnixTimestamp(s string) (time.Time, error) {
	// 支持秒级或毫秒级时间戳。
	if len(s) == 0 {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if len(s) <= 10 {
		sec, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(sec, 0), nil
	}

	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, ms*int64(time.Millisecond)), nil
}

func computeHMAC(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func hmacEqual(a, b string) bool {
	return hmac.Equal([]byte(strings.ToLower(a)), []byte(strings.ToLower(b)))
}
