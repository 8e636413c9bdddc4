package direct

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/coplay-garden-go/internal/backend"
	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
	"github.com/lk2023060901/coplay-garden-go/internal/session"
	"github.com/lk2023060901/coplay-garden-go/pkg/log"
	"github.com/lk2023060901/coplay-garden-go/pkg/util/merr"
)

const backendName = "direct"

// Strategy 为基于直连会话接口的底层实现。
//
// 直连会话由宿主全权管理：服务端不维护成员在线状态，
// 也不会下发推送通知，所有变更都由宿主主动同步。
type Strategy struct {
	api    onlinesvc.SessionsAPI
	logger *log.MLogger
}

var _ backend.Backend = (*Strategy)(nil)

// New 创建直连会话实现。
func New(api onlinesvc.SessionsAPI, logger *log.MLogger) *Strategy {
	if logger == nil {
		logger = &log.MLogger{Logger: log.L()}
	}
	return &Strategy{
		api:    api,
		logger: logger,
	}
}

// Name 实现 Backend.Name。
func (s *Strategy) Name() string { return backendName }

// Create 实现 Backend.Create。
func (s *Strategy) Create(ctx context.Context, sess *session.Session) (*backend.Result, error) {
	defer backend.Observe(backendName, "create", time.Now())

	settings := sess.Settings
	info, err := s.api.CreateSession(ctx, &onlinesvc.CreateSessionRequest{
		BucketID:        settings.BucketID,
		HostPlayerID:    sess.LocalPlayerID,
		HostAddress:     sess.HostAddress,
		MaxPlayers:      settings.MaxPlayers(),
		PermissionLevel: backend.PermissionLevelOf(settings),
		JoinInProgress:  settings.AllowJoinInProgress,
		InvitesAllowed:  settings.AllowInvites,
		PresenceEnabled: settings.UsesPresence,
		Attributes:      session.EncodeAttributes(settings.Attributes),
	})
	if err != nil {
		return nil, backend.TranslateError("create session", err)
	}

	s.logger.Info("session created",
		log.FieldSession(sess.Name),
		zap.String("sessionID", string(info.SessionID)))
	return resultOf(info), nil
}

// Update 实现 Backend.Update。
//
// 全量覆盖由五部分组成：权限级别、人数上限、邀请开关、
// 进行中加入开关与自定义属性。
func (s *Strategy) Update(ctx context.Context, sess *session.Session, updated session.Settings) (*backend.Result, error) {
	if sess.SessionID == "" {
		return nil, merr.WrapErrSessionNoRemoteID(sess.Name)
	}
	defer backend.Observe(backendName, "update", time.Now())

	info, err := s.api.UpdateSession(ctx, &onlinesvc.UpdateSessionRequest{
		SessionID:       sess.SessionID,
		HostAddress:     sess.HostAddress,
		MaxPlayers:      updated.MaxPlayers(),
		PermissionLevel: backend.PermissionLevelOf(updated),
		JoinInProgress:  updated.AllowJoinInProgress,
		InvitesAllowed:  updated.AllowInvites,
		Attributes:      session.EncodeAttributes(updated.Attributes),
	})
	if err != nil {
		return nil, backend.TranslateError("update session", err)
	}
	return resultOf(info), nil
}

// Start 实现 Backend.Start。
func (s *Strategy) Start(ctx context.Context, sess *session.Session) error {
	if sess.SessionID == "" {
		return merr.WrapErrSessionNoRemoteID(sess.Name)
	}
	defer backend.Observe(backendName, "start", time.Now())
	return backend.TranslateError("start session", s.api.StartSession(ctx, sess.SessionID))
}

// End 实现 Backend.End。
func (s *Strategy) End(ctx context.Context, sess *session.Session) error {
	if sess.SessionID == "" {
		return merr.WrapErrSessionNoRemoteID(sess.Name)
	}
	defer backend.Observe(backendName, "end", time.Now())
	return backend.TranslateError("end session", s.api.EndSession(ctx, sess.SessionID))
}

// Destroy 实现 Backend.Destroy。
//
// 远端不存在视为已销毁，返回成功。
func (s *Strategy) Destroy(ctx context.Context, sess *session.Session) error {
	if sess.SessionID == "" {
		// 尚未拿到远端标识，无需远端清理。
		return nil
	}
	defer backend.Observe(backendName, "destroy", time.Now())

	err := s.api.DestroySession(ctx, sess.SessionID)
	if err != nil && onlinesvc.IsNotFound(err) {
		s.logger.Info("session already destroyed remotely", log.FieldSession(sess.Name))
		return nil
	}
	return backend.TranslateError("destroy session", err)
}

// Join 实现 Backend.Join。
func (s *Strategy) Join(ctx context.Context, sess *session.Session, target *backend.Result) (*backend.Result, error) {
	if target == nil || target.SessionID == "" {
		return nil, merr.WrapErrParameterMissing("target session id")
	}
	defer backend.Observe(backendName, "join", time.Now())

	info, err := s.api.JoinSession(ctx, &onlinesvc.JoinSessionRequest{
		SessionID: target.SessionID,
		PlayerID:  sess.LocalPlayerID,
		Presence:  sess.Settings.UsesPresence,
	})
	if err != nil {
		return nil, backend.TranslateError("join session", err)
	}
	return resultOf(info), nil
}

// RegisterPlayers 实现 Backend.RegisterPlayers。
func (s *Strategy) RegisterPlayers(ctx context.Context, sess *session.Session, players []onlinesvc.ProductUserID) error {
	if sess.SessionID == "" {
		return merr.WrapErrSessionNoRemoteID(sess.Name)
	}
	defer backend.Observe(backendName, "register_players", time.Now())
	return backend.TranslateError("register players", s.api.RegisterPlayers(ctx, sess.SessionID, players))
}

// UnregisterPlayers 实现 Backend.UnregisterPlayers。
func (s *Strategy) UnregisterPlayers(ctx context.Context, sess *session.Session, players []onlinesvc.ProductUserID) error {
	if sess.SessionID == "" {
		return merr.WrapErrSessionNoRemoteID(sess.Name)
	}
	defer backend.Observe(backendName, "unregister_players", time.Now())
	return backend.TranslateError("unregister players", s.api.UnregisterPlayers(ctx, sess.SessionID, players))
}

// Find 实现 Backend.Find。
func (s *Strategy) Find(ctx context.Context, query *backend.Query) ([]*backend.Result, error) {
	defer backend.Observe(backendName, "search", time.Now())

	infos, err := s.api.SearchSessions(ctx, &onlinesvc.SearchSessionsRequest{
		MaxResults: query.MaxResults,
		Filters:    backend.EncodeQueryFilters(query),
	})
	if err != nil {
		return nil, backend.TranslateError("search sessions", err)
	}

	results := make([]*backend.Result, 0, len(infos))
	for _, info := range infos {
		results = append(results, resultOf(info))
	}
	return results, nil
}

// Fetch 实现 Backend.Fetch。
func (s *Strategy) Fetch(ctx context.Context, sess *session.Session) (*backend.Result, error) {
	if sess.SessionID == "" {
		return nil, merr.WrapErrSessionNoRemoteID(sess.Name)
	}
	defer backend.Observe(backendName, "fetch", time.Now())

	info, err := s.api.GetSessionByID(ctx, sess.SessionID)
	if err != nil {
		return nil, backend.TranslateError("fetch session", err)
	}
	return resultOf(info), nil
}

// FetchByID 实现 Backend.FetchByID。
func (s *Strategy) FetchByID(ctx context.Context, id string) (*backend.Result, error) {
	if id == "" {
		return nil, merr.WrapErrParameterMissing("session id")
	}
	defer backend.Observe(backendName, "fetch_by_id", time.Now())

	info, err := s.api.GetSessionByID(ctx, onlinesvc.SessionID(id))
	if err != nil {
		return nil, backend.TranslateError("fetch session by id", err)
	}
	return resultOf(info), nil
}

// FetchByInviteID 实现 Backend.FetchByInviteID。
func (s *Strategy) FetchByInviteID(ctx context.Context, inviteID onlinesvc.InviteID) (*backend.Result, error) {
	defer backend.Observe(backendName, "fetch_by_invite", time.Now())

	info, err := s.api.GetSessionByInviteID(ctx, inviteID)
	if err != nil {
		if onlinesvc.IsNotFound(err) {
			return nil, merr.WrapErrInviteNotFound(inviteID)
		}
		return nil, backend.TranslateError("fetch session by invite", err)
	}
	return resultOf(info), nil
}

// SendInvite 实现 Backend.SendInvite。
func (s *Strategy) SendInvite(ctx context.Context, sess *session.Session, from onlinesvc.ProductUserID, to []onlinesvc.ProductUserID) error {
	if sess.SessionID == "" {
		return merr.WrapErrSessionNoRemoteID(sess.Name)
	}
	defer backend.Observe(backendName, "send_invite", time.Now())
	return backend.TranslateError("send invite", s.api.SendSessionInvite(ctx, sess.SessionID, from, to))
}

// KickMember 实现 Backend.KickMember。直连会话不支持成员管理。
func (s *Strategy) KickMember(ctx context.Context, sess *session.Session, target onlinesvc.ProductUserID) error {
	return merr.WrapErrUnsupported("kick member", "direct sessions have no member management")
}

// PromoteMember 实现 Backend.PromoteMember。直连会话不支持所有权转移。
func (s *Strategy) PromoteMember(ctx context.Context, sess *session.Session, target onlinesvc.ProductUserID) error {
	return merr.WrapErrUnsupported("promote member", "direct sessions have no member management")
}

// resultOf 将服务端会话快照转换为规格化结果。
//
// 直连会话不区分公私空位，人数上限整体计入公有池。
func resultOf(info *onlinesvc.SessionInfo) *backend.Result {
	perm := info.PermissionLevel
	return &backend.Result{
		SessionID:   info.SessionID,
		OwnerID:     info.OwnerID,
		HostAddress: info.HostAddress,
		OpenSlots:   info.OpenSlots,
		Players:     info.Players,
		Settings: session.Settings{
			BucketID:             info.BucketID,
			NumPublicConnections: info.MaxPlayers,
			ShouldAdvertise:      perm == onlinesvc.PermissionPublicAdvertised,
			AllowJoinViaPresence: perm == onlinesvc.PermissionJoinViaPresence,
			AllowJoinInProgress:  info.JoinInProgress,
			AllowInvites:         info.InvitesAllowed,
			Attributes:           session.DecodeAttributes(info.Attributes),
		},
	}
}
