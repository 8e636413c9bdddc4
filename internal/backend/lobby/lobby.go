package lobby

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

const backendName = "lobby"

// 大厅实现使用的保留属性键。
//
// 大厅本身没有宿主地址与对局进行中的概念，
// 这两项信息以保留属性的形式随大厅一起同步，解码时剥离。
const (
	attrKeyHostAddress = "__hostaddress"
	attrKeyInProgress  = "__inprogress"
)

// Strategy 为基于大厅接口的底层实现。
//
// 与直连会话的区别：
//   - 成员列表由服务端维护，成员加入 / 离开 / 断线由推送通知下发；
//   - 所有者离开后服务端自动迁移所有权；
//   - 支持踢人与所有权转移。
type Strategy struct {
	api    onlinesvc.LobbiesAPI
	logger *log.MLogger
}

var _ backend.Backend = (*Strategy)(nil)

// New 创建大厅实现。
func New(api onlinesvc.LobbiesAPI, logger *log.MLogger) *Strategy {
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
	info, err := s.api.CreateLobby(ctx, &onlinesvc.CreateLobbyRequest{
		BucketID:        settings.BucketID,
		OwnerID:         sess.LocalPlayerID,
		MaxMembers:      settings.MaxPlayers(),
		PermissionLevel: backend.PermissionLevelOf(settings),
		InvitesAllowed:  settings.AllowInvites,
		PresenceEnabled: settings.UsesPresence,
		Attributes:      buildAttributes(settings, sess.HostAddress, false),
	})
	if err != nil {
		return nil, backend.TranslateError("create lobby", err)
	}

	s.logger.Info("lobby created",
		log.FieldSession(sess.Name),
		zap.String("lobbyID", string(info.LobbyID)))
	return resultOf(info), nil
}

// Update 实现 Backend.Update。
func (s *Strategy) Update(ctx context.Context, sess *session.Session, updated session.Settings) (*backend.Result, error) {
	if sess.LobbyID == "" {
		return nil, merr.WrapErrSessionNoRemoteID(sess.Name)
	}
	defer backend.Observe(backendName, "update", time.Now())

	inProgress := sess.State == session.StateInProgress || sess.State == session.StateEnding
	info, err := s.api.UpdateLobby(ctx, &onlinesvc.UpdateLobbyRequest{
		LobbyID:         sess.LobbyID,
		MaxMembers:      updated.MaxPlayers(),
		PermissionLevel: backend.PermissionLevelOf(updated),
		InvitesAllowed:  updated.AllowInvites,
		Attributes:      buildAttributes(updated, sess.HostAddress, inProgress),
	})
	if err != nil {
		return nil, backend.TranslateError("update lobby", err)
	}
	return resultOf(info), nil
}

// Start 实现 Backend.Start。
//
// 大厅没有对局状态，通过保留属性对外同步。
func (s *Strategy) Start(ctx context.Context, sess *session.Session) error {
	return s.syncInProgress(ctx, sess, true, "start session")
}

// End 实现 Backend.End。
func (s *Strategy) End(ctx context.Context, sess *session.Session) error {
	return s.syncInProgress(ctx, sess, false, "end session")
}

func (s *Strategy) syncInProgress(ctx context.Context, sess *session.Session, inProgress bool, operation string) error {
	if sess.LobbyID == "" {
		return merr.WrapErrSessionNoRemoteID(sess.Name)
	}
	if !sess.IsHost {
		// 非所有者不向服务端同步，以本地状态为准。
		return nil
	}
	defer backend.Observe(backendName, "sync_in_progress", time.Now())

	settings := sess.Settings
	_, err := s.api.UpdateLobby(ctx, &onlinesvc.UpdateLobbyRequest{
		LobbyID:         sess.LobbyID,
		MaxMembers:      settings.MaxPlayers(),
		PermissionLevel: backend.PermissionLevelOf(settings),
		InvitesAllowed:  settings.AllowInvites,
		Attributes:      buildAttributes(settings, sess.HostAddress, inProgress),
	})
	return backend.TranslateError(operation, err)
}

// Destroy 实现 Backend.Destroy。
//
// 所有者销毁且未开启宿主迁移时整体解散大厅；
// 否则仅本地玩家退出，大厅继续存在。远端不存在视为已销毁。
func (s *Strategy) Destroy(ctx context.Context, sess *session.Session) error {
	if sess.LobbyID == "" {
		return nil
	}
	defer backend.Observe(backendName, "destroy", time.Now())

	var err error
	if sess.IsHost && !sess.Settings.HostMigration {
		err = s.api.DestroyLobby(ctx, sess.LobbyID)
	} else {
		err = s.api.LeaveLobby(ctx, sess.LobbyID, sess.LocalPlayerID)
	}
	if err != nil && onlinesvc.IsNotFound(err) {
		s.logger.Info("lobby already gone remotely", log.FieldSession(sess.Name))
		return nil
	}
	return backend.TranslateError("destroy lobby", err)
}

// Join 实现 Backend.Join。
func (s *Strategy) Join(ctx context.Context, sess *session.Session, target *backend.Result) (*backend.Result, error) {
	if target == nil || target.LobbyID == "" {
		return nil, merr.WrapErrParameterMissing("target lobby id")
	}
	defer backend.Observe(backendName, "join", time.Now())

	info, err := s.api.JoinLobby(ctx, target.LobbyID, sess.LocalPlayerID, sess.Settings.UsesPresence)
	if err != nil {
		return nil, backend.TranslateError("join lobby", err)
	}
	return resultOf(info), nil
}

// RegisterPlayers 实现 Backend.RegisterPlayers。
//
// 大厅成员由服务端维护，本地注册不需要远端同步。
func (s *Strategy) RegisterPlayers(ctx context.Context, sess *session.Session, players []onlinesvc.ProductUserID) error {
	return nil
}

// UnregisterPlayers 实现 Backend.UnregisterPlayers。
func (s *Strategy) UnregisterPlayers(ctx context.Context, sess *session.Session, players []onlinesvc.ProductUserID) error {
	return nil
}

// Find 实现 Backend.Find。
func (s *Strategy) Find(ctx context.Context, query *backend.Query) ([]*backend.Result, error) {
	defer backend.Observe(backendName, "search", time.Now())

	infos, err := s.api.SearchLobbies(ctx, &onlinesvc.SearchLobbiesRequest{
		MaxResults: query.MaxResults,
		Filters:    backend.EncodeQueryFilters(query),
	})
	if err != nil {
		return nil, backend.TranslateError("search lobbies", err)
	}

	results := make([]*backend.Result, 0, len(infos))
	for _, info := range infos {
		results = append(results, resultOf(info))
	}
	return results, nil
}

// Fetch 实现 Backend.Fetch。
func (s *Strategy) Fetch(ctx context.Context, sess *session.Session) (*backend.Result, error) {
	if sess.LobbyID == "" {
		return nil, merr.WrapErrSessionNoRemoteID(sess.Name)
	}
	defer backend.Observe(backendName, "fetch", time.Now())

	info, err := s.api.GetLobbyByID(ctx, sess.LobbyID)
	if err != nil {
		if onlinesvc.IsNotFound(err) {
			return nil, merr.WrapErrLobbyNotFound(sess.LobbyID)
		}
		return nil, backend.TranslateError("fetch lobby", err)
	}
	return resultOf(info), nil
}

// FetchByID 实现 Backend.FetchByID。
func (s *Strategy) FetchByID(ctx context.Context, id string) (*backend.Result, error) {
	if id == "" {
		return nil, merr.WrapErrParameterMissing("lobby id")
	}
	defer backend.Observe(backendName, "fetch_by_id", time.Now())

	info, err := s.api.GetLobbyByID(ctx, onlinesvc.LobbyID(id))
	if err != nil {
		if onlinesvc.IsNotFound(err) {
			return nil, merr.WrapErrLobbyNotFound(id)
		}
		return nil, backend.TranslateError("fetch lobby by id", err)
	}
	return resultOf(info), nil
}

// FetchByInviteID 实现 Backend.FetchByInviteID。
func (s *Strategy) FetchByInviteID(ctx context.Context, inviteID onlinesvc.InviteID) (*backend.Result, error) {
	defer backend.Observe(backendName, "fetch_by_invite", time.Now())

	info, err := s.api.GetLobbyByInviteID(ctx, inviteID)
	if err != nil {
		if onlinesvc.IsNotFound(err) {
			return nil, merr.WrapErrInviteNotFound(inviteID)
		}
		return nil, backend.TranslateError("fetch lobby by invite", err)
	}
	return resultOf(info), nil
}

// SendInvite 实现 Backend.SendInvite。
func (s *Strategy) SendInvite(ctx context.Context, sess *session.Session, from onlinesvc.ProductUserID, to []onlinesvc.ProductUserID) error {
	if sess.LobbyID == "" {
		return merr.WrapErrSessionNoRemoteID(sess.Name)
	}
	defer backend.Observe(backendName, "send_invite", time.Now())
	return backend.TranslateError("send invite", s.api.SendLobbyInvite(ctx, sess.LobbyID, from, to))
}

// KickMember 实现 Backend.KickMember。
func (s *Strategy) KickMember(ctx context.Context, sess *session.Session, target onlinesvc.ProductUserID) error {
	if sess.LobbyID == "" {
		return merr.WrapErrSessionNoRemoteID(sess.Name)
	}
	defer backend.Observe(backendName, "kick", time.Now())

	err := s.api.KickMember(ctx, sess.LobbyID, target)
	if err != nil && onlinesvc.IsNotFound(err) {
		return merr.WrapErrMemberNotFound(sess.Name, target)
	}
	return backend.TranslateError("kick member", err)
}

// PromoteMember 实现 Backend.PromoteMember。
func (s *Strategy) PromoteMember(ctx context.Context, sess *session.Session, target onlinesvc.ProductUserID) error {
	if sess.LobbyID == "" {
		return merr.WrapErrSessionNoRemoteID(sess.Name)
	}
	defer backend.Observe(backendName, "promote", time.Now())

	err := s.api.PromoteMember(ctx, sess.LobbyID, target)
	if err != nil && onlinesvc.IsNotFound(err) {
		return merr.WrapErrMemberNotFound(sess.Name, target)
	}
	return backend.TranslateError("promote member", err)
}

// buildAttributes 编码自定义属性并追加保留属性。
func buildAttributes(settings session.Settings, hostAddress string, inProgress bool) []onlinesvc.Attribute {
	attrs := session.EncodeAttributes(settings.Attributes)
	if hostAddress != "" {
		attrs = append(attrs, session.EncodeAttribute(attrKeyHostAddress, session.Attr{
			Value:     session.StringValue(hostAddress),
			Advertise: true,
		}))
	}
	attrs = append(attrs, session.EncodeAttribute(attrKeyInProgress, session.Attr{
		Value:     session.BoolValue(inProgress),
		Advertise: true,
	}))
	return attrs
}

// resultOf 将服务端大厅快照转换为规格化结果，并剥离保留属性。
func resultOf(info *onlinesvc.LobbyInfo) *backend.Result {
	attrs := session.DecodeAttributes(info.Attributes)

	hostAddress := ""
	if attr, ok := attrs[attrKeyHostAddress]; ok {
		hostAddress, _ = attr.Value.String()
		delete(attrs, attrKeyHostAddress)
	}
	delete(attrs, attrKeyInProgress)

	players := make([]onlinesvc.ProductUserID, 0, len(info.Members))
	for _, m := range info.Members {
		players = append(players, m.PlayerID)
	}

	perm := info.PermissionLevel
	return &backend.Result{
		LobbyID:     info.LobbyID,
		OwnerID:     info.OwnerID,
		HostAddress: hostAddress,
		OpenSlots:   info.AvailableSlots,
		Players:     players,
		Settings: session.Settings{
			BucketID:             info.BucketID,
			NumPublicConnections: info.MaxMembers,
			ShouldAdvertise:      perm == onlinesvc.PermissionPublicAdvertised,
			AllowJoinViaPresence: perm == onlinesvc.PermissionJoinViaPresence,
			AllowInvites:         info.InvitesAllowed,
			UsesPresence:         info.PresenceEnabled,
			UseLobby:             true,
			Attributes:           attrs,
		},
	}
}
