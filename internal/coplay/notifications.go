package coplay

import (
	"context"

	"go.uber.org/zap"

	"github.com/lk2023060901/coplay-garden-go/internal/backend"
	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
	"github.com/lk2023060901/coplay-garden-go/internal/session"
	"github.com/lk2023060901/coplay-garden-go/pkg/log"
	"github.com/lk2023060901/coplay-garden-go/pkg/metrics"
)

// Manager 实现 onlinesvc.NotificationHandler，
// 接收大厅推送并在 Tick 线程上对账本地状态。
var _ onlinesvc.NotificationHandler = (*Manager)(nil)

// HandleNotification 实现 onlinesvc.NotificationHandler。
//
// 通知只做入队，处理统一发生在 Tick 线程，
// 与其他完成回调共享同一串行化模型。
func (m *Manager) HandleNotification(ctx context.Context, n *onlinesvc.Notification) error {
	if n == nil {
		return nil
	}
	metrics.LobbyNotifications.WithLabelValues(string(n.Kind)).Inc()

	m.queue.Post(func() {
		switch n.Kind {
		case onlinesvc.NotifyMemberStatus:
			m.handleMemberStatus(n)
		case onlinesvc.NotifyLobbyUpdated, onlinesvc.NotifyMemberUpdated:
			m.handleLobbyUpdated(n)
		case onlinesvc.NotifyInviteReceived:
			m.handleInviteReceived(n)
		case onlinesvc.NotifyInviteAccepted, onlinesvc.NotifyJoinRequested:
			m.handleInviteAccepted(n)
		default:
			m.logger.Warn("unknown notification kind", zap.String("kind", string(n.Kind)))
		}
	})
	return nil
}

// localUserNumOf 反查账号标识对应的本地玩家槽位。
func (m *Manager) localUserNumOf(id onlinesvc.ProductUserID) (int, bool) {
	for i := 0; i < maxLocalPlayers; i++ {
		if cur, ok := m.identity.PlayerID(i); ok && cur == id {
			return i, true
		}
	}
	return 0, false
}

// handleMemberStatus 处理成员状态变更通知。
func (m *Manager) handleMemberStatus(n *onlinesvc.Notification) {
	m.lock()
	sess, ok := m.registry.GetByLobbyID(n.LobbyID)
	if !ok {
		m.unlock()
		m.logger.RatedInfo(1, "member status for unknown lobby",
			log.FieldLobby(string(n.LobbyID)))
		return
	}
	name := sess.Name
	isLocalTarget := n.TargetID == sess.LocalPlayerID
	m.unlock()

	switch n.Status {
	case onlinesvc.MemberStatusJoined:
		m.lock()
		changed, err := sess.RegisterPlayer(n.TargetID, false)
		m.unlock()
		if err != nil {
			// 本地空位与服务端视图不一致，整体重拉对账。
			m.reconcile(name)
			return
		}
		if changed {
			m.events.fireParticipantChanged(name, n.TargetID, ParticipantJoined)
		}

	case onlinesvc.MemberStatusLeft, onlinesvc.MemberStatusDisconnected:
		m.lock()
		changed := sess.UnregisterPlayer(n.TargetID)
		m.unlock()
		if changed {
			m.events.fireParticipantChanged(name, n.TargetID, ParticipantLeft)
		}

	case onlinesvc.MemberStatusKicked:
		if isLocalTarget {
			m.removeLocally(name, FailureKicked)
			return
		}
		m.lock()
		changed := sess.UnregisterPlayer(n.TargetID)
		m.unlock()
		if changed {
			m.events.fireParticipantChanged(name, n.TargetID, ParticipantRemoved)
		}

	case onlinesvc.MemberStatusPromoted:
		m.lock()
		sess.OwnerID = n.TargetID
		sess.IsHost = n.TargetID == sess.LocalPlayerID
		becameHost := sess.IsHost
		generation := sess.Generation
		snap := sess.Snapshot()
		m.unlock()
		m.events.fireOwnerChanged(name, n.TargetID)
		if becameHost {
			m.pushAuthoritativeView(name, generation, snap)
		}

	case onlinesvc.MemberStatusClosed:
		m.removeLocally(name, FailureClosed)

	default:
		m.logger.Warn("unknown member status",
			log.FieldSession(name), zap.String("status", string(n.Status)))
	}
}

// removeLocally 移除本地会话并上报被动终止。远端无需清理。
func (m *Manager) removeLocally(name string, reason FailureReason) {
	m.lock()
	sess, ok := m.registry.Get(name)
	if !ok {
		m.unlock()
		return
	}
	sess.Generation++
	_ = m.registry.Unregister(name)
	m.updateStateGauge()
	m.unlock()

	m.logger.Info("session terminated remotely",
		log.FieldSession(name), zap.String("reason", reason.String()))
	m.events.fireSessionFailure(name, reason)
}

// pushAuthoritativeView 把本地设置下推到远端，使各端以新宿主视图收敛。
// 本地玩家经所有权迁移成为新宿主后调用。
func (m *Manager) pushAuthoritativeView(name string, generation uint64, snap *session.Session) {
	be := m.backendFor(snap.Settings)
	var res *backend.Result
	m.submit(func(ctx context.Context) error {
		var err error
		res, err = be.Update(ctx, snap, snap.Settings)
		return err
	}, func(err error) {
		if err != nil {
			m.logger.Warn("authoritative update after promotion failed",
				log.FieldSession(name), zap.Error(err))
			return
		}
		m.withSession(name, generation, func(sess *session.Session) {
			m.applyResult(sess, res)
		})
	})
}

// handleLobbyUpdated 处理大厅设置 / 成员属性变更通知。
// 以服务端为准重新拉取完整快照并覆盖本地视图。
func (m *Manager) handleLobbyUpdated(n *onlinesvc.Notification) {
	m.lock()
	sess, ok := m.registry.GetByLobbyID(n.LobbyID)
	if !ok {
		m.unlock()
		return
	}
	name := sess.Name
	m.unlock()

	m.reconcile(name)
}

// reconcile 重新拉取远端快照并覆盖本地视图。
func (m *Manager) reconcile(name string) {
	m.lock()
	sess, ok := m.registry.Get(name)
	if !ok {
		m.unlock()
		return
	}
	generation := sess.Generation
	snap := sess.Snapshot()
	m.unlock()

	be := m.backendFor(snap.Settings)
	var res *backend.Result
	m.submit(func(ctx context.Context) error {
		var err error
		res, err = be.Fetch(ctx, snap)
		return err
	}, func(err error) {
		if err != nil {
			m.logger.Warn("reconcile fetch failed", log.FieldSession(name), zap.Error(err))
			return
		}
		adopted := false
		var adoptedSettings session.Settings
		m.withSession(name, generation, func(sess *session.Session) {
			// 非宿主以服务端设置为准；宿主保留本地乐观视图。
			if !sess.IsHost {
				useLobby := sess.Settings.UseLobby
				sess.Settings = res.Settings.Clone()
				sess.Settings.UseLobby = useLobby
				adopted = true
				adoptedSettings = sess.Settings.Clone()
			}
			m.applyResult(sess, res)
		})
		if adopted {
			m.events.fireSessionSettingsUpdated(name, adoptedSettings)
		}
	})
}

// handleInviteReceived 处理邀请到达通知。
func (m *Manager) handleInviteReceived(n *onlinesvc.Notification) {
	localUserNum, ok := m.localUserNumOf(n.ToID)
	if !ok {
		m.logger.RatedInfo(1, "invite for unknown local player",
			log.FieldPlayer(string(n.ToID)))
		return
	}
	m.events.fireInviteReceived(localUserNum, n.FromID, n.InviteID)
}

// handleInviteAccepted 处理邀请接受 / 加入请求通知。
// 按邀请 ID 拉取目标详情，交由监听器决定是否调用 JoinSession。
func (m *Manager) handleInviteAccepted(n *onlinesvc.Notification) {
	localUserNum, ok := m.localUserNumOf(n.ToID)
	if !ok {
		return
	}

	// 邀请可能指向大厅或直连会话，依次尝试。
	var res *backend.Result
	m.submit(func(ctx context.Context) error {
		var err error
		res, err = m.lobby.FetchByInviteID(ctx, n.InviteID)
		if err != nil {
			res, err = m.direct.FetchByInviteID(ctx, n.InviteID)
		}
		return err
	}, func(err error) {
		accepted := &InviteAccepted{
			LocalUserNum: localUserNum,
			PlayerID:     n.ToID,
			InviteID:     n.InviteID,
			Result:       res,
		}
		if err != nil {
			m.logger.Warn("resolve accepted invite failed",
				zap.String("inviteID", string(n.InviteID)), zap.Error(err))
			m.events.fireInviteAccepted(accepted, err)
			return
		}
		m.events.fireInviteAccepted(accepted, nil)
	})
}
