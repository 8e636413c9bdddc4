package coplay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/coplay-garden-go/internal/backend"
	"github.com/lk2023060901/coplay-garden-go/internal/backend/direct"
	"github.com/lk2023060901/coplay-garden-go/internal/backend/lobby"
	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc/onlinesvctest"
	"github.com/lk2023060901/coplay-garden-go/internal/session"
	"github.com/lk2023060901/coplay-garden-go/pkg/util/merr"
)

// recorder 收集监听器触发情况，便于断言。
type recorder struct {
	mu sync.Mutex

	created   map[string]error
	started   map[string]error
	ended     map[string]error
	updated   map[string]error
	destroyed map[string]error
	joined    map[string]JoinResult
	finds     []uint64
	findErrs  []error
	failures  map[string]FailureReason
	owners    map[string]onlinesvc.ProductUserID
	members   map[onlinesvc.ProductUserID]ParticipantChange
}

func newRecorder(events *Events) *recorder {
	r := &recorder{
		created:   make(map[string]error),
		started:   make(map[string]error),
		ended:     make(map[string]error),
		updated:   make(map[string]error),
		destroyed: make(map[string]error),
		joined:    make(map[string]JoinResult),
		failures:  make(map[string]FailureReason),
		owners:    make(map[string]onlinesvc.ProductUserID),
		members:   make(map[onlinesvc.ProductUserID]ParticipantChange),
	}
	events.AddOnCreateComplete(func(name string, err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.created[name] = err
	})
	events.AddOnStartComplete(func(name string, err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.started[name] = err
	})
	events.AddOnEndComplete(func(name string, err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.ended[name] = err
	})
	events.AddOnUpdateComplete(func(name string, err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.updated[name] = err
	})
	events.AddOnDestroyComplete(func(name string, err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.destroyed[name] = err
	})
	events.AddOnJoinComplete(func(name string, result JoinResult) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.joined[name] = result
	})
	events.AddOnFindComplete(func(searchID uint64, results []*backend.Result, err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.finds = append(r.finds, searchID)
		r.findErrs = append(r.findErrs, err)
	})
	events.AddOnSessionFailure(func(name string, reason FailureReason) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.failures[name] = reason
	})
	events.AddOnOwnerChanged(func(name string, newOwner onlinesvc.ProductUserID) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.owners[name] = newOwner
	})
	events.AddOnParticipantChanged(func(name string, player onlinesvc.ProductUserID, change ParticipantChange) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.members[player] = change
	})
	return r
}

func (r *recorder) createdErr(name string) (error, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	err, ok := r.created[name]
	return err, ok
}

type ManagerSuite struct {
	suite.Suite

	fake     *onlinesvctest.Fake
	manager  *Manager
	identity *StaticIdentity
	rec      *recorder
}

func (s *ManagerSuite) SetupTest() {
	s.fake = onlinesvctest.New()
	s.identity = NewStaticIdentity()
	s.identity.Login(0, "player-1")

	s.manager = NewManager(Config{
		BucketID: "bucket:1.0:test",
	}, s.identity, direct.New(s.fake, nil), lobby.New(s.fake, nil), nil)
	s.rec = newRecorder(s.manager.Events())
}

func (s *ManagerSuite) TearDownTest() {
	_ = s.manager.Close()
}

// tickUntil 反复 Tick 直到条件满足或超时。
func (s *ManagerSuite) tickUntil(cond func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.manager.Tick()
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	s.FailNow("condition not met before deadline")
}

func (s *ManagerSuite) directSettings() session.Settings {
	return session.Settings{
		NumPublicConnections: 4,
		ShouldAdvertise:      true,
		AllowInvites:         true,
	}
}

func (s *ManagerSuite) lobbySettings() session.Settings {
	settings := s.directSettings()
	settings.UseLobby = true
	return settings
}

func (s *ManagerSuite) createSession(name string, settings session.Settings) {
	s.Require().NoError(s.manager.CreateSession(0, name, settings))
	s.tickUntil(func() bool {
		_, ok := s.rec.createdErr(name)
		return ok
	})
	err, _ := s.rec.createdErr(name)
	s.Require().NoError(err)
}

func (s *ManagerSuite) TestCreateSessionLifecycle() {
	s.Equal(session.StateNoSession, s.manager.GetSessionState("Game"))

	s.createSession("Game", s.directSettings())

	sess, ok := s.manager.GetNamedSession("Game")
	s.Require().True(ok)
	s.Equal(session.StatePending, sess.State)
	s.True(sess.IsHost)
	s.True(sess.HasRemoteID())
	// 宿主已自动注册并占用一个空位。
	s.True(s.manager.IsPlayerInSession("Game", "player-1"))
	s.Equal(3, sess.NumOpenPublicConnections)
	s.Equal(1, s.manager.NumSessions())
}

func (s *ManagerSuite) TestCreateValidation() {
	s.ErrorIs(s.manager.CreateSession(0, "", s.directSettings()),
		merr.ErrParameterMissing)
	s.ErrorIs(s.manager.CreateSession(3, "Game", s.directSettings()),
		merr.ErrPlayerNotLoggedIn)

	s.createSession("Game", s.directSettings())
	s.ErrorIs(s.manager.CreateSession(0, "Game", s.directSettings()),
		merr.ErrSessionAlreadyExist)
}

func (s *ManagerSuite) TestPresenceGuard() {
	settings := s.directSettings()
	settings.UsesPresence = true
	s.createSession("Party", settings)
	s.True(s.manager.HasPresenceSession())

	err := s.manager.CreateSession(0, "Second", settings)
	s.ErrorIs(err, merr.ErrSessionPresenceBusy)
}

func (s *ManagerSuite) TestCreateFailureRemovesLocalSession() {
	s.fake.SetError("CreateSession", &onlinesvc.Error{Code: onlinesvc.CodeInvalidRequest, Message: "bad"})

	s.Require().NoError(s.manager.CreateSession(0, "Game", s.directSettings()))
	s.tickUntil(func() bool {
		_, ok := s.rec.createdErr("Game")
		return ok
	})
	err, _ := s.rec.createdErr("Game")
	s.ErrorIs(err, merr.ErrBackendRejected)
	s.Equal(0, s.manager.NumSessions())
}

func (s *ManagerSuite) TestStartEndStateMachine() {
	s.createSession("Game", s.directSettings())

	// InProgress 之前不允许结束。
	s.ErrorIs(s.manager.EndSession("Game"), merr.ErrSessionInvalidState)

	s.Require().NoError(s.manager.StartSession("Game"))
	// Starting 状态下重复开始被拒绝。
	s.ErrorIs(s.manager.StartSession("Game"), merr.ErrSessionInvalidState)

	s.tickUntil(func() bool {
		return s.manager.GetSessionState("Game") == session.StateInProgress
	})

	s.Require().NoError(s.manager.EndSession("Game"))
	s.tickUntil(func() bool {
		return s.manager.GetSessionState("Game") == session.StateEnded
	})

	// Ended 之后允许再次开始。
	s.Require().NoError(s.manager.StartSession("Game"))
	s.tickUntil(func() bool {
		return s.manager.GetSessionState("Game") == session.StateInProgress
	})
}

func (s *ManagerSuite) TestStartUnknownSession() {
	s.ErrorIs(s.manager.StartSession("Nope"), merr.ErrSessionNotFound)
	s.ErrorIs(s.manager.EndSession("Nope"), merr.ErrSessionNotFound)
	s.ErrorIs(s.manager.DestroySession("Nope"), merr.ErrSessionNotFound)
}

func (s *ManagerSuite) TestDestroyIdempotent() {
	s.createSession("Game", s.directSettings())

	s.Require().NoError(s.manager.DestroySession("Game"))
	// 销毁进行中重复调用被同步拒绝，不产生第二次完成。
	s.ErrorIs(s.manager.DestroySession("Game"), merr.ErrSessionDestroying)

	s.tickUntil(func() bool {
		return s.manager.NumSessions() == 0
	})
	s.rec.mu.Lock()
	err := s.rec.destroyed["Game"]
	s.rec.mu.Unlock()
	s.NoError(err)
	s.Empty(s.fake.Sessions)
}

func (s *ManagerSuite) TestDestroyWhileCreatingRejected() {
	s.Require().NoError(s.manager.CreateSession(0, "Game", s.directSettings()))

	// 创建确认前销毁被同步拒绝，创建仍恰好产生一次完成回调。
	s.ErrorIs(s.manager.DestroySession("Game"), merr.ErrSessionInvalidState)

	s.tickUntil(func() bool {
		_, ok := s.rec.createdErr("Game")
		return ok
	})
	err, _ := s.rec.createdErr("Game")
	s.NoError(err)

	s.Require().NoError(s.manager.DestroySession("Game"))
	s.tickUntil(func() bool {
		return s.manager.NumSessions() == 0
	})
}

func (s *ManagerSuite) TestDestroyRemovesLocalEvenIfRemoteFails() {
	s.createSession("Game", s.directSettings())
	s.fake.SetError("DestroySession", &onlinesvc.Error{Code: onlinesvc.CodeNoPermission})

	s.Require().NoError(s.manager.DestroySession("Game"))
	s.tickUntil(func() bool {
		return s.manager.NumSessions() == 0
	})
	s.rec.mu.Lock()
	err := s.rec.destroyed["Game"]
	s.rec.mu.Unlock()
	s.ErrorIs(err, merr.ErrBackendRejected)
}

func (s *ManagerSuite) TestUpdateOptimisticLocalWrite() {
	s.createSession("Game", s.directSettings())

	updated := s.directSettings()
	updated.AllowInvites = false
	updated.Attributes = map[string]session.Attr{
		"mode": {Value: session.StringValue("ctf"), Advertise: true},
	}

	var gotSettings *session.Settings
	s.manager.Events().AddOnSessionSettingsUpdated(func(name string, settings session.Settings) {
		gotSettings = &settings
	})

	s.Require().NoError(s.manager.UpdateSession("Game", updated))

	// 本地立即生效。
	got, ok := s.manager.GetSessionSettings("Game")
	s.Require().True(ok)
	s.False(got.AllowInvites)

	s.tickUntil(func() bool {
		s.rec.mu.Lock()
		defer s.rec.mu.Unlock()
		_, done := s.rec.updated["Game"]
		return done
	})
	s.rec.mu.Lock()
	s.NoError(s.rec.updated["Game"])
	s.rec.mu.Unlock()
	s.Require().NotNil(gotSettings)
	s.False(gotSettings.AllowInvites)
}

func (s *ManagerSuite) TestUpdateWhileCreatingRejected() {
	s.Require().NoError(s.manager.CreateSession(0, "Game", s.directSettings()))

	// 创建确认前禁止修改设置。
	err := s.manager.UpdateSession("Game", s.directSettings())
	s.ErrorIs(err, merr.ErrSessionInvalidState)

	s.tickUntil(func() bool {
		_, ok := s.rec.createdErr("Game")
		return ok
	})
}

func (s *ManagerSuite) TestUpdateFailureKeepsLocalSettings() {
	s.createSession("Game", s.directSettings())
	s.fake.SetError("UpdateSession", &onlinesvc.Error{Code: onlinesvc.CodeNoPermission})

	updated := s.directSettings()
	updated.ShouldAdvertise = false
	s.Require().NoError(s.manager.UpdateSession("Game", updated))

	s.tickUntil(func() bool {
		s.rec.mu.Lock()
		defer s.rec.mu.Unlock()
		_, done := s.rec.updated["Game"]
		return done
	})
	s.rec.mu.Lock()
	s.ErrorIs(s.rec.updated["Game"], merr.ErrBackendRejected)
	s.rec.mu.Unlock()

	// 远端失败不回滚本地设置。
	got, _ := s.manager.GetSessionSettings("Game")
	s.False(got.ShouldAdvertise)
}

func (s *ManagerSuite) TestUpdateRetriesStaleRemoteView() {
	s.createSession("Game", s.directSettings())
	// 远端视图过期是可重试错误，第二次尝试即成功。
	s.fake.SetError("UpdateSession", &onlinesvc.Error{Code: onlinesvc.CodeOutOfSync})

	updated := s.directSettings()
	updated.AllowInvites = false
	s.Require().NoError(s.manager.UpdateSession("Game", updated))

	s.tickUntil(func() bool {
		s.rec.mu.Lock()
		defer s.rec.mu.Unlock()
		_, done := s.rec.updated["Game"]
		return done
	})
	s.rec.mu.Lock()
	s.NoError(s.rec.updated["Game"])
	s.rec.mu.Unlock()
}

func (s *ManagerSuite) TestFindSessionsAndCache() {
	s.createSession("Game", s.directSettings())

	searchID, err := s.manager.FindSessions(0, backend.Query{MaxResults: 10})
	s.Require().NoError(err)

	s.tickUntil(func() bool {
		state, _ := s.manager.SearchResults()
		return state == SearchDone
	})

	state, results := s.manager.SearchResults()
	s.Equal(SearchDone, state)
	s.Require().Len(results, 1)

	s.rec.mu.Lock()
	s.Contains(s.rec.finds, searchID)
	s.rec.mu.Unlock()
}

func (s *ManagerSuite) TestFindSessionsNoDuplicate() {
	s.fake.SetError("SearchSessions", &onlinesvc.Error{Code: onlinesvc.CodeInvalidRequest})

	// 第一次搜索进行中时拒绝第二次。
	_, err := s.manager.FindSessions(0, backend.Query{})
	s.Require().NoError(err)
	_, err = s.manager.FindSessions(0, backend.Query{})
	s.ErrorIs(err, merr.ErrSearchInProgress)

	s.tickUntil(func() bool {
		state, _ := s.manager.SearchResults()
		return state != SearchInProgress
	})
}

func (s *ManagerSuite) TestFindSessionByIDFallsBackToDirect() {
	// 目标是直连会话：大厅查找失败后回退到直连接口。
	info, err := s.fake.CreateSession(context.Background(), &onlinesvc.CreateSessionRequest{
		HostPlayerID:    "player-9",
		MaxPlayers:      4,
		PermissionLevel: onlinesvc.PermissionPublicAdvertised,
	})
	s.Require().NoError(err)

	searchID, err := s.manager.FindSessionByID(0, string(info.SessionID))
	s.Require().NoError(err)

	s.tickUntil(func() bool {
		state, _ := s.manager.SearchResults()
		return state == SearchDone
	})
	_, results := s.manager.SearchResults()
	s.Require().Len(results, 1)
	s.Equal(info.SessionID, results[0].SessionID)

	s.rec.mu.Lock()
	s.Contains(s.rec.finds, searchID)
	s.rec.mu.Unlock()
}

func (s *ManagerSuite) TestCancelFindSessions() {
	s.ErrorIs(s.manager.CancelFindSessions(), merr.ErrSearchNotFound)

	_, err := s.manager.FindSessions(0, backend.Query{})
	s.Require().NoError(err)

	// 取消可能与完成竞争；取消成功时状态为 Failed。
	if err := s.manager.CancelFindSessions(); err == nil {
		s.tickUntil(func() bool {
			s.rec.mu.Lock()
			defer s.rec.mu.Unlock()
			return len(s.rec.findErrs) > 0
		})
		state, _ := s.manager.SearchResults()
		s.Equal(SearchFailed, state)
	}
}

func (s *ManagerSuite) TestFindSessionsAfterCloseRejected() {
	s.Require().NoError(s.manager.Close())

	_, err := s.manager.FindSessions(0, backend.Query{})
	s.ErrorIs(err, merr.ErrServiceNotReady)
}

func (s *ManagerSuite) TestJoinSessionViaSearch() {
	// 预置一个他人托管的远端会话。
	info, err := s.fake.CreateSession(context.Background(), &onlinesvc.CreateSessionRequest{
		BucketID:        "bucket:1.0:test",
		HostPlayerID:    "player-9",
		HostAddress:     "10.0.0.9:7777",
		MaxPlayers:      4,
		PermissionLevel: onlinesvc.PermissionPublicAdvertised,
	})
	s.Require().NoError(err)

	_, err = s.manager.FindSessions(0, backend.Query{})
	s.Require().NoError(err)
	s.tickUntil(func() bool {
		state, _ := s.manager.SearchResults()
		return state == SearchDone
	})
	_, results := s.manager.SearchResults()
	s.Require().Len(results, 1)
	s.Equal(info.SessionID, results[0].SessionID)

	s.Require().NoError(s.manager.JoinSession(0, "Game", results[0]))
	s.tickUntil(func() bool {
		s.rec.mu.Lock()
		defer s.rec.mu.Unlock()
		_, ok := s.rec.joined["Game"]
		return ok
	})

	s.rec.mu.Lock()
	s.Equal(JoinSuccess, s.rec.joined["Game"])
	s.rec.mu.Unlock()

	sess, ok := s.manager.GetNamedSession("Game")
	s.Require().True(ok)
	s.False(sess.IsHost)
	s.Equal(session.StatePending, sess.State)

	addr, ok := s.manager.GetResolvedConnectString("Game")
	s.True(ok)
	s.Equal("10.0.0.9:7777", addr)
}

func (s *ManagerSuite) TestJoinFullSession() {
	info, err := s.fake.CreateSession(context.Background(), &onlinesvc.CreateSessionRequest{
		HostPlayerID:    "player-9",
		MaxPlayers:      1,
		PermissionLevel: onlinesvc.PermissionPublicAdvertised,
	})
	s.Require().NoError(err)
	s.Require().NoError(s.fake.RegisterPlayers(context.Background(), info.SessionID,
		[]onlinesvc.ProductUserID{"player-9"}))

	target := &backend.Result{SessionID: info.SessionID}
	s.Require().NoError(s.manager.JoinSession(0, "Game", target))
	s.tickUntil(func() bool {
		s.rec.mu.Lock()
		defer s.rec.mu.Unlock()
		_, ok := s.rec.joined["Game"]
		return ok
	})

	s.rec.mu.Lock()
	s.Equal(JoinSessionFull, s.rec.joined["Game"])
	s.rec.mu.Unlock()
	// 加入失败后本地会话被清理。
	s.Equal(0, s.manager.NumSessions())
}

func (s *ManagerSuite) TestRegisterUnregisterPlayers() {
	s.createSession("Game", s.directSettings())

	s.Require().NoError(s.manager.RegisterPlayers("Game",
		[]onlinesvc.ProductUserID{"player-2"}, false))
	s.True(s.manager.IsPlayerInSession("Game", "player-2"))

	s.Require().NoError(s.manager.UnregisterPlayers("Game",
		[]onlinesvc.ProductUserID{"player-2"}))
	s.False(s.manager.IsPlayerInSession("Game", "player-2"))
}

func (s *ManagerSuite) TestMatchmakingUnsupported() {
	s.ErrorIs(s.manager.StartMatchmaking(), merr.ErrUnsupported)
	s.ErrorIs(s.manager.CancelMatchmaking(), merr.ErrUnsupported)
}

func (s *ManagerSuite) TestLobbyKickNotificationRemovesLocalSession() {
	s.createSession("Party", s.lobbySettings())
	sess, ok := s.manager.GetNamedSession("Party")
	s.Require().True(ok)
	s.Require().NotEmpty(sess.LobbyID)

	s.Require().NoError(s.manager.HandleNotification(context.Background(), &onlinesvc.Notification{
		Kind:     onlinesvc.NotifyMemberStatus,
		LobbyID:  sess.LobbyID,
		TargetID: "player-1",
		Status:   onlinesvc.MemberStatusKicked,
	}))
	s.tickUntil(func() bool {
		return s.manager.NumSessions() == 0
	})

	s.rec.mu.Lock()
	s.Equal(FailureKicked, s.rec.failures["Party"])
	s.rec.mu.Unlock()
}

func (s *ManagerSuite) TestLobbyPromotedNotificationUpdatesOwner() {
	s.createSession("Party", s.lobbySettings())
	sess, _ := s.manager.GetNamedSession("Party")

	s.Require().NoError(s.manager.HandleNotification(context.Background(), &onlinesvc.Notification{
		Kind:     onlinesvc.NotifyMemberStatus,
		LobbyID:  sess.LobbyID,
		TargetID: "player-2",
		Status:   onlinesvc.MemberStatusPromoted,
	}))
	s.tickUntil(func() bool {
		s.rec.mu.Lock()
		defer s.rec.mu.Unlock()
		_, ok := s.rec.owners["Party"]
		return ok
	})

	sess, _ = s.manager.GetNamedSession("Party")
	s.EqualValues("player-2", sess.OwnerID)
	s.False(sess.IsHost)
}

func (s *ManagerSuite) TestPromotedToHostPushesLobbyUpdate() {
	// 预置一个他人拥有的大厅并以成员身份加入。
	info, err := s.fake.CreateLobby(context.Background(), &onlinesvc.CreateLobbyRequest{
		OwnerID:         "player-9",
		MaxMembers:      4,
		PermissionLevel: onlinesvc.PermissionPublicAdvertised,
	})
	s.Require().NoError(err)

	target := &backend.Result{
		LobbyID:  info.LobbyID,
		OwnerID:  "player-9",
		Settings: s.lobbySettings(),
	}
	s.Require().NoError(s.manager.JoinSession(0, "Party", target))
	s.tickUntil(func() bool {
		s.rec.mu.Lock()
		defer s.rec.mu.Unlock()
		_, ok := s.rec.joined["Party"]
		return ok
	})

	s.Require().NoError(s.manager.HandleNotification(context.Background(), &onlinesvc.Notification{
		Kind:     onlinesvc.NotifyMemberStatus,
		LobbyID:  info.LobbyID,
		TargetID: "player-1",
		Status:   onlinesvc.MemberStatusPromoted,
	}))

	// 新宿主把本地视图下推为权威视图：本地 AllowInvites 同步到了远端。
	s.tickUntil(func() bool {
		got, err := s.fake.GetLobbyByID(context.Background(), info.LobbyID)
		return err == nil && got.InvitesAllowed
	})

	sess, _ := s.manager.GetNamedSession("Party")
	s.True(sess.IsHost)
	s.EqualValues("player-1", sess.OwnerID)
}

func (s *ManagerSuite) TestLobbyMemberJoinedNotification() {
	s.createSession("Party", s.lobbySettings())
	sess, _ := s.manager.GetNamedSession("Party")

	s.Require().NoError(s.manager.HandleNotification(context.Background(), &onlinesvc.Notification{
		Kind:     onlinesvc.NotifyMemberStatus,
		LobbyID:  sess.LobbyID,
		TargetID: "player-2",
		Status:   onlinesvc.MemberStatusJoined,
	}))
	s.tickUntil(func() bool {
		return s.manager.IsPlayerInSession("Party", "player-2")
	})
	s.rec.mu.Lock()
	s.Equal(ParticipantJoined, s.rec.members["player-2"])
	s.rec.mu.Unlock()
}

func (s *ManagerSuite) TestLobbyMemberLeftAndKickedNotifications() {
	s.createSession("Party", s.lobbySettings())
	sess, _ := s.manager.GetNamedSession("Party")

	for _, id := range []onlinesvc.ProductUserID{"player-2", "player-3"} {
		s.Require().NoError(s.manager.HandleNotification(context.Background(), &onlinesvc.Notification{
			Kind:     onlinesvc.NotifyMemberStatus,
			LobbyID:  sess.LobbyID,
			TargetID: id,
			Status:   onlinesvc.MemberStatusJoined,
		}))
	}
	s.tickUntil(func() bool {
		return s.manager.IsPlayerInSession("Party", "player-3")
	})

	s.Require().NoError(s.manager.HandleNotification(context.Background(), &onlinesvc.Notification{
		Kind:     onlinesvc.NotifyMemberStatus,
		LobbyID:  sess.LobbyID,
		TargetID: "player-2",
		Status:   onlinesvc.MemberStatusLeft,
	}))
	s.Require().NoError(s.manager.HandleNotification(context.Background(), &onlinesvc.Notification{
		Kind:     onlinesvc.NotifyMemberStatus,
		LobbyID:  sess.LobbyID,
		TargetID: "player-3",
		Status:   onlinesvc.MemberStatusKicked,
	}))
	s.tickUntil(func() bool {
		return !s.manager.IsPlayerInSession("Party", "player-2") &&
			!s.manager.IsPlayerInSession("Party", "player-3")
	})

	s.rec.mu.Lock()
	s.Equal(ParticipantLeft, s.rec.members["player-2"])
	s.Equal(ParticipantRemoved, s.rec.members["player-3"])
	s.rec.mu.Unlock()

	// 被踢者并非本地玩家，会话本身不受影响。
	s.Equal(1, s.manager.NumSessions())
}

func (s *ManagerSuite) TestInviteReceivedNotification() {
	var gotFrom onlinesvc.ProductUserID
	var gotInvite onlinesvc.InviteID
	s.manager.Events().AddOnInviteReceived(func(localUserNum int, from onlinesvc.ProductUserID, inviteID onlinesvc.InviteID) {
		gotFrom = from
		gotInvite = inviteID
	})

	s.Require().NoError(s.manager.HandleNotification(context.Background(), &onlinesvc.Notification{
		Kind:     onlinesvc.NotifyInviteReceived,
		InviteID: "inv-1",
		FromID:   "player-9",
		ToID:     "player-1",
	}))
	s.tickUntil(func() bool {
		return gotInvite != ""
	})
	s.EqualValues("player-9", gotFrom)
}

func (s *ManagerSuite) TestInviteAcceptedResolvesLobby() {
	// 预置一个他人的大厅与邀请。
	info, err := s.fake.CreateLobby(context.Background(), &onlinesvc.CreateLobbyRequest{
		OwnerID:         "player-9",
		MaxMembers:      4,
		PermissionLevel: onlinesvc.PermissionInviteOnly,
	})
	s.Require().NoError(err)
	inviteID := s.fake.AddLobbyInvite(info.LobbyID)

	var accepted *InviteAccepted
	s.manager.Events().AddOnInviteAccepted(func(a *InviteAccepted, err error) {
		s.NoError(err)
		accepted = a
	})

	s.Require().NoError(s.manager.HandleNotification(context.Background(), &onlinesvc.Notification{
		Kind:     onlinesvc.NotifyInviteAccepted,
		InviteID: inviteID,
		ToID:     "player-1",
	}))
	s.tickUntil(func() bool {
		return accepted != nil
	})

	s.Require().NotNil(accepted.Result)
	s.Equal(info.LobbyID, accepted.Result.LobbyID)
	s.Equal(0, accepted.LocalUserNum)
}

func (s *ManagerSuite) TestGenerationGuardDropsStaleCompletion() {
	s.createSession("Game", s.directSettings())

	// 销毁后立即重建同名会话；旧销毁完成不得影响新会话。
	s.Require().NoError(s.manager.DestroySession("Game"))
	s.tickUntil(func() bool {
		return s.manager.NumSessions() == 0
	})

	s.createSession("Game", s.directSettings())
	s.Equal(session.StatePending, s.manager.GetSessionState("Game"))
	s.Equal(1, s.manager.NumSessions())
}

func TestManager(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}
