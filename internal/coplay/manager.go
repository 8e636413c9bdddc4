package coplay

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lk2023060901/coplay-garden-go/internal/backend"
	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
	"github.com/lk2023060901/coplay-garden-go/internal/session"
	"github.com/lk2023060901/coplay-garden-go/pkg/log"
	"github.com/lk2023060901/coplay-garden-go/pkg/metrics"
	"github.com/lk2023060901/coplay-garden-go/pkg/util/conc"
	"github.com/lk2023060901/coplay-garden-go/pkg/util/merr"
	"github.com/lk2023060901/coplay-garden-go/pkg/util/retry"
)

const (
	// maxLocalPlayers 为单客户端支持的本地玩家槽位数。
	maxLocalPlayers = 4

	defaultMaxSearchResults = 50
	defaultOperationTimeout = 30 * time.Second
	defaultPoolSize         = 16
)

// Config 为 Manager 的配置。
type Config struct {
	// BucketID 为默认分桶标识，创建与搜索在未显式给出时使用。
	BucketID string

	// MaxSearchResults 为单次搜索的默认结果上限。
	MaxSearchResults int

	// OperationTimeout 为单次远端操作的超时时间。
	OperationTimeout time.Duration

	// PoolSize 为异步任务协程池容量。
	PoolSize int
}

func (c *Config) fillDefaults() {
	if c.MaxSearchResults <= 0 {
		c.MaxSearchResults = defaultMaxSearchResults
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = defaultOperationTimeout
	}
	if c.PoolSize <= 0 {
		c.PoolSize = defaultPoolSize
	}
}

// Manager 为会话编排的统一入口。
//
// 线程模型：
//   - 所有公开方法可从任意协程调用，内部状态由单把互斥锁保护；
//   - 远端调用在协程池中异步执行，完成动作投递到事件队列；
//   - 调用方需要周期性调用 Tick，所有完成监听器都只在 Tick 线程触发；
//   - 每个会话携带 Generation 代号，销毁 / 重建后旧的异步完成会被丢弃。
type Manager struct {
	cfg      Config
	logger   *log.MLogger
	identity IdentityService

	direct backend.Backend
	lobby  backend.Backend

	registry session.Registry
	events   *Events
	queue    *eventQueue
	pool     *conc.Pool[struct{}]

	mu     sync.Mutex
	search *Search

	nextSearchID atomic.Uint64
	closed       atomic.Bool
}

// NewManager 创建会话管理器。
//
// identity、directBackend 与 lobbyBackend 为必需依赖。
func NewManager(cfg Config, identity IdentityService, directBackend, lobbyBackend backend.Backend, logger *log.MLogger) *Manager {
	cfg.fillDefaults()
	if logger == nil {
		logger = &log.MLogger{Logger: log.L().With(log.FieldComponent("session-manager"))}
	}

	return &Manager{
		cfg:      cfg,
		logger:   logger,
		identity: identity,
		direct:   directBackend,
		lobby:    lobbyBackend,
		registry: session.NewBaseRegistry(),
		events:   NewEvents(),
		queue:    newEventQueue(),
		pool:     conc.NewPool[struct{}](cfg.PoolSize),
	}
}

// Events 返回监听器集合，供调用方注册回调。
func (m *Manager) Events() *Events { return m.events }

// Tick 执行所有排队的完成动作并触发监听器。
// 必须由单一线程周期性调用。
func (m *Manager) Tick() {
	m.queue.Drain()
}

// Close 停止接受新操作并等待在途任务结束。
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	return m.pool.ReleaseTimeout(m.cfg.OperationTimeout)
}

func (m *Manager) lock()   { m.mu.Lock() }
func (m *Manager) unlock() { m.mu.Unlock() }

// backendFor 按会话设置选择底层实现。
func (m *Manager) backendFor(settings session.Settings) backend.Backend {
	if settings.UseLobby {
		return m.lobby
	}
	return m.direct
}

// submit 把远端任务交给协程池执行，完成动作回投到 Tick 队列。
func (m *Manager) submit(task func(ctx context.Context) error, complete func(err error)) {
	if m.closed.Load() {
		m.queue.Post(func() { complete(merr.WrapErrServiceNotReady("session-manager")) })
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.OperationTimeout)
	m.pool.Submit(func() (struct{}, error) {
		defer cancel()
		err := task(ctx)
		m.queue.Post(func() { complete(err) })
		return struct{}{}, nil
	})
}

// withSession 在持锁状态下访问指定代号的会话。
// 会话不存在或代号不匹配（已销毁重建）时返回 false。
func (m *Manager) withSession(name string, generation uint64, fn func(sess *session.Session)) bool {
	m.lock()
	defer m.unlock()

	sess, ok := m.registry.Get(name)
	if !ok || sess.Generation != generation {
		return false
	}
	fn(sess)
	return true
}

func (m *Manager) observeOp(operation string, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusFail
	}
	metrics.SessionOperations.WithLabelValues(operation, status).Inc()
}

// updateStateGauge 重算各状态会话数量指标。调用方需持锁。
func (m *Manager) updateStateGauge() {
	counts := make(map[session.State]int)
	m.registry.Range(func(sess *session.Session) bool {
		counts[sess.State]++
		return true
	})
	for st := session.StateNoSession; st <= session.StateDestroying; st++ {
		metrics.NumSessions.WithLabelValues(st.String()).Set(float64(counts[st]))
	}
}

// hasPresenceLocked 返回是否已存在 presence 会话。调用方需持锁。
func (m *Manager) hasPresenceLocked() bool {
	found := false
	m.registry.Range(func(sess *session.Session) bool {
		if sess.Settings.UsesPresence {
			found = true
			return false
		}
		return true
	})
	return found
}

// CreateSession 创建一个新的命名会话。
//
// 同步校验通过后立即登记本地会话（Creating 状态）并返回 nil，
// 远端创建完成后经 Tick 触发 OnCreateComplete。
func (m *Manager) CreateSession(localUserNum int, name string, settings session.Settings) error {
	if name == "" {
		return merr.WrapErrParameterMissing("session name")
	}
	playerID, ok := m.identity.PlayerID(localUserNum)
	if !ok {
		return merr.WrapErrPlayerNotLoggedIn(localUserNum)
	}
	if settings.BucketID == "" {
		settings.BucketID = m.cfg.BucketID
	}

	m.lock()
	if _, exists := m.registry.Get(name); exists {
		m.unlock()
		return merr.WrapErrSessionAlreadyExist(name)
	}
	if settings.UsesPresence && m.hasPresenceLocked() {
		m.unlock()
		return merr.WrapErrSessionPresenceBusy(name, "local player")
	}

	sess := session.NewSession(name, playerID, settings)
	sess.IsHost = true
	sess.OwnerID = playerID
	if err := m.registry.Register(sess); err != nil {
		m.unlock()
		return err
	}
	generation := sess.Generation
	snap := sess.Snapshot()
	m.updateStateGauge()
	m.unlock()

	m.logger.Info("creating session",
		log.FieldSession(name),
		log.FieldPlayer(string(playerID)),
		zap.Bool("useLobby", settings.UseLobby))

	be := m.backendFor(settings)
	var res *backend.Result
	m.submit(func(ctx context.Context) error {
		var err error
		res, err = be.Create(ctx, snap)
		return err
	}, func(err error) {
		m.observeOp("create", err)
		if err != nil {
			m.withSession(name, generation, func(sess *session.Session) {
				_ = m.registry.Unregister(name)
				m.updateStateGauge()
			})
			m.logger.Warn("create session failed", log.FieldSession(name), zap.Error(err))
			m.events.fireCreateComplete(name, err)
			return
		}

		applied := m.withSession(name, generation, func(sess *session.Session) {
			m.applyResult(sess, res)
			sess.State = session.StatePending
			// 宿主自动占用一个空位。
			if !sess.IsPlayerRegistered(playerID) {
				_, _ = sess.RegisterPlayer(playerID, false)
			}
			m.updateStateGauge()
		})
		if !applied {
			// 会话在等待期间被销毁，静默丢弃。
			return
		}
		m.events.fireCreateComplete(name, nil)
	})
	return nil
}

// applyResult 把远端快照同步到本地会话。调用方需持锁。
func (m *Manager) applyResult(sess *session.Session, res *backend.Result) {
	if res == nil {
		return
	}
	sess.SessionID = res.SessionID
	sess.LobbyID = res.LobbyID
	if res.OwnerID != "" {
		sess.OwnerID = res.OwnerID
		sess.IsHost = res.OwnerID == sess.LocalPlayerID
	}
	if res.HostAddress != "" {
		sess.HostAddress = res.HostAddress
	}
	if len(res.Players) > 0 {
		sess.SyncRegisteredPlayers(res.Players)
	}
}

// StartSession 把会话推进到对局进行中。
// 仅允许在 Pending 或 Ended 状态发起。
func (m *Manager) StartSession(name string) error {
	m.lock()
	sess, ok := m.registry.Get(name)
	if !ok {
		m.unlock()
		return merr.WrapErrSessionNotFound(name)
	}
	if sess.State != session.StatePending && sess.State != session.StateEnded {
		state := sess.State
		m.unlock()
		return merr.WrapErrSessionInvalidState(name, state, "start")
	}
	prev := sess.State
	sess.State = session.StateStarting
	generation := sess.Generation
	snap := sess.Snapshot()
	m.updateStateGauge()
	m.unlock()

	be := m.backendFor(snap.Settings)
	m.submit(func(ctx context.Context) error {
		return be.Start(ctx, snap)
	}, func(err error) {
		m.observeOp("start", err)
		m.withSession(name, generation, func(sess *session.Session) {
			if err != nil {
				sess.State = prev
			} else {
				sess.State = session.StateInProgress
			}
			m.updateStateGauge()
		})
		m.events.fireStartComplete(name, err)
	})
	return nil
}

// EndSession 结束进行中的对局。仅允许在 InProgress 状态发起。
func (m *Manager) EndSession(name string) error {
	m.lock()
	sess, ok := m.registry.Get(name)
	if !ok {
		m.unlock()
		return merr.WrapErrSessionNotFound(name)
	}
	if sess.State != session.StateInProgress {
		state := sess.State
		m.unlock()
		return merr.WrapErrSessionInvalidState(name, state, "end")
	}
	sess.State = session.StateEnding
	generation := sess.Generation
	snap := sess.Snapshot()
	m.updateStateGauge()
	m.unlock()

	be := m.backendFor(snap.Settings)
	m.submit(func(ctx context.Context) error {
		return be.End(ctx, snap)
	}, func(err error) {
		m.observeOp("end", err)
		// 结束是尽力而为：无论远端结果如何都进入 Ended。
		m.withSession(name, generation, func(sess *session.Session) {
			sess.State = session.StateEnded
			m.updateStateGauge()
		})
		m.events.fireEndComplete(name, err)
	})
	return nil
}

// UpdateSession 修改会话设置。
//
// 本地设置立即生效且不回滚（乐观更新），远端同步结果经
// OnUpdateComplete 报告。远端视图过期会自动重试，重试耗尽后
// 视为软成功，以重拉对账收敛。
func (m *Manager) UpdateSession(name string, updated session.Settings) error {
	m.lock()
	sess, ok := m.registry.Get(name)
	if !ok {
		m.unlock()
		return merr.WrapErrSessionNotFound(name)
	}
	if sess.State == session.StateDestroying {
		m.unlock()
		return merr.WrapErrSessionDestroying(name)
	}
	if sess.State == session.StateCreating {
		m.unlock()
		return merr.WrapErrSessionInvalidState(name, session.StateCreating, "update")
	}
	if !sess.IsHost {
		m.unlock()
		return merr.WrapErrUnsupported("update session", "only the host may update settings")
	}
	if updated.UsesPresence && !sess.Settings.UsesPresence && m.hasPresenceLocked() {
		m.unlock()
		return merr.WrapErrSessionPresenceBusy(name, "local player")
	}

	if updated.BucketID == "" {
		updated.BucketID = sess.Settings.BucketID
	}
	// 底层实现不可变更。
	updated.UseLobby = sess.Settings.UseLobby
	sess.Settings = updated.Clone()
	generation := sess.Generation
	snap := sess.Snapshot()
	m.unlock()

	be := m.backendFor(updated)
	var res *backend.Result
	m.submit(func(ctx context.Context) error {
		return retry.Do(ctx, func() error {
			var err error
			res, err = be.Update(ctx, snap, updated)
			return err
		}, retry.Attempts(3), retry.RetryErr(merr.IsRetryableErr))
	}, func(err error) {
		// 远端视图过期在重试耗尽后按软成功处理，后续对账收敛。
		if err != nil && errors.Is(err, merr.ErrBackendOutOfSync) {
			m.logger.Warn("update accepted with stale remote view", log.FieldSession(name))
			err = nil
		}
		m.observeOp("update", err)
		// 失败不回滚本地设置：本地视图以调用方为准。
		m.withSession(name, generation, func(sess *session.Session) {
			m.applyResult(sess, res)
		})
		if err == nil {
			m.events.fireSessionSettingsUpdated(name, updated)
		}
		m.events.fireUpdateComplete(name, err)
	})
	return nil
}

// DestroySession 销毁会话并清理本地状态。
//
// 销毁已在进行中时同步拒绝，不会产生第二次完成回调；
// 创建尚未确认的会话不可销毁，保证创建恰好产生一次完成回调；
// 对局进行中的会话先结束再销毁；
// 无论远端结果如何，本地会话都会被移除。
func (m *Manager) DestroySession(name string) error {
	m.lock()
	sess, ok := m.registry.Get(name)
	if !ok {
		m.unlock()
		return merr.WrapErrSessionNotFound(name)
	}
	if sess.State == session.StateDestroying {
		m.unlock()
		return merr.WrapErrSessionDestroying(name)
	}
	if sess.State == session.StateCreating {
		m.unlock()
		return merr.WrapErrSessionInvalidState(name, session.StateCreating, "destroy")
	}
	wasInProgress := sess.State == session.StateInProgress || sess.State == session.StateEnding
	sess.State = session.StateDestroying
	generation := sess.Generation
	snap := sess.Snapshot()
	m.updateStateGauge()
	m.unlock()

	m.logger.Info("destroying session", log.FieldSession(name))

	be := m.backendFor(snap.Settings)
	m.submit(func(ctx context.Context) error {
		if wasInProgress {
			// 销毁前先结束对局，远端结束失败不阻塞销毁。
			if err := be.End(ctx, snap); err != nil {
				m.logger.Warn("end before destroy failed", log.FieldSession(name), zap.Error(err))
			}
		}
		return be.Destroy(ctx, snap)
	}, func(err error) {
		m.observeOp("destroy", err)
		m.withSession(name, generation, func(sess *session.Session) {
			// 代号递增使仍在途的旧完成全部失效。
			sess.Generation++
			_ = m.registry.Unregister(name)
			m.updateStateGauge()
		})
		if err != nil {
			m.logger.Warn("remote destroy failed, local session removed anyway",
				log.FieldSession(name), zap.Error(err))
		}
		m.events.fireDestroyComplete(name, err)
	})
	return nil
}

// JoinSession 以搜索结果或邀请详情为目标加入会话。
//
// 加入结果经 OnJoinComplete 报告；同步校验失败时直接返回错误，
// 不触发监听器。
func (m *Manager) JoinSession(localUserNum int, name string, target *backend.Result) error {
	if target == nil {
		return merr.WrapErrParameterMissing("join target")
	}
	playerID, ok := m.identity.PlayerID(localUserNum)
	if !ok {
		return merr.WrapErrPlayerNotLoggedIn(localUserNum)
	}

	m.lock()
	if _, exists := m.registry.Get(name); exists {
		m.unlock()
		return merr.WrapErrSessionAlreadyExist(name)
	}
	if target.Settings.UsesPresence && m.hasPresenceLocked() {
		m.unlock()
		return merr.WrapErrSessionPresenceBusy(name, "local player")
	}

	sess := session.NewSession(name, playerID, target.Settings)
	sess.IsHost = false
	sess.OwnerID = target.OwnerID
	sess.HostAddress = target.HostAddress
	if err := m.registry.Register(sess); err != nil {
		m.unlock()
		return err
	}
	generation := sess.Generation
	snap := sess.Snapshot()
	m.updateStateGauge()
	m.unlock()

	be := m.backendFor(target.Settings)
	var res *backend.Result
	m.submit(func(ctx context.Context) error {
		var err error
		res, err = be.Join(ctx, snap, target)
		return err
	}, func(err error) {
		m.observeOp("join", err)
		if err != nil {
			m.withSession(name, generation, func(sess *session.Session) {
				_ = m.registry.Unregister(name)
				m.updateStateGauge()
			})
			m.events.fireJoinComplete(name, joinResultOf(err))
			return
		}

		applied := m.withSession(name, generation, func(sess *session.Session) {
			m.applyResult(sess, res)
			sess.State = session.StatePending
			if !sess.IsPlayerRegistered(playerID) {
				_, _ = sess.RegisterPlayer(playerID, false)
			}
			m.updateStateGauge()
		})
		if !applied {
			return
		}
		m.events.fireJoinComplete(name, JoinSuccess)
	})
	return nil
}

// joinResultOf 把加入失败的错误映射为结果分类。
func joinResultOf(err error) JoinResult {
	switch {
	case err == nil:
		return JoinSuccess
	case errors.Is(err, merr.ErrSessionFull):
		return JoinSessionFull
	case errors.Is(err, merr.ErrSessionNotFound), errors.Is(err, merr.ErrLobbyNotFound):
		return JoinSessionDoesNotExist
	default:
		return JoinUnknownError
	}
}

// FindSessions 发起一次异步搜索并返回搜索 ID。
// 同一时刻至多一次进行中的搜索。
func (m *Manager) FindSessions(localUserNum int, query backend.Query) (uint64, error) {
	if m.closed.Load() {
		// 关闭后协程池不再接新任务，搜索会永远停在进行中，同步拒绝。
		return 0, merr.WrapErrServiceNotReady("session-manager")
	}
	if _, ok := m.identity.PlayerID(localUserNum); !ok {
		return 0, merr.WrapErrPlayerNotLoggedIn(localUserNum)
	}
	if query.BucketID == "" {
		query.BucketID = m.cfg.BucketID
	}
	if query.MaxResults <= 0 {
		query.MaxResults = m.cfg.MaxSearchResults
	}

	m.lock()
	if m.search != nil && m.search.State == SearchInProgress {
		m.unlock()
		return 0, merr.WrapErrSearchInProgress()
	}

	searchID := m.nextSearchID.Inc()
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.OperationTimeout)
	search := &Search{
		ID:     searchID,
		State:  SearchInProgress,
		Query:  query,
		cancel: cancel,
	}
	m.search = search
	m.unlock()

	be := m.backendFor(session.Settings{UseLobby: query.UseLobby})
	metrics.SearchesDispatched.WithLabelValues(be.Name()).Inc()

	m.pool.Submit(func() (struct{}, error) {
		defer cancel()
		results, err := be.Find(ctx, &query)
		m.queue.Post(func() {
			m.lock()
			cur := m.search
			if cur == nil || cur.ID != searchID || cur.State != SearchInProgress {
				// 搜索已被取消或被新搜索替换。
				m.unlock()
				return
			}
			if err != nil {
				cur.State = SearchFailed
				cur.Err = err
			} else {
				cur.State = SearchDone
				cur.Results = results
			}
			m.unlock()
			m.events.fireFindComplete(searchID, results, err)
		})
		return struct{}{}, nil
	})
	return searchID, nil
}

// FindSessionByID 按远端标识查找单个会话。
//
// 优先尝试大厅实现，失败后回退到直连会话实现；
// 结果同样经 OnFindComplete 报告并进入搜索结果缓存。
func (m *Manager) FindSessionByID(localUserNum int, id string) (uint64, error) {
	if id == "" {
		return 0, merr.WrapErrParameterMissing("session id")
	}
	if _, ok := m.identity.PlayerID(localUserNum); !ok {
		return 0, merr.WrapErrPlayerNotLoggedIn(localUserNum)
	}

	m.lock()
	if m.search != nil && m.search.State == SearchInProgress {
		m.unlock()
		return 0, merr.WrapErrSearchInProgress()
	}
	searchID := m.nextSearchID.Inc()
	search := &Search{
		ID:    searchID,
		State: SearchInProgress,
	}
	m.search = search
	m.unlock()

	var res *backend.Result
	m.submit(func(ctx context.Context) error {
		var err error
		res, err = m.lobby.FetchByID(ctx, id)
		if err != nil {
			res, err = m.direct.FetchByID(ctx, id)
		}
		return err
	}, func(err error) {
		m.lock()
		cur := m.search
		if cur == nil || cur.ID != searchID || cur.State != SearchInProgress {
			m.unlock()
			return
		}
		var results []*backend.Result
		if err != nil {
			cur.State = SearchFailed
			cur.Err = err
		} else {
			results = []*backend.Result{res}
			cur.State = SearchDone
			cur.Results = results
		}
		m.unlock()
		m.events.fireFindComplete(searchID, results, err)
	})
	return searchID, nil
}

// CancelFindSessions 取消进行中的搜索。
// 取消后监听器会收到一次 context.Canceled 的完成通知。
func (m *Manager) CancelFindSessions() error {
	m.lock()
	search := m.search
	if search == nil || search.State != SearchInProgress {
		m.unlock()
		return merr.WrapErrSearchNotFound("in-progress")
	}
	search.State = SearchFailed
	search.Err = context.Canceled
	if search.cancel != nil {
		search.cancel()
	}
	searchID := search.ID
	m.unlock()

	m.queue.Post(func() {
		m.events.fireFindComplete(searchID, nil, context.Canceled)
	})
	return nil
}

// SearchResults 返回最近一次搜索的状态与结果缓存。
func (m *Manager) SearchResults() (SearchState, []*backend.Result) {
	m.lock()
	defer m.unlock()
	if m.search == nil {
		return SearchFailed, nil
	}
	return m.search.State, m.search.Results
}

// RegisterPlayers 把一批玩家登记到会话。
//
// 本地空位立即扣减（乐观更新），远端同步失败时回滚。
func (m *Manager) RegisterPlayers(name string, players []onlinesvc.ProductUserID, wasInvited bool) error {
	m.lock()
	sess, ok := m.registry.Get(name)
	if !ok {
		m.unlock()
		return merr.WrapErrSessionNotFound(name)
	}

	changed := make([]onlinesvc.ProductUserID, 0, len(players))
	for _, p := range players {
		did, err := sess.RegisterPlayer(p, wasInvited)
		if err != nil {
			// 回滚本次已登记的玩家。
			for _, q := range changed {
				sess.UnregisterPlayer(q)
			}
			m.unlock()
			return err
		}
		if did {
			changed = append(changed, p)
		}
	}
	generation := sess.Generation
	snap := sess.Snapshot()
	m.unlock()

	be := m.backendFor(snap.Settings)
	m.submit(func(ctx context.Context) error {
		return be.RegisterPlayers(ctx, snap, players)
	}, func(err error) {
		m.observeOp("register_players", err)
		if err != nil {
			m.withSession(name, generation, func(sess *session.Session) {
				for _, p := range changed {
					sess.UnregisterPlayer(p)
				}
			})
		}
		m.events.fireRegisterPlayersComplete(name, players, err)
	})
	return nil
}

// UnregisterPlayers 把一批玩家从会话注销。
func (m *Manager) UnregisterPlayers(name string, players []onlinesvc.ProductUserID) error {
	m.lock()
	sess, ok := m.registry.Get(name)
	if !ok {
		m.unlock()
		return merr.WrapErrSessionNotFound(name)
	}

	changed := make([]onlinesvc.ProductUserID, 0, len(players))
	for _, p := range players {
		if sess.UnregisterPlayer(p) {
			changed = append(changed, p)
		}
	}
	generation := sess.Generation
	snap := sess.Snapshot()
	m.unlock()

	be := m.backendFor(snap.Settings)
	m.submit(func(ctx context.Context) error {
		return be.UnregisterPlayers(ctx, snap, players)
	}, func(err error) {
		m.observeOp("unregister_players", err)
		if err != nil {
			m.withSession(name, generation, func(sess *session.Session) {
				for _, p := range changed {
					_, _ = sess.RegisterPlayer(p, false)
				}
			})
		}
		m.events.fireUnregisterPlayersComplete(name, players, err)
	})
	return nil
}

// RegisterLocalPlayer 把指定槽位的本地玩家登记到会话。
func (m *Manager) RegisterLocalPlayer(localUserNum int, name string) error {
	playerID, ok := m.identity.PlayerID(localUserNum)
	if !ok {
		return merr.WrapErrPlayerNotLoggedIn(localUserNum)
	}
	return m.RegisterPlayers(name, []onlinesvc.ProductUserID{playerID}, false)
}

// UnregisterLocalPlayer 把指定槽位的本地玩家从会话注销。
func (m *Manager) UnregisterLocalPlayer(localUserNum int, name string) error {
	playerID, ok := m.identity.PlayerID(localUserNum)
	if !ok {
		return merr.WrapErrPlayerNotLoggedIn(localUserNum)
	}
	return m.UnregisterPlayers(name, []onlinesvc.ProductUserID{playerID})
}

// RemovePlayerFromSession 把目标玩家踢出会话。仅大厅实现支持。
// 结果经 OnUnregisterPlayersComplete 报告。
func (m *Manager) RemovePlayerFromSession(name string, target onlinesvc.ProductUserID) error {
	m.lock()
	sess, ok := m.registry.Get(name)
	if !ok {
		m.unlock()
		return merr.WrapErrSessionNotFound(name)
	}
	if !sess.IsHost {
		m.unlock()
		return merr.WrapErrUnsupported("remove player", "only the host may kick members")
	}
	generation := sess.Generation
	snap := sess.Snapshot()
	m.unlock()

	be := m.backendFor(snap.Settings)
	m.submit(func(ctx context.Context) error {
		return be.KickMember(ctx, snap, target)
	}, func(err error) {
		m.observeOp("kick", err)
		if err == nil {
			m.withSession(name, generation, func(sess *session.Session) {
				sess.UnregisterPlayer(target)
			})
			m.events.fireParticipantChanged(name, target, ParticipantRemoved)
		}
		m.events.fireUnregisterPlayersComplete(name, []onlinesvc.ProductUserID{target}, err)
	})
	return nil
}

// PromoteMember 把会话所有权转移给目标成员。仅大厅实现支持。
// 成功后经 OnOwnerChanged 报告。
func (m *Manager) PromoteMember(name string, target onlinesvc.ProductUserID) error {
	m.lock()
	sess, ok := m.registry.Get(name)
	if !ok {
		m.unlock()
		return merr.WrapErrSessionNotFound(name)
	}
	if !sess.IsHost {
		m.unlock()
		return merr.WrapErrUnsupported("promote member", "only the host may promote members")
	}
	generation := sess.Generation
	snap := sess.Snapshot()
	m.unlock()

	be := m.backendFor(snap.Settings)
	m.submit(func(ctx context.Context) error {
		return be.PromoteMember(ctx, snap, target)
	}, func(err error) {
		m.observeOp("promote", err)
		if err != nil {
			m.logger.Warn("promote member failed",
				log.FieldSession(name), log.FieldPlayer(string(target)), zap.Error(err))
			return
		}
		m.withSession(name, generation, func(sess *session.Session) {
			sess.OwnerID = target
			sess.IsHost = target == sess.LocalPlayerID
		})
		m.events.fireOwnerChanged(name, target)
	})
	return nil
}

// SendSessionInviteToFriends 以指定槽位玩家的名义发送邀请。
func (m *Manager) SendSessionInviteToFriends(localUserNum int, name string, friends []onlinesvc.ProductUserID) error {
	playerID, ok := m.identity.PlayerID(localUserNum)
	if !ok {
		return merr.WrapErrPlayerNotLoggedIn(localUserNum)
	}
	if len(friends) == 0 {
		return merr.WrapErrParameterMissing("friend list")
	}

	m.lock()
	sess, ok := m.registry.Get(name)
	if !ok {
		m.unlock()
		return merr.WrapErrSessionNotFound(name)
	}
	if !sess.Settings.AllowInvites {
		m.unlock()
		return merr.WrapErrParameterInvalidMsg("invites are not allowed for session %s", name)
	}
	snap := sess.Snapshot()
	m.unlock()

	be := m.backendFor(snap.Settings)
	m.submit(func(ctx context.Context) error {
		return be.SendInvite(ctx, snap, playerID, friends)
	}, func(err error) {
		m.observeOp("send_invite", err)
		if err != nil {
			m.logger.Warn("send invite failed", log.FieldSession(name), zap.Error(err))
		}
	})
	return nil
}

// StartMatchmaking 未实现：该能力不属于当前编排层。
func (m *Manager) StartMatchmaking() error {
	return merr.WrapErrUnsupported("start matchmaking")
}

// CancelMatchmaking 未实现：该能力不属于当前编排层。
func (m *Manager) CancelMatchmaking() error {
	return merr.WrapErrUnsupported("cancel matchmaking")
}

// GetNamedSession 返回指定名字的会话。
// 返回的对象归管理器所有，调用方只应读取。
func (m *Manager) GetNamedSession(name string) (*session.Session, bool) {
	m.lock()
	defer m.unlock()
	return m.registry.Get(name)
}

// GetSessionState 返回指定会话的状态；不存在时返回 StateNoSession。
func (m *Manager) GetSessionState(name string) session.State {
	m.lock()
	defer m.unlock()
	sess, ok := m.registry.Get(name)
	if !ok {
		return session.StateNoSession
	}
	return sess.State
}

// GetSessionSettings 返回指定会话设置的副本。
func (m *Manager) GetSessionSettings(name string) (session.Settings, bool) {
	m.lock()
	defer m.unlock()
	sess, ok := m.registry.Get(name)
	if !ok {
		return session.Settings{}, false
	}
	return sess.Settings.Clone(), true
}

// NumSessions 返回本地会话数量。
func (m *Manager) NumSessions() int {
	m.lock()
	defer m.unlock()
	return m.registry.Count()
}

// HasPresenceSession 返回是否存在 presence 会话。
func (m *Manager) HasPresenceSession() bool {
	m.lock()
	defer m.unlock()
	return m.hasPresenceLocked()
}

// IsPlayerInSession 返回指定玩家是否已注册到指定会话。
func (m *Manager) IsPlayerInSession(name string, player onlinesvc.ProductUserID) bool {
	m.lock()
	defer m.unlock()
	sess, ok := m.registry.Get(name)
	if !ok {
		return false
	}
	return sess.IsPlayerRegistered(player)
}

// GetResolvedConnectString 返回会话的连接地址。
// 会话不存在或地址尚未可用时返回 false。
func (m *Manager) GetResolvedConnectString(name string) (string, bool) {
	m.lock()
	defer m.unlock()
	sess, ok := m.registry.Get(name)
	if !ok || sess.HostAddress == "" {
		return "", false
	}
	return sess.HostAddress, true
}

// DumpSessionState 把所有本地会话的状态写入日志，用于诊断。
func (m *Manager) DumpSessionState() {
	m.lock()
	defer m.unlock()
	m.registry.Range(func(sess *session.Session) bool {
		m.logger.Info("session state",
			log.FieldSession(sess.Name),
			zap.String("state", sess.State.String()),
			zap.String("remoteID", sess.RemoteID()),
			zap.Bool("isHost", sess.IsHost),
			zap.String("owner", string(sess.OwnerID)),
			zap.Int("registered", sess.NumRegisteredPlayers()),
			zap.Int("openPublic", sess.NumOpenPublicConnections),
			zap.Int("openPrivate", sess.NumOpenPrivateConnections))
		return true
	})
}
