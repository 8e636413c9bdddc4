package coplay

import (
	"sync"

	"github.com/lk2023060901/coplay-garden-go/internal/backend"
	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
	"github.com/lk2023060901/coplay-garden-go/internal/session"
)

// JoinResult 为加入会话的结果分类。
type JoinResult int32

const (
	// JoinSuccess 表示加入成功。
	JoinSuccess JoinResult = iota
	// JoinSessionFull 表示目标已满。
	JoinSessionFull
	// JoinSessionDoesNotExist 表示目标不存在。
	JoinSessionDoesNotExist
	// JoinCouldNotRetrieveAddress 表示无法解析连接地址。
	JoinCouldNotRetrieveAddress
	// JoinAlreadyInSession 表示本地已存在同名会话。
	JoinAlreadyInSession
	// JoinUnknownError 表示其他错误。
	JoinUnknownError
)

func (r JoinResult) String() string {
	switch r {
	case JoinSuccess:
		return "Success"
	case JoinSessionFull:
		return "SessionIsFull"
	case JoinSessionDoesNotExist:
		return "SessionDoesNotExist"
	case JoinCouldNotRetrieveAddress:
		return "CouldNotRetrieveAddress"
	case JoinAlreadyInSession:
		return "AlreadyInSession"
	default:
		return "UnknownError"
	}
}

// ParticipantChange 为成员变动的类别。
type ParticipantChange int32

const (
	// ParticipantJoined 表示成员加入。
	ParticipantJoined ParticipantChange = iota
	// ParticipantLeft 表示成员主动离开或断线。
	ParticipantLeft
	// ParticipantRemoved 表示成员被移除（踢出）。
	ParticipantRemoved
)

func (c ParticipantChange) String() string {
	switch c {
	case ParticipantJoined:
		return "Joined"
	case ParticipantLeft:
		return "Left"
	case ParticipantRemoved:
		return "Removed"
	default:
		return "Unknown"
	}
}

// FailureReason 为会话被动终止的原因。
type FailureReason int32

const (
	// FailureKicked 表示本地玩家被踢出。
	FailureKicked FailureReason = iota
	// FailureClosed 表示会话被远端关闭。
	FailureClosed
	// FailureDisconnected 表示与服务端的会话联系中断。
	FailureDisconnected
)

func (r FailureReason) String() string {
	switch r {
	case FailureKicked:
		return "Kicked"
	case FailureClosed:
		return "Closed"
	case FailureDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// InviteAccepted 为一次已接受邀请的上下文。
type InviteAccepted struct {
	LocalUserNum int
	PlayerID     onlinesvc.ProductUserID
	InviteID     onlinesvc.InviteID
	Result       *backend.Result
}

// Events 维护各类生命周期事件的多播监听器。
//
// 约定：
//   - Add* 可从任意协程调用；
//   - 所有监听器只会在 Tick 线程上被触发，实现内不需要再加锁。
type Events struct {
	mu sync.RWMutex

	onCreateComplete   []func(sessionName string, err error)
	onStartComplete    []func(sessionName string, err error)
	onEndComplete      []func(sessionName string, err error)
	onUpdateComplete   []func(sessionName string, err error)
	onDestroyComplete  []func(sessionName string, err error)
	onJoinComplete     []func(sessionName string, result JoinResult)
	onFindComplete     []func(searchID uint64, results []*backend.Result, err error)
	onRegisterPlayers  []func(sessionName string, players []onlinesvc.ProductUserID, err error)
	onUnregisterPlayer []func(sessionName string, players []onlinesvc.ProductUserID, err error)
	onParticipants     []func(sessionName string, player onlinesvc.ProductUserID, change ParticipantChange)
	onOwnerChanged     []func(sessionName string, newOwner onlinesvc.ProductUserID)
	onSettingsUpdated  []func(sessionName string, settings session.Settings)
	onSessionFailure   []func(sessionName string, reason FailureReason)
	onInviteReceived   []func(localUserNum int, from onlinesvc.ProductUserID, inviteID onlinesvc.InviteID)
	onInviteAccepted   []func(accepted *InviteAccepted, err error)
}

// NewEvents 创建一个空的监听器集合。
func NewEvents() *Events {
	return &Events{}
}

// AddOnCreateComplete 注册创建完成监听器。
func (e *Events) AddOnCreateComplete(fn func(sessionName string, err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onCreateComplete = append(e.onCreateComplete, fn)
}

// AddOnStartComplete 注册开始完成监听器。
func (e *Events) AddOnStartComplete(fn func(sessionName string, err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStartComplete = append(e.onStartComplete, fn)
}

// AddOnEndComplete 注册结束完成监听器。
func (e *Events) AddOnEndComplete(fn func(sessionName string, err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onEndComplete = append(e.onEndComplete, fn)
}

// AddOnUpdateComplete 注册设置更新完成监听器。
func (e *Events) AddOnUpdateComplete(fn func(sessionName string, err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onUpdateComplete = append(e.onUpdateComplete, fn)
}

// AddOnDestroyComplete 注册销毁完成监听器。
func (e *Events) AddOnDestroyComplete(fn func(sessionName string, err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onDestroyComplete = append(e.onDestroyComplete, fn)
}

// AddOnJoinComplete 注册加入完成监听器。
func (e *Events) AddOnJoinComplete(fn func(sessionName string, result JoinResult)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onJoinComplete = append(e.onJoinComplete, fn)
}

// AddOnFindComplete 注册搜索完成监听器。
func (e *Events) AddOnFindComplete(fn func(searchID uint64, results []*backend.Result, err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFindComplete = append(e.onFindComplete, fn)
}

// AddOnRegisterPlayersComplete 注册玩家登记完成监听器。
func (e *Events) AddOnRegisterPlayersComplete(fn func(sessionName string, players []onlinesvc.ProductUserID, err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onRegisterPlayers = append(e.onRegisterPlayers, fn)
}

// AddOnUnregisterPlayersComplete 注册玩家注销完成监听器。
func (e *Events) AddOnUnregisterPlayersComplete(fn func(sessionName string, players []onlinesvc.ProductUserID, err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onUnregisterPlayer = append(e.onUnregisterPlayer, fn)
}

// AddOnParticipantChanged 注册成员变动监听器。
func (e *Events) AddOnParticipantChanged(fn func(sessionName string, player onlinesvc.ProductUserID, change ParticipantChange)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onParticipants = append(e.onParticipants, fn)
}

// AddOnOwnerChanged 注册所有权变更监听器。
func (e *Events) AddOnOwnerChanged(fn func(sessionName string, newOwner onlinesvc.ProductUserID)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onOwnerChanged = append(e.onOwnerChanged, fn)
}

// AddOnSessionSettingsUpdated 注册会话设置变更监听器。
// 设置更新成功或非宿主从服务端对账到新设置时触发。
func (e *Events) AddOnSessionSettingsUpdated(fn func(sessionName string, settings session.Settings)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSettingsUpdated = append(e.onSettingsUpdated, fn)
}

// AddOnSessionFailure 注册会话被动终止监听器。
func (e *Events) AddOnSessionFailure(fn func(sessionName string, reason FailureReason)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSessionFailure = append(e.onSessionFailure, fn)
}

// AddOnInviteReceived 注册邀请到达监听器。
func (e *Events) AddOnInviteReceived(fn func(localUserNum int, from onlinesvc.ProductUserID, inviteID onlinesvc.InviteID)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onInviteReceived = append(e.onInviteReceived, fn)
}

// AddOnInviteAccepted 注册邀请接受监听器。
func (e *Events) AddOnInviteAccepted(fn func(accepted *InviteAccepted, err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onInviteAccepted = append(e.onInviteAccepted, fn)
}

func (e *Events) fireCreateComplete(name string, err error) {
	e.mu.RLock()
	fns := e.onCreateComplete
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(name, err)
	}
}

func (e *Events) fireStartComplete(name string, err error) {
	e.mu.RLock()
	fns := e.onStartComplete
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(name, err)
	}
}

func (e *Events) fireEndComplete(name string, err error) {
	e.mu.RLock()
	fns := e.onEndComplete
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(name, err)
	}
}

func (e *Events) fireUpdateComplete(name string, err error) {
	e.mu.RLock()
	fns := e.onUpdateComplete
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(name, err)
	}
}

func (e *Events) fireDestroyComplete(name string, err error) {
	e.mu.RLock()
	fns := e.onDestroyComplete
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(name, err)
	}
}

func (e *Events) fireJoinComplete(name string, result JoinResult) {
	e.mu.RLock()
	fns := e.onJoinComplete
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(name, result)
	}
}

func (e *Events) fireFindComplete(searchID uint64, results []*backend.Result, err error) {
	e.mu.RLock()
	fns := e.onFindComplete
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(searchID, results, err)
	}
}

func (e *Events) fireRegisterPlayersComplete(name string, players []onlinesvc.ProductUserID, err error) {
	e.mu.RLock()
	fns := e.onRegisterPlayers
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(name, players, err)
	}
}

func (e *Events) fireUnregisterPlayersComplete(name string, players []onlinesvc.ProductUserID, err error) {
	e.mu.RLock()
	fns := e.onUnregisterPlayer
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(name, players, err)
	}
}

func (e *Events) fireParticipantChanged(name string, player onlinesvc.ProductUserID, change ParticipantChange) {
	e.mu.RLock()
	fns := e.onParticipants
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(name, player, change)
	}
}

func (e *Events) fireOwnerChanged(name string, newOwner onlinesvc.ProductUserID) {
	e.mu.RLock()
	fns := e.onOwnerChanged
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(name, newOwner)
	}
}

func (e *Events) fireSessionSettingsUpdated(name string, settings session.Settings) {
	e.mu.RLock()
	fns := e.onSettingsUpdated
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(name, settings)
	}
}

func (e *Events) fireSessionFailure(name string, reason FailureReason) {
	e.mu.RLock()
	fns := e.onSessionFailure
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(name, reason)
	}
}

func (e *Events) fireInviteReceived(localUserNum int, from onlinesvc.ProductUserID, inviteID onlinesvc.InviteID) {
	e.mu.RLock()
	fns := e.onInviteReceived
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(localUserNum, from, inviteID)
	}
}

func (e *Events) fireInviteAccepted(accepted *InviteAccepted, err error) {
	e.mu.RLock()
	fns := e.onInviteAccepted
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(accepted, err)
	}
}
