package session

import (
	"fmt"

	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
	"github.com/lk2023060901/coplay-garden-go/pkg/util/merr"
	"github.com/lk2023060901/coplay-garden-go/pkg/util/typeutil"
)

// State 表示本地命名会话的生命周期状态。
type State int32

const (
	// StateNoSession 表示尚未创建会话。
	StateNoSession State = iota
	// StateCreating 表示创建请求已发出，等待服务端确认。
	StateCreating
	// StatePending 表示会话已创建，对局尚未开始。
	StatePending
	// StateStarting 表示开始请求已发出，等待服务端确认。
	StateStarting
	// StateInProgress 表示对局进行中。
	StateInProgress
	// StateEnding 表示结束请求已发出，等待服务端确认。
	StateEnding
	// StateEnded 表示对局已结束，会话仍然存在，可再次开始。
	StateEnded
	// StateDestroying 表示销毁请求已发出，等待服务端确认。
	StateDestroying
)

func (s State) String() string {
	switch s {
	case StateNoSession:
		return "NoSession"
	case StateCreating:
		return "Creating"
	case StatePending:
		return "Pending"
	case StateStarting:
		return "Starting"
	case StateInProgress:
		return "InProgress"
	case StateEnding:
		return "Ending"
	case StateEnded:
		return "Ended"
	case StateDestroying:
		return "Destroying"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ValueType 为属性值的类型。
type ValueType int32

const (
	TypeBool ValueType = iota
	TypeInt64
	TypeDouble
	TypeString
)

func (t ValueType) String() string {
	switch t {
	case TypeBool:
		return "Bool"
	case TypeInt64:
		return "Int64"
	case TypeDouble:
		return "Double"
	case TypeString:
		return "String"
	default:
		return fmt.Sprintf("ValueType(%d)", int32(t))
	}
}

// Value 为一个带类型标签的属性值。
//
// 整型统一按 int64 存储；更窄的整型在写入时放宽到 int64。
type Value struct {
	typ     ValueType
	boolVal bool
	intVal  int64
	dblVal  float64
	strVal  string
}

// BoolValue 构造布尔属性值。
func BoolValue(v bool) Value { return Value{typ: TypeBool, boolVal: v} }

// IntValue 构造整型属性值。
func IntValue(v int64) Value { return Value{typ: TypeInt64, intVal: v} }

// DoubleValue 构造浮点属性值。
func DoubleValue(v float64) Value { return Value{typ: TypeDouble, dblVal: v} }

// StringValue 构造字符串属性值。
func StringValue(v string) Value { return Value{typ: TypeString, strVal: v} }

// Type 返回值的类型标签。
func (v Value) Type() ValueType { return v.typ }

// Bool 返回布尔值；若类型不符，第二个返回值为 false。
func (v Value) Bool() (bool, bool) { return v.boolVal, v.typ == TypeBool }

// Int64 返回整型值；若类型不符，第二个返回值为 false。
func (v Value) Int64() (int64, bool) { return v.intVal, v.typ == TypeInt64 }

// Double 返回浮点值；若类型不符，第二个返回值为 false。
func (v Value) Double() (float64, bool) { return v.dblVal, v.typ == TypeDouble }

// String 返回字符串值；若类型不符，第二个返回值为 false。
func (v Value) String() (string, bool) { return v.strVal, v.typ == TypeString }

// Equal 比较两个属性值是否类型与内容都相同。
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case TypeBool:
		return v.boolVal == other.boolVal
	case TypeInt64:
		return v.intVal == other.intVal
	case TypeDouble:
		return v.dblVal == other.dblVal
	case TypeString:
		return v.strVal == other.strVal
	default:
		return false
	}
}

// Attr 为一条会话属性：值加上对外可见性。
type Attr struct {
	Value Value
	// Advertise 为 true 时，该属性对搜索与非成员可见。
	Advertise bool
}

// Settings 为创建会话时由宿主声明的会话设置。
//
// 创建之后的修改以 Settings 整体为单位提交（先改本地，再同步服务端）。
type Settings struct {
	// BucketID 为部署约定的分桶标识，会作为隐式搜索条件下发。
	BucketID string

	NumPublicConnections  int
	NumPrivateConnections int

	// ShouldAdvertise 为 true 时会话可被公开搜索到。
	ShouldAdvertise bool
	// AllowJoinInProgress 为 true 时允许在对局进行中加入。
	AllowJoinInProgress bool
	// AllowInvites 为 true 时允许成员发送邀请。
	AllowInvites bool
	// UsesPresence 为 true 时该会话绑定本地玩家的 presence，
	// 同一时刻至多允许一个 presence 会话。
	UsesPresence bool
	// AllowJoinViaPresence 为 true 时允许通过好友 presence 加入。
	AllowJoinViaPresence bool
	// AllowJoinViaPresenceFriendsOnly 限制仅好友可通过 presence 加入。
	AllowJoinViaPresenceFriendsOnly bool
	// IsDedicated 标记专用服务器会话。
	IsDedicated bool
	// UseLobby 为 true 时采用大厅作为底层实现，否则使用直连会话。
	UseLobby bool

	// HostMigration 为 true 时宿主离开后会话继续存在（仅大厅实现支持）。
	HostMigration bool

	// Attributes 为自定义会话属性。
	Attributes map[string]Attr
}

// Clone 返回设置的深拷贝。
func (s Settings) Clone() Settings {
	out := s
	if s.Attributes != nil {
		out.Attributes = make(map[string]Attr, len(s.Attributes))
		for k, v := range s.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}

// MaxPlayers 返回该设置允许的总人数。
func (s Settings) MaxPlayers() int {
	return s.NumPublicConnections + s.NumPrivateConnections
}

// Session 为一个本地命名会话。
//
// 约定：
//   - Name 在本地唯一，是所有操作的主键；
//   - 远端标识按底层实现二选一：SessionID（直连会话）或 LobbyID（大厅）；
//   - Generation 在每次销毁 / 重建时递增，异步完成回调凭它判定自己是否已过期；
//   - 并发访问由 Registry 与上层管理器的锁保护，Session 自身不带锁。
type Session struct {
	Name  string
	State State

	// Generation 为回调守护代号。
	Generation uint64

	// IsHost 表示本地玩家是否为该会话的宿主 / 所有者。
	IsHost bool
	// OwnerID 为当前宿主的账号标识。
	OwnerID onlinesvc.ProductUserID
	// LocalPlayerID 为发起创建 / 加入的本地玩家。
	LocalPlayerID onlinesvc.ProductUserID

	SessionID onlinesvc.SessionID
	LobbyID   onlinesvc.LobbyID

	HostAddress string

	Settings Settings

	// 注册玩家与空位计数。
	registered         typeutil.Set[onlinesvc.ProductUserID]
	privateSlotHolders typeutil.Set[onlinesvc.ProductUserID]

	NumOpenPublicConnections  int
	NumOpenPrivateConnections int
}

// NewSession 创建一个处于 Creating 状态的本地会话。
func NewSession(name string, localPlayer onlinesvc.ProductUserID, settings Settings) *Session {
	return &Session{
		Name:                      name,
		State:                     StateCreating,
		LocalPlayerID:             localPlayer,
		Settings:                  settings.Clone(),
		registered:                typeutil.NewSet[onlinesvc.ProductUserID](),
		privateSlotHolders:        typeutil.NewSet[onlinesvc.ProductUserID](),
		NumOpenPublicConnections:  settings.NumPublicConnections,
		NumOpenPrivateConnections: settings.NumPrivateConnections,
	}
}

// Snapshot 返回会话的深拷贝，供后台远端调用读取。
//
// 原件只能在管理器锁内访问；副本与原件不共享可变状态，
// 协程池内读取不需要持锁。
func (s *Session) Snapshot() *Session {
	return &Session{
		Name:                      s.Name,
		State:                     s.State,
		Generation:                s.Generation,
		IsHost:                    s.IsHost,
		OwnerID:                   s.OwnerID,
		LocalPlayerID:             s.LocalPlayerID,
		SessionID:                 s.SessionID,
		LobbyID:                   s.LobbyID,
		HostAddress:               s.HostAddress,
		Settings:                  s.Settings.Clone(),
		registered:                typeutil.NewSet(s.registered.Collect()...),
		privateSlotHolders:        typeutil.NewSet(s.privateSlotHolders.Collect()...),
		NumOpenPublicConnections:  s.NumOpenPublicConnections,
		NumOpenPrivateConnections: s.NumOpenPrivateConnections,
	}
}

// HasRemoteID 返回会话是否已经获得远端标识。
func (s *Session) HasRemoteID() bool {
	return s.SessionID != "" || s.LobbyID != ""
}

// IsPlayerRegistered 返回指定玩家是否已注册到该会话。
func (s *Session) IsPlayerRegistered(player onlinesvc.ProductUserID) bool {
	return s.registered.Contain(player)
}

// RegisteredPlayers 返回当前已注册玩家（顺序不保证）。
func (s *Session) RegisteredPlayers() []onlinesvc.ProductUserID {
	return s.registered.Collect()
}

// NumRegisteredPlayers 返回已注册玩家数量。
func (s *Session) NumRegisteredPlayers() int {
	return s.registered.Len()
}

// RegisterPlayer 将玩家注册到会话并占用一个空位。
//
// wasInvited 为 true 时优先占用私有空位。
// 返回值表示本次调用是否发生了实际变更；玩家已注册时返回 false 且不报错。
// 没有可用空位时返回 ErrSessionFull。
func (s *Session) RegisterPlayer(player onlinesvc.ProductUserID, wasInvited bool) (bool, error) {
	if s.registered.Contain(player) {
		return false, nil
	}

	switch {
	case wasInvited && s.NumOpenPrivateConnections > 0:
		s.NumOpenPrivateConnections--
		s.privateSlotHolders.Insert(player)
	case s.NumOpenPublicConnections > 0:
		s.NumOpenPublicConnections--
	case s.NumOpenPrivateConnections > 0:
		s.NumOpenPrivateConnections--
		s.privateSlotHolders.Insert(player)
	default:
		return false, merr.WrapErrSessionFull(s.Name)
	}

	s.registered.Insert(player)
	return true, nil
}

// UnregisterPlayer 将玩家从会话注销并归还其占用的空位。
//
// 返回值表示本次调用是否发生了实际变更；玩家未注册时返回 false 且不报错。
func (s *Session) UnregisterPlayer(player onlinesvc.ProductUserID) bool {
	if !s.registered.Contain(player) {
		return false
	}
	s.registered.Remove(player)

	if s.privateSlotHolders.Contain(player) {
		s.privateSlotHolders.Remove(player)
		if s.NumOpenPrivateConnections < s.Settings.NumPrivateConnections {
			s.NumOpenPrivateConnections++
		}
	} else if s.NumOpenPublicConnections < s.Settings.NumPublicConnections {
		s.NumOpenPublicConnections++
	}
	return true
}

// SyncRegisteredPlayers 以服务端成员列表为准重建注册表与空位计数。
//
// 用于大厅通知对账：本地视图与服务端出现分歧时整体重建，
// 私有空位占用信息无法从服务端恢复，统一按公有空位计算。
func (s *Session) SyncRegisteredPlayers(players []onlinesvc.ProductUserID) {
	s.registered = typeutil.NewSet(players...)
	s.privateSlotHolders.Clear()

	open := s.Settings.MaxPlayers() - len(players)
	if open < 0 {
		open = 0
	}
	if open > s.Settings.NumPublicConnections {
		s.NumOpenPublicConnections = s.Settings.NumPublicConnections
		s.NumOpenPrivateConnections = open - s.Settings.NumPublicConnections
	} else {
		s.NumOpenPublicConnections = open
		s.NumOpenPrivateConnections = 0
	}
}

// RemoteID 返回会话的远端标识字符串，用于日志。
func (s *Session) RemoteID() string {
	if s.LobbyID != "" {
		return string(s.LobbyID)
	}
	return string(s.SessionID)
}
