package backend

import (
	"context"

	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
	"github.com/lk2023060901/coplay-garden-go/internal/session"
)

// 隐式搜索条件使用的保留属性键。
const (
	// AttrKeyBucket 为部署约定的分桶标识。
	AttrKeyBucket = "bucket"
	// AttrKeyMinSlots 为最小可用空位数。
	AttrKeyMinSlots = "minslotsavailable"
)

// Result 为一次远端操作或搜索返回的规格化会话快照。
//
// 两种底层实现（直连会话与大厅）都被归一到该结构，
// 上层据此更新本地会话或构造搜索结果。
type Result struct {
	SessionID onlinesvc.SessionID
	LobbyID   onlinesvc.LobbyID

	OwnerID     onlinesvc.ProductUserID
	HostAddress string

	Settings  session.Settings
	OpenSlots int
	Players   []onlinesvc.ProductUserID
}

// RemoteID 返回快照的远端标识字符串，用于日志。
func (r *Result) RemoteID() string {
	if r.LobbyID != "" {
		return string(r.LobbyID)
	}
	return string(r.SessionID)
}

// Filter 为一条用户指定的搜索条件。
type Filter struct {
	Key   string
	Value session.Value
	Op    onlinesvc.ComparisonOp
}

// Query 描述一次会话搜索。
//
// BucketID 与"至少一个空位"会由各实现作为隐式条件追加，
// 调用方无需（也不应）在 Filters 中重复给出。
type Query struct {
	BucketID   string
	MaxResults int
	Filters    []Filter

	// UseLobby 为 true 时在大厅上执行搜索，否则搜索直连会话。
	UseLobby bool
}

// Backend 抽象一种底层会话实现。
//
// 约定：
//   - 所有方法都是同步阻塞的，异步化由上层通过协程池完成；
//   - 方法只和远端交互并返回规格化快照，不修改传入的 *session.Session；
//   - 实现不支持的操作返回 merr.ErrUnsupported。
type Backend interface {
	// Name 返回实现名，用于日志与指标标签。
	Name() string

	// Create 在远端创建会话并返回快照。
	Create(ctx context.Context, sess *session.Session) (*Result, error)

	// Update 以 updated 为准全量覆盖远端会话设置。
	Update(ctx context.Context, sess *session.Session, updated session.Settings) (*Result, error)

	// Start 将远端会话标记为对局进行中。
	Start(ctx context.Context, sess *session.Session) error

	// End 将远端会话标记为对局已结束。
	End(ctx context.Context, sess *session.Session) error

	// Destroy 销毁或退出远端会话。
	//
	// 大厅实现根据宿主身份与 HostMigration 设置决定是销毁还是退出。
	Destroy(ctx context.Context, sess *session.Session) error

	// Join 以本地玩家身份加入 target 指向的远端会话。
	Join(ctx context.Context, sess *session.Session, target *Result) (*Result, error)

	// RegisterPlayers 向远端登记一批玩家。
	RegisterPlayers(ctx context.Context, sess *session.Session, players []onlinesvc.ProductUserID) error

	// UnregisterPlayers 从远端注销一批玩家。
	UnregisterPlayers(ctx context.Context, sess *session.Session, players []onlinesvc.ProductUserID) error

	// Find 按条件搜索远端会话。
	Find(ctx context.Context, query *Query) ([]*Result, error)

	// Fetch 重新拉取远端会话的最新快照。
	Fetch(ctx context.Context, sess *session.Session) (*Result, error)

	// FetchByID 按远端标识拉取会话快照。
	FetchByID(ctx context.Context, id string) (*Result, error)

	// FetchByInviteID 按邀请 ID 拉取目标会话快照。
	FetchByInviteID(ctx context.Context, inviteID onlinesvc.InviteID) (*Result, error)

	// SendInvite 以 from 的名义向一批玩家发送邀请。
	SendInvite(ctx context.Context, sess *session.Session, from onlinesvc.ProductUserID, to []onlinesvc.ProductUserID) error

	// KickMember 将目标成员踢出会话。仅大厅实现支持。
	KickMember(ctx context.Context, sess *session.Session, target onlinesvc.ProductUserID) error

	// PromoteMember 将会话所有权转移给目标成员。仅大厅实现支持。
	PromoteMember(ctx context.Context, sess *session.Session, target onlinesvc.ProductUserID) error
}

// PermissionLevelOf 按会话设置推导远端权限级别。
//
// 优先级：有公开空位 > 好友 presence 可加入 > 仅邀请。
func PermissionLevelOf(settings session.Settings) onlinesvc.PermissionLevel {
	switch {
	case settings.NumPublicConnections > 0:
		return onlinesvc.PermissionPublicAdvertised
	case settings.AllowJoinViaPresence:
		return onlinesvc.PermissionJoinViaPresence
	default:
		return onlinesvc.PermissionInviteOnly
	}
}

// EncodeQueryFilters 将查询条件编码为线上传输形式并追加隐式条件。
func EncodeQueryFilters(query *Query) []onlinesvc.SearchFilter {
	filters := make([]onlinesvc.SearchFilter, 0, len(query.Filters)+2)
	for _, f := range query.Filters {
		filters = append(filters, session.EncodeFilter(f.Key, f.Value, f.Op))
	}

	// 隐式条件：分桶一致且至少有一个空位。
	if query.BucketID != "" {
		filters = append(filters, session.EncodeFilter(
			AttrKeyBucket, session.StringValue(query.BucketID), onlinesvc.OpEqual))
	}
	filters = append(filters, session.EncodeFilter(
		AttrKeyMinSlots, session.IntValue(1), onlinesvc.OpGreaterOrEqual))

	return filters
}
