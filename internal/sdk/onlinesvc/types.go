package onlinesvc

// ProductUserID 为在线服务分配的玩家账号标识。
type ProductUserID string

// SessionID 为服务端分配的会话标识。
type SessionID string

// LobbyID 为服务端分配的大厅标识。
type LobbyID string

// InviteID 为单次邀请的标识，凭它可以向服务端换取目标会话或大厅详情。
type InviteID string

// AttrType 为属性值的类型标签。
type AttrType string

const (
	AttrTypeBool   AttrType = "BOOLEAN"
	AttrTypeInt64  AttrType = "INT64"
	AttrTypeDouble AttrType = "DOUBLE"
	AttrTypeString AttrType = "STRING"
)

// Visibility 描述属性对外的可见性。
type Visibility string

const (
	// VisibilityPublic 表示属性对搜索和其他成员可见。
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate 表示属性仅对会话 / 大厅成员可见。
	VisibilityPrivate Visibility = "private"
)

// Attribute 为属性的线上传输形式。
//
// 四个取值字段中有且仅有与 Type 对应的一个非空。
type Attribute struct {
	Key        string     `json:"key"`
	Type       AttrType   `json:"type"`
	BoolValue  *bool      `json:"bool_value,omitempty"`
	Int64Value *int64     `json:"int64_value,omitempty"`
	DblValue   *float64   `json:"double_value,omitempty"`
	StrValue   *string    `json:"string_value,omitempty"`
	Visibility Visibility `json:"visibility,omitempty"`
}

// PermissionLevel 描述会话 / 大厅的加入权限。
type PermissionLevel string

const (
	// PermissionPublicAdvertised 表示公开并可被搜索到。
	PermissionPublicAdvertised PermissionLevel = "public_advertised"
	// PermissionJoinViaPresence 表示不可搜索，但可通过好友 presence 加入。
	PermissionJoinViaPresence PermissionLevel = "join_via_presence"
	// PermissionInviteOnly 表示仅可通过邀请加入。
	PermissionInviteOnly PermissionLevel = "invite_only"
)

// MemberStatus 描述大厅成员状态变更通知中的成员状态。
type MemberStatus string

const (
	MemberStatusJoined       MemberStatus = "joined"
	MemberStatusLeft         MemberStatus = "left"
	MemberStatusDisconnected MemberStatus = "disconnected"
	MemberStatusKicked       MemberStatus = "kicked"
	MemberStatusPromoted     MemberStatus = "promoted"
	MemberStatusClosed       MemberStatus = "closed"
)

// ComparisonOp 为搜索过滤条件的比较运算符。
type ComparisonOp string

const (
	OpEqual          ComparisonOp = "EQ"
	OpNotEqual       ComparisonOp = "NE"
	OpGreaterThan    ComparisonOp = "GT"
	OpGreaterOrEqual ComparisonOp = "GE"
	OpLessThan       ComparisonOp = "LT"
	OpLessOrEqual    ComparisonOp = "LE"
	OpAnyOf          ComparisonOp = "ANYOF"
)

// SearchFilter 为一条搜索过滤条件：对指定属性应用比较运算。
type SearchFilter struct {
	Attribute Attribute    `json:"attribute"`
	Op        ComparisonOp `json:"op"`
}

// SessionInfo 为服务端返回的会话快照。
type SessionInfo struct {
	SessionID       SessionID       `json:"session_id"`
	BucketID        string          `json:"bucket_id"`
	HostAddress     string          `json:"host_address"`
	OwnerID         ProductUserID   `json:"owner_id"`
	MaxPlayers      int             `json:"max_players"`
	PermissionLevel PermissionLevel `json:"permission_level"`
	JoinInProgress  bool            `json:"join_in_progress_allowed"`
	InvitesAllowed  bool            `json:"invites_allowed"`
	Attributes      []Attribute     `json:"attributes,omitempty"`
	Players         []ProductUserID `json:"players,omitempty"`
	OpenSlots       int             `json:"open_slots"`
	Started         bool            `json:"started"`
}

// LobbyMember 为大厅成员及其成员级属性。
type LobbyMember struct {
	PlayerID   ProductUserID `json:"player_id"`
	Attributes []Attribute   `json:"attributes,omitempty"`
}

// LobbyInfo 为服务端返回的大厅快照。
type LobbyInfo struct {
	LobbyID         LobbyID         `json:"lobby_id"`
	BucketID        string          `json:"bucket_id"`
	OwnerID         ProductUserID   `json:"owner_id"`
	MaxMembers      int             `json:"max_members"`
	PermissionLevel PermissionLevel `json:"permission_level"`
	InvitesAllowed  bool            `json:"invites_allowed"`
	PresenceEnabled bool            `json:"presence_enabled"`
	Attributes      []Attribute     `json:"attributes,omitempty"`
	Members         []LobbyMember   `json:"members,omitempty"`
	AvailableSlots  int             `json:"available_slots"`
}
