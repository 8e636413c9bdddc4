package onlinesvc

import "context"

// SessionsAPI 为直连会话（direct session）相关接口的抽象。
//
// 抽象为接口主要是为了便于上层在测试中注入假实现。
type SessionsAPI interface {
	CreateSession(ctx context.Context, req *CreateSessionRequest) (*SessionInfo, error)
	UpdateSession(ctx context.Context, req *UpdateSessionRequest) (*SessionInfo, error)
	StartSession(ctx context.Context, id SessionID) error
	EndSession(ctx context.Context, id SessionID) error
	DestroySession(ctx context.Context, id SessionID) error
	JoinSession(ctx context.Context, req *JoinSessionRequest) (*SessionInfo, error)
	RegisterPlayers(ctx context.Context, id SessionID, players []ProductUserID) error
	UnregisterPlayers(ctx context.Context, id SessionID, players []ProductUserID) error
	SearchSessions(ctx context.Context, req *SearchSessionsRequest) ([]*SessionInfo, error)
	GetSessionByID(ctx context.Context, id SessionID) (*SessionInfo, error)
	GetSessionByInviteID(ctx context.Context, inviteID InviteID) (*SessionInfo, error)
	SendSessionInvite(ctx context.Context, id SessionID, from ProductUserID, to []ProductUserID) error
}

// CreateSessionRequest 描述创建会话的全部参数。
type CreateSessionRequest struct {
	BucketID        string          `json:"bucket_id"`
	HostPlayerID    ProductUserID   `json:"host_player_id"`
	HostAddress     string          `json:"host_address,omitempty"`
	MaxPlayers      int             `json:"max_players"`
	PermissionLevel PermissionLevel `json:"permission_level"`
	JoinInProgress  bool            `json:"join_in_progress_allowed"`
	InvitesAllowed  bool            `json:"invites_allowed"`
	PresenceEnabled bool            `json:"presence_enabled"`
	Attributes      []Attribute     `json:"attributes,omitempty"`
}

// UpdateSessionRequest 描述对已有会话的全量修改。
//
// 服务端以请求内容整体覆盖原有设置，未出现的属性视为删除。
type UpdateSessionRequest struct {
	SessionID       SessionID       `json:"session_id"`
	HostAddress     string          `json:"host_address,omitempty"`
	MaxPlayers      int             `json:"max_players"`
	PermissionLevel PermissionLevel `json:"permission_level"`
	JoinInProgress  bool            `json:"join_in_progress_allowed"`
	InvitesAllowed  bool            `json:"invites_allowed"`
	Attributes      []Attribute     `json:"attributes,omitempty"`
}

// JoinSessionRequest 描述加入会话的参数。
type JoinSessionRequest struct {
	SessionID SessionID     `json:"session_id"`
	PlayerID  ProductUserID `json:"player_id"`
	Presence  bool          `json:"presence"`
}

// SearchSessionsRequest 描述一次会话搜索。
type SearchSessionsRequest struct {
	MaxResults int            `json:"max_results"`
	Filters    []SearchFilter `json:"filters,omitempty"`
}

// CreateSession 在服务端创建新会话并返回其快照。
//
// 对应接口：
//
//	POST /v1/sessions/create
func (c *Client) CreateSession(ctx context.Context, req *CreateSessionRequest) (*SessionInfo, error) {
	var resp SessionInfo
	if err := c.postJSON(ctx, "/v1/sessions/create", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateSession 全量覆盖会话设置并返回更新后的快照。
//
// 对应接口：
//
//	POST /v1/sessions/update
//
// 当请求携带的版本与服务端不一致时返回 CodeOutOfSync，
// 调用方应重新拉取会话详情后重试。
func (c *Client) UpdateSession(ctx context.Context, req *UpdateSessionRequest) (*SessionInfo, error) {
	var resp SessionInfo
	if err := c.postJSON(ctx, "/v1/sessions/update", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartSession 将会话标记为对局进行中。
func (c *Client) StartSession(ctx context.Context, id SessionID) error {
	return c.postJSON(ctx, "/v1/sessions/start", sessionIDRequest{SessionID: id}, nil)
}

// EndSession 将会话标记为对局已结束。
func (c *Client) EndSession(ctx context.Context, id SessionID) error {
	return c.postJSON(ctx, "/v1/sessions/end", sessionIDRequest{SessionID: id}, nil)
}

// DestroySession 销毁会话。目标不存在时返回 CodeNotFound。
func (c *Client) DestroySession(ctx context.Context, id SessionID) error {
	return c.postJSON(ctx, "/v1/sessions/destroy", sessionIDRequest{SessionID: id}, nil)
}

// JoinSession 以指定玩家身份加入会话并返回会话快照。
func (c *Client) JoinSession(ctx context.Context, req *JoinSessionRequest) (*SessionInfo, error) {
	var resp SessionInfo
	if err := c.postJSON(ctx, "/v1/sessions/join", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegisterPlayers 向会话注册一批玩家，占用对应的空位。
func (c *Client) RegisterPlayers(ctx context.Context, id SessionID, players []ProductUserID) error {
	return c.postJSON(ctx, "/v1/sessions/register_players", sessionPlayersRequest{
		SessionID: id,
		PlayerIDs: players,
	}, nil)
}

// UnregisterPlayers 从会话注销一批玩家，释放对应的空位。
func (c *Client) UnregisterPlayers(ctx context.Context, id SessionID, players []ProductUserID) error {
	return c.postJSON(ctx, "/v1/sessions/unregister_players", sessionPlayersRequest{
		SessionID: id,
		PlayerIDs: players,
	}, nil)
}

// SearchSessions 按过滤条件搜索会话。
//
// 对应接口：
//
//	POST /v1/sessions/search
func (c *Client) SearchSessions(ctx context.Context, req *SearchSessionsRequest) ([]*SessionInfo, error) {
	var resp struct {
		Sessions []*SessionInfo `json:"sessions"`
	}
	if err := c.postJSON(ctx, "/v1/sessions/search", req, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// GetSessionByID 按会话 ID 拉取会话快照。
func (c *Client) GetSessionByID(ctx context.Context, id SessionID) (*SessionInfo, error) {
	var resp SessionInfo
	if err := c.postJSON(ctx, "/v1/sessions/get", sessionIDRequest{SessionID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSessionByInviteID 按邀请 ID 拉取对应的会话快照。
func (c *Client) GetSessionByInviteID(ctx context.Context, inviteID InviteID) (*SessionInfo, error) {
	var resp SessionInfo
	req := struct {
		InviteID InviteID `json:"invite_id"`
	}{InviteID: inviteID}
	if err := c.postJSON(ctx, "/v1/sessions/get_by_invite", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendSessionInvite 以 from 的名义向一批玩家发送会话邀请。
func (c *Client) SendSessionInvite(ctx context.Context, id SessionID, from ProductUserID, to []ProductUserID) error {
	req := struct {
		SessionID SessionID       `json:"session_id"`
		FromID    ProductUserID   `json:"from_id"`
		ToIDs     []ProductUserID `json:"to_ids"`
	}{SessionID: id, FromID: from, ToIDs: to}
	return c.postJSON(ctx, "/v1/sessions/send_invite", req, nil)
}

type sessionIDRequest struct {
	SessionID SessionID `json:"session_id"`
}

type sessionPlayersRequest struct {
	SessionID SessionID       `json:"session_id"`
	PlayerIDs []ProductUserID `json:"player_ids"`
}
