package onlinesvc

import "context"

// LobbiesAPI 为大厅（lobby）相关接口的抽象。
//
// 大厅与直连会话的区别在于：大厅具有服务端维护的成员列表、
// 所有者迁移与成员级属性，并通过推送通知下发变更。
type LobbiesAPI interface {
	CreateLobby(ctx context.Context, req *CreateLobbyRequest) (*LobbyInfo, error)
	UpdateLobby(ctx context.Context, req *UpdateLobbyRequest) (*LobbyInfo, error)
	JoinLobby(ctx context.Context, id LobbyID, player ProductUserID, presence bool) (*LobbyInfo, error)
	LeaveLobby(ctx context.Context, id LobbyID, player ProductUserID) error
	DestroyLobby(ctx context.Context, id LobbyID) error
	KickMember(ctx context.Context, id LobbyID, target ProductUserID) error
	PromoteMember(ctx context.Context, id LobbyID, target ProductUserID) error
	SetMemberAttributes(ctx context.Context, id LobbyID, player ProductUserID, attrs []Attribute) error
	SearchLobbies(ctx context.Context, req *SearchLobbiesRequest) ([]*LobbyInfo, error)
	GetLobbyByID(ctx context.Context, id LobbyID) (*LobbyInfo, error)
	GetLobbyByInviteID(ctx context.Context, inviteID InviteID) (*LobbyInfo, error)
	SendLobbyInvite(ctx context.Context, id LobbyID, from ProductUserID, to []ProductUserID) error
}

// CreateLobbyRequest 描述创建大厅的全部参数。
type CreateLobbyRequest struct {
	BucketID        string          `json:"bucket_id"`
	OwnerID         ProductUserID   `json:"owner_id"`
	MaxMembers      int             `json:"max_members"`
	PermissionLevel PermissionLevel `json:"permission_level"`
	InvitesAllowed  bool            `json:"invites_allowed"`
	PresenceEnabled bool            `json:"presence_enabled"`
	Attributes      []Attribute     `json:"attributes,omitempty"`
}

// UpdateLobbyRequest 描述对大厅设置与属性的全量修改。
//
// 仅大厅所有者可以调用；非所有者调用时服务端返回 CodeNoPermission。
type UpdateLobbyRequest struct {
	LobbyID         LobbyID         `json:"lobby_id"`
	MaxMembers      int             `json:"max_members"`
	PermissionLevel PermissionLevel `json:"permission_level"`
	InvitesAllowed  bool            `json:"invites_allowed"`
	Attributes      []Attribute     `json:"attributes,omitempty"`
}

// SearchLobbiesRequest 描述一次大厅搜索。
type SearchLobbiesRequest struct {
	MaxResults int            `json:"max_results"`
	Filters    []SearchFilter `json:"filters,omitempty"`
}

// CreateLobby 在服务端创建新大厅并返回其快照。
//
// 对应接口：
//
//	POST /v1/lobbies/create
func (c *Client) CreateLobby(ctx context.Context, req *CreateLobbyRequest) (*LobbyInfo, error) {
	var resp LobbyInfo
	if err := c.postJSON(ctx, "/v1/lobbies/create", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateLobby 全量覆盖大厅设置并返回更新后的快照。
func (c *Client) UpdateLobby(ctx context.Context, req *UpdateLobbyRequest) (*LobbyInfo, error) {
	var resp LobbyInfo
	if err := c.postJSON(ctx, "/v1/lobbies/update", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JoinLobby 以指定玩家身份加入大厅并返回大厅快照。
// 大厅已满时返回 CodeLimitExceeded。
func (c *Client) JoinLobby(ctx context.Context, id LobbyID, player ProductUserID, presence bool) (*LobbyInfo, error) {
	var resp LobbyInfo
	req := struct {
		LobbyID  LobbyID       `json:"lobby_id"`
		PlayerID ProductUserID `json:"player_id"`
		Presence bool          `json:"presence"`
	}{LobbyID: id, PlayerID: player, Presence: presence}
	if err := c.postJSON(ctx, "/v1/lobbies/join", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LeaveLobby 使指定玩家离开大厅。
//
// 若离开的是最后一名成员，服务端会同时销毁大厅；
// 若离开的是所有者且大厅仍有其他成员，服务端自动迁移所有权。
func (c *Client) LeaveLobby(ctx context.Context, id LobbyID, player ProductUserID) error {
	return c.postJSON(ctx, "/v1/lobbies/leave", lobbyMemberRequest{
		LobbyID:  id,
		PlayerID: player,
	}, nil)
}

// DestroyLobby 销毁大厅，所有成员都会收到 closed 状态通知。
func (c *Client) DestroyLobby(ctx context.Context, id LobbyID) error {
	return c.postJSON(ctx, "/v1/lobbies/destroy", lobbyIDRequest{LobbyID: id}, nil)
}

// KickMember 将目标成员踢出大厅。仅所有者可以调用。
func (c *Client) KickMember(ctx context.Context, id LobbyID, target ProductUserID) error {
	return c.postJSON(ctx, "/v1/lobbies/kick", lobbyMemberRequest{
		LobbyID:  id,
		PlayerID: target,
	}, nil)
}

// PromoteMember 将大厅所有权转移给目标成员。仅当前所有者可以调用。
func (c *Client) PromoteMember(ctx context.Context, id LobbyID, target ProductUserID) error {
	return c.postJSON(ctx, "/v1/lobbies/promote", lobbyMemberRequest{
		LobbyID:  id,
		PlayerID: target,
	}, nil)
}

// SetMemberAttributes 全量覆盖指定成员的成员级属性。
func (c *Client) SetMemberAttributes(ctx context.Context, id LobbyID, player ProductUserID, attrs []Attribute) error {
	req := struct {
		LobbyID    LobbyID       `json:"lobby_id"`
		PlayerID   ProductUserID `json:"player_id"`
		Attributes []Attribute   `json:"attributes"`
	}{LobbyID: id, PlayerID: player, Attributes: attrs}
	return c.postJSON(ctx, "/v1/lobbies/set_member_attributes", req, nil)
}

// SearchLobbies 按过滤条件搜索大厅。
//
// 对应接口：
//
//	POST /v1/lobbies/search
func (c *Client) SearchLobbies(ctx context.Context, req *SearchLobbiesRequest) ([]*LobbyInfo, error) {
	var resp struct {
		Lobbies []*LobbyInfo `json:"lobbies"`
	}
	if err := c.postJSON(ctx, "/v1/lobbies/search", req, &resp); err != nil {
		return nil, err
	}
	return resp.Lobbies, nil
}

// GetLobbyByID 按大厅 ID 拉取大厅快照。
func (c *Client) GetLobbyByID(ctx context.Context, id LobbyID) (*LobbyInfo, error) {
	var resp LobbyInfo
	if err := c.postJSON(ctx, "/v1/lobbies/get", lobbyIDRequest{LobbyID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetLobbyByInviteID 按邀请 ID 拉取对应的大厅快照。
func (c *Client) GetLobbyByInviteID(ctx context.Context, inviteID InviteID) (*LobbyInfo, error) {
	var resp LobbyInfo
	req := struct {
		InviteID InviteID `json:"invite_id"`
	}{InviteID: inviteID}
	if err := c.postJSON(ctx, "/v1/lobbies/get_by_invite", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendLobbyInvite 以 from 的名义向一批玩家发送大厅邀请。
func (c *Client) SendLobbyInvite(ctx context.Context, id LobbyID, from ProductUserID, to []ProductUserID) error {
	req := struct {
		LobbyID LobbyID         `json:"lobby_id"`
		FromID  ProductUserID   `json:"from_id"`
		ToIDs   []ProductUserID `json:"to_ids"`
	}{LobbyID: id, FromID: from, ToIDs: to}
	return c.postJSON(ctx, "/v1/lobbies/send_invite", req, nil)
}

type lobbyIDRequest struct {
	LobbyID LobbyID `json:"lobby_id"`
}

type lobbyMemberRequest struct {
	LobbyID  LobbyID       `json:"lobby_id"`
	PlayerID ProductUserID `json:"player_id"`
}
