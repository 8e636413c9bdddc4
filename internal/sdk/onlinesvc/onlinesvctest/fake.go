package onlinesvctest

import (
	"context"
	"fmt"
	"sync"

	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
)

// Fake 为在线服务的内存版实现，同时实现 SessionsAPI 与 LobbiesAPI。
//
// 仅用于测试：
//   - 状态保存在内存 map 中，带锁保证并发安全；
//   - 通过 SetError 可为指定方法注入一次性错误；
//   - 搜索只实现了测试所需的基础过滤语义。
type Fake struct {
	mu     sync.Mutex
	nextID int

	Sessions map[onlinesvc.SessionID]*onlinesvc.SessionInfo
	Lobbies  map[onlinesvc.LobbyID]*onlinesvc.LobbyInfo

	// 邀请 ID 到目标的映射。一个邀请指向会话或大厅二选一。
	SessionInvites map[onlinesvc.InviteID]onlinesvc.SessionID
	LobbyInvites   map[onlinesvc.InviteID]onlinesvc.LobbyID

	errs map[string]error
}

var (
	_ onlinesvc.SessionsAPI = (*Fake)(nil)
	_ onlinesvc.LobbiesAPI  = (*Fake)(nil)
)

// New 创建一个空的 Fake。
func New() *Fake {
	return &Fake{
		Sessions:       make(map[onlinesvc.SessionID]*onlinesvc.SessionInfo),
		Lobbies:        make(map[onlinesvc.LobbyID]*onlinesvc.LobbyInfo),
		SessionInvites: make(map[onlinesvc.InviteID]onlinesvc.SessionID),
		LobbyInvites:   make(map[onlinesvc.InviteID]onlinesvc.LobbyID),
		errs:           make(map[string]error),
	}
}

// SetError 为指定方法注入一次性错误，方法名如 "CreateSession"。
func (f *Fake) SetError(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
}

func (f *Fake) takeError(method string) error {
	if err, ok := f.errs[method]; ok {
		delete(f.errs, method)
		return err
	}
	return nil
}

func (f *Fake) genID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func notFound(what string) error {
	return &onlinesvc.Error{Code: onlinesvc.CodeNotFound, Message: what + " not found"}
}

// ---- SessionsAPI ----

func (f *Fake) CreateSession(ctx context.Context, req *onlinesvc.CreateSessionRequest) (*onlinesvc.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("CreateSession"); err != nil {
		return nil, err
	}

	info := &onlinesvc.SessionInfo{
		SessionID:       onlinesvc.SessionID(f.genID("sess")),
		BucketID:        req.BucketID,
		HostAddress:     req.HostAddress,
		OwnerID:         req.HostPlayerID,
		MaxPlayers:      req.MaxPlayers,
		PermissionLevel: req.PermissionLevel,
		JoinInProgress:  req.JoinInProgress,
		InvitesAllowed:  req.InvitesAllowed,
		Attributes:      req.Attributes,
		OpenSlots:       req.MaxPlayers,
	}
	f.Sessions[info.SessionID] = info
	return copySession(info), nil
}

func (f *Fake) UpdateSession(ctx context.Context, req *onlinesvc.UpdateSessionRequest) (*onlinesvc.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("UpdateSession"); err != nil {
		return nil, err
	}

	info, ok := f.Sessions[req.SessionID]
	if !ok {
		return nil, notFound("session")
	}
	info.HostAddress = req.HostAddress
	info.MaxPlayers = req.MaxPlayers
	info.PermissionLevel = req.PermissionLevel
	info.JoinInProgress = req.JoinInProgress
	info.InvitesAllowed = req.InvitesAllowed
	info.Attributes = req.Attributes
	info.OpenSlots = req.MaxPlayers - len(info.Players)
	if info.OpenSlots < 0 {
		info.OpenSlots = 0
	}
	return copySession(info), nil
}

func (f *Fake) StartSession(ctx context.Context, id onlinesvc.SessionID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("StartSession"); err != nil {
		return err
	}

	info, ok := f.Sessions[id]
	if !ok {
		return notFound("session")
	}
	info.Started = true
	return nil
}

func (f *Fake) EndSession(ctx context.Context, id onlinesvc.SessionID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("EndSession"); err != nil {
		return err
	}

	info, ok := f.Sessions[id]
	if !ok {
		return notFound("session")
	}
	info.Started = false
	return nil
}

func (f *Fake) DestroySession(ctx context.Context, id onlinesvc.SessionID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("DestroySession"); err != nil {
		return err
	}

	if _, ok := f.Sessions[id]; !ok {
		return notFound("session")
	}
	delete(f.Sessions, id)
	return nil
}

func (f *Fake) JoinSession(ctx context.Context, req *onlinesvc.JoinSessionRequest) (*onlinesvc.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("JoinSession"); err != nil {
		return nil, err
	}

	info, ok := f.Sessions[req.SessionID]
	if !ok {
		return nil, notFound("session")
	}
	if info.OpenSlots <= 0 {
		return nil, &onlinesvc.Error{Code: onlinesvc.CodeLimitExceeded, Message: "session full"}
	}
	return copySession(info), nil
}

func (f *Fake) RegisterPlayers(ctx context.Context, id onlinesvc.SessionID, players []onlinesvc.ProductUserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("RegisterPlayers"); err != nil {
		return err
	}

	info, ok := f.Sessions[id]
	if !ok {
		return notFound("session")
	}
	for _, p := range players {
		if containsPlayer(info.Players, p) {
			continue
		}
		if info.OpenSlots <= 0 {
			return &onlinesvc.Error{Code: onlinesvc.CodeLimitExceeded, Message: "session full"}
		}
		info.Players = append(info.Players, p)
		info.OpenSlots--
	}
	return nil
}

func (f *Fake) UnregisterPlayers(ctx context.Context, id onlinesvc.SessionID, players []onlinesvc.ProductUserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("UnregisterPlayers"); err != nil {
		return err
	}

	info, ok := f.Sessions[id]
	if !ok {
		return notFound("session")
	}
	for _, p := range players {
		if removePlayer(&info.Players, p) && info.OpenSlots < info.MaxPlayers {
			info.OpenSlots++
		}
	}
	return nil
}

func (f *Fake) SearchSessions(ctx context.Context, req *onlinesvc.SearchSessionsRequest) ([]*onlinesvc.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("SearchSessions"); err != nil {
		return nil, err
	}

	var out []*onlinesvc.SessionInfo
	for _, info := range f.Sessions {
		if info.PermissionLevel != onlinesvc.PermissionPublicAdvertised {
			continue
		}
		if matchFilters(req.Filters, info.BucketID, info.OpenSlots, info.Attributes) {
			out = append(out, copySession(info))
		}
		if req.MaxResults > 0 && len(out) >= req.MaxResults {
			break
		}
	}
	return out, nil
}

func (f *Fake) GetSessionByID(ctx context.Context, id onlinesvc.SessionID) (*onlinesvc.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("GetSessionByID"); err != nil {
		return nil, err
	}

	info, ok := f.Sessions[id]
	if !ok {
		return nil, notFound("session")
	}
	return copySession(info), nil
}

func (f *Fake) GetSessionByInviteID(ctx context.Context, inviteID onlinesvc.InviteID) (*onlinesvc.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("GetSessionByInviteID"); err != nil {
		return nil, err
	}

	id, ok := f.SessionInvites[inviteID]
	if !ok {
		return nil, notFound("invite")
	}
	info, ok := f.Sessions[id]
	if !ok {
		return nil, notFound("session")
	}
	return copySession(info), nil
}

func (f *Fake) SendSessionInvite(ctx context.Context, id onlinesvc.SessionID, from onlinesvc.ProductUserID, to []onlinesvc.ProductUserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("SendSessionInvite"); err != nil {
		return err
	}

	if _, ok := f.Sessions[id]; !ok {
		return notFound("session")
	}
	for range to {
		f.SessionInvites[onlinesvc.InviteID(f.genID("inv"))] = id
	}
	return nil
}

// ---- LobbiesAPI ----

func (f *Fake) CreateLobby(ctx context.Context, req *onlinesvc.CreateLobbyRequest) (*onlinesvc.LobbyInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("CreateLobby"); err != nil {
		return nil, err
	}

	info := &onlinesvc.LobbyInfo{
		LobbyID:         onlinesvc.LobbyID(f.genID("lobby")),
		BucketID:        req.BucketID,
		OwnerID:         req.OwnerID,
		MaxMembers:      req.MaxMembers,
		PermissionLevel: req.PermissionLevel,
		InvitesAllowed:  req.InvitesAllowed,
		PresenceEnabled: req.PresenceEnabled,
		Attributes:      req.Attributes,
		Members:         []onlinesvc.LobbyMember{{PlayerID: req.OwnerID}},
		AvailableSlots:  req.MaxMembers - 1,
	}
	f.Lobbies[info.LobbyID] = info
	return copyLobby(info), nil
}

func (f *Fake) UpdateLobby(ctx context.Context, req *onlinesvc.UpdateLobbyRequest) (*onlinesvc.LobbyInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("UpdateLobby"); err != nil {
		return nil, err
	}

	info, ok := f.Lobbies[req.LobbyID]
	if !ok {
		return nil, notFound("lobby")
	}
	info.MaxMembers = req.MaxMembers
	info.PermissionLevel = req.PermissionLevel
	info.InvitesAllowed = req.InvitesAllowed
	info.Attributes = req.Attributes
	info.AvailableSlots = req.MaxMembers - len(info.Members)
	if info.AvailableSlots < 0 {
		info.AvailableSlots = 0
	}
	return copyLobby(info), nil
}

func (f *Fake) JoinLobby(ctx context.Context, id onlinesvc.LobbyID, player onlinesvc.ProductUserID, presence bool) (*onlinesvc.LobbyInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("JoinLobby"); err != nil {
		return nil, err
	}

	info, ok := f.Lobbies[id]
	if !ok {
		return nil, notFound("lobby")
	}
	if f.memberIndex(info, player) >= 0 {
		return copyLobby(info), nil
	}
	if info.AvailableSlots <= 0 {
		return nil, &onlinesvc.Error{Code: onlinesvc.CodeLimitExceeded, Message: "lobby full"}
	}
	info.Members = append(info.Members, onlinesvc.LobbyMember{PlayerID: player})
	info.AvailableSlots--
	return copyLobby(info), nil
}

func (f *Fake) LeaveLobby(ctx context.Context, id onlinesvc.LobbyID, player onlinesvc.ProductUserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("LeaveLobby"); err != nil {
		return err
	}

	info, ok := f.Lobbies[id]
	if !ok {
		return notFound("lobby")
	}
	idx := f.memberIndex(info, player)
	if idx < 0 {
		return notFound("member")
	}
	info.Members = append(info.Members[:idx], info.Members[idx+1:]...)
	info.AvailableSlots++

	if len(info.Members) == 0 {
		delete(f.Lobbies, id)
		return nil
	}
	// 所有者离开时自动迁移所有权。
	if info.OwnerID == player {
		info.OwnerID = info.Members[0].PlayerID
	}
	return nil
}

func (f *Fake) DestroyLobby(ctx context.Context, id onlinesvc.LobbyID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("DestroyLobby"); err != nil {
		return err
	}

	if _, ok := f.Lobbies[id]; !ok {
		return notFound("lobby")
	}
	delete(f.Lobbies, id)
	return nil
}

func (f *Fake) KickMember(ctx context.Context, id onlinesvc.LobbyID, target onlinesvc.ProductUserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("KickMember"); err != nil {
		return err
	}

	info, ok := f.Lobbies[id]
	if !ok {
		return notFound("lobby")
	}
	idx := f.memberIndex(info, target)
	if idx < 0 {
		return notFound("member")
	}
	info.Members = append(info.Members[:idx], info.Members[idx+1:]...)
	info.AvailableSlots++
	return nil
}

func (f *Fake) PromoteMember(ctx context.Context, id onlinesvc.LobbyID, target onlinesvc.ProductUserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("PromoteMember"); err != nil {
		return err
	}

	info, ok := f.Lobbies[id]
	if !ok {
		return notFound("lobby")
	}
	if f.memberIndex(info, target) < 0 {
		return notFound("member")
	}
	info.OwnerID = target
	return nil
}

func (f *Fake) SetMemberAttributes(ctx context.Context, id onlinesvc.LobbyID, player onlinesvc.ProductUserID, attrs []onlinesvc.Attribute) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("SetMemberAttributes"); err != nil {
		return err
	}

	info, ok := f.Lobbies[id]
	if !ok {
		return notFound("lobby")
	}
	idx := f.memberIndex(info, player)
	if idx < 0 {
		return notFound("member")
	}
	info.Members[idx].Attributes = attrs
	return nil
}

func (f *Fake) SearchLobbies(ctx context.Context, req *onlinesvc.SearchLobbiesRequest) ([]*onlinesvc.LobbyInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("SearchLobbies"); err != nil {
		return nil, err
	}

	var out []*onlinesvc.LobbyInfo
	for _, info := range f.Lobbies {
		if info.PermissionLevel != onlinesvc.PermissionPublicAdvertised {
			continue
		}
		if matchFilters(req.Filters, info.BucketID, info.AvailableSlots, info.Attributes) {
			out = append(out, copyLobby(info))
		}
		if req.MaxResults > 0 && len(out) >= req.MaxResults {
			break
		}
	}
	return out, nil
}

func (f *Fake) GetLobbyByID(ctx context.Context, id onlinesvc.LobbyID) (*onlinesvc.LobbyInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("GetLobbyByID"); err != nil {
		return nil, err
	}

	info, ok := f.Lobbies[id]
	if !ok {
		return nil, notFound("lobby")
	}
	return copyLobby(info), nil
}

func (f *Fake) GetLobbyByInviteID(ctx context.Context, inviteID onlinesvc.InviteID) (*onlinesvc.LobbyInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("GetLobbyByInviteID"); err != nil {
		return nil, err
	}

	id, ok := f.LobbyInvites[inviteID]
	if !ok {
		return nil, notFound("invite")
	}
	info, ok := f.Lobbies[id]
	if !ok {
		return nil, notFound("lobby")
	}
	return copyLobby(info), nil
}

func (f *Fake) SendLobbyInvite(ctx context.Context, id onlinesvc.LobbyID, from onlinesvc.ProductUserID, to []onlinesvc.ProductUserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeError("SendLobbyInvite"); err != nil {
		return err
	}

	if _, ok := f.Lobbies[id]; !ok {
		return notFound("lobby")
	}
	for range to {
		f.LobbyInvites[onlinesvc.InviteID(f.genID("inv"))] = id
	}
	return nil
}

// AddLobbyInvite 为测试预置一条大厅邀请并返回邀请 ID。
func (f *Fake) AddLobbyInvite(id onlinesvc.LobbyID) onlinesvc.InviteID {
	f.mu.Lock()
	defer f.mu.Unlock()
	inviteID := onlinesvc.InviteID(f.genID("inv"))
	f.LobbyInvites[inviteID] = id
	return inviteID
}

// AddSessionInvite 为测试预置一条会话邀请并返回邀请 ID。
func (f *Fake) AddSessionInvite(id onlinesvc.SessionID) onlinesvc.InviteID {
	f.mu.Lock()
	defer f.mu.Unlock()
	inviteID := onlinesvc.InviteID(f.genID("inv"))
	f.SessionInvites[inviteID] = id
	return inviteID
}

// ---- helpers ----

func (f *Fake) memberIndex(info *onlinesvc.LobbyInfo, player onlinesvc.ProductUserID) int {
	for i := range info.Members {
		if info.Members[i].PlayerID == player {
			return i
		}
	}
	return -1
}

func containsPlayer(players []onlinesvc.ProductUserID, p onlinesvc.ProductUserID) bool {
	for _, cur := range players {
		if cur == p {
			return true
		}
	}
	return false
}

func removePlayer(players *[]onlinesvc.ProductUserID, p onlinesvc.ProductUserID) bool {
	for i, cur := range *players {
		if cur == p {
			*players = append((*players)[:i], (*players)[i+1:]...)
			return true
		}
	}
	return false
}

func copySession(info *onlinesvc.SessionInfo) *onlinesvc.SessionInfo {
	out := *info
	out.Attributes = append([]onlinesvc.Attribute(nil), info.Attributes...)
	out.Players = append([]onlinesvc.ProductUserID(nil), info.Players...)
	return &out
}

func copyLobby(info *onlinesvc.LobbyInfo) *onlinesvc.LobbyInfo {
	out := *info
	out.Attributes = append([]onlinesvc.Attribute(nil), info.Attributes...)
	out.Members = append([]onlinesvc.LobbyMember(nil), info.Members...)
	return &out
}

// matchFilters 为搜索过滤的简化实现，覆盖测试用到的语义。
func matchFilters(filters []onlinesvc.SearchFilter, bucketID string, openSlots int, attrs []onlinesvc.Attribute) bool {
	for _, filter := range filters {
		key := filter.Attribute.Key
		switch key {
		case "bucket":
			if filter.Attribute.StrValue == nil || *filter.Attribute.StrValue != bucketID {
				return false
			}
		case "minslotsavailable":
			if filter.Attribute.Int64Value == nil || int64(openSlots) < *filter.Attribute.Int64Value {
				return false
			}
		default:
			if !matchAttribute(filter, attrs) {
				return false
			}
		}
	}
	return true
}

func matchAttribute(filter onlinesvc.SearchFilter, attrs []onlinesvc.Attribute) bool {
	for _, attr := range attrs {
		if attr.Key != filter.Attribute.Key {
			continue
		}
		return compareAttr(attr, filter)
	}
	return false
}

func compareAttr(attr onlinesvc.Attribute, filter onlinesvc.SearchFilter) bool {
	want := filter.Attribute
	if attr.Type != want.Type {
		return false
	}

	switch attr.Type {
	case onlinesvc.AttrTypeString:
		if attr.StrValue == nil || want.StrValue == nil {
			return false
		}
		eq := *attr.StrValue == *want.StrValue
		return applyEq(filter.Op, eq)
	case onlinesvc.AttrTypeBool:
		if attr.BoolValue == nil || want.BoolValue == nil {
			return false
		}
		eq := *attr.BoolValue == *want.BoolValue
		return applyEq(filter.Op, eq)
	case onlinesvc.AttrTypeInt64:
		if attr.Int64Value == nil || want.Int64Value == nil {
			return false
		}
		return applyOrder(filter.Op, compareInt(*attr.Int64Value, *want.Int64Value))
	case onlinesvc.AttrTypeDouble:
		if attr.DblValue == nil || want.DblValue == nil {
			return false
		}
		return applyOrder(filter.Op, compareFloat(*attr.DblValue, *want.DblValue))
	default:
		return false
	}
}

func applyEq(op onlinesvc.ComparisonOp, eq bool) bool {
	switch op {
	case onlinesvc.OpEqual, onlinesvc.OpAnyOf:
		return eq
	case onlinesvc.OpNotEqual:
		return !eq
	default:
		return false
	}
}

// applyOrder 根据比较结果（-1/0/1）判定有序运算符是否成立。
func applyOrder(op onlinesvc.ComparisonOp, cmp int) bool {
	switch op {
	case onlinesvc.OpEqual, onlinesvc.OpAnyOf:
		return cmp == 0
	case onlinesvc.OpNotEqual:
		return cmp != 0
	case onlinesvc.OpGreaterThan:
		return cmp > 0
	case onlinesvc.OpGreaterOrEqual:
		return cmp >= 0
	case onlinesvc.OpLessThan:
		return cmp < 0
	case onlinesvc.OpLessOrEqual:
		return cmp <= 0
	default:
		return false
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
