package coplay

import (
	"sync"

	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
)

// IdentityService 提供本地玩家槽位到账号标识的映射。
//
// 槽位（localUserNum）对应同一客户端上的本地玩家编号，
// 单人场景恒为 0。
type IdentityService interface {
	// IsLoggedIn 返回指定槽位是否已登录。
	IsLoggedIn(localUserNum int) bool

	// PlayerID 返回指定槽位的账号标识。
	PlayerID(localUserNum int) (onlinesvc.ProductUserID, bool)
}

// StaticIdentity 为基于内存 map 的 IdentityService 实现，
// 由接入方在登录完成后写入映射。
type StaticIdentity struct {
	mu      sync.RWMutex
	players map[int]onlinesvc.ProductUserID
}

var _ IdentityService = (*StaticIdentity)(nil)

// NewStaticIdentity 创建一个空的 StaticIdentity。
func NewStaticIdentity() *StaticIdentity {
	return &StaticIdentity{
		players: make(map[int]onlinesvc.ProductUserID),
	}
}

// Login 记录槽位登录。
func (s *StaticIdentity) Login(localUserNum int, id onlinesvc.ProductUserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[localUserNum] = id
}

// Logout 清除槽位登录态。
func (s *StaticIdentity) Logout(localUserNum int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, localUserNum)
}

// IsLoggedIn 实现 IdentityService.IsLoggedIn。
func (s *StaticIdentity) IsLoggedIn(localUserNum int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.players[localUserNum]
	return ok
}

// PlayerID 实现 IdentityService.PlayerID。
func (s *StaticIdentity) PlayerID(localUserNum int) (onlinesvc.ProductUserID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.players[localUserNum]
	return id, ok
}
