package session

import (
	"sync"

	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
	"github.com/lk2023060901/coplay-garden-go/pkg/util/merr"
)

// Registry 管理本地命名会话的集合。
type Registry interface {
	// Register 登记一个新会话；同名会话已存在时返回错误。
	Register(sess *Session) error

	// Get 按名字查找会话。
	Get(name string) (*Session, bool)

	// GetByLobbyID 按大厅 ID 查找会话，用于推送通知的反查。
	GetByLobbyID(id onlinesvc.LobbyID) (*Session, bool)

	// GetBySessionID 按远端会话 ID 查找会话。
	GetBySessionID(id onlinesvc.SessionID) (*Session, bool)

	// Unregister 按名字移除会话。
	Unregister(name string) error

	// Range 遍历所有会话；回调返回 false 时提前终止。
	Range(fn func(sess *Session) bool)

	// Count 返回当前会话数量。
	Count() int
}

// BaseRegistry 提供了基于内存 map 的 Registry 实现。
//
// 特性：
//   - 使用读写锁保证并发安全；
//   - Register 在遇到同名会话时返回错误，避免覆盖旧会话；
//   - Range 在遍历前复制一份会话切片，避免在持锁情况下执行用户回调。
type BaseRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// 确保 BaseRegistry 实现了 Registry 接口。
var _ Registry = (*BaseRegistry)(nil)

// NewBaseRegistry 创建一个空的 BaseRegistry。
func NewBaseRegistry() *BaseRegistry {
	return &BaseRegistry{
		sessions: make(map[string]*Session),
	}
}

// Register 实现 Registry.Register。
func (r *BaseRegistry) Register(sess *Session) error {
	if sess == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[sess.Name]; exists {
		return merr.WrapErrSessionAlreadyExist(sess.Name)
	}
	r.sessions[sess.Name] = sess
	return nil
}

// Get 实现 Registry.Get。
func (r *BaseRegistry) Get(name string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[name]
	return sess, ok
}

// GetByLobbyID 实现 Registry.GetByLobbyID。
func (r *BaseRegistry) GetByLobbyID(id onlinesvc.LobbyID) (*Session, bool) {
	if id == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sess := range r.sessions {
		if sess.LobbyID == id {
			return sess, true
		}
	}
	return nil, false
}

// GetBySessionID 实现 Registry.GetBySessionID。
func (r *BaseRegistry) GetBySessionID(id onlinesvc.SessionID) (*Session, bool) {
	if id == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sess := range r.sessions {
		if sess.SessionID == id {
			return sess, true
		}
	}
	return nil, false
}

// Unregister 实现 Registry.Unregister。
func (r *BaseRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[name]; !exists {
		return merr.WrapErrSessionNotFound(name)
	}
	delete(r.sessions, name)
	return nil
}

// Range 实现 Registry.Range。
func (r *BaseRegistry) Range(fn func(sess *Session) bool) {
	if fn == nil {
		return
	}

	r.mu.RLock()
	snapshot := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		snapshot = append(snapshot, sess)
	}
	r.mu.RUnlock()

	for _, sess := range snapshot {
		if !fn(sess) {
			return
		}
	}
}

// Count 实现 Registry.Count。
func (r *BaseRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
