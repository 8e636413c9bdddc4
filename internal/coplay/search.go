package coplay

import (
	"context"

	"github.com/lk2023060901/coplay-garden-go/internal/backend"
)

// SearchState 为一次搜索的状态。
type SearchState int32

const (
	// SearchInProgress 表示搜索尚未完成。
	SearchInProgress SearchState = iota
	// SearchDone 表示搜索成功完成，结果可用。
	SearchDone
	// SearchFailed 表示搜索失败或被取消。
	SearchFailed
)

func (s SearchState) String() string {
	switch s {
	case SearchInProgress:
		return "InProgress"
	case SearchDone:
		return "Done"
	case SearchFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Search 为一次会话搜索及其结果缓存。
//
// 同一时刻至多一次进行中的搜索；
// 完成后的结果一直缓存到下一次搜索发起。
type Search struct {
	ID    uint64
	State SearchState
	Query backend.Query

	Results []*backend.Result
	Err     error

	cancel context.CancelFunc
}

// ResultAt 返回指定下标的搜索结果。
func (s *Search) ResultAt(index int) (*backend.Result, bool) {
	if s == nil || s.State != SearchDone || index < 0 || index >= len(s.Results) {
		return nil, false
	}
	return s.Results[index], true
}
