package coplay

import "sync"

// eventQueue 为 Tick 线程的待执行事件队列。
//
// 异步任务与推送通知都不直接触碰管理器状态，
// 而是把后续动作投递到队列，由 Tick 统一串行执行。
// 这保证了所有完成回调都在调用 Tick 的线程上触发。
type eventQueue struct {
	mu     sync.Mutex
	events []func()
}

func newEventQueue() *eventQueue {
	return &eventQueue{}
}

// Post 向队列追加一个事件，可从任意协程调用。
func (q *eventQueue) Post(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.events = append(q.events, fn)
	q.mu.Unlock()
}

// Drain 取出当前全部事件并依次执行。
//
// 执行期间投递的新事件留到下一次 Drain，避免单次 Tick 被饿死。
func (q *eventQueue) Drain() {
	q.mu.Lock()
	batch := q.events
	q.events = nil
	q.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
}

// Len 返回当前排队的事件数量。
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
