package server

import (
	"sync/atomic"
)

// SessionMetrics 记录会话运行期的关键指标（用于监控与调试）
type SessionMetrics struct {
	TickCount         int64 // 统计的 Tick 次数
	RequestsAccepted  int64 // 被执行的变更请求数
	RequestsDeferred  int64 // 因单 Tick 上限顺延到下个 Tick 的次数
	DroppedDead       int64 // 因实体死亡锁定被丢弃的请求数
	DroppedStale      int64 // 因实体已 despawn 被丢弃的请求数
	DropsSimulated    int64 // 因模拟丢包被丢弃的请求数
	ChanFullDiscarded int64 // 因队列满被丢弃的请求数
	Broadcasts        int64 // 已下发的状态事件数
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
}

func (m *SessionMetrics) IncAccepted()          { atomic.AddInt64(&m.RequestsAccepted, 1) }
func (m *SessionMetrics) IncDeferred()          { atomic.AddInt64(&m.RequestsDeferred, 1) }
func (m *SessionMetrics) IncDroppedDead()       { atomic.AddInt64(&m.DroppedDead, 1) }
func (m *SessionMetrics) IncDroppedStale()      { atomic.AddInt64(&m.DroppedStale, 1) }
func (m *SessionMetrics) IncDropsSimulated()    { atomic.AddInt64(&m.DropsSimulated, 1) }
func (m *SessionMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *SessionMetrics) IncBroadcast()         { atomic.AddInt64(&m.Broadcasts, 1) }
func (m *SessionMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *SessionMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"requests_accepted":   atomic.LoadInt64(&m.RequestsAccepted),
		"requests_deferred":   atomic.LoadInt64(&m.RequestsDeferred),
		"dropped_dead":        atomic.LoadInt64(&m.DroppedDead),
		"dropped_stale":       atomic.LoadInt64(&m.DroppedStale),
		"drops_simulated":     atomic.LoadInt64(&m.DropsSimulated),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"broadcasts":          atomic.LoadInt64(&m.Broadcasts),
		"avg_tick_ms":         avgMs,
	}
}
