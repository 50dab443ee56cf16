package server

import (
	"fmt"
	"sync/atomic"
)

// LifecyclePhase 实体生命周期阶段
// Unspawned → SpawnedUninitialized → SpawnedInitialized → Despawned
// Despawned 之后身份不复用，也不会回到 Spawned
type LifecyclePhase int32

const (
	PhaseUnspawned LifecyclePhase = iota
	PhaseSpawnedUninitialized
	PhaseSpawnedInitialized
	PhaseDespawned
)

// Entity 会话内的实体：权威状态 + 专属入站请求队列
// 队列只由权威会话的 Tick 协程消费（单消费者，保证同实体写入串行）
type Entity struct {
	state    *EntityState
	requests chan Request
	phase    atomic.Int32
}

func newEntity(authoritative bool) *Entity {
	e := &Entity{
		state:    NewEntityState(authoritative),
		requests: make(chan Request, 64),
	}
	e.phase.Store(int32(PhaseSpawnedUninitialized))
	return e
}

// Phase 当前生命周期阶段（任意协程可读）
func (e *Entity) Phase() LifecyclePhase {
	return LifecyclePhase(e.phase.Load())
}

func (e *Entity) setPhase(p LifecyclePhase) {
	e.phase.Store(int32(p))
}

// SpawnSeed 协作方接入新实体时提供的身份种子
type SpawnSeed struct {
	Name    string
	Variant Variant
}

// handleSpawn 在 Tick 协程中创建实体并完成一次性初始化
// 权威在 spawn 时观察到 health <= 0 的“从未初始化”哨兵才会执行 Initialize，
// 此后不再隐式重新初始化
func (s *Session) handleSpawn(seed SpawnSeed) (EntityID, *Entity) {
	s.nextID++
	id := EntityID(fmt.Sprintf("e-%d", s.nextID))
	e := newEntity(s.authoritative)
	s.entities[id] = e
	e.state.setReplicateHook(s.broadcastChange)
	if s.authoritative && e.state.Health() <= 0 {
		e.state.Initialize(id, seed.Name, seed.Variant, s.maxHealth)
		e.setPhase(PhaseSpawnedInitialized)
		s.broadcastInit(id, e)
	}
	return id, e
}

// handleDespawn 在 Tick 协程中移除实体：释放全部订阅、广播 despawn
// 之后到达的请求按“过期句柄”丢弃
func (s *Session) handleDespawn(id EntityID) {
	e, ok := s.entities[id]
	if !ok {
		return
	}
	e.setPhase(PhaseDespawned)
	e.state.releaseSubscribers()
	delete(s.entities, id)
	s.broadcastDespawn(id)
}
