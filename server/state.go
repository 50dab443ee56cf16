package server

import "sync"

// HealthChangedFn 生命值变更回调（prev -> curr）
type HealthChangedFn func(prev, curr float64)

// AliveChangedFn 存活标志变更回调（prev -> curr）
type AliveChangedFn func(prev, curr bool)

// SubToken 订阅凭据，despawn 或主动退订时用于解除
type SubToken int64

type subscriber struct {
	onHealth HealthChangedFn
	onAlive  AliveChangedFn
}

// FieldChange 一次成功写入产生的变更批次
// health/alive 同批下发，观察者不会看到二者被拆开的中间态
type FieldChange struct {
	Entity EntityID
	Health *float64
	Alive  *bool
}

// EntityState 实体的权威复制状态
// 写入权由构造时传入的权威能力决定：非权威写入一律静默 no-op（访问控制
// 的可见面在网关层，这里不向调用方暴露任何错误）；读取任意协程可用
type EntityState struct {
	mu        sync.RWMutex
	identity  Identity
	health    float64
	maxHealth float64
	alive     bool

	authoritative bool

	nextToken   SubToken
	subscribers map[SubToken]subscriber
	replicate   func(FieldChange) // 复制通道钩子，由生命周期控制器在 spawn 时接好
}

// NewEntityState 创建未初始化的状态容器（health=0 即“从未初始化”哨兵）
func NewEntityState(authoritative bool) *EntityState {
	return &EntityState{
		authoritative: authoritative,
		subscribers:   make(map[SubToken]subscriber),
	}
}

// Initialize 权威侧一次性初始化：身份 + health=maxHealth + alive=true
// 非权威进程调用时静默 no-op；DisplayName/Variant 的重发也走这一条路径
func (s *EntityState) Initialize(id EntityID, name string, variant Variant, maxHealth float64) {
	if !s.authoritative {
		return
	}
	s.mu.Lock()
	prevHealth, prevAlive := s.health, s.alive
	s.identity = Identity{ID: id, DisplayName: name, Variant: variant}
	s.maxHealth = maxHealth
	s.health = maxHealth
	s.alive = s.health > 0
	s.commitLocked(prevHealth, prevAlive)
}

// ApplyDamage 直接扣血，夹取到 [0, maxHealth]；已死亡或非权威时 no-op
func (s *EntityState) ApplyDamage(amount float64) {
	if amount <= 0 {
		return // 非法数值按 no-op 处理，不报错
	}
	s.write(true, func(health, _ float64) float64 { return health - amount })
}

// Heal 直接回血，夹取到 [0, maxHealth]；已死亡或非权威时 no-op
func (s *EntityState) Heal(amount float64) {
	if amount <= 0 {
		return
	}
	s.write(true, func(health, _ float64) float64 { return health + amount })
}

// ApplyExponentialDamage 以当前值驱动一次指数衰减 Tick
func (s *EntityState) ApplyExponentialDamage(dt float64) {
	s.write(true, func(health, maxHealth float64) float64 {
		return ExponentialDecay(health, maxHealth, dt)
	})
}

// ApplyLinearRecovery 以当前值驱动一次线性恢复 Tick
func (s *EntityState) ApplyLinearRecovery(dt float64) {
	s.write(true, func(health, maxHealth float64) float64 {
		return LinearRecovery(health, maxHealth, dt)
	})
}

// ResetHealth 满血复活（唯一能解除死亡锁定的写入）
func (s *EntityState) ResetHealth() {
	s.write(false, func(_, maxHealth float64) float64 { return maxHealth })
}

// write 串行写入路径：权威校验 → 死亡校验 → 计算 → 夹取 → 重算 alive → 批量通知
// 所有写入都经权威进程的单一消费协程进入，互相不会交错
func (s *EntityState) write(requireAlive bool, f func(health, maxHealth float64) float64) {
	if !s.authoritative {
		return
	}
	s.mu.Lock()
	if requireAlive && !s.alive {
		s.mu.Unlock()
		return
	}
	prevHealth, prevAlive := s.health, s.alive
	s.health = clamp(f(s.health, s.maxHealth), 0, s.maxHealth)
	// 严格不变量：每次写入后 alive == (health > 0)
	s.alive = s.health > 0
	s.commitLocked(prevHealth, prevAlive)
}

// commitLocked 汇总本次写入的变更并在解锁后通知订阅者与复制通道
// 进入时持有 s.mu，返回时已释放
func (s *EntityState) commitLocked(prevHealth float64, prevAlive bool) {
	currHealth, currAlive := s.health, s.alive
	healthChanged := currHealth != prevHealth
	aliveChanged := currAlive != prevAlive
	if !healthChanged && !aliveChanged {
		s.mu.Unlock()
		return // 无变化不产生任何通知
	}
	subs := make([]subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	hook := s.replicate
	change := FieldChange{Entity: s.identity.ID}
	if healthChanged {
		v := currHealth
		change.Health = &v
	}
	if aliveChanged {
		v := currAlive
		change.Alive = &v
	}
	s.mu.Unlock()

	for _, sub := range subs {
		if healthChanged && sub.onHealth != nil {
			sub.onHealth(prevHealth, currHealth)
		}
		if aliveChanged && sub.onAlive != nil {
			sub.onAlive(prevAlive, currAlive)
		}
	}
	if hook != nil {
		hook(change)
	}
}

// Health 当前生命值（每帧轮询安全）
func (s *EntityState) Health() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health
}

// MaxHealth 生命值上限（0 表示尚未初始化）
func (s *EntityState) MaxHealth() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxHealth
}

// Alive 存活标志（与 health > 0 严格同步）
func (s *EntityState) Alive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alive
}

// IdentityRecord 身份记录的只读副本
func (s *EntityState) IdentityRecord() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Subscribe 注册变更回调，返回退订凭据；回调可传 nil 表示不关心该字段
func (s *EntityState) Subscribe(onHealth HealthChangedFn, onAlive AliveChangedFn) SubToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextToken++
	token := s.nextToken
	s.subscribers[token] = subscriber{onHealth: onHealth, onAlive: onAlive}
	return token
}

// Unsubscribe 解除单个订阅；未知凭据直接忽略
func (s *EntityState) Unsubscribe(token SubToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, token)
}

// releaseSubscribers despawn 时确定性释放全部订阅，不依赖 GC 回收回调
func (s *EntityState) releaseSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = make(map[SubToken]subscriber)
	s.replicate = nil
}

// setReplicateHook 接上复制通道（spawn 时由生命周期控制器调用一次）
func (s *EntityState) setReplicateHook(fn func(FieldChange)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replicate = fn
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
