package server

import "sync"

// requestSender 把变更请求送回权威进程的单一链路
type requestSender interface {
	SendRequest(msg RequestMessage)
}

// Mirror 观察者进程的只读镜像：内容完全由权威推送的事件构造，
// 可能落后权威若干条通知，但绝不出现权威从未持有过的值
type Mirror struct {
	mu       sync.RWMutex
	entities map[EntityID]*MirrorEntity
	link     requestSender
}

// NewMirror 创建空镜像；link 为回传请求的链路（观察者与权威间的连接）
func NewMirror(link requestSender) *Mirror {
	return &Mirror{
		entities: make(map[EntityID]*MirrorEntity),
		link:     link,
	}
}

// Entity 取实体镜像；事件尚未到达时返回 nil
func (m *Mirror) Entity(id EntityID) *MirrorEntity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entities[id]
}

// Entities 当前镜像内的实体标识列表
func (m *Mirror) Entities() []EntityID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]EntityID, 0, len(m.entities))
	for id := range m.entities {
		ids = append(ids, id)
	}
	return ids
}

// Apply 按到达顺序套用一条权威事件
// init 覆盖建立实体；field 套用一批字段变更；despawn 释放订阅并移除
func (m *Mirror) Apply(ev EventMessage) {
	id := EntityID(ev.Entity)
	switch ev.Type {
	case "init":
		me := &MirrorEntity{
			link: m.link,
			identity: Identity{
				ID:          id,
				DisplayName: ev.Name,
				Variant:     Variant(ev.Variant),
			},
			maxHealth:   ev.MaxHealth,
			subscribers: make(map[SubToken]subscriber),
		}
		if ev.Health != nil {
			me.health = *ev.Health
		}
		if ev.Alive != nil {
			me.alive = *ev.Alive
		}
		m.mu.Lock()
		m.entities[id] = me
		m.mu.Unlock()
		Log.Debugf("mirror init: entity=%s name=%s health=%.1f", id, ev.Name, me.health)
	case "field":
		m.mu.RLock()
		me := m.entities[id]
		m.mu.RUnlock()
		if me == nil {
			// init 事件还没到，这批变更无处可落；下一条 init 会带全量快照
			return
		}
		me.applyFields(ev.Health, ev.Alive)
	case "despawn":
		m.mu.Lock()
		me := m.entities[id]
		delete(m.entities, id)
		m.mu.Unlock()
		if me != nil {
			me.release()
		}
		Log.Debugf("mirror despawn: entity=%s", id)
	}
}

// MirrorEntity 单个实体的只读镜像：绝不发起写入，
// 本地请求入口只会把消息转发给权威，状态要等权威的通知回来才会变
type MirrorEntity struct {
	mu        sync.RWMutex
	identity  Identity
	health    float64
	maxHealth float64
	alive     bool

	nextToken   SubToken
	subscribers map[SubToken]subscriber

	link requestSender
}

func (e *MirrorEntity) ID() EntityID { return e.identity.ID }

func (e *MirrorEntity) Health() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.health
}

func (e *MirrorEntity) MaxHealth() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.maxHealth
}

func (e *MirrorEntity) Alive() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.alive
}

// IdentityRecord 身份记录的只读副本
func (e *MirrorEntity) IdentityRecord() Identity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.identity
}

func (e *MirrorEntity) RequestDamage(amount float64) { e.request(OpDamage, amount, 0) }
func (e *MirrorEntity) RequestHeal(amount float64)   { e.request(OpHeal, amount, 0) }

func (e *MirrorEntity) RequestExponentialDamageTick(dt float64) { e.request(OpDecayTick, 0, dt) }
func (e *MirrorEntity) RequestLinearRecoveryTick(dt float64)    { e.request(OpRecoveryTick, 0, dt) }

func (e *MirrorEntity) RequestReset() { e.request(OpReset, 0, 0) }

// request 发后不理：转发一次给权威，本地无任何效果，无重试无应答
func (e *MirrorEntity) request(op Op, amount, dt float64) {
	if e.link == nil {
		return
	}
	e.link.SendRequest(RequestMessage{
		Type:   "request",
		Entity: string(e.ID()),
		Op:     string(op),
		Amount: amount,
		Dt:     dt,
	})
}

// Subscribe 本地变更订阅（HUD、死亡处理、音效等观察者侧协作方）
func (e *MirrorEntity) Subscribe(onHealth HealthChangedFn, onAlive AliveChangedFn) SubToken {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextToken++
	token := e.nextToken
	e.subscribers[token] = subscriber{onHealth: onHealth, onAlive: onAlive}
	return token
}

func (e *MirrorEntity) Unsubscribe(token SubToken) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subscribers, token)
}

// applyFields 套用同一写入批次的字段变更：health/alive 在一次加锁内落位，
// 本地观察者不会看到二者被拆开的中间态
func (e *MirrorEntity) applyFields(health *float64, alive *bool) {
	e.mu.Lock()
	prevHealth, prevAlive := e.health, e.alive
	if health != nil {
		e.health = *health
	}
	if alive != nil {
		e.alive = *alive
	}
	currHealth, currAlive := e.health, e.alive
	subs := make([]subscriber, 0, len(e.subscribers))
	for _, sub := range e.subscribers {
		subs = append(subs, sub)
	}
	e.mu.Unlock()

	for _, sub := range subs {
		if health != nil && currHealth != prevHealth && sub.onHealth != nil {
			sub.onHealth(prevHealth, currHealth)
		}
		if alive != nil && currAlive != prevAlive && sub.onAlive != nil {
			sub.onAlive(prevAlive, currAlive)
		}
	}
}

// release despawn 时确定性释放全部本地订阅
func (e *MirrorEntity) release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = make(map[SubToken]subscriber)
	e.link = nil
}
