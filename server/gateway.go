package server

// Handle 核心对外的实体句柄：读取器每帧轮询安全；
// 变更一律是“请求”，调用方不获知结果，只能通过后续的状态变更通知观察
type Handle interface {
	ID() EntityID
	Health() float64
	MaxHealth() float64
	Alive() bool
	RequestDamage(amount float64)
	RequestHeal(amount float64)
	RequestExponentialDamageTick(dt float64)
	RequestLinearRecoveryTick(dt float64)
	RequestReset()
	Subscribe(onHealth HealthChangedFn, onAlive AliveChangedFn) SubToken
	Unsubscribe(token SubToken)
}

var (
	_ Handle = (*HostHandle)(nil)
	_ Handle = (*MirrorEntity)(nil)
)

// HostHandle 权威进程内协作方持有的实体句柄
// 请求走会话入站队列（与远端请求同一条路径），读取直接命中权威状态
type HostHandle struct {
	session *Session
	entity  *Entity
	id      EntityID
}

func (h *HostHandle) ID() EntityID { return h.id }

func (h *HostHandle) Health() float64    { return h.entity.state.Health() }
func (h *HostHandle) MaxHealth() float64 { return h.entity.state.MaxHealth() }
func (h *HostHandle) Alive() bool        { return h.entity.state.Alive() }

// IdentityRecord 身份记录快照（HUD、击杀播报等表现层使用）
func (h *HostHandle) IdentityRecord() Identity { return h.entity.state.IdentityRecord() }

// Phase 生命周期阶段；Despawned 之后请求会被按过期句柄丢弃
func (h *HostHandle) Phase() LifecyclePhase { return h.entity.Phase() }

func (h *HostHandle) RequestDamage(amount float64) { h.request(OpDamage, amount, 0) }
func (h *HostHandle) RequestHeal(amount float64)   { h.request(OpHeal, amount, 0) }

func (h *HostHandle) RequestExponentialDamageTick(dt float64) { h.request(OpDecayTick, 0, dt) }
func (h *HostHandle) RequestLinearRecoveryTick(dt float64)    { h.request(OpRecoveryTick, 0, dt) }

func (h *HostHandle) RequestReset() { h.request(OpReset, 0, 0) }

func (h *HostHandle) request(op Op, amount, dt float64) {
	h.session.EnqueueRequest(Request{
		From:   "local",
		Entity: h.id,
		Op:     op,
		Amount: amount,
		Dt:     dt,
	})
}

// Subscribe 订阅该实体的变更通知；despawn 时会话统一释放全部订阅
func (h *HostHandle) Subscribe(onHealth HealthChangedFn, onAlive AliveChangedFn) SubToken {
	return h.entity.state.Subscribe(onHealth, onAlive)
}

func (h *HostHandle) Unsubscribe(token SubToken) {
	h.entity.state.Unsubscribe(token)
}

// requestFromMessage 把入站 JSON 请求转换为内部请求（未知操作原样传递，
// 由执行侧忽略）
func requestFromMessage(from string, msg RequestMessage) Request {
	return Request{
		From:   from,
		Entity: EntityID(msg.Entity),
		Op:     Op(msg.Op),
		Amount: msg.Amount,
		Dt:     msg.Dt,
		Seq:    msg.Seq,
	}
}
