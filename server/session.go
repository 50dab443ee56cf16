package server

import (
	"encoding/json"
	"math"
	"sync/atomic"
)

// RegenMode 会话级环境再生模式：权威用自己的时钟驱动全场实体的再生 Tick
type RegenMode int

const (
	RegenNone RegenMode = iota
	RegenDecay
	RegenRecovery
)

func (m RegenMode) String() string {
	switch m {
	case RegenDecay:
		return "decay"
	case RegenRecovery:
		return "recovery"
	default:
		return "none"
	}
}

// RegenModeFromString 解析 admin 下发的模式名，未知值回退到 none
func RegenModeFromString(s string) RegenMode {
	switch s {
	case "decay":
		return RegenDecay
	case "recovery":
		return RegenRecovery
	default:
		return RegenNone
	}
}

type spawnReq struct {
	seed  SpawnSeed
	reply chan *HostHandle
}

// EventConn 向参与者下发事件的发送端（真实连接为 ClientConn）
type EventConn interface {
	Enqueue(b []byte)
	Close()
}

type joinReq struct {
	name  string
	seed  SpawnSeed
	conn  EventConn
	reply chan *HostHandle
}

// participant 已接入的远端参与者：发送端连接 + 名下实体
type participant struct {
	conn   EventConn
	entity EntityID
}

// Session 会话：权威状态全部驻留内存，由单一 Tick 协程推进
// 生命周期事件（spawn/despawn/join/leave）与变更请求都经通道进入该协程，
// 同一实体的读-改-写永不交错；不同会话互不影响
type Session struct {
	ID string

	// 构造时固定的权威能力（所有权令牌）：非权威会话的写入全部静默失效
	authoritative bool

	entities     map[EntityID]*Entity
	participants map[string]*participant

	inbound     chan Request
	spawnChan   chan spawnReq
	despawnChan chan EntityID
	joinChan    chan joinReq
	leaveChan   chan string

	// 构造后只读的会话参数
	maxHealth      float64
	ticksPerSecond int

	// admin 接口可热更的参数：Tick 协程、读泵与 HTTP 并发访问，原子读写
	maxRequestsPerTick atomic.Int64
	regenMode          atomic.Int32
	simulateDelayMinMs atomic.Int64
	simulateDelayMaxMs atomic.Int64
	simulateDropProb   atomic.Uint64 // float64 位模式

	nextID  uint64 // 实体编号单调递增，despawn 后不复用
	seq     uint64 // 广播事件序号
	tickSeq atomic.Int64

	metrics       *SessionMetrics
	tickerStarted bool
	quit          chan struct{}
}

// NewSession 创建会话，初始化数据结构（不启动 Tick）
func NewSession(id string, cfg Config, authoritative bool) *Session {
	s := &Session{
		ID:             id,
		authoritative:  authoritative,
		entities:       make(map[EntityID]*Entity),
		participants:   make(map[string]*participant),
		inbound:        make(chan Request, 256), // 足够缓冲，避免网络读阻塞影响 Tick
		spawnChan:      make(chan spawnReq, 16),
		despawnChan:    make(chan EntityID, 64),
		joinChan:       make(chan joinReq, 16),
		leaveChan:      make(chan string, 64),
		maxHealth:      cfg.MaxHealth,
		ticksPerSecond: cfg.TicksPerSecond,
		metrics:        &SessionMetrics{},
		quit:           make(chan struct{}),
	}
	s.maxRequestsPerTick.Store(int64(cfg.MaxRequestsPerTick))
	return s
}

// RegenMode 当前环境再生模式
func (s *Session) RegenMode() RegenMode {
	return RegenMode(s.regenMode.Load())
}

// SetRegenMode 切换环境再生模式（admin 热更）
func (s *Session) SetRegenMode(m RegenMode) {
	s.regenMode.Store(int32(m))
}

func (s *Session) dropProb() float64 {
	return math.Float64frombits(s.simulateDropProb.Load())
}

func (s *Session) setDropProb(p float64) {
	s.simulateDropProb.Store(math.Float64bits(p))
}

// Spawn 协作方（移动/表现控制器等）接入一个新实体，返回可轮询的句柄
// 创建动作在 Tick 协程中执行，调用方阻塞等待句柄
func (s *Session) Spawn(seed SpawnSeed) *HostHandle {
	reply := make(chan *HostHandle, 1)
	s.spawnChan <- spawnReq{seed: seed, reply: reply}
	return <-reply
}

// Despawn 请求在 Tick 协程中移除实体（幂等，重复调用无害）
func (s *Session) Despawn(h *HostHandle) {
	if h == nil {
		return
	}
	s.despawnChan <- h.id
}

// EnqueueRequest 变更请求入站（非阻塞，拥塞时丢弃并计数）
// 路由到实体专属队列的动作在 Tick 协程中完成，实体表不被并发触碰
func (s *Session) EnqueueRequest(req Request) {
	select {
	case s.inbound <- req:
	default:
		s.metrics.IncChanFullDiscarded()
	}
}

// Join 远端参与者接入：注册发送端连接并为其 spawn 名下实体
func (s *Session) Join(name string, seed SpawnSeed, conn EventConn) *HostHandle {
	reply := make(chan *HostHandle, 1)
	s.joinChan <- joinReq{name: name, seed: seed, conn: conn, reply: reply}
	return <-reply
}

// RequestLeave 读泵退出时请求在 Tick 协程中移除参与者
// 为保证移除一定生效，这里阻塞式写入（通道有容量，不会死锁）
func (s *Session) RequestLeave(name string) {
	s.leaveChan <- name
}

// Stop 结束 Tick 协程（测试与优雅退出用）
func (s *Session) Stop() {
	close(s.quit)
}

// handleJoin 在 Tick 协程中完成接入：同名重连时先移除旧实体与旧连接
// 旧参与者必须先出表再 despawn：despawn 广播不能再打到已关闭的连接上
func (s *Session) handleJoin(j joinReq) {
	if old, ok := s.participants[j.name]; ok {
		delete(s.participants, j.name)
		if old.conn != nil {
			old.conn.Close()
		}
		s.handleDespawn(old.entity)
	}
	id, e := s.handleSpawn(j.seed)
	s.participants[j.name] = &participant{conn: j.conn, entity: id}
	s.sendSnapshot(j.conn)
	j.reply <- &HostHandle{session: s, entity: e, id: id}
}

// handleLeave 在 Tick 协程中移除参与者及其名下实体
// 先出表再 despawn，despawn 广播只发给仍在场的参与者
func (s *Session) handleLeave(name string) {
	p, ok := s.participants[name]
	if !ok {
		return
	}
	delete(s.participants, name)
	if p.conn != nil {
		p.conn.Close()
	}
	s.handleDespawn(p.entity)
}

// route 将入站请求路由到目标实体的专属队列
// 实体不存在或已 despawn 的请求按过期句柄静默丢弃（仅本地日志）
func (s *Session) route(req Request) {
	e, ok := s.entities[req.Entity]
	if !ok || e.Phase() == PhaseDespawned {
		s.metrics.IncDroppedStale()
		Log.Debugf("stale request dropped: session=%s entity=%s op=%s from=%s",
			s.ID, req.Entity, req.Op, req.From)
		return
	}
	select {
	case e.requests <- req:
	default:
		s.metrics.IncChanFullDiscarded()
	}
}

// drainInbound 把当前积压的入站请求全部路由完（非阻塞 drain）
func (s *Session) drainInbound() {
	for {
		select {
		case req := <-s.inbound:
			s.route(req)
		default:
			return
		}
	}
}

// applyRequests 逐实体消费请求队列，每 Tick 最多执行 maxRequestsPerTick 条
// 超出部分留在队列里下个 Tick 继续，先后次序不变
func (s *Session) applyRequests() {
	limit := int(s.maxRequestsPerTick.Load())
	for _, e := range s.entities {
		n := 0
	drain:
		for limit <= 0 || n < limit {
			select {
			case req := <-e.requests:
				s.apply(e, req)
				n++
			default:
				break drain
			}
		}
		if len(e.requests) > 0 {
			s.metrics.IncDeferred()
		}
	}
}

// apply 把一条请求落到实体状态上（仅 Tick 协程调用）
func (s *Session) apply(e *Entity, req Request) {
	st := e.state
	switch req.Op {
	case OpDamage, OpHeal, OpDecayTick, OpRecoveryTick:
		// 死亡锁定：复活前任何伤害/治疗/再生请求都不改变生命值
		if !st.Alive() {
			s.metrics.IncDroppedDead()
			return
		}
	}
	switch req.Op {
	case OpDamage:
		st.ApplyDamage(req.Amount)
	case OpHeal:
		st.Heal(req.Amount)
	case OpDecayTick:
		st.ApplyExponentialDamage(req.Dt)
	case OpRecoveryTick:
		st.ApplyLinearRecovery(req.Dt)
	case OpReset:
		st.ResetHealth()
	default:
		return // 未知操作直接忽略
	}
	s.metrics.IncAccepted()
}

// applyRegen 环境再生：按真实流逝时间对全场存活实体驱动一次再生 Tick
func (s *Session) applyRegen(dt float64) {
	mode := s.RegenMode()
	if mode == RegenNone || dt <= 0 {
		return
	}
	for _, e := range s.entities {
		if e.Phase() != PhaseSpawnedInitialized || !e.state.Alive() {
			continue
		}
		switch mode {
		case RegenDecay:
			e.state.ApplyExponentialDamage(dt)
		case RegenRecovery:
			e.state.ApplyLinearRecovery(dt)
		}
	}
}

// broadcastChange 复制通道钩子：一次写入的变更批次整体下发给全部参与者
func (s *Session) broadcastChange(change FieldChange) {
	ev := EventMessage{
		Type:   "field",
		Entity: string(change.Entity),
		Health: change.Health,
		Alive:  change.Alive,
	}
	s.broadcast(&ev)
}

// broadcastInit 实体初始化完成后下发身份与全量快照
func (s *Session) broadcastInit(id EntityID, e *Entity) {
	s.broadcast(s.initEvent(id, e))
}

func (s *Session) broadcastDespawn(id EntityID) {
	s.broadcast(&EventMessage{Type: "despawn", Entity: string(id)})
}

func (s *Session) initEvent(id EntityID, e *Entity) *EventMessage {
	ident := e.state.IdentityRecord()
	h := e.state.Health()
	a := e.state.Alive()
	return &EventMessage{
		Type:      "init",
		Entity:    string(id),
		Name:      ident.DisplayName,
		Variant:   int(ident.Variant),
		MaxHealth: e.state.MaxHealth(),
		Health:    &h,
		Alive:     &a,
	}
}

// broadcast 给所有参与者投递一条事件（文本 JSON，发送端非阻塞）
func (s *Session) broadcast(ev *EventMessage) {
	s.seq++
	ev.Seq = s.seq
	b, err := json.Marshal(ev)
	if err != nil {
		Log.Errorf("marshal event: %v", err)
		return
	}
	for _, p := range s.participants {
		if p.conn != nil {
			p.conn.Enqueue(b)
		}
	}
	s.metrics.IncBroadcast()
}

// sendSnapshot 给新接入的连接补发现有实体的 init 事件，令镜像追平现状
func (s *Session) sendSnapshot(conn EventConn) {
	if conn == nil {
		return
	}
	for id, e := range s.entities {
		if e.Phase() != PhaseSpawnedInitialized {
			continue
		}
		s.seq++
		ev := s.initEvent(id, e)
		ev.Seq = s.seq
		b, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		conn.Enqueue(b)
	}
}
