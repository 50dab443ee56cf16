package server

import "time"

const (
	// DefaultTicksPerSecond 会话推进频率缺省值（20 TPS）
	DefaultTicksPerSecond = 20
)

// StartTicker 启动会话的 Tick 协程（单线程推进全部权威状态）
func (s *Session) StartTicker() {
	if s.tickerStarted {
		return
	}
	s.tickerStarted = true
	go s.run()
}

// run 会话主循环：生命周期事件与请求即时入队，状态推进只发生在 Tick
func (s *Session) run() {
	tps := s.ticksPerSecond
	if tps <= 0 {
		tps = DefaultTicksPerSecond
	}
	ticker := time.NewTicker(time.Second / time.Duration(tps))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-s.quit:
			return
		case sp := <-s.spawnChan:
			id, e := s.handleSpawn(sp.seed)
			sp.reply <- &HostHandle{session: s, entity: e, id: id}
		case id := <-s.despawnChan:
			s.handleDespawn(id)
		case j := <-s.joinChan:
			s.handleJoin(j)
		case name := <-s.leaveChan:
			s.handleLeave(name)
		case req := <-s.inbound:
			s.route(req)
		case now := <-ticker.C:
			// 核心循环：路由积压请求 → 逐实体按序执行 → 环境再生
			start := time.Now()
			dt := now.Sub(last).Seconds()
			last = now
			s.drainInbound()
			s.applyRequests()
			s.applyRegen(dt)
			s.tickSeq.Add(1)
			s.metrics.AddTick(time.Since(start).Nanoseconds())
		}
	}
}
