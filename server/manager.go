package server

import "sync"

// SessionManager 管理多个会话的生命周期
// 本进程即“主机”：它创建的会话都持有权威能力
type SessionManager struct {
	mu       sync.RWMutex
	cfg      Config
	sessions map[string]*Session
}

var (
	defaultManager *SessionManager
	once           sync.Once
)

// GetSessionManager 单例会话管理器
func GetSessionManager() *SessionManager {
	once.Do(func() {
		defaultManager = &SessionManager{
			cfg:      DefaultConfig(),
			sessions: make(map[string]*Session),
		}
	})
	return defaultManager
}

// Configure 设置后续新建会话使用的配置（启动时调用一次）
func (m *SessionManager) Configure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
}

// GetOrCreateSession 获取或创建会话，并确保开始 Tick
func (m *SessionManager) GetOrCreateSession(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = NewSession(id, m.cfg, true)
		m.sessions[id] = s
		s.StartTicker()
	}
	return s
}
