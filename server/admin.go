package server

import (
	"encoding/json"
	"net/http"
)

// HandleAdminConfig 提供会话参数的读取与热更新
// GET /admin/config?session=session-1  返回当前配置
// POST /admin/config?session=session-1 以 JSON 载荷更新部分字段
func HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = "session-1"
	}
	sm := GetSessionManager()
	session := sm.GetOrCreateSession(sessionID)

	type cfg struct {
		RegenMode          *string  `json:"regenMode,omitempty"`
		MaxRequestsPerTick *int     `json:"maxRequestsPerTick,omitempty"`
		SimulateDelayMinMs *int     `json:"simulateDelayMinMs,omitempty"`
		SimulateDelayMaxMs *int     `json:"simulateDelayMaxMs,omitempty"`
		SimulateDropProb   *float64 `json:"simulateDropProb,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		mode := session.RegenMode().String()
		maxReq := int(session.maxRequestsPerTick.Load())
		delayMin := int(session.simulateDelayMinMs.Load())
		delayMax := int(session.simulateDelayMaxMs.Load())
		drop := session.dropProb()
		cur := cfg{
			RegenMode:          &mode,
			MaxRequestsPerTick: &maxReq,
			SimulateDelayMinMs: &delayMin,
			SimulateDelayMaxMs: &delayMax,
			SimulateDropProb:   &drop,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cur)
		return
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.RegenMode != nil {
			session.SetRegenMode(RegenModeFromString(*body.RegenMode))
		}
		if body.MaxRequestsPerTick != nil {
			session.maxRequestsPerTick.Store(int64(*body.MaxRequestsPerTick))
		}
		if body.SimulateDelayMinMs != nil {
			session.simulateDelayMinMs.Store(int64(*body.SimulateDelayMinMs))
		}
		if body.SimulateDelayMaxMs != nil {
			session.simulateDelayMaxMs.Store(int64(*body.SimulateDelayMaxMs))
		}
		if body.SimulateDropProb != nil {
			session.setDropProb(*body.SimulateDropProb)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		Log.Infof("config updated: session=%s regen=%s maxRequestsPerTick=%d delay=[%d,%d] drop=%.2f",
			sessionID, session.RegenMode(), session.maxRequestsPerTick.Load(),
			session.simulateDelayMinMs.Load(), session.simulateDelayMaxMs.Load(), session.dropProb())
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 输出指定会话的运行指标
// GET /metrics?session=session-1
func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = "session-1"
	}
	sm := GetSessionManager()
	session := sm.GetOrCreateSession(sessionID)
	payload := map[string]any{
		"session": sessionID,
		"tick":    session.tickSeq.Load(),
		"metrics": session.metrics.Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
