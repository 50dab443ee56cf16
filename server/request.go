package server

// Op 变更请求的操作种类
type Op string

const (
	OpDamage       Op = "damage"
	OpHeal         Op = "heal"
	OpDecayTick    Op = "decay_tick"
	OpRecoveryTick Op = "recovery_tick"
	OpReset        Op = "reset"
)

// Request 内部变更请求（意图）：任何参与者都可以“请求”，
// 只有权威进程的 Tick 协程才会把它落到状态上
type Request struct {
	From   string // 请求方标识，用于日志与同源有序
	Entity EntityID
	Op     Op
	Amount float64
	Dt     float64
	Seq    int64 // 请求方本地序列号，仅用于排查
}

// RequestMessage 入站请求的 JSON 结构（WebSocket 文本消息）
// 示例：{"type":"request","entity":"e-1","op":"damage","amount":10}
type RequestMessage struct {
	Type   string  `json:"type"`
	Entity string  `json:"entity"`
	Op     string  `json:"op"`
	Amount float64 `json:"amount,omitempty"`
	Dt     float64 `json:"dt,omitempty"`
	Seq    int64   `json:"seq,omitempty"`
}

// EventMessage 权威进程向观察者推送的状态事件
// type: init（身份+全量快照）| field（本批变更字段）| despawn
// 传输层保证按序可靠投递，镜像只按到达顺序套用，绝不自行推算
type EventMessage struct {
	Type      string   `json:"type"`
	Entity    string   `json:"entity"`
	Name      string   `json:"name,omitempty"`
	Variant   int      `json:"variant,omitempty"`
	MaxHealth float64  `json:"maxHealth,omitempty"`
	Health    *float64 `json:"health,omitempty"`
	Alive     *bool    `json:"alive,omitempty"`
	Seq       uint64   `json:"seq,omitempty"`
}
