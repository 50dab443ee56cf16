package server

// EntityID 实体唯一标识，由权威进程在 Spawn 时一次性分配；分配前为空串
type EntityID string

// Variant 角色外观/皮肤选择（权威在初始化时下发）
// VariantNone 是合法的默认值，不是错误
type Variant int

const (
	VariantNone Variant = iota
	VariantScout
	VariantTank
	VariantMedic
)

// Identity 实体身份记录：ID 分配后不可变，
// DisplayName/Variant 只能经同一条初始化路径整体重发，不支持部分更新
type Identity struct {
	ID          EntityID
	DisplayName string
	Variant     Variant
}

func variantName(v Variant) string {
	switch v {
	case VariantScout:
		return "scout"
	case VariantTank:
		return "tank"
	case VariantMedic:
		return "medic"
	default:
		return "none"
	}
}

// VariantFromString 解析客户端上报的皮肤名，未知值回退到 VariantNone
func VariantFromString(s string) Variant {
	switch s {
	case "scout":
		return VariantScout
	case "tank":
		return VariantTank
	case "medic":
		return VariantMedic
	default:
		return VariantNone
	}
}
