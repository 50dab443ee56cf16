package server

import "math"

const (
	// BaseDecayRate 指数衰减的固定基础速率（每秒伤害量）
	BaseDecayRate = 5.0
	// DecayExponent 缺失生命值的指数：缺口越大伤害越高，满血时只剩基础速率
	DecayExponent = 1.2
	// RecoveryFraction 线性恢复速率：每秒恢复最大生命值的 10%，与当前血量无关
	RecoveryFraction = 0.1
)

// ExponentialDecay 计算一次衰减 Tick 后的新生命值
// damage = BaseDecayRate*dt + max(0, maxHealth-health)^1.2 * dt
// dt <= 0 原样返回；maxHealth = 0 时缺口恒为 0，退化为只扣基础速率
func ExponentialDecay(health, maxHealth, dt float64) float64 {
	if dt <= 0 {
		return health
	}
	missing := math.Max(0, maxHealth-health)
	damage := BaseDecayRate*dt + math.Pow(missing, DecayExponent)*dt
	return math.Max(0, health-damage)
}

// LinearRecovery 计算一次恢复 Tick 后的新生命值（封顶 maxHealth，无除法）
func LinearRecovery(health, maxHealth, dt float64) float64 {
	if dt <= 0 {
		return health
	}
	return math.Min(maxHealth, health+maxHealth*RecoveryFraction*dt)
}
