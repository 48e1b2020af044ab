package game

import (
	"math"
	"math/rand"
)

// PriceModel 价格冲击模型
//
// 成交后的新价格由相对订单规模和市场深度共同决定：
// 订单越大、流通量越小，价格波动越剧烈；流通量越大，
// 同样的订单对价格的冲击越迟钝。抖动只作用于冲击分量，
// 零冲击时价格严格不变。
type PriceModel struct {
	jitterMin float64
	jitterMax float64
	rng       *rand.Rand
}

// NewPriceModel 创建价格模型
// rng 可注入固定种子用于测试，传 nil 时使用默认随机源
func NewPriceModel(jitterMin, jitterMax float64, rng *rand.Rand) *PriceModel {
	if jitterMin <= 0 || jitterMax < jitterMin {
		jitterMin, jitterMax = 0.75, 1.25
	}
	return &PriceModel{
		jitterMin: jitterMin,
		jitterMax: jitterMax,
		rng:       rng,
	}
}

// NextPrice 计算一笔成交后的新价格
//
// currentPrice 当前价格；quantity 成交数量；
// totalOwned 房间内该股票的流通总量（本轮执行开始时的快照）；
// isBuy 买单抬价，卖单压价。返回值不低于1。
func (m *PriceModel) NextPrice(currentPrice, quantity, totalOwned int64, isBuy bool) int64 {
	if currentPrice < 1 {
		currentPrice = 1
	}
	if quantity <= 0 {
		return currentPrice
	}

	// 流通量越大市场越深，冲击被对数压缩；+e 保证深度不小于1
	marketDepth := math.Log(float64(totalOwned) + math.E)

	// +1 避免零流通量时除零，此时任何订单都是"大单"
	relativeSize := float64(quantity) / (float64(totalOwned) + 1)

	// sigmoid 压缩到 (0,1)，再按深度缩放
	baseImpact := 2/(1+math.Exp(-relativeSize)) - 1
	scaledImpact := baseImpact / marketDepth

	// 抖动只作用于冲击分量
	jitter := m.jitterMin + m.random()*(m.jitterMax-m.jitterMin)

	direction := 1.0
	if !isBuy {
		direction = -1.0
	}

	multiplier := 1 + scaledImpact*jitter*direction
	next := int64(math.Round(float64(currentPrice) * multiplier))
	if next < 1 {
		next = 1
	}
	return next
}

func (m *PriceModel) random() float64 {
	if m.rng != nil {
		return m.rng.Float64()
	}
	return rand.Float64()
}
