package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceModel_NextPrice(t *testing.T) {
	tests := []struct {
		name       string
		price      int64
		quantity   int64
		totalOwned int64
		isBuy      bool
		check      func(t *testing.T, next int64)
	}{
		{
			name:     "零数量价格不变",
			price:    50,
			quantity: 0, totalOwned: 100, isBuy: true,
			check: func(t *testing.T, next int64) {
				assert.Equal(t, int64(50), next)
			},
		},
		{
			name:     "零流通量不除零",
			price:    50,
			quantity: 10, totalOwned: 0, isBuy: true,
			check: func(t *testing.T, next int64) {
				assert.Greater(t, next, int64(50))
			},
		},
		{
			name:     "买单抬价",
			price:    100,
			quantity: 20, totalOwned: 50, isBuy: true,
			check: func(t *testing.T, next int64) {
				assert.Greater(t, next, int64(100))
			},
		},
		{
			name:     "卖单压价",
			price:    100,
			quantity: 20, totalOwned: 50, isBuy: false,
			check: func(t *testing.T, next int64) {
				assert.Less(t, next, int64(100))
			},
		},
		{
			name:     "低价卖出不跌破1",
			price:    1,
			quantity: 1000, totalOwned: 10, isBuy: false,
			check: func(t *testing.T, next int64) {
				assert.Equal(t, int64(1), next)
			},
		},
		{
			name:     "深市场小单几乎不动",
			price:    100,
			quantity: 1, totalOwned: 100000, isBuy: true,
			check: func(t *testing.T, next int64) {
				assert.InDelta(t, 100, float64(next), 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := NewPriceModel(0.75, 1.25, rand.New(rand.NewSource(42)))
			tt.check(t, model.NextPrice(tt.price, tt.quantity, tt.totalOwned, tt.isBuy))
		})
	}
}

// 大单对浅市场的冲击应显著强于对深市场
func TestPriceModel_DepthDampensImpact(t *testing.T) {
	shallow := NewPriceModel(1.0, 1.0, rand.New(rand.NewSource(1)))
	deep := NewPriceModel(1.0, 1.0, rand.New(rand.NewSource(1)))

	shallowNext := shallow.NextPrice(100, 10, 10, true)
	deepNext := deep.NextPrice(100, 10, 10000, true)

	assert.Greater(t, shallowNext-100, deepNext-100)
}

// 抖动区间固定为1时结果可复现
func TestPriceModel_DeterministicWithoutJitter(t *testing.T) {
	a := NewPriceModel(1.0, 1.0, rand.New(rand.NewSource(7)))
	b := NewPriceModel(1.0, 1.0, rand.New(rand.NewSource(99)))

	assert.Equal(t,
		a.NextPrice(80, 5, 40, true),
		b.NextPrice(80, 5, 40, true))
}

// 非法抖动区间回退到默认值
func TestNewPriceModel_InvalidJitter(t *testing.T) {
	model := NewPriceModel(2.0, 1.0, rand.New(rand.NewSource(1)))
	assert.Equal(t, 0.75, model.jitterMin)
	assert.Equal(t, 1.25, model.jitterMax)
}
