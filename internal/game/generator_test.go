package game

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/party-market/internal/models"
)

func sampleStocks() []*models.Stock {
	return []*models.Stock{
		{BaseModel: models.BaseModel{ID: 1}, Symbol: "QUANT", Name: "Quantum Leap Labs", CurrentPrice: 100, DividendAmount: 5},
		{BaseModel: models.BaseModel{ID: 2}, Symbol: "ROBO", Name: "Robo Butlers", CurrentPrice: 60, DividendAmount: 10},
		{BaseModel: models.BaseModel{ID: 3}, Symbol: "CSM", Name: "Couch Supreme", CurrentPrice: 40, DividendAmount: 8},
	}
}

func TestTemplateGenerator_Generate(t *testing.T) {
	gen := NewTemplateGenerator(rand.New(rand.NewSource(3)))

	draft, err := gen.Generate(context.Background(), &GeneratorInput{
		Round: 2, TotalRounds: 10, Stocks: sampleStocks(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, draft.Title)
	assert.NotEmpty(t, draft.Description)
	assert.NotEmpty(t, draft.Effects)
	for _, effect := range draft.Effects {
		assert.NoError(t, effect.Validate())
		assert.Contains(t, []uint{1, 2, 3}, effect.StockID)
	}
}

func TestTemplateGenerator_效果数量固定在2到5(t *testing.T) {
	// DNS+DRM+ROBO 全命中时监管模板原始产出6条，需截断
	stocks := []*models.Stock{
		{BaseModel: models.BaseModel{ID: 1}, Symbol: "DNS", CurrentPrice: 80, DividendAmount: 6},
		{BaseModel: models.BaseModel{ID: 2}, Symbol: "DRM", CurrentPrice: 120, DividendAmount: 4},
		{BaseModel: models.BaseModel{ID: 3}, Symbol: "ROBO", CurrentPrice: 60, DividendAmount: 10},
	}
	for seed := int64(0); seed < 20; seed++ {
		gen := NewTemplateGenerator(rand.New(rand.NewSource(seed)))
		draft, err := gen.Generate(context.Background(), &GeneratorInput{
			Round: 1, TotalRounds: 10, Stocks: stocks,
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(draft.Effects), 2, "seed %d", seed)
		assert.LessOrEqual(t, len(draft.Effects), 5, "seed %d", seed)
	}

	// 只命中1只股票时补伴随效果凑满2条
	single := []*models.Stock{
		{BaseModel: models.BaseModel{ID: 7}, Symbol: "QUANT", CurrentPrice: 100, DividendAmount: 5},
	}
	for seed := int64(0); seed < 20; seed++ {
		gen := NewTemplateGenerator(rand.New(rand.NewSource(seed)))
		draft, err := gen.Generate(context.Background(), &GeneratorInput{
			Round: 1, TotalRounds: 10, Stocks: single,
		})
		require.NoError(t, err)
		require.Len(t, draft.Effects, 2, "seed %d", seed)
		assert.NotEqual(t, draft.Effects[0].Type, draft.Effects[1].Type)
		for _, effect := range draft.Effects {
			assert.NoError(t, effect.Validate())
			assert.Equal(t, uint(7), effect.StockID)
		}
	}
}

func TestTemplateGenerator_无股票时报错(t *testing.T) {
	gen := NewTemplateGenerator(rand.New(rand.NewSource(3)))
	_, err := gen.Generate(context.Background(), &GeneratorInput{Round: 1, TotalRounds: 10})
	assert.Error(t, err)
}

func TestParseDraft(t *testing.T) {
	stocks := sampleStocks()

	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(t *testing.T, draft *EventDraft)
	}{
		{
			name: "标准输出",
			content: `TITLE
The Butler Uprising

DESCRIPTION
Domestic robots unionize and demand weekends off.

STOCK EFFECTS
- ROBO | price | -15
- CSM | dividends | +4`,
			check: func(t *testing.T, draft *EventDraft) {
				assert.Equal(t, "The Butler Uprising", draft.Title)
				require.Len(t, draft.Effects, 2)
				assert.Equal(t, models.EffectPriceChange, draft.Effects[0].Type)
				assert.Equal(t, uint(2), draft.Effects[0].StockID)
				assert.Equal(t, int64(-15), draft.Effects[0].Amount)
				assert.Equal(t, models.EffectDividendChange, draft.Effects[1].Type)
				assert.Equal(t, int64(4), draft.Effects[1].Amount)
			},
		},
		{
			name: "带股票名的四列格式",
			content: `TITLE
Quantum Flash Sale

DESCRIPTION
Everything is 50% off in a superposition of sold and unsold.

STOCK EFFECTS
- QUANT | Quantum Leap Labs | price | +30
- quant | Quantum Leap Labs | dividends | -2`,
			check: func(t *testing.T, draft *EventDraft) {
				require.Len(t, draft.Effects, 2)
				assert.Equal(t, uint(1), draft.Effects[0].StockID)
				assert.Equal(t, int64(30), draft.Effects[0].Amount)
			},
		},
		{
			name: "未知股票代码拒绝",
			content: `TITLE
Ghost Stock

DESCRIPTION
A stock nobody has heard of.

STOCK EFFECTS
- GHOST | price | +10
- ROBO | price | +5`,
			wantErr: true,
		},
		{
			name: "效果数量不足拒绝",
			content: `TITLE
Tiny Event

DESCRIPTION
Barely anything happens.

STOCK EFFECTS
- ROBO | price | +1`,
			wantErr: true,
		},
		{
			name:    "缺少段落拒绝",
			content: `just some rambling text`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := parseDraft(tt.content, stocks)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, draft)
		})
	}
}

func TestDrawStocks(t *testing.T) {
	stocks := DrawStocks(7, 10, rand.New(rand.NewSource(99)))
	require.Len(t, stocks, 10)

	seen := make(map[string]bool)
	for _, s := range stocks {
		assert.Equal(t, uint(7), s.RoomID)
		assert.False(t, seen[s.Symbol], "股票代码不应重复")
		seen[s.Symbol] = true
		assert.GreaterOrEqual(t, s.CurrentPrice, int64(1))
		assert.GreaterOrEqual(t, s.DividendAmount, int64(0))
	}

	// 同一种子可复现
	again := DrawStocks(7, 10, rand.New(rand.NewSource(99)))
	for i := range stocks {
		assert.Equal(t, stocks[i].Symbol, again[i].Symbol)
		assert.Equal(t, stocks[i].CurrentPrice, again[i].CurrentPrice)
	}

	// 超出池大小时全池返回
	all := DrawStocks(7, 100, rand.New(rand.NewSource(1)))
	assert.Len(t, all, len(defaultTemplates))
}
