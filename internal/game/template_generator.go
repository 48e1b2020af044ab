package game

import (
	"context"
	"math/rand"
	"sync"

	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/models"
)

// eventTemplate 事件模板
// 效果按当前股票状态计算，所以同一模板在不同局面下力度不同
type eventTemplate struct {
	Title       string
	Description string
	Effects     func(stocks []*models.Stock) models.EffectList
}

// 效果目标按股票代码挑选，抽不中任何目标的模板会被跳过重抽
var eventTemplates = []eventTemplate{
	{
		Title:       "Tech Innovation Breakthrough",
		Description: "A revolutionary AI technology sparks investor interest in tech companies",
		Effects: func(stocks []*models.Stock) models.EffectList {
			var effects models.EffectList
			for _, s := range pickBySymbol(stocks, "QUANT", "DRM", "MEMQ") {
				effects = append(effects, models.StockEffect{
					Type: models.EffectPriceChange, StockID: s.ID,
					Amount: s.CurrentPrice / 5,
				})
			}
			return effects
		},
	},
	{
		Title:       "Supply Chain Disruption",
		Description: "Global logistics issues affect manufacturing and delivery capabilities",
		Effects: func(stocks []*models.Stock) models.EffectList {
			var effects models.EffectList
			for _, s := range pickBySymbol(stocks, "SPACE", "ROBO", "CLD") {
				effects = append(effects, models.StockEffect{
					Type: models.EffectPriceChange, StockID: s.ID,
					Amount: -(s.CurrentPrice * 15 / 100),
				})
			}
			return effects
		},
	},
	{
		Title:       "Consumer Spending Surge",
		Description: "Unexpected rise in consumer confidence boosts retail and entertainment sectors",
		Effects: func(stocks []*models.Stock) models.EffectList {
			var effects models.EffectList
			for _, s := range pickBySymbol(stocks, "CSM", "MEMQ", "UCRN", "BRGR") {
				effects = append(effects, models.StockEffect{
					Type: models.EffectDividendChange, StockID: s.ID,
					Amount: s.DividendAmount/2 + 1,
				})
			}
			return effects
		},
	},
	{
		Title:       "Regulatory Changes",
		Description: "New government regulations impact multiple industry sectors",
		Effects: func(stocks []*models.Stock) models.EffectList {
			var effects models.EffectList
			for _, s := range pickBySymbol(stocks, "DNS", "DRM", "ROBO") {
				effects = append(effects,
					models.StockEffect{
						Type: models.EffectPriceChange, StockID: s.ID,
						Amount: -(s.CurrentPrice / 10),
					},
					models.StockEffect{
						Type: models.EffectDividendChange, StockID: s.ID,
						Amount: -(s.DividendAmount * 3 / 10),
					})
			}
			return effects
		},
	},
	{
		Title:       "Market Innovation Fund",
		Description: "Government announces support for innovative companies",
		Effects: func(stocks []*models.Stock) models.EffectList {
			var effects models.EffectList
			for _, s := range pickBySymbol(stocks, "QUANT", "DNS", "ROBO", "FSH") {
				effects = append(effects, models.StockEffect{
					Type: models.EffectDividendChange, StockID: s.ID,
					Amount: s.DividendAmount*2/5 + 1,
				})
			}
			return effects
		},
	},
	{
		Title:       "Eruption Warning Lifted",
		Description: "Geologists declare the resort area perfectly safe, probably",
		Effects: func(stocks []*models.Stock) models.EffectList {
			var effects models.EffectList
			for _, s := range pickBySymbol(stocks, "VLCN", "UCRN", "SPACE") {
				effects = append(effects, models.StockEffect{
					Type: models.EffectPriceChange, StockID: s.ID,
					Amount: s.CurrentPrice / 4,
				})
			}
			return effects
		},
	},
}

func pickBySymbol(stocks []*models.Stock, symbols ...string) []*models.Stock {
	wanted := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		wanted[sym] = true
	}
	var picked []*models.Stock
	for _, s := range stocks {
		if wanted[s.Symbol] {
			picked = append(picked, s)
		}
	}
	return picked
}

// TemplateGenerator 模板事件生成器
// 从内置模板池随机抽取，不依赖外部服务
type TemplateGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewTemplateGenerator 创建模板生成器
// rng 可注入固定种子用于测试，传 nil 时使用默认随机源
func NewTemplateGenerator(rng *rand.Rand) *TemplateGenerator {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &TemplateGenerator{rng: rng}
}

// Generate 抽取一个对当前股票有实际效果的模板
// 和LLM路径一样，产出固定在2~5个效果
func (g *TemplateGenerator) Generate(ctx context.Context, input *GeneratorInput) (*EventDraft, error) {
	if len(input.Stocks) == 0 {
		return nil, apperrors.New(apperrors.ErrGeneratorFailed, "房间内没有股票")
	}

	g.mu.Lock()
	order := g.rng.Perm(len(eventTemplates))
	g.mu.Unlock()

	// 按随机顺序找第一个命中当前股票的模板
	for _, idx := range order {
		tpl := eventTemplates[idx]
		effects := tpl.Effects(input.Stocks)
		if len(effects) == 0 {
			continue
		}
		return &EventDraft{
			Title:       tpl.Title,
			Description: tpl.Description,
			Effects:     clampEffects(effects, input.Stocks),
		}, nil
	}

	return nil, apperrors.New(apperrors.ErrGeneratorFailed, "没有模板命中当前股票")
}

// clampEffects 把模板产出约束到2~5个：超出截断，
// 只命中1个时补一条同股票另一类型的伴随效果
func clampEffects(effects models.EffectList, stocks []*models.Stock) models.EffectList {
	if len(effects) > 5 {
		effects = effects[:5]
	}
	if len(effects) != 1 {
		return effects
	}

	first := effects[0]
	for _, s := range stocks {
		if s.ID != first.StockID {
			continue
		}
		companion := models.StockEffect{StockID: s.ID}
		if first.Type == models.EffectPriceChange {
			companion.Type = models.EffectDividendChange
			companion.Amount = s.DividendAmount/10 + 1
		} else {
			companion.Type = models.EffectPriceChange
			companion.Amount = s.CurrentPrice/10 + 1
		}
		return append(effects, companion)
	}
	return effects
}
