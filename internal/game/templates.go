package game

import (
	"math/rand"

	"github.com/wfunc/party-market/internal/models"
)

// StockTemplate 股票模板
// 开局时从模板池抽取并在区间内随机初始价格和股息
type StockTemplate struct {
	Name        string
	Symbol      string
	Description string
	MinPrice    int64
	MaxPrice    int64
	MinDividend int64
	MaxDividend int64
}

// defaultTemplates 内置模板池
// 名称和描述面向玩家展示，走娱乐路线
var defaultTemplates = []StockTemplate{
	{
		Name: "Quantum Leap Labs", Symbol: "QUANT",
		Description: "Quantum computers that mostly compute excuses",
		MinPrice:    60, MaxPrice: 150, MinDividend: 0, MaxDividend: 10,
	},
	{
		Name: "Dream Factory", Symbol: "DRM",
		Description: "Sells recorded dreams, refunds for nightmares pending",
		MinPrice:    30, MaxPrice: 90, MinDividend: 2, MaxDividend: 12,
	},
	{
		Name: "Meme Quarry", Symbol: "MEMQ",
		Description: "Industrial-scale meme mining operation",
		MinPrice:    10, MaxPrice: 50, MinDividend: 0, MaxDividend: 20,
	},
	{
		Name: "Space Gravel Inc", Symbol: "SPACE",
		Description: "Asteroid mining, currently mining the parking lot",
		MinPrice:    80, MaxPrice: 200, MinDividend: 0, MaxDividend: 5,
	},
	{
		Name: "Robo Butlers", Symbol: "ROBO",
		Description: "Domestic robots with strong opinions about chores",
		MinPrice:    50, MaxPrice: 120, MinDividend: 3, MaxDividend: 15,
	},
	{
		Name: "Cloud Nine Storage", Symbol: "CLD",
		Description: "Stores your data in actual clouds, weather permitting",
		MinPrice:    40, MaxPrice: 100, MinDividend: 5, MaxDividend: 18,
	},
	{
		Name: "Couch Supreme", Symbol: "CSM",
		Description: "Luxury couches engineered for professional napping",
		MinPrice:    20, MaxPrice: 70, MinDividend: 4, MaxDividend: 16,
	},
	{
		Name: "Unicorn Rentals", Symbol: "UCRN",
		Description: "Rent a unicorn, horn polish sold separately",
		MinPrice:    70, MaxPrice: 180, MinDividend: 0, MaxDividend: 8,
	},
	{
		Name: "Dinner Solutions", Symbol: "DNS",
		Description: "Resolves what's for dinner in under 300ms",
		MinPrice:    15, MaxPrice: 60, MinDividend: 2, MaxDividend: 14,
	},
	{
		Name: "Burger Futures", Symbol: "BRGR",
		Description: "Derivatives on tomorrow's lunch",
		MinPrice:    10, MaxPrice: 40, MinDividend: 3, MaxDividend: 20,
	},
	{
		Name: "Fish Telepathy Co", Symbol: "FSH",
		Description: "Know what your goldfish really thinks",
		MinPrice:    25, MaxPrice: 85, MinDividend: 1, MaxDividend: 10,
	},
	{
		Name: "Volcano Spa Resorts", Symbol: "VLCN",
		Description: "Hot springs with a nonzero eruption clause",
		MinPrice:    55, MaxPrice: 140, MinDividend: 0, MaxDividend: 9,
	},
}

// DrawStocks 从模板池抽取股票并随机初始值
// 同一种子抽取结果可复现；count 超出池大小时全池返回
func DrawStocks(roomID uint, count int, rng *rand.Rand) []*models.Stock {
	if count <= 0 {
		return nil
	}

	pool := make([]StockTemplate, len(defaultTemplates))
	copy(pool, defaultTemplates)
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	if count > len(pool) {
		count = len(pool)
	}

	stocks := make([]*models.Stock, 0, count)
	for _, tpl := range pool[:count] {
		stocks = append(stocks, &models.Stock{
			RoomID:         roomID,
			Name:           tpl.Name,
			Symbol:         tpl.Symbol,
			Description:    tpl.Description,
			CurrentPrice:   randInRange(rng, tpl.MinPrice, tpl.MaxPrice),
			DividendAmount: randInRange(rng, tpl.MinDividend, tpl.MaxDividend),
		})
	}
	return stocks
}

func randInRange(rng *rand.Rand, min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + rng.Int63n(max-min+1)
}
