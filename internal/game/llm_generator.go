package game

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/wfunc/party-market/internal/config"
	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/logger"
	"github.com/wfunc/party-market/internal/models"
	"go.uber.org/zap"
)

const llmSystemPrompt = `You are a rock-star game master of a party game where players trade fun stocks to maximize net worth. Your task is to create funny in-game events that affect the market and make the game chaotic.

Rules:
1. Create comic and absurd but kind of logical event titles and descriptions. The narrative may reference players' previous orders, previous events and the leaderboard, using real names. Title and description must relate to the effects but should not give them away.
2. Balance progression: negative impacts for top players, positive ones for players behind.
3. Introduce chaos so players have to change strategy. Make price changes less significant closer to game end.

Respond ONLY in the following format:

TITLE
<event title>

DESCRIPTION
<event description>

STOCK EFFECTS
- <stock_symbol> | <effect_type (price or dividends)> | <signed amount>

Produce between 2 and 5 stock effects using only symbols from the input.`

// LLMGenerator 大模型事件生成器
//
// 使用 OpenAI 兼容的 chat completions 接口，输入包含股票行情、
// 玩家排行和历史订单，输出解析为事件草稿。解析或校验失败都
// 返回错误，由调用方回退到兜底事件。
type LLMGenerator struct {
	cfg    *config.GeneratorConfig
	client *http.Client
}

// NewLLMGenerator 创建大模型生成器
func NewLLMGenerator(cfg *config.GeneratorConfig) *LLMGenerator {
	return &LLMGenerator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// chat completions 请求/响应结构，只声明用到的字段
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate 调用大模型生成事件草稿
func (g *LLMGenerator) Generate(ctx context.Context, input *GeneratorInput) (*EventDraft, error) {
	if len(input.Stocks) == 0 {
		return nil, apperrors.New(apperrors.ErrGeneratorFailed, "房间内没有股票")
	}

	reqBody, err := json.Marshal(&chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: llmSystemPrompt},
			{Role: "user", Content: g.buildUserPrompt(input)},
		},
		Temperature: 0.9,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGeneratorFailed, "序列化请求失败")
	}

	url := strings.TrimRight(g.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGeneratorFailed, "构造请求失败")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGeneratorFailed, "调用生成接口失败")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGeneratorFailed, "读取响应失败")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Newf(apperrors.ErrGeneratorFailed, "生成接口返回 %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGeneratorFailed, "解析响应失败")
	}
	if parsed.Error != nil {
		return nil, apperrors.Newf(apperrors.ErrGeneratorFailed, "生成接口错误: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, apperrors.New(apperrors.ErrGeneratorFailed, "生成接口没有返回内容")
	}

	draft, err := parseDraft(parsed.Choices[0].Message.Content, input.Stocks)
	if err != nil {
		logger.Warn("事件草稿解析失败",
			zap.Error(err),
			zap.String("content", parsed.Choices[0].Message.Content))
		return nil, err
	}
	return draft, nil
}

// buildUserPrompt 把当前局面拼成模型输入
func (g *LLMGenerator) buildUserPrompt(input *GeneratorInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Answer in language: %s\n\n", g.cfg.Language)
	fmt.Fprintf(&b, "Use the style: %s\n\n", g.cfg.Tone)
	fmt.Fprintf(&b, "Current round: %d of %d\n\n", input.Round, input.TotalRounds)

	b.WriteString("Stocks:\n\n")
	b.WriteString("| Symbol | Name | Description | Current price | Current dividends per round |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, s := range input.Stocks {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %d |\n",
			s.Symbol, s.Name, s.Description, s.CurrentPrice, s.DividendAmount)
	}

	b.WriteString("\nPlayers:\n\n")
	b.WriteString("| Name | Current cash | Net worth (cash + stocks) | Stocks owned |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, p := range input.Players {
		var owned []string
		for sym, qty := range p.Holdings {
			owned = append(owned, fmt.Sprintf("%d `%s`", qty, sym))
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %s |\n",
			p.Name, p.Cash, p.NetWorth, strings.Join(owned, ", "))
	}

	b.WriteString("\nRecent orders (descending time, 1 order per player per round):\n\n")
	for _, o := range input.Orders {
		verb := "bought"
		if o.Type == models.OrderTypeSell {
			verb = "sold"
		}
		fmt.Fprintf(&b, "- `%s` %s %d `%s`\n", o.PlayerName, verb, o.Quantity, o.Symbol)
	}

	if len(input.Events) > 0 {
		b.WriteString("\nPrevious events:\n\n")
		for _, e := range input.Events {
			fmt.Fprintf(&b, "- Round %d: %s — %s\n", e.Round, e.Title, e.Description)
		}
	}

	return b.String()
}

// parseDraft 解析模型输出并严格校验
// 效果必须是2到5条，且只能指向输入里的股票
func parseDraft(content string, stocks []*models.Stock) (*EventDraft, error) {
	bySymbol := make(map[string]*models.Stock, len(stocks))
	for _, s := range stocks {
		bySymbol[strings.ToUpper(s.Symbol)] = s
	}

	draft := &EventDraft{}
	section := ""
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "TITLE":
			section = "title"
			continue
		case "DESCRIPTION":
			section = "description"
			continue
		case "STOCK EFFECTS":
			section = "effects"
			continue
		}

		switch section {
		case "title":
			if draft.Title == "" {
				draft.Title = line
			}
		case "description":
			if draft.Description != "" {
				draft.Description += " "
			}
			draft.Description += line
		case "effects":
			effect, err := parseEffectLine(line, bySymbol)
			if err != nil {
				return nil, err
			}
			draft.Effects = append(draft.Effects, effect)
		}
	}

	if draft.Title == "" || draft.Description == "" {
		return nil, apperrors.New(apperrors.ErrGeneratorFailed, "缺少标题或描述")
	}
	if len(draft.Effects) < 2 || len(draft.Effects) > 5 {
		return nil, apperrors.Newf(apperrors.ErrGeneratorFailed, "效果数量 %d 超出允许范围", len(draft.Effects))
	}
	return draft, nil
}

// parseEffectLine 解析 "- SYMBOL | type | amount" 形式的效果行
// 兼容模型多输出一列股票名的情况
func parseEffectLine(line string, bySymbol map[string]*models.Stock) (models.StockEffect, error) {
	line = strings.TrimPrefix(line, "-")
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 3 {
		return models.StockEffect{}, apperrors.Newf(apperrors.ErrGeneratorFailed, "无法解析效果行: %s", line)
	}

	stock, ok := bySymbol[strings.ToUpper(parts[0])]
	if !ok {
		return models.StockEffect{}, apperrors.Newf(apperrors.ErrGeneratorFailed, "未知股票代码: %s", parts[0])
	}

	typeField := strings.ToLower(parts[len(parts)-2])
	var effectType models.EffectType
	switch {
	case strings.Contains(typeField, "price"):
		effectType = models.EffectPriceChange
	case strings.Contains(typeField, "dividend"):
		effectType = models.EffectDividendChange
	default:
		return models.StockEffect{}, apperrors.Newf(apperrors.ErrGeneratorFailed, "未知效果类型: %s", typeField)
	}

	amountField := strings.TrimPrefix(parts[len(parts)-1], "+")
	amount, err := strconv.ParseInt(amountField, 10, 64)
	if err != nil {
		return models.StockEffect{}, apperrors.Newf(apperrors.ErrGeneratorFailed, "无法解析效果数值: %s", parts[len(parts)-1])
	}

	return models.StockEffect{
		Type:    effectType,
		StockID: stock.ID,
		Amount:  amount,
	}, nil
}
