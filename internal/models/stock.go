package models

// Stock 房间内股票表
type Stock struct {
	BaseModel
	RoomID      uint   `gorm:"not null;index" json:"room_id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Symbol      string `gorm:"size:10;not null" json:"symbol"`
	Description string `gorm:"size:255" json:"description"`

	// 价格恒定不低于1
	CurrentPrice   int64 `gorm:"not null" json:"current_price"`
	DividendAmount int64 `gorm:"not null;default:0" json:"dividend_amount"`

	// 上个事件生效前的快照，仅用于前端涨跌显示
	PreviousPrice    *int64 `json:"previous_price,omitempty"`
	PreviousDividend *int64 `json:"previous_dividend,omitempty"`
}

// TableName 指定表名
func (Stock) TableName() string {
	return "stocks"
}

// Holding 玩家持仓表（玩家×股票）
type Holding struct {
	BaseModel
	RoomID   uint  `gorm:"not null;index" json:"room_id"`
	PlayerID uint  `gorm:"not null;uniqueIndex:idx_holdings_player_stock" json:"player_id"`
	StockID  uint  `gorm:"not null;uniqueIndex:idx_holdings_player_stock" json:"stock_id"`
	Quantity int64 `gorm:"not null;default:0" json:"quantity"`
}

// TableName 指定表名
func (Holding) TableName() string {
	return "holdings"
}
