package models

import "time"

// Account 保存两侧余额。只允许执行引擎在状态锁内修改，余额永不为负。
type Account struct {
	KRW float64 `json:"krw"` // 计价货币余额
	BTC float64 `json:"btc"` // 基础货币余额
}

// GridCell 代表一个价格区间及其买卖状态。
// 生命周期: idle → bought → sold，sold 为终态，本周期内不再重开。
type GridCell struct {
	Index     int          `json:"index"`
	BuyPrice  float64      `json:"buy_price"`
	SellPrice float64      `json:"sell_price"`
	Amount    float64      `json:"amount"` // 基础货币数量
	Status    CellStatus   `json:"status"`
	BuyOrder  *OrderResult `json:"buy_order,omitempty"`
	SellOrder *OrderResult `json:"sell_order,omitempty"`
}

// GridSettings 是当前生效的网格区间配置
type GridSettings struct {
	PriceLow         float64 `json:"price_low,omitempty"` // 0 表示未设置
	PriceHigh        float64 `json:"price_high,omitempty"`
	NGrids           int     `json:"n_grids"`
	Padding          float64 `json:"price_padding"`
	Mode             string  `json:"grid_mode"`
	CheckIntervalSec int     `json:"check_interval"`
}

// TradingState 定义了需要持久化的全部运行状态，整体读写都由唯一的状态锁保护。
type TradingState struct {
	Account     Account           `json:"account"`
	Cells       map[int]*GridCell `json:"grid_orders"`
	Settings    GridSettings      `json:"settings"`
	Strategy    string            `json:"strategy,omitempty"` // 当前生效的策略预设key
	AutoMode    bool              `json:"auto_mode"`
	TestMode    bool              `json:"test_mode"`
	NewsEnabled bool              `json:"news_enabled"`
	NewsFilter  []string          `json:"news_filter"`
	NewsSeenIDs []string          `json:"news_seen_ids"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewDefaultState 根据配置构造一份全新的初始状态
func NewDefaultState(cfg *Config) *TradingState {
	return &TradingState{
		Account: Account{KRW: cfg.TotalQuote, BTC: 0},
		Cells:   make(map[int]*GridCell),
		Settings: GridSettings{
			PriceLow:         cfg.PriceLow,
			PriceHigh:        cfg.PriceHigh,
			NGrids:           cfg.NGrids,
			Padding:          cfg.PricePadding,
			Mode:             cfg.GridMode,
			CheckIntervalSec: cfg.CheckIntervalSec,
		},
		AutoMode:    cfg.AutoMode,
		TestMode:    cfg.TestMode,
		NewsEnabled: cfg.NewsEnabled,
		NewsFilter:  append([]string(nil), cfg.NewsFilter...),
		NewsSeenIDs: []string{},
		UpdatedAt:   time.Now().UTC(),
	}
}

// DeepCopy 返回状态的深拷贝，供并发读取方安全使用
func (s *TradingState) DeepCopy() *TradingState {
	if s == nil {
		return nil
	}

	stateCopy := *s

	if s.Cells != nil {
		stateCopy.Cells = make(map[int]*GridCell, len(s.Cells))
		for k, v := range s.Cells {
			if v == nil {
				continue
			}
			cellCopy := *v
			if v.BuyOrder != nil {
				o := *v.BuyOrder
				cellCopy.BuyOrder = &o
			}
			if v.SellOrder != nil {
				o := *v.SellOrder
				cellCopy.SellOrder = &o
			}
			stateCopy.Cells[k] = &cellCopy
		}
	}

	stateCopy.NewsFilter = append([]string(nil), s.NewsFilter...)
	stateCopy.NewsSeenIDs = append([]string(nil), s.NewsSeenIDs...)

	return &stateCopy
}
