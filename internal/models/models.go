package models

// Config 结构体定义了网格交易程序的所有配置参数
type Config struct {
	Exchange          string    `json:"exchange"`            // 交易所标识: "upbit" 或 "binance"
	Symbol            string    `json:"symbol"`              // 交易对，如 "BTC/KRW"
	TotalQuote        float64   `json:"total_quote"`         // 投入的计价货币总额 (KRW)
	NGrids            int       `json:"n_grids"`             // 网格数量
	PriceLow          float64   `json:"price_low,omitempty"` // 网格下边界 (0 表示未设置，按当前价推算)
	PriceHigh         float64   `json:"price_high,omitempty"`
	GridMode          string    `json:"grid_mode"`           // 网格间距模式: "equal" 或 "geometric"
	PricePadding      float64   `json:"price_padding"`       // 买卖价相对网格线的内缩偏移
	CheckIntervalSec  int       `json:"check_interval_sec"`  // 策略tick周期(秒)
	ConfirmTimeoutSec int       `json:"confirm_timeout_sec"` // 人工确认等待上限(秒)
	ConfirmPollSec    int       `json:"confirm_poll_sec"`    // 确认轮询粒度(秒)，默认1
	SlippageRate      float64   `json:"slippage_rate"`       // 滑点率，默认0.003
	AutoMode          bool      `json:"auto_mode"`           // 自动模式：跳过人工确认
	TestMode          bool      `json:"test_mode"`           // 测试模式：使用模拟行情
	TestStartPrice    float64   `json:"test_start_price"`    // 模拟行情起始价
	TestVol           float64   `json:"test_vol"`            // 模拟行情单步波动率
	DBPath            string    `json:"db_path"`             // 状态数据库路径
	Port              int       `json:"port"`                // HTTP状态服务端口
	PublicURL         string    `json:"public_url,omitempty"`
	NewsEnabled       bool      `json:"news_enabled"`
	NewsIntervalMin   int       `json:"news_interval_min"`
	NewsMaxItems      int       `json:"news_max_items"`
	NewsSources       []string  `json:"news_sources"`
	NewsFilter        []string  `json:"news_filter"`
	LogConfig         LogConfig `json:"log"` // 日志配置
}

// LogConfig 定义了日志相关的配置
type LogConfig struct {
	Level      string `json:"level"`       // 日志级别, e.g., "debug", "info", "warn", "error"
	Output     string `json:"output"`      // 输出模式: "console", "file", "both"
	File       string `json:"file"`        // 日志文件路径
	MaxSize    int    `json:"max_size"`    // 单个日志文件的最大大小 (MB)
	MaxBackups int    `json:"max_backups"` // 保留的旧日志文件最大数量
	MaxAge     int    `json:"max_age"`     // 旧日志文件的最大保留天数
	Compress   bool   `json:"compress"`    // 是否压缩旧日志文件
}

// Side 定义了交易方向的类型
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// CellStatus 表示单个网格单元的生命周期状态
type CellStatus string

const (
	CellIdle   CellStatus = "idle"   // 未建仓
	CellBought CellStatus = "bought" // 已买入，等待卖出
	CellSold   CellStatus = "sold"   // 已卖出，终态
)

// OrderResult 记录一次模拟成交的结果，成交即完成
type OrderResult struct {
	ID     string  `json:"id"`
	Side   Side    `json:"side"`
	Price  float64 `json:"price"` // 含滑点的实际成交价
	Amount float64 `json:"amount"`
	Status string  `json:"status"` // 固定为 "closed"
	Time   int64   `json:"time"`   // Unix毫秒
}

// MarketSpec 描述交易所对某交易对的合法性规则。
// 精度字段为 nil 表示交易所未提供该信息，校验时使用保守的内置默认值。
type MarketSpec struct {
	PricePrecision  *int    `json:"price_precision,omitempty"`
	AmountPrecision *int    `json:"amount_precision,omitempty"`
	MinNotional     float64 `json:"min_notional,omitempty"` // 最小下单金额，0表示未知
	MinAmount       float64 `json:"min_amount,omitempty"`   // 最小下单数量，0表示未知
}

// StrategyProfile 是一组以当前价为基准的预设网格参数
type StrategyProfile struct {
	Name        string  `json:"name"`
	UpPct       float64 `json:"up_pct"`   // 上边界相对当前价的偏移比例
	DownPct     float64 `json:"down_pct"` // 下边界相对当前价的偏移比例
	NGrids      int     `json:"n_grids"`
	Padding     float64 `json:"padding"`
	IntervalSec int     `json:"interval_sec"`
	TargetNote  string  `json:"target_note"`
}
