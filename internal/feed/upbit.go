package feed

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const upbitTickerURL = "https://api.upbit.com/v1/ticker"

// UpbitFeed 通过Upbit公开行情REST接口取最新成交价。
// 行情接口无需签名，只做只读查询。
type UpbitFeed struct {
	baseURL string
	client  *http.Client
}

// NewUpbitFeed 创建Upbit行情源，网络超时固定为10秒
func NewUpbitFeed() *UpbitFeed {
	return &UpbitFeed{
		baseURL: upbitTickerURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Last 查询最新成交价。交易对从 "BTC/KRW" 转换为Upbit的 "KRW-BTC" 形式。
func (f *UpbitFeed) Last(symbol string) (float64, error) {
	resp, err := f.client.Get(fmt.Sprintf("%s?markets=%s", f.baseURL, upbitMarket(symbol)))
	if err != nil {
		return 0, fmt.Errorf("upbit ticker请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("upbit ticker返回状态码 %d", resp.StatusCode)
	}

	var tickers []struct {
		TradePrice float64 `json:"trade_price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tickers); err != nil {
		return 0, fmt.Errorf("解析upbit ticker响应失败: %w", err)
	}
	if len(tickers) == 0 {
		return 0, fmt.Errorf("upbit未返回 %s 的行情", symbol)
	}
	return tickers[0].TradePrice, nil
}

// upbitMarket 把 "BTC/KRW" 转为 "KRW-BTC"
func upbitMarket(symbol string) string {
	parts := strings.SplitN(strings.ToUpper(symbol), "/", 2)
	if len(parts) != 2 {
		return strings.ToUpper(symbol)
	}
	return parts[1] + "-" + parts[0]
}
