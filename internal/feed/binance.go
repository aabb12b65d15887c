package feed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
)

// BinanceFeed 通过币安现货API取最新价。
// 若配置了推送流，优先使用流内缓存的新鲜价格，仅在流断开或过期时回退REST。
type BinanceFeed struct {
	client   *binance.Client
	stream   *Stream
	timeout  time.Duration
	staleMax time.Duration
}

// NewBinanceFeed 创建币安行情源。stream 可为 nil，此时每次都走REST查询。
func NewBinanceFeed(client *binance.Client, stream *Stream) *BinanceFeed {
	return &BinanceFeed{
		client:   client,
		stream:   stream,
		timeout:  10 * time.Second,
		staleMax: 10 * time.Second,
	}
}

// Last 返回最新成交价
func (f *BinanceFeed) Last(symbol string) (float64, error) {
	if f.stream != nil {
		if price, ok := f.stream.Fresh(f.staleMax); ok {
			return price, nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	exSymbol := strings.ReplaceAll(strings.ToUpper(symbol), "/", "")
	prices, err := f.client.NewListPricesService().Symbol(exSymbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("查询 %s 最新价失败: %w", exSymbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("币安未返回 %s 的价格", exSymbol)
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("解析价格 %q 失败: %w", prices[0].Price, err)
	}
	return price, nil
}
