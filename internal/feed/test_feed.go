package feed

import (
	"math"
	"math/rand"
	"sync"
)

// TestFeed 生成确定性的乘性随机游走行情: price *= 1 + U(-vol, vol)。
// 进程启动时固定播种一次，同一序列可复现，便于测试与演示。
type TestFeed struct {
	mu    sync.Mutex
	price float64
	vol   float64
	rng   *rand.Rand
}

// NewTestFeed 以起始价和单步波动率创建模拟行情
func NewTestFeed(startPrice, vol float64) *TestFeed {
	return &TestFeed{
		price: startPrice,
		vol:   vol,
		rng:   rand.New(rand.NewSource(42)),
	}
}

// Last 推进一步随机游走并返回新价格，按计价货币最小单位取整
func (f *TestFeed) Last(string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	step := -f.vol + 2*f.vol*f.rng.Float64()
	f.price *= 1 + step
	return math.Round(f.price), nil
}
