// Package grid 负责把价格区间切分为离散的网格线，并派生每格的买卖价和数量。
package grid

import (
	"math"

	"grid-trader-go/internal/models"
)

// Mode 是网格间距模式
const (
	ModeEqual     = "equal"     // 等差：每格绝对价差相同
	ModeGeometric = "geometric" // 等比：每格百分比价差相同，适合波动与价格成正比的行情
)

// Build 计算横跨 [low, high] 的 n+1 条网格线，严格递增。
// n < 1 时退化为仅含 low 的单条线；调用方必须先保证 low < high。
func Build(low, high float64, n int, mode string) []float64 {
	if n < 1 {
		return []float64{low}
	}
	if mode == ModeGeometric {
		return geomspace(low, high, n)
	}
	return linspace(low, high, n)
}

// linspace 返回从 low 到 high 的 n+1 个等差价格点
func linspace(low, high float64, n int) []float64 {
	levels := make([]float64, n+1)
	step := (high - low) / float64(n)
	for i := 0; i <= n; i++ {
		levels[i] = low + float64(i)*step
	}
	// 消除累计浮点误差，保证端点精确
	levels[n] = high
	return levels
}

// geomspace 返回从 low 到 high 的 n+1 个等比价格点
func geomspace(low, high float64, n int) []float64 {
	levels := make([]float64, n+1)
	ratio := high / low
	for i := 0; i <= n; i++ {
		levels[i] = low * math.Pow(ratio, float64(i)/float64(n))
	}
	levels[0] = low
	levels[n] = high
	return levels
}

// Cells 由相邻网格线派生每格的买卖价和数量。
// 买价 = 下沿+padding，卖价 = 上沿-padding；资金在建格时按格数均分，成交后不再动态再平衡。
func Cells(levels []float64, padding, totalQuote float64) []*models.GridCell {
	n := len(levels) - 1
	if n < 1 {
		return nil
	}

	perCellQuote := totalQuote / float64(n)
	cells := make([]*models.GridCell, 0, n)
	for i := 0; i < n; i++ {
		buyPrice := levels[i] + padding
		sellPrice := levels[i+1] - padding
		amount := round8(perCellQuote / math.Max(buyPrice, 1))
		cells = append(cells, &models.GridCell{
			Index:     i,
			BuyPrice:  buyPrice,
			SellPrice: sellPrice,
			Amount:    amount,
			Status:    models.CellIdle,
		})
	}
	return cells
}

func round8(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}
