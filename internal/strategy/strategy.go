// Package strategy 定义以当前价为基准的网格参数预设，并负责把预设写入运行状态。
package strategy

import (
	"fmt"

	"grid-trader-go/internal/models"
	"grid-trader-go/internal/state"
)

// Profiles 是内置的策略预设表，按行情倾向命名
var Profiles = map[string]models.StrategyProfile{
	"up": {
		Name:        "Up (上涨行情)",
		UpPct:       0.025,
		DownPct:     0.010,
		NGrids:      30,
		Padding:     0.0,
		IntervalSec: 3,
		TargetNote:  "触及下一格即卖出",
	},
	"middle": {
		Name:        "Middle (震荡行情)",
		UpPct:       0.015,
		DownPct:     0.015,
		NGrids:      40,
		Padding:     0.0,
		IntervalSec: 3,
		TargetNote:  "触及下一格即卖出",
	},
	"down": {
		Name:        "Down (下跌行情)",
		UpPct:       0.008,
		DownPct:     0.030,
		NGrids:      20,
		Padding:     0.0,
		IntervalSec: 5,
		TargetNote:  "反弹即快速卖出",
	},
}

// Apply 按当前价和预设重算价格区间并替换网格配置。
// 已存在的网格单元不做任何回溯修改，新配置从下一个tick开始生效。
// 返回摘要文本和是否成功。
func Apply(store *state.Store, currentPrice float64, key string) (string, bool) {
	prof, ok := Profiles[key]
	if !ok {
		return fmt.Sprintf("未知策略预设 %q", key), false
	}

	low := currentPrice * (1.0 - prof.DownPct)
	high := currentPrice * (1.0 + prof.UpPct)

	store.Update(func(s *models.TradingState) {
		s.Strategy = key
		s.Settings.PriceLow = low
		s.Settings.PriceHigh = high
		s.Settings.NGrids = prof.NGrids
		s.Settings.Padding = prof.Padding
		s.Settings.CheckIntervalSec = prof.IntervalSec
	})

	summary := fmt.Sprintf("策略: %s (%s)\n区间: %.0f ~ %.0f\nN_GRIDS: %d | PADDING: %g | INTERVAL: %ds\n目标: %s",
		prof.Name, key, low, high, prof.NGrids, prof.Padding, prof.IntervalSec, prof.TargetNote)
	return summary, true
}

// Show 返回当前生效预设的描述文本
func Show(store *state.Store) string {
	snap := store.Snapshot()
	prof, ok := Profiles[snap.Strategy]
	if !ok {
		return "当前没有生效的策略预设。用 /strategy up|middle|down 设置"
	}
	return fmt.Sprintf("当前策略: %s (%s)\n区间: %.0f ~ %.0f\nN_GRIDS: %d | PADDING: %g | INTERVAL: %ds",
		prof.Name, snap.Strategy,
		snap.Settings.PriceLow, snap.Settings.PriceHigh,
		snap.Settings.NGrids, snap.Settings.Padding, snap.Settings.CheckIntervalSec)
}
