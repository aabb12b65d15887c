package config

import (
	"encoding/json"
	"fmt"
	"os"

	"grid-trader-go/internal/models"
)

// LoadConfig 从指定路径加载JSON配置文件并解析到Config结构体中
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := &models.Config{}
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}

	applyDefaults(config)
	if err := validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// applyDefaults 为未填写的字段补上默认值
func applyDefaults(cfg *models.Config) {
	if cfg.Exchange == "" {
		cfg.Exchange = "upbit"
	}
	if cfg.Symbol == "" {
		cfg.Symbol = "BTC/KRW"
	}
	if cfg.TotalQuote == 0 {
		cfg.TotalQuote = 200000
	}
	if cfg.NGrids == 0 {
		cfg.NGrids = 20
	}
	if cfg.GridMode == "" {
		cfg.GridMode = "equal"
	}
	if cfg.CheckIntervalSec == 0 {
		cfg.CheckIntervalSec = 5
	}
	if cfg.ConfirmTimeoutSec == 0 {
		cfg.ConfirmTimeoutSec = 30
	}
	if cfg.ConfirmPollSec == 0 {
		cfg.ConfirmPollSec = 1
	}
	if cfg.SlippageRate == 0 {
		cfg.SlippageRate = 0.003
	}
	if cfg.TestStartPrice == 0 {
		cfg.TestStartPrice = 70000000
	}
	if cfg.TestVol == 0 {
		cfg.TestVol = 0.002
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "data/grid_state"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.NewsIntervalMin == 0 {
		cfg.NewsIntervalMin = 60
	}
	if cfg.NewsMaxItems == 0 {
		cfg.NewsMaxItems = 5
	}
	if len(cfg.NewsSources) == 0 {
		cfg.NewsSources = []string{"coindesk", "cointelegraph"}
	}
}

// validate 拒绝明显不可用的配置，运行期的区间校验由调度器每个tick单独做
func validate(cfg *models.Config) error {
	if cfg.NGrids < 1 {
		return fmt.Errorf("n_grids 必须 >= 1, 当前为 %d", cfg.NGrids)
	}
	if cfg.GridMode != "equal" && cfg.GridMode != "geometric" {
		return fmt.Errorf("grid_mode 必须为 equal 或 geometric, 当前为 %q", cfg.GridMode)
	}
	if cfg.PriceLow != 0 && cfg.PriceHigh != 0 && cfg.PriceLow >= cfg.PriceHigh {
		return fmt.Errorf("price_low (%.2f) 必须小于 price_high (%.2f)", cfg.PriceLow, cfg.PriceHigh)
	}
	return nil
}
