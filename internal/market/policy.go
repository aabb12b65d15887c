package market

import (
	"fmt"
	"math"

	"grid-trader-go/internal/models"
)

// Verdict 是一次订单校验的结果。调用方后续的一切余额运算都必须使用
// 其中归一化后的 Price/Amount，而不是原始请求值。
type Verdict struct {
	OK     bool
	Reason string
	Price  float64
	Amount float64
}

// quotePolicy 按计价货币封装一套tick/精度/最小额规则。
// 新增计价货币时注册新policy，而不是在校验逻辑里加分支。
type quotePolicy interface {
	validate(spec *models.MarketSpec, side models.Side, price, amount float64) Verdict
}

// defaultPolicies 是内置的计价货币policy表
func defaultPolicies() map[string]quotePolicy {
	return map[string]quotePolicy{
		"KRW":  krwPolicy{},
		"USDT": usdtPolicy{},
		"BTC":  btcPolicy{},
	}
}

// KRWTickSize 返回KRW市场在给定价格量级下的最小报价单位 (Upbit规则)
func KRWTickSize(price float64) float64 {
	switch {
	case price >= 2000000:
		return 1000
	case price >= 1000000:
		return 1000
	case price >= 500000:
		return 500
	case price >= 100000:
		return 100
	case price >= 50000:
		return 50
	case price >= 10000:
		return 10
	case price >= 5000:
		return 5
	case price >= 1000:
		return 1
	case price >= 100:
		return 1
	case price >= 10:
		return 0.1
	case price >= 1:
		return 0.01
	case price >= 0.1:
		return 0.001
	case price >= 0.01:
		return 0.0001
	case price >= 0.001:
		return 0.00001
	case price >= 0.0001:
		return 0.000001
	case price >= 0.00001:
		return 0.0000001
	default:
		return 0.00000001
	}
}

// SnapToTick 把价格对齐到tick的整数倍，并固定到8位小数以消除浮点漂移
func SnapToTick(value, tick float64) float64 {
	if tick <= 0 {
		return value
	}
	return math.Round(math.Round(value/tick)*tick*1e8) / 1e8
}

// SnapToPrecision 把数值四舍五入到指定小数位；精度未知时原样返回
func SnapToPrecision(value float64, precision *int) float64 {
	if precision == nil {
		return value
	}
	q := math.Pow(10, float64(*precision))
	return math.Round(value*q) / q
}

// krwPolicy: KRW市场按价格量级取tick，最小下单金额5000韩元
type krwPolicy struct{}

func (krwPolicy) validate(spec *models.MarketSpec, _ models.Side, price, amount float64) Verdict {
	px := SnapToTick(price, KRWTickSize(price))

	minTotal := 5000.0
	var amtPrec *int
	if spec != nil {
		if spec.MinNotional > 0 {
			minTotal = math.Max(minTotal, spec.MinNotional)
		}
		amtPrec = spec.AmountPrecision
	}
	qty := SnapToPrecision(amount, amtPrec)

	total := px * qty
	if total+1e-9 < minTotal {
		need := minTotal / math.Max(px, 1e-12)
		return Verdict{
			OK:     false,
			Reason: fmt.Sprintf("KRW 最小下单金额 %.0f 不足 (当前 %.0f)，需要数量 ≥ %.8f", minTotal, total, need),
			Price:  px,
			Amount: qty,
		}
	}
	return Verdict{OK: true, Reason: "OK", Price: px, Amount: qty}
}

// usdtPolicy: USDT市场优先用交易所精度，否则按量级取粗粒度tick，最小下单金额0.5 USDT
type usdtPolicy struct{}

func (usdtPolicy) validate(spec *models.MarketSpec, _ models.Side, price, amount float64) Verdict {
	px := price
	minTotal := 0.5
	var amtPrec *int
	if spec != nil {
		amtPrec = spec.AmountPrecision
		if spec.MinNotional > 0 {
			minTotal = math.Max(minTotal, spec.MinNotional)
		}
	}
	if spec != nil && spec.PricePrecision != nil {
		px = SnapToPrecision(px, spec.PricePrecision)
	} else {
		var tick float64
		switch {
		case px >= 1:
			tick = 0.01
		case px >= 0.1:
			tick = 0.001
		default:
			tick = 0.0001
		}
		px = SnapToTick(px, tick)
	}

	qty := SnapToPrecision(amount, amtPrec)
	total := px * qty
	if total+1e-12 < minTotal {
		need := minTotal / math.Max(px, 1e-12)
		return Verdict{
			OK:     false,
			Reason: fmt.Sprintf("USDT 最小下单金额 %g 不足 (当前 %.6f)，需要数量 ≥ %.8f", minTotal, total, need),
			Price:  px,
			Amount: qty,
		}
	}
	return Verdict{OK: true, Reason: "OK", Price: px, Amount: qty}
}

// btcPolicy: BTC市场按数量下限校验，与价格无关
type btcPolicy struct{}

func (btcPolicy) validate(spec *models.MarketSpec, _ models.Side, price, amount float64) Verdict {
	minQty := 0.00005
	var pxPrec, amtPrec *int
	if spec != nil {
		if spec.MinAmount > 0 {
			minQty = math.Max(minQty, spec.MinAmount)
		}
		pxPrec = spec.PricePrecision
		amtPrec = spec.AmountPrecision
	}

	qty := SnapToPrecision(amount, amtPrec)
	px := SnapToPrecision(price, pxPrec)
	if qty+1e-12 < minQty {
		return Verdict{
			OK:     false,
			Reason: fmt.Sprintf("BTC 市场最小下单数量 %g 不足 (当前 %.8f)", minQty, qty),
			Price:  px,
			Amount: qty,
		}
	}
	return Verdict{OK: true, Reason: "OK", Price: px, Amount: qty}
}

// fallbackPolicy: 未知计价货币，只能依赖交易所元数据中的限制
type fallbackPolicy struct{}

func (fallbackPolicy) validate(spec *models.MarketSpec, _ models.Side, price, amount float64) Verdict {
	px := price
	qty := amount
	if spec != nil {
		px = SnapToPrecision(px, spec.PricePrecision)
		qty = SnapToPrecision(qty, spec.AmountPrecision)
		if spec.MinNotional > 0 && px*qty+1e-12 < spec.MinNotional {
			need := spec.MinNotional / math.Max(px, 1e-12)
			return Verdict{
				OK:     false,
				Reason: fmt.Sprintf("最小下单金额 %g 不足，需要数量 ≥ %.8f", spec.MinNotional, need),
				Price:  px,
				Amount: qty,
			}
		}
		if spec.MinAmount > 0 && qty+1e-12 < spec.MinAmount {
			return Verdict{
				OK:     false,
				Reason: fmt.Sprintf("最小下单数量 %g 不足 (当前 %.8f)", spec.MinAmount, qty),
				Price:  px,
				Amount: qty,
			}
		}
	}
	return Verdict{OK: true, Reason: "OK", Price: px, Amount: qty}
}
