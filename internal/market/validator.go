package market

import (
	"strings"
	"sync"

	"grid-trader-go/internal/models"

	"go.uber.org/zap"
)

// Validator 把请求的价格/数量归一化到交易所合法值，并拒绝低于最小额的订单。
// 交易规则通过 Resolver 惰性获取并缓存；获取失败只会让校验退化为内置默认值，
// 不影响安全性，因此缓存刷新无需额外协调。
type Validator struct {
	resolver Resolver
	policies map[string]quotePolicy
	logger   *zap.SugaredLogger

	mu    sync.Mutex
	specs map[string]*models.MarketSpec
}

// NewValidator 创建校验器。resolver 可为 nil，此时全部使用内置默认规则。
func NewValidator(resolver Resolver, logger *zap.SugaredLogger) *Validator {
	return &Validator{
		resolver: resolver,
		policies: defaultPolicies(),
		logger:   logger,
		specs:    make(map[string]*models.MarketSpec),
	}
}

// Validate 按交易对的计价货币选择policy执行校验。
// 返回的 Verdict 中始终带有归一化后的价格与数量。
func (v *Validator) Validate(symbol string, side models.Side, price, amount float64) Verdict {
	spec := v.spec(symbol)

	policy, ok := v.policies[QuoteCurrency(symbol)]
	if !ok {
		policy = fallbackPolicy{}
	}
	return policy.validate(spec, side, price, amount)
}

// spec 返回缓存的交易规则；未命中时尝试获取一次，失败记为nil避免反复请求
func (v *Validator) spec(symbol string) *models.MarketSpec {
	v.mu.Lock()
	cached, ok := v.specs[symbol]
	v.mu.Unlock()
	if ok {
		return cached
	}

	var spec *models.MarketSpec
	if v.resolver != nil {
		s, err := v.resolver.Resolve(symbol)
		if err != nil {
			if v.logger != nil {
				v.logger.Warnf("获取 %s 交易规则失败，使用内置默认值: %v", symbol, err)
			}
		} else {
			spec = s
		}
	}

	v.mu.Lock()
	v.specs[symbol] = spec
	v.mu.Unlock()
	return spec
}

// QuoteCurrency 取交易对的计价货币后缀，如 "BTC/KRW" → "KRW"
func QuoteCurrency(symbol string) string {
	s := strings.ToUpper(symbol)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return ""
}

// BaseCurrency 取交易对的基础货币前缀，如 "BTC/KRW" → "BTC"
func BaseCurrency(symbol string) string {
	s := strings.ToUpper(symbol)
	if i := strings.Index(s, "/"); i >= 0 {
		return s[:i]
	}
	return s
}
