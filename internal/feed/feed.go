// Package feed 提供当前价格的来源抽象：模拟随机游走与真实交易所行情可互换。
package feed

// PriceFeed 返回某交易对的最新成交价。
// 实现必须在有限的网络超时内返回；失败对调用方而言是瞬时错误，跳过本次tick即可。
type PriceFeed interface {
	Last(symbol string) (float64, error)
}

// Switcher 按运行期开关在模拟行情与真实行情之间切换。
// live 为 nil (初始化失败，如缺少凭据) 时永远使用模拟行情。
type Switcher struct {
	Test    PriceFeed
	Live    PriceFeed
	UseTest func() bool
}

// Last 根据当前模式取价
func (s *Switcher) Last(symbol string) (float64, error) {
	if s.Live == nil || s.UseTest == nil || s.UseTest() {
		return s.Test.Last(symbol)
	}
	return s.Live.Last(symbol)
}
