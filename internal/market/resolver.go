package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"grid-trader-go/internal/models"

	"github.com/adshao/go-binance/v2"
)

// Resolver looks up exchange trading rules for a symbol. Implementations are
// best-effort: a failed lookup is not an error condition for the caller, the
// validator simply falls back to its built-in per-quote-currency defaults.
type Resolver interface {
	Resolve(symbol string) (*models.MarketSpec, error)
}

// BinanceResolver fetches trading rules from the Binance spot exchangeInfo
// endpoint and converts the PRICE_FILTER / LOT_SIZE / NOTIONAL filters into a
// MarketSpec.
type BinanceResolver struct {
	client  *binance.Client
	timeout time.Duration
}

// NewBinanceResolver creates a resolver backed by the given Binance client.
func NewBinanceResolver(client *binance.Client) *BinanceResolver {
	return &BinanceResolver{client: client, timeout: 10 * time.Second}
}

// Resolve fetches exchange info for one symbol. The slash form ("BTC/USDT")
// is converted to the exchange's concatenated form ("BTCUSDT").
func (r *BinanceResolver) Resolve(symbol string) (*models.MarketSpec, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	exSymbol := strings.ReplaceAll(strings.ToUpper(symbol), "/", "")
	info, err := r.client.NewExchangeInfoService().Symbols(exSymbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("exchangeInfo %s: %w", exSymbol, err)
	}

	for i := range info.Symbols {
		s := &info.Symbols[i]
		if s.Symbol != exSymbol {
			continue
		}

		spec := &models.MarketSpec{}
		if pf := s.PriceFilter(); pf != nil {
			if p, ok := stepDecimals(pf.TickSize); ok {
				spec.PricePrecision = &p
			}
		}
		if lf := s.LotSizeFilter(); lf != nil {
			if p, ok := stepDecimals(lf.StepSize); ok {
				spec.AmountPrecision = &p
			}
			if minQty, err := strconv.ParseFloat(lf.MinQuantity, 64); err == nil {
				spec.MinAmount = minQty
			}
		}
		if nf := s.NotionalFilter(); nf != nil {
			if minNotional, err := strconv.ParseFloat(nf.MinNotional, 64); err == nil {
				spec.MinNotional = minNotional
			}
		}
		return spec, nil
	}
	return nil, fmt.Errorf("symbol %s not found in exchangeInfo", exSymbol)
}

// stepDecimals converts a filter step string like "0.00100000" into the number
// of meaningful decimal places (3). Integer steps yield precision 0.
func stepDecimals(step string) (int, bool) {
	if step == "" {
		return 0, false
	}
	if _, err := strconv.ParseFloat(step, 64); err != nil {
		return 0, false
	}
	dot := strings.Index(step, ".")
	if dot < 0 {
		return 0, true
	}
	frac := strings.TrimRight(step[dot+1:], "0")
	return len(frac), true
}

// StaticResolver serves a fixed spec table, used in tests and for exchanges
// without a metadata endpoint.
type StaticResolver map[string]*models.MarketSpec

// Resolve returns the configured spec or an error when the symbol is unknown.
func (r StaticResolver) Resolve(symbol string) (*models.MarketSpec, error) {
	if spec, ok := r[symbol]; ok {
		return spec, nil
	}
	return nil, fmt.Errorf("no spec configured for %s", symbol)
}
