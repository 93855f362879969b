package application

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/wyfcoding/optionsrisk/internal/pricing/domain"
)

// expiryMatchTolerance 按到期筛选时的容差（年），约半天
const expiryMatchTolerance = 0.5 / 365

// BuildVolatilitySmile 逐行反推期权链的隐含波动率
func (s *PricingService) BuildVolatilitySmile(ctx context.Context, cmd VolatilitySmileCommand) (*SmileDTO, error) {
	const op = "volatility_smile"
	m, err := domain.NewMarketState(cmd.Market.Spot, cmd.Market.RiskFreeRate, cmd.Market.DividendYield, 0)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	chain := cmd.Chain
	if len(chain) == 0 {
		if s.chains == nil {
			return nil, s.fail(ctx, op, invalid(op, "no option chain supplied", nil))
		}
		chain, err = s.chains.LoadChain(ctx)
		if err != nil {
			return nil, s.fail(ctx, op, fmt.Errorf("load option chain: %w", err))
		}
	}

	filtered := chain[:0:0]
	typ := domain.OptionType(strings.ToUpper(cmd.Type))
	for _, q := range chain {
		if cmd.Expiry > 0 && math.Abs(q.Expiry-cmd.Expiry) > expiryMatchTolerance {
			continue
		}
		if typ != "" && q.Type != typ {
			continue
		}
		filtered = append(filtered, q)
	}
	if len(filtered) == 0 {
		return nil, s.fail(ctx, op, invalid(op, "no quotes match the filter", map[string]any{"expiry": cmd.Expiry, "type": cmd.Type}))
	}

	start := time.Now()
	points := domain.VolatilitySmile(filtered, m, s.ivSolver())
	failed := 0
	for i := range points {
		if points[i].Error != "" {
			failed++
			continue
		}
		points[i].ImpliedVolatility = round(points[i].ImpliedVolatility, volPlaces)
	}
	s.metrics.RecordPricing(string(domain.ModelBlackScholes), "volatility_smile", time.Since(start).Seconds(), failed == 0)
	return &SmileDTO{Points: points, Failed: failed}, nil
}

// HistoricalVolatility 收盘价序列的年化历史波动率
func (s *PricingService) HistoricalVolatility(ctx context.Context, cmd HistoricalVolatilityCommand) (*HistoricalVolatilityDTO, error) {
	vol, err := domain.HistoricalVolatility(cmd.Closes, cmd.PeriodsPerYear)
	if err != nil {
		return nil, s.fail(ctx, "historical_volatility", err)
	}
	return &HistoricalVolatilityDTO{Volatility: round(vol, volPlaces), Samples: len(cmd.Closes) - 1}, nil
}
