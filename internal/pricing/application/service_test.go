package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/optionsrisk/internal/pricing/domain"
	"github.com/wyfcoding/optionsrisk/pkg/config"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.data[key] = value
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	priced  []domain.OptionPricedEvent
	greeks  []domain.GreeksCalculatedEvent
	strats  []domain.StrategyAnalyzedEvent
	errs    []domain.PricingErrorEvent
	batches []domain.BatchPricingCompletedEvent
}

func (p *recordingPublisher) PublishOptionPriced(_ context.Context, e domain.OptionPricedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.priced = append(p.priced, e)
	return nil
}

func (p *recordingPublisher) PublishGreeksCalculated(_ context.Context, e domain.GreeksCalculatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.greeks = append(p.greeks, e)
	return nil
}

func (p *recordingPublisher) PublishStrategyAnalyzed(_ context.Context, e domain.StrategyAnalyzedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.strats = append(p.strats, e)
	return nil
}

func (p *recordingPublisher) PublishPricingError(_ context.Context, e domain.PricingErrorEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, e)
	return nil
}

func (p *recordingPublisher) PublishBatchPricingCompleted(_ context.Context, e domain.BatchPricingCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, e)
	return nil
}

type countingMetrics struct {
	mu               sync.Mutex
	hits, misses     int
	priced           map[string]int
	errorsByKind     map[string]int
	nonConvergedSeen bool
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{priced: map[string]int{}, errorsByKind: map[string]int{}}
}

func (m *countingMetrics) RecordHTTPRequest(string, string, int, float64) {}

func (m *countingMetrics) RecordPricing(model, _ string, _ float64, converged bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priced[model]++
	if !converged {
		m.nonConvergedSeen = true
	}
}

func (m *countingMetrics) RecordPricingError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorsByKind[kind]++
}

func (m *countingMetrics) RecordCache(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func testConfig() Config {
	return Config{
		Engine: config.EngineConfig{
			BinomialSteps:   200,
			MCPaths:         20000,
			MCSeed:          7,
			MCAntithetic:    true,
			MCWorkers:       2,
			IVTolerance:     1e-8,
			IVMaxIterations: 100,
		},
		CacheTTL:         time.Minute,
		BatchConcurrency: 4,
	}
}

func atmCall() PriceOptionCommand {
	return PriceOptionCommand{
		Contract: ContractDTO{Underlying: "SPX", Type: "call", Strike: 100, Expiry: 1},
		Market:   MarketDTO{Spot: 100, RiskFreeRate: 0.05, Volatility: 0.2},
		Model:    ModelSpec{Name: "BlackScholes"},
	}
}

func TestPriceOptionBlackScholes(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewPricingService(testConfig(), WithPublisher(pub))

	res, err := svc.PriceOption(context.Background(), atmCall())
	require.NoError(t, err)
	assert.InDelta(t, 10.450584, res.Value, 1e-6)
	assert.Equal(t, "BlackScholes", res.ModelUsed)
	assert.True(t, res.Converged)
	assert.Nil(t, res.StandardError)
	assert.False(t, res.Cached)

	require.Len(t, pub.priced, 1)
	assert.Equal(t, "SPX", pub.priced[0].Underlying)
	assert.NotEmpty(t, pub.priced[0].EventID)
}

func TestPriceOptionAutoSelection(t *testing.T) {
	svc := NewPricingService(testConfig())

	cmd := atmCall()
	cmd.Model = ModelSpec{}
	cmd.Contract.Style = "american"
	cmd.Contract.Type = "put"
	res, err := svc.PriceOption(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "Binomial", res.ModelUsed)
	assert.Equal(t, "early_exercise", res.Rule)
	assert.NotEmpty(t, res.Reason)

	cmd = atmCall()
	cmd.Model = ModelSpec{Name: "auto"}
	res, err = svc.PriceOption(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "BlackScholes", res.ModelUsed)
	assert.Equal(t, "default", res.Rule)
}

func TestPriceOptionCaching(t *testing.T) {
	cache := newMapCache()
	m := newCountingMetrics()
	svc := NewPricingService(testConfig(), WithCache(cache), WithMetrics(m))

	first, err := svc.PriceOption(context.Background(), atmCall())
	require.NoError(t, err)
	second, err := svc.PriceOption(context.Background(), atmCall())
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 1, m.misses)
	assert.Equal(t, 1, m.priced["BlackScholes"])

	// 不同模型参数使用不同的键
	cmd := atmCall()
	cmd.Model = ModelSpec{Name: "binomial", Steps: 100}
	third, err := svc.PriceOption(context.Background(), cmd)
	require.NoError(t, err)
	assert.False(t, third.Cached)
}

func TestPriceOptionCacheFailureIsIgnored(t *testing.T) {
	cache := newMapCache()
	cache.err = errors.New("redis down")
	svc := NewPricingService(testConfig(), WithCache(cache))

	res, err := svc.PriceOption(context.Background(), atmCall())
	require.NoError(t, err)
	assert.InDelta(t, 10.4506, res.Value, 1e-4)
}

func TestPriceOptionInvalidInput(t *testing.T) {
	pub := &recordingPublisher{}
	m := newCountingMetrics()
	svc := NewPricingService(testConfig(), WithPublisher(pub), WithMetrics(m))

	cmd := atmCall()
	cmd.Market.Spot = -1
	_, err := svc.PriceOption(context.Background(), cmd)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.Len(t, pub.errs, 1)
	assert.Equal(t, "InvalidInput", pub.errs[0].Kind)
	assert.Equal(t, "price_option", pub.errs[0].Operation)
	assert.Equal(t, 1, m.errorsByKind["InvalidInput"])

	cmd = atmCall()
	cmd.Model.Name = "SABR"
	_, err = svc.PriceOption(context.Background(), cmd)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPriceOptionOverflowReturnsInstability(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewPricingService(testConfig(), WithPublisher(pub))

	cmd := atmCall()
	cmd.Contract.Type = "put"
	cmd.Market.RiskFreeRate = -800
	var err error
	assert.NotPanics(t, func() {
		_, err = svc.PriceOption(context.Background(), cmd)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNumericalInstability)
	require.Len(t, pub.errs, 1)
	assert.Equal(t, "NumericalInstability", pub.errs[0].Kind)
}

func TestPriceOptionExoticPayoffs(t *testing.T) {
	svc := NewPricingService(testConfig())

	cmd := atmCall()
	cmd.Payoff = &PayoffDTO{Kind: "barrier", BarrierKind: "down_and_out", Barrier: 80}
	_, err := svc.PriceOption(context.Background(), cmd)
	assert.ErrorIs(t, err, domain.ErrModelNotApplicable)

	cmd.Model = ModelSpec{Name: "MonteCarlo"}
	barrier, err := svc.PriceOption(context.Background(), cmd)
	require.NoError(t, err)
	require.NotNil(t, barrier.StandardError)
	assert.Less(t, barrier.Value, 10.4506+3*(*barrier.StandardError))
	assert.Len(t, barrier.ConfidenceInterval, 2)

	// 自动选模时路径依赖收益走蒙特卡洛
	cmd.Model = ModelSpec{}
	cmd.Payoff = &PayoffDTO{Kind: "asian"}
	asian, err := svc.PriceOption(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "MonteCarlo", asian.ModelUsed)
	assert.Equal(t, "path_dependent", asian.Rule)
	assert.Less(t, asian.Value, 10.4506)

	cmd.Payoff = &PayoffDTO{Kind: "lookback"}
	_, err = svc.PriceOption(context.Background(), cmd)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPriceOptionHonoursCancellation(t *testing.T) {
	svc := NewPricingService(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := atmCall()
	cmd.Model = ModelSpec{Name: "mc", Paths: 200000}
	_, err := svc.PriceOption(ctx, cmd)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateGreeks(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewPricingService(testConfig(), WithPublisher(pub))

	g, err := svc.CalculateGreeks(context.Background(), atmCall())
	require.NoError(t, err)
	assert.InDelta(t, 0.636831, g.Delta, 1e-6)
	assert.InDelta(t, 0.018762, g.Gamma, 1e-6)
	assert.Greater(t, g.Vega, 0.0)
	assert.Equal(t, "BlackScholes", g.ModelUsed)
	require.Len(t, pub.greeks, 1)

	cmd := atmCall()
	cmd.Model = ModelSpec{Name: "binomial", Steps: 400}
	tree, err := svc.CalculateGreeks(context.Background(), cmd)
	require.NoError(t, err)
	assert.InDelta(t, g.Delta, tree.Delta, 0.02)

	cmd.Payoff = &PayoffDTO{Kind: "asian"}
	_, err = svc.CalculateGreeks(context.Background(), cmd)
	assert.ErrorIs(t, err, domain.ErrModelNotApplicable)
}

func TestImpliedVolatilityRoundTrip(t *testing.T) {
	svc := NewPricingService(testConfig())

	cmd := atmCall()
	cmd.Market.Volatility = 0.25
	priced, err := svc.PriceOption(context.Background(), cmd)
	require.NoError(t, err)

	iv, err := svc.ImpliedVolatility(context.Background(), ImpliedVolatilityCommand{
		Contract:      cmd.Contract,
		Market:        MarketDTO{Spot: 100, RiskFreeRate: 0.05},
		ObservedPrice: priced.Value,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, iv.Volatility, 1e-4)
	assert.True(t, iv.Converged)
	assert.Equal(t, domain.IVMethodNewton, iv.Method)
}

func TestImpliedVolatilityModelRestrictions(t *testing.T) {
	svc := NewPricingService(testConfig())
	cmd := ImpliedVolatilityCommand{
		Contract:      ContractDTO{Type: "PUT", Strike: 100, Expiry: 1, Style: "AMERICAN"},
		Market:        MarketDTO{Spot: 100, RiskFreeRate: 0.05},
		ObservedPrice: 7,
	}
	iv, err := svc.ImpliedVolatility(context.Background(), cmd)
	require.NoError(t, err)
	assert.Greater(t, iv.Volatility, 0.1)

	cmd.Model = ModelSpec{Name: "BlackScholes"}
	_, err = svc.ImpliedVolatility(context.Background(), cmd)
	assert.ErrorIs(t, err, domain.ErrModelNotApplicable)

	cmd.Model = ModelSpec{Name: "Heston"}
	_, err = svc.ImpliedVolatility(context.Background(), cmd)
	assert.ErrorIs(t, err, domain.ErrModelNotApplicable)
}

func TestRecommendModel(t *testing.T) {
	svc := NewPricingService(testConfig())
	cases := []struct {
		name  string
		cmd   RecommendModelCommand
		model string
		rule  string
	}{
		{"american", RecommendModelCommand{Contract: ContractDTO{Type: "PUT", Strike: 100, Expiry: 1, Style: "AMERICAN"}, Market: MarketDTO{Spot: 100, Volatility: 0.2}}, "Binomial", "early_exercise"},
		{"event", RecommendModelCommand{Contract: ContractDTO{Type: "CALL", Strike: 100, Expiry: 1}, Market: MarketDTO{Spot: 100, Volatility: 0.2}, EventRisk: true}, "JumpDiffusion", "event_risk"},
		{"long dated", RecommendModelCommand{Contract: ContractDTO{Type: "CALL", Strike: 100, Expiry: 3}, Market: MarketDTO{Spot: 100, Volatility: 0.2}}, "MonteCarlo", "long_dated"},
		{"high vol", RecommendModelCommand{Contract: ContractDTO{Type: "CALL", Strike: 100, Expiry: 1}, Market: MarketDTO{Spot: 100, Volatility: 0.8}}, "Heston", "high_volatility"},
		{"short dated", RecommendModelCommand{Contract: ContractDTO{Type: "CALL", Strike: 100, Expiry: 0.05}, Market: MarketDTO{Spot: 100, Volatility: 0.2}}, "Binomial", "short_dated"},
		{"extreme moneyness", RecommendModelCommand{Contract: ContractDTO{Type: "CALL", Strike: 200, Expiry: 0.5}, Market: MarketDTO{Spot: 100, Volatility: 0.2}}, "MonteCarlo", "extreme_moneyness"},
		{"plain", RecommendModelCommand{Contract: ContractDTO{Type: "CALL", Strike: 100, Expiry: 0.5}, Market: MarketDTO{Spot: 100, Volatility: 0.2}}, "BlackScholes", "default"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := svc.RecommendModel(context.Background(), tc.cmd)
			require.NoError(t, err)
			assert.Equal(t, tc.model, rec.Model)
			assert.Equal(t, tc.rule, rec.Rule)
		})
	}
}

func TestCompareModels(t *testing.T) {
	svc := NewPricingService(testConfig())
	cmd := CompareModelsCommand{
		Contract: atmCall().Contract,
		Market:   atmCall().Market,
	}
	rows, err := svc.CompareModels(context.Background(), cmd)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "BlackScholes", rows[0].Model)
	require.NotNil(t, rows[0].DiffFromBlackScholes)
	assert.Zero(t, *rows[0].DiffFromBlackScholes)
	for _, row := range rows {
		require.Nil(t, row.Error, row.Model)
		assert.InDelta(t, 10.45, row.Result.Value, 1.5, row.Model)
	}

	cmd.Models = []ModelSpec{{Name: "bs"}, {Name: "heston", Kappa: -1, Theta: 0.04, SigmaV: 0.3}, {Name: "crr", Steps: 50}}
	rows, err = svc.CompareModels(context.Background(), cmd)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Nil(t, rows[0].Error)
	require.NotNil(t, rows[1].Error)
	assert.Equal(t, "InvalidInput", rows[1].Error.Kind)
	assert.Equal(t, "Binomial", rows[2].Model)
}

func TestCompareModelsAmericanRowErrors(t *testing.T) {
	svc := NewPricingService(testConfig())
	rows, err := svc.CompareModels(context.Background(), CompareModelsCommand{
		Contract: ContractDTO{Type: "PUT", Strike: 100, Expiry: 1, Style: "AMERICAN"},
		Market:   MarketDTO{Spot: 100, RiskFreeRate: 0.05, Volatility: 0.2},
		Models:   []ModelSpec{{Name: "BlackScholes"}, {Name: "Binomial"}},
	})
	require.NoError(t, err)
	require.NotNil(t, rows[0].Error)
	assert.Equal(t, "ModelNotApplicable", rows[0].Error.Kind)
	require.NotNil(t, rows[1].Result)
	assert.Nil(t, rows[1].DiffFromBlackScholes)
}

func TestBatchPriceOptions(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewPricingService(testConfig(), WithPublisher(pub))

	bad := atmCall()
	bad.Contract.Strike = 0
	put := atmCall()
	put.Contract.Type = "PUT"

	out, err := svc.BatchPriceOptions(context.Background(), BatchPriceCommand{Items: []PriceOptionCommand{atmCall(), bad, put}})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Succeeded)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Items, 3)
	for i, item := range out.Items {
		assert.Equal(t, i, item.Index)
	}
	require.NotNil(t, out.Items[1].Error)
	assert.Equal(t, "InvalidInput", out.Items[1].Error.Kind)

	// 平价关系 C - P = S - K e^{-rT}
	parity := out.Items[0].Result.Value - out.Items[2].Result.Value
	assert.InDelta(t, 4.877058, parity, 1e-5)

	require.Len(t, pub.batches, 1)
	assert.Equal(t, 3, pub.batches[0].Total)

	_, err = svc.BatchPriceOptions(context.Background(), BatchPriceCommand{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnalyzeStrategyStraddle(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewPricingService(testConfig(), WithPublisher(pub))

	out, err := svc.AnalyzeStrategy(context.Background(), AnalyzeStrategyCommand{
		Template:    "straddle",
		Strikes:     []float64{100},
		Premiums:    []float64{5, 4},
		Expiry:      0.5,
		Market:      MarketDTO{Spot: 100, RiskFreeRate: 0.05, Volatility: 0.2},
		CurvePoints: 11,
	})
	require.NoError(t, err)
	assert.Equal(t, "STRADDLE", out.Name)
	assert.InDelta(t, 9, out.NetPremium, 1e-9)
	assert.Equal(t, []float64{91, 109}, out.BreakEvens)
	assert.True(t, out.MaxProfit.Unbounded)
	require.NotNil(t, out.MaxLoss.Value)
	assert.InDelta(t, 9, *out.MaxLoss.Value, 1e-9)
	require.Len(t, out.Curve, 11)
	assert.InDelta(t, 50.0, out.Curve[0].Price, 1e-9)
	assert.InDelta(t, 41.0, out.Curve[0].PnL, 1e-9)
	require.Len(t, out.Legs, 2)
	require.Len(t, pub.strats, 1)
}

func TestAnalyzeStrategyIronCondorLegs(t *testing.T) {
	svc := NewPricingService(testConfig())
	market := MarketDTO{Spot: 100, RiskFreeRate: 0.05, Volatility: 0.2}
	leg := func(typ, pos string, k, prem float64) StrategyLegDTO {
		return StrategyLegDTO{Contract: ContractDTO{Type: typ, Strike: k, Expiry: 0.25}, Position: pos, Quantity: 1, EntryPremium: prem}
	}

	out, err := svc.AnalyzeStrategy(context.Background(), AnalyzeStrategyCommand{
		Name: "condor",
		Legs: []StrategyLegDTO{
			leg("PUT", "LONG", 85, 0.5),
			leg("PUT", "SHORT", 90, 1.5),
			leg("CALL", "SHORT", 110, 1.5),
			leg("CALL", "LONG", 115, 0.5),
		},
		Market: market,
	})
	require.NoError(t, err)
	require.NotNil(t, out.MaxProfit.Value)
	require.NotNil(t, out.MaxLoss.Value)
	assert.InDelta(t, 2, *out.MaxProfit.Value, 1e-9)
	assert.InDelta(t, 3, *out.MaxLoss.Value, 1e-9)
	assert.InDelta(t, -2, out.NetPremium, 1e-9)
	assert.InDelta(t, 0, out.Greeks.Delta, 0.05)

	_, err = svc.AnalyzeStrategy(context.Background(), AnalyzeStrategyCommand{Market: market})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

type staticChain []domain.ChainQuote

func (c staticChain) LoadChain(context.Context) ([]domain.ChainQuote, error) { return c, nil }

func TestBuildVolatilitySmile(t *testing.T) {
	m, err := domain.NewMarketState(100, 0.05, 0, 0.3)
	require.NoError(t, err)
	var chain staticChain
	for _, k := range []float64{90, 100, 110} {
		c, err := domain.NewOptionContract(domain.OptionTypeCall, k, 0.5, domain.StyleEuropean)
		require.NoError(t, err)
		p, err := domain.BlackScholes{}.Price(c, m)
		require.NoError(t, err)
		chain = append(chain, domain.ChainQuote{Strike: k, Expiry: 0.5, Type: domain.OptionTypeCall, Bid: p.Value - 0.01, Ask: p.Value + 0.01})
	}
	// 低于内在价值的报价无解
	chain = append(chain, domain.ChainQuote{Strike: 50, Expiry: 0.5, Type: domain.OptionTypeCall, Bid: 1, Ask: 1})
	chain = append(chain, domain.ChainQuote{Strike: 100, Expiry: 1, Type: domain.OptionTypePut, Bid: 5, Ask: 6})

	svc := NewPricingService(testConfig(), WithChainProvider(chain))
	out, err := svc.BuildVolatilitySmile(context.Background(), VolatilitySmileCommand{
		Market: MarketDTO{Spot: 100, RiskFreeRate: 0.05},
		Expiry: 0.5,
		Type:   "call",
	})
	require.NoError(t, err)
	require.Len(t, out.Points, 4)
	assert.Equal(t, 1, out.Failed)
	for _, pt := range out.Points[:3] {
		assert.InDelta(t, 0.3, pt.ImpliedVolatility, 1e-6, "strike %v", pt.Strike)
	}
	assert.NotEmpty(t, out.Points[3].Error)

	_, err = NewPricingService(testConfig()).BuildVolatilitySmile(context.Background(), VolatilitySmileCommand{Market: MarketDTO{Spot: 100}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuildVolatilitySmileMatchesExpiryWithinTolerance(t *testing.T) {
	m, err := domain.NewMarketState(100, 0.05, 0, 0.25)
	require.NoError(t, err)
	// 由到期日换算的期限与请求值只差几个小时
	expiry := domain.ExpiryFromDate(time.Date(2026, 7, 2, 6, 0, 0, 0, time.UTC), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c, err := domain.NewOptionContract(domain.OptionTypeCall, 100, expiry, domain.StyleEuropean)
	require.NoError(t, err)
	p, err := domain.BlackScholes{}.Price(c, m)
	require.NoError(t, err)
	chain := staticChain{
		{Strike: 100, Expiry: expiry, Type: domain.OptionTypeCall, Bid: p.Value, Ask: p.Value},
		{Strike: 100, Expiry: 0.6, Type: domain.OptionTypeCall, Bid: 8, Ask: 8},
	}

	svc := NewPricingService(testConfig(), WithChainProvider(chain))
	out, err := svc.BuildVolatilitySmile(context.Background(), VolatilitySmileCommand{
		Market: MarketDTO{Spot: 100, RiskFreeRate: 0.05},
		Expiry: 0.5,
	})
	require.NoError(t, err)
	require.Len(t, out.Points, 1)
	assert.InDelta(t, 0.25, out.Points[0].ImpliedVolatility, 1e-6)
}

func TestHistoricalVolatility(t *testing.T) {
	svc := NewPricingService(testConfig())
	out, err := svc.HistoricalVolatility(context.Background(), HistoricalVolatilityCommand{Closes: []float64{100, 101, 100, 101, 100}})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Samples)
	assert.Greater(t, out.Volatility, 0.1)

	_, err = svc.HistoricalVolatility(context.Background(), HistoricalVolatilityCommand{Closes: []float64{100}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
