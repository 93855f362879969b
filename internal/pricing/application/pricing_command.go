package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/optionsrisk/internal/pricing/domain"
	"github.com/wyfcoding/optionsrisk/pkg/logger"
	"github.com/wyfcoding/optionsrisk/pkg/utils"
	"golang.org/x/sync/errgroup"
)

// 收益类型
const (
	PayoffVanilla = "VANILLA"
	PayoffBarrier = "BARRIER"
	PayoffAsian   = "ASIAN"
)

func (p *PayoffDTO) kind() string {
	if p == nil || p.Kind == "" {
		return PayoffVanilla
	}
	return strings.ToUpper(p.Kind)
}

func (p *PayoffDTO) isVanilla() bool { return p.kind() == PayoffVanilla }

func (p *PayoffDTO) pathDependent() bool {
	k := p.kind()
	return k == PayoffBarrier || k == PayoffAsian
}

func (p *PayoffDTO) toDomain(c domain.OptionContract) (domain.Payoff, error) {
	switch p.kind() {
	case PayoffVanilla:
		return domain.VanillaPayoff{Type: c.Type, Strike: c.Strike}, nil
	case PayoffBarrier:
		return domain.BarrierPayoff{
			Type:    c.Type,
			Strike:  c.Strike,
			Barrier: p.Barrier,
			Kind:    domain.BarrierKind(strings.ToUpper(p.BarrierKind)),
		}, nil
	case PayoffAsian:
		return domain.AsianPayoff{Type: c.Type, Strike: c.Strike}, nil
	}
	return nil, invalid("payoff", "unknown payoff kind", map[string]any{"kind": p.Kind})
}

// resolved 解析后的定价输入
type resolved struct {
	contract domain.OptionContract
	market   domain.MarketState
	model    domain.PricingModel
	rule     string
	reason   string
}

// cacheKey 规范化 JSON 的摘要，引擎参数也参与其中
func (r resolved) cacheKey(prefix string, payoff *PayoffDTO) (string, error) {
	return utils.HashKey(prefix, struct {
		Contract domain.OptionContract `json:"contract"`
		Market   domain.MarketState    `json:"market"`
		Kind     domain.ModelKind      `json:"kind"`
		Model    domain.PricingModel   `json:"model"`
		Payoff   *PayoffDTO            `json:"payoff,omitempty"`
	}{r.contract, r.market, r.model.Kind(), r.model, payoff})
}

func (s *PricingService) resolve(cmd PriceOptionCommand) (resolved, error) {
	c, err := cmd.Contract.ToDomain()
	if err != nil {
		return resolved{}, err
	}
	m, err := cmd.Market.ToDomain()
	if err != nil {
		return resolved{}, err
	}
	if cmd.Model.IsAuto() {
		hints := domain.SelectionHints{EventRisk: cmd.Model.EventRisk, PathDependent: cmd.Payoff.pathDependent()}
		rec := domain.RecommendWith(c, m, hints)
		return resolved{contract: c, market: m, model: s.models.Tune(rec.Model), rule: rec.Rule, reason: rec.Reason}, nil
	}
	model, err := s.models.Build(cmd.Model, m)
	if err != nil {
		return resolved{}, err
	}
	return resolved{contract: c, market: m, model: model}, nil
}

func (s *PricingService) price(ctx context.Context, r resolved, payoff *PayoffDTO) (domain.PricingResult, error) {
	if !payoff.isVanilla() {
		if r.contract.Style == domain.StyleAmerican {
			return domain.PricingResult{}, notApplicable("price_option", "exotic payoffs are european only", map[string]any{"payoff": payoff.kind()})
		}
		p, err := payoff.toDomain(r.contract)
		if err != nil {
			return domain.PricingResult{}, err
		}
		return domain.PricePayoff(ctx, p, r.contract.Expiry, r.market, r.model)
	}
	if mc, ok := r.model.(domain.MonteCarlo); ok {
		return mc.PriceContext(ctx, r.contract, r.market)
	}
	return domain.Price(r.contract, r.market, r.model)
}

// PriceOption 期权定价
func (s *PricingService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*PriceResultDTO, error) {
	const op = "price_option"
	r, err := s.resolve(cmd)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	key, keyErr := r.cacheKey("price", cmd.Payoff)
	if keyErr == nil {
		var cached PriceResultDTO
		if s.loadCached(ctx, key, &cached) {
			cached.Cached = true
			return &cached, nil
		}
	}

	pctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := s.price(pctx, r, cmd.Payoff)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	s.metrics.RecordPricing(string(res.Model), "price", time.Since(start).Seconds(), res.Converged)
	logger.Debug(ctx, "option priced",
		"model", res.Model,
		"value", res.Value,
		"converged", res.Converged,
		"duration", time.Since(start),
	)

	dto := newPriceResultDTO(res)
	dto.Rule = r.rule
	dto.Reason = r.reason
	if keyErr == nil {
		s.storeCached(ctx, key, dto)
	}

	s.publish(ctx, domain.OptionPricedEventType, func(ctx context.Context) error {
		return s.publisher.PublishOptionPriced(ctx, domain.OptionPricedEvent{
			EventID:       uuid.NewString(),
			Underlying:    r.contract.Underlying,
			Contract:      r.contract,
			Market:        r.market,
			Value:         res.Value,
			StandardError: res.StandardError,
			Model:         res.Model,
			Converged:     res.Converged,
			OccurredOn:    s.now(),
		})
	})
	return dto, nil
}

// CalculateGreeks 计算希腊字母；无解析解的模型使用差分
func (s *PricingService) CalculateGreeks(ctx context.Context, cmd PriceOptionCommand) (*GreeksDTO, error) {
	const op = "calculate_greeks"
	if !cmd.Payoff.isVanilla() {
		return nil, s.fail(ctx, op, notApplicable(op, "greeks are only available for vanilla payoffs", map[string]any{"payoff": cmd.Payoff.kind()}))
	}
	r, err := s.resolve(cmd)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	key, keyErr := r.cacheKey("greeks", nil)
	if keyErr == nil {
		var cached GreeksDTO
		if s.loadCached(ctx, key, &cached) {
			cached.Cached = true
			return &cached, nil
		}
	}

	start := time.Now()
	g, err := domain.Greeks(r.contract, r.market, r.model)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	s.metrics.RecordPricing(string(r.model.Kind()), "greeks", time.Since(start).Seconds(), true)

	dto := newGreeksDTO(g, r.model.Kind())
	if keyErr == nil {
		s.storeCached(ctx, key, dto)
	}
	s.publish(ctx, domain.GreeksCalculatedEventType, func(ctx context.Context) error {
		return s.publisher.PublishGreeksCalculated(ctx, domain.GreeksCalculatedEvent{
			EventID:    uuid.NewString(),
			Contract:   r.contract,
			Market:     r.market,
			Greeks:     g,
			Model:      r.model.Kind(),
			OccurredOn: s.now(),
		})
	})
	return dto, nil
}

func (s *PricingService) ivSolver() domain.IVSolver {
	solver := domain.DefaultIVSolver()
	if s.cfg.Engine.IVTolerance > 0 {
		solver.Tolerance = s.cfg.Engine.IVTolerance
	}
	if s.cfg.Engine.IVMaxIterations > 0 {
		solver.MaxIterations = s.cfg.Engine.IVMaxIterations
	}
	return solver
}

// ImpliedVolatility 由观测价格反推隐含波动率
// 欧式合约默认以 Black-Scholes 为目标函数，美式合约默认以二叉树为目标函数
func (s *PricingService) ImpliedVolatility(ctx context.Context, cmd ImpliedVolatilityCommand) (*ImpliedVolatilityDTO, error) {
	const op = "implied_volatility"
	c, err := cmd.Contract.ToDomain()
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	m, err := cmd.Market.ToDomain()
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	solver := s.ivSolver()
	switch name := normalizeModelName(cmd.Model.Name); name {
	case ModelAuto:
		if c.Style == domain.StyleAmerican {
			solver.Model = s.models.Tune(domain.Binomial{Steps: domain.DefaultBinomialSteps})
		}
	case string(domain.ModelBlackScholes), string(domain.ModelBinomial):
		model, err := s.models.Build(cmd.Model, m)
		if err != nil {
			return nil, s.fail(ctx, op, err)
		}
		solver.Model = model
	default:
		return nil, s.fail(ctx, op, notApplicable(op, "implied volatility needs a model driven by the volatility input", map[string]any{"model": cmd.Model.Name}))
	}

	start := time.Now()
	res, err := solver.Solve(cmd.ObservedPrice, c, m)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	s.metrics.RecordPricing(string(solver.Model.Kind()), "implied_volatility", time.Since(start).Seconds(), res.Converged)
	return &ImpliedVolatilityDTO{
		Volatility: round(res.Volatility, volPlaces),
		Iterations: res.Iterations,
		Method:     res.Method,
		Converged:  res.Converged,
	}, nil
}

// RecommendModel 模型推荐
func (s *PricingService) RecommendModel(ctx context.Context, cmd RecommendModelCommand) (*RecommendationDTO, error) {
	const op = "recommend_model"
	c, err := cmd.Contract.ToDomain()
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	m, err := cmd.Market.ToDomain()
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	rec := domain.RecommendWith(c, m, domain.SelectionHints{EventRisk: cmd.EventRisk, PathDependent: cmd.PathDependent})
	return &RecommendationDTO{Model: string(rec.Model.Kind()), Rule: rec.Rule, Reason: rec.Reason}, nil
}

// CompareModels 多模型对比，单个模型失败只体现在对应行
func (s *PricingService) CompareModels(ctx context.Context, cmd CompareModelsCommand) ([]ModelComparisonDTO, error) {
	const op = "compare_models"
	c, err := cmd.Contract.ToDomain()
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	m, err := cmd.Market.ToDomain()
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	if len(cmd.Models) == 0 {
		rows := domain.CompareModels(c, m, s.models.AllDefaults(m)...)
		out := make([]ModelComparisonDTO, len(rows))
		for i, row := range rows {
			out[i] = s.comparisonRow(ctx, row)
		}
		return out, nil
	}

	out := make([]ModelComparisonDTO, len(cmd.Models))
	for i, spec := range cmd.Models {
		if spec.IsAuto() {
			rec := domain.Recommend(c, m)
			spec = ModelSpec{Name: string(rec.Model.Kind())}
		}
		model, err := s.models.Build(spec, m)
		if err != nil {
			out[i] = ModelComparisonDTO{Model: spec.Name, Error: NewErrorDTO(err)}
			continue
		}
		out[i] = s.comparisonRow(ctx, domain.CompareModels(c, m, model)[0])
	}
	return out, nil
}

func (s *PricingService) comparisonRow(ctx context.Context, row domain.ModelComparison) ModelComparisonDTO {
	dto := ModelComparisonDTO{Model: string(row.Model)}
	if row.Err != nil {
		logger.Debug(ctx, "model comparison row failed", "model", row.Model, "error", row.Err)
		s.metrics.RecordPricingError(domain.KindName(row.Err))
		dto.Error = NewErrorDTO(row.Err)
		return dto
	}
	dto.Result = newPriceResultDTO(row.Result)
	dto.DiffFromBlackScholes = roundPtr(row.DiffFromBlackScholes, pricePlaces)
	return dto
}

// BatchPriceOptions 批量定价；并发受 BatchConcurrency 限制，单项失败不影响其他项
func (s *PricingService) BatchPriceOptions(ctx context.Context, cmd BatchPriceCommand) (*BatchPriceDTO, error) {
	const op = "batch_price"
	if len(cmd.Items) == 0 {
		return nil, s.fail(ctx, op, invalid(op, "batch is empty", nil))
	}
	start := time.Now()
	items := make([]BatchItemDTO, len(cmd.Items))

	var mu sync.Mutex
	succeeded := 0

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, item := range cmd.Items {
		g.Go(func() error {
			items[i].Index = i
			if err := ctx.Err(); err != nil {
				items[i].Error = NewErrorDTO(err)
				return nil
			}
			res, err := s.PriceOption(ctx, item)
			if err != nil {
				items[i].Error = NewErrorDTO(err)
				return nil
			}
			items[i].Result = res
			mu.Lock()
			succeeded++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := &BatchPriceDTO{
		Items:      items,
		Succeeded:  succeeded,
		Failed:     len(items) - succeeded,
		DurationMs: time.Since(start).Milliseconds(),
	}
	logger.Info(ctx, "batch pricing completed", "total", len(items), "succeeded", out.Succeeded, "failed", out.Failed)

	s.publish(ctx, domain.BatchPricingCompletedEventType, func(ctx context.Context) error {
		return s.publisher.PublishBatchPricingCompleted(ctx, domain.BatchPricingCompletedEvent{
			EventID:    uuid.NewString(),
			Total:      len(items),
			Succeeded:  out.Succeeded,
			Failed:     out.Failed,
			DurationMs: out.DurationMs,
			OccurredOn: s.now(),
		})
	})
	return out, nil
}
