package application

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/optionsrisk/internal/pricing/domain"
)

// maxCurvePoints 损益曲线的最大采样点数
const maxCurvePoints = 1000

func (s *PricingService) buildStrategy(cmd AnalyzeStrategyCommand) (domain.Strategy, error) {
	m, err := cmd.Market.ToDomain()
	if err != nil {
		return domain.Strategy{}, err
	}
	if cmd.Template != "" {
		st, err := domain.NewStrategyFromTemplate(domain.StrategyType(strings.ToUpper(cmd.Template)), domain.TemplateSpec{
			Strikes:  cmd.Strikes,
			Premiums: cmd.Premiums,
			Expiry:   cmd.Expiry,
			Style:    domain.ExerciseStyle(strings.ToUpper(cmd.Style)),
			Quantity: cmd.Quantity,
			Market:   m,
		})
		if err != nil {
			return domain.Strategy{}, err
		}
		if cmd.Name != "" {
			st.Name = cmd.Name
		}
		return st, nil
	}

	st := domain.Strategy{Name: cmd.Name, Market: m}
	for _, l := range cmd.Legs {
		c, err := l.Contract.ToDomain()
		if err != nil {
			return domain.Strategy{}, err
		}
		st.Legs = append(st.Legs, domain.StrategyLeg{
			Contract:     c,
			Position:     domain.Position(strings.ToUpper(l.Position)),
			Quantity:     l.Quantity,
			EntryPremium: l.EntryPremium,
		})
	}
	return st, st.Validate()
}

// AnalyzeStrategy 策略分析：到期损益、聚合 Greeks、最大盈亏与盈亏平衡点
func (s *PricingService) AnalyzeStrategy(ctx context.Context, cmd AnalyzeStrategyCommand) (*StrategyAnalysisDTO, error) {
	const op = "analyze_strategy"
	st, err := s.buildStrategy(cmd)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	start := time.Now()
	a, err := domain.Analyze(st)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	s.metrics.RecordPricing("Strategy", "analyze_strategy", time.Since(start).Seconds(), true)

	dto := &StrategyAnalysisDTO{
		Name:       st.Name,
		NetPremium: round(a.NetPremium, pricePlaces),
		Greeks:     *newGreeksDTO(a.Greeks, ""),
		MaxProfit:  newBoundDTO(a.MaxProfit),
		MaxLoss:    newBoundDTO(a.MaxLoss),
		BreakEvens: make([]float64, len(a.BreakEvens)),
	}
	for i, be := range a.BreakEvens {
		dto.BreakEvens[i] = round(be, pricePlaces)
	}
	for _, l := range st.Legs {
		dto.Legs = append(dto.Legs, StrategyLegDTO{
			Contract: ContractDTO{
				Underlying: l.Contract.Underlying,
				Type:       string(l.Contract.Type),
				Strike:     l.Contract.Strike,
				Expiry:     l.Contract.Expiry,
				Style:      string(l.Contract.Style),
			},
			Position:     string(l.Position),
			Quantity:     l.Quantity,
			EntryPremium: l.EntryPremium,
		})
	}
	if n := min(cmd.CurvePoints, maxCurvePoints); n > 0 {
		lo, hi := curveRange(st.Legs)
		dto.Curve = a.Profile.Sample(lo, hi, n)
	}

	s.publish(ctx, domain.StrategyAnalyzedEventType, func(ctx context.Context) error {
		return s.publisher.PublishStrategyAnalyzed(ctx, domain.StrategyAnalyzedEvent{
			EventID:    uuid.NewString(),
			Name:       st.Name,
			Legs:       len(st.Legs),
			NetPremium: a.NetPremium,
			MaxProfit:  a.MaxProfit,
			MaxLoss:    a.MaxLoss,
			BreakEvens: a.BreakEvens,
			Greeks:     a.Greeks,
			OccurredOn: s.now(),
		})
	})
	return dto, nil
}

// curveRange 覆盖全部行权价并向两侧各延伸一半
func curveRange(legs []domain.StrategyLeg) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, l := range legs {
		lo = math.Min(lo, l.Contract.Strike)
		hi = math.Max(hi, l.Contract.Strike)
	}
	return 0.5 * lo, 1.5 * hi
}
