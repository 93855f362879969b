package application

import (
	"strings"

	"github.com/wyfcoding/optionsrisk/internal/pricing/domain"
	"github.com/wyfcoding/optionsrisk/pkg/config"
)

// ModelAuto 由模型选择器决定
const ModelAuto = "AUTO"

// ModelFactory 根据请求参数和引擎默认值构造定价模型
type ModelFactory struct {
	engine config.EngineConfig
}

// NewModelFactory 创建模型工厂
func NewModelFactory(engine config.EngineConfig) ModelFactory {
	return ModelFactory{engine: engine}
}

func normalizeModelName(name string) string {
	n := strings.ToUpper(strings.NewReplacer("_", "", "-", "", " ", "").Replace(name))
	switch n {
	case "", "AUTO":
		return ModelAuto
	case "BS", "BLACKSCHOLES":
		return string(domain.ModelBlackScholes)
	case "CRR", "BINOMIAL":
		return string(domain.ModelBinomial)
	case "MC", "MONTECARLO":
		return string(domain.ModelMonteCarlo)
	case "HESTON":
		return string(domain.ModelHeston)
	case "MERTON", "JUMPDIFFUSION":
		return string(domain.ModelJumpDiffusion)
	}
	return n
}

// IsAuto 是否需要自动选模
func (s ModelSpec) IsAuto() bool {
	return normalizeModelName(s.Name) == ModelAuto
}

// Build 构造模型；未给出的参数使用引擎默认值
func (f ModelFactory) Build(spec ModelSpec, m domain.MarketState) (domain.PricingModel, error) {
	switch domain.ModelKind(normalizeModelName(spec.Name)) {
	case domain.ModelBlackScholes:
		return domain.BlackScholes{}, nil
	case domain.ModelBinomial:
		return domain.Binomial{Steps: firstPositive(spec.Steps, f.engine.BinomialSteps, domain.DefaultBinomialSteps)}, nil
	case domain.ModelMonteCarlo:
		return f.monteCarlo(spec), nil
	case domain.ModelHeston:
		h := domain.RecommendedHeston(m.Volatility)
		// 给出任一参数时完全使用请求参数
		if spec.Kappa != 0 || spec.Theta != 0 || spec.SigmaV != 0 || spec.Rho != 0 || spec.V0 != 0 {
			h = domain.Heston{Kappa: spec.Kappa, Theta: spec.Theta, SigmaV: spec.SigmaV, Rho: spec.Rho, V0: spec.V0}
			if h.V0 == 0 {
				h.V0 = m.Volatility * m.Volatility
			}
		}
		h = f.Tune(h).(domain.Heston)
		return h, h.Validate()
	case domain.ModelJumpDiffusion:
		j := domain.RecommendedJumpDiffusion()
		if spec.JumpIntensity != 0 || spec.JumpMean != 0 || spec.JumpStd != 0 {
			j = domain.JumpDiffusion{Intensity: spec.JumpIntensity, Mean: spec.JumpMean, StdDev: spec.JumpStd}
		}
		j.MaxTerms = firstPositive(spec.MaxTerms, f.engine.JumpMaxTerms, domain.DefaultJumpMaxTerms)
		return j, j.Validate()
	case ModelAuto:
		return nil, &domain.PricingError{Kind: domain.ErrInvalidInput, Op: "build_model", Msg: "auto selection must be resolved by the selector"}
	}
	return nil, &domain.PricingError{
		Kind:   domain.ErrInvalidInput,
		Op:     "build_model",
		Msg:    "unknown pricing model",
		Inputs: map[string]any{"model": spec.Name},
	}
}

func (f ModelFactory) monteCarlo(spec ModelSpec) domain.MonteCarlo {
	mc := domain.MonteCarlo{
		Paths:      firstPositive(spec.Paths, f.engine.MCPaths, domain.DefaultMCPaths),
		Seed:       f.engine.MCSeed,
		Antithetic: f.engine.MCAntithetic,
		Steps:      spec.Steps,
		Workers:    firstPositive(f.engine.MCWorkers, 1),
	}
	if spec.Seed != nil {
		mc.Seed = *spec.Seed
	}
	if spec.Antithetic != nil {
		mc.Antithetic = *spec.Antithetic
	}
	return mc
}

// Tune 用引擎配置覆盖选择器给出模型的默认参数
func (f ModelFactory) Tune(model domain.PricingModel) domain.PricingModel {
	switch m := model.(type) {
	case domain.Binomial:
		if f.engine.BinomialSteps > 0 {
			m.Steps = f.engine.BinomialSteps
		}
		return m
	case domain.MonteCarlo:
		return f.monteCarlo(ModelSpec{})
	case domain.Heston:
		m.IntegrationLimit = f.engine.HestonLimit
		m.Panels = f.engine.HestonPanels
		return m
	case domain.JumpDiffusion:
		if f.engine.JumpMaxTerms > 0 {
			m.MaxTerms = f.engine.JumpMaxTerms
		}
		return m
	}
	return model
}

// AllDefaults 每种模型一个默认实例，用于模型对比
func (f ModelFactory) AllDefaults(m domain.MarketState) []domain.PricingModel {
	return []domain.PricingModel{
		domain.BlackScholes{},
		f.Tune(domain.Binomial{Steps: domain.DefaultBinomialSteps}),
		f.monteCarlo(ModelSpec{}),
		f.Tune(domain.RecommendedHeston(m.Volatility)),
		f.Tune(domain.RecommendedJumpDiffusion()),
	}
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
