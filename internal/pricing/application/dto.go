package application

import (
	"strings"

	"github.com/wyfcoding/optionsrisk/internal/pricing/domain"
)

// 输出保留的小数位
const (
	pricePlaces  = 6
	greeksPlaces = 6
	volPlaces    = 6
)

// ContractDTO 合约参数
type ContractDTO struct {
	Underlying string  `json:"underlying,omitempty"`
	Type       string  `json:"type" binding:"required"`
	Strike     float64 `json:"strike" binding:"required"`
	// Expiry 年化到期时间
	Expiry float64 `json:"expiry"`
	Style  string  `json:"style,omitempty"`
}

// ToDomain 转为领域合约
func (c ContractDTO) ToDomain() (domain.OptionContract, error) {
	oc, err := domain.NewOptionContract(domain.OptionType(strings.ToUpper(c.Type)), c.Strike, c.Expiry, domain.ExerciseStyle(strings.ToUpper(c.Style)))
	if err != nil {
		return domain.OptionContract{}, err
	}
	oc.Underlying = c.Underlying
	return oc, nil
}

// MarketDTO 市场参数
type MarketDTO struct {
	Spot          float64 `json:"spot" binding:"required"`
	RiskFreeRate  float64 `json:"risk_free_rate"`
	DividendYield float64 `json:"dividend_yield"`
	Volatility    float64 `json:"volatility"`
}

// ToDomain 转为领域市场状态
func (m MarketDTO) ToDomain() (domain.MarketState, error) {
	return domain.NewMarketState(m.Spot, m.RiskFreeRate, m.DividendYield, m.Volatility)
}

// ModelSpec 模型选择与参数；Name 为空或 AUTO 时由模型选择器决定
type ModelSpec struct {
	Name string `json:"name,omitempty"`

	Steps      int     `json:"steps,omitempty"`
	Paths      int     `json:"paths,omitempty"`
	Seed       *uint64 `json:"seed,omitempty"`
	Antithetic *bool   `json:"antithetic,omitempty"`

	Kappa  float64 `json:"kappa,omitempty"`
	Theta  float64 `json:"theta,omitempty"`
	SigmaV float64 `json:"sigma_v,omitempty"`
	Rho    float64 `json:"rho,omitempty"`
	V0     float64 `json:"v0,omitempty"`

	JumpIntensity float64 `json:"jump_intensity,omitempty"`
	JumpMean      float64 `json:"jump_mean,omitempty"`
	JumpStd       float64 `json:"jump_std,omitempty"`
	MaxTerms      int     `json:"max_terms,omitempty"`

	EventRisk bool `json:"event_risk,omitempty"`
}

// PayoffDTO 非普通收益（障碍、亚式），仅蒙特卡洛支持
type PayoffDTO struct {
	// Kind: VANILLA, BARRIER, ASIAN
	Kind        string  `json:"kind"`
	BarrierKind string  `json:"barrier_kind,omitempty"`
	Barrier     float64 `json:"barrier,omitempty"`
}

// PriceOptionCommand 单个期权定价
type PriceOptionCommand struct {
	Contract ContractDTO `json:"contract" binding:"required"`
	Market   MarketDTO   `json:"market" binding:"required"`
	Model    ModelSpec   `json:"model"`
	Payoff   *PayoffDTO  `json:"payoff,omitempty"`
}

// PriceResultDTO 定价结果
type PriceResultDTO struct {
	Value              float64   `json:"value"`
	StandardError      *float64  `json:"standard_error,omitempty"`
	ConfidenceInterval []float64 `json:"confidence_interval_95,omitempty"`
	ModelUsed          string    `json:"model_used"`
	Converged          bool      `json:"converged"`
	Iterations         int       `json:"iterations,omitempty"`
	TruncationError    float64   `json:"truncation_error,omitempty"`
	Paths              int       `json:"paths,omitempty"`
	IndependentSamples int       `json:"independent_samples,omitempty"`
	Terms              int       `json:"terms,omitempty"`
	// Rule 自动选模时命中的规则
	Rule   string `json:"rule,omitempty"`
	Reason string `json:"reason,omitempty"`
	Cached bool   `json:"cached"`
}

func newPriceResultDTO(r domain.PricingResult) *PriceResultDTO {
	dto := &PriceResultDTO{
		Value:              round(r.Value, pricePlaces),
		StandardError:      roundPtr(r.StandardError, pricePlaces),
		ModelUsed:          string(r.Model),
		Converged:          r.Converged,
		Iterations:         r.Iterations,
		TruncationError:    r.TruncationError,
		Paths:              r.Paths,
		IndependentSamples: r.IndependentSamples,
		Terms:              r.Terms,
	}
	if lo, hi, ok := r.ConfidenceInterval95(); ok {
		dto.ConfidenceInterval = []float64{round(lo, pricePlaces), round(hi, pricePlaces)}
	}
	return dto
}

// GreeksDTO 希腊字母
type GreeksDTO struct {
	Delta     float64 `json:"delta"`
	Gamma     float64 `json:"gamma"`
	Theta     float64 `json:"theta"`
	Vega      float64 `json:"vega"`
	Rho       float64 `json:"rho"`
	ModelUsed string  `json:"model_used,omitempty"`
	Cached    bool    `json:"cached"`
}

func newGreeksDTO(g domain.GreeksResult, model domain.ModelKind) *GreeksDTO {
	return &GreeksDTO{
		Delta:     round(g.Delta, greeksPlaces),
		Gamma:     round(g.Gamma, greeksPlaces),
		Theta:     round(g.Theta, greeksPlaces),
		Vega:      round(g.Vega, greeksPlaces),
		Rho:       round(g.Rho, greeksPlaces),
		ModelUsed: string(model),
	}
}

// ImpliedVolatilityCommand 隐含波动率反推
type ImpliedVolatilityCommand struct {
	Contract ContractDTO `json:"contract" binding:"required"`
	Market   MarketDTO   `json:"market" binding:"required"`
	// ObservedPrice 市场观测价
	ObservedPrice float64 `json:"observed_price" binding:"required"`
	// Model 仅支持 BLACKSCHOLES 与 BINOMIAL 作为目标函数
	Model ModelSpec `json:"model"`
}

// ImpliedVolatilityDTO 隐含波动率结果
type ImpliedVolatilityDTO struct {
	Volatility float64 `json:"implied_volatility"`
	Iterations int     `json:"iterations"`
	Method     string  `json:"method"`
	Converged  bool    `json:"converged"`
}

// RecommendModelCommand 模型推荐
type RecommendModelCommand struct {
	Contract      ContractDTO `json:"contract" binding:"required"`
	Market        MarketDTO   `json:"market" binding:"required"`
	EventRisk     bool        `json:"event_risk"`
	PathDependent bool        `json:"path_dependent"`
}

// RecommendationDTO 推荐结果
type RecommendationDTO struct {
	Model  string `json:"model"`
	Rule   string `json:"rule"`
	Reason string `json:"reason"`
}

// CompareModelsCommand 多模型对比；Models 为空时对比全部模型的默认配置
type CompareModelsCommand struct {
	Contract ContractDTO `json:"contract" binding:"required"`
	Market   MarketDTO   `json:"market" binding:"required"`
	Models   []ModelSpec `json:"models"`
}

// ModelComparisonDTO 对比结果中的一行
type ModelComparisonDTO struct {
	Model                string          `json:"model"`
	Result               *PriceResultDTO `json:"result,omitempty"`
	DiffFromBlackScholes *float64        `json:"diff_from_black_scholes,omitempty"`
	Error                *ErrorDTO       `json:"error,omitempty"`
}

// StrategyLegDTO 策略腿
type StrategyLegDTO struct {
	Contract     ContractDTO `json:"contract"`
	Position     string      `json:"position"`
	Quantity     int         `json:"quantity"`
	EntryPremium float64     `json:"entry_premium"`
}

// AnalyzeStrategyCommand 策略分析；Template 非空时按模板生成腿
type AnalyzeStrategyCommand struct {
	Name     string           `json:"name"`
	Template string           `json:"template,omitempty"`
	Strikes  []float64        `json:"strikes,omitempty"`
	Premiums []float64        `json:"premiums,omitempty"`
	Expiry   float64          `json:"expiry,omitempty"`
	Style    string           `json:"style,omitempty"`
	Quantity int              `json:"quantity,omitempty"`
	Legs     []StrategyLegDTO `json:"legs,omitempty"`
	Market   MarketDTO        `json:"market" binding:"required"`
	// CurvePoints 返回的损益曲线采样点数，0 表示不返回
	CurvePoints int `json:"curve_points,omitempty"`
}

// BoundDTO 可能无界的极值
type BoundDTO struct {
	Value     *float64 `json:"value,omitempty"`
	Unbounded bool     `json:"unbounded"`
}

func newBoundDTO(b domain.Bound) BoundDTO {
	if b.Unbounded {
		return BoundDTO{Unbounded: true}
	}
	v := round(b.Value, pricePlaces)
	return BoundDTO{Value: &v}
}

// StrategyAnalysisDTO 策略分析结果
type StrategyAnalysisDTO struct {
	Name       string               `json:"name"`
	Legs       []StrategyLegDTO     `json:"legs"`
	NetPremium float64              `json:"net_premium"`
	Greeks     GreeksDTO            `json:"greeks"`
	MaxProfit  BoundDTO             `json:"max_profit"`
	MaxLoss    BoundDTO             `json:"max_loss"`
	BreakEvens []float64            `json:"break_evens"`
	Curve      []domain.PayoffPoint `json:"curve,omitempty"`
}

// BatchPriceCommand 批量定价
type BatchPriceCommand struct {
	Items []PriceOptionCommand `json:"items" binding:"required"`
}

// BatchItemDTO 批量定价中的单项结果，失败项携带错误
type BatchItemDTO struct {
	Index  int             `json:"index"`
	Result *PriceResultDTO `json:"result,omitempty"`
	Error  *ErrorDTO       `json:"error,omitempty"`
}

// BatchPriceDTO 批量定价结果
type BatchPriceDTO struct {
	Items      []BatchItemDTO `json:"items"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	DurationMs int64          `json:"duration_ms"`
}

// VolatilitySmileCommand 由期权链构造波动率微笑；Chain 为空时使用注入的 ChainProvider
type VolatilitySmileCommand struct {
	Market MarketDTO           `json:"market" binding:"required"`
	Chain  []domain.ChainQuote `json:"chain,omitempty"`
	// Expiry 非零时只保留该到期的报价
	Expiry float64 `json:"expiry,omitempty"`
	// Type 非空时只保留该类型
	Type string `json:"type,omitempty"`
}

// SmileDTO 波动率微笑
type SmileDTO struct {
	Points []domain.SmilePoint `json:"points"`
	Failed int                 `json:"failed"`
}

// HistoricalVolatilityCommand 历史波动率
type HistoricalVolatilityCommand struct {
	Closes         []float64 `json:"closes" binding:"required"`
	PeriodsPerYear float64   `json:"periods_per_year,omitempty"`
}

// HistoricalVolatilityDTO 历史波动率结果
type HistoricalVolatilityDTO struct {
	Volatility float64 `json:"volatility"`
	Samples    int     `json:"samples"`
}

// ErrorDTO 定价错误的对外表示
type ErrorDTO struct {
	Kind    string          `json:"kind"`
	Op      string          `json:"op,omitempty"`
	Message string          `json:"message"`
	Inputs  map[string]any  `json:"inputs,omitempty"`
	Partial *PriceResultDTO `json:"partial,omitempty"`
}

// NewErrorDTO 转换领域错误
func NewErrorDTO(err error) *ErrorDTO {
	if err == nil {
		return nil
	}
	pe, ok := domain.AsPricingError(err)
	if !ok {
		return &ErrorDTO{Kind: domain.KindName(err), Message: err.Error()}
	}
	dto := &ErrorDTO{Kind: pe.KindName(), Op: pe.Op, Message: pe.Msg, Inputs: pe.Inputs}
	if pe.Partial != nil {
		dto.Partial = newPriceResultDTO(*pe.Partial)
	}
	return dto
}
