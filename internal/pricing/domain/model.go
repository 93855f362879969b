package domain

// ModelKind 定价模型标识
type ModelKind string

const (
	ModelBlackScholes  ModelKind = "BlackScholes"
	ModelBinomial      ModelKind = "Binomial"
	ModelMonteCarlo    ModelKind = "MonteCarlo"
	ModelHeston        ModelKind = "Heston"
	ModelJumpDiffusion ModelKind = "JumpDiffusion"
)

// PricingModel 定价模型的封闭变体
// 每个变体只携带自身算法所需参数，并实现统一的 Price 契约。
// 新增模型即新增一个实现该接口的类型，调用方无需修改。
type PricingModel interface {
	Kind() ModelKind
	Price(contract OptionContract, market MarketState) (PricingResult, error)
	pricingModel()
}

// GreeksModel 提供解析 Greeks 的模型；未实现者由引擎做数值差分
type GreeksModel interface {
	Greeks(contract OptionContract, market MarketState) (GreeksResult, error)
}

// PricingResult 定价结果
type PricingResult struct {
	Value              float64   `json:"value"`
	StandardError      *float64  `json:"standard_error,omitempty"`
	Model              ModelKind `json:"model_used"`
	Converged          bool      `json:"converged"`
	Iterations         int       `json:"iterations,omitempty"`
	TruncationError    float64   `json:"truncation_error,omitempty"`
	Paths              int       `json:"paths,omitempty"`
	IndependentSamples int       `json:"independent_samples,omitempty"`
	Terms              int       `json:"terms,omitempty"`
}

// HasStandardError 是否携带标准误（仅模拟类模型）
func (r PricingResult) HasStandardError() bool { return r.StandardError != nil }

// ConfidenceInterval95 返回 ±1.96 SE 的置信区间
func (r PricingResult) ConfidenceInterval95() (lo, hi float64, ok bool) {
	if r.StandardError == nil {
		return 0, 0, false
	}
	half := 1.96 * *r.StandardError
	return r.Value - half, r.Value + half, true
}

// GreeksResult 希腊字母
// Delta/Gamma/Vega/Rho 以标的单位计，Theta 为年化（日衰减需除以 365）
type GreeksResult struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// Add 逐项相加
func (g GreeksResult) Add(o GreeksResult) GreeksResult {
	return GreeksResult{
		Delta: g.Delta + o.Delta,
		Gamma: g.Gamma + o.Gamma,
		Theta: g.Theta + o.Theta,
		Vega:  g.Vega + o.Vega,
		Rho:   g.Rho + o.Rho,
	}
}

// Scale 逐项乘以系数
func (g GreeksResult) Scale(f float64) GreeksResult {
	return GreeksResult{
		Delta: g.Delta * f,
		Gamma: g.Gamma * f,
		Theta: g.Theta * f,
		Vega:  g.Vega * f,
		Rho:   g.Rho * f,
	}
}

func float64Ptr(v float64) *float64 { return &v }
