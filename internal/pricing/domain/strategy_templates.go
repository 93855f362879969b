package domain

import "fmt"

// StrategyType 策略模板类型
type StrategyType string

const (
	StrategyTypeLongCall       StrategyType = "LONG_CALL"
	StrategyTypeShortCall      StrategyType = "SHORT_CALL"
	StrategyTypeLongPut        StrategyType = "LONG_PUT"
	StrategyTypeShortPut       StrategyType = "SHORT_PUT"
	StrategyTypeStraddle       StrategyType = "STRADDLE"
	StrategyTypeStrangle       StrategyType = "STRANGLE"
	StrategyTypeBullCallSpread StrategyType = "BULL_CALL_SPREAD"
	StrategyTypeBearPutSpread  StrategyType = "BEAR_PUT_SPREAD"
	StrategyTypeIronCondor     StrategyType = "IRON_CONDOR"
	StrategyTypeIronButterfly  StrategyType = "IRON_BUTTERFLY"
	StrategyTypeButterfly      StrategyType = "BUTTERFLY"
)

// legShape 模板中一条腿的形状，strike 为行权价序号
type legShape struct {
	typ      OptionType
	position Position
	strike   int
	ratio    int
}

type template struct {
	strikes int
	legs    []legShape
}

var templates = map[StrategyType]template{
	StrategyTypeLongCall:  {1, []legShape{{OptionTypeCall, PositionLong, 0, 1}}},
	StrategyTypeShortCall: {1, []legShape{{OptionTypeCall, PositionShort, 0, 1}}},
	StrategyTypeLongPut:   {1, []legShape{{OptionTypePut, PositionLong, 0, 1}}},
	StrategyTypeShortPut:  {1, []legShape{{OptionTypePut, PositionShort, 0, 1}}},
	StrategyTypeStraddle: {1, []legShape{
		{OptionTypeCall, PositionLong, 0, 1},
		{OptionTypePut, PositionLong, 0, 1},
	}},
	StrategyTypeStrangle: {2, []legShape{
		{OptionTypePut, PositionLong, 0, 1},
		{OptionTypeCall, PositionLong, 1, 1},
	}},
	StrategyTypeBullCallSpread: {2, []legShape{
		{OptionTypeCall, PositionLong, 0, 1},
		{OptionTypeCall, PositionShort, 1, 1},
	}},
	StrategyTypeBearPutSpread: {2, []legShape{
		{OptionTypePut, PositionShort, 0, 1},
		{OptionTypePut, PositionLong, 1, 1},
	}},
	StrategyTypeIronCondor: {4, []legShape{
		{OptionTypePut, PositionLong, 0, 1},
		{OptionTypePut, PositionShort, 1, 1},
		{OptionTypeCall, PositionShort, 2, 1},
		{OptionTypeCall, PositionLong, 3, 1},
	}},
	StrategyTypeIronButterfly: {3, []legShape{
		{OptionTypePut, PositionLong, 0, 1},
		{OptionTypePut, PositionShort, 1, 1},
		{OptionTypeCall, PositionShort, 1, 1},
		{OptionTypeCall, PositionLong, 2, 1},
	}},
	StrategyTypeButterfly: {3, []legShape{
		{OptionTypeCall, PositionLong, 0, 1},
		{OptionTypeCall, PositionShort, 1, 2},
		{OptionTypeCall, PositionLong, 2, 1},
	}},
}

// TemplateSpec 模板参数
// Strikes 升序给出；Premiums 与模板腿一一对应（见 TemplateLegs）
type TemplateSpec struct {
	Underlying string
	Strikes    []float64
	Premiums   []float64
	Expiry     float64
	Style      ExerciseStyle
	Quantity   int
	Market     MarketState
}

// StrategyTypes 返回支持的模板类型
func StrategyTypes() []StrategyType {
	return []StrategyType{
		StrategyTypeLongCall, StrategyTypeShortCall, StrategyTypeLongPut, StrategyTypeShortPut,
		StrategyTypeStraddle, StrategyTypeStrangle, StrategyTypeBullCallSpread, StrategyTypeBearPutSpread,
		StrategyTypeIronCondor, StrategyTypeIronButterfly, StrategyTypeButterfly,
	}
}

// TemplateLegs 描述模板各腿，例如 "LONG PUT K1"
func TemplateLegs(t StrategyType) ([]string, error) {
	tpl, ok := templates[t]
	if !ok {
		return nil, invalidInput("strategy_template", "unknown strategy type", map[string]any{"type": t})
	}
	out := make([]string, len(tpl.legs))
	for i, l := range tpl.legs {
		out[i] = fmt.Sprintf("%s %dx%s K%d", l.position, l.ratio, l.typ, l.strike+1)
	}
	return out, nil
}

// NewStrategyFromTemplate 根据模板生成策略
func NewStrategyFromTemplate(t StrategyType, spec TemplateSpec) (Strategy, error) {
	const op = "strategy_template"
	tpl, ok := templates[t]
	if !ok {
		return Strategy{}, invalidInput(op, "unknown strategy type", map[string]any{"type": t})
	}
	in := map[string]any{"type": t, "strikes": spec.Strikes, "premiums": spec.Premiums}
	if len(spec.Strikes) != tpl.strikes {
		return Strategy{}, invalidInput(op, fmt.Sprintf("template needs %d strikes", tpl.strikes), in)
	}
	if len(spec.Premiums) != len(tpl.legs) {
		return Strategy{}, invalidInput(op, fmt.Sprintf("template needs %d premiums", len(tpl.legs)), in)
	}
	for i := 1; i < len(spec.Strikes); i++ {
		if spec.Strikes[i] <= spec.Strikes[i-1] {
			return Strategy{}, invalidInput(op, "strikes must be strictly ascending", in)
		}
	}
	qty := spec.Quantity
	if qty == 0 {
		qty = 1
	}
	style := spec.Style
	if style == "" {
		style = StyleEuropean
	}

	s := Strategy{Name: string(t), Type: t, Market: spec.Market}
	for i, l := range tpl.legs {
		s.Legs = append(s.Legs, StrategyLeg{
			Contract: OptionContract{
				Underlying: spec.Underlying,
				Type:       l.typ,
				Strike:     spec.Strikes[l.strike],
				Expiry:     spec.Expiry,
				Style:      style,
			},
			Position:     l.position,
			Quantity:     qty * l.ratio,
			EntryPremium: spec.Premiums[i],
		})
	}
	return s, s.Validate()
}

// LongStraddle 同一行权价买入看涨与看跌
func LongStraddle(strike, expiry, callPremium, putPremium float64, market MarketState) (Strategy, error) {
	return NewStrategyFromTemplate(StrategyTypeStraddle, TemplateSpec{
		Strikes:  []float64{strike},
		Premiums: []float64{callPremium, putPremium},
		Expiry:   expiry,
		Market:   market,
	})
}

// IronCondor 行权价依次为 买入看跌、卖出看跌、卖出看涨、买入看涨
func IronCondor(strikes [4]float64, premiums [4]float64, expiry float64, market MarketState) (Strategy, error) {
	return NewStrategyFromTemplate(StrategyTypeIronCondor, TemplateSpec{
		Strikes:  strikes[:],
		Premiums: premiums[:],
		Expiry:   expiry,
		Market:   market,
	})
}
