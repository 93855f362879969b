package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// 错误类别哨兵，可通过 errors.Is 判断
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrModelNotApplicable   = errors.New("model not applicable")
	ErrNonConvergence       = errors.New("non convergence")
	ErrNumericalInstability = errors.New("numerical instability")
)

// PricingError 结构化定价错误
// Kind 为上面的哨兵之一，Inputs 携带触发错误的输入参数
type PricingError struct {
	Kind    error          `json:"-"`
	Op      string         `json:"op"`
	Msg     string         `json:"message"`
	Inputs  map[string]any `json:"inputs,omitempty"`
	Partial *PricingResult `json:"partial,omitempty"`
}

func (e *PricingError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if len(e.Inputs) > 0 {
		keys := make([]string, 0, len(e.Inputs))
		for k := range e.Inputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Inputs[k])
		}
		b.WriteString("]")
	}
	return b.String()
}

func (e *PricingError) Unwrap() error { return e.Kind }

// KindName 返回错误类别的稳定名称，用于日志与指标标签
func (e *PricingError) KindName() string {
	return KindName(e.Kind)
}

// KindName 返回任意错误对应的类别名称
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, ErrModelNotApplicable):
		return "ModelNotApplicable"
	case errors.Is(err, ErrNonConvergence):
		return "NonConvergence"
	case errors.Is(err, ErrNumericalInstability):
		return "NumericalInstability"
	default:
		return "Unknown"
	}
}

func invalidInput(op, msg string, inputs map[string]any) error {
	return &PricingError{Kind: ErrInvalidInput, Op: op, Msg: msg, Inputs: inputs}
}

func notApplicable(op, msg string, inputs map[string]any) error {
	return &PricingError{Kind: ErrModelNotApplicable, Op: op, Msg: msg, Inputs: inputs}
}

func nonConvergence(op, msg string, inputs map[string]any) error {
	return &PricingError{Kind: ErrNonConvergence, Op: op, Msg: msg, Inputs: inputs}
}

func instability(op, msg string, inputs map[string]any, partial *PricingResult) error {
	return &PricingError{Kind: ErrNumericalInstability, Op: op, Msg: msg, Inputs: inputs, Partial: partial}
}

// AsPricingError 提取结构化错误
func AsPricingError(err error) (*PricingError, bool) {
	var pe *PricingError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
