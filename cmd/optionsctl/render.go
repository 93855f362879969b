package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/wyfcoding/optionsrisk/internal/pricing/application"
)

// 输出格式
const (
	outputTable = "table"
	outputJSON  = "json"
)

// table tablewriter 的薄封装
type table struct {
	w *tablewriter.Table
}

func (t *table) header(cols ...string) { t.w.SetHeader(cols) }

func (t *table) row(cols ...string) { t.w.Append(cols) }

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func numPtr(f *float64) string {
	if f == nil {
		return "-"
	}
	return num(*f)
}

func bound(b application.BoundDTO) string {
	if b.Unbounded {
		return "unbounded"
	}
	return numPtr(b.Value)
}

func (t *table) priceResult(r *application.PriceResultDTO) {
	t.header("FIELD", "VALUE")
	t.row("model", r.ModelUsed)
	t.row("value", num(r.Value))
	t.row("converged", strconv.FormatBool(r.Converged))
	if r.StandardError != nil {
		t.row("standard_error", num(*r.StandardError))
	}
	if len(r.ConfidenceInterval) == 2 {
		t.row("ci_95", fmt.Sprintf("[%s, %s]", num(r.ConfidenceInterval[0]), num(r.ConfidenceInterval[1])))
	}
	if r.Paths > 0 {
		t.row("paths", strconv.Itoa(r.Paths))
	}
	if r.Iterations > 0 {
		t.row("iterations", strconv.Itoa(r.Iterations))
	}
	if r.Terms > 0 {
		t.row("terms", strconv.Itoa(r.Terms))
		t.row("truncation_error", num(r.TruncationError))
	}
	if r.Rule != "" {
		t.row("rule", r.Rule)
	}
}

func (t *table) greeks(g *application.GreeksDTO) {
	t.header("MODEL", "DELTA", "GAMMA", "THETA", "VEGA", "RHO")
	t.row(g.ModelUsed, num(g.Delta), num(g.Gamma), num(g.Theta), num(g.Vega), num(g.Rho))
}

func (t *table) comparison(rows []application.ModelComparisonDTO) {
	t.header("MODEL", "VALUE", "STD ERR", "DIFF VS BS", "CONVERGED", "ERROR")
	for _, r := range rows {
		if r.Error != nil {
			t.row(r.Model, "-", "-", "-", "-", r.Error.Kind+": "+r.Error.Message)
			continue
		}
		t.row(r.Model, num(r.Result.Value), numPtr(r.Result.StandardError), numPtr(r.DiffFromBlackScholes), strconv.FormatBool(r.Result.Converged), "")
	}
}

func (t *table) strategy(s *application.StrategyAnalysisDTO) {
	t.header("FIELD", "VALUE")
	t.row("name", s.Name)
	t.row("net_premium", num(s.NetPremium))
	t.row("max_profit", bound(s.MaxProfit))
	t.row("max_loss", bound(s.MaxLoss))
	t.row("break_evens", fmt.Sprint(s.BreakEvens))
	t.row("delta", num(s.Greeks.Delta))
	t.row("gamma", num(s.Greeks.Gamma))
	t.row("theta", num(s.Greeks.Theta))
	t.row("vega", num(s.Greeks.Vega))
	t.row("rho", num(s.Greeks.Rho))
	for i, leg := range s.Legs {
		t.row(fmt.Sprintf("leg_%d", i+1), fmt.Sprintf("%s %d %s %s @ %s", leg.Position, leg.Quantity, leg.Contract.Type, num(leg.Contract.Strike), num(leg.EntryPremium)))
	}
}

func (t *table) smile(s *application.SmileDTO) {
	t.header("STRIKE", "EXPIRY", "TYPE", "MID", "IV", "ERROR")
	for _, p := range s.Points {
		iv := num(p.ImpliedVolatility)
		if p.Error != "" {
			iv = "-"
		}
		t.row(num(p.Strike), num(p.Expiry), string(p.Type), num(p.Mid), iv, p.Error)
	}
}

// render 按 --output 输出结果
func render(cmd *cobra.Command, g *globalFlags, v any, fill func(*table)) error {
	out := cmd.OutOrStdout()
	switch g.output {
	case outputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputTable, "":
		t := &table{w: tablewriter.NewWriter(out)}
		t.w.SetAutoWrapText(false)
		t.w.SetAlignment(tablewriter.ALIGN_LEFT)
		fill(t)
		t.w.Render()
		return nil
	}
	return fmt.Errorf("unknown output format %q", g.output)
}

// renderFailure 输出定价错误（含部分结果）并返回原错误
func renderFailure(cmd *cobra.Command, g *globalFlags, err error) error {
	dto := application.NewErrorDTO(err)
	if dto.Partial == nil {
		return err
	}
	if rerr := render(cmd, g, dto, func(t *table) { t.priceResult(dto.Partial) }); rerr != nil {
		return errors.Join(err, rerr)
	}
	return err
}
