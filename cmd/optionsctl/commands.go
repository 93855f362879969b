package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/wyfcoding/optionsrisk/internal/pricing/application"
	"github.com/wyfcoding/optionsrisk/internal/pricing/domain"
	"github.com/wyfcoding/optionsrisk/internal/pricing/infrastructure/marketdata"
)

// contractFlags 单个合约与模型参数
type contractFlags struct {
	underlying string
	typ        string
	strike     float64
	expiry     float64
	style      string

	model string
	steps int
	paths int
	seed  uint64
}

func (f *contractFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.underlying, "underlying", "", "underlying symbol")
	fs.StringVar(&f.typ, "type", "CALL", "CALL or PUT")
	fs.Float64Var(&f.strike, "strike", 100, "strike price")
	fs.Float64Var(&f.expiry, "expiry", 1, "time to expiry in years")
	fs.StringVar(&f.style, "style", "EUROPEAN", "EUROPEAN or AMERICAN")
	fs.StringVar(&f.model, "model", application.ModelAuto, "pricing model, AUTO selects by rule table")
	fs.IntVar(&f.steps, "steps", 0, "binomial steps (0 uses engine default)")
	fs.IntVar(&f.paths, "paths", 0, "monte carlo paths (0 uses engine default)")
	fs.Uint64Var(&f.seed, "seed", 0, "monte carlo seed (0 uses engine default)")
}

func (f *contractFlags) contract() application.ContractDTO {
	return application.ContractDTO{Underlying: f.underlying, Type: f.typ, Strike: f.strike, Expiry: f.expiry, Style: f.style}
}

func (f *contractFlags) spec(cmd *cobra.Command) application.ModelSpec {
	spec := application.ModelSpec{Name: f.model, Steps: f.steps, Paths: f.paths}
	if cmd.Flags().Changed("seed") {
		seed := f.seed
		spec.Seed = &seed
	}
	return spec
}

func newPriceCmd(g *globalFlags) *cobra.Command {
	cf := &contractFlags{}
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price a single option",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := g.service()
			if err != nil {
				return err
			}
			res, err := svc.PriceOption(cmd.Context(), application.PriceOptionCommand{
				Contract: cf.contract(),
				Market:   g.market(),
				Model:    cf.spec(cmd),
			})
			if err != nil {
				return renderFailure(cmd, g, err)
			}
			return render(cmd, g, res, func(t *table) { t.priceResult(res) })
		},
	}
	cf.register(cmd)
	return cmd
}

func newGreeksCmd(g *globalFlags) *cobra.Command {
	cf := &contractFlags{}
	cmd := &cobra.Command{
		Use:   "greeks",
		Short: "Compute delta, gamma, theta, vega and rho",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := g.service()
			if err != nil {
				return err
			}
			res, err := svc.CalculateGreeks(cmd.Context(), application.PriceOptionCommand{
				Contract: cf.contract(),
				Market:   g.market(),
				Model:    cf.spec(cmd),
			})
			if err != nil {
				return renderFailure(cmd, g, err)
			}
			return render(cmd, g, res, func(t *table) { t.greeks(res) })
		},
	}
	cf.register(cmd)
	return cmd
}

func newIVCmd(g *globalFlags) *cobra.Command {
	cf := &contractFlags{}
	var observed float64
	cmd := &cobra.Command{
		Use:   "iv",
		Short: "Solve implied volatility from an observed price",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := g.service()
			if err != nil {
				return err
			}
			res, err := svc.ImpliedVolatility(cmd.Context(), application.ImpliedVolatilityCommand{
				Contract:      cf.contract(),
				Market:        g.market(),
				ObservedPrice: observed,
				Model:         cf.spec(cmd),
			})
			if err != nil {
				return renderFailure(cmd, g, err)
			}
			return render(cmd, g, res, func(t *table) {
				t.header("FIELD", "VALUE")
				t.row("implied_volatility", num(res.Volatility))
				t.row("method", res.Method)
				t.row("iterations", strconv.Itoa(res.Iterations))
				t.row("converged", strconv.FormatBool(res.Converged))
			})
		},
	}
	cf.register(cmd)
	cmd.Flags().Float64Var(&observed, "price", 0, "observed option price")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func newRecommendCmd(g *globalFlags) *cobra.Command {
	cf := &contractFlags{}
	var eventRisk, pathDependent bool
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Show which model the rule table selects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := g.service()
			if err != nil {
				return err
			}
			res, err := svc.RecommendModel(cmd.Context(), application.RecommendModelCommand{
				Contract:      cf.contract(),
				Market:        g.market(),
				EventRisk:     eventRisk,
				PathDependent: pathDependent,
			})
			if err != nil {
				return renderFailure(cmd, g, err)
			}
			return render(cmd, g, res, func(t *table) {
				t.header("MODEL", "RULE", "REASON")
				t.row(res.Model, res.Rule, res.Reason)
			})
		},
	}
	cf.register(cmd)
	cmd.Flags().BoolVar(&eventRisk, "event-risk", false, "an earnings or event jump is expected before expiry")
	cmd.Flags().BoolVar(&pathDependent, "path-dependent", false, "the payoff depends on the price path")
	return cmd
}

func newCompareCmd(g *globalFlags) *cobra.Command {
	cf := &contractFlags{}
	var models []string
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Price one contract under several models",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := g.service()
			if err != nil {
				return err
			}
			specs := make([]application.ModelSpec, 0, len(models))
			for _, name := range models {
				spec := cf.spec(cmd)
				spec.Name = name
				specs = append(specs, spec)
			}
			rows, err := svc.CompareModels(cmd.Context(), application.CompareModelsCommand{
				Contract: cf.contract(),
				Market:   g.market(),
				Models:   specs,
			})
			if err != nil {
				return renderFailure(cmd, g, err)
			}
			return render(cmd, g, rows, func(t *table) { t.comparison(rows) })
		},
	}
	cf.register(cmd)
	cmd.Flags().StringSliceVar(&models, "models", nil, "models to compare (default: all)")
	return cmd
}

func newStrategyCmd(g *globalFlags) *cobra.Command {
	var (
		template string
		strikes  []float64
		premiums []float64
		expiry   float64
		style    string
		quantity int
		points   int
		list     bool
	)
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Analyze a multi-leg strategy built from a template",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if list {
				return listTemplates(cmd, g)
			}
			svc, err := g.service()
			if err != nil {
				return err
			}
			res, err := svc.AnalyzeStrategy(cmd.Context(), application.AnalyzeStrategyCommand{
				Template:    template,
				Strikes:     strikes,
				Premiums:    premiums,
				Expiry:      expiry,
				Style:       style,
				Quantity:    quantity,
				Market:      g.market(),
				CurvePoints: points,
			})
			if err != nil {
				return renderFailure(cmd, g, err)
			}
			return render(cmd, g, res, func(t *table) { t.strategy(res) })
		},
	}
	fs := cmd.Flags()
	fs.BoolVar(&list, "list", false, "list available templates and exit")
	fs.StringVar(&template, "template", string(domain.StrategyTypeStraddle), "strategy template")
	fs.Float64SliceVar(&strikes, "strikes", nil, "strikes in ascending order")
	fs.Float64SliceVar(&premiums, "premiums", nil, "entry premium per leg")
	fs.Float64Var(&expiry, "expiry", 1, "time to expiry in years")
	fs.StringVar(&style, "style", "EUROPEAN", "EUROPEAN or AMERICAN")
	fs.IntVar(&quantity, "quantity", 1, "contracts per leg")
	fs.IntVar(&points, "curve-points", 0, "sample points of the payoff curve")
	return cmd
}

func listTemplates(cmd *cobra.Command, g *globalFlags) error {
	out := make(map[string][]string)
	for _, t := range domain.StrategyTypes() {
		legs, err := domain.TemplateLegs(t)
		if err != nil {
			return err
		}
		out[string(t)] = legs
	}
	return render(cmd, g, out, func(t *table) {
		t.header("TEMPLATE", "LEGS")
		for _, st := range domain.StrategyTypes() {
			t.row(string(st), fmt.Sprint(out[string(st)]))
		}
	})
}

func newSmileCmd(g *globalFlags) *cobra.Command {
	var (
		chainPath string
		asOf      string
		expiry    float64
		typ       string
	)
	cmd := &cobra.Command{
		Use:   "smile",
		Short: "Back out implied volatilities from an option chain snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			base := time.Now()
			if asOf != "" {
				t, err := time.Parse(marketdata.ExpiryDateLayout, asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
				base = t
			}
			f, err := os.Open(chainPath)
			if err != nil {
				return err
			}
			defer f.Close()
			chain, err := marketdata.ParseChain(f, base)
			if err != nil {
				return err
			}

			svc, err := g.service()
			if err != nil {
				return err
			}
			res, err := svc.BuildVolatilitySmile(cmd.Context(), application.VolatilitySmileCommand{
				Market: g.market(),
				Chain:  chain,
				Expiry: expiry,
				Type:   typ,
			})
			if err != nil {
				return renderFailure(cmd, g, err)
			}
			return render(cmd, g, res, func(t *table) { t.smile(res) })
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&chainPath, "chain", "", "csv chain snapshot")
	fs.StringVar(&asOf, "as-of", "", "valuation date for expiry_date columns (YYYY-MM-DD)")
	fs.Float64Var(&expiry, "filter-expiry", 0, "only quotes with this expiry in years")
	fs.StringVar(&typ, "filter-type", "", "only CALL or PUT quotes")
	_ = cmd.MarkFlagRequired("chain")
	return cmd
}

func newHistoricalCmd(g *globalFlags) *cobra.Command {
	var periods float64
	cmd := &cobra.Command{
		Use:   "hv CLOSE...",
		Short: "Annualized historical volatility from closing prices",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			closes := make([]float64, 0, len(args))
			for _, a := range args {
				v, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("invalid close %q: %w", a, err)
				}
				closes = append(closes, v)
			}
			svc, err := g.service()
			if err != nil {
				return err
			}
			res, err := svc.HistoricalVolatility(cmd.Context(), application.HistoricalVolatilityCommand{
				Closes:         closes,
				PeriodsPerYear: periods,
			})
			if err != nil {
				return renderFailure(cmd, g, err)
			}
			return render(cmd, g, res, func(t *table) {
				t.header("VOLATILITY", "SAMPLES")
				t.row(num(res.Volatility), strconv.Itoa(res.Samples))
			})
		},
	}
	cmd.Flags().Float64Var(&periods, "periods-per-year", 252, "sampling periods per year")
	return cmd
}
