package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"

	"github.com/contactkeval/option-lattice/internal/cme"
	"github.com/contactkeval/option-lattice/internal/config"
	"github.com/contactkeval/option-lattice/internal/data"
	"github.com/contactkeval/option-lattice/internal/logger"
	"github.com/contactkeval/option-lattice/internal/pricing"
	"github.com/contactkeval/option-lattice/internal/pricing/binomial"
	"github.com/contactkeval/option-lattice/internal/report"
	"github.com/contactkeval/option-lattice/internal/smile"
)

// analytic returns the Black-Scholes price for the European variants and 0
// for the digitals.
func analytic(p binomial.Params, kind binomial.Kind) float64 {
	switch kind {
	case binomial.EuropeanCall, binomial.EuropeanPut:
		return pricing.BlackScholesPrice(kind == binomial.EuropeanCall, p.Spot, p.Strike, p.Maturity, p.Rate, p.Volatility)
	}
	return 0
}

// runPrice prices all four variants at Steps, then the digitals over the
// Steps +/- DigitalSpread window where odd and even trees differ.
func runPrice(cfg *config.Config, w io.Writer) error {
	pc := cfg.Price
	var opts []binomial.Option
	if pc.Dump {
		opts = append(opts, binomial.WithSink(binomial.NewTextSink(w)))
	}
	pricer := binomial.NewPricer(opts...)

	var rows []report.PriceRow
	price := func(kind binomial.Kind, steps int) error {
		v, err := pricer.Price(pc.Params, kind, steps)
		if err != nil {
			return fmt.Errorf("%s at %d steps: %w", kind, steps, err)
		}
		rows = append(rows, report.PriceRow{Kind: kind.String(), Steps: steps, Price: v, Analytic: analytic(pc.Params, kind)})
		return nil
	}

	for _, kind := range binomial.Kinds {
		if err := price(kind, pc.Steps); err != nil {
			return err
		}
	}
	for n := pc.Steps - pc.DigitalSpread; n <= pc.Steps+pc.DigitalSpread; n++ {
		if n == pc.Steps {
			continue
		}
		for _, kind := range []binomial.Kind{binomial.DigitalCall, binomial.DigitalPut} {
			if err := price(kind, n); err != nil {
				return err
			}
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "kind\tsteps\tlattice\tblack-scholes")
	for _, r := range rows {
		bs := ""
		if r.Analytic != 0 {
			bs = fmt.Sprintf("%.6f", r.Analytic)
		}
		fmt.Fprintf(tw, "%s\t%d\t%.6f\t%s\n", r.Kind, r.Steps, r.Price, bs)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if err := report.WriteJSON(rows, cfg.ReportDir, "prices.json"); err != nil {
		return err
	}
	return report.WritePricesCSV(rows, filepath.Join(cfg.ReportDir, "prices.csv"))
}

// runConverge prices one variant over the step sweep against Black-Scholes.
func runConverge(cfg *config.Config, w, progress io.Writer) error {
	cc := cfg.Converge
	bar := progressBar(len(cc.Steps), progress)
	bar.Describe(cc.Kind.String())

	rows := make([]report.PriceRow, 0, len(cc.Steps))
	for _, n := range cc.Steps {
		v, err := binomial.Price(cc.Params, cc.Kind, n)
		if err != nil {
			return fmt.Errorf("%d steps: %w", n, err)
		}
		rows = append(rows, report.PriceRow{Kind: cc.Kind.String(), Steps: n, Price: v, Analytic: analytic(cc.Params, cc.Kind)})
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	for _, r := range rows {
		if r.Analytic != 0 {
			fmt.Fprintf(w, "N=%-6d %.6f  error %+.2e\n", r.Steps, r.Price, r.Price-r.Analytic)
		} else {
			fmt.Fprintf(w, "N=%-6d %.6f\n", r.Steps, r.Price)
		}
	}
	return report.WritePricesCSV(rows, filepath.Join(cfg.ReportDir, "converge_"+cc.Kind.String()+".csv"))
}

// runExtract turns a SPAN file into the settlement report.
func runExtract(cfg *config.Config) error {
	ec := cfg.Extract
	filter := cme.DefaultFilter()
	filter.From, filter.To = ec.From, ec.To

	in, err := os.Open(ec.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	file, err := cme.Parse(in, filter)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := cme.WriteReport(&buf, file); err != nil {
		return err
	}
	out := ec.Output
	if !filepath.IsAbs(out) {
		out = filepath.Join(cfg.ReportDir, out)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return err
	}
	logger.Infof("wrote %d expirations and %d settlements to %s", len(file.Expirations), len(file.Settlements), out)
	return report.WriteJSON(file, cfg.ReportDir, "settlements.json")
}

// runSmile solves the implied volatility curve of one chain. A configured
// source file falls back to the synthetic market when it cannot serve the
// chain.
func runSmile(ctx context.Context, cfg *config.Config, w, progress io.Writer) error {
	sc := cfg.Smile
	var prov data.Provider = data.NewSyntheticProvider(sc.Synthetic)
	if sc.Source != "" {
		prov = data.NewLocalFileDataProvider(sc.Source, prov)
	}

	chain, err := prov.GetChain(sc.Code, sc.Month)
	if err != nil {
		return err
	}

	bar := progressBar(len(chain.Calls), progress)
	bar.Describe(fmt.Sprintf("%s %s", chain.Code, chain.Month))
	curve, err := smile.Build(ctx, chain, smile.Options{
		Valuation: sc.Valuation,
		Maturity:  sc.Maturity,
		Forward:   sc.Forward,
		Rate:      sc.Rate,
		Workers:   sc.Workers,
		Progress:  func(done, total int) { _ = bar.Set(done) },
	})
	if err != nil {
		return err
	}
	_ = bar.Finish()

	valid := curve.Valid()
	fmt.Fprintf(w, "%s %s forward %.4f maturity %.4f: %d of %d strikes solved\n",
		curve.Code, curve.Month, curve.Forward, curve.Maturity, len(valid), len(curve.Points))
	strikes := make([]float64, len(valid))
	for i, p := range valid {
		strikes[i] = p.Strike
		fmt.Fprintf(w, "%10.4f  %.4f  vega %.4f\n", p.Strike, p.Vol, p.Vega)
	}
	if atm, err := data.Closest(strikes, curve.Forward); err == nil {
		for _, p := range valid {
			if p.Strike == atm {
				fmt.Fprintf(w, "at the money %.4f: %.4f\n", atm, p.Vol)
			}
		}
	}

	name := fmt.Sprintf("smile_%s_%s", curve.Code, curve.Month)
	if err := report.WriteJSON(curve, cfg.ReportDir, name+".json"); err != nil {
		return err
	}
	return report.WriteSmileCSV(curve.Points, filepath.Join(cfg.ReportDir, name+".csv"))
}

// progress bar initialization
func progressBar(length int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		length,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
