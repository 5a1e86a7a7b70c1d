package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-lattice/internal/config"
	"github.com/contactkeval/option-lattice/internal/logger"
	"github.com/contactkeval/option-lattice/internal/pricing/binomial"
	"github.com/contactkeval/option-lattice/internal/report"
)

func testConfig(t *testing.T, mode string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Mode = mode
	cfg.ReportDir = t.TempDir()
	return &cfg
}

func TestRunPrice(t *testing.T) {
	cfg := testConfig(t, config.ModePrice)

	var out bytes.Buffer
	require.NoError(t, runPrice(cfg, &out))
	require.Contains(t, out.String(), "european_call")
	require.Contains(t, out.String(), "6.115514")

	b, err := os.ReadFile(filepath.Join(cfg.ReportDir, "prices.json"))
	require.NoError(t, err)
	var rows []report.PriceRow
	require.NoError(t, json.Unmarshal(b, &rows))

	// four variants, then two digitals at each of 998, 999, 1001, 1002
	require.Len(t, rows, 4+2*4)
	require.Equal(t, "european_put", rows[1].Kind)
	require.InDelta(t, 4.0748273, rows[1].Price, 1e-6)
	require.InDelta(t, 4.0761006, rows[1].Analytic, 1e-6)
	require.Equal(t, 998, rows[4].Steps)
	require.Zero(t, rows[4].Analytic)

	_, err = os.Stat(filepath.Join(cfg.ReportDir, "prices.csv"))
	require.NoError(t, err)
}

func TestRunPriceDump(t *testing.T) {
	cfg := testConfig(t, config.ModePrice)
	cfg.Price.Steps, cfg.Price.DigitalSpread, cfg.Price.Dump = 2, 1, true

	var out bytes.Buffer
	require.NoError(t, runPrice(cfg, &out))
	require.Equal(t, 4+2*2, strings.Count(out.String(), "BinomialTree with"))
}

func TestRunConverge(t *testing.T) {
	cfg := testConfig(t, config.ModeConverge)
	cfg.Converge.Steps = []int{100, 2000}

	var out bytes.Buffer
	require.NoError(t, runConverge(cfg, &out, io.Discard))
	require.Equal(t, 2, strings.Count(out.String(), "error"))

	b, err := os.ReadFile(filepath.Join(cfg.ReportDir, "converge_european_call.csv"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), "kind,steps,price,analytic,error\n"))
	require.Contains(t, string(b), "european_call,2000,")

	cfg.Converge.Kind = binomial.DigitalCall
	out.Reset()
	require.NoError(t, runConverge(cfg, &out, io.Discard))
	require.NotContains(t, out.String(), "error")
}

func TestRunExtract(t *testing.T) {
	cfg := testConfig(t, config.ModeExtract)
	cfg.Extract.Input = filepath.Join("..", "..", "internal", "cme", "testdata", "sample.pa2")

	require.NoError(t, runExtract(cfg))

	got, err := os.ReadFile(filepath.Join(cfg.ReportDir, cfg.Extract.Output))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join("..", "..", "internal", "cme", "testdata", "report.golden"))
	require.NoError(t, err)
	require.Equal(t, string(want), string(got))

	_, err = os.Stat(filepath.Join(cfg.ReportDir, "settlements.json"))
	require.NoError(t, err)

	cfg.Extract.Input = filepath.Join(t.TempDir(), "missing.pa2")
	require.Error(t, runExtract(cfg))
}

func TestRunSmileSynthetic(t *testing.T) {
	cfg := testConfig(t, config.ModeSmile)

	var out bytes.Buffer
	require.NoError(t, runSmile(context.Background(), cfg, &out, io.Discard))
	require.Contains(t, out.String(), "9 of 9 strikes solved")
	require.Contains(t, out.String(), "at the money 50.0000: 0.3500")

	b, err := os.ReadFile(filepath.Join(cfg.ReportDir, "smile_CL_2017-04.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Equal(t, "Strike,ImpVol", lines[0])
	require.Len(t, lines, 10)
}

func TestRunSmileFromSettlements(t *testing.T) {
	cfg := testConfig(t, config.ModeSmile)
	cfg.Smile.Source = filepath.Join("..", "..", "internal", "cme", "testdata", "sample.pa2")
	cfg.Smile.Month.Year, cfg.Smile.Month.Month = 2016, 11
	cfg.Smile.Rate = 0.01

	var out bytes.Buffer
	require.NoError(t, runSmile(context.Background(), cfg, &out, io.Discard))
	require.Contains(t, out.String(), "CL 2016-11 forward 48.3300")
	require.Contains(t, out.String(), "1 of 1 strikes solved")
}

func TestRunFailureReachesLogFile(t *testing.T) {
	cfg := testConfig(t, config.ModeExtract)
	cfg.Extract.Input = filepath.Join(t.TempDir(), "missing.pa2")

	path := filepath.Join(t.TempDir(), "lattice.log")
	logger.SetOutputFile(path, 1)
	t.Cleanup(func() { _ = logger.Close() })

	require.Error(t, run(context.Background(), cfg))
	require.NoError(t, logger.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "[ERROR] extract failed")
}

func TestRunUnknownMode(t *testing.T) {
	cfg := testConfig(t, "replay")
	require.ErrorContains(t, run(context.Background(), cfg), "unknown mode")
}
