// Package config loads the JSON run configuration and its environment
// overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/contactkeval/option-lattice/internal/cme"
	"github.com/contactkeval/option-lattice/internal/data"
	"github.com/contactkeval/option-lattice/internal/pricing"
	"github.com/contactkeval/option-lattice/internal/pricing/binomial"
)

// Run modes.
const (
	ModePrice    = "price"
	ModeConverge = "converge"
	ModeExtract  = "extract"
	ModeSmile    = "smile"
	ModeServe    = "serve"
)

// Environment overrides, read after the optional .env file next to the
// config file.
const (
	EnvVerbosity = "LATTICE_VERBOSITY"
	EnvLogFile   = "LATTICE_LOG_FILE"
	EnvReportDir = "LATTICE_REPORT_DIR"
	EnvAddr      = "LATTICE_ADDR"
)

type Config struct {
	Mode         string `json:"mode"`
	Verbosity    int    `json:"verbosity"`
	LogFile      string `json:"logFile"`
	LogMaxSizeMB int    `json:"logMaxSizeMB"`
	ReportDir    string `json:"reportDir"`

	Price    PriceConfig    `json:"price"`
	Converge ConvergeConfig `json:"converge"`
	Extract  ExtractConfig  `json:"extract"`
	Smile    SmileConfig    `json:"smile"`
	Server   ServerConfig   `json:"server"`
}

// PriceConfig prices every variant once at Steps, and the digitals again at
// Steps-DigitalSpread .. Steps+DigitalSpread.
type PriceConfig struct {
	Params        binomial.Params `json:"params"`
	Steps         int             `json:"steps"`
	DigitalSpread int             `json:"digitalSpread"`
	Dump          bool            `json:"dump"` // print lattices up to binomial.DefaultDumpLimit steps
}

// ConvergeConfig sweeps step counts for one variant.
type ConvergeConfig struct {
	Params binomial.Params `json:"params"`
	Kind   binomial.Kind   `json:"kind"`
	Steps  []int           `json:"steps"`
}

type ExtractConfig struct {
	Input  string    `json:"input"`
	Output string    `json:"output"`
	From   cme.Month `json:"from"`
	To     cme.Month `json:"to"`
}

// SmileConfig selects a chain and how to solve it. Source is a .pa2 or
// report file; the synthetic market is used when it is empty or missing.
type SmileConfig struct {
	Source    string               `json:"source"`
	Code      string               `json:"code"`
	Month     cme.Month            `json:"month"`
	Valuation time.Time            `json:"valuation"`
	Maturity  float64              `json:"maturity"`
	Forward   float64              `json:"forward"`
	Rate      float64              `json:"rate"`
	Workers   int                  `json:"workers"`
	Synthetic data.SyntheticConfig `json:"synthetic"`
}

type ServerConfig struct {
	Addr     string `json:"addr"`
	MaxSteps int    `json:"maxSteps"`
	GinMode  string `json:"ginMode"`
}

// ReferenceParams is the textbook case: S0 = K = 50, r = 10%, sigma = 40%,
// five months.
var ReferenceParams = binomial.Params{Spot: 50, Strike: 50, Rate: 0.10, Volatility: 0.40, Maturity: 0.4167}

// Default returns the reference configuration.
func Default() Config {
	filter := cme.DefaultFilter()
	return Config{
		Mode:         ModePrice,
		Verbosity:    1,
		LogMaxSizeMB: 10,
		ReportDir:    "reports",
		Price:        PriceConfig{Params: ReferenceParams, Steps: 1000, DigitalSpread: 2},
		Converge: ConvergeConfig{
			Params: ReferenceParams,
			Kind:   binomial.EuropeanCall,
			Steps:  []int{10, 25, 50, 100, 250, 500, 1000, 2000},
		},
		Extract: ExtractConfig{Output: "settlements.txt", From: filter.From, To: filter.To},
		Smile: SmileConfig{
			Code:  "CL",
			Month: cme.Month{Year: 2017, Month: time.April},
			Rate:  0.01,
			Synthetic: data.SyntheticConfig{
				Forward:   50,
				Rate:      0.01,
				ATMVol:    0.35,
				Skew:      -0.15,
				Curvature: 0.4,
				Strikes:   []float64{40, 42.5, 45, 47.5, 50, 52.5, 55, 57.5, 60},
				Valuation: time.Date(2016, 10, 3, 0, 0, 0, 0, time.UTC),
				Expiry:    time.Date(2017, 3, 16, 0, 0, 0, 0, time.UTC),
				Seed:      1,
			},
			Valuation: time.Date(2016, 10, 3, 0, 0, 0, 0, time.UTC),
		},
		Server: ServerConfig{Addr: ":8080", MaxSteps: 20000, GinMode: "release"},
	}
}

// Load reads path over Default, then applies the environment. An empty path
// uses the defaults and the environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}

		envFile := filepath.Join(filepath.Dir(path), ".env")
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvVerbosity); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvVerbosity, err)
		}
		c.Verbosity = n
	}
	if v, ok := os.LookupEnv(EnvLogFile); ok {
		c.LogFile = v
	}
	if v, ok := os.LookupEnv(EnvReportDir); ok {
		c.ReportDir = v
	}
	if v, ok := os.LookupEnv(EnvAddr); ok {
		c.Server.Addr = v
	}
	return nil
}

// Validate checks the section the selected mode needs.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModePrice:
		if c.Price.Steps-c.Price.DigitalSpread < 1 || c.Price.DigitalSpread < 0 {
			return fmt.Errorf("%w: price steps %d with digital spread %d", pricing.ErrInvalidParameter, c.Price.Steps, c.Price.DigitalSpread)
		}
	case ModeConverge:
		if len(c.Converge.Steps) == 0 {
			return fmt.Errorf("%w: converge needs at least one step count", pricing.ErrInvalidParameter)
		}
		for _, n := range c.Converge.Steps {
			if n < 1 {
				return fmt.Errorf("%w: converge steps %d", pricing.ErrInvalidParameter, n)
			}
		}
	case ModeExtract:
		if c.Extract.Input == "" {
			return fmt.Errorf("%w: extract needs an input file", pricing.ErrInvalidParameter)
		}
	case ModeSmile:
		if c.Smile.Code == "" {
			return fmt.Errorf("%w: smile needs a commodity code", pricing.ErrInvalidParameter)
		}
	case ModeServe:
		if c.Server.Addr == "" {
			return fmt.Errorf("%w: serve needs an address", pricing.ErrInvalidParameter)
		}
		switch c.Server.GinMode {
		case "debug", "release", "test":
		default:
			return fmt.Errorf("%w: gin mode %q", pricing.ErrInvalidParameter, c.Server.GinMode)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", pricing.ErrInvalidParameter, c.Mode)
	}
	return nil
}
