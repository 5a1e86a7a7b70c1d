package cme

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-lattice/internal/logger"
)

// Zero-based columns of the SPAN records this package reads.
const (
	colOptionsCode = 5 // [5:7], both record types

	// type B: contract definition
	colBProduct   = 15 // FUT / OOF
	colBFutMonth  = 18 // YYYYMM
	colBOptMonth  = 27 // YYYYMM
	colBExpiry    = 91 // YYYYMMDD
	colBCommodity = 99 // 3 chars, space padded

	// type 8: settlement
	colSCommodity = 15
	colSProduct   = 25
	colSRight     = 28 // C / P
	colSFutMonth  = 29
	colSOptMonth  = 38
	colSStrike    = 47  // 7 digits, implied decimals
	colSSettle    = 108 // 14 digits, implied decimals

	strikeWidth = 7
	settleWidth = 14
)

const (
	productFutures = "FUT"
	productOption  = "OOF" // option on futures

	defaultPlaces int32 = 2
)

// Filter selects which records Parse keeps.
type Filter struct {
	Commodities []string         // e.g. CL, NG
	OptionCodes []string         // e.g. LO, ON
	Exchange    string           // type 8 records carry "81"+Exchange
	From, To    Month            // inclusive contract month window
	Scale       map[string]int32 // implied decimals of strikes and option settlements

	// FuturesScale is the implied decimals of futures settlements. Codes
	// missing here use Scale.
	FuturesScale map[string]int32
}

// DefaultFilter keeps NYMEX crude oil (CL, options LO) and natural gas
// (NG, options ON) from October 2016 through December 2018.
func DefaultFilter() Filter {
	return Filter{
		Commodities: []string{"CL", "NG"},
		OptionCodes: []string{"LO", "ON"},
		Exchange:    "NYM",
		From:        Month{Year: 2016, Month: time.October},
		To:          Month{Year: 2018, Month: time.December},
		Scale:       map[string]int32{"CL": 2, "NG": 3},

		// NG futures settle with two more digits than NG options.
		FuturesScale: map[string]int32{"CL": 2, "NG": 5},
	}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// field returns line[start:start+width] or false when the line is too short.
func field(line string, start, width int) (string, bool) {
	if len(line) < start+width {
		return "", false
	}
	return line[start : start+width], true
}

// code reads a 3-column space-padded commodity code. The padding may have
// been trimmed when the code ends the line.
func (f Filter) code(line string, start int) (string, bool) {
	if len(line) < start+2 {
		return "", false
	}
	c := strings.TrimRight(line[start:min(len(line), start+3)], " ")
	return c, contains(f.Commodities, c)
}

func (f Filter) month(line string, start int) (Month, bool, error) {
	raw, ok := field(line, start, 6)
	if !ok {
		return Month{}, false, fmt.Errorf("short record")
	}
	m, err := ParseMonth(raw)
	if err != nil {
		return Month{}, false, err
	}
	return m, m.Between(f.From, f.To), nil
}

func (f Filter) places(code string) int32 {
	if p, ok := f.Scale[code]; ok {
		return p
	}
	return defaultPlaces
}

func (f Filter) futuresPlaces(code string) int32 {
	if p, ok := f.FuturesScale[code]; ok {
		return p
	}
	return f.places(code)
}

// Parse reads SPAN records from r and keeps those matching filter. Records
// of interest that are truncated or carry unparsable fields are counted in
// File.Skipped rather than failing the whole input.
func Parse(r io.Reader, filter Filter) (*File, error) {
	out := &File{Scale: make(map[string]int32)}
	for _, c := range filter.Commodities {
		out.Scale[c] = filter.places(c)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")

		var err error
		switch {
		case strings.HasPrefix(line, "B"):
			err = filter.contract(line, out)
		case strings.HasPrefix(line, "81"+filter.Exchange):
			err = filter.settlement(line, out)
		}
		if err != nil {
			out.Skipped++
			logger.Debugf("span line %d skipped: %v", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading span file: %w", err)
	}

	logger.Infof("span: %d expirations, %d settlements, %d skipped", len(out.Expirations), len(out.Settlements), out.Skipped)
	return out, nil
}

func (f Filter) contract(line string, out *File) error {
	code, ok := f.code(line, colBCommodity)
	if !ok {
		return nil
	}
	product, _ := field(line, colBProduct, 3)

	exp := Expiration{Code: code}
	var monthCol int
	switch product {
	case productFutures:
		exp.Kind, monthCol = Futures, colBFutMonth
	case productOption:
		oc, _ := field(line, colOptionsCode, 2)
		if !contains(f.OptionCodes, oc) {
			return nil
		}
		exp.Kind, exp.OptionsCode, monthCol = Option, oc, colBOptMonth
	default:
		return nil
	}

	m, in, err := f.month(line, monthCol)
	if err != nil {
		return err
	}
	if !in {
		return nil
	}
	exp.Month = m

	raw, ok := field(line, colBExpiry, 8)
	if !ok {
		return fmt.Errorf("short record")
	}
	exp.Expiry, err = time.Parse("20060102", raw)
	if err != nil {
		return fmt.Errorf("expiry %q: %w", raw, err)
	}

	out.Expirations = append(out.Expirations, exp)
	return nil
}

func (f Filter) settlement(line string, out *File) error {
	code, ok := f.code(line, colSCommodity)
	if !ok {
		return nil
	}
	product, _ := field(line, colSProduct, 3)
	places := f.places(code)

	s := Settlement{Code: code}
	var monthCol int
	switch product {
	case productFutures:
		s.Kind, monthCol = Futures, colSFutMonth
	case productOption:
		oc, _ := field(line, colOptionsCode, 2)
		if !contains(f.OptionCodes, oc) {
			return nil
		}
		s.Kind, s.OptionsCode, monthCol = Option, oc, colSOptMonth
	default:
		return nil
	}

	m, in, err := f.month(line, monthCol)
	if err != nil {
		return err
	}
	if !in {
		return nil
	}
	s.Month = m

	if s.Kind == Option {
		switch line[colSRight] {
		case 'C':
			s.Right = Call
		case 'P':
			s.Right = Put
		default:
			return fmt.Errorf("unknown option right %q", line[colSRight])
		}
		if s.Strike, err = implied(line, colSStrike, strikeWidth, places); err != nil {
			return fmt.Errorf("strike: %w", err)
		}
	}

	if s.Kind == Futures {
		places = f.futuresPlaces(code)
	}
	if s.Price, err = implied(line, colSSettle, settleWidth, places); err != nil {
		return fmt.Errorf("settlement: %w", err)
	}

	out.Settlements = append(out.Settlements, s)
	return nil
}

// implied reads a zero-padded integer field carrying places implied decimals.
func implied(line string, start, width int, places int32) (decimal.Decimal, error) {
	raw, ok := field(line, start, width)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("short record")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, ".eE+") {
		return decimal.Decimal{}, fmt.Errorf("invalid numeric field %q", raw)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid numeric field %q: %w", raw, err)
	}
	return d.Shift(-places), nil
}
