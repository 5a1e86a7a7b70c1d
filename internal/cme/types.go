// Package cme extracts futures and options expirations and settlement prices
// from CME SPAN position files (.pa2) and renders them as a fixed-width report.
package cme

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Month is a contract month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth accepts "YYYYMM" (record form) and "YYYY-MM" (report form).
func ParseMonth(s string) (Month, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "-", "")
	if len(s) != 6 {
		return Month{}, fmt.Errorf("invalid contract month %q", s)
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return Month{}, fmt.Errorf("invalid contract year %q: %w", s, err)
	}
	m, err := strconv.Atoi(s[4:])
	if err != nil || m < 1 || m > 12 {
		return Month{}, fmt.Errorf("invalid contract month %q", s)
	}
	return Month{Year: y, Month: time.Month(m)}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) index() int {
	return m.Year*12 + int(m.Month) - 1
}

// Between reports whether from <= m <= to.
func (m Month) Between(from, to Month) bool {
	return m.index() >= from.index() && m.index() <= to.index()
}

// MarshalText writes the report form.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts both forms ParseMonth does.
func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ContractKind is the report's contract type column.
type ContractKind string

const (
	Futures ContractKind = "Fut"
	Option  ContractKind = "Opt"
)

// Right distinguishes calls from puts. Futures carry NoRight.
type Right string

const (
	NoRight Right = ""
	Call    Right = "Call"
	Put     Right = "Put"
)

// Expiration is a futures or options expiration from a type B record.
type Expiration struct {
	Code        string       `json:"code"`
	Month       Month        `json:"month"`
	Kind        ContractKind `json:"kind"`
	OptionsCode string       `json:"optionsCode,omitempty"`
	Expiry      time.Time    `json:"expiry"`
}

// Settlement is a futures or options settlement price from a type 8 record.
type Settlement struct {
	Code        string          `json:"code"`
	Month       Month           `json:"month"`
	Kind        ContractKind    `json:"kind"`
	Right       Right           `json:"right,omitempty"`
	OptionsCode string          `json:"optionsCode,omitempty"`
	Strike      decimal.Decimal `json:"strike"`
	Price       decimal.Decimal `json:"price"`
}

// File is everything extracted from one input.
type File struct {
	Expirations []Expiration
	Settlements []Settlement

	// Scale is the number of decimals per commodity code, used when printing.
	Scale map[string]int32

	// Skipped counts candidate records dropped as malformed.
	Skipped int
}

func (f *File) places(code string) int32 {
	if p, ok := f.Scale[code]; ok {
		return p
	}
	return defaultPlaces
}

// FuturesSettlement returns the settlement of the code/month futures contract.
func (f *File) FuturesSettlement(code string, month Month) (decimal.Decimal, bool) {
	for _, s := range f.Settlements {
		if s.Kind == Futures && s.Code == code && s.Month == month {
			return s.Price, true
		}
	}
	return decimal.Decimal{}, false
}

// Expiry returns the expiration of the code/month contract of the given kind.
func (f *File) Expiry(code string, month Month, kind ContractKind) (time.Time, bool) {
	for _, e := range f.Expirations {
		if e.Kind == kind && e.Code == code && e.Month == month {
			return e.Expiry, true
		}
	}
	return time.Time{}, false
}

// Options returns the option settlements for code/month with the given right,
// in input order.
func (f *File) Options(code string, month Month, right Right) []Settlement {
	var out []Settlement
	for _, s := range f.Settlements {
		if s.Kind == Option && s.Right == right && s.Code == code && s.Month == month {
			out = append(out, s)
		}
	}
	return out
}
