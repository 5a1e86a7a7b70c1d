package cme

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const reportDate = "2006-01-02"

var (
	expirationHeader = []string{
		"Futures   Contract   Contract   Futures     Options   Options",
		"Code      Month      Type       Exp Date    Code      Exp Date",
		"-------   --------   --------   --------    -------   --------",
	}
	settlementHeader = []string{
		"Futures   Contract   Contract   Strike   Settlement",
		"Code      Month      Type       Price    Price",
		"-------   --------   --------   ------   ----------",
	}
)

// WriteReport renders f as two fixed-width tables: expirations, then
// settlements. The settlement table is omitted when f has none. Prices are
// printed to the commodity's Scale; extra futures digits are truncated.
func WriteReport(w io.Writer, f *File) error {
	bw := bufio.NewWriter(w)

	for _, h := range expirationHeader {
		fmt.Fprintln(bw, h)
	}
	for _, e := range f.Expirations {
		switch e.Kind {
		case Futures:
			fmt.Fprintf(bw, "%-10s%-11s%-11s%s\n", e.Code, e.Month, e.Kind, e.Expiry.Format(reportDate))
		case Option:
			fmt.Fprintf(bw, "%-10s%-11s%-23s%-10s%s\n", e.Code, e.Month, e.Kind, e.OptionsCode, e.Expiry.Format(reportDate))
		}
	}

	if len(f.Settlements) > 0 {
		fmt.Fprintln(bw)
		for _, h := range settlementHeader {
			fmt.Fprintln(bw, h)
		}
	}
	for _, s := range f.Settlements {
		places := f.places(s.Code)
		switch s.Kind {
		case Futures:
			fmt.Fprintf(bw, "%-10s%-11s%-20s%s\n", s.Code, s.Month, s.Kind, s.Price.Truncate(places).StringFixed(places))
		case Option:
			fmt.Fprintf(bw, "%-10s%-11s%-11s%-9s%s\n", s.Code, s.Month, s.Right, s.Strike.StringFixed(places), s.Price.StringFixed(places))
		}
	}

	return bw.Flush()
}

// ReadReport parses the output of WriteReport. Options codes are not part
// of the settlement table and come back empty.
func ReadReport(r io.Reader) (*File, error) {
	out := &File{Scale: make(map[string]int32)}
	inSettlements := false

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		fields := strings.Fields(line)

		switch {
		case len(fields) == 0, strings.HasPrefix(line, "-------"), strings.HasPrefix(line, "Code "):
			continue
		case strings.HasPrefix(line, "Futures "):
			inSettlements = strings.Contains(line, "Strike")
			continue
		}

		var err error
		if inSettlements {
			err = out.readSettlement(fields)
		} else {
			err = out.readExpiration(fields)
		}
		if err != nil {
			return nil, fmt.Errorf("report line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	return out, nil
}

func (f *File) readExpiration(fields []string) error {
	if len(fields) < 4 {
		return fmt.Errorf("expected at least 4 columns, got %d", len(fields))
	}
	m, err := ParseMonth(fields[1])
	if err != nil {
		return err
	}
	e := Expiration{Code: fields[0], Month: m, Kind: ContractKind(fields[2])}

	dateCol := 3
	switch e.Kind {
	case Futures:
	case Option:
		if len(fields) < 5 {
			return fmt.Errorf("option expiration needs 5 columns, got %d", len(fields))
		}
		e.OptionsCode, dateCol = fields[3], 4
	default:
		return fmt.Errorf("unknown contract type %q", fields[2])
	}

	if e.Expiry, err = time.Parse(reportDate, fields[dateCol]); err != nil {
		return err
	}
	f.Expirations = append(f.Expirations, e)
	return nil
}

func (f *File) readSettlement(fields []string) error {
	if len(fields) < 4 {
		return fmt.Errorf("expected at least 4 columns, got %d", len(fields))
	}
	m, err := ParseMonth(fields[1])
	if err != nil {
		return err
	}
	s := Settlement{Code: fields[0], Month: m}

	priceCol := 3
	switch Right(fields[2]) {
	case Right(Futures):
		s.Kind = Futures
	case Call, Put:
		if len(fields) < 5 {
			return fmt.Errorf("option settlement needs 5 columns, got %d", len(fields))
		}
		s.Kind, s.Right = Option, Right(fields[2])
		if s.Strike, err = f.readDecimal(s.Code, fields[3]); err != nil {
			return err
		}
		priceCol = 4
	default:
		return fmt.Errorf("unknown contract type %q", fields[2])
	}

	if s.Price, err = f.readDecimal(s.Code, fields[priceCol]); err != nil {
		return err
	}
	f.Settlements = append(f.Settlements, s)
	return nil
}

// readDecimal parses a printed price and remembers its decimals for code.
func (f *File) readDecimal(code, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("price %q: %w", raw, err)
	}
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		if places := int32(len(raw) - i - 1); places > f.Scale[code] {
			f.Scale[code] = places
		}
	}
	return d, nil
}
