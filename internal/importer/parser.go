package importer

// parser.go converts raw rows into validated payment records.
//
// Validation runs in a fixed order and the first failure wins:
//  1. Column count (must be exactly ColumnCount)
//  2. Price (exact decimal, comma tolerated as separator, at most
//     PriceScale fractional digits)
//  3. Date (native spreadsheet date or DD-MM-YYYY text)
//  4. Payer and apartment resolution (inside NewPaymentRecord)

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ColumnCount is the number of columns every data row must have.
const ColumnCount = 8

// Column positions within a row.
const (
	ColExtNumber = iota
	ColDate
	ColBuilding
	ColApartment
	ColAccountNumber
	ColEmail
	ColDescription
	ColPrice
)

// PriceScale is the number of fractional digits a stored price keeps.
const PriceScale = 2

// DateLayout is the accepted textual date format (day-month-year).
// Single-digit days and months are tolerated.
const DateLayout = "2-1-2006"

const (
	priceFormatHint = "'00.00'"
	dateFormatHint  = "'01-01-2001'"
)

// RowParser validates rows against the fixed column layout.
type RowParser struct {
	dir      Directory
	currency Currency
}

// NewRowParser creates a parser that resolves references through dir and
// stamps every record with currency.
func NewRowParser(dir Directory, currency Currency) *RowParser {
	return &RowParser{dir: dir, currency: currency}
}

// Parse validates row (found at the 1-based line) and returns the record.
// Row-level problems are returned as *ImportError; any other error comes
// from the directory and should be treated as fatal.
func (p *RowParser) Parse(ctx context.Context, row RawRow, line int) (PaymentRecord, error) {
	if len(row) != ColumnCount {
		return PaymentRecord{}, newParseFileError(line, "",
			"invalid number of columns: line=%d got=%d expected=%d", line, len(row), ColumnCount)
	}

	priceStr := normalizePrice(row[ColPrice].String())
	price, err := ParsePrice(priceStr)
	if err != nil {
		return PaymentRecord{}, newParseFileError(line, priceStr,
			"invalid price value format: got=%s expected=%s", priceStr, priceFormatHint)
	}

	date, err := ParseDate(row[ColDate])
	if err != nil {
		return PaymentRecord{}, newParseFileError(line, row[ColDate].String(),
			"invalid month value format: got=%s expected=%s", row[ColDate].String(), dateFormatHint)
	}

	rec, err := NewPaymentRecord(ctx, p.dir, RecordInput{
		Email:         strings.ToLower(strings.TrimSpace(row[ColEmail].String())),
		AccountNumber: strings.TrimSpace(row[ColAccountNumber].String()),
		Date:          date,
		ExtNumber:     normalizeText(row[ColExtNumber].String()),
		Price:         price,
		Description:   normalizeText(row[ColDescription].String()),
		Building:      normalizeText(row[ColBuilding].String()),
		Currency:      p.currency,
	})
	if err != nil {
		var ie *ImportError
		if errors.As(err, &ie) {
			ie.Line = line
		}
		return PaymentRecord{}, err
	}
	return rec, nil
}

var errPriceScale = errors.New("too many decimal places")

// ParsePrice parses an exact decimal amount. Both "12,50" and "12.50" are
// accepted. Negative amounts are allowed (credits and corrections).
// Amounts with more than PriceScale significant fractional digits are
// rejected, so the stored price always equals the parsed one.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(normalizePrice(s))
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !d.Equal(d.Round(PriceScale)) {
		return decimal.Decimal{}, errPriceScale
	}
	return d, nil
}

// ParseDate returns the calendar date held by c. Native dates are taken
// as-is; text must match DateLayout.
func ParseDate(c Cell) (time.Time, error) {
	if c.IsDate {
		y, m, d := c.Time.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(DateLayout, strings.ToLower(strings.TrimSpace(c.Text)))
}

func normalizePrice(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
