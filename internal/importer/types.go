package importer

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned (possibly wrapped) by stores when a lookup misses.
var ErrNotFound = errors.New("not found")

// Cell is a single raw value read from an import file.
// Spreadsheet cells formatted as dates carry their native value in Time.
type Cell struct {
	Text   string
	Time   time.Time
	IsDate bool
}

// TextCell returns a cell holding plain text.
func TextCell(s string) Cell {
	return Cell{Text: s}
}

// DateCell returns a cell holding a native date value.
func DateCell(t time.Time) Cell {
	return Cell{Time: t, IsDate: true, Text: t.Format("2006-01-02 15:04:05")}
}

// String returns the textual form of the cell.
func (c Cell) String() string {
	return c.Text
}

// isEmpty reports whether the cell has no value at all.
func (c Cell) isEmpty() bool {
	return !c.IsDate && c.Text == ""
}

// RawRow is one unvalidated row of an import file.
type RawRow []Cell

// Row builds a RawRow from text values.
func Row(values ...string) RawRow {
	row := make(RawRow, len(values))
	for i, v := range values {
		row[i] = TextCell(v)
	}
	return row
}

// Payer is an existing user that payments are billed to.
type Payer struct {
	ID    int64
	Email string
	Name  string
}

// Apartment is an existing apartment identified by its account number.
type Apartment struct {
	ID            int64
	AccountNumber string
	Label         string
	Building      string
}

// Resident is a user living in an apartment (a lodger).
type Resident struct {
	ID    int64
	Email string
	Name  string
}

// Currency is a configured payment currency.
type Currency struct {
	ID   int64
	Code string
}

// PaymentRecord is a validated row with resolved payer and apartment.
// Build it with NewPaymentRecord.
type PaymentRecord struct {
	Payer       Payer
	Apartment   Apartment
	Currency    Currency
	Date        time.Time
	ExtNumber   string
	Price       decimal.Decimal
	Description string
	Building    string
}

// Key returns the business key payments are upserted by.
func (r PaymentRecord) Key() PaymentKey {
	return PaymentKey{
		PayerID:     r.Payer.ID,
		ApartmentID: r.Apartment.ID,
		Date:        r.Date.Format(time.DateOnly),
		ExtNumber:   r.ExtNumber,
	}
}

// PaymentKey is the uniqueness key of a persisted payment.
type PaymentKey struct {
	PayerID     int64
	ApartmentID int64
	Date        string // YYYY-MM-DD
	ExtNumber   string
}

// Payment is a persisted communal payment.
type Payment struct {
	ID          int64
	Payer       Payer
	Apartment   Apartment
	Currency    Currency
	Date        time.Time
	ExtNumber   string
	Price       decimal.Decimal
	Description string
	Created     bool // false when an existing payment was updated
}

// Directory resolves row references to existing records.
// Lookups that miss must return an error wrapping ErrNotFound.
type Directory interface {
	PayerByEmail(ctx context.Context, email string) (Payer, error)
	ApartmentByAccount(ctx context.Context, accountNumber string) (Apartment, error)
}

// PaymentWriter persists payments inside a transaction.
type PaymentWriter interface {
	// UpsertPayment updates the payment with the record's key, or creates it.
	// Only currency, price and description are updated.
	UpsertPayment(ctx context.Context, rec PaymentRecord) (Payment, error)
}

// Store is the persistence boundary of the pipeline.
type Store interface {
	Directory

	CurrencyByCode(ctx context.Context, code string) (Currency, error)
	LodgersOf(ctx context.Context, apartmentID int64) ([]Resident, error)

	// WithTx runs fn in a single transaction. If fn returns an error every
	// write made through the PaymentWriter is rolled back.
	WithTx(ctx context.Context, fn func(PaymentWriter) error) error
}

// Notifier delivers new-payment notifications.
type Notifier interface {
	NotifyPayer(ctx context.Context, p Payment) error
	NotifyLodger(ctx context.Context, p Payment, lodger Resident) error
}
