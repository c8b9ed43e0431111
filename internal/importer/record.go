package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RecordInput holds the normalized values of a row before its references
// are resolved.
type RecordInput struct {
	Email         string
	AccountNumber string
	Date          time.Time
	ExtNumber     string
	Price         decimal.Decimal
	Description   string
	Building      string
	Currency      Currency
}

// NewPaymentRecord resolves the payer and apartment of in and returns the
// complete record. A missing payer or apartment yields an *ImportError;
// any other lookup failure is returned wrapped as-is.
func NewPaymentRecord(ctx context.Context, dir Directory, in RecordInput) (PaymentRecord, error) {
	payer, err := dir.PayerByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return PaymentRecord{}, newImportPaymentError(in.Email, err,
				"payer by email = %s not found", in.Email)
		}
		return PaymentRecord{}, fmt.Errorf("lookup payer %q: %w", in.Email, err)
	}

	apartment, err := dir.ApartmentByAccount(ctx, in.AccountNumber)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return PaymentRecord{}, newImportPaymentError(in.AccountNumber, err,
				"apartment by account number #%s not found", in.AccountNumber)
		}
		return PaymentRecord{}, fmt.Errorf("lookup apartment %q: %w", in.AccountNumber, err)
	}

	return PaymentRecord{
		Payer:       payer,
		Apartment:   apartment,
		Currency:    in.Currency,
		Date:        in.Date,
		ExtNumber:   in.ExtNumber,
		Price:       in.Price,
		Description: in.Description,
		Building:    in.Building,
	}, nil
}
