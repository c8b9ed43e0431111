package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/payimport/internal/importer"
	"github.com/shopspring/decimal"
)

func TestStore_UpsertIsKeyedByBusinessKey(t *testing.T) {
	ctx := context.Background()
	s := New()
	payer := s.AddPayer("a@example.com", "A")
	apt := s.AddApartment("ACC-1", "1", "b1")
	cur := s.AddCurrency("UAH")

	rec := importer.PaymentRecord{
		Payer:       payer,
		Apartment:   apt,
		Currency:    cur,
		Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		ExtNumber:   "x1",
		Price:       decimal.RequireFromString("10"),
		Description: "water",
	}

	err := s.WithTx(ctx, func(w importer.PaymentWriter) error {
		p, err := w.UpsertPayment(ctx, rec)
		if err != nil {
			return err
		}
		if !p.Created {
			t.Error("first upsert Created = false, want true")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	rec.Price = decimal.RequireFromString("12.5")
	rec.Description = "water+heat"
	err = s.WithTx(ctx, func(w importer.PaymentWriter) error {
		p, err := w.UpsertPayment(ctx, rec)
		if err != nil {
			return err
		}
		if p.Created {
			t.Error("second upsert Created = true, want false")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	got := s.Payments()
	if len(got) != 1 {
		t.Fatalf("Payments() len = %d, want 1", len(got))
	}
	if !got[0].Price.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Price = %s, want 12.5", got[0].Price)
	}
	if got[0].Description != "water+heat" {
		t.Errorf("Description = %q, want %q", got[0].Description, "water+heat")
	}
}

func TestStore_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	payer := s.AddPayer("a@example.com", "A")
	apt := s.AddApartment("ACC-1", "1", "b1")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(w importer.PaymentWriter) error {
		if _, err := w.UpsertPayment(ctx, importer.PaymentRecord{Payer: payer, Apartment: apt, ExtNumber: "1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want %v", err, boom)
	}
	if n := len(s.Payments()); n != 0 {
		t.Errorf("Payments() len = %d after rollback, want 0", n)
	}
}

func TestStore_LookupsWrapNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.PayerByEmail(ctx, "nobody@example.com"); !errors.Is(err, importer.ErrNotFound) {
		t.Errorf("PayerByEmail() error = %v, want ErrNotFound", err)
	}
	if _, err := s.ApartmentByAccount(ctx, "NOPE"); !errors.Is(err, importer.ErrNotFound) {
		t.Errorf("ApartmentByAccount() error = %v, want ErrNotFound", err)
	}
	if _, err := s.CurrencyByCode(ctx, "XXX"); !errors.Is(err, importer.ErrNotFound) {
		t.Errorf("CurrencyByCode() error = %v, want ErrNotFound", err)
	}
}
