package sqlite

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/payimport/internal/importer"
)

// EnsureCurrency creates the currency if missing and returns it.
func (s *Store) EnsureCurrency(ctx context.Context, code string) (importer.Currency, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO currencies (code) VALUES (?) ON CONFLICT (code) DO NOTHING`, code); err != nil {
		return importer.Currency{}, fmt.Errorf("insert currency: %w", err)
	}
	return s.CurrencyByCode(ctx, code)
}

// EnsureUser creates or renames the user with email and returns it.
func (s *Store) EnsureUser(ctx context.Context, email, name string) (importer.Payer, error) {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, full_name) VALUES (?, ?)
		ON CONFLICT (email) DO UPDATE SET full_name = excluded.full_name`, email, name); err != nil {
		return importer.Payer{}, fmt.Errorf("insert user: %w", err)
	}
	return s.PayerByEmail(ctx, email)
}

// EnsureApartment creates or updates the apartment with account and returns it.
func (s *Store) EnsureApartment(ctx context.Context, account, label, building string) (importer.Apartment, error) {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO apartments (account_number, label, building) VALUES (?, ?, ?)
		ON CONFLICT (account_number) DO UPDATE SET label = excluded.label, building = excluded.building`,
		account, label, building); err != nil {
		return importer.Apartment{}, fmt.Errorf("insert apartment: %w", err)
	}
	return s.ApartmentByAccount(ctx, account)
}

// EnsureLodger links a resident to an apartment.
func (s *Store) EnsureLodger(ctx context.Context, apartmentID, residentID int64) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO lodgers (apartment_id, resident_id) VALUES (?, ?)
		ON CONFLICT (apartment_id, resident_id) DO NOTHING`, apartmentID, residentID); err != nil {
		return fmt.Errorf("insert lodger: %w", err)
	}
	return nil
}
