// Package postgres implements importer.Store on PostgreSQL with pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/payimport/internal/importer"
)

// Store is a PostgreSQL-backed importer.Store.
type Store struct {
	pool *pgxpool.Pool
	q    *queries
}

var _ importer.Store = (*Store)(nil)

// New creates a Store over an open pool. Migrations must already be applied.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: newQueries(pool)}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// PayerByEmail implements importer.Directory.
func (s *Store) PayerByEmail(ctx context.Context, email string) (importer.Payer, error) {
	r, err := s.q.GetUserByEmail(ctx, email)
	if err != nil {
		if isNoRows(err) {
			return importer.Payer{}, fmt.Errorf("payer %q: %w", email, importer.ErrNotFound)
		}
		return importer.Payer{}, fmt.Errorf("get user by email: %w", err)
	}
	return importer.Payer{ID: r.ID, Email: r.Email, Name: r.FullName}, nil
}

// ApartmentByAccount implements importer.Directory.
func (s *Store) ApartmentByAccount(ctx context.Context, account string) (importer.Apartment, error) {
	r, err := s.q.GetApartmentByAccount(ctx, account)
	if err != nil {
		if isNoRows(err) {
			return importer.Apartment{}, fmt.Errorf("apartment %q: %w", account, importer.ErrNotFound)
		}
		return importer.Apartment{}, fmt.Errorf("get apartment by account: %w", err)
	}
	return importer.Apartment{
		ID:            r.ID,
		AccountNumber: r.AccountNumber,
		Label:         r.Label,
		Building:      r.Building,
	}, nil
}

// CurrencyByCode implements importer.Store.
func (s *Store) CurrencyByCode(ctx context.Context, code string) (importer.Currency, error) {
	id, c, err := s.q.GetCurrencyByCode(ctx, code)
	if err != nil {
		if isNoRows(err) {
			return importer.Currency{}, fmt.Errorf("currency %q: %w", code, importer.ErrNotFound)
		}
		return importer.Currency{}, fmt.Errorf("get currency: %w", err)
	}
	return importer.Currency{ID: id, Code: c}, nil
}

// LodgersOf implements importer.Store.
func (s *Store) LodgersOf(ctx context.Context, apartmentID int64) ([]importer.Resident, error) {
	rows, err := s.q.ListLodgers(ctx, apartmentID)
	if err != nil {
		return nil, fmt.Errorf("list lodgers: %w", err)
	}
	out := make([]importer.Resident, len(rows))
	for i, r := range rows {
		out[i] = importer.Resident{ID: r.ID, Email: r.Email, Name: r.FullName}
	}
	return out, nil
}

// WithTx runs fn inside a transaction that is committed only if fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(importer.PaymentWriter) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&writer{q: newQueries(tx)}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// EnsureCurrency creates the currency if it does not exist.
func (s *Store) EnsureCurrency(ctx context.Context, code string) (importer.Currency, error) {
	id, err := s.q.InsertCurrency(ctx, code)
	if err != nil {
		return importer.Currency{}, fmt.Errorf("insert currency: %w", describePgError(err))
	}
	return importer.Currency{ID: id, Code: code}, nil
}

// EnsureUser creates or renames the user with email.
func (s *Store) EnsureUser(ctx context.Context, email, name string) (importer.Payer, error) {
	id, err := s.q.UpsertUser(ctx, email, name)
	if err != nil {
		return importer.Payer{}, fmt.Errorf("upsert user: %w", describePgError(err))
	}
	return importer.Payer{ID: id, Email: email, Name: name}, nil
}

// EnsureApartment creates or updates the apartment with account.
func (s *Store) EnsureApartment(ctx context.Context, account, label, building string) (importer.Apartment, error) {
	id, err := s.q.UpsertApartment(ctx, account, label, building)
	if err != nil {
		return importer.Apartment{}, fmt.Errorf("upsert apartment: %w", describePgError(err))
	}
	return importer.Apartment{ID: id, AccountNumber: account, Label: label, Building: building}, nil
}

// EnsureLodger links a resident to an apartment.
func (s *Store) EnsureLodger(ctx context.Context, apartmentID, residentID int64) error {
	if err := s.q.InsertLodger(ctx, apartmentID, residentID); err != nil {
		return fmt.Errorf("insert lodger: %w", describePgError(err))
	}
	return nil
}

type writer struct {
	q *queries
}

func (w *writer) UpsertPayment(ctx context.Context, rec importer.PaymentRecord) (importer.Payment, error) {
	price, err := toPgNumeric(rec.Price)
	if err != nil {
		return importer.Payment{}, err
	}

	id, created, err := w.q.UpsertPayment(ctx, upsertPaymentParams{
		PayerID:     rec.Payer.ID,
		ApartmentID: rec.Apartment.ID,
		Date:        toPgDate(rec.Date),
		ExtNumber:   rec.ExtNumber,
		Price:       price,
		CurrencyID:  rec.Currency.ID,
		Description: rec.Description,
	})
	if err != nil {
		return importer.Payment{}, describePgError(err)
	}

	return importer.Payment{
		ID:          id,
		Payer:       rec.Payer,
		Apartment:   rec.Apartment,
		Currency:    rec.Currency,
		Date:        rec.Date,
		ExtNumber:   rec.ExtNumber,
		Price:       rec.Price,
		Description: rec.Description,
		Created:     created,
	}, nil
}
