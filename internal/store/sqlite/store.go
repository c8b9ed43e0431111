// Package sqlite implements importer.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/payimport/internal/importer"
	"github.com/JonMunkholm/payimport/internal/migrations"
)

// Store is a SQLite-backed importer.Store.
type Store struct {
	db *sql.DB
}

var _ importer.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrations.SQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// PayerByEmail implements importer.Directory.
func (s *Store) PayerByEmail(ctx context.Context, email string) (importer.Payer, error) {
	var p importer.Payer
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, full_name FROM users WHERE email = ?`, email,
	).Scan(&p.ID, &p.Email, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return importer.Payer{}, fmt.Errorf("payer %q: %w", email, importer.ErrNotFound)
	}
	if err != nil {
		return importer.Payer{}, fmt.Errorf("get user by email: %w", err)
	}
	return p, nil
}

// ApartmentByAccount implements importer.Directory.
func (s *Store) ApartmentByAccount(ctx context.Context, account string) (importer.Apartment, error) {
	var a importer.Apartment
	err := s.db.QueryRowContext(ctx,
		`SELECT id, account_number, label, building FROM apartments WHERE account_number = ?`, account,
	).Scan(&a.ID, &a.AccountNumber, &a.Label, &a.Building)
	if errors.Is(err, sql.ErrNoRows) {
		return importer.Apartment{}, fmt.Errorf("apartment %q: %w", account, importer.ErrNotFound)
	}
	if err != nil {
		return importer.Apartment{}, fmt.Errorf("get apartment by account: %w", err)
	}
	return a, nil
}

// CurrencyByCode implements importer.Store.
func (s *Store) CurrencyByCode(ctx context.Context, code string) (importer.Currency, error) {
	var c importer.Currency
	err := s.db.QueryRowContext(ctx,
		`SELECT id, code FROM currencies WHERE code = ?`, code,
	).Scan(&c.ID, &c.Code)
	if errors.Is(err, sql.ErrNoRows) {
		return importer.Currency{}, fmt.Errorf("currency %q: %w", code, importer.ErrNotFound)
	}
	if err != nil {
		return importer.Currency{}, fmt.Errorf("get currency: %w", err)
	}
	return c, nil
}

// LodgersOf implements importer.Store.
func (s *Store) LodgersOf(ctx context.Context, apartmentID int64) ([]importer.Resident, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.email, u.full_name
		FROM lodgers l
		JOIN users u ON u.id = l.resident_id
		WHERE l.apartment_id = ?
		ORDER BY l.id`, apartmentID)
	if err != nil {
		return nil, fmt.Errorf("list lodgers: %w", err)
	}
	defer rows.Close()

	var out []importer.Resident
	for rows.Next() {
		var r importer.Resident
		if err := rows.Scan(&r.ID, &r.Email, &r.Name); err != nil {
			return nil, fmt.Errorf("scan lodger: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// WithTx runs fn in a transaction that is committed only if fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(importer.PaymentWriter) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&writer{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// PaymentRow is a persisted payment as stored, used for listing.
type PaymentRow struct {
	ID          int64
	PayerID     int64
	ApartmentID int64
	Date        string
	ExtNumber   string
	Price       decimal.Decimal
	CurrencyID  int64
	Description string
}

// ListPayments returns every payment ordered by ID.
func (s *Store) ListPayments(ctx context.Context) ([]PaymentRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payer_id, apartment_id, date, ext_number, price, currency_id, description
		FROM communal_payments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []PaymentRow
	for rows.Next() {
		var p PaymentRow
		var price string
		if err := rows.Scan(&p.ID, &p.PayerID, &p.ApartmentID, &p.Date, &p.ExtNumber, &price, &p.CurrencyID, &p.Description); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("payment %d: bad price %q: %w", p.ID, price, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type writer struct {
	tx *sql.Tx
}

// UpsertPayment looks the payment up by its business key and updates it in
// place, or inserts a new one.
func (w *writer) UpsertPayment(ctx context.Context, rec importer.PaymentRecord) (importer.Payment, error) {
	date := rec.Date.Format(time.DateOnly)
	price := rec.Price.StringFixed(2)

	pay := importer.Payment{
		Payer:       rec.Payer,
		Apartment:   rec.Apartment,
		Currency:    rec.Currency,
		Date:        rec.Date,
		ExtNumber:   rec.ExtNumber,
		Price:       rec.Price,
		Description: rec.Description,
	}

	err := w.tx.QueryRowContext(ctx, `
		SELECT id FROM communal_payments
		WHERE payer_id = ? AND apartment_id = ? AND date = ? AND ext_number = ?`,
		rec.Payer.ID, rec.Apartment.ID, date, rec.ExtNumber,
	).Scan(&pay.ID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := w.tx.ExecContext(ctx, `
			INSERT INTO communal_payments (payer_id, apartment_id, date, ext_number, price, currency_id, description)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.Payer.ID, rec.Apartment.ID, date, rec.ExtNumber, price, rec.Currency.ID, rec.Description)
		if err != nil {
			return importer.Payment{}, fmt.Errorf("insert payment: %w", err)
		}
		if pay.ID, err = res.LastInsertId(); err != nil {
			return importer.Payment{}, fmt.Errorf("insert payment id: %w", err)
		}
		pay.Created = true
	case err != nil:
		return importer.Payment{}, fmt.Errorf("find payment: %w", err)
	default:
		if _, err := w.tx.ExecContext(ctx, `
			UPDATE communal_payments
			SET currency_id = ?, price = ?, description = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			rec.Currency.ID, price, rec.Description, pay.ID); err != nil {
			return importer.Payment{}, fmt.Errorf("update payment %d: %w", pay.ID, err)
		}
	}
	return pay, nil
}
