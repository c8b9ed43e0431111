package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// queries holds the SQL used by the store, bound to a pool or transaction.
type queries struct {
	db DBTX
}

func newQueries(db DBTX) *queries {
	return &queries{db: db}
}

const getUserByEmail = `
SELECT id, email, full_name FROM users WHERE email = $1`

type userRow struct {
	ID       int64
	Email    string
	FullName string
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (userRow, error) {
	var r userRow
	err := q.db.QueryRow(ctx, getUserByEmail, email).Scan(&r.ID, &r.Email, &r.FullName)
	return r, err
}

const getApartmentByAccount = `
SELECT id, account_number, label, building FROM apartments WHERE account_number = $1`

type apartmentRow struct {
	ID            int64
	AccountNumber string
	Label         string
	Building      string
}

func (q *queries) GetApartmentByAccount(ctx context.Context, account string) (apartmentRow, error) {
	var r apartmentRow
	err := q.db.QueryRow(ctx, getApartmentByAccount, account).
		Scan(&r.ID, &r.AccountNumber, &r.Label, &r.Building)
	return r, err
}

const getCurrencyByCode = `
SELECT id, code FROM currencies WHERE code = $1`

func (q *queries) GetCurrencyByCode(ctx context.Context, code string) (int64, string, error) {
	var id int64
	var c string
	err := q.db.QueryRow(ctx, getCurrencyByCode, code).Scan(&id, &c)
	return id, c, err
}

const listLodgers = `
SELECT u.id, u.email, u.full_name
FROM lodgers l
JOIN users u ON u.id = l.resident_id
WHERE l.apartment_id = $1
ORDER BY l.id`

func (q *queries) ListLodgers(ctx context.Context, apartmentID int64) ([]userRow, error) {
	rows, err := q.db.Query(ctx, listLodgers, apartmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []userRow
	for rows.Next() {
		var r userRow
		if err := rows.Scan(&r.ID, &r.Email, &r.FullName); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// upsertPayment updates currency, price and description of the payment with
// the same business key, or inserts it. xmax = 0 only for freshly inserted rows.
const upsertPayment = `
INSERT INTO communal_payments (payer_id, apartment_id, date, ext_number, price, currency_id, description)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (payer_id, apartment_id, date, ext_number) DO UPDATE
SET currency_id = EXCLUDED.currency_id,
    price = EXCLUDED.price,
    description = EXCLUDED.description,
    updated_at = now()
RETURNING id, (xmax = 0) AS created`

type upsertPaymentParams struct {
	PayerID     int64
	ApartmentID int64
	Date        pgtype.Date
	ExtNumber   string
	Price       pgtype.Numeric
	CurrencyID  int64
	Description string
}

func (q *queries) UpsertPayment(ctx context.Context, arg upsertPaymentParams) (int64, bool, error) {
	var id int64
	var created bool
	err := q.db.QueryRow(ctx, upsertPayment,
		arg.PayerID,
		arg.ApartmentID,
		arg.Date,
		arg.ExtNumber,
		arg.Price,
		arg.CurrencyID,
		arg.Description,
	).Scan(&id, &created)
	return id, created, err
}

const upsertUser = `
INSERT INTO users (email, full_name) VALUES ($1, $2)
ON CONFLICT (email) DO UPDATE SET full_name = EXCLUDED.full_name
RETURNING id`

func (q *queries) UpsertUser(ctx context.Context, email, name string) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, upsertUser, email, name).Scan(&id)
	return id, err
}

const upsertApartment = `
INSERT INTO apartments (account_number, label, building) VALUES ($1, $2, $3)
ON CONFLICT (account_number) DO UPDATE SET label = EXCLUDED.label, building = EXCLUDED.building
RETURNING id`

func (q *queries) UpsertApartment(ctx context.Context, account, label, building string) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, upsertApartment, account, label, building).Scan(&id)
	return id, err
}

const insertLodger = `
INSERT INTO lodgers (apartment_id, resident_id) VALUES ($1, $2)
ON CONFLICT (apartment_id, resident_id) DO NOTHING`

func (q *queries) InsertLodger(ctx context.Context, apartmentID, residentID int64) error {
	_, err := q.db.Exec(ctx, insertLodger, apartmentID, residentID)
	return err
}

const insertCurrency = `
INSERT INTO currencies (code) VALUES ($1)
ON CONFLICT (code) DO UPDATE SET code = EXCLUDED.code
RETURNING id`

func (q *queries) InsertCurrency(ctx context.Context, code string) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, insertCurrency, code).Scan(&id)
	return id, err
}

// isNoRows reports whether err is pgx's no-rows error.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// describePgError adds the constraint name to Postgres errors.
func describePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName != "" {
		return fmt.Errorf("%w (constraint %s)", err, pgErr.ConstraintName)
	}
	return err
}
