// Package memory provides an in-memory importer.Store for tests and demos.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/JonMunkholm/payimport/internal/importer"
)

// Store keeps users, apartments, currencies and payments in maps.
// It is safe for concurrent use. Transactions are serialized.
type Store struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	nextID int64

	payers     map[string]importer.Payer     // by email
	apartments map[string]importer.Apartment // by account number
	currencies map[string]importer.Currency  // by code
	lodgers    map[int64][]importer.Resident // by apartment ID
	payments   map[importer.PaymentKey]importer.Payment

	failUpsertAt int // 1-based upsert call that fails, 0 disables
	failErr      error
	upserts      int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		payers:     make(map[string]importer.Payer),
		apartments: make(map[string]importer.Apartment),
		currencies: make(map[string]importer.Currency),
		lodgers:    make(map[int64][]importer.Resident),
		payments:   make(map[importer.PaymentKey]importer.Payment),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddPayer registers a payer. Email is matched exactly.
func (s *Store) AddPayer(email, name string) importer.Payer {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := importer.Payer{ID: s.id(), Email: email, Name: name}
	s.payers[email] = p
	return p
}

// AddApartment registers an apartment. Account number is matched exactly.
func (s *Store) AddApartment(accountNumber, label, building string) importer.Apartment {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := importer.Apartment{ID: s.id(), AccountNumber: accountNumber, Label: label, Building: building}
	s.apartments[accountNumber] = a
	return a
}

// AddCurrency registers a currency.
func (s *Store) AddCurrency(code string) importer.Currency {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := importer.Currency{ID: s.id(), Code: code}
	s.currencies[code] = c
	return c
}

// AddLodger attaches a resident to an apartment.
func (s *Store) AddLodger(apartmentID int64, email, name string) importer.Resident {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := importer.Resident{ID: s.id(), Email: email, Name: name}
	s.lodgers[apartmentID] = append(s.lodgers[apartmentID], r)
	return r
}

// FailUpsertAt makes the n-th following upsert (1-based) return err.
func (s *Store) FailUpsertAt(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpsertAt = n
	s.failErr = err
	s.upserts = 0
}

// Payments returns all persisted payments ordered by ID.
func (s *Store) Payments() []importer.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]importer.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b importer.Payment) int {
		return int(a.ID - b.ID)
	})
	return out
}

func (s *Store) PayerByEmail(_ context.Context, email string) (importer.Payer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payers[email]
	if !ok {
		return importer.Payer{}, fmt.Errorf("payer %q: %w", email, importer.ErrNotFound)
	}
	return p, nil
}

func (s *Store) ApartmentByAccount(_ context.Context, accountNumber string) (importer.Apartment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apartments[accountNumber]
	if !ok {
		return importer.Apartment{}, fmt.Errorf("apartment %q: %w", accountNumber, importer.ErrNotFound)
	}
	return a, nil
}

func (s *Store) CurrencyByCode(_ context.Context, code string) (importer.Currency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.currencies[code]
	if !ok {
		return importer.Currency{}, fmt.Errorf("currency %q: %w", code, importer.ErrNotFound)
	}
	return c, nil
}

func (s *Store) LodgersOf(_ context.Context, apartmentID int64) ([]importer.Resident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lodgers[apartmentID]), nil
}

// WithTx runs fn against a copy of the payments and swaps it in on success.
func (s *Store) WithTx(ctx context.Context, fn func(importer.PaymentWriter) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	tx := &txWriter{store: s, payments: make(map[importer.PaymentKey]importer.Payment, len(s.payments))}
	for k, v := range s.payments {
		tx.payments[k] = v
	}
	s.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.payments = tx.payments
	s.mu.Unlock()
	return nil
}

type txWriter struct {
	store    *Store
	payments map[importer.PaymentKey]importer.Payment
}

func (w *txWriter) UpsertPayment(_ context.Context, rec importer.PaymentRecord) (importer.Payment, error) {
	s := w.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upserts++
	if s.failUpsertAt > 0 && s.upserts == s.failUpsertAt {
		return importer.Payment{}, s.failErr
	}

	key := rec.Key()
	p, exists := w.payments[key]
	if !exists {
		p = importer.Payment{
			ID:        s.id(),
			Payer:     rec.Payer,
			Apartment: rec.Apartment,
			Date:      rec.Date,
			ExtNumber: rec.ExtNumber,
		}
	}
	p.Currency = rec.Currency
	p.Price = rec.Price
	p.Description = rec.Description
	p.Created = !exists
	w.payments[key] = p
	return p, nil
}
