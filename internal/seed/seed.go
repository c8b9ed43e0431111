// Package seed loads reference data (currencies, users, apartments and their
// lodgers) from YAML into a store, so import files have something to resolve
// against.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/payimport/internal/importer"
)

// User is a seeded user. Users double as payers and lodgers.
type User struct {
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

// Apartment is a seeded apartment with the emails of its lodgers.
type Apartment struct {
	AccountNumber string   `yaml:"account_number"`
	Label         string   `yaml:"label"`
	Building      string   `yaml:"building"`
	Lodgers       []string `yaml:"lodgers"`
}

// Data is the document layout of a seed file.
type Data struct {
	Currencies []string    `yaml:"currencies"`
	Users      []User      `yaml:"users"`
	Apartments []Apartment `yaml:"apartments"`
}

// Target is a store that can be seeded.
type Target interface {
	EnsureCurrency(ctx context.Context, code string) (importer.Currency, error)
	EnsureUser(ctx context.Context, email, name string) (importer.Payer, error)
	EnsureApartment(ctx context.Context, account, label, building string) (importer.Apartment, error)
	EnsureLodger(ctx context.Context, apartmentID, residentID int64) error
}

// Summary counts what Apply wrote.
type Summary struct {
	Currencies int
	Users      int
	Apartments int
	Lodgers    int
}

// Load reads and validates a seed file.
func Load(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a seed document. Emails are lowercased and
// trimmed the same way import rows are.
func Parse(r io.Reader) (*Data, error) {
	var d Data
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range d.Users {
		d.Users[i].Email = normalizeEmail(d.Users[i].Email)
	}
	for i := range d.Apartments {
		a := &d.Apartments[i]
		a.AccountNumber = strings.TrimSpace(a.AccountNumber)
		a.Building = strings.ToLower(strings.TrimSpace(a.Building))
		for j := range a.Lodgers {
			a.Lodgers[j] = normalizeEmail(a.Lodgers[j])
		}
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks required fields and that every lodger is a declared user.
func (d *Data) Validate() error {
	var errs []string

	users := make(map[string]bool, len(d.Users))
	for i, u := range d.Users {
		if u.Email == "" {
			errs = append(errs, fmt.Sprintf("users[%d]: email is required", i))
			continue
		}
		users[u.Email] = true
	}
	for i, c := range d.Currencies {
		if strings.TrimSpace(c) == "" {
			errs = append(errs, fmt.Sprintf("currencies[%d]: code is required", i))
		}
	}
	for i, a := range d.Apartments {
		if a.AccountNumber == "" {
			errs = append(errs, fmt.Sprintf("apartments[%d]: account_number is required", i))
		}
		for _, l := range a.Lodgers {
			if !users[l] {
				errs = append(errs, fmt.Sprintf("apartments[%d]: lodger %s is not a declared user", i, l))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("seed validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Apply writes d into t. Existing rows are updated, so Apply can be rerun.
func Apply(ctx context.Context, t Target, d *Data) (Summary, error) {
	var sum Summary

	for _, code := range d.Currencies {
		if _, err := t.EnsureCurrency(ctx, strings.TrimSpace(code)); err != nil {
			return sum, fmt.Errorf("currency %s: %w", code, err)
		}
		sum.Currencies++
	}

	ids := make(map[string]int64, len(d.Users))
	for _, u := range d.Users {
		p, err := t.EnsureUser(ctx, u.Email, u.Name)
		if err != nil {
			return sum, fmt.Errorf("user %s: %w", u.Email, err)
		}
		ids[u.Email] = p.ID
		sum.Users++
	}

	for _, a := range d.Apartments {
		apt, err := t.EnsureApartment(ctx, a.AccountNumber, a.Label, a.Building)
		if err != nil {
			return sum, fmt.Errorf("apartment %s: %w", a.AccountNumber, err)
		}
		sum.Apartments++

		for _, email := range a.Lodgers {
			if err := t.EnsureLodger(ctx, apt.ID, ids[email]); err != nil {
				return sum, fmt.Errorf("lodger %s of %s: %w", email, a.AccountNumber, err)
			}
			sum.Lodgers++
		}
	}

	return sum, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
