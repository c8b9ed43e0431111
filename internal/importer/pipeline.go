package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// FirstDataLine is the first 1-based line holding data. Line 1 is a header.
const FirstDataLine = 2

// Result is the outcome of one import run.
type Result struct {
	RunID    string
	FileName string
	Format   Format

	Rows           int // data rows examined
	Persisted      int // payments upserted
	Created        int // of Persisted, newly created
	Notified       int // notifications delivered
	NotifyFailures int // notifications that failed (not reported as errors)

	Errors   []*ImportError // in line order
	Duration time.Duration
}

// OK reports whether the run finished without any row or file error.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// Pipeline imports communal payment files.
type Pipeline struct {
	store        Store
	notifier     Notifier
	currencyCode string
	maxFileSize  int64
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for run and row logging.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMaxFileSize limits the size of import files.
func WithMaxFileSize(n int64) Option {
	return func(p *Pipeline) { p.maxFileSize = n }
}

// New creates a Pipeline that stamps payments with the currency identified
// by currencyCode.
func New(store Store, notifier Notifier, currencyCode string, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:        store,
		notifier:     notifier,
		currencyCode: currencyCode,
		maxFileSize:  DefaultMaxFileSize,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run imports file. Row and file problems are collected in Result.Errors;
// the returned error is non-nil only for fatal failures (missing currency,
// lookup or persistence failures), in which case nothing was committed.
func (p *Pipeline) Run(ctx context.Context, file File) (*Result, error) {
	start := time.Now()
	res := &Result{
		RunID:    uuid.NewString(),
		FileName: file.Name(),
	}
	log := p.logger.With("run_id", res.RunID, "file", file.Name())

	currency, err := p.store.CurrencyByCode(ctx, p.currencyCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return res, fmt.Errorf("%w: code=%s", ErrCurrencyNotFound, p.currencyCode)
		}
		return res, fmt.Errorf("load currency %s: %w", p.currencyCode, err)
	}

	rows, err := p.readFile(file, res)
	if err != nil {
		res.Errors = append(res.Errors, newFileTypeError(err))
		res.Duration = time.Since(start)
		log.Error("import file rejected", "error", err)
		return res, nil
	}

	log.Info("import started", "format", res.Format.String(), "lines", len(rows))

	parser := NewRowParser(p.store, currency)
	var records []PaymentRecord

	for i, row := range rows {
		line := i + 1
		if line < FirstDataLine {
			continue
		}
		if i%100 == 0 && ctx.Err() != nil {
			return res, fmt.Errorf("import cancelled: %w", ctx.Err())
		}
		res.Rows++

		rec, err := parser.Parse(ctx, row, line)
		if err != nil {
			var ie *ImportError
			if !errors.As(err, &ie) {
				return res, fmt.Errorf("line %d: %w", line, err)
			}
			res.Errors = append(res.Errors, ie)
			log.Error("row rejected", "line", line, "error", ie.Message)
			continue
		}

		records = append(records, rec)
		log.Debug("row parsed",
			"line", line,
			"ext_number", rec.ExtNumber,
			"payer_id", rec.Payer.ID,
			"apartment_id", rec.Apartment.ID,
			"price", rec.Price.String(),
		)
	}

	payments, err := p.persist(ctx, records)
	if err != nil {
		log.Error("import persist failed", "records", len(records), "error", err)
		return res, err
	}
	res.Persisted = len(payments)
	for _, pay := range payments {
		if pay.Created {
			res.Created++
		}
	}

	p.notify(ctx, log, res, payments)

	res.Duration = time.Since(start)
	log.Info("import finished",
		"rows", res.Rows,
		"persisted", res.Persisted,
		"created", res.Created,
		"errors", len(res.Errors),
		"notified", res.Notified,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// persist upserts all records in one transaction.
// readFile resolves the format once and reads every row with it.
func (p *Pipeline) readFile(file File, res *Result) ([]RawRow, error) {
	format, err := DetectFormat(file.Name())
	if err != nil {
		return nil, err
	}
	res.Format = format
	return ReadRows(file, format, p.maxFileSize)
}

func (p *Pipeline) persist(ctx context.Context, records []PaymentRecord) ([]Payment, error) {
	if len(records) == 0 {
		return nil, nil
	}

	payments := make([]Payment, 0, len(records))
	err := p.store.WithTx(ctx, func(w PaymentWriter) error {
		for _, rec := range records {
			pay, err := w.UpsertPayment(ctx, rec)
			if err != nil {
				return fmt.Errorf("upsert payment ext_number=%q payer=%d apartment=%d: %w",
					rec.ExtNumber, rec.Payer.ID, rec.Apartment.ID, err)
			}
			payments = append(payments, pay)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return payments, nil
}

// notify tells each payer and every lodger of the apartment about the
// payment. Failures are logged and counted but never fail the run.
func (p *Pipeline) notify(ctx context.Context, log *slog.Logger, res *Result, payments []Payment) {
	if p.notifier == nil {
		return
	}

	for _, pay := range payments {
		if err := p.notifier.NotifyPayer(ctx, pay); err != nil {
			res.NotifyFailures++
			log.Warn("payer notification failed", "payment_id", pay.ID, "payer_id", pay.Payer.ID, "error", err)
		} else {
			res.Notified++
		}

		lodgers, err := p.store.LodgersOf(ctx, pay.Apartment.ID)
		if err != nil {
			res.NotifyFailures++
			log.Warn("lodger lookup failed", "payment_id", pay.ID, "apartment_id", pay.Apartment.ID, "error", err)
			continue
		}
		for _, lodger := range lodgers {
			if err := p.notifier.NotifyLodger(ctx, pay, lodger); err != nil {
				res.NotifyFailures++
				log.Warn("lodger notification failed", "payment_id", pay.ID, "resident_id", lodger.ID, "error", err)
				continue
			}
			res.Notified++
		}
	}
}
