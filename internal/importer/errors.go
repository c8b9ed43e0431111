package importer

import (
	"errors"
	"fmt"
)

// Sentinels for classifying import errors with errors.Is.
var (
	// ErrImportPayment matches every *ImportError.
	ErrImportPayment = errors.New("import payment error")

	// ErrParseFile matches row-level format errors.
	ErrParseFile = errors.New("parse file error")

	// ErrFileType matches file-level errors (unknown format, unreadable file).
	ErrFileType = errors.New("file type error")

	// ErrCurrencyNotFound is fatal: the configured default currency is missing.
	ErrCurrencyNotFound = errors.New("default currency not found")

	// ErrPersist is fatal: the payment batch could not be committed.
	ErrPersist = errors.New("persist payments")
)

// Kind classifies an ImportError.
type Kind int

const (
	// KindImport is a referential row problem (unknown payer or apartment).
	KindImport Kind = iota
	// KindParseFile is a structural or format row problem.
	KindParseFile
	// KindFileType is a file-level problem that stops the run.
	KindFileType
)

func (k Kind) String() string {
	switch k {
	case KindParseFile:
		return "parse_file"
	case KindFileType:
		return "file_type"
	default:
		return "import_payment"
	}
}

// ImportError is a row-level or file-level import failure.
type ImportError struct {
	Kind    Kind
	Line    int    // 1-based line number, 0 for file-level errors
	Value   string // offending cell value, if any
	Message string
	Err     error // underlying cause, if any
}

func (e *ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *ImportError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind sentinels. A parse error is also an
// import payment error.
func (e *ImportError) Is(target error) bool {
	switch target {
	case ErrImportPayment:
		return true
	case ErrParseFile:
		return e.Kind == KindParseFile
	case ErrFileType:
		return e.Kind == KindFileType
	}
	return false
}

func newParseFileError(line int, value, format string, args ...any) *ImportError {
	return &ImportError{
		Kind:    KindParseFile,
		Line:    line,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	}
}

func newImportPaymentError(value string, cause error, format string, args ...any) *ImportError {
	return &ImportError{
		Kind:    KindImport,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
}

func newFileTypeError(cause error) *ImportError {
	return &ImportError{
		Kind:    KindFileType,
		Message: cause.Error(),
		Err:     cause,
	}
}
