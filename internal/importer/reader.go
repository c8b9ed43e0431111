package importer

// reader.go turns CSV and XLSX files into raw rows.
//
// The format is resolved once from the file extension. Both readers return
// every row including the header; the pipeline skips line 1.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// DefaultMaxFileSize is the largest import file accepted (50MB).
const DefaultMaxFileSize int64 = 50 * 1024 * 1024

var (
	errNoSheet      = errors.New("file does not have sheet")
	errFileTooLarge = errors.New("file too large")
	errEncoding     = errors.New("encoding error: file is not valid UTF-8")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Format is the closed set of supported file encodings.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXLSX
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// DetectFormat resolves the format from the file name's extension
// (case-insensitive).
func DetectFormat(name string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	if ext == "" {
		return FormatUnknown, fmt.Errorf("unsupported file type: %q has no extension", filepath.Base(name))
	}
	return FormatUnknown, fmt.Errorf("unsupported file type %q (expected csv or xlsx)", ext)
}

// File is an import source: a path on disk or an uploaded file.
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// PathFile is a file on the local filesystem.
type PathFile string

func (p PathFile) Name() string { return string(p) }

func (p PathFile) Open() (io.ReadCloser, error) { return os.Open(string(p)) }

// UploadedFile is a file received in memory, e.g. from a multipart form.
type UploadedFile struct {
	Filename string
	Data     []byte
}

func (u UploadedFile) Name() string { return u.Filename }

func (u UploadedFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(u.Data)), nil
}

// ReadRows reads every row of f as format. maxSize <= 0 means
// DefaultMaxFileSize.
func ReadRows(f File, format Format, maxSize int64) ([]RawRow, error) {
	if format != FormatCSV && format != FormatXLSX {
		return nil, fmt.Errorf("unsupported file type %q", format)
	}

	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(f.Name()), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(f.Name()), err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: exceeds %d bytes", errFileTooLarge, maxSize)
	}

	if format == FormatXLSX {
		return readXLSX(data)
	}
	return readCSV(data)
}

// readCSV decodes comma-separated UTF-8 text with double-quote quoting.
// Rows may have any number of fields; the parser reports mismatches.
// A stray quote inside an unquoted field is kept as text. Blank lines
// between records become empty rows so row numbers stay aligned with
// the file.
func readCSV(data []byte) ([]RawRow, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, errEncoding
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = ','
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows []RawRow
	next := 1 // line the next record starts on when no blank lines intervene
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}

		start, _ := r.FieldPos(0)
		for ; next < start; next++ {
			rows = append(rows, RawRow{})
		}
		rows = append(rows, Row(record...))

		last := len(record) - 1
		end, _ := r.FieldPos(last)
		next = end + strings.Count(record[last], "\n") + 1
	}
	return rows, nil
}

// readXLSX reads the active sheet, ColumnCount cells per row, stopping at
// the first row whose first cell is empty.
func readXLSX(data []byte) ([]RawRow, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx: %w", err)
	}
	defer wb.Close()

	sheet := wb.GetSheetName(wb.GetActiveSheetIndex())
	if sheet == "" {
		return nil, errNoSheet
	}

	var rows []RawRow
	for r := 1; ; r++ {
		row := make(RawRow, 0, ColumnCount)
		for c := 1; c <= ColumnCount; c++ {
			cell, err := readXLSXCell(wb, sheet, c, r)
			if err != nil {
				return nil, err
			}
			if c == 1 && cell.isEmpty() {
				return rows, nil
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
}

func readXLSXCell(wb *excelize.File, sheet string, col, row int) (Cell, error) {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return Cell{}, err
	}

	raw, err := wb.GetCellValue(sheet, name, excelize.Options{RawCellValue: true})
	if err != nil {
		return Cell{}, fmt.Errorf("read cell %s: %w", name, err)
	}
	if raw == "" {
		return Cell{}, nil
	}

	typ, err := wb.GetCellType(sheet, name)
	if err == nil && typ == excelize.CellTypeDate {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return DateCell(t), nil
		}
	}

	styleID, err := wb.GetCellStyle(sheet, name)
	if err == nil && isDateStyle(wb, styleID) {
		if serial, err := strconv.ParseFloat(raw, 64); err == nil {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return DateCell(t), nil
			}
		}
	}

	return TextCell(raw), nil
}

// isDateStyle reports whether the style formats numbers as dates.
func isDateStyle(wb *excelize.File, styleID int) bool {
	if styleID == 0 {
		return false
	}
	style, err := wb.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateNumFmt(*style.CustomNumFmt)
	}
	switch {
	case style.NumFmt >= 14 && style.NumFmt <= 22:
		return true
	case style.NumFmt >= 45 && style.NumFmt <= 47:
		return true
	}
	return false
}

// isDateNumFmt reports whether a custom number format contains date parts.
// Quoted literals and bracketed sections (colors, locales) are ignored.
func isDateNumFmt(format string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(format) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	return strings.ContainsAny(b.String(), "dy")
}
