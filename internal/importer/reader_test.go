package importer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{name: "payments.csv", want: FormatCSV},
		{name: "PAYMENTS.CSV", want: FormatCSV},
		{name: "/tmp/dir.v2/payments.Xlsx", want: FormatXLSX},
		{name: "payments.txt", wantErr: true},
		{name: "payments.xls", wantErr: true},
		{name: "payments", wantErr: true},
		{name: "archive.csv.gz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Errorf("DetectFormat(%q) = %v, want error", tt.name, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectFormat(%q) error = %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("DetectFormat(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// CSV
// ----------------------------------------------------------------------------

func TestReadRows_CSV(t *testing.T) {
	data := "\xEF\xBB\xBFext,month,building,apt,account,email,description,price\n" +
		`1,01-01-2024,"Tower, A",12,ACC-1,a@example.com,"said ""hi""","12,50"` + "\n" +
		"2,01-01-2024,short\n"

	rows, err := ReadRows(UploadedFile{Filename: "p.csv", Data: []byte(data)}, FormatCSV, 0)
	if err != nil {
		t.Fatalf("ReadRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("ReadRows() len = %d, want 3", len(rows))
	}
	if got := rows[0][0].String(); got != "ext" {
		t.Errorf("header[0] = %q, want %q (BOM should be stripped)", got, "ext")
	}
	if got := rows[1][2].String(); got != "Tower, A" {
		t.Errorf("quoted building = %q, want %q", got, "Tower, A")
	}
	if got := rows[1][6].String(); got != `said "hi"` {
		t.Errorf("escaped quote = %q, want %q", got, `said "hi"`)
	}
	if got := rows[1][7].String(); got != "12,50" {
		t.Errorf("price = %q, want %q", got, "12,50")
	}
	if len(rows[2]) != 3 {
		t.Errorf("ragged row len = %d, want 3", len(rows[2]))
	}
}

func TestReadRows_CSVBareQuoteKeptAsText(t *testing.T) {
	data := "ext,month,building,apt,account,email,description,price\n" +
		`1,01-01-2024,Tower A,12,ACC-1,a@example.com,water 5" pipe,3` + "\n"

	rows, err := ReadRows(UploadedFile{Filename: "p.csv", Data: []byte(data)}, FormatCSV, 0)
	if err != nil {
		t.Fatalf("ReadRows() error = %v", err)
	}
	if len(rows) != 2 || len(rows[1]) != ColumnCount {
		t.Fatalf("ReadRows() = %v, want header plus one 8-column row", rows)
	}
	if got := rows[1][ColDescription].String(); got != `water 5" pipe` {
		t.Errorf("description = %q, want %q", got, `water 5" pipe`)
	}
}

func TestReadRows_CSVBlankLinesKeepPositions(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantLens []int
	}{
		{
			name:     "interior blank line",
			data:     "h\na,b\n\nc,d\n",
			wantLens: []int{1, 2, 0, 2},
		},
		{
			name:     "several blank lines with crlf",
			data:     "h\r\na\r\n\r\n\r\nb\r\n",
			wantLens: []int{1, 1, 0, 0, 1},
		},
		{
			name:     "quoted field spanning lines",
			data:     "h\n\"multi\nline\",x\ny,z\n",
			wantLens: []int{1, 2, 2},
		},
		{
			name:     "trailing blank lines ignored",
			data:     "h\na\n\n\n",
			wantLens: []int{1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ReadRows(UploadedFile{Filename: "p.csv", Data: []byte(tt.data)}, FormatCSV, 0)
			if err != nil {
				t.Fatalf("ReadRows() error = %v", err)
			}
			if len(rows) != len(tt.wantLens) {
				t.Fatalf("ReadRows() len = %d, want %d (%v)", len(rows), len(tt.wantLens), rows)
			}
			for i, want := range tt.wantLens {
				if len(rows[i]) != want {
					t.Errorf("row %d len = %d, want %d", i+1, len(rows[i]), want)
				}
			}
		})
	}
}

func TestReadRows_UnknownFormat(t *testing.T) {
	_, err := ReadRows(UploadedFile{Filename: "p.csv", Data: []byte("a\n")}, FormatUnknown, 0)
	if err == nil || !strings.Contains(err.Error(), "unsupported file type") {
		t.Errorf("ReadRows() error = %v, want unsupported file type", err)
	}
}

func TestReadRows_CSVFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.CSV")
	if err := os.WriteFile(path, []byte("h\nv\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, err := ReadRows(PathFile(path), FormatCSV, 0)
	if err != nil {
		t.Fatalf("ReadRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("ReadRows() len = %d, want 2", len(rows))
	}
}

func TestReadRows_CSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    File
		max     int64
		wantMsg string
	}{
		{
			name:    "invalid utf-8",
			file:    UploadedFile{Filename: "p.csv", Data: []byte("caf\xe9\n")},
			wantMsg: "encoding error",
		},
		{
			name:    "too large",
			file:    UploadedFile{Filename: "p.csv", Data: []byte(strings.Repeat("x", 11))},
			max:     10,
			wantMsg: "file too large",
		},
		{
			name:    "unsupported extension",
			file:    UploadedFile{Filename: "p.txt", Data: []byte("a,b\n")},
			wantMsg: "unsupported file type",
		},
		{
			name:    "missing path",
			file:    PathFile(filepath.Join(os.TempDir(), "does-not-exist-payimport.csv")),
			wantMsg: "open does-not-exist-payimport.csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, err := DetectFormat(tt.file.Name())
			if err == nil {
				_, err = ReadRows(tt.file, format, tt.max)
			}
			if err == nil {
				t.Fatal("ReadRows() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("ReadRows() error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// XLSX
// ----------------------------------------------------------------------------

// buildWorkbook writes rows to Sheet1 of a new workbook and returns its bytes.
func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	return buf.Bytes()
}

func TestReadRows_XLSX(t *testing.T) {
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	data := buildWorkbook(t, [][]any{
		{"ext", "month", "building", "apt", "account", "email", "description", "price"},
		{"1", date, "Tower A", 12, "ACC-1", "a@example.com", "water", 12.5},
		{"2", "02-05-2024", "Tower A", 12, "ACC-1", "a@example.com", "", "7,25", "ignored"},
		{"", "after the sentinel", "", "", "", "", "", ""},
		{"3", "03-05-2024", "Tower A", 12, "ACC-1", "a@example.com", "heat", "1"},
	})

	rows, err := ReadRows(UploadedFile{Filename: "book.XLSX", Data: data}, FormatXLSX, 0)
	if err != nil {
		t.Fatalf("ReadRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("ReadRows() len = %d, want 3 (stop at empty first cell)", len(rows))
	}

	for i, row := range rows {
		if len(row) != ColumnCount {
			t.Errorf("row %d len = %d, want %d", i+1, len(row), ColumnCount)
		}
	}

	dateCell := rows[1][ColDate]
	if !dateCell.IsDate {
		t.Fatalf("date cell IsDate = false (text %q), want native date", dateCell.Text)
	}
	if y, m, d := dateCell.Time.Date(); y != 2024 || m != time.May || d != 1 {
		t.Errorf("date cell = %v, want 2024-05-01", dateCell.Time)
	}

	if got := rows[1][ColPrice].String(); got != "12.5" {
		t.Errorf("numeric price = %q, want %q", got, "12.5")
	}
	if got := rows[2][ColDate]; got.IsDate || got.Text != "02-05-2024" {
		t.Errorf("text date cell = %+v, want text 02-05-2024", got)
	}
	if got := rows[2][ColDescription]; !got.isEmpty() {
		t.Errorf("empty description = %+v, want empty", got)
	}
}

func TestReadRows_XLSXInvalid(t *testing.T) {
	_, err := ReadRows(UploadedFile{Filename: "book.xlsx", Data: []byte("not a zip")}, FormatXLSX, 0)
	if err == nil {
		t.Fatal("ReadRows() expected error for corrupt workbook")
	}
	if !strings.Contains(err.Error(), "invalid xlsx") {
		t.Errorf("ReadRows() error = %q, want it to contain %q", err, "invalid xlsx")
	}
}

func TestIsDateNumFmt(t *testing.T) {
	tests := []struct {
		format string
		want   bool
	}{
		{format: "dd-mm-yyyy", want: true},
		{format: "[$-409]mmmm d, yyyy", want: true},
		{format: "0.00", want: false},
		{format: `#,##0.00 "days"`, want: false},
		{format: "[Red]0.00", want: false},
		{format: "hh:mm", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if got := isDateNumFmt(tt.format); got != tt.want {
				t.Errorf("isDateNumFmt(%q) = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}

func TestErrNoSheetIsDistinct(t *testing.T) {
	fe := newFileTypeError(errNoSheet)
	if !errors.Is(fe, ErrFileType) {
		t.Error("errors.Is(fe, ErrFileType) = false, want true")
	}
	if !errors.Is(fe, errNoSheet) {
		t.Error("errors.Is(fe, errNoSheet) = false, want true")
	}
	if fe.Error() != "file does not have sheet" {
		t.Errorf("Error() = %q, want %q", fe.Error(), "file does not have sheet")
	}
}
