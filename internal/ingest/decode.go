package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// Row is one decoded source row keyed by raw header. Cells absent from a
// short row are absent from the map.
type Row map[string]any

// Table is the ephemeral decoded form of one upload: ordered headers plus
// rows. It exists only for the duration of a single ingestion pass.
type Table struct {
	Headers []string
	Rows    []Row
}

var (
	// ErrUnsupportedFile reports a filename extension outside .csv/.xlsx/.xls.
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrEmptyTable reports a decoded file with no data rows.
	ErrEmptyTable = errors.New("file contains no data rows")
)

// Decode turns raw file bytes into a Table. The filename selects the
// decoder: .csv goes through the encoding fallback chain, .xlsx/.xls through
// the spreadsheet reader. A header-only or empty file is ErrEmptyTable.
func Decode(data []byte, filename string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return decodeCSV(data)
	case ".xlsx", ".xls":
		return decodeXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(filename))
	}
}

// decodeCSV commits to the first encoding that yields clean text: UTF-8,
// then EUC-KR (the Go codec covers the CP949 extension), then ISO 8859-1
// which accepts any byte sequence.
func decodeCSV(data []byte) (*Table, error) {
	text := decodeCharset(data)
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var table Table
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		if table.Headers == nil {
			for _, f := range fields {
				table.Headers = append(table.Headers, CleanHeader(f))
			}
			continue
		}
		row := make(Row, len(table.Headers))
		for i, h := range table.Headers {
			if h == "" || i >= len(fields) {
				continue
			}
			row[h] = fields[i]
		}
		table.Rows = append(table.Rows, row)
	}
	if len(table.Rows) == 0 {
		return nil, ErrEmptyTable
	}
	return &table, nil
}

func decodeCharset(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	// The x/text decoder substitutes U+FFFD for undecodable bytes rather
	// than failing, so a replacement rune in the output means the charset
	// guess was wrong.
	if out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data); err == nil &&
		!bytes.ContainsRune(out, utf8.RuneError) {
		return string(out)
	}
	out, _, _ := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	return string(out)
}

// decodeXLSX reads the first sheet of a workbook. Cells come back as the
// formatted strings excelize renders, which the coercers downstream accept.
func decodeXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyTable
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}

	var table Table
	for _, f := range rows[0] {
		table.Headers = append(table.Headers, CleanHeader(f))
	}
	for _, fields := range rows[1:] {
		row := make(Row, len(table.Headers))
		for i, h := range table.Headers {
			if h == "" || i >= len(fields) {
				continue
			}
			row[h] = fields[i]
		}
		table.Rows = append(table.Rows, row)
	}
	if len(table.Rows) == 0 {
		return nil, ErrEmptyTable
	}
	return &table, nil
}
