package sheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"juku-import/pkg/errors"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const bom = "\ufeff"

// Tokenizer splits raw file bytes into records of fields. Lines that are
// empty after trimming are dropped.
type Tokenizer interface {
	Tokenize(ctx context.Context, data []byte) ([][]string, error)
}

// TokenizerFor picks a tokenizer from the uploaded file's extension.
func TokenizerFor(filename string) (Tokenizer, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt", "":
		return CSVTokenizer{}, nil
	case ".xlsx", ".xlsm":
		return XLSXTokenizer{}, nil
	}
	return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedFile, filename)
}

// Decode strips a UTF-8 byte-order mark and converts Shift_JIS input to UTF-8.
func Decode(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte(bom))
	if utf8.Valid(data) {
		return data, nil
	}

	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable text: %v", errors.ErrInvalidFileFormat, err)
	}
	return decoded, nil
}

type CSVTokenizer struct{}

func (CSVTokenizer) Tokenize(ctx context.Context, data []byte) ([][]string, error) {
	text, err := Decode(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidFileFormat, err)
		}

		if isBlankLine(record) {
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

type XLSXTokenizer struct{}

func (XLSXTokenizer) Tokenize(ctx context.Context, data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidFileFormat, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ErrInvalidFileFormat
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	var records [][]string
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isBlankRow(row) {
			continue
		}
		if len(records) == 0 && len(row) > 0 {
			row[0] = strings.TrimPrefix(row[0], bom)
		}
		records = append(records, row)
	}

	return records, nil
}

// isBlankLine matches a text line that is empty after trimming. A line of
// bare delimiters is not blank: it is a row whose fields are all empty.
func isBlankLine(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}

// A spreadsheet row has no delimiters, so any row of empty cells is blank.
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
