package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"juku-import/internal/model"
	"juku-import/internal/schema"

	"github.com/xuri/excelize/v2"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	templateSheet = "テンプレート"
)

// TemplateFilename returns {purpose}_{year}_{period}.{ext}.
func TemplateFilename(s *schema.ImportSchema, year int, season model.Season, format string) string {
	if format == "" {
		format = FormatCSV
	}
	return fmt.Sprintf("%s_%d_%s.%s", s.Purpose, year, season.Label(), format)
}

func ContentType(format string) string {
	if format == FormatXLSX {
		return ContentTypeXLSX
	}
	return ContentTypeCSV
}

// BuildCSVTemplate renders the header row and example rows as UTF-8 CSV with
// a leading byte-order mark.
func BuildCSVTemplate(s *schema.ImportSchema, year int, season model.Season) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(bom)

	w := csv.NewWriter(&buf)
	if err := w.Write(s.Columns); err != nil {
		return nil, err
	}
	for _, row := range exampleRows(s, year, season) {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv template: %w", err)
	}

	return buf.Bytes(), nil
}

func BuildXLSXTemplate(s *schema.ImportSchema, year int, season model.Season) ([]byte, error) {
	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetSheetName("Sheet1", templateSheet); err != nil {
		return nil, err
	}

	style, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	rows := append([][]string{s.Columns}, exampleRows(s, year, season)...)
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return nil, err
		}
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = v
		}
		if err := wb.SetSheetRow(templateSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	last, err := excelize.CoordinatesToCellName(len(s.Columns), 1)
	if err != nil {
		return nil, err
	}
	if err := wb.SetCellStyle(templateSheet, "A1", last, style); err != nil {
		return nil, err
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write xlsx template: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildTemplate renders the template in the requested format.
func BuildTemplate(s *schema.ImportSchema, year int, season model.Season, format string) ([]byte, error) {
	if format == FormatXLSX {
		return BuildXLSXTemplate(s, year, season)
	}
	return BuildCSVTemplate(s, year, season)
}

func exampleRows(s *schema.ImportSchema, year int, season model.Season) [][]string {
	replacer := strings.NewReplacer(
		schema.YearPlaceholder, strconv.Itoa(year),
		schema.PeriodPlaceholder, season.Label(),
	)

	rows := make([][]string, len(s.Examples))
	for i, example := range s.Examples {
		row := make([]string, len(example))
		for j, v := range example {
			row[j] = replacer.Replace(v)
		}
		rows[i] = row
	}
	return rows
}
