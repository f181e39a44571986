package sheet

import (
	"context"
	"math"
	"strconv"
	"strings"

	"juku-import/internal/model"
	"juku-import/internal/schema"
	"juku-import/pkg/errors"

	"golang.org/x/text/width"
)

type Parser struct {
	schema *schema.ImportSchema
}

func NewParser(s *schema.ImportSchema) *Parser {
	return &Parser{schema: s}
}

// Parse maps tokenized records onto the schema. The first record is the header.
func (p *Parser) Parse(ctx context.Context, records [][]string) (*model.Preview, error) {
	if len(records) == 0 {
		return nil, errors.ErrEmptyFile
	}

	header := make([]string, len(records[0]))
	for i, col := range records[0] {
		header[i] = normalizeHeader(col)
	}

	if err := p.checkHeader(header); err != nil {
		return nil, err
	}

	if len(records) < 2 { // Header + at least one data row
		return nil, errors.ErrEmptyFile
	}

	preview := &model.Preview{
		Kind:   p.schema.Kind,
		Header: header,
		Rows:   make([]model.ParsedRow, 0, len(records)-1),
	}

	for i, record := range records[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row := p.mapRow(header, record, i+1)
		if row.Values[p.schema.PrimaryKey] == "" {
			continue // Trailing blank row
		}

		p.aggregate(header, &row)
		preview.Rows = append(preview.Rows, row)
	}

	return preview, nil
}

func (p *Parser) checkHeader(header []string) error {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}

	var missing []string
	for _, col := range p.schema.Required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return errors.SchemaError{Missing: missing}
	}
	return nil
}

func (p *Parser) mapRow(header []string, record []string, rowIndex int) model.ParsedRow {
	values := make(map[string]string, len(header))
	for i, col := range header {
		if col == "" {
			continue
		}
		value := ""
		if i < len(record) {
			value = normalizeField(record[i])
		}
		values[col] = value
	}

	return model.ParsedRow{
		RowIndex:    rowIndex,
		Values:      values,
		SchoolID:    values[schema.ColSchoolID],
		StudentID:   values[p.schema.PrimaryKey],
		StudentName: values[schema.ColStudentName],
		Grade:       values[schema.ColGrade],
		Present:     p.isPresent(values),
		Status:      model.RowStatusValid,
	}
}

func (p *Parser) isPresent(values map[string]string) bool {
	if p.schema.AttendanceColumn == "" {
		return true
	}
	switch strings.ToLower(values[p.schema.AttendanceColumn]) {
	case schema.AttendanceAbsent, "absent", "×":
		return false
	}
	return true
}

// aggregate derives the row total. An explicit grand total wins over the sum
// of per-subject totals; with neither, the total stays zero and the numeric
// score columns are kept aside.
func (p *Parser) aggregate(header []string, row *model.ParsedRow) {
	s := p.schema
	if s.GrandTotalColumn == "" && s.SubjectTotalSuffix == "" && s.QuestionPattern == nil {
		return
	}

	var subjectSum float64
	for _, col := range header {
		raw, ok := row.Values[col]
		if !ok {
			continue
		}

		switch {
		case s.IsSubjectTotal(col):
			if v, ok := ParseScore(raw); ok {
				if row.SubjectTotals == nil {
					row.SubjectTotals = make(map[string]float64)
				}
				row.SubjectTotals[col] = v
				subjectSum += v
			}
		case s.IsQuestion(col):
			if row.QuestionScores == nil {
				row.QuestionScores = make(map[string]*float64)
			}
			if v, ok := ParseScore(raw); ok {
				row.QuestionScores[col] = &v
			} else {
				row.QuestionScores[col] = nil
			}
		}
	}

	if s.GrandTotalColumn != "" {
		if v, ok := ParseScore(row.Values[s.GrandTotalColumn]); ok {
			row.TotalScore = v
			return
		}
	}

	if len(row.SubjectTotals) > 0 {
		row.TotalScore = subjectSum
		return
	}

	for col, score := range row.QuestionScores {
		if score == nil {
			continue
		}
		if row.ScoreColumns == nil {
			row.ScoreColumns = make(map[string]float64)
		}
		row.ScoreColumns[col] = *score
	}
}

// ParseScore parses a score cell, accepting full-width digits. Blank and
// non-numeric cells report false.
func ParseScore(raw string) (float64, bool) {
	raw = strings.TrimSpace(width.Narrow.String(raw))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func normalizeHeader(col string) string {
	col = strings.TrimPrefix(col, bom)
	return normalizeField(col)
}

func normalizeField(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
