package sheet

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"juku-import/internal/model"
	"juku-import/internal/schema"
)

const (
	defaultExpectedMax = 100
	twoSubjectMax      = 200
	// A total above this multiple of the expected maximum is flagged.
	overMaxFactor = 1.5
)

type Validator struct {
	schema *schema.ImportSchema
}

func NewValidator(s *schema.ImportSchema) *Validator {
	return &Validator{schema: s}
}

// Validate assigns row status and warnings in place. Warnings never change
// the status of a row.
func (v *Validator) Validate(ctx context.Context, preview *model.Preview) error {
	for i := range preview.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		v.validateRow(&preview.Rows[i])
	}
	return nil
}

func (v *Validator) validateRow(row *model.ParsedRow) {
	for _, field := range v.schema.RequiredFields {
		if strings.TrimSpace(row.Values[field]) == "" {
			row.AddError(fmt.Sprintf("%sが未入力です", field))
		}
	}

	if v.schema.Kind != model.ImportKindScore {
		return
	}

	v.validateQuestions(row)

	expected := ExpectedMaxScore(row.Grade)
	if row.TotalScore > float64(expected)*overMaxFactor {
		row.AddWarning(fmt.Sprintf("想定満点（%d点）を大幅に超えています: %s点", expected, formatScore(row.TotalScore)))
	}
}

func (v *Validator) validateQuestions(row *model.ParsedRow) {
	cols := make([]string, 0, len(row.QuestionScores))
	for col := range row.QuestionScores {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var missing []string
	for _, col := range cols {
		raw := strings.TrimSpace(row.Values[col])
		score := row.QuestionScores[col]

		switch {
		case raw == "":
			missing = append(missing, col)
		case score == nil:
			row.AddError(fmt.Sprintf("%sの得点が数値ではありません: %s", col, raw))
		case *score < 0:
			row.AddError(fmt.Sprintf("%sの得点が負の値です: %s", col, formatScore(*score)))
		case v.schema.QuestionMax > 0 && *score > v.schema.QuestionMax:
			row.AddError(fmt.Sprintf("%sの得点が満点（%s点）を超えています: %s点",
				col, formatScore(v.schema.QuestionMax), formatScore(*score)))
		}
	}

	if row.Present && len(missing) > 0 {
		row.AddWarning(fmt.Sprintf("出席ですが得点が未入力です: %s", strings.Join(missing, "、")))
	}
}

// ExpectedMaxScore guesses the full-marks total from the grade prefix:
// elementary (小) and middle school (中) sheets carry two subjects.
func ExpectedMaxScore(grade string) int {
	grade = strings.TrimSpace(grade)
	switch {
	case strings.HasPrefix(grade, "小"):
		return twoSubjectMax
	case strings.HasPrefix(grade, "中"):
		return twoSubjectMax
	}
	return defaultExpectedMax
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
