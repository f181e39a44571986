package sheet

import (
	"context"
	"testing"

	"juku-import/internal/model"
	"juku-import/internal/schema"
	"juku-import/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rosterHeader = "塾ID,塾名,教室ID,教室名,生徒ID,生徒名,学年,年度,期間"

func runCSV(t *testing.T, s *schema.ImportSchema, text string) (*model.Preview, error) {
	t.Helper()
	p, err := NewPipeline(s, "upload.csv")
	require.NoError(t, err)
	return p.Run(context.Background(), []byte(text))
}

func TestParse_RosterSingleRow(t *testing.T) {
	t.Parallel()

	text := rosterHeader + "\n100001,サンプル塾,001001,教室A,123456,田中太郎,小6,2025,夏期\n"
	preview, err := runCSV(t, schema.StudentRoster, text)
	require.NoError(t, err)
	require.Len(t, preview.Rows, 1)

	row := preview.Rows[0]
	assert.Equal(t, model.RowStatusValid, row.Status)
	assert.Equal(t, "123456", row.StudentID)
	assert.Equal(t, "田中太郎", row.StudentName)
	assert.Equal(t, "100001", row.SchoolID)
	assert.Equal(t, 1, row.RowIndex)
	assert.True(t, preview.CanExecute())
}

func TestParse_EmptyStudentIDIsDropped(t *testing.T) {
	t.Parallel()

	text := rosterHeader + "\n100001,サンプル塾,001001,教室A,,田中太郎,小6,2025,夏期\n"
	_, err := runCSV(t, schema.StudentRoster, text)
	// The only row is a blank-ID row, so nothing is left and nothing is an error.
	require.NoError(t, err)

	text = rosterHeader +
		"\n100001,サンプル塾,001001,教室A,,田中太郎,小6,2025,夏期" +
		"\n100001,サンプル塾,001001,教室A,123457,佐藤花子,中1,2025,夏期\n"
	preview, err := runCSV(t, schema.StudentRoster, text)
	require.NoError(t, err)
	require.Len(t, preview.Rows, 1)
	assert.Equal(t, "123457", preview.Rows[0].StudentID)
	assert.Equal(t, 2, preview.Rows[0].RowIndex)
	assert.Equal(t, 0, preview.Summary().Errors)
}

func TestParse_HeaderSubsetAnyOrder(t *testing.T) {
	t.Parallel()

	text := "備考,期間,年度,学年,生徒名,生徒ID,教室名,教室ID,塾名,塾ID\n" +
		"メモ,夏期,2025,小6,田中太郎,123456,教室A,001001,サンプル塾,100001\n"
	preview, err := runCSV(t, schema.StudentRoster, text)
	require.NoError(t, err)
	require.Len(t, preview.Rows, 1)
	assert.Equal(t, "123456", preview.Rows[0].StudentID)
	assert.Equal(t, "メモ", preview.Rows[0].Values["備考"])
}

func TestParse_SchemaMismatch(t *testing.T) {
	t.Parallel()

	text := "塾ID,塾名,生徒ID,生徒名\n100001,サンプル塾,123456,田中太郎\n"
	_, err := runCSV(t, schema.StudentRoster, text)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSchemaMismatch))

	var schemaErr errors.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"教室ID", "教室名", "学年", "年度", "期間"}, schemaErr.Missing)
}

func TestParse_BOMIdempotence(t *testing.T) {
	t.Parallel()

	text := rosterHeader + "\n100001,サンプル塾,001001,教室A,123456,田中太郎,小6,2025,夏期\n"
	plain, err := runCSV(t, schema.StudentRoster, text)
	require.NoError(t, err)
	withBOM, err := runCSV(t, schema.StudentRoster, "\ufeff"+text)
	require.NoError(t, err)

	assert.Equal(t, plain, withBOM)
}

func TestParse_QuotedFields(t *testing.T) {
	t.Parallel()

	text := `"塾ID","塾名",教室ID,教室名,生徒ID,生徒名,学年,年度,期間` + "\n" +
		`100001,"サンプル塾, 本校",001001,"教室
A",123456,田中太郎,小6,2025,夏期` + "\n"
	preview, err := runCSV(t, schema.StudentRoster, text)
	require.NoError(t, err)
	require.Len(t, preview.Rows, 1)
	assert.Equal(t, "サンプル塾, 本校", preview.Rows[0].Values["塾名"])
	assert.Equal(t, "教室\nA", preview.Rows[0].Values["教室名"])
	assert.Equal(t, "123456", preview.Rows[0].StudentID)
}

func TestParse_BlankLinesAndShortRows(t *testing.T) {
	t.Parallel()

	text := rosterHeader + "\n\n   \n100001,サンプル塾,001001,教室A,123456,田中太郎\n"
	preview, err := runCSV(t, schema.StudentRoster, text)
	require.NoError(t, err)
	require.Len(t, preview.Rows, 1)

	row := preview.Rows[0]
	assert.Equal(t, 1, row.RowIndex)
	assert.Equal(t, "", row.Values["学年"])
	assert.Equal(t, model.RowStatusError, row.Status)
	assert.False(t, preview.CanExecute())
}

func TestParse_EmptyFile(t *testing.T) {
	t.Parallel()

	_, err := runCSV(t, schema.StudentRoster, "")
	assert.True(t, errors.Is(err, errors.ErrEmptyFile))

	_, err = runCSV(t, schema.StudentRoster, rosterHeader+"\n")
	assert.True(t, errors.Is(err, errors.ErrEmptyFile))
}

func TestParse_TotalScorePrecedence(t *testing.T) {
	t.Parallel()

	header := "生徒ID,生徒名,学年,国語合計点,算数合計点,全体合計点\n"

	tests := []struct {
		name string
		row  string
		want float64
	}{
		{name: "grand total wins", row: "1,A,中2,80,70,120", want: 120},
		{name: "sum of subject totals", row: "1,A,中2,80,70,", want: 150},
		{name: "non-numeric grand total falls back", row: "1,A,中2,80,70,abc", want: 150},
		{name: "non-numeric subject total skipped", row: "1,A,中2,80,-,", want: 80},
		{name: "full width digits", row: "1,A,中2,８０,７０,", want: 150},
		{name: "nothing numeric", row: "1,A,中2,,,", want: 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			preview, err := runCSV(t, schema.ScoreSheet, header+tt.row+"\n")
			require.NoError(t, err)
			require.Len(t, preview.Rows, 1)
			assert.Equal(t, tt.want, preview.Rows[0].TotalScore)
		})
	}
}

func TestParse_ScoreColumnsCollectedWithoutTotals(t *testing.T) {
	t.Parallel()

	text := "生徒ID,生徒名,学年,国語_問1,国語_問2\n1,A,小4,30,\n"
	preview, err := runCSV(t, schema.ScoreSheet, text)
	require.NoError(t, err)
	require.Len(t, preview.Rows, 1)

	row := preview.Rows[0]
	assert.Equal(t, float64(0), row.TotalScore)
	assert.Equal(t, map[string]float64{"国語_問1": 30}, row.ScoreColumns)
	require.Contains(t, row.QuestionScores, "国語_問2")
	assert.Nil(t, row.QuestionScores["国語_問2"])
}

func TestParse_Attendance(t *testing.T) {
	t.Parallel()

	text := "生徒ID,生徒名,学年,出欠\n1,A,小4,出席\n2,B,小4,欠席\n3,C,小4,\n"
	preview, err := runCSV(t, schema.ScoreSheet, text)
	require.NoError(t, err)
	require.Len(t, preview.Rows, 3)
	assert.True(t, preview.Rows[0].Present)
	assert.False(t, preview.Rows[1].Present)
	assert.True(t, preview.Rows[2].Present)
}

func TestParseScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{in: "42", want: 42, wantOK: true},
		{in: " 4.5 ", want: 4.5, wantOK: true},
		{in: "１２", want: 12, wantOK: true},
		{in: "", wantOK: false},
		{in: "NaN", wantOK: false},
		{in: "Inf", wantOK: false},
		{in: "十", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := ParseScore(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
