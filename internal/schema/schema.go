package schema

import (
	"regexp"
	"strings"

	"juku-import/internal/model"
	"juku-import/pkg/errors"
)

const (
	ColSchoolID      = "塾ID"
	ColSchoolName    = "塾名"
	ColClassroomID   = "教室ID"
	ColClassroomName = "教室名"
	ColStudentID     = "生徒ID"
	ColStudentName   = "生徒名"
	ColGrade         = "学年"
	ColYear          = "年度"
	ColPeriod        = "期間"
	ColAttendance    = "出欠"
	ColGrandTotal    = "全体合計点"

	SubjectTotalSuffix = "合計点"
	AttendancePresent  = "出席"
	AttendanceAbsent   = "欠席"

	// Placeholders in example rows, filled in by the template generator.
	YearPlaceholder   = "{year}"
	PeriodPlaceholder = "{period}"
)

// ImportSchema declares the expected layout of one import kind.
type ImportSchema struct {
	Kind    model.ImportKind
	Purpose string
	Columns []string
	// Required headers must all be present in the uploaded header row.
	Required []string
	// Rows with an empty PrimaryKey are treated as trailing blank rows.
	PrimaryKey string
	// RequiredFields mark a row as error when empty.
	RequiredFields []string

	GrandTotalColumn   string
	SubjectTotalSuffix string
	QuestionPattern    *regexp.Regexp
	QuestionMax        float64
	AttendanceColumn   string

	Examples [][]string
}

// IsSubjectTotal reports whether a column holds a per-subject total.
func (s *ImportSchema) IsSubjectTotal(col string) bool {
	if s.SubjectTotalSuffix == "" || col == s.GrandTotalColumn {
		return false
	}
	return len(col) > len(s.SubjectTotalSuffix) && strings.HasSuffix(col, s.SubjectTotalSuffix)
}

func (s *ImportSchema) IsQuestion(col string) bool {
	return s.QuestionPattern != nil && s.QuestionPattern.MatchString(col)
}

var StudentRoster = &ImportSchema{
	Kind:    model.ImportKindStudent,
	Purpose: "生徒インポート",
	Columns: []string{
		ColSchoolID, ColSchoolName, ColClassroomID, ColClassroomName,
		ColStudentID, ColStudentName, ColGrade, ColYear, ColPeriod,
	},
	Required: []string{
		ColSchoolID, ColSchoolName, ColClassroomID, ColClassroomName,
		ColStudentID, ColStudentName, ColGrade, ColYear, ColPeriod,
	},
	PrimaryKey:     ColStudentID,
	RequiredFields: []string{ColSchoolID, ColStudentID, ColStudentName, ColGrade},
	Examples: [][]string{
		{"100001", "サンプル塾", "001001", "教室A", "123456", "田中太郎", "小6", YearPlaceholder, PeriodPlaceholder},
		{"100001", "サンプル塾", "001001", "教室A", "123457", "佐藤花子", "中1", YearPlaceholder, PeriodPlaceholder},
		{"100001", "サンプル塾", "001002", "教室B", "123458", "鈴木一郎", "中3", YearPlaceholder, PeriodPlaceholder},
	},
}

var ScoreSheet = &ImportSchema{
	Kind:    model.ImportKindScore,
	Purpose: "得点インポート",
	Columns: []string{
		ColSchoolID, ColClassroomID, ColStudentID, ColStudentName, ColGrade, ColAttendance,
		"国語_問1", "国語_問2", "国語合計点",
		"算数_問1", "算数_問2", "算数合計点",
		ColGrandTotal,
	},
	Required:           []string{ColStudentID, ColStudentName, ColGrade},
	PrimaryKey:         ColStudentID,
	RequiredFields:     []string{ColStudentID, ColStudentName, ColGrade},
	GrandTotalColumn:   ColGrandTotal,
	SubjectTotalSuffix: SubjectTotalSuffix,
	QuestionPattern:    regexp.MustCompile(`^.+_問\d+$`),
	QuestionMax:        100,
	AttendanceColumn:   ColAttendance,
	Examples: [][]string{
		{"100001", "001001", "123456", "田中太郎", "小6", AttendancePresent, "45", "40", "85", "50", "42", "92", "177"},
		{"100001", "001001", "123457", "佐藤花子", "中1", AttendancePresent, "38", "35", "73", "44", "30", "74", "147"},
		{"100001", "001001", "123458", "鈴木一郎", "中3", AttendanceAbsent, "", "", "", "", "", "", ""},
	},
}

func ForKind(kind model.ImportKind) (*ImportSchema, error) {
	switch kind {
	case model.ImportKindStudent:
		return StudentRoster, nil
	case model.ImportKindScore:
		return ScoreSheet, nil
	}
	return nil, errors.ErrUnknownKind
}
