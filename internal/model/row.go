package model

type RowStatus string

const (
	RowStatusValid RowStatus = "valid"
	RowStatusError RowStatus = "error"
)

// ParsedRow is one data row of an uploaded sheet mapped against its header.
type ParsedRow struct {
	// RowIndex is the 1-based data-record position in the file, header excluded.
	RowIndex    int               `json:"row_index"`
	Values      map[string]string `json:"values"`
	SchoolID    string            `json:"school_id,omitempty"`
	StudentID   string            `json:"student_id"`
	StudentName string            `json:"student_name,omitempty"`
	Grade       string            `json:"grade,omitempty"`

	TotalScore     float64             `json:"total_score"`
	SubjectTotals  map[string]float64  `json:"subject_totals,omitempty"`
	QuestionScores map[string]*float64 `json:"question_scores,omitempty"`
	ScoreColumns   map[string]float64  `json:"score_columns,omitempty"`
	Present        bool                `json:"present"`

	Status   RowStatus `json:"status"`
	Errors   []string  `json:"errors,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}

func (r *ParsedRow) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Status = RowStatusError
}

func (r *ParsedRow) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
