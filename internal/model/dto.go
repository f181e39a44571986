package model

type SubmitJob struct {
	SessionID string `json:"session_id"`
}

// ImportMeta is the scalar metadata sent alongside an uploaded file.
type ImportMeta struct {
	Year        int    `form:"year" json:"year" binding:"required,min=2000,max=2100"`
	Period      string `form:"period" json:"period" binding:"required,season"`
	SubjectID   string `form:"subject_id" json:"subject_id,omitempty" binding:"max=64"`
	ClassroomID string `form:"classroom_id" json:"classroom_id,omitempty" binding:"max=64"`
}

type TemplateQuery struct {
	Year   int    `form:"year" binding:"required,min=2000,max=2100"`
	Period string `form:"period" binding:"required,season"`
	Format string `form:"format" binding:"omitempty,oneof=csv xlsx"`
}

type SessionResponse struct {
	ID       string          `json:"id"`
	Kind     ImportKind      `json:"kind"`
	Year     int             `json:"year"`
	Period   Season          `json:"period"`
	Filename string          `json:"filename"`
	Step     SessionStep     `json:"step"`
	Summary  *PreviewSummary `json:"summary,omitempty"`
	Rows     []ParsedRow     `json:"rows,omitempty"`
	Progress int             `json:"progress"`
	Report   *Report         `json:"report,omitempty"`
}

func NewSessionResponse(s *Session) SessionResponse {
	resp := SessionResponse{
		ID:       s.ID,
		Kind:     s.Kind,
		Year:     s.Year,
		Period:   s.Period,
		Filename: s.Filename,
		Step:     s.Step,
		Progress: s.Progress.Percent(),
		Report:   s.Report,
	}
	if s.Preview != nil {
		summary := s.Preview.Summary()
		resp.Summary = &summary
		resp.Rows = s.Preview.Rows
	}
	if s.Step == StepComplete {
		resp.Progress = 100
	}
	return resp
}
