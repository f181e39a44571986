package model

// Preview is the parsed and validated content of one uploaded file.
type Preview struct {
	Kind   ImportKind  `json:"kind"`
	Header []string    `json:"header"`
	Rows   []ParsedRow `json:"rows"`
}

type PreviewSummary struct {
	Total      int  `json:"total"`
	Valid      int  `json:"valid"`
	Errors     int  `json:"errors"`
	Warnings   int  `json:"warnings"`
	CanExecute bool `json:"can_execute"`
}

func (p *Preview) Summary() PreviewSummary {
	s := PreviewSummary{Total: len(p.Rows)}
	for _, row := range p.Rows {
		if row.Status == RowStatusError {
			s.Errors++
		} else {
			s.Valid++
		}
		if len(row.Warnings) > 0 {
			s.Warnings++
		}
	}
	s.CanExecute = s.Total > 0 && s.Errors == 0
	return s
}

// CanExecute reports whether the import may be submitted: at least one row
// and no row in error. Warnings never block.
func (p *Preview) CanExecute() bool {
	return p.Summary().CanExecute
}
