package backend

import (
	"io"

	"juku-import/internal/model"
)

type ProgressFunc func(model.Progress)

// progressReader reports bytes actually read from the request body. It only
// calls back when the whole percentage changes.
type progressReader struct {
	r       io.Reader
	total   int64
	loaded  int64
	lastPct int
	fn      ProgressFunc
}

func newProgressReader(r io.Reader, total int64, fn ProgressFunc) io.Reader {
	if fn == nil {
		return r
	}
	return &progressReader{r: r, total: total, lastPct: -1, fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		progress := model.Progress{Loaded: p.loaded, Total: p.total}
		if pct := progress.Percent(); pct != p.lastPct {
			p.lastPct = pct
			p.fn(progress)
		}
	}
	return n, err
}
