package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"juku-import/internal/config"
	"juku-import/internal/imports"
	"juku-import/internal/model"
	"juku-import/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	session    *model.Session
	err        error
	previewReq imports.PreviewRequest
	template   imports.TemplateRequest
	history    []model.ImportHistory
	limit      int
}

func (f *fakeService) Preview(_ context.Context, req imports.PreviewRequest) (*model.Session, error) {
	f.previewReq = req
	return f.session, f.err
}

func (f *fakeService) Get(context.Context, string) (*model.Session, error) {
	return f.session, f.err
}

func (f *fakeService) Execute(context.Context, string) (*model.Session, error) {
	return f.session, f.err
}

func (f *fakeService) Discard(context.Context, string) error {
	return f.err
}

func (f *fakeService) Template(ctx context.Context, req imports.TemplateRequest, saver imports.FileSaver) error {
	f.template = req
	if f.err != nil {
		return f.err
	}
	return saver.Save(ctx, "生徒インポート_2025_夏期.csv", "text/csv; charset=utf-8", []byte("header\n"))
}

func (f *fakeService) History(_ context.Context, limit int) ([]model.ImportHistory, error) {
	f.limit = limit
	return f.history, f.err
}

func newTestRouter(svc *fakeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Server.MaxUploadBytes = 1 << 10
	return NewRouter(NewHandler(svc, cfg))
}

func previewSession() *model.Session {
	return &model.Session{
		ID:     "sess-1",
		Kind:   model.ImportKindStudent,
		Year:   2025,
		Period: model.SeasonSummer,
		Step:   model.StepPreview,
		Preview: &model.Preview{
			Kind: model.ImportKindStudent,
			Rows: []model.ParsedRow{{RowIndex: 1, StudentID: "1", Status: model.RowStatusValid}},
		},
	}
}

func multipartBody(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&fakeService{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestPreviewImport(t *testing.T) {
	svc := &fakeService{session: previewSession()}
	router := newTestRouter(svc)

	body, contentType := multipartBody(t, map[string]string{"year": "2025", "period": "夏期", "classroom_id": "001001"},
		"roster.csv", []byte("a,b\n"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/student/preview", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, model.ImportKindStudent, svc.previewReq.Kind)
	assert.Equal(t, "roster.csv", svc.previewReq.Filename)
	assert.Equal(t, "夏期", svc.previewReq.Meta.Period)
	assert.Equal(t, "001001", svc.previewReq.Meta.ClassroomID)
	assert.Equal(t, []byte("a,b\n"), svc.previewReq.Data)

	var resp model.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sess-1", resp.ID)
	require.NotNil(t, resp.Summary)
	assert.True(t, resp.Summary.CanExecute)
	assert.Len(t, resp.Rows, 1)
}

func TestPreviewImport_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		fields   map[string]string
		filename string
		content  []byte
		want     int
	}{
		{"unknown kind", "/api/v1/imports/parent/preview", map[string]string{"year": "2025", "period": "summer"}, "a.csv", []byte("x"), http.StatusBadRequest},
		{"bad season", "/api/v1/imports/student/preview", map[string]string{"year": "2025", "period": "autumn"}, "a.csv", []byte("x"), http.StatusBadRequest},
		{"missing year", "/api/v1/imports/student/preview", map[string]string{"period": "summer"}, "a.csv", []byte("x"), http.StatusBadRequest},
		{"missing file", "/api/v1/imports/student/preview", map[string]string{"year": "2025", "period": "summer"}, "", nil, http.StatusBadRequest},
		{"too large", "/api/v1/imports/student/preview", map[string]string{"year": "2025", "period": "summer"}, "a.csv", bytes.Repeat([]byte("x"), 2<<10), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&fakeService{session: previewSession()})
			body, contentType := multipartBody(t, tt.fields, tt.filename, tt.content)
			req := httptest.NewRequest(http.MethodPost, tt.path, body)
			req.Header.Set("Content-Type", contentType)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestPreviewImport_SchemaMismatch(t *testing.T) {
	svc := &fakeService{err: errors.SchemaError{Missing: []string{"生徒ID"}}}
	router := newTestRouter(svc)

	body, contentType := multipartBody(t, map[string]string{"year": "2025", "period": "summer"}, "a.csv", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/score/preview", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "生徒ID")
}

func TestSessionRoutes(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		err    error
		want   int
	}{
		{"get", http.MethodGet, "/api/v1/imports/sessions/sess-1", nil, http.StatusOK},
		{"get missing", http.MethodGet, "/api/v1/imports/sessions/nope", errors.ErrSessionNotFound, http.StatusNotFound},
		{"execute", http.MethodPost, "/api/v1/imports/sessions/sess-1/execute", nil, http.StatusAccepted},
		{"execute twice", http.MethodPost, "/api/v1/imports/sessions/sess-1/execute", errors.ErrNotExecutable, http.StatusConflict},
		{"execute queue down", http.MethodPost, "/api/v1/imports/sessions/sess-1/execute", errors.New("redis down"), http.StatusInternalServerError},
		{"discard", http.MethodDelete, "/api/v1/imports/sessions/sess-1", nil, http.StatusNoContent},
		{"discard missing", http.MethodDelete, "/api/v1/imports/sessions/nope", errors.ErrSessionNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{session: previewSession(), err: tt.err}
			router := newTestRouter(svc)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestDownloadTemplate(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/templates/student?year=2025&period=summer&format=csv", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "header\n", w.Body.String())
	assert.Equal(t, imports.TemplateRequest{Kind: model.ImportKindStudent, Year: 2025, Period: "summer", Format: "csv"}, svc.template)
}

func TestDownloadTemplate_InvalidQuery(t *testing.T) {
	router := newTestRouter(&fakeService{})

	for _, path := range []string{
		"/api/v1/templates/student?year=2025",
		"/api/v1/templates/student?year=2025&period=summer&format=pdf",
		"/api/v1/templates/student?year=1999&period=summer",
		"/api/v1/templates/parent?year=2025&period=summer",
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestListHistory(t *testing.T) {
	svc := &fakeService{history: []model.ImportHistory{{ID: 1, SessionID: "s", Status: model.HistoryStatusSucceeded}}}
	router := newTestRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/imports/history?limit=5", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, svc.limit)
	assert.Contains(t, w.Body.String(), `"SUCCEEDED"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/imports/history?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(&fakeService{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/imports/history", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
