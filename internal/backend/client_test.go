package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"juku-import/internal/config"
	"juku-import/internal/model"
	"juku-import/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Backend.BaseURL = srv.URL
	cfg.Backend.Token = "test-token"
	cfg.Backend.Timeout = 5 * time.Second
	return NewClient(cfg)
}

func TestSubmitImport_SendsOriginalFile(t *testing.T) {
	t.Parallel()

	original := []byte("\ufeff生徒ID,生徒名\n123456,田中太郎\n")

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/students/import", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "session-1", r.Header.Get("Idempotency-Key"))

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "2025", r.FormValue("year"))
		assert.Equal(t, "summer", r.FormValue("period"))
		assert.Equal(t, "cls-1", r.FormValue("classroom_id"))
		_, hasSubject := r.MultipartForm.Value["subject_id"]
		assert.False(t, hasSubject)

		f, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		got, err := io.ReadAll(f)
		assert.NoError(t, err)
		assert.Equal(t, original, got)
		assert.Equal(t, "roster.csv", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.ImportResult{
			Success:      true,
			SuccessCount: 1,
			CreatedCount: 1,
			Warnings:     []string{"学年が変更されました"},
		})
	})

	var mu sync.Mutex
	var events []model.Progress
	result, err := client.SubmitImport(context.Background(), SubmitRequest{
		Kind:           model.ImportKindStudent,
		Filename:       "roster.csv",
		Data:           original,
		Year:           2025,
		Period:         model.SeasonSummer,
		ClassroomID:    "cls-1",
		IdempotencyKey: "session-1",
	}, func(p model.Progress) {
		mu.Lock()
		events = append(events, p)
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.CreatedCount)
	assert.Equal(t, []string{"学年が変更されました"}, result.Warnings)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, last.Total, last.Loaded)
	assert.Equal(t, 100, last.Percent())
}

func TestSubmitImport_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		want    error
		wantRes bool
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", want: errors.ErrBackendServer},
		{name: "bad request with payload", status: http.StatusBadRequest,
			body: `{"success":false,"message":"年度が不正です","errors":["row 2: bad"]}`, want: errors.ErrBackendBadRequest, wantRes: true},
		{name: "forbidden", status: http.StatusForbidden, body: "", want: errors.ErrBackendFailure},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			result, err := client.SubmitImport(context.Background(), SubmitRequest{
				Kind: model.ImportKindScore, Filename: "s.csv", Data: []byte("x"), Year: 2025, Period: model.SeasonWinter,
			}, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())

			var backendErr errors.BackendError
			require.True(t, errors.As(err, &backendErr))
			assert.Equal(t, tt.status, backendErr.StatusCode)

			if tt.wantRes {
				require.NotNil(t, result)
				assert.Equal(t, []string{"row 2: bad"}, result.Errors)
				assert.Equal(t, "年度が不正です", backendErr.Message)
			} else {
				assert.Nil(t, result)
			}
		})
	}
}

func TestSubmitImport_Unavailable(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Backend.BaseURL = "http://127.0.0.1:1"
	cfg.Backend.Timeout = time.Second
	client := NewClient(cfg)

	_, err := client.SubmitImport(context.Background(), SubmitRequest{
		Kind: model.ImportKindStudent, Filename: "r.csv", Data: []byte("x"), Year: 2025, Period: model.SeasonSpring,
	}, nil)
	assert.True(t, errors.Is(err, errors.ErrBackendUnavailable))
}

func TestSubmitImport_UnknownKind(t *testing.T) {
	t.Parallel()

	client := NewClient(config.Default())
	_, err := client.SubmitImport(context.Background(), SubmitRequest{Kind: "attendance"}, nil)
	assert.True(t, errors.Is(err, errors.ErrUnknownKind))
}

func TestFetchTemplate(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/import-templates", r.URL.Path)
		assert.Equal(t, "score", r.URL.Query().Get("kind"))
		assert.Equal(t, "2025", r.URL.Query().Get("year"))
		assert.Equal(t, "winter", r.URL.Query().Get("period"))
		assert.Equal(t, "xlsx", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="scores.xlsx"`)
		_, _ = w.Write([]byte("PK-binary"))
	})

	tmpl, err := client.FetchTemplate(context.Background(), model.ImportKindScore, 2025, model.SeasonWinter, "xlsx")
	require.NoError(t, err)
	assert.Equal(t, []byte("PK-binary"), tmpl.Data)
	assert.Equal(t, "scores.xlsx", tmpl.Filename)
}

func TestFetchTemplate_JSONEnvelopeIsAnError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"success":false,"message":"テンプレートがありません"}`))
	})

	_, err := client.FetchTemplate(context.Background(), model.ImportKindStudent, 2025, model.SeasonSpring, "")
	var backendErr errors.BackendError
	require.True(t, errors.As(err, &backendErr))
	assert.Equal(t, "テンプレートがありません", backendErr.Message)
}
