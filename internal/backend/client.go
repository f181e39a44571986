package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"juku-import/internal/config"
	"juku-import/internal/logger"
	"juku-import/internal/model"
	"juku-import/pkg/errors"

	"github.com/rs/zerolog"
)

// Client talks to the backend service that owns import and template generation.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Backend.Timeout,
		},
		log: logger.Get(),
	}
}

type SubmitRequest struct {
	Kind        model.ImportKind
	Filename    string
	Data        []byte
	Year        int
	Period      model.Season
	SubjectID   string
	ClassroomID string
	// IdempotencyKey lets the backend recognise a resubmitted upload.
	IdempotencyKey string
}

// SubmitImport uploads the original file verbatim as multipart form data.
// A decoded result is returned alongside a BackendError when the backend
// answers with a non-2xx status and a JSON body.
func (c *Client) SubmitImport(ctx context.Context, req SubmitRequest, onProgress ProgressFunc) (*model.ImportResult, error) {
	endpoint, err := c.importEndpoint(req.Kind)
	if err != nil {
		return nil, err
	}

	body, contentType, err := buildMultipart(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	total := int64(body.Len())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Backend.BaseURL+endpoint,
		newProgressReader(body, total, onProgress))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.ContentLength = total
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}
	c.authorize(httpReq)

	c.log.Debug().
		Str("kind", string(req.Kind)).
		Str("file", req.Filename).
		Int64("bytes", total).
		Msg("Submitting import to backend")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", errors.ErrBackendUnavailable, err)
	}

	var result model.ImportResult
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr != nil {
			return nil, errors.NewBackendError(resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return &result, errors.NewBackendError(resp.StatusCode, result.Message)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	c.log.Debug().
		Bool("success", result.Success).
		Int("success_count", result.SuccessCount).
		Int("failed_count", result.FailedCount).
		Msg("Backend import response received")

	return &result, nil
}

type Template struct {
	Data        []byte
	ContentType string
	Filename    string
}

type templateEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// FetchTemplate downloads a server-generated template file.
func (c *Client) FetchTemplate(ctx context.Context, kind model.ImportKind, year int, period model.Season, format string) (*Template, error) {
	params := url.Values{}
	params.Add("kind", string(kind))
	params.Add("year", strconv.Itoa(year))
	params.Add("period", string(period))
	if format != "" {
		params.Add("format", format)
	}

	fullURL := c.cfg.Backend.BaseURL + c.cfg.Backend.TemplateEndpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read template: %v", errors.ErrBackendUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewBackendError(resp.StatusCode, strings.TrimSpace(string(data)))
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)

	// Some routes answer with a JSON envelope instead of a file.
	if mediaType == "application/json" {
		var env templateEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("failed to decode template response: %w", err)
		}
		return nil, errors.NewBackendError(resp.StatusCode, env.Message)
	}

	tmpl := &Template{Data: data, ContentType: contentType}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		tmpl.Filename = params["filename"]
	}
	return tmpl, nil
}

func (c *Client) importEndpoint(kind model.ImportKind) (string, error) {
	switch kind {
	case model.ImportKindStudent:
		return c.cfg.Backend.StudentImportEndpoint, nil
	case model.ImportKindScore:
		return c.cfg.Backend.ScoreImportEndpoint, nil
	}
	return "", errors.ErrUnknownKind
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.Backend.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Backend.Token)
	}
}

func buildMultipart(req SubmitRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", req.Filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Data); err != nil {
		return nil, "", err
	}

	fields := []struct{ name, value string }{
		{"year", strconv.Itoa(req.Year)},
		{"period", string(req.Period)},
		{"subject_id", req.SubjectID},
		{"classroom_id", req.ClassroomID},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
