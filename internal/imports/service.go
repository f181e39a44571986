package imports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"juku-import/internal/backend"
	"juku-import/internal/logger"
	"juku-import/internal/model"
	"juku-import/internal/report"
	"juku-import/internal/schema"
	"juku-import/internal/session"
	"juku-import/internal/sheet"
	"juku-import/internal/storage"
	"juku-import/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	stagingPrefix = "imports"

	// recordTimeout bounds writing an import outcome after the caller's
	// context is gone.
	recordTimeout = 10 * time.Second
)

// Backend is the part of the backend client the service depends on.
type Backend interface {
	SubmitImport(ctx context.Context, req backend.SubmitRequest, onProgress backend.ProgressFunc) (*model.ImportResult, error)
	FetchTemplate(ctx context.Context, kind model.ImportKind, year int, period model.Season, format string) (*backend.Template, error)
}

type JobQueue interface {
	EnqueueSubmitJob(ctx context.Context, job model.SubmitJob) error
}

type HistoryRepository interface {
	InsertHistory(ctx context.Context, h *model.ImportHistory) error
	ListHistory(ctx context.Context, limit int) ([]model.ImportHistory, error)
}

// FileSaver receives a generated template.
type FileSaver interface {
	Save(ctx context.Context, name string, contentType string, data []byte) error
}

type Options struct {
	Limits       report.Limits
	PreferServer bool
}

type Service struct {
	sessions session.Store
	storage  storage.Storage
	backend  Backend
	queue    JobQueue
	history  HistoryRepository
	opts     Options
	log      zerolog.Logger
}

// NewService wires the import workflow. history may be nil, in which case
// executed imports are not recorded.
func NewService(
	sessions session.Store,
	store storage.Storage,
	client Backend,
	queue JobQueue,
	history HistoryRepository,
	opts Options,
) *Service {
	return &Service{
		sessions: sessions,
		storage:  store,
		backend:  client,
		queue:    queue,
		history:  history,
		opts:     opts,
		log:      logger.Get(),
	}
}

type PreviewRequest struct {
	Kind     model.ImportKind
	Meta     model.ImportMeta
	Filename string
	Data     []byte
}

// Preview parses and validates an upload and opens a new session for it.
// Every upload gets a fresh session, so a newer file always wins.
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (*model.Session, error) {
	sch, err := schema.ForKind(req.Kind)
	if err != nil {
		return nil, err
	}
	season, err := model.ParseSeason(req.Meta.Period)
	if err != nil {
		return nil, err
	}
	if len(req.Data) == 0 {
		return nil, errors.ErrEmptyFile
	}

	pipeline, err := sheet.NewPipeline(sch, req.Filename)
	if err != nil {
		return nil, err
	}
	preview, err := pipeline.Run(ctx, req.Data)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &model.Session{
		ID:          uuid.NewString(),
		Kind:        req.Kind,
		Year:        req.Meta.Year,
		Period:      season,
		SubjectID:   req.Meta.SubjectID,
		ClassroomID: req.Meta.ClassroomID,
		Filename:    req.Filename,
		Step:        model.StepPreview,
		Preview:     preview,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	sess.StorageKey = stagingKey(sess.ID, req.Filename)

	if err := s.storage.Upload(ctx, sess.StorageKey, bytes.NewReader(req.Data), "application/octet-stream"); err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		s.removeStaged(ctx, sess.StorageKey)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	summary := preview.Summary()
	s.log.Info().
		Str("session_id", sess.ID).
		Str("kind", string(sess.Kind)).
		Str("file", sess.Filename).
		Int("rows", summary.Total).
		Int("errors", summary.Errors).
		Int("warnings", summary.Warnings).
		Msg("Import preview created")

	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Session, error) {
	return s.sessions.Get(ctx, id)
}

// Execute confirms a previewed import and queues it for upload. Only the
// first call on an executable preview succeeds.
func (s *Service) Execute(ctx context.Context, id string) (*model.Session, error) {
	sess, err := s.sessions.Update(ctx, id, func(sess *model.Session) error {
		if sess.Step != model.StepPreview || sess.Preview == nil || !sess.Preview.CanExecute() {
			return errors.ErrNotExecutable
		}
		sess.Step = model.StepUploading
		sess.Progress = model.Progress{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.queue.EnqueueSubmitJob(ctx, model.SubmitJob{SessionID: id}); err != nil {
		// Hand the session back so the user can retry.
		if _, revertErr := s.sessions.Update(ctx, id, func(sess *model.Session) error {
			if sess.Step == model.StepUploading {
				sess.Step = model.StepPreview
			}
			return nil
		}); revertErr != nil {
			s.log.Error().Err(revertErr).Str("session_id", id).Msg("Failed to revert session after enqueue failure")
		}
		return nil, fmt.Errorf("failed to enqueue import: %w", err)
	}

	s.log.Info().Str("session_id", id).Str("kind", string(sess.Kind)).Msg("Import queued")
	return sess, nil
}

// Process uploads a confirmed session to the backend and records the
// outcome on the session. The returned error is only for failures to record
// that outcome; backend failures end up in the session report.
//
// Cancelling ctx aborts the upload, but the outcome is still recorded on a
// detached context so the session never stays in the uploading step.
func (s *Service) Process(ctx context.Context, id string) error {
	log := s.log.With().Str("session_id", id).Logger()

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	sess, err := s.sessions.Get(recordCtx, id)
	if errors.Is(err, errors.ErrSessionNotFound) {
		log.Warn().Msg("Session gone before upload, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	if sess.Step != model.StepUploading {
		log.Warn().Str("step", string(sess.Step)).Msg("Session not awaiting upload, skipping")
		return nil
	}

	log = log.With().Str("kind", string(sess.Kind)).Str("file", sess.Filename).Logger()

	result, submitErr := s.submit(ctx, recordCtx, sess)
	if submitErr != nil && ctx.Err() != nil {
		submitErr = fmt.Errorf("%w: %v", errors.ErrInterrupted, submitErr)
	}
	rep := report.Build(result, submitErr, s.opts.Limits)
	if submitErr != nil {
		log.Error().Err(submitErr).Msg("Import failed")
	} else {
		log.Info().Bool("success", rep.Success).Int("success_count", result.SuccessCount).
			Int("failed_count", result.FailedCount).Msg("Import finished")
	}

	_, err = s.sessions.Update(recordCtx, id, func(sess *model.Session) error {
		sess.Report = rep
		if rep.Success {
			sess.Step = model.StepComplete
			sess.Preview = nil
		} else {
			sess.Step = model.StepFailed
		}
		return nil
	})
	switch {
	case errors.Is(err, errors.ErrSessionNotFound):
		// Discarded while uploading; nobody is waiting for the outcome.
		log.Info().Msg("Session discarded during upload")
		s.removeStaged(recordCtx, sess.StorageKey)
	case err != nil:
		return fmt.Errorf("failed to record import outcome: %w", err)
	case rep.Success:
		s.removeStaged(recordCtx, sess.StorageKey)
	}

	s.recordHistory(recordCtx, sess, result, submitErr, rep)
	return nil
}

// submit sends the staged bytes with ctx; progress is persisted with
// recordCtx so it keeps working while the upload is being torn down.
func (s *Service) submit(ctx, recordCtx context.Context, sess *model.Session) (*model.ImportResult, error) {
	exists, err := s.storage.Exists(ctx, sess.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check staged file: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", errors.ErrStagedFileMissing, sess.StorageKey)
	}

	reader, err := s.storage.Download(ctx, sess.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load staged file: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged file: %w", err)
	}

	req := backend.SubmitRequest{
		Kind:           sess.Kind,
		Filename:       sess.Filename,
		Data:           data,
		Year:           sess.Year,
		Period:         sess.Period,
		SubjectID:      sess.SubjectID,
		ClassroomID:    sess.ClassroomID,
		IdempotencyKey: sess.ID,
	}

	return s.backend.SubmitImport(ctx, req, func(p model.Progress) {
		if _, err := s.sessions.Update(recordCtx, sess.ID, func(sess *model.Session) error {
			sess.Progress = p
			return nil
		}); err != nil {
			s.log.Debug().Err(err).Str("session_id", sess.ID).Msg("Failed to persist progress")
		}
	})
}

func (s *Service) recordHistory(ctx context.Context, sess *model.Session, result *model.ImportResult, submitErr error, rep *model.Report) {
	if s.history == nil {
		return
	}

	h := &model.ImportHistory{
		SessionID: sess.ID,
		Kind:      sess.Kind,
		Year:      sess.Year,
		Period:    sess.Period,
		Filename:  sess.Filename,
		Status:    model.HistoryStatusFailed,
	}
	if rep.Success {
		h.Status = model.HistoryStatusSucceeded
	}
	if result != nil {
		h.SuccessCount = result.SuccessCount
		h.FailedCount = result.FailedCount
	}
	if submitErr != nil {
		msg := submitErr.Error()
		h.ErrorMessage = &msg
	} else if !rep.Success {
		msg := rep.Message
		h.ErrorMessage = &msg
	}

	if err := s.history.InsertHistory(ctx, h); err != nil {
		s.log.Error().Err(err).Str("session_id", sess.ID).Msg("Failed to record import history")
	}
}

// Discard drops a session and its staged file. An upload that already read
// the file is left to finish; its outcome is thrown away.
func (s *Service) Discard(ctx context.Context, id string) error {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.removeStaged(ctx, sess.StorageKey)

	s.log.Info().Str("session_id", id).Str("step", string(sess.Step)).Msg("Import session discarded")
	return nil
}

type TemplateRequest struct {
	Kind   model.ImportKind
	Year   int
	Period string
	Format string
}

// Template writes a blank import template to saver. The server generated
// template is preferred when configured; any failure to obtain it falls
// back to the local template.
func (s *Service) Template(ctx context.Context, req TemplateRequest, saver FileSaver) error {
	sch, err := schema.ForKind(req.Kind)
	if err != nil {
		return err
	}
	season, err := model.ParseSeason(req.Period)
	if err != nil {
		return err
	}
	format := req.Format
	switch format {
	case "":
		format = sheet.FormatCSV
	case sheet.FormatCSV, sheet.FormatXLSX:
	default:
		return fmt.Errorf("%w: template format %q", errors.ErrUnsupportedFile, format)
	}
	filename := sheet.TemplateFilename(sch, req.Year, season, format)

	if s.opts.PreferServer {
		tmpl, err := s.backend.FetchTemplate(ctx, req.Kind, req.Year, season, format)
		if err == nil {
			name, contentType := filename, tmpl.ContentType
			if tmpl.Filename != "" {
				name = tmpl.Filename
			}
			if contentType == "" {
				contentType = sheet.ContentType(format)
			}
			return saver.Save(ctx, name, contentType, tmpl.Data)
		}
		s.log.Warn().Err(err).Str("kind", string(req.Kind)).Msg("Server template unavailable, generating locally")
	}

	data, err := sheet.BuildTemplate(sch, req.Year, season, format)
	if err != nil {
		return fmt.Errorf("failed to build template: %w", err)
	}
	return saver.Save(ctx, filename, sheet.ContentType(format), data)
}

func (s *Service) History(ctx context.Context, limit int) ([]model.ImportHistory, error) {
	if s.history == nil {
		return []model.ImportHistory{}, nil
	}
	return s.history.ListHistory(ctx, limit)
}

func (s *Service) removeStaged(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to delete staged file")
	}
}

// stagingKey keeps only the base name so client supplied paths cannot
// escape the session prefix.
func stagingKey(id, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return path.Join(stagingPrefix, id, name)
}
