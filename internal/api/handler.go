package api

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"

	"juku-import/internal/config"
	"juku-import/internal/imports"
	"juku-import/internal/logger"
	"juku-import/internal/model"
	"juku-import/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// multipartOverhead leaves room for form fields around the file itself.
const multipartOverhead = 1 << 20

type ImportService interface {
	Preview(ctx context.Context, req imports.PreviewRequest) (*model.Session, error)
	Get(ctx context.Context, id string) (*model.Session, error)
	Execute(ctx context.Context, id string) (*model.Session, error)
	Discard(ctx context.Context, id string) error
	Template(ctx context.Context, req imports.TemplateRequest, saver imports.FileSaver) error
	History(ctx context.Context, limit int) ([]model.ImportHistory, error)
}

type Handler struct {
	svc ImportService
	cfg *config.Config
	log zerolog.Logger
}

func NewHandler(svc ImportService, cfg *config.Config) *Handler {
	return &Handler{
		svc: svc,
		cfg: cfg,
		log: logger.Get(),
	}
}

func (h *Handler) DownloadTemplate(c *gin.Context) {
	kind, err := model.ParseImportKind(c.Param("kind"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	var query model.TemplateQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query", "details": validationDetails(err)})
		return
	}

	req := imports.TemplateRequest{
		Kind:   kind,
		Year:   query.Year,
		Period: query.Period,
		Format: query.Format,
	}
	if err := h.svc.Template(c.Request.Context(), req, attachment{c: c}); err != nil {
		h.respondError(c, err)
	}
}

// attachment sends a generated file as the HTTP response.
type attachment struct {
	c *gin.Context
}

func (a attachment) Save(_ context.Context, name string, contentType string, data []byte) error {
	a.c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	a.c.Data(http.StatusOK, contentType, data)
	return nil
}

func (h *Handler) PreviewImport(c *gin.Context) {
	kind, err := model.ParseImportKind(c.Param("kind"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	maxBytes := h.cfg.Server.MaxUploadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	var meta model.ImportMeta
	if err := c.ShouldBind(&meta); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": validationDetails(err)})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	if header.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to open uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	sess, err := h.svc.Preview(c.Request.Context(), imports.PreviewRequest{
		Kind:     kind,
		Meta:     meta,
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.NewSessionResponse(sess))
}

func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSessionResponse(sess))
}

func (h *Handler) ExecuteImport(c *gin.Context) {
	sess, err := h.svc.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, model.NewSessionResponse(sess))
}

func (h *Handler) DiscardSession(c *gin.Context) {
	if err := h.svc.Discard(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	history, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var schemaErr errors.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "missing_columns": schemaErr.Missing})
	case errors.Is(err, errors.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Import session not found"})
	case errors.Is(err, errors.ErrNotExecutable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, errors.ErrUnsupportedFile):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.Is(err, errors.ErrEmptyFile), errors.Is(err, errors.ErrInvalidFileFormat):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, errors.ErrUnknownKind), errors.Is(err, errors.ErrInvalidSeason):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
