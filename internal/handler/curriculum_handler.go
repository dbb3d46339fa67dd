package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/curriculum-backend/internal/catalog"
	"github.com/stemsi/curriculum-backend/internal/loader"
	"github.com/stemsi/curriculum-backend/internal/middleware"
	"github.com/stemsi/curriculum-backend/internal/model"
	"github.com/stemsi/curriculum-backend/internal/response"
	"github.com/stemsi/curriculum-backend/internal/service"
	"github.com/stemsi/curriculum-backend/internal/validator"
)

// curriculumService is the part of service.CurriculumService the HTTP layer uses.
type curriculumService interface {
	Validate(raw []byte, format string) (*service.ValidationReport, error)
	Import(ctx context.Context, name string, raw []byte, format string) (*model.CurriculumRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*model.CurriculumRecord, error)
	List(ctx context.Context) ([]model.CurriculumRecord, error)
	FindByModule(ctx context.Context, code string) ([]model.CurriculumRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Summary(ctx context.Context, id uuid.UUID) (*catalog.Summary, error)
	Prerequisites(ctx context.Context, id uuid.UUID, key string, transitive bool) ([]service.CourseRef, error)
	StudyOrder(ctx context.Context, id uuid.UUID) ([]service.CourseRef, error)
	Variants(ctx context.Context, id uuid.UUID, key string) ([]catalog.Variant, error)
	Dependents(ctx context.Context, id uuid.UUID, key string) ([]service.CourseRef, error)
	CoursesForModule(ctx context.Context, id uuid.UUID, code string) ([]service.CourseRef, error)
	CoursesOfferedIn(ctx context.Context, id uuid.UUID, term model.Availability) ([]service.CourseRef, error)
	EnqueueImport(ctx context.Context, name string, raw []byte, format string) (*model.ImportJob, error)
	ImportStatus(ctx context.Context, jobID uuid.UUID) (*model.ImportJob, error)
}

type CurriculumHandler struct {
	svc      curriculumService
	maxBytes int64
	log      zerolog.Logger
}

func NewCurriculumHandler(svc curriculumService, maxDocumentBytes int64, log zerolog.Logger) *CurriculumHandler {
	return &CurriculumHandler{
		svc:      svc,
		maxBytes: maxDocumentBytes,
		log:      log.With().Str("component", "curriculum_handler").Logger(),
	}
}

// Validate godoc
// POST /api/v1/curricula/validate?format=
func (h *CurriculumHandler) Validate(c *gin.Context) {
	raw, ok := h.readDocument(c)
	if !ok {
		return
	}

	report, err := h.svc.Validate(raw, documentFormat(c, c.Query("format")))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}

// List godoc
// GET /api/v1/curricula
func (h *CurriculumHandler) List(c *gin.Context) {
	records, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessList(c, http.StatusOK, records)
}

// FindByModule godoc
// GET /api/v1/modules/:code/curricula
func (h *CurriculumHandler) FindByModule(c *gin.Context) {
	records, err := h.svc.FindByModule(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessList(c, http.StatusOK, records)
}

// Get godoc
// GET /api/v1/curricula/:id
func (h *CurriculumHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	rec, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, rec)
}

// Summary godoc
// GET /api/v1/curricula/:id/summary
func (h *CurriculumHandler) Summary(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	summary, err := h.svc.Summary(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// StudyOrder godoc
// GET /api/v1/curricula/:id/study-order
func (h *CurriculumHandler) StudyOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.svc.StudyOrder(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessList(c, http.StatusOK, order)
}

// Prerequisites godoc
// GET /api/v1/curricula/:id/courses/:key/prerequisites?transitive=
func (h *CurriculumHandler) Prerequisites(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	transitive := false
	if v := c.Query("transitive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload,
				map[string]string{"transitive": "must be a boolean"})
			return
		}
		transitive = b
	}

	prereqs, err := h.svc.Prerequisites(c.Request.Context(), id, c.Param("key"), transitive)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessList(c, http.StatusOK, prereqs)
}

// Variants godoc
// GET /api/v1/curricula/:id/courses/:key/variants
func (h *CurriculumHandler) Variants(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	variants, err := h.svc.Variants(c.Request.Context(), id, c.Param("key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessList(c, http.StatusOK, variants)
}

// CoursesForModule godoc
// GET /api/v1/curricula/:id/modules/:code/courses
func (h *CurriculumHandler) CoursesForModule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	courses, err := h.svc.CoursesForModule(c.Request.Context(), id, c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessList(c, http.StatusOK, courses)
}

// Dependents godoc
// GET /api/v1/curricula/:id/courses/:key/dependents
func (h *CurriculumHandler) Dependents(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	deps, err := h.svc.Dependents(c.Request.Context(), id, c.Param("key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessList(c, http.StatusOK, deps)
}

// CoursesOfferedIn godoc
// GET /api/v1/curricula/:id/terms/:term/courses
func (h *CurriculumHandler) CoursesOfferedIn(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	term := model.Availability(strings.ToUpper(c.Param("term")))
	courses, err := h.svc.CoursesOfferedIn(c.Request.Context(), id, term)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessList(c, http.StatusOK, courses)
}

// Import godoc
// POST /api/v1/admin/curricula?name=&format=
func (h *CurriculumHandler) Import(c *gin.Context) {
	var q model.ImportQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}
	raw, ok := h.readDocument(c)
	if !ok {
		return
	}

	rec, err := h.svc.Import(c.Request.Context(), q.Name, raw, documentFormat(c, q.Format))
	if err != nil {
		h.fail(c, err)
		return
	}

	h.logWrite(c).Str("curriculum_id", rec.ID.String()).Msg("Curriculum stored")
	response.Success(c, http.StatusCreated, rec)
}

// EnqueueImport godoc
// POST /api/v1/admin/curricula/import-jobs?name=&format=
func (h *CurriculumHandler) EnqueueImport(c *gin.Context) {
	var q model.ImportQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}
	raw, ok := h.readDocument(c)
	if !ok {
		return
	}

	job, err := h.svc.EnqueueImport(c.Request.Context(), q.Name, raw, documentFormat(c, q.Format))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, job)
}

// ImportStatus godoc
// GET /api/v1/admin/curricula/import-jobs/:job_id
func (h *CurriculumHandler) ImportStatus(c *gin.Context) {
	jobID, ok := parseID(c, "job_id")
	if !ok {
		return
	}

	job, err := h.svc.ImportStatus(c.Request.Context(), jobID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, job)
}

// Delete godoc
// DELETE /api/v1/admin/curricula/:id
func (h *CurriculumHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}

	h.logWrite(c).Str("curriculum_id", id.String()).Msg("Curriculum deleted")
	response.Success(c, http.StatusOK, gin.H{"message": "curriculum deleted"})
}

// readDocument reads the request body up to the configured size limit.
func (h *CurriculumHandler) readDocument(c *gin.Context) ([]byte, bool) {
	body := c.Request.Body
	if h.maxBytes > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxBytes)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrDocumentTooLarge)
			return nil, false
		}
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return nil, false
	}
	return raw, true
}

// fail maps service errors onto the response envelope.
func (h *CurriculumHandler) fail(c *gin.Context, err error) {
	var (
		ve   *validator.ValidationError
		de   *loader.DecodeError
		cerr *catalog.CatalogError
	)

	switch {
	case errors.As(err, &ve):
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, ve.Fields())
	case errors.As(err, &de):
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, de.Fields())
	case errors.Is(err, loader.ErrUnknownFormat):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload,
			map[string]string{"format": "must be one of json yaml yml"})
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrCourseNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCourseNotFound)
	case errors.Is(err, service.ErrJobNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrJobNotFound)
	case errors.Is(err, service.ErrCycle):
		fields := map[string]string{}
		if errors.As(err, &cerr) && cerr.Msg != "" {
			fields["cycle"] = cerr.Msg
		}
		response.FailWithFields(c, http.StatusConflict, response.ErrCycleDetected, fields)
	case errors.Is(err, service.ErrInvalidTerm):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload,
			map[string]string{"term": "must be one of W S"})
	case errors.Is(err, service.ErrInvalidDocument):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload,
			map[string]string{"detail": err.Error()})
	default:
		h.log.Error().Err(err).
			Str("request_id", response.RequestID(c)).
			Str("path", c.FullPath()).
			Msg("Request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func (h *CurriculumHandler) logWrite(c *gin.Context) *zerolog.Event {
	ev := h.log.Info().Str("request_id", response.RequestID(c))
	if claims := middleware.GetClaims(c); claims != nil {
		ev = ev.Str("subject", claims.Subject)
	}
	return ev
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// documentFormat prefers an explicit format and falls back to the
// Content-Type of the body. An empty result means JSON.
func documentFormat(c *gin.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	mt, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil {
		return ""
	}
	switch mt {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return string(loader.FormatYAML)
	}
	return ""
}
