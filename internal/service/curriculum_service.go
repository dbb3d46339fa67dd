package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/curriculum-backend/internal/cache"
	"github.com/stemsi/curriculum-backend/internal/catalog"
	"github.com/stemsi/curriculum-backend/internal/loader"
	"github.com/stemsi/curriculum-backend/internal/model"
	"github.com/stemsi/curriculum-backend/internal/repository"
)

// Common curriculum errors.
var (
	ErrInvalidDocument = errors.New("invalid curriculum document")
	ErrNotFound        = errors.New("curriculum not found")
	ErrJobNotFound     = errors.New("import job not found")
	ErrInvalidTerm     = errors.New("invalid term")
	ErrCourseNotFound  = catalog.ErrCourseNotFound
	ErrCycle           = catalog.ErrCycle
)

// CourseRef identifies a course in query results.
type CourseRef struct {
	Key    string                  `json:"key"`
	Name   model.OneOrMany[string] `json:"name"`
	Nested bool                    `json:"nested"`
}

// ValidationReport is the outcome of validating a document without storing it.
type ValidationReport struct {
	Valid   bool            `json:"valid"`
	Summary catalog.Summary `json:"summary"`
}

// importTimeout bounds one queued import.
const importTimeout = 2 * time.Minute

// statusTimeout bounds the final status write of an import.
const statusTimeout = 5 * time.Second

type curriculumStore interface {
	Create(ctx context.Context, rec *model.CurriculumRecord, cat *catalog.Catalog) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.CurriculumRecord, error)
	GetAll(ctx context.Context) ([]model.CurriculumRecord, error)
	FindByModuleCode(ctx context.Context, code string) ([]model.CurriculumRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type documentCache interface {
	Get(ctx context.Context, id uuid.UUID) (*model.CurriculumRecord, bool, error)
	Set(ctx context.Context, rec *model.CurriculumRecord) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

type importJobs interface {
	Enqueue(ctx context.Context, req cache.ImportRequest, document []byte) error
	Payload(ctx context.Context, jobID uuid.UUID) ([]byte, error)
	Finish(ctx context.Context, job *model.ImportJob) error
	Status(ctx context.Context, jobID uuid.UUID) (*model.ImportJob, error)
}

type CurriculumService struct {
	repo  curriculumStore
	cache documentCache
	jobs  importJobs
	log   zerolog.Logger
}

func NewCurriculumService(
	repo *repository.CurriculumRepository,
	docCache *cache.CurriculumCache,
	jobs *cache.ImportJobStore,
	log zerolog.Logger,
) *CurriculumService {
	return newCurriculumService(repo, docCache, jobs, log)
}

func newCurriculumService(repo curriculumStore, docCache documentCache, jobs importJobs, log zerolog.Logger) *CurriculumService {
	return &CurriculumService{
		repo:  repo,
		cache: docCache,
		jobs:  jobs,
		log:   log.With().Str("component", "curriculum_service").Logger(),
	}
}

// parse decodes, validates and indexes a raw document.
func (s *CurriculumService) parse(raw []byte, format string) (*model.Curriculum, *catalog.Catalog, error) {
	f, err := loader.ParseFormat(format)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	cur, err := loader.DecodeBytes(raw, f)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return cur, catalog.Build(cur, s.log), nil
}

// Validate checks a document and summarizes it. Nothing is stored.
func (s *CurriculumService) Validate(raw []byte, format string) (*ValidationReport, error) {
	_, cat, err := s.parse(raw, format)
	if err != nil {
		return nil, err
	}
	return &ValidationReport{Valid: true, Summary: cat.Summary()}, nil
}

// Import validates and stores a document under a new id.
func (s *CurriculumService) Import(ctx context.Context, name string, raw []byte, format string) (*model.CurriculumRecord, error) {
	cur, cat, err := s.parse(raw, format)
	if err != nil {
		return nil, err
	}

	rec := &model.CurriculumRecord{
		ID:          uuid.New(),
		Name:        name,
		Credits:     cat.Credits(),
		CourseCount: len(cur.Courses),
		ModuleCount: len(cur.Modules),
		Document:    cur,
	}
	if err := s.repo.Create(ctx, rec, cat); err != nil {
		return nil, fmt.Errorf("store curriculum: %w", err)
	}

	s.log.Info().
		Str("curriculum_id", rec.ID.String()).
		Str("name", name).
		Int("courses", cat.Len()).
		Int("warnings", len(cat.Warnings())).
		Msg("Curriculum imported")

	return rec, nil
}

// Get returns a stored curriculum with its document, reading through the cache.
func (s *CurriculumService) Get(ctx context.Context, id uuid.UUID) (*model.CurriculumRecord, error) {
	if rec, ok, err := s.cache.Get(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("curriculum_id", id.String()).Msg("Cache read failed")
	} else if ok {
		return rec, nil
	}

	rec, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, rec); err != nil {
		s.log.Warn().Err(err).Str("curriculum_id", id.String()).Msg("Cache write failed")
	}
	return rec, nil
}

// Catalog loads a curriculum and indexes it.
func (s *CurriculumService) Catalog(ctx context.Context, id uuid.UUID) (*catalog.Catalog, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return catalog.Build(rec.Document, s.log), nil
}

func (s *CurriculumService) List(ctx context.Context) ([]model.CurriculumRecord, error) {
	return s.repo.GetAll(ctx)
}

// FindByModule lists the curricula in which some course counts towards code.
func (s *CurriculumService) FindByModule(ctx context.Context, code string) ([]model.CurriculumRecord, error) {
	return s.repo.FindByModuleCode(ctx, code)
}

func (s *CurriculumService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("curriculum_id", id.String()).Msg("Cache invalidation failed")
	}
	return nil
}

// Summary describes a stored curriculum and lists its warnings.
func (s *CurriculumService) Summary(ctx context.Context, id uuid.UUID) (*catalog.Summary, error) {
	cat, err := s.Catalog(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := cat.Summary()
	return &summary, nil
}

// Prerequisites lists the direct, or with transitive all, prerequisites of
// a course.
func (s *CurriculumService) Prerequisites(ctx context.Context, id uuid.UUID, key string, transitive bool) ([]CourseRef, error) {
	cat, err := s.Catalog(ctx, id)
	if err != nil {
		return nil, err
	}

	var entries []*catalog.Entry
	if transitive {
		entries, err = cat.AllPrerequisites(key)
	} else {
		entries, err = cat.Prerequisites(key)
	}
	if err != nil {
		return nil, err
	}
	return refs(entries), nil
}

// Dependents lists the courses that require key directly.
func (s *CurriculumService) Dependents(ctx context.Context, id uuid.UUID, key string) ([]CourseRef, error) {
	cat, err := s.Catalog(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := cat.Dependents(key)
	if err != nil {
		return nil, err
	}
	return refs(entries), nil
}

// CoursesOfferedIn lists the courses with a variant running in term (W or S).
func (s *CurriculumService) CoursesOfferedIn(ctx context.Context, id uuid.UUID, term model.Availability) ([]CourseRef, error) {
	if term != model.AvailabilityWinter && term != model.AvailabilitySummer {
		return nil, fmt.Errorf("%w: term must be W or S", ErrInvalidTerm)
	}
	cat, err := s.Catalog(ctx, id)
	if err != nil {
		return nil, err
	}
	return refs(cat.CoursesOfferedIn(term)), nil
}

// StudyOrder lists all courses with prerequisites first.
func (s *CurriculumService) StudyOrder(ctx context.Context, id uuid.UUID) ([]CourseRef, error) {
	cat, err := s.Catalog(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := cat.StudyOrder()
	if err != nil {
		return nil, err
	}
	return refs(entries), nil
}

// Variants expands one course into its variants.
func (s *CurriculumService) Variants(ctx context.Context, id uuid.UUID, key string) ([]catalog.Variant, error) {
	cat, err := s.Catalog(ctx, id)
	if err != nil {
		return nil, err
	}
	e, ok := cat.Course(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCourseNotFound, key)
	}
	return catalog.Variants(e.Course), nil
}

// CoursesForModule lists the courses of one curriculum that count towards code.
func (s *CurriculumService) CoursesForModule(ctx context.Context, id uuid.UUID, code string) ([]CourseRef, error) {
	cat, err := s.Catalog(ctx, id)
	if err != nil {
		return nil, err
	}
	return refs(cat.CoursesForModule(code)), nil
}

// EnqueueImport hands a document to the import worker. Only the format is
// checked here; the worker validates the document.
func (s *CurriculumService) EnqueueImport(ctx context.Context, name string, raw []byte, format string) (*model.ImportJob, error) {
	f, err := loader.ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	job := &model.ImportJob{ID: uuid.New(), Status: model.ImportJobQueued}
	req := cache.ImportRequest{JobID: job.ID, Name: name, Format: string(f)}
	if err := s.jobs.Enqueue(ctx, req, raw); err != nil {
		return nil, fmt.Errorf("enqueue import: %w", err)
	}

	s.log.Info().Str("job_id", job.ID.String()).Str("name", name).Msg("Import queued")
	return job, nil
}

func (s *CurriculumService) ImportStatus(ctx context.Context, jobID uuid.UUID) (*model.ImportJob, error) {
	job, err := s.jobs.Status(ctx, jobID)
	if errors.Is(err, cache.ErrJobNotFound) {
		return nil, ErrJobNotFound
	}
	return job, err
}

// ProcessImport runs one queued import and records its outcome. The request
// is already off the queue, so the import runs to completion even when ctx
// is cancelled.
func (s *CurriculumService) ProcessImport(ctx context.Context, req *cache.ImportRequest) (*model.ImportJob, error) {
	job := &model.ImportJob{ID: req.JobID}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), importTimeout)
	defer cancel()

	raw, err := s.jobs.Payload(ctx, req.JobID)
	if err == nil {
		var rec *model.CurriculumRecord
		rec, err = s.Import(ctx, req.Name, raw, req.Format)
		if err == nil {
			job.Status = model.ImportJobDone
			job.CurriculumID = &rec.ID
		}
	}
	if err != nil {
		job.Status = model.ImportJobFailed
		job.Error = err.Error()
	}

	finishCtx, cancelFinish := context.WithTimeout(context.WithoutCancel(ctx), statusTimeout)
	defer cancelFinish()
	if ferr := s.jobs.Finish(finishCtx, job); ferr != nil {
		return job, fmt.Errorf("record import status: %w", ferr)
	}
	return job, err
}

func refs(entries []*catalog.Entry) []CourseRef {
	out := make([]CourseRef, 0, len(entries))
	for _, e := range entries {
		out = append(out, CourseRef{Key: e.Key, Name: e.Course.Name, Nested: e.Nested})
	}
	return out
}
