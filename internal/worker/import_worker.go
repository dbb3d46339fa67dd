package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/curriculum-backend/internal/cache"
	"github.com/stemsi/curriculum-backend/internal/model"
	"github.com/stemsi/curriculum-backend/internal/service"
)

// importQueue is what the worker needs from the job store.
type importQueue interface {
	Next(ctx context.Context, timeout time.Duration) (*cache.ImportRequest, error)
}

// importer runs one queued import.
type importer interface {
	ProcessImport(ctx context.Context, req *cache.ImportRequest) (*model.ImportJob, error)
}

// ImportWorker consumes curriculum_import_queue and stores the documents.
type ImportWorker struct {
	queue    importQueue
	importer importer
	log      zerolog.Logger
	poll     time.Duration
}

// NewImportWorker creates a new ImportWorker.
func NewImportWorker(jobs *cache.ImportJobStore, svc *service.CurriculumService, log zerolog.Logger) *ImportWorker {
	return newImportWorker(jobs, svc, log)
}

func newImportWorker(queue importQueue, imp importer, log zerolog.Logger) *ImportWorker {
	return &ImportWorker{
		queue:    queue,
		importer: imp,
		log:      log.With().Str("component", "import_worker").Logger(),
		poll:     time.Second,
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ImportWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Finish what is already queued before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx, w.poll)
		}
	}
}

// processNext handles at most one request and reports whether one was found.
func (w *ImportWorker) processNext(ctx context.Context, timeout time.Duration) bool {
	req, err := w.queue.Next(ctx, timeout)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Dequeue error")
		}
		return false
	}
	if req == nil {
		return false
	}

	// The request is off the queue; shutdown must not abort it halfway.
	job, err := w.importer.ProcessImport(context.WithoutCancel(ctx), req)
	if err != nil {
		w.log.Error().Err(err).
			Str("job_id", req.JobID.String()).
			Str("name", req.Name).
			Msg("Import failed")
		return true
	}

	w.log.Info().
		Str("job_id", req.JobID.String()).
		Str("curriculum_id", job.CurriculumID.String()).
		Msg("Import finished")
	return true
}

func (w *ImportWorker) drain(ctx context.Context) {
	drainCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n := 0
	for drainCtx.Err() == nil && w.processNext(drainCtx, 100*time.Millisecond) {
		n++
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("Drained import queue")
	}
}
