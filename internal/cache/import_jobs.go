package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/curriculum-backend/internal/config"
	"github.com/stemsi/curriculum-backend/internal/model"
)

// ErrJobNotFound is returned for unknown or expired import jobs.
var ErrJobNotFound = errors.New("import job not found")

// jobRetention bounds how long job status and payloads stay in Redis.
const jobRetention = 24 * time.Hour

// ImportRequest is the queue message of an asynchronous import. The
// document itself is stored under its own key.
type ImportRequest struct {
	JobID  uuid.UUID `json:"job_id"`
	Name   string    `json:"name"`
	Format string    `json:"format"`
}

// ImportJobStore queues imports and tracks their status.
type ImportJobStore struct {
	rdb *redis.Client
}

func NewImportJobStore(rdb *redis.Client) *ImportJobStore {
	return &ImportJobStore{rdb: rdb}
}

// Enqueue records the job as queued, stores the document and pushes the
// request onto the import queue atomically.
func (s *ImportJobStore) Enqueue(ctx context.Context, req ImportRequest, document []byte) error {
	msg, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode import request: %w", err)
	}

	jobKey := config.CacheKey.ImportJobKey(req.JobID.String())
	payloadKey := config.CacheKey.ImportPayloadKey(req.JobID.String())

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, jobKey, "status", string(model.ImportJobQueued))
		pipe.Expire(ctx, jobKey, jobRetention)
		pipe.Set(ctx, payloadKey, document, jobRetention)
		pipe.RPush(ctx, config.WorkerKey.CurriculumImportQueue, msg)
		return nil
	})
	return err
}

// Payload returns the stored document of a queued job.
func (s *ImportJobStore) Payload(ctx context.Context, jobID uuid.UUID) ([]byte, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ImportPayloadKey(jobID.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	return raw, err
}

// Finish records the outcome of a job and drops its payload.
func (s *ImportJobStore) Finish(ctx context.Context, job *model.ImportJob) error {
	fields := map[string]interface{}{
		"status": string(job.Status),
		"error":  job.Error,
	}
	if job.CurriculumID != nil {
		fields["curriculum_id"] = job.CurriculumID.String()
	}

	jobKey := config.CacheKey.ImportJobKey(job.ID.String())
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, jobKey, fields)
		pipe.Expire(ctx, jobKey, jobRetention)
		pipe.Del(ctx, config.CacheKey.ImportPayloadKey(job.ID.String()))
		return nil
	})
	return err
}

// Status reads the current state of a job.
func (s *ImportJobStore) Status(ctx context.Context, jobID uuid.UUID) (*model.ImportJob, error) {
	fields, err := s.rdb.HGetAll(ctx, config.CacheKey.ImportJobKey(jobID.String())).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrJobNotFound
	}

	job := &model.ImportJob{
		ID:     jobID,
		Status: model.ImportJobStatus(fields["status"]),
		Error:  fields["error"],
	}
	if raw := fields["curriculum_id"]; raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse curriculum id: %w", err)
		}
		job.CurriculumID = &id
	}
	return job, nil
}

// Next blocks up to timeout for the next queued request. It returns
// (nil, nil) when the queue stayed empty.
func (s *ImportJobStore) Next(ctx context.Context, timeout time.Duration) (*ImportRequest, error) {
	result, err := s.rdb.BLPop(ctx, timeout, config.WorkerKey.CurriculumImportQueue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}

	var req ImportRequest
	if err := json.Unmarshal([]byte(result[1]), &req); err != nil {
		return nil, fmt.Errorf("decode import request: %w", err)
	}
	return &req, nil
}
