// Package intake writes uploaded files to the object store and queues the
// ETL job that ingests them.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/taxi-insights/backend/internal/metrics"
	"github.com/taxi-insights/backend/internal/models"
	"github.com/taxi-insights/backend/internal/objectstore"
	"github.com/taxi-insights/backend/internal/queue"
)

// Reply messages returned to clients.
const (
	UploadedMessage  = "File uploaded and ETL job queued successfully!"
	TriggeredMessage = "ETL job queued successfully!"
)

// DefaultGroupID orders all ETL jobs in a single queue group.
const DefaultGroupID = "etl-job"

// Logger is the subset of the gommon/echo logger the service writes to.
type Logger interface {
	Infoj(j log.JSON)
	Warnj(j log.JSON)
	Errorj(j log.JSON)
}

// Config holds the destinations and per-call limits for the service.
type Config struct {
	Bucket      string
	QueueTarget string
	GroupID     string
	// VerifyTriggerKeys makes Trigger reject keys not present in the store.
	VerifyTriggerKeys bool
	// Zero disables the timeout.
	StoreTimeout time.Duration
	QueueTimeout time.Duration
}

// Service runs the upload and trigger flows. It keeps no per-request state
// and is safe for concurrent use.
type Service struct {
	store  objectstore.Store
	sender queue.Sender
	cfg    Config
	logger Logger

	newToken func() string
}

// NewService creates a service writing to store and notifying sender.
func NewService(store objectstore.Store, sender queue.Sender, cfg Config, logger Logger) *Service {
	if cfg.GroupID == "" {
		cfg.GroupID = DefaultGroupID
	}
	if logger == nil {
		logger = log.New("intake")
	}
	return &Service{
		store:    store,
		sender:   sender,
		cfg:      cfg,
		logger:   logger,
		newToken: uuid.NewString,
	}
}

// Upload stores body under a fresh key derived from filename and queues an
// ETL job for it. size may be -1 when unknown. The queue is only contacted
// after the store has accepted the object.
func (s *Service) Upload(ctx context.Context, filename string, body io.Reader, size int64) (*models.JobReceipt, error) {
	if filename == "" {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrEmptyFilename
	}
	safe := SanitizeFilename(filename)
	if safe == "" {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrUnusableFilename
	}

	job := &models.UploadJob{
		OriginalFilename: filename,
		Key:              s.newToken() + "_" + safe,
		Bucket:           s.cfg.Bucket,
		DeduplicationID:  s.newToken(),
		GroupID:          s.cfg.GroupID,
	}

	if err := s.put(ctx, job, body, size); err != nil {
		metrics.UploadsTotal.WithLabelValues("store_failed").Inc()
		s.logger.Errorj(log.JSON{
			"event":    "store_write_failed",
			"backend":  s.store.Backend(),
			"bucket":   job.Bucket,
			"key":      job.Key,
			"filename": filename,
			"error":    err.Error(),
		})
		return nil, &UpstreamError{Stage: StageStore, Err: err}
	}
	if size >= 0 {
		metrics.UploadBytes.Observe(float64(size))
	}
	s.logger.Infoj(log.JSON{
		"event":             "object_stored",
		"backend":           s.store.Backend(),
		"bucket":            job.Bucket,
		"key":               job.Key,
		"original_filename": job.OriginalFilename,
		"size":              size,
	})

	id, err := s.enqueue(ctx, job)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("queue_failed").Inc()
		metrics.OrphanedObjectsTotal.Inc()
		s.logger.Warnj(log.JSON{
			"event":  "object_orphaned",
			"bucket": job.Bucket,
			"key":    job.Key,
			"error":  err.Error(),
		})
		return nil, &UpstreamError{Stage: StageQueue, Err: err}
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	return &models.JobReceipt{Message: UploadedMessage, Key: job.Key, MessageID: id}, nil
}

// Trigger queues an ETL job for an object that is already stored. Unless
// VerifyTriggerKeys is set the key is trusted as given.
func (s *Service) Trigger(ctx context.Context, key string) (*models.JobReceipt, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrMissingKey
	}

	if s.cfg.VerifyTriggerKeys {
		ok, err := s.exists(ctx, key)
		if err != nil {
			return nil, &UpstreamError{Stage: StageStore, Err: err}
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
	}

	job := &models.UploadJob{
		Key:             key,
		Bucket:          s.cfg.Bucket,
		DeduplicationID: s.newToken(),
		GroupID:         s.cfg.GroupID,
	}
	id, err := s.enqueue(ctx, job)
	if err != nil {
		return nil, &UpstreamError{Stage: StageQueue, Err: err}
	}
	return &models.JobReceipt{Message: TriggeredMessage, Key: key, MessageID: id}, nil
}

func (s *Service) put(ctx context.Context, job *models.UploadJob, body io.Reader, size int64) error {
	ctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	err := s.store.Put(ctx, job.Bucket, job.Key, body, size)
	metrics.StoreWritesTotal.WithLabelValues(s.store.Backend(), metrics.Outcome(err)).Inc()
	return err
}

func (s *Service) exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.store.Exists(ctx, s.cfg.Bucket, key)
}

func (s *Service) enqueue(ctx context.Context, job *models.UploadJob) (string, error) {
	body, err := json.Marshal(job.Message())
	if err != nil {
		return "", fmt.Errorf("encoding job message: %w", err)
	}

	ctx, cancel := withTimeout(ctx, s.cfg.QueueTimeout)
	defer cancel()

	id, err := s.sender.Send(ctx, queue.Message{
		Target:          s.cfg.QueueTarget,
		GroupID:         job.GroupID,
		DeduplicationID: job.DeduplicationID,
		Body:            body,
	})
	metrics.QueueSendsTotal.WithLabelValues(s.sender.Backend(), metrics.Outcome(err)).Inc()
	if err != nil {
		return "", err
	}

	s.logger.Infoj(log.JSON{
		"event":      "job_queued",
		"backend":    s.sender.Backend(),
		"key":        job.Key,
		"message_id": id,
	})
	return id, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
