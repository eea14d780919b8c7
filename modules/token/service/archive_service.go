package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gameplan-api/core/config"
	"gameplan-api/core/constants"
	"gameplan-api/core/logger"
	"gameplan-api/core/tasks"
	tokenentity "gameplan-api/modules/token/entity"
	"gameplan-api/modules/token/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hibiken/asynq"
)

const (
	TypeArchiveValidationAttempts = "analytics:archive"
	archiveTaskID                 = "analytics:archive"
	archiveBatchSize              = 5000
	archiveInterval               = 24 * time.Hour
)

// S3Uploader is the slice of the S3 API the archiver uses.
type S3Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveService exports aged validation attempts to S3 and prunes them.
// It keeps the analytics table bounded while preserving the raw records for
// offline abuse/health reporting.
type ArchiveService struct {
	repo       repository.TokenRepositoryInterface
	uploader   S3Uploader
	taskClient tasks.TaskClient
}

func NewArchiveService(repo repository.TokenRepositoryInterface, uploader S3Uploader, taskClient tasks.TaskClient) *ArchiveService {
	return &ArchiveService{
		repo:       repo,
		uploader:   uploader,
		taskClient: taskClient,
	}
}

// NewS3Uploader builds the S3 client from the archive config.
func NewS3Uploader() S3Uploader {
	cfg := config.Get()
	return s3.NewFromConfig(aws.Config{
		Region: cfg.Archive.S3Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.Archive.AccessKeyID, cfg.Archive.SecretAccessKey, ""),
	})
}

// ScheduleNext enqueues the next archive run under the fixed task ID.
func (s *ArchiveService) ScheduleNext(ctx context.Context, delay time.Duration) error {
	task := asynq.NewTask(TypeArchiveValidationAttempts, nil)
	return s.taskClient.Schedule(ctx, task, archiveTaskID, constants.AnalyticsQueue, delay)
}

// HandleArchiveTask exports attempts older than the retention window in
// batches, pruning each batch after its upload succeeds, then reschedules
// itself.
func (s *ArchiveService) HandleArchiveTask(ctx context.Context, _ *asynq.Task) error {
	cfg := config.Get()
	if cfg.Archive.S3Bucket == "" {
		logger.Info("ArchiveService:Skipped", "reason", "no archive bucket configured")
		return s.ScheduleNext(ctx, archiveInterval)
	}

	cutoff := time.Now().AddDate(0, 0, -cfg.Archive.RetentionDays)
	exported := 0

	for {
		attempts, err := s.repo.GetValidationAttemptsBefore(ctx, cutoff, archiveBatchSize)
		if err != nil {
			return fmt.Errorf("failed to fetch attempts: %w", err)
		}
		if len(attempts) == 0 {
			break
		}

		if err := s.uploadBatch(ctx, cfg.Archive.S3Bucket, attempts); err != nil {
			return err
		}

		// Prune only what was just uploaded.
		batchEnd := attempts[len(attempts)-1].CreatedAt.Add(time.Microsecond)
		if _, err := s.repo.DeleteValidationAttemptsBefore(ctx, batchEnd); err != nil {
			return fmt.Errorf("failed to prune archived attempts: %w", err)
		}

		exported += len(attempts)
		if len(attempts) < archiveBatchSize {
			break
		}
	}

	logger.Info("ArchiveService:Completed", "exported", exported, "cutoff", cutoff)
	return s.ScheduleNext(ctx, archiveInterval)
}

func (s *ArchiveService) uploadBatch(ctx context.Context, bucket string, attempts []tokenentity.ValidationAttempt) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, attempt := range attempts {
		if err := enc.Encode(attempt); err != nil {
			return fmt.Errorf("failed to encode attempt %s: %w", attempt.ID, err)
		}
	}

	key := fmt.Sprintf("validation-attempts/%s/attempts-%d.jsonl",
		attempts[0].CreatedAt.UTC().Format("2006/01/02"), time.Now().UnixNano())

	_, err := s.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload archive batch: %w", err)
	}

	logger.Info("ArchiveService:BatchUploaded", "key", key, "count", len(attempts))
	return nil
}
