// Package reliability keeps the planner database healthy and copies run snapshots off the box.
package reliability

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/config"
	"github.com/aristath/capacity-planner/internal/domain"
)

const snapshotContentType = "application/vnd.msgpack"

// uploader is the part of manager.Uploader the archive uses
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// SnapshotArchive uploads optimization run snapshots to an S3 compatible bucket
type SnapshotArchive struct {
	uploader uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewSnapshotArchive builds an archive from the ARCHIVE_S3_* settings.
// Static credentials are used when given, otherwise the default AWS chain applies.
func NewSnapshotArchive(ctx context.Context, cfg config.ArchiveConfig, log zerolog.Logger) (*SnapshotArchive, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newSnapshotArchive(manager.NewUploader(client), cfg.Bucket, cfg.Prefix, log), nil
}

func newSnapshotArchive(u uploader, bucket, prefix string, log zerolog.Logger) *SnapshotArchive {
	return &SnapshotArchive{
		uploader: u,
		bucket:   bucket,
		prefix:   prefix,
		log:      log.With().Str("service", "snapshot_archive").Logger(),
	}
}

// Key returns the object key of a run: <prefix>/period-<id>/<timestamp>-<run id>.msgpack
func (a *SnapshotArchive) Key(run domain.OptimizationRun) string {
	name := fmt.Sprintf("%s-%s.msgpack", run.CalculatedAt.UTC().Format("20060102T150405Z"), run.ID)
	return path.Join(a.prefix, fmt.Sprintf("period-%d", run.PlanningPeriodID), name)
}

// Archive uploads the snapshot and returns its location
func (a *SnapshotArchive) Archive(ctx context.Context, run domain.OptimizationRun) (string, error) {
	if len(run.Snapshot) == 0 {
		return "", fmt.Errorf("run %s has no snapshot", run.ID)
	}

	key := a.Key(run)
	out, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(run.Snapshot),
		ContentType: aws.String(snapshotContentType),
		Metadata: map[string]string{
			"run-id":             run.ID,
			"planning-period-id": strconv.FormatInt(run.PlanningPeriodID, 10),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload run %s to s3: %w", run.ID, err)
	}

	location := out.Location
	if location == "" {
		location = fmt.Sprintf("s3://%s/%s", a.bucket, key)
	}

	a.log.Debug().
		Str("run_id", run.ID).
		Str("location", location).
		Int("size_bytes", len(run.Snapshot)).
		Msg("Run snapshot archived")

	return location, nil
}
