// Package report сохраняет итог run как JSON-объект в blob bucket
// (локальная директория, S3, GCS).
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gocloud.dev/blob"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/shaiso/Provisioner/internal/domain"
)

var (
	ErrBucketRequired = errors.New("bucket is required")
	ErrRunRequired    = errors.New("run is required")
)

// BucketWriter — подмножество *blob.Bucket, нужное Writer.
type BucketWriter interface {
	WriteAll(ctx context.Context, key string, p []byte, opts *blob.WriterOptions) error
}

// Writer пишет отчёт о run в bucket по ключу <prefix>runs/<run_id>.json.
//
// Реализует orchestrator.Observer: отчёт пишется один раз, в RunFinished.
type Writer struct {
	bucket BucketWriter
	prefix string
}

// NewWriter создаёт новый Writer.
func NewWriter(bucket BucketWriter, prefix string) (*Writer, error) {
	if bucket == nil {
		return nil, ErrBucketRequired
	}
	return &Writer{
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Open открывает bucket по URL (file:///var/lib/provisioner, s3://bucket?region=...).
// Закрыть bucket должен вызывающий.
func Open(ctx context.Context, url string) (*blob.Bucket, error) {
	b, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", url, err)
	}
	return b, nil
}

// Write сохраняет run вместе с результатами шагов.
func (w *Writer) Write(ctx context.Context, run *domain.Run) error {
	if run == nil {
		return ErrRunRequired
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	opts := &blob.WriterOptions{ContentType: "application/json"}
	if err := w.bucket.WriteAll(ctx, Key(w.prefix, run), data, opts); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Key возвращает ключ объекта для run.
func Key(prefix string, run *domain.Run) string {
	key := "runs/" + run.ID.String() + ".json"
	if prefix == "" {
		return key
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + key
}

func (w *Writer) RunStarted(context.Context, *domain.Run) error { return nil }

func (w *Writer) StepFinished(context.Context, *domain.Run, *domain.StepResult) error { return nil }

// RunFinished пишет отчёт.
func (w *Writer) RunFinished(ctx context.Context, run *domain.Run) error {
	return w.Write(ctx, run)
}
