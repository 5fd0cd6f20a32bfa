package gcsApi

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/KotFed0t/index_composition_etl/config"
	"github.com/KotFed0t/index_composition_etl/internal/storage"
	"github.com/KotFed0t/index_composition_etl/utils"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"
)

const parquetContentType = "application/vnd.apache.parquet"

type GcsApi struct {
	srv       *gcs.Service
	bucket    string
	rawPrefix string
	fileName  string
}

// New connects to Cloud Storage. Without a credentials file the default
// application credentials are used, unless a custom endpoint is configured, in
// which case requests go out unauthenticated (emulators).
func New(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (*GcsApi, error) {
	switch {
	case cfg.GCS.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.GCS.CredentialsFile))
	case cfg.GCS.Endpoint != "":
		opts = append(opts, option.WithoutAuthentication())
	}
	if cfg.GCS.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.GCS.Endpoint))
	}

	srv, err := gcs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage service: %w", err)
	}

	return &GcsApi{
		srv:       srv,
		bucket:    cfg.GCS.Bucket,
		rawPrefix: cfg.GCS.RawPrefix,
		fileName:  cfg.Storage.RawFileName,
	}, nil
}

// RawKey is the object name of the raw landing file of referenceDate.
func (a *GcsApi) RawKey(referenceDate string) string {
	return path.Join(a.rawPrefix, "data_referencia="+referenceDate, a.fileName)
}

// UploadRaw copies the local file at localPath to the raw landing zone.
func (a *GcsApi) UploadRaw(ctx context.Context, localPath, referenceDate string) (key string, err error) {
	runID := utils.GetRunIDFromCtx(ctx)
	op := "GcsApi.UploadRaw"

	key = a.RawKey(referenceDate)

	slog.Debug("UploadRaw start", slog.String("runID", runID), slog.String("op", op), slog.String("bucket", a.bucket), slog.String("key", key))
	defer func() {
		if err != nil {
			slog.Error("UploadRaw failed", slog.String("runID", runID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Info("raw data uploaded", slog.String("runID", runID), slog.String("op", op), slog.String("uri", "gs://"+a.bucket+"/"+key))
		}
	}()

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", storage.ErrStorageWrite, localPath, err)
	}
	defer f.Close()

	obj := &gcs.Object{
		Name:        key,
		ContentType: parquetContentType,
	}

	_, err = a.srv.Objects.
		Insert(a.bucket, obj).
		Name(key).
		Media(f, googleapi.ContentType(parquetContentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("%w: upload gs://%s/%s: %w", storage.ErrStorageWrite, a.bucket, key, err)
	}

	return key, nil
}
