package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	telluricStorage "github.com/airbusgeo/telluric/interface/storage"
	"github.com/airbusgeo/telluric/internal/log"
	"github.com/airbusgeo/telluric/internal/utils"
	"go.uber.org/zap"
)

type gsStrategy struct {
	gsClient *storage.Client
}

var retriableOAuth2Errors = []string{
	"cannot assign requested address",
	"connection refused",
	"connection reset",
	"timeout",
	"broken pipe",
	"client connection force closed",
	"502 Bad Gateway",
}

var retriableSuffixErrors = []string{
	"http2: client connection lost",
	"http2: client connection force closed via ClientConn.Close",
	"EOF", // Unexpected EOF is a temporary error
}

func gsError(err error) error {
	if err == nil {
		return nil
	}
	if utils.Temporary(err) {
		return err
	}

	// oauth2 does not transfer the temporary status of the error
	if strings.Contains(err.Error(), "oauth2: cannot fetch token:") {
		for _, e := range retriableOAuth2Errors {
			if strings.Contains(err.Error(), e) {
				return utils.MakeTemporary(err)
			}
		}
	}

	for _, e := range retriableSuffixErrors {
		if strings.HasSuffix(err.Error(), e) {
			return utils.MakeTemporary(err)
		}
	}
	return err
}

func NewGsStrategy(ctx context.Context) (telluricStorage.Strategy, error) {
	gsClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gs Client : %w", gsError(err))
	}
	return gsStrategy{gsClient: gsClient}, nil
}

// retry calls f until it succeeds, returns a fatal error or fails MaxTries times
func retry(ctx context.Context, op string, opts []telluricStorage.Option, f func() error) error {
	o := telluricStorage.Apply(opts...)
	d := o.Delay
	var err error
	for try := 0; try < o.MaxTries; try++ {
		if try > 0 {
			log.Logger(ctx).Debug("retrying", zap.String("op", op), zap.Int("try", try), zap.Error(err))
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
			d *= 2
		}
		if err = gsError(f()); err == nil || !utils.Temporary(err) {
			return err
		}
	}
	return fmt.Errorf("failed after %d retries: %w", o.MaxTries, err)
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return telluricStorage.ErrFileNotFound
	}
	return err
}

func (s gsStrategy) Download(ctx context.Context, uri string, options ...telluricStorage.Option) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := s.downloadTo(ctx, uri, buf, options...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s gsStrategy) DownloadToFile(ctx context.Context, source, destination string, options ...telluricStorage.Option) error {
	if err := os.MkdirAll(filepath.Dir(destination), os.ModePerm); err != nil {
		return err
	}
	writer, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	if err = s.downloadTo(ctx, source, writer, options...); err != nil {
		writer.Close()
		return fmt.Errorf("failed to download object to destination: %w", err)
	}
	if err = writer.Close(); err != nil {
		return fmt.Errorf("DownloadToFile: failed to close writer: %w", err)
	}
	return nil
}

func (s gsStrategy) downloadTo(ctx context.Context, uri string, w io.Writer, options ...telluricStorage.Option) error {
	bucket, object, err := Parse(uri)
	if err != nil {
		return fmt.Errorf("failed to decode URI %s : %w", uri, err)
	}
	var offset int64
	return retry(ctx, "download", options, func() error {
		r, err := s.gsClient.Bucket(bucket).Object(object).NewRangeReader(ctx, offset, -1)
		if err != nil {
			return fmt.Errorf("newreader: %w", notFound(err))
		}
		defer r.Close()
		n, err := io.Copy(w, r)
		offset += n
		return err
	})
}

func (s gsStrategy) UploadFile(ctx context.Context, uri string, data io.ReadCloser, options ...telluricStorage.Option) error {
	bucket, object, err := Parse(uri)
	if err != nil {
		return fmt.Errorf("failed to decode URI %s : %w", uri, err)
	}
	defer data.Close()
	seeker, seekable := data.(io.Seeker)
	opts := telluricStorage.Apply(options...)
	return retry(ctx, "upload", options, func() error {
		if seekable {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
		}
		w := s.gsClient.Bucket(bucket).Object(object).NewWriter(ctx)
		if opts.StorageClass != "" {
			w.StorageClass = opts.StorageClass
		}
		if opts.ContentType != "" {
			w.ContentType = opts.ContentType
		}
		if _, err := io.Copy(w, data); err != nil {
			w.Close()
			if !seekable {
				// the reader cannot be replayed
				return fmt.Errorf("copy: %w", err)
			}
			return gsError(err)
		}
		return w.Close()
	})
}

func (s gsStrategy) Delete(ctx context.Context, uri string, options ...telluricStorage.Option) error {
	bucket, object, err := Parse(uri)
	if err != nil {
		return fmt.Errorf("failed to decode URI %s : %w", uri, err)
	}
	opts := telluricStorage.Apply(options...)
	err = retry(ctx, "delete", options, func() error {
		return s.gsClient.Bucket(bucket).Object(object).Delete(ctx)
	})
	if errors.Is(err, storage.ErrObjectNotExist) {
		if opts.IgnoreNotFound {
			return nil
		}
		return telluricStorage.ErrFileNotFound
	}
	return err
}

func (s gsStrategy) Exist(ctx context.Context, uri string) (bool, error) {
	_, err := s.GetAttrs(ctx, uri)
	if errors.Is(err, telluricStorage.ErrFileNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s gsStrategy) GetAttrs(ctx context.Context, uri string) (telluricStorage.Attrs, error) {
	bucket, object, err := Parse(uri)
	if err != nil {
		return telluricStorage.Attrs{}, fmt.Errorf("failed to decode URI %s : %w", uri, err)
	}

	attrs, err := s.gsClient.Bucket(bucket).Object(object).Attrs(ctx)
	switch {
	case errors.Is(err, storage.ErrObjectNotExist):
		return telluricStorage.Attrs{}, telluricStorage.ErrFileNotFound
	case errors.Is(err, storage.ErrBucketNotExist):
		return telluricStorage.Attrs{}, fmt.Errorf("bucket not exist: %w", err)
	case err != nil:
		return telluricStorage.Attrs{}, fmt.Errorf("failed to get file attributes from GCS : %w", gsError(err))
	}

	return telluricStorage.Attrs{
		StorageClass: attrs.StorageClass,
		ContentType:  attrs.ContentType,
		Size:         attrs.Size,
	}, nil
}
