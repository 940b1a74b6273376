package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	telluricStorage "github.com/airbusgeo/telluric/interface/storage"
)

type fileSystemStrategy struct{}

func NewFileSystemStrategy(ctx context.Context) (telluricStorage.Strategy, error) {
	return fileSystemStrategy{}, nil
}

func formatError(err error) error {
	var epath *os.PathError
	if errors.As(err, &epath) && os.IsNotExist(epath) {
		return telluricStorage.ErrFileNotFound
	}
	return err
}

func localPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return f, nil
}

func (s fileSystemStrategy) Download(ctx context.Context, uri string, options ...telluricStorage.Option) ([]byte, error) {
	b, err := os.ReadFile(localPath(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", formatError(err))
	}
	return b, nil
}

func (s fileSystemStrategy) DownloadToFile(ctx context.Context, source, destination string, options ...telluricStorage.Option) error {
	sourceFile, err := os.Open(localPath(source))
	if err != nil {
		return fmt.Errorf("failed to open file: %w", formatError(err))
	}
	defer sourceFile.Close()
	return s.UploadFile(ctx, destination, sourceFile, options...)
}

func (s fileSystemStrategy) UploadFile(ctx context.Context, uri string, data io.ReadCloser, options ...telluricStorage.Option) error {
	f, err := createFile(localPath(uri))
	if err != nil {
		return err
	}
	if _, err = io.Copy(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s fileSystemStrategy) Delete(ctx context.Context, uri string, options ...telluricStorage.Option) error {
	opts := telluricStorage.Apply(options...)
	if err := os.Remove(localPath(uri)); err != nil {
		if !opts.IgnoreNotFound || !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove file: %w", formatError(err))
		}
	}
	return nil
}

func (s fileSystemStrategy) Exist(ctx context.Context, uri string) (bool, error) {
	if _, err := os.Stat(localPath(uri)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s fileSystemStrategy) GetAttrs(ctx context.Context, uri string) (telluricStorage.Attrs, error) {
	f, err := os.Open(localPath(uri))
	if err != nil {
		return telluricStorage.Attrs{}, fmt.Errorf("failed to open file: %w", formatError(err))
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return telluricStorage.Attrs{}, err
	}

	// Only the first 512 bytes are used to sniff the content type.
	buffer := make([]byte, 512)
	n, err := f.Read(buffer)
	if err != nil && err != io.EOF {
		return telluricStorage.Attrs{}, err
	}

	return telluricStorage.Attrs{
		ContentType:  http.DetectContentType(buffer[:n]),
		StorageClass: "filesystem",
		Size:         fi.Size(),
	}, nil
}
