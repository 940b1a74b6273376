// Package uri locates the files read and written by telluric: local paths, file://, gs://, s3:// or http(s)://
package uri

import (
	"context"
	"fmt"
	"io"
	pathPkg "path"
	"regexp"
	"strings"

	"github.com/airbusgeo/telluric/interface/storage"
	"github.com/airbusgeo/telluric/interface/storage/filesystem"
	"github.com/airbusgeo/telluric/interface/storage/gcs"
	"github.com/airbusgeo/telluric/internal/utils"
)

var (
	BadUriErr = fmt.Errorf("badly formatted storage uri")
	uriRegex  = regexp.MustCompile("^(?P<Protocol>.+)://(?P<BucketName>.+?)(/(?P<Path>(?:.*/)*(?P<FileName>.*)))?$")
)

// URI of a file. Protocol and Bucket are empty for a local path.
type URI struct {
	protocol string
	bucket   string
	path     string
	fileName string
}

// Parse parses a storage uri (e.g. gs://bucket-name/path/to/file) or a local path
func Parse(raw string) (URI, error) {
	if !strings.Contains(raw, "://") {
		return URI{path: raw, fileName: pathPkg.Base(raw)}, nil
	}
	groups, err := utils.FindRegexGroups(uriRegex, raw)
	if err != nil {
		return URI{}, BadUriErr
	}
	u := URI{
		protocol: strings.ToLower(groups["Protocol"]),
		bucket:   groups["BucketName"],
		path:     groups["Path"],
		fileName: groups["FileName"],
	}
	if u.protocol == "file" {
		// the bucket is the directory
		u.bucket, u.path = pathPkg.Join(u.bucket, pathPkg.Dir(u.path)), u.fileName
	}
	return u, nil
}

func (u URI) Protocol() string { return u.protocol }
func (u URI) Bucket() string   { return u.bucket }
func (u URI) Path() string     { return u.path }
func (u URI) FileName() string { return u.fileName }

// IsLocal returns true for local paths and file:// uris
func (u URI) IsLocal() bool {
	return u.protocol == "" || u.protocol == "file"
}

func (u URI) String() string {
	if u.protocol == "" {
		return u.path
	}
	return u.protocol + "://" + u.bucket + "/" + u.path
}

// GDALPath returns the path of the file as understood by GDAL.
// gs:// and s3:// are served by the osio handlers registered at startup.
func (u URI) GDALPath() string {
	switch u.protocol {
	case "":
		return u.path
	case "file":
		return pathPkg.Join(u.bucket, u.path)
	case "http", "https":
		return "/vsicurl/" + u.String()
	}
	return u.String()
}

// Strategy returns the storage strategy able to read and write the file
func (u URI) Strategy(ctx context.Context) (storage.Strategy, error) {
	switch u.protocol {
	case "gs":
		return gcs.NewGsStrategy(ctx)
	case "file", "":
		return filesystem.NewFileSystemStrategy(ctx)
	case "s3":
		// s3 rasters are read by GDAL through /vsis3/
		return nil, fmt.Errorf("s3: not supported yet")
	}
	return nil, fmt.Errorf("no storage strategy for protocol '%s'", u.protocol)
}

func (u URI) Download(ctx context.Context, options ...storage.Option) ([]byte, error) {
	s, err := u.Strategy(ctx)
	if err != nil {
		return nil, fmt.Errorf("Download.%w", err)
	}
	return s.Download(ctx, u.String(), options...)
}

// DownloadToFile copies the file to the local path destination
func (u URI) DownloadToFile(ctx context.Context, destination string, options ...storage.Option) error {
	s, err := u.Strategy(ctx)
	if err != nil {
		return fmt.Errorf("DownloadToFile.%w", err)
	}
	return s.DownloadToFile(ctx, u.String(), destination, options...)
}

func (u URI) UploadFile(ctx context.Context, data io.ReadCloser, options ...storage.Option) error {
	s, err := u.Strategy(ctx)
	if err != nil {
		return fmt.Errorf("UploadFile.%w", err)
	}
	return s.UploadFile(ctx, u.String(), data, options...)
}

func (u URI) Delete(ctx context.Context, options ...storage.Option) error {
	s, err := u.Strategy(ctx)
	if err != nil {
		return fmt.Errorf("Delete.%w", err)
	}
	return s.Delete(ctx, u.String(), options...)
}

func (u URI) Exist(ctx context.Context) (bool, error) {
	s, err := u.Strategy(ctx)
	if err != nil {
		return false, fmt.Errorf("Exist.%w", err)
	}
	return s.Exist(ctx, u.String())
}

func (u URI) GetAttrs(ctx context.Context) (storage.Attrs, error) {
	s, err := u.Strategy(ctx)
	if err != nil {
		return storage.Attrs{}, fmt.Errorf("GetAttrs.%w", err)
	}
	return s.GetAttrs(ctx, u.String())
}
