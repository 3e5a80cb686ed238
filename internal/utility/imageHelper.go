package utility

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"path"
	"regexp"
	"strings"

	"qbank/internal/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxImageBytes is the default upload ceiling for a single image.
const MaxImageBytes = 5 << 20

// Results reported by AssetStore.Delete.
const (
	DeleteOK       = "ok"
	DeleteNotFound = "not found"
)

var (
	ErrImageTooLarge = errors.New("image exceeds the upload size limit")
	ErrNotAnImage    = errors.New("only image uploads are allowed")
)

// Asset is an uploadable file. Open may be called once per upload attempt.
type Asset struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// AssetFromFileHeader wraps a multipart file part.
func AssetFromFileHeader(fh *multipart.FileHeader) Asset {
	return Asset{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// UploadResult describes a hosted asset.
type UploadResult struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
	Format   string `json:"format"`
	Size     int64  `json:"size"`
}

// AssetStore hosts binary assets. It is not transactional with the document store.
type AssetStore interface {
	Upload(ctx context.Context, folder string, asset Asset) (*UploadResult, error)
	Delete(ctx context.Context, url string) (string, error)
}

// DetectContentType falls back to the file extension when the part carries no type.
func (a Asset) DetectContentType() string {
	if a.ContentType != "" && a.ContentType != "application/octet-stream" {
		return a.ContentType
	}
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(a.Filename))); t != "" {
		return t
	}
	return a.ContentType
}

// ValidateImage enforces the size ceiling and the image/* allowlist.
func ValidateImage(asset Asset, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = MaxImageBytes
	}
	if asset.Size > maxBytes {
		return fmt.Errorf("%s: %w", asset.Filename, ErrImageTooLarge)
	}
	if !strings.HasPrefix(asset.DetectContentType(), "image/") {
		return fmt.Errorf("%s: %w", asset.Filename, ErrNotAnImage)
	}
	return nil
}

// NewObjectKey returns the storage key, public id and format for a new upload.
// Keys look like "upload/<folder>/<uuid>.<ext>".
func NewObjectKey(folder, filename string) (key, publicID, format string) {
	ext := strings.ToLower(path.Ext(filename))
	publicID = uuid.NewString()
	if folder = strings.Trim(folder, "/"); folder != "" {
		publicID = folder + "/" + publicID
	}
	return "upload/" + publicID + ext, publicID, strings.TrimPrefix(ext, ".")
}

var versionSegment = regexp.MustCompile(`^v\d+/`)

// PublicIDFromURL extracts the asset id: the path after "upload/" (skipping a
// version segment) without its final extension.
func PublicIDFromURL(rawURL string) (string, bool) {
	rest, ok := pathAfterUpload(rawURL)
	if !ok {
		return "", false
	}
	id := strings.TrimSuffix(rest, path.Ext(rest))
	return id, id != ""
}

// ObjectKeyFromURL maps a hosted URL back to the storage key written by NewObjectKey.
func ObjectKeyFromURL(rawURL string) (string, bool) {
	rest, ok := pathAfterUpload(rawURL)
	if !ok {
		return "", false
	}
	return "upload/" + rest, true
}

func pathAfterUpload(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	p := u.Path
	idx := strings.Index(p, "upload/")
	if idx < 0 {
		return "", false
	}
	rest := versionSegment.ReplaceAllString(p[idx+len("upload/"):], "")
	if rest == "" || strings.HasSuffix(rest, "/") {
		return "", false
	}
	return rest, true
}

// CleanupAssets deletes hosted assets best-effort. Failures are logged and
// never returned.
func CleanupAssets(ctx context.Context, store AssetStore, log *zap.Logger, urls ...string) {
	if store == nil {
		return
	}
	for _, u := range urls {
		if u == "" {
			continue
		}
		result, err := store.Delete(ctx, u)
		if err != nil {
			monitoring.AssetsDeleted.WithLabelValues("error").Inc()
			log.Warn("asset cleanup failed", zap.String("url", u), zap.Error(err))
			continue
		}
		monitoring.AssetsDeleted.WithLabelValues(result).Inc()
		if result != DeleteOK {
			log.Info("asset cleanup", zap.String("url", u), zap.String("result", result))
		}
	}
}
