package filestore

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/admin"
)

var _ admin.Uploader = (*Uploads)(nil)

// Uploads stores files in a public directory served under baseURL.
type Uploads struct {
	dir     string
	baseURL string
	maxSize int64
}

// NewUploads creates dir if needed. Files larger than maxSize bytes are
// rejected; zero means no limit.
func NewUploads(dir, baseURL string, maxSize int64) (*Uploads, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create upload dir")
	}
	return &Uploads{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		maxSize: maxSize,
	}, nil
}

// Dir returns the directory files are written to.
func (u *Uploads) Dir() string { return u.dir }

// ErrTooLarge is returned for uploads above the size limit.
var ErrTooLarge = errors.New("upload too large")

// Put writes r to name and returns the public URL of the file.
func (u *Uploads) Put(_ context.Context, name string, r io.Reader) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", errors.Errorf("invalid upload name %q", name)
	}
	if u.maxSize > 0 {
		r = io.LimitReader(r, u.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "read upload")
	}
	if u.maxSize > 0 && int64(len(data)) > u.maxSize {
		return "", ErrTooLarge
	}
	if err := writeAtomic(filepath.Join(u.dir, name), data); err != nil {
		return "", err
	}
	return u.baseURL + "/" + url.PathEscape(name), nil
}
