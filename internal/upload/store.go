// Package upload validates profile pictures and stores them under generated
// names, either on local disk or in an S3-compatible bucket.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrInvalidFile rejects uploads that are not a supported image.
	ErrInvalidFile = errors.New("only image files are allowed")
	// ErrTooLarge rejects uploads above the configured size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrBadName rejects stored names that are not a bare file name.
	ErrBadName = errors.New("invalid file name")
)

// Store persists an uploaded attachment and hands back the name it was
// stored under. That name is what the users table references.
type Store interface {
	Save(ctx context.Context, fh *multipart.FileHeader) (string, error)
	Remove(ctx context.Context, name string) error
}

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// inspect checks size, extension and sniffed content of fh. It returns the
// lower-cased extension and the detected content type.
func inspect(fh *multipart.FileHeader, maxBytes int64) (string, string, error) {
	if fh.Size > maxBytes {
		return "", "", ErrTooLarge
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		return "", "", ErrInvalidFile
	}

	f, err := fh.Open()
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", fmt.Errorf("read upload: %w", err)
	}

	contentType := http.DetectContentType(head[:n])
	if !strings.HasPrefix(contentType, "image/") {
		return "", "", ErrInvalidFile
	}
	return ext, contentType, nil
}

func newName(ext string) string {
	return uuid.NewString() + ext
}

// checkName rejects anything that is not a bare file name.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return ErrBadName
	}
	return nil
}
