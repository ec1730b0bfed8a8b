package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/shaharia-lab/mailadapter/internal/notification"
)

const defaultContentType = "application/octet-stream"

// LocalFile is an attachment file kept on the local filesystem.
// Its content is read from disk on every Read.
type LocalFile struct {
	Path string
}

var _ notification.AttachmentFile = LocalFile{}

// Read returns the file content.
func (f LocalFile) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	//nolint:gosec // path comes from the notification store
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading attachment %q: %w", f.Path, err)
	}
	return b, nil
}

// NewLocalAttachment describes the file at path as an attachment. When
// contentType is empty it is guessed from the file extension.
func NewLocalAttachment(path, contentType string) (notification.Attachment, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return notification.Attachment{}, fmt.Errorf("resolving attachment path %q: %w", path, err)
	}

	//nolint:gosec // path is supplied by the operator
	f, err := os.Open(abs)
	if err != nil {
		return notification.Attachment{}, fmt.Errorf("opening attachment %q: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return notification.Attachment{}, fmt.Errorf("hashing attachment %q: %w", path, err)
	}

	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(abs))
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	return notification.Attachment{
		ID:          uuid.NewString(),
		FileID:      uuid.NewString(),
		Filename:    filepath.Base(abs),
		ContentType: contentType,
		Size:        size,
		Checksum:    hex.EncodeToString(h.Sum(nil)),
		File:        LocalFile{Path: abs},
		CreatedAt:   time.Now().UTC(),
	}, nil
}
