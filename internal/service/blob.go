package service

import (
	"fmt"
	"io"

	"github.com/odvcencio/pmrhub/internal/gitstore"
)

// BlobStream reads a resolved blob's content straight from the object store.
type BlobStream struct {
	io.ReadCloser
	ID   string
	Size int64
}

// OpenBlob opens the content of a blob resolution. Trees and sub-repository
// boundaries fail with ErrNotABlob; blobs larger than maxBytes (when
// positive) fail with ErrBlobTooLarge before any content is read.
func OpenBlob(res *PathResolution, maxBytes int64) (*BlobStream, error) {
	t, ok := res.Target.(*ObjectTarget)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotABlob, res.Path)
	}
	blob, ok := gitstore.AsBlob(t.Object)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotABlob, res.Path)
	}
	if maxBytes > 0 && blob.Size > maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrBlobTooLarge, res.Path, blob.Size, maxBytes)
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", blob.Hash, err)
	}
	return &BlobStream{ReadCloser: r, ID: blob.Hash.String(), Size: blob.Size}, nil
}

// OpenBlob applies the configured size cap.
func (s *WorkspaceService) OpenBlob(res *PathResolution) (*BlobStream, error) {
	return OpenBlob(res, s.opts.MaxRawBytes)
}
