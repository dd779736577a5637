package store

import (
	"context"
	"errors"
	"path"
)

// Common errors for object storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// ObjectStorage abstracts the archive target for persisted artifacts.
// Implementations cover S3 and the local filesystem for testing.
type ObjectStorage interface {
	// Upload copies a local file into object storage at objectPath.
	Upload(ctx context.Context, localPath, objectPath string) error

	// Download copies an object to localPath.
	Download(ctx context.Context, objectPath, localPath string) error

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectPath string) error

	// Exists reports whether an object is present.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ListObjects returns all object paths under the given prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// Archive uploads a persisted artifact under the given object prefix,
// keyed by its base name so re-archiving a re-scan overwrites in place.
func Archive(ctx context.Context, storage ObjectStorage, artifactPath, prefix string) (string, error) {
	objectPath := path.Join(prefix, path.Base(artifactPath))
	if err := storage.Upload(ctx, artifactPath, objectPath); err != nil {
		return "", err
	}
	return objectPath, nil
}
