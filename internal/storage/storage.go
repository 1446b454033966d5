package storage

import (
	"context"
	"io"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// AudioArchive keeps uploaded voice clips for later review.
type AudioArchive interface {
	// Put stores the clip under objectKey.
	Put(ctx context.Context, objectKey string, body io.Reader, size int64, contentType string) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for the stored clip.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes a clip.
	DeleteObject(ctx context.Context, objectKey string) error
}
