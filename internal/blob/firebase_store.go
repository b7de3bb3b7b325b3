// Package blob stores avatar images and hands out durable download URLs.
package blob

import (
	"context"
	"fmt"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// downloadTokenKey is the object metadata key Firebase Storage uses for download tokens.
const downloadTokenKey = "firebaseStorageDownloadTokens"

// FirebaseStore writes objects to the project's Cloud Storage bucket.
type FirebaseStore struct {
	bucket     *storage.BucketHandle
	bucketName string
	newToken   func() string
}

// NewFirebaseStore creates a FirebaseStore for an already resolved bucket handle.
func NewFirebaseStore(bucket *storage.BucketHandle, bucketName string) *FirebaseStore {
	return &FirebaseStore{
		bucket:     bucket,
		bucketName: bucketName,
		newToken:   uuid.NewString,
	}
}

// Put uploads data and returns a token-bearing download URL that stays valid until the
// token is revoked.
func (s *FirebaseStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	token := s.newToken()

	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{downloadTokenKey: token}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object '%s': %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object '%s': %w", key, err)
	}
	return DownloadURL(s.bucketName, key, token), nil
}

// DownloadURL builds the Firebase Storage download URL of key.
func DownloadURL(bucket, key, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(key), url.QueryEscape(token))
}
