// Package storage signs Google Cloud Storage upload URLs for product media.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"

	"github.com/gerai/api/internal/services"
)

const defaultUploadTTL = 15 * time.Minute

// ImageStoreConfig configures the ImageStore.
type ImageStoreConfig struct {
	// Bucket receiving uploaded objects.
	Bucket string
	// PublicBaseURL prefixes public object URLs. Defaults to the canonical
	// storage.googleapis.com form for the bucket.
	PublicBaseURL string
	// UploadTTL bounds how long a signed upload URL stays valid.
	UploadTTL time.Duration
	Signer    Signer
	Clock     func() time.Time
}

// ImageStore issues signed PUT URLs so clients upload image bytes straight to
// the bucket without routing them through the API.
type ImageStore struct {
	bucket        string
	publicBaseURL string
	uploadTTL     time.Duration
	signer        Signer
	now           func() time.Time
}

var _ services.ProductImageStore = (*ImageStore)(nil)

// NewImageStore constructs an ImageStore.
func NewImageStore(cfg ImageStoreConfig) (*ImageStore, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}
	if cfg.Signer == nil {
		return nil, errors.New("storage: signer is required")
	}

	publicBaseURL := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if publicBaseURL == "" {
		publicBaseURL = "https://storage.googleapis.com/" + bucket
	}

	uploadTTL := cfg.UploadTTL
	if uploadTTL <= 0 {
		uploadTTL = defaultUploadTTL
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &ImageStore{
		bucket:        bucket,
		publicBaseURL: publicBaseURL,
		uploadTTL:     uploadTTL,
		signer:        cfg.Signer,
		now:           now,
	}, nil
}

// SignImageUpload returns a signed PUT URL for the object alongside the public
// URL the object will be served from once uploaded.
func (s *ImageStore) SignImageUpload(ctx context.Context, objectName, contentType string) (services.ProductImageUpload, error) {
	objectName = strings.TrimLeft(strings.TrimSpace(objectName), "/")
	if objectName == "" {
		return services.ProductImageUpload{}, errors.New("storage: object name is required")
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return services.ProductImageUpload{}, errors.New("storage: content type is required")
	}

	expiresAt := s.now().UTC().Add(s.uploadTTL)
	url, err := gcs.SignedURL(s.bucket, objectName, &gcs.SignedURLOptions{
		Scheme:         gcs.SigningSchemeV4,
		Method:         "PUT",
		GoogleAccessID: s.signer.Email(),
		SignBytes: func(payload []byte) ([]byte, error) {
			return s.signer.SignBytes(ctx, payload)
		},
		ContentType: contentType,
		Expires:     expiresAt,
	})
	if err != nil {
		return services.ProductImageUpload{}, fmt.Errorf("storage: sign upload url: %w", err)
	}

	return services.ProductImageUpload{
		UploadURL:  url,
		PublicURL:  s.publicBaseURL + "/" + objectName,
		ObjectName: objectName,
		ExpiresAt:  expiresAt,
	}, nil
}
