package media

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadValidation(t *testing.T) {
	// Validation runs before any storage or database work, so a service with
	// no backing dependencies exercises it safely.
	svc := NewService(nil, nil, 5)
	ctx := context.Background()

	_, err := svc.Upload(ctx, nil, "a.png", "image/png", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyUpload)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Upload(ctx, []byte("123456"), "a.png", "image/png", nil, nil)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = svc.Upload(ctx, []byte("x"), "a.txt", "text/plain", nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = svc.Upload(ctx, []byte("x"), "a", "application/octet-stream", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
