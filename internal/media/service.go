package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mediabin/service/internal/search"
	"github.com/mediabin/service/internal/storage"
	"github.com/mediabin/service/internal/tag"
)

// ErrInvalidInput is the parent kind for rejected uploads. The specific
// sentinels below wrap it, so callers can match either the kind or the cause.
var ErrInvalidInput = errors.New("invalid upload")

// ErrEmptyUpload is returned for zero-byte uploads.
var ErrEmptyUpload = fmt.Errorf("%w: empty file", ErrInvalidInput)

// ErrTooLarge is returned when an upload exceeds the configured size limit.
var ErrTooLarge = fmt.Errorf("%w: file too large", ErrInvalidInput)

// ErrUnsupportedType is returned for non-image content types.
var ErrUnsupportedType = fmt.Errorf("%w: content type not allowed", ErrInvalidInput)

// Service contains the business logic for media records. It owns the
// bytes-before-metadata ordering on upload and the bytes-first ordering on
// delete, so a record never points at bytes that were not durably written.
type Service struct {
	repo     *Repository
	backend  storage.Backend
	maxBytes int64
}

// NewService creates a new media Service bound to the configured backend.
func NewService(repo *Repository, backend storage.Backend, maxBytes int64) *Service {
	return &Service{repo: repo, backend: backend, maxBytes: maxBytes}
}

// Upload validates and stores an image: bytes first, then metadata and tag
// associations. A crash between the two leaves an orphaned blob, which is
// tolerated; the reverse inconsistency (record without bytes) cannot occur.
func (s *Service) Upload(ctx context.Context, data []byte, filename, contentType string, tagNames []string, creatorKeyID *int64) (*Record, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w (limit %d bytes)", ErrTooLarge, s.maxBytes)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w (%q)", ErrUnsupportedType, contentType)
	}

	ref, err := s.backend.Store(ctx, data, filename)
	if err != nil {
		return nil, fmt.Errorf("store bytes: %w", err)
	}

	rec, err := s.repo.Create(ctx, &Record{
		Filename:     filename,
		ContentType:  contentType,
		Size:         int64(len(data)),
		Backend:      s.backend.Name(),
		StorageRef:   ref,
		CreatorKeyID: creatorKeyID,
	}, tag.NormalizeAll(tagNames))
	if err != nil {
		// Best-effort cleanup; an orphaned blob is the accepted failure mode.
		if delErr := s.backend.Delete(ctx, ref); delErr != nil {
			log.Warn().Err(delErr).Str("ref", ref).Msg("orphaned blob after failed metadata write")
		}
		return nil, err
	}
	return rec, nil
}

// Get returns a record's metadata.
func (s *Service) Get(ctx context.Context, id int64) (*Record, error) {
	return s.repo.Get(ctx, id)
}

// Retrieve returns a record and its bytes.
func (s *Service) Retrieve(ctx context.Context, id int64) (*Record, []byte, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if rec.Backend != s.backend.Name() {
		return nil, nil, fmt.Errorf("%w: record %d stored in backend %q, service configured with %q",
			storage.ErrTransient, id, rec.Backend, s.backend.Name())
	}

	data, err := s.backend.Retrieve(ctx, rec.StorageRef)
	if errors.Is(err, storage.ErrNotFound) {
		// The record exists but its bytes are gone — the invariant the write
		// ordering exists to prevent. Surface loudly, never as a plain 404.
		log.Error().Int64("record_id", id).Str("ref", rec.StorageRef).Msg("record references missing bytes")
		return nil, nil, fmt.Errorf("%w: bytes missing for record %d", storage.ErrTransient, id)
	}
	if err != nil {
		return nil, nil, err
	}
	return rec, data, nil
}

// Delete removes a record and its bytes, bytes first. If byte removal fails
// for a transient reason the record is kept, so no record is ever left
// pointing at deleted bytes. If record removal fails after the bytes are
// gone, the failure is surfaced without re-attempting byte removal.
func (s *Service) Delete(ctx context.Context, id int64) error {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Backend != s.backend.Name() {
		return fmt.Errorf("%w: record %d stored in backend %q, service configured with %q",
			storage.ErrTransient, id, rec.Backend, s.backend.Name())
	}

	if err := s.backend.Delete(ctx, rec.StorageRef); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("delete bytes: %w", err)
		}
		// Bytes already gone; removing the record restores consistency.
		log.Warn().Int64("record_id", id).Str("ref", rec.StorageRef).Msg("bytes already absent on delete")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		log.Warn().Err(err).Int64("record_id", id).Msg("record removal failed after bytes deleted, storage leaked")
		return fmt.Errorf("%w: record removal failed after bytes deleted", storage.ErrTransient)
	}
	return nil
}

// Search returns the records matching the boolean tag query, ranked by the
// engine: descending relevance, ties by ascending id. Zero matches return an
// empty slice, never an error.
func (s *Service) Search(ctx context.Context, required, optional, forbidden []string) ([]*Record, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]search.Item, len(records))
	byID := make(map[int64]*Record, len(records))
	for i, rec := range records {
		items[i] = search.Item{ID: rec.ID, Tags: rec.Tags}
		byID[rec.ID] = rec
	}

	results := search.Run(search.NewQuery(required, optional, forbidden), items)

	matched := make([]*Record, len(results))
	for i, res := range results {
		matched[i] = byID[res.ID]
	}
	return matched, nil
}
