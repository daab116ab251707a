// Package media manages stored images and their metadata.
package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediabin/service/internal/tag"
)

// Record is one stored image plus its metadata. Immutable after creation,
// including the tag set; delete is the only lifecycle transition.
type Record struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	Backend      string    `json:"backend"`
	StorageRef   string    `json:"-"`
	Tags         []string  `json:"tags"`
	CreatorKeyID *int64    `json:"creatorKeyId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("media record not found")

// Repository handles media record persistence.
type Repository struct {
	db   *pgxpool.Pool
	tags *tag.Repository
}

// NewRepository creates a new media Repository.
func NewRepository(db *pgxpool.Pool, tags *tag.Repository) *Repository {
	return &Repository{db: db, tags: tags}
}

const recordColumns = `id, filename, content_type, size_bytes, backend, storage_ref, creator_key_id, created_at`

func scanRecord(row pgx.Row) (*Record, error) {
	rec := &Record{}
	err := row.Scan(&rec.ID, &rec.Filename, &rec.ContentType, &rec.Size,
		&rec.Backend, &rec.StorageRef, &rec.CreatorKeyID, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Create inserts a record and its tag associations in one transaction. Tag
// rows are upserted lazily; association positions preserve the upload's tag
// order for relevance ranking.
func (r *Repository) Create(ctx context.Context, rec *Record, tagNames []string) (*Record, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx,
		`INSERT INTO media_records (filename, content_type, size_bytes, backend, storage_ref, creator_key_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+recordColumns,
		rec.Filename, rec.ContentType, rec.Size, rec.Backend, rec.StorageRef, rec.CreatorKeyID,
	)
	created, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}

	tagIDs, err := r.tags.EnsureTagsTx(ctx, tx, tagNames)
	if err != nil {
		return nil, err
	}
	for pos, tagID := range tagIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO media_record_tags (record_id, tag_id, position) VALUES ($1, $2, $3)`,
			created.ID, tagID, pos,
		)
		if err != nil {
			return nil, fmt.Errorf("associate tag: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	created.Tags = tagNames
	return created, nil
}

// Get fetches a record and its tags in association order.
func (r *Repository) Get(ctx context.Context, id int64) (*Record, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM media_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	rec.Tags, err = r.recordTags(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Exists reports whether a record with the given id exists.
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM media_records WHERE id = $1)`, id,
	).Scan(&exists)
	return exists, err
}

// ListAll returns every record with its tags in association order, ascending
// by id. The search engine filters and ranks this set in memory.
func (r *Repository) ListAll(ctx context.Context) ([]*Record, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+recordColumns+` FROM media_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	byID := make(map[int64]*Record)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Tags = []string{}
		records = append(records, rec)
		byID[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tagRows, err := r.db.Query(ctx,
		`SELECT mrt.record_id, t.name
		 FROM media_record_tags mrt
		 JOIN tags t ON t.id = mrt.tag_id
		 ORDER BY mrt.record_id, mrt.position`)
	if err != nil {
		return nil, fmt.Errorf("list associations: %w", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var recordID int64
		var name string
		if err := tagRows.Scan(&recordID, &name); err != nil {
			return nil, fmt.Errorf("scan association: %w", err)
		}
		if rec, ok := byID[recordID]; ok {
			rec.Tags = append(rec.Tags, name)
		}
	}
	return records, tagRows.Err()
}

// Delete removes the record row; associations cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM media_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// recordTags returns the record's tag names ordered by association position.
func (r *Repository) recordTags(ctx context.Context, recordID int64) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT t.name
		 FROM media_record_tags mrt
		 JOIN tags t ON t.id = mrt.tag_id
		 WHERE mrt.record_id = $1
		 ORDER BY mrt.position`,
		recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("get record tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan tag name: %w", err)
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}
