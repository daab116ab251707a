package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccessToken is a permanent, explicitly revocable read credential bound to a
// single media record. It never expires on its own.
type AccessToken struct {
	ID           int64     `json:"id"`
	Token        string    `json:"token"`
	RecordID     int64     `json:"recordId"`
	CreatorKeyID *int64    `json:"creatorKeyId,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Repository handles API key and access token persistence.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new auth Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const apiKeyColumns = `id, name, key_prefix, key_hash, permissions, is_active, last_used_at, created_at`

func scanAPIKey(row pgx.Row) (*ApiKey, error) {
	k := &ApiKey{}
	var perms []string
	err := row.Scan(&k.ID, &k.Name, &k.KeyPrefix, &k.KeyHash, &perms, &k.IsActive, &k.LastUsedAt, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	k.Permissions = make([]Permission, len(perms))
	for i, p := range perms {
		k.Permissions[i] = Permission(p)
	}
	return k, nil
}

// CreateKey inserts a new API key row and returns the stored record.
func (r *Repository) CreateKey(ctx context.Context, name, prefix, hash string, perms []Permission) (*ApiKey, error) {
	strs := make([]string, len(perms))
	for i, p := range perms {
		strs[i] = string(p)
	}
	row := r.db.QueryRow(ctx,
		`INSERT INTO api_keys (name, key_prefix, key_hash, permissions)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+apiKeyColumns,
		name, prefix, hash, strs,
	)
	k, err := scanAPIKey(row)
	if err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	return k, nil
}

// ActiveKeys returns every active key. Authentication scans all of them:
// only hashes are stored, so there is nothing to index a raw key by.
func (r *Repository) ActiveKeys(ctx context.Context) ([]*ApiKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE is_active`)
	if err != nil {
		return nil, fmt.Errorf("list active keys: %w", err)
	}
	defer rows.Close()

	var keys []*ApiKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ListKeys returns all keys, active and revoked, newest first.
func (r *Repository) ListKeys(ctx context.Context) ([]*ApiKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []*ApiKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RevokeKey soft-revokes a key. Read-after-write consistent: every
// authentication after this returns sees is_active = false.
func (r *Repository) RevokeKey(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE api_keys SET is_active = FALSE WHERE id = $1 AND is_active`,
		id,
	)
	if err != nil {
		return fmt.Errorf("revoke key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchKey updates the key's last-used time after a successful authentication.
func (r *Repository) TouchKey(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`,
		id,
	)
	return err
}

// HasActiveAdminKey reports whether any active key carries the ADMIN flag.
func (r *Repository) HasActiveAdminKey(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM api_keys WHERE is_active AND $1 = ANY(permissions))`,
		string(PermAdmin),
	).Scan(&exists)
	return exists, err
}

// CreateToken inserts a new access token bound to a record.
func (r *Repository) CreateToken(ctx context.Context, token string, recordID int64, creatorKeyID *int64) (*AccessToken, error) {
	t := &AccessToken{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO access_tokens (token, record_id, creator_key_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, token, record_id, creator_key_id, is_active, created_at`,
		token, recordID, creatorKeyID,
	).Scan(&t.ID, &t.Token, &t.RecordID, &t.CreatorKeyID, &t.IsActive, &t.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("create token: %w", err)
	}
	return t, nil
}

// GetActiveToken returns the active token row with the given token string.
func (r *Repository) GetActiveToken(ctx context.Context, token string) (*AccessToken, error) {
	t := &AccessToken{}
	err := r.db.QueryRow(ctx,
		`SELECT id, token, record_id, creator_key_id, is_active, created_at
		 FROM access_tokens
		 WHERE token = $1 AND is_active`,
		token,
	).Scan(&t.ID, &t.Token, &t.RecordID, &t.CreatorKeyID, &t.IsActive, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	return t, nil
}

// ListTokensByRecord returns all tokens for a record, newest first.
func (r *Repository) ListTokensByRecord(ctx context.Context, recordID int64) ([]*AccessToken, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, token, record_id, creator_key_id, is_active, created_at
		 FROM access_tokens
		 WHERE record_id = $1
		 ORDER BY created_at DESC`,
		recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*AccessToken
	for rows.Next() {
		t := &AccessToken{}
		if err := rows.Scan(&t.ID, &t.Token, &t.RecordID, &t.CreatorKeyID, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// RevokeToken soft-revokes a token. All subsequent validations for this token
// fail; other tokens bound to the same record are untouched.
func (r *Repository) RevokeToken(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE access_tokens SET is_active = FALSE WHERE id = $1 AND is_active`,
		id,
	)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isForeignKeyViolation checks for PostgreSQL foreign_key_violation (code 23503).
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
