package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrUnauthenticated is returned when no presented proof is valid.
var ErrUnauthenticated = errors.New("no valid credentials")

// ErrForbidden is returned when the caller authenticated but lacks the
// required permission. Distinct from ErrUnauthenticated for auditing.
var ErrForbidden = errors.New("missing required permission")

// ErrNotFound is returned when a referenced key, token, or record does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidInput is returned for malformed key or token requests.
var ErrInvalidInput = errors.New("invalid input")

// RecordFinder answers whether a media record exists. Implemented by the
// media repository; an interface here keeps auth independent of that package.
type RecordFinder interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// ReadProof carries every credential a read request may present. Zero values
// mean "not presented".
type ReadProof struct {
	RawKey    string
	Signature string
	Expires   int64
	Token     string
}

// Service contains the access-control business logic.
type Service struct {
	repo    *Repository
	signer  *Signer
	records RecordFinder
}

// NewService creates a new auth Service.
func NewService(repo *Repository, signer *Signer, records RecordFinder) *Service {
	return &Service{repo: repo, signer: signer, records: records}
}

// CreateKey generates a new API key with the given permissions. The raw key
// is returned exactly once; only its bcrypt hash is persisted.
func (s *Service) CreateKey(ctx context.Context, name string, perms []Permission) (string, *ApiKey, error) {
	if name == "" {
		return "", nil, fmt.Errorf("%w: key name required", ErrInvalidInput)
	}
	if len(perms) == 0 {
		return "", nil, fmt.Errorf("%w: at least one permission required", ErrInvalidInput)
	}
	for _, p := range perms {
		if !ValidPermission(p) {
			return "", nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidInput, p)
		}
	}

	raw, err := GenerateRawKey()
	if err != nil {
		return "", nil, err
	}
	hash, err := HashKey(raw)
	if err != nil {
		return "", nil, err
	}

	key, err := s.repo.CreateKey(ctx, name, DisplayPrefix(raw), hash, perms)
	if err != nil {
		return "", nil, err
	}
	return raw, key, nil
}

// ListKeys returns all API keys.
func (s *Service) ListKeys(ctx context.Context) ([]*ApiKey, error) {
	return s.repo.ListKeys(ctx)
}

// RevokeKey deactivates an API key.
func (s *Service) RevokeKey(ctx context.Context, id int64) error {
	return s.repo.RevokeKey(ctx, id)
}

// AuthenticateKey validates raw key material against every active stored
// hash and returns the matching key. Only hashes are persisted, so there is
// no lookup by raw value — each candidate is checked with bcrypt's
// constant-time comparison. On success the key's last-used time is updated.
func (s *Service) AuthenticateKey(ctx context.Context, raw string) (*ApiKey, error) {
	if raw == "" {
		return nil, ErrUnauthenticated
	}
	keys, err := s.repo.ActiveKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active keys: %w", err)
	}
	for _, k := range keys {
		if KeyMatches(k.KeyHash, raw) {
			if err := s.repo.TouchKey(ctx, k.ID); err != nil {
				log.Warn().Err(err).Int64("key_id", k.ID).Msg("update key last-used time failed")
			}
			return k, nil
		}
	}
	return nil, ErrUnauthenticated
}

// SignURL issues a signature granting read access to the record for the
// requested duration (clamped server-side).
func (s *Service) SignURL(ctx context.Context, recordID int64, expiresIn time.Duration) (string, int64, error) {
	ok, err := s.records.Exists(ctx, recordID)
	if err != nil {
		return "", 0, fmt.Errorf("check record: %w", err)
	}
	if !ok {
		return "", 0, ErrNotFound
	}
	sig, expires := s.signer.Sign(recordID, expiresIn)
	return sig, expires, nil
}

// IssueToken creates a permanent access token bound to the record.
func (s *Service) IssueToken(ctx context.Context, recordID int64, creatorKeyID *int64) (*AccessToken, error) {
	ok, err := s.records.Exists(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("check record: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate token material: %w", err)
	}
	return s.repo.CreateToken(ctx, "mbt_"+hex.EncodeToString(buf), recordID, creatorKeyID)
}

// ListTokens returns all tokens bound to a record.
func (s *Service) ListTokens(ctx context.Context, recordID int64) ([]*AccessToken, error) {
	return s.repo.ListTokensByRecord(ctx, recordID)
}

// RevokeToken deactivates a token. Effective for all subsequent checks.
func (s *Service) RevokeToken(ctx context.Context, id int64) error {
	return s.repo.RevokeToken(ctx, id)
}

// AuthorizeRead grants read access to a record if ANY presented proof is
// valid: an active API key, an unexpired signature, or an active token bound
// to this record. A failed mechanism is skipped, not fatal — the others may
// still succeed. All fail: ErrUnauthenticated.
func (s *Service) AuthorizeRead(ctx context.Context, recordID int64, proof ReadProof) error {
	if proof.RawKey != "" {
		if _, err := s.AuthenticateKey(ctx, proof.RawKey); err == nil {
			return nil
		}
	}

	if proof.Signature != "" && s.signer.Verify(recordID, proof.Expires, proof.Signature) {
		return nil
	}

	if proof.Token != "" {
		t, err := s.repo.GetActiveToken(ctx, proof.Token)
		if err == nil && t.RecordID == recordID {
			return nil
		}
	}

	return ErrUnauthenticated
}

// EnsureBootstrapKey seeds an all-permission admin key from the configured
// raw value when no active admin key exists yet, so key management is
// reachable on first boot. No-op when raw is empty or an admin key is present.
func (s *Service) EnsureBootstrapKey(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	exists, err := s.repo.HasActiveAdminKey(ctx)
	if err != nil {
		return fmt.Errorf("check admin key: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := HashKey(raw)
	if err != nil {
		return err
	}
	if _, err := s.repo.CreateKey(ctx, "bootstrap-admin", DisplayPrefix(raw), hash, AllPermissions); err != nil {
		return err
	}
	log.Info().Msg("seeded bootstrap admin key")
	return nil
}
