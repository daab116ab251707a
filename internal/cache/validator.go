// Package cache computes content fingerprints and evaluates HTTP
// conditional-GET preconditions for media responses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Fingerprint returns the strong validator for the exact byte content: a
// quoted hex SHA-256. Identical bytes always fingerprint identically,
// independent of filename or tags.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// Validator decides between full (200) and not-modified (304) responses and
// writes the cache headers both carry.
type Validator struct {
	// MaxAge is the cache lifetime advertised in Cache-Control.
	MaxAge time.Duration
}

// NotModified evaluates the request's preconditions against the record's
// fingerprint and creation time.
//
// If-None-Match takes precedence: when present, its verdict is final and
// If-Modified-Since is ignored — a fingerprint mismatch forces a full response
// even if the timestamp alone would say not-modified. Absent both headers the
// answer is always a full response.
func (v *Validator) NotModified(r *http.Request, fingerprint string, createdAt time.Time) bool {
	if inm := r.Header.Get("If-None-Match"); inm != "" {
		return etagMatches(inm, fingerprint)
	}

	ims := r.Header.Get("If-Modified-Since")
	if ims == "" {
		return false
	}
	since, err := http.ParseTime(ims)
	if err != nil {
		return false
	}
	// HTTP dates carry second resolution; truncate before comparing so a
	// record created within the same second still counts as not-newer.
	return !createdAt.Truncate(time.Second).After(since)
}

// WriteValidators sets the headers every media response carries, 200 and 304
// alike: the fingerprint and the cache lifetime. Clients keep revalidating
// from a 304 without re-fetching bytes.
func (v *Validator) WriteValidators(w http.ResponseWriter, fingerprint string) {
	w.Header().Set("ETag", fingerprint)
	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int(v.MaxAge.Seconds())))
}

// WriteContentHeaders sets the extra headers of a full response: last-modified
// timestamp and the disposition hint naming the original file.
func (v *Validator) WriteContentHeaders(w http.ResponseWriter, filename, contentType string, createdAt time.Time) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Last-Modified", createdAt.UTC().Format(http.TimeFormat))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
}

// etagMatches implements the If-None-Match comparison: a comma-separated list
// of entity tags, "*" matching anything. Weak prefixes compare by opaque value,
// which is safe here because fingerprints are always strong.
func etagMatches(header, fingerprint string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == fingerprint {
			return true
		}
	}
	return false
}
