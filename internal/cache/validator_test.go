package cache

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint([]byte("same bytes"))
	b := Fingerprint([]byte("same bytes"))
	c := Fingerprint([]byte("different bytes"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	// Quoted opaque token, usable directly as a strong ETag.
	assert.Equal(t, byte('"'), a[0])
	assert.Equal(t, byte('"'), a[len(a)-1])
}

func newRequest(inm, ims string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/media/1", nil)
	if inm != "" {
		r.Header.Set("If-None-Match", inm)
	}
	if ims != "" {
		r.Header.Set("If-Modified-Since", ims)
	}
	return r
}

func TestNotModifiedNoPreconditions(t *testing.T) {
	v := &Validator{MaxAge: time.Hour}
	assert.False(t, v.NotModified(newRequest("", ""), `"abc"`, time.Now()))
}

func TestIfNoneMatchVerdicts(t *testing.T) {
	v := &Validator{MaxAge: time.Hour}
	created := time.Now()

	assert.True(t, v.NotModified(newRequest(`"abc"`, ""), `"abc"`, created))
	assert.False(t, v.NotModified(newRequest(`"xyz"`, ""), `"abc"`, created))
	assert.True(t, v.NotModified(newRequest(`"one", "abc"`, ""), `"abc"`, created))
	assert.True(t, v.NotModified(newRequest(`*`, ""), `"abc"`, created))
	assert.True(t, v.NotModified(newRequest(`W/"abc"`, ""), `"abc"`, created))
}

func TestIfNoneMatchPrecedence(t *testing.T) {
	v := &Validator{MaxAge: time.Hour}
	created := time.Now()
	staleTimestamp := created.Add(time.Hour).UTC().Format(http.TimeFormat)

	// The timestamp alone would say not-modified, but a fingerprint mismatch
	// overrides it: full response.
	r := newRequest(`"stale-etag"`, staleTimestamp)
	assert.False(t, v.NotModified(r, `"current-etag"`, created))

	// And a fingerprint match wins regardless of the timestamp.
	r = newRequest(`"current-etag"`, created.Add(-time.Hour).UTC().Format(http.TimeFormat))
	assert.True(t, v.NotModified(r, `"current-etag"`, created))
}

func TestIfModifiedSinceComparison(t *testing.T) {
	v := &Validator{MaxAge: time.Hour}
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	after := created.Add(time.Minute).Format(http.TimeFormat)
	exact := created.Format(http.TimeFormat)
	before := created.Add(-time.Minute).Format(http.TimeFormat)

	assert.True(t, v.NotModified(newRequest("", after), `"a"`, created))
	assert.True(t, v.NotModified(newRequest("", exact), `"a"`, created))
	assert.False(t, v.NotModified(newRequest("", before), `"a"`, created))
}

func TestIfModifiedSinceSecondResolution(t *testing.T) {
	v := &Validator{MaxAge: time.Hour}
	// Creation 500ms into the second still counts as not-newer than the
	// whole-second HTTP date.
	created := time.Date(2026, 3, 1, 12, 0, 0, 500_000_000, time.UTC)
	exact := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Format(http.TimeFormat)

	assert.True(t, v.NotModified(newRequest("", exact), `"a"`, created))
}

func TestIfModifiedSinceMalformed(t *testing.T) {
	v := &Validator{MaxAge: time.Hour}
	assert.False(t, v.NotModified(newRequest("", "not a date"), `"a"`, time.Now()))
}

func TestWriteValidators(t *testing.T) {
	v := &Validator{MaxAge: 24 * time.Hour}
	w := httptest.NewRecorder()

	v.WriteValidators(w, `"abc"`)

	require.Equal(t, `"abc"`, w.Header().Get("ETag"))
	require.Equal(t, "max-age=86400", w.Header().Get("Cache-Control"))
}

func TestWriteContentHeaders(t *testing.T) {
	v := &Validator{MaxAge: time.Hour}
	w := httptest.NewRecorder()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	v.WriteContentHeaders(w, "cat photo.jpg", "image/jpeg", created)

	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "Sun, 01 Mar 2026 12:00:00 GMT", w.Header().Get("Last-Modified"))
	assert.Equal(t, `inline; filename="cat photo.jpg"`, w.Header().Get("Content-Disposition"))
}
