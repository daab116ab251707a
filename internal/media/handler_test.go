package media

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTagList(t *testing.T) {
	assert.Nil(t, parseTagList(""))
	assert.Equal(t, []string{"cat", "pet"}, parseTagList("cat,pet"))
	assert.Equal(t, []string{"cat", "pet"}, parseTagList(" cat , ,pet,"))
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "", bearerToken(r))

	r.Header.Set("Authorization", "Bearer mb_abc")
	assert.Equal(t, "mb_abc", bearerToken(r))

	r.Header.Set("Authorization", "bearer mb_abc")
	assert.Equal(t, "mb_abc", bearerToken(r))

	r.Header.Set("Authorization", "Basic dXNlcg==")
	assert.Equal(t, "", bearerToken(r))

	r.Header.Set("Authorization", "mb_abc")
	assert.Equal(t, "", bearerToken(r))
}
