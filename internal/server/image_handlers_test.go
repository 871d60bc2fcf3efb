package server

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"feedhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadImage(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "ada@example.com", "Ada")

	res := ts.doMultipart(t, http.MethodPut, "/post-image", token, nil, pngFile("cat.png"))
	require.Equal(t, http.StatusCreated, res.status, res.body)
	assert.Equal(t, "File stored.", res.body["message"])
	first := res.body["filePath"].(string)
	assert.True(t, ts.store.Has(storedKey(first)))

	res = ts.doMultipart(t, http.MethodPut, "/post-image", token,
		map[string]string{"oldPath": first}, pngFile("dog.png"))
	require.Equal(t, http.StatusCreated, res.status)
	second := res.body["filePath"].(string)

	ts.srv.media.Wait()
	assert.False(t, ts.store.Has(storedKey(first)))
	assert.True(t, ts.store.Has(storedKey(second)))
}

func TestUploadImage_NoFile(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "ada@example.com", "Ada")

	res := ts.doMultipart(t, http.MethodPut, "/post-image", token, map[string]string{"oldPath": "images/keep.png"}, nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "No file provided!", res.body["message"])

	res = ts.doMultipart(t, http.MethodPut, "/post-image", token, nil,
		&imageFile{name: "anim.gif", contentType: "image/gif", data: []byte("GIF89a")})
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "No file provided!", res.body["message"])
	assert.Empty(t, ts.store.Keys())
}

func TestUploadImage_ChecksContent(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "ada@example.com", "Ada")

	res := ts.doMultipart(t, http.MethodPut, "/post-image", token, nil,
		&imageFile{name: "cat.png", contentType: "image/png", data: []byte("<html><script>alert(1)</script></html>")})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Equal(t, "No image provided.", res.body["message"])
	assert.Empty(t, ts.store.Keys())

	// A real image is stored under an extension matching its content.
	res = ts.doMultipart(t, http.MethodPut, "/post-image", token, nil,
		&imageFile{name: "page.html", contentType: "image/png", data: testutil.PNG()})
	require.Equal(t, http.StatusCreated, res.status, res.body)
	filePath := res.body["filePath"].(string)
	assert.True(t, strings.HasSuffix(filePath, "-page.png"), filePath)

	resp, err := ts.srv.App().Test(httptest.NewRequest(http.MethodGet, "/"+filePath, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestCreatePost_RejectsDisguisedUpload(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "ada@example.com", "Ada")

	res := ts.doMultipart(t, http.MethodPost, "/feed/post", token,
		map[string]string{"title": "First post", "content": "Hello there"},
		&imageFile{name: "cat.jpg", contentType: "image/jpeg", data: []byte("plain text pretending")})

	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Empty(t, ts.store.Keys())
}

func TestUploadImage_RequiresAuthentication(t *testing.T) {
	ts := newTestServer(t)

	res := ts.doMultipart(t, http.MethodPut, "/post-image", "", nil, pngFile("cat.png"))

	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Empty(t, ts.store.Keys())
}

func TestServeImage(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.store.Put(t.Context(), "abc-cat.png", bytes.NewReader([]byte("pixels")), 6, "image/png"))

	resp, err := ts.srv.App().Test(httptest.NewRequest(http.MethodGet, "/images/abc-cat.png", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "pixels", string(body))
}

func TestServeImage_NotFound(t *testing.T) {
	ts := newTestServer(t)

	res := ts.doJSON(t, http.MethodGet, "/images/missing.png", "", nil)
	assert.Equal(t, http.StatusNotFound, res.status)

	// Nested paths collapse to their base name.
	res = ts.doJSON(t, http.MethodGet, "/images/nested/missing.png", "", nil)
	assert.Equal(t, http.StatusNotFound, res.status)
}
