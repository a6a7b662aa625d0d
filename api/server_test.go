package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	coreconfig "notegate/core/config"
	"notegate/notes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cret"

func newTestServer(t *testing.T, secret string) (*Server, *notes.MemoryStore) {
	t.Helper()
	store := notes.NewMemoryStore()
	links := notes.NewLinkBuilder("notegate_bot", "https://notes.example.com")
	cfg := coreconfig.APIConfig{
		Listen:      "127.0.0.1",
		Port:        0,
		AdminSecret: secret,
		CORSOrigins: []string{"*"},
	}
	return NewServer(cfg, store, links), store
}

func createNote(t *testing.T, store *notes.MemoryStore, title string) notes.Note {
	t.Helper()
	note, err := store.Create(context.Background(), notes.Draft{
		Title:   title,
		Content: "<h1>" + title + "</h1>",
		Creator: "test",
	})
	require.NoError(t, err)
	return note
}

func TestGetNoteServesHTML(t *testing.T) {
	srv, store := newTestServer(t, testSecret)
	note := createNote(t, store, "Hello")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/note?id="+note.ID, nil)
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<h1>Hello</h1>", rec.Body.String())
}

func TestGetNoteUnknownAndRevoked(t *testing.T) {
	srv, store := newTestServer(t, testSecret)
	note := createNote(t, store, "Doomed")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/note?id=note_0000000000000000000000000a", nil)
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := store.RevokeAndRegenerate(context.Background(), note.ID)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/note?id="+note.ID, nil)
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestGetNoteMissingID(t *testing.T) {
	srv, _ := newTestServer(t, testSecret)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/note", nil)
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminSecretEnforced(t *testing.T) {
	srv, _ := newTestServer(t, testSecret)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/notes", nil)
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/admin/notes", nil)
	req.Header.Set("X-Admin-Secret", "wrong")
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/admin/notes", nil)
	req.Header.Set("X-Admin-Secret", testSecret)
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Query parameter fallback for clients that cannot set headers.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/admin/notes?admin_secret="+testSecret, nil)
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminDisabledWithoutSecret(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/notes", nil)
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateNoteViaAPI(t *testing.T) {
	srv, store := newTestServer(t, testSecret)

	body, _ := json.Marshal(createNoteRequest{
		Title:       "From API",
		Description: "desc",
		Content:     "<p>hi</p>",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/notes", bytes.NewReader(body))
	req.Header.Set("X-Admin-Secret", testSecret)
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp noteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Active)
	assert.Contains(t, resp.Links.TelegramDeepLink, resp.ID)
	assert.Contains(t, resp.Links.WebAppURL, resp.ID)

	stored, err := store.Get(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", stored.Content)
}

func TestCreateNoteValidation(t *testing.T) {
	srv, _ := newTestServer(t, testSecret)

	body := []byte(`{"title":"","content":""}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/notes", bytes.NewReader(body))
	req.Header.Set("X-Admin-Secret", testSecret)
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error)
}

func TestRevokeViaAPI(t *testing.T) {
	srv, store := newTestServer(t, testSecret)
	note := createNote(t, store, "Rotate me")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/notes/"+note.ID+"/revoke", nil)
	req.Header.Set("X-Admin-Secret", testSecret)
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp revokeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Old.Active)
	assert.True(t, resp.Fresh.Active)
	assert.NotEqual(t, resp.Old.ID, resp.Fresh.ID)
	assert.Equal(t, note.Content, resp.Fresh.Content)

	// A second revoke of the same id must 404: the id is no longer active.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/admin/notes/"+note.ID+"/revoke", nil)
	req.Header.Set("X-Admin-Secret", testSecret)
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	srv, _ := newTestServer(t, testSecret)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-123")
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
}

func TestCORSHeaders(t *testing.T) {
	srv, _ := newTestServer(t, testSecret)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/note", nil)
	req.Header.Set("Origin", "https://webapp.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
