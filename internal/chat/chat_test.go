package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pxlapp/sqlcopilot/internal/auth"
)

func TestSession_SendsSchemaAndSessionID(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, auth.Credentials{AccessToken: "tok"})
	err := c.Session(context.Background(), "sess-1", "CREATE TABLE users (id int);")
	require.NoError(t, err)

	assert.Equal(t, "/sql/session", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "sess-1", gotBody["sessionId"])
	assert.Equal(t, "CREATE TABLE users (id int);", gotBody["schema"])
}

func TestSession_FailureReportedByServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, auth.Credentials{})
	err := c.Session(context.Background(), "sess-1", "schema")
	assert.Error(t, err)
}

func TestChat_ReturnsAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sess-1", body["sessionId"])
		assert.Equal(t, "how many users?", body["query"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"42"}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, auth.Credentials{})
	answer, err := c.Chat(context.Background(), "sess-1", "how many users?")
	require.NoError(t, err)
	assert.Equal(t, "42", answer)
}

func TestChat_NonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, auth.Credentials{})
	_, err := c.Chat(context.Background(), "sess-1", "?")
	assert.Error(t, err)
}
