// internal/lobby/lobby_test.go
package lobby

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestCreateAndGetTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/tables":
			var params CreateTableParams
			require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
			assert.Equal(t, "Friday Night", params.Name)
			assert.Equal(t, 10, params.BigBlind)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(Table{
				TableID:   "abc123",
				Name:      params.Name,
				BigBlind:  params.BigBlind,
				GameWSURL: "ws://localhost:8001/ws/abc123",
			})
		case r.Method == http.MethodGet && r.URL.Path == "/api/tables/abc123":
			json.NewEncoder(w).Encode(Table{TableID: "abc123", Name: "Friday Night"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, testLogger())

	created, err := c.CreateTable(context.Background(), CreateTableParams{Name: "Friday Night", BigBlind: 10})
	require.NoError(t, err)
	assert.Equal(t, "abc123", created.TableID)
	assert.Equal(t, "ws://localhost:8001/ws/abc123", created.GameWSURL)

	got, err := c.GetTable(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Friday Night", got.Name)
}

func TestGetTableNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Table not found"})
	}))
	defer srv.Close()

	c := New(srv.URL, testLogger())
	_, err := c.GetTable(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Table not found", apiErr.Detail)
}

func TestLoginSendsPasswordForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/login", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "bob", r.PostFormValue("username"))
		assert.Equal(t, "hunter22", r.PostFormValue("password"))
		json.NewEncoder(w).Encode(Session{
			AccessToken: "tok-1",
			TokenType:   "bearer",
			User:        User{ID: 7, Username: "bob"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, testLogger())
	session, err := c.Login(context.Background(), "bob", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", session.AccessToken)
	assert.Equal(t, "bob", session.User.Username)
}

func TestAddChipsCarriesBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/add-chips", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 500, body["amount"])
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "new_stack": 1500, "added": 500})
	}))
	defer srv.Close()

	c := New(srv.URL, testLogger())
	total, err := c.AddChips(context.Background(), "tok-1", 500)
	require.NoError(t, err)
	assert.Equal(t, 1500, total)
}

func TestListAndDeleteTables(t *testing.T) {
	deleted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/tables":
			json.NewEncoder(w).Encode([]Table{{TableID: "t1"}, {TableID: "t2"}})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/tables/t1":
			deleted = true
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, testLogger())
	tables, err := c.ListTables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 2)

	require.NoError(t, c.DeleteTable(context.Background(), "t1"))
	assert.True(t, deleted)
}
