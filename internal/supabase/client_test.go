package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memberRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL, AnonKey: "anon", ServiceKey: "service"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestNew_RequiresURLAndKey(t *testing.T) {
	_, err := New(Config{AnonKey: "anon"})
	assert.Error(t, err)

	_, err = New(Config{URL: "http://localhost"})
	assert.Error(t, err)
}

func TestQuery_Execute(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/member", r.URL.Path)
		assert.Equal(t, "service", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "id,name,member_role!inner(role,status)", q.Get("select"))
		assert.Equal(t, "10", q.Get("offset"))
		assert.Equal(t, "5", q.Get("limit"))
		assert.Equal(t, "name.asc", q.Get("order"))

		writeJSON(w, http.StatusOK, `[{"id":"a","name":"Ana"},{"id":"b","name":"Beto"}]`)
	})

	var rows []memberRow
	err := c.From("member").
		Select(`id, name,
			member_role!inner ( role, status )`).
		Range(10, 14).
		Order("name", true).
		Execute(context.Background(), &rows)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Beto", rows[1].Name)
}

func TestQuery_ExecuteAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"code":"PGRST100","message":"failed to parse filter","details":"x","hint":"check syntax"}`)
	})

	var rows []memberRow
	err := c.From("member").Eq("id", "x").Execute(context.Background(), &rows)
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "PGRST100", apiErr.Code)
	assert.Equal(t, "check syntax", apiErr.Hint)
}

func TestQuery_Count(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		w.Header().Set("Content-Range", "*/42")
		w.WriteHeader(http.StatusOK)
	})

	n, err := c.From("member").Select("id").Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestQuery_UpdateRequiresFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	err := c.From("member").Update(context.Background(), map[string]string{"name": "x"}, nil)
	assert.Error(t, err)
}

func TestQuery_Update(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.a", r.URL.Query().Get("id"))
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		body, _ := io.ReadAll(r.Body)
		var got map[string]string
		assert.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "Ana", got["name"])

		writeJSON(w, http.StatusOK, `[{"id":"a","name":"Ana"}]`)
	})

	var rows []memberRow
	err := c.From("member").Eq("id", "a").Update(context.Background(), map[string]string{"name": "Ana"}, &rows)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].ID)
}

func TestRPC(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/rpc/update_member", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"id":"a","name":"Ana"}`)
	})

	var row memberRow
	err := c.RPC(context.Background(), "update_member", map[string]string{"member_id": "a"}, &row)
	require.NoError(t, err)
	assert.Equal(t, "Ana", row.Name)
}

func TestUpdateAuthUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"id":"a","email":"ana@pos.test","user_metadata":{"name":"Ana"}}`)
	})

	user, err := c.UpdateAuthUser(context.Background(), "user-token", UserAttributes{
		Password: "secret1",
		Data:     map[string]any{"name": "Ana"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a", user.ID)
	assert.Equal(t, "Ana", user.UserMetadata["name"])
}

func TestUpdateAuthUser_SamePassword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, `{"code":422,"error_code":"same_password","msg":"New password should be different from the old password."}`)
	})

	_, err := c.UpdateAuthUser(context.Background(), "user-token", UserAttributes{Password: "secret1"})
	require.Error(t, err)

	authErr, ok := AsAuthError(err)
	require.True(t, ok)
	assert.True(t, authErr.IsAPIError())
	assert.Equal(t, "same_password", authErr.Code)
}

func TestUpdateAuthUser_MissingToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.UpdateAuthUser(context.Background(), "", UserAttributes{})
	authErr, ok := AsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
}

func TestParseContentRange(t *testing.T) {
	n, err := parseContentRange("0-9/120")
	require.NoError(t, err)
	assert.Equal(t, 120, n)

	_, err = parseContentRange("0-9/*")
	assert.Error(t, err)

	_, err = parseContentRange("")
	assert.Error(t, err)
}

func TestQuery_RangeOutOfBounds(t *testing.T) {
	tests := []struct {
		name       string
		from, to   int
		wantOffset string
		wantLimit  string
	}{
		{"regular", 20, 29, "20", "10"},
		{"negative start", -4, -3, "0", "0"},
		{"inverted", 5, 4, "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := (&Client{}).From("member").Range(tt.from, tt.to)
			params := q.query()
			assert.Equal(t, tt.wantOffset, params["offset"])
			assert.Equal(t, tt.wantLimit, params["limit"])
		})
	}
}
