package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a-delannoy/yaani/internal/config"
	"github.com/a-delannoy/yaani/internal/query"
)

func fileRegistry(t *testing.T, name, content string) *Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := NewRegistry(query.New(), map[string]*config.Source{
		"f": {Name: "f", Kind: config.SourceFile, File: &config.FileSource{Path: path}},
	})
	require.NoError(t, err)
	return r
}

func TestFileFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("json bare array", func(t *testing.T) {
		r := fileRegistry(t, "devices.json", `[{"id":1,"name":"r1"},{"id":2,"name":"r2"}]`)
		records, err := r.Fetch(ctx, &config.Extract{Source: "f", Format: "json"})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, Record{"id": 1, "name": "r1"}, records[0])
	})

	t.Run("yaml document with extraction expression", func(t *testing.T) {
		r := fileRegistry(t, "addrs.yml", `
addresses:
  - device_id: 5
    ip: 10.0.0.1
  - device_id: 6
    ip: 10.0.0.2
`)
		records, err := r.Fetch(ctx, &config.Extract{Source: "f", Format: "yaml", Expr: ".addresses[]"})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, Record{"device_id": 5, "ip": "10.0.0.1"}, records[0])
	})

	t.Run("non-sequence document without expr", func(t *testing.T) {
		r := fileRegistry(t, "doc.json", `{"devices":[]}`)
		_, err := r.Fetch(ctx, &config.Extract{Source: "f", Format: "json"})
		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, "f", fetchErr.Source)
		assert.Contains(t, err.Error(), "want a sequence")
	})

	t.Run("malformed content", func(t *testing.T) {
		r := fileRegistry(t, "bad.json", `{not json`)
		_, err := r.Fetch(ctx, &config.Extract{Source: "f", Format: "json"})
		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Contains(t, err.Error(), "decoding json")
	})

	t.Run("non-object item", func(t *testing.T) {
		r := fileRegistry(t, "scalars.json", `[1, 2]`)
		_, err := r.Fetch(ctx, &config.Extract{Source: "f", Format: "json"})
		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Contains(t, err.Error(), "want object")
	})

	t.Run("undeclared source", func(t *testing.T) {
		r := fileRegistry(t, "devices.json", `[]`)
		_, err := r.Fetch(ctx, &config.Extract{Source: "nope", Format: "json"})
		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, "nope", fetchErr.Source)
	})
}

func TestScriptFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("stdout decodes like a file", func(t *testing.T) {
		r, err := NewRegistry(query.New(), map[string]*config.Source{
			"s": {Name: "s", Kind: config.SourceScript, Script: &config.ScriptSource{
				Command: "sh",
				Args:    []string{"-c", `printf '[{"id":7,"name":"gen1"}]'`},
			}},
		})
		require.NoError(t, err)

		records, err := r.Fetch(ctx, &config.Extract{Source: "s", Format: "json"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, Record{"id": 7, "name": "gen1"}, records[0])
	})

	t.Run("failing command reports stderr", func(t *testing.T) {
		r, err := NewRegistry(query.New(), map[string]*config.Source{
			"s": {Name: "s", Kind: config.SourceScript, Script: &config.ScriptSource{
				Command: "sh",
				Args:    []string{"-c", `echo boom >&2; exit 3`},
			}},
		})
		require.NoError(t, err)

		_, err = r.Fetch(ctx, &config.Extract{Source: "s", Format: "json"})
		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestAPIFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("pagination follows the next URL", func(t *testing.T) {
		var gotAuth string
		var gotRole string
		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()

		mux.HandleFunc("/dcim/devices/", func(w http.ResponseWriter, req *http.Request) {
			gotAuth = req.Header.Get("Authorization")
			gotRole = req.URL.Query().Get("role")
			w.Write([]byte(`{"count":2,"next":"` + srv.URL + `/dcim/devices/page2/","results":[{"id":1}]}`))
		})
		mux.HandleFunc("/dcim/devices/page2/", func(w http.ResponseWriter, req *http.Request) {
			w.Write([]byte(`{"count":2,"next":null,"results":[{"id":2}]}`))
		})

		r, err := NewRegistry(query.New(), map[string]*config.Source{
			"nb": {Name: "nb", Kind: config.SourceAPI, API: &config.APISource{URL: srv.URL, Token: "secret"}},
		})
		require.NoError(t, err)

		records, err := r.Fetch(ctx, &config.Extract{
			Source:  "nb",
			App:     "dcim",
			Type:    "devices",
			Filters: map[string]any{"role": "router"},
		})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, 1, records[0]["id"])
		assert.Equal(t, 2, records[1]["id"])
		assert.Equal(t, "Token secret", gotAuth)
		assert.Equal(t, "router", gotRole)
	})

	t.Run("bare array response has a single page", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Write([]byte(`[{"id":9}]`))
		}))
		defer srv.Close()

		r, err := NewRegistry(query.New(), map[string]*config.Source{
			"nb": {Name: "nb", Kind: config.SourceAPI, API: &config.APISource{URL: srv.URL}},
		})
		require.NoError(t, err)

		records, err := r.Fetch(ctx, &config.Extract{Source: "nb", App: "dcim", Type: "devices"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, 9, records[0]["id"])
	})

	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		}))
		defer srv.Close()

		r, err := NewRegistry(query.New(), map[string]*config.Source{
			"nb": {Name: "nb", Kind: config.SourceAPI, API: &config.APISource{URL: srv.URL}},
		})
		require.NoError(t, err)

		_, err = r.Fetch(ctx, &config.Extract{Source: "nb", App: "dcim", Type: "devices"})
		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("malformed timeout fails construction", func(t *testing.T) {
		_, err := NewRegistry(query.New(), map[string]*config.Source{
			"nb": {Name: "nb", Kind: config.SourceAPI, API: &config.APISource{URL: "http://x", Timeout: "soon"}},
		})
		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Contains(t, err.Error(), "timeout")
	})
}
