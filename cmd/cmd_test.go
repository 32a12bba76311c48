package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasnim.dev/aws-sweep/internal/config"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvPath, filepath.Join(t.TempDir(), "config.yaml"))

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFetchCmd(t *testing.T) {
	var gotHeader, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Trace")
		gotQuery = r.URL.Query().Get("page")
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, "nope")
			return
		}
		io.WriteString(w, "ok "+r.URL.Path)
	}))
	defer srv.Close()

	out, err := runRoot(t, "fetch", srv.URL+"/a", srv.URL+"/missing", "-H", "X-Trace: abc", "-q", "page=2")
	require.NoError(t, err)

	assert.Contains(t, out, "Fetched 2 URLs")
	assert.Contains(t, out, "ok /a")
	assert.Contains(t, out, "404")
	assert.Equal(t, "abc", gotHeader)
	assert.Equal(t, "2", gotQuery)
}

func TestFetchCmd_FailFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := runRoot(t, "fetch", "--fail", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http_error")
}

func TestFetchCmd_RejectsMethod(t *testing.T) {
	_, err := runRoot(t, "fetch", "-X", "DELETE", "http://127.0.0.1:1/")
	require.Error(t, err)
}

func TestFetchCmd_InvalidJSON(t *testing.T) {
	_, err := runRoot(t, "fetch", "-X", "POST", "-d", "{not json", "http://127.0.0.1:1/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--data")
}

func TestVPCTeardown_RequiresConfirmation(t *testing.T) {
	_, err := runRoot(t, "vpc", "teardown", "vpc-123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestParseHeaders(t *testing.T) {
	h, err := parseHeaders([]string{"Accept: application/json", "X-Multi: a", "X-Multi: b"})
	require.NoError(t, err)
	assert.Equal(t, "application/json", h.Get("Accept"))
	assert.Equal(t, []string{"a", "b"}, h.Values("X-Multi"))

	_, err = parseHeaders([]string{"no-colon"})
	assert.Error(t, err)

	h, err = parseHeaders(nil)
	assert.NoError(t, err)
	assert.Nil(t, h)
}

func TestParseQuery(t *testing.T) {
	q, err := parseQuery([]string{"a=1", "b=", "a=2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, q["a"])
	assert.Equal(t, "", q.Get("b"))

	_, err = parseQuery([]string{"=1"})
	assert.Error(t, err)
}

func TestCollectURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nhttp://b.test/\n\n  http://c.test/  \n"), 0644))

	urls, err := collectURLs([]string{"http://a.test/"}, path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test/", "http://b.test/", "http://c.test/"}, urls)

	urls, err = collectURLs(nil, "-", strings.NewReader("http://stdin.test/\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://stdin.test/"}, urls)

	_, err = collectURLs(nil, filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}
