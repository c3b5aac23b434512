package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/metaworker/internal/model"
	"sjsage522/metaworker/services/cache"
)

const detailPage = `<html><head>
<meta property="og:title" content="IPX-156 Summer Story">
<meta property="og:image" content="/covers/ipx156.jpg">
</head><body>
<h1>IPX-156 Summer Story</h1>
<time datetime="2018-06-13">June 13</time>
<a href="magnet:?xt=urn:btih:ABCDEF">IPX-156 magnet</a>
<p>Padding so the page clears the minimum body size check of the fetcher.</p>
</body></html>`

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("CACHE_BACKEND", "memory")
	t.Setenv("ACTIVITY_STREAM", "")
	t.Setenv("ACTIVITY_LOG_FILE", "")

	root := newCmdRoot()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestReadBatch(t *testing.T) {
	in := strings.NewReader(`# watch list
https://www.javbus.com/ABC-123

https://javdb.com/search?q=IPX-156	IPX-156 Summer Story
  https://missav.com/dm1/ssis-001  SSIS-001
`)
	items, err := readBatch(in, "javdb")
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "2", items[0].ID)
	assert.Equal(t, "https://www.javbus.com/ABC-123", items[0].URL)
	assert.Empty(t, items[0].Title)

	assert.Equal(t, "4", items[1].ID)
	assert.Equal(t, "https://javdb.com/search?q=IPX-156", items[1].URL)
	assert.Equal(t, "IPX-156 Summer Story", items[1].Title)
	assert.Equal(t, "javdb", items[1].SourceHint)

	assert.Equal(t, "https://missav.com/dm1/ssis-001", items[2].URL)
	assert.Equal(t, "SSIS-001", items[2].Title)
}

func TestSourcesCommand(t *testing.T) {
	out, _, err := run(t, "sources")
	require.NoError(t, err)

	var sources []model.SourceInfo
	require.NoError(t, json.Unmarshal([]byte(out), &sources))
	require.Len(t, sources, 8)
	assert.Equal(t, "generic", sources[len(sources)-1].SourceID)

	out, _, err = run(t, "sources", "--validate")
	require.NoError(t, err)
	assert.Contains(t, out, `"is_valid": true`)
}

func TestExtractCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/IPX-156" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, detailPage)
	}))
	defer srv.Close()

	out, _, err := run(t, "extract", srv.URL+"/IPX-156", "--no-cache")
	require.NoError(t, err)

	var rec model.ExtractionRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, model.StatusSuccess, rec.ExtractionStatus)
	assert.Equal(t, "IPX-156", rec.Code)
	assert.Equal(t, "2018-06-13", rec.ReleaseDate)
	assert.Equal(t, "generic", rec.SourceID)

	out, _, err = run(t, "extract", srv.URL+"/missing/ABC-123")
	require.Error(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, model.StatusError, rec.ExtractionStatus)
}

func TestBatchCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, detailPage)
	}))
	defer srv.Close()
	t.Setenv("BATCH_PACING_MS", "1")

	list := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(list, []byte(srv.URL+"/IPX-156\n"+srv.URL+"/ipx-156 IPX-156\n"), 0o644))

	out, stderr, err := run(t, "batch", list, "--concurrency", "2")
	require.NoError(t, err)

	var recs []model.ExtractionRecord
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "1", recs[0].ID)
	assert.Equal(t, "2", recs[1].ID)
	assert.Contains(t, stderr, "[2/2]")

	_, _, err = run(t, "batch", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestCacheExportImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap", "cache.json")

	out, _, err := run(t, "cache", "export", path)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 0 entries")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var snap cache.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, cache.SnapshotVersion, snap.Version)

	out, _, err = run(t, "cache", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 0 of 0 entries")

	out, _, err = run(t, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, `"backend": "memory"`)

	_, _, err = run(t, "cache", "import", "s3://bucket-only")
	assert.Error(t, err)
}
