package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) *Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "search_engine.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return New("sh", path, 0)
}

func TestSearchPassesPositionalArguments(t *testing.T) {
	e := writeScript(t, `printf '[{"title":"%s","href":"%s","body":"%s"}]' "$1" "$2" "$3"`)

	items, err := e.Search(context.Background(), "Water boils at 100C", "science", "en")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Water boils at 100C", items[0].Title)
	assert.Equal(t, "science", items[0].URL)
	assert.Equal(t, "en", items[0].Snippet)
}

func TestSearchMapsFields(t *testing.T) {
	e := writeScript(t, `cat <<'EOF'
[
  {"title": "A", "href": "https://a.example", "body": "first"},
  {"title": "B", "href": "https://b.example", "body": "second", "published_date": "2025-01-02", "byline": "X", "source": "guardian"}
]
EOF`)

	items, err := e.Search(context.Background(), "q", "general", "de")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "https://a.example", items[0].URL)
	assert.Equal(t, "first", items[0].Snippet)
	assert.Equal(t, "2025-01-02", items[1].PublishedDate)
	assert.Equal(t, "guardian", items[1].Source)
}

func TestSearchNullIsEmpty(t *testing.T) {
	e := writeScript(t, `echo null`)

	items, err := e.Search(context.Background(), "q", "general", "de")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestSearchNonZeroExitCarriesStderr(t *testing.T) {
	e := writeScript(t, `echo "ModuleNotFoundError: duckduckgo_search" >&2; exit 3`)

	_, err := e.Search(context.Background(), "q", "general", "de")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script failed")
	assert.Contains(t, err.Error(), "ModuleNotFoundError: duckduckgo_search")
}

func TestSearchUnparsableOutputIsTruncated(t *testing.T) {
	garbage := strings.Repeat("x", 300)
	e := writeScript(t, "echo "+garbage)

	_, err := e.Search(context.Background(), "q", "general", "de")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse output")
	assert.Contains(t, err.Error(), strings.Repeat("x", 100)+"...")
	assert.NotContains(t, err.Error(), strings.Repeat("x", 101))
}

func TestMissingScript(t *testing.T) {
	e := New("sh", filepath.Join(t.TempDir(), "nope.py"), 0)

	_, err := e.Search(context.Background(), "q", "general", "de")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrScriptNotFound))
	assert.Contains(t, err.Error(), "nope.py")
	assert.Equal(t, 1, strings.Count(err.Error(), "script not found"))

	_, err = e.Metadata(context.Background(), "img.png")
	assert.True(t, eris.Is(err, ErrScriptNotFound))
}

func TestFeedMode(t *testing.T) {
	e := writeScript(t, `printf '[{"title":"%s","href":"%s %s","body":""}]' "$1" "$2" "$3"`)

	items, err := e.Feed(context.Background(), "de_all", 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "FEED_MODE de_all 20", items[0].Title)
	assert.Equal(t, "general en", items[0].URL)
}

func TestFeedErrorItemsBecomeSnippets(t *testing.T) {
	e := writeScript(t, `echo '[{"error": "Tagesschau Error: timeout"}]'`)

	items, err := e.Feed(context.Background(), "tagesschau", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Tagesschau Error: timeout", items[0].Snippet)
	assert.Empty(t, items[0].Title)
	assert.Empty(t, items[0].URL)
}

func TestMetadataReturnsRawOutput(t *testing.T) {
	e := writeScript(t, `printf '{"mode": "%s", "path": "%s"}' "$1" "$2"`)

	report, err := e.Metadata(context.Background(), "/tmp/photo 1.jpg")
	require.NoError(t, err)
	assert.Equal(t, `{"mode": "METADATA_MODE", "path": "/tmp/photo 1.jpg"}`, report)
}

func TestDeepScan(t *testing.T) {
	e := writeScript(t, `printf '[{"title":"%s","href":"","body":""}]' "$1"`)

	items, err := e.DeepScan(context.Background(), "/tmp/a.png")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "LENS_MODE /tmp/a.png", items[0].Title)
}

func TestTimeoutKillsHungScript(t *testing.T) {
	e := writeScript(t, `exec sleep 5`)
	e.Timeout = 100 * time.Millisecond

	started := time.Now()
	_, err := e.Search(context.Background(), "q", "general", "de")
	require.Error(t, err)
	assert.Less(t, time.Since(started), 4*time.Second)
}

func TestResolveScriptPath(t *testing.T) {
	assert.Equal(t, "/abs/search_engine.py", ResolveScriptPath("/abs/search_engine.py"))

	resolved := ResolveScriptPath("engine/search_engine.py")
	assert.True(t, filepath.IsAbs(resolved))
	assert.True(t, strings.HasSuffix(resolved, filepath.Join("engine", "search_engine.py")))
}
