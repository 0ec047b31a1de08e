package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"Unbewohnte/TheTruth/internal/config"
	"Unbewohnte/TheTruth/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOllama is a minimal /api/tags and /api/generate server. Replies are
// served in order; the last one repeats.
type fakeOllama struct {
	mu        sync.Mutex
	models    []string
	tagsFail  bool
	genFail   bool
	replies   []string
	requests  []map[string]any
	tagsCalls int
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/api/tags":
		f.tagsCalls++
		if f.tagsFail {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		models := []map[string]any{}
		for _, name := range f.models {
			models = append(models, map[string]any{"name": name, "model": name})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"models": models})

	case "/api/generate":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.requests = append(f.requests, body)

		if f.genFail {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
			return
		}

		reply := ""
		if len(f.replies) > 0 {
			reply = f.replies[0]
			if len(f.replies) > 1 {
				f.replies = f.replies[1:]
			}
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		// one compact line, the client reads the body line by line
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":    body["model"],
			"response": reply,
			"done":     true,
		})

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeOllama) lastRequest() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, fake *fakeOllama) *Client {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	backend, err := NewOllamaBackend(server.URL, &http.Client{Timeout: 5 * time.Second})
	require.NoError(t, err)
	return NewClient(backend)
}

func TestSelectModelPreference(t *testing.T) {
	tests := []struct {
		name   string
		models []string
		want   string
	}{
		{"llama3 wins regardless of order", []string{"gemma:2b", "mistral:7b", "llama3:8b"}, "llama3:8b"},
		{"mistral before gemma", []string{"gemma:2b", "mistral:7b"}, "mistral:7b"},
		{"gemma", []string{"phi3", "gemma:7b"}, "gemma:7b"},
		{"first listed otherwise", []string{"phi3", "qwen2"}, "phi3"},
		{"first llama3 match", []string{"llama3:70b", "llama3:8b"}, "llama3:70b"},
		{"empty list", []string{}, "llama3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeOllama{models: tt.models})
			assert.Equal(t, tt.want, client.SelectModel(context.Background()))
		})
	}
}

func TestSelectModelFallbackOnFailure(t *testing.T) {
	client := newTestClient(t, &fakeOllama{tagsFail: true})
	assert.Equal(t, "llama3", client.SelectModel(context.Background()))

	backend, err := NewOllamaBackend("http://127.0.0.1:1", &http.Client{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "llama3", NewClient(backend).SelectModel(context.Background()))
}

func TestSelectModelPinnedSkipsList(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}}
	client := newTestClient(t, fake)
	client.Pin("qwen2:7b")

	assert.Equal(t, "qwen2:7b", client.SelectModel(context.Background()))
	assert.Zero(t, fake.tagsCalls)
}

func TestCheckReachable(t *testing.T) {
	assert.True(t, newTestClient(t, &fakeOllama{}).CheckReachable(context.Background()))
	assert.False(t, newTestClient(t, &fakeOllama{tagsFail: true}).CheckReachable(context.Background()))
}

func TestAnalyzeClaimPromptAndVerbatimReply(t *testing.T) {
	fake := &fakeOllama{
		models:  []string{"mistral:7b", "llama3:8b"},
		replies: []string{"WAHR. Begründung: Beide Quellen bestätigen es."},
	}
	client := newTestClient(t, fake)

	sources := []source.Item{
		{Title: "Boiling point", URL: "https://a.example", Snippet: "100 °C at sea level"},
		{Title: "Water", URL: "https://b.example", Snippet: "boils at 100C"},
	}
	summary := client.AnalyzeClaim(context.Background(), "Water boils at 100C", sources, source.German)
	assert.Equal(t, "WAHR. Begründung: Beide Quellen bestätigen es.", summary)

	request := fake.lastRequest()
	require.NotNil(t, request)
	assert.Equal(t, "llama3:8b", request["model"])
	assert.Equal(t, false, request["stream"])
	assert.Nil(t, request["format"])

	prompt := request["prompt"].(string)
	assert.True(t, strings.HasPrefix(prompt, "Du bist ein intelligenter und objektiver Fact-Checker.\n"))
	assert.Contains(t, prompt, "Behauptung: \"Water boils at 100C\"")
	assert.Contains(t, prompt, "1. [Boiling point](https://a.example): 100 °C at sea level\n")
	assert.Contains(t, prompt, "2. [Water](https://b.example): boils at 100C\n")
	assert.Contains(t, prompt, "[WAHR / FALSCH / UNKLAR / TEILWEISE WAHR]")
}

func TestAnalyzeClaimEnglishPrompt(t *testing.T) {
	fake := &fakeOllama{replies: []string{"TRUE"}}
	client := newTestClient(t, fake)

	summary := client.AnalyzeClaim(context.Background(), "claim", []source.Item{{Title: "t"}}, source.English)
	assert.Equal(t, "TRUE", summary)

	prompt := fake.lastRequest()["prompt"].(string)
	assert.Contains(t, prompt, "Claim: \"claim\"")
	assert.Contains(t, prompt, "RULES FOR ANALYSIS:")
	assert.Contains(t, prompt, "[TRUE / FALSE / UNCLEAR / PARTIALLY TRUE]")
}

func TestAnalyzeClaimFailures(t *testing.T) {
	client := newTestClient(t, &fakeOllama{genFail: true})

	summary := client.AnalyzeClaim(context.Background(), "c", nil, source.German)
	assert.True(t, strings.HasPrefix(summary, "AI Fehler: "))
	assert.True(t, strings.HasSuffix(summary, ". (Läuft Ollama?)"))

	summary = client.AnalyzeClaim(context.Background(), "c", nil, source.English)
	assert.True(t, strings.HasPrefix(summary, "AI error: "))

	empty := newTestClient(t, &fakeOllama{replies: []string{""}})
	assert.Equal(t, "Fehler: Keine Antwort von AI erhalten.", empty.AnalyzeClaim(context.Background(), "c", nil, source.German))
}

func TestAnalyzeClaimStripsThinkBlock(t *testing.T) {
	client := newTestClient(t, &fakeOllama{replies: []string{"<think>\nhmm\n</think>\n\nUNKLAR"}})
	assert.Equal(t, "UNKLAR", client.AnalyzeClaim(context.Background(), "c", nil, source.German))
}

func TestTranslateSources(t *testing.T) {
	fake := &fakeOllama{
		replies: []string{`Sure! Here you go: [{"id": 1, "title_de": "Titel B", "snippet_de": "Text B"}, {"id": 7, "title_de": "x", "snippet_de": "y"}] Hope this helps.`},
	}
	client := newTestClient(t, fake)

	sources := []source.Item{
		{Title: "Title A", Snippet: "Text A"},
		{Title: "Title B", Snippet: "Text B en"},
	}
	client.TranslateSources(context.Background(), sources)

	assert.Equal(t, "Title A", sources[0].Title)
	assert.Equal(t, "Text A", sources[0].Snippet)
	assert.Equal(t, "[Übersetzt] Titel B", sources[1].Title)
	assert.Equal(t, "Text B", sources[1].Snippet)

	request := fake.lastRequest()
	assert.Equal(t, "json", request["format"])
	prompt := request["prompt"].(string)
	assert.Contains(t, prompt, `{"id": 0, "title": "Title A", "snippet": "Text A"}`)
	assert.Contains(t, prompt, `{"id": 1, "title": "Title B", "snippet": "Text B en"}`)
}

func TestTranslateSourcesIgnoresFailures(t *testing.T) {
	replies := []string{"no array here", `[{"id": "zero"}]`}
	for _, reply := range replies {
		client := newTestClient(t, &fakeOllama{replies: []string{reply}})
		sources := []source.Item{{Title: "A", Snippet: "a"}}
		client.TranslateSources(context.Background(), sources)
		assert.Equal(t, []source.Item{{Title: "A", Snippet: "a"}}, sources)
	}

	client := newTestClient(t, &fakeOllama{genFail: true})
	sources := []source.Item{{Title: "A", Snippet: "a"}}
	client.TranslateSources(context.Background(), sources)
	assert.Equal(t, "A", sources[0].Title)
}

func writeImage(t *testing.T) (string, []byte) {
	t.Helper()
	data := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 1, 2, 3}
	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path, data
}

func TestAnalyzeImageEnglish(t *testing.T) {
	fake := &fakeOllama{replies: []string{"A cat. No visible artifacts."}}
	client := newTestClient(t, fake)
	path, data := writeImage(t)

	report := client.AnalyzeImage(context.Background(), path, source.English)
	assert.Equal(t, "A cat. No visible artifacts.", report)

	request := fake.lastRequest()
	assert.Equal(t, "bakllava", request["model"])
	assert.Equal(t, imagePrompt, request["prompt"])
	images := request["images"].([]any)
	require.Len(t, images, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString(data), images[0])
}

func TestAnalyzeImageGermanIsTranslated(t *testing.T) {
	fake := &fakeOllama{
		models:  []string{"llama3"},
		replies: []string{"A cat.", "Eine Katze."},
	}
	client := newTestClient(t, fake)
	path, _ := writeImage(t)

	assert.Equal(t, "Eine Katze.", client.AnalyzeImage(context.Background(), path, source.German))

	request := fake.lastRequest()
	assert.Equal(t, "llama3", request["model"])
	assert.Contains(t, request["prompt"], "Text:\nA cat.\n\nTranslation:")
}

func TestAnalyzeImageErrors(t *testing.T) {
	client := newTestClient(t, &fakeOllama{})
	report := client.AnalyzeImage(context.Background(), filepath.Join(t.TempDir(), "missing.png"), source.English)
	assert.True(t, strings.HasPrefix(report, "Analysis Error: "))

	path, _ := writeImage(t)
	failing := newTestClient(t, &fakeOllama{genFail: true})
	assert.True(t, strings.HasPrefix(failing.AnalyzeImage(context.Background(), path, source.German), "Analysis Error: "))
}

func TestTranslateTextKeepsOriginalOnFailure(t *testing.T) {
	client := newTestClient(t, &fakeOllama{genFail: true})
	assert.Equal(t, "original", client.TranslateText(context.Background(), "original", source.German))
	assert.Equal(t, "original", client.TranslateText(context.Background(), "original", source.English))
}

func TestRemoveThinkBlock(t *testing.T) {
	assert.Equal(t, "answer", removeThinkBlock("<think>a\nb</think> answer"))
	assert.Equal(t, "  keep spacing \n", removeThinkBlock("  keep spacing \n"))
}

func TestOpenAIBackend(t *testing.T) {
	var chat map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/models":
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gemma:2b","object":"model"},{"id":"llama3:8b","object":"model"}]}`))
		case "/v1/chat/completions":
			_ = json.NewDecoder(r.Body).Decode(&chat)
			_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"FALSCH"},"finish_reason":"stop"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, err := NewClientFromConfig(config.OllamaConf{
		Provider:            ProviderOpenAI,
		BaseURL:             server.URL,
		QueryTimeoutSeconds: 5,
	}, false)
	require.NoError(t, err)

	assert.Equal(t, "llama3:8b", client.SelectModel(context.Background()))

	summary := client.AnalyzeClaim(context.Background(), "c", []source.Item{{Title: "t"}}, source.German)
	assert.Equal(t, "FALSCH", summary)
	assert.Equal(t, "llama3:8b", chat["model"])
}

func TestNewBackendUnknownProvider(t *testing.T) {
	_, err := NewBackend("bard", "http://localhost", "", time.Second)
	assert.Error(t, err)
}
