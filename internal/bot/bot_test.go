package bot

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"Unbewohnte/TheTruth/internal/config"
	"Unbewohnte/TheTruth/internal/inference"
	"Unbewohnte/TheTruth/internal/source"
	"Unbewohnte/TheTruth/internal/state"
	"Unbewohnte/TheTruth/internal/verify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results  []source.Item
	feed     []source.Item
	offsets  []int
	metadata string
}

func (f *fakeSearcher) Search(_ context.Context, query, category, language string) ([]source.Item, error) {
	return append([]source.Item(nil), f.results...), nil
}

func (f *fakeSearcher) Feed(_ context.Context, sourceTag string, offset int) ([]source.Item, error) {
	f.offsets = append(f.offsets, offset)
	return append([]source.Item(nil), f.feed...), nil
}

func (f *fakeSearcher) Metadata(_ context.Context, path string) (string, error) {
	return f.metadata, nil
}

func (f *fakeSearcher) DeepScan(_ context.Context, path string) ([]source.Item, error) {
	return f.results, nil
}

type fakeModel struct {
	pinned string
	models []string
}

func (m *fakeModel) CheckReachable(context.Context) bool { return true }

func (m *fakeModel) SelectModel(context.Context) string {
	if m.pinned != "" {
		return m.pinned
	}
	return "llama3:8b"
}

func (m *fakeModel) AnalyzeClaim(_ context.Context, claim string, sources []source.Item, language source.Language) string {
	return "WAHR. Die Quellen bestätigen es."
}

func (m *fakeModel) TranslateSources(context.Context, []source.Item) {}

func (m *fakeModel) AnalyzeImage(_ context.Context, path string, language source.Language) string {
	return "Keine Anzeichen von Manipulation."
}

func (m *fakeModel) ListModels(context.Context) ([]string, error) { return m.models, nil }
func (m *fakeModel) Pin(model string)                            { m.pinned = model }

func newTestBot(t *testing.T) (*Bot, *fakeSearcher, *fakeModel) {
	t.Helper()

	searcher := &fakeSearcher{
		results: []source.Item{
			{Title: "Siedepunkt", URL: "https://a.example", Snippet: "100 °C"},
			{Title: "Wasser", URL: "https://b.example", Snippet: "Normaldruck"},
		},
		feed:     []source.Item{{Title: "[Tagesschau] A", URL: "https://ts.example/a"}, {Title: "[Tagesschau] B", URL: "https://ts.example/b"}},
		metadata: `{"Make": "Canon"}`,
	}
	model := &fakeModel{models: []string{"llama3:8b", "gemma:2b"}}

	conf := config.Default()
	confPath := filepath.Join(t.TempDir(), "thetruth.json")
	service := verify.NewService(searcher, model, nil)

	return NewBot(context.Background(), conf, confPath, service, model), searcher, model
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		input, name, args string
	}{
		{"verify Water boils", "verify", "Water boils"},
		{"/Feed  tagesschau ", "feed", "tagesschau"},
		{"/verify@TheTruthBot claim", "verify", "claim"},
		{"  ", "", ""},
	}

	for _, tt := range tests {
		name, args := splitCommand(tt.input)
		assert.Equal(t, tt.name, name, tt.input)
		assert.Equal(t, tt.args, args, tt.input)
	}
}

func TestExecutePlainTextVerifiesClaim(t *testing.T) {
	bot, _, _ := newTestBot(t)

	response, err := bot.Execute("Wasser kocht bei 100 Grad")
	require.NoError(t, err)
	assert.Contains(t, response, "*Behauptung:* \"Wasser kocht bei 100 Grad\"")
	assert.Contains(t, response, "✅ Geprüft")
	assert.Contains(t, response, "WAHR. Die Quellen bestätigen es.")
	assert.Contains(t, response, "1. [Siedepunkt](https://a.example)")

	snapshot := bot.Store().Snapshot()
	require.NotNil(t, snapshot.Result)
	assert.True(t, snapshot.Result.IsVerified)
	assert.False(t, snapshot.Busy)
}

func TestExecuteUnknownSlashCommandSuggests(t *testing.T) {
	bot, _, _ := newTestBot(t)

	_, err := bot.Execute("/verfy something")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown command")
	assert.Contains(t, err.Error(), "`verify`")
}

func TestExecuteRejectsWhileBusy(t *testing.T) {
	bot, _, _ := newTestBot(t)

	_, err := bot.Store().Begin(state.LoadingFeed)
	require.NoError(t, err)

	_, err = bot.Execute("verify claim")
	require.Error(t, err)
	assert.Equal(t, germanLabels.busy, err.Error())
}

func TestFeedAndMore(t *testing.T) {
	bot, searcher, _ := newTestBot(t)
	_, err := bot.Execute("lang en")
	require.NoError(t, err)

	response, err := bot.Execute("feed nyt")
	require.NoError(t, err)
	assert.Contains(t, response, "Live feed: nyt")
	assert.Contains(t, response, "2. [[Tagesschau] B](https://ts.example/b)")

	response, err = bot.Execute("more")
	require.NoError(t, err)
	assert.Contains(t, response, "3. [[Tagesschau] A]")

	assert.Equal(t, []int{0, 2}, searcher.offsets)
	assert.Len(t, bot.Store().Snapshot().Feed, 4)
}

func TestImageCommands(t *testing.T) {
	bot, _, _ := newTestBot(t)
	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o600))

	response, err := bot.AnalyzeUpload(path)
	require.NoError(t, err)
	assert.Contains(t, response, "Keine Anzeichen von Manipulation.")
	assert.Contains(t, response, `{"Make": "Canon"}`)

	snapshot := bot.Store().Snapshot()
	assert.Equal(t, path, snapshot.ImagePath)
	assert.Equal(t, `{"Make": "Canon"}`, snapshot.Metadata)

	_, err = bot.Execute("image " + filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestSetModelAndLanguagePersist(t *testing.T) {
	bot, _, model := newTestBot(t)

	_, err := bot.Execute("setmodel gemma:2b")
	require.NoError(t, err)
	assert.Equal(t, "gemma:2b", model.pinned)

	_, err = bot.Execute("setmodel phi3")
	assert.Error(t, err)

	_, err = bot.Execute("lang english")
	require.NoError(t, err)

	saved, err := config.Load(bot.confPath)
	require.NoError(t, err)
	assert.Equal(t, "gemma:2b", saved.Ollama.Model)
	assert.Equal(t, "en", saved.Language)

	_, err = bot.Execute("setmodel auto")
	require.NoError(t, err)
	assert.Empty(t, model.pinned)
}

func TestTelegramUserManagement(t *testing.T) {
	bot, _, _ := newTestBot(t)

	assert.False(t, bot.isAllowed(42))
	_, err := bot.Execute("adduser 42")
	require.NoError(t, err)
	assert.True(t, bot.isAllowed(42))

	_, err = bot.Execute("rmuser 42")
	require.NoError(t, err)
	assert.False(t, bot.isAllowed(42))

	_, err = bot.Execute("rmuser 42")
	assert.Error(t, err)

	_, err = bot.Execute("togglepublic")
	require.NoError(t, err)
	assert.True(t, bot.isAllowed(7))
}

func TestPrintConfigHidesSecrets(t *testing.T) {
	bot, _, _ := newTestBot(t)

	response, err := bot.Execute("conf")
	require.NoError(t, err)
	assert.NotContains(t, response, "change-me")
	assert.Equal(t, "change-me", bot.conf.Web.JWTSecret)
}

func TestHelp(t *testing.T) {
	bot, _, _ := newTestBot(t)

	response, err := bot.Execute("help")
	require.NoError(t, err)
	for _, command := range bot.Commands() {
		assert.Contains(t, response, "\""+command.Name+"\"")
	}

	response, err = bot.Execute("help feed")
	require.NoError(t, err)
	assert.True(t, strings.Contains(response, "*Example:* `feed tagesschau`"))
}

func TestFindSimilarCommands(t *testing.T) {
	bot, _, _ := newTestBot(t)

	assert.Equal(t, 0, minDistance("feed", "feed"))
	assert.Equal(t, 1, minDistance("fed", "feed"))
	assert.Equal(t, 1, minDistance("über", "uber"))

	suggestions := bot.findSimilarCommands("modles")
	require.Len(t, suggestions, 3)
	assert.Equal(t, "models", suggestions[0])
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))
	assert.Equal(t, []string{"line one", "line two"}, splitMessage("line one\nline two", 10))
	assert.Equal(t, []string{"abcde", "fghij"}, splitMessage("abcdefghij", 5))
	assert.Empty(t, splitMessage("", 10))
}

type stubBackend struct {
	models []string
}

func (b stubBackend) ListModels(context.Context) ([]string, error) { return b.models, nil }

func (b stubBackend) Generate(context.Context, inference.GenerateRequest) (string, error) {
	return "UNKLAR", nil
}

// Commands from the web UI and Telegram run concurrently; run with -race.
func TestConcurrentCommands(t *testing.T) {
	client := inference.NewClient(stubBackend{models: []string{"llama3:8b", "gemma:2b"}})
	service := verify.NewService(&fakeSearcher{}, client, nil)
	bot := NewBot(context.Background(), config.Default(), filepath.Join(t.TempDir(), "thetruth.json"), service, client)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			var commands []string
			if i%2 == 0 {
				commands = []string{"setmodel gemma:2b", "adduser " + strconv.Itoa(i), "togglepublic", "lang en"}
			} else {
				commands = []string{"status", "models", "conf", "rmuser " + strconv.Itoa(i-1)}
			}
			for _, command := range commands {
				_, _ = bot.Execute(command)
			}
			bot.isAllowed(int64(i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, "gemma:2b", client.SelectModel(context.Background()))
	bot.confMu.RLock()
	defer bot.confMu.RUnlock()
	assert.Equal(t, "gemma:2b", bot.conf.Ollama.Model)
	assert.Equal(t, "en", bot.conf.Language)
}
