package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
	<channel>
		<title>Test Podcast</title>
		<item>
			<title>Episódio 2</title>
			<link>https://example.com/ep2</link>
			<pubDate>Fri, 29 Dec 2023 10:00:00 -0300</pubDate>
			<enclosure url="https://tracker.example.net/r.mp3?u=%[1]s/audio/ep2.mp3" length="3500" type="audio/mpeg"/>
		</item>
		<item>
			<title>Episódio 1</title>
			<link>https://example.com/ep1</link>
			<pubDate>Fri, 22 Dec 2023 10:00:00 -0300</pubDate>
			<enclosure url="%[1]s/audio/ep1.mp3" length="3400" type="audio/mpeg"/>
		</item>
	</channel>
</rss>`

type cliTestEnv struct {
	server         *httptest.Server
	configPath     string
	baseDir        string
	audioRequests  int32
	transcriptions int32

	mu      sync.Mutex
	prompts []string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "PODSCRIBE_FEED_URL", "MONGO_URI", "DATABASE_URL", "SUPABASE_KEY", "SUPABASE_DB_PASSWORD"} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", t.TempDir())

	env := &cliTestEnv{baseDir: t.TempDir()}

	mux := http.NewServeMux()
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, testFeed, env.server.URL)
	})
	mux.HandleFunc("/audio/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "1073741824")
			return
		}
		atomic.AddInt32(&env.audioRequests, 1)
		w.Write([]byte("ID3 fake audio"))
	})
	mux.HandleFunc("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&env.transcriptions, 1)
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			env.mu.Lock()
			env.prompts = append(env.prompts, r.FormValue("prompt"))
			env.mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"Olá, pessoas."}`))
	})
	env.server = httptest.NewServer(mux)
	t.Cleanup(env.server.Close)

	env.configPath = filepath.Join(env.baseDir, "config.toml")
	config := fmt.Sprintf(`
[feed]
url = %q

[paths]
audio_dir = %q
transcripts_dir = %q

[download]
progress = false

[transcription]
backend = "openai"
api_key = "test-key"
base_url = %q
echo = true

[logging]
level = "error"
`, env.server.URL+"/feed.xml", filepath.Join(env.baseDir, "audio"), filepath.Join(env.baseDir, "transcripts"), env.server.URL+"/v1")
	if err := os.WriteFile(env.configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath, "--env-file", filepath.Join(e.baseDir, "none.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestScrapeCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	csvPath := filepath.Join(env.baseDir, "out", "episodes.csv")

	out, err := env.run(t, "scrape", "--save-file", csvPath, "--download-size")
	if err != nil {
		t.Fatalf("scrape failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Saved 2 episodes") {
		t.Errorf("expected save message, got %q", out)
	}
	if !strings.Contains(out, "Total download size: 2.00 GB") {
		t.Errorf("expected size line, got %q", out)
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], "Episódio 1,3400,https://example.com/ep1,2023-12-22 10:00:00-03:00,") {
		t.Errorf("expected oldest episode first, got %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], env.server.URL+"/audio/ep2.mp3") {
		t.Errorf("expected tracking prefix stripped, got %q", lines[2])
	}
}

func TestScrapeCommandRequiresSaveFile(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "scrape"); err == nil {
		t.Fatal("expected error without --save-file")
	}
}

func TestTranscribeCommandIsIdempotent(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "transcribe")
	if err != nil {
		t.Fatalf("transcribe failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Olá, pessoas.") {
		t.Errorf("expected echoed transcript, got %q", out)
	}
	if !strings.Contains(out, "2 episodes: 2 transcribed") {
		t.Errorf("expected summary, got %q", out)
	}

	text, err := os.ReadFile(filepath.Join(env.baseDir, "transcripts", "ep1.txt"))
	if err != nil {
		t.Fatalf("expected transcript: %v", err)
	}
	if string(text) != "Olá, pessoas." {
		t.Errorf("unexpected transcript %q", text)
	}

	out, err = env.run(t, "transcribe")
	if err != nil {
		t.Fatalf("second transcribe failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 skipped") {
		t.Errorf("expected second run to skip, got %q", out)
	}
	if got := atomic.LoadInt32(&env.audioRequests); got != 2 {
		t.Errorf("expected 2 downloads, got %d", got)
	}
	if got := atomic.LoadInt32(&env.transcriptions); got != 2 {
		t.Errorf("expected 2 transcription requests, got %d", got)
	}
}

func TestTranscribeCommandFilters(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "transcribe", "--match", "episodio 2")
	if err != nil {
		t.Fatalf("transcribe failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 episodes: 1 transcribed") {
		t.Errorf("expected only the matching episode, got %q", out)
	}
	if _, err := os.Stat(filepath.Join(env.baseDir, "transcripts", "ep1.txt")); !os.IsNotExist(err) {
		t.Errorf("expected ep1 not to be transcribed")
	}

	if _, err := env.run(t, "transcribe", "--since", "yesterday"); err == nil {
		t.Error("expected error for malformed --since")
	}
}

func TestTranscribeCommandPendingLimit(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run(t, "transcribe", "--limit", "1"); err != nil {
		t.Fatalf("first transcribe failed: %v", err)
	}

	// Without --pending the limit would pick the already transcribed first episode again.
	out, err := env.run(t, "transcribe", "--pending", "--limit", "1")
	if err != nil {
		t.Fatalf("pending transcribe failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 episodes: 1 transcribed") {
		t.Errorf("expected the next episode to be transcribed, got %q", out)
	}
	for _, name := range []string{"ep1.txt", "ep2.txt"} {
		if _, err := os.Stat(filepath.Join(env.baseDir, "transcripts", name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
}

func TestTranscribeCommandSendsWhisperPrompt(t *testing.T) {
	env := setupCLITestEnv(t)
	config, _ := os.ReadFile(env.configPath)
	withPrompt := strings.Replace(string(config), "echo = true", "echo = true\nwhisper_prompt = \"NerdCast, Jovem Nerd\"", 1)
	if err := os.WriteFile(env.configPath, []byte(withPrompt), 0o644); err != nil {
		t.Fatal(err)
	}

	if out, err := env.run(t, "transcribe", "--limit", "1"); err != nil {
		t.Fatalf("transcribe failed: %v\n%s", err, out)
	}

	env.mu.Lock()
	defer env.mu.Unlock()
	if len(env.prompts) != 1 || env.prompts[0] != "NerdCast, Jovem Nerd" {
		t.Errorf("expected the configured style hint to be sent, got %q", env.prompts)
	}
}

func TestTranscribeCommandRequiresAPIKey(t *testing.T) {
	env := setupCLITestEnv(t)
	config, _ := os.ReadFile(env.configPath)
	stripped := strings.Replace(string(config), `api_key = "test-key"`, "", 1)
	if err := os.WriteFile(env.configPath, []byte(stripped), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := env.run(t, "transcribe")
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}

	// Commands that never call the backend still work.
	if out, err := env.run(t, "list"); err != nil {
		t.Fatalf("list failed without key: %v\n%s", err, out)
	}
}

func TestTranscribeCommandRefusesConcurrentRun(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.baseDir, "transcripts")

	unlock, err := lockDir(dir)
	if err != nil {
		t.Fatalf("lockDir failed: %v", err)
	}
	defer unlock()

	_, err = env.run(t, "transcribe")
	if err == nil || !strings.Contains(err.Error(), "another podscribe run") {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestListCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "transcribe", "--limit", "1"); err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}

	out, err := env.run(t, "list")
	if err != nil {
		t.Fatalf("list failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Episódio 1", "Episódio 2", "2023-12-22 10:00:00-03:00", "Transcript", "14 B"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in list output:\n%s", want, out)
		}
	}
}

func TestPublishCommandWithoutSinks(t *testing.T) {
	env := setupCLITestEnv(t)
	_, err := env.run(t, "publish", "--offline")
	if err == nil || !strings.Contains(err.Error(), "no transcript sink configured") {
		t.Fatalf("expected missing sink error, got %v", err)
	}
}

func TestConfigInitCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "generated", "podscribe.toml")

	out, err := env.run(t, "config", "init", target)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration to "+target) {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config: %v", err)
	}

	if _, err := env.run(t, "config", "init", target); err == nil {
		t.Error("expected error when config exists without --overwrite")
	}
	if _, err := env.run(t, "config", "init", "--overwrite", target); err != nil {
		t.Errorf("expected overwrite to succeed, got %v", err)
	}
}
