package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// Three items, newest first, as podcast hosts publish them. The enclosures carry the
// doubled tracking prefix some hosts emit.
const nerdFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
	<channel>
		<title>Test Podcast</title>
		<link>https://example.com</link>
		<item>
			<title>Episode 3</title>
			<link>https://example.com/ep3</link>
			<guid>ep-3</guid>
			<pubDate>Fri, 05 Jan 2024 10:00:00 -0300</pubDate>
			<description><![CDATA[<p>Third <b>episode</b></p>]]></description>
			<enclosure url="https://tracker.example.net/redirect.mp3?u=https://cdn.example.com/audio/ep3.mp3" length="3600" type="audio/mpeg"/>
		</item>
		<item>
			<title>Episode 2</title>
			<link>https://example.com/ep2</link>
			<pubDate>Fri, 29 Dec 2023 10:00:00 -0300</pubDate>
			<enclosure url="https://tracker.example.net/redirect.mp3?u=https://cdn.example.com/audio/ep2.mp3" length="3500" type="audio/mpeg"/>
		</item>
		<item>
			<title>Episode 1</title>
			<link>https://example.com/ep1</link>
			<pubDate>Fri, 22 Dec 2023 10:00:00 -0300</pubDate>
			<enclosure url="https://cdn.example.com/audio/ep1.mp3" length="3400" type="audio/mpeg"/>
		</item>
	</channel>
</rss>`

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestParser_Parse(t *testing.T) {
	server := serveFeed(t, nerdFeed)

	episodes, err := NewParser(nil, nil).Parse(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Failed to parse feed: %v", err)
	}

	if len(episodes) != 3 {
		t.Fatalf("Expected 3 episodes, got %d", len(episodes))
	}

	// Feed lists newest first; episodes must come out oldest first.
	wantTitles := []string{"Episode 1", "Episode 2", "Episode 3"}
	for i, want := range wantTitles {
		if episodes[i].Title != want {
			t.Errorf("Episode %d: expected title %q, got %q", i, want, episodes[i].Title)
		}
	}

	last := episodes[2]
	if last.DownloadURL != "https://cdn.example.com/audio/ep3.mp3" {
		t.Errorf("Expected cleaned download URL, got %q", last.DownloadURL)
	}
	if last.Length != "3600" {
		t.Errorf("Expected length 3600, got %q", last.Length)
	}
	if last.PageURL != "https://example.com/ep3" {
		t.Errorf("Expected page URL https://example.com/ep3, got %q", last.PageURL)
	}
	if last.GUID != "ep-3" {
		t.Errorf("Expected GUID ep-3, got %q", last.GUID)
	}
	if last.ShowNotes != "Third episode" {
		t.Errorf("Expected show notes %q, got %q", "Third episode", last.ShowNotes)
	}

	_, offset := last.PublishedAt.Zone()
	if offset != -3*60*60 {
		t.Errorf("Expected -03:00 offset to be kept, got %d seconds", offset)
	}
	if !last.PublishedAt.Equal(time.Date(2024, 1, 5, 13, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected publish time %v", last.PublishedAt)
	}

	if episodes[0].DownloadURL != "https://cdn.example.com/audio/ep1.mp3" {
		t.Errorf("Expected single URL to be unchanged, got %q", episodes[0].DownloadURL)
	}
}

func TestParser_Parse_EmptyFeed(t *testing.T) {
	server := serveFeed(t, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
	<channel>
		<title>Empty Feed</title>
		<link>https://example.com</link>
	</channel>
</rss>`)

	_, err := NewParser(nil, nil).Parse(context.Background(), server.URL)
	if !errors.Is(err, ErrEmptyFeed) {
		t.Fatalf("Expected ErrEmptyFeed, got %v", err)
	}
}

func TestParser_Parse_BadPubDate(t *testing.T) {
	server := serveFeed(t, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
	<channel>
		<title>Test</title>
		<item>
			<title>Episode 1</title>
			<pubDate>2024-01-05T10:00:00Z</pubDate>
			<enclosure url="https://cdn.example.com/ep1.mp3" length="1"/>
		</item>
	</channel>
</rss>`)

	_, err := NewParser(nil, nil).Parse(context.Background(), server.URL)
	if !errors.Is(err, ErrBadPubDate) {
		t.Fatalf("Expected ErrBadPubDate, got %v", err)
	}
}

func TestParser_Parse_MissingEnclosure(t *testing.T) {
	server := serveFeed(t, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
	<channel>
		<title>Test</title>
		<item>
			<title>Trailer</title>
			<pubDate>Fri, 05 Jan 2024 10:00:00 -0300</pubDate>
		</item>
	</channel>
</rss>`)

	_, err := NewParser(nil, nil).Parse(context.Background(), server.URL)
	if !errors.Is(err, ErrNoEnclosure) {
		t.Fatalf("Expected ErrNoEnclosure, got %v", err)
	}
}

func TestParser_Parse_Malformed(t *testing.T) {
	server := serveFeed(t, `this is not xml at all`)

	_, err := NewParser(nil, nil).Parse(context.Background(), server.URL)
	if !errors.Is(err, ErrMalformedFeed) {
		t.Fatalf("Expected ErrMalformedFeed, got %v", err)
	}
}

func TestParser_Parse_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewParser(nil, nil).Parse(context.Background(), server.URL)
	if err == nil || !strings.Contains(err.Error(), "fetch feed") {
		t.Fatalf("Expected fetch feed error, got %v", err)
	}
}

func TestParser_Parse_EmptyURL(t *testing.T) {
	_, err := NewParser(nil, nil).Parse(context.Background(), "  ")
	if !errors.Is(err, ErrEmptyFeedURL) {
		t.Fatalf("Expected ErrEmptyFeedURL, got %v", err)
	}
}

func TestCleanDownloadURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "tracking prefix",
			raw:  "https://A/redirect?u=https://B/file.mp3",
			want: "https://B/file.mp3",
		},
		{
			name: "prefix without query separator",
			raw:  "https://dts.podtrac.com/redirect.mp3/https://cdn.example.com/ep.mp3",
			want: "https://cdn.example.com/ep.mp3",
		},
		{
			name: "http inner url",
			raw:  "https://tracker/x/http://cdn.example.com/ep.mp3",
			want: "http://cdn.example.com/ep.mp3",
		},
		{
			name: "single url unchanged",
			raw:  "https://cdn.example.com/ep.mp3",
			want: "https://cdn.example.com/ep.mp3",
		},
		{
			name: "three urls keeps from second",
			raw:  "https://a/https://b/https://c/ep.mp3",
			want: "https://b/https://c/ep.mp3",
		},
		{
			name: "httpbin host is not a scheme",
			raw:  "https://httpbin.org/ep.mp3",
			want: "https://httpbin.org/ep.mp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanDownloadURL(tt.raw); got != tt.want {
				t.Errorf("CleanDownloadURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParsePubDate(t *testing.T) {
	valid := []string{
		"Fri, 05 Jan 2024 10:00:00 -0300",
		"Fri, 5 Jan 2024 10:00:00 -0300",
		"Thu, 11 Dec 2025 00:00:00 GMT",
		"  Fri, 05 Jan 2024 10:00:00 +0000  ",
	}
	for _, s := range valid {
		if _, err := ParsePubDate(s); err != nil {
			t.Errorf("ParsePubDate(%q) returned error: %v", s, err)
		}
	}

	invalid := []string{"", "2024-01-05", "05/01/2024 10:00"}
	for _, s := range invalid {
		if _, err := ParsePubDate(s); !errors.Is(err, ErrBadPubDate) {
			t.Errorf("ParsePubDate(%q) expected ErrBadPubDate, got %v", s, err)
		}
	}
}
