// Package feed fetches a podcast RSS feed and turns its items into episode records.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"podscribe/pkg/content"
	"podscribe/pkg/domain"
	"podscribe/pkg/httpclient"
)

var (
	ErrEmptyFeedURL  = errors.New("feed URL is empty")
	ErrEmptyFeed     = errors.New("feed contains no items")
	ErrMalformedFeed = errors.New("malformed feed")
	ErrNoEnclosure   = errors.New("item has no enclosure")
	ErrBadPubDate    = errors.New("pubDate is not RFC 2822")
)

// Parser handles RSS feed fetching and parsing
type Parser struct {
	client     *httpclient.HTTPClient
	feedParser *gofeed.Parser
	notes      content.Extractor
	log        *zap.SugaredLogger
}

// NewParser creates a new feed parser. A nil logger disables logging.
func NewParser(client *httpclient.HTTPClient, logger *zap.SugaredLogger) *Parser {
	if client == nil {
		client = httpclient.NewClient(httpclient.DefaultClient)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Parser{
		client:     client,
		feedParser: gofeed.NewParser(),
		notes:      content.NewDefaultExtractor(),
		log:        logger,
	}
}

// Parse fetches feedURL and returns its episodes oldest-first.
func (p *Parser) Parse(ctx context.Context, feedURL string) ([]domain.Episode, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, ErrEmptyFeedURL
	}

	p.log.Infof("Fetching feed %s", feedURL)
	resp, err := p.client.GetOK(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer httpclient.DrainAndClose(resp.Body)

	episodes, err := p.ParseReader(resp.Body)
	if err != nil {
		return nil, err
	}

	p.log.Infof("Parsed %d episodes from %s", len(episodes), feedURL)
	return episodes, nil
}

// ParseReader parses an already fetched feed document. Items are read in document order
// (newest first for podcast feeds) and the result is reversed, so callers iterate
// chronologically.
func (p *Parser) ParseReader(r io.Reader) ([]domain.Episode, error) {
	parsed, err := p.feedParser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}

	if parsed == nil || len(parsed.Items) == 0 {
		return nil, ErrEmptyFeed
	}

	episodes := make([]domain.Episode, 0, len(parsed.Items))
	for i, item := range parsed.Items {
		ep, err := p.episodeFromItem(item)
		if err != nil {
			return nil, fmt.Errorf("item %d (%q): %w", i, item.Title, err)
		}
		episodes = append(episodes, ep)
	}

	reverse(episodes)
	return episodes, nil
}

func (p *Parser) episodeFromItem(item *gofeed.Item) (domain.Episode, error) {
	if len(item.Enclosures) == 0 || item.Enclosures[0] == nil || strings.TrimSpace(item.Enclosures[0].URL) == "" {
		return domain.Episode{}, ErrNoEnclosure
	}
	enc := item.Enclosures[0]

	published, err := ParsePubDate(item.Published)
	if err != nil {
		return domain.Episode{}, err
	}

	ep := domain.Episode{
		Title:       strings.TrimSpace(item.Title),
		Length:      strings.TrimSpace(enc.Length),
		PageURL:     strings.TrimSpace(item.Link),
		PublishedAt: published,
		DownloadURL: CleanDownloadURL(strings.TrimSpace(enc.URL)),
		GUID:        strings.TrimSpace(item.GUID),
	}

	// Show notes are best-effort; a description we cannot render is not a feed error.
	if item.Description != "" {
		if notes, err := p.notes.ExtractText(item.Description); err == nil {
			ep.ShowNotes = notes
		} else {
			p.log.Debugf("Could not extract show notes for %q: %v", ep.Title, err)
		}
	}

	return ep, nil
}

// pubDateLayouts are the RFC 2822 forms seen in podcast feeds: numeric offset (the
// canonical form) and the obsolete named zones such as GMT, each with one- or two-digit days.
var pubDateLayouts = []string{
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 MST",
}

// ParsePubDate parses an RFC 2822 date, keeping the offset it was written with.
func ParsePubDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadPubDate, s)
}

// CleanDownloadURL strips a tracking-redirect prefix from an enclosure URL.
//
// Some hosts publish enclosures as two absolute URLs glued together
// ("https://tracker/redirect?u=https://cdn/file.mp3"). Everything before the second absolute
// URL is discarded. URLs that contain a single absolute URL are returned unchanged.
func CleanDownloadURL(raw string) string {
	starts := schemeOffsets(raw)
	if len(starts) < 2 {
		return raw
	}
	return raw[starts[1]:]
}

// schemeOffsets returns the offsets at which "http://" or "https://" begins.
func schemeOffsets(s string) []int {
	var offsets []int
	lower := strings.ToLower(s)
	for i := 0; i < len(lower); {
		j := strings.Index(lower[i:], "http")
		if j < 0 {
			break
		}
		pos := i + j
		rest := lower[pos+len("http"):]
		if strings.HasPrefix(rest, "://") || strings.HasPrefix(rest, "s://") {
			offsets = append(offsets, pos)
		}
		i = pos + len("http")
	}
	return offsets
}

func reverse(eps []domain.Episode) {
	for i, j := 0, len(eps)-1; i < j; i, j = i+1, j-1 {
		eps[i], eps[j] = eps[j], eps[i]
	}
}
