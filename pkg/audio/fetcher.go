// Package audio downloads episode audio into a local cache directory.
//
// The cache is keyed by filename only: if the target file exists it is returned as-is,
// without any network request or content check.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"podscribe/pkg/httpclient"
)

// DefaultChunkSize is the copy buffer used for downloads.
const DefaultChunkSize = 8192

var (
	ErrEmptyURL   = errors.New("download URL is empty")
	ErrNoFilename = errors.New("could not determine filename from URL")
)

// Config configures a Fetcher.
type Config struct {
	// Dir is the audio cache directory. It is created on first download.
	Dir string

	// ChunkSize bounds how much of the body is held in memory at once.
	ChunkSize int

	// Progress, when non-nil, receives a progress bar per download.
	Progress io.Writer
}

// Fetcher downloads audio files into a cache directory.
type Fetcher struct {
	client *httpclient.HTTPClient
	cfg    Config
	log    *zap.SugaredLogger
}

// NewFetcher creates a Fetcher. A nil client uses the default profile.
func NewFetcher(client *httpclient.HTTPClient, cfg Config, logger *zap.SugaredLogger) *Fetcher {
	if client == nil {
		client = httpclient.NewClient(httpclient.DefaultClient)
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Fetcher{client: client, cfg: cfg, log: logger}
}

// Dir returns the cache directory.
func (f *Fetcher) Dir() string {
	return f.cfg.Dir
}

// Path returns where rawURL would be cached. filename overrides the URL-derived name.
func (f *Fetcher) Path(rawURL, filename string) (string, error) {
	if filename == "" {
		var err error
		filename, err = FilenameFromURL(rawURL)
		if err != nil {
			return "", err
		}
	} else if !validFilename(filename) {
		return "", fmt.Errorf("%w: %q", ErrNoFilename, filename)
	}
	return filepath.Join(f.cfg.Dir, filename), nil
}

// Fetch returns the local path for rawURL, downloading it unless it is already cached.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, filename string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", ErrEmptyURL
	}

	dest, err := f.Path(rawURL, filename)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(dest); err == nil {
		f.log.Infof("File %s already exists, skipping download", dest)
		return dest, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", dest, err)
	}

	if err := os.MkdirAll(f.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio directory: %w", err)
	}

	if err := f.download(ctx, rawURL, dest); err != nil {
		return "", err
	}

	f.log.Infof("Audio file downloaded to %s", dest)
	return dest, nil
}

// download streams rawURL into dest through a ".part" file so an interrupted transfer never
// leaves a file that later runs would mistake for a finished download.
func (f *Fetcher) download(ctx context.Context, rawURL, dest string) (err error) {
	resp, err := f.client.GetOK(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer httpclient.DrainAndClose(resp.Body)

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
	}()

	var w io.Writer = out
	if f.cfg.Progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(f.cfg.Progress),
			progressbar.OptionSetDescription(filepath.Base(dest)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(f.cfg.Progress) }),
		)
		w = io.MultiWriter(out, bar)
	}

	buf := make([]byte, f.cfg.ChunkSize)
	if _, err = io.CopyBuffer(onlyWriter{w}, onlyReader{resp.Body}, buf); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// onlyReader and onlyWriter hide WriterTo/ReaderFrom so io.CopyBuffer really copies through
// the bounded buffer.
type onlyReader struct{ io.Reader }

type onlyWriter struct{ io.Writer }

// FilenameFromURL returns the last path segment of rawURL.
func FilenameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoFilename, err)
	}
	name := path.Base(u.Path)
	if !validFilename(name) {
		return "", fmt.Errorf("%w: %s", ErrNoFilename, rawURL)
	}
	return name, nil
}

// validFilename rejects names that would resolve to a directory once joined onto the cache
// directory.
func validFilename(name string) bool {
	switch name {
	case "", ".", "..", "/":
		return false
	}
	return filepath.Base(name) == name
}
