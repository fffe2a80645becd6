// Package export writes episode lists to CSV and estimates how much audio a feed holds.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"podscribe/pkg/domain"
)

// DateLayout is how publication dates are written: ISO-8601 with a space separator and the
// feed's own zone offset.
const DateLayout = "2006-01-02 15:04:05-07:00"

// Header is the column order of exported files.
var Header = []string{"title", "ep_dur", "ep_url", "ep_date", "dl_url"}

// WriteCSV writes a header row and one row per episode, in the given order.
func WriteCSV(w io.Writer, episodes []domain.Episode) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, ep := range episodes {
		if err := cw.Write(Row(ep)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Row returns the CSV columns for one episode.
func Row(ep domain.Episode) []string {
	date := ""
	if !ep.PublishedAt.IsZero() {
		date = ep.PublishedAt.Format(DateLayout)
	}
	return []string{ep.Title, ep.Length, ep.PageURL, date, ep.DownloadURL}
}

// SaveCSV writes episodes to path, creating parent directories.
func SaveCSV(path string, episodes []domain.Episode) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, episodes); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
