package filter

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"podscribe/pkg/domain"
)

// Filter decides whether an episode takes part in a run
type Filter interface {
	ShouldKeep(ctx context.Context, ep domain.Episode) (bool, error)
}

// FilterEpisodes applies all filters to a list of episodes, preserving order
func FilterEpisodes(ctx context.Context, episodes []domain.Episode, filters ...Filter) ([]domain.Episode, error) {
	filtered := make([]domain.Episode, 0, len(episodes))

	for _, ep := range episodes {
		keep := true
		for _, f := range filters {
			shouldKeep, err := f.ShouldKeep(ctx, ep)
			if err != nil {
				return nil, fmt.Errorf("filter error for episode %q: %w", ep.Title, err)
			}
			if !shouldKeep {
				keep = false
				break
			}
		}
		if keep {
			filtered = append(filtered, ep)
		}
	}

	return filtered, nil
}

// SinceFilter keeps episodes published at or after a point in time
type SinceFilter struct {
	since time.Time
}

// NewSinceFilter creates a new since filter
func NewSinceFilter(since time.Time) *SinceFilter {
	return &SinceFilter{since: since}
}

// ShouldKeep returns false for episodes published before the cutoff
func (f *SinceFilter) ShouldKeep(ctx context.Context, ep domain.Episode) (bool, error) {
	return !ep.PublishedAt.Before(f.since), nil
}

// TitleFilter keeps episodes whose title contains a substring, ignoring case and accents,
// so "nerdcast" matches "NerdCast" and "maca" matches "Maçã".
type TitleFilter struct {
	needle string
}

// NewTitleFilter creates a new title filter
func NewTitleFilter(substr string) *TitleFilter {
	return &TitleFilter{needle: Fold(substr)}
}

// ShouldKeep returns true if the folded title contains the folded substring
func (f *TitleFilter) ShouldKeep(ctx context.Context, ep domain.Episode) (bool, error) {
	return strings.Contains(Fold(ep.Title), f.needle), nil
}

// Fold lower-cases s and strips combining marks.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// LimitFilter keeps the first n episodes it is asked about. Order the filter last so that only
// episodes accepted by the others count towards the limit.
type LimitFilter struct {
	max  int
	seen int
}

// NewLimitFilter creates a new limit filter; n <= 0 means no limit
func NewLimitFilter(n int) *LimitFilter {
	return &LimitFilter{max: n}
}

// ShouldKeep returns false once the limit has been reached
func (f *LimitFilter) ShouldKeep(ctx context.Context, ep domain.Episode) (bool, error) {
	if f.max <= 0 {
		return true, nil
	}
	if f.seen >= f.max {
		return false, nil
	}
	f.seen++
	return true, nil
}

// NotCachedFilter drops episodes for which exists reports true
type NotCachedFilter struct {
	exists func(ep domain.Episode) (bool, error)
}

// NewNotCachedFilter creates a new filter around an existence check, such as whether the
// episode's transcript is already on disk
func NewNotCachedFilter(exists func(ep domain.Episode) (bool, error)) *NotCachedFilter {
	return &NotCachedFilter{exists: exists}
}

// ShouldKeep returns false if the episode is already cached
func (f *NotCachedFilter) ShouldKeep(ctx context.Context, ep domain.Episode) (bool, error) {
	cached, err := f.exists(ep)
	if err != nil {
		return false, err
	}
	return !cached, nil
}
