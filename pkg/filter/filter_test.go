package filter

import (
	"context"
	"errors"
	"testing"
	"time"

	"podscribe/pkg/domain"
)

func episodes() []domain.Episode {
	day := func(d int) time.Time { return time.Date(2024, time.March, d, 12, 0, 0, 0, time.UTC) }
	return []domain.Episode{
		{Title: "NerdCast 900 - Maçã do Amor", PublishedAt: day(1)},
		{Title: "Speak English 12", PublishedAt: day(5)},
		{Title: "Nerdcast 901 - Ação", PublishedAt: day(8)},
		{Title: "NERDCAST 902", PublishedAt: day(15)},
	}
}

func titles(eps []domain.Episode) []string {
	out := make([]string, len(eps))
	for i, ep := range eps {
		out[i] = ep.Title
	}
	return out
}

func TestFilterEpisodes_Since(t *testing.T) {
	since := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	got, err := FilterEpisodes(context.Background(), episodes(), NewSinceFilter(since))
	if err != nil {
		t.Fatalf("FilterEpisodes failed: %v", err)
	}
	if len(got) != 3 || got[0].Title != "Speak English 12" {
		t.Errorf("Expected the last 3 episodes, got %v", titles(got))
	}
}

func TestFilterEpisodes_TitleIgnoresCaseAndAccents(t *testing.T) {
	tests := []struct {
		needle string
		want   int
	}{
		{needle: "nerdcast", want: 3},
		{needle: "maca", want: 1},
		{needle: "AÇÃO", want: 1},
		{needle: "acao", want: 1},
		{needle: "podcast", want: 0},
	}

	for _, tt := range tests {
		got, err := FilterEpisodes(context.Background(), episodes(), NewTitleFilter(tt.needle))
		if err != nil {
			t.Fatalf("FilterEpisodes failed: %v", err)
		}
		if len(got) != tt.want {
			t.Errorf("Title %q: expected %d matches, got %v", tt.needle, tt.want, titles(got))
		}
	}
}

func TestFilterEpisodes_LimitCountsOnlyKeptEpisodes(t *testing.T) {
	got, err := FilterEpisodes(context.Background(), episodes(), NewTitleFilter("nerdcast"), NewLimitFilter(2))
	if err != nil {
		t.Fatalf("FilterEpisodes failed: %v", err)
	}
	want := []string{"NerdCast 900 - Maçã do Amor", "Nerdcast 901 - Ação"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, titles(got))
	}
	for i := range want {
		if got[i].Title != want[i] {
			t.Errorf("Position %d: expected %q, got %q", i, want[i], got[i].Title)
		}
	}
}

func TestLimitFilter_ZeroMeansUnlimited(t *testing.T) {
	got, _ := FilterEpisodes(context.Background(), episodes(), NewLimitFilter(0))
	if len(got) != 4 {
		t.Errorf("Expected all 4 episodes, got %d", len(got))
	}
}

func TestNotCachedFilter(t *testing.T) {
	f := NewNotCachedFilter(func(ep domain.Episode) (bool, error) {
		return ep.Title == "NERDCAST 902", nil
	})
	got, err := FilterEpisodes(context.Background(), episodes(), f)
	if err != nil {
		t.Fatalf("FilterEpisodes failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Expected 3 uncached episodes, got %v", titles(got))
	}

	failing := NewNotCachedFilter(func(domain.Episode) (bool, error) {
		return false, errors.New("permission denied")
	})
	if _, err := FilterEpisodes(context.Background(), episodes(), failing); err == nil {
		t.Error("Expected filter error to be returned, got nil")
	}
}
