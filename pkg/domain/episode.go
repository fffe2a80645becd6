package domain

import "time"

// Episode represents one parsed feed item.
//
// Episodes are built once by the feed parser and never mutated afterwards.
type Episode struct {
	// Title is the item title as published in the feed.
	Title string `json:"title"`

	// Length is the raw enclosure length attribute. Depending on the publisher this is
	// either a duration in seconds or a byte count, so it is kept as a string.
	Length string `json:"ep_dur"`

	// PageURL is the item <link>, the episode page on the publisher's site.
	PageURL string `json:"ep_url"`

	// PublishedAt is the item pubDate, keeping the zone offset the feed used.
	PublishedAt time.Time `json:"ep_date"`

	// DownloadURL is the enclosure URL with any tracking-redirect prefix removed.
	DownloadURL string `json:"dl_url"`

	GUID      string `json:"guid,omitempty"`
	ShowNotes string `json:"show_notes,omitempty"`
}
