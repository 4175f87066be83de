package models

import (
	"fmt"
	"time"
)

// Video is a curated catalogue entry. ProviderID is the upstream platform id
// and must never be serialised to a client.
type Video struct {
	ID           string
	Title        string
	Description  string
	ProviderID   string
	ThumbnailURL string
	IsActive     bool
	CreatedAt    time.Time
}

const thumbnailTemplate = "https://img.youtube.com/vi/%s/maxresdefault.jpg"

func ThumbnailURL(providerID string) string {
	return fmt.Sprintf(thumbnailTemplate, providerID)
}

// WatchEvent is an append-only analytics record.
type WatchEvent struct {
	UserID    string
	VideoID   string
	Duration  int
	Completed bool
	WatchedAt time.Time
}
