// Package seed loads the sample video catalogue.
package seed

import (
	"context"
	"fmt"
	"time"

	"tubegate/internal/ids"
	"tubegate/internal/models"
)

type sample struct {
	title       string
	description string
	providerID  string
}

var samples = []sample{
	{
		title:       "How Great Leaders Inspire Action",
		description: `Simon Sinek presents a simple but powerful model for how leaders inspire action, starting with a golden circle and the question "Why?"`,
		providerID:  "qp0HIF3SfI4",
	},
	{
		title:       "The Power of Vulnerability",
		description: "Brené Brown studies human connection -- our ability to empathize, belong, love. In this talk, she shares insights from her research.",
		providerID:  "iCvmsMzlF7o",
	},
	{
		title:       "Inside the Mind of a Master Procrastinator",
		description: "Tim Urban knows that procrastination doesn't make sense, but he's never been able to shake his habit of waiting until the last minute.",
		providerID:  "arj7oStGLkU",
	},
}

type CatalogueStore interface {
	DeleteAll(ctx context.Context) (int64, error)
	Create(ctx context.Context, video models.Video) error
}

// Videos returns the sample catalogue. Creation times step back one second
// per entry so the listed order is also the newest-first order.
func Videos(now time.Time) []models.Video {
	out := make([]models.Video, 0, len(samples))
	for i, s := range samples {
		out = append(out, models.Video{
			ID:           ids.New(),
			Title:        s.title,
			Description:  s.description,
			ProviderID:   s.providerID,
			ThumbnailURL: models.ThumbnailURL(s.providerID),
			IsActive:     true,
			CreatedAt:    now.Add(-time.Duration(i) * time.Second).UTC(),
		})
	}
	return out
}

// Replace clears the catalogue and inserts the samples. It reports how many
// videos were removed and how many were inserted.
func Replace(ctx context.Context, store CatalogueStore, now time.Time) (removed int64, inserted int, err error) {
	removed, err = store.DeleteAll(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("clear videos: %w", err)
	}
	for _, video := range Videos(now) {
		if err := store.Create(ctx, video); err != nil {
			return removed, inserted, fmt.Errorf("insert %q: %w", video.Title, err)
		}
		inserted++
	}
	return removed, inserted, nil
}
