package gateway

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// maxImageLookups bounds concurrent image_data lookups per listing.
const maxImageLookups = 8

// imageLookup resolves an image_info title to an image_data row. It
// returns nil, nil when nothing matches.
type imageLookup func(ctx context.Context, title string) (*catalog.Image, error)

// imagePattern is the image_data title pattern for an image_info title:
// the file page name with any extension.
func imagePattern(title string) string {
	return "File:" + title + "."
}

// enrichImages resolves the picture of every record in parallel. A failed
// lookup leaves that record without an image; it never fails the listing.
func enrichImages(ctx context.Context, logger zerolog.Logger, items []catalog.Dinosaur, lookup imageLookup) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxImageLookups)

	for i := range items {
		if items[i].ImageTitle == "" {
			continue
		}
		i := i
		g.Go(func() error {
			img, err := lookup(gctx, items[i].ImageTitle)
			if err != nil {
				logger.Debug().
					Err(err).
					Str("dinosaur", items[i].Name).
					Str("image_title", items[i].ImageTitle).
					Msg("Image lookup failed")
				return nil
			}
			items[i].Image = img
			return nil
		})
	}

	_ = g.Wait()
}
