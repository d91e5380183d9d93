package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// SeedRecord is a record as written in a seed file. The image title is
// the image_info.title reference resolved against image_data.
type SeedRecord struct {
	catalog.Dinosaur
	ImageTitle string `json:"imageTitle,omitempty"`
}

// Seed is the JSON document loaded into a SQLStore.
type Seed struct {
	Dinosaurs []SeedRecord    `json:"dinosaurs"`
	Images    []catalog.Image `json:"images"`
}

// Records returns the seed records in catalog form.
func (s *Seed) Records() []catalog.Dinosaur {
	out := make([]catalog.Dinosaur, len(s.Dinosaurs))
	for i, r := range s.Dinosaurs {
		d := r.Dinosaur
		d.ImageTitle = r.ImageTitle
		out[i] = d
	}
	return out
}

// ReadSeed decodes a seed document.
func ReadSeed(r io.Reader) (*Seed, error) {
	var s Seed
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &s, nil
}

// ImportFile loads the seed file at path into the store.
func (s *SQLStore) ImportFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	seed, err := ReadSeed(f)
	if err != nil {
		return err
	}
	return s.Import(ctx, seed.Records(), seed.Images)
}
