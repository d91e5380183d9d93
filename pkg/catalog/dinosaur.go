// Package catalog defines the dinosaur records, query filters and page
// envelopes shared by the gateway, the HTTP API and the browsing client.
package catalog

import "time"

// Classification is the taxonomic block of a record.
type Classification struct {
	Domain  string `json:"domain,omitempty"`
	Kingdom string `json:"kingdom,omitempty"`
	Phylum  string `json:"phylum,omitempty"`
	Clade   string `json:"clade,omitempty"`
	Family  string `json:"family,omitempty"`
	Genus   string `json:"genus,omitempty"`
	Species string `json:"species,omitempty"`
}

// IsZero reports whether no rank is set.
func (c Classification) IsZero() bool {
	return c == Classification{}
}

// Image is the resolved picture of a record (from the image_data table).
type Image struct {
	ID          int64  `json:"id"`
	Title       string `json:"title,omitempty"`
	Source      string `json:"source"`
	Attribution string `json:"attribution"`
	License     string `json:"license"`
}

// Source is the article a record was scraped from.
type Source struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	URL          string `json:"url,omitempty"`
	LastRevision string `json:"lastRevision,omitempty"`
}

// Dinosaur is a read-only copy of a record owned by the remote store.
type Dinosaur struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	TemporalRange  string          `json:"temporalRange"`
	Diet           string          `json:"diet"`
	LocomotionType string          `json:"locomotionType"`
	Description    string          `json:"description"`
	Length         string          `json:"length,omitempty"`
	Weight         string          `json:"weight,omitempty"`
	Height         string          `json:"height,omitempty"`
	Classification *Classification `json:"classification,omitempty"`
	Image          *Image          `json:"image,omitempty"`
	Source         *Source         `json:"source,omitempty"`
	CreatedAt      *time.Time      `json:"createdAt,omitempty"`

	// ImageTitle is the image_info.title reference used to resolve Image.
	ImageTitle string `json:"-"`
}

// Statistics summarizes the whole catalog.
type Statistics struct {
	TotalDinosaurs         int            `json:"totalDinosaurs"`
	DietDistribution       map[string]int `json:"dietDistribution"`
	LocomotionDistribution map[string]int `json:"locomotionDistribution"`
}
