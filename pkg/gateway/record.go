package gateway

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// detailRow is one row of the dinosaur_details table. JSON tags follow
// the column names so PostgREST rows decode directly; nulls decode to
// zero values.
type detailRow struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	TemporalRange  string          `json:"temporal_range"`
	Diet           string          `json:"diet"`
	LocomotionType string          `json:"locomotion_type"`
	Description    string          `json:"description"`
	Length         string          `json:"length"`
	Weight         string          `json:"weight"`
	Height         string          `json:"height"`
	Domain         string          `json:"domain"`
	Kingdom        string          `json:"kingdom"`
	Phylum         string          `json:"phylum"`
	Clade          string          `json:"clade"`
	FamilyInfo     string          `json:"family_info"`
	GenusInfo      string          `json:"genus_info"`
	SpeciesInfo    string          `json:"species_info"`
	SourceInfo     json.RawMessage `json:"source_info"`
	ImageInfo      json.RawMessage `json:"image_info"`
	CreatedAt      string          `json:"created_at"`
}

// imageInfo is the image_info JSON column. Only the title is needed to
// resolve the picture.
type imageInfo struct {
	Title string `json:"title"`
}

// sourceInfo is the source_info JSON column.
type sourceInfo struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	URL          string `json:"url"`
	LastRevision string `json:"last_revision"`
}

// imageRow is one row of the image_data table.
type imageRow struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Author  string `json:"author"`
	License string `json:"license"`
}

func (r imageRow) toImage() *catalog.Image {
	return &catalog.Image{
		ID:          r.ID,
		Title:       r.Title,
		Source:      r.URL,
		Attribution: r.Author,
		License:     r.License,
	}
}

// toDinosaur formats a row into the public record shape.
func (r detailRow) toDinosaur() catalog.Dinosaur {
	d := catalog.Dinosaur{
		ID:             r.ID,
		Name:           r.Name,
		TemporalRange:  r.TemporalRange,
		Diet:           r.Diet,
		LocomotionType: r.LocomotionType,
		Description:    r.Description,
		Length:         r.Length,
		Weight:         r.Weight,
		Height:         r.Height,
	}

	c := catalog.Classification{
		Domain:  r.Domain,
		Kingdom: r.Kingdom,
		Phylum:  r.Phylum,
		Clade:   r.Clade,
		Family:  r.FamilyInfo,
		Genus:   r.GenusInfo,
		Species: r.SpeciesInfo,
	}
	if !c.IsZero() {
		d.Classification = &c
	}

	if isJSONObject(r.SourceInfo) {
		var s sourceInfo
		if err := json.Unmarshal(r.SourceInfo, &s); err == nil && s != (sourceInfo{}) {
			d.Source = &catalog.Source{
				Title:        s.Title,
				Author:       s.Author,
				URL:          s.URL,
				LastRevision: s.LastRevision,
			}
		}
	}

	if isJSONObject(r.ImageInfo) {
		var info imageInfo
		if err := json.Unmarshal(r.ImageInfo, &info); err == nil {
			d.ImageTitle = info.Title
		}
	}

	if r.CreatedAt != "" {
		if t, ok := parseTimestamp(r.CreatedAt); ok {
			d.CreatedAt = &t
		}
	}

	return d
}

func isJSONObject(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return strings.HasPrefix(s, "{")
}

// parseTimestamp accepts the timestamp layouts Postgres and SQLite emit.
func parseTimestamp(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999",
		"2006-01-02 15:04:05.999999-07",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// rowFromDinosaur is the inverse of toDinosaur, used when importing.
func rowFromDinosaur(d catalog.Dinosaur) detailRow {
	r := detailRow{
		ID:             d.ID,
		Name:           d.Name,
		TemporalRange:  d.TemporalRange,
		Diet:           d.Diet,
		LocomotionType: catalog.NormalizeLocomotion(d.LocomotionType),
		Description:    d.Description,
		Length:         d.Length,
		Weight:         d.Weight,
		Height:         d.Height,
	}
	if c := d.Classification; c != nil {
		r.Domain, r.Kingdom, r.Phylum, r.Clade = c.Domain, c.Kingdom, c.Phylum, c.Clade
		r.FamilyInfo, r.GenusInfo, r.SpeciesInfo = c.Family, c.Genus, c.Species
	}
	if s := d.Source; s != nil {
		r.SourceInfo, _ = json.Marshal(sourceInfo{
			Title:        s.Title,
			Author:       s.Author,
			URL:          s.URL,
			LastRevision: s.LastRevision,
		})
	}
	title := d.ImageTitle
	if title == "" && d.Image != nil {
		title = d.Image.Title
	}
	if title != "" {
		r.ImageInfo, _ = json.Marshal(imageInfo{Title: title})
	}
	if d.CreatedAt != nil {
		r.CreatedAt = d.CreatedAt.UTC().Format(time.RFC3339)
	}
	return r
}
