// Package testutil provides fixtures and fake upstreams for the catalog tests.
package testutil

import (
	"sort"
	"strings"
	"time"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

type fixture struct {
	name, era, diet, locomotion string
}

var fixtureRows = []fixture{
	{"Allosaurus", "Late Jurassic", "carnivore", "biped"},
	{"Ankylosaurus", "Late Cretaceous", "herbivore", "quadruped"},
	{"Apatosaurus", "Late Jurassic", "herbivore", "quadruped"},
	{"Archaeopteryx", "Late Jurassic", "carnivore", "gliding"},
	{"Baryonyx", "Early Cretaceous", "piscivore", "biped"},
	{"Brachiosaurus", "Late Jurassic", "herbivore", "quadruped"},
	{"Carnotaurus", "Late Cretaceous", "carnivore", "biped"},
	{"Ceratosaurus", "Late Jurassic", "carnivore", "biped"},
	{"Coelophysis", "Late Triassic", "carnivore", "biped"},
	{"Compsognathus", "Late Jurassic", "carnivore", "biped"},
	{"Deinonychus", "Early Cretaceous", "carnivore", "biped"},
	{"Dilophosaurus", "Early Jurassic", "carnivore", "biped"},
	{"Diplodocus", "Late Jurassic", "herbivore", "quadruped"},
	{"Edmontosaurus", "Late Cretaceous", "herbivore", "quadruped"},
	{"Eoraptor", "Late Triassic", "omnivore", "biped"},
	{"Gallimimus", "Late Cretaceous", "omnivore", "biped"},
	{"Giganotosaurus", "Late Cretaceous", "carnivore", "biped"},
	{"Herrerasaurus", "Late Triassic", "carnivore", "biped"},
	{"Iguanodon", "Early Cretaceous", "herbivore", "quadruped"},
	{"Kentrosaurus", "Late Jurassic", "herbivore", "quadruped"},
	{"Maiasaura", "Late Cretaceous", "herbivore", "quadruped"},
	{"Microraptor", "Early Cretaceous", "carnivore", "gliding"},
	{"Oviraptor", "Late Cretaceous", "omnivore", "biped"},
	{"Pachycephalosaurus", "Late Cretaceous", "herbivore", "biped"},
	{"Parasaurolophus", "Late Cretaceous", "herbivore", "quadruped"},
	{"Plateosaurus", "Late Triassic", "herbivore", "biped"},
	{"Protoceratops", "Late Cretaceous", "herbivore", "quadruped"},
	{"Spinosaurus", "Late Cretaceous", "piscivore", "swimming"},
	{"Stegosaurus", "Late Jurassic", "herbivore", "quadruped"},
	{"Styracosaurus", "Late Cretaceous", "herbivore", "quadruped"},
	{"Suchomimus", "Early Cretaceous", "piscivore", "biped"},
	{"Therizinosaurus", "Late Cretaceous", "herbivore", "biped"},
	{"Triceratops", "Late Cretaceous", "herbivore", "quadruped"},
	{"Troodon", "Late Cretaceous", "omnivore", "biped"},
	{"Tyrannosaurus", "Late Cretaceous", "carnivore", "biped"},
	{"Utahraptor", "Early Cretaceous", "carnivore", "biped"},
	{"Velociraptor", "Late Cretaceous", "carnivore", "biped"},
}

// Fixture counts.
const (
	TotalDinosaurs  = 37
	Carnivores      = 14
	Herbivores      = 16
	Omnivores       = 4
	Piscivores      = 3
	Quadrupeds      = 13
	JurassicRecords = 10
)

var fixtureTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Dinosaurs returns the 37 fixture records sorted by name with IDs 1..37.
// Every fifth record has no image; the rest reference "<Name> skeleton".
func Dinosaurs() []catalog.Dinosaur {
	out := make([]catalog.Dinosaur, len(fixtureRows))
	for i, f := range fixtureRows {
		created := fixtureTime
		d := catalog.Dinosaur{
			ID:             int64(i + 1),
			Name:           f.name,
			TemporalRange:  f.era,
			Diet:           f.diet,
			LocomotionType: f.locomotion,
			Description:    f.name + " was a " + f.diet + " of the " + f.era + ".",
			Classification: &catalog.Classification{
				Domain:  "Eukaryota",
				Kingdom: "Animalia",
				Phylum:  "Chordata",
				Clade:   "Dinosauria",
				Genus:   f.name,
			},
			Source: &catalog.Source{
				Title: f.name,
				URL:   "https://en.wikipedia.org/wiki/" + f.name,
			},
			CreatedAt: &created,
		}
		if (i+1)%5 != 0 {
			d.ImageTitle = f.name + " skeleton"
		}
		out[i] = d
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Images returns the image_data rows for the fixture records.
func Images() []catalog.Image {
	var out []catalog.Image
	for _, d := range Dinosaurs() {
		if d.ImageTitle == "" {
			continue
		}
		out = append(out, catalog.Image{
			ID:          int64(len(out) + 1),
			Title:       "File:" + d.ImageTitle + ".jpg",
			Source:      "https://upload.wikimedia.org/" + strings.ReplaceAll(d.ImageTitle, " ", "_") + ".jpg",
			Attribution: "Wikimedia Commons",
			License:     "CC BY-SA 4.0",
		})
	}
	return out
}

// Match reports whether d passes the filters: diet exact, locomotion
// case-insensitive, search substring of name or description, era
// substring of the temporal range.
func Match(d catalog.Dinosaur, f catalog.Filters) bool {
	f = f.Normalize()
	if f.Diet != "" && d.Diet != f.Diet {
		return false
	}
	if f.LocomotionType != "" && !strings.EqualFold(d.LocomotionType, f.LocomotionType) {
		return false
	}
	if f.Search != "" && !containsFold(d.Name, f.Search) && !containsFold(d.Description, f.Search) {
		return false
	}
	if f.Era != "" && !containsFold(d.TemporalRange, f.Era) {
		return false
	}
	return true
}

// Filter returns the fixture records passing f, in name order.
func Filter(f catalog.Filters) []catalog.Dinosaur {
	var out []catalog.Dinosaur
	for _, d := range Dinosaurs() {
		if Match(d, f) {
			out = append(out, d)
		}
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
