package catalog

import "strings"

// Known diet values stored in the diet column.
const (
	DietHerbivore = "herbivore"
	DietCarnivore = "carnivore"
	DietOmnivore  = "omnivore"
	DietPiscivore = "piscivore"
)

// Known locomotion values stored in the locomotion_type column.
const (
	LocomotionQuadruped = "quadruped"
	LocomotionBiped     = "biped"
	LocomotionGliding   = "gliding"
	LocomotionSwimming  = "swimming"
)

// Geological periods matched against the temporal range text.
const (
	EraTriassic   = "Triassic"
	EraJurassic   = "Jurassic"
	EraCretaceous = "Cretaceous"
)

// Diets lists the diet filter vocabulary.
var Diets = []string{DietHerbivore, DietCarnivore, DietOmnivore, DietPiscivore}

// LocomotionTypes lists the locomotion filter vocabulary.
var LocomotionTypes = []string{LocomotionQuadruped, LocomotionBiped, LocomotionGliding, LocomotionSwimming}

// Eras lists the era filter vocabulary.
var Eras = []string{EraTriassic, EraJurassic, EraCretaceous}

// Filters narrows a listing. Empty fields do not filter.
type Filters struct {
	Search         string `json:"search,omitempty"`
	Diet           string `json:"diet,omitempty"`
	LocomotionType string `json:"locomotionType,omitempty"`
	Era            string `json:"era,omitempty"`
}

// IsEmpty reports whether no filter is set.
func (f Filters) IsEmpty() bool {
	return f == Filters{}
}

// Normalize trims every field and lowercases the locomotion type, which the
// store keeps in lowercase.
func (f Filters) Normalize() Filters {
	return Filters{
		Search:         strings.TrimSpace(f.Search),
		Diet:           strings.TrimSpace(f.Diet),
		LocomotionType: NormalizeLocomotion(f.LocomotionType),
		Era:            strings.TrimSpace(f.Era),
	}
}

// NormalizeLocomotion lowercases and trims a locomotion value.
func NormalizeLocomotion(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// IsValidLocomotion reports whether v is one of the known locomotion types.
func IsValidLocomotion(v string) bool {
	return contains(LocomotionTypes, NormalizeLocomotion(v))
}

// IsValidDiet reports whether v is one of the known diets.
func IsValidDiet(v string) bool {
	return contains(Diets, strings.TrimSpace(v))
}

// IsValidEra reports whether v names a known period, ignoring case.
func IsValidEra(v string) bool {
	for _, era := range Eras {
		if strings.EqualFold(era, strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Query is a filtered page request against the gateway.
type Query struct {
	Filters Filters
	Page    int
	Limit   int
}

// Offset returns the zero-based row offset of the first record on the page.
func (q Query) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}
