package catalog

import (
	"sort"
	"strings"
)

// MissingValue labels records with an empty column in an audit.
const MissingValue = "undefined"

const (
	maxAuditExamples = 3
	maxAuditVariants = 5
)

// ValueCount is one distinct stored value and how many records hold it.
type ValueCount struct {
	Value    string   `json:"value"`
	Count    int      `json:"count"`
	Examples []string `json:"examples"`
}

// FilterMatch reports how a filter value would match the stored values.
type FilterMatch struct {
	Filter          string `json:"filter"`
	Exact           int    `json:"exact"`
	CaseInsensitive int    `json:"caseInsensitive"`
	Contains        int    `json:"contains"`

	// Variants lists stored values containing the filter when none
	// matches it exactly.
	Variants []string `json:"variants,omitempty"`
}

// ValueAudit summarizes the values of one column across records.
type ValueAudit struct {
	Field   string        `json:"field"`
	Values  []ValueCount  `json:"values"`
	Filters []FilterMatch `json:"filters"`
}

// DietOf returns the diet column of d.
func DietOf(d Dinosaur) string { return d.Diet }

// LocomotionOf returns the locomotion column of d.
func LocomotionOf(d Dinosaur) string { return d.LocomotionType }

// AuditValues counts the distinct values of a column and checks each
// filter value against them. Values are ordered by count, most frequent
// first.
func AuditValues(records []Dinosaur, field string, column func(Dinosaur) string, filters []string) ValueAudit {
	counts := make(map[string]*ValueCount)
	for _, d := range records {
		v := column(d)
		if v == "" {
			v = MissingValue
		}
		vc, ok := counts[v]
		if !ok {
			vc = &ValueCount{Value: v}
			counts[v] = vc
		}
		vc.Count++
		if len(vc.Examples) < maxAuditExamples {
			vc.Examples = append(vc.Examples, d.Name)
		}
	}

	audit := ValueAudit{Field: field}
	for _, vc := range counts {
		audit.Values = append(audit.Values, *vc)
	}
	sort.Slice(audit.Values, func(i, j int) bool {
		a, b := audit.Values[i], audit.Values[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Value < b.Value
	})

	for _, f := range filters {
		audit.Filters = append(audit.Filters, matchFilter(records, column, f))
	}
	return audit
}

func matchFilter(records []Dinosaur, column func(Dinosaur) string, filter string) FilterMatch {
	m := FilterMatch{Filter: filter}
	lower := strings.ToLower(filter)
	seen := make(map[string]bool)

	for _, d := range records {
		v := column(d)
		if v == "" {
			continue
		}
		if v == filter {
			m.Exact++
		}
		if strings.EqualFold(v, filter) {
			m.CaseInsensitive++
		}
		if strings.Contains(strings.ToLower(v), lower) {
			m.Contains++
			if !seen[v] && len(m.Variants) < maxAuditVariants {
				seen[v] = true
				m.Variants = append(m.Variants, v)
			}
		}
	}

	if m.Exact > 0 {
		m.Variants = nil
	}
	return m
}
