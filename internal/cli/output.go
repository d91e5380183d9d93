package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// printTable writes one row per record.
func printTable(w io.Writer, items []catalog.Dinosaur) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDIET\tLOCOMOTION\tPERIOD")
	for _, d := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, dash(d.Diet), dash(d.LocomotionType), dash(d.TemporalRange))
	}
	tw.Flush()
}

// describeFilters renders the active filters as "diet=carnivore era=...".
func describeFilters(f catalog.Filters) string {
	var parts []string
	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("search=%q", f.Search))
	}
	if f.Diet != "" {
		parts = append(parts, "diet="+f.Diet)
	}
	if f.LocomotionType != "" {
		parts = append(parts, "locomotion="+f.LocomotionType)
	}
	if f.Era != "" {
		parts = append(parts, "period="+f.Era)
	}
	return strings.Join(parts, " ")
}

func pageFooter(p catalog.Pagination, f catalog.Filters) string {
	s := fmt.Sprintf("Page %d/%d (%d dinosaurs)", p.Page, max(p.TotalPages, 1), p.Total)
	if desc := describeFilters(f); desc != "" {
		s += " [" + desc + "]"
	}
	return s
}

// printDetail writes the full record.
func printDetail(w io.Writer, d *catalog.Dinosaur) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", d.Name)
	fmt.Fprintf(tw, "Period:\t%s\n", dash(d.TemporalRange))
	fmt.Fprintf(tw, "Diet:\t%s\n", dash(d.Diet))
	fmt.Fprintf(tw, "Locomotion:\t%s\n", dash(d.LocomotionType))
	for _, m := range []struct{ label, value string }{
		{"Length", d.Length}, {"Weight", d.Weight}, {"Height", d.Height},
	} {
		if m.value != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", m.label, m.value)
		}
	}
	tw.Flush()

	if d.Description != "" {
		fmt.Fprintf(w, "\n%s\n", d.Description)
	}

	if c := d.Classification; c != nil && !c.IsZero() {
		fmt.Fprintln(w, "\nClassification:")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, r := range []struct{ rank, value string }{
			{"Domain", c.Domain}, {"Kingdom", c.Kingdom}, {"Phylum", c.Phylum},
			{"Clade", c.Clade}, {"Family", c.Family}, {"Genus", c.Genus}, {"Species", c.Species},
		} {
			if r.value != "" {
				fmt.Fprintf(tw, "  %s:\t%s\n", r.rank, r.value)
			}
		}
		tw.Flush()
	}

	if img := d.Image; img != nil {
		fmt.Fprintf(w, "\nImage: %s\n", img.Source)
		if img.Attribution != "" || img.License != "" {
			fmt.Fprintf(w, "  %s (%s)\n", dash(img.Attribution), dash(img.License))
		}
	}
	if src := d.Source; src != nil && src.URL != "" {
		fmt.Fprintf(w, "\nSource: %s\n", src.URL)
	}
}

// printDistribution writes counts sorted by count, most frequent first.
func printDistribution(w io.Writer, title string, dist map[string]int) {
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if dist[keys[i]] != dist[keys[j]] {
			return dist[keys[i]] > dist[keys[j]]
		}
		return keys[i] < keys[j]
	})

	fmt.Fprintf(w, "%s:\n", title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "  %s\t%d\n", k, dist[k])
	}
	tw.Flush()
}
