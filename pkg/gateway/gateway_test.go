package gateway

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Sternrassler/dino-catalog/internal/testutil"
	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// testGateway runs the shared read contract against a store loaded with
// the fixture records.
func testGateway(t *testing.T, g Gateway) {
	t.Helper()
	ctx := context.Background()

	t.Run("ListDinosaurs filters", func(t *testing.T) {
		tests := []struct {
			name    string
			filters catalog.Filters
		}{
			{name: "no filters", filters: catalog.Filters{}},
			{name: "diet", filters: catalog.Filters{Diet: catalog.DietCarnivore}},
			{name: "locomotion ignores case", filters: catalog.Filters{LocomotionType: "BIPED"}},
			{name: "search", filters: catalog.Filters{Search: "tyr"}},
			{name: "era", filters: catalog.Filters{Era: "jurassic"}},
			{name: "combined", filters: catalog.Filters{Diet: catalog.DietHerbivore, Era: catalog.EraJurassic}},
			{name: "no match", filters: catalog.Filters{Search: "zzz"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				want := testutil.Filter(tt.filters)

				page, err := g.ListDinosaurs(ctx, catalog.Query{Filters: tt.filters, Page: 1, Limit: catalog.MaxPageSize})
				if err != nil {
					t.Fatalf("ListDinosaurs() error = %v", err)
				}
				if page.Data == nil {
					t.Fatal("Data should be an empty slice, not nil")
				}
				if page.Pagination.Total != len(want) {
					t.Errorf("Total = %d, want %d", page.Pagination.Total, len(want))
				}
				if got := names(page.Data); !reflect.DeepEqual(got, names(want)) {
					t.Errorf("names = %v, want %v", got, names(want))
				}
			})
		}
	})

	t.Run("ListDinosaurs pages", func(t *testing.T) {
		q := catalog.Query{Filters: catalog.Filters{Diet: catalog.DietCarnivore}, Page: 1, Limit: 12}

		first, err := g.ListDinosaurs(ctx, q)
		if err != nil {
			t.Fatalf("page 1: %v", err)
		}
		if len(first.Data) != 12 {
			t.Errorf("page 1 has %d records, want 12", len(first.Data))
		}
		want := catalog.Pagination{Page: 1, Limit: 12, Total: testutil.Carnivores, TotalPages: 2, HasNext: true}
		if first.Pagination != want {
			t.Errorf("Pagination = %+v, want %+v", first.Pagination, want)
		}

		q.Page = 2
		second, err := g.ListDinosaurs(ctx, q)
		if err != nil {
			t.Fatalf("page 2: %v", err)
		}
		if len(second.Data) != testutil.Carnivores-12 {
			t.Errorf("page 2 has %d records, want %d", len(second.Data), testutil.Carnivores-12)
		}
		if second.Pagination.HasNext || !second.Pagination.HasPrev {
			t.Errorf("page 2 HasNext/HasPrev = %v/%v", second.Pagination.HasNext, second.Pagination.HasPrev)
		}
		if first.Data[11].Name >= second.Data[0].Name {
			t.Errorf("pages out of order: %s then %s", first.Data[11].Name, second.Data[0].Name)
		}
	})

	t.Run("ListDinosaurs defaults", func(t *testing.T) {
		page, err := g.ListDinosaurs(ctx, catalog.Query{})
		if err != nil {
			t.Fatalf("ListDinosaurs() error = %v", err)
		}
		if page.Pagination.Page != 1 || page.Pagination.Limit != catalog.DefaultPageSize {
			t.Errorf("defaults = page %d limit %d", page.Pagination.Page, page.Pagination.Limit)
		}
		if page.Pagination.TotalPages != 4 {
			t.Errorf("TotalPages = %d, want 4", page.Pagination.TotalPages)
		}
	})

	t.Run("SearchDinosaurs", func(t *testing.T) {
		got, err := g.SearchDinosaurs(ctx, "TYR")
		if err != nil {
			t.Fatalf("SearchDinosaurs() error = %v", err)
		}
		if want := []string{"Styracosaurus", "Tyrannosaurus"}; !reflect.DeepEqual(names(got), want) {
			t.Errorf("names = %v, want %v", names(got), want)
		}
	})

	t.Run("GetDinosaur", func(t *testing.T) {
		d, err := g.GetDinosaur(ctx, "Allosaurus")
		if err != nil {
			t.Fatalf("GetDinosaur() error = %v", err)
		}
		if d.Diet != catalog.DietCarnivore || d.TemporalRange != "Late Jurassic" {
			t.Errorf("record = %+v", d)
		}
		if d.Classification == nil || d.Classification.Genus != "Allosaurus" {
			t.Errorf("Classification = %+v", d.Classification)
		}
		if d.Source == nil || d.Source.URL != "https://en.wikipedia.org/wiki/Allosaurus" {
			t.Errorf("Source = %+v", d.Source)
		}
		if d.Image == nil || d.Image.Title != "File:Allosaurus skeleton.jpg" {
			t.Fatalf("Image = %+v", d.Image)
		}
		if d.Image.License != "CC BY-SA 4.0" {
			t.Errorf("License = %q", d.Image.License)
		}
	})

	t.Run("GetDinosaur without image", func(t *testing.T) {
		d, err := g.GetDinosaur(ctx, "Tyrannosaurus")
		if err != nil {
			t.Fatalf("GetDinosaur() error = %v", err)
		}
		if d.Image != nil {
			t.Errorf("Image = %+v, want nil", d.Image)
		}
	})

	t.Run("GetDinosaur not found", func(t *testing.T) {
		_, err := g.GetDinosaur(ctx, "Nessie")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("GetDinosaurs", func(t *testing.T) {
		got, err := g.GetDinosaurs(ctx, []string{"Triceratops", "Nessie", "Allosaurus"})
		if err != nil {
			t.Fatalf("GetDinosaurs() error = %v", err)
		}
		if want := []string{"Allosaurus", "Triceratops"}; !reflect.DeepEqual(names(got), want) {
			t.Errorf("names = %v, want %v", names(got), want)
		}

		empty, err := g.GetDinosaurs(ctx, nil)
		if err != nil || len(empty) != 0 {
			t.Errorf("GetDinosaurs(nil) = %v, %v", empty, err)
		}
	})

	t.Run("CountDinosaurs", func(t *testing.T) {
		n, err := g.CountDinosaurs(ctx)
		if err != nil {
			t.Fatalf("CountDinosaurs() error = %v", err)
		}
		if n != testutil.TotalDinosaurs {
			t.Errorf("CountDinosaurs() = %d, want %d", n, testutil.TotalDinosaurs)
		}
	})

	t.Run("FieldDistribution", func(t *testing.T) {
		diet, err := g.FieldDistribution(ctx, FieldDiet)
		if err != nil {
			t.Fatalf("diet: %v", err)
		}
		wantDiet := map[string]int{
			catalog.DietCarnivore: testutil.Carnivores,
			catalog.DietHerbivore: testutil.Herbivores,
			catalog.DietOmnivore:  testutil.Omnivores,
			catalog.DietPiscivore: testutil.Piscivores,
		}
		if !reflect.DeepEqual(diet, wantDiet) {
			t.Errorf("diet distribution = %v, want %v", diet, wantDiet)
		}

		loco, err := g.FieldDistribution(ctx, FieldLocomotion)
		if err != nil {
			t.Fatalf("locomotion: %v", err)
		}
		wantLoco := map[string]int{"quadruped": testutil.Quadrupeds, "biped": 21, "gliding": 2, "swimming": 1}
		if !reflect.DeepEqual(loco, wantLoco) {
			t.Errorf("locomotion distribution = %v, want %v", loco, wantLoco)
		}

		if _, err := g.FieldDistribution(ctx, Field("name")); !errors.Is(err, ErrUnknownField) {
			t.Errorf("unknown field error = %v, want ErrUnknownField", err)
		}
	})

	t.Run("ListNames", func(t *testing.T) {
		got, err := g.ListNames(ctx)
		if err != nil {
			t.Fatalf("ListNames() error = %v", err)
		}
		if !reflect.DeepEqual(got, names(testutil.Dinosaurs())) {
			t.Errorf("ListNames() = %v", got)
		}
	})

	t.Run("RandomDinosaurs", func(t *testing.T) {
		for _, n := range []int{3, 0} {
			got, err := g.RandomDinosaurs(ctx, n)
			if err != nil {
				t.Fatalf("RandomDinosaurs(%d) error = %v", n, err)
			}
			want := n
			if want == 0 {
				want = DefaultRandomCount
			}
			if len(got) != want {
				t.Errorf("RandomDinosaurs(%d) returned %d records, want %d", n, len(got), want)
			}
			seen := make(map[string]bool)
			for _, d := range got {
				if seen[d.Name] {
					t.Errorf("duplicate pick %s", d.Name)
				}
				seen[d.Name] = true
			}
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := g.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})
}

func names(items []catalog.Dinosaur) []string {
	out := make([]string, len(items))
	for i, d := range items {
		out[i] = d.Name
	}
	return out
}
