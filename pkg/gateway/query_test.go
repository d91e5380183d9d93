package gateway

import (
	"testing"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

func TestFilterParams(t *testing.T) {
	v := filterParams(catalog.Filters{
		Search:         "rex",
		Diet:           "carnivore",
		LocomotionType: " Biped ",
		Era:            "Cretaceous",
	})

	want := map[string]string{
		"diet":            "eq.carnivore",
		"locomotion_type": "ilike.biped",
		"or":              `(name.ilike."*rex*",description.ilike."*rex*")`,
		"temporal_range":  "ilike.*Cretaceous*",
	}
	for k, w := range want {
		if got := v.Get(k); got != w {
			t.Errorf("%s = %q, want %q", k, got, w)
		}
	}

	if empty := filterParams(catalog.Filters{}); len(empty) != 0 {
		t.Errorf("empty filters encoded as %v", empty)
	}
}

func TestListParams(t *testing.T) {
	v := listParams(catalog.Query{Page: 3, Limit: 12})

	if v.Get("offset") != "24" || v.Get("limit") != "12" {
		t.Errorf("window = offset %s limit %s, want 24/12", v.Get("offset"), v.Get("limit"))
	}
	if v.Get("order") != "name.asc" {
		t.Errorf("order = %q", v.Get("order"))
	}
}

func TestQuoteValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", `"plain"`},
		{"a,b", `"a,b"`},
		{`say "hi"`, `"say \"hi\""`},
		{`back\slash`, `"back\\slash"`},
	}
	for _, tt := range tests {
		if got := quoteValue(tt.in); got != tt.want {
			t.Errorf("quoteValue(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNamesFilter(t *testing.T) {
	got := namesFilter([]string{"Allosaurus", "T. rex"})
	want := `in.("Allosaurus","T. rex")`
	if got != want {
		t.Errorf("namesFilter() = %s, want %s", got, want)
	}
}

func TestParseContentRange(t *testing.T) {
	tests := []struct {
		header  string
		want    int
		wantErr bool
	}{
		{header: "0-11/37", want: 37},
		{header: "*/0", want: 0},
		{header: "24-36/37", want: 37},
		{header: "0-11/*", wantErr: true},
		{header: "", wantErr: true},
		{header: "0-11/abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := parseContentRange(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseContentRange(%q) error = %v, wantErr %v", tt.header, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseContentRange(%q) = %d, want %d", tt.header, got, tt.want)
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("escapeLike() = %q", got)
	}
}

func TestWhereClause(t *testing.T) {
	where, args := whereClause(catalog.Filters{Diet: "herbivore", Search: "neck"})
	if where != ` WHERE diet = ? AND (name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')` {
		t.Errorf("where = %q", where)
	}
	if len(args) != 3 || args[1] != "%neck%" {
		t.Errorf("args = %v", args)
	}

	if where, args := whereClause(catalog.Filters{}); where != "" || args != nil {
		t.Errorf("empty filters gave %q %v", where, args)
	}
}
