package catalog

import "testing"

func testCatalog(t *testing.T) *Catalog {
	t.Helper()

	cat, err := New([]Role{
		{Name: "Software Engineer", Metrics: Metrics{Technical: 9, Creative: 7, Business: 7, Customer: 5}},
		{Name: "Data Scientist", Metrics: Metrics{Technical: 9, Creative: 9, Business: 6, Customer: 5}},
		{Name: "Product Manager", Metrics: Metrics{Technical: 5, Creative: 9, Business: 10, Customer: 8}},
		{Name: "DevOps Engineer", Metrics: Metrics{Technical: 9, Creative: 8, Business: 5, Customer: 3}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return cat
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect string
	}{
		{"Software Engineer", "software engineer"},
		{"  DATA Scientist \n", "data scientist"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.expect {
			t.Fatalf("Normalize(%q) = %q, expected %q", tt.input, got, tt.expect)
		}
	}
}

func TestResolveExact(t *testing.T) {
	cat := testCatalog(t)

	canonical, ok := cat.ResolveExact("  software ENGINEER ")
	if !ok {
		t.Fatal("expected exact resolution")
	}
	if canonical != "Software Engineer" {
		t.Fatalf("unexpected canonical name: %q", canonical)
	}

	if _, ok := cat.ResolveExact("plumber"); ok {
		t.Fatal("did not expect resolution for unknown role")
	}
}

func TestResolveFuzzyOneCharOff(t *testing.T) {
	cat := testCatalog(t)

	canonical, ok := cat.ResolveFuzzy("Softwares Engineer", DefaultFuzzyCutoff)
	if !ok {
		t.Fatal("expected fuzzy resolution for near-identical input")
	}
	if canonical != "Software Engineer" {
		t.Fatalf("unexpected canonical name: %q", canonical)
	}
}

func TestResolveFuzzyRejectsDistantInput(t *testing.T) {
	cat := testCatalog(t)

	if name, ok := cat.ResolveFuzzy("Plumber", DefaultFuzzyCutoff); ok {
		t.Fatalf("did not expect fuzzy resolution, got %q", name)
	}
}

func TestResolveFuzzyEmptyInput(t *testing.T) {
	cat := testCatalog(t)

	if _, ok := cat.ResolveFuzzy("   ", DefaultFuzzyCutoff); ok {
		t.Fatal("did not expect resolution for blank input")
	}
}
