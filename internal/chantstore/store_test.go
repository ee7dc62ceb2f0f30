package chantstore

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/chantlab/neuma/core/chant"
	apperrors "github.com/chantlab/neuma/core/errors"
	"github.com/chantlab/neuma/internal/fixtures"
)

func testCorpus() []fixtures.Chant {
	return []fixtures.Chant{
		{
			Ref:      chant.Ref{Siglum: "A-Gu 29", Folio: "12r", Sequence: 1},
			Incipit:  "Salve regina",
			FullText: "Salve regina misericordiae",
			Volpiano: "1---f--g--h---3",
		},
		{
			Ref:      chant.Ref{Siglum: "A-Gu 29", Folio: "12r", Sequence: 2},
			Incipit:  "Alleluia dulce lignum",
			FullText: "Alleluia dulce lignum dulces clavos",
			Volpiano: "1---h--j--k---4---h--g---3",
		},
		{
			Ref:      chant.Ref{Siglum: "D-KA Aug. LX", Folio: "17r", Sequence: 1},
			Incipit:  "Benedictus dominus",
			FullText: "Benedictus dominus deus israel",
			Volpiano: "1---g--f--g---3",
		},
	}
}

// newTestStore opens an initialized store in a temp directory and seeds
// it with the test corpus.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "chants.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := store.Import(testCorpus()); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	return store
}

func TestInitIdempotent(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "chants.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	if err := store.Init(); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
}

func TestImportAndCount(t *testing.T) {
	store := newTestStore(t)

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}

	// Re-importing the same corpus replaces by reference.
	n, err := store.Import(testCorpus())
	if err != nil {
		t.Fatalf("re-import failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Import returned %d, want 3", n)
	}

	count, err = store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count() after re-import = %d, want 3", count)
	}
}

func TestImportEmpty(t *testing.T) {
	store := newTestStore(t)

	n, err := store.Import(nil)
	if err != nil {
		t.Fatalf("Import(nil) failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Import(nil) = %d, want 0", n)
	}
}

func TestLookup(t *testing.T) {
	store := newTestStore(t)
	want := testCorpus()[0]

	got, err := store.Lookup(&want.Ref)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("Lookup = %+v, want %+v", *got, want)
	}
}

func TestLookupNotFound(t *testing.T) {
	store := newTestStore(t)

	ref := &chant.Ref{Siglum: "X-Xx 1", Folio: "1r", Sequence: 1}
	_, err := store.Lookup(ref)
	if err == nil {
		t.Fatal("Lookup of missing chant succeeded")
	}
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Lookup error = %v, want ErrNotFound", err)
	}

	var nfe *apperrors.NotFoundError
	if !apperrors.As(err, &nfe) {
		t.Fatalf("Lookup error type = %T, want *NotFoundError", err)
	}
	if nfe.ID != ref.String() {
		t.Errorf("NotFoundError.ID = %q, want %q", nfe.ID, ref.String())
	}
}

func TestSearch(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		query string
		want  int
	}{
		{"Salve", 1},
		{"salve", 1}, // LIKE is case-insensitive for ASCII
		{"Alleluia", 1},
		{"Sal_e", 0}, // wildcards match literally
		{"Sal%", 0},
		{"Nonexistent", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := store.Search(tt.query)
			if err != nil {
				t.Fatalf("Search(%q) failed: %v", tt.query, err)
			}
			if len(got) != tt.want {
				t.Errorf("Search(%q) returned %d chants, want %d", tt.query, len(got), tt.want)
			}
		})
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Search("   ")
	if !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Search of blank query error = %v, want ErrInvalidInput", err)
	}
}

func TestSearchOrdering(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Search("A")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Search returned %d chants, want 1", len(got))
	}
	if got[0].Incipit != "Alleluia dulce lignum" {
		t.Errorf("Search result incipit = %q", got[0].Incipit)
	}
}

func TestAll(t *testing.T) {
	store := newTestStore(t)

	got, err := store.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("All returned %d chants, want 3", len(got))
	}

	// Ordered by siglum, folio, sequence.
	wantOrder := []string{"A-Gu 29 12r 1", "A-Gu 29 12r 2", "D-KA Aug. LX 17r 1"}
	for i, c := range got {
		if c.Ref.String() != wantOrder[i] {
			t.Errorf("All[%d] ref = %q, want %q", i, c.Ref.String(), wantOrder[i])
		}
	}
}

func TestOpenReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chants.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := store.Import(testCorpus()); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	store.Close()

	ro, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly failed: %v", err)
	}
	defer ro.Close()

	count, err := ro.Count()
	if err != nil {
		t.Fatalf("Count on read-only store failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}

	want := testCorpus()[2]
	got, err := ro.Lookup(&want.Ref)
	if err != nil {
		t.Fatalf("Lookup on read-only store failed: %v", err)
	}
	if got.FullText != want.FullText {
		t.Errorf("full text = %q, want %q", got.FullText, want.FullText)
	}
}
