package catalog

import (
	"slices"
	"testing"

	"github.com/mch-billing/terminal/internal/enum"
	"github.com/shopspring/decimal"
)

func item(name, category, price string) Item {
	return Item{Name: name, Category: category, Price: decimal.RequireFromString(price)}
}

func TestLoad_GroupsAndComputesNextID(t *testing.T) {
	s := NewStore()
	s.Load([]Item{
		{ID: 4, Name: "Paracetamol", Category: "Medicine", Price: decimal.NewFromInt(2)},
		{ID: 9, Name: "X-Ray", Category: "Radiology", Price: decimal.NewFromInt(500)},
		{ID: 2, Name: "Consultation", Price: decimal.NewFromInt(300)},
	})

	if got := s.NextID(); got != 10 {
		t.Errorf("NextID: got %d, want 10", got)
	}
	if got := s.Items("General"); len(got) != 1 || got[0].Name != "Consultation" {
		t.Errorf("General bucket: got %+v", got)
	}
	if got := s.Items("General")[0].Category; got != "General" {
		t.Errorf("defaulted category: got %q, want General", got)
	}
	for _, cat := range enum.InpatientCategories {
		if _, ok := s.Buckets()[cat]; !ok {
			t.Errorf("inpatient bucket %q missing", cat)
		}
	}
}

func TestLoad_EmptyStartsAtOne(t *testing.T) {
	s := NewStore()
	s.Load(nil)
	if got := s.NextID(); got != 1 {
		t.Errorf("NextID: got %d, want 1", got)
	}
	added := s.Add(item("Bandage", "Supply", "5"))
	if added.ID != 1 {
		t.Errorf("first id: got %d, want 1", added.ID)
	}
}

func TestAdd_IDsNeverReused(t *testing.T) {
	s := NewStore()
	a := s.Add(item("A", "Lab", "10"))
	s.Delete(a)
	b := s.Add(item("B", "Lab", "10"))
	if b.ID == a.ID {
		t.Fatalf("id %d reused after delete", a.ID)
	}
	if b.ID != a.ID+1 {
		t.Errorf("got id %d, want %d", b.ID, a.ID+1)
	}
}

func TestAdd_DefaultsCategoryAndCreatesBucket(t *testing.T) {
	s := NewStore()
	added := s.Add(Item{Name: "Dressing", Price: decimal.NewFromInt(40)})
	if added.Category != "General" {
		t.Errorf("category: got %q, want General", added.Category)
	}
	if got := s.Items("General"); len(got) != 1 || got[0].ID != added.ID {
		t.Errorf("General bucket: got %+v", got)
	}
}

func TestUpdate_MovesCategory(t *testing.T) {
	s := NewStore()
	it := s.Add(item("Glucose", "A", "50"))

	moved := it
	moved.Category = "B"
	moved.Price = decimal.NewFromInt(60)
	s.Update(moved, "A")

	if _, ok := s.Buckets()["A"]; ok {
		t.Error("bucket A should be deleted once empty")
	}
	got := s.Items("B")
	if len(got) != 1 || got[0].ID != it.ID {
		t.Fatalf("bucket B: got %+v", got)
	}
	if !got[0].Price.Equal(decimal.NewFromInt(60)) {
		t.Errorf("price: got %s, want 60", got[0].Price)
	}
	if found, ok := s.Find(it.ID); !ok || found.Category != "B" {
		t.Errorf("Find: got %+v, %v", found, ok)
	}
}

func TestUpdate_KeepsNonEmptyOldBucket(t *testing.T) {
	s := NewStore()
	a := s.Add(item("A1", "A", "1"))
	s.Add(item("A2", "A", "2"))

	a.Category = "B"
	s.Update(a, "A")

	if got := s.Items("A"); len(got) != 1 || got[0].Name != "A2" {
		t.Errorf("bucket A: got %+v", got)
	}
}

func TestUpdate_ReplacesInPlace(t *testing.T) {
	s := NewStore()
	first := s.Add(item("First", "Lab", "1"))
	s.Add(item("Second", "Lab", "2"))

	first.Name = "First (renamed)"
	s.Update(first, "Lab")

	got := s.Items("Lab")
	if len(got) != 2 || got[0].Name != "First (renamed)" || got[1].Name != "Second" {
		t.Errorf("bucket order/content: got %+v", got)
	}
}

func TestUpdate_InsertsUnknownID(t *testing.T) {
	s := NewStore()
	s.Update(Item{ID: 42, Name: "Orphan", Category: "Lab"}, "")
	if got := s.Items("Lab"); len(got) != 1 || got[0].ID != 42 {
		t.Errorf("bucket Lab: got %+v", got)
	}
}

func TestDelete_RemovesEmptyBucket(t *testing.T) {
	s := NewStore()
	a := s.Add(item("A", "Lab", "1"))
	b := s.Add(item("B", "Lab", "1"))

	s.Delete(a)
	if got := s.Items("Lab"); len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("after first delete: got %+v", got)
	}
	s.Delete(b)
	if slices.Contains(s.OutpatientCategories(), "Lab") {
		t.Error("Lab should disappear from categories once empty")
	}
	// Deleting again is harmless.
	s.Delete(b)
}

func TestDuplicateNamesMatchedByID(t *testing.T) {
	s := NewStore()
	a := s.Add(item("Saline", "IV.'s", "100"))
	b := s.Add(item("Saline", "IV.'s", "120"))

	s.Delete(a)
	got := s.Items("IV.'s")
	if len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("got %+v, want only id %d", got, b.ID)
	}
}

func TestOutpatientCategories_SortedAndFresh(t *testing.T) {
	s := NewStore()
	s.Add(item("b", "Zeta", "1"))
	s.Add(item("a", "Alpha", "1"))

	want := []string{"Alpha", "Zeta"}
	if got := s.OutpatientCategories(); !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	s.Add(item("c", "Mid", "1"))
	want = []string{"Alpha", "Mid", "Zeta"}
	if got := s.OutpatientCategories(); !slices.Equal(got, want) {
		t.Errorf("after add: got %v, want %v", got, want)
	}
}

func TestInpatientCategories_FixedList(t *testing.T) {
	s := NewStore()
	got := s.InpatientCategories()
	if !slices.Equal(got, enum.InpatientCategories) {
		t.Errorf("got %v", got)
	}
	got[0] = "mutated"
	if enum.InpatientCategories[0] == "mutated" {
		t.Error("InpatientCategories must return a copy")
	}
}

func TestItems_MissingCategoryIsEmpty(t *testing.T) {
	s := NewStore()
	got := s.Items("Nope")
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v, want empty non-nil slice", got)
	}
}

func TestItems_ReturnsSnapshot(t *testing.T) {
	s := NewStore()
	s.Add(item("A", "Lab", "1"))
	got := s.Items("Lab")
	got[0].Name = "changed"
	if s.Items("Lab")[0].Name != "A" {
		t.Error("mutating a returned slice changed the store")
	}
}

func TestSearchAndFilter(t *testing.T) {
	s := NewStore()
	s.Add(item("Amoxicillin", "Medicine", "5"))
	s.Add(item("CBC", "Laboratory", "300"))
	s.Add(item("Lipid Profile", "Laboratory", "900"))

	if got := s.Search("lab"); len(got) != 2 {
		t.Errorf("Search by category: got %d items, want 2", len(got))
	}
	if got := s.Search("amox"); len(got) != 1 || got[0].Name != "Amoxicillin" {
		t.Errorf("Search by name: got %+v", got)
	}
	if got := s.Filter("Laboratory", "lipid"); len(got) != 1 {
		t.Errorf("Filter: got %+v", got)
	}
	if got := s.Filter("Laboratory", ""); len(got) != 2 {
		t.Errorf("Filter empty query: got %d, want 2", len(got))
	}
}

func TestExport_InsertionOrder(t *testing.T) {
	s := NewStore()
	s.Add(item("z", "Second", "1"))
	s.Add(item("a", "First", "1"))
	s.Add(item("y", "Second", "1"))

	var names []string
	for _, it := range s.Export() {
		names = append(names, it.Name)
	}
	want := []string{"z", "y", "a"}
	if !slices.Equal(names, want) {
		t.Errorf("got %v, want %v", names, want)
	}
}

func TestImport_AssignsMissingIDsAboveSupplied(t *testing.T) {
	s := NewStore()
	s.Import([]Item{
		{Name: "no id"},
		{ID: 7, Name: "seven"},
		{Name: "also no id"},
	})

	exported := s.Export()
	ids := map[string]int64{}
	for _, it := range exported {
		ids[it.Name] = it.ID
	}
	if ids["seven"] != 7 {
		t.Errorf("supplied id not preserved: %d", ids["seven"])
	}
	if ids["no id"] != 8 || ids["also no id"] != 9 {
		t.Errorf("assigned ids: got %v", ids)
	}
	if s.NextID() != 10 {
		t.Errorf("NextID: got %d, want 10", s.NextID())
	}
}

func TestImport_ReplacesCatalog(t *testing.T) {
	s := NewStore()
	s.Add(item("Old", "Legacy", "1"))
	s.Import([]Item{{ID: 1, Name: "New", Category: "Fresh"}})

	if _, ok := s.Buckets()["Legacy"]; ok {
		t.Error("import should replace the whole catalog")
	}
	if s.Len() != 1 {
		t.Errorf("Len: got %d, want 1", s.Len())
	}
}
