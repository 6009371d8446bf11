package catalog

import (
	"slices"
	"sort"
	"strings"

	"github.com/mch-billing/terminal/internal/enum"
)

// Store owns the mapping from category name to the ordered items in it.
// Every item lives in exactly one bucket, keyed by its category (or
// "General"). Store is not safe for concurrent use; callers serialise access.
type Store struct {
	buckets map[string][]Item
	order   []string // bucket insertion order
	nextID  int64
}

// NewStore returns an empty store whose first assigned id is 1.
func NewStore() *Store {
	return &Store{
		buckets: make(map[string][]Item),
		nextID:  1,
	}
}

// Load replaces the catalog wholesale. Items are grouped by category, items
// without an id get one, the id counter becomes max(id)+1 and every inpatient
// category is guaranteed a bucket.
func (s *Store) Load(items []Item) {
	s.replace(items)
}

// Import has the same semantics as Load. Supplied ids are preserved and
// missing ids are assigned above the highest supplied id. Callers validate
// the payload first (see DecodeImport) so a rejected import never reaches
// the store.
func (s *Store) Import(items []Item) {
	s.replace(items)
}

func (s *Store) replace(items []Item) {
	var maxID int64
	for _, it := range items {
		if it.ID > maxID {
			maxID = it.ID
		}
	}

	buckets := make(map[string][]Item)
	var order []string
	for _, it := range items {
		if it.ID <= 0 {
			maxID++
			it.ID = maxID
		}
		cat := it.CategoryOrDefault()
		it.Category = cat
		if _, ok := buckets[cat]; !ok {
			order = append(order, cat)
		}
		buckets[cat] = append(buckets[cat], it)
	}

	for _, cat := range enum.InpatientCategories {
		if _, ok := buckets[cat]; !ok {
			buckets[cat] = []Item{}
			order = append(order, cat)
		}
	}

	s.buckets = buckets
	s.order = order
	s.nextID = maxID + 1
}

// Add assigns the next id, appends the item to its category bucket and
// returns the stored item.
func (s *Store) Add(item Item) Item {
	item.ID = s.nextID
	s.nextID++
	item.Category = item.CategoryOrDefault()
	s.ensureBucket(item.Category)
	s.buckets[item.Category] = append(s.buckets[item.Category], item)
	return item
}

// Update replaces the item with the same id in its category bucket, or
// appends it when absent. When oldCategory is non-empty and differs from the
// item's category the item is first removed from the old bucket, which is
// deleted if it becomes empty.
func (s *Store) Update(item Item, oldCategory string) {
	item.Category = item.CategoryOrDefault()
	if oldCategory != "" && oldCategory != item.Category {
		s.removeFromBucket(oldCategory, item.ID)
	}

	s.ensureBucket(item.Category)
	bucket := s.buckets[item.Category]
	if idx := indexByID(bucket, item.ID); idx >= 0 {
		bucket[idx] = item
		return
	}
	s.buckets[item.Category] = append(bucket, item)
}

// Delete removes the item (matched by id) from its category bucket and
// deletes the bucket if it becomes empty.
func (s *Store) Delete(item Item) {
	s.removeFromBucket(item.CategoryOrDefault(), item.ID)
}

// Find looks an item up by id across all buckets.
func (s *Store) Find(id int64) (Item, bool) {
	for _, cat := range s.order {
		if idx := indexByID(s.buckets[cat], id); idx >= 0 {
			return s.buckets[cat][idx], true
		}
	}
	return Item{}, false
}

// Items returns a copy of one bucket. A missing category is an empty list.
func (s *Store) Items(category string) []Item {
	bucket := s.buckets[category]
	out := make([]Item, len(bucket))
	copy(out, bucket)
	return out
}

// Filter returns the items of one category whose name contains query
// (case-insensitive). An empty query returns the whole bucket.
func (s *Store) Filter(category, query string) []Item {
	items := s.Items(category)
	if query == "" {
		return items
	}
	q := strings.ToLower(query)
	out := items[:0]
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), q) {
			out = append(out, it)
		}
	}
	return out
}

// Search flattens the catalog and keeps items whose name or category
// contains query (case-insensitive).
func (s *Store) Search(query string) []Item {
	q := strings.ToLower(query)
	out := []Item{}
	for _, cat := range s.order {
		catMatch := strings.Contains(strings.ToLower(cat), q)
		for _, it := range s.buckets[cat] {
			if catMatch || strings.Contains(strings.ToLower(it.Name), q) {
				out = append(out, it)
			}
		}
	}
	return out
}

// Buckets returns a copy of the category -> items mapping.
func (s *Store) Buckets() map[string][]Item {
	out := make(map[string][]Item, len(s.buckets))
	for cat := range s.buckets {
		out[cat] = s.Items(cat)
	}
	return out
}

// Export flattens all buckets in bucket-insertion then item-insertion order.
func (s *Store) Export() []Item {
	out := []Item{}
	for _, cat := range s.order {
		out = append(out, s.buckets[cat]...)
	}
	return out
}

// Len is the number of items across all buckets.
func (s *Store) Len() int {
	n := 0
	for _, bucket := range s.buckets {
		n += len(bucket)
	}
	return n
}

// NextID is the id the next Add will assign.
func (s *Store) NextID() int64 {
	return s.nextID
}

// OutpatientCategories is the sorted set of bucket keys currently present.
// It is derived on every call so it can never go stale.
func (s *Store) OutpatientCategories() []string {
	cats := make([]string, 0, len(s.buckets))
	for cat := range s.buckets {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// InpatientCategories is the fixed inpatient list; it does not depend on
// the catalog contents.
func (s *Store) InpatientCategories() []string {
	return slices.Clone(enum.InpatientCategories)
}

func (s *Store) ensureBucket(cat string) {
	if _, ok := s.buckets[cat]; ok {
		return
	}
	s.buckets[cat] = []Item{}
	s.order = append(s.order, cat)
}

func (s *Store) removeFromBucket(cat string, id int64) {
	bucket, ok := s.buckets[cat]
	if !ok {
		return
	}
	if idx := indexByID(bucket, id); idx >= 0 {
		bucket = slices.Delete(bucket, idx, idx+1)
	}
	if len(bucket) == 0 {
		delete(s.buckets, cat)
		s.order = slices.DeleteFunc(s.order, func(c string) bool { return c == cat })
		return
	}
	s.buckets[cat] = bucket
}

func indexByID(items []Item, id int64) int {
	return slices.IndexFunc(items, func(it Item) bool { return it.ID == id })
}
