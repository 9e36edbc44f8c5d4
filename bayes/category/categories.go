package category

// Categories holds the observed categories in the order they were first seen.
type Categories struct {
	categories map[string]*Category // Map of category names to categories
	order      []string             // Names in first-observation order
	total      int
}

// NewCategories returns an empty registry.
func NewCategories() *Categories {
	return &Categories{
		categories: make(map[string]*Category),
	}
}

// GetCategory returns the named category, creating it on first use.
func (cats *Categories) GetCategory(name string) *Category {
	if val, ok := cats.categories[name]; ok {
		return val
	}

	cat := NewCategory(name)
	cats.categories[name] = cat
	cats.order = append(cats.order, name)
	return cat
}

// Observe records one document for the named category, creating it if needed.
func (cats *Categories) Observe(name string) {
	cats.GetCategory(name).Observe()
	cats.total++
}

// Count returns the number of documents observed for name, zero when unknown.
func (cats *Categories) Count(name string) int {
	if cat, ok := cats.categories[name]; ok {
		return cat.GetTally()
	}
	return 0
}

// Total returns the number of documents observed across all categories.
func (cats *Categories) Total() int {
	return cats.total
}

// Len returns the number of categories.
func (cats *Categories) Len() int {
	return len(cats.order)
}

// Names returns category names in first-observation order.
func (cats *Categories) Names() []string {
	names := make([]string, len(cats.order))
	copy(names, cats.order)
	return names
}

// Counts returns a snapshot of document counts keyed by category name.
func (cats *Categories) Counts() map[string]int {
	counts := make(map[string]int, len(cats.categories))
	for name, cat := range cats.categories {
		counts[name] = cat.GetTally()
	}
	return counts
}

// Clone returns a deep copy that shares no state with cats.
func (cats *Categories) Clone() *Categories {
	clone := NewCategories()
	for _, name := range cats.order {
		clone.order = append(clone.order, name)
		clone.categories[name] = &Category{name: name, tally: cats.categories[name].tally}
	}
	clone.total = cats.total
	return clone
}
