package category

// Category represents a single training label and its document tally.
type Category struct {
	name  string // Name of this category
	tally int    // Number of training documents carrying this label
}

// NewCategory returns a new, empty category.
func NewCategory(name string) *Category {
	return &Category{name: name}
}

// Name returns the category label.
func (cat *Category) Name() string {
	return cat.name
}

// Observe records one more document for this category.
func (cat *Category) Observe() {
	cat.tally++
}

// GetTally returns the number of documents observed for this category
func (cat *Category) GetTally() int {
	return cat.tally
}
