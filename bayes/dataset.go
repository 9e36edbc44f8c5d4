package bayes

import "sort"

// Dataset maps category labels to raw example texts, remembering the order in
// which categories were added.
type Dataset struct {
	order    []string
	examples map[string][]string
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{examples: make(map[string][]string)}
}

// DatasetFromMap builds a dataset with categories in lexical order.
func DatasetFromMap(samples map[string][]string) *Dataset {
	names := make([]string, 0, len(samples))
	for name := range samples {
		names = append(names, name)
	}
	sort.Strings(names)

	ds := NewDataset()
	for _, name := range names {
		ds.Add(name, samples[name]...)
	}
	return ds
}

// Add appends examples to a category, registering the category on first use.
func (ds *Dataset) Add(category string, examples ...string) {
	if _, ok := ds.examples[category]; !ok {
		ds.order = append(ds.order, category)
		ds.examples[category] = nil
	}
	ds.examples[category] = append(ds.examples[category], examples...)
}

// Categories returns the category labels in insertion order.
func (ds *Dataset) Categories() []string {
	names := make([]string, len(ds.order))
	copy(names, ds.order)
	return names
}

// Examples returns the examples of a category.
func (ds *Dataset) Examples(category string) []string {
	return ds.examples[category]
}

// Len returns the total number of examples.
func (ds *Dataset) Len() int {
	total := 0
	for _, examples := range ds.examples {
		total += len(examples)
	}
	return total
}
