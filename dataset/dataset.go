// Package dataset loads labeled training examples from files and databases.
package dataset

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hickeroar/nbayes/bayes"
)

const maxLineBytes = 1 << 20 // 1 MiB

// ErrEmpty is returned when a source yields no training examples.
var ErrEmpty = errors.New("dataset has no examples")

// Category is one labeled group of examples in a YAML dataset.
type Category struct {
	Name     string   `yaml:"name"`
	Examples []string `yaml:"examples"`
}

// File is the YAML dataset layout.
type File struct {
	Categories []Category         `yaml:"categories"`
	Priors     map[string]float64 `yaml:"priors,omitempty"`
}

// Dataset converts the file into a training dataset, keeping category order.
func (f *File) Dataset() *bayes.Dataset {
	ds := bayes.NewDataset()
	for _, cat := range f.Categories {
		ds.Add(cat.Name, cat.Examples...)
	}
	return ds
}

// TrainOptions returns the training options implied by the file.
func (f *File) TrainOptions() []bayes.TrainOption {
	if f.Priors == nil {
		return nil
	}
	return []bayes.TrainOption{bayes.WithPriors(f.Priors)}
}

// LoadYAML reads a YAML dataset file.
func LoadYAML(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset file: %w", err)
	}
	defer f.Close()

	return DecodeYAML(f)
}

// DecodeYAML decodes a YAML dataset.
func DecodeYAML(r io.Reader) (*File, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	for i, cat := range file.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return nil, fmt.Errorf("decode dataset: category %d has no name", i)
		}
	}
	if file.Dataset().Len() == 0 {
		return nil, ErrEmpty
	}

	return &file, nil
}

// LoadDir reads every *.txt file in dir as one category named after the file,
// with one example per non-blank line. Categories are ordered by file name.
func LoadDir(dir string) (*bayes.Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dataset dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	ds := bayes.NewDataset()
	for _, name := range names {
		lines, err := readLines(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		ds.Add(strings.TrimSuffix(name, filepath.Ext(name)), lines...)
	}

	if ds.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, dir)
	}
	return ds, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return lines, nil
}

// Querier is the subset of *sql.DB used by LoadSQL.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// LoadSQL runs query and reads (category, text) rows into a dataset.
// Categories are ordered by their first row.
func LoadSQL(ctx context.Context, db Querier, query string, args ...any) (*bayes.Dataset, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dataset: %w", err)
	}
	defer rows.Close()

	ds := bayes.NewDataset()
	for rows.Next() {
		var category, text string
		if err := rows.Scan(&category, &text); err != nil {
			return nil, fmt.Errorf("scan dataset row: %w", err)
		}
		ds.Add(category, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dataset rows: %w", err)
	}

	if ds.Len() == 0 {
		return nil, ErrEmpty
	}
	return ds, nil
}
