package filter

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

//go:embed data/*.json
var embeddedFilters embed.FS

// LoadEmbedded parses the built-in filter catalog.
func LoadEmbedded() ([]*Filter, error) {
	data, err := embeddedFilters.ReadFile("data/filters.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes either a single filter object or an array of filters.
func Parse(data []byte) ([]*Filter, error) {
	var list []*Filter
	if err := json.Unmarshal(data, &list); err == nil {
		return validateAll(list)
	}

	var single Filter
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return validateAll([]*Filter{&single})
}

// LoadFromFile loads one or more filters from a JSON file on disk.
func LoadFromFile(path string) ([]*Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filter file: %w", err)
	}

	filters, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// Relative file sources resolve against the definition's directory.
	dir := filepath.Dir(path)
	for _, f := range filters {
		for i := range f.Overlays {
			f.Overlays[i].Src = resolveRelative(dir, f.Overlays[i].Src)
		}
	}
	return filters, nil
}

// LoadFromDirectory loads every *.json filter file in dir, sorted by name.
func LoadFromDirectory(dir string) ([]*Filter, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list filter files: %w", err)
	}
	sort.Strings(files)

	var out []*Filter
	for _, file := range files {
		filters, err := LoadFromFile(file)
		if err != nil {
			return nil, err
		}
		out = append(out, filters...)
	}
	return out, nil
}

func validateAll(filters []*Filter) ([]*Filter, error) {
	for _, f := range filters {
		if f == nil {
			return nil, fmt.Errorf("%w: null entry", ErrInvalidFilter)
		}
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}
	return filters, nil
}

func resolveRelative(dir, src string) string {
	if src == "" || filepath.IsAbs(src) || hasScheme(src) {
		return src
	}
	return filepath.Join(dir, src)
}

func hasScheme(src string) bool {
	for i, r := range src {
		switch {
		case r == ':':
			return i > 1
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '+', r == '-', r == '.':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return false
}
