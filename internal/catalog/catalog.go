// ABOUTME: Loads the embedded TOML ISO tables and renders them as prompt text.
// ABOUTME: Entries are sorted by name for a stable rendering.

package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed isos.toml
var isosTOML []byte

// ISO is one always-current download entry.
type ISO struct {
	URL         string `toml:"url"`
	Filename    string `toml:"filename"`
	Description string `toml:"description"`
}

// Pattern is a URL template for versioned releases. Placeholders like
// {version} are substituted by the model, not by this package.
type Pattern struct {
	Pattern         string `toml:"pattern"`
	FilenamePattern string `toml:"filename_pattern"`
	ExampleVersion  string `toml:"example_version"`
	Description     string `toml:"description"`
}

type tables struct {
	Current  map[string]ISO     `toml:"current"`
	Patterns map[string]Pattern `toml:"pattern"`
}

var isoTables = mustLoad()

func mustLoad() tables {
	var t tables
	if err := toml.Unmarshal(isosTOML, &t); err != nil {
		panic(fmt.Sprintf("catalog: embedded isos.toml: %v", err))
	}
	return t
}

// CurrentISOs returns the always-current entries keyed by name.
func CurrentISOs() map[string]ISO {
	out := make(map[string]ISO, len(isoTables.Current))
	for k, v := range isoTables.Current {
		out[k] = v
	}
	return out
}

// Patterns returns the versioned URL pattern entries keyed by name.
func Patterns() map[string]Pattern {
	out := make(map[string]Pattern, len(isoTables.Patterns))
	for k, v := range isoTables.Patterns {
		out[k] = v
	}
	return out
}

// CurrentTable renders the always-current entries for the prompt.
func CurrentTable() string {
	names := sortedKeys(isoTables.Current)
	var b strings.Builder
	for _, name := range names {
		e := isoTables.Current[name]
		fmt.Fprintf(&b, "  - %s: %s\n    url=%q, filename=%q\n", name, e.Description, e.URL, e.Filename)
	}
	return strings.TrimRight(b.String(), "\n")
}

// PatternTable renders the versioned URL patterns for the prompt.
func PatternTable() string {
	names := sortedKeys(isoTables.Patterns)
	var b strings.Builder
	for _, name := range names {
		e := isoTables.Patterns[name]
		fmt.Fprintf(&b, "  - %s: %s\n    pattern: %s\n    filename: %s\n    example: %s\n",
			name, e.Description, e.Pattern, e.FilenamePattern, e.ExampleVersion)
	}
	return strings.TrimRight(b.String(), "\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
