package conf

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type languageTable struct {
	Languages map[string]int `toml:"languages"`
}

// loadLanguages parses the language -> engine id table. An inline
// document takes precedence over a file.
func loadLanguages(doc string, path string) (map[string]int, error) {
	if doc == "" && path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read language table: %w", err)
		}
		doc = string(content)
	}
	if doc == "" {
		return nil, nil
	}
	return ParseLanguages([]byte(doc))
}

// ParseLanguages decodes a TOML document with a [languages] table.
func ParseLanguages(doc []byte) (map[string]int, error) {
	var table languageTable
	if err := toml.Unmarshal(doc, &table); err != nil {
		return nil, fmt.Errorf("failed to parse language table: %w", err)
	}
	for name, id := range table.Languages {
		if id <= 0 {
			return nil, fmt.Errorf("language %q has invalid engine id %d", name, id)
		}
	}
	return table.Languages, nil
}

func formatLanguages(langs map[string]int) string {
	names := make([]string, 0, len(langs))
	for name := range langs {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + strconv.Itoa(langs[name])
	}
	return strings.Join(parts, ",")
}
