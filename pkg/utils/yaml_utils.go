package utils

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReadStringList reads a list of strings from a file, accepting either a
// YAML sequence or one entry per line. Line-based files may contain
// comments starting with # and optional "- " list markers.
func ReadStringList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read list file: %w", err)
	}

	// Try a YAML sequence first
	var fromYAML []string
	if err := yaml.Unmarshal(data, &fromYAML); err == nil && len(fromYAML) > 0 {
		return trimEntries(fromYAML), nil
	}

	// Fall back to one entry per line. Scoped npm names start with @,
	// which YAML rejects as a plain scalar, so unquoted lists land here.
	var entries []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "- "))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	return entries, nil
}

func trimEntries(raw []string) []string {
	entries := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			entries = append(entries, s)
		}
	}
	return entries
}
