package config

import "strings"

// NormalizePathPrefixes trims, anchors, and deduplicates path prefix entries.
func NormalizePathPrefixes(entries []string) []string {
	unique := make(map[string]struct{}, len(entries))
	normalized := make([]string, 0, len(entries))

	for _, raw := range entries {
		prefix := normalizePathPrefix(raw)
		if prefix == "" {
			continue
		}
		if _, exists := unique[prefix]; exists {
			continue
		}
		unique[prefix] = struct{}{}
		normalized = append(normalized, prefix)
	}

	return normalized
}

// MatchesPathPrefix reports whether path starts with any of the prefixes.
func MatchesPathPrefix(path string, prefixes []string) bool {
	if path == "" || len(prefixes) == 0 {
		return false
	}

	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func normalizePathPrefix(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}

	return trimmed
}
