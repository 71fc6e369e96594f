package api

import "strings"

// segments splits a URL path into its non-empty components after trimming
// prefix, e.g. segments("/v1/inventory/hh1/manual-items", "/v1/inventory/")
// -> ["hh1", "manual-items"].
func segments(path, prefix string) []string {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
