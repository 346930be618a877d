package patterns

import (
	"sort"
	"strconv"
	"strings"
)

// maxListElements bounds how many list elements are exposed as indexed
// paths during flattening. Extraction rules beyond this window are not
// inferable, which keeps candidate enumeration small.
const maxListElements = 5

// Flatten converts a nested document into a dotted-path → value map.
// Container values remain reachable under their own path (the whole list or
// dict), and list elements are additionally exposed with numeric segments
// ("items.0.name") so extraction rules can reference them.
func Flatten(doc map[string]interface{}) map[string]interface{} {
	flat := make(map[string]interface{})
	flattenInto(flat, "", doc)
	return flat
}

func flattenInto(flat map[string]interface{}, prefix string, value interface{}) {
	switch v := value.(type) {
	case map[string]interface{}:
		if prefix != "" {
			flat[prefix] = v
		}
		for key, child := range v {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			flattenInto(flat, path, child)
		}
	case []interface{}:
		flat[prefix] = v
		limit := len(v)
		if limit > maxListElements {
			limit = maxListElements
		}
		for i := 0; i < limit; i++ {
			flattenInto(flat, prefix+"."+strconv.Itoa(i), v[i])
		}
	default:
		flat[prefix] = v
	}
}

// LeafPaths returns the sorted union of scalar and list paths across all
// flattened documents. Dict-valued paths are skipped; they are navigation,
// not sources.
func LeafPaths(flats []map[string]interface{}) []string {
	set := make(map[string]struct{})
	for _, flat := range flats {
		for path, value := range flat {
			if _, isDict := value.(map[string]interface{}); isDict {
				continue
			}
			set[path] = struct{}{}
		}
	}
	paths := make([]string, 0, len(set))
	for path := range set {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// HasListIndex reports whether any segment of the dotted path is a numeric
// list index.
func HasListIndex(path string) bool {
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			continue
		}
		if _, err := strconv.Atoi(seg); err == nil {
			return true
		}
	}
	return false
}
