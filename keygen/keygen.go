// Package keygen builds stable hashed cache keys and invalidation tags
// from queries, parameters and model values. All functions are pure.
package keygen

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
)

// DefaultPrefix is used by GenerateCacheKey when no prefix is given.
const DefaultPrefix = "query"

// Param is a query parameter in sorted-by-name order.
type Param struct {
	Name  string
	Value any
}

// TableNamer lets a model value override the table name used in its
// invalidation tag. Without it the lowercased type name is used.
type TableNamer interface {
	TableName() string
}

// NormalizeQuery canonicalizes a query for hashing: "--" line comments
// are stripped, blank lines dropped and internal whitespace collapsed
// to single spaces. Params, if any, are returned sorted by name so key
// generation is order-independent. Nil params yield a nil slice.
func NormalizeQuery(queryText string, params map[string]any) (string, []Param) {
	var words []string
	for _, line := range strings.Split(queryText, "\n") {
		if i := strings.Index(line, "--"); i >= 0 {
			line = line[:i]
		}
		words = append(words, strings.Fields(line)...)
	}
	normalized := strings.Join(words, " ")

	if params == nil {
		return normalized, nil
	}

	sorted := make([]Param, 0, len(params))
	for name, value := range params {
		sorted = append(sorted, Param{Name: name, Value: value})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	return normalized, sorted
}

// GenerateCacheKey builds a stable "prefix:digest" key from a query and
// its parameters. The digest is xxh3-128 over the normalized query and
// a canonical parameter rendering, so formatting differences and
// parameter order do not change the key. Parameters that cannot be
// JSON-marshalled fall back to their fmt rendering.
func GenerateCacheKey(queryText string, params map[string]any, prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	normalized, sorted := NormalizeQuery(queryText, params)

	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteByte('|')
	sb.WriteString(normalized)
	if sorted != nil {
		sb.WriteByte('|')
		// json.Marshal renders map keys in sorted order, matching the
		// sorted params.
		if js, err := json.Marshal(params); err == nil {
			sb.Write(js)
		} else {
			sb.WriteString(fmt.Sprintf("%v", params))
		}
	}

	h := xxh3.Hash128([]byte(sb.String()))
	return fmt.Sprintf("%s:%016x%016x", prefix, h.Hi, h.Lo)
}

// TagsForModel returns the invalidation tags for a model value:
// "model:<TypeName>" and "table:<table>". Pointers are dereferenced to
// their element type. The table defaults to the lowercased type name
// unless the value implements TableNamer.
func TagsForModel(model any) []string {
	t := reflect.TypeOf(model)
	if t == nil {
		return nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	name := t.Name()
	if name == "" {
		name = t.String()
	}

	table := strings.ToLower(name)
	if tn, ok := model.(TableNamer); ok {
		table = tn.TableName()
	}

	return []string{"model:" + name, "table:" + table}
}
