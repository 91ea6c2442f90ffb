package keygen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeQuery(t *testing.T) {
	query := `
		SELECT id, name   -- projection
		FROM users

		WHERE id = :id -- filter
	`
	normalized, params := NormalizeQuery(query, nil)
	require.Equal(t, "SELECT id, name FROM users WHERE id = :id", normalized)
	require.Nil(t, params)
}

func TestNormalizeQuerySortsParams(t *testing.T) {
	_, params := NormalizeQuery("q", map[string]any{"b": 2, "a": 1, "c": 3})
	require.Equal(t, []Param{{"a", 1}, {"b", 2}, {"c", 3}}, params)
}

func TestNormalizeQueryEmptyParams(t *testing.T) {
	_, params := NormalizeQuery("q", map[string]any{})
	require.NotNil(t, params)
	require.Empty(t, params)
}

func TestGenerateCacheKeyStability(t *testing.T) {
	a := GenerateCacheKey("SELECT  *\nFROM users", map[string]any{"id": 1, "limit": 10}, "users")
	b := GenerateCacheKey("SELECT * FROM users -- trailing comment", map[string]any{"limit": 10, "id": 1}, "users")

	// Whitespace, comments and parameter order do not affect the key.
	require.Equal(t, a, b)
	require.True(t, strings.HasPrefix(a, "users:"))
	require.Len(t, a, len("users:")+32)
}

func TestGenerateCacheKeyDiscriminates(t *testing.T) {
	base := GenerateCacheKey("SELECT * FROM users", map[string]any{"id": 1}, "")

	require.True(t, strings.HasPrefix(base, DefaultPrefix+":"))
	require.NotEqual(t, base, GenerateCacheKey("SELECT * FROM orders", map[string]any{"id": 1}, ""))
	require.NotEqual(t, base, GenerateCacheKey("SELECT * FROM users", map[string]any{"id": 2}, ""))
	require.NotEqual(t, base, GenerateCacheKey("SELECT * FROM users", nil, ""))
}

type User struct{ ID int }

type Order struct{ ID int }

func (Order) TableName() string { return "customer_orders" }

func TestTagsForModel(t *testing.T) {
	require.Equal(t, []string{"model:User", "table:user"}, TagsForModel(User{}))
	require.Equal(t, []string{"model:User", "table:user"}, TagsForModel(&User{}))
	require.Equal(t, []string{"model:Order", "table:customer_orders"}, TagsForModel(Order{}))
	require.Nil(t, TagsForModel(nil))
}
