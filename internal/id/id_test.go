package id

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsUniqueAndSorted(t *testing.T) {
	const n = 1000

	ids := make([]string, n)
	seen := make(map[string]bool, n)
	for i := range ids {
		ids[i] = New()
		assert.Len(t, ids[i], 26)
		assert.False(t, seen[ids[i]], "duplicate id %s", ids[i])
		seen[ids[i]] = true
	}

	// Generation order matches lexicographic order.
	assert.True(t, sort.StringsAreSorted(ids))
}
